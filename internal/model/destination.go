package model

import "time"

// Destination types.
const (
	DestinationSFTP        = "SFTP"
	DestinationOneDrive    = "ONEDRIVE"
	DestinationGoogleDrive = "GOOGLEDRIVE"
	DestinationS3          = "S3"
)

// File formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXML  = "xml"
)

// Credential states for OAuth-backed destinations.
const (
	CredentialUnauthorized = "UNAUTHORIZED"
	CredentialAuthorizing  = "AUTHORIZING"
	CredentialAuthorized   = "AUTHORIZED"
	CredentialRevoked      = "REVOKED"
)

// Destination is a configured upload target. Public config (hosts, folder
// paths, client id) lives in PublicConfig; the sensitive fields are stored
// in separate columns, always encrypted at rest, and only ever handled
// decrypted as a Credentials value that is never persisted.
type Destination struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	FileFormat string            `json:"file_format"`
	// Provider names the OAuth provider for OAuth-backed destination
	// types; empty for SFTP/S3.
	Provider     string            `json:"provider,omitempty"`
	PublicConfig map[string]string `json:"public_config"`

	// Encrypted-at-rest fields. Each holds a crypto blob string, never
	// plaintext. They are omitted from JSON entirely.
	EncryptedAccessToken  *string `json:"-"`
	EncryptedRefreshToken *string `json:"-"`
	EncryptedClientSecret *string `json:"-"`

	CredentialState string     `json:"credential_state"`
	TokenExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RequiresOAuth reports whether uploads to this destination need a live
// OAuth credential.
func (d *Destination) RequiresOAuth() bool {
	return d.Type == DestinationOneDrive || d.Type == DestinationGoogleDrive
}

// Credentials is the momentary decrypted credential set handed to a
// destination client. Values must never be persisted or logged.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ClientSecret string
	// Public carries the destination's non-sensitive config (host, port,
	// username, folder path, bucket...).
	Public map[string]string
}
