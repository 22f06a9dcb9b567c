package request

// CreateDestination is the payload for registering an upload target. Secret
// is accepted write-only and encrypted before it touches the database; it is
// never echoed back.
type CreateDestination struct {
	UserID     string `json:"user_id" validate:"required"`
	Name       string `json:"name" validate:"required,max=128"`
	Type       string `json:"type" validate:"required,oneof=SFTP ONEDRIVE GOOGLEDRIVE S3"`
	FileFormat string `json:"file_format" validate:"required,oneof=csv json xml"`
	// Provider selects the OAuth provider for OAuth-backed types.
	Provider     string            `json:"provider,omitempty"`
	PublicConfig map[string]string `json:"public_config"`
	// Secret carries the destination's sensitive credential: the SFTP
	// password, the S3 secret key, or the OAuth client secret.
	Secret string `json:"secret,omitempty"`
}

// UpdateDestination carries the mutable non-credential fields. Nil fields
// are left unchanged; credentials change only through the OAuth endpoints.
type UpdateDestination struct {
	Name         *string            `json:"name,omitempty" validate:"omitempty,max=128"`
	FileFormat   *string            `json:"file_format,omitempty" validate:"omitempty,oneof=csv json xml"`
	PublicConfig *map[string]string `json:"public_config,omitempty"`
}
