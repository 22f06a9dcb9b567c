package model

import "time"

// Redacted replaces sensitive values in audit detail payloads.
const Redacted = "[REDACTED]"

// CredentialAudit is one row of the credential mutation trail. Detail never
// contains token plaintext or ciphertext; sensitive values are written as
// Redacted.
type CredentialAudit struct {
	ID            string    `json:"id"`
	DestinationID string    `json:"destination_id"`
	UserID        string    `json:"user_id"`
	// Action is the mutation performed: "authorize", "refresh", "revoke",
	// "create".
	Action    string            `json:"action"`
	Detail    map[string]string `json:"detail,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
