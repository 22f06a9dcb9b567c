package model

import "time"

// OAuthState is a single-use CSRF token binding an authorization request to
// a (user, destination, provider) triple. It is consumed exactly once on
// callback and rejected after its expiry.
type OAuthState struct {
	State         string    `json:"state"`
	UserID        string    `json:"user_id"`
	DestinationID string    `json:"destination_id"`
	Provider      string    `json:"provider"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// Expired reports whether the state is past its expiry at the given instant.
func (s *OAuthState) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
