package oauth

import "fmt"

// ConfigError means the destination or provider configuration is missing a
// required OAuth field. Fatal: requires an operator or user fix, never
// retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("oauth config: %s", e.Reason)
}

// StateError means the CSRF state was missing, expired, or already
// consumed. Fatal for this attempt: the user must restart authorization.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("oauth state: %s", e.Reason)
}

// TokenError means the stored credential cannot produce a usable access
// token (no refresh token, or the provider rejected it permanently).
// Surfaced to the user as "reauthorization required" rather than retried.
type TokenError struct {
	Reason string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("oauth token: %s: reauthorization required", e.Reason)
}

// ProviderError is a failure talking to the OAuth provider. Transient
// variants (network errors, 5xx, 429) are retried by the shared policy;
// unauthorized responses are fatal.
type ProviderError struct {
	StatusCode int // 0 for transport-level failures
	Reason     string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth provider: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("oauth provider: %s (status %d)", e.Reason, e.StatusCode)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed. Unauthorized and
// other 4xx responses mean the request itself is bad and must not be
// retried.
func (e *ProviderError) Retryable() bool {
	if e.StatusCode == 0 {
		return true // transport failure
	}
	if e.StatusCode == 429 {
		return true
	}
	return e.StatusCode >= 500
}

// Unauthorized reports whether the provider rejected the credential itself,
// meaning the stored token is permanently invalid.
func (e *ProviderError) Unauthorized() bool {
	return e.StatusCode == 400 || e.StatusCode == 401 || e.StatusCode == 403
}
