package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/config"
	"github.com/feedline/feedline/internal/crypto"
	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/platform"
	"github.com/feedline/feedline/internal/retry"
	"github.com/feedline/feedline/internal/store"
)

// StateTTL is how long an issued authorization state stays valid.
const StateTTL = 10 * time.Minute

// SensitiveFields are the credential fields that are always encrypted at
// rest and redacted from audit rows.
var SensitiveFields = []string{"access_token", "refresh_token", "client_secret"}

// Manager owns the credential lifecycle for OAuth-backed destinations:
// issuing authorization URLs, consuming callbacks, refreshing ahead of
// expiry, and revoking. All credential mutations are transactional and
// audited.
type Manager struct {
	destinations *store.DestinationStore
	states       *store.OAuthStateStore
	audits       *store.AuditStore
	tx           store.TxBeginner
	registry     *Registry
	tokens       *tokenClient
	logger       zerolog.Logger

	masterSecret    string
	redirectBaseURL string
	refreshWindow   time.Duration
	retryPolicy     retry.Policy

	now func() time.Time
}

func NewManager(stores *store.Stores, tx store.TxBeginner, registry *Registry, cfg *config.Config, logger zerolog.Logger) *Manager {
	return &Manager{
		destinations:    stores.Destinations,
		states:          stores.OAuthStates,
		audits:          stores.Audits,
		tx:              tx,
		registry:        registry,
		tokens:          newTokenClient(cfg.HTTPClientTimeout),
		logger:          logger.With().Str("component", "oauth-manager").Logger(),
		masterSecret:    cfg.MasterSecret,
		redirectBaseURL: cfg.OAuthRedirectBaseURL,
		refreshWindow:   cfg.RefreshAheadWindow,
		retryPolicy: retry.Policy{
			MaxAttempts: cfg.RetryMaxAttempts,
			Backoff:     retry.Linear{Base: cfg.RetryBaseDelay},
			Retryable:   retryableProvider,
		},
		now: time.Now,
	}
}

// retryableProvider retries only transient provider failures; anything else
// (config, state, token errors, unauthorized responses) is fatal.
func retryableProvider(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// AuthorizationURL issues a single-use state bound to (user, destination,
// provider) and returns the provider authorization URL. The destination's
// credential state moves to AUTHORIZING with an audit row recording the
// transition.
func (m *Manager) AuthorizationURL(ctx context.Context, userID, destinationID string) (string, error) {
	dst, err := m.destinations.GetByID(ctx, destinationID)
	if err != nil {
		return "", err
	}
	if !dst.RequiresOAuth() {
		return "", &ConfigError{Reason: fmt.Sprintf("destination type %s does not use OAuth", dst.Type)}
	}
	if dst.Provider == "" {
		return "", &ConfigError{Reason: "destination has no provider configured"}
	}

	provider, err := m.registry.Get(dst.Provider)
	if err != nil {
		return "", err
	}

	clientID := dst.PublicConfig["client_id"]
	if clientID == "" {
		return "", &ConfigError{Reason: "destination has no client_id configured"}
	}
	if dst.EncryptedClientSecret == nil {
		return "", &ConfigError{Reason: "destination has no client_secret configured"}
	}

	state, err := randomState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	st := &model.OAuthState{
		State:         state,
		UserID:        userID,
		DestinationID: destinationID,
		Provider:      dst.Provider,
		ExpiresAt:     m.now().Add(StateTTL),
		CreatedAt:     m.now(),
	}
	if err := m.states.Create(ctx, st); err != nil {
		return "", err
	}

	tx, err := m.tx.BeginTx(ctx)
	if err != nil {
		return "", fmt.Errorf("begin authorize tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := m.destinations.WithDB(tx).SetCredentialState(ctx, destinationID, model.CredentialAuthorizing); err != nil {
		return "", err
	}
	if err := m.appendAudit(ctx, tx, dst, "authorize_started"); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit authorize tx: %w", err)
	}

	m.logger.Info().
		Str("destination_id", destinationID).
		Str("provider", dst.Provider).
		Msg("authorization url issued")

	return provider.AuthorizationURL(clientID, m.redirectURI(), state), nil
}

// HandleCallback consumes the state, exchanges the code for tokens, and
// persists the encrypted credential plus its audit row in one transaction.
// A failure anywhere rolls back: the caller must restart authorization
// because the code is single-use.
func (m *Manager) HandleCallback(ctx context.Context, code, state string) error {
	st, err := m.states.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, store.ErrStateNotFound) {
			return &StateError{Reason: "unknown or already used state"}
		}
		return err
	}
	if st.Expired(m.now()) {
		return &StateError{Reason: "state expired"}
	}

	dst, err := m.destinations.GetByID(ctx, st.DestinationID)
	if err != nil {
		return err
	}

	provider, err := m.registry.Get(st.Provider)
	if err != nil {
		return err
	}

	clientID, clientSecret, err := m.clientCredentials(dst)
	if err != nil {
		return err
	}

	var tok *tokenResponse
	err = m.retryPolicy.Do(ctx, func(ctx context.Context) error {
		var exErr error
		tok, exErr = m.tokens.exchangeCode(ctx, provider.TokenURL, clientID, clientSecret, code, m.redirectURI())
		return exErr
	})
	if err != nil {
		return err
	}

	encAccess, err := crypto.Encrypt([]byte(tok.AccessToken), m.masterSecret)
	if err != nil {
		return err
	}
	encRefresh := dst.EncryptedRefreshToken
	if tok.RefreshToken != "" {
		blob, err := crypto.Encrypt([]byte(tok.RefreshToken), m.masterSecret)
		if err != nil {
			return err
		}
		encRefresh = &blob
	}

	expiresAt := tok.expiresAt(m.now())

	if err := m.persistCredentials(ctx, dst, &encAccess, encRefresh, model.CredentialAuthorized, expiresAt, "authorize"); err != nil {
		return err
	}

	m.logger.Info().
		Str("destination_id", dst.ID).
		Str("provider", st.Provider).
		Msg("authorization completed")
	return nil
}

// CheckAndRefresh proactively refreshes the credential when its expiry is
// within the refresh-ahead window, and returns the (possibly unchanged)
// destination.
func (m *Manager) CheckAndRefresh(ctx context.Context, destinationID string) (*model.Destination, error) {
	dst, err := m.destinations.GetByID(ctx, destinationID)
	if err != nil {
		return nil, err
	}
	if !dst.RequiresOAuth() || dst.TokenExpiresAt == nil {
		return dst, nil
	}
	if dst.TokenExpiresAt.After(m.now().Add(m.refreshWindow)) {
		return dst, nil
	}
	return m.refresh(ctx, dst)
}

// Refresh exchanges the stored refresh token for a new access token.
func (m *Manager) Refresh(ctx context.Context, destinationID string) (*model.Destination, error) {
	dst, err := m.destinations.GetByID(ctx, destinationID)
	if err != nil {
		return nil, err
	}
	return m.refresh(ctx, dst)
}

func (m *Manager) refresh(ctx context.Context, dst *model.Destination) (*model.Destination, error) {
	if dst.CredentialState == model.CredentialRevoked {
		return nil, &TokenError{Reason: "credential revoked"}
	}
	if dst.EncryptedRefreshToken == nil {
		return nil, &TokenError{Reason: "no refresh token stored"}
	}

	provider, err := m.registry.Get(dst.Provider)
	if err != nil {
		return nil, err
	}

	clientID, clientSecret, err := m.clientCredentials(dst)
	if err != nil {
		return nil, err
	}

	refreshPlain, err := crypto.Decrypt(*dst.EncryptedRefreshToken, m.masterSecret)
	if err != nil {
		return nil, err
	}

	var tok *tokenResponse
	err = m.retryPolicy.Do(ctx, func(ctx context.Context) error {
		var exErr error
		tok, exErr = m.tokens.exchangeRefreshToken(ctx, provider.TokenURL, clientID, clientSecret, string(refreshPlain))
		return exErr
	})
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && pe.Unauthorized() {
			// The refresh token is permanently invalid.
			return nil, &TokenError{Reason: "provider rejected refresh token"}
		}
		return nil, err
	}

	encAccess, err := crypto.Encrypt([]byte(tok.AccessToken), m.masterSecret)
	if err != nil {
		return nil, err
	}
	// A provider that omits the refresh token leaves the prior one in
	// place; one that rotates it has the new value persisted.
	encRefresh := dst.EncryptedRefreshToken
	if tok.RefreshToken != "" {
		blob, err := crypto.Encrypt([]byte(tok.RefreshToken), m.masterSecret)
		if err != nil {
			return nil, err
		}
		encRefresh = &blob
	}

	expiresAt := tok.expiresAt(m.now())

	if err := m.persistCredentials(ctx, dst, &encAccess, encRefresh, model.CredentialAuthorized, expiresAt, "refresh"); err != nil {
		return nil, err
	}

	updated := *dst
	updated.EncryptedAccessToken = &encAccess
	updated.EncryptedRefreshToken = encRefresh
	updated.CredentialState = model.CredentialAuthorized
	updated.TokenExpiresAt = expiresAt

	m.logger.Info().
		Str("destination_id", dst.ID).
		Str("provider", dst.Provider).
		Msg("access token refreshed")
	return &updated, nil
}

// DecryptedCredentials returns the momentary plaintext credential set for
// the upload stage, refreshing ahead of expiry first. The returned values
// are never persisted or logged.
func (m *Manager) DecryptedCredentials(ctx context.Context, destinationID string) (*model.Credentials, error) {
	dst, err := m.CheckAndRefresh(ctx, destinationID)
	if err != nil {
		return nil, err
	}

	creds := &model.Credentials{Public: dst.PublicConfig}

	if dst.RequiresOAuth() {
		if dst.CredentialState != model.CredentialAuthorized || dst.EncryptedAccessToken == nil {
			return nil, &TokenError{Reason: "destination not authorized"}
		}
		access, err := crypto.Decrypt(*dst.EncryptedAccessToken, m.masterSecret)
		if err != nil {
			return nil, err
		}
		creds.AccessToken = string(access)
	}

	if dst.EncryptedClientSecret != nil {
		secret, err := crypto.Decrypt(*dst.EncryptedClientSecret, m.masterSecret)
		if err != nil {
			return nil, err
		}
		creds.ClientSecret = string(secret)
	}

	return creds, nil
}

// Revoke clears the stored token set and moves the credential to REVOKED.
// Subsequent uploads fail fast with a reauthorization-required error.
func (m *Manager) Revoke(ctx context.Context, destinationID string) error {
	dst, err := m.destinations.GetByID(ctx, destinationID)
	if err != nil {
		return err
	}

	tx, err := m.tx.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin revoke tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := m.destinations.WithDB(tx).ClearCredentials(ctx, destinationID); err != nil {
		return err
	}
	if err := m.appendAudit(ctx, tx, dst, "revoke"); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit revoke tx: %w", err)
	}

	m.logger.Info().Str("destination_id", destinationID).Msg("credentials revoked")
	return nil
}

// persistCredentials writes the new encrypted token set and its audit row
// atomically. A concurrent credential read never observes a half-updated
// token pair; the transaction boundary is the mutual exclusion.
func (m *Manager) persistCredentials(ctx context.Context, dst *model.Destination, encAccess, encRefresh *string, state string, expiresAt *time.Time, action string) error {
	tx, err := m.tx.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin credential tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := m.destinations.WithDB(tx).UpdateCredentials(ctx, dst.ID, encAccess, encRefresh, state, expiresAt); err != nil {
		return err
	}
	if err := m.appendAudit(ctx, tx, dst, action); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit credential tx: %w", err)
	}
	return nil
}

func (m *Manager) appendAudit(ctx context.Context, db store.DB, dst *model.Destination, action string) error {
	detail := make(map[string]string, len(SensitiveFields))
	for _, f := range SensitiveFields {
		detail[f] = model.Redacted
	}
	return m.audits.WithDB(db).Append(ctx, &model.CredentialAudit{
		ID:            platform.NewID(),
		DestinationID: dst.ID,
		UserID:        dst.UserID,
		Action:        action,
		Detail:        detail,
		CreatedAt:     m.now(),
	})
}

func (m *Manager) clientCredentials(dst *model.Destination) (clientID, clientSecret string, err error) {
	clientID = dst.PublicConfig["client_id"]
	if clientID == "" {
		return "", "", &ConfigError{Reason: "destination has no client_id configured"}
	}
	if dst.EncryptedClientSecret == nil {
		return "", "", &ConfigError{Reason: "destination has no client_secret configured"}
	}
	plain, err := crypto.Decrypt(*dst.EncryptedClientSecret, m.masterSecret)
	if err != nil {
		return "", "", err
	}
	return clientID, string(plain), nil
}

func (m *Manager) redirectURI() string {
	return m.redirectBaseURL + "/api/v1/oauth/callback"
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
