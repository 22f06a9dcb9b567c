package store

import (
	"context"
	"fmt"
	"time"

	"github.com/feedline/feedline/internal/model"
)

// DestinationStore manages destination rows, including the encrypted
// credential columns. It never sees plaintext tokens: callers encrypt before
// writing and decrypt after reading.
type DestinationStore struct {
	db DB
}

func NewDestinationStore(db DB) *DestinationStore {
	return &DestinationStore{db: db}
}

// WithDB rebinds the store onto another query runner, typically a pgx.Tx,
// so credential updates and their audit rows commit atomically.
func (s *DestinationStore) WithDB(db DB) *DestinationStore {
	return &DestinationStore{db: db}
}

const destinationColumns = `id, user_id, name, type, file_format, provider, public_config, encrypted_access_token, encrypted_refresh_token, encrypted_client_secret, credential_state, token_expires_at, created_at, updated_at`

func (s *DestinationStore) Create(ctx context.Context, d *model.Destination) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO destinations (`+destinationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		d.ID, d.UserID, d.Name, d.Type, d.FileFormat, d.Provider, d.PublicConfig,
		d.EncryptedAccessToken, d.EncryptedRefreshToken, d.EncryptedClientSecret,
		d.CredentialState, d.TokenExpiresAt, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert destination: %w", err)
	}
	return nil
}

func (s *DestinationStore) GetByID(ctx context.Context, id string) (*model.Destination, error) {
	var d model.Destination
	err := s.db.QueryRow(ctx,
		`SELECT `+destinationColumns+` FROM destinations WHERE id = $1`, id,
	).Scan(&d.ID, &d.UserID, &d.Name, &d.Type, &d.FileFormat, &d.Provider, &d.PublicConfig,
		&d.EncryptedAccessToken, &d.EncryptedRefreshToken, &d.EncryptedClientSecret,
		&d.CredentialState, &d.TokenExpiresAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get destination %s: %w", id, err)
	}
	return &d, nil
}

func (s *DestinationStore) ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]model.Destination, bool, error) {
	query := `SELECT ` + destinationColumns + ` FROM destinations WHERE user_id = $1`
	args := []any{userID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list destinations for user %s: %w", userID, err)
	}
	defer rows.Close()

	var destinations []model.Destination
	for rows.Next() {
		var d model.Destination
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Type, &d.FileFormat, &d.Provider, &d.PublicConfig,
			&d.EncryptedAccessToken, &d.EncryptedRefreshToken, &d.EncryptedClientSecret,
			&d.CredentialState, &d.TokenExpiresAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan destination: %w", err)
		}
		destinations = append(destinations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate destinations: %w", err)
	}

	hasMore := len(destinations) > limit
	if hasMore {
		destinations = destinations[:limit]
	}
	return destinations, hasMore, nil
}

// Update rewrites the non-credential configuration. The encrypted columns
// change only through UpdateCredentials and ClearCredentials.
func (s *DestinationStore) Update(ctx context.Context, d *model.Destination) error {
	_, err := s.db.Exec(ctx,
		`UPDATE destinations SET name = $1, file_format = $2, public_config = $3, updated_at = $4
		 WHERE id = $5`,
		d.Name, d.FileFormat, d.PublicConfig, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update destination %s: %w", d.ID, err)
	}
	return nil
}

// UpdateCredentials writes a new encrypted token set and credential state.
// Callers run this inside a transaction together with the audit insert so a
// concurrent reader never observes a half-updated token pair.
func (s *DestinationStore) UpdateCredentials(ctx context.Context, id string, accessToken, refreshToken *string, state string, expiresAt *time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE destinations SET encrypted_access_token = $1, encrypted_refresh_token = $2,
		 credential_state = $3, token_expires_at = $4, updated_at = now() WHERE id = $5`,
		accessToken, refreshToken, state, expiresAt, id,
	)
	if err != nil {
		return fmt.Errorf("update destination %s credentials: %w", id, err)
	}
	return nil
}

// ClearCredentials erases the stored token set and marks the credential
// revoked.
func (s *DestinationStore) ClearCredentials(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE destinations SET encrypted_access_token = NULL, encrypted_refresh_token = NULL,
		 credential_state = $1, token_expires_at = NULL, updated_at = now() WHERE id = $2`,
		model.CredentialRevoked, id,
	)
	if err != nil {
		return fmt.Errorf("clear destination %s credentials: %w", id, err)
	}
	return nil
}

// SetCredentialState moves the credential state machine without touching
// tokens (UNAUTHORIZED → AUTHORIZING when a state token is issued).
func (s *DestinationStore) SetCredentialState(ctx context.Context, id, state string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE destinations SET credential_state = $1, updated_at = now() WHERE id = $2`,
		state, id,
	)
	if err != nil {
		return fmt.Errorf("set destination %s credential state: %w", id, err)
	}
	return nil
}

func (s *DestinationStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM destinations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete destination %s: %w", id, err)
	}
	return nil
}
