package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/feedline/feedline/internal/model"
)

// ErrStateNotFound is returned when a state token does not exist or was
// already consumed.
var ErrStateNotFound = errors.New("oauth state not found")

// OAuthStateStore manages single-use CSRF state tokens.
type OAuthStateStore struct {
	db DB
}

func NewOAuthStateStore(db DB) *OAuthStateStore {
	return &OAuthStateStore{db: db}
}

func (s *OAuthStateStore) Create(ctx context.Context, st *model.OAuthState) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO oauth_states (state, user_id, destination_id, provider, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		st.State, st.UserID, st.DestinationID, st.Provider, st.ExpiresAt, st.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert oauth state: %w", err)
	}
	return nil
}

// Consume atomically deletes and returns the state. A second call with the
// same value returns ErrStateNotFound, which is what makes the token
// single-use under concurrent callbacks.
func (s *OAuthStateStore) Consume(ctx context.Context, state string) (*model.OAuthState, error) {
	var st model.OAuthState
	err := s.db.QueryRow(ctx,
		`DELETE FROM oauth_states WHERE state = $1
		 RETURNING state, user_id, destination_id, provider, expires_at, created_at`,
		state,
	).Scan(&st.State, &st.UserID, &st.DestinationID, &st.Provider, &st.ExpiresAt, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	return &st, nil
}

// DeleteExpired removes states past their expiry. Run periodically so
// abandoned authorization attempts do not accumulate.
func (s *OAuthStateStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM oauth_states WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired oauth states: %w", err)
	}
	return tag.RowsAffected(), nil
}
