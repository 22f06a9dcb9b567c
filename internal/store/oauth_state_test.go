package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/feedline/feedline/internal/model"
)

func TestOAuthStateStore_Create(t *testing.T) {
	db := &mockDB{}
	s := NewOAuthStateStore(db)
	ctx := context.Background()

	st := &model.OAuthState{
		State:         "random-state",
		UserID:        "user-1",
		DestinationID: "dest-1",
		Provider:      "onedrive",
		ExpiresAt:     time.Now().Add(10 * time.Minute),
		CreatedAt:     time.Now(),
	}

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(cmdTag(), nil)

	require.NoError(t, s.Create(ctx, st))
	db.AssertExpectations(t)
}

func TestOAuthStateStore_Consume_ReturnsState(t *testing.T) {
	db := &mockDB{}
	s := NewOAuthStateStore(db)
	ctx := context.Background()

	expires := time.Now().Add(10 * time.Minute)
	row := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "random-state"
		*(dest[1].(*string)) = "user-1"
		*(dest[2].(*string)) = "dest-1"
		*(dest[3].(*string)) = "onedrive"
		*(dest[4].(*time.Time)) = expires
		*(dest[5].(*time.Time)) = time.Now()
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"random-state"}).Return(row)

	st, err := s.Consume(ctx, "random-state")
	require.NoError(t, err)
	assert.Equal(t, "dest-1", st.DestinationID)
	assert.Equal(t, "onedrive", st.Provider)
	db.AssertExpectations(t)
}

func TestOAuthStateStore_Consume_MissingStateIsNotFound(t *testing.T) {
	db := &mockDB{}
	s := NewOAuthStateStore(db)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"already-used"}).Return(row)

	st, err := s.Consume(ctx, "already-used")
	require.ErrorIs(t, err, ErrStateNotFound)
	assert.Nil(t, st)
	db.AssertExpectations(t)
}
