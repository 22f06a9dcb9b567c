package store

import (
	"context"
	"fmt"

	"github.com/feedline/feedline/internal/model"
)

// SourceStore manages source rows.
type SourceStore struct {
	db DB
}

func NewSourceStore(db DB) *SourceStore {
	return &SourceStore{db: db}
}

const sourceColumns = `id, user_id, name, type, base_url, api_key, endpoints, created_at, updated_at`

func (s *SourceStore) Create(ctx context.Context, src *model.Source) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO sources (`+sourceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		src.ID, src.UserID, src.Name, src.Type, src.BaseURL, src.APIKey,
		src.Endpoints, src.CreatedAt, src.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

func (s *SourceStore) GetByID(ctx context.Context, id string) (*model.Source, error) {
	var src model.Source
	err := s.db.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id,
	).Scan(&src.ID, &src.UserID, &src.Name, &src.Type, &src.BaseURL, &src.APIKey,
		&src.Endpoints, &src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get source %s: %w", id, err)
	}
	return &src, nil
}

func (s *SourceStore) ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]model.Source, bool, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE user_id = $1`
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
		return nil, false, fmt.Errorf("list sources for user %s: %w", userID, err)
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		var src model.Source
		if err := rows.Scan(&src.ID, &src.UserID, &src.Name, &src.Type, &src.BaseURL, &src.APIKey,
			&src.Endpoints, &src.CreatedAt, &src.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate sources: %w", err)
	}

	hasMore := len(sources) > limit
	if hasMore {
		sources = sources[:limit]
	}
	return sources, hasMore, nil
}

func (s *SourceStore) Update(ctx context.Context, src *model.Source) error {
	_, err := s.db.Exec(ctx,
		`UPDATE sources SET name = $1, base_url = $2, api_key = $3, endpoints = $4, updated_at = now()
		 WHERE id = $5`,
		src.Name, src.BaseURL, src.APIKey, src.Endpoints, src.ID,
	)
	if err != nil {
		return fmt.Errorf("update source %s: %w", src.ID, err)
	}
	return nil
}

func (s *SourceStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete source %s: %w", id, err)
	}
	return nil
}
