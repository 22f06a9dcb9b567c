package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/feedline/feedline/internal/model"
)

// TransformationStore manages transformation rows. Operations are stored as
// a JSONB array in configuration order.
type TransformationStore struct {
	db DB
}

func NewTransformationStore(db DB) *TransformationStore {
	return &TransformationStore{db: db}
}

func (s *TransformationStore) Create(ctx context.Context, tr *model.Transformation) error {
	ops, err := json.Marshal(tr.Operations)
	if err != nil {
		return fmt.Errorf("marshal transformation operations: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO transformations (id, user_id, name, operations, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		tr.ID, tr.UserID, tr.Name, ops, tr.CreatedAt, tr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transformation: %w", err)
	}
	return nil
}

func (s *TransformationStore) GetByID(ctx context.Context, id string) (*model.Transformation, error) {
	var tr model.Transformation
	var ops []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, name, operations, created_at, updated_at FROM transformations WHERE id = $1`, id,
	).Scan(&tr.ID, &tr.UserID, &tr.Name, &ops, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get transformation %s: %w", id, err)
	}
	if err := json.Unmarshal(ops, &tr.Operations); err != nil {
		return nil, fmt.Errorf("unmarshal transformation %s operations: %w", id, err)
	}
	return &tr, nil
}

func (s *TransformationStore) ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]model.Transformation, bool, error) {
	query := `SELECT id, user_id, name, operations, created_at, updated_at FROM transformations WHERE user_id = $1`
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
		return nil, false, fmt.Errorf("list transformations for user %s: %w", userID, err)
	}
	defer rows.Close()

	var transformations []model.Transformation
	for rows.Next() {
		var tr model.Transformation
		var ops []byte
		if err := rows.Scan(&tr.ID, &tr.UserID, &tr.Name, &ops, &tr.CreatedAt, &tr.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan transformation: %w", err)
		}
		if err := json.Unmarshal(ops, &tr.Operations); err != nil {
			return nil, false, fmt.Errorf("unmarshal transformation operations: %w", err)
		}
		transformations = append(transformations, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate transformations: %w", err)
	}

	hasMore := len(transformations) > limit
	if hasMore {
		transformations = transformations[:limit]
	}
	return transformations, hasMore, nil
}

func (s *TransformationStore) Update(ctx context.Context, tr *model.Transformation) error {
	ops, err := json.Marshal(tr.Operations)
	if err != nil {
		return fmt.Errorf("marshal transformation operations: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`UPDATE transformations SET name = $1, operations = $2, updated_at = now() WHERE id = $3`,
		tr.Name, ops, tr.ID,
	)
	if err != nil {
		return fmt.Errorf("update transformation %s: %w", tr.ID, err)
	}
	return nil
}

func (s *TransformationStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM transformations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transformation %s: %w", id, err)
	}
	return nil
}
