package store

import (
	"context"
	"fmt"

	"github.com/feedline/feedline/internal/model"
)

// AuditStore appends credential audit rows. Rows are written inside the same
// transaction as the credential mutation they describe.
type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

// WithDB rebinds the store onto another query runner, typically a pgx.Tx.
func (s *AuditStore) WithDB(db DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Append(ctx context.Context, a *model.CredentialAudit) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO credential_audits (id, destination_id, user_id, action, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.DestinationID, a.UserID, a.Action, a.Detail, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credential audit: %w", err)
	}
	return nil
}

func (s *AuditStore) ListByDestination(ctx context.Context, destinationID string, limit int, cursor string) ([]model.CredentialAudit, bool, error) {
	query := `SELECT id, destination_id, user_id, action, detail, created_at
	          FROM credential_audits WHERE destination_id = $1`
	args := []any{destinationID}
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
		return nil, false, fmt.Errorf("list credential audits for destination %s: %w", destinationID, err)
	}
	defer rows.Close()

	var audits []model.CredentialAudit
	for rows.Next() {
		var a model.CredentialAudit
		if err := rows.Scan(&a.ID, &a.DestinationID, &a.UserID, &a.Action, &a.Detail, &a.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("scan credential audit: %w", err)
		}
		audits = append(audits, a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate credential audits: %w", err)
	}

	hasMore := len(audits) > limit
	if hasMore {
		audits = audits[:limit]
	}
	return audits, hasMore, nil
}
