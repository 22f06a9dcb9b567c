package store

import (
	"context"
	"fmt"
	"time"

	"github.com/feedline/feedline/internal/model"
)

// ExecutionStore manages job execution rows.
type ExecutionStore struct {
	db DB
}

func NewExecutionStore(db DB) *ExecutionStore {
	return &ExecutionStore{db: db}
}

const executionColumns = `id, schedule_id, status, message, error_detail, started_at, completed_at`

func (s *ExecutionStore) Create(ctx context.Context, exec *model.JobExecution) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO job_executions (`+executionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		exec.ID, exec.ScheduleID, exec.Status, exec.Message, exec.ErrorDetail,
		exec.StartedAt, exec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job execution: %w", err)
	}
	return nil
}

func (s *ExecutionStore) GetByID(ctx context.Context, id string) (*model.JobExecution, error) {
	var e model.JobExecution
	err := s.db.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM job_executions WHERE id = $1`, id,
	).Scan(&e.ID, &e.ScheduleID, &e.Status, &e.Message, &e.ErrorDetail,
		&e.StartedAt, &e.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("get job execution %s: %w", id, err)
	}
	return &e, nil
}

// UpdateStatus persists a state transition with its message. Called before
// each stage proceeds so an external monitor can observe a run mid-flight.
func (s *ExecutionStore) UpdateStatus(ctx context.Context, id, status string, message *string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE job_executions SET status = $1, message = $2 WHERE id = $3`,
		status, message, id,
	)
	if err != nil {
		return fmt.Errorf("update job execution %s status: %w", id, err)
	}
	return nil
}

// Complete records a terminal state. completed_at is set exactly once.
func (s *ExecutionStore) Complete(ctx context.Context, id, status string, message, errorDetail *string, completedAt time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE job_executions SET status = $1, message = $2, error_detail = $3, completed_at = $4 WHERE id = $5`,
		status, message, errorDetail, completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("complete job execution %s: %w", id, err)
	}
	return nil
}

func (s *ExecutionStore) ListBySchedule(ctx context.Context, scheduleID string, limit int, cursor string) ([]model.JobExecution, bool, error) {
	query := `SELECT ` + executionColumns + ` FROM job_executions WHERE schedule_id = $1`
	args := []any{scheduleID}
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
		return nil, false, fmt.Errorf("list executions for schedule %s: %w", scheduleID, err)
	}
	defer rows.Close()

	var executions []model.JobExecution
	for rows.Next() {
		var e model.JobExecution
		if err := rows.Scan(&e.ID, &e.ScheduleID, &e.Status, &e.Message, &e.ErrorDetail,
			&e.StartedAt, &e.CompletedAt); err != nil {
			return nil, false, fmt.Errorf("scan job execution: %w", err)
		}
		executions = append(executions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate job executions: %w", err)
	}

	hasMore := len(executions) > limit
	if hasMore {
		executions = executions[:limit]
	}
	return executions, hasMore, nil
}
