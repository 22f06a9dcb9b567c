package store

import (
	"context"
	"fmt"
	"time"

	"github.com/feedline/feedline/internal/model"
)

// ScheduleStore manages schedule rows.
type ScheduleStore struct {
	db DB
}

func NewScheduleStore(db DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

const scheduleColumns = `id, user_id, source_id, transformation_id, destination_id, frequency, time_of_day, day_of_week, day_of_month, active, last_run, next_run, created_at, updated_at`

func (s *ScheduleStore) Create(ctx context.Context, sch *model.Schedule) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO schedules (`+scheduleColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		sch.ID, sch.UserID, sch.SourceID, sch.TransformationID, sch.DestinationID,
		sch.Frequency, sch.TimeOfDay, sch.DayOfWeek, sch.DayOfMonth, sch.Active,
		sch.LastRun, sch.NextRun, sch.CreatedAt, sch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (s *ScheduleStore) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	var sch model.Schedule
	err := s.db.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id,
	).Scan(&sch.ID, &sch.UserID, &sch.SourceID, &sch.TransformationID, &sch.DestinationID,
		&sch.Frequency, &sch.TimeOfDay, &sch.DayOfWeek, &sch.DayOfMonth, &sch.Active,
		&sch.LastRun, &sch.NextRun, &sch.CreatedAt, &sch.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", id, err)
	}
	return &sch, nil
}

// ListActive returns every active schedule; the scheduler loads these at
// startup to arm its timers.
func (s *ScheduleStore) ListActive(ctx context.Context) ([]model.Schedule, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE active = true ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		var sch model.Schedule
		if err := rows.Scan(&sch.ID, &sch.UserID, &sch.SourceID, &sch.TransformationID, &sch.DestinationID,
			&sch.Frequency, &sch.TimeOfDay, &sch.DayOfWeek, &sch.DayOfMonth, &sch.Active,
			&sch.LastRun, &sch.NextRun, &sch.CreatedAt, &sch.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, sch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return schedules, nil
}

func (s *ScheduleStore) ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]model.Schedule, bool, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE user_id = $1`
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
		return nil, false, fmt.Errorf("list schedules for user %s: %w", userID, err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		var sch model.Schedule
		if err := rows.Scan(&sch.ID, &sch.UserID, &sch.SourceID, &sch.TransformationID, &sch.DestinationID,
			&sch.Frequency, &sch.TimeOfDay, &sch.DayOfWeek, &sch.DayOfMonth, &sch.Active,
			&sch.LastRun, &sch.NextRun, &sch.CreatedAt, &sch.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, sch)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate schedules: %w", err)
	}

	hasMore := len(schedules) > limit
	if hasMore {
		schedules = schedules[:limit]
	}
	return schedules, hasMore, nil
}

func (s *ScheduleStore) Update(ctx context.Context, sch *model.Schedule) error {
	_, err := s.db.Exec(ctx,
		`UPDATE schedules SET source_id = $1, transformation_id = $2, destination_id = $3,
		 frequency = $4, time_of_day = $5, day_of_week = $6, day_of_month = $7, updated_at = now()
		 WHERE id = $8`,
		sch.SourceID, sch.TransformationID, sch.DestinationID,
		sch.Frequency, sch.TimeOfDay, sch.DayOfWeek, sch.DayOfMonth, sch.ID,
	)
	if err != nil {
		return fmt.Errorf("update schedule %s: %w", sch.ID, err)
	}
	return nil
}

// UpdateRunTimes records the outcome of a run: last_run set to the run's
// start and next_run recomputed. Only the owning run writes these fields.
func (s *ScheduleStore) UpdateRunTimes(ctx context.Context, id string, lastRun, nextRun time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE schedules SET last_run = $1, next_run = $2, updated_at = now() WHERE id = $3`,
		lastRun, nextRun, id,
	)
	if err != nil {
		return fmt.Errorf("update schedule %s run times: %w", id, err)
	}
	return nil
}

// SetNextRun updates only the next-due timestamp, used when (re)arming a
// schedule.
func (s *ScheduleStore) SetNextRun(ctx context.Context, id string, nextRun time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE schedules SET next_run = $1, updated_at = now() WHERE id = $2`,
		nextRun, id,
	)
	if err != nil {
		return fmt.Errorf("set schedule %s next run: %w", id, err)
	}
	return nil
}

// Deactivate soft-deletes a schedule. The row stays so execution history
// keeps a valid reference.
func (s *ScheduleStore) Deactivate(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE schedules SET active = false, next_run = NULL, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate schedule %s: %w", id, err)
	}
	return nil
}

func (s *ScheduleStore) Activate(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE schedules SET active = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("activate schedule %s: %w", id, err)
	}
	return nil
}
