// Package engine runs one export job through its stages, persisting every
// status transition so a run can be observed mid-flight.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/pipeline"
	"github.com/feedline/feedline/internal/platform"
	"github.com/feedline/feedline/internal/scheduler"
	"github.com/feedline/feedline/internal/store"
)

// RunObserver receives the outcome of every finished run. A nil observer is
// allowed.
type RunObserver interface {
	ObserveRun(status string, duration time.Duration)
}

// Engine drives the job execution state machine:
// PENDING → STARTED → EXTRACTING → VALIDATING → TRANSFORMING → FORMATTING →
// UPLOADING → COMPLETED, with any stage exiting to FAILED. Each transition
// is persisted before the stage runs.
type Engine struct {
	stores   *store.Stores
	pipeline *pipeline.Pipeline
	observer RunObserver
	logger   zerolog.Logger

	now func() time.Time
}

func New(stores *store.Stores, pipe *pipeline.Pipeline, observer RunObserver, logger zerolog.Logger) *Engine {
	return &Engine{
		stores:   stores,
		pipeline: pipe,
		observer: observer,
		logger:   logger.With().Str("component", "engine").Logger(),
		now:      time.Now,
	}
}

// Run executes the schedule once. The returned execution is terminal:
// COMPLETED, or FAILED with the causing error also returned so the caller
// can apply its own failure policy.
func (e *Engine) Run(ctx context.Context, sched *model.Schedule) (*model.JobExecution, error) {
	startedAt := e.now()
	exec := &model.JobExecution{
		ID:         platform.NewName("run_"),
		ScheduleID: sched.ID,
		Status:     model.ExecutionPending,
		StartedAt:  startedAt,
	}
	if err := e.stores.Executions.Create(ctx, exec); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}

	logger := e.logger.With().
		Str("schedule_id", sched.ID).
		Str("execution_id", exec.ID).
		Logger()

	data, out, err := e.runStages(ctx, sched, exec, logger)
	if err != nil {
		e.fail(ctx, exec, err, logger)
		return exec, err
	}

	completedAt := e.now()
	message := fmt.Sprintf("uploaded %s (%d records, %d bytes)", out.Path, data.RecordCount(), out.Size)
	if err := e.complete(ctx, exec, model.ExecutionCompleted, message, nil, completedAt); err != nil {
		return exec, err
	}

	if err := e.advanceSchedule(ctx, sched, completedAt); err != nil {
		logger.Error().Err(err).Msg("advance schedule after successful run")
		return exec, err
	}

	e.observe(model.ExecutionCompleted, completedAt.Sub(startedAt))
	logger.Info().
		Str("output", out.Path).
		Int("records", data.RecordCount()).
		Dur("duration", completedAt.Sub(startedAt)).
		Msg("run completed")
	return exec, nil
}

func (e *Engine) runStages(ctx context.Context, sched *model.Schedule, exec *model.JobExecution, logger zerolog.Logger) (pipeline.DataSet, *pipeline.Output, error) {
	if err := e.transition(ctx, exec, model.ExecutionStarted, "run started"); err != nil {
		return nil, nil, err
	}

	src, err := e.stores.Sources.GetByID(ctx, sched.SourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("load source: %w", err)
	}
	dst, err := e.stores.Destinations.GetByID(ctx, sched.DestinationID)
	if err != nil {
		return nil, nil, fmt.Errorf("load destination: %w", err)
	}
	var transformation *model.Transformation
	if sched.TransformationID != nil {
		transformation, err = e.stores.Transformations.GetByID(ctx, *sched.TransformationID)
		if err != nil {
			return nil, nil, fmt.Errorf("load transformation: %w", err)
		}
	}

	if err := e.transition(ctx, exec, model.ExecutionExtracting, fmt.Sprintf("extracting %d endpoint(s) from %s", len(src.Endpoints), src.Name)); err != nil {
		return nil, nil, err
	}
	data, err := e.pipeline.Extract(ctx, src)
	if err != nil {
		return nil, nil, err
	}

	if err := e.transition(ctx, exec, model.ExecutionValidating, fmt.Sprintf("validating %d record(s)", data.RecordCount())); err != nil {
		return nil, nil, err
	}
	if err := e.pipeline.Validate(data, pipeline.RulesForEndpoints(src.Endpoints)); err != nil {
		return nil, nil, err
	}

	if err := e.transition(ctx, exec, model.ExecutionTransforming, transformMessage(transformation)); err != nil {
		return nil, nil, err
	}
	data, err = e.pipeline.Transform(data, transformation)
	if err != nil {
		return nil, nil, err
	}

	if err := e.transition(ctx, exec, model.ExecutionFormatting, fmt.Sprintf("formatting as %s", dst.FileFormat)); err != nil {
		return nil, nil, err
	}
	out, err := e.pipeline.Format(data, dst.FileFormat, e.baseName(src, exec))
	if err != nil {
		return nil, nil, err
	}

	if err := e.transition(ctx, exec, model.ExecutionUploading, fmt.Sprintf("uploading %s to %s", out.Path, dst.Name)); err != nil {
		return nil, nil, err
	}
	if err := e.pipeline.Upload(ctx, out, dst); err != nil {
		return nil, nil, err
	}

	return data, out, nil
}

// advanceSchedule sets last_run to the completed run and recomputes
// next_run so the scheduler can re-arm from the stored value.
func (e *Engine) advanceSchedule(ctx context.Context, sched *model.Schedule, completedAt time.Time) error {
	next, err := scheduler.NextRun(sched, completedAt)
	if err != nil {
		return fmt.Errorf("recompute next run: %w", err)
	}
	if err := e.stores.Schedules.UpdateRunTimes(ctx, sched.ID, completedAt, next); err != nil {
		return err
	}
	sched.LastRun = &completedAt
	sched.NextRun = &next
	return nil
}

func (e *Engine) transition(ctx context.Context, exec *model.JobExecution, status, message string) error {
	if err := e.stores.Executions.UpdateStatus(ctx, exec.ID, status, &message); err != nil {
		return fmt.Errorf("persist %s transition: %w", status, err)
	}
	exec.Status = status
	exec.Message = &message
	return nil
}

func (e *Engine) fail(ctx context.Context, exec *model.JobExecution, cause error, logger zerolog.Logger) {
	completedAt := e.now()
	message := cause.Error()
	detail := errorDetail(cause)
	if err := e.complete(ctx, exec, model.ExecutionFailed, message, detail, completedAt); err != nil {
		logger.Error().Err(err).Msg("persist failed execution")
	}
	e.observe(model.ExecutionFailed, completedAt.Sub(exec.StartedAt))
	logger.Error().Err(cause).Str("stage", exec.Status).Msg("run failed")
}

func (e *Engine) complete(ctx context.Context, exec *model.JobExecution, status, message string, detail *string, completedAt time.Time) error {
	if err := e.stores.Executions.Complete(ctx, exec.ID, status, &message, detail, completedAt); err != nil {
		return fmt.Errorf("persist terminal %s: %w", status, err)
	}
	exec.Status = status
	exec.Message = &message
	exec.ErrorDetail = detail
	exec.CompletedAt = &completedAt
	return nil
}

func (e *Engine) observe(status string, duration time.Duration) {
	if e.observer != nil {
		e.observer.ObserveRun(status, duration)
	}
}

func (e *Engine) baseName(src *model.Source, exec *model.JobExecution) string {
	return fmt.Sprintf("%s-%s", platform.Slug(src.Name), exec.StartedAt.Format("20060102-150405"))
}

func transformMessage(t *model.Transformation) string {
	if t == nil {
		return "no transformation configured, passing through"
	}
	return fmt.Sprintf("applying %d operation(s) from %s", len(t.Operations), t.Name)
}

// errorDetail serializes the violation list for validation failures so the
// execution record carries every violation, not only the first.
func errorDetail(cause error) *string {
	var vErr *pipeline.ValidationError
	if !errors.As(cause, &vErr) {
		return nil
	}
	detail := make([]string, len(vErr.Violations))
	for i, v := range vErr.Violations {
		detail[i] = v.String()
	}
	joined := "[" + strings.Join(detail, "; ") + "]"
	return &joined
}
