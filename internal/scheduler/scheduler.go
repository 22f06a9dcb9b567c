// Package scheduler arms one timer per active schedule and hands fired
// schedules to the execution engine, never running the same schedule against
// itself.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/store"
)

// Runner executes one schedule to a terminal state.
type Runner interface {
	Run(ctx context.Context, sched *model.Schedule) (*model.JobExecution, error)
}

type entry struct {
	schedule *model.Schedule
	timer    *time.Timer
	nextRun  time.Time
	// inFlight guards against overlapping runs for one schedule: a fire
	// while the previous run is active is skipped and re-armed.
	inFlight bool
}

// Scheduler is an explicit registry of schedule-to-timer mappings, keyed by
// schedule ID. All entry mutation happens under mu; runs execute outside it.
type Scheduler struct {
	runner    Runner
	schedules *store.ScheduleStore
	logger    zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	now func() time.Time
}

func New(runner Runner, schedules *store.ScheduleStore, logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:    runner,
		schedules: schedules,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		entries:   make(map[string]*entry),
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
}

// Start loads every active schedule and arms its timer.
func (s *Scheduler) Start(ctx context.Context) error {
	active, err := s.schedules.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load active schedules: %w", err)
	}
	for i := range active {
		if err := s.Upsert(ctx, &active[i]); err != nil {
			return err
		}
	}
	s.logger.Info().Int("schedules", len(active)).Msg("scheduler started")
	return nil
}

// Upsert installs or replaces the timer for a schedule. An edit cancels only
// the pending timer; an in-flight run completes untouched. An inactive
// schedule is removed.
func (s *Scheduler) Upsert(ctx context.Context, sched *model.Schedule) error {
	if !sched.Active {
		s.Remove(sched.ID)
		return nil
	}

	next, err := s.upcoming(sched)
	if err != nil {
		return err
	}
	if err := s.schedules.SetNextRun(ctx, sched.ID, next); err != nil {
		return err
	}
	sched.NextRun = &next

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sched.ID]
	if ok {
		e.timer.Stop()
		e.schedule = sched
	} else {
		e = &entry{schedule: sched}
		s.entries[sched.ID] = e
	}
	s.armLocked(e, next)

	s.logger.Info().
		Str("schedule_id", sched.ID).
		Time("next_run", next).
		Msg("schedule armed")
	return nil
}

// Remove cancels the pending timer without touching run history. An
// in-flight run completes to its terminal state.
func (s *Scheduler) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.timer.Stop()
		delete(s.entries, id)
		s.logger.Info().Str("schedule_id", id).Msg("schedule removed")
	}
}

// Stop cancels all pending timers and waits for in-flight runs to reach
// their terminal state.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.cancel()
	s.logger.Info().Msg("scheduler stopped")
}

// upcoming prefers a stored future next_run (a restart must not reshuffle
// fire times) and computes one otherwise.
func (s *Scheduler) upcoming(sched *model.Schedule) (time.Time, error) {
	if sched.NextRun != nil && sched.NextRun.After(s.now()) {
		return *sched.NextRun, nil
	}
	return NextRun(sched, s.now())
}

// armLocked (re)arms the entry's timer for the given instant. Callers hold mu.
func (s *Scheduler) armLocked(e *entry, next time.Time) {
	e.nextRun = next
	id := e.schedule.ID
	delay := next.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	e.timer = time.AfterFunc(delay, func() { s.fire(id) })
}

// fire runs the schedule unless its previous run is still in flight, in
// which case the fire is coalesced: skipped, with the timer re-armed for the
// next occurrence.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	if e.inFlight {
		next, err := NextRun(e.schedule, s.now())
		if err != nil {
			s.mu.Unlock()
			s.logger.Error().Err(err).Str("schedule_id", id).Msg("re-arm after coalesced fire")
			return
		}
		s.armLocked(e, next)
		s.mu.Unlock()
		s.logger.Warn().
			Str("schedule_id", id).
			Time("next_run", next).
			Msg("previous run still in flight, fire coalesced")
		return
	}
	e.inFlight = true
	sched := e.schedule
	// Add under the lock so Stop cannot pass wg.Wait between the in-flight
	// check and the goroutine launch.
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runOnce(sched)
}

func (s *Scheduler) runOnce(sched *model.Schedule) {
	defer s.wg.Done()

	if _, err := s.runner.Run(s.ctx, sched); err != nil {
		s.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("scheduled run failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sched.ID]
	if !ok {
		// Deactivated or removed mid-run; the run completed, nothing to
		// re-arm.
		return
	}
	e.inFlight = false
	if e.schedule != sched {
		// Edited mid-run: Upsert already installed the new timing, which
		// must not be clobbered with one derived from the stale schedule.
		return
	}

	// On success the engine stored the recomputed next_run on the schedule;
	// after a failure compute one here so the schedule keeps firing.
	next := time.Time{}
	if sched.NextRun != nil && sched.NextRun.After(s.now()) {
		next = *sched.NextRun
	} else {
		computed, err := NextRun(sched, s.now())
		if err != nil {
			s.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("re-arm after run")
			return
		}
		next = computed
		if err := s.schedules.SetNextRun(s.ctx, sched.ID, next); err != nil {
			s.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("persist next_run after failed run")
		}
	}
	s.armLocked(e, next)
}
