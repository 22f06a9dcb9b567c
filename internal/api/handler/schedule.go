package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/api/request"
	"github.com/feedline/feedline/internal/api/response"
	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/platform"
	"github.com/feedline/feedline/internal/store"
)

// JobScheduler arms and disarms timers for schedules. *scheduler.Scheduler
// satisfies it.
type JobScheduler interface {
	Upsert(ctx context.Context, sched *model.Schedule) error
	Remove(id string)
}

// Runner executes a schedule once. *engine.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, sched *model.Schedule) (*model.JobExecution, error)
}

type Schedule struct {
	stores    *store.Stores
	scheduler JobScheduler
	runner    Runner
	logger    zerolog.Logger
}

func NewSchedule(stores *store.Stores, scheduler JobScheduler, runner Runner, logger zerolog.Logger) *Schedule {
	return &Schedule{stores: stores, scheduler: scheduler, runner: runner, logger: logger}
}

func (h *Schedule) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := request.ValidateCadence(req.Frequency, req.DayOfWeek, req.DayOfMonth); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.checkReferences(r.Context(), req.SourceID, req.DestinationID, req.TransformationID); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	sched := &model.Schedule{
		ID:               platform.NewName("sch_"),
		UserID:           req.UserID,
		SourceID:         req.SourceID,
		TransformationID: req.TransformationID,
		DestinationID:    req.DestinationID,
		Frequency:        req.Frequency,
		TimeOfDay:        req.TimeOfDay,
		DayOfWeek:        req.DayOfWeek,
		DayOfMonth:       req.DayOfMonth,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.stores.Schedules.Create(r.Context(), sched); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.scheduler.Upsert(r.Context(), sched); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusCreated, sched)
}

func (h *Schedule) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sched, err := h.stores.Schedules.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sched)
}

func (h *Schedule) List(w http.ResponseWriter, r *http.Request) {
	userID, err := request.RequireQuery(r, "user_id")
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	pg := request.ParsePagination(r)

	schedules, hasMore, err := h.stores.Schedules.ListByUser(r.Context(), userID, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(schedules) > 0 {
		nextCursor = schedules[len(schedules)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, schedules, nextCursor, hasMore)
}

func (h *Schedule) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req request.UpdateSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.stores.Schedules.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	if req.TransformationID != nil {
		if err := h.checkReferences(r.Context(), sched.SourceID, sched.DestinationID, req.TransformationID); err != nil {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		sched.TransformationID = req.TransformationID
	}
	if req.Frequency != nil {
		sched.Frequency = *req.Frequency
	}
	if req.TimeOfDay != nil {
		sched.TimeOfDay = *req.TimeOfDay
	}
	if req.DayOfWeek != nil {
		sched.DayOfWeek = req.DayOfWeek
	}
	if req.DayOfMonth != nil {
		sched.DayOfMonth = req.DayOfMonth
	}
	if err := request.ValidateCadence(sched.Frequency, sched.DayOfWeek, sched.DayOfMonth); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sched.UpdatedAt = time.Now()

	if err := h.stores.Schedules.Update(r.Context(), sched); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Re-arm the timer on the new cadence. An in-flight run is untouched.
	if err := h.scheduler.Upsert(r.Context(), sched); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, sched)
}

func (h *Schedule) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Schedule) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Schedule) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := request.RequireID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sched, err := h.stores.Schedules.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	if active {
		err = h.stores.Schedules.Activate(r.Context(), id)
	} else {
		err = h.stores.Schedules.Deactivate(r.Context(), id)
	}
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sched.Active = active
	if err := h.scheduler.Upsert(r.Context(), sched); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, sched)
}

// Run triggers the schedule immediately, outside its cadence. The run is
// asynchronous; its progress is observable through the execution list.
func (h *Schedule) Run(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sched, err := h.stores.Schedules.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	// Detach from the request: the run outlives the HTTP exchange.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := h.runner.Run(ctx, sched); err != nil {
			h.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("manual run failed")
		}
	}()

	response.WriteJSON(w, http.StatusAccepted, map[string]string{
		"schedule_id": sched.ID,
		"status":      "accepted",
	})
}

func (h *Schedule) checkReferences(ctx context.Context, sourceID, destinationID string, transformationID *string) error {
	if _, err := h.stores.Sources.GetByID(ctx, sourceID); err != nil {
		return fmt.Errorf("unknown source %s", sourceID)
	}
	if _, err := h.stores.Destinations.GetByID(ctx, destinationID); err != nil {
		return fmt.Errorf("unknown destination %s", destinationID)
	}
	if transformationID != nil {
		if _, err := h.stores.Transformations.GetByID(ctx, *transformationID); err != nil {
			return fmt.Errorf("unknown transformation %s", *transformationID)
		}
	}
	return nil
}
