package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feedline/feedline/internal/api/request"
	"github.com/feedline/feedline/internal/api/response"
	"github.com/feedline/feedline/internal/store"
)

type Execution struct {
	stores *store.Stores
}

func NewExecution(stores *store.Stores) *Execution {
	return &Execution{stores: stores}
}

// ListBySchedule returns the run history of a schedule, newest first.
func (h *Execution) ListBySchedule(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := request.RequireID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.stores.Schedules.GetByID(r.Context(), scheduleID); err != nil {
		writeLookupError(w, err)
		return
	}
	pg := request.ParsePagination(r)

	executions, hasMore, err := h.stores.Executions.ListBySchedule(r.Context(), scheduleID, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(executions) > 0 {
		nextCursor = executions[len(executions)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, executions, nextCursor, hasMore)
}

func (h *Execution) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "executionID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	exec, err := h.stores.Executions.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, exec)
}
