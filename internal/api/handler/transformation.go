package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/feedline/feedline/internal/api/request"
	"github.com/feedline/feedline/internal/api/response"
	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/platform"
	"github.com/feedline/feedline/internal/store"
)

type Transformation struct {
	stores *store.Stores
}

func NewTransformation(stores *store.Stores) *Transformation {
	return &Transformation{stores: stores}
}

func (h *Transformation) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateTransformation
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	tr := &model.Transformation{
		ID:         platform.NewName("trf_"),
		UserID:     req.UserID,
		Name:       req.Name,
		Operations: request.ModelOperations(req.Operations),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.stores.Transformations.Create(r.Context(), tr); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusCreated, tr)
}

func (h *Transformation) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "transformationID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	tr, err := h.stores.Transformations.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, tr)
}

func (h *Transformation) List(w http.ResponseWriter, r *http.Request) {
	userID, err := request.RequireQuery(r, "user_id")
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	pg := request.ParsePagination(r)

	transformations, hasMore, err := h.stores.Transformations.ListByUser(r.Context(), userID, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(transformations) > 0 {
		nextCursor = transformations[len(transformations)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, transformations, nextCursor, hasMore)
}

func (h *Transformation) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "transformationID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req request.UpdateTransformation
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tr, err := h.stores.Transformations.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	if req.Name != nil {
		tr.Name = *req.Name
	}
	if req.Operations != nil {
		tr.Operations = request.ModelOperations(req.Operations)
	}
	tr.UpdatedAt = time.Now()

	if err := h.stores.Transformations.Update(r.Context(), tr); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, tr)
}

func (h *Transformation) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "transformationID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.stores.Transformations.Delete(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
