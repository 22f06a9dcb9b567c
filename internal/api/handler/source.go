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

type Source struct {
	stores *store.Stores
}

func NewSource(stores *store.Stores) *Source {
	return &Source{stores: stores}
}

func (h *Source) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSource
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	src := &model.Source{
		ID:        platform.NewName("src_"),
		UserID:    req.UserID,
		Name:      req.Name,
		Type:      req.Type,
		BaseURL:   req.BaseURL,
		APIKey:    req.APIKey,
		Endpoints: req.Endpoints,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.stores.Sources.Create(r.Context(), src); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusCreated, src)
}

func (h *Source) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "sourceID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	src, err := h.stores.Sources.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, src)
}

func (h *Source) List(w http.ResponseWriter, r *http.Request) {
	userID, err := request.RequireQuery(r, "user_id")
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	pg := request.ParsePagination(r)

	sources, hasMore, err := h.stores.Sources.ListByUser(r.Context(), userID, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(sources) > 0 {
		nextCursor = sources[len(sources)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, sources, nextCursor, hasMore)
}

func (h *Source) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "sourceID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req request.UpdateSource
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	src, err := h.stores.Sources.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	if req.Name != nil {
		src.Name = *req.Name
	}
	if req.BaseURL != nil {
		src.BaseURL = *req.BaseURL
	}
	if req.APIKey != nil {
		src.APIKey = *req.APIKey
	}
	if req.Endpoints != nil {
		src.Endpoints = *req.Endpoints
	}
	src.UpdatedAt = time.Now()

	if err := h.stores.Sources.Update(r.Context(), src); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, src)
}

func (h *Source) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "sourceID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.stores.Sources.Delete(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
