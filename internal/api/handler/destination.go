package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/api/request"
	"github.com/feedline/feedline/internal/api/response"
	"github.com/feedline/feedline/internal/crypto"
	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/platform"
	"github.com/feedline/feedline/internal/store"
)

type Destination struct {
	stores       *store.Stores
	masterSecret string
	logger       zerolog.Logger
}

func NewDestination(stores *store.Stores, masterSecret string, logger zerolog.Logger) *Destination {
	return &Destination{stores: stores, masterSecret: masterSecret, logger: logger}
}

func (h *Destination) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateDestination
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	dst := &model.Destination{
		ID:           platform.NewName("dst_"),
		UserID:       req.UserID,
		Name:         req.Name,
		Type:         req.Type,
		FileFormat:   req.FileFormat,
		Provider:     req.Provider,
		PublicConfig: req.PublicConfig,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if dst.PublicConfig == nil {
		dst.PublicConfig = map[string]string{}
	}

	if dst.RequiresOAuth() {
		if dst.Provider == "" {
			response.WriteError(w, http.StatusBadRequest, "provider is required for OAuth destinations")
			return
		}
		// Tokens arrive later through the authorization flow.
		dst.CredentialState = model.CredentialUnauthorized
	} else {
		if req.Secret == "" {
			response.WriteError(w, http.StatusBadRequest, "secret is required for SFTP and S3 destinations")
			return
		}
		dst.CredentialState = model.CredentialAuthorized
	}

	if req.Secret != "" {
		blob, err := crypto.Encrypt([]byte(req.Secret), h.masterSecret)
		if err != nil {
			response.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dst.EncryptedClientSecret = &blob
	}

	if err := h.stores.Destinations.Create(r.Context(), dst); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	audit := &model.CredentialAudit{
		ID:            platform.NewID(),
		DestinationID: dst.ID,
		UserID:        dst.UserID,
		Action:        "create",
		Detail: map[string]string{
			"type":   dst.Type,
			"secret": model.Redacted,
		},
		CreatedAt: now,
	}
	if err := h.stores.Audits.Append(r.Context(), audit); err != nil {
		h.logger.Error().Err(err).Str("destination_id", dst.ID).Msg("audit append failed")
	}

	response.WriteJSON(w, http.StatusCreated, dst)
}

func (h *Destination) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "destinationID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	dst, err := h.stores.Destinations.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, dst)
}

func (h *Destination) List(w http.ResponseWriter, r *http.Request) {
	userID, err := request.RequireQuery(r, "user_id")
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	pg := request.ParsePagination(r)

	destinations, hasMore, err := h.stores.Destinations.ListByUser(r.Context(), userID, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(destinations) > 0 {
		nextCursor = destinations[len(destinations)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, destinations, nextCursor, hasMore)
}

func (h *Destination) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "destinationID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req request.UpdateDestination
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	dst, err := h.stores.Destinations.GetByID(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	if req.Name != nil {
		dst.Name = *req.Name
	}
	if req.FileFormat != nil {
		dst.FileFormat = *req.FileFormat
	}
	if req.PublicConfig != nil {
		dst.PublicConfig = *req.PublicConfig
	}
	dst.UpdatedAt = time.Now()

	if err := h.stores.Destinations.Update(r.Context(), dst); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, dst)
}

func (h *Destination) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "destinationID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.stores.Destinations.Delete(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Audits lists the credential audit trail for a destination.
func (h *Destination) Audits(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "destinationID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.stores.Destinations.GetByID(r.Context(), id); err != nil {
		writeLookupError(w, err)
		return
	}
	pg := request.ParsePagination(r)

	audits, hasMore, err := h.stores.Audits.ListByDestination(r.Context(), id, pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(audits) > 0 {
		nextCursor = audits[len(audits)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, audits, nextCursor, hasMore)
}
