package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feedline/feedline/internal/api/request"
	"github.com/feedline/feedline/internal/api/response"
	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/oauth"
)

// CredentialManager runs the OAuth credential lifecycle. *oauth.Manager
// satisfies it.
type CredentialManager interface {
	AuthorizationURL(ctx context.Context, userID, destinationID string) (string, error)
	HandleCallback(ctx context.Context, code, state string) error
	Refresh(ctx context.Context, destinationID string) (*model.Destination, error)
	Revoke(ctx context.Context, destinationID string) error
}

type OAuth struct {
	manager CredentialManager
}

func NewOAuth(manager CredentialManager) *OAuth {
	return &OAuth{manager: manager}
}

// Authorize starts the authorization flow and returns the provider URL the
// user must visit.
func (h *OAuth) Authorize(w http.ResponseWriter, r *http.Request) {
	destinationID, err := request.RequireID(chi.URLParam(r, "destinationID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := request.RequireQuery(r, "user_id")
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	url, err := h.manager.AuthorizationURL(r.Context(), userID, destinationID)
	if err != nil {
		writeOAuthError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"authorization_url": url})
}

// Callback receives the provider redirect and exchanges the code for
// tokens. One state value admits exactly one exchange.
func (h *OAuth) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		response.WriteError(w, http.StatusBadRequest, "authorization denied: "+errCode)
		return
	}
	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		response.WriteError(w, http.StatusBadRequest, "missing code or state")
		return
	}

	if err := h.manager.HandleCallback(r.Context(), code, state); err != nil {
		writeOAuthError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "authorized"})
}

// Refresh forces a token refresh regardless of expiry.
func (h *OAuth) Refresh(w http.ResponseWriter, r *http.Request) {
	destinationID, err := request.RequireID(chi.URLParam(r, "destinationID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	dst, err := h.manager.Refresh(r.Context(), destinationID)
	if err != nil {
		writeOAuthError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, dst)
}

// Revoke clears the stored tokens and marks the destination REVOKED.
func (h *OAuth) Revoke(w http.ResponseWriter, r *http.Request) {
	destinationID, err := request.RequireID(chi.URLParam(r, "destinationID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.manager.Revoke(r.Context(), destinationID); err != nil {
		writeOAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeOAuthError maps manager failures onto HTTP statuses: bad requests
// for configuration and state problems, 409 when reauthorization is
// required, 502 when the provider itself failed.
func writeOAuthError(w http.ResponseWriter, err error) {
	var (
		configErr   *oauth.ConfigError
		stateErr    *oauth.StateError
		tokenErr    *oauth.TokenError
		providerErr *oauth.ProviderError
	)
	switch {
	case errors.As(err, &configErr), errors.As(err, &stateErr):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tokenErr):
		response.WriteError(w, http.StatusConflict, err.Error())
	case errors.As(err, &providerErr):
		response.WriteError(w, http.StatusBadGateway, err.Error())
	default:
		writeLookupError(w, err)
	}
}
