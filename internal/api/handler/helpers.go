package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/feedline/feedline/internal/api/response"
)

// writeLookupError maps a store read failure to 404 when the row does not
// exist, 500 otherwise.
func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	response.WriteError(w, http.StatusInternalServerError, err.Error())
}
