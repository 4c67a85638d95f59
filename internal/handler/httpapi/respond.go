package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/devconnect/realtime-service/internal/service"
	"github.com/devconnect/realtime-service/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondError maps domain errors onto HTTP statuses. Unknown errors are
// logged and reported generically.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var status int
	var msg string

	switch {
	case errors.Is(err, service.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrForbidden):
		status, msg = http.StatusForbidden, "not allowed"
	case errors.Is(err, service.ErrBanned):
		status, msg = http.StatusForbidden, "account banned"
	case errors.Is(err, service.ErrMuted):
		status, msg = http.StatusForbidden, "you are muted"
	case errors.Is(err, store.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, store.ErrAlreadyLiked), errors.Is(err, store.ErrNotLiked):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, store.ErrUnavailable):
		status, msg = http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		logger.Error("request failed", "error", err)
		status, msg = http.StatusInternalServerError, "internal error"
	}

	respondJSON(w, status, errorBody{Error: msg})
}
