package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"event-signup-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends body as JSON with statusCode
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// handleError maps service errors onto HTTP statuses. Unknown errors are
// logged and hidden behind a generic message.
func handleError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, models.ErrNotAuthenticated),
		errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrInvalidToken):
		respondError(w, err.Error(), http.StatusUnauthorized)

	case errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrProfileNotFound):
		respondError(w, err.Error(), http.StatusNotFound)

	case errors.Is(err, models.ErrAlreadyRegistered),
		errors.Is(err, models.ErrEventFull),
		errors.Is(err, models.ErrEventClosed):
		respondError(w, err.Error(), http.StatusConflict)

	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidGroup),
		errors.Is(err, models.ErrInvalidLoginToken):
		respondError(w, err.Error(), http.StatusBadRequest)

	default:
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(msg)
		respondError(w, msg, http.StatusInternalServerError)
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
