package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/ender-tasks/internal/services"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes caps request bodies; task images travel inline as data URIs.
const maxBodyBytes = 8 << 20

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// WriteError writes an {"error": message} envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeServiceError maps service errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  verr.Summary(),
			"fields": verr.Fields,
		})
	case errors.Is(err, services.ErrDuplicateUser):
		WriteError(w, http.StatusBadRequest, "User already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		WriteError(w, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, services.ErrTaskNotFound):
		WriteError(w, http.StatusNotFound, "Task not found")
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		WriteError(w, http.StatusInternalServerError, "Server error")
	}
}
