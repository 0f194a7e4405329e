package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/auth"
	"github.com/shivamksharma/devdonations/pkg/core/services"
	"github.com/shivamksharma/devdonations/pkg/core/status"
	"github.com/shivamksharma/devdonations/pkg/db"
)

const maxJSONBody = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a JSON request body into dest
func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// errorStatus maps a service error to an HTTP status
func errorStatus(err error) int {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound), errors.Is(err, services.ErrUnknownCollection):
		return http.StatusNotFound
	case errors.Is(err, status.ErrInvalidTransition),
		errors.Is(err, services.ErrVolunteerUnavailable),
		errors.Is(err, services.ErrSlugTaken):
		return http.StatusConflict
	case errors.Is(err, status.ErrUnknownStatus),
		errors.Is(err, db.ErrFieldNotUpdatable),
		errors.Is(err, services.ErrStatusNotPatchable):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidState),
		errors.Is(err, auth.ErrUnverifiedEmail):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrMediaDisabled), errors.Is(err, auth.ErrProviderDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondServiceError writes err with its mapped status. Internal errors are
// logged and reported without detail.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorStatus(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, code, "Something went wrong, please try again")
		return
	}

	var verr *services.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, code, map[string]interface{}{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
		return
	}
	respondError(w, code, err.Error())
}
