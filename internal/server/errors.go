package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/ai"
	"github.com/spigell/fit-check/internal/fitcheck"
)

// httpStatus maps service errors to HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, fitcheck.ErrInvalidInput),
		errors.Is(err, fitcheck.ErrMissingCapture),
		errors.Is(err, ai.ErrEmptyImage):
		return http.StatusBadRequest
	case errors.Is(err, fitcheck.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, fitcheck.ErrRubricNotFound),
		errors.Is(err, fitcheck.ErrVibeNotFound):
		return http.StatusNotFound
	case errors.Is(err, fitcheck.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// serviceError answers with the status of err. Internal failures are logged
// and hidden from the client.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("session_id", sessionID(r)),
			zap.Error(err),
		)
		s.errorResponse(w, status, "Internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}
