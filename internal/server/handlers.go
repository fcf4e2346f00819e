package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/spigell/fit-check/internal/closet"
	"github.com/spigell/fit-check/internal/fitcheck"
	"github.com/spigell/fit-check/internal/vibe"
)

type captureRequest struct {
	Image string `json:"image" validate:"required"`
}

type ratingRequest struct {
	Image string `json:"image"`
}

type rubricRequest struct {
	StyleDescription string `json:"styleDescription" validate:"required,max=2000"`
}

type customVibeRequest struct {
	ID          string         `json:"id" validate:"omitempty,max=120"`
	Name        string         `json:"name" validate:"required,max=80"`
	Description string         `json:"description" validate:"max=2000"`
	Rubric      *closet.Rubric `json:"rubric" validate:"required"`
}

type stylesResponse struct {
	Styles []vibe.Style `json:"styles"`
}

type captureResponse struct {
	SessionID string `json:"session_id"`
	MIMEType  string `json:"mime_type"`
	Bytes     int    `json:"bytes"`
}

type rubricResponse struct {
	Success bool           `json:"success"`
	Rubric  *closet.Rubric `json:"rubric"`
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
	case allowEmpty && errors.Is(err, io.EOF):
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		s.errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " is too long"
	default:
		return field + " is invalid"
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStyles(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, stylesResponse{Styles: s.svc.Catalog().Styles()})
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	img, err := s.svc.SaveCapture(r.Context(), sessionID(r), req.Image)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, captureResponse{
		SessionID: sessionID(r),
		MIMEType:  img.MIMEType,
		Bytes:     len(img.Data),
	})
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !s.decode(w, r, &req, true) {
		return
	}

	rating, err := s.svc.Rate(r.Context(), sessionID(r), userID(r), chi.URLParam(r, "styleId"), req.Image)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rating)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Suggest(r.Context(), sessionID(r), userID(r), chi.URLParam(r, "styleId"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleGenerateRubric(w http.ResponseWriter, r *http.Request) {
	var req rubricRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	rubric, err := s.svc.GenerateRubric(r.Context(), req.StyleDescription)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rubricResponse{Success: true, Rubric: rubric})
}

func (s *Server) handleListCustomVibes(w http.ResponseWriter, r *http.Request) {
	vibes, err := s.svc.ListCustomVibes(r.Context(), userID(r))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"vibes": vibes})
}

func (s *Server) handleCreateCustomVibe(w http.ResponseWriter, r *http.Request) {
	var req customVibeRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	v, err := s.svc.CreateCustomVibe(r.Context(), userID(r), fitcheck.CustomVibeInput{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Rubric:      req.Rubric,
	})
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, v)
}

func (s *Server) handleGetCustomVibe(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.GetCustomVibe(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, v)
}

func (s *Server) handleDeleteCustomVibe(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCustomVibe(r.Context(), userID(r), r.URL.Query().Get("id")); err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}
