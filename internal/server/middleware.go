package server

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/logger"
)

const sessionHeader = "X-Session-ID"

var validSessionID = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// requestUser is filled in by authenticate, which runs further down the
// chain than accessLog.
type requestUser struct {
	id string
}

// accessLog writes one structured line per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		user := &requestUser{}

		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestUserKey, user)))

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		fields = append(fields, logger.RequestFields(sessionID(r), user.id)...)

		switch {
		case ww.Status() >= http.StatusInternalServerError:
			s.logger.Error("http request", fields...)
		case ww.Status() >= http.StatusBadRequest:
			s.logger.Warn("http request", fields...)
		default:
			s.logger.Debug("http request", fields...)
		}
	})
}

// withSession assigns a session id when the client did not send a usable one
// and echoes it back.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(sessionHeader)
		if !validSessionID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(sessionHeader, id)

		ctx := context.WithValue(r.Context(), sessionIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// limitLLM guards the endpoints that call the model with a token bucket.
func (s *Server) limitLLM(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.errorResponse(w, http.StatusTooManyRequests, "Too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDKey).(string)
	return id
}
