// Package server exposes the Fit Check service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/fit-check/internal/fitcheck"
	"github.com/spigell/fit-check/internal/logger"
)

const (
	defaultAddr     = ":8080"
	maxBodyBytes    = 12 << 20
	shutdownTimeout = 10 * time.Second
)

// Config controls the HTTP listener.
type Config struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed-origins"`
	// LLM requests per second across all clients. Zero disables the limit.
	RateLimit float64 `mapstructure:"rate-limit"`
	RateBurst int     `mapstructure:"rate-burst"`
}

type Server struct {
	cfg      Config
	svc      *fitcheck.Service
	auth     *JWTAuth
	limiter  *rate.Limiter
	validate *validator.Validate
	logger   *zap.Logger
	router   chi.Router
}

// New builds the router. auth may be nil, in which case custom vibe routes
// always answer 401.
func New(cfg Config, svc *fitcheck.Service, auth *JWTAuth, log *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}

	s := &Server{
		cfg:      cfg,
		svc:      svc,
		auth:     auth,
		validate: validator.New(),
		logger:   logger.OrNop(log).Named("http"),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", sessionHeader},
		ExposedHeaders: []string{sessionHeader},
		MaxAge:         300,
	}))
	r.Use(s.withSession)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(s.authenticate)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/styles", s.handleStyles)
		r.Post("/capture", s.handleCapture)
		r.With(s.limitLLM).Post("/rating/{styleId}", s.handleRating)
		r.Get("/suggestions/{styleId}", s.handleSuggestions)
		r.With(s.limitLLM).Post("/generate-rubric", s.handleGenerateRubric)

		r.Route("/custom-vibes", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/", s.handleListCustomVibes)
			r.Post("/", s.handleCreateCustomVibe)
			r.Delete("/", s.handleDeleteCustomVibe)
			r.Get("/{id}", s.handleGetCustomVibe)
		})
	})

	return r
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled and then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// rating calls wait on the model
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
