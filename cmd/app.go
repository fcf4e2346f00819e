package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/ai"
	"github.com/spigell/fit-check/internal/ai/gemini"
	"github.com/spigell/fit-check/internal/fitcheck"
	"github.com/spigell/fit-check/internal/logger"
	"github.com/spigell/fit-check/internal/secrets"
	"github.com/spigell/fit-check/internal/session"
	"github.com/spigell/fit-check/internal/store"
	"github.com/spigell/fit-check/internal/vibe"
)

var errAIDisabled = errors.New("no gemini api key configured")

// application bundles everything a command needs.
type application struct {
	config   *Config
	logger   *zap.Logger
	catalog  *vibe.Catalog
	store    store.Store
	sessions session.Store
	svc      *fitcheck.Service
}

func newLogger() *zap.Logger {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		panic(err)
	}
	return log
}

// setup loads the configuration and opens storage. AI backed features are
// disabled with a warning when no key is configured.
func setup(ctx context.Context, log *zap.Logger) (*application, error) {
	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}
	if config == nil {
		return nil, errors.New("config is required")
	}

	catalog, err := vibe.Load(config.VibesFile)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, config.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	sessions, err := session.Open(ctx, config.Session)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	deps := fitcheck.Deps{
		Catalog:  catalog,
		Store:    st,
		Sessions: sessions,
		Logger:   log,
	}

	rater, rubrics, err := newAI(ctx, config.AI, log)
	switch {
	case errors.Is(err, errAIDisabled):
		log.Warn("rating and rubric generation are disabled", zap.Error(err))
	case err != nil:
		sessions.Close() //nolint:errcheck
		st.Close()       //nolint:errcheck
		return nil, fmt.Errorf("building ai backend: %w", err)
	default:
		deps.Rater = rater
		deps.Rubrics = rubrics
	}

	svc, err := fitcheck.New(deps)
	if err != nil {
		sessions.Close() //nolint:errcheck
		st.Close()       //nolint:errcheck
		return nil, err
	}

	log.Debug("application ready",
		zap.String("store", config.Store.Driver),
		zap.String("session", config.Session.Driver),
		zap.Int("styles", len(catalog.Styles())),
	)

	return &application{
		config:   config,
		logger:   log,
		catalog:  catalog,
		store:    st,
		sessions: sessions,
		svc:      svc,
	}, nil
}

func (a *application) Close() {
	if err := a.sessions.Close(); err != nil {
		a.logger.Warn("closing session store", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func newAI(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Rater, ai.RubricGenerator, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, nil, errAIDisabled
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if strings.TrimSpace(cfg.Gemini.APIKey) == "" && strings.TrimSpace(cfg.Gemini.APIKeyFile) == "" {
		return nil, nil, errAIDisabled
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	genLogger := logger.WithCommonFields(log, "gemini", cfg.Gemini.Model).
		With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, nil, err
	}

	rater := gemini.NewRater(generator, cfg.Gemini.MaxLogLength, genLogger)
	rubrics := gemini.NewRubricGenerator(generator, cfg.Gemini.MaxLogLength, genLogger)
	return rater, rubrics, nil
}

func jwtSecret(cfg *AuthConfig) (string, error) {
	if cfg == nil {
		return "", nil
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" && strings.TrimSpace(cfg.JWTSecretFile) == "" {
		return "", nil
	}
	return secrets.Load(secrets.Source{
		Name:  "jwt secret",
		File:  cfg.JWTSecretFile,
		Value: cfg.JWTSecret,
	})
}
