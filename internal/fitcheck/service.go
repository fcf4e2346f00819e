// Package fitcheck wires the closet ranker, the vibe catalog, storage and the
// AI rater into the operations exposed by the CLI and the HTTP API.
package fitcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/ai"
	"github.com/spigell/fit-check/internal/closet"
	"github.com/spigell/fit-check/internal/logger"
	"github.com/spigell/fit-check/internal/session"
	"github.com/spigell/fit-check/internal/store"
	"github.com/spigell/fit-check/internal/vibe"
)

var (
	ErrRubricNotFound  = errors.New("rubric not found")
	ErrMissingCapture  = errors.New("missing photo, please retake")
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotConfigured   = errors.New("feature is not configured")
)

// Deps are the collaborators of a Service. Rater and Rubrics may be nil when
// no AI backend is configured.
type Deps struct {
	Catalog  *vibe.Catalog
	Store    store.Store
	Sessions session.Store
	Rater    ai.Rater
	Rubrics  ai.RubricGenerator
	Logger   *zap.Logger
}

type Service struct {
	catalog  *vibe.Catalog
	store    store.Store
	sessions session.Store
	rater    ai.Rater
	rubrics  ai.RubricGenerator
	logger   *zap.Logger
}

func New(deps Deps) (*Service, error) {
	if deps.Catalog == nil {
		return nil, errors.New("vibe catalog is required")
	}
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session store is required")
	}

	return &Service{
		catalog:  deps.Catalog,
		store:    deps.Store,
		sessions: deps.Sessions,
		rater:    deps.Rater,
		rubrics:  deps.Rubrics,
		logger:   logger.OrNop(deps.Logger),
	}, nil
}

// Catalog returns the preset vibes.
func (s *Service) Catalog() *vibe.Catalog {
	return s.catalog
}

// Resolved is a style together with the rubric that defines it.
type Resolved struct {
	Style     ai.StyleTarget
	RubricKey string
	Rubric    *closet.Rubric
}

// ResolveRubric finds the rubric for a style id. Custom vibes live in the
// store and belong to a user, presets come from the catalog by normalized key.
func (s *Service) ResolveRubric(ctx context.Context, userID, styleID string) (*Resolved, error) {
	styleID = strings.TrimSpace(styleID)
	if styleID == "" {
		return nil, fmt.Errorf("%w: missing style", ErrInvalidInput)
	}

	key := vibe.NormalizeKey(styleID)

	if vibe.IsCustom(styleID) {
		if userID == "" {
			return nil, ErrUnauthenticated
		}
		v, err := s.store.GetCustomVibe(ctx, userID, styleID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: no rubric for %q", ErrRubricNotFound, styleID)
		}
		if err != nil {
			return nil, fmt.Errorf("load custom vibe %q: %w", styleID, err)
		}
		name := v.Name
		if name == "" {
			name = vibe.DisplayName(styleID)
		}
		rubric := v.Rubric
		return &Resolved{
			Style:     ai.StyleTarget{ID: styleID, Name: name, Description: v.Description},
			RubricKey: key,
			Rubric:    &rubric,
		}, nil
	}

	rubric, ok := s.catalog.Rubric(key)
	if !ok {
		return nil, fmt.Errorf("%w: no rubric for %q, expected key %q", ErrRubricNotFound, styleID, key)
	}

	target := ai.StyleTarget{ID: styleID, Name: vibe.DisplayName(styleID)}
	if style, ok := s.catalog.Style(styleID); ok {
		target.Name = style.Name
		target.Description = style.Description
	}

	return &Resolved{Style: target, RubricKey: key, Rubric: rubric}, nil
}

func (s *Service) log(sessionID, userID string, r *Resolved) *zap.Logger {
	l := logger.WithFields(s.logger, logger.RequestFields(sessionID, userID)...)
	if r != nil {
		l = logger.WithFields(l, logger.StyleFields(r.Style.ID, r.RubricKey)...)
	}
	return l
}
