package fitcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/ai"
	"github.com/spigell/fit-check/internal/session"
)

// SaveCapture validates the photo and keeps it for the session so the rating
// step can run without uploading it again.
func (s *Service) SaveCapture(ctx context.Context, sessionID, encoded string) (*ai.Image, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: missing session", ErrInvalidInput)
	}

	img, err := ai.ParseImage(encoded)
	if errors.Is(err, ai.ErrEmptyImage) {
		return nil, ErrMissingCapture
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.sessions.Set(ctx, sessionID, session.KeyCapture, []byte(img.DataURL())); err != nil {
		return nil, fmt.Errorf("save capture: %w", err)
	}

	s.log(sessionID, "", nil).Debug("capture saved",
		zap.String("image_mime", img.MIMEType),
		zap.Int("image_bytes", len(img.Data)),
	)
	return img, nil
}

// Rate scores a photo against the style rubric. An empty image falls back to
// the session capture. The result is remembered for the suggestions step.
func (s *Service) Rate(ctx context.Context, sessionID, userID, styleID, encoded string) (*ai.Rating, error) {
	if s.rater == nil {
		return nil, fmt.Errorf("%w: rating needs an AI backend", ErrNotConfigured)
	}

	resolved, err := s.ResolveRubric(ctx, userID, styleID)
	if err != nil {
		return nil, err
	}

	img, err := s.loadImage(ctx, sessionID, encoded)
	if err != nil {
		return nil, err
	}

	log := s.log(sessionID, userID, resolved)
	log.Info("rating outfit")

	rating, err := s.rater.Rate(ctx, ai.RatingRequest{
		Style:  resolved.Style,
		Rubric: resolved.Rubric,
		Image:  img,
	})
	if err != nil {
		return nil, fmt.Errorf("rate outfit: %w", err)
	}

	if sessionID != "" {
		if err := session.SetJSON(ctx, s.sessions, sessionID, session.KeyRating, rating); err != nil {
			return nil, fmt.Errorf("store rating: %w", err)
		}
	}

	log.Info("outfit rated",
		zap.Float64("match_score", rating.MatchScore),
		zap.String("detected_style", rating.DetectedStyle),
		zap.Bool("top_match", rating.TopMatch),
		zap.Bool("bottom_match", rating.BottomMatch),
	)
	return rating, nil
}

func (s *Service) loadImage(ctx context.Context, sessionID, encoded string) (*ai.Image, error) {
	if strings.TrimSpace(encoded) == "" {
		if sessionID == "" {
			return nil, ErrMissingCapture
		}
		raw, err := s.sessions.Get(ctx, sessionID, session.KeyCapture)
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrMissingCapture
		}
		if err != nil {
			return nil, fmt.Errorf("load capture: %w", err)
		}
		encoded = string(raw)
	}

	img, err := ai.ParseImage(encoded)
	if errors.Is(err, ai.ErrEmptyImage) {
		return nil, ErrMissingCapture
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return img, nil
}
