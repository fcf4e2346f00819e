package fitcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/closet"
	"github.com/spigell/fit-check/internal/store"
	"github.com/spigell/fit-check/internal/vibe"
)

// ErrVibeNotFound is returned when a user has no vibe with the given id.
var ErrVibeNotFound = errors.New("custom vibe not found")

// CustomVibeInput is what a user submits to save a vibe. An empty ID is
// derived from the name.
type CustomVibeInput struct {
	ID          string
	Name        string
	Description string
	Rubric      *closet.Rubric
}

// GenerateRubric asks the AI backend for a rubric matching the description.
func (s *Service) GenerateRubric(ctx context.Context, description string) (*closet.Rubric, error) {
	if s.rubrics == nil {
		return nil, fmt.Errorf("%w: rubric generation needs an AI backend", ErrNotConfigured)
	}
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: style description is required", ErrInvalidInput)
	}

	rubric, err := s.rubrics.GenerateRubric(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("generate rubric: %w", err)
	}
	return rubric, nil
}

func (s *Service) CreateCustomVibe(ctx context.Context, userID string, in CustomVibeInput) (*store.CustomVibe, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Rubric == nil {
		return nil, fmt.Errorf("%w: rubric is required", ErrInvalidInput)
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = vibe.CustomID(name)
	}
	if !vibe.IsCustom(id) {
		return nil, fmt.Errorf("%w: custom vibe id must start with %q", ErrInvalidInput, vibe.CustomID(""))
	}

	v := &store.CustomVibe{
		ID:          id,
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Rubric:      *in.Rubric,
	}
	if err := s.store.UpsertCustomVibe(ctx, v); err != nil {
		return nil, fmt.Errorf("save custom vibe: %w", err)
	}

	s.log("", userID, nil).Info("custom vibe saved", zap.String("vibe_id", v.ID))
	return v, nil
}

func (s *Service) ListCustomVibes(ctx context.Context, userID string) ([]store.CustomVibe, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	vibes, err := s.store.ListCustomVibes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list custom vibes: %w", err)
	}
	return vibes, nil
}

func (s *Service) GetCustomVibe(ctx context.Context, userID, id string) (*store.CustomVibe, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	v, err := s.store.GetCustomVibe(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrVibeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get custom vibe: %w", err)
	}
	return v, nil
}

func (s *Service) DeleteCustomVibe(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if err := s.store.DeleteCustomVibe(ctx, userID, id); err != nil {
		return fmt.Errorf("delete custom vibe: %w", err)
	}
	s.log("", userID, nil).Info("custom vibe deleted", zap.String("vibe_id", id))
	return nil
}
