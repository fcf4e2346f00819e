package fitcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/closet"
	"github.com/spigell/fit-check/internal/session"
	"github.com/spigell/fit-check/internal/store"
)

// Suggestions are the closet picks for a style.
type Suggestions struct {
	StyleID     string              `json:"style_id"`
	StyleName   string              `json:"style_name"`
	NeedTops    bool                `json:"need_tops"`
	NeedBottoms bool                `json:"need_bottoms"`
	Picks       []closet.RankedItem `json:"picks"`
	Outfits     []closet.Outfit     `json:"outfits"`
}

// NeedsFromRating decides which slots to suggest. Without a rating both are
// needed; a matching slot is skipped; a rating for another style counts for
// nothing.
func NeedsFromRating(raw []byte, styleID string) closet.Needs {
	needs := closet.Needs{Tops: true, Bottoms: true}
	if len(raw) == 0 {
		return needs
	}

	// Fields are read one by one so a malformed value only loses itself.
	var r map[string]any
	if err := json.Unmarshal(raw, &r); err != nil {
		return needs
	}

	if target, ok := r["target_style"].(string); ok && target != "" && target != styleID {
		return needs
	}
	if match, ok := r["top_match"].(bool); ok {
		needs.Tops = !match
	}
	if match, ok := r["bottom_match"].(bool); ok {
		needs.Bottoms = !match
	}
	return needs
}

// Suggest ranks the closet for a style and returns single picks for the
// slots still needed, plus outfits when both are needed.
func (s *Service) Suggest(ctx context.Context, sessionID, userID, styleID string) (*Suggestions, error) {
	resolved, err := s.ResolveRubric(ctx, userID, styleID)
	if err != nil {
		return nil, err
	}

	var rating []byte
	if sessionID != "" {
		rating, err = s.sessions.Get(ctx, sessionID, session.KeyRating)
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("load rating: %w", err)
		}
	}

	return s.suggest(ctx, resolved, NeedsFromRating(rating, resolved.Style.ID), s.log(sessionID, userID, resolved))
}

// SuggestFromItems ranks a caller supplied closet instead of the stored one.
func (s *Service) SuggestFromItems(ctx context.Context, userID, styleID string, items []closet.Item, needs closet.Needs) (*Suggestions, error) {
	resolved, err := s.ResolveRubric(ctx, userID, styleID)
	if err != nil {
		return nil, err
	}
	return compose(resolved, items, needs), nil
}

// SuggestFromStore ranks the stored closet with explicitly chosen slots,
// ignoring any session rating.
func (s *Service) SuggestFromStore(ctx context.Context, userID, styleID string, needs closet.Needs) (*Suggestions, error) {
	resolved, err := s.ResolveRubric(ctx, userID, styleID)
	if err != nil {
		return nil, err
	}
	return s.suggest(ctx, resolved, needs, s.log("", userID, resolved))
}

func (s *Service) suggest(ctx context.Context, resolved *Resolved, needs closet.Needs, log *zap.Logger) (*Suggestions, error) {
	if !needs.Tops && !needs.Bottoms {
		log.Debug("no closet suggestions needed")
		return compose(resolved, nil, needs), nil
	}

	items, err := store.FetchClosetItems(ctx, s.store, resolved.Style.ID)
	if err != nil {
		return nil, fmt.Errorf("load closet: %w", err)
	}

	result := compose(resolved, items, needs)
	log.Info("suggestions ready",
		zap.Int("items", len(items)),
		zap.Bool("need_tops", needs.Tops),
		zap.Bool("need_bottoms", needs.Bottoms),
		zap.Int("picks", len(result.Picks)),
		zap.Int("outfits", len(result.Outfits)),
	)
	return result, nil
}

func compose(resolved *Resolved, items []closet.Item, needs closet.Needs) *Suggestions {
	tops, bottoms := closet.SplitBySlot(closet.RankItems(items, resolved.Rubric))

	result := &Suggestions{
		StyleID:     resolved.Style.ID,
		StyleName:   resolved.Style.Name,
		NeedTops:    needs.Tops,
		NeedBottoms: needs.Bottoms,
		Picks:       closet.Picks(tops, bottoms, needs),
		Outfits:     []closet.Outfit{},
	}
	if needs.Tops && needs.Bottoms {
		result.Outfits = closet.BuildOutfits(tops, bottoms)
	}
	return result
}
