package gemini

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/ai"
	"github.com/spigell/fit-check/internal/logger"
	"github.com/spigell/fit-check/internal/utils"
)

const (
	defaultMaxLogLength = 200
	unknownStyle        = "Unknown"
)

type visionGenerator interface {
	GenerateContentWithImage(ctx context.Context, system, message string, image *ai.Image) (string, error)
}

// Rater scores outfit photos against a rubric with a vision model.
type Rater struct {
	generator visionGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Rater = (*Rater)(nil)

func NewRater(generator visionGenerator, maxLogLength int, log *zap.Logger) *Rater {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Rater{
		generator: generator,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

func (r *Rater) Rate(ctx context.Context, req ai.RatingRequest) (*ai.Rating, error) {
	styleID := strings.TrimSpace(req.Style.ID)
	if styleID == "" {
		return nil, errors.New("target style is required")
	}
	if req.Rubric == nil {
		return nil, errors.New("rubric is required")
	}
	if req.Image == nil || len(req.Image.Data) == 0 {
		return nil, ai.ErrEmptyImage
	}

	req.Style.ID = styleID
	prompt := buildRatingPrompt(req.Style, req.Rubric)

	r.logger.Debug("gemini rating request",
		zap.String(logger.FieldStyle, styleID),
		zap.String("image_mime", req.Image.MIMEType),
		zap.Int("image_bytes", len(req.Image.Data)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContentWithImage(ctx, ratingSystemPrompt, prompt, req.Image)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("gemini rating response",
		zap.String(logger.FieldStyle, styleID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	rating, err := parseRating(raw, styleID)
	if err != nil {
		return nil, err
	}
	rating.Raw = raw

	return rating, nil
}

// parseRating normalizes the model answer. target_style is always the
// requested style and malformed fields fall back to safe defaults.
func parseRating(raw, styleID string) (*ai.Rating, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	detected := coerceString(data["detected_style"])
	if _, ok := data["detected_style"].(string); !ok || detected == "" {
		detected = unknownStyle
	}

	scoreValue, ok := data["match_score"]
	if !ok {
		// older prompt shape
		scoreValue = data["rating"]
	}
	score := clamp(coerceFloat(scoreValue), 0, 100)
	confidence := clamp(coerceFloat(data["confidence"]), 0, 1)

	return &ai.Rating{
		TargetStyle:     styleID,
		DetectedStyle:   detected,
		MatchScore:      score,
		Confidence:      confidence,
		TopMatch:        coerceBool(data["top_match"]),
		BottomMatch:     coerceBool(data["bottom_match"]),
		Reasons:         coerceStrings(data["reasons"]),
		Suggestions:     coerceStrings(data["suggestions"]),
		Strengths:       coerceStrings(data["strengths"]),
		Weaknesses:      coerceStrings(data["weaknesses"]),
		OverallFeedback: coerceString(data["overall_feedback"]),
		Grade:           ai.Grade(math.Round(score)),
	}, nil
}
