package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/fit-check/internal/ai"
	"github.com/spigell/fit-check/internal/closet"
	"github.com/spigell/fit-check/internal/logger"
	"github.com/spigell/fit-check/internal/utils"
)

// ErrEmptyRubric is returned when the model answers with no usable entries.
var ErrEmptyRubric = errors.New("generated rubric is empty")

type textGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// RubricGenerator turns a free text vibe description into a rubric.
type RubricGenerator struct {
	generator textGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.RubricGenerator = (*RubricGenerator)(nil)

func NewRubricGenerator(generator textGenerator, maxLogLength int, log *zap.Logger) *RubricGenerator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &RubricGenerator{generator: generator, logger: logger.OrNop(log), maxLogLen: maxLogLength}
}

func (g *RubricGenerator) GenerateRubric(ctx context.Context, description string) (*closet.Rubric, error) {
	if strings.TrimSpace(description) == "" {
		return nil, errors.New("style description is required")
	}

	prompt := buildRubricPrompt(description)
	raw, err := g.generator.GenerateContent(ctx, rubricSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("gemini rubric response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, g.maxLogLen)),
	)

	rubric, err := parseRubric(raw)
	if err != nil {
		return nil, err
	}

	g.logger.Info("generated rubric", zap.String("rubric", rubricSummary(rubric)))
	return rubric, nil
}

func parseRubric(raw string) (*closet.Rubric, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	rubric := closet.RubricFromMap(data)
	if rubric.IsEmpty() {
		return nil, ErrEmptyRubric
	}
	return &rubric, nil
}

func rubricSummary(r *closet.Rubric) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("signature=%d avoid=%d palette=%d silhouette=%d",
		len(r.SignatureItems), len(r.AvoidItems), len(r.PaletteMaterials), len(r.Silhouette))
}
