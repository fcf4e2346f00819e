package gemini

import (
	_ "embed"
	"strings"

	"github.com/spigell/fit-check/internal/ai"
	"github.com/spigell/fit-check/internal/closet"
)

const (
	ratingSystemPrompt = "You are an expert fashion stylist. You rate outfit photos strictly against the rubric you are given."
	rubricSystemPrompt = "You are a fashion expert."

	maxDescriptionRunes = 500
)

var (
	//go:embed rating_prompt.md
	ratingTemplate string

	//go:embed rubric_prompt.md
	rubricTemplate string
)

func buildRatingPrompt(style ai.StyleTarget, rubric *closet.Rubric) string {
	name := sanitizeInline(style.Name, maxDescriptionRunes)
	if name == "" {
		name = style.ID
	}

	prompt := strings.ReplaceAll(ratingTemplate, "{{STYLE_ID}}", style.ID)
	prompt = strings.ReplaceAll(prompt, "{{STYLE_NAME}}", name)
	prompt = strings.ReplaceAll(prompt, "{{STYLE_DESCRIPTION}}", sanitizeInline(style.Description, maxDescriptionRunes))
	prompt = strings.ReplaceAll(prompt, "{{RUBRIC}}", rubricText(rubric))
	return strings.TrimSpace(prompt)
}

func buildRubricPrompt(description string) string {
	prompt := strings.ReplaceAll(rubricTemplate, "{{STYLE_DESCRIPTION}}", sanitizeInline(description, maxDescriptionRunes))
	return strings.TrimSpace(prompt)
}

// rubricText renders the rubric as four bulleted sections.
func rubricText(rubric *closet.Rubric) string {
	if rubric == nil {
		rubric = &closet.Rubric{}
	}

	sections := []struct {
		title string
		items []string
	}{
		{"Signature items", rubric.SignatureItems},
		{"Avoid", rubric.AvoidItems},
		{"Palette & materials", rubric.PaletteMaterials},
		{"Silhouette", rubric.Silhouette},
	}

	var b strings.Builder
	for i, section := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(section.title)
		b.WriteString(":\n- ")
		b.WriteString(strings.Join(section.items, "\n- "))
	}
	return b.String()
}

// sanitizeInline collapses whitespace and swaps square brackets for
// parentheses so user text cannot fake prompt sections.
func sanitizeInline(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.NewReplacer("[", "(", "]", ")", `"`, "'").Replace(s)
	if limit > 0 {
		if runes := []rune(s); len(runes) > limit {
			s = strings.TrimSpace(string(runes[:limit]))
		}
	}
	return s
}
