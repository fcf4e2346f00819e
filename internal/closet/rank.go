package closet

import (
	"regexp"
	"slices"
	"strings"
)

// Scoring weights. They carry no derivation; keep them stable unless product
// asks for a retune.
const (
	TokenHitPoints      = 3
	SignatureHitPoints  = 10
	PaletteHitPoints    = 4
	SilhouetteHitPoints = 4
	AvoidPenalty        = 6

	// MinScoringTokenLen is the shortest token counted by the per-token passes.
	MinScoringTokenLen = 3
)

const (
	ReasonSignature  = "Matches signature items"
	ReasonPalette    = "Fits palette/materials"
	ReasonSilhouette = "Fits silhouette"
	ReasonAvoid      = "Has an avoid element"
)

var tokenSeparator = regexp.MustCompile(`[^a-z0-9]+`)

// Tokenize flattens a rubric list into lowercase alphanumeric word tokens.
func Tokenize(list []string) []string {
	if len(list) == 0 {
		return []string{}
	}

	joined := strings.ToLower(strings.Join(list, " "))
	parts := tokenSeparator.Split(joined, -1)

	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// Blob is the lowercased text an item is matched against.
func Blob(item Item) string {
	a := item.Attributes
	fields := []string{
		item.Category,
		item.OriginalFileName,
		a.Type,
		a.Style,
		a.Fit,
		a.Color,
		a.Description,
		a.GenderTarget,
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// RubricTokens holds the tokenized rubric lists.
type RubricTokens struct {
	Signature  []string
	Palette    []string
	Silhouette []string
	Avoid      []string

	positive []string
	avoid    []string
}

// TokenizeRubric tokenizes every list of the rubric. A nil rubric is empty.
func TokenizeRubric(rubric *Rubric) RubricTokens {
	if rubric == nil {
		rubric = &Rubric{}
	}

	t := RubricTokens{
		Signature:  Tokenize(rubric.SignatureItems),
		Palette:    Tokenize(rubric.PaletteMaterials),
		Silhouette: Tokenize(rubric.Silhouette),
		Avoid:      Tokenize(rubric.AvoidItems),
	}

	positive := make([]string, 0, len(t.Signature)+len(t.Palette)+len(t.Silhouette))
	positive = append(positive, t.Signature...)
	positive = append(positive, t.Palette...)
	positive = append(positive, t.Silhouette...)
	t.positive = unique(positive)
	t.avoid = unique(t.Avoid)

	return t
}

// Score rates a blob against rubric tokens and returns the coarse reasons.
func Score(blob string, tokens RubricTokens) (int, []string) {
	score := 0
	reasons := make([]string, 0, 4)

	for _, tok := range tokens.positive {
		if len(tok) < MinScoringTokenLen {
			continue
		}
		if strings.Contains(blob, tok) {
			score += TokenHitPoints
		}
	}

	if containsAny(blob, tokens.Signature) {
		score += SignatureHitPoints
		reasons = append(reasons, ReasonSignature)
	}
	if containsAny(blob, tokens.Palette) {
		score += PaletteHitPoints
		reasons = append(reasons, ReasonPalette)
	}
	if containsAny(blob, tokens.Silhouette) {
		score += SilhouetteHitPoints
		reasons = append(reasons, ReasonSilhouette)
	}

	for _, tok := range tokens.avoid {
		if len(tok) < MinScoringTokenLen {
			continue
		}
		if strings.Contains(blob, tok) {
			score -= AvoidPenalty
		}
	}
	if containsAny(blob, tokens.Avoid) {
		reasons = append(reasons, ReasonAvoid)
	}

	return score, unique(reasons)
}

// RankItems scores every item against the rubric and orders them by score,
// highest first. Equal scores keep their input order.
func RankItems(items []Item, rubric *Rubric) []RankedItem {
	tokens := TokenizeRubric(rubric)

	ranked := make([]RankedItem, 0, len(items))
	for _, it := range items {
		score, reasons := Score(Blob(it), tokens)
		ranked = append(ranked, RankedItem{
			Item:    it,
			Slot:    SlotFromSource(string(it.SourceSlot)),
			Score:   score,
			Reasons: reasons,
		})
	}

	slices.SortStableFunc(ranked, func(a, b RankedItem) int {
		return b.Score - a.Score
	})
	return ranked
}

// SplitBySlot partitions ranked items into tops and bottoms, keeping order.
func SplitBySlot(ranked []RankedItem) (tops, bottoms []RankedItem) {
	tops = make([]RankedItem, 0, len(ranked))
	bottoms = make([]RankedItem, 0, len(ranked))
	for _, r := range ranked {
		if r.Slot == SlotTop {
			tops = append(tops, r)
			continue
		}
		bottoms = append(bottoms, r)
	}
	return tops, bottoms
}

func containsAny(blob string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(blob, t) {
			return true
		}
	}
	return false
}

func unique(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
