// Package closet ranks closet items against a style rubric and pairs the best
// tops and bottoms into outfits.
package closet

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Slot is the pairing pool an item belongs to.
type Slot string

const (
	SlotTop    Slot = "top"
	SlotBottom Slot = "bottom"
)

// SlotFromSource maps an item origin to a pairing pool. Only "top" is a top.
func SlotFromSource(source string) Slot {
	if strings.EqualFold(strings.TrimSpace(source), string(SlotTop)) {
		return SlotTop
	}
	return SlotBottom
}

// Item is a single clothing piece available for suggestions.
type Item struct {
	ID               string     `json:"id"`
	Category         string     `json:"category"`
	ImageURL         string     `json:"image_url"`
	OriginalFileName string     `json:"og_file_name,omitempty"`
	Attributes       Attributes `json:"attributes"`
	SourceSlot       Slot       `json:"source_slot"`
	CreatedAt        time.Time  `json:"created_at,omitempty"`
}

// Attributes are free-text descriptors produced by the closet tagging job.
type Attributes struct {
	Type         string `json:"type,omitempty" mapstructure:"type"`
	Style        string `json:"style,omitempty" mapstructure:"style"`
	Fit          string `json:"fit,omitempty" mapstructure:"fit"`
	Color        string `json:"color,omitempty" mapstructure:"color"`
	Description  string `json:"description,omitempty" mapstructure:"description"`
	GenderTarget string `json:"gender_target,omitempty" mapstructure:"gender_target"`
}

// UnmarshalJSON accepts an object, a JSON-encoded string holding an object, or
// anything else, which decodes to empty attributes.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*a = Attributes{}
		return nil
	}
	*a = ParseAttributes(raw)
	return nil
}

// Rubric is the definition of a vibe.
type Rubric struct {
	SignatureItems   []string `json:"signature_items" yaml:"signature_items"`
	AvoidItems       []string `json:"avoid" yaml:"avoid"`
	PaletteMaterials []string `json:"palette_materials" yaml:"palette_materials"`
	Silhouette       []string `json:"silhouette" yaml:"silhouette"`
}

// UnmarshalJSON tolerates missing, null and non-array fields.
func (r *Rubric) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		*r = Rubric{}
		return nil
	}
	*r = RubricFromMap(raw)
	return nil
}

// RubricFromMap builds a rubric from loosely typed data.
func RubricFromMap(raw map[string]any) Rubric {
	return Rubric{
		SignatureItems:   coerceStrings(raw["signature_items"]),
		AvoidItems:       coerceStrings(raw["avoid"]),
		PaletteMaterials: coerceStrings(raw["palette_materials"]),
		Silhouette:       coerceStrings(raw["silhouette"]),
	}
}

// IsEmpty reports whether every list of the rubric is empty.
func (r *Rubric) IsEmpty() bool {
	if r == nil {
		return true
	}
	return len(r.SignatureItems) == 0 && len(r.AvoidItems) == 0 &&
		len(r.PaletteMaterials) == 0 && len(r.Silhouette) == 0
}

func coerceStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}

	out := make([]string, 0, len(list))
	for _, el := range list {
		switch val := el.(type) {
		case nil:
			continue
		case string:
			out = append(out, val)
		default:
			out = append(out, fmt.Sprint(val))
		}
	}
	return out
}

// RankedItem is an item annotated with its rubric affinity.
type RankedItem struct {
	Item
	Slot    Slot     `json:"slot"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Outfit is a proposed top and bottom pairing. One side may be absent.
type Outfit struct {
	Title  string      `json:"title"`
	Top    *RankedItem `json:"top,omitempty"`
	Bottom *RankedItem `json:"bottom,omitempty"`
	Score  int         `json:"score"`
}
