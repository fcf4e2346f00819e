// Package vibe holds the preset style catalog and style identifier helpers.
package vibe

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/spigell/fit-check/internal/closet"
)

const customPrefix = "custom-"

//go:embed vibes.yaml
var builtin []byte

var whitespace = regexp.MustCompile(`\s+`)

// Style describes a preset vibe.
type Style struct {
	ID          string        `yaml:"id" json:"id"`
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description" json:"description"`
	Emoji       string        `yaml:"emoji" json:"emoji"`
	Rubric      closet.Rubric `yaml:"rubric" json:"rubric"`
}

type catalogFile struct {
	Styles []Style `yaml:"styles"`
}

// Catalog is an immutable set of preset styles.
type Catalog struct {
	order  []string
	styles map[string]Style
	// keyed by NormalizeKey(id)
	rubrics map[string]closet.Rubric
}

// NormalizeKey turns a style id into its rubric key.
func NormalizeKey(styleID string) string {
	return strings.ReplaceAll(styleID, "-", "_")
}

// IsCustom reports whether the style id refers to a user defined vibe.
func IsCustom(styleID string) bool {
	return strings.HasPrefix(styleID, customPrefix)
}

// CustomID derives the style id of a custom vibe from its display name.
func CustomID(name string) string {
	slug := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return customPrefix + slug
}

// DisplayName is the name shown for a style when the catalog does not know it.
func DisplayName(styleID string) string {
	if IsCustom(styleID) {
		return strings.ReplaceAll(strings.TrimPrefix(styleID, customPrefix), "-", " ")
	}
	return styleID
}

// Builtin returns the catalog shipped with the binary.
func Builtin() (*Catalog, error) {
	return parse(builtin)
}

// Load returns the builtin catalog extended by the styles from the given
// YAML file. Styles with the same id replace the builtin ones.
func Load(path string) (*Catalog, error) {
	c, err := Builtin()
	if err != nil {
		return nil, err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vibes file %q: %w", path, err)
	}

	extra, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("vibes file %q: %w", path, err)
	}

	for _, id := range extra.order {
		c.add(extra.styles[id])
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse vibes catalog: %w", err)
	}

	c := &Catalog{
		styles:  make(map[string]Style, len(file.Styles)),
		rubrics: make(map[string]closet.Rubric, len(file.Styles)),
	}
	for _, s := range file.Styles {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return nil, fmt.Errorf("parse vibes catalog: style without id")
		}
		c.add(s)
	}
	return c, nil
}

func (c *Catalog) add(s Style) {
	if _, ok := c.styles[s.ID]; !ok {
		c.order = append(c.order, s.ID)
	}
	c.styles[s.ID] = s
	c.rubrics[NormalizeKey(s.ID)] = s.Rubric
}

// Style returns the preset style with the given id.
func (c *Catalog) Style(id string) (Style, bool) {
	s, ok := c.styles[id]
	return s, ok
}

// Rubric returns the rubric stored under the normalized key.
func (c *Catalog) Rubric(key string) (*closet.Rubric, bool) {
	r, ok := c.rubrics[key]
	if !ok {
		return nil, false
	}
	return &r, true
}

// Styles lists the preset styles in catalog order.
func (c *Catalog) Styles() []Style {
	out := make([]Style, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.styles[id])
	}
	return out
}
