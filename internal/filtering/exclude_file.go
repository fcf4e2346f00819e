package filtering

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spigell/fit-check/internal/closet"
)

type excludeFileFilter struct {
	toggle
	path string
}

// NewExcludeFile creates a filter that drops items whose id is listed in the
// file. The file holds a YAML (or JSON) list of ids. A missing file excludes
// nothing.
func NewExcludeFile(path string) Filter {
	return &excludeFileFilter{path: strings.TrimSpace(path)}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate() error { return nil }

func (f *excludeFileFilter) Apply(_ context.Context, items []closet.Item) ([]closet.Item, Step, error) {
	initial := len(items)
	if f.path == "" {
		return items, step(initial, items), nil
	}

	ids, err := ReadExcludedIDs(f.path)
	if err != nil {
		return items, Step{}, fmt.Errorf("getting excluded items from file: %w", err)
	}

	excluded := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		excluded[id] = struct{}{}
	}

	left := keep(items, func(item closet.Item) bool {
		_, skip := excluded[item.ID]
		return !skip
	})
	return left, step(initial, left), nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

// ReadExcludedIDs loads the id list. Blank entries are ignored.
func ReadExcludedIDs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var raw []string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
