package filtering

import (
	"context"
	"sort"
	"strings"

	"github.com/spigell/fit-check/internal/closet"
)

type duplicatesFilter struct {
	toggle
}

// NewDuplicates drops repeated item ids, keeping the first occurrence. Items
// without an id are kept and get one from the store.
func NewDuplicates() Filter {
	return &duplicatesFilter{}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Validate() error { return nil }

func (f *duplicatesFilter) Apply(_ context.Context, items []closet.Item) ([]closet.Item, Step, error) {
	seen := make(map[string]struct{}, len(items))
	left := keep(items, func(item closet.Item) bool {
		if item.ID == "" {
			return true
		}
		if _, ok := seen[item.ID]; ok {
			return false
		}
		seen[item.ID] = struct{}{}
		return true
	})
	return left, step(len(items), left), nil
}

type categoriesFilter struct {
	toggle
	allowed map[string]struct{}
}

// NewCategories drops items tagged with a category that is not a known style.
// Uncategorized items are kept since custom vibes rank the whole closet.
func NewCategories(styleIDs []string) Filter {
	allowed := make(map[string]struct{}, len(styleIDs))
	for _, id := range styleIDs {
		allowed[id] = struct{}{}
	}
	return &categoriesFilter{allowed: allowed}
}

func (f *categoriesFilter) Name() string { return "categories" }

func (f *categoriesFilter) Validate() error { return nil }

func (f *categoriesFilter) Apply(_ context.Context, items []closet.Item) ([]closet.Item, Step, error) {
	left := keep(items, func(item closet.Item) bool {
		category := strings.TrimSpace(item.Category)
		if category == "" {
			return true
		}
		_, ok := f.allowed[category]
		return ok
	})
	return left, step(len(items), left), nil
}

func (f *categoriesFilter) Status() Status {
	names := make([]string, 0, len(f.allowed))
	for id := range f.allowed {
		names = append(names, id)
	}
	sort.Strings(names)
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"allowed": strings.Join(names, ",")},
	}
}

type untaggedFilter struct {
	toggle
}

// NewUntagged drops items without any attributes. They can only match on
// category and file name.
func NewUntagged() Filter {
	return &untaggedFilter{}
}

func (f *untaggedFilter) Name() string { return "untagged" }

func (f *untaggedFilter) Validate() error { return nil }

func (f *untaggedFilter) Apply(_ context.Context, items []closet.Item) ([]closet.Item, Step, error) {
	left := keep(items, func(item closet.Item) bool {
		return item.Attributes != (closet.Attributes{})
	})
	return left, step(len(items), left), nil
}
