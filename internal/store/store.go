// Package store persists closet items and user-defined vibes.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/fit-check/internal/closet"
	"github.com/spigell/fit-check/internal/vibe"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout is fixed width so TEXT timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// CustomVibe is a user-defined style with a generated or hand written rubric.
type CustomVibe struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Rubric      closet.Rubric `json:"rubric"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ItemLister reads closet items of one slot, newest first. An empty category
// matches every category.
type ItemLister interface {
	ListItems(ctx context.Context, slot closet.Slot, category string) ([]closet.Item, error)
}

// Store defines the persistence interface of the app.
type Store interface {
	ItemLister

	// Closet
	PutItems(ctx context.Context, items []closet.Item) error

	// Custom vibes
	ListCustomVibes(ctx context.Context, userID string) ([]CustomVibe, error)
	GetCustomVibe(ctx context.Context, userID, id string) (*CustomVibe, error)
	UpsertCustomVibe(ctx context.Context, v *CustomVibe) error
	DeleteCustomVibe(ctx context.Context, userID, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a Store implementation.
type Config struct {
	Driver string      `mapstructure:"driver"`
	DSN    string      `mapstructure:"dsn"`
	Pool   *PoolConfig `mapstructure:"pool"`
}

// Open creates the configured store and applies migrations.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "fit-check.db"
		}
		s, err = NewSQLite(dsn)
	case "postgres", "postgresql", "pg":
		s, err = NewPostgres(ctx, cfg.DSN, cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// FetchClosetItems loads the candidate tops and bottoms for a style. Custom
// vibes consider the whole closet, presets only items tagged with the style
// id. The result lists tops before bottoms.
func FetchClosetItems(ctx context.Context, items ItemLister, styleID string) ([]closet.Item, error) {
	category := styleID
	if vibe.IsCustom(styleID) {
		category = ""
	}

	var tops, bottoms []closet.Item
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tops, err = items.ListItems(gctx, closet.SlotTop, category)
		return eris.Wrap(err, "fetch tops")
	})
	g.Go(func() error {
		var err error
		bottoms, err = items.ListItems(gctx, closet.SlotBottom, category)
		return eris.Wrap(err, "fetch bottoms")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]closet.Item, 0, len(tops)+len(bottoms))
	out = append(out, tops...)
	return append(out, bottoms...), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return time.Time{}
		}
	}
	return t.UTC()
}

func newID() string {
	return uuid.NewString()
}

func normalizeItem(item closet.Item, now time.Time) closet.Item {
	if item.ID == "" {
		item.ID = newID()
	}
	item.SourceSlot = closet.SlotFromSource(string(item.SourceSlot))
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.CreatedAt = item.CreatedAt.UTC()
	return item
}

func validateVibe(v *CustomVibe) error {
	if v == nil {
		return eris.New("custom vibe is nil")
	}
	if strings.TrimSpace(v.UserID) == "" {
		return eris.New("custom vibe user id is required")
	}
	if strings.TrimSpace(v.ID) == "" {
		return eris.New("custom vibe id is required")
	}
	return nil
}
