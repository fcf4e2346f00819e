// Package session keeps short-lived per-browser state such as the last
// captured photo and the last rating.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// KeyCapture holds the last captured outfit photo as a data URL.
	KeyCapture = "fitcheck:capture"
	// KeyRating holds the last rating result as JSON.
	KeyRating = "fitcheck:rating"

	DefaultTTL = 24 * time.Hour
)

// ErrNotFound is returned for missing or expired keys.
var ErrNotFound = errors.New("session key not found")

// Store is a key/value store scoped by session id.
type Store interface {
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
	Delete(ctx context.Context, sessionID, key string) error
	Close() error
}

type Config struct {
	Driver   string        `mapstructure:"driver"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Open builds the configured session store. Redis is pinged before use.
func Open(ctx context.Context, cfg Config) (Store, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemory(ttl), nil
	case "redis":
		return NewRedis(ctx, cfg.Addr, cfg.Password, cfg.DB, ttl)
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Driver)
	}
}

// GetJSON decodes the value stored under key into dst.
func GetJSON(ctx context.Context, s Store, sessionID, key string, dst any) error {
	raw, err := s.Get(ctx, sessionID, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode session value %s: %w", key, err)
	}
	return nil
}

// SetJSON stores v as JSON under key.
func SetJSON(ctx context.Context, s Store, sessionID, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode session value %s: %w", key, err)
	}
	return s.Set(ctx, sessionID, key, raw)
}

func validate(sessionID, key string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("session id is required")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("session key is required")
	}
	return nil
}
