package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/spigell/fit-check/internal/closet"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
	now     func() time.Time
}

var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS closet_items (
	id           TEXT PRIMARY KEY,
	category     TEXT NOT NULL DEFAULT '',
	image_url    TEXT NOT NULL DEFAULT '',
	og_file_name TEXT NOT NULL DEFAULT '',
	attributes   JSONB,
	source_slot  TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS custom_vibes (
	id          TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	rubric      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_closet_items_slot_category ON closet_items(source_slot, category);
CREATE INDEX IF NOT EXISTS idx_custom_vibes_user_created ON custom_vibes(user_id, created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListItems(ctx context.Context, slot closet.Slot, category string) ([]closet.Item, error) {
	query := `SELECT id, category, image_url, og_file_name, attributes, source_slot, created_at
		FROM closet_items WHERE source_slot = $1`
	args := []any{string(slot)}
	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list items")
	}
	defer rows.Close()

	var items []closet.Item
	for rows.Next() {
		var (
			item       closet.Item
			attributes []byte
			sourceSlot string
		)
		if err := rows.Scan(&item.ID, &item.Category, &item.ImageURL, &item.OriginalFileName,
			&attributes, &sourceSlot, &item.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan item")
		}
		item.Attributes = closet.ParseAttributes(attributes)
		item.SourceSlot = closet.SlotFromSource(sourceSlot)
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: iterate items")
}

func (s *PostgresStore) PutItems(ctx context.Context, items []closet.Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin put items")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := s.now()
	for i := range items {
		items[i] = normalizeItem(items[i], now)
		attrs, err := json.Marshal(items[i].Attributes)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal attributes")
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO closet_items (id, category, image_url, og_file_name, attributes, source_slot, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				category = EXCLUDED.category,
				image_url = EXCLUDED.image_url,
				og_file_name = EXCLUDED.og_file_name,
				attributes = EXCLUDED.attributes,
				source_slot = EXCLUDED.source_slot`,
			items[i].ID, items[i].Category, items[i].ImageURL, items[i].OriginalFileName,
			attrs, string(items[i].SourceSlot), items[i].CreatedAt,
		); err != nil {
			return eris.Wrapf(err, "postgres: put item %s", items[i].ID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit put items")
}

func (s *PostgresStore) ListCustomVibes(ctx context.Context, userID string) ([]CustomVibe, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, description, rubric, created_at, updated_at
		FROM custom_vibes WHERE user_id = $1 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list custom vibes")
	}
	defer rows.Close()

	vibes := []CustomVibe{}
	for rows.Next() {
		v, err := scanPostgresVibe(rows)
		if err != nil {
			return nil, err
		}
		vibes = append(vibes, *v)
	}
	return vibes, eris.Wrap(rows.Err(), "postgres: iterate custom vibes")
}

func (s *PostgresStore) GetCustomVibe(ctx context.Context, userID, id string) (*CustomVibe, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, description, rubric, created_at, updated_at
		FROM custom_vibes WHERE user_id = $1 AND id = $2`,
		userID, id,
	)
	v, err := scanPostgresVibe(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: custom vibe %s", id)
	}
	return v, err
}

func (s *PostgresStore) UpsertCustomVibe(ctx context.Context, v *CustomVibe) error {
	if err := validateVibe(v); err != nil {
		return err
	}

	rubric, err := json.Marshal(v.Rubric)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal rubric")
	}

	now := s.now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	_, err = s.pool.Exec(ctx, `
		INSERT INTO custom_vibes (id, user_id, name, description, rubric, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			rubric = EXCLUDED.rubric,
			updated_at = EXCLUDED.updated_at`,
		v.ID, v.UserID, v.Name, v.Description, rubric, v.CreatedAt, v.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert custom vibe %s", v.ID)
}

func (s *PostgresStore) DeleteCustomVibe(ctx context.Context, userID, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM custom_vibes WHERE user_id = $1 AND id = $2`, userID, id)
	return eris.Wrapf(err, "postgres: delete custom vibe %s", id)
}

func scanPostgresVibe(row scannable) (*CustomVibe, error) {
	var (
		v      CustomVibe
		rubric []byte
	)
	if err := row.Scan(&v.ID, &v.UserID, &v.Name, &v.Description, &rubric, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan custom vibe")
	}
	if err := json.Unmarshal(rubric, &v.Rubric); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode rubric of %s", v.ID)
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return &v, nil
}
