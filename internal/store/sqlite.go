package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/spigell/fit-check/internal/closet"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS closet_items (
	id           TEXT PRIMARY KEY,
	category     TEXT NOT NULL DEFAULT '',
	image_url    TEXT NOT NULL DEFAULT '',
	og_file_name TEXT NOT NULL DEFAULT '',
	attributes   TEXT,
	source_slot  TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS custom_vibes (
	id          TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	rubric      TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_closet_items_slot_category ON closet_items(source_slot, category);
CREATE INDEX IF NOT EXISTS idx_custom_vibes_user_created ON custom_vibes(user_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListItems(ctx context.Context, slot closet.Slot, category string) ([]closet.Item, error) {
	query := `SELECT id, category, image_url, og_file_name, attributes, source_slot, created_at
		FROM closet_items WHERE source_slot = ?`
	args := []any{string(slot)}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list items")
	}
	defer rows.Close()

	var items []closet.Item
	for rows.Next() {
		var (
			item       closet.Item
			attributes sql.NullString
			sourceSlot string
			createdAt  string
		)
		if err := rows.Scan(&item.ID, &item.Category, &item.ImageURL, &item.OriginalFileName,
			&attributes, &sourceSlot, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item")
		}
		item.Attributes = closet.ParseAttributes(attributes.String)
		item.SourceSlot = closet.SlotFromSource(sourceSlot)
		item.CreatedAt = parseTime(createdAt)
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: iterate items")
}

func (s *SQLiteStore) PutItems(ctx context.Context, items []closet.Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin put items")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO closet_items (id, category, image_url, og_file_name, attributes, source_slot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			image_url = excluded.image_url,
			og_file_name = excluded.og_file_name,
			attributes = excluded.attributes,
			source_slot = excluded.source_slot`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare put items")
	}
	defer stmt.Close()

	now := s.now()
	for i := range items {
		items[i] = normalizeItem(items[i], now)
		attrs, err := json.Marshal(items[i].Attributes)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal attributes")
		}
		if _, err := stmt.ExecContext(ctx,
			items[i].ID, items[i].Category, items[i].ImageURL, items[i].OriginalFileName,
			string(attrs), string(items[i].SourceSlot), formatTime(items[i].CreatedAt),
		); err != nil {
			return eris.Wrapf(err, "sqlite: put item %s", items[i].ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit put items")
}

func (s *SQLiteStore) ListCustomVibes(ctx context.Context, userID string) ([]CustomVibe, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, rubric, created_at, updated_at
		FROM custom_vibes WHERE user_id = ? ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list custom vibes")
	}
	defer rows.Close()

	vibes := []CustomVibe{}
	for rows.Next() {
		v, err := scanSQLiteVibe(rows)
		if err != nil {
			return nil, err
		}
		vibes = append(vibes, *v)
	}
	return vibes, eris.Wrap(rows.Err(), "sqlite: iterate custom vibes")
}

func (s *SQLiteStore) GetCustomVibe(ctx context.Context, userID, id string) (*CustomVibe, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, rubric, created_at, updated_at
		FROM custom_vibes WHERE user_id = ? AND id = ?`,
		userID, id,
	)
	v, err := scanSQLiteVibe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: custom vibe %s", id)
	}
	return v, err
}

func (s *SQLiteStore) UpsertCustomVibe(ctx context.Context, v *CustomVibe) error {
	if err := validateVibe(v); err != nil {
		return err
	}

	rubric, err := json.Marshal(v.Rubric)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal rubric")
	}

	now := s.now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO custom_vibes (id, user_id, name, description, rubric, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			rubric = excluded.rubric,
			updated_at = excluded.updated_at`,
		v.ID, v.UserID, v.Name, v.Description, string(rubric), formatTime(v.CreatedAt), formatTime(v.UpdatedAt),
	)
	return eris.Wrapf(err, "sqlite: upsert custom vibe %s", v.ID)
}

func (s *SQLiteStore) DeleteCustomVibe(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM custom_vibes WHERE user_id = ? AND id = ?`, userID, id)
	return eris.Wrapf(err, "sqlite: delete custom vibe %s", id)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteVibe(row scannable) (*CustomVibe, error) {
	var (
		v                    CustomVibe
		rubric               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&v.ID, &v.UserID, &v.Name, &v.Description, &rubric, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan custom vibe")
	}
	if err := json.Unmarshal([]byte(rubric), &v.Rubric); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode rubric of %s", v.ID)
	}
	v.CreatedAt = parseTime(createdAt)
	v.UpdatedAt = parseTime(updatedAt)
	return &v, nil
}
