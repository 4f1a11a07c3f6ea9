package presets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Preset is an app-owned saved set of export parameters. It is operator
// convenience on the dashboard server; job state itself is never persisted
// here.
type Preset struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Identifiers string     `json:"identifiers"`
	FromDate    string     `json:"from_date"`
	Format      string     `json:"format"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Store manages export presets in SQLite.
type Store struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS export_presets (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  identifiers TEXT NOT NULL DEFAULT '',
  from_date TEXT NOT NULL DEFAULT '',
  format TEXT NOT NULL DEFAULT 'xml',
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_ep_format ON export_presets(format);`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) List(ctx context.Context, limit int) ([]Preset, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, identifiers, from_date, format, created_at, updated_at
FROM export_presets
ORDER BY name ASC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Preset, 0, limit)
	for rows.Next() {
		item, err := scanPreset(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Preset, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, identifiers, from_date, format, created_at, updated_at
FROM export_presets
WHERE id = ?;
`, id)
	return scanPreset(row.Scan)
}

// Upsert creates or replaces a preset by name and returns its id.
func (s *Store) Upsert(ctx context.Context, name, identifiers, fromDate, format string) (int64, error) {
	name = strings.TrimSpace(name)
	identifiers = strings.TrimSpace(identifiers)
	fromDate = strings.TrimSpace(fromDate)
	format = strings.ToLower(strings.TrimSpace(format))
	if name == "" {
		return 0, fmt.Errorf("preset name is required")
	}
	if format == "" {
		format = "xml"
	}
	if format != "xml" && format != "json" {
		return 0, fmt.Errorf("unsupported format: %s", format)
	}

	if _, err := s.db.ExecContext(ctx, `
INSERT INTO export_presets (name, identifiers, from_date, format, created_at, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
ON CONFLICT(name) DO UPDATE SET
  identifiers = excluded.identifiers,
  from_date = excluded.from_date,
  format = excluded.format,
  updated_at = CURRENT_TIMESTAMP;
`, name, identifiers, fromDate, format); err != nil {
		return 0, err
	}

	// last_insert_rowid() is not refreshed by the conflict-update path, so the
	// row id is always resolved by name after the write.
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM export_presets WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM export_presets WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanPreset(scan func(dest ...any) error) (*Preset, error) {
	var (
		item      Preset
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	if err := scan(&item.ID, &item.Name, &item.Identifiers, &item.FromDate, &item.Format, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		t := createdAt.Time.UTC()
		item.CreatedAt = &t
	}
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		item.UpdatedAt = &t
	}
	return &item, nil
}
