// Package history records pipeline runs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gaurav-prasanna/recipepipe/core/fetch"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS imports (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	source      TEXT NOT NULL,
	source_key  TEXT NOT NULL,
	extractor   TEXT NOT NULL DEFAULT '',
	provider    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_imports_source_key ON imports(source_key);
CREATE INDEX IF NOT EXISTS idx_imports_created_at ON imports(created_at);
`

// Entry is one recorded run.
type Entry struct {
	ID        string
	Kind      string
	Source    string
	Extractor string
	Provider  string
	Status    string
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// Store is the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" keeps it in memory.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// A second connection to :memory: would see an empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e. CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return errors.New("history entry has no id")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO imports (id, kind, source, source_key, extractor, provider, status, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.Source, sourceKey(e.Kind, e.Source), e.Extractor, e.Provider,
		e.Status, e.Error, e.Duration.Milliseconds(), e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording import %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.query(ctx, `
		SELECT id, kind, source, extractor, provider, status, error, duration_ms, created_at
		FROM imports ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

// ForURL returns the runs for rawURL, newest first. Fragments and trailing
// slashes are ignored when matching.
func (s *Store) ForURL(ctx context.Context, rawURL string) ([]Entry, error) {
	return s.query(ctx, `
		SELECT id, kind, source, extractor, provider, status, error, duration_ms, created_at
		FROM imports WHERE source_key = ? ORDER BY created_at DESC, rowid DESC`, sourceKey("url", rawURL))
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.Source, &e.Extractor, &e.Provider,
			&e.Status, &e.Error, &ms, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func sourceKey(kind, source string) string {
	if kind == "url" {
		return fetch.NormalizeURL(source)
	}
	return source
}
