// Package history provides a SQLite-backed record of pipeline runs. Each run
// stores its full manifest as JSON plus indexed status and timing columns so
// the API can list recent runs without decoding every row.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/brieflyhq/briefly/internal/pipeline"
)

// Run is one recorded pipeline run.
type Run struct {
	// ID is the store-assigned run identifier.
	ID int64 `json:"id"`
	// Status is the run's final status.
	Status pipeline.Status `json:"status"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`
	// Manifest is the full run manifest.
	Manifest pipeline.Manifest `json:"manifest"`
}

// RunStore persists and lists pipeline runs. Implementations must be safe for
// concurrent use.
type RunStore interface {
	// Record persists a finished run's manifest.
	Record(ctx context.Context, m *pipeline.Manifest) error
	// Recent returns up to n runs, newest first.
	Recent(ctx context.Context, n int) ([]Run, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a RunStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default run-history database path. It resolves to
// ~/.briefly/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("history: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".briefly")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("history: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    status      TEXT    NOT NULL,
    started_at  INTEGER NOT NULL,  -- Unix timestamp (seconds)
    finished_at INTEGER NOT NULL,
    manifest    TEXT    NOT NULL   -- JSON
);
CREATE INDEX IF NOT EXISTS idx_runs_started
    ON runs (started_at DESC);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// Record persists a finished run's manifest.
func (s *SQLiteStore) Record(ctx context.Context, m *pipeline.Manifest) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("history: marshal manifest: %w", err)
	}
	const q = `INSERT INTO runs (status, started_at, finished_at, manifest) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		string(m.Status), m.StartedAt.Unix(), m.FinishedAt.Unix(), string(doc),
	); err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Run, error) {
	const q = `
SELECT id, status, started_at, finished_at, manifest
FROM   runs
ORDER  BY started_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var status, doc string
		var started, finished int64
		if err := rows.Scan(&r.ID, &status, &started, &finished, &doc); err != nil {
			return nil, fmt.Errorf("history: recent scan: %w", err)
		}
		if err := json.Unmarshal([]byte(doc), &r.Manifest); err != nil {
			return nil, fmt.Errorf("history: decode manifest %d: %w", r.ID, err)
		}
		r.Status = pipeline.Status(status)
		r.StartedAt = time.Unix(started, 0)
		r.FinishedAt = time.Unix(finished, 0)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: recent rows: %w", err)
	}
	return runs, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}
	return nil
}

// Noop is a RunStore that records nothing. Used when history is disabled.
type Noop struct{}

// Record implements RunStore.
func (Noop) Record(context.Context, *pipeline.Manifest) error { return nil }

// Recent implements RunStore.
func (Noop) Recent(context.Context, int) ([]Run, error) { return nil, nil }

// Close implements RunStore.
func (Noop) Close() error { return nil }
