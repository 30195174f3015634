// Package fetchlog records media fetch attempts in SQLite. The log is an
// audit trail for debugging flaky share links; it is never consulted before
// fetching and never acts as a cache.
package fetchlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Schema is applied on open.
const Schema = `
CREATE TABLE IF NOT EXISTS media_fetch_log (
    id            TEXT PRIMARY KEY,
    run_id        TEXT NOT NULL DEFAULT '',
    url           TEXT NOT NULL,
    kind          TEXT NOT NULL,
    status        TEXT NOT NULL,
    local_path    TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    fetched_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_media_fetch_log_run ON media_fetch_log(run_id);
CREATE INDEX IF NOT EXISTS idx_media_fetch_log_time ON media_fetch_log(fetched_at DESC);
`

// Entry is one fetch attempt.
type Entry struct {
	ID           string
	RunID        string
	URL          string
	Kind         string
	Status       string
	LocalPath    string
	ErrorMessage string
	DurationMs   int64
	FetchedAt    time.Time
}

// Store wraps the audit database.
type Store struct {
	DB *sql.DB
}

// Open opens (creating if needed) the audit database at path. The caller
// must blank-import the sqlite driver (modernc.org/sqlite).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("fetchlog: open %s: %w", path, err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("fetchlog: apply schema: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Insert records a fetch attempt.
func (s *Store) Insert(ctx context.Context, e *Entry) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO media_fetch_log (id, run_id, url, kind, status, local_path,
		error_message, duration_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RunID, e.URL, e.Kind, e.Status, e.LocalPath,
		e.ErrorMessage, e.DurationMs, e.FetchedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("fetchlog: insert: %w", err)
	}
	return nil
}

// History returns entries for a run, newest first.
func (s *Store) History(ctx context.Context, runID string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, run_id, url, kind, status, local_path, error_message, duration_ms, fetched_at
		FROM media_fetch_log WHERE run_id = ?
		ORDER BY fetched_at DESC, id DESC LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetchlog: history: %w", err)
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		var e Entry
		var fetchedAt int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.URL, &e.Kind, &e.Status,
			&e.LocalPath, &e.ErrorMessage, &e.DurationMs, &fetchedAt); err != nil {
			return nil, fmt.Errorf("fetchlog: scan: %w", err)
		}
		e.FetchedAt = time.UnixMilli(fetchedAt)
		result = append(result, &e)
	}
	return result, rows.Err()
}
