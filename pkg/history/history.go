// Package history keeps a record of past mirror runs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/glorpus-work/sitegrab/pkg/errors"
	"github.com/glorpus-work/sitegrab/pkg/fsutil"
)

// Status of a finished run.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Run is one history entry.
type Run struct {
	ID          string
	URL         string
	Destination string
	Archive     string
	StartedAt   time.Time
	Elapsed     time.Duration
	Status      Status
	Stage       string // failing stage, empty on success
	Error       string
	Succeeded   int
	Failed      int
	Skipped     int
	TotalBytes  int64
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    url         TEXT NOT NULL,
    destination TEXT NOT NULL,
    archive     TEXT NOT NULL DEFAULT '',
    started_at  INTEGER NOT NULL,
    elapsed_ns  INTEGER NOT NULL DEFAULT 0,
    status      TEXT NOT NULL,
    stage       TEXT NOT NULL DEFAULT '',
    error       TEXT NOT NULL DEFAULT '',
    succeeded   INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0,
    skipped     INTEGER NOT NULL DEFAULT 0,
    total_bytes INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

const columns = `id, url, destination, archive, started_at, elapsed_ns, status, stage, error,
	succeeded, failed, skipped, total_bytes`

// Store persists runs. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no database path configured", errors.ErrHistoryUnavailable)
	}
	if err := fsutil.EnsureFileDir(path); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrHistoryUnavailable, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrHistoryUnavailable, err)
	}
	// one writer at a time avoids SQLITE_BUSY between goroutines
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", errors.ErrHistoryUnavailable, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts run, replacing an entry with the same ID.
func (s *Store) Record(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.URL, run.Destination, run.Archive,
		run.StartedAt.UnixNano(), int64(run.Elapsed), string(run.Status), run.Stage, run.Error,
		run.Succeeded, run.Failed, run.Skipped, run.TotalBytes,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record run %s", run.ID)
	}
	return nil
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", errors.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read run %s", id)
	}
	return run, nil
}

// Lookup returns the run whose ID is id or starts with id.
func (s *Store) Lookup(ctx context.Context, id string) (*Run, error) {
	run, err := s.Get(ctx, id)
	if !errors.Is(err, errors.ErrRunNotFound) || id == "" {
		return run, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(id), id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to look up run %s", id)
	}
	defer func() { _ = rows.Close() }()

	var matches []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read run")
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", errors.ErrRunNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrRunAmbiguous, id)
	}
}

// List returns up to limit runs, newest first. A limit of 0 or less returns
// every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read run")
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var startedAt, elapsed int64
	var status string
	err := row.Scan(&run.ID, &run.URL, &run.Destination, &run.Archive,
		&startedAt, &elapsed, &status, &run.Stage, &run.Error,
		&run.Succeeded, &run.Failed, &run.Skipped, &run.TotalBytes)
	if err != nil {
		return nil, err
	}
	run.StartedAt = time.Unix(0, startedAt)
	run.Elapsed = time.Duration(elapsed)
	run.Status = Status(status)
	return &run, nil
}
