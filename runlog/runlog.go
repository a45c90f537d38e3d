// Package runlog keeps a history of program runs in a SQLite database.
package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/minima"
	"github.com/chazu/minima/runtime"
)

var log = commonlog.GetLogger("minima.runlog")

// ErrRunNotFound indicates the requested run doesn't exist.
var ErrRunNotFound = errors.New("run not found")

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	status      INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	started     INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	snapshot    BLOB
)`

// Run is one recorded program run.
type Run struct {
	ID       uuid.UUID
	Source   string
	Status   int
	Error    string
	Started  time.Time
	Duration time.Duration
}

// DB is a run history database.
type DB struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the history database at path, creating its
// directory if needed.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened run history %s", path)
	return &DB{db: db, path: path}, nil
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Record stores a finished run of source.
func (d *DB) Record(ctx context.Context, source string, res minima.Result) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var msg string
	if res.Err != nil {
		msg = res.Err.Error()
	}
	_, err := d.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO runs (id, source, status, error, started, duration_ms) VALUES (?, ?, ?, ?, ?, ?)",
		res.ID.String(), source, res.Status, msg, res.Started.UnixMilli(), res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// AttachSnapshot stores the variables left behind by a recorded run.
func (d *DB) AttachSnapshot(ctx context.Context, id uuid.UUID, snap *runtime.Snapshot) error {
	data, err := runtime.MarshalSnapshot(snap)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := d.db.ExecContext(ctx, "UPDATE runs SET snapshot = ? WHERE id = ?", data, id.String())
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Snapshot loads the snapshot attached to run id.
func (d *DB) Snapshot(ctx context.Context, id uuid.UUID) (*runtime.Snapshot, error) {
	var data []byte
	err := d.db.QueryRowContext(ctx, "SELECT snapshot FROM runs WHERE id = ?", id.String()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("run %s has no snapshot", id)
	}
	return runtime.UnmarshalSnapshot(data)
}

// Get loads run id.
func (d *DB) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT id, source, status, error, started, duration_ms FROM runs WHERE id = ?", id.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

// Recent returns up to n runs, newest first.
func (d *DB) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT id, source, status, error, started, duration_ms FROM runs ORDER BY started DESC, rowid DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run      Run
		id       string
		started  int64
		duration int64
	)
	if err := s.Scan(&id, &run.Source, &run.Status, &run.Error, &started, &duration); err != nil {
		return Run{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("run id %q: %w", id, err)
	}
	run.ID = parsed
	run.Started = time.UnixMilli(started)
	run.Duration = time.Duration(duration) * time.Millisecond
	return run, nil
}
