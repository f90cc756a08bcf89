// Package ledger keeps a SQLite history of replay runs.
//
// Every run of a trace records its report digest, so runs with different
// worker counts can be checked for identical output.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

//go:embed schema.sql
var schema string

// Status of a recorded run.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one recorded replay.
type Run struct {
	ID        string
	Trace     string
	Workers   int
	Threshold float32
	Lambda1   float32
	Records   int
	Dimension int
	Digest    string
	StartedAt time.Time
	Duration  time.Duration
	Status    string
	ErrorKind string
}

// Ledger is a SQLite-backed run history.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path. ":memory:" opens a
// private in-memory ledger.
func Open(path string) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path is required")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record stores run.
func (l *Ledger) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, trace, workers, threshold, lambda1, records, dimension,
		                  digest, started_at, duration_ms, status, error_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Trace, run.Workers, float64(run.Threshold), float64(run.Lambda1),
		run.Records, run.Dimension, run.Digest, run.StartedAt.UTC().Format(timeFormat),
		run.Duration.Milliseconds(), run.Status, run.ErrorKind,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// List returns the runs of trace, oldest first. An empty trace lists all runs.
func (l *Ledger) List(ctx context.Context, trace string) ([]Run, error) {
	query := `SELECT id, trace, workers, threshold, lambda1, records, dimension,
	                 digest, started_at, duration_ms, status, error_kind
	          FROM runs`
	var args []any
	if trace != "" {
		query += ` WHERE trace = ?`
		args = append(args, trace)
	}
	query += ` ORDER BY started_at, id`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			thr, l1    float64
			started    string
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &r.Trace, &r.Workers, &thr, &l1, &r.Records, &r.Dimension,
			&r.Digest, &started, &durationMS, &r.Status, &r.ErrorKind); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Threshold = float32(thr)
		r.Lambda1 = float32(l1)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if r.StartedAt, err = time.Parse(timeFormat, started); err != nil {
			return nil, fmt.Errorf("parse started_at of run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Digests returns the distinct report digests of successful runs of trace.
// More than one digest means the replays disagreed.
func (l *Ledger) Digests(ctx context.Context, trace string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT DISTINCT digest FROM runs WHERE trace = ? AND status = ? ORDER BY digest`,
		trace, StatusOK)
	if err != nil {
		return nil, fmt.Errorf("list digests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
