// Package history persists replay run outcomes in a local SQLite
// database so past results can be listed and compared.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// Run is one recorded replay execution.
type Run struct {
	RunID        string
	ScenarioName string
	ScenarioPath string
	EntryPoint   string
	Status       string // "pass" or "fail"
	Failures     int
	DurationMS   int64
	VideoPath    string
	StartedAt    time.Time
}

// Store is a run-history database. A single connection with WAL keeps
// concurrent CLI invocations from tripping over each other.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates and migrates) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		db.Close() //nolint:errcheck
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

// Append records a run. A missing RunID is filled with a fresh UUID; a
// zero StartedAt defaults to now. Returns the run ID.
func (s *Store) Append(ctx context.Context, run Run) (string, error) {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status != "pass" && run.Status != "fail" {
		return "", fmt.Errorf("invalid run status %q", run.Status)
	}

	var video any
	if run.VideoPath != "" {
		video = run.VideoPath
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs(run_id, scenario_name, scenario_path, entry_point, status, failures, duration_ms, video_path, started_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.RunID, run.ScenarioName, run.ScenarioPath, run.EntryPoint, run.Status,
		run.Failures, run.DurationMS, video, ts(run.StartedAt))
	if err != nil {
		return "", fmt.Errorf("append run: %w", err)
	}
	return run.RunID, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, scenario_name, scenario_path, entry_point, status, failures, duration_ms, video_path, started_at
FROM runs
ORDER BY started_at DESC, run_id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var video sql.NullString
		var started string
		if err := rows.Scan(&r.RunID, &r.ScenarioName, &r.ScenarioPath, &r.EntryPoint,
			&r.Status, &r.Failures, &r.DurationMS, &video, &started); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.VideoPath = video.String
		if r.StartedAt, err = parseTS(started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Get returns one run by ID.
func (s *Store) Get(ctx context.Context, runID string) (Run, error) {
	var r Run
	var video sql.NullString
	var started string
	err := s.db.QueryRowContext(ctx, `
SELECT run_id, scenario_name, scenario_path, entry_point, status, failures, duration_ms, video_path, started_at
FROM runs WHERE run_id = ?
`, runID).Scan(&r.RunID, &r.ScenarioName, &r.ScenarioPath, &r.EntryPoint,
		&r.Status, &r.Failures, &r.DurationMS, &video, &started)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	r.VideoPath = video.String
	if r.StartedAt, err = parseTS(started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	return r, nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}
