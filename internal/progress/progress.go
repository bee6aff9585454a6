// Package progress persists run history in a local SQLite database so
// past documentation passes can be inspected and reported on.
package progress

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DefaultPath is the database location relative to the working
// directory.
const DefaultPath = ".docauto/progress.db"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// FileStatus is the outcome of one file within a run.
type FileStatus string

const (
	FileStatusPending   FileStatus = "pending"
	FileStatusProcessed FileStatus = "processed"
	FileStatusFailed    FileStatus = "failed"
	FileStatusSkipped   FileStatus = "skipped"
)

// Run is one documentation pass.
type Run struct {
	ID           string
	StartedAt    time.Time
	CompletedAt  *time.Time
	Status       RunStatus
	DryRun       bool
	Provider     string
	Model        string
	FilesTotal   int
	FilesUpdated int
	FilesFailed  int
	Error        string
}

// FileResult is the per-file outcome within a run.
type FileResult struct {
	RunID           string
	Path            string
	Status          FileStatus
	UnitsTotal      int
	UnitsDocumented int
	Error           string
	UpdatedAt       time.Time
}

// Store is the SQLite-backed run history.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the store at path, creating the database and schema on
// demand. Use ":memory:" for an in-memory store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create progress directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open progress database: %w", err)
	}

	// Single connection: keeps writers serialized and makes :memory:
	// databases shared across the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure progress database: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize progress schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateRun records the start of a run and returns it.
func (s *Store) CreateRun(ctx context.Context, dryRun bool, provider, model string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Status:    RunStatusRunning,
		DryRun:    dryRun,
		Provider:  provider,
		Model:     model,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status, dry_run, provider, model) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, string(run.Status), boolToInt(run.DryRun), run.Provider, run.Model,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// RecordFile upserts the outcome of one file within a run.
func (s *Store) RecordFile(ctx context.Context, result FileResult) error {
	if result.UpdatedAt.IsZero() {
		result.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO file_results (run_id, path, status, units_total, units_documented, error, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, path) DO UPDATE SET
		     status = excluded.status,
		     units_total = excluded.units_total,
		     units_documented = excluded.units_documented,
		     error = excluded.error,
		     updated_at = excluded.updated_at`,
		result.RunID, result.Path, string(result.Status),
		result.UnitsTotal, result.UnitsDocumented, nullable(result.Error), result.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record file result: %w", err)
	}
	return nil
}

// CompleteRun finalizes a run with its status and counters.
func (s *Store) CompleteRun(ctx context.Context, id string, status RunStatus, filesTotal, filesUpdated, filesFailed int, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, files_total = ?, files_updated = ?, files_failed = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), filesTotal, filesUpdated, filesFailed, nullable(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, completed_at, status, dry_run, provider, model,
		        files_total, files_updated, files_failed, error
		 FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, completed_at, status, dry_run, provider, model,
		        files_total, files_updated, files_failed, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListFileResults returns the per-file outcomes of a run in path order.
func (s *Store) ListFileResults(ctx context.Context, runID string) ([]FileResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, path, status, units_total, units_documented, error, updated_at
		 FROM file_results WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list file results: %w", err)
	}
	defer rows.Close()

	var results []FileResult
	for rows.Next() {
		var r FileResult
		var status string
		var errMsg sql.NullString
		if err := rows.Scan(&r.RunID, &r.Path, &status, &r.UnitsTotal, &r.UnitsDocumented, &errMsg, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file result: %w", err)
		}
		r.Status = FileStatus(status)
		r.Error = errMsg.String
		results = append(results, r)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime
	var status string
	var dryRun int
	var errMsg sql.NullString

	err := row.Scan(&run.ID, &run.StartedAt, &completedAt, &status, &dryRun,
		&run.Provider, &run.Model, &run.FilesTotal, &run.FilesUpdated, &run.FilesFailed, &errMsg)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	run.DryRun = dryRun != 0
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
