// Package store persists the run history and queue in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diagenlab/diagen/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ RunReader  = (*Store)(nil)
	_ RunWriter  = (*Store)(nil)
	_ RunClaimer = (*Store)(nil)
)

// Store provides data access to the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 1

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	migrations := []func() error{
		s.migrateV1, // v0 → v1: initial schema
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema (v0 → v1).
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id              TEXT PRIMARY KEY,
		brief           TEXT NOT NULL,
		slide_format    TEXT NOT NULL,
		image_model     TEXT NOT NULL,
		max_rounds      INTEGER NOT NULL,
		status          TEXT NOT NULL,
		category        TEXT,
		rounds_taken    INTEGER,
		approved        INTEGER,
		image_path      TEXT,
		run_dir         TEXT,
		elapsed_seconds REAL,
		error_info      TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status, updated_at);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

const runColumns = `id, brief, slide_format, image_model, max_rounds, status,
	category, rounds_taken, approved, image_path, run_dir, elapsed_seconds,
	error_info, created_at, updated_at`

func scanRun(row interface{ Scan(...any) error }) (*model.Run, error) {
	var r model.Run
	var approved *int
	err := row.Scan(
		&r.ID, &r.Brief, &r.SlideFormat, &r.ImageModel, &r.MaxRounds, &r.Status,
		&r.Category, &r.RoundsTaken, &approved, &r.ImagePath, &r.RunDir,
		&r.ElapsedSeconds, &r.ErrorInfo, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if approved != nil {
		b := *approved != 0
		r.Approved = &b
	}
	return &r, nil
}

// CreateRun inserts a new run row.
func (s *Store) CreateRun(ctx context.Context, run model.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, brief, slide_format, image_model, max_rounds, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Brief, run.SlideFormat, run.ImageModel, run.MaxRounds,
		run.Status, run.CreatedAt, run.UpdatedAt,
	)
	return err
}

// GetRun fetches one run by id. Returns nil when no row matches.
func (s *Store) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// ListRuns returns runs matching the filter, newest first.
func (s *Store) ListRuns(ctx context.Context, f model.RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if len(f.Status) > 0 {
		placeholders := strings.Repeat("?,", len(f.Status))
		query += ` WHERE status IN (` + placeholders[:len(placeholders)-1] + `)`
		for _, st := range f.Status {
			args = append(args, st)
		}
	}
	query += ` ORDER BY created_at DESC`
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// UpdateRunStatus sets a run's status and optional error info.
func (s *Store) UpdateRunStatus(ctx context.Context, id, newStatus string, errorInfo *string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error_info = ?, updated_at = ? WHERE id = ?`,
		newStatus, errorInfo, nowRFC3339(), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// CompleteRun marks a run DONE and records its final fields.
func (s *Store) CompleteRun(ctx context.Context, id string, c RunCompletion) error {
	approved := 0
	if c.Approved {
		approved = 1
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, category = ?, rounds_taken = ?, approved = ?,
			image_path = ?, run_dir = ?, elapsed_seconds = ?, error_info = NULL, updated_at = ?
		WHERE id = ?`,
		model.StatusDone, c.Category, c.RoundsTaken, approved,
		c.ImagePath, c.RunDir, c.ElapsedSeconds, nowRFC3339(), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// ClaimNextQueued atomically claims the oldest QUEUED run and marks it
// RUNNING. Returns nil when the queue is empty.
func (s *Store) ClaimNextQueued(ctx context.Context) (*model.Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE status = ? ORDER BY created_at ASC LIMIT 1`,
		model.StatusQueued,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		model.StatusRunning, nowRFC3339(), run.ID,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	run.Status = model.StatusRunning
	return run, nil
}

// ResetStaleRunning returns RUNNING runs to QUEUED. Called at startup to
// recover runs orphaned by a previous crash.
func (s *Store) ResetStaleRunning(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, updated_at = ? WHERE status = ?`,
		model.StatusQueued, nowRFC3339(), model.StatusRunning,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
