// Package store persists finished runs and their report documents in a
// SQLite archive so they survive daemon restarts and can be inspected
// from the CLI.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/lumen-phi/photonic-core/pkg/logger"
	"github.com/lumen-phi/photonic-core/pkg/models"
)

// Archive wraps a SQLite connection holding archived runs.
type Archive struct {
	db *sqlx.DB
}

// Record is one archived run row. Input carries the submitted run input
// and Report the document the run produced, both as JSON verbatim.
type Record struct {
	ID              string `db:"id" json:"id"`
	Kind            string `db:"kind" json:"kind"`
	Status          string `db:"status" json:"status"`
	CreatedAtUnixMs int64  `db:"created_at_unix_ms" json:"created_at_unix_ms"`
	StartedAtUnixMs int64  `db:"started_at_unix_ms" json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64  `db:"ended_at_unix_ms" json:"ended_at_unix_ms,omitempty"`
	Error           string `db:"error" json:"error,omitempty"`
	Input           string `db:"input_json" json:"input,omitempty"`
	Report          string `db:"report_json" json:"report,omitempty"`
}

// FromRun builds an archive record from a tracked run plus its payloads.
func FromRun(run *models.Run, input, report string) *Record {
	return &Record{
		ID:              run.ID,
		Kind:            string(run.Kind),
		Status:          string(run.Status),
		CreatedAtUnixMs: run.CreatedAtUnixMs,
		StartedAtUnixMs: run.StartedAtUnixMs,
		EndedAtUnixMs:   run.EndedAtUnixMs,
		Error:           run.Error,
		Input:           input,
		Report:          report,
	}
}

// Run converts the record back into the tracked-run shape.
func (r *Record) Run() *models.Run {
	return &models.Run{
		ID:              r.ID,
		Kind:            models.RunKind(r.Kind),
		Status:          models.RunStatus(r.Status),
		CreatedAtUnixMs: r.CreatedAtUnixMs,
		StartedAtUnixMs: r.StartedAtUnixMs,
		EndedAtUnixMs:   r.EndedAtUnixMs,
		Error:           r.Error,
	}
}

// Open opens or creates the archive database at the given path.
func Open(path string) (*Archive, error) {
	if path == "" {
		return nil, errors.New("archive path is required")
	}

	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}

	logger.Debug("run archive opened", "path", path)
	return a, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at_unix_ms INTEGER NOT NULL,
		started_at_unix_ms INTEGER NOT NULL DEFAULT 0,
		ended_at_unix_ms INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		input_json TEXT NOT NULL DEFAULT '',
		report_json TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at_unix_ms);
	CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
	`
	_, err := a.db.Exec(schema)
	return err
}

// SaveRecord inserts or updates an archived run. Records submitted without
// an ID (ad-hoc CLI archiving) are assigned a fresh UUID.
func (a *Archive) SaveRecord(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("record is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	_, err := a.db.NamedExecContext(ctx, `
		INSERT INTO runs
			(id, kind, status, created_at_unix_ms, started_at_unix_ms,
			 ended_at_unix_ms, error, input_json, report_json)
		VALUES
			(:id, :kind, :status, :created_at_unix_ms, :started_at_unix_ms,
			 :ended_at_unix_ms, :error, :input_json, :report_json)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			started_at_unix_ms = excluded.started_at_unix_ms,
			ended_at_unix_ms = excluded.ended_at_unix_ms,
			error = excluded.error,
			report_json = excluded.report_json
	`, rec)
	if err != nil {
		return fmt.Errorf("save run %s: %w", rec.ID, err)
	}

	logger.Debug("run archived", "run_id", rec.ID, "status", rec.Status)
	return nil
}

// GetRecord looks up one archived run by ID. A missing row is not an error.
func (a *Archive) GetRecord(ctx context.Context, id string) (*Record, bool, error) {
	var rec Record
	err := a.db.GetContext(ctx, &rec, `SELECT * FROM runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get run %s: %w", id, err)
	}
	return &rec, true, nil
}

// ListRecords returns archived runs newest first.
func (a *Archive) ListRecords(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []*Record
	err := a.db.SelectContext(ctx, &recs, `
		SELECT * FROM runs ORDER BY created_at_unix_ms DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return recs, nil
}

// ListByKind returns archived runs of one kind, newest first.
func (a *Archive) ListByKind(ctx context.Context, kind string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []*Record
	err := a.db.SelectContext(ctx, &recs, `
		SELECT * FROM runs WHERE kind = ? ORDER BY created_at_unix_ms DESC LIMIT ?
	`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s runs: %w", kind, err)
	}
	return recs, nil
}
