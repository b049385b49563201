package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one recorded table migration.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	Project     string     `json:"project,omitempty" yaml:"project,omitempty"`
	Source      string     `json:"source" yaml:"source"`
	Target      string     `json:"target" yaml:"target"`
	SourceTable string     `json:"source_table" yaml:"source_table"`
	TargetTable string     `json:"target_table" yaml:"target_table"`
	Status      RunStatus  `json:"status" yaml:"status"`
	Rows        int64      `json:"rows" yaml:"rows"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Duration is the elapsed time of a completed run, or zero.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// NewRun describes a run about to start.
type NewRun struct {
	Project     string
	Source      string
	Target      string
	SourceTable string
	TargetTable string
}

// Fixed width keeps lexical and chronological order identical.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

const runColumns = `id, project, source, target, source_table, target_table, status, row_count, error, started_at, completed_at`

// CreateRun records a run in the running state.
func (s *Store) CreateRun(ctx context.Context, in NewRun) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	run := &Run{
		ID:          generateID(),
		Project:     in.Project,
		Source:      in.Source,
		Target:      in.Target,
		SourceTable: in.SourceTable,
		TargetTable: in.TargetTable,
		Status:      RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}

	s.logger.Debug("creating run", "id", run.ID, "source_table", run.SourceTable)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, project, source, target, source_table, target_table, status, row_count, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		run.ID, run.Project, run.Source, run.Target, run.SourceTable, run.TargetTable,
		string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun sets the final status, row count and error message of a run.
func (s *Store) CompleteRun(ctx context.Context, id string, status RunStatus, rows int64, errMsg string) error {
	if s.db == nil {
		return ErrNotOpen
	}

	var errValue sql.NullString
	if errMsg != "" {
		errValue = sql.NullString{String: errMsg, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, row_count = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(status), rows, errValue, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run         Run
		status      string
		errMsg      sql.NullString
		startedAt   string
		completedAt sql.NullString
	)
	err := sc.Scan(&run.ID, &run.Project, &run.Source, &run.Target, &run.SourceTable, &run.TargetTable,
		&status, &run.Rows, &errMsg, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	run.Error = errMsg.String
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at %q: %w", completedAt.String, err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}
