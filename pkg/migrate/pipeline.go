package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/tablemigrate/pkg/connector"
	"github.com/leapstack-labs/tablemigrate/pkg/core"
)

// TargetSuffix is appended to the source table name when no target is given.
const TargetSuffix = "_migrated"

// DefaultTargetTable returns the target name used when none is specified.
func DefaultTargetTable(source string) string {
	return source + TargetSuffix
}

// Request selects the tables of one migration.
type Request struct {
	SourceTable string
	TargetTable string
}

// withDefaults fills in the default target table name.
func (r Request) withDefaults() Request {
	r.SourceTable = strings.TrimSpace(r.SourceTable)
	r.TargetTable = strings.TrimSpace(r.TargetTable)
	if r.TargetTable == "" {
		r.TargetTable = DefaultTargetTable(r.SourceTable)
	}
	return r
}

// Result describes a successful migration.
type Result struct {
	SourceTable string
	TargetTable string

	// Rows is the number of rows inserted into the target.
	Rows int64

	// Created is true when the target table did not exist before the run.
	Created bool

	Duration time.Duration
}

// Status is a progress update of a running migration.
type Status struct {
	Stage   Stage
	Message string
}

func (s Status) String() string {
	return s.Message
}

// Pipeline migrates tables between two connected connectors.
// Source and Target may be the same connector. A Pipeline issues one call at
// a time to each connector and must not run concurrently with itself.
type Pipeline struct {
	Source connector.Connector
	Target connector.Connector
	Logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.Logger = logger
		}
	}
}

// New creates a pipeline over two connected connectors.
func New(source, target connector.Connector, opts ...Option) *Pipeline {
	p := &Pipeline{
		Source: source,
		Target: target,
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run migrates req.SourceTable into req.TargetTable. report, if not nil,
// receives status updates in order. Every failure is a *StageError.
func (p *Pipeline) Run(ctx context.Context, req Request, report func(Status)) (*Result, error) {
	if report == nil {
		report = func(Status) {}
	}
	req = req.withDefaults()
	start := time.Now()

	fail := func(stage Stage, err error) (*Result, error) {
		stageErr := &StageError{Stage: stage, SourceTable: req.SourceTable, TargetTable: req.TargetTable, Err: err}
		p.Logger.Error("migration failed",
			slog.String("source", req.SourceTable),
			slog.String("target", req.TargetTable),
			slog.String("stage", string(stage)),
			slog.String("error", err.Error()))
		report(Status{Stage: stage, Message: "Migration failed: " + err.Error()})
		return nil, stageErr
	}

	if req.SourceTable == "" {
		return fail(StageSchema, errors.New("source table name is required"))
	}
	if p.Source == nil || p.Target == nil {
		return fail(StageConnect, errors.New("source and target connectors are required"))
	}

	p.Logger.Info("migration starting", slog.String("source", req.SourceTable), slog.String("target", req.TargetTable))
	report(Status{Stage: StageSchema, Message: fmt.Sprintf("Migration starting for '%s' to '%s'...", req.SourceTable, req.TargetTable)})

	schema, err := p.Source.GetSchema(ctx, req.SourceTable)
	if err != nil {
		return fail(StageSchema, err)
	}
	if schema == nil {
		report(Status{Stage: StageSchema, Message: fmt.Sprintf("Error: Could not get schema for source table '%s'.", req.SourceTable)})
		return fail(StageSchema, fmt.Errorf("%w: %s", connector.ErrSchemaNotFound, req.SourceTable))
	}

	report(Status{Stage: StageCreate, Message: fmt.Sprintf("Creating target table '%s' (%d columns)...", req.TargetTable, len(schema.Columns))})
	existing, err := p.Target.GetSchema(ctx, req.TargetTable)
	if err != nil {
		return fail(StageCreate, err)
	}
	if err := p.Target.CreateTable(ctx, req.TargetTable, *schema); err != nil {
		return fail(StageCreate, err)
	}
	created := existing == nil

	report(Status{Stage: StageExtract, Message: fmt.Sprintf("Extracting rows from '%s'...", req.SourceTable)})
	rows, err := p.Source.ExtractData(ctx, req.SourceTable)
	if err != nil {
		return fail(StageExtract, err)
	}

	result := &Result{SourceTable: req.SourceTable, TargetTable: req.TargetTable, Created: created}

	if len(rows) == 0 {
		result.Duration = time.Since(start)
		p.Logger.Info("migration complete, source table was empty",
			slog.String("source", req.SourceTable), slog.String("target", req.TargetTable))
		report(Status{Stage: StageDone, Message: emptyMessage(req, created)})
		return result, nil
	}

	report(Status{Stage: StageLoad, Message: fmt.Sprintf("Loading %d rows into '%s'...", len(rows), req.TargetTable)})
	inserted, err := p.Target.LoadData(ctx, req.TargetTable, rows)
	if err != nil {
		return fail(StageLoad, err)
	}

	result.Rows = inserted
	result.Duration = time.Since(start)
	p.Logger.Info("migration successful",
		slog.String("source", req.SourceTable),
		slog.String("target", req.TargetTable),
		slog.Int64("rows", inserted),
		slog.Duration("duration", result.Duration))
	report(Status{Stage: StageDone, Message: fmt.Sprintf("Migration successful: %d rows transferred from '%s' to '%s'.",
		inserted, req.SourceTable, req.TargetTable)})
	return result, nil
}

func emptyMessage(req Request, created bool) string {
	if created {
		return fmt.Sprintf("Migration complete: Source table '%s' was empty. Target table '%s' created.", req.SourceTable, req.TargetTable)
	}
	return fmt.Sprintf("Migration complete: Source table '%s' was empty. Target table '%s' already existed.", req.SourceTable, req.TargetTable)
}

// Connect resolves the connector for cfg through the registry and connects it.
// Failures are *StageError values at StageConnect.
func Connect(ctx context.Context, cfg core.ConnectionConfig, logger *slog.Logger) (connector.Connector, error) {
	c, err := connector.ForConfig(cfg, logger)
	if err != nil {
		return nil, &StageError{Stage: StageConnect, Err: err}
	}
	if err := c.Connect(ctx, cfg); err != nil {
		return nil, &StageError{Stage: StageConnect, Err: err}
	}
	return c, nil
}

// Open connects both endpoints of a migration config and returns a pipeline
// over them. Call Close to disconnect.
func Open(ctx context.Context, cfg *core.MigrationConfig, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("migration config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := New(nil, nil, opts...)

	src, err := Connect(ctx, cfg.Source, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	dst, err := Connect(ctx, cfg.Target, p.Logger)
	if err != nil {
		_ = src.Disconnect()
		return nil, fmt.Errorf("target: %w", err)
	}

	p.Source, p.Target = src, dst
	return p, nil
}

// Close disconnects the source and target connectors.
func (p *Pipeline) Close() error {
	var errs []error
	if p.Source != nil {
		errs = append(errs, p.Source.Disconnect())
	}
	if p.Target != nil && p.Target != p.Source {
		errs = append(errs, p.Target.Disconnect())
	}
	return errors.Join(errs...)
}
