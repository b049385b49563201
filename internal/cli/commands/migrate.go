package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tablemigrate/internal/cli/output"
	"github.com/leapstack-labs/tablemigrate/internal/state"
	"github.com/leapstack-labs/tablemigrate/pkg/core"
	"github.com/leapstack-labs/tablemigrate/pkg/migrate"
)

// MigrateOptions holds options for the migrate command.
type MigrateOptions struct {
	Tables      []string
	Concurrency int
}

// migrationView is the serialized outcome of one migration.
type migrationView struct {
	RunID       string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	SourceTable string `json:"source_table" yaml:"source_table"`
	TargetTable string `json:"target_table" yaml:"target_table"`
	Status      string `json:"status" yaml:"status"`
	Rows        int64  `json:"rows" yaml:"rows"`
	Created     bool   `json:"created" yaml:"created"`
	Duration    string `json:"duration" yaml:"duration"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	opts := &MigrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate <source-table> [target-table]",
		Short: "Copy a table from the source database into the target database",
		Long: `Copy one table's structure and rows from the source into the target.

The target table is created from the source schema when it does not exist
and defaults to <source-table>_migrated. All rows are inserted in a single
transaction: on failure the target table keeps its previous contents.

With --tables, several tables are migrated in parallel, each into
<table>_migrated over its own pair of connections.`,
		Example: `  # SQLite to SQLite
  tablemigrate migrate users --source app.db --target copy.db

  # Into Postgres with an explicit target table
  tablemigrate migrate users people --source app.db --target postgres://localhost/app

  # Several tables, four at a time
  tablemigrate migrate --tables users,orders,items --concurrency 4`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(opts.Tables) > 0 {
				if len(args) > 0 {
					return errors.New("use either positional tables or --tables, not both")
				}
				return nil
			}
			return cobra.RangeArgs(1, 2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, args, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Tables, "tables", nil, "comma-separated source tables to migrate in parallel")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "parallel migrations with --tables (0 = number of CPUs)")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string, opts *MigrateOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	mc, err := cc.Cfg.MigrationConfig()
	if err != nil {
		return err
	}

	ctx, cancel := cc.Context(cmd.Context())
	defer cancel()

	history, err := cc.OpenHistory(ctx)
	if err != nil {
		cc.Logger.Warn("run history unavailable", slog.Any("error", err))
	}
	if history != nil {
		defer func() { _ = history.Close() }()
	}
	rec := &recorder{store: history, cfg: mc, logger: cc.Logger}

	var reqs []migrate.Request
	if len(opts.Tables) > 0 {
		for _, t := range opts.Tables {
			if t = strings.TrimSpace(t); t != "" {
				reqs = append(reqs, migrate.Request{SourceTable: t, TargetTable: migrate.DefaultTargetTable(t)})
			}
		}
		if len(reqs) == 0 {
			return errors.New("--tables is empty")
		}
		concurrency := opts.Concurrency
		if concurrency == 0 {
			concurrency = cc.Cfg.Concurrency
		}
		return migrateBatch(ctx, cc, mc, rec, reqs, concurrency)
	}

	req := migrate.Request{SourceTable: args[0]}
	if len(args) > 1 {
		req.TargetTable = args[1]
	}
	if strings.TrimSpace(req.TargetTable) == "" {
		req.TargetTable = migrate.DefaultTargetTable(strings.TrimSpace(req.SourceTable))
	}
	return migrateOne(ctx, cc, mc, rec, req)
}

func migrateOne(ctx context.Context, cc *CommandContext, mc *core.MigrationConfig, rec *recorder, req migrate.Request) error {
	runID := rec.start(ctx, req)
	started := time.Now()

	p, err := migrate.Open(ctx, mc, migrate.WithLogger(cc.Logger))
	if err != nil {
		cc.Renderer.Status("Migration failed: %v", err)
		rec.finish(ctx, runID, nil, err)
		return err
	}
	defer func() { _ = p.Close() }()

	res, err := migrate.Wait(p.Start(ctx, req), func(s migrate.Status) {
		cc.Renderer.Status("%s", s.Message)
	})
	rec.finish(ctx, runID, res, err)

	view := newMigrationView(runID, req, res, err, time.Since(started))
	if renderErr := cc.Renderer.Render(migrationTable([]migrationView{view}), view); renderErr != nil {
		return renderErr
	}
	return err
}

func migrateBatch(ctx context.Context, cc *CommandContext, mc *core.MigrationConfig, rec *recorder, reqs []migrate.Request, concurrency int) error {
	runIDs := make([]string, len(reqs))
	for i, req := range reqs {
		runIDs[i] = rec.start(ctx, req)
	}

	started := time.Now()
	results, batchErr := migrate.Batch(ctx, migrate.ConfigOpener(mc, cc.Logger), reqs, migrate.BatchOptions{
		Concurrency: concurrency,
		Logger:      cc.Logger,
		Report: func(req migrate.Request, s migrate.Status) {
			cc.Renderer.Status("[%s] %s", req.SourceTable, s.Message)
		},
	})
	elapsed := time.Since(started)

	views := make([]migrationView, len(results))
	for i, r := range results {
		rec.finish(ctx, runIDs[i], r.Result, r.Err)
		d := elapsed
		if r.Result != nil {
			d = r.Result.Duration
		}
		views[i] = newMigrationView(runIDs[i], r.Request, r.Result, r.Err, d)
	}

	if err := cc.Renderer.Render(migrationTable(views), views); err != nil {
		return err
	}
	if batchErr != nil {
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		return fmt.Errorf("%d of %d migrations failed", failed, len(results))
	}
	return nil
}

func newMigrationView(runID string, req migrate.Request, res *migrate.Result, err error, d time.Duration) migrationView {
	v := migrationView{
		RunID:       runID,
		SourceTable: req.SourceTable,
		TargetTable: req.TargetTable,
		Status:      string(runStatus(err)),
		Duration:    d.Round(time.Millisecond).String(),
	}
	if res != nil {
		v.Rows = res.Rows
		v.Created = res.Created
	}
	if err != nil {
		v.Error = err.Error()
	}
	return v
}

func migrationTable(views []migrationView) output.Table {
	rows := make([][]any, len(views))
	for i, v := range views {
		rows[i] = []any{v.SourceTable, v.TargetTable, v.Status, v.Rows, yesNo(v.Created), v.Duration}
	}
	return output.Table{
		Headers: []string{"source", "target", "status", "rows", "created", "duration"},
		Rows:    rows,
	}
}

func runStatus(err error) state.RunStatus {
	switch {
	case err == nil:
		return state.RunStatusCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return state.RunStatusCancelled
	default:
		return state.RunStatusFailed
	}
}

// recorder writes run history. A nil store records nothing.
type recorder struct {
	store  *state.Store
	cfg    *core.MigrationConfig
	logger *slog.Logger
}

func (r *recorder) start(ctx context.Context, req migrate.Request) string {
	if r.store == nil {
		return ""
	}
	project := ""
	if r.cfg.ProjectName != nil {
		project = *r.cfg.ProjectName
	}
	run, err := r.store.CreateRun(ctx, state.NewRun{
		Project:     project,
		Source:      describe(r.cfg.Source),
		Target:      describe(r.cfg.Target),
		SourceTable: req.SourceTable,
		TargetTable: req.TargetTable,
	})
	if err != nil {
		r.logger.Warn("failed to record run", slog.Any("error", err))
		return ""
	}
	return run.ID
}

func (r *recorder) finish(ctx context.Context, runID string, res *migrate.Result, runErr error) {
	if r.store == nil || runID == "" {
		return
	}
	var rows int64
	if res != nil {
		rows = res.Rows
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	// The run context may already be cancelled; the record should still land.
	if err := r.store.CompleteRun(context.WithoutCancel(ctx), runID, runStatus(runErr), rows, msg); err != nil {
		r.logger.Warn("failed to complete run record", slog.String("run_id", runID), slog.Any("error", err))
	}
}
