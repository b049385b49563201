package migrate

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/tablemigrate/pkg/connector"
	"github.com/leapstack-labs/tablemigrate/pkg/core"
)

// Opener returns a fresh, connected source and target for one migration.
// Batch disconnects both when the migration ends.
type Opener func(ctx context.Context) (source, target connector.Connector, err error)

// ConfigOpener returns an Opener that connects new connectors for cfg on every call.
func ConfigOpener(cfg *core.MigrationConfig, logger *slog.Logger) Opener {
	return func(ctx context.Context) (connector.Connector, connector.Connector, error) {
		p, err := Open(ctx, cfg, WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return p.Source, p.Target, nil
	}
}

// BatchResult is the outcome of one request of a batch.
type BatchResult struct {
	Request Request
	Result  *Result
	Err     error
}

// BatchOptions configures Batch.
type BatchOptions struct {
	// Concurrency bounds parallel migrations. Zero means GOMAXPROCS.
	Concurrency int

	Logger *slog.Logger

	// Report receives status updates tagged with their request.
	// It is called from several goroutines at once.
	Report func(Request, Status)
}

// Batch runs independent migrations in parallel, each over its own connector
// pair from open. One failure does not stop the others. Results keep the
// order of reqs; the returned error joins every failure.
func Batch(ctx context.Context, open Opener, reqs []Request, opts BatchOptions) ([]BatchResult, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	results := make([]BatchResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range reqs {
		req = req.withDefaults()
		results[i].Request = req

		g.Go(func() error {
			results[i].Result, results[i].Err = runOne(ctx, open, req, logger, opts.Report)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}

func runOne(ctx context.Context, open Opener, req Request, logger *slog.Logger, report func(Request, Status)) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageConnect, SourceTable: req.SourceTable, TargetTable: req.TargetTable, Err: err}
	}

	src, dst, err := open(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageConnect, SourceTable: req.SourceTable, TargetTable: req.TargetTable, Err: err}
	}

	p := New(src, dst, WithLogger(logger.With(slog.String("source_table", req.SourceTable))))
	defer func() { _ = p.Close() }()

	var onStatus func(Status)
	if report != nil {
		onStatus = func(s Status) { report(req, s) }
	}
	return p.Run(ctx, req, onStatus)
}
