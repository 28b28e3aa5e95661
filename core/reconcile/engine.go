package reconcile

import (
	"context"
	"time"

	"schema-manager/core/schema"
	"schema-manager/core/schema/diff"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciler converges a remote store towards a target definition, one collection at a time.
type Reconciler struct {
	store  Store
	differ *diff.Differ
	logger *zap.Logger
	opts   Options
}

// New creates a Reconciler writing to store.
func New(store Store, logger *zap.Logger, opts Options) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	reserved := opts.Reserved
	if reserved == nil {
		reserved = diff.DefaultReserved
	}
	return &Reconciler{
		store:  store,
		differ: diff.New(logger, reserved),
		logger: logger,
		opts:   opts,
	}
}

// Reconcile plans and applies every collection of def in order. A collection's write
// completes before the next collection is looked up. Failures are recorded in the report
// and never stop the run.
func (r *Reconciler) Reconcile(ctx context.Context, def schema.Definition) *Report {
	return r.run(ctx, def, r.opts.DryRun)
}

// DryRun plans every collection of def without writing anything.
func (r *Reconciler) DryRun(ctx context.Context, def schema.Definition) *Report {
	return r.run(ctx, def, true)
}

func (r *Reconciler) run(ctx context.Context, def schema.Definition, dryRun bool) *Report {
	report := newReport("reconcile", dryRun)
	l := r.logger.With(zap.String("run_id", report.RunID))
	l.Info("Reconciliation started", zap.Int("collections", len(def)), zap.Bool("dry_run", dryRun))

	for _, target := range def {
		if err := ctx.Err(); err != nil {
			report.Results = append(report.Results, Result{
				Collection: target.Name,
				Status:     StatusFailed,
				Error:      err.Error(),
			})
			continue
		}
		action := r.plan(ctx, l, target)
		report.Results = append(report.Results, r.apply(ctx, l, action, dryRun))
	}

	report.FinishedAt = time.Now()
	l.Info("Reconciliation finished",
		zap.Any("summary", report.Summary()),
		zap.Int("failed", report.Failed()),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report
}

func newReport(kind string, dryRun bool) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Kind:      kind,
		DryRun:    dryRun,
		StartedAt: time.Now(),
		Results:   []Result{},
	}
}
