// Package s3_volume builds the 12 month wide volume table per billing
// agreement with trailing 1/3/6/9/12 month totals and averages.
package s3_volume

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/pkg/logger"
	"github.com/wonny/ship2profile/pkg/period"
)

// Builder runs pivot, tenure reconciliation and windowed aggregation
type Builder struct {
	store      contracts.FileStore
	reconciler contracts.TenureReconciler
	logger     *logger.Logger
}

// Options configures one build
type Options struct {
	ReferenceDate  time.Time
	LookbackMonths int
	Horizons       []int
	AuditVerfa     []string
}

// Result summarizes a build
type Result struct {
	Rows          int
	UniqueAbrnr   int
	ConflictAbrnr int
	WindowFrom    period.Period
	WindowTo      period.Period
}

// NewBuilder creates a volume builder
func NewBuilder(store contracts.FileStore, reconciler contracts.TenureReconciler, log *logger.Logger) *Builder {
	return &Builder{
		store:      store,
		reconciler: reconciler,
		logger:     log,
	}
}

// Build reads df_monthly_facts and writes df_sh2pr_12M_abrnr plus the audit slices
func (b *Builder) Build(ctx context.Context, opts Options) (*Result, error) {
	from, to := period.Window(opts.ReferenceDate, opts.LookbackMonths)
	window := period.Range(from, to)

	b.logger.WithFields(map[string]interface{}{
		"from": from,
		"to":   to,
	}).Info("building trailing volume windows")

	src, err := b.store.Load(ctx, contracts.DatasetMonthlyFacts)
	if err != nil {
		return nil, fmt.Errorf("load monthly facts: %w", err)
	}

	facts, err := FactsFromTable(src)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		b.logger.Warn("monthly facts are empty")
	}

	pivoted := Pivot(facts, window)
	resolution := b.reconciler.Reconcile(pivoted)

	if len(resolution.Keys) > 0 {
		conflicts, err := ToTable(resolution.Conflicts, nil)
		if err != nil {
			return nil, err
		}
		if err := b.store.Save(ctx, contracts.DatasetTenureConflicts, conflicts); err != nil {
			return nil, fmt.Errorf("save tenure conflicts: %w", err)
		}
		b.logger.WithField("dataset", contracts.DatasetTenureConflicts).
			Warnf("%d billing agreements had several kunden_seit values", len(resolution.Keys))
	}

	rows := Aggregate(resolution.Rows, opts.ReferenceDate, opts.Horizons)

	out, err := ToTable(rows, opts.Horizons)
	if err != nil {
		return nil, err
	}
	if err := b.store.Save(ctx, contracts.DatasetVolume12M, out); err != nil {
		return nil, fmt.Errorf("save volume table: %w", err)
	}
	b.logger.Infof("df_sh2pr_12M_abr shape (%d, %d) | unique 'abrnr': %d", out.Len(), out.Width(), out.Distinct(ColAbrnr))

	for _, v := range opts.AuditVerfa {
		slice, err := ToTable(SliceByVerfa(rows, contracts.Verfa(v)), opts.Horizons)
		if err != nil {
			return nil, err
		}
		if err := b.store.Save(ctx, contracts.AuditSliceName(v), slice); err != nil {
			return nil, fmt.Errorf("save verfa %s slice: %w", v, err)
		}
		b.logger.Infof("df_sh2pr_12M_abr Verf=%s shape (%d, %d) | unique 'abrnr': %d", v, slice.Len(), slice.Width(), slice.Distinct(ColAbrnr))
	}

	return &Result{
		Rows:          len(rows),
		UniqueAbrnr:   out.Distinct(ColAbrnr),
		ConflictAbrnr: len(resolution.Keys),
		WindowFrom:    from,
		WindowTo:      to,
	}, nil
}
