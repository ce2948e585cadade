package s5_weight

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/s1_mapping"
	"github.com/wonny/ship2profile/pkg/logger"
)

// Result summarizes one estimation run
type Result struct {
	Accounts      int
	Unattributed  int
	Buckets       []Bucket
	TotalCustomer float64
}

// Estimator is the weight distribution stage
type Estimator struct {
	store    contracts.FileStore
	brackets []string
	logger   *logger.Logger
}

// NewEstimator creates the stage for the configured bracket columns
func NewEstimator(store contracts.FileStore, brackets []string, log *logger.Logger) *Estimator {
	return &Estimator{store: store, brackets: brackets, logger: log}
}

// Run prepares the per-account weights, then estimates the distribution
func (e *Estimator) Run(ctx context.Context) (*Result, error) {
	e.logger.Info("starting weight distribution calculations")

	prepared, dropped, err := e.prepare(ctx)
	if err != nil {
		return nil, err
	}

	res, err := e.estimate(ctx)
	if err != nil {
		return nil, err
	}
	res.Accounts = prepared
	res.Unattributed = dropped
	return res, nil
}

func (e *Estimator) prepare(ctx context.Context) (int, int, error) {
	src, err := e.store.Load(ctx, contracts.DatasetProdGewicht)
	if err != nil {
		return 0, 0, fmt.Errorf("load weights: %w", err)
	}
	mapping, err := s1_mapping.LoadMapping(ctx, e.store)
	if err != nil {
		return 0, 0, err
	}

	accounts, err := Prepare(src, e.brackets, mapping)
	if err != nil {
		return 0, 0, err
	}

	mapped := lo.UniqBy(accounts, func(a Account) contracts.Abrnr { return a.Abrnr })
	dropped := src.Distinct(ColAbrnr) - len(mapped)
	if dropped > 0 {
		e.logger.Warnf("%d abrnr without kalknr dropped from weight data", dropped)
	}

	t, err := PreparedTable(accounts, e.brackets)
	if err != nil {
		return 0, 0, err
	}
	if err := e.store.Save(ctx, contracts.DatasetProdGewichtPrepared, t); err != nil {
		return 0, 0, fmt.Errorf("save prepared weights: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"input_rows":    src.Len(),
		"prepared_rows": len(accounts),
	}).Info("weight data prepared")
	return len(accounts), dropped, nil
}

func (e *Estimator) estimate(ctx context.Context) (*Result, error) {
	t, err := e.store.Load(ctx, contracts.DatasetProdGewichtPrepared)
	if err != nil {
		return nil, fmt.Errorf("load prepared weights: %w", err)
	}
	accounts, err := AccountsFromTable(t, e.brackets)
	if err != nil {
		return nil, err
	}

	buckets := Estimate(accounts, len(e.brackets))
	out, err := DistributionTable(buckets, e.brackets)
	if err != nil {
		return nil, err
	}
	if err := e.store.Save(ctx, contracts.DatasetWeightDistribution, out); err != nil {
		return nil, fmt.Errorf("save weight distribution: %w", err)
	}

	total := lo.SumBy(buckets, func(b Bucket) float64 { return b.AnzKunde })
	e.logger.WithFields(map[string]interface{}{
		"buckets":   len(buckets),
		"customers": total,
	}).Info("weight distribution calculated")

	return &Result{Buckets: buckets, TotalCustomer: total}, nil
}
