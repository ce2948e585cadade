package s0_input

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/metrics"
	"github.com/wonny/ship2profile/internal/pipelineconfig"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/logger"
	"github.com/wonny/ship2profile/pkg/period"
)

// Extractor downloads the raw datasets and persists them as df_ tables
// ⭐ SSOT: 웨어하우스 → 파일 저장은 S0에서만
type Extractor struct {
	warehouse contracts.Warehouse
	store     contracts.FileStore
	cfg       *pipelineconfig.Config
	rules     pipelineconfig.ProductRules
	runName   string
	product   string
	logger    *logger.Logger
}

// Result lists the extracted datasets with their row counts
type Result struct {
	Rows  map[string]int
	Empty []string
}

// NewExtractor creates the S0 extractor of one run
func NewExtractor(
	wh contracts.Warehouse,
	store contracts.FileStore,
	cfg *pipelineconfig.Config,
	runName, product string,
	log *logger.Logger,
) (*Extractor, error) {
	rules, err := cfg.Product(product)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		warehouse: wh,
		store:     store,
		cfg:       cfg,
		rules:     rules,
		runName:   runName,
		product:   product,
		logger:    log,
	}, nil
}

// Extract runs every extraction in order
func (e *Extractor) Extract(ctx context.Context, ref time.Time) (*Result, error) {
	res := &Result{Rows: make(map[string]int)}

	steps := []struct {
		name string
		fn   func(context.Context, time.Time) (*table.Table, error)
	}{
		{contracts.DatasetMonthlyFacts, e.MonthlyFacts},
		{contracts.DatasetProdGewicht, e.Weights},
		{contracts.DatasetMappingRvAbrnr, e.RahmenvertragMapping},
		{contracts.DatasetKprCostsReport15, e.KprCosts},
		{contracts.DatasetKprTreiber, e.KprTreiber},
		{contracts.DatasetKprZustellung, e.KprZustellung},
	}

	for _, s := range steps {
		t, err := s.fn(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", s.name, err)
		}
		if err := e.save(ctx, s.name, t); err != nil {
			return nil, err
		}
		res.Rows[s.name] = t.Len()
		if t.Len() == 0 {
			res.Empty = append(res.Empty, s.name)
		}
	}

	// kosten is the merged cost table, report 15 is its only source
	costs, err := e.store.Load(ctx, contracts.DatasetKprCostsReport15)
	if err != nil {
		return nil, err
	}
	if err := e.save(ctx, contracts.DatasetKprKosten, costs); err != nil {
		return nil, err
	}
	res.Rows[contracts.DatasetKprKosten] = costs.Len()

	return res, nil
}

func (e *Extractor) save(ctx context.Context, name string, t *table.Table) error {
	if t.Len() == 0 {
		metrics.EmptyResults.WithLabelValues(name).Inc()
		e.logger.WithField("dataset", name).Warn("query returned no rows")
	}
	if err := e.store.Save(ctx, name, t); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	metrics.DatasetRows.WithLabelValues(e.product, name).Set(float64(t.Len()))
	e.logger.Infof("df %s shape (%d, %d)", name, t.Len(), t.Width())
	return nil
}

// MonthlyFacts downloads the monthly volume joined with kunden_seit
func (e *Extractor) MonthlyFacts(ctx context.Context, ref time.Time) (*table.Table, error) {
	from, to := period.Window(ref, e.cfg.LookbackMonths)
	e.logger.Infof("using dates from %s to %s", from, to)

	rt := e.cfg.Warehouse.RunTables
	q := MonthlyVolumeQuery(e.cfg.Warehouse,
		e.cfg.RunTable(e.runName, rt.KundenSeit),
		e.cfg.RunTable(e.runName, rt.Aktionsgeschaeft),
		e.cfg.RunTable(e.runName, rt.Kleinpaket),
		from, to)
	e.logger.Debug(q)

	return e.warehouse.Query(ctx, q)
}

// Weights downloads the weight brackets month by month, from ref-11 through ref
func (e *Extractor) Weights(ctx context.Context, ref time.Time) (*table.Table, error) {
	e.logMinMax(ctx, e.cfg.Warehouse.PzeEvents, "ereignis_datum")
	e.logMinMax(ctx, e.cfg.Warehouse.PanShipments, "load_dtm")

	var parts []*table.Table
	for _, r := range MonthRanges(period.MonthOffset(ref, -11), period.Of(ref)) {
		q := WeightQuery(e.cfg.Warehouse, e.cfg.WeightBrackets, r[0], r[1])
		e.logger.Debug(q)
		t, err := e.warehouse.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		e.logger.Infof("weights %s..%s: %d rows", r[0].Format("2006-01-02"), r[1].Format("2006-01-02"), t.Len())
		parts = append(parts, t)
	}

	all, err := table.Concat(parts...)
	if err != nil {
		return nil, err
	}
	return SumWeights(all, e.cfg.BracketNames())
}

// KprCosts downloads cost report 15 for the product's KPR ids
func (e *Extractor) KprCosts(ctx context.Context, ref time.Time) (*table.Table, error) {
	since, until := period.MonthOffset(ref, -12), period.MonthOffset(ref, -1)
	e.logger.Infof("processing KPR costs for %s, months %s..%s", e.product, since, until)

	aktion := e.cfg.RunTable(e.runName, e.cfg.Warehouse.RunTables.Aktionsgeschaeft)
	return e.warehouse.Query(ctx, KprCostsQuery(e.cfg.Warehouse, aktion, since, until, e.rules.KprProductIDs))
}

// KprTreiber downloads the product's cost drivers up to ref-1
func (e *Extractor) KprTreiber(ctx context.Context, ref time.Time) (*table.Table, error) {
	return e.warehouse.Query(ctx, KprTreiberQuery(e.rules.KprTreiber, period.MonthOffset(ref, -1)))
}

// KprZustellung downloads the delivery quantities of the last 12 months
func (e *Extractor) KprZustellung(ctx context.Context, ref time.Time) (*table.Table, error) {
	q := KprZustellungQuery(e.cfg.Warehouse, period.MonthOffset(ref, -12), period.MonthOffset(ref, -1), e.rules.KprProductIDs)
	return e.warehouse.Query(ctx, q)
}

// RahmenvertragMapping downloads the framework contracts active at ref
func (e *Extractor) RahmenvertragMapping(ctx context.Context, ref time.Time) (*table.Table, error) {
	return e.warehouse.Query(ctx, RahmenvertragQuery(e.cfg.Warehouse, ref))
}

// logMinMax is informational, failures only log
func (e *Extractor) logMinMax(ctx context.Context, sourceTable, column string) {
	t, err := e.warehouse.Query(ctx, MinMaxDateQuery(sourceTable, column))
	if err != nil {
		e.logger.WithError(err).Errorf("error retrieving min/max dates from %s", sourceTable)
		return
	}
	if t.Len() == 0 {
		return
	}
	e.logger.WithFields(map[string]interface{}{
		"table": sourceTable,
		"min":   t.Str(0, "min_"+column),
		"max":   t.Str(0, "max_"+column),
	}).Info("source date range")
}
