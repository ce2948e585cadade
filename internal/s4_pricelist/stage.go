package s4_pricelist

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/pipelineconfig"
	"github.com/wonny/ship2profile/internal/s1_mapping"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/logger"
)

// Result summarizes one resolution run
type Result struct {
	Rows          []Resolved
	InputRows     int
	ExcludedRows  int
	EligibleRows  int
	BlankPLRows   int
	UniqueAbrnr   int
	UnmappedAbrnr int
	RemappedAbrnr int
}

// Resolver is the price list stage
type Resolver struct {
	store         contracts.FileStore
	product       string
	rules         pipelineconfig.ProductRules
	rahmenvertrag bool
	logger        *logger.Logger
}

// NewResolver creates the stage for one product line
func NewResolver(store contracts.FileStore, product string, rules pipelineconfig.ProductRules, log *logger.Logger) *Resolver {
	return &Resolver{store: store, product: product, rules: rules, logger: log}
}

// WithRahmenvertrag keys the result by the framework-contract lead account,
// matching the remapped volume and weight datasets. abrnr stays unchanged.
func (r *Resolver) WithRahmenvertrag(on bool) *Resolver {
	r.rahmenvertrag = on
	return r
}

// Resolve reads the FIBU extract, resolves the intervals and persists df_fibu_preisliste_unique
func (r *Resolver) Resolve(ctx context.Context) (*Result, error) {
	r.logger.Infof("calculating FIBU pricelist for %s", r.product)

	classifier, err := NewClassifier(r.rules)
	if err != nil {
		return nil, err
	}

	fibu, err := r.store.Load(ctx, contracts.InputFibuExclA)
	if err != nil {
		return nil, fmt.Errorf("load fibu: %w", err)
	}
	mapping, err := s1_mapping.LoadMapping(ctx, r.store)
	if err != nil {
		return nil, err
	}
	kleinpaket, err := r.store.Load(ctx, contracts.InputKleinpaket)
	if err != nil {
		return nil, fmt.Errorf("load kleinpaket: %w", err)
	}

	candidates, err := CandidatesFromTable(fibu)
	if err != nil {
		return nil, err
	}

	res := &Result{InputRows: len(candidates)}

	candidates, err = excludeAbrnr(candidates, kleinpaket)
	if err != nil {
		return nil, err
	}
	res.ExcludedRows = res.InputRows - len(candidates)
	r.logger.Infof("excluding Kleinpaket from FIBU %s: removed %d entries", r.product, res.ExcludedRows)

	eligible := lo.Filter(candidates, func(c Candidate, _ int) bool { return classifier.Eligible(c) })
	res.EligibleRows = len(eligible)

	r.logger.Info("calculating valid time periods for prices")
	intervals := lo.Map(eligible, func(c Candidate, _ int) Interval { return classifier.Select(c) })
	res.BlankPLRows = lo.CountBy(intervals, func(iv Interval) bool { return iv.PL == "" })

	unique := Dedup(intervals)
	res.UniqueAbrnr = len(unique)

	if r.rahmenvertrag {
		if unique, res.RemappedAbrnr, err = r.remap(ctx, unique); err != nil {
			return nil, err
		}
		r.logger.Infof("rahmenvertrag: %d of %d abrnr moved to a lead account", res.RemappedAbrnr, res.UniqueAbrnr)
	}
	res.UnmappedAbrnr = lo.CountBy(unique, func(iv Interval) bool { return len(mapping.Kalknrs(iv.Abrnr)) == 0 })

	res.Rows = Rollup(unique, mapping)

	if err := r.store.Save(ctx, contracts.DatasetPriceListUnique, ToTable(res.Rows)); err != nil {
		return nil, fmt.Errorf("save price list: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"input_rows":     res.InputRows,
		"eligible_rows":  res.EligibleRows,
		"blank_pl_rows":  res.BlankPLRows,
		"unique_abrnr":   res.UniqueAbrnr,
		"unmapped_abrnr": res.UnmappedAbrnr,
		"remapped_abrnr": res.RemappedAbrnr,
		"kalknr_rows":    len(res.Rows),
	}).Info("FIBU pricelist resolved")

	return res, nil
}

// remap replaces ekpnr with the lead account of the abrnr, when there is one
func (r *Resolver) remap(ctx context.Context, intervals []Interval) ([]Interval, int, error) {
	kontrakt, err := r.store.Load(ctx, contracts.InputKontrakt)
	if err != nil {
		return nil, 0, fmt.Errorf("load kontrakt: %w", err)
	}
	lead, err := s1_mapping.LeadAccounts(kontrakt)
	if err != nil {
		return nil, 0, err
	}

	moved := 0
	out := lo.Map(intervals, func(iv Interval, _ int) Interval {
		if rv, ok := lead[iv.Abrnr]; ok && rv != iv.Ekpnr {
			iv.Ekpnr = rv
			moved++
		}
		return iv
	})
	return out, moved, nil
}

func excludeAbrnr(rows []Candidate, excluded *table.Table) ([]Candidate, error) {
	if err := excluded.Require(s1_mapping.ColAbrnr); err != nil {
		return nil, &contracts.MalformedInputError{Stage: "s4_pricelist", Reason: "kleinpaket: " + err.Error()}
	}
	set := make(map[contracts.Abrnr]struct{}, excluded.Len())
	for i := 0; i < excluded.Len(); i++ {
		set[contracts.Abrnr(excluded.Str(i, s1_mapping.ColAbrnr))] = struct{}{}
	}
	return lo.Reject(rows, func(c Candidate, _ int) bool {
		_, ok := set[c.Abrnr()]
		return ok
	}), nil
}
