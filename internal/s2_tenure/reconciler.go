// Package s2_tenure reconciles conflicting customer-since months.
//
// The monthly volume extract derives kunden_seit per month row, so one
// billing agreement can arrive with several candidate start months. The
// earliest known candidate wins and the monthly metrics of all candidates
// are summed.
package s2_tenure

import (
	"sort"

	"github.com/samber/lo"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/pkg/logger"
	"github.com/wonny/ship2profile/pkg/period"
)

// Reconciler implements contracts.TenureReconciler
type Reconciler struct {
	logger *logger.Logger
}

// New creates a reconciler
func New(log *logger.Logger) *Reconciler {
	return &Reconciler{logger: log}
}

// Reconcile returns one row per account key. Input rows are never mutated.
func (r *Reconciler) Reconcile(rows []contracts.VolumeRow) *contracts.TenureResolution {
	counts := lo.CountValuesBy(rows, func(row contracts.VolumeRow) contracts.Abrnr {
		return row.Key.Abrnr()
	})

	res := &contracts.TenureResolution{}
	for abrnr, n := range counts {
		if n > 1 {
			res.Keys = append(res.Keys, abrnr)
		}
	}
	sort.Slice(res.Keys, func(i, j int) bool { return res.Keys[i] < res.Keys[j] })

	if len(res.Keys) == 0 {
		res.Rows = lo.Map(rows, func(row contracts.VolumeRow, _ int) contracts.VolumeRow { return row.Clone() })
		return res
	}

	res.Conflicts = lo.FilterMap(rows, func(row contracts.VolumeRow, _ int) (contracts.VolumeRow, bool) {
		return row.Clone(), counts[row.Key.Abrnr()] > 1
	})

	r.logger.WithFields(map[string]interface{}{
		"conflicting_abrnr": len(res.Keys),
		"conflicting_rows":  len(res.Conflicts),
	}).Warn("several kunden_seit values found for the same ekpnr + verfa + teiln, collapsing to the earliest")

	if lo.EveryBy(res.Conflicts, func(row contracts.VolumeRow) bool { return len(row.Months) == 0 }) {
		r.logger.Warn("conflicting rows carry no monthly metrics, nothing to sum")
	}

	// group by the full key, keeping first-seen order
	merged := make(map[contracts.AccountKey]*contracts.VolumeRow)
	order := make([]contracts.AccountKey, 0, len(counts))
	for _, row := range rows {
		acc, ok := merged[row.Key]
		if !ok {
			c := contracts.VolumeRow{
				Key:        row.Key,
				KundenSeit: row.KundenSeit,
				Months:     make(map[period.Period]contracts.MonthMetrics, len(row.Months)),
			}
			for p, m := range row.Months {
				c.Months[p] = m
			}
			merged[row.Key] = &c
			order = append(order, row.Key)
			continue
		}

		acc.KundenSeit = earliest(acc.KundenSeit, row.KundenSeit)
		for p, m := range row.Months {
			acc.Months[p] = acc.Months[p].Add(m)
		}
	}

	res.Rows = make([]contracts.VolumeRow, 0, len(order))
	for _, k := range order {
		res.Rows = append(res.Rows, *merged[k])
	}
	return res
}

// earliest returns the minimum known period. Unknown only wins when both are unknown.
func earliest(a, b period.Period) period.Period {
	switch {
	case a == period.Unknown:
		return b
	case b == period.Unknown:
		return a
	case b < a:
		return b
	default:
		return a
	}
}
