// Package s5_weight estimates the shipment weight distribution per
// average-weight bucket from the per-account weight brackets.
package s5_weight

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/s1_mapping"
	"github.com/wonny/ship2profile/internal/table"
)

const (
	ColAbrnr      = "abrnr"
	ColEkpnr      = "ekpnr"
	ColKalknr     = "kalknr"
	ColGewichtSum = "gewicht_sum"
	ColAnzSdg     = "anz_sdg"
	ColGewichtAvg = "gewicht_avg"
	ColAvgEst     = "gewicht_avg_est"
	ColAnzKunde   = "anz_kunde"
)

// ShareColumn is the per-account share column of a bracket
func ShareColumn(bracket string) string { return "anteil_" + bracket }

// EstimateColumn is the population share column of a bracket
func EstimateColumn(bracket string) string { return ShareColumn(bracket) + "_est" }

// Account is one prepared weight row
type Account struct {
	Abrnr      contracts.Abrnr
	Ekpnr      contracts.Ekpnr
	Kalknr     contracts.Kalknr
	GewichtSum float64
	Counts     []float64
	AnzSdg     float64
	GewichtAvg contracts.Measure
	Shares     []contracts.Measure
}

// Bucket is the population estimate of one average-weight bucket
type Bucket struct {
	GewichtAvg float64
	AnzKunde   float64
	Shares     []float64
	Estimates  []contracts.Measure
}

// Prepare joins the bracket counts to the mapping and derives count, average and shares.
// Rows whose abrnr has no kalknr are dropped.
func Prepare(src *table.Table, brackets []string, mapping *s1_mapping.Mapping) ([]Account, error) {
	required := append([]string{ColAbrnr, ColEkpnr, ColGewichtSum}, brackets...)
	if err := src.Require(required...); err != nil {
		return nil, &contracts.MalformedInputError{Stage: "s5_weight", Reason: err.Error()}
	}

	var out []Account
	var bad []string
	for i := 0; i < src.Len(); i++ {
		abrnr := contracts.Abrnr(src.Str(i, ColAbrnr))
		kalknrs := mapping.Kalknrs(abrnr)
		if len(kalknrs) == 0 {
			continue
		}

		sum, ok := src.Float(i, ColGewichtSum)
		if !ok && src.Value(i, ColGewichtSum) != nil {
			bad = append(bad, string(abrnr))
			continue
		}

		counts := make([]float64, len(brackets))
		total := 0.0
		numeric := true
		for j, b := range brackets {
			v, ok := src.Float(i, b)
			if !ok && src.Value(i, b) != nil {
				numeric = false
				break
			}
			counts[j] = v
			total += v
		}
		if !numeric {
			bad = append(bad, string(abrnr))
			continue
		}

		acc := Account{
			Abrnr:      abrnr,
			Ekpnr:      contracts.Ekpnr(src.Str(i, ColEkpnr)),
			GewichtSum: sum,
			Counts:     counts,
			AnzSdg:     total,
			Shares:     make([]contracts.Measure, len(brackets)),
		}
		if total != 0 {
			acc.GewichtAvg = contracts.Some(table.Round(sum/total, 1))
			for j, c := range counts {
				acc.Shares[j] = contracts.Some(table.Round(c/total, 6))
			}
		}

		for _, k := range kalknrs {
			row := acc
			row.Kalknr = k
			out = append(out, row)
		}
	}

	if len(bad) > 0 {
		return nil, &contracts.MalformedInputError{Stage: "s5_weight", Reason: "non-numeric weight value", Keys: lo.Uniq(bad)}
	}
	return out, nil
}

// Estimate groups accounts by average weight and normalizes the share mass.
// Accounts without an average are dropped. Buckets are ordered by weight.
func Estimate(accounts []Account, brackets int) []Bucket {
	groups := make(map[float64]*Bucket)
	for _, a := range accounts {
		if !a.GewichtAvg.Valid {
			continue
		}
		b, ok := groups[a.GewichtAvg.Value]
		if !ok {
			b = &Bucket{GewichtAvg: a.GewichtAvg.Value, Shares: make([]float64, brackets)}
			groups[a.GewichtAvg.Value] = b
		}
		for j, s := range a.Shares {
			if s.Valid {
				b.Shares[j] += s.Value
			}
		}
	}

	out := lo.Map(lo.Values(groups), func(b *Bucket, _ int) Bucket { return *b })
	sort.Slice(out, func(i, j int) bool { return out[i].GewichtAvg < out[j].GewichtAvg })

	for i := range out {
		b := &out[i]
		b.AnzKunde = table.Round(lo.Sum(b.Shares), 0)
		b.Estimates = make([]contracts.Measure, brackets)
		if b.AnzKunde == 0 {
			continue
		}
		for j, s := range b.Shares {
			b.Estimates[j] = contracts.Some(table.Round(s/b.AnzKunde, 6))
		}
	}
	return out
}

// PreparedTable encodes df_prod_gewicht_prepared
func PreparedTable(accounts []Account, brackets []string) (*table.Table, error) {
	cols := []table.Column{table.Str(ColAbrnr), table.Str(ColEkpnr), table.Str(ColKalknr), table.Float(ColGewichtSum)}
	for _, b := range brackets {
		cols = append(cols, table.Float(b))
	}
	cols = append(cols, table.Float(ColAnzSdg), table.Float(ColGewichtAvg))
	for _, b := range brackets {
		cols = append(cols, table.Float(ShareColumn(b)))
	}

	t := table.New(cols...)
	for _, a := range accounts {
		row := []any{string(a.Abrnr), string(a.Ekpnr), string(a.Kalknr), a.GewichtSum}
		for _, c := range a.Counts {
			row = append(row, c)
		}
		row = append(row, a.AnzSdg, measureCell(a.GewichtAvg))
		for _, s := range a.Shares {
			row = append(row, measureCell(s))
		}
		if err := t.Append(row...); err != nil {
			return nil, fmt.Errorf("encode prepared weights: %w", err)
		}
	}
	return t, nil
}

// AccountsFromTable decodes df_prod_gewicht_prepared
func AccountsFromTable(t *table.Table, brackets []string) ([]Account, error) {
	required := []string{ColAbrnr, ColKalknr, ColGewichtAvg}
	for _, b := range brackets {
		required = append(required, ShareColumn(b))
	}
	if err := t.Require(required...); err != nil {
		return nil, &contracts.MalformedInputError{Stage: "s5_weight", Reason: err.Error()}
	}

	out := make([]Account, t.Len())
	for i := range out {
		a := Account{
			Abrnr:  contracts.Abrnr(t.Str(i, ColAbrnr)),
			Ekpnr:  contracts.Ekpnr(t.Str(i, ColEkpnr)),
			Kalknr: contracts.Kalknr(t.Str(i, ColKalknr)),
			Shares: make([]contracts.Measure, len(brackets)),
		}
		a.GewichtSum, _ = t.Float(i, ColGewichtSum)
		a.AnzSdg, _ = t.Float(i, ColAnzSdg)
		if v, ok := t.Float(i, ColGewichtAvg); ok {
			a.GewichtAvg = contracts.Some(v)
		}
		for j, b := range brackets {
			if v, ok := t.Float(i, ShareColumn(b)); ok {
				a.Shares[j] = contracts.Some(v)
			}
		}
		out[i] = a
	}
	return out, nil
}

// DistributionTable encodes df_gewicht2verteilung
func DistributionTable(buckets []Bucket, brackets []string) (*table.Table, error) {
	cols := []table.Column{table.Float(ColAvgEst), table.Float(ColAnzKunde)}
	for _, b := range brackets {
		cols = append(cols, table.Float(EstimateColumn(b)))
	}

	t := table.New(cols...)
	for _, b := range buckets {
		row := []any{b.GewichtAvg, b.AnzKunde}
		for _, e := range b.Estimates {
			row = append(row, measureCell(e))
		}
		if err := t.Append(row...); err != nil {
			return nil, fmt.Errorf("encode weight distribution: %w", err)
		}
	}
	return t, nil
}

func measureCell(m contracts.Measure) any {
	if !m.Valid {
		return nil
	}
	return m.Value
}
