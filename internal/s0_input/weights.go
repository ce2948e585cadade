package s0_input

import (
	"strings"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/table"
)

// SumWeights normalizes ekpnr, builds abrnr and sums the monthly parts per (abrnr, ekpnr).
// Groups keep first-seen order.
func SumWeights(src *table.Table, brackets []string) (*table.Table, error) {
	if err := src.Require(append([]string{"ekpnr", "verf", "teiln", "gewicht_sum"}, brackets...)...); err != nil {
		return nil, &contracts.MalformedInputError{Stage: "s0_input", Reason: "weights: " + err.Error()}
	}

	measures := append([]string{"gewicht_sum"}, brackets...)
	cols := []table.Column{table.Str("abrnr"), table.Str("ekpnr")}
	for _, m := range measures {
		cols = append(cols, table.Float(m))
	}

	type group struct {
		abrnr, ekpnr string
		sums         []float64
	}
	groups := make(map[string]*group)
	var order []string

	for i := 0; i < src.Len(); i++ {
		ekpnr := string(contracts.NormalizeEkpnr(src.Str(i, "ekpnr")))
		abrnr := ekpnr + strings.TrimSpace(src.Str(i, "verf")) + strings.TrimSpace(src.Str(i, "teiln"))

		key := abrnr + "|" + ekpnr
		g, ok := groups[key]
		if !ok {
			g = &group{abrnr: abrnr, ekpnr: ekpnr, sums: make([]float64, len(measures))}
			groups[key] = g
			order = append(order, key)
		}
		for j, m := range measures {
			if v, ok := src.Float(i, m); ok {
				g.sums[j] += v
			}
		}
	}

	out := table.New(cols...)
	for _, key := range order {
		g := groups[key]
		row := []any{g.abrnr, g.ekpnr}
		for _, s := range g.sums {
			row = append(row, s)
		}
		if err := out.Append(row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}
