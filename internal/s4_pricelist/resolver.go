package s4_pricelist

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/pipelineconfig"
	"github.com/wonny/ship2profile/internal/s1_mapping"
	"github.com/wonny/ship2profile/internal/table"
)

// Interval is the chosen price list and validity of one agreement row
type Interval struct {
	Ekpnr contracts.Ekpnr
	Abrnr contracts.Abrnr
	PL    string
	From  Date
	To    Date
}

// Resolved is the final row per (ekpnr, kalknr)
type Resolved struct {
	Ekpnr  contracts.Ekpnr
	Kalknr contracts.Kalknr
	Abrnr  contracts.Abrnr
	PL     string
	From   Date
	To     Date
}

// Classifier holds the product rules of one product line
type Classifier struct {
	verfa     contracts.Verfa
	valid     map[string]struct{}
	materials map[string]struct{}
	pattern   *regexp.Regexp
}

// NewClassifier compiles the product rules
func NewClassifier(rules pipelineconfig.ProductRules) (*Classifier, error) {
	c := &Classifier{
		verfa:     contracts.Verfa(rules.Verfa),
		valid:     lo.SliceToMap(rules.PriceLists, func(pl string) (string, struct{}) { return pl, struct{}{} }),
		materials: lo.SliceToMap(rules.Materials, func(m string) (string, struct{}) { return m, struct{}{} }),
	}
	if rules.PLPattern != "" {
		re, err := regexp.Compile(rules.PLPattern)
		if err != nil {
			return nil, fmt.Errorf("pl_pattern: %w", err)
		}
		c.pattern = re
	}
	return c, nil
}

// Eligible reports whether the row belongs to the product line
func (c *Classifier) Eligible(row Candidate) bool {
	if row.Verfa != c.verfa {
		return false
	}
	if _, ok := c.materials[row.Material]; ok {
		return true
	}
	return c.pattern != nil && c.pattern.MatchString(row.PL)
}

// ValidPL reports whether the code is in the product's price list set
func (c *Classifier) ValidPL(pl string) bool {
	_, ok := c.valid[pl]
	return ok
}

// Select picks the price list and interval of one eligible row
func (c *Classifier) Select(row Candidate) Interval {
	iv := Interval{Ekpnr: row.Ekpnr, Abrnr: row.Abrnr()}

	// 유효 가격표면 left 우선, 아니면 right 우선
	if c.ValidPL(row.PL) {
		iv.PL = row.PL
		iv.From = coalesce(row.FromLeft, row.FromRight)
		iv.To = coalesce(row.ToLeft, row.ToRight)
	} else {
		iv.From = coalesce(row.FromRight, row.FromLeft)
		iv.To = coalesce(row.ToRight, row.ToLeft)
	}

	if strings.TrimSpace(iv.PL) != "" {
		return iv
	}

	// no valid code: the later start wins, its end follows
	switch {
	case row.FromLeft.Valid && row.FromRight.Valid:
		switch row.FromLeft.Compare(row.FromRight) {
		case 1:
			iv.From, iv.To = row.FromLeft, row.ToLeft
		case -1:
			iv.From, iv.To = row.FromRight, row.ToRight
		default:
			iv.From = row.FromLeft
		}
	case row.FromLeft.Valid:
		iv.From = row.FromLeft
	case row.FromRight.Valid:
		iv.From = row.FromRight
	default:
		iv.From = Date{}
	}
	return iv
}

// compareDesc orders valid dates descending with missing dates last
func compareDesc(a, b Date) int {
	switch {
	case a.Valid && b.Valid:
		return b.Compare(a)
	case a.Valid:
		return -1
	case b.Valid:
		return 1
	default:
		return 0
	}
}

// Dedup keeps one interval per (ekpnr, abrnr): latest start, then latest end,
// then the greatest price list code. Output is ordered by (ekpnr, abrnr).
func Dedup(intervals []Interval) []Interval {
	sorted := slices.Clone(intervals)
	slices.SortStableFunc(sorted, func(a, b Interval) int {
		return cmp.Or(
			cmp.Compare(a.Ekpnr, b.Ekpnr),
			cmp.Compare(a.Abrnr, b.Abrnr),
			compareDesc(a.From, b.From),
			compareDesc(a.To, b.To),
			cmp.Compare(b.PL, a.PL),
		)
	})
	return lo.UniqBy(sorted, func(iv Interval) string {
		return string(iv.Ekpnr) + "|" + string(iv.Abrnr)
	})
}

// Rollup joins the intervals to the mapping and keeps one row per (ekpnr, kalknr).
// abrnr, start and code come from the first agreement, the end is the latest across all.
func Rollup(intervals []Interval, mapping *s1_mapping.Mapping) []Resolved {
	type key struct {
		ekpnr  contracts.Ekpnr
		kalknr contracts.Kalknr
	}

	groups := make(map[key]*Resolved)
	var order []key
	for _, iv := range intervals {
		for _, kalknr := range mapping.Kalknrs(iv.Abrnr) {
			k := key{iv.Ekpnr, kalknr}
			g, ok := groups[k]
			if !ok {
				groups[k] = &Resolved{
					Ekpnr: iv.Ekpnr, Kalknr: kalknr, Abrnr: iv.Abrnr,
					PL: iv.PL, From: iv.From, To: iv.To,
				}
				order = append(order, k)
				continue
			}
			// first non-missing start, latest end
			if !g.From.Valid && iv.From.Valid {
				g.From = iv.From
			}
			if iv.To.Valid && (!g.To.Valid || iv.To.Compare(g.To) > 0) {
				g.To = iv.To
			}
		}
	}

	slices.SortFunc(order, func(a, b key) int {
		return cmp.Or(cmp.Compare(a.ekpnr, b.ekpnr), cmp.Compare(a.kalknr, b.kalknr))
	})
	return lo.Map(order, func(k key, _ int) Resolved { return *groups[k] })
}

// ToTable encodes df_fibu_preisliste_unique
func ToTable(rows []Resolved) *table.Table {
	t := table.New(
		table.Str(ColEkpnr), table.Str(ColKalknr), table.Str(ColAbrnr),
		table.Str(ColFrom), table.Str(ColTo), table.Str(ColPL),
	)
	for _, r := range rows {
		_ = t.Append(string(r.Ekpnr), string(r.Kalknr), string(r.Abrnr), r.From.cell(), r.To.cell(), r.PL)
	}
	return t
}
