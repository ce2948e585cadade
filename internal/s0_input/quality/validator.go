// Package quality checks the extracted datasets before any calculation runs.
package quality

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/table"
)

// KeyCheck selects how a row's account key is validated
type KeyCheck int

const (
	// KeyNone skips key validation
	KeyNone KeyCheck = iota
	// KeyFull requires abrnr == ekpnr ++ verfa ++ teiln with fixed widths
	KeyFull
	// KeyPrefix requires a 14 character abrnr starting with ekpnr
	KeyPrefix
)

// Rule describes one dataset to check
type Rule struct {
	Dataset  string
	Required []string
	Keys     KeyCheck
	Weight   float64
}

// Config holds gate thresholds
type Config struct {
	MinKeyCoverage float64 `yaml:"min_key_coverage"` // 1.0 (100%)
	MinScore       float64 `yaml:"min_score"`        // 0.95
}

// DefaultConfig rejects any malformed key in the fact table
func DefaultConfig() Config {
	return Config{MinKeyCoverage: 1.0, MinScore: 0.95}
}

// DatasetReport is the result of one rule
type DatasetReport struct {
	Dataset  string   `json:"dataset"`
	Rows     int      `json:"rows"`
	Missing  []string `json:"missing_columns,omitempty"`
	BadKeys  []string `json:"bad_keys,omitempty"`
	Coverage float64  `json:"coverage"`
}

// Snapshot is the gate verdict of one run
type Snapshot struct {
	Date    time.Time                `json:"date"`
	Reports map[string]DatasetReport `json:"reports"`
	Score   float64                  `json:"score"`
	Passed  bool                     `json:"passed"`
}

// Gate validates persisted datasets
type Gate struct {
	store  contracts.FileStore
	rules  []Rule
	config Config
}

// NewGate creates a gate over the given rules
func NewGate(store contracts.FileStore, rules []Rule, config Config) *Gate {
	return &Gate{store: store, rules: rules, config: config}
}

// DefaultRules covers the S0 extracts consumed by later stages
func DefaultRules(brackets []string) []Rule {
	return []Rule{
		{
			Dataset:  contracts.DatasetMonthlyFacts,
			Required: []string{"jahr_monat", "abrnr", "ekpnr", "verfa", "teiln", "kunden_seit", "vol_ber", "num_sendung"},
			Keys:     KeyFull,
			Weight:   0.50,
		},
		{
			Dataset:  contracts.DatasetProdGewicht,
			Required: append([]string{"abrnr", "ekpnr", "gewicht_sum"}, brackets...),
			Keys:     KeyPrefix,
			Weight:   0.30,
		},
		{
			Dataset:  contracts.DatasetKprKosten,
			Required: []string{"abrnr", "ekpnr", "prozessebene_id", "Prozessmenge", "Fixkosten", "Varkosten"},
			Keys:     KeyPrefix,
			Weight:   0.20,
		},
	}
}

// Check validates every dataset and scores the run
// ⭐ SSOT: S0 → S1 품질 검증
func (g *Gate) Check(ctx context.Context, date time.Time) (*Snapshot, error) {
	snapshot := &Snapshot{
		Date:    date,
		Reports: make(map[string]DatasetReport, len(g.rules)),
	}

	for _, r := range g.rules {
		t, err := g.store.Load(ctx, r.Dataset)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", r.Dataset, err)
		}
		snapshot.Reports[r.Dataset] = checkDataset(r, t)
	}

	snapshot.Score = g.calculateScore(snapshot.Reports)
	snapshot.Passed = snapshot.Score >= g.config.MinScore && g.keysOK(snapshot.Reports)
	return snapshot, nil
}

func checkDataset(r Rule, t *table.Table) DatasetReport {
	rep := DatasetReport{Dataset: r.Dataset, Rows: t.Len(), Coverage: 1}

	var missing *table.MissingColumnsError
	if err := t.Require(r.Required...); errors.As(err, &missing) {
		rep.Missing = missing.Missing
		rep.Coverage = 0
		return rep
	}
	if r.Keys == KeyNone || t.Len() == 0 {
		return rep
	}

	seen := make(map[string]struct{})
	bad := 0
	for i := 0; i < t.Len(); i++ {
		if validKey(r.Keys, t, i) {
			continue
		}
		bad++
		abrnr := t.Str(i, "abrnr")
		if _, ok := seen[abrnr]; !ok {
			seen[abrnr] = struct{}{}
			rep.BadKeys = append(rep.BadKeys, abrnr)
		}
	}
	sort.Strings(rep.BadKeys)
	rep.Coverage = float64(t.Len()-bad) / float64(t.Len())
	return rep
}

func validKey(check KeyCheck, t *table.Table, i int) bool {
	abrnr := t.Str(i, "abrnr")
	ekpnr := t.Str(i, "ekpnr")

	switch check {
	case KeyFull:
		key := contracts.AccountKey{
			Ekpnr: contracts.Ekpnr(ekpnr),
			Verfa: contracts.Verfa(t.Str(i, "verfa")),
			Teiln: contracts.Teiln(t.Str(i, "teiln")),
		}
		return key.Validate() == nil && string(key.Abrnr()) == abrnr
	case KeyPrefix:
		return len(abrnr) == contracts.AbrnrWidth && strings.HasPrefix(abrnr, ekpnr) && len(ekpnr) == contracts.EkpnrWidth
	default:
		return true
	}
}

// keysOK requires full key coverage on KeyFull datasets
func (g *Gate) keysOK(reports map[string]DatasetReport) bool {
	for _, r := range g.rules {
		if r.Keys != KeyFull {
			continue
		}
		rep := reports[r.Dataset]
		if len(rep.Missing) > 0 || rep.Coverage < g.config.MinKeyCoverage {
			return false
		}
	}
	return true
}

// calculateScore is the weighted mean of dataset coverage
func (g *Gate) calculateScore(reports map[string]DatasetReport) float64 {
	total, score := 0.0, 0.0
	for _, r := range g.rules {
		total += r.Weight
		score += reports[r.Dataset].Coverage * r.Weight
	}
	if total == 0 {
		return 1
	}
	return score / total
}

// Err converts a failed snapshot into a MalformedInputError naming the offending keys
func (s *Snapshot) Err() error {
	if s.Passed {
		return nil
	}
	var keys, reasons []string
	names := make([]string, 0, len(s.Reports))
	for n := range s.Reports {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		rep := s.Reports[n]
		if len(rep.Missing) > 0 {
			reasons = append(reasons, fmt.Sprintf("%s missing [%s]", n, strings.Join(rep.Missing, ", ")))
		}
		if len(rep.BadKeys) > 0 {
			reasons = append(reasons, fmt.Sprintf("%s coverage %.4f", n, rep.Coverage))
			keys = append(keys, rep.BadKeys...)
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("score %.4f", s.Score))
	}
	return &contracts.MalformedInputError{Stage: "s0_input", Reason: strings.Join(reasons, "; "), Keys: keys}
}
