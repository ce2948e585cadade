// Package s1_mapping builds the billing agreement to calculation number
// mapping and the framework-contract (Rahmenvertrag) account remap.
package s1_mapping

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/pipelineconfig"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/logger"
)

const (
	ColEkpnr  = "ekpnr"
	ColKalknr = "kalknr"
	ColAbrnr  = "abrnr"
	ColVerfa  = "verfa"
	ColRvEkp  = "rv_ekp"
)

// Entry is one mapping row
type Entry struct {
	Ekpnr  contracts.Ekpnr
	Kalknr contracts.Kalknr
	Abrnr  contracts.Abrnr
	Verfa  contracts.Verfa
}

// Mapping is the abrnr -> kalknr lookup, sorted by abrnr
type Mapping struct {
	Entries []Entry
	byAbrnr map[contracts.Abrnr][]contracts.Kalknr
}

// NewMapping indexes entries
func NewMapping(entries []Entry) *Mapping {
	m := &Mapping{
		Entries: entries,
		byAbrnr: make(map[contracts.Abrnr][]contracts.Kalknr, len(entries)),
	}
	for _, e := range entries {
		m.byAbrnr[e.Abrnr] = append(m.byAbrnr[e.Abrnr], e.Kalknr)
	}
	return m
}

// Kalknrs returns every calculation number of an abrnr in mapping order
func (m *Mapping) Kalknrs(abrnr contracts.Abrnr) []contracts.Kalknr {
	return m.byAbrnr[abrnr]
}

// Len is the number of mapping rows
func (m *Mapping) Len() int { return len(m.Entries) }

// Builder creates df_mapping from the kontrakt input
type Builder struct {
	store  contracts.FileStore
	rules  pipelineconfig.MappingRules
	logger *logger.Logger
}

// NewBuilder creates a mapping builder
func NewBuilder(store contracts.FileStore, rules pipelineconfig.MappingRules, log *logger.Logger) *Builder {
	return &Builder{store: store, rules: rules, logger: log}
}

// Build reads the kontrakt input, filters the account range and persists df_mapping
func (b *Builder) Build(ctx context.Context) (*Mapping, error) {
	src, err := b.store.Load(ctx, contracts.InputKontrakt)
	if err != nil {
		return nil, fmt.Errorf("load kontrakt: %w", err)
	}

	m, err := BuildMapping(src, b.rules)
	if err != nil {
		return nil, err
	}

	if err := b.store.Save(ctx, contracts.DatasetMapping, m.Table()); err != nil {
		return nil, fmt.Errorf("save mapping: %w", err)
	}

	b.logger.WithFields(map[string]interface{}{
		"kontrakt_rows": src.Len(),
		"mapping_rows":  m.Len(),
	}).Info("abrnr to kalknr mapping prepared")
	return m, nil
}

// BuildMapping keeps rows with ekpnr_min <= ekpnr <= ekpnr_max and derives verfa from abrnr
func BuildMapping(src *table.Table, rules pipelineconfig.MappingRules) (*Mapping, error) {
	if err := src.Require(ColEkpnr, ColKalknr, ColAbrnr); err != nil {
		return nil, &contracts.MalformedInputError{Stage: "s1_mapping", Reason: err.Error()}
	}

	entries := make([]Entry, 0, src.Len())
	var bad []string
	for i := 0; i < src.Len(); i++ {
		raw := strings.TrimSpace(src.Str(i, ColEkpnr))
		ekpnr := contracts.NormalizeEkpnr(raw)
		n, err := strconv.ParseInt(string(ekpnr), 10, 64)
		if err != nil {
			bad = append(bad, raw)
			continue
		}
		if n < rules.EkpnrMin || n > rules.EkpnrMax {
			continue
		}

		abrnr := contracts.Abrnr(strings.TrimSpace(src.Str(i, ColAbrnr)))
		entries = append(entries, Entry{
			Ekpnr:  ekpnr,
			Kalknr: contracts.Kalknr(strings.TrimSpace(src.Str(i, ColKalknr))),
			Abrnr:  abrnr,
			Verfa:  abrnr.Verfa(),
		})
	}
	if len(bad) > 0 {
		return nil, &contracts.MalformedInputError{Stage: "s1_mapping", Reason: "ekpnr is not numeric", Keys: bad}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Abrnr < entries[j].Abrnr })
	return NewMapping(entries), nil
}

// Table encodes the mapping as df_mapping
func (m *Mapping) Table() *table.Table {
	t := table.New(table.Str(ColEkpnr), table.Str(ColKalknr), table.Str(ColAbrnr), table.Str(ColVerfa))
	for _, e := range m.Entries {
		// schema matches, Append cannot fail
		_ = t.Append(string(e.Ekpnr), string(e.Kalknr), string(e.Abrnr), string(e.Verfa))
	}
	return t
}

// MappingFromTable decodes a persisted df_mapping
func MappingFromTable(t *table.Table) (*Mapping, error) {
	if err := t.Require(ColKalknr, ColAbrnr); err != nil {
		return nil, &contracts.MalformedInputError{Stage: "s1_mapping", Reason: err.Error()}
	}
	entries := make([]Entry, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		abrnr := contracts.Abrnr(t.Str(i, ColAbrnr))
		entries = append(entries, Entry{
			Ekpnr:  contracts.Ekpnr(t.Str(i, ColEkpnr)),
			Kalknr: contracts.Kalknr(t.Str(i, ColKalknr)),
			Abrnr:  abrnr,
			Verfa:  abrnr.Verfa(),
		})
	}
	return NewMapping(entries), nil
}

// LoadMapping reads df_mapping from the store
func LoadMapping(ctx context.Context, store contracts.FileStore) (*Mapping, error) {
	t, err := store.Load(ctx, contracts.DatasetMapping)
	if err != nil {
		return nil, fmt.Errorf("load mapping: %w", err)
	}
	return MappingFromTable(t)
}
