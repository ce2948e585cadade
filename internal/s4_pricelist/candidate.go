// Package s4_pricelist resolves one price list and validity interval per
// calculation number from the FIBU price list extract.
package s4_pricelist

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/table"
)

// FIBU extract columns
const (
	ColAuftraggeber = "Auftr.geb."
	ColVerfahren    = "Verf."
	ColTeilnahme    = "Teiln."
	ColPL           = "PL"
	ColMaterial     = "Material"
	ColFromLeft     = "Gueltig_ab_l"
	ColToLeft       = "Gueltig_bis_l"
	ColFromRight    = "Gueltig_ab_r"
	ColToRight      = "Gueltig_bis_r"
)

// Result columns of df_fibu_preisliste_unique
const (
	ColEkpnr  = "ekpnr"
	ColKalknr = "kalknr"
	ColAbrnr  = "abrnr"
	ColFrom   = "Gueltig_ab"
	ColTo     = "Gueltig_bis"
)

// DateLayout is the persisted date format
const DateLayout = "2006-01-02"

var dateLayouts = []string{DateLayout, "02.01.2006", "20060102", "2006-01-02 15:04:05"}

// Date is an optional calendar day
type Date struct {
	Time  time.Time
	Valid bool
}

// ParseDate accepts ISO, German and compact layouts. Blank is a missing date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t, Valid: true}, nil
		}
	}
	return Date{}, fmt.Errorf("unparsable date %q", s)
}

func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// cell is the table value of the date, nil when missing
func (d Date) cell() any {
	if !d.Valid {
		return nil
	}
	return d.String()
}

// Compare orders valid dates chronologically. Callers handle missing dates.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

func coalesce(a, b Date) Date {
	if a.Valid {
		return a
	}
	return b
}

// Candidate is one FIBU row with its two validity intervals.
// Left comes from the price list code, right from the material code.
type Candidate struct {
	Ekpnr     contracts.Ekpnr
	Verfa     contracts.Verfa
	Teiln     contracts.Teiln
	PL        string
	Material  string
	FromLeft  Date
	ToLeft    Date
	FromRight Date
	ToRight   Date
}

// Abrnr is ekpnr ++ verfa ++ teiln
func (c Candidate) Abrnr() contracts.Abrnr {
	return contracts.AccountKey{Ekpnr: c.Ekpnr, Verfa: c.Verfa, Teiln: c.Teiln}.Abrnr()
}

// CandidatesFromTable decodes the FIBU extract. Unparsable dates abort with the affected abrnr.
func CandidatesFromTable(t *table.Table) ([]Candidate, error) {
	if err := t.Require(ColAuftraggeber, ColVerfahren, ColTeilnahme, ColPL, ColMaterial,
		ColFromLeft, ColToLeft, ColFromRight, ColToRight); err != nil {
		return nil, &contracts.MalformedInputError{Stage: "s4_pricelist", Reason: err.Error()}
	}

	out := make([]Candidate, 0, t.Len())
	var bad []string
	for i := 0; i < t.Len(); i++ {
		c := Candidate{
			Ekpnr:    contracts.Ekpnr(strings.TrimSpace(t.Str(i, ColAuftraggeber))),
			Verfa:    contracts.Verfa(strings.TrimSpace(t.Str(i, ColVerfahren))),
			Teiln:    contracts.Teiln(strings.TrimSpace(t.Str(i, ColTeilnahme))),
			PL:       strings.TrimSpace(t.Str(i, ColPL)),
			Material: strings.TrimSpace(t.Str(i, ColMaterial)),
		}

		var err error
		dates := []struct {
			col string
			dst *Date
		}{
			{ColFromLeft, &c.FromLeft},
			{ColToLeft, &c.ToLeft},
			{ColFromRight, &c.FromRight},
			{ColToRight, &c.ToRight},
		}
		for _, d := range dates {
			if *d.dst, err = ParseDate(t.Str(i, d.col)); err != nil {
				break
			}
		}
		if err != nil {
			bad = append(bad, string(c.Abrnr()))
			continue
		}
		out = append(out, c)
	}

	if len(bad) > 0 {
		return nil, &contracts.MalformedInputError{Stage: "s4_pricelist", Reason: "unparsable validity date", Keys: bad}
	}
	return out, nil
}
