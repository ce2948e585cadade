// Package period provides YYYYMM month keys used to bound every query and
// aggregation window of a run.
package period

import (
	"fmt"
	"strconv"
	"time"
)

// Period is a calendar month encoded as year*100 + month (e.g. 202404)
type Period int

// Unknown marks a missing period (e.g. an unknown customer-since month)
const Unknown Period = 0

// Of returns the period of t
func Of(t time.Time) Period {
	return Period(t.Year()*100 + int(t.Month()))
}

// MonthOffset adds delta whole months to the reference date's month.
// Month overflow and underflow roll the year in both directions.
func MonthOffset(ref time.Time, delta int) Period {
	return Of(ref).Add(delta)
}

// Add shifts p by delta months
func (p Period) Add(delta int) Period {
	total := p.Year()*12 + (p.Month() - 1) + delta
	year := floorDiv(total, 12)
	month := total - year*12 + 1
	return Period(year*100 + month)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (p Period) Year() int  { return int(p) / 100 }
func (p Period) Month() int { return int(p) % 100 }

// Valid reports whether p is a well-formed YYYYMM key
func (p Period) Valid() bool {
	m := p.Month()
	return p > 0 && m >= 1 && m <= 12
}

// FirstDay returns the first calendar day of p in UTC
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year(), time.Month(p.Month()), 1, 0, 0, 0, 0, time.UTC)
}

func (p Period) String() string {
	return strconv.Itoa(int(p))
}

// MonthsUntil counts whole months from p to q (negative when q is earlier)
func (p Period) MonthsUntil(q Period) int {
	return (q.Year()*12 + q.Month()) - (p.Year()*12 + p.Month())
}

// Range lists every period from..to inclusive in ascending order
func Range(from, to Period) []Period {
	n := from.MonthsUntil(to)
	if n < 0 {
		return nil
	}
	out := make([]Period, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, from.Add(i))
	}
	return out
}

// Window returns the lookback window [ref-months, ref-1] used by the volume queries
func Window(ref time.Time, months int) (Period, Period) {
	return MonthOffset(ref, -months), MonthOffset(ref, -1)
}

// Parse reads a YYYYMM key. An empty string yields Unknown.
func Parse(s string) (Period, error) {
	if s == "" {
		return Unknown, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return Unknown, fmt.Errorf("invalid period %q: %w", s, err)
	}
	p := Period(v)
	if !p.Valid() {
		return Unknown, fmt.Errorf("invalid period %q: month out of range", s)
	}
	return p, nil
}
