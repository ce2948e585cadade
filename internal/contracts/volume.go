package contracts

import "github.com/wonny/ship2profile/pkg/period"

// Measure is a numeric cell that may be explicitly missing
type Measure struct {
	Value float64
	Valid bool
}

// Some wraps a present value
func Some(v float64) Measure { return Measure{Value: v, Valid: true} }

// Missing is the absent value
var Missing = Measure{}

// Ptr returns nil for a missing value (table/JSON encoding)
func (m Measure) Ptr() *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Value
	return &v
}

// MonthlyFact is one source row of shipments per account per month
type MonthlyFact struct {
	Key        AccountKey
	Period     period.Period
	KundenSeit period.Period
	Shipments  float64
	VolumeSum  float64
}

// MonthMetrics are the pivoted values of one month
type MonthMetrics struct {
	Count  float64 // mnt_kpr
	Volume float64 // vol_kpr
}

// Add sums two months
func (m MonthMetrics) Add(o MonthMetrics) MonthMetrics {
	return MonthMetrics{Count: m.Count + o.Count, Volume: m.Volume + o.Volume}
}

// VolumeRow is the wide per-account time series
// ⭐ SSOT: S2 → S3 전달 단위
type VolumeRow struct {
	Key        AccountKey
	KundenSeit period.Period // period.Unknown when no source knows the start
	Months     map[period.Period]MonthMetrics
	Amount     map[int]Measure // amount_<N>M by horizon
	VolAvg     map[int]Measure // vol_<N>M_avg by horizon
}

// Clone deep-copies the row
func (r VolumeRow) Clone() VolumeRow {
	out := VolumeRow{Key: r.Key, KundenSeit: r.KundenSeit}
	if r.Months != nil {
		out.Months = make(map[period.Period]MonthMetrics, len(r.Months))
		for p, m := range r.Months {
			out.Months[p] = m
		}
	}
	if r.Amount != nil {
		out.Amount = make(map[int]Measure, len(r.Amount))
		for n, m := range r.Amount {
			out.Amount[n] = m
		}
	}
	if r.VolAvg != nil {
		out.VolAvg = make(map[int]Measure, len(r.VolAvg))
		for n, m := range r.VolAvg {
			out.VolAvg[n] = m
		}
	}
	return out
}

// TenureResolution is the outcome of customer-since reconciliation
type TenureResolution struct {
	Rows      []VolumeRow // one row per account key
	Conflicts []VolumeRow // the exact rows that shared an abrnr
	Keys      []Abrnr     // distinct conflicting abrnr, sorted
}

// TenureReconciler collapses candidate customer-since values (S2)
// ⭐ SSOT: S2 고객 시작월 정합 인터페이스
type TenureReconciler interface {
	Reconcile(rows []VolumeRow) *TenureResolution
}
