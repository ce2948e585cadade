package s3_volume

import (
	"fmt"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/period"
)

// MonthCountColumn names the pivoted shipment count of a month
func MonthCountColumn(p period.Period) string { return "mnt_kpr_" + p.String() }

// MonthVolumeColumn names the pivoted volume sum of a month
func MonthVolumeColumn(p period.Period) string { return "vol_kpr_" + p.String() }

// AmountColumn names the trailing total, e.g. amount_03M
func AmountColumn(n int) string { return fmt.Sprintf("amount_%02dM", n) }

// VolAvgColumn names the trailing average, e.g. vol_03M_avg
func VolAvgColumn(n int) string { return fmt.Sprintf("vol_%02dM_avg", n) }

// ToTable encodes wide rows. Horizon columns are written only for the given horizons.
func ToTable(rows []contracts.VolumeRow, horizons []int) (*table.Table, error) {
	months := Periods(rows)

	cols := []table.Column{
		table.Str(ColAbrnr), table.Str(ColEkpnr), table.Str(ColVerfa), table.Str(ColTeiln),
		table.Int(ColKundenSeit),
	}
	for _, p := range months {
		cols = append(cols, table.Float(MonthCountColumn(p)))
	}
	for _, p := range months {
		cols = append(cols, table.Float(MonthVolumeColumn(p)))
	}
	for _, n := range horizons {
		cols = append(cols, table.Float(AmountColumn(n)), table.Float(VolAvgColumn(n)))
	}

	t := table.New(cols...)
	for _, r := range rows {
		vals := make([]any, 0, len(cols))
		vals = append(vals, string(r.Key.Abrnr()), string(r.Key.Ekpnr), string(r.Key.Verfa), string(r.Key.Teiln))
		if r.KundenSeit == period.Unknown {
			vals = append(vals, nil)
		} else {
			vals = append(vals, int64(r.KundenSeit))
		}
		for _, p := range months {
			vals = append(vals, r.Months[p].Count)
		}
		for _, p := range months {
			vals = append(vals, r.Months[p].Volume)
		}
		for _, n := range horizons {
			vals = append(vals, measureCell(r.Amount[n]), measureCell(r.VolAvg[n]))
		}
		if err := t.Append(vals...); err != nil {
			return nil, err
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
