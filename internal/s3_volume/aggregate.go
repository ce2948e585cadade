package s3_volume

import (
	"time"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/period"
)

// Aggregate computes the trailing-window totals and per-shipment averages.
//
// For horizon N the window starts at ref-N months. A row only gets values
// when its kunden_seit is known and <= the window start; otherwise both
// cells are missing. A window without shipments has a missing average.
func Aggregate(rows []contracts.VolumeRow, ref time.Time, horizons []int) []contracts.VolumeRow {
	out := make([]contracts.VolumeRow, 0, len(rows))
	for _, src := range rows {
		r := src.Clone()
		r.Amount = make(map[int]contracts.Measure, len(horizons))
		r.VolAvg = make(map[int]contracts.Measure, len(horizons))

		for _, n := range horizons {
			start := period.MonthOffset(ref, -n)
			if r.KundenSeit == period.Unknown || r.KundenSeit > start {
				r.Amount[n] = contracts.Missing
				r.VolAvg[n] = contracts.Missing
				continue
			}

			var count, vol float64
			for p, m := range r.Months {
				if p >= start {
					count += m.Count
					vol += m.Volume
				}
			}

			r.Amount[n] = contracts.Some(count)
			if count == 0 {
				r.VolAvg[n] = contracts.Missing
			} else {
				r.VolAvg[n] = contracts.Some(table.Round(vol/count, 2))
			}
		}
		out = append(out, r)
	}
	return out
}

// SliceByVerfa keeps the rows of one procedure code
func SliceByVerfa(rows []contracts.VolumeRow, verfa contracts.Verfa) []contracts.VolumeRow {
	var out []contracts.VolumeRow
	for _, r := range rows {
		if r.Key.Verfa == verfa {
			out = append(out, r)
		}
	}
	return out
}
