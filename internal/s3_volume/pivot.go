package s3_volume

import (
	"fmt"
	"sort"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/period"
)

// Source columns of the monthly volume extract
const (
	ColJahrMonat  = "jahr_monat"
	ColAbrnr      = "abrnr"
	ColEkpnr      = "ekpnr"
	ColVerfa      = "verfa"
	ColTeiln      = "teiln"
	ColKundenSeit = "kunden_seit"
	ColVolBer     = "vol_ber"
	ColNumSendung = "num_sendung"
)

// FactsFromTable decodes the monthly extract and checks the key invariant
func FactsFromTable(t *table.Table) ([]contracts.MonthlyFact, error) {
	if err := t.Require(ColJahrMonat, ColAbrnr, ColEkpnr, ColVerfa, ColTeiln, ColKundenSeit, ColVolBer, ColNumSendung); err != nil {
		return nil, &contracts.MalformedInputError{Stage: "s3_volume", Reason: err.Error()}
	}

	facts := make([]contracts.MonthlyFact, 0, t.Len())
	var bad []string
	for i := 0; i < t.Len(); i++ {
		key := contracts.AccountKey{
			Ekpnr: contracts.Ekpnr(t.Str(i, ColEkpnr)),
			Verfa: contracts.Verfa(t.Str(i, ColVerfa)),
			Teiln: contracts.Teiln(t.Str(i, ColTeiln)),
		}
		abrnr := t.Str(i, ColAbrnr)
		if string(key.Abrnr()) != abrnr || key.Validate() != nil {
			bad = append(bad, abrnr)
			continue
		}

		p, ok := t.Int(i, ColJahrMonat)
		if !ok || !period.Period(p).Valid() {
			bad = append(bad, fmt.Sprintf("%s@%s", abrnr, t.Str(i, ColJahrMonat)))
			continue
		}

		since := period.Unknown
		if v, ok := t.Int(i, ColKundenSeit); ok && period.Period(v).Valid() {
			since = period.Period(v)
		}

		count, _ := t.Float(i, ColNumSendung)
		vol, _ := t.Float(i, ColVolBer)

		facts = append(facts, contracts.MonthlyFact{
			Key:        key,
			Period:     period.Period(p),
			KundenSeit: since,
			Shipments:  count,
			VolumeSum:  vol,
		})
	}

	if len(bad) > 0 {
		return nil, &contracts.MalformedInputError{
			Stage:  "s3_volume",
			Reason: "abrnr must equal ekpnr + verfa + teiln with a valid jahr_monat",
			Keys:   bad,
		}
	}
	return facts, nil
}

type pivotKey struct {
	key   contracts.AccountKey
	since period.Period
}

// Pivot reshapes long monthly facts into one row per (account key, kunden_seit).
// Facts sharing a month are summed. Every window month is zero-filled.
func Pivot(facts []contracts.MonthlyFact, window []period.Period) []contracts.VolumeRow {
	rows := make(map[pivotKey]*contracts.VolumeRow)
	for _, f := range facts {
		k := pivotKey{key: f.Key, since: f.KundenSeit}
		r, ok := rows[k]
		if !ok {
			r = &contracts.VolumeRow{
				Key:        f.Key,
				KundenSeit: f.KundenSeit,
				Months:     make(map[period.Period]contracts.MonthMetrics, len(window)),
			}
			for _, p := range window {
				r.Months[p] = contracts.MonthMetrics{}
			}
			rows[k] = r
		}
		r.Months[f.Period] = r.Months[f.Period].Add(contracts.MonthMetrics{Count: f.Shipments, Volume: f.VolumeSum})
	}

	keys := make([]pivotKey, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ai, aj := keys[i].key.Abrnr(), keys[j].key.Abrnr()
		if ai != aj {
			return ai < aj
		}
		return keys[i].since < keys[j].since
	})

	out := make([]contracts.VolumeRow, 0, len(keys))
	for _, k := range keys {
		out = append(out, *rows[k])
	}
	return out
}

// Periods lists every month present in any row, ascending
func Periods(rows []contracts.VolumeRow) []period.Period {
	seen := make(map[period.Period]struct{})
	for _, r := range rows {
		for p := range r.Months {
			seen[p] = struct{}{}
		}
	}
	out := make([]period.Period, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
