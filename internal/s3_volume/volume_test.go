package s3_volume

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/s2_tenure"
	"github.com/wonny/ship2profile/internal/store"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/logger"
	"github.com/wonny/ship2profile/pkg/period"
)

var (
	ref      = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	horizons = []int{1, 3, 6, 9, 12}
	keyA     = contracts.AccountKey{Ekpnr: "5000000001", Verfa: "01", Teiln: "01"}
	keyB     = contracts.AccountKey{Ekpnr: "5000000002", Verfa: "01", Teiln: "01"}
)

func window() []period.Period {
	from, to := period.Window(ref, 12)
	return period.Range(from, to)
}

func fact(key contracts.AccountKey, p, since period.Period, count, vol float64) contracts.MonthlyFact {
	return contracts.MonthlyFact{Key: key, Period: p, KundenSeit: since, Shipments: count, VolumeSum: vol}
}

func TestPivot_ZeroFill(t *testing.T) {
	rows := Pivot([]contracts.MonthlyFact{fact(keyA, 202312, 202301, 4, 40)}, window())

	require.Len(t, rows, 1)
	assert.Len(t, rows[0].Months, 12)
	for p, m := range rows[0].Months {
		if p == 202312 {
			assert.Equal(t, contracts.MonthMetrics{Count: 4, Volume: 40}, m)
			continue
		}
		assert.Equal(t, contracts.MonthMetrics{}, m, "month %d", p)
	}
}

func TestPivot_SumsDuplicateFacts(t *testing.T) {
	rows := Pivot([]contracts.MonthlyFact{
		fact(keyA, 202401, 202301, 1, 10),
		fact(keyA, 202401, 202301, 2, 5),
		fact(keyA, 202402, 202305, 1, 1),
	}, window())

	require.Len(t, rows, 2, "one row per (key, kunden_seit)")
	assert.Equal(t, period.Period(202301), rows[0].KundenSeit)
	assert.Equal(t, contracts.MonthMetrics{Count: 3, Volume: 15}, rows[0].Months[202401])
	assert.Equal(t, period.Period(202305), rows[1].KundenSeit)
}

func TestAggregate_EligibilityGate(t *testing.T) {
	months := func() map[period.Period]contracts.MonthMetrics {
		m := make(map[period.Period]contracts.MonthMetrics)
		for _, p := range window() {
			m[p] = contracts.MonthMetrics{Count: 1, Volume: 2}
		}
		m[202402] = contracts.MonthMetrics{Count: 2, Volume: 8}
		return m
	}

	rows := Aggregate([]contracts.VolumeRow{
		{Key: keyA, KundenSeit: 202403, Months: months()},
		{Key: keyB, KundenSeit: 202401, Months: months()},
	}, ref, []int{3})

	assert.False(t, rows[0].Amount[3].Valid, "kunden_seit after window start")
	assert.False(t, rows[0].VolAvg[3].Valid)

	require.True(t, rows[1].Amount[3].Valid)
	assert.Equal(t, 4.0, rows[1].Amount[3].Value, "202402 + 202403 + 202404")
	assert.Equal(t, table.Round(12.0/4.0, 2), rows[1].VolAvg[3].Value)
}

func TestAggregate_BoundaryIsInclusive(t *testing.T) {
	rows := Aggregate([]contracts.VolumeRow{{
		Key:        keyA,
		KundenSeit: 202402,
		Months:     map[period.Period]contracts.MonthMetrics{202402: {Count: 1, Volume: 3}},
	}}, ref, []int{3})

	assert.True(t, rows[0].Amount[3].Valid)
}

func TestAggregate_ZeroShipmentsAverageMissing(t *testing.T) {
	rows := Aggregate([]contracts.VolumeRow{{
		Key:        keyA,
		KundenSeit: 202301,
		Months:     map[period.Period]contracts.MonthMetrics{202404: {}},
	}}, ref, []int{1})

	require.True(t, rows[0].Amount[1].Valid)
	assert.Equal(t, 0.0, rows[0].Amount[1].Value)
	assert.False(t, rows[0].VolAvg[1].Valid)
}

func TestAggregate_UnknownTenureIneligible(t *testing.T) {
	rows := Aggregate([]contracts.VolumeRow{{
		Key:    keyA,
		Months: map[period.Period]contracts.MonthMetrics{202404: {Count: 1, Volume: 1}},
	}}, ref, horizons)

	for _, n := range horizons {
		assert.False(t, rows[0].Amount[n].Valid)
	}
}

func TestEndToEnd_TwoAccounts(t *testing.T) {
	var facts []contracts.MonthlyFact
	for _, p := range window() {
		facts = append(facts, fact(keyA, p, 202301, 1, 10))
	}
	facts = append(facts, fact(keyB, 202404, 202404, 1, 10))

	pivoted := Pivot(facts, window())
	res := s2_tenure.New(logger.NewNop()).Reconcile(pivoted)
	rows := Aggregate(res.Rows, ref, horizons)
	require.Len(t, rows, 2)

	a, b := rows[0], rows[1]
	require.Equal(t, keyA, a.Key)
	for _, n := range horizons {
		require.True(t, a.Amount[n].Valid, "A amount_%02dM", n)
		assert.Equal(t, float64(n), a.Amount[n].Value)
		assert.Equal(t, 10.0, a.VolAvg[n].Value)
	}

	require.Equal(t, keyB, b.Key)
	assert.True(t, b.Amount[1].Valid)
	assert.Equal(t, 1.0, b.Amount[1].Value)
	for _, n := range []int{3, 6, 9, 12} {
		assert.False(t, b.Amount[n].Valid, "B amount_%02dM", n)
		assert.False(t, b.VolAvg[n].Valid)
	}
}

func factsTable(t *testing.T, rows ...[]any) *table.Table {
	t.Helper()
	tb := table.New(
		table.Int(ColJahrMonat), table.Str(ColAbrnr), table.Str(ColEkpnr), table.Str(ColVerfa),
		table.Str(ColTeiln), table.Int(ColKundenSeit), table.Float(ColVolBer), table.Float(ColNumSendung),
	)
	for _, r := range rows {
		require.NoError(t, tb.Append(r...))
	}
	return tb
}

func TestFactsFromTable_Malformed(t *testing.T) {
	tb := factsTable(t,
		[]any{int64(202401), "50000000010101", "5000000001", "01", "01", int64(202301), 10.0, 1.0},
		[]any{int64(202401), "50000000010102", "5000000001", "01", "01", int64(202301), 10.0, 1.0},
	)

	_, err := FactsFromTable(tb)
	var mi *contracts.MalformedInputError
	require.True(t, errors.As(err, &mi))
	assert.Equal(t, []string{"50000000010102"}, mi.Keys)

	_, err = FactsFromTable(table.New(table.Str(ColAbrnr)))
	assert.True(t, errors.As(err, &mi))
}

func TestBuilder_Build(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	require.NoError(t, mem.Save(ctx, contracts.DatasetMonthlyFacts, factsTable(t,
		[]any{int64(202401), "50000000010101", "5000000001", "01", "01", int64(202301), 30.0, 3.0},
		[]any{int64(202402), "50000000010101", "5000000001", "01", "01", int64(202305), 20.0, 2.0},
		[]any{int64(202404), "50000000026201", "5000000002", "62", "01", nil, 5.0, 1.0},
	)))

	b := NewBuilder(mem, s2_tenure.New(logger.NewNop()), logger.NewNop())
	res, err := b.Build(ctx, Options{
		ReferenceDate:  ref,
		LookbackMonths: 12,
		Horizons:       horizons,
		AuditVerfa:     []string{"01", "62"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 1, res.ConflictAbrnr)
	assert.Equal(t, period.Period(202305), res.WindowFrom)
	assert.Equal(t, period.Period(202404), res.WindowTo)

	conflicts, err := mem.Load(ctx, contracts.DatasetTenureConflicts)
	require.NoError(t, err)
	assert.Equal(t, 2, conflicts.Len())

	out, err := mem.Load(ctx, contracts.DatasetVolume12M)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "50000000010101", out.Str(0, ColAbrnr))

	since, _ := out.Int(0, ColKundenSeit)
	assert.Equal(t, int64(202301), since)
	v, _ := out.Float(0, MonthCountColumn(202401))
	assert.Equal(t, 3.0, v)
	v, _ = out.Float(0, AmountColumn(12))
	assert.Equal(t, 5.0, v)
	assert.Nil(t, out.Value(1, AmountColumn(1)), "unknown tenure stays missing")
	v, _ = out.Float(1, MonthCountColumn(202305))
	assert.Equal(t, 0.0, v, "zero-filled")

	slice, err := mem.Load(ctx, contracts.AuditSliceName("62"))
	require.NoError(t, err)
	assert.Equal(t, 1, slice.Len())
}

func TestColumnNames(t *testing.T) {
	assert.Equal(t, "amount_01M", AmountColumn(1))
	assert.Equal(t, "vol_12M_avg", VolAvgColumn(12))
	assert.Equal(t, "mnt_kpr_202401", MonthCountColumn(202401))
	assert.Equal(t, "vol_kpr_202312", MonthVolumeColumn(202312))
}
