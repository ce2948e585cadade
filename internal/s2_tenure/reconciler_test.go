package s2_tenure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/pkg/logger"
	"github.com/wonny/ship2profile/pkg/period"
)

var keyA = contracts.AccountKey{Ekpnr: "5000000001", Verfa: "01", Teiln: "01"}
var keyB = contracts.AccountKey{Ekpnr: "5000000002", Verfa: "62", Teiln: "01"}

func row(key contracts.AccountKey, since period.Period, months map[period.Period]contracts.MonthMetrics) contracts.VolumeRow {
	return contracts.VolumeRow{Key: key, KundenSeit: since, Months: months}
}

func TestReconcile_ConflictResolution(t *testing.T) {
	rows := []contracts.VolumeRow{
		row(keyA, 202301, map[period.Period]contracts.MonthMetrics{202401: {Count: 3, Volume: 30}}),
		row(keyB, 202310, map[period.Period]contracts.MonthMetrics{202401: {Count: 1, Volume: 5}}),
		row(keyA, 202305, map[period.Period]contracts.MonthMetrics{202401: {Count: 2, Volume: 10}, 202402: {Count: 1, Volume: 1}}),
	}

	res := New(logger.NewNop()).Reconcile(rows)

	assert.Equal(t, []contracts.Abrnr{keyA.Abrnr()}, res.Keys)
	assert.Len(t, res.Conflicts, 2)
	require.Len(t, res.Rows, 2)

	a := res.Rows[0]
	assert.Equal(t, keyA, a.Key)
	assert.Equal(t, period.Period(202301), a.KundenSeit)
	assert.Equal(t, 5.0, a.Months[202401].Count)
	assert.Equal(t, 40.0, a.Months[202401].Volume)
	assert.Equal(t, 1.0, a.Months[202402].Count)

	assert.Equal(t, keyB, res.Rows[1].Key, "non-conflicting row passes through")
	assert.Equal(t, period.Period(202310), res.Rows[1].KundenSeit)

	// input untouched
	assert.Equal(t, 3.0, rows[0].Months[202401].Count)
}

func TestReconcile_Idempotent(t *testing.T) {
	rows := []contracts.VolumeRow{
		row(keyA, 202301, map[period.Period]contracts.MonthMetrics{202401: {Count: 3}}),
		row(keyA, 202305, map[period.Period]contracts.MonthMetrics{202401: {Count: 2}}),
		row(keyB, 202404, map[period.Period]contracts.MonthMetrics{202404: {Count: 1}}),
	}

	r := New(logger.NewNop())
	first := r.Reconcile(rows)
	second := r.Reconcile(first.Rows)

	assert.Empty(t, second.Keys)
	assert.Empty(t, second.Conflicts)
	assert.Equal(t, first.Rows, second.Rows)
}

func TestReconcile_UnknownTenure(t *testing.T) {
	tests := []struct {
		name string
		a, b period.Period
		want period.Period
	}{
		{"known beats unknown", period.Unknown, 202305, 202305},
		{"unknown second", 202305, period.Unknown, 202305},
		{"both unknown", period.Unknown, period.Unknown, period.Unknown},
		{"minimum wins", 202402, 202311, 202311},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(logger.NewNop()).Reconcile([]contracts.VolumeRow{
				row(keyA, tt.a, nil),
				row(keyA, tt.b, nil),
			})
			require.Len(t, res.Rows, 1)
			assert.Equal(t, tt.want, res.Rows[0].KundenSeit)
		})
	}
}

func TestReconcile_Empty(t *testing.T) {
	res := New(logger.NewNop()).Reconcile(nil)
	assert.Empty(t, res.Rows)
	assert.Empty(t, res.Keys)
}
