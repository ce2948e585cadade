package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestMonthOffset(t *testing.T) {
	tests := []struct {
		name  string
		ref   time.Time
		delta int
		want  Period
	}{
		{"same month", date(2024, 5), 0, 202405},
		{"one back", date(2024, 5), -1, 202404},
		{"twelve back", date(2024, 5), -12, 202305},
		{"one forward", date(2024, 5), 1, 202406},
		{"january minus one", date(2024, 1), -1, 202312},
		{"january minus twelve", date(2024, 1), -12, 202301},
		{"january minus thirteen", date(2024, 1), -13, 202212},
		{"december plus one", date(2023, 12), 1, 202401},
		{"multi year back", date(2024, 3), -27, 202112},
		{"multi year forward", date(2024, 3), 34, 202701},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MonthOffset(tt.ref, tt.delta))
		})
	}
}

func TestMonthOffset_PipelineRange(t *testing.T) {
	for _, ref := range []time.Time{date(2024, 1), date(2024, 5), date(2023, 12)} {
		for delta := -12; delta <= 1; delta++ {
			p := MonthOffset(ref, delta)
			require.True(t, p.Valid(), "ref=%s delta=%d -> %d", ref, delta, p)
			assert.Equal(t, delta, Of(ref).MonthsUntil(p))
		}
		assert.Equal(t, Of(ref), MonthOffset(ref, -12).Add(12))
	}
}

func TestRange(t *testing.T) {
	got := Range(202311, 202402)
	assert.Equal(t, []Period{202311, 202312, 202401, 202402}, got)
	assert.Nil(t, Range(202402, 202311))

	from, to := Window(date(2024, 5), 12)
	assert.Len(t, Range(from, to), 12)
	assert.Equal(t, Period(202305), from)
	assert.Equal(t, Period(202404), to)
}

func TestParse(t *testing.T) {
	p, err := Parse("202401")
	require.NoError(t, err)
	assert.Equal(t, Period(202401), p)

	p, err = Parse("")
	require.NoError(t, err)
	assert.Equal(t, Unknown, p)

	_, err = Parse("202413")
	assert.Error(t, err)
	_, err = Parse("abc")
	assert.Error(t, err)
}

func TestFirstDay(t *testing.T) {
	assert.Equal(t, date(2023, 12), Period(202312).FirstDay())
}
