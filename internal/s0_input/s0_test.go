package s0_input

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/pipelineconfig"
	"github.com/wonny/ship2profile/internal/store"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/logger"
	"github.com/wonny/ship2profile/pkg/period"
)

var ref = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func testConfig() *pipelineconfig.Config {
	return &pipelineconfig.Config{
		Horizons:       []int{1, 3, 6, 9, 12},
		LookbackMonths: 12,
		WeightBrackets: []pipelineconfig.WeightBracket{
			{Name: "gewicht_bis01kg", Lower: 0, Upper: 1},
			{Name: "gewicht_ue01kg", Lower: 1},
		},
		Warehouse: pipelineconfig.WarehouseTables{
			Schema:           "sbx",
			MonthlyVolume:    "sbx.stp_monthly_volume",
			PzeEvents:        "nextt.pze_event",
			PanShipments:     "nextt.pan_ship",
			KprCosts:         "kpr.vw_f_kosten",
			KprZustellung:    "kpr.vw_f_zustellung",
			KprRahmenvertrag: "kpr.tb_globuss_rv",
			RunTables: pipelineconfig.RunTables{
				KundenSeit:       "kunden_seit",
				Aktionsgeschaeft: "kt_abr_aktionsgeschaeft",
				Kleinpaket:       "kt_abr_kleinpaket",
			},
		},
		Products: map[string]pipelineconfig.ProductRules{
			"paket": {Verfa: "01", KprProductIDs: []int{1}, KprTreiber: "kpr.vw_f_treiber"},
		},
	}
}

func TestMonthlyVolumeQuery(t *testing.T) {
	cfg := testConfig()
	q := MonthlyVolumeQuery(cfg.Warehouse, "sbx.run_kunden_seit", "sbx.run_aktion", "sbx.run_kp", 202305, 202404)

	assert.Contains(t, q, ">= 202305")
	assert.Contains(t, q, "<= 202404")
	assert.Contains(t, q, "LEFT JOIN sbx.run_kunden_seit AS b")
	assert.Contains(t, q, "NOT IN (SELECT abrnr FROM sbx.run_kp")
	assert.Contains(t, q, "THEN a.jahr_monat ELSE MIN(b.kunden_seit) END AS kunden_seit")
}

func TestWeightQuery(t *testing.T) {
	cfg := testConfig()
	q := WeightQuery(cfg.Warehouse, cfg.WeightBrackets, ref, ref.AddDate(0, 1, -1))

	assert.Contains(t, q, "pze.gewicht > 0 AND pze.gewicht <= 1) THEN 1 ELSE 0 END) AS gewicht_bis01kg")
	assert.Contains(t, q, "(pze.gewicht > 1) THEN 1 ELSE 0 END) AS gewicht_ue01kg")
	assert.Contains(t, q, "BETWEEN DATE '2024-05-01' AND DATE '2024-05-31'")
}

func TestKprQueries(t *testing.T) {
	cfg := testConfig()

	q := KprCostsQuery(cfg.Warehouse, "sbx.run_aktion", 202305, 202404, []int{34, 35})
	assert.Contains(t, q, "BETWEEN '202305' AND '202404'")
	assert.Contains(t, q, "produkt_id IN (34, 35)")

	assert.Contains(t, KprTreiberQuery("kpr.treiber", 202404), "monat <= '202404'")
	assert.Contains(t, RahmenvertragQuery(cfg.Warehouse, ref), "rv_begin <= 20240501")
	assert.Contains(t, MinMaxDateQuery("t", "load_dtm"), "MAX(load_dtm) AS max_load_dtm")
}

func TestMonthRanges(t *testing.T) {
	r := MonthRanges(period.MonthOffset(ref, -11), period.Of(ref))
	require.Len(t, r, 12)
	assert.Equal(t, "2023-06-01", r[0][0].Format("2006-01-02"))
	assert.Equal(t, "2024-02-29", r[8][1].Format("2006-01-02"))
	assert.Equal(t, "2024-05-31", r[11][1].Format("2006-01-02"))
}

func TestSumWeights(t *testing.T) {
	src := table.New(table.Str("ekpnr"), table.Str("verf"), table.Str("teiln"),
		table.Float("gewicht_sum"), table.Float("gewicht_bis01kg"))
	require.NoError(t, src.Append("5000000001", "01", "01", 4.0, 2.0))
	require.NoError(t, src.Append("5000000001.0", "01", "01", 1.0, 1.0))
	require.NoError(t, src.Append("123", "62", "01", 0.5, 1.0))

	out, err := SumWeights(src, []string{"gewicht_bis01kg"})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "50000000010101", out.Str(0, "abrnr"))
	v, _ := out.Float(0, "gewicht_sum")
	assert.Equal(t, 5.0, v)
	assert.Equal(t, "0000000123", out.Str(1, "ekpnr"))
	assert.Equal(t, "00000001236201", out.Str(1, "abrnr"))
}

// fakeWarehouse answers by matching a query fragment
type fakeWarehouse struct {
	queries []string
	answers map[string]*table.Table
	fail    string
}

func (f *fakeWarehouse) Query(_ context.Context, sql string) (*table.Table, error) {
	f.queries = append(f.queries, sql)
	if f.fail != "" && strings.Contains(sql, f.fail) {
		return nil, &contracts.QueryExecutionError{Query: sql, Err: errors.New("spool space exhausted")}
	}
	for frag, t := range f.answers {
		if strings.Contains(sql, frag) {
			return t, nil
		}
	}
	return table.New(table.Str("abrnr")), nil
}

func TestExtractor_Extract(t *testing.T) {
	weights := table.New(table.Str("ekpnr"), table.Str("verf"), table.Str("teiln"),
		table.Float("gewicht_sum"), table.Float("gewicht_bis01kg"), table.Float("gewicht_ue01kg"))
	require.NoError(t, weights.Append("5000000001", "01", "01", 3.0, 1.0, 1.0))

	facts := table.New(table.Str("abrnr"), table.Int("jahr_monat"))
	require.NoError(t, facts.Append("50000000010101", 202404))

	wh := &fakeWarehouse{answers: map[string]*table.Table{
		"nextt.pze_event pze": weights,
		"stp_monthly_volume":  facts,
	}}
	mem := store.NewMemory()

	e, err := NewExtractor(wh, mem, testConfig(), "ship2profile_202405", "paket", logger.NewNop())
	require.NoError(t, err)

	res, err := e.Extract(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Rows[contracts.DatasetMonthlyFacts])
	assert.Equal(t, 1, res.Rows[contracts.DatasetProdGewicht], "12 monthly parts summed into one row")
	assert.Contains(t, res.Empty, contracts.DatasetKprTreiber)

	gw, err := mem.Load(context.Background(), contracts.DatasetProdGewicht)
	require.NoError(t, err)
	v, _ := gw.Float(0, "gewicht_sum")
	assert.Equal(t, 36.0, v)

	_, err = mem.Load(context.Background(), contracts.DatasetKprKosten)
	assert.NoError(t, err)

	assert.True(t, strings.Contains(wh.queries[0], "sbx.ship2profile_202405_kunden_seit"))
}

func TestExtractor_QueryFailure(t *testing.T) {
	wh := &fakeWarehouse{fail: "stp_monthly_volume"}
	e, err := NewExtractor(wh, store.NewMemory(), testConfig(), "run", "paket", logger.NewNop())
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), ref)
	var qe *contracts.QueryExecutionError
	require.True(t, errors.As(err, &qe))
	assert.Contains(t, err.Error(), contracts.DatasetMonthlyFacts)
}

func TestNewExtractor_UnknownProduct(t *testing.T) {
	_, err := NewExtractor(&fakeWarehouse{}, store.NewMemory(), testConfig(), "run", "brief", logger.NewNop())
	assert.Error(t, err)
}
