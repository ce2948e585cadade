package brain

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/pipelineconfig"
	"github.com/wonny/ship2profile/internal/runregistry"
	"github.com/wonny/ship2profile/internal/s0_input/quality"
	"github.com/wonny/ship2profile/internal/s3_volume"
	"github.com/wonny/ship2profile/internal/s4_pricelist"
	"github.com/wonny/ship2profile/internal/store"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/logger"
	"github.com/wonny/ship2profile/pkg/redis"
)

var ref = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func testRules() *pipelineconfig.Config {
	return &pipelineconfig.Config{
		Meta:           pipelineconfig.Meta{ConfigID: "test"},
		Horizons:       []int{1, 3, 6, 9, 12},
		LookbackMonths: 12,
		Mapping:        pipelineconfig.MappingRules{EkpnrMin: 5000000000, EkpnrMax: 7000000000},
		WeightBrackets: []pipelineconfig.WeightBracket{
			{Name: "gewicht_bis05kg", Lower: 0, Upper: 5},
			{Name: "gewicht_ue05kg", Lower: 5},
		},
		Analytic: pipelineconfig.AnalyticTargets{
			KprCosts:           "kpr_costs_report15",
			PriceList:          "prima_price_delta",
			WeightDistribution: "shiptoprofile_kontrakt_serv",
		},
		Products: map[string]pipelineconfig.ProductRules{
			"paket": {
				Verfa:      "01",
				PriceLists: []string{"P1"},
				PLPattern:  "^P",
				Materials:  []string{"10001000"},
				AuditVerfa: []string{"01"},
			},
		},
	}
}

func mustAppend(t *testing.T, tb *table.Table, rows ...[]any) *table.Table {
	t.Helper()
	for _, r := range rows {
		require.NoError(t, tb.Append(r...))
	}
	return tb
}

// seed writes the datasets every stage after extraction reads
func seed(t *testing.T, mem *store.Memory) {
	t.Helper()
	ctx := context.Background()

	facts := mustAppend(t, table.New(
		table.Int(s3_volume.ColJahrMonat), table.Str(s3_volume.ColAbrnr), table.Str(s3_volume.ColEkpnr),
		table.Str(s3_volume.ColVerfa), table.Str(s3_volume.ColTeiln), table.Int(s3_volume.ColKundenSeit),
		table.Float(s3_volume.ColVolBer), table.Float(s3_volume.ColNumSendung),
	),
		[]any{int64(202401), "50000000010101", "5000000001", "01", "01", int64(202301), 30.0, 3.0},
		[]any{int64(202404), "50000000010101", "5000000001", "01", "01", int64(202301), 10.0, 1.0},
	)
	require.NoError(t, mem.Save(ctx, contracts.DatasetMonthlyFacts, facts))

	kontrakt := mustAppend(t, table.New(table.Str("ekpnr"), table.Str("kalknr"), table.Str("abrnr"), table.Str("rv_ekp")),
		[]any{"5000000001", "K1", "50000000010101", nil},
	)
	require.NoError(t, mem.Save(ctx, contracts.InputKontrakt, kontrakt))

	fibu := mustAppend(t, table.New(
		table.Str(s4_pricelist.ColAuftraggeber), table.Str(s4_pricelist.ColVerfahren), table.Str(s4_pricelist.ColTeilnahme),
		table.Str(s4_pricelist.ColPL), table.Str(s4_pricelist.ColMaterial),
		table.Str(s4_pricelist.ColFromLeft), table.Str(s4_pricelist.ColToLeft),
		table.Str(s4_pricelist.ColFromRight), table.Str(s4_pricelist.ColToRight),
	),
		[]any{"5000000001", "01", "01", "P1", "10001000", "01.01.2024", "31.12.2024", nil, nil},
	)
	require.NoError(t, mem.Save(ctx, contracts.InputFibuExclA, fibu))
	require.NoError(t, mem.Save(ctx, contracts.InputKleinpaket, table.New(table.Str("abrnr"))))

	weights := mustAppend(t, table.New(
		table.Str("abrnr"), table.Str("ekpnr"), table.Float("gewicht_sum"),
		table.Float("gewicht_bis05kg"), table.Float("gewicht_ue05kg"),
	),
		[]any{"50000000010101", "5000000001", 20.0, 3.0, 1.0},
	)
	require.NoError(t, mem.Save(ctx, contracts.DatasetProdGewicht, weights))
}

type recordingPublisher struct {
	targets []string
}

func (p *recordingPublisher) Publish(_ context.Context, target string, _ *table.Table) error {
	p.targets = append(p.targets, target)
	return nil
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, *table.Table) error {
	return errors.New("clickhouse unavailable")
}

type failingWarehouse struct{}

func (failingWarehouse) Query(_ context.Context, sql string) (*table.Table, error) {
	return nil, &contracts.QueryExecutionError{Query: sql, Err: errors.New("connection refused")}
}

func newOrchestrator(mem *store.Memory, wh contracts.Warehouse, pub contracts.AnalyticWriter) *Orchestrator {
	return NewOrchestrator(wh, mem, pub, runregistry.New(redis.NewDisabled()),
		testRules(), quality.DefaultConfig(), logger.NewNop())
}

func runConfig() RunConfig {
	return RunConfig{
		Date:        ref,
		RunID:       "run_test",
		RunName:     "ship2profile_test",
		Product:     "paket",
		SkipExtract: true,
		Publish:     true,
	}
}

func TestOrchestrator_Run(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem)
	pub := &recordingPublisher{}

	result, err := newOrchestrator(mem, failingWarehouse{}, pub).Run(context.Background(), runConfig())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, []string{StageMapping, StageVolume, StagePriceList, StageWeight, StagePublish}, result.CompletedStages)
	assert.NotEmpty(t, result.ConfigHash)
	assert.Equal(t, 1, result.MappingRows)
	require.NotNil(t, result.Volume)
	assert.Equal(t, 1, result.Volume.Rows)
	require.NotNil(t, result.PriceList)
	assert.Len(t, result.PriceList.Rows, 1)
	require.NotNil(t, result.Weight)
	assert.Equal(t, 1, result.Weight.Accounts)

	// df_kpr_kosten was never extracted, its publication fails without failing the run
	assert.Equal(t, []string{"kpr_costs_report15"}, result.PublishFailures)
	assert.Equal(t, []string{"prima_price_delta", "shiptoprofile_kontrakt_serv"}, pub.targets)

	for _, name := range []string{
		contracts.DatasetMapping,
		contracts.DatasetVolume12M,
		contracts.DatasetPriceListUnique,
		contracts.DatasetWeightDistribution,
	} {
		_, err := mem.Load(context.Background(), name)
		assert.NoError(t, err, name)
	}
}

func TestOrchestrator_PublishFailuresAreSwallowed(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem)

	result, err := newOrchestrator(mem, failingWarehouse{}, failingPublisher{}).Run(context.Background(), runConfig())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.PublishFailures, 3)
}

func TestOrchestrator_PublishDisabled(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem)
	pub := &recordingPublisher{}

	cfg := runConfig()
	cfg.Publish = false
	result, err := newOrchestrator(mem, failingWarehouse{}, pub).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotContains(t, result.CompletedStages, StagePublish)
	assert.Empty(t, pub.targets)
}

func TestOrchestrator_ExtractFailure(t *testing.T) {
	cfg := runConfig()
	cfg.SkipExtract = false

	result, err := newOrchestrator(store.NewMemory(), failingWarehouse{}, nil).Run(context.Background(), cfg)
	require.Error(t, err)

	var qe *contracts.QueryExecutionError
	assert.True(t, errors.As(err, &qe))
	assert.False(t, result.Success)
	assert.Empty(t, result.CompletedStages)
	assert.False(t, IsMalformed(err))
}

func TestOrchestrator_RahmenvertragNeedsExtractedDatasets(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem)

	cfg := runConfig()
	cfg.Rahmenvertrag = true
	result, err := newOrchestrator(mem, failingWarehouse{}, nil).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), StageRahmenvertrag)
	assert.Equal(t, []string{StageMapping, StageVolume}, result.CompletedStages)
}

func TestOrchestrator_RahmenvertragRemapsPriceList(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seed(t, mem)

	kontrakt := mustAppend(t, table.New(table.Str("ekpnr"), table.Str("kalknr"), table.Str("abrnr"), table.Str("rv_ekp")),
		[]any{"5000000001", "K1", "50000000010101", "6000000001"},
	)
	require.NoError(t, mem.Save(ctx, contracts.InputKontrakt, kontrakt))
	for _, name := range []string{contracts.DatasetKprKosten, contracts.DatasetKprTreiber, contracts.DatasetKprZustellung} {
		kpr := mustAppend(t, table.New(table.Str("abrnr"), table.Str("ekpnr"), table.Float("menge")),
			[]any{"50000000010101", "5000000001", 1.0},
		)
		require.NoError(t, mem.Save(ctx, name, kpr))
	}

	cfg := runConfig()
	cfg.Rahmenvertrag = true
	cfg.Publish = false
	result, err := newOrchestrator(mem, failingWarehouse{}, nil).Run(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{StageMapping, StageVolume, StageRahmenvertrag, StagePriceList, StageWeight}, result.CompletedStages)

	// price list, volume and weights agree on the lead account
	require.Len(t, result.PriceList.Rows, 1)
	assert.Equal(t, contracts.Ekpnr("6000000001"), result.PriceList.Rows[0].Ekpnr)
	assert.Equal(t, 1, result.PriceList.RemappedAbrnr)

	for _, name := range []string{contracts.DatasetVolume12M, contracts.DatasetProdGewicht, contracts.DatasetPriceListUnique} {
		out, err := mem.Load(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, "6000000001", out.Str(0, "ekpnr"), name)
	}

	old, err := mem.Load(ctx, contracts.DatasetProdGewicht+"_old")
	require.NoError(t, err)
	assert.Equal(t, "5000000001", old.Str(0, "ekpnr"))
}

func TestOrchestrator_RunStage(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem)
	o := newOrchestrator(mem, failingWarehouse{}, nil)

	result, err := o.RunStage(context.Background(), StageMapping, runConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, result.MappingRows)

	_, err = o.RunStage(context.Background(), "s7", runConfig())
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	cfg := runConfig()
	result := &RunResult{
		RunID:           "run_x",
		Product:         "paket",
		Date:            ref,
		Error:           errors.New("boom"),
		CompletedStages: []string{StageExtract},
		Volume:          &s3_volume.Result{ConflictAbrnr: 4},
		Duration:        time.Second,
	}

	s := Summarize(cfg, result)
	assert.Equal(t, "2024-05-01", s.ReferenceDate)
	assert.Equal(t, "boom", s.Error)
	assert.Equal(t, 4, s.TenureConflicts)
	assert.Equal(t, cfg.RunName, s.RunName)
}

func TestPublishTargets(t *testing.T) {
	targets := PublishTargets(pipelineconfig.AnalyticTargets{PriceList: "pl"})
	require.Len(t, targets, 1)
	assert.Equal(t, [2]string{contracts.DatasetPriceListUnique, "pl"}, targets[0])
}

func TestGenerateRunID(t *testing.T) {
	id := GenerateRunID()
	assert.Regexp(t, regexp.MustCompile(`^run_\d{8}_\d{6}_[0-9a-f]{8}$`), id)
	assert.NotEqual(t, id, GenerateRunID())
}
