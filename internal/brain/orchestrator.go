package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/metrics"
	"github.com/wonny/ship2profile/internal/pipelineconfig"
	"github.com/wonny/ship2profile/internal/runregistry"
	"github.com/wonny/ship2profile/internal/s0_input"
	"github.com/wonny/ship2profile/internal/s0_input/quality"
	"github.com/wonny/ship2profile/internal/s1_mapping"
	"github.com/wonny/ship2profile/internal/s2_tenure"
	"github.com/wonny/ship2profile/internal/s3_volume"
	"github.com/wonny/ship2profile/internal/s4_pricelist"
	"github.com/wonny/ship2profile/internal/s5_weight"
	"github.com/wonny/ship2profile/pkg/logger"
)

// Stage names, also accepted by RunStage
const (
	StageExtract       = "extract"
	StageMapping       = "mapping"
	StageVolume        = "volume"
	StageRahmenvertrag = "rahmenvertrag"
	StagePriceList     = "pricelist"
	StageWeight        = "weight"
	StagePublish       = "publish"
)

// Stages lists the stages in dependency order
var Stages = []string{
	StageExtract,
	StageMapping,
	StageVolume,
	StageRahmenvertrag,
	StagePriceList,
	StageWeight,
	StagePublish,
}

// Orchestrator coordinates the pipeline stages of one product run
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	warehouse contracts.Warehouse
	store     contracts.FileStore
	publisher contracts.AnalyticWriter
	registry  *runregistry.Registry
	rules     *pipelineconfig.Config
	quality   quality.Config
	logger    *logger.Logger
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	Date          time.Time // first day of the reference month
	RunID         string
	RunName       string
	Product       string
	Rahmenvertrag bool // remap ekpnr to framework-contract lead accounts
	SkipExtract   bool // reuse the datasets of a previous extraction
	Publish       bool
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	RunID           string
	Product         string
	Date            time.Time
	ConfigHash      string
	Success         bool
	Error           error
	CompletedStages []string
	Extract         *s0_input.Result
	Quality         *quality.Snapshot
	MappingRows     int
	Volume          *s3_volume.Result
	PriceList       *s4_pricelist.Result
	Weight          *s5_weight.Result
	PublishFailures []string
	Duration        time.Duration
}

// NewOrchestrator creates a new orchestrator. publisher and registry may be nil.
func NewOrchestrator(
	wh contracts.Warehouse,
	store contracts.FileStore,
	publisher contracts.AnalyticWriter,
	registry *runregistry.Registry,
	rules *pipelineconfig.Config,
	qualityCfg quality.Config,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		warehouse: wh,
		store:     store,
		publisher: publisher,
		registry:  registry,
		rules:     rules,
		quality:   qualityCfg,
		logger:    log,
	}
}

// Run executes every stage in dependency order
// S0 → S1 → S2/S3 → (Rahmenvertrag) → S4 → S5 → Publish
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	startTime := time.Now()

	result := &RunResult{
		RunID:           config.RunID,
		Product:         config.Product,
		Date:            config.Date,
		CompletedStages: make([]string, 0, len(Stages)),
	}

	hash, err := pipelineconfig.Hash(o.rules)
	if err != nil {
		return result, fmt.Errorf("hash pipeline config: %w", err)
	}
	result.ConfigHash = hash

	log := o.logger.ForRun(config.RunID, config.Product)
	log.WithFields(map[string]interface{}{
		"date":          config.Date.Format("2006-01-02"),
		"run_name":      config.RunName,
		"config_id":     o.rules.Meta.ConfigID,
		"config_hash":   hash,
		"rahmenvertrag": config.Rahmenvertrag,
		"publish":       config.Publish,
	}).Info("Starting pipeline run")

	for _, stage := range Stages {
		if skip := o.skipped(stage, config); skip != "" {
			log.Infof("Skipping %s (%s)", stage, skip)
			continue
		}
		if err := o.runStage(ctx, stage, config, result); err != nil {
			result.Error = fmt.Errorf("%s failed: %w", stage, err)
			result.Duration = time.Since(startTime)
			o.record(ctx, config, result)
			return result, result.Error
		}
		result.CompletedStages = append(result.CompletedStages, stage)
	}

	result.Success = true
	result.Duration = time.Since(startTime)
	metrics.LastSuccess.WithLabelValues(config.Product).SetToCurrentTime()
	o.record(ctx, config, result)

	log.WithFields(map[string]interface{}{
		"duration":         result.Duration.Seconds(),
		"stages":           len(result.CompletedStages),
		"publish_failures": len(result.PublishFailures),
	}).Info("Pipeline run completed successfully")

	return result, nil
}

// RunStage executes a single stage against the datasets already in the store
func (o *Orchestrator) RunStage(ctx context.Context, stage string, config RunConfig) (*RunResult, error) {
	if !IsStage(stage) {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	result := &RunResult{RunID: config.RunID, Product: config.Product, Date: config.Date}
	if err := o.runStage(ctx, stage, config, result); err != nil {
		result.Error = err
		return result, err
	}
	result.Success = true
	result.CompletedStages = []string{stage}
	return result, nil
}

// IsStage reports whether name is a known stage
func IsStage(name string) bool {
	for _, s := range Stages {
		if s == name {
			return true
		}
	}
	return false
}

func (o *Orchestrator) skipped(stage string, config RunConfig) string {
	switch {
	case stage == StageExtract && config.SkipExtract:
		return "reusing extracted datasets"
	case stage == StageRahmenvertrag && !config.Rahmenvertrag:
		return "no framework contract remap"
	case stage == StagePublish && !config.Publish:
		return "publish disabled"
	}
	return ""
}

func (o *Orchestrator) runStage(ctx context.Context, stage string, config RunConfig, result *RunResult) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStage(config.Product, stage, start, err) }()

	log := o.logger.ForRun(config.RunID, config.Product).ForStage(stage)

	switch stage {
	case StageExtract:
		return o.runS0(ctx, config, result, log)
	case StageMapping:
		return o.runS1(ctx, result, log)
	case StageVolume:
		return o.runS3(ctx, config, result, log)
	case StageRahmenvertrag:
		return s1_mapping.NewRemapper(o.store, log).Apply(ctx, s1_mapping.RemapDatasets)
	case StagePriceList:
		return o.runS4(ctx, config, result, log)
	case StageWeight:
		return o.runS5(ctx, result, log)
	case StagePublish:
		o.publish(ctx, result, log)
		return nil
	}
	return fmt.Errorf("unknown stage %q", stage)
}

// runS0 extracts the warehouse datasets and validates them
func (o *Orchestrator) runS0(ctx context.Context, config RunConfig, result *RunResult, log *logger.Logger) error {
	log.Info("Running S0: warehouse extraction")

	extractor, err := s0_input.NewExtractor(o.warehouse, o.store, o.rules, config.RunName, config.Product, log)
	if err != nil {
		return err
	}
	extracted, err := extractor.Extract(ctx, config.Date)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	result.Extract = extracted

	gate := quality.NewGate(o.store, quality.DefaultRules(o.rules.BracketNames()), o.quality)
	snapshot, err := gate.Check(ctx, config.Date)
	if err != nil {
		return fmt.Errorf("quality gate validation: %w", err)
	}
	result.Quality = snapshot
	if !snapshot.Passed {
		return snapshot.Err()
	}

	log.WithFields(map[string]interface{}{
		"datasets":      len(extracted.Rows),
		"empty":         extracted.Empty,
		"quality_score": snapshot.Score,
	}).Info("S0 completed")
	return nil
}

// runS1 builds the abrnr -> kalknr mapping
func (o *Orchestrator) runS1(ctx context.Context, result *RunResult, log *logger.Logger) error {
	log.Info("Running S1: kalknr mapping")

	mapping, err := s1_mapping.NewBuilder(o.store, o.rules.Mapping, log).Build(ctx)
	if err != nil {
		return fmt.Errorf("mapping build: %w", err)
	}
	result.MappingRows = mapping.Len()
	return nil
}

// runS3 reconciles kunden_seit (S2) and aggregates the trailing windows
func (o *Orchestrator) runS3(ctx context.Context, config RunConfig, result *RunResult, log *logger.Logger) error {
	log.Info("Running S3: trailing volume windows")

	rules, err := o.rules.Product(config.Product)
	if err != nil {
		return err
	}

	builder := s3_volume.NewBuilder(o.store, s2_tenure.New(log), log)
	res, err := builder.Build(ctx, s3_volume.Options{
		ReferenceDate:  config.Date,
		LookbackMonths: o.rules.LookbackMonths,
		Horizons:       o.rules.Horizons,
		AuditVerfa:     rules.AuditVerfa,
	})
	if err != nil {
		return fmt.Errorf("volume build: %w", err)
	}
	result.Volume = res

	if res.ConflictAbrnr > 0 {
		metrics.TenureConflicts.WithLabelValues(config.Product).Add(float64(res.ConflictAbrnr))
	}
	metrics.DatasetRows.WithLabelValues(config.Product, contracts.DatasetVolume12M).Set(float64(res.Rows))
	return nil
}

// runS4 resolves the price-list validity intervals
func (o *Orchestrator) runS4(ctx context.Context, config RunConfig, result *RunResult, log *logger.Logger) error {
	log.Info("Running S4: price-list validity")

	rules, err := o.rules.Product(config.Product)
	if err != nil {
		return err
	}

	res, err := s4_pricelist.NewResolver(o.store, config.Product, rules, log).
		WithRahmenvertrag(config.Rahmenvertrag).
		Resolve(ctx)
	if err != nil {
		return fmt.Errorf("price list resolve: %w", err)
	}
	result.PriceList = res
	metrics.DatasetRows.WithLabelValues(config.Product, contracts.DatasetPriceListUnique).Set(float64(len(res.Rows)))
	return nil
}

// runS5 estimates the weight distribution
func (o *Orchestrator) runS5(ctx context.Context, result *RunResult, log *logger.Logger) error {
	log.Info("Running S5: weight distribution")

	res, err := s5_weight.NewEstimator(o.store, o.rules.BracketNames(), log).Run(ctx)
	if err != nil {
		return fmt.Errorf("weight estimate: %w", err)
	}
	result.Weight = res
	metrics.DatasetRows.WithLabelValues(result.Product, contracts.DatasetWeightDistribution).Set(float64(len(res.Buckets)))
	return nil
}

// PublishTargets pairs result datasets with their analytic tables
func PublishTargets(t pipelineconfig.AnalyticTargets) [][2]string {
	var out [][2]string
	for _, p := range [][2]string{
		{contracts.DatasetKprKosten, t.KprCosts},
		{contracts.DatasetPriceListUnique, t.PriceList},
		{contracts.DatasetWeightDistribution, t.WeightDistribution},
	} {
		if p[1] != "" {
			out = append(out, p)
		}
	}
	return out
}

// publish writes the results to the analytic store. Failures are logged and counted only.
func (o *Orchestrator) publish(ctx context.Context, result *RunResult, log *logger.Logger) {
	if o.publisher == nil {
		log.Info("no analytic publisher configured")
		return
	}

	for _, p := range PublishTargets(o.rules.Analytic) {
		dataset, target := p[0], p[1]

		t, err := o.store.Load(ctx, dataset)
		if err == nil {
			err = o.publisher.Publish(ctx, target, t)
		}
		if err != nil {
			metrics.PublishFailures.WithLabelValues(target).Inc()
			result.PublishFailures = append(result.PublishFailures, target)
			log.WithError(err).WithField("target", target).Warn("analytic publish failed")
			continue
		}
		log.WithFields(map[string]interface{}{
			"dataset": dataset,
			"target":  target,
			"rows":    t.Len(),
		}).Info("published")
	}
}

// record stores the run summary. A registry failure never fails the run.
func (o *Orchestrator) record(ctx context.Context, config RunConfig, result *RunResult) {
	if o.registry == nil {
		return
	}
	if err := o.registry.Record(ctx, Summarize(config, result)); err != nil {
		o.logger.WithError(err).Warn("failed to record run summary")
	}
}

// Summarize flattens a run result for the registry and API
func Summarize(config RunConfig, result *RunResult) runregistry.Summary {
	s := runregistry.Summary{
		RunID:           result.RunID,
		RunName:         config.RunName,
		Product:         result.Product,
		ReferenceDate:   result.Date.Format("2006-01-02"),
		ConfigHash:      result.ConfigHash,
		Success:         result.Success,
		CompletedStages: result.CompletedStages,
		PublishFailures: result.PublishFailures,
		StartedAt:       time.Now().Add(-result.Duration),
		Duration:        result.Duration,
	}
	if result.Error != nil {
		s.Error = result.Error.Error()
	}
	if result.Extract != nil {
		s.Rows = result.Extract.Rows
	}
	if result.Volume != nil {
		s.TenureConflicts = result.Volume.ConflictAbrnr
	}
	return s
}

// IsMalformed reports whether a run failed on bad input rather than a collaborator
func IsMalformed(err error) bool {
	var m *contracts.MalformedInputError
	return errors.As(err, &m)
}

// GenerateRunID generates a unique run ID
func GenerateRunID() string {
	return fmt.Sprintf("run_%s_%s", time.Now().Format("20060102_150405"), uuid.NewString()[:8])
}
