package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/ship2profile/internal/brain"
	"github.com/wonny/ship2profile/internal/metrics"
	"github.com/wonny/ship2profile/pkg/logger"
)

// Runner executes a full pipeline run
type Runner interface {
	Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error)
}

// MonthlyRunConfig holds the fixed parameters of the scheduled run
type MonthlyRunConfig struct {
	Product       string
	RunName       string
	Schedule      string
	Rahmenvertrag bool
	Publish       bool
	PushURL       string
}

// MonthlyRunJob runs the pipeline for the current reference month
// ⭐ SSOT: 월간 배치 스케줄은 이 Job에서만
type MonthlyRunJob struct {
	runner Runner
	config MonthlyRunConfig
	logger *logger.Logger
	now    func() time.Time
}

// NewMonthlyRunJob creates a new monthly run job
func NewMonthlyRunJob(runner Runner, config MonthlyRunConfig, log *logger.Logger) *MonthlyRunJob {
	return &MonthlyRunJob{
		runner: runner,
		config: config,
		logger: log,
		now:    time.Now,
	}
}

// Name returns the job name
func (j *MonthlyRunJob) Name() string {
	return "monthly_run_" + j.config.Product
}

// Schedule returns the cron schedule
func (j *MonthlyRunJob) Schedule() string {
	if j.config.Schedule == "" {
		return "0 0 6 2 * *" // 2nd of the month, 6 AM (with seconds)
	}
	return j.config.Schedule
}

// ReferenceDate is the first day of the current month
func (j *MonthlyRunJob) ReferenceDate() time.Time {
	now := j.now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Run executes the pipeline and pushes the run metrics
func (j *MonthlyRunJob) Run(ctx context.Context) error {
	cfg := brain.RunConfig{
		Date:          j.ReferenceDate(),
		RunID:         brain.GenerateRunID(),
		RunName:       j.config.RunName,
		Product:       j.config.Product,
		Rahmenvertrag: j.config.Rahmenvertrag,
		Publish:       j.config.Publish,
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":  cfg.RunID,
		"product": cfg.Product,
		"date":    cfg.Date.Format("2006-01-02"),
	}).Info("Starting scheduled pipeline run")

	result, err := j.runner.Run(ctx, cfg)

	// 실패한 실행도 메트릭은 전송
	if pushErr := metrics.Push(j.config.PushURL, "ship2profile", j.config.Product); pushErr != nil {
		j.logger.WithError(pushErr).Warn("metrics push failed")
	}

	if err != nil {
		return fmt.Errorf("pipeline run %s: %w", cfg.RunID, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":           result.RunID,
		"stages":           len(result.CompletedStages),
		"publish_failures": len(result.PublishFailures),
		"duration":         result.Duration.Seconds(),
	}).Info("Scheduled pipeline run completed")

	return nil
}
