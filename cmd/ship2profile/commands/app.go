package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wonny/ship2profile/internal/analytic"
	"github.com/wonny/ship2profile/internal/brain"
	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/pipelineconfig"
	"github.com/wonny/ship2profile/internal/runregistry"
	"github.com/wonny/ship2profile/internal/s0_input/quality"
	"github.com/wonny/ship2profile/internal/store"
	"github.com/wonny/ship2profile/internal/warehouse"
	"github.com/wonny/ship2profile/pkg/config"
	"github.com/wonny/ship2profile/pkg/database"
	"github.com/wonny/ship2profile/pkg/logger"
	"github.com/wonny/ship2profile/pkg/redis"
)

// app holds the dependencies shared by the commands
type app struct {
	cfg       *config.Config
	rules     *pipelineconfig.Config
	log       *logger.Logger
	store     *store.Store
	db        *database.DB
	warehouse contracts.Warehouse
	publisher contracts.AnalyticWriter
	redis     *redis.Client
	registry  *runregistry.Registry

	closers []func()
}

type appOptions struct {
	warehouse bool // connect to the warehouse
	analytic  bool // open the analytic store when enabled
	stage     string
}

// loadConfig reads the environment and applies the global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if product != "" {
		if !config.IsKnownProduct(product) {
			return nil, fmt.Errorf("unknown product %q (want %s)", product, strings.Join(config.Products, ", "))
		}
		cfg.Run.Product = strings.ToLower(product)
	}
	if refDate != "" {
		d, err := config.ParseReferenceDate(refDate)
		if err != nil {
			return nil, fmt.Errorf("--date: %w", err)
		}
		cfg.Run.ReferenceDate = d
	}
	if runName != "" {
		cfg.Run.Name = runName
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp wires config, logging, storage and the optional collaborators
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	if cfg.LogDir != "" && opts.stage != "" {
		path := logger.StageLogPath(cfg.LogDir, cfg.Run.Product, cfg.Run.Name, opts.stage)
		l, closer, err := logger.NewWithFile(cfg, path)
		if err != nil {
			return nil, err
		}
		a.log = l
		a.addCloser(closer)
	} else {
		a.log = logger.New(cfg)
	}

	a.rules, err = pipelineconfig.Load(cfg.Run.PipelineConfig)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load pipeline config: %w", err)
	}

	a.store = store.New(
		store.DataDir(cfg.Run.DataRoot, cfg.Run.Name, cfg.Run.Product),
		cfg.Run.InputDir,
		a.log,
	)

	a.redis, err = redis.New(cfg)
	if err != nil {
		// registry는 선택 사항, 연결 실패 시 비활성화
		a.log.WithError(err).Warn("redis unavailable, run registry disabled")
		a.redis = redis.NewDisabled()
	}
	a.addCloser(func() error { return a.redis.Close() })
	a.registry = runregistry.New(a.redis)

	if opts.warehouse {
		a.db, err = database.New(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to warehouse: %w", err)
		}
		a.closers = append(a.closers, a.db.Close)
		a.warehouse = warehouse.New(a.db.Pool, cfg.Database.QueriesPerSecond, cfg.Database.Burst, a.log)
	}

	a.publisher = analytic.NewNop(a.log)
	if opts.analytic && cfg.Analytic.Enabled {
		pub, err := analytic.Open(ctx, cfg.Analytic, a.log)
		if err != nil {
			// 분석 저장소 장애는 배치를 막지 않음
			a.log.WithError(err).Warn("analytic store unavailable, publishing disabled")
		} else {
			a.publisher = pub
			a.addCloser(pub)
		}
	}

	return a, nil
}

func (a *app) addCloser(c interface{}) {
	switch v := c.(type) {
	case io.Closer:
		a.closers = append(a.closers, func() { _ = v.Close() })
	case func() error:
		a.closers = append(a.closers, func() { _ = v() })
	}
}

// Close releases every opened resource in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) orchestrator() *brain.Orchestrator {
	return brain.NewOrchestrator(a.warehouse, a.store, a.publisher, a.registry, a.rules, quality.DefaultConfig(), a.log)
}

func (a *app) runConfig() brain.RunConfig {
	return brain.RunConfig{
		Date:    a.cfg.Run.ReferenceDate,
		RunID:   brain.GenerateRunID(),
		RunName: a.cfg.Run.Name,
		Product: a.cfg.Run.Product,
		Publish: true,
	}
}

// forProduct shares the connections of a but points config and store at another product
func (a *app) forProduct(p string) *app {
	cfg := *a.cfg
	cfg.Run.Product = p

	clone := *a
	clone.cfg = &cfg
	clone.log = a.log.WithField("product", p)
	clone.store = store.New(store.DataDir(cfg.Run.DataRoot, cfg.Run.Name, p), cfg.Run.InputDir, clone.log)
	clone.closers = nil
	return &clone
}
