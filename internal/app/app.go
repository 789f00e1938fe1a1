// Package app assembles the Postgres-backed triage stack from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/physio-triage-server/internal/cache"
	"github.com/physio-triage-server/internal/database"
	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/feedback"
	"github.com/physio-triage-server/internal/health"
	"github.com/physio-triage-server/internal/logging"
	"github.com/physio-triage-server/internal/repository"
	"github.com/physio-triage-server/internal/service"
	"github.com/physio-triage-server/internal/triage"
)

// Version is reported by health checks and the CLI. It is overridden at build time.
var Version = "dev"

// App holds the long-lived components shared by the HTTP API and the MCP server.
type App struct {
	Config   *domain.Config
	Logger   *logrus.Logger
	DB       *database.DB
	Analysis *service.AnalysisService
	Feedback feedback.Store
	Health   *health.Checker

	closers []func() error
}

// Option configures New.
type Option func(*options)

type options struct {
	logOutput string
	logger    *logrus.Logger
}

// WithLogOutput overrides the configured log output, for example "stderr" under the stdio MCP
// transport.
func WithLogOutput(output string) Option {
	return func(o *options) { o.logOutput = output }
}

// WithLogger uses logger instead of building one from configuration.
func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New connects to the configured dependencies and builds the analysis service. On error every
// dependency opened so far is closed.
func New(ctx context.Context, cfg *domain.Config, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: o.logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// Step 1: Logging
	if a.Logger == nil {
		output := cfg.Logging.Output
		if o.logOutput != "" {
			output = o.logOutput
		}
		if a.Logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format, output); err != nil {
			return nil, err
		}
	}

	policy, err := triage.ParseGatingPolicy(cfg.Analysis.GatingPolicy)
	if err != nil {
		return nil, err
	}
	engine := triage.New(triage.WithGatingPolicy(policy))

	// Step 2: Database and schema
	dbCfg := database.ConfigFromDomain(cfg.Database)
	if a.DB, err = database.NewConnection(ctx, dbCfg, a.Logger); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, func() error { a.DB.Close(); return nil })

	if cfg.Database.AutoMigrate {
		if err := Migrate(ctx, cfg, a.Logger); err != nil {
			return nil, err
		}
	}

	// Step 3: Analysis cache
	analysisCache, redisClient := a.buildCache(cfg.Cache)
	a.closers = append(a.closers, analysisCache.Close)

	// Step 4: Analysis service
	serviceOpts := []service.Option{
		service.WithCache(analysisCache),
		service.WithScreeningRepository(repository.NewScreeningRepository(a.DB.Pool, a.Logger)),
		service.WithBatchLimits(cfg.Analysis.MaxBatchSize, cfg.Analysis.BatchConcurrency),
	}
	if cfg.Analysis.PersistRecords {
		serviceOpts = append(serviceOpts,
			service.WithAnalysisRecordRepository(repository.NewAnalysisRecordRepository(a.DB.Pool, a.Logger)))
	}
	a.Analysis = service.NewAnalysisService(a.Logger, engine, serviceOpts...)

	// Step 5: Feedback store
	if a.Feedback, err = feedback.Open(cfg.Feedback, dbCfg.URL()); err != nil {
		return nil, fmt.Errorf("failed to open feedback store: %w", err)
	}
	a.closers = append(a.closers, a.Feedback.Close)

	// Step 6: Health checks
	a.Health = health.NewChecker(a.Logger, Version,
		health.DatabaseCheck{Pool: a.DB.Pool},
		health.FeedbackCheck{Store: a.Feedback},
		health.EngineCheck{Analyzer: engine},
	)
	if redisClient != nil {
		a.Health.Register(health.RedisCheck{Client: redisClient})
	}

	a.Logger.WithFields(logrus.Fields{
		"gating_policy":    policy.String(),
		"feedback_backend": cfg.Feedback.Backend,
		"redis":            redisClient != nil,
		"persist_records":  cfg.Analysis.PersistRecords,
	}).Info("Application initialized")

	return a, nil
}

// buildCache returns the memory tier, layered over Redis when it is configured and reachable.
func (a *App) buildCache(cfg domain.CacheConfig) (cache.Cache, *redis.Client) {
	memory := cache.NewMemoryCache(cfg.MemoryMaxItems, cfg.MemoryTTL)
	if cfg.RedisURL == "" {
		return memory, nil
	}

	shared, err := cache.NewRedisCache(cfg, a.Logger)
	if err != nil {
		a.Logger.WithError(err).Warn("Redis unavailable, using in-memory analysis cache only")
		return memory, nil
	}
	return cache.NewLayeredCache(memory, shared, a.Logger), shared.Client()
}

// Migrate applies pending schema migrations.
func Migrate(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(database.ConfigFromDomain(cfg.Database).URL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		return fmt.Errorf("failed to create migration runner: %w", err)
	}
	defer runner.Close()

	if err := runner.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases every dependency in reverse order of creation.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, a.closers[i]())
	}
	a.closers = nil
	return err
}
