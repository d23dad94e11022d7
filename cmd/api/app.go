package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/spec-kit/suggestion-box/internal/api/http/handlers"
	"github.com/spec-kit/suggestion-box/internal/config"
	"github.com/spec-kit/suggestion-box/internal/escalation"
	"github.com/spec-kit/suggestion-box/internal/notify"
	"github.com/spec-kit/suggestion-box/internal/observability"
	"github.com/spec-kit/suggestion-box/internal/persistence"
	"github.com/spec-kit/suggestion-box/internal/repository"
)

// application holds the process-wide dependencies shared by serve and sweep.
type application struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	repo     repository.SuggestionRepository
	redis    *persistence.Redis
	notifier notify.Notifier
	pingers  map[string]handlers.Pinger
	closers  []func()
}

func bootstrap(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &application{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  observability.NewMetrics(registry),
		pingers:  map[string]handlers.Pinger{},
	}

	if err := a.openStore(ctx); err != nil {
		a.close()
		return nil, err
	}

	if r := persistence.NewRedis(ctx, cfg.Redis, logger); r != nil {
		a.redis = r
		a.pingers["redis"] = r
		a.closers = append(a.closers, r.Close)
	}

	a.notifier, err = notify.New(cfg.Mail, logger, a.metrics)
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *application) openStore(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case config.StoreMongo:
		m, err := persistence.NewMongo(ctx, a.cfg.Mongo, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect mongo: %w", err)
		}
		a.closers = append(a.closers, func() { m.Close(context.Background()) })
		if err := m.EnsureIndexes(ctx); err != nil {
			a.logger.Warn("failed to create mongo indexes", zap.Error(err))
		}
		a.repo = repository.NewMongoSuggestionRepository(m.Collection)
		a.pingers["mongo"] = m
	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, a.cfg.Postgres, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if a.cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, a.logger); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		a.repo = repository.NewPostgresSuggestionRepository(pg.Pool)
		a.pingers["postgres"] = pg
	case config.StoreMemory:
		a.logger.Warn("using in-memory store; suggestions are lost on restart")
		a.repo = repository.NewMemorySuggestionRepository()
	default:
		return fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
	return nil
}

func (a *application) sweeper() *escalation.Sweeper {
	opts := []escalation.Option{escalation.WithMetrics(a.metrics)}
	if a.redis != nil {
		opts = append(opts, escalation.WithLocker(
			escalation.NewRedisLocker(a.redis.Client, escalation.DefaultLockKey, a.cfg.Escalation.Interval)))
	}
	return escalation.NewSweeper(a.repo, a.notifier, escalation.Config{
		Interval:    a.cfg.Escalation.Interval,
		FirstAfter:  a.cfg.Escalation.FirstAfter,
		SecondAfter: a.cfg.Escalation.SecondAfter,
	}, a.logger.Named("escalation"), opts...)
}

// close releases connections in reverse order of opening.
func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}
