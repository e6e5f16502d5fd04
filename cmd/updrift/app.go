package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ChristinaDay/updrift-sub001/internal/aggregator"
	"github.com/ChristinaDay/updrift-sub001/internal/apierror"
	"github.com/ChristinaDay/updrift-sub001/internal/config"
	"github.com/ChristinaDay/updrift-sub001/internal/db"
	"github.com/ChristinaDay/updrift-sub001/internal/grpcserver"
	"github.com/ChristinaDay/updrift-sub001/internal/location"
	"github.com/ChristinaDay/updrift-sub001/internal/provider"
	"github.com/ChristinaDay/updrift-sub001/internal/quota"
	"github.com/ChristinaDay/updrift-sub001/internal/search"
	"github.com/ChristinaDay/updrift-sub001/internal/searchcache"
	"github.com/ChristinaDay/updrift-sub001/internal/store"
	"github.com/ChristinaDay/updrift-sub001/internal/usage"
)

// app is the composed object graph shared by serve and the one-shot
// commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	quota     *quota.Tracker
	usage     *usage.Tracker
	errs      *apierror.Handler
	registry  *provider.Registry
	health    *grpcserver.Health
	search    *search.Service
	locations *location.Client
	store     *store.Store // nil without DATABASE_URL

	closers []func()
}

func newLogger(cfg *config.Config) *slog.Logger {
	lvl, _ := config.ParseLevel(cfg.LogLevel) // validated by config.Load
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newApp wires every component. When backends is false Redis and Postgres
// are skipped even if configured; the cache stays in memory.
func newApp(ctx context.Context, cfg *config.Config, backends bool) (*app, error) {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	a := &app{
		cfg:    cfg,
		logger: logger,
		quota:  quota.NewTracker(cfg.MonthlyLimits()),
		usage:  usage.NewTracker(usage.DefaultCapacity),
		errs:   apierror.NewHandler(logger, nil),
	}

	opts := []provider.Option{
		provider.WithQuota(a.quota),
		provider.WithUsage(a.usage),
		provider.WithLogger(logger),
	}
	a.registry = provider.DefaultRegistry(
		provider.NewAdzunaClient(cfg.Adzuna.AppID, cfg.Adzuna.AppKey, cfg.Adzuna.Country, opts...),
		provider.NewJSearchClient(cfg.JSearch.APIKey, cfg.JSearch.Host, opts...),
	)
	a.health = grpcserver.NewHealth(a.registry)

	aggOpts := []aggregator.Option{
		aggregator.WithLogger(logger),
		aggregator.WithObserver(a.health.Observe),
	}
	if cfg.DedupByPublisher {
		aggOpts = append(aggOpts, aggregator.DedupByPublisher())
	}
	agg := aggregator.New(a.registry, aggOpts...)

	var cacheStore searchcache.Store
	if backends && cfg.RedisURL != "" {
		log.Println("[updrift] Connecting to Redis…")
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, func() { rdb.Close() })
		log.Println("[updrift] Redis connected ✓")

		cacheStore = searchcache.NewRedisStore(rdb)
		pub := quota.NewPublisher(rdb, a.quota, cfg.QuotaWarnPercent)
		a.closers = append(a.closers, pub.Close)
	}
	cache := searchcache.New(cacheStore, searchcache.WithLogger(logger))
	a.search = search.NewService(agg, cache, a.errs, search.WithLogger(logger))

	if backends && cfg.DatabaseURL != "" {
		log.Println("[updrift] Connecting to PostgreSQL…")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		log.Println("[updrift] PostgreSQL connected ✓")

		a.store = store.New(pool)
		if err := a.store.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	locOpts := []location.Option{location.WithUsage(a.usage), location.WithLogger(logger)}
	if cfg.NominatimUserAgent != "" {
		locOpts = append(locOpts, location.WithUserAgent(cfg.NominatimUserAgent))
	}
	a.locations = location.NewClient(locOpts...)

	if a.registry.Len() == 0 {
		log.Println("[updrift] No provider credentials set; searches return sample listings")
	}
	return a, nil
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
