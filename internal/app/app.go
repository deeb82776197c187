// Package app assembles the service from configuration. Both the HTTP
// server and eatctl start through Build.
package app

import (
	"context"
	"errors"
	"fmt"

	"eatdecider/backend/internal/cache"
	"eatdecider/backend/internal/catalog"
	"eatdecider/backend/internal/config"
	"eatdecider/backend/internal/events"
	"eatdecider/backend/internal/history"
	"eatdecider/backend/internal/logging"
	"eatdecider/backend/internal/recommendation"
	"eatdecider/backend/internal/service"
	"eatdecider/backend/internal/store"
	"eatdecider/backend/internal/store/file"
	"eatdecider/backend/internal/store/memory"
	pgstore "eatdecider/backend/internal/store/postgres"
	"eatdecider/backend/internal/store/sqlite"
)

type App struct {
	Config  config.Config
	Service *service.Service
	Repo    store.Repository

	closers []func() error
}

// Build wires repositories, cache, catalog sources and the event publisher.
// A configured database that cannot be opened is fatal; an unreachable
// cache, snapshot bucket or broker only downgrades the feature.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg}
	log := logging.With().Str("component", "app").Logger()

	repo, err := openRepository(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.Repo = repo
	a.closers = append(a.closers, repo.Close)

	cacheStore := cache.RecommendationCache(cache.NoopRecommendationCache{})
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisRecommendationCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using noop cache")
			_ = redisCache.Close()
		} else {
			cacheStore = redisCache
			a.closers = append(a.closers, redisCache.Close)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("cache: redis")
		}
	}

	sources := []catalog.Source{
		catalog.NewFileSource("base", cfg.Catalog.BasePath, catalog.SourceBase),
		catalog.NewImportedSource(repo),
	}
	if cfg.Catalog.ManualPath != "" {
		sources = append(sources, catalog.NewFileSource("manual", cfg.Catalog.ManualPath, catalog.SourceManual))
	}
	if cfg.Snapshot.Bucket != "" {
		snap, err := catalog.NewS3SnapshotSource(ctx, cfg.Snapshot.Region, cfg.Snapshot.Bucket, cfg.Snapshot.Key)
		if err != nil {
			log.Warn().Err(err).Str("bucket", cfg.Snapshot.Bucket).Msg("snapshot source disabled")
		} else {
			sources = append(sources, snap)
		}
	}

	var searchers []catalog.Searcher
	if cfg.Marketplace.Enabled {
		searchers = append(searchers, catalog.NewMarketplaceSource(catalog.MarketplaceOptions{
			Mode:          cfg.Marketplace.Mode,
			BaseURL:       cfg.Marketplace.BaseURL,
			SamplePath:    cfg.Marketplace.SamplePath,
			Timeout:       cfg.Marketplace.Timeout,
			RatePerSecond: cfg.Marketplace.RatePerSecond,
			Latitude:      cfg.Marketplace.Latitude,
			Longitude:     cfg.Marketplace.Longitude,
		}))
		log.Info().Str("mode", cfg.Marketplace.Mode).Msg("marketplace search enabled")
	}

	publisher := events.FeedbackPublisher(events.NoopPublisher{})
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Warn().Err(err).Strs("brokers", cfg.Kafka.Brokers).Msg("kafka unavailable, feedback events not published")
		} else {
			publisher = kp
			a.closers = append(a.closers, kp.Close)
			log.Info().Str("topic", cfg.Kafka.Topic).Msg("feedback events: kafka")
		}
	}

	a.Service = service.New(service.Options{
		Engine:    recommendation.NewEngine(cacheStore, cfg.Recommendation.CacheTTL),
		Catalog:   catalog.NewAggregator(cfg.Catalog.SourceTimeout, sources, searchers),
		History:   history.NewStore(repo),
		Repo:      repo,
		Publisher: publisher,
		Importer:  catalog.NewShareImporter(cfg.Catalog.ShareTimeout),
	})
	return a, nil
}

// openRepository picks postgres, sqlite, a JSON file or memory, in that order.
func openRepository(ctx context.Context, cfg config.DatabaseConfig) (store.Repository, error) {
	log := logging.With().Str("component", "app").Logger()
	switch {
	case cfg.URL != "":
		pg, err := pgstore.New(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		log.Info().Msg("repository: postgres")
		return pg, nil
	case cfg.SQLitePath != "":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("repository: sqlite")
		return db, nil
	case cfg.HistoryFile != "":
		fs, err := file.New(cfg.HistoryFile)
		if err != nil {
			return nil, fmt.Errorf("open history file %s: %w", cfg.HistoryFile, err)
		}
		log.Info().Str("path", cfg.HistoryFile).Msg("repository: file")
		return fs, nil
	default:
		log.Info().Msg("repository: in-memory")
		return memory.New(), nil
	}
}

// Close releases everything Build opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
