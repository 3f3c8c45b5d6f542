package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"briefsearch/internal/cache"
	"briefsearch/internal/config"
	"briefsearch/internal/db"
	"briefsearch/internal/engine"
	"briefsearch/internal/extract"
	"briefsearch/internal/fetch"
	"briefsearch/internal/logging"
	"briefsearch/internal/robots"
	"briefsearch/internal/search"
	"briefsearch/internal/urlnorm"

	"github.com/rs/zerolog"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	store  cache.Store
	engine *engine.Engine

	database *sql.DB
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	store, database, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, store: store, database: database}
	a.engine = buildEngine(ctx, cfg, store, log)
	return a, nil
}

func (a *app) Close() {
	if a.database != nil {
		if err := a.database.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close cache database")
		}
	}
}

// pruner returns the store as a Pruner when the backend supports pruning.
func (a *app) pruner() (cache.Pruner, bool) {
	p, ok := a.store.(cache.Pruner)
	return p, ok
}

func openStore(ctx context.Context, cfg config.Config) (cache.Store, *sql.DB, error) {
	switch cfg.CacheBackend {
	case "none":
		return cache.Nop{}, nil, nil
	case "memory":
		return cache.NewMemoryStore(), nil, nil
	case "sql":
		database, err := db.Open(ctx, cfg.CacheDatabaseURL, cfg.CacheDatabaseToken)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache db: %w", err)
		}
		store, err := cache.NewSQLStore(ctx, database)
		if err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("prepare cache db: %w", err)
		}
		return store, database, nil
	case "gcs":
		store, err := cache.NewGCSStore(ctx, cfg.CacheGCSBucket, cfg.CacheGCSPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("open gcs cache: %w", err)
		}
		return store, nil, nil
	default:
		store, err := cache.NewFileStore(cfg.CacheDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open file cache: %w", err)
		}
		return store, nil, nil
	}
}

func buildEngine(ctx context.Context, cfg config.Config, store cache.Store, log zerolog.Logger) *engine.Engine {
	// A nil client makes the fetcher build its own transport, which dials
	// through SecureDialContext unless private targets are allowed.
	fetcher := fetch.New(fetch.Config{
		UserAgent:       cfg.UserAgent,
		Timeout:         cfg.FetchTimeout(),
		PolitenessDelay: cfg.PolitenessDelay(),
		MaxBytes:        cfg.FetchMaxBytes,
		PerHostLimit:    cfg.FetchPerHostLimit,
		BlockPrivate:    !cfg.FetchAllowPrivate,
	}, nil, store, log.With().Str("component", "fetch").Logger())

	gate := robots.NewGate(robots.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RobotsTimeout(),
	}, &http.Client{Timeout: cfg.RobotsTimeout()}, log.With().Str("component", "robots").Logger())

	searchLog := log.With().Str("component", "search").Logger()
	backends := search.BackendConfig{
		UserAgent:    cfg.UserAgent,
		BraveAPIKey:  cfg.BraveAPIKey,
		BraveBaseURL: cfg.BraveBaseURL,
	}
	if cfg.GoogleCSEEnabled() {
		backends.GoogleAPIKey = cfg.GoogleCSEAPIKey
		backends.GoogleCSEID = cfg.GoogleCSEID
	}
	providers := search.DefaultProviders(ctx, backends, &http.Client{Timeout: cfg.SearchTimeout()}, searchLog)

	chainCfg := search.ChainConfig{
		StepTimeout: cfg.SearchTimeout(),
		MinInterval: cfg.SearchMinInterval(),
	}
	if cfg.ResultCacheEnabled {
		chainCfg.Store = store
	}
	chain := search.NewChain(chainCfg, urlnorm.NewScorer(cfg.ReputableDomains), searchLog, providers...)
	for _, name := range search.Plan(search.ProviderAuto) {
		if !chain.Has(name) {
			searchLog.Info().Str("backend", name).Msg("backend not configured, auto plan will skip it")
		}
	}

	return engine.New(engine.Deps{
		Resolver:  chain,
		Robots:    gate,
		Fetcher:   fetcher,
		Extractor: extract.NewExtractor(store, log.With().Str("component", "extract").Logger()),
	}, engine.Options{
		Concurrency: cfg.FetchConcurrency,
	}, log)
}
