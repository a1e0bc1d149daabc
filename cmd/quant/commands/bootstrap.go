package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/selection"
	"github.com/wonny/laggard/backend/internal/strategyconfig"
	"github.com/wonny/laggard/backend/pkg/config"
	"github.com/wonny/laggard/backend/pkg/database"
	"github.com/wonny/laggard/backend/pkg/logger"
	"github.com/wonny/laggard/backend/pkg/metrics"
	"github.com/wonny/laggard/backend/pkg/redis"
)

// app bundles what every command needs
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB   // nil when DATABASE_URL is empty
	redis   *redis.Client
	metrics *metrics.Registry
}

// bootstrap loads env config and opens the optional backing services
func bootstrap(ctx context.Context) (*app, error) {
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if strategyPath != "" {
		cfg.Screening.StrategyPath = strategyPath
	}

	a := &app{
		cfg:     cfg,
		log:     logger.New(cfg),
		metrics: metrics.NewRegistry(),
	}

	if cfg.Database.Enabled() {
		a.db, err = database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.log.Info("Connected to database")
	}

	a.redis, err = redis.New(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return a, nil
}

// Close releases the backing services
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// runStore picks Postgres when configured, else an in-process store,
// and puts the Redis cache in front when enabled
func (a *app) runStore() contracts.RunStore {
	var store contracts.RunStore
	if a.db != nil {
		store = selection.NewRepository(a.db.Pool)
	} else {
		a.log.Warn("DATABASE_URL not set, results are kept in memory only")
		store = selection.NewMemoryStore()
	}

	if a.redis.Enabled() {
		cache := redis.NewCache(a.redis, "laggard", a.cfg.Redis.TTL)
		store = selection.NewCachedStore(store, cache, a.log)
	}
	return store
}

// loadStrategy reads the strategy YAML and applies CLI overrides.
// Overrides change the config hash like any other edit.
func (a *app) loadStrategy(topN, topK int) (*strategyconfig.Config, []byte, error) {
	cfg, raw, err := strategyconfig.Load(a.cfg.Screening.StrategyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load strategy: %w", err)
	}
	if topN > 0 {
		cfg.Ranking.TopN = topN
	}
	if topK > 0 {
		cfg.Ranking.TopK = topK
	}
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, raw, nil
}

// location resolves the strategy timezone
func (a *app) location() (*time.Location, error) {
	strategy, _, err := a.loadStrategy(0, 0)
	if err != nil {
		return nil, err
	}
	return strategy.Meta.Location()
}
