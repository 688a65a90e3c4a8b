package commands

import (
	"context"
	"fmt"

	"github.com/YuvrajArora777/Finsight-Clean/internal/features"
	"github.com/YuvrajArora777/Finsight-Clean/internal/forecast"
	"github.com/YuvrajArora777/Finsight-Clean/internal/insight"
	"github.com/YuvrajArora777/Finsight-Clean/internal/marketdata"
	"github.com/YuvrajArora777/Finsight-Clean/internal/news"
	"github.com/YuvrajArora777/Finsight-Clean/internal/pipeline"
	"github.com/YuvrajArora777/Finsight-Clean/internal/readview"
	"github.com/YuvrajArora777/Finsight-Clean/internal/store"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/config"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/database"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/httputil"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/metrics"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/redis"
)

// components holds everything the commands wire together.
// ⭐ SSOT: dependency construction for the CLI happens here only
type components struct {
	cfg      *config.Config
	log      *logger.Logger
	store    store.Store
	db       *database.DB  // nil with the memory backend
	redis    *redis.Client // nil when redis is disabled
	cache    *redis.Cache
	limiter  *redis.RateLimiter
	metrics  *metrics.Recorder
	orch     *pipeline.Orchestrator
	accessor *readview.Accessor
}

// initComponents loads configuration and builds the full component stack.
func initComponents(ctx context.Context) (*components, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	c := &components{cfg: cfg, log: log}

	// 3. Artifact store (postgres or in-memory)
	switch cfg.Pipeline.StoreBackend {
	case "memory":
		c.store = store.NewMemoryStore()
		log.Info("Using in-memory artifact store")
	default:
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		c.db = db

		pg, err := store.NewPostgresStore(ctx, db.Pool)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init artifact store: %w", err)
		}
		c.store = pg
		log.Info("Connected to database")
	}

	// 4. Redis (optional): view cache and API rate limiting
	if cfg.Redis.Enabled {
		rc, err := redis.New(cfg)
		if err != nil {
			// Degraded mode: the store remains authoritative
			log.WithError(err).Warn("Redis unavailable, continuing without cache")
		} else {
			c.redis = rc
			c.cache = redis.NewCache(rc, "finsight")
			c.limiter = redis.NewRateLimiter(rc, "finsight")
			log.Info("Connected to Redis")
		}
	}

	// 5. Market data gateway
	gateway := marketdata.NewYahooGateway(log)

	// 6. Pipeline stages
	transformer := features.NewTransformer(features.Windows{
		MA:       cfg.Features.MAWindow,
		Vol:      cfg.Features.VolWindow,
		Momentum: cfg.Features.MomentumWindow,
		RSI:      cfg.Features.RSIPeriod,
	})
	forecaster := forecast.NewForecaster(cfg.Forecast, log)
	insights := insight.NewGenerator(cfg.OpenAI, log)

	var scraper *news.Scraper
	if cfg.News.Enabled {
		scraper = news.NewScraper(cfg.News, httputil.New(cfg, log), log)
	}

	// 7. Metrics
	if cfg.MetricsEnabled {
		c.metrics = metrics.New()
	}

	// 8. Orchestrator and read accessor
	c.orch = pipeline.NewOrchestrator(cfg.Pipeline, gateway, transformer, forecaster, insights, scraper, c.store, c.metrics, log)
	if c.limiter != nil {
		c.orch = c.orch.WithRateLimiter(c.limiter)
	}
	c.accessor = readview.NewAccessor(gateway, c.store, c.cache, 0, log)

	return c, nil
}

// close releases held connections. Safe to call on a partially built stack.
func (c *components) close() {
	if c.store != nil {
		c.store.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
}
