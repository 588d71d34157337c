package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldsearch/queryengine/internal/analytics"
	"github.com/fieldsearch/queryengine/internal/analytics/aggregator"
	"github.com/fieldsearch/queryengine/internal/query/fieldindex"
	"github.com/fieldsearch/queryengine/internal/query/registry"
	"github.com/fieldsearch/queryengine/internal/query/service"
	"github.com/fieldsearch/queryengine/internal/schema"
	"github.com/fieldsearch/queryengine/internal/synonyms"
	"github.com/fieldsearch/queryengine/pkg/config"
	"github.com/fieldsearch/queryengine/pkg/health"
	"github.com/fieldsearch/queryengine/pkg/kafka"
	"github.com/fieldsearch/queryengine/pkg/logger"
	"github.com/fieldsearch/queryengine/pkg/metrics"
	"github.com/fieldsearch/queryengine/pkg/middleware"
	"github.com/fieldsearch/queryengine/pkg/postgres"
	pkgredis "github.com/fieldsearch/queryengine/pkg/redis"
)

const analyticsSnapshotInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting query service", "port", cfg.Server.Port)

	sch, err := schema.LoadYAML(cfg.Schema.Path)
	if err != nil {
		slog.Error("failed to load schema", "path", cfg.Schema.Path, "error", err)
		os.Exit(1)
	}
	reg := registry.New()
	reg.Register("default", fieldindex.New(sch, schema.NewDefaultOptions(), synonyms.New()))
	slog.Info("field indices registered", "index", "default")

	var queryCache *service.QueryCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = service.New(redisClient, cfg.Redis)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	collector := analytics.NewCollector(analyticsProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(nil))
	agg := analytics.NewAggregator(analyticsConsumer)
	analyticsConsumer = kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))
	agg = analytics.NewAggregator(analyticsConsumer)
	analyticsH := analytics.NewHandler(agg)

	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started")

	if pgClient, err := postgres.New(cfg.Postgres); err != nil {
		slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
	} else {
		defer pgClient.Close()
		store := aggregator.NewStore(pgClient)
		store.StartPeriodicSave(ctx, agg, analyticsSnapshotInterval)
	}

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()
	checker.Register("field_index", func(ctx context.Context) health.ComponentHealth {
		if len(reg.Names()) > 0 {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d indices registered", len(reg.Names()))}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "no indices registered"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := service.NewHandler(reg, queryCache, collector, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("query service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("query service stopped")
}
