package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldsearch/queryengine/internal/analytics/collector"
	"github.com/fieldsearch/queryengine/internal/ingest"
	"github.com/fieldsearch/queryengine/internal/ingest/consumer"
	"github.com/fieldsearch/queryengine/internal/ingest/embed"
	"github.com/fieldsearch/queryengine/internal/ingest/wal"
	"github.com/fieldsearch/queryengine/internal/query/fieldindex"
	"github.com/fieldsearch/queryengine/internal/query/registry"
	"github.com/fieldsearch/queryengine/internal/schema"
	"github.com/fieldsearch/queryengine/internal/synonyms"
	"github.com/fieldsearch/queryengine/pkg/config"
	"github.com/fieldsearch/queryengine/pkg/kafka"
	"github.com/fieldsearch/queryengine/pkg/logger"
	"github.com/fieldsearch/queryengine/pkg/metrics"
	"github.com/fieldsearch/queryengine/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingest service")

	sch, err := schema.LoadYAML(cfg.Schema.Path)
	if err != nil {
		slog.Error("failed to load schema", "path", cfg.Schema.Path, "error", err)
		os.Exit(1)
	}
	reg := registry.New()
	reg.Register("default", fieldindex.New(sch, schema.NewDefaultOptions(), synonyms.New()))

	walWriter, err := wal.OpenWriter(cfg.Schema.WALPath)
	if err != nil {
		slog.Error("failed to open ingest wal", "path", cfg.Schema.WALPath, "error", err)
		os.Exit(1)
	}
	defer walWriter.Close()

	var embedder *embed.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = embed.New(embed.Config{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
			Dims:    cfg.Embedding.Dims,
		})
		slog.Info("embedder configured", "model", cfg.Embedding.Model)
	} else {
		slog.Warn("no embedding api key configured, automatic vector embedding disabled")
	}

	m := metrics.New()
	pipeline := ingest.New(reg, embedder, walWriter, m)

	if err := pipeline.Replay(cfg.Schema.WALPath); err != nil {
		slog.Error("failed to replay ingest wal", "path", cfg.Schema.WALPath, "error", err)
		os.Exit(1)
	}
	slog.Info("ingest wal replayed", "path", cfg.Schema.WALPath)

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, document status tracking disabled", "error", err)
	} else {
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	specs := map[string]consumer.EmbedSpec{
		"default": {IndexName: "default", SourceTextField: "body", VectorField: "embedding"},
	}
	var sqlDB *sql.DB
	if db != nil {
		sqlDB = db.DB
	}

	completeProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	completeCollector := collector.NewBatchCollector(completeProducer, 100, 5*time.Second)
	completeCollector.Start(ctx)
	defer completeCollector.Close()

	handler := consumer.HandleMessage(pipeline, specs, sqlDB, completeCollector)
	kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, handler)
	indexConsumer := consumer.New(kafkaConsumer)

	slog.Info("ingest service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentIngest,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := indexConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("ingest service stopped")
}
