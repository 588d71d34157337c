// Package consumer reads ingest events from Kafka and drives them through
// an ingest.Pipeline.
package consumer

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/fieldsearch/queryengine/internal/analytics/collector"
	"github.com/fieldsearch/queryengine/internal/ingest"
	"github.com/fieldsearch/queryengine/internal/ingest/wal"
	"github.com/fieldsearch/queryengine/pkg/kafka"
)

// IndexCompleteEvent is published to the index-complete topic once a
// document has been durably applied to its FieldIndices, so downstream
// consumers (cache invalidation, search-facing read replicas) can react
// without polling document status in Postgres.
type IndexCompleteEvent struct {
	IndexName string `json:"index"`
	DocID     string `json:"doc_id"`
}

// IndexConsumer wraps a Kafka consumer to drive document ingestion.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "ingest-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("ingest consumer starting")
	return ic.consumer.Start(ctx)
}

// EmbedSpec names, for one index, which text field an embedding should
// be computed from and which vector field it should be stored under,
// when an incoming event omits that vector.
type EmbedSpec struct {
	IndexName       string
	SourceTextField string
	VectorField     string
}

// HandleMessage returns a kafka.MessageHandler that decodes each message
// as a wal.Record and applies it through pipeline. specs maps an index
// name to its embedding source/destination fields; an index absent from
// specs never has a vector computed automatically. If db is non-nil, the
// matching documents row (by index_name/external_doc_id, as written by
// internal/ingestion/publisher) has its status updated after indexing. If
// complete is non-nil, a successful Ingest is also announced on the
// index-complete topic.
func HandleMessage(pipeline *ingest.Pipeline, specs map[string]EmbedSpec, db *sql.DB, complete *collector.BatchCollector) kafka.MessageHandler {
	logger := slog.Default().With("component", "ingest-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		rec, err := kafka.DecodeJSON[wal.Record](value)
		if err != nil {
			logger.Error("failed to decode ingest event", "error", err, "key", string(key))
			return nil
		}

		logger.Debug("processing ingest event", "index", rec.IndexName, "doc_id", rec.DocID)

		var embedSpec *ingest.EmbedSpec
		if spec, ok := specs[rec.IndexName]; ok {
			embedSpec = &ingest.EmbedSpec{
				SourceTextField: spec.SourceTextField,
				VectorField:     spec.VectorField,
			}
		}

		id, err := pipeline.Ingest(ctx, rec, embedSpec)
		if err != nil {
			logger.Error("failed to index document",
				"index", rec.IndexName, "doc_id", rec.DocID, "error", err)
			updateDocStatus(ctx, db, rec.IndexName, rec.DocID, "FAILED", logger)
			return nil
		}

		updateDocStatus(ctx, db, rec.IndexName, rec.DocID, "INDEXED", logger)
		logger.Info("document indexed", "index", rec.IndexName, "doc_id", rec.DocID, "internal_id", id)
		if complete != nil {
			complete.Track(rec.IndexName, IndexCompleteEvent{IndexName: rec.IndexName, DocID: rec.DocID})
		}
		return nil
	}
}

// updateDocStatus updates the document's status and indexed_at timestamp
// in PostgreSQL. If db is nil, the update is silently skipped.
func updateDocStatus(ctx context.Context, db *sql.DB, indexName, docID, status string, logger *slog.Logger) {
	if db == nil {
		return
	}
	_, err := db.ExecContext(ctx,
		`UPDATE documents SET status = $1, indexed_at = NOW() WHERE index_name = $2 AND external_doc_id = $3`,
		status, indexName, docID,
	)
	if err != nil {
		logger.Error("failed to update document status",
			"index", indexName, "doc_id", docID, "status", status, "error", err)
	}
}
