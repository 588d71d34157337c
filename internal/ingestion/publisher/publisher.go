// Package publisher persists an ingest request's idempotency/status
// record to PostgreSQL and publishes the document's field values to
// Kafka for internal/ingest's consumer to index.
package publisher

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldsearch/queryengine/internal/ingestion"
	apperrors "github.com/fieldsearch/queryengine/pkg/apperr"
	"github.com/fieldsearch/queryengine/pkg/kafka"
	"github.com/fieldsearch/queryengine/pkg/postgres"
)

// Publisher coordinates document persistence and Kafka event production.
type Publisher struct {
	db       *postgres.Client
	producer *kafka.Producer
	logger   *slog.Logger
}

// New creates a Publisher with the given database and Kafka producer.
func New(db *postgres.Client, producer *kafka.Producer) *Publisher {
	return &Publisher{
		db:       db,
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest persists a status row in PostgreSQL and publishes an IngestEvent
// to Kafka. Duplicate idempotency keys are detected and returned without
// re-insertion.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling ingest request: %w", err)
	}
	contentHash := fmt.Sprintf("%x", sha256.Sum256(payload))

	if req.IdempotencyKey != "" {
		existing, err := p.findByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("checking idempotency key: %w", err)
		}
		if existing != nil {
			p.logger.Info("duplicate ingestion detected",
				"idempotency_key", req.IdempotencyKey,
				"existing_id", existing.DocumentID,
			)
			return existing, nil
		}
	}

	var recordID string
	err = p.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO documents (index_name, external_doc_id, content_hash, idempotency_key, status)
			VALUES ($1, $2, $3, $4, 'PENDING')
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING id`, req.IndexName, req.DocID, contentHash, nullableString(req.IdempotencyKey)).Scan(&recordID)
		if err == sql.ErrNoRows {
			return apperrors.New(apperrors.ErrIdempotencyConflict, 409, "idempotency key already in use")
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}

	event := kafka.Event{
		Key: req.IndexName + "/" + req.DocID,
		Value: ingestion.IngestEvent{
			IndexName:  req.IndexName,
			DocID:      req.DocID,
			Text:       req.Text,
			Numeric:    req.Numeric,
			Tags:       req.Tags,
			Vector:     req.Vector,
			IngestedAt: time.Now().UTC(),
		},
	}

	if err := p.producer.Publish(ctx, event); err != nil {
		p.logger.Error("failed to publish to kafka, document stuck in PENDING",
			"doc_id", req.DocID,
			"index", req.IndexName,
			"error", err,
		)
	}
	return &ingestion.IngestResponse{
		DocumentID: recordID,
		IndexName:  req.IndexName,
		Status:     "PENDING",
	}, nil
}

// findByIdempotencyKey checks if a document with the given idempotency key
// already exists and returns its status.
func (p *Publisher) findByIdempotencyKey(ctx context.Context, key string) (*ingestion.IngestResponse, error) {
	var resp ingestion.IngestResponse
	err := p.db.DB.QueryRowContext(ctx,
		`SELECT id, index_name, status FROM documents WHERE idempotency_key=$1`, key).Scan(&resp.DocumentID, &resp.IndexName, &resp.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying by idempotency key: %w", err)
	}
	return &resp, nil
}

// nullableString converts a Go string to a sql.NullString, treating the
// empty string as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
