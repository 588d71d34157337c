// Package ingestion defines the request/response types and Kafka event
// schema used by the HTTP ingest gateway: a client POSTs a document's
// field values, the gateway persists an idempotency/status record in
// Postgres and publishes an event for internal/ingest's consumer to pick
// up and apply to the right FieldIndices.
package ingestion

import "time"

// IngestRequest is the JSON body accepted by the ingestion HTTP endpoint.
type IngestRequest struct {
	IndexName      string               `json:"index"`
	DocID          string               `json:"doc_id"`
	Text           map[string]string    `json:"text,omitempty"`
	Numeric        map[string]float64   `json:"numeric,omitempty"`
	Tags           map[string][]string  `json:"tags,omitempty"`
	Vector         map[string][]float32 `json:"vector,omitempty"`
	IdempotencyKey string               `json:"idempotency_key"`
}

// IngestResponse is returned to the caller after a document is accepted.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	IndexName  string `json:"index"`
	Status     string `json:"status"`
}

// IngestEvent is the Kafka message payload produced after a document is
// persisted and ready for indexing. Field names and shapes mirror
// wal.Record exactly, so internal/ingest/consumer decodes this payload
// directly as a wal.Record without an intermediate translation step.
type IngestEvent struct {
	IndexName  string               `json:"index"`
	DocID      string               `json:"doc_id"`
	Text       map[string]string    `json:"text,omitempty"`
	Numeric    map[string]float64   `json:"numeric,omitempty"`
	Tags       map[string][]string  `json:"tags,omitempty"`
	Vector     map[string][]float32 `json:"vector,omitempty"`
	IngestedAt time.Time            `json:"ingested_at"`
}
