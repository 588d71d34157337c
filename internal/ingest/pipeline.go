package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldsearch/queryengine/internal/ingest/embed"
	"github.com/fieldsearch/queryengine/internal/ingest/wal"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/registry"
	"github.com/fieldsearch/queryengine/pkg/metrics"
	"github.com/fieldsearch/queryengine/pkg/resilience"
)

// embedTimeout bounds a single embedding call: the provider is external
// and a hung request must not stall the consumer's commit loop.
const embedTimeout = 10 * time.Second

// Pipeline is the ingest entrypoint: it assigns a DocID to each
// externally identified document, fills in any missing VECTOR field via
// the embedder, durably logs the event, and applies it to the named
// index's FieldIndices.
type Pipeline struct {
	registry *registry.Registry
	embedder *embed.Embedder
	embedCB  *resilience.CircuitBreaker
	wal      *wal.Writer
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	nextID  docid.DocID
	byExtID map[string]docid.DocID // "index/externalID" -> DocID
}

// New builds a Pipeline. wal may be nil to disable durability (tests,
// one-shot batch loads). m may be nil to disable metrics collection.
func New(reg *registry.Registry, embedder *embed.Embedder, w *wal.Writer, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		registry: reg,
		embedder: embedder,
		embedCB:  resilience.NewCircuitBreaker("embedding-provider", resilience.CircuitBreakerConfig{}),
		wal:      w,
		metrics:  m,
		logger:   slog.Default().With("component", "ingest"),
		byExtID:  make(map[string]docid.DocID),
	}
}

// EmbedSpec names which text field an embedding should be computed from
// and which vector field it should be stored under, when an incoming
// event omits that vector. A nil *EmbedSpec means Ingest never computes
// an embedding automatically and only uses whatever the event supplies.
type EmbedSpec struct {
	SourceTextField string
	VectorField     string
}

// Ingest applies rec to its target index, first computing
// spec.VectorField from spec.SourceTextField if that vector is absent and
// both spec and an embedder are configured. It returns the DocID assigned to this external id,
// allocating a new one the first time this (index, doc id) pair is seen.
func (p *Pipeline) Ingest(ctx context.Context, rec wal.Record, spec *EmbedSpec) (docid.DocID, error) {
	if spec != nil && p.embedder != nil {
		if _, ok := rec.Vector[spec.VectorField]; !ok {
			text, ok := rec.Text[spec.SourceTextField]
			if ok && text != "" {
				var vec []float32
				err := p.embedCB.Execute(func() error {
					return resilience.WithTimeout(ctx, embedTimeout, "embed", func(ctx context.Context) error {
						v, err := p.embedder.Embed(ctx, text)
						if err != nil {
							return err
						}
						vec = v
						return nil
					})
				})
				if err != nil {
					return 0, fmt.Errorf("computing embedding for field %q: %w", spec.VectorField, err)
				}
				if rec.Vector == nil {
					rec.Vector = make(map[string][]float32)
				}
				rec.Vector[spec.VectorField] = vec
			}
		}
	}

	if p.wal != nil {
		if err := p.wal.Append(rec); err != nil {
			return 0, fmt.Errorf("writing wal record: %w", err)
		}
	}

	return p.apply(rec)
}

// Replay reconstructs in-memory state from a durable log, applying every
// record without re-logging it. Call this once at startup before serving
// traffic.
func (p *Pipeline) Replay(path string) error {
	return wal.Replay(path, func(rec wal.Record) error {
		_, err := p.apply(rec)
		return err
	})
}

func (p *Pipeline) apply(rec wal.Record) (docid.DocID, error) {
	fi, err := p.registry.Get(rec.IndexName)
	if err != nil {
		return 0, err
	}

	doc := &Document{
		Text:    rec.Text,
		Numeric: rec.Numeric,
		Tags:    rec.Tags,
		Vector:  rec.Vector,
	}

	id, isNew := p.idFor(rec.IndexName, rec.DocID)
	if !fi.Add(id, doc) {
		if isNew {
			p.forgetID(rec.IndexName, rec.DocID)
		}
		return 0, fmt.Errorf("document %q matched no field on index %q", rec.DocID, rec.IndexName)
	}
	p.logger.Debug("document indexed", "index", rec.IndexName, "doc_id", rec.DocID, "internal_id", id)
	if p.metrics != nil {
		p.metrics.DocsIndexedTotal.Inc()
		p.metrics.FieldIndexDocs.WithLabelValues(rec.IndexName).Set(float64(len(fi.AllIDs())))
	}
	return id, nil
}

func (p *Pipeline) idFor(indexName, extID string) (docid.DocID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := indexName + "/" + extID
	if id, ok := p.byExtID[key]; ok {
		return id, false
	}
	p.nextID++
	id := p.nextID
	p.byExtID[key] = id
	return id, true
}

func (p *Pipeline) forgetID(indexName, extID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byExtID, indexName+"/"+extID)
}
