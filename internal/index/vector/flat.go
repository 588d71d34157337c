// Package vector implements the VECTOR content index in two flavors: a
// brute-force Flat index and an approximate Hnsw index. Both satisfy
// index.VectorIndex; only Hnsw additionally satisfies index.HnswIndex, the
// same split the evaluator uses to decide whether it may call Knn directly
// or must fall back to the flat brute-force driver.
package vector

import (
	"sync"

	"github.com/fieldsearch/queryengine/internal/index"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/resultset"
	"github.com/fieldsearch/queryengine/internal/schema"
)

// Flat is a brute-force VECTOR index: every vector is kept in a plain map
// and Knn-style queries are answered by the evaluator's KNN driver, which
// scans the filtered candidate set itself via Get.
type Flat struct {
	mu sync.RWMutex

	dim     uint32
	sim     schema.VectorSimilarity
	vectors map[docid.DocID][]float32
	allDocs []docid.DocID
}

// NewFlat builds an empty flat vector index from the field's VectorParams.
func NewFlat(params schema.VectorParams) *Flat {
	return &Flat{
		dim:     params.Dim,
		sim:     params.Similarity,
		vectors: make(map[docid.DocID][]float32),
	}
}

var _ index.VectorIndex = (*Flat)(nil)

func (f *Flat) Add(doc docid.DocID, access index.DocumentAccessor, field string) bool {
	vec, ok := access.GetVector(field)
	if !ok || uint32(len(vec)) != f.dim {
		return false
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors[doc] = cp
	f.allDocs = docid.InsertSorted(f.allDocs, doc)
	return true
}

func (f *Flat) Remove(doc docid.DocID, _ index.DocumentAccessor, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vectors[doc]; !ok {
		return
	}
	delete(f.vectors, doc)
	f.allDocs = docid.RemoveSorted(f.allDocs, doc)
}

func (f *Flat) GetAllDocsWithNonNullValues() resultset.SortedSet {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &resultset.PlainBlock{Ids: f.allDocs}
}

func (f *Flat) Info() (uint32, schema.VectorSimilarity) { return f.dim, f.sim }

func (f *Flat) Get(doc docid.DocID) []float32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.vectors[doc]
}
