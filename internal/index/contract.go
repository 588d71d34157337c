// Package index declares the contracts the evaluator depends on for every
// concrete content index, sort index, and document accessor. The concrete
// TEXT/NUMERIC/TAG/VECTOR implementations live in sibling packages
// (internal/index/text, numeric, tag, vector, sortidx); this package only
// names the shapes the evaluator is allowed to assume.
package index

import (
	"math"

	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/resultset"
	"github.com/fieldsearch/queryengine/internal/schema"
)

// DocumentAccessor reads field values out of whatever document
// representation the caller of FieldIndices.Add/Remove has in hand. Indices
// never see the raw document, only this accessor.
type DocumentAccessor interface {
	GetText(field string) (string, bool)
	GetNumeric(field string) (float64, bool)
	GetTags(field string) ([]string, bool)
	GetVector(field string) ([]float32, bool)
}

// BaseIndex is satisfied by every content index regardless of type.
type BaseIndex interface {
	// Add indexes doc's value for field, returning false (and making no
	// change) if the document has no value for field or the value is the
	// wrong shape.
	Add(doc docid.DocID, access DocumentAccessor, field string) bool
	// Remove undoes a prior successful Add. Never fails; removing a
	// document that was never added is a silent no-op.
	Remove(doc docid.DocID, access DocumentAccessor, field string)
	// GetAllDocsWithNonNullValues returns every document holding a value
	// for this field, borrowed from the index's own storage.
	GetAllDocsWithNonNullValues() resultset.SortedSet
}

// TextIndex is the contract for TEXT fields: term/prefix/suffix/infix
// lookup over an inverted posting-list index.
type TextIndex interface {
	BaseIndex
	// Matching looks up term, optionally stripping surrounding whitespace
	// before tokenizing (synonym group tokens disable stripping).
	Matching(term string, stripWhitespace bool) resultset.IndexResult
	// MatchPrefix/MatchSuffix/MatchInfix invoke yield once per matching
	// posting-list container; the evaluator OR-merges whatever yield sees.
	MatchPrefix(affix string, yield func(resultset.SortedSet))
	MatchSuffix(affix string, yield func(resultset.SortedSet))
	MatchInfix(affix string, yield func(resultset.SortedSet))
}

// NumericIndex is the contract for NUMERIC fields.
type NumericIndex interface {
	BaseIndex
	// Range returns every document whose value falls in [lo, hi]. If
	// lo > hi the result is empty.
	Range(lo, hi float64) resultset.RangeResult
}

// TagIndex is the contract for TAG fields.
type TagIndex interface {
	BaseIndex
	Matching(tag string) resultset.IndexResult
	MatchPrefix(affix string, yield func(resultset.SortedSet))
	MatchSuffix(affix string, yield func(resultset.SortedSet))
	MatchInfix(affix string, yield func(resultset.SortedSet))
}

// VectorIndex is the contract common to both vector-index flavors.
type VectorIndex interface {
	BaseIndex
	// Info reports the index's fixed vector dimensionality and similarity
	// function.
	Info() (dim uint32, sim schema.VectorSimilarity)
	// Get returns doc's stored vector, or nil if doc has none.
	Get(doc docid.DocID) []float32
}

// DocScore pairs a matched document with its distance to the query vector,
// ascending-distance order being the contract KNN results are returned in.
type DocScore struct {
	Doc  docid.DocID
	Dist float32
}

// HnswIndex is implemented only by HNSW-backed vector indices; a FLAT
// vector index satisfies VectorIndex but not HnswIndex, and the evaluator
// type-asserts to tell them apart the way the source distinguishes a
// downcast to HnswVectorIndex from one to FlatVectorIndex.
type HnswIndex interface {
	VectorIndex
	// Knn returns the limit closest documents to vec by ascending
	// distance. If allowList is non-nil, the search is restricted to it.
	Knn(vec []float32, limit uint64, efRuntime uint64, allowList []docid.DocID) []DocScore
}

// SortableValue is the value a sort index returns for a document: either a
// string (TEXT/TAG sort indices) or a float64 (NUMERIC sort index).
type SortableValue struct {
	Str     string
	Num     float64
	IsText  bool
	NonNull bool
}

// SortIndex is the contract for a field's sort index.
type SortIndex interface {
	Add(doc docid.DocID, access DocumentAccessor, field string) bool
	Remove(doc docid.DocID, access DocumentAccessor, field string)
	// Lookup returns the sortable value for doc, or NonNull=false if doc
	// has no value in this sort index.
	Lookup(doc docid.DocID) SortableValue
	GetAllDocsWithNonNullValues() resultset.SortedSet
}

// VectorDistance computes the distance between a and b under sim, assuming
// both have exactly dim elements. It is the external free function every
// KNN driver call routes through.
func VectorDistance(a, b []float32, dim uint32, sim schema.VectorSimilarity) float32 {
	switch sim {
	case schema.Cosine:
		return cosineDistance(a, b)
	case schema.InnerProduct:
		return innerProductDistance(a, b)
	default:
		return l2Distance(a, b)
	}
}

func l2Distance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func innerProductDistance(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return 1 - dot
}

func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/sqrt32(na*nb)
}

func sqrt32(x float32) float32 {
	// math.Sqrt via a float64 round-trip; non-positive inputs yield 0.
	if x <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(x)))
}
