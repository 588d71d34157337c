// Package numeric implements the NUMERIC content index: documents are kept
// in one slice of (value, doc) entries ordered by value, and a Range query
// binary-searches that slice for [lo, hi] and returns the matching doc ids
// as a one- or two-block RangeResult (two blocks once the match count
// exceeds the field's block size).
package numeric

import (
	"sort"
	"sync"

	"github.com/fieldsearch/queryengine/internal/index"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/resultset"
	"github.com/fieldsearch/queryengine/internal/schema"
)

const defaultBlockSize = 256

type entry struct {
	value float64
	doc   docid.DocID
}

// Index is a NUMERIC field's content index.
type Index struct {
	mu sync.RWMutex

	blockSize int
	entries   []entry // kept sorted by value, then by doc
	byDoc     map[docid.DocID]float64
	allDocs   []docid.DocID
}

// New builds an empty NUMERIC index from the field's NumericParams.
func New(params schema.NumericParams) *Index {
	size := params.BlockSize
	if size <= 0 {
		size = defaultBlockSize
	}
	return &Index{
		blockSize: size,
		byDoc:     make(map[docid.DocID]float64),
	}
}

var _ index.NumericIndex = (*Index)(nil)

// Add indexes doc's numeric value for field.
func (idx *Index) Add(doc docid.DocID, access index.DocumentAccessor, field string) bool {
	v, ok := access.GetNumeric(field)
	if !ok {
		return false
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.insertLocked(entry{value: v, doc: doc})
	idx.byDoc[doc] = v
	idx.allDocs = docid.InsertSorted(idx.allDocs, doc)
	return true
}

// Remove undoes a prior Add.
func (idx *Index) Remove(doc docid.DocID, _ index.DocumentAccessor, _ string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	v, ok := idx.byDoc[doc]
	if !ok {
		return
	}
	i := idx.searchLocked(entry{value: v, doc: doc})
	if i < len(idx.entries) && idx.entries[i].doc == doc {
		idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
	}
	delete(idx.byDoc, doc)
	idx.allDocs = docid.RemoveSorted(idx.allDocs, doc)
}

func less(a, b entry) bool {
	if a.value != b.value {
		return a.value < b.value
	}
	return a.doc < b.doc
}

func (idx *Index) searchLocked(e entry) int {
	return sort.Search(len(idx.entries), func(i int) bool { return !less(idx.entries[i], e) })
}

func (idx *Index) insertLocked(e entry) {
	i := idx.searchLocked(e)
	idx.entries = append(idx.entries, entry{})
	copy(idx.entries[i+1:], idx.entries[i:])
	idx.entries[i] = e
}

// GetAllDocsWithNonNullValues returns every document holding a numeric
// value for this field.
func (idx *Index) GetAllDocsWithNonNullValues() resultset.SortedSet {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return &resultset.PlainBlock{Ids: idx.allDocs}
}

// Range returns every document whose value lies in [lo, hi] as a freshly
// built, DocID-sorted id list: one block if it holds at most blockSize ids,
// otherwise split into two halves.
func (idx *Index) Range(lo, hi float64) resultset.RangeResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if lo > hi || len(idx.entries) == 0 {
		return resultset.NewSingleBlockRange(nil)
	}

	start := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].value >= lo })
	end := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].value > hi })
	if start >= end {
		return resultset.NewSingleBlockRange(nil)
	}

	span := idx.entries[start:end]
	ids := docsOf(span)
	if len(ids) <= idx.blockSize {
		return resultset.NewSingleBlockRange(ids)
	}

	// Split by DocID, not by value-position: ids is sorted by DocID, so a
	// contiguous split here keeps every id in the first block below every
	// id in the second, preserving the global ascending order All() must
	// produce.
	mid := len(ids) / 2
	return resultset.NewTwoBlockRange(ids[:mid], ids[mid:])
}

func docsOf(entries []entry) []docid.DocID {
	out := make([]docid.DocID, len(entries))
	for i, e := range entries {
		out[i] = e.doc
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
