// Package sortidx implements the sort indices FieldIndices attaches to
// SORTABLE fields: a string-valued index for TEXT/TAG fields and a
// numeric-valued one for NUMERIC fields.
package sortidx

import (
	"sync"

	"github.com/fieldsearch/queryengine/internal/index"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/resultset"
)

// String is the sort index for TEXT and TAG fields.
type String struct {
	mu      sync.RWMutex
	values  map[docid.DocID]string
	allDocs []docid.DocID
}

// NewString builds an empty string sort index.
func NewString() *String {
	return &String{values: make(map[docid.DocID]string)}
}

var _ index.SortIndex = (*String)(nil)

func (s *String) Add(doc docid.DocID, access index.DocumentAccessor, field string) bool {
	var v string
	switch text, ok := access.GetText(field); {
	case ok:
		v = text
	default:
		tags, ok := access.GetTags(field)
		if !ok || len(tags) == 0 {
			return false
		}
		v = tags[0]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[doc] = v
	s.allDocs = docid.InsertSorted(s.allDocs, doc)
	return true
}

func (s *String) Remove(doc docid.DocID, _ index.DocumentAccessor, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[doc]; !ok {
		return
	}
	delete(s.values, doc)
	s.allDocs = docid.RemoveSorted(s.allDocs, doc)
}

func (s *String) Lookup(doc docid.DocID) index.SortableValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[doc]
	if !ok {
		return index.SortableValue{}
	}
	return index.SortableValue{Str: v, IsText: true, NonNull: true}
}

func (s *String) GetAllDocsWithNonNullValues() resultset.SortedSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &resultset.PlainBlock{Ids: s.allDocs}
}

// Numeric is the sort index for NUMERIC fields.
type Numeric struct {
	mu      sync.RWMutex
	values  map[docid.DocID]float64
	allDocs []docid.DocID
}

// NewNumeric builds an empty numeric sort index.
func NewNumeric() *Numeric {
	return &Numeric{values: make(map[docid.DocID]float64)}
}

var _ index.SortIndex = (*Numeric)(nil)

func (n *Numeric) Add(doc docid.DocID, access index.DocumentAccessor, field string) bool {
	v, ok := access.GetNumeric(field)
	if !ok {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.values[doc] = v
	n.allDocs = docid.InsertSorted(n.allDocs, doc)
	return true
}

func (n *Numeric) Remove(doc docid.DocID, _ index.DocumentAccessor, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.values[doc]; !ok {
		return
	}
	delete(n.values, doc)
	n.allDocs = docid.RemoveSorted(n.allDocs, doc)
}

func (n *Numeric) Lookup(doc docid.DocID) index.SortableValue {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, ok := n.values[doc]
	if !ok {
		return index.SortableValue{}
	}
	return index.SortableValue{Num: v, NonNull: true}
}

func (n *Numeric) GetAllDocsWithNonNullValues() resultset.SortedSet {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return &resultset.PlainBlock{Ids: n.allDocs}
}
