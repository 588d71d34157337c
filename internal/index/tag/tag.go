// Package tag implements the TAG content index: an exact-match posting
// list keyed by whole tag values (no tokenization). Prefix/suffix/infix
// lookups scan every stored tag value; no trie is kept.
package tag

import (
	"strings"
	"sync"

	"github.com/fieldsearch/queryengine/internal/index"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/resultset"
	"github.com/fieldsearch/queryengine/internal/schema"
)

// Index is a TAG field's content index.
type Index struct {
	mu sync.RWMutex

	separator rune
	caseFold  bool

	postings map[string][]docid.DocID // tag -> sorted doc ids
	docTags  map[docid.DocID][]string

	allDocs []docid.DocID
}

// New builds an empty TAG index from the field's TagParams.
func New(params schema.TagParams) *Index {
	sep := params.Separator
	if sep == 0 {
		sep = ','
	}
	return &Index{
		separator: sep,
		caseFold:  params.CaseFold,
		postings:  make(map[string][]docid.DocID),
		docTags:   make(map[docid.DocID][]string),
	}
}

var _ index.TagIndex = (*Index)(nil)

func (idx *Index) normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	if idx.caseFold {
		tag = strings.ToLower(tag)
	}
	return tag
}

// Add indexes doc under each of its distinct tag values.
func (idx *Index) Add(doc docid.DocID, access index.DocumentAccessor, field string) bool {
	tags, ok := access.GetTags(field)
	if !ok || len(tags) == 0 {
		return false
	}
	values := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		for _, part := range strings.Split(raw, string(idx.separator)) {
			v := idx.normalize(part)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return false
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, v := range values {
		idx.postings[v] = docid.InsertSorted(idx.postings[v], doc)
	}
	idx.docTags[doc] = values
	idx.allDocs = docid.InsertSorted(idx.allDocs, doc)
	return true
}

// Remove undoes a prior Add.
func (idx *Index) Remove(doc docid.DocID, _ index.DocumentAccessor, _ string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	values, ok := idx.docTags[doc]
	if !ok {
		return
	}
	for _, v := range values {
		idx.postings[v] = docid.RemoveSorted(idx.postings[v], doc)
	}
	delete(idx.docTags, doc)
	idx.allDocs = docid.RemoveSorted(idx.allDocs, doc)
}

// GetAllDocsWithNonNullValues returns every document holding at least one
// tag value for this field.
func (idx *Index) GetAllDocsWithNonNullValues() resultset.SortedSet {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return &resultset.PlainBlock{Ids: idx.allDocs}
}

// Matching looks up tag's exact posting list.
func (idx *Index) Matching(tagValue string) resultset.IndexResult {
	v := idx.normalize(tagValue)
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids, ok := idx.postings[v]
	if !ok {
		return resultset.Empty()
	}
	return resultset.Borrowed(&resultset.SortedVectorBlock{Ids: ids})
}

func (idx *Index) MatchPrefix(affix string, yield func(resultset.SortedSet)) {
	affix = idx.normalize(affix)
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for v, ids := range idx.postings {
		if strings.HasPrefix(v, affix) {
			yield(&resultset.SortedVectorBlock{Ids: ids})
		}
	}
}

func (idx *Index) MatchSuffix(affix string, yield func(resultset.SortedSet)) {
	affix = idx.normalize(affix)
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for v, ids := range idx.postings {
		if strings.HasSuffix(v, affix) {
			yield(&resultset.SortedVectorBlock{Ids: ids})
		}
	}
}

func (idx *Index) MatchInfix(affix string, yield func(resultset.SortedSet)) {
	affix = idx.normalize(affix)
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for v, ids := range idx.postings {
		if strings.Contains(v, affix) {
			yield(&resultset.SortedVectorBlock{Ids: ids})
		}
	}
}
