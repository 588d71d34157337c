// Package text implements the TEXT content index: an inverted posting-list
// index over tokenized terms, with optional prefix/suffix/infix lookup
// tries. Hot terms (postings past a cardinality threshold) are compacted
// into a Roaring bitmap instead of a growing plain slice.
package text

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/fieldsearch/queryengine/internal/index"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/resultset"
)

// compressThreshold is the posting-list cardinality past which a term's
// postings are rebuilt as a Roaring bitmap instead of a plain sorted slice.
const compressThreshold = 4096

type posting struct {
	plain    []docid.DocID // nil once compressed
	bitmap   *roaring.Bitmap
}

func (p *posting) len() int {
	if p.bitmap != nil {
		return int(p.bitmap.GetCardinality())
	}
	return len(p.plain)
}

func (p *posting) add(id docid.DocID) {
	if p.bitmap != nil {
		p.bitmap.Add(uint32(id))
		return
	}
	p.plain = docid.InsertSorted(p.plain, id)
	if len(p.plain) > compressThreshold {
		p.bitmap = roaring.New()
		for _, existing := range p.plain {
			p.bitmap.Add(uint32(existing))
		}
		p.plain = nil
	}
}

func (p *posting) remove(id docid.DocID) {
	if p.bitmap != nil {
		p.bitmap.Remove(uint32(id))
		return
	}
	p.plain = docid.RemoveSorted(p.plain, id)
}

func (p *posting) sortedSet() resultset.SortedSet {
	if p.bitmap != nil {
		bm := p.bitmap
		return resultset.NewCompressedBlock(int(bm.GetCardinality()), func(yield func(docid.DocID) bool) {
			it := bm.Iterator()
			for it.HasNext() {
				if !yield(docid.DocID(it.Next())) {
					return
				}
			}
		})
	}
	return &resultset.PlainBlock{Ids: p.plain}
}

// Index is a TEXT field's content index.
type Index struct {
	mu sync.RWMutex

	stopwords  map[string]struct{}
	withSuffix bool

	postings map[string]*posting // term -> posting
	prefix   *trieNode           // keyed by term as written
	suffix   *trieNode           // keyed by reversed term, nil unless withSuffix

	docTerms map[docid.DocID][]string // for Remove
	allDocs  []docid.DocID            // sorted, docs with a non-null value for this field
}

// New builds an empty TEXT index. withSuffixTrie mirrors the schema's
// TextParams.WithSuffixTrie: building the reversed trie costs memory every
// text field doesn't necessarily need.
func New(stopwords map[string]struct{}, withSuffixTrie bool) *Index {
	idx := &Index{
		stopwords:  stopwords,
		withSuffix: withSuffixTrie,
		postings:   make(map[string]*posting),
		prefix:     newTrieNode(),
		docTerms:   make(map[docid.DocID][]string),
	}
	if withSuffixTrie {
		idx.suffix = newTrieNode()
	}
	return idx
}

var _ index.TextIndex = (*Index)(nil)

// Add tokenizes the text value of field and indexes doc under each distinct
// token. Returns false if the document has no text value for field.
func (idx *Index) Add(doc docid.DocID, access index.DocumentAccessor, field string) bool {
	text, ok := access.GetText(field)
	if !ok {
		return false
	}
	terms := dedupe(tokenize(text, idx.stopwords))
	if len(terms) == 0 {
		return false
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, term := range terms {
		p, ok := idx.postings[term]
		if !ok {
			p = &posting{}
			idx.postings[term] = p
			idx.prefix.insert(term, term)
			if idx.suffix != nil {
				idx.suffix.insert(reverse(term), term)
			}
		}
		p.add(doc)
	}
	idx.docTerms[doc] = terms
	idx.allDocs = docid.InsertSorted(idx.allDocs, doc)
	return true
}

// Remove undoes a prior Add. A no-op if doc was never added.
func (idx *Index) Remove(doc docid.DocID, _ index.DocumentAccessor, _ string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	terms, ok := idx.docTerms[doc]
	if !ok {
		return
	}
	for _, term := range terms {
		if p, ok := idx.postings[term]; ok {
			p.remove(doc)
		}
	}
	delete(idx.docTerms, doc)
	idx.allDocs = docid.RemoveSorted(idx.allDocs, doc)
}

// GetAllDocsWithNonNullValues returns every document holding a text value
// for this field.
func (idx *Index) GetAllDocsWithNonNullValues() resultset.SortedSet {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return &resultset.PlainBlock{Ids: idx.allDocs}
}

// Matching looks up term's posting list. stripWhitespace is accepted for
// contract parity with the evaluator's synonym handling; tokenize already
// trims whitespace unconditionally, so it has no further effect here.
func (idx *Index) Matching(term string, _ bool) resultset.IndexResult {
	terms := tokenize(term, idx.stopwords)
	if len(terms) == 0 {
		return resultset.Empty()
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(terms) == 1 {
		return idx.lookupLocked(terms[0])
	}
	results := make([]resultset.IndexResult, 0, len(terms))
	for _, t := range terms {
		results = append(results, idx.lookupLocked(t))
	}
	return resultset.UnifyResults(results, resultset.AND)
}

func (idx *Index) lookupLocked(term string) resultset.IndexResult {
	p, ok := idx.postings[term]
	if !ok {
		return resultset.Empty()
	}
	return resultset.Borrowed(p.sortedSet())
}

// MatchPrefix invokes yield once per term sharing affix as a prefix.
func (idx *Index) MatchPrefix(affix string, yield func(resultset.SortedSet)) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	idx.prefix.collect(affix, func(term string) {
		if p, ok := idx.postings[term]; ok {
			yield(p.sortedSet())
		}
	})
}

// MatchSuffix invokes yield once per term sharing affix as a suffix. It is
// a no-op (yields nothing) if the index was built without a suffix trie.
func (idx *Index) MatchSuffix(affix string, yield func(resultset.SortedSet)) {
	if idx.suffix == nil {
		return
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	idx.suffix.collect(reverse(affix), func(term string) {
		if p, ok := idx.postings[term]; ok {
			yield(p.sortedSet())
		}
	})
}

// MatchInfix invokes yield once per term containing affix as a substring.
func (idx *Index) MatchInfix(affix string, yield func(resultset.SortedSet)) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for term, p := range idx.postings {
		if containsSubstring(term, affix) {
			yield(p.sortedSet())
		}
	}
}

func containsSubstring(term, affix string) bool {
	if affix == "" {
		return true
	}
	if len(affix) > len(term) {
		return false
	}
	for i := 0; i+len(affix) <= len(term); i++ {
		if term[i:i+len(affix)] == affix {
			return true
		}
	}
	return false
}

func dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
