// Package fieldindex implements FieldIndices, the registry of typed
// content and sort indices the evaluator runs queries against. It owns
// atomic document add/remove across every applicable field and the global
// sorted all_ids sequence Negate and StarField consult.
package fieldindex

import (
	"fmt"

	"github.com/fieldsearch/queryengine/internal/index"
	"github.com/fieldsearch/queryengine/internal/index/numeric"
	"github.com/fieldsearch/queryengine/internal/index/sortidx"
	"github.com/fieldsearch/queryengine/internal/index/tag"
	"github.com/fieldsearch/queryengine/internal/index/text"
	"github.com/fieldsearch/queryengine/internal/index/vector"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/resultset"
	"github.com/fieldsearch/queryengine/internal/schema"
	"github.com/fieldsearch/queryengine/internal/synonyms"
)

// FieldIndices is the single-owner, mutable registry of every field's
// content index and (for SORTABLE fields) sort index, built from an
// immutable Schema.
type FieldIndices struct {
	schema   *schema.Schema
	options  schema.IndicesOptions
	synonyms *synonyms.Table
	indices  map[string]index.BaseIndex
	sortIdx  map[string]index.SortIndex
	allIDs   []docid.DocID
}

// New builds a FieldIndices with one content index per indexable schema
// field (fields with the NOINDEX flag are skipped) and one sort index per
// SORTABLE field.
func New(s *schema.Schema, opts schema.IndicesOptions, syn *synonyms.Table) *FieldIndices {
	fi := &FieldIndices{
		schema:   s,
		options:  opts,
		synonyms: syn,
		indices:  make(map[string]index.BaseIndex),
		sortIdx:  make(map[string]index.SortIndex),
	}
	for _, f := range s.Fields() {
		if f.Flags.Has(schema.NOINDEX) {
			continue
		}
		fi.indices[f.Ident] = newContentIndex(f, opts)
		if f.Flags.Has(schema.SORTABLE) {
			if si := newSortIndex(f); si != nil {
				fi.sortIdx[f.Ident] = si
			}
		}
	}
	return fi
}

func newContentIndex(f schema.FieldInfo, opts schema.IndicesOptions) index.BaseIndex {
	switch f.Type {
	case schema.TEXT:
		withSuffix := f.SpecialParams.Text != nil && f.SpecialParams.Text.WithSuffixTrie
		return text.New(opts.Stopwords, withSuffix)
	case schema.NUMERIC:
		var params schema.NumericParams
		if f.SpecialParams.Numeric != nil {
			params = *f.SpecialParams.Numeric
		}
		return numeric.New(params)
	case schema.TAG:
		var params schema.TagParams
		if f.SpecialParams.Tag != nil {
			params = *f.SpecialParams.Tag
		}
		return tag.New(params)
	case schema.VECTOR:
		var params schema.VectorParams
		if f.SpecialParams.Vector != nil {
			params = *f.SpecialParams.Vector
		}
		if params.UseHNSW {
			return vector.NewHnsw(params)
		}
		return vector.NewFlat(params)
	default:
		panic(fmt.Sprintf("fieldindex: unknown field type %v for %q", f.Type, f.Ident))
	}
}

func newSortIndex(f schema.FieldInfo) index.SortIndex {
	switch f.Type {
	case schema.TEXT, schema.TAG:
		return sortidx.NewString()
	case schema.NUMERIC:
		return sortidx.NewNumeric()
	default:
		return nil
	}
}

// Add indexes doc across every applicable content and sort index: those
// whose field doc carries a value for. Indices whose field doc lacks are
// skipped. All or nothing: on the first Add that returns false, every
// already-applied Add (content and sort alike) is rolled back in reverse
// and Add returns false without mutating all_ids. Add also returns false,
// changing nothing, when doc has a value for none of the indexed fields.
func (fi *FieldIndices) Add(doc docid.DocID, access index.DocumentAccessor) bool {
	type applied struct {
		ident string
		idx   index.BaseIndex
	}
	var done []applied

	rollback := func() bool {
		for i := len(done) - 1; i >= 0; i-- {
			done[i].idx.Remove(doc, access, done[i].ident)
		}
		return false
	}
	present := func(ident string) bool {
		_, t := access.GetText(ident)
		_, n := access.GetNumeric(ident)
		_, g := access.GetTags(ident)
		_, v := access.GetVector(ident)
		return t || n || g || v
	}

	for ident, idx := range fi.indices {
		if !present(ident) {
			continue
		}
		if !idx.Add(doc, access, ident) {
			return rollback()
		}
		done = append(done, applied{ident, idx})
	}
	for ident, si := range fi.sortIdx {
		if !present(ident) {
			continue
		}
		if !si.Add(doc, access, ident) {
			return rollback()
		}
		done = append(done, applied{ident, si})
	}
	if len(done) == 0 {
		return false
	}

	fi.allIDs = docid.InsertSorted(fi.allIDs, doc)
	return true
}

// Remove undoes a prior successful Add across every index. Best-effort: a
// document unknown to a given index is silently skipped there.
func (fi *FieldIndices) Remove(doc docid.DocID, access index.DocumentAccessor) {
	for ident, idx := range fi.indices {
		idx.Remove(doc, access, ident)
	}
	for ident, si := range fi.sortIdx {
		si.Remove(doc, access, ident)
	}
	fi.allIDs = docid.RemoveSorted(fi.allIDs, doc)
}

// AllIDs returns the sorted sequence of every document currently indexed.
func (fi *FieldIndices) AllIDs() []docid.DocID { return fi.allIDs }

// GetIndex resolves ident (after alias lookup) to its content index,
// reporting "invalid field" if unknown.
func (fi *FieldIndices) GetIndex(ident string) (index.BaseIndex, error) {
	resolved := fi.schema.LookupAlias(ident)
	idx, ok := fi.indices[resolved]
	if !ok {
		return nil, fmt.Errorf("Invalid field: %s", ident)
	}
	return idx, nil
}

// GetTextIndex resolves ident to a TEXT index, reporting "wrong access
// type" if the field exists but is not TEXT.
func (fi *FieldIndices) GetTextIndex(ident string) (index.TextIndex, error) {
	idx, err := fi.GetIndex(ident)
	if err != nil {
		return nil, err
	}
	ti, ok := idx.(index.TextIndex)
	if !ok {
		return nil, fmt.Errorf("Wrong access type for field: %s", ident)
	}
	return ti, nil
}

// GetTagIndex resolves ident to a TAG index.
func (fi *FieldIndices) GetTagIndex(ident string) (index.TagIndex, error) {
	idx, err := fi.GetIndex(ident)
	if err != nil {
		return nil, err
	}
	ti, ok := idx.(index.TagIndex)
	if !ok {
		return nil, fmt.Errorf("Wrong access type for field: %s", ident)
	}
	return ti, nil
}

// GetNumericIndex resolves ident to a NUMERIC index.
func (fi *FieldIndices) GetNumericIndex(ident string) (index.NumericIndex, error) {
	idx, err := fi.GetIndex(ident)
	if err != nil {
		return nil, err
	}
	ni, ok := idx.(index.NumericIndex)
	if !ok {
		return nil, fmt.Errorf("Wrong access type for field: %s", ident)
	}
	return ni, nil
}

// GetVectorIndex resolves ident to a VECTOR index.
func (fi *FieldIndices) GetVectorIndex(ident string) (index.VectorIndex, error) {
	idx, err := fi.GetIndex(ident)
	if err != nil {
		return nil, err
	}
	vi, ok := idx.(index.VectorIndex)
	if !ok {
		return nil, fmt.Errorf("Wrong access type for field: %s", ident)
	}
	return vi, nil
}

// GetSortIndex resolves ident to its sort index, if any.
func (fi *FieldIndices) GetSortIndex(ident string) (index.SortIndex, error) {
	resolved := fi.schema.LookupAlias(ident)
	si, ok := fi.sortIdx[resolved]
	if !ok {
		// An explicit error rather than an assertion: a non-existent or
		// non-SORTABLE field identifier is a caller mistake, not an
		// invariant violation the process should crash on.
		return nil, fmt.Errorf("Invalid field: %s", ident)
	}
	return si, nil
}

// GetAllTextIndices returns every TEXT content index, in schema
// declaration order, for a Term/Affix query with no active field.
func (fi *FieldIndices) GetAllTextIndices() []index.TextIndex {
	var out []index.TextIndex
	for _, f := range fi.schema.Fields() {
		if f.Type != schema.TEXT {
			continue
		}
		if idx, ok := fi.indices[f.Ident]; ok {
			if ti, ok := idx.(index.TextIndex); ok {
				out = append(out, ti)
			}
		}
	}
	return out
}

// Schema returns the immutable schema this registry was built from.
func (fi *FieldIndices) Schema() *schema.Schema { return fi.schema }

// Synonyms returns the synonym table, possibly nil if none was configured.
func (fi *FieldIndices) Synonyms() *synonyms.Table { return fi.synonyms }

// AllIDsResult wraps AllIDs as a resultset.SortedSet for Star evaluation.
func (fi *FieldIndices) AllIDsResult() resultset.SortedSet {
	return &resultset.PlainBlock{Ids: fi.allIDs}
}
