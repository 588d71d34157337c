// Package engine implements BasicSearch, the recursive evaluator that
// walks a query AST against a FieldIndices and produces an IndexResult (or,
// at a KNN node, an ordered id list paired with per-document distances).
package engine

import (
	"fmt"
	"time"

	"github.com/fieldsearch/queryengine/internal/index"
	"github.com/fieldsearch/queryengine/internal/index/vector"
	"github.com/fieldsearch/queryengine/internal/query/ast"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/fieldindex"
	"github.com/fieldsearch/queryengine/internal/query/resultset"
	"github.com/fieldsearch/queryengine/internal/schema"
)

// BasicSearch evaluates one query's AST against a FieldIndices snapshot. It
// is not safe for concurrent reuse across queries: construct a fresh one
// per Search call.
type BasicSearch struct {
	fi          *fieldindex.FieldIndices
	activeField string

	err     error
	scratch []docid.DocID

	profile *ProfileBuilder

	knnScores    []index.DocScore
	preaggTotal  int
	sawKnn       bool
}

// New builds a BasicSearch bound to fi.
func New(fi *fieldindex.FieldIndices) *BasicSearch {
	return &BasicSearch{fi: fi}
}

// EnableProfiling turns on trace capture for the next evaluation.
func (s *BasicSearch) EnableProfiling() { s.profile = &ProfileBuilder{} }

// TakeProfile returns the captured trace, if profiling was enabled.
func (s *BasicSearch) TakeProfile() (AlgorithmProfile, bool) {
	if s.profile == nil {
		return AlgorithmProfile{}, false
	}
	p := s.profile.Take()
	return p, true
}

// Err returns the sticky evaluation error, if any node set one.
func (s *BasicSearch) Err() error { return s.err }

// KnnScores returns the (doc, distance) pairs recorded by the last
// evaluated KNN node, parallel to that node's returned id order.
func (s *BasicSearch) KnnScores() []index.DocScore { return s.knnScores }

// PreaggTotal returns the size of the KNN sub-result before ranking, or
// zero if no KNN node was evaluated.
func (s *BasicSearch) PreaggTotal() int { return s.preaggTotal }

func (s *BasicSearch) setError(format string, args ...any) {
	if s.err == nil {
		s.err = fmt.Errorf(format, args...)
	}
}

// SearchGeneric evaluates node, recording a profile event around the call
// when profiling is enabled. Once s.err is set, every further call
// short-circuits to an empty result without touching any index.
func (s *BasicSearch) SearchGeneric(node ast.Node) resultset.IndexResult {
	if s.err != nil {
		return resultset.Empty()
	}
	var start time.Time
	var depth uint32
	if s.profile != nil {
		start, depth = s.profile.Start()
	}
	result := s.dispatch(node)
	if s.profile != nil {
		s.profile.Finish(start, depth, node, uint(result.Size()))
	}
	return result
}

func (s *BasicSearch) dispatch(node ast.Node) resultset.IndexResult {
	switch n := node.(type) {
	case ast.Empty:
		return resultset.Empty()
	case ast.Star:
		return resultset.Borrowed(s.fi.AllIDsResult())
	case ast.StarField:
		return s.evalStarField()
	case ast.Affix:
		return s.evalAffix(n)
	case ast.Range:
		return s.evalRange(n)
	case *ast.Negate:
		return s.evalNegate(n)
	case *ast.Logical:
		return s.evalLogical(n)
	case *ast.Field:
		return s.evalField(n)
	case *ast.Tags:
		return s.evalTags(n)
	case *ast.Knn:
		return s.evalKnn(n)
	default:
		s.setError("internal invariant violation: unknown AST node %T", node)
		return resultset.Empty()
	}
}

func (s *BasicSearch) evalStarField() resultset.IndexResult {
	if s.activeField == "" {
		return resultset.Empty()
	}
	if si, err := s.fi.GetSortIndex(s.activeField); err == nil {
		return resultset.Borrowed(si.GetAllDocsWithNonNullValues())
	}
	idx, err := s.fi.GetIndex(s.activeField)
	if err != nil {
		s.setError("%s", err.Error())
		return resultset.Empty()
	}
	return resultset.Borrowed(idx.GetAllDocsWithNonNullValues())
}

func (s *BasicSearch) evalAffix(n ast.Affix) resultset.IndexResult {
	if n.Kind == ast.Regular {
		return s.evalTerm(n.Text)
	}
	return s.evalTextCollect(n.Kind, n.Text)
}

func (s *BasicSearch) evalTerm(term string) resultset.IndexResult {
	strip := true
	if syn := s.fi.Synonyms(); syn != nil {
		if group, ok := syn.Resolve(term); ok {
			term, strip = group, false
		}
	}
	if s.activeField != "" {
		ti, err := s.fi.GetTextIndex(s.activeField)
		if err != nil {
			s.setError("%s", err.Error())
			return resultset.Empty()
		}
		return ti.Matching(term, strip)
	}
	all := s.fi.GetAllTextIndices()
	if len(all) == 0 {
		return resultset.Empty()
	}
	results := make([]resultset.IndexResult, 0, len(all))
	for _, ti := range all {
		results = append(results, ti.Matching(term, strip))
	}
	return resultset.UnifyResultsWith(results, resultset.OR, &s.scratch)
}

func (s *BasicSearch) evalTextCollect(kind ast.AffixKind, affix string) resultset.IndexResult {
	var indices []index.TextIndex
	if s.activeField != "" {
		ti, err := s.fi.GetTextIndex(s.activeField)
		if err != nil {
			s.setError("%s", err.Error())
			return resultset.Empty()
		}
		indices = []index.TextIndex{ti}
	} else {
		indices = s.fi.GetAllTextIndices()
	}

	var collected []resultset.SortedSet
	yield := func(set resultset.SortedSet) { collected = append(collected, set) }
	for _, ti := range indices {
		switch kind {
		case ast.Prefix:
			ti.MatchPrefix(affix, yield)
		case ast.Suffix:
			ti.MatchSuffix(affix, yield)
		case ast.Infix:
			ti.MatchInfix(affix, yield)
		}
	}
	return s.unifyBorrowed(collected)
}

func (s *BasicSearch) unifyBorrowed(sets []resultset.SortedSet) resultset.IndexResult {
	if len(sets) == 0 {
		return resultset.Empty()
	}
	results := make([]resultset.IndexResult, len(sets))
	for i, set := range sets {
		results[i] = resultset.Borrowed(set)
	}
	return resultset.UnifyResultsWith(results, resultset.OR, &s.scratch)
}

func (s *BasicSearch) evalRange(n ast.Range) resultset.IndexResult {
	if s.activeField == "" {
		s.setError("internal invariant violation: Range node with no active field")
		return resultset.Empty()
	}
	ni, err := s.fi.GetNumericIndex(s.activeField)
	if err != nil {
		s.setError("%s", err.Error())
		return resultset.Empty()
	}
	return resultset.Borrowed(ni.Range(n.Lo, n.Hi))
}

func (s *BasicSearch) evalNegate(n *ast.Negate) resultset.IndexResult {
	child := s.SearchGeneric(n.Child)
	if s.err != nil {
		return resultset.Empty()
	}
	excluded := child.Take()
	return resultset.Owned(docid.Difference(s.fi.AllIDs(), excluded))
}

func (s *BasicSearch) evalLogical(n *ast.Logical) resultset.IndexResult {
	results := make([]resultset.IndexResult, 0, len(n.Children))
	for _, child := range n.Children {
		results = append(results, s.SearchGeneric(child))
		if s.err != nil {
			return resultset.Empty()
		}
	}
	op := resultset.AND
	if n.Op == ast.OR {
		op = resultset.OR
	}
	return resultset.UnifyResultsWith(results, op, &s.scratch)
}

func (s *BasicSearch) evalField(n *ast.Field) resultset.IndexResult {
	previous := s.activeField
	s.activeField = n.Ident
	result := s.SearchGeneric(n.Child)
	s.activeField = previous
	return result
}

func (s *BasicSearch) evalTags(n *ast.Tags) resultset.IndexResult {
	if s.activeField == "" {
		s.setError("internal invariant violation: Tags node with no active field")
		return resultset.Empty()
	}
	ti, err := s.fi.GetTagIndex(s.activeField)
	if err != nil {
		s.setError("%s", err.Error())
		return resultset.Empty()
	}

	results := make([]resultset.IndexResult, 0, len(n.Values))
	for _, v := range n.Values {
		if v.Kind == ast.Regular {
			results = append(results, ti.Matching(v.Text))
			continue
		}
		var collected []resultset.SortedSet
		yield := func(set resultset.SortedSet) { collected = append(collected, set) }
		switch v.Kind {
		case ast.Prefix:
			ti.MatchPrefix(v.Text, yield)
		case ast.Suffix:
			ti.MatchSuffix(v.Text, yield)
		case ast.Infix:
			ti.MatchInfix(v.Text, yield)
		}
		results = append(results, s.unifyBorrowed(collected))
	}
	return resultset.UnifyResultsWith(results, resultset.OR, &s.scratch)
}

func (s *BasicSearch) evalKnn(n *ast.Knn) resultset.IndexResult {
	vi, err := s.fi.GetVectorIndex(n.Field)
	if err != nil {
		s.setError("%s", err.Error())
		return resultset.Empty()
	}
	dim, sim := vi.Info()
	if n.Vec.Dim != dim {
		s.setError("Wrong vector index dimensions, got: %d, expected: %d", n.Vec.Dim, dim)
		return resultset.Empty()
	}

	filter := s.SearchGeneric(n.Filter)
	if s.err != nil {
		return resultset.Empty()
	}
	s.sawKnn = true
	s.preaggTotal = filter.Size()

	allIDs := s.fi.AllIDs()
	var scores []index.DocScore
	if hnsw, ok := vi.(index.HnswIndex); ok && s.preaggTotal == len(allIDs) {
		scores = hnsw.Knn(n.Vec.Data, n.Limit, n.EfRuntime, nil)
	} else if hnsw, ok := vi.(index.HnswIndex); ok {
		scores = hnsw.Knn(n.Vec.Data, n.Limit, n.EfRuntime, filter.Take())
	} else {
		scores = flatKnn(vi, n.Vec.Data, dim, sim, filter.Take(), n.Limit)
	}

	s.knnScores = scores
	ids := make([]docid.DocID, len(scores))
	for i, sc := range scores {
		ids[i] = sc.Doc
	}
	return resultset.Owned(ids)
}

// flatKnn computes every candidate's distance to vec, then keeps the
// closest limit entries via a bounded max-heap, ascending by distance.
func flatKnn(vi index.VectorIndex, vec []float32, dim uint32, sim schema.VectorSimilarity, candidates []docid.DocID, limit uint64) []index.DocScore {
	scored := make([]index.DocScore, 0, len(candidates))
	for _, doc := range candidates {
		stored := vi.Get(doc)
		if stored == nil {
			continue
		}
		scored = append(scored, index.DocScore{Doc: doc, Dist: index.VectorDistance(vec, stored, dim, sim)})
	}
	return vector.TopK(scored, limit)
}
