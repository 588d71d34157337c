// Package algorithm implements SearchAlgorithm, the facade a caller drives:
// parse a query once via Init, then evaluate it as many times as needed via
// Search against any FieldIndices sharing the same schema.
package algorithm

import (
	"log/slog"

	"github.com/fieldsearch/queryengine/internal/index"
	"github.com/fieldsearch/queryengine/internal/query/ast"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/engine"
	"github.com/fieldsearch/queryengine/internal/query/fieldindex"
	"github.com/fieldsearch/queryengine/internal/query/parser"
)

// SearchResult is the outcome of one Search call.
type SearchResult struct {
	Total       int
	IDs         []docid.DocID
	KnnScores   []index.DocScore
	PreaggTotal int
	Profile     *engine.AlgorithmProfile
	Error       string
}

// KnnScoreSortOption describes how a caller should surface KNN distances:
// under which alias, and how many results to expect.
type KnnScoreSortOption struct {
	ScoreAlias string
	Limit      uint64
}

// SearchAlgorithm parses a query once and evaluates it against any number
// of FieldIndices snapshots.
type SearchAlgorithm struct {
	query             ast.Node
	profilingEnabled  bool
}

// Init parses query against params, returning false on syntax error or an
// empty parse. Parse errors are logged, not surfaced as a structured
// error: by the time Search could report one, there is no result to
// attach it to.
func (a *SearchAlgorithm) Init(query string, params parser.Params) bool {
	node, err := parser.Parse(query, params)
	if err != nil {
		slog.Info("failed to parse query", "query", query, "error", err)
		return false
	}
	if ast.IsEmpty(node) {
		slog.Info("empty result after parsing query", "query", query)
		return false
	}
	a.query = node
	return true
}

// EnableProfiling requests profile capture on every subsequent Search call.
func (a *SearchAlgorithm) EnableProfiling() { a.profilingEnabled = true }

// Search evaluates the parsed query against indices.
func (a *SearchAlgorithm) Search(indices *fieldindex.FieldIndices) SearchResult {
	bs := engine.New(indices)
	if a.profilingEnabled {
		bs.EnableProfiling()
	}

	result := bs.SearchGeneric(a.query)
	res := SearchResult{
		IDs:         result.Take(),
		KnnScores:   bs.KnnScores(),
		PreaggTotal: bs.PreaggTotal(),
	}
	res.Total = len(res.IDs)
	if profile, ok := bs.TakeProfile(); ok {
		res.Profile = &profile
	}
	if err := bs.Err(); err != nil {
		res.Error = err.Error()
		res.IDs = nil
		res.Total = 0
	}
	return res
}

// GetKnnScoreSortOption inspects the parsed AST: if the root is a KNN
// node, returns its score alias and limit.
func (a *SearchAlgorithm) GetKnnScoreSortOption() (KnnScoreSortOption, bool) {
	knn, ok := a.query.(*ast.Knn)
	if !ok {
		return KnnScoreSortOption{}, false
	}
	return KnnScoreSortOption{ScoreAlias: knn.ScoreAlias, Limit: knn.Limit}, true
}
