package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsearch/queryengine/internal/index"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/schema"
)

type fakeAccessor struct{ vec []float32 }

func (f fakeAccessor) GetText(string) (string, bool)      { return "", false }
func (f fakeAccessor) GetNumeric(string) (float64, bool)  { return 0, false }
func (f fakeAccessor) GetTags(string) ([]string, bool)    { return nil, false }
func (f fakeAccessor) GetVector(string) ([]float32, bool) { return f.vec, f.vec != nil }

func TestFlatAddWrongDimensionFails(t *testing.T) {
	f := NewFlat(schema.VectorParams{Dim: 3})
	assert.False(t, f.Add(1, fakeAccessor{vec: []float32{1, 2}}, "emb"))
}

func TestFlatAddThenGet(t *testing.T) {
	f := NewFlat(schema.VectorParams{Dim: 3})
	require.True(t, f.Add(1, fakeAccessor{vec: []float32{1, 0, 0}}, "emb"))
	assert.Equal(t, []float32{1, 0, 0}, f.Get(1))
	assert.Equal(t, 1, f.GetAllDocsWithNonNullValues().Len())
}

func TestFlatRemove(t *testing.T) {
	f := NewFlat(schema.VectorParams{Dim: 3})
	a := fakeAccessor{vec: []float32{1, 0, 0}}
	require.True(t, f.Add(1, a, "emb"))
	f.Remove(1, a, "emb")
	assert.Nil(t, f.Get(1))
	assert.Equal(t, 0, f.GetAllDocsWithNonNullValues().Len())
}

func TestFlatInfo(t *testing.T) {
	f := NewFlat(schema.VectorParams{Dim: 3, Similarity: schema.Cosine})
	dim, sim := f.Info()
	assert.EqualValues(t, 3, dim)
	assert.Equal(t, schema.Cosine, sim)
}

func TestTopKOrdersAscendingAndBounds(t *testing.T) {
	candidates := []index.DocScore{
		{Doc: 1, Dist: 5},
		{Doc: 2, Dist: 1},
		{Doc: 3, Dist: 3},
		{Doc: 4, Dist: 2},
	}
	got := TopK(candidates, 2)
	require.Len(t, got, 2)
	assert.Equal(t, docid.DocID(2), got[0].Doc)
	assert.Equal(t, docid.DocID(4), got[1].Doc)
}

func TestTopKLimitExceedsCandidates(t *testing.T) {
	candidates := []index.DocScore{{Doc: 1, Dist: 5}}
	got := TopK(candidates, 10)
	assert.Len(t, got, 1)
}

func TestHnswAddWrongDimensionFails(t *testing.T) {
	h := NewHnsw(schema.VectorParams{Dim: 3})
	assert.False(t, h.Add(1, fakeAccessor{vec: []float32{1, 2}}, "emb"))
}

func TestHnswKnnReturnsClosestFirst(t *testing.T) {
	h := NewHnsw(schema.VectorParams{Dim: 2, Similarity: schema.L2})
	docs := map[docid.DocID][]float32{
		1: {0, 0},
		2: {10, 10},
		3: {1, 1},
		4: {20, 20},
	}
	for id, vec := range docs {
		require.True(t, h.Add(id, fakeAccessor{vec: vec}, "emb"))
	}

	res := h.Knn([]float32{0, 0}, 2, 32, nil)
	require.Len(t, res, 2)
	assert.Equal(t, docid.DocID(1), res[0].Doc)
	assert.Equal(t, docid.DocID(3), res[1].Doc)
}

func TestHnswKnnRespectsAllowList(t *testing.T) {
	h := NewHnsw(schema.VectorParams{Dim: 2, Similarity: schema.L2})
	docs := map[docid.DocID][]float32{
		1: {0, 0},
		2: {1, 1},
		3: {2, 2},
	}
	for id, vec := range docs {
		require.True(t, h.Add(id, fakeAccessor{vec: vec}, "emb"))
	}

	res := h.Knn([]float32{0, 0}, 2, 32, []docid.DocID{3})
	require.Len(t, res, 1)
	assert.Equal(t, docid.DocID(3), res[0].Doc)
}

func TestHnswKnnEmptyIndexReturnsNil(t *testing.T) {
	h := NewHnsw(schema.VectorParams{Dim: 2})
	res := h.Knn([]float32{0, 0}, 2, 32, nil)
	assert.Nil(t, res)
}

func TestHnswRemoveReassignsEntryPoint(t *testing.T) {
	h := NewHnsw(schema.VectorParams{Dim: 2})
	a := fakeAccessor{vec: []float32{0, 0}}
	b := fakeAccessor{vec: []float32{1, 1}}
	require.True(t, h.Add(1, a, "emb"))
	require.True(t, h.Add(2, b, "emb"))

	h.Remove(1, a, "emb")
	assert.Equal(t, 1, h.GetAllDocsWithNonNullValues().Len())

	res := h.Knn([]float32{1, 1}, 1, 32, nil)
	require.Len(t, res, 1)
	assert.Equal(t, docid.DocID(2), res[0].Doc)
}
