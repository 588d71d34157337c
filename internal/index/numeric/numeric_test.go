package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/schema"
)

type fakeAccessor struct{ value float64 }

func (f fakeAccessor) GetText(string) (string, bool)      { return "", false }
func (f fakeAccessor) GetNumeric(string) (float64, bool)  { return f.value, true }
func (f fakeAccessor) GetTags(string) ([]string, bool)    { return nil, false }
func (f fakeAccessor) GetVector(string) ([]float32, bool) { return nil, false }

func TestRangeReturnsDocsWithinBounds(t *testing.T) {
	idx := New(schema.NumericParams{})
	for doc, v := range map[docid.DocID]float64{1: 10, 2: 20, 3: 30, 4: 40} {
		require.True(t, idx.Add(doc, fakeAccessor{value: v}, "price"))
	}

	r := idx.Range(15, 35)
	var got []docid.DocID
	for id := range r.All() {
		got = append(got, id)
	}
	assert.ElementsMatch(t, []docid.DocID{2, 3}, got)
}

func TestRangeEmptyWhenLoGreaterThanHi(t *testing.T) {
	idx := New(schema.NumericParams{})
	require.True(t, idx.Add(1, fakeAccessor{value: 10}, "price"))
	r := idx.Range(50, 10)
	assert.Equal(t, 0, r.Len())
}

func TestRangeSplitsAcrossTwoBlocksWhenSpanExceedsBlockSize(t *testing.T) {
	idx := New(schema.NumericParams{BlockSize: 2})
	for i := 0; i < 6; i++ {
		require.True(t, idx.Add(docid.DocID(i+1), fakeAccessor{value: float64(i)}, "price"))
	}
	r := idx.Range(0, 5)
	assert.Equal(t, 6, r.Len())
}

// The two-block split must partition by DocID, not by value-position: every
// id in the first block must be below every id in the second, and All()
// must yield the whole range in globally ascending DocID order, even when
// DocID order is the reverse of value order.
func TestRangeTwoBlockSplitPreservesAscendingDocIDOrder(t *testing.T) {
	idx := New(schema.NumericParams{BlockSize: 2})
	// DocID 1 holds the largest value, DocID 6 the smallest: value order
	// and DocID order are exact opposites.
	for i := 0; i < 6; i++ {
		require.True(t, idx.Add(docid.DocID(i+1), fakeAccessor{value: float64(5 - i)}, "price"))
	}

	r := idx.Range(0, 5)
	require.Equal(t, 6, r.Len())

	var got []docid.DocID
	for id := range r.All() {
		got = append(got, id)
	}
	assert.Equal(t, []docid.DocID{1, 2, 3, 4, 5, 6}, got)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i], "All() must yield strictly ascending DocIDs")
	}
}

func TestRemoveThenRangeExcludesDoc(t *testing.T) {
	idx := New(schema.NumericParams{})
	require.True(t, idx.Add(1, fakeAccessor{value: 10}, "price"))
	require.True(t, idx.Add(2, fakeAccessor{value: 20}, "price"))
	idx.Remove(1, nil, "price")

	r := idx.Range(0, 100)
	var got []docid.DocID
	for id := range r.All() {
		got = append(got, id)
	}
	assert.Equal(t, []docid.DocID{2}, got)
}

func TestGetAllDocsWithNonNullValues(t *testing.T) {
	idx := New(schema.NumericParams{})
	require.True(t, idx.Add(1, fakeAccessor{value: 1}, "price"))
	require.True(t, idx.Add(2, fakeAccessor{value: 2}, "price"))
	assert.Equal(t, 2, idx.GetAllDocsWithNonNullValues().Len())
}
