package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/resultset"
)

type fakeAccessor struct{ text string }

func (f fakeAccessor) GetText(string) (string, bool)      { return f.text, f.text != "" }
func (f fakeAccessor) GetNumeric(string) (float64, bool)  { return 0, false }
func (f fakeAccessor) GetTags(string) ([]string, bool)    { return nil, false }
func (f fakeAccessor) GetVector(string) ([]float32, bool) { return nil, false }

func TestAddThenMatchingTerm(t *testing.T) {
	idx := New(nil, false)
	require.True(t, idx.Add(1, fakeAccessor{text: "hello world"}, "title"))
	require.True(t, idx.Add(2, fakeAccessor{text: "hello dragon"}, "title"))

	res := idx.Matching("hello", true)
	assert.Equal(t, 2, res.Size())
}

func TestMatchingStopwordIsEmpty(t *testing.T) {
	stopwords := map[string]struct{}{"the": {}}
	idx := New(stopwords, false)
	require.True(t, idx.Add(1, fakeAccessor{text: "the quick fox"}, "title"))

	assert.Equal(t, 0, idx.Matching("the", true).Size())
	assert.Equal(t, 1, idx.Matching("fox", true).Size())
}

func TestAddWithNoTextValueFails(t *testing.T) {
	idx := New(nil, false)
	assert.False(t, idx.Add(1, fakeAccessor{}, "title"))
}

func TestRemoveThenMatchingIsEmpty(t *testing.T) {
	idx := New(nil, false)
	a := fakeAccessor{text: "hello world"}
	require.True(t, idx.Add(1, a, "title"))
	idx.Remove(1, a, "title")
	assert.Equal(t, 0, idx.Matching("hello", true).Size())
	assert.Equal(t, 0, idx.GetAllDocsWithNonNullValues().Len())
}

func TestMatchPrefix(t *testing.T) {
	idx := New(nil, false)
	require.True(t, idx.Add(1, fakeAccessor{text: "hello"}, "title"))
	require.True(t, idx.Add(2, fakeAccessor{text: "help"}, "title"))
	require.True(t, idx.Add(3, fakeAccessor{text: "world"}, "title"))

	var total int
	idx.MatchPrefix("hel", func(set resultset.SortedSet) {
		total += set.Len()
	})
	assert.Equal(t, 2, total)
}

func TestMatchSuffixRequiresSuffixTrie(t *testing.T) {
	idx := New(nil, false) // no suffix trie built
	require.True(t, idx.Add(1, fakeAccessor{text: "hello"}, "title"))
	var called bool
	idx.MatchSuffix("llo", func(resultset.SortedSet) { called = true })
	assert.False(t, called)

	withSuffix := New(nil, true)
	require.True(t, withSuffix.Add(1, fakeAccessor{text: "hello"}, "title"))
	withSuffix.MatchSuffix("llo", func(resultset.SortedSet) { called = true })
	assert.True(t, called)
}

func TestMatchInfix(t *testing.T) {
	idx := New(nil, false)
	require.True(t, idx.Add(1, fakeAccessor{text: "dragonfly"}, "title"))
	require.True(t, idx.Add(2, fakeAccessor{text: "butterfly"}, "title"))

	var total int
	idx.MatchInfix("fly", func(set resultset.SortedSet) { total += set.Len() })
	assert.Equal(t, 2, total)
}

func TestMultiWordMatchingIsAnd(t *testing.T) {
	idx := New(nil, false)
	require.True(t, idx.Add(1, fakeAccessor{text: "hello world"}, "title"))
	require.True(t, idx.Add(2, fakeAccessor{text: "hello dragon"}, "title"))

	res := idx.Matching("hello world", true)
	var got []docid.DocID
	for id := range res.Borrow().All() {
		got = append(got, id)
	}
	assert.Equal(t, []docid.DocID{1}, got)
}

func TestPostingCompressesPastThreshold(t *testing.T) {
	idx := New(nil, false)
	for i := 0; i < compressThreshold+10; i++ {
		require.True(t, idx.Add(docid.DocID(i+1), fakeAccessor{text: "popular"}, "title"))
	}
	res := idx.Matching("popular", true)
	assert.Equal(t, compressThreshold+10, res.Size())
}
