package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsearch/queryengine/internal/query/resultset"
	"github.com/fieldsearch/queryengine/internal/schema"
)

type fakeAccessor struct{ tags []string }

func (f fakeAccessor) GetText(string) (string, bool)      { return "", false }
func (f fakeAccessor) GetNumeric(string) (float64, bool)  { return 0, false }
func (f fakeAccessor) GetTags(string) ([]string, bool)    { return f.tags, f.tags != nil }
func (f fakeAccessor) GetVector(string) ([]float32, bool) { return nil, false }

func TestMatchingExactTag(t *testing.T) {
	idx := New(schema.TagParams{})
	require.True(t, idx.Add(1, fakeAccessor{tags: []string{"red", "sale"}}, "tags"))
	require.True(t, idx.Add(2, fakeAccessor{tags: []string{"blue", "sale"}}, "tags"))
	require.True(t, idx.Add(3, fakeAccessor{tags: []string{"red"}}, "tags"))

	assert.Equal(t, 2, idx.Matching("red").Size())
	assert.Equal(t, 2, idx.Matching("sale").Size())
}

func TestAddSplitsOnSeparator(t *testing.T) {
	idx := New(schema.TagParams{Separator: ','})
	require.True(t, idx.Add(1, fakeAccessor{tags: []string{"red,blue"}}, "tags"))
	assert.Equal(t, 1, idx.Matching("red").Size())
	assert.Equal(t, 1, idx.Matching("blue").Size())
}

func TestCaseFoldNormalizesBothSides(t *testing.T) {
	idx := New(schema.TagParams{CaseFold: true})
	require.True(t, idx.Add(1, fakeAccessor{tags: []string{"RED"}}, "tags"))
	assert.Equal(t, 1, idx.Matching("red").Size())
}

func TestAddWithNoTagsFails(t *testing.T) {
	idx := New(schema.TagParams{})
	assert.False(t, idx.Add(1, fakeAccessor{}, "tags"))
}

func TestRemoveThenMatchingIsEmpty(t *testing.T) {
	idx := New(schema.TagParams{})
	a := fakeAccessor{tags: []string{"red"}}
	require.True(t, idx.Add(1, a, "tags"))
	idx.Remove(1, a, "tags")
	assert.Equal(t, 0, idx.Matching("red").Size())
	assert.Equal(t, 0, idx.GetAllDocsWithNonNullValues().Len())
}

func TestMatchPrefixSuffixInfix(t *testing.T) {
	idx := New(schema.TagParams{})
	require.True(t, idx.Add(1, fakeAccessor{tags: []string{"electronics"}}, "tags"))
	require.True(t, idx.Add(2, fakeAccessor{tags: []string{"electric"}}, "tags"))

	var prefixCount, suffixCount, infixCount int
	idx.MatchPrefix("electr", func(s resultset.SortedSet) { prefixCount += s.Len() })
	idx.MatchSuffix("ics", func(s resultset.SortedSet) { suffixCount += s.Len() })
	idx.MatchInfix("lect", func(s resultset.SortedSet) { infixCount += s.Len() })

	assert.Equal(t, 2, prefixCount)
	assert.Equal(t, 1, suffixCount)
	assert.Equal(t, 2, infixCount)
}
