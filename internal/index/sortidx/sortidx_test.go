package sortidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccessor struct {
	text    string
	hasText bool
	tags    []string
	num     float64
	hasNum  bool
}

func (f fakeAccessor) GetText(string) (string, bool)      { return f.text, f.hasText }
func (f fakeAccessor) GetNumeric(string) (float64, bool)  { return f.num, f.hasNum }
func (f fakeAccessor) GetTags(string) ([]string, bool)    { return f.tags, f.tags != nil }
func (f fakeAccessor) GetVector(string) ([]float32, bool) { return nil, false }

func TestStringAddFromText(t *testing.T) {
	s := NewString()
	require.True(t, s.Add(1, fakeAccessor{text: "hello", hasText: true}, "title"))
	v := s.Lookup(1)
	assert.True(t, v.NonNull)
	assert.True(t, v.IsText)
	assert.Equal(t, "hello", v.Str)
}

func TestStringAddFallsBackToFirstTag(t *testing.T) {
	s := NewString()
	require.True(t, s.Add(1, fakeAccessor{tags: []string{"red", "blue"}}, "color"))
	v := s.Lookup(1)
	assert.Equal(t, "red", v.Str)
}

func TestStringAddWithNoValueFails(t *testing.T) {
	s := NewString()
	assert.False(t, s.Add(1, fakeAccessor{}, "title"))
}

func TestStringLookupMissingDocIsZeroValue(t *testing.T) {
	s := NewString()
	v := s.Lookup(99)
	assert.False(t, v.NonNull)
}

func TestStringRemove(t *testing.T) {
	s := NewString()
	a := fakeAccessor{text: "hello", hasText: true}
	require.True(t, s.Add(1, a, "title"))
	s.Remove(1, a, "title")
	assert.False(t, s.Lookup(1).NonNull)
	assert.Equal(t, 0, s.GetAllDocsWithNonNullValues().Len())
}

func TestNumericAddAndLookup(t *testing.T) {
	n := NewNumeric()
	require.True(t, n.Add(1, fakeAccessor{num: 42, hasNum: true}, "price"))
	v := n.Lookup(1)
	assert.True(t, v.NonNull)
	assert.Equal(t, 42.0, v.Num)
}

func TestNumericAddWithNoValueFails(t *testing.T) {
	n := NewNumeric()
	assert.False(t, n.Add(1, fakeAccessor{}, "price"))
}

func TestNumericRemove(t *testing.T) {
	n := NewNumeric()
	a := fakeAccessor{num: 10, hasNum: true}
	require.True(t, n.Add(1, a, "price"))
	n.Remove(1, a, "price")
	assert.False(t, n.Lookup(1).NonNull)
	assert.Equal(t, 0, n.GetAllDocsWithNonNullValues().Len())
}

func TestNumericGetAllDocsWithNonNullValues(t *testing.T) {
	n := NewNumeric()
	require.True(t, n.Add(1, fakeAccessor{num: 1, hasNum: true}, "price"))
	require.True(t, n.Add(2, fakeAccessor{num: 2, hasNum: true}, "price"))
	assert.Equal(t, 2, n.GetAllDocsWithNonNullValues().Len())
}
