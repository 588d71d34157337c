package fieldindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsearch/queryengine/internal/ingest"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	. "github.com/fieldsearch/queryengine/internal/query/fieldindex"
	"github.com/fieldsearch/queryengine/internal/schema"
	"github.com/fieldsearch/queryengine/internal/synonyms"
)

func testSchema() *schema.Schema {
	return schema.NewSchema([]schema.FieldInfo{
		{Ident: "title", ShortName: "title", Type: schema.TEXT, Flags: schema.SORTABLE},
		{Ident: "price", ShortName: "price", Type: schema.NUMERIC, Flags: schema.SORTABLE},
		{Ident: "color", ShortName: "color", Type: schema.TAG},
		{Ident: "internal_note", ShortName: "internal_note", Type: schema.TEXT, Flags: schema.NOINDEX},
		{Ident: "emb", ShortName: "emb", Type: schema.VECTOR, SpecialParams: schema.SpecialParams{
			Vector: &schema.VectorParams{Dim: 3, Similarity: schema.Cosine},
		}},
	}, map[string]string{"t": "title"})
}

func newTestIndices() *FieldIndices {
	return New(testSchema(), schema.NewDefaultOptions(), synonyms.New())
}

func doc(text map[string]string, numeric map[string]float64, tags map[string][]string) *ingest.Document {
	d := ingest.NewDocument()
	for k, v := range text {
		d.Text[k] = v
	}
	for k, v := range numeric {
		d.Numeric[k] = v
	}
	for k, v := range tags {
		d.Tags[k] = v
	}
	return d
}

func TestNewSkipsNoIndexField(t *testing.T) {
	fi := newTestIndices()
	_, err := fi.GetIndex("internal_note")
	assert.Error(t, err)
}

func TestNewBuildsSortIndexOnlyForSortableFields(t *testing.T) {
	fi := newTestIndices()
	_, err := fi.GetSortIndex("title")
	assert.NoError(t, err)
	_, err = fi.GetSortIndex("price")
	assert.NoError(t, err)
	_, err = fi.GetSortIndex("color")
	assert.Error(t, err, "color is TAG but not declared SORTABLE")
}

func TestAddThenAllIDs(t *testing.T) {
	fi := newTestIndices()
	d := doc(map[string]string{"title": "red shoes"}, map[string]float64{"price": 19.99}, map[string][]string{"color": {"red"}})
	require.True(t, fi.Add(1, d))
	assert.Equal(t, []docid.DocID{1}, fi.AllIDs())
}

func TestAddWithNoApplicableFieldFails(t *testing.T) {
	fi := newTestIndices()
	d := ingest.NewDocument() // no fields set at all
	assert.False(t, fi.Add(1, d))
	assert.Empty(t, fi.AllIDs())
}

// The first Add failure rolls back every Add already applied for this
// document, content and sort indices alike, so all_ids never observes a
// partially-indexed document.
func TestAddRollsBackOnTotalFailure(t *testing.T) {
	fi := newTestIndices()
	empty := ingest.NewDocument()
	ok := fi.Add(5, empty)
	require.False(t, ok)

	ti, err := fi.GetTextIndex("title")
	require.NoError(t, err)
	res := ti.Matching("red", true)
	assert.Equal(t, 0, res.Size(), "rolled-back add must leave no trace in any content index")
}

// A partial failure (TEXT tokenizes fine, VECTOR has the wrong dimension)
// must roll back every index already applied for this document, not just
// leave the document indexed wherever it happened to succeed.
func TestAddRollsBackPartialFailure(t *testing.T) {
	fi := newTestIndices()
	d := ingest.NewDocument()
	d.Text["title"] = "red shoes"
	d.Vector["emb"] = []float32{1, 2} // wrong dimension: schema declares 3

	require.False(t, fi.Add(7, d))
	assert.Empty(t, fi.AllIDs())

	ti, err := fi.GetTextIndex("title")
	require.NoError(t, err)
	assert.Equal(t, 0, ti.Matching("red", true).Size(), "text index must be rolled back even though its Add succeeded")

	si, err := fi.GetSortIndex("title")
	require.NoError(t, err)
	assert.False(t, si.Lookup(7).NonNull, "sort index must be rolled back too")
}

func TestRemoveIsSymmetricWithAdd(t *testing.T) {
	fi := newTestIndices()
	d := doc(map[string]string{"title": "blue hat"}, map[string]float64{"price": 9.5}, map[string][]string{"color": {"blue"}})
	require.True(t, fi.Add(2, d))
	require.Equal(t, []docid.DocID{2}, fi.AllIDs())

	fi.Remove(2, d)
	assert.Empty(t, fi.AllIDs())
}

func TestGetIndexResolvesAlias(t *testing.T) {
	fi := newTestIndices()
	idx, err := fi.GetIndex("t")
	require.NoError(t, err)
	assert.NotNil(t, idx)
}

func TestGetIndexUnknownFieldReturnsError(t *testing.T) {
	fi := newTestIndices()
	_, err := fi.GetIndex("does_not_exist")
	assert.Error(t, err)
}

func TestGetTextIndexWrongAccessType(t *testing.T) {
	fi := newTestIndices()
	_, err := fi.GetTextIndex("price")
	assert.Error(t, err)
}

func TestGetSortIndexUnknownFieldReturnsErrorNotPanic(t *testing.T) {
	fi := newTestIndices()
	si, err := fi.GetSortIndex("nonexistent")
	assert.Nil(t, si)
	assert.Error(t, err)
}

func TestGetAllTextIndicesPreservesDeclarationOrder(t *testing.T) {
	s := schema.NewSchema([]schema.FieldInfo{
		{Ident: "b", Type: schema.TEXT},
		{Ident: "a", Type: schema.TEXT},
		{Ident: "n", Type: schema.NUMERIC},
	}, nil)
	fi := New(s, schema.NewDefaultOptions(), nil)
	all := fi.GetAllTextIndices()
	assert.Len(t, all, 2)

	b, err := fi.GetIndex("b")
	require.NoError(t, err)
	a, err := fi.GetIndex("a")
	require.NoError(t, err)
	assert.Same(t, b, all[0])
	assert.Same(t, a, all[1])
}

func TestAllIDsResultWrapsPlainBlock(t *testing.T) {
	fi := newTestIndices()
	d := doc(map[string]string{"title": "x"}, nil, nil)
	fi.Add(1, d)
	fi.Add(2, d)
	res := fi.AllIDsResult()
	assert.Equal(t, 2, res.Len())
}
