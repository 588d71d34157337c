package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsearch/queryengine/internal/ingest/wal"
	"github.com/fieldsearch/queryengine/internal/query/docid"
	"github.com/fieldsearch/queryengine/internal/query/fieldindex"
	"github.com/fieldsearch/queryengine/internal/query/registry"
	"github.com/fieldsearch/queryengine/internal/schema"
	"github.com/fieldsearch/queryengine/internal/synonyms"
)

func newTestRegistry() *registry.Registry {
	s := schema.NewSchema([]schema.FieldInfo{
		{Ident: "title", Type: schema.TEXT},
	}, nil)
	reg := registry.New()
	reg.Register("default", fieldindex.New(s, schema.NewDefaultOptions(), synonyms.New()))
	return reg
}

func TestIngestAllocatesIDsDensely(t *testing.T) {
	p := New(newTestRegistry(), nil, nil, nil)

	id1, err := p.Ingest(context.Background(), wal.Record{
		IndexName: "default", DocID: "ext-a", Text: map[string]string{"title": "hello"},
	}, nil)
	require.NoError(t, err)

	id2, err := p.Ingest(context.Background(), wal.Record{
		IndexName: "default", DocID: "ext-b", Text: map[string]string{"title": "world"},
	}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}

func TestIngestReusesIDForSameExternalID(t *testing.T) {
	p := New(newTestRegistry(), nil, nil, nil)
	rec := wal.Record{IndexName: "default", DocID: "ext-a", Text: map[string]string{"title": "hello"}}

	id1, err := p.Ingest(context.Background(), rec, nil)
	require.NoError(t, err)
	id2, err := p.Ingest(context.Background(), rec, nil)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestIngestUnknownIndexReturnsError(t *testing.T) {
	p := New(newTestRegistry(), nil, nil, nil)
	_, err := p.Ingest(context.Background(), wal.Record{IndexName: "nonexistent", DocID: "x"}, nil)
	assert.Error(t, err)
}

// A document with no value for any indexed field fails FieldIndices.Add,
// and the pipeline must forget the external-id->DocID mapping it
// speculatively allocated so a later retry of the same external id gets a
// fresh attempt rather than permanently squatting on a dead slot.
func TestIngestRollsBackIDOnAddFailure(t *testing.T) {
	p := New(newTestRegistry(), nil, nil, nil)

	_, err := p.Ingest(context.Background(), wal.Record{IndexName: "default", DocID: "doomed"}, nil)
	require.Error(t, err)

	id, err := p.Ingest(context.Background(), wal.Record{
		IndexName: "default", DocID: "doomed", Text: map[string]string{"title": "now it has a value"},
	}, nil)
	require.NoError(t, err)
	// The failed attempt forgets the external-id mapping but does not
	// rewind the dense ID counter, so the retry gets a fresh, higher ID
	// rather than reusing the dead one.
	assert.Equal(t, docid.DocID(2), id)
}

func TestReplayAppliesWithoutReloggingOrComputingEmbeddings(t *testing.T) {
	reg := newTestRegistry()
	p := New(reg, nil, nil, nil)

	path := t.TempDir() + "/replay.iwal"
	w, err := wal.OpenWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(wal.Record{IndexName: "default", DocID: "a", Text: map[string]string{"title": "hello"}}))
	require.NoError(t, w.Append(wal.Record{IndexName: "default", DocID: "b", Text: map[string]string{"title": "world"}}))
	require.NoError(t, w.Close())

	require.NoError(t, p.Replay(path))

	fi, err := reg.Get("default")
	require.NoError(t, err)
	assert.Len(t, fi.AllIDs(), 2)
}
