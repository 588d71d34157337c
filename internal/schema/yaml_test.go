package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchemaYAML = `
fields:
  - ident: title
    type: TEXT
    sortable: true
  - ident: price
    type: NUMERIC
    sortable: true
  - ident: tags
    type: TAG
  - ident: emb
    type: VECTOR
    vector:
      dim: 3
      similarity: COSINE
  - ident: internal_note
    type: TEXT
    noIndex: true
aliases:
  t: title
`

func writeSchema(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadYAMLBuildsSchema(t *testing.T) {
	path := writeSchema(t, testSchemaYAML)
	s, err := LoadYAML(path)
	require.NoError(t, err)

	fields := s.Fields()
	assert.Len(t, fields, 5)

	title, ok := s.Field("title")
	require.True(t, ok)
	assert.Equal(t, TEXT, title.Type)
	assert.True(t, title.Flags.Has(SORTABLE))

	note, ok := s.Field("internal_note")
	require.True(t, ok)
	assert.True(t, note.Flags.Has(NOINDEX))

	assert.Equal(t, "title", s.LookupAlias("t"))
}

func TestLoadYAMLVectorField(t *testing.T) {
	path := writeSchema(t, testSchemaYAML)
	s, err := LoadYAML(path)
	require.NoError(t, err)

	emb, ok := s.Field("emb")
	require.True(t, ok)
	require.NotNil(t, emb.SpecialParams.Vector)
	assert.EqualValues(t, 3, emb.SpecialParams.Vector.Dim)
	assert.Equal(t, Cosine, emb.SpecialParams.Vector.Similarity)
}

func TestLoadYAMLVectorFieldMissingParamsIsError(t *testing.T) {
	path := writeSchema(t, `
fields:
  - ident: emb
    type: VECTOR
`)
	_, err := LoadYAML(path)
	assert.Error(t, err)
}

func TestLoadYAMLUnknownFieldTypeIsError(t *testing.T) {
	path := writeSchema(t, `
fields:
  - ident: x
    type: BOGUS
`)
	_, err := LoadYAML(path)
	assert.Error(t, err)
}

func TestLoadYAMLMissingFileIsError(t *testing.T) {
	_, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
