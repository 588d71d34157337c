package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsearch/queryengine/internal/query/ast"
)

func TestParseSingleTerm(t *testing.T) {
	n, err := Parse("hello", nil)
	require.NoError(t, err)
	assert.Equal(t, ast.Affix{Kind: ast.Regular, Text: "hello"}, n)
}

func TestParseImplicitAnd(t *testing.T) {
	n, err := Parse("hello world", nil)
	require.NoError(t, err)
	logical, ok := n.(*ast.Logical)
	require.True(t, ok)
	assert.Equal(t, ast.AND, logical.Op)
	assert.Len(t, logical.Children, 2)
}

func TestParseOr(t *testing.T) {
	n, err := Parse("hello|world", nil)
	require.NoError(t, err)
	logical, ok := n.(*ast.Logical)
	require.True(t, ok)
	assert.Equal(t, ast.OR, logical.Op)
}

func TestParseNegation(t *testing.T) {
	n, err := Parse("-hello", nil)
	require.NoError(t, err)
	neg, ok := n.(*ast.Negate)
	require.True(t, ok)
	assert.Equal(t, ast.Affix{Kind: ast.Regular, Text: "hello"}, neg.Child)
}

func TestParseFieldScopedTerm(t *testing.T) {
	n, err := Parse("@title:hello", nil)
	require.NoError(t, err)
	field, ok := n.(*ast.Field)
	require.True(t, ok)
	assert.Equal(t, "title", field.Ident)
	assert.Equal(t, ast.Affix{Kind: ast.Regular, Text: "hello"}, field.Child)
}

func TestParsePrefixSuffixInfix(t *testing.T) {
	cases := []struct {
		query string
		kind  ast.AffixKind
		text  string
	}{
		{"hel*", ast.Prefix, "hel"},
		{"*llo", ast.Suffix, "llo"},
		{"*ell*", ast.Infix, "ell"},
	}
	for _, c := range cases {
		n, err := Parse(c.query, nil)
		require.NoError(t, err, c.query)
		affix, ok := n.(ast.Affix)
		require.True(t, ok, c.query)
		assert.Equal(t, c.kind, affix.Kind, c.query)
		assert.Equal(t, c.text, affix.Text, c.query)
	}
}

func TestParseNumericRange(t *testing.T) {
	n, err := Parse("@price:[15 35]", nil)
	require.NoError(t, err)
	field := n.(*ast.Field)
	r := field.Child.(ast.Range)
	assert.Equal(t, 15.0, r.Lo)
	assert.Equal(t, 35.0, r.Hi)
}

func TestParseNegativeAndInfiniteRangeBounds(t *testing.T) {
	n, err := Parse("@price:[-10 +inf]", nil)
	require.NoError(t, err)
	r := n.(*ast.Field).Child.(ast.Range)
	assert.Equal(t, -10.0, r.Lo)
	assert.True(t, r.Hi > 1e300)
}

func TestParseTagDisjunction(t *testing.T) {
	n, err := Parse("@tags:{red|blue}", nil)
	require.NoError(t, err)
	field := n.(*ast.Field)
	tags := field.Child.(*ast.Tags)
	require.Len(t, tags.Values, 2)
	assert.Equal(t, "red", tags.Values[0].Text)
	assert.Equal(t, "blue", tags.Values[1].Text)
}

func TestParseStarMatchesEverything(t *testing.T) {
	n, err := Parse("*", nil)
	require.NoError(t, err)
	assert.Equal(t, ast.Star{}, n)
}

func TestParseStarFieldInsideFieldScope(t *testing.T) {
	n, err := Parse("@title:*", nil)
	require.NoError(t, err)
	field := n.(*ast.Field)
	assert.Equal(t, ast.StarField{}, field.Child)
}

func TestParseKnnClause(t *testing.T) {
	params := Params{"q": []float32{1, 0, 0}}
	n, err := Parse("*=>[KNN 2 @emb $q AS my_score]", params)
	require.NoError(t, err)
	knn := n.(*ast.Knn)
	assert.Equal(t, uint64(2), knn.Limit)
	assert.Equal(t, "emb", knn.Field)
	assert.Equal(t, "my_score", knn.ScoreAlias)
	assert.Equal(t, []float32{1, 0, 0}, knn.Vec.Data)
	assert.Equal(t, ast.Star{}, knn.Filter)
}

func TestParseKnnWithFilterAndEfRuntime(t *testing.T) {
	params := Params{"q": []float32{1, 0, 0}}
	n, err := Parse("@title:hello=>[KNN 5 @emb $q EF_RUNTIME 100]", params)
	require.NoError(t, err)
	knn := n.(*ast.Knn)
	assert.Equal(t, uint64(100), knn.EfRuntime)
	assert.Equal(t, &ast.Field{Ident: "title", Child: ast.Affix{Kind: ast.Regular, Text: "hello"}}, knn.Filter)
}

func TestParseKnnUnknownParamIsError(t *testing.T) {
	_, err := Parse("*=>[KNN 2 @emb $missing]", nil)
	assert.Error(t, err)
}

func TestParseEmptyQueryYieldsEmptyNode(t *testing.T) {
	n, err := Parse("", nil)
	require.NoError(t, err)
	assert.True(t, ast.IsEmpty(n))
}

func TestParseUnbalancedParenIsError(t *testing.T) {
	_, err := Parse("(hello", nil)
	assert.Error(t, err)
}

func TestParseGrouping(t *testing.T) {
	n, err := Parse("(hello|world) foo", nil)
	require.NoError(t, err)
	logical, ok := n.(*ast.Logical)
	require.True(t, ok)
	assert.Equal(t, ast.AND, logical.Op)
	require.Len(t, logical.Children, 2)
	inner, ok := logical.Children[0].(*ast.Logical)
	require.True(t, ok)
	assert.Equal(t, ast.OR, inner.Op)
}
