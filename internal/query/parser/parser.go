// Package parser implements a hand-written lexer and recursive-descent
// parser for the query grammar: field-scoped term/prefix/suffix/infix
// matches, numeric ranges, tag disjunctions, boolean AND (juxtaposition)
// and OR ("|"), negation, and a trailing KNN clause.
package parser

import (
	"fmt"
	"math"
	"strconv"

	"github.com/fieldsearch/queryengine/internal/query/ast"
)

// Params is the $param substitution table passed alongside the query
// string. A KNN clause's vector parameter is looked up here by name.
type Params map[string]any

type parser struct {
	lex  *lexer
	cur  token
	curSp bool

	have1  bool
	tok1   token
	tok1Sp bool

	params Params
}

// Parse builds an AST from query, resolving any $param references in a
// trailing KNN clause against params. It returns an error for anything the
// grammar rejects; the caller (SearchAlgorithm.Init) treats any error the
// same way: log it and report the query as unparseable.
func Parse(query string, params Params) (ast.Node, error) {
	p := &parser{lex: newLexer(query), params: params}
	p.advance()
	return p.parseQuery()
}

func (p *parser) advance() {
	if p.have1 {
		p.cur, p.curSp = p.tok1, p.tok1Sp
		p.have1 = false
		return
	}
	p.cur, p.curSp = p.lex.next()
}

func (p *parser) peek() (token, bool) {
	if !p.have1 {
		p.tok1, p.tok1Sp = p.lex.next()
		p.have1 = true
	}
	return p.tok1, p.tok1Sp
}

func (p *parser) parseQuery() (ast.Node, error) {
	filter, err := p.parseDisjunction(nil)
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokArrow {
		if p.cur.kind != tokEOF {
			return nil, fmt.Errorf("unexpected trailing input at query end")
		}
		if filter == nil {
			return ast.Empty{}, nil
		}
		return filter, nil
	}
	p.advance() // consume "=>"
	if filter == nil {
		filter = ast.Star{}
	}
	return p.parseKnnClause(filter)
}

// parseDisjunction parses an OR-chain of AND-chains. stop, when non-nil,
// names further token kinds that end each AND-chain; every caller in this
// package passes nil.
func (p *parser) parseDisjunction(stop func(tokenKind) bool) (ast.Node, error) {
	first, err := p.parseConjunction(stop)
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokPipe {
		return first, nil
	}
	children := []ast.Node{first}
	for p.cur.kind == tokPipe {
		p.advance()
		next, err := p.parseConjunction(stop)
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	return &ast.Logical{Op: ast.OR, Children: children}, nil
}

func (p *parser) stopsConjunction(stop func(tokenKind) bool) bool {
	switch p.cur.kind {
	case tokEOF, tokRParen, tokPipe, tokArrow, tokRBrace, tokRBracket:
		return true
	}
	return stop != nil && stop(p.cur.kind)
}

func (p *parser) parseConjunction(stop func(tokenKind) bool) (ast.Node, error) {
	var children []ast.Node
	for !p.stopsConjunction(stop) {
		child, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 0 {
		return nil, nil
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &ast.Logical{Op: ast.AND, Children: children}, nil
}

func (p *parser) parsePrimary() (ast.Node, error) {
	switch p.cur.kind {
	case tokStar:
		return p.parseStarOrAffix(ast.Star{})
	case tokMinus:
		p.advance()
		child, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &ast.Negate{Child: child}, nil
	case tokAt:
		return p.parseField()
	case tokLParen:
		p.advance()
		inner, err := p.parseDisjunction(nil)
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokRParen {
			return nil, fmt.Errorf("expected ')'")
		}
		p.advance()
		if inner == nil {
			return ast.Empty{}, nil
		}
		return inner, nil
	case tokWord:
		return p.parseTerm()
	default:
		return nil, fmt.Errorf("unexpected token in query")
	}
}

// parseStarOrAffix disambiguates a bare "*" (plainNode: Star or StarField)
// from a "*word" suffix/infix form that merely starts with "*".
func (p *parser) parseStarOrAffix(plainNode ast.Node) (ast.Node, error) {
	next, sp := p.peek()
	if !sp && next.kind == tokWord {
		return p.parseTerm()
	}
	p.advance()
	return plainNode, nil
}

// parseTerm consumes a word or "*"-prefixed word and returns the matching
// Affix variant: Regular, Prefix, Suffix, or Infix.
func (p *parser) parseTerm() (ast.Node, error) {
	if p.cur.kind == tokStar {
		p.advance() // leading "*"
		if p.cur.kind != tokWord {
			return nil, fmt.Errorf("expected word after '*'")
		}
		word := p.cur.text
		p.advance()
		if p.cur.kind == tokStar && !p.curSp {
			p.advance()
			return ast.Affix{Kind: ast.Infix, Text: word}, nil
		}
		return ast.Affix{Kind: ast.Suffix, Text: word}, nil
	}
	if p.cur.kind != tokWord {
		return nil, fmt.Errorf("expected term")
	}
	word := p.cur.text
	p.advance()
	if p.cur.kind == tokStar && !p.curSp {
		p.advance()
		return ast.Affix{Kind: ast.Prefix, Text: word}, nil
	}
	return ast.Affix{Kind: ast.Regular, Text: word}, nil
}

func (p *parser) parseField() (ast.Node, error) {
	p.advance() // consume '@'
	if p.cur.kind != tokWord {
		return nil, fmt.Errorf("expected field identifier after '@'")
	}
	ident := p.cur.text
	p.advance()
	if p.cur.kind != tokColon {
		return nil, fmt.Errorf("expected ':' after field identifier")
	}
	p.advance()

	child, err := p.parseFieldExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Field{Ident: ident, Child: child}, nil
}

func (p *parser) parseFieldExpr() (ast.Node, error) {
	switch p.cur.kind {
	case tokStar:
		return p.parseStarOrAffix(ast.StarField{})
	case tokLBracket:
		return p.parseRange()
	case tokLBrace:
		return p.parseTags()
	default:
		return p.parseTerm()
	}
}

func (p *parser) parseRange() (ast.Node, error) {
	p.advance() // consume '['
	lo, err := p.parseSignedNumber()
	if err != nil {
		return nil, err
	}
	hi, err := p.parseSignedNumber()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokRBracket {
		return nil, fmt.Errorf("expected ']' to close range")
	}
	p.advance()
	return ast.Range{Lo: lo, Hi: hi}, nil
}

func (p *parser) parseSignedNumber() (float64, error) {
	neg := false
	if p.cur.kind == tokMinus {
		neg = true
		p.advance()
	}
	if p.cur.kind != tokNumber {
		if p.cur.kind == tokWord && (p.cur.text == "inf" || p.cur.text == "+inf") {
			p.advance()
			if neg {
				return math.Inf(-1), nil
			}
			return math.Inf(1), nil
		}
		return 0, fmt.Errorf("expected number")
	}
	v, err := strconv.ParseFloat(p.cur.text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", p.cur.text, err)
	}
	p.advance()
	if neg {
		v = -v
	}
	return v, nil
}

func (p *parser) parseTags() (ast.Node, error) {
	p.advance() // consume '{'
	var values []ast.Affix
	for {
		affix, err := p.parseAffixValue()
		if err != nil {
			return nil, err
		}
		values = append(values, affix)
		if p.cur.kind == tokPipe {
			p.advance()
			continue
		}
		break
	}
	if p.cur.kind != tokRBrace {
		return nil, fmt.Errorf("expected '}' to close tag set")
	}
	p.advance()
	return &ast.Tags{Values: values}, nil
}

func (p *parser) parseAffixValue() (ast.Affix, error) {
	node, err := p.parseTerm()
	if err != nil {
		return ast.Affix{}, err
	}
	affix, ok := node.(ast.Affix)
	if !ok {
		return ast.Affix{}, fmt.Errorf("expected tag value")
	}
	return affix, nil
}

func (p *parser) parseKnnClause(filter ast.Node) (ast.Node, error) {
	if p.cur.kind != tokLBracket {
		return nil, fmt.Errorf("expected '[' after '=>'")
	}
	p.advance()
	if p.cur.kind != tokKnn {
		return nil, fmt.Errorf("expected KNN keyword")
	}
	p.advance()

	limitF, err := p.parseSignedNumber()
	if err != nil {
		return nil, fmt.Errorf("expected KNN limit: %w", err)
	}
	limit := uint64(limitF)

	if p.cur.kind != tokAt {
		return nil, fmt.Errorf("expected '@field' after KNN limit")
	}
	p.advance()
	if p.cur.kind != tokWord {
		return nil, fmt.Errorf("expected field identifier in KNN clause")
	}
	field := p.cur.text
	p.advance()

	if p.cur.kind != tokParam {
		return nil, fmt.Errorf("expected $param for KNN query vector")
	}
	vec, err := p.resolveVectorParam(p.cur.text)
	if err != nil {
		return nil, err
	}
	p.advance()

	node := &ast.Knn{Limit: limit, Field: field, Vec: vec, Filter: filter}
	for p.cur.kind == tokEfRuntime || p.cur.kind == tokAs {
		switch p.cur.kind {
		case tokEfRuntime:
			p.advance()
			ef, err := p.parseSignedNumber()
			if err != nil {
				return nil, fmt.Errorf("expected EF_RUNTIME value: %w", err)
			}
			node.EfRuntime = uint64(ef)
		case tokAs:
			p.advance()
			if p.cur.kind != tokWord {
				return nil, fmt.Errorf("expected alias after AS")
			}
			node.ScoreAlias = p.cur.text
			p.advance()
		}
	}

	if p.cur.kind != tokRBracket {
		return nil, fmt.Errorf("expected ']' to close KNN clause")
	}
	p.advance()
	if p.cur.kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input after KNN clause")
	}
	return node, nil
}

func (p *parser) resolveVectorParam(name string) (ast.Vector, error) {
	raw, ok := p.params[name]
	if !ok {
		return ast.Vector{}, fmt.Errorf("unknown $param: %s", name)
	}
	switch v := raw.(type) {
	case []float32:
		return ast.Vector{Data: v, Dim: uint32(len(v))}, nil
	case []float64:
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return ast.Vector{Data: out, Dim: uint32(len(out))}, nil
	default:
		return ast.Vector{}, fmt.Errorf("$param %s is not a vector", name)
	}
}
