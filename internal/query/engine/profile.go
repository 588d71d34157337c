package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/fieldsearch/queryengine/internal/query/ast"
)

// ProfileEvent is one entry of a captured evaluation trace.
type ProfileEvent struct {
	Description string
	Micros      uint64
	Depth       uint32
	ResultSize  uint
}

// AlgorithmProfile is the ordered trace a profiled Search call returns.
type AlgorithmProfile struct {
	Events []ProfileEvent
}

// ProfileBuilder records entry/exit of every evaluated node. Start/Finish
// bracket one node's evaluation; events are appended in post-order as each
// node finishes, then reversed by Take so the root is presented first.
type ProfileBuilder struct {
	depth  uint32
	events []ProfileEvent
}

// Start begins timing a node, returning the start timestamp and the depth
// to pass to the matching Finish call.
func (p *ProfileBuilder) Start() (time.Time, uint32) {
	d := p.depth
	p.depth++
	return time.Now(), d
}

// Finish records node's elapsed time, descriptor, and resultSize at depth,
// then restores the depth counter.
func (p *ProfileBuilder) Finish(start time.Time, depth uint32, node ast.Node, resultSize uint) {
	p.depth--
	p.events = append(p.events, ProfileEvent{
		Description: describe(node),
		Micros:      uint64(time.Since(start).Microseconds()),
		Depth:       depth,
		ResultSize:  resultSize,
	})
}

// Take returns the captured trace, root first.
func (p *ProfileBuilder) Take() AlgorithmProfile {
	out := make([]ProfileEvent, len(p.events))
	for i, e := range p.events {
		out[len(p.events)-1-i] = e
	}
	return AlgorithmProfile{Events: out}
}

// describe formats node's external profile descriptor. These strings are
// part of the contract callers of AlgorithmProfile rely on; don't reword
// them.
func describe(node ast.Node) string {
	switch n := node.(type) {
	case ast.Empty:
		return "Empty{}"
	case ast.Star:
		return "Star{}"
	case ast.StarField:
		return "StarField{}"
	case ast.Affix:
		return fmt.Sprintf("%s{%s}", n.Kind, n.Text)
	case ast.Range:
		return fmt.Sprintf("Range{%v<>%v}", n.Lo, n.Hi)
	case *ast.Negate:
		return "Negate{}"
	case *ast.Logical:
		return fmt.Sprintf("Logical{n=%d,o=%s}", len(n.Children), n.Op)
	case *ast.Field:
		return fmt.Sprintf("Field{%s}", n.Ident)
	case *ast.Tags:
		parts := make([]string, len(n.Values))
		for i, v := range n.Values {
			parts[i] = v.Text
		}
		return fmt.Sprintf("Tags{%s}", strings.Join(parts, ","))
	case *ast.Knn:
		return fmt.Sprintf("KNN{l=%d}", n.Limit)
	default:
		return "Unknown{}"
	}
}
