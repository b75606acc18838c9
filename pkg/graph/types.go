package graph

import (
	"fmt"
	"strings"
)

// Edge is an unordered vertex pair. For bipartite graphs U is the
// community-side vertex and V the member-side vertex.
type Edge struct {
	U string
	V string
}

// KeySeparator joins the endpoints in an edge key. U must not contain it
// for ParseEdgeKey to recover the edge.
const KeySeparator = ", "

// Key returns the textual edge identifier "(U, V)".
func (e Edge) Key() string {
	return "(" + e.U + KeySeparator + e.V + ")"
}

// String implements fmt.Stringer.
func (e Edge) String() string {
	return e.Key()
}

// Reversed returns the edge with its endpoints swapped.
func (e Edge) Reversed() Edge {
	return Edge{U: e.V, V: e.U}
}

// ParseEdgeKey parses a key produced by Edge.Key. Everything after the first
// ", " belongs to V, so member ids may themselves contain commas.
func ParseEdgeKey(key string) (Edge, error) {
	if len(key) < 2 || key[0] != '(' || key[len(key)-1] != ')' {
		return Edge{}, fmt.Errorf("%w: %q", ErrMalformedEdge, key)
	}
	u, v, ok := strings.Cut(key[1:len(key)-1], KeySeparator)
	if !ok || u == "" || v == "" {
		return Edge{}, fmt.Errorf("%w: %q", ErrMalformedEdge, key)
	}
	return Edge{U: u, V: v}, nil
}

// Statistics summarises a graph.
type Statistics struct {
	VertexCount int
	EdgeCount   int
	TagCounts   map[string]int // vertices per partition tag; untagged under ""
}
