package graph

// Adjacency is the read-only view every algorithm in this module works on.
// Vertices are dense indices in [0, Order()).
type Adjacency interface {
	Order() int
	Degree(i int) int
	Neighbors(i int) []int
	HasEdge(i, j int) bool
}

// Graph is an immutable undirected simple graph with string vertex ids.
// Ids are interned to dense indices in insertion order. Degree, neighbour and
// edge lookups are O(1); Neighbors returns the shared backing slice, which
// callers must not modify.
type Graph struct {
	ids   []string
	index map[string]int
	tags  []string
	adj   [][]int
	edges map[uint64]struct{}
}

func pairKey(i, j int) uint64 {
	if i > j {
		i, j = j, i
	}
	return uint64(uint32(i))<<32 | uint64(uint32(j))
}

// Order returns the number of vertices.
func (g *Graph) Order() int {
	return len(g.ids)
}

// Size returns the number of edges.
func (g *Graph) Size() int {
	return len(g.edges)
}

// Lookup returns the index of a vertex id.
func (g *Graph) Lookup(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// ID returns the vertex id at index i.
func (g *Graph) ID(i int) string {
	return g.ids[i]
}

// Tag returns the partition tag of vertex i ("" when untagged).
func (g *Graph) Tag(i int) string {
	return g.tags[i]
}

// Degree returns the degree of vertex i.
func (g *Graph) Degree(i int) int {
	return len(g.adj[i])
}

// Neighbors returns the neighbours of vertex i in insertion order.
func (g *Graph) Neighbors(i int) []int {
	return g.adj[i]
}

// HasEdge reports whether i and j are adjacent.
func (g *Graph) HasEdge(i, j int) bool {
	_, ok := g.edges[pairKey(i, j)]
	return ok
}

// Contains reports whether a vertex id is present.
func (g *Graph) Contains(id string) bool {
	_, ok := g.index[id]
	return ok
}

// DegreeOf returns the degree of a vertex by id.
func (g *Graph) DegreeOf(id string) (int, error) {
	i, ok := g.index[id]
	if !ok {
		return 0, VertexError("Degree", id, ErrVertexNotFound)
	}
	return len(g.adj[i]), nil
}

// HasEdgeBetween reports whether the two ids are adjacent. Unknown ids are
// never adjacent.
func (g *Graph) HasEdgeBetween(u, v string) bool {
	i, ok := g.index[u]
	if !ok {
		return false
	}
	j, ok := g.index[v]
	if !ok {
		return false
	}
	return g.HasEdge(i, j)
}

// Vertices returns all vertex ids in insertion order.
func (g *Graph) Vertices() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// VerticesTagged returns the ids carrying the given tag, in insertion order.
func (g *Graph) VerticesTagged(tag string) []string {
	out := make([]string, 0)
	for i, t := range g.tags {
		if t == tag {
			out = append(out, g.ids[i])
		}
	}
	return out
}

// Edges returns every edge once, ordered by the lower endpoint index and then
// by neighbour order. U is the endpoint that was inserted first.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for i, nbrs := range g.adj {
		for _, j := range nbrs {
			if i < j {
				out = append(out, Edge{U: g.ids[i], V: g.ids[j]})
			}
		}
	}
	return out
}

// DegreeSequence returns the degree of every vertex in index order.
func (g *Graph) DegreeSequence() []int {
	out := make([]int, len(g.adj))
	for i, nbrs := range g.adj {
		out[i] = len(nbrs)
	}
	return out
}

// GetStatistics returns vertex, edge and per-tag counts.
func (g *Graph) GetStatistics() Statistics {
	counts := make(map[string]int)
	for _, t := range g.tags {
		counts[t]++
	}
	return Statistics{
		VertexCount: len(g.ids),
		EdgeCount:   len(g.edges),
		TagCounts:   counts,
	}
}

// Builder accumulates vertices and edges and produces an immutable Graph.
// A Builder is single-use state; Build copies everything it hands out.
type Builder struct {
	ids   []string
	index map[string]int
	tags  []string
	adj   [][]int
	edges map[uint64]struct{}
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		index: make(map[string]int),
		edges: make(map[uint64]struct{}),
	}
}

// AddVertex adds a vertex (idempotent) and returns its index. A vertex keeps
// the first non-empty tag it is given; a conflicting tag is an error.
func (b *Builder) AddVertex(id, tag string) (int, error) {
	if id == "" {
		return 0, VertexError("AddVertex", id, ErrEmptyID)
	}
	if i, ok := b.index[id]; ok {
		switch {
		case tag == "" || b.tags[i] == tag:
		case b.tags[i] == "":
			b.tags[i] = tag
		default:
			return 0, &Error{Op: "AddVertex", Entity: "vertex", ID: id, Cause: ErrTagConflict,
				Context: b.tags[i] + " vs " + tag}
		}
		return i, nil
	}
	i := len(b.ids)
	b.ids = append(b.ids, id)
	b.tags = append(b.tags, tag)
	b.adj = append(b.adj, nil)
	b.index[id] = i
	return i, nil
}

// AddEdge adds an undirected edge, creating untagged endpoints as needed.
// Duplicate edges are ignored.
func (b *Builder) AddEdge(u, v string) error {
	if u == v {
		return EdgeError("AddEdge", Edge{U: u, V: v}, ErrSelfLoop)
	}
	i, err := b.AddVertex(u, "")
	if err != nil {
		return err
	}
	j, err := b.AddVertex(v, "")
	if err != nil {
		return err
	}
	key := pairKey(i, j)
	if _, dup := b.edges[key]; dup {
		return nil
	}
	b.edges[key] = struct{}{}
	b.adj[i] = append(b.adj[i], j)
	b.adj[j] = append(b.adj[j], i)
	return nil
}

// Build returns an immutable Graph snapshot of the builder state.
func (b *Builder) Build() *Graph {
	g := &Graph{
		ids:   make([]string, len(b.ids)),
		index: make(map[string]int, len(b.index)),
		tags:  make([]string, len(b.tags)),
		adj:   make([][]int, len(b.adj)),
		edges: make(map[uint64]struct{}, len(b.edges)),
	}
	copy(g.ids, b.ids)
	copy(g.tags, b.tags)
	for id, i := range b.index {
		g.index[id] = i
	}
	for i, nbrs := range b.adj {
		g.adj[i] = append(make([]int, 0, len(nbrs)), nbrs...)
	}
	for k := range b.edges {
		g.edges[k] = struct{}{}
	}
	return g
}
