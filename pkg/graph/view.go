package graph

// ExcludedView is an Adjacency over a Graph with one edge hidden. The
// underlying Graph is never modified, so any number of views over the same
// Graph can be read concurrently.
type ExcludedView struct {
	g    *Graph
	a, b int
}

// Without returns a view of g with the edge (i, j) hidden. When i and j are
// not adjacent the view is identical to g.
func (g *Graph) Without(i, j int) *ExcludedView {
	if !g.HasEdge(i, j) {
		return &ExcludedView{g: g, a: -1, b: -1}
	}
	return &ExcludedView{g: g, a: i, b: j}
}

func (v *ExcludedView) hides(i, j int) bool {
	return (i == v.a && j == v.b) || (i == v.b && j == v.a)
}

// Order returns the number of vertices.
func (v *ExcludedView) Order() int {
	return v.g.Order()
}

// Degree returns the degree of i with the hidden edge discounted.
func (v *ExcludedView) Degree(i int) int {
	d := v.g.Degree(i)
	if v.a >= 0 && (i == v.a || i == v.b) {
		d--
	}
	return d
}

// Neighbors returns the neighbours of i without the hidden edge. Only the two
// endpoints of the hidden edge get a freshly allocated slice.
func (v *ExcludedView) Neighbors(i int) []int {
	nbrs := v.g.Neighbors(i)
	if v.a < 0 || (i != v.a && i != v.b) {
		return nbrs
	}
	other := v.b
	if i == v.b {
		other = v.a
	}
	out := make([]int, 0, len(nbrs)-1)
	for _, j := range nbrs {
		if j != other {
			out = append(out, j)
		}
	}
	return out
}

// HasEdge reports adjacency with the hidden edge removed.
func (v *ExcludedView) HasEdge(i, j int) bool {
	if v.hides(i, j) {
		return false
	}
	return v.g.HasEdge(i, j)
}
