// Package features computes topological features of community/member edges
// and stores them in tables that can be checkpointed as CSV.
package features

import (
	"github.com/dd0wney/cluso-anomaly/pkg/graph"
)

// Feature column names, in table order.
const (
	Vertex1Degree          = "vertex_1_degree"
	Vertex2Degree          = "vertex_2_degree"
	PreferentialAttachment = "preferential_attachment_score"
	FriendsMeasure         = "friends_measure"
	TotalFriends           = "total_friends"
	ShortestPath           = "shortest_path"

	// EdgeColumn keys each row by its "(u, v)" edge
	EdgeColumn = "edge"
	// LabelColumn holds edge existence on training tables
	LabelColumn = "edge_exist"
)

// Names lists the feature columns in table order.
var Names = []string{
	Vertex1Degree,
	Vertex2Degree,
	PreferentialAttachment,
	FriendsMeasure,
	TotalFriends,
	ShortestPath,
}

// Vector holds the six topological features of one edge.
type Vector struct {
	Vertex1Degree          int
	Vertex2Degree          int
	PreferentialAttachment int
	FriendsMeasure         int
	TotalFriends           int
	// ShortestPath is graph.Unreachable when the endpoints are disconnected
	ShortestPath int
}

// Values returns the features in Names order.
func (v Vector) Values() []float64 {
	return []float64{
		float64(v.Vertex1Degree),
		float64(v.Vertex2Degree),
		float64(v.PreferentialAttachment),
		float64(v.FriendsMeasure),
		float64(v.TotalFriends),
		float64(v.ShortestPath),
	}
}

func (v Vector) ints() []int {
	return []int{
		v.Vertex1Degree,
		v.Vertex2Degree,
		v.PreferentialAttachment,
		v.FriendsMeasure,
		v.TotalFriends,
		v.ShortestPath,
	}
}

func vectorFromInts(x []int) Vector {
	return Vector{
		Vertex1Degree:          x[0],
		Vertex2Degree:          x[1],
		PreferentialAttachment: x[2],
		FriendsMeasure:         x[3],
		TotalFriends:           x[4],
		ShortestPath:           x[5],
	}
}

// Label values of training rows.
const (
	Absent  = 0
	Present = 1
)

// Row is one feature table row.
type Row struct {
	Edge     graph.Edge
	Features Vector
	// Label is Present or Absent; meaningless on unlabeled tables
	Label int
}

// Table is an ordered set of feature rows.
type Table struct {
	Labeled bool
	Rows    []Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Matrix returns the feature values row by row.
func (t *Table) Matrix() [][]float64 {
	out := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Features.Values()
	}
	return out
}

// Labels returns the row labels.
func (t *Table) Labels() []int {
	out := make([]int, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Label
	}
	return out
}

// Edges returns the row edges.
func (t *Table) Edges() []graph.Edge {
	out := make([]graph.Edge, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Edge
	}
	return out
}
