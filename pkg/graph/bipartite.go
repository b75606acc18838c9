package graph

import (
	"errors"
	"fmt"
)

// ErrNotBipartite is returned when an edge joins two vertices of one partition.
var ErrNotBipartite = errors.New("edge within a single partition")

// TwoColor checks if the graph can be colored with two colors such that no
// two adjacent vertices share a color.
// Returns (is_bipartite, partition1, partition2).
func TwoColor(g Adjacency) (bool, []int, []int) {
	n := g.Order()

	// Color map: -1 = uncolored, 0 = color A, 1 = color B
	color := make([]int, n)
	for i := range color {
		color[i] = -1
	}

	partition1 := make([]int, 0)
	partition2 := make([]int, 0)

	// BFS coloring for each component
	for start := 0; start < n; start++ {
		if color[start] != -1 {
			continue
		}

		queue := []int{start}
		color[start] = 0
		partition1 = append(partition1, start)

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			nextColor := 1 - color[current]

			for _, neighbor := range g.Neighbors(current) {
				if color[neighbor] == -1 {
					color[neighbor] = nextColor
					queue = append(queue, neighbor)

					if nextColor == 0 {
						partition1 = append(partition1, neighbor)
					} else {
						partition2 = append(partition2, neighbor)
					}
				} else if color[neighbor] == color[current] {
					return false, nil, nil
				}
			}
		}
	}

	return true, partition1, partition2
}

// CheckPartitions verifies that every edge joins a vertex tagged a with a
// vertex tagged b. Untagged endpoints also fail the check.
func CheckPartitions(g *Graph, a, b string) error {
	for i := 0; i < g.Order(); i++ {
		ti := g.Tag(i)
		for _, j := range g.Neighbors(i) {
			if j < i {
				continue
			}
			tj := g.Tag(j)
			if (ti == a && tj == b) || (ti == b && tj == a) {
				continue
			}
			return &Error{
				Op:      "CheckPartitions",
				Entity:  "edge",
				ID:      Edge{U: g.ID(i), V: g.ID(j)}.Key(),
				Cause:   ErrNotBipartite,
				Context: fmt.Sprintf("tags %q/%q", ti, tj),
			}
		}
	}
	return nil
}
