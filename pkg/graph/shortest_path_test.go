package graph

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestHopDistance_Basic(t *testing.T) {
	// a - b - c - d, e isolated
	b := NewBuilder()
	_ = b.AddEdge("a", "b")
	_ = b.AddEdge("b", "c")
	_ = b.AddEdge("c", "d")
	_, _ = b.AddVertex("e", "")
	g := b.Build()

	idx := func(id string) int {
		i, ok := g.Lookup(id)
		if !ok {
			t.Fatalf("missing vertex %s", id)
		}
		return i
	}

	tests := []struct {
		from, to string
		want     int
	}{
		{"a", "a", 0},
		{"a", "b", 1},
		{"a", "d", 3},
		{"d", "a", 3},
		{"a", "e", Unreachable},
	}

	for _, tt := range tests {
		t.Run(tt.from+"-"+tt.to, func(t *testing.T) {
			if got := HopDistance(g, idx(tt.from), idx(tt.to)); got != tt.want {
				t.Errorf("HopDistance(%s, %s) = %d, want %d", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestHopDistance_ExcludedEdge(t *testing.T) {
	// Square a-b-c-d-a: removing a-b forces the long way round
	b := NewBuilder()
	_ = b.AddEdge("a", "b")
	_ = b.AddEdge("b", "c")
	_ = b.AddEdge("c", "d")
	_ = b.AddEdge("d", "a")
	g := b.Build()
	a, _ := g.Lookup("a")
	bIdx, _ := g.Lookup("b")

	if got := HopDistance(g, a, bIdx); got != 1 {
		t.Errorf("Expected 1 on full graph, got %d", got)
	}
	if got := HopDistance(g.Without(a, bIdx), a, bIdx); got != 3 {
		t.Errorf("Expected 3 with a-b hidden, got %d", got)
	}
}

// TestHopDistance_MatchesBFS checks the bidirectional search against a plain
// single-source BFS on random graphs.
func TestHopDistance_MatchesBFS(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("bidirectional BFS equals single-source BFS", prop.ForAll(
		func(pairs []int, n int) bool {
			b := NewBuilder()
			for i := 0; i < n; i++ {
				_, _ = b.AddVertex(fmt.Sprintf("v%d", i), "")
			}
			for k := 0; k+1 < len(pairs); k += 2 {
				u, v := pairs[k]%n, pairs[k+1]%n
				if u != v {
					_ = b.AddEdge(fmt.Sprintf("v%d", u), fmt.Sprintf("v%d", v))
				}
			}
			g := b.Build()

			for s := 0; s < g.Order(); s++ {
				dist := Distances(g, s)
				for e := 0; e < g.Order(); e++ {
					want, ok := dist[e]
					if !ok {
						want = Unreachable
					}
					if HopDistance(g, s, e) != want {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(2, 12),
	))

	properties.TestingRun(t)
}
