package graph

// Unreachable is the hop distance reported for disconnected vertex pairs.
const Unreachable = -1

// HopDistance returns the length of the shortest path between start and end
// using bidirectional BFS, or Unreachable when no path exists.
//
// Each step expands one whole BFS level from the smaller frontier and takes
// the minimum over every meeting found in that level, which keeps the result
// exact rather than returning the first meeting seen.
func HopDistance(g Adjacency, start, end int) int {
	if start == end {
		return 0
	}

	forwardDist := map[int]int{start: 0}
	backwardDist := map[int]int{end: 0}
	forwardFrontier := []int{start}
	backwardFrontier := []int{end}

	for len(forwardFrontier) > 0 && len(backwardFrontier) > 0 {
		var best int
		if len(forwardFrontier) <= len(backwardFrontier) {
			forwardFrontier, best = expandLevel(g, forwardFrontier, forwardDist, backwardDist)
		} else {
			backwardFrontier, best = expandLevel(g, backwardFrontier, backwardDist, forwardDist)
		}
		if best != Unreachable {
			return best
		}
	}

	return Unreachable
}

// expandLevel expands one BFS level and returns the next frontier together
// with the shortest start-end length through this level, if any.
func expandLevel(g Adjacency, frontier []int, dist, otherDist map[int]int) ([]int, int) {
	best := Unreachable
	next := make([]int, 0, len(frontier))

	for _, current := range frontier {
		d := dist[current] + 1
		for _, neighbor := range g.Neighbors(current) {
			// Check if we've met the other search
			if od, found := otherDist[neighbor]; found {
				if total := d + od; best == Unreachable || total < best {
					best = total
				}
			}
			if _, seen := dist[neighbor]; !seen {
				dist[neighbor] = d
				next = append(next, neighbor)
			}
		}
	}

	return next, best
}

// Distances returns the BFS hop distance from start to every reachable
// vertex. Unreached vertices are absent from the map.
func Distances(g Adjacency, start int) map[int]int {
	dist := map[int]int{start: 0}
	queue := []int{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, neighbor := range g.Neighbors(current) {
			if _, seen := dist[neighbor]; !seen {
				dist[neighbor] = dist[current] + 1
				queue = append(queue, neighbor)
			}
		}
	}
	return dist
}
