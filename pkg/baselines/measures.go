// Package baselines ranks communities by classic community-quality measures
// and by AMEN normality.
package baselines

import (
	"fmt"
	"math"

	"github.com/dd0wney/cluso-anomaly/pkg/amen"
	"github.com/dd0wney/cluso-anomaly/pkg/graph"
	"github.com/dd0wney/cluso-anomaly/pkg/ranking"
)

// Measure names.
const (
	AvgDegree   = "avg_degree"
	CutRatio    = "cut_ratio"
	Conductance = "conductance"
	FlakeODF    = "flake_odf"
	AvgODF      = "avg_odf"
	AMEN        = amen.MeasureName
)

// Names lists every measure in output order.
var Names = []string{AvgDegree, CutRatio, Conductance, FlakeODF, AvgODF, AMEN}

// ErrUndefined is returned when a measure has no value for a community.
var ErrUndefined = amen.ErrUndefined

// community is a resolved, de-duplicated member set.
type community struct {
	idx    []int
	inside map[int]bool
}

func resolve(g *graph.Graph, members []string) (community, error) {
	c := community{inside: make(map[int]bool, len(members))}
	for _, id := range members {
		i, ok := g.Lookup(id)
		if !ok {
			return c, graph.VertexError("resolve", id, graph.ErrVertexNotFound)
		}
		if !c.inside[i] {
			c.inside[i] = true
			c.idx = append(c.idx, i)
		}
	}
	if len(c.idx) == 0 {
		return c, ErrUndefined
	}
	return c, nil
}

// internalDegree counts the neighbours of i inside the community.
func (c community) internalDegree(g *graph.Graph, i int) int {
	n := 0
	for _, j := range g.Neighbors(i) {
		if c.inside[j] {
			n++
		}
	}
	return n
}

// cut returns the number of edges leaving the community and its volume.
func (c community) cut(g *graph.Graph) (cut, volume int) {
	for _, i := range c.idx {
		d := g.Degree(i)
		volume += d
		cut += d - c.internalDegree(g, i)
	}
	return cut, volume
}

type measureFunc func(g *graph.Graph, c community) (float64, error)

// measures orders each column so the most anomalous communities come
// first: low internal density or normality, high boundary leakage.
var measures = map[string]struct {
	order ranking.Order
	fn    measureFunc
}{
	AvgDegree:   {ranking.Ascending, avgDegree},
	CutRatio:    {ranking.Descending, cutRatio},
	Conductance: {ranking.Descending, conductance},
	FlakeODF:    {ranking.Descending, flakeODF},
	AvgODF:      {ranking.Descending, avgODF},
	AMEN:        {ranking.Ascending, nil},
}

// Order returns the ranking order of a measure.
func Order(measure string) (ranking.Order, error) {
	m, ok := measures[measure]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMeasure, measure)
	}
	return m.order, nil
}

// avgDegree is 2|E(C)|/|C| over the induced subgraph.
func avgDegree(g *graph.Graph, c community) (float64, error) {
	internal := 0
	for _, i := range c.idx {
		internal += c.internalDegree(g, i)
	}
	// internal counts each induced edge twice
	return float64(internal) / float64(len(c.idx)), nil
}

// cutRatio is the share of possible outgoing pairs that are edges.
func cutRatio(g *graph.Graph, c community) (float64, error) {
	outside := g.Order() - len(c.idx)
	if outside == 0 {
		return math.NaN(), ErrUndefined
	}
	cut, _ := c.cut(g)
	return float64(cut) / float64(len(c.idx)*outside), nil
}

// conductance is cut / min(vol(C), vol(V \ C)).
func conductance(g *graph.Graph, c community) (float64, error) {
	cut, vol := c.cut(g)
	rest := 2*g.Size() - vol
	denom := vol
	if rest < denom {
		denom = rest
	}
	if denom == 0 {
		return math.NaN(), ErrUndefined
	}
	return float64(cut) / float64(denom), nil
}

// flakeODF is the share of members with fewer than half their edges inside.
func flakeODF(g *graph.Graph, c community) (float64, error) {
	odf := 0
	for _, i := range c.idx {
		if float64(c.internalDegree(g, i)) < float64(g.Degree(i))/2 {
			odf++
		}
	}
	return float64(odf) / float64(len(c.idx)), nil
}

// avgODF is the cut size per member.
func avgODF(g *graph.Graph, c community) (float64, error) {
	cut, _ := c.cut(g)
	return float64(cut) / float64(len(c.idx)), nil
}
