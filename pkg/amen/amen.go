// Package amen scores how normal a community looks under a degree-preserving
// null model: dense inside and sparse towards its boundary scores high.
package amen

import (
	"context"
	"errors"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
	"github.com/dd0wney/cluso-anomaly/pkg/graph"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/metrics"
)

// MeasureName is the ranking column name of the normality score.
const MeasureName = "unattr_amen"

var (
	// ErrUndefined is returned for a community without members
	ErrUndefined = errors.New("normality undefined for empty community")
	// ErrEmptyGraph is returned when the graph has no edges
	ErrEmptyGraph = errors.New("graph has no edges")
)

// Score is the normality of one community.
type Score struct {
	// Consistency in [0, 1] compares internal edges with the null model
	Consistency float64
	// Separability in [-1, 0] penalises unsurprising boundary pairs
	Separability float64
	// Normality is Consistency + Separability
	Normality float64
}

var undefined = Score{Consistency: math.NaN(), Separability: math.NaN(), Normality: math.NaN()}

// Scorer evaluates communities of one static graph. It only reads the
// graph and is safe for concurrent use.
type Scorer struct {
	g       *graph.Graph
	twoM    float64
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the scorer logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Scorer) { s.logger = l }
}

// WithMetrics records scoring counters in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Scorer) { s.metrics = r }
}

// NewScorer creates a scorer over g.
func NewScorer(g *graph.Graph, opts ...Option) (*Scorer, error) {
	if g.Size() == 0 {
		return nil, ErrEmptyGraph
	}
	s := &Scorer{g: g, twoM: 2 * float64(g.Size())}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With(logging.Component("amen"))
	return s, nil
}

// surp is the expected number of edges between i and j under the
// configuration model.
func (s *Scorer) surp(i, j int) float64 {
	return float64(s.g.Degree(i)) * float64(s.g.Degree(j)) / s.twoM
}

// Normality scores a community given by member ids. Duplicate members are
// counted once. An empty community yields NaN scores with ErrUndefined; an
// unknown member yields graph.ErrVertexNotFound.
func (s *Scorer) Normality(members []string) (Score, error) {
	idx := make([]int, 0, len(members))
	inside := make(map[int]bool, len(members))
	for _, id := range members {
		i, ok := s.g.Lookup(id)
		if !ok {
			return undefined, graph.VertexError("Normality", id, graph.ErrVertexNotFound)
		}
		if !inside[i] {
			inside[i] = true
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return undefined, ErrUndefined
	}

	// Ordered pairs, diagonal included.
	var raw, surpSum, innerSlack float64
	for _, i := range idx {
		for _, j := range idx {
			sp := s.surp(i, j)
			if s.g.HasEdge(i, j) {
				raw++
			}
			raw -= sp
			surpSum += sp
			innerSlack += 1 - math.Min(1, sp)
		}
	}
	maxC := float64(len(idx) * len(idx))
	minC := -surpSum
	consistency := (raw - minC) / (maxC - minC)

	var boundary []int
	seen := make(map[int]bool)
	for _, i := range idx {
		for _, b := range s.g.Neighbors(i) {
			if !inside[b] && !seen[b] {
				seen[b] = true
				boundary = append(boundary, b)
			}
		}
	}

	var sep float64
	for _, i := range idx {
		for _, b := range boundary {
			sep -= 1 - math.Min(1, s.surp(i, b))
		}
	}
	separability := 0.0
	if sep != 0 {
		separability = sep / (innerSlack - sep)
	}

	return Score{
		Consistency:  consistency,
		Separability: separability,
		Normality:    consistency + separability,
	}, nil
}

// Measure returns only the normality, for use as a ranking score function.
func (s *Scorer) Measure(members []string) (float64, error) {
	score, err := s.Normality(members)
	return score.Normality, err
}

// ScoreAll scores communities concurrently on up to workers goroutines
// (0 means unlimited). Empty communities get NaN scores; any other error
// cancels the remaining work.
func (s *Scorer) ScoreAll(ctx context.Context, communities []bipartite.Community, workers int) (map[string]Score, error) {
	out := make(map[string]Score, len(communities))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, c := range communities {
		c := c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			score, err := s.Normality(c.Members)
			undefinedScore := errors.Is(err, ErrUndefined)
			if err != nil && !undefinedScore {
				return err
			}
			if undefinedScore {
				s.logger.Warn("empty community has no normality", logging.Community(c.Name))
			}
			s.metrics.RecordCommunityScored(MeasureName, undefinedScore)
			mu.Lock()
			out[c.Name] = score
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
