// Package sampling draws positive and negative community/member edges from a
// bipartite graph for link prediction.
package sampling

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
	"github.com/dd0wney/cluso-anomaly/pkg/graph"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/metrics"
)

const (
	// DefaultAttemptFactor multiplies the requested count to bound draws
	DefaultAttemptFactor = 100
	// MinAttempts is the smallest attempt budget of a negative sampling call
	MinAttempts = 1000
)

// Sampler draws edges from bipartite graphs. It holds a *rand.Rand and is
// not safe for concurrent use.
type Sampler struct {
	labels        bipartite.Labels
	rng           *rand.Rand
	attemptFactor int
	maxAttempts   int
	logger        logging.Logger
	metrics       *metrics.Registry
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

// WithMetrics records sampling counters in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Sampler) { s.metrics = r }
}

// WithAttemptFactor changes the per-edge attempt multiplier.
func WithAttemptFactor(f int) Option {
	return func(s *Sampler) {
		if f > 0 {
			s.attemptFactor = f
		}
	}
}

// WithMaxAttempts fixes the attempt budget of every negative sampling call,
// overriding the factor.
func WithMaxAttempts(n int) Option {
	return func(s *Sampler) { s.maxAttempts = n }
}

// NewSampler creates a sampler for graphs labelled with labels. A nil rng
// is seeded from the clock.
func NewSampler(labels bipartite.Labels, rng *rand.Rand, opts ...Option) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Sampler{
		labels:        labels,
		rng:           rng,
		attemptFactor: DefaultAttemptFactor,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With(logging.Component("sampler"))
	return s
}

// MaxAttempts returns the draw budget for collecting count negative edges.
func (s *Sampler) MaxAttempts(count int) int {
	if s.maxAttempts > 0 {
		return s.maxAttempts
	}
	n := count * s.attemptFactor
	if n < MinAttempts {
		n = MinAttempts
	}
	return n
}

// SamplePositive returns the edges incident to the given community vertices,
// oriented (community, member). With maxCount <= 0, or maxCount at or above
// the number of incident edges, every edge is returned in enumeration order;
// asking for more than exist logs a warning. Otherwise a uniform random
// subset of maxCount edges is drawn without replacement.
func (s *Sampler) SamplePositive(g *graph.Graph, communities []string, maxCount int) ([]graph.Edge, error) {
	edges := make([]graph.Edge, 0)
	seen := make(map[int]bool, len(communities))
	for _, c := range communities {
		i, ok := g.Lookup(c)
		if !ok {
			return nil, graph.VertexError("SamplePositive", c, graph.ErrVertexNotFound)
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		for _, j := range g.Neighbors(i) {
			edges = append(edges, graph.Edge{U: c, V: g.ID(j)})
		}
	}

	available := len(edges)
	if maxCount > available {
		s.logger.Warn("requested more positive edges than exist; returning all",
			logging.Int("requested", maxCount),
			logging.Int("available", available))
	}
	if maxCount > 0 && maxCount < available {
		// Partial Fisher-Yates: the first maxCount slots form a uniform sample.
		for k := 0; k < maxCount; k++ {
			r := k + s.rng.Intn(available-k)
			edges[k], edges[r] = edges[r], edges[k]
		}
		edges = edges[:maxCount]
	}

	s.metrics.RecordSampled(metrics.Positive, len(edges))
	return edges, nil
}

type pair struct{ c, m int }

// SampleNegative draws count distinct non-edges (community, member) by
// rejection sampling. Community vertices listed in exclude are removed from
// the community pool. When the pools hold fewer than count non-edges the
// call fails immediately; when the attempt budget runs out the edges found
// so far are returned with an *ExhaustedError.
func (s *Sampler) SampleNegative(g *graph.Graph, count int, exclude []string) ([]graph.Edge, error) {
	if count <= 0 {
		return []graph.Edge{}, nil
	}

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var communities, members []int
	for i := 0; i < g.Order(); i++ {
		switch g.Tag(i) {
		case s.labels.Community:
			if !excluded[g.ID(i)] {
				communities = append(communities, i)
			}
		case s.labels.Member:
			members = append(members, i)
		}
	}
	if len(communities) == 0 || len(members) == 0 {
		return nil, fmt.Errorf("%w: %d communities, %d members", ErrEmptyPool, len(communities), len(members))
	}

	capacity := 0
	for _, c := range communities {
		capacity += len(members) - g.Degree(c)
	}
	if capacity < count {
		s.metrics.RecordNegativeDraws(0, 0, true)
		return []graph.Edge{}, &ExhaustedError{Requested: count, Capacity: capacity}
	}

	budget := s.MaxAttempts(count)
	chosen := make(map[pair]bool, count)
	edges := make([]graph.Edge, 0, count)
	attempts, rejects := 0, 0
	for len(edges) < count && attempts < budget {
		attempts++
		c := communities[s.rng.Intn(len(communities))]
		m := members[s.rng.Intn(len(members))]
		p := pair{c, m}
		if g.HasEdge(c, m) || chosen[p] {
			rejects++
			continue
		}
		chosen[p] = true
		edges = append(edges, graph.Edge{U: g.ID(c), V: g.ID(m)})
	}

	exhausted := len(edges) < count
	s.metrics.RecordNegativeDraws(attempts, rejects, exhausted)
	s.metrics.RecordSampled(metrics.Negative, len(edges))
	if exhausted {
		s.logger.Warn("negative sampling hit attempt cap",
			logging.Int("requested", count),
			logging.Int("found", len(edges)),
			logging.Int("attempts", attempts))
		return edges, &ExhaustedError{Requested: count, Found: len(edges), Attempts: attempts, Capacity: -1}
	}
	s.logger.Debug("negative edges sampled",
		logging.Count(len(edges)),
		logging.Int("attempts", attempts))
	return edges, nil
}

// SampleTraining draws positive edges over every community vertex and an
// equal number of negative edges. On negative sampling failure the positives
// and the partial negatives are returned with the error.
func (s *Sampler) SampleTraining(g *graph.Graph, maxCount int) (positive, negative []graph.Edge, err error) {
	positive, err = s.SamplePositive(g, g.VerticesTagged(s.labels.Community), maxCount)
	if err != nil {
		return nil, nil, err
	}
	negative, err = s.SampleNegative(g, len(positive), nil)
	return positive, negative, err
}

// SampleInference draws positive edges only.
func (s *Sampler) SampleInference(g *graph.Graph, maxCount int) ([]graph.Edge, error) {
	return s.SamplePositive(g, g.VerticesTagged(s.labels.Community), maxCount)
}
