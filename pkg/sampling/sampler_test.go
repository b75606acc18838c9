package sampling

import (
	"bytes"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
	"github.com/dd0wney/cluso-anomaly/pkg/graph"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/metrics"
)

func buildGraph(t *testing.T, pm bipartite.PartitionMap) *graph.Graph {
	t.Helper()
	g, err := bipartite.Build(pm, bipartite.DefaultLabels, nil)
	require.NoError(t, err)
	return g
}

func newTestSampler(seed int64, opts ...Option) *Sampler {
	opts = append([]Option{WithLogger(logging.NewNopLogger())}, opts...)
	return NewSampler(bipartite.DefaultLabels, rand.New(rand.NewSource(seed)), opts...)
}

func sparseMap(communities, members, per int) bipartite.PartitionMap {
	pm := bipartite.PartitionMap{}
	for c := 0; c < communities; c++ {
		ms := make([]string, per)
		for k := range ms {
			ms[k] = "v" + strconv.Itoa((c*per+k)%members)
		}
		pm["c"+strconv.Itoa(c)] = ms
	}
	return pm
}

func TestSamplePositive_All(t *testing.T) {
	g := buildGraph(t, bipartite.PartitionMap{"c1": {"v1", "v2", "v3"}, "c2": {"v4", "v5"}})
	s := newTestSampler(1)

	edges, err := s.SamplePositive(g, []string{"c1", "c2"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []graph.Edge{
		{U: "c1", V: "v1"}, {U: "c1", V: "v2"}, {U: "c1", V: "v3"},
		{U: "c2", V: "v4"}, {U: "c2", V: "v5"},
	}, edges)
}

func TestSamplePositive_Subset(t *testing.T) {
	g := buildGraph(t, sparseMap(10, 40, 8))
	s := newTestSampler(7)

	edges, err := s.SamplePositive(g, g.VerticesTagged("Community"), 25)
	require.NoError(t, err)
	require.Len(t, edges, 25)

	seen := make(map[graph.Edge]bool)
	for _, e := range edges {
		assert.True(t, g.HasEdgeBetween(e.U, e.V), "%v is not an edge", e)
		assert.False(t, seen[e], "duplicate %v", e)
		seen[e] = true
	}
}

func TestSamplePositive_OverRequestWarns(t *testing.T) {
	g := buildGraph(t, bipartite.PartitionMap{"c1": {"v1", "v2"}})
	var buf bytes.Buffer
	s := NewSampler(bipartite.DefaultLabels, rand.New(rand.NewSource(1)),
		WithLogger(logging.NewJSONLogger(&buf, logging.WarnLevel)))

	edges, err := s.SamplePositive(g, []string{"c1"}, 10)
	require.NoError(t, err)
	assert.Len(t, edges, 2)
	assert.Contains(t, buf.String(), "requested more positive edges")
}

func TestSamplePositive_UnknownCommunity(t *testing.T) {
	g := buildGraph(t, bipartite.PartitionMap{"c1": {"v1"}})
	_, err := newTestSampler(1).SamplePositive(g, []string{"missing"}, 0)
	assert.True(t, graph.IsNotFound(err))
}

func TestSampleNegative_DisjointAndDistinct(t *testing.T) {
	g := buildGraph(t, sparseMap(8, 30, 5))
	s := newTestSampler(3)

	edges, err := s.SampleNegative(g, 60, nil)
	require.NoError(t, err)
	require.Len(t, edges, 60)

	seen := make(map[graph.Edge]bool)
	for _, e := range edges {
		assert.False(t, g.HasEdgeBetween(e.U, e.V), "%v exists in graph", e)
		assert.False(t, seen[e], "duplicate %v", e)
		seen[e] = true
		assert.True(t, strings.HasPrefix(e.U, "c"), "U must be a community: %v", e)
		assert.True(t, strings.HasPrefix(e.V, "v"), "V must be a member: %v", e)
	}
}

func TestSampleNegative_Exclude(t *testing.T) {
	g := buildGraph(t, sparseMap(4, 20, 3))
	s := newTestSampler(5)

	edges, err := s.SampleNegative(g, 10, []string{"c0", "c1"})
	require.NoError(t, err)
	require.Len(t, edges, 10)
	for _, e := range edges {
		assert.NotEqual(t, "c0", e.U)
		assert.NotEqual(t, "c1", e.U)
	}
}

func TestSampleNegative_ImpossibleFailsFast(t *testing.T) {
	// Complete bipartite: no non-edges at all.
	g := buildGraph(t, bipartite.PartitionMap{"c1": {"v1", "v2"}, "c2": {"v1", "v2"}})
	reg := metrics.NewRegistry()
	s := newTestSampler(1, WithMetrics(reg))

	edges, err := s.SampleNegative(g, 1, nil)
	require.Error(t, err)
	assert.Empty(t, edges)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 0, exhausted.Capacity)
	assert.True(t, errors.Is(err, ErrSamplingExhausted))
}

func TestSampleNegative_AttemptCapReturnsPartial(t *testing.T) {
	g := buildGraph(t, sparseMap(5, 50, 2))
	s := newTestSampler(9, WithMaxAttempts(3))

	edges, err := s.SampleNegative(g, 30, nil)
	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, len(edges), exhausted.Found)
	assert.LessOrEqual(t, len(edges), 3)
	assert.Equal(t, -1, exhausted.Capacity)
}

func TestSampleNegative_EmptyPool(t *testing.T) {
	g := buildGraph(t, bipartite.PartitionMap{"c1": {}})
	_, err := newTestSampler(1).SampleNegative(g, 1, nil)
	assert.ErrorIs(t, err, ErrEmptyPool)

	edges, err := newTestSampler(1).SampleNegative(g, 0, nil)
	assert.NoError(t, err)
	assert.Empty(t, edges)
}

func TestMaxAttempts(t *testing.T) {
	s := newTestSampler(1)
	assert.Equal(t, MinAttempts, s.MaxAttempts(1))
	assert.Equal(t, 50*DefaultAttemptFactor, s.MaxAttempts(50))

	s = newTestSampler(1, WithAttemptFactor(2))
	assert.Equal(t, 4000, s.MaxAttempts(2000))

	s = newTestSampler(1, WithMaxAttempts(17))
	assert.Equal(t, 17, s.MaxAttempts(5000))
}

func TestSampleTraining_Balanced(t *testing.T) {
	g := buildGraph(t, sparseMap(6, 40, 4))
	s := newTestSampler(11)

	pos, neg, err := s.SampleTraining(g, 0)
	require.NoError(t, err)
	assert.Len(t, pos, g.Size())
	assert.Equal(t, len(pos), len(neg))

	inference, err := s.SampleInference(g, 5)
	require.NoError(t, err)
	assert.Len(t, inference, 5)
}

func TestSampler_SeedDeterminism(t *testing.T) {
	g := buildGraph(t, sparseMap(6, 40, 4))

	a, err := newTestSampler(42).SampleNegative(g, 20, nil)
	require.NoError(t, err)
	b, err := newTestSampler(42).SampleNegative(g, 20, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestProperty_NegativesAreNonEdges(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("negatives never intersect the edge set", prop.ForAll(
		func(communities, members, per int, seed int64) bool {
			pm := sparseMap(communities, members, per)
			g, err := bipartite.Build(pm, bipartite.DefaultLabels, nil)
			if err != nil {
				return false
			}
			s := newTestSampler(seed)
			pos, neg, err := s.SampleTraining(g, 0)
			var exhausted *ExhaustedError
			if err != nil && !errors.As(err, &exhausted) {
				return false
			}
			if err == nil && len(neg) != len(pos) {
				return false
			}
			seen := make(map[graph.Edge]bool)
			for _, e := range neg {
				if g.HasEdgeBetween(e.U, e.V) || seen[e] {
					return false
				}
				seen[e] = true
			}
			return true
		},
		gen.IntRange(1, 8),
		gen.IntRange(1, 30),
		gen.IntRange(1, 6),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
