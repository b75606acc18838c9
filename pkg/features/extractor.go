package features

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-anomaly/pkg/graph"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/metrics"
	"github.com/dd0wney/cluso-anomaly/pkg/parallel"
)

// Compute returns the features of the pair (u, v) on g. When u and v are
// adjacent the edge is hidden first so no feature can observe it; g is
// never modified.
func Compute(g *graph.Graph, u, v int) Vector {
	view := g.Without(u, v)

	nu := view.Neighbors(u)
	nv := view.Neighbors(v)

	friends := 0
	for _, a := range nu {
		for _, b := range nv {
			if view.HasEdge(a, b) {
				friends++
			}
		}
	}

	union := make(map[int]struct{}, len(nu)+len(nv))
	for _, a := range nu {
		union[a] = struct{}{}
	}
	for _, b := range nv {
		union[b] = struct{}{}
	}

	return Vector{
		Vertex1Degree:          len(nu),
		Vertex2Degree:          len(nv),
		PreferentialAttachment: len(nu) * len(nv),
		FriendsMeasure:         friends,
		TotalFriends:           len(union),
		ShortestPath:           graph.HopDistance(view, u, v),
	}
}

// Extractor builds feature tables.
type Extractor struct {
	workers int
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers sets the number of concurrent extraction workers; 0 uses
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(x *Extractor) { x.workers = n }
}

// WithLogger sets the extractor logger.
func WithLogger(l logging.Logger) Option {
	return func(x *Extractor) { x.logger = l }
}

// WithMetrics records extraction metrics in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(x *Extractor) { x.metrics = r }
}

// NewExtractor creates an extractor.
func NewExtractor(opts ...Option) *Extractor {
	x := &Extractor{}
	for _, opt := range opts {
		opt(x)
	}
	x.logger = logging.OrDefault(x.logger).With(logging.Component("features"))
	return x
}

// Extract computes the features of a single edge given by vertex ids.
func (x *Extractor) Extract(g *graph.Graph, e graph.Edge) (Vector, error) {
	u, ok := g.Lookup(e.U)
	if !ok {
		return Vector{}, graph.EdgeError("Extract", e, graph.VertexError("Extract", e.U, graph.ErrVertexNotFound))
	}
	v, ok := g.Lookup(e.V)
	if !ok {
		return Vector{}, graph.EdgeError("Extract", e, graph.VertexError("Extract", e.V, graph.ErrVertexNotFound))
	}
	return Compute(g, u, v), nil
}

// BuildTable extracts features for the positive edges followed by the
// negative edges, preserving input order. Positive rows are labelled
// Present and negative rows Absent. A nil negative slice builds an
// unlabeled inference table.
func (x *Extractor) BuildTable(ctx context.Context, g *graph.Graph, positive, negative []graph.Edge) (*Table, error) {
	table := &Table{
		Labeled: negative != nil,
		Rows:    make([]Row, len(positive)+len(negative)),
	}
	for i, e := range positive {
		table.Rows[i] = Row{Edge: e, Label: Present}
	}
	for i, e := range negative {
		table.Rows[len(positive)+i] = Row{Edge: e, Label: Absent}
	}

	timer := logging.StartTimer(x.logger, "extracting topological features",
		logging.Int("positive", len(positive)),
		logging.Int("negative", len(negative)))

	err := parallel.ForEach(ctx, x.workers, len(table.Rows), func(ctx context.Context, i int) error {
		start := time.Now()
		row := &table.Rows[i]
		vec, err := x.Extract(g, row.Edge)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		row.Features = vec
		x.metrics.RecordFeatureRow(rowLabel(table.Labeled, row.Label), time.Since(start))
		return nil
	})
	if err != nil {
		timer.EndError(err)
		return nil, err
	}
	timer.End(logging.Count(table.Len()))
	return table, nil
}

func rowLabel(labeled bool, label int) string {
	switch {
	case !labeled:
		return metrics.Unlabeled
	case label == Present:
		return metrics.Positive
	default:
		return metrics.Negative
	}
}
