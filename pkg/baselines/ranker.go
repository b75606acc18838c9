package baselines

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-anomaly/pkg/amen"
	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
	"github.com/dd0wney/cluso-anomaly/pkg/graph"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/metrics"
	"github.com/dd0wney/cluso-anomaly/pkg/ranking"
)

// ErrUnknownMeasure is returned for a measure name outside Names
var ErrUnknownMeasure = errors.New("unknown measure")

// Ranker scores communities of one graph by the baseline measures.
type Ranker struct {
	g       *graph.Graph
	amen    *amen.Scorer
	workers int
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithWorkers bounds concurrent community scoring; 0 means unlimited.
func WithWorkers(n int) Option {
	return func(r *Ranker) { r.workers = n }
}

// WithLogger sets the ranker logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Ranker) { r.logger = l }
}

// WithMetrics records scoring counters in m.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Ranker) { r.metrics = m }
}

// NewRanker creates a ranker over g, which must have at least one edge.
func NewRanker(g *graph.Graph, opts ...Option) (*Ranker, error) {
	r := &Ranker{g: g}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDefault(r.logger).With(logging.Component("baselines"))
	scorer, err := amen.NewScorer(g, amen.WithLogger(r.logger), amen.WithMetrics(r.metrics))
	if err != nil {
		return nil, err
	}
	r.amen = scorer
	return r, nil
}

// Score computes one measure for a community.
func (r *Ranker) Score(measure string, members []string) (float64, error) {
	m, ok := measures[measure]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMeasure, measure)
	}
	if measure == AMEN {
		return r.amen.Measure(members)
	}
	c, err := resolve(r.g, members)
	if err != nil {
		return math.NaN(), err
	}
	return m.fn(r.g, c)
}

// RankBy ranks communities by one measure. Communities whose score is
// undefined get NaN and rank last.
func (r *Ranker) RankBy(ctx context.Context, communities []bipartite.Community, measure string) (ranking.Column, error) {
	order, err := Order(measure)
	if err != nil {
		return ranking.Column{}, err
	}

	entries := make([]ranking.Entry, len(communities))
	g, ctx := errgroup.WithContext(ctx)
	if r.workers > 0 {
		g.SetLimit(r.workers)
	}
	for i, c := range communities {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			score, err := r.Score(measure, c.Members)
			undefined := errors.Is(err, ErrUndefined)
			if err != nil && !undefined {
				return fmt.Errorf("%s: community %q: %w", measure, c.Name, err)
			}
			if undefined {
				score = math.NaN()
				r.logger.Debug("undefined score", logging.Community(c.Name), logging.String("measure", measure))
			}
			r.metrics.RecordCommunityScored(measure, undefined)
			entries[i] = ranking.Entry{Community: c.Name, Score: score}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ranking.Column{}, err
	}
	return ranking.RankOrdered(measure, entries, order), nil
}

// RankAll ranks communities by every named measure; nil names selects all.
func (r *Ranker) RankAll(ctx context.Context, communities []bipartite.Community, names []string) (*ranking.Table, error) {
	if names == nil {
		names = Names
	}
	table := &ranking.Table{}
	for _, name := range names {
		start := time.Now()
		col, err := r.RankBy(ctx, communities, name)
		r.metrics.RecordStage("baseline_"+name, time.Since(start), err)
		if err != nil {
			return nil, err
		}
		r.logger.Info("communities ranked",
			logging.String("measure", name),
			logging.Count(len(communities)),
			logging.Latency(time.Since(start)))
		table.Add(col)
	}
	return table, nil
}
