package linkpred

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/dd0wney/cluso-anomaly/pkg/features"
	"github.com/dd0wney/cluso-anomaly/pkg/graph"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/metrics"
)

// DefaultValidationSize is the share of training rows held out for the
// validation scores.
const DefaultValidationSize = 0.1

// Predictor fits a classifier on a labelled feature table and maps the rows
// of another table to edge-existence probabilities.
type Predictor struct {
	factory    Factory
	model      Classifier
	valSize    float64
	rng        *rand.Rand
	validation *Scores
	logger     logging.Logger
	metrics    *metrics.Registry
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithValidationSize sets the held-out share; 0 disables validation.
func WithValidationSize(f float64) Option {
	return func(p *Predictor) { p.valSize = f }
}

// WithRand sets the source of the validation split.
func WithRand(rng *rand.Rand) Option {
	return func(p *Predictor) { p.rng = rng }
}

// WithLogger sets the predictor logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Predictor) { p.logger = l }
}

// WithMetrics records fit metrics in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(p *Predictor) { p.metrics = r }
}

// NewPredictor creates a predictor that builds classifiers with factory.
func NewPredictor(factory Factory, opts ...Option) *Predictor {
	p := &Predictor{
		factory: factory,
		valSize: DefaultValidationSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	p.logger = logging.OrDefault(p.logger).With(logging.Component("linkpred"))
	return p
}

// Fit first scores a fresh classifier on a random train/validation split,
// then fits the final classifier on every row. Classifier errors are
// returned wrapped in ErrClassifier without retry.
func (p *Predictor) Fit(ctx context.Context, table *features.Table) error {
	if !table.Labeled {
		return ErrUnlabeled
	}
	X, y := table.Matrix(), table.Labels()

	p.validation = nil
	if nVal := int(float64(len(X)) * p.valSize); nVal > 0 && nVal < len(X) {
		perm := p.rng.Perm(len(X))
		trainX, trainY := subset(X, y, perm[nVal:])
		valX, valY := subset(X, y, perm[:nVal])

		probe := p.factory()
		if err := probe.Fit(ctx, trainX, trainY); err != nil {
			return fmt.Errorf("%w: validation fit: %w", ErrClassifier, err)
		}
		probs, err := predict(probe, valX)
		if err != nil {
			return fmt.Errorf("validation predict: %w", err)
		}
		scores := Evaluate(valY, probs)
		p.validation = &scores
		p.metrics.SetValidationScores(scores.Map())
		fields := []logging.Field{
			logging.Int("rows", nVal),
			logging.Float64("precision", scores.Precision),
			logging.Float64("accuracy", scores.Accuracy),
			logging.Float64("f1", scores.F1),
		}
		if scores.HasAUC {
			fields = append(fields, logging.Float64("auc", scores.AUC))
		}
		p.logger.Info("validation scores", fields...)
	}

	start := time.Now()
	model := p.factory()
	err := model.Fit(ctx, X, y)
	p.metrics.RecordClassifierFit(time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClassifier, err)
	}
	p.model = model
	p.logger.Debug("classifier fitted", logging.Count(len(X)), logging.Latency(time.Since(start)))
	return nil
}

// ValidationScores returns the held-out scores of the last Fit.
func (p *Predictor) ValidationScores() (Scores, bool) {
	if p.validation == nil {
		return Scores{}, false
	}
	return *p.validation, true
}

// Probabilities maps every row of table to its predicted edge-existence
// probability, keyed by the row edge.
func (p *Predictor) Probabilities(table *features.Table) (map[graph.Edge]float64, error) {
	if p.model == nil {
		return nil, ErrNotFitted
	}
	if table.Len() == 0 {
		return map[graph.Edge]float64{}, nil
	}
	probs, err := predict(p.model, table.Matrix())
	if err != nil {
		return nil, err
	}
	out := make(map[graph.Edge]float64, len(probs))
	for i, row := range table.Rows {
		out[row.Edge] = probs[i]
	}
	return out, nil
}

// Evaluate scores the fitted classifier on a labelled table.
func (p *Predictor) Evaluate(table *features.Table) (Scores, error) {
	if !table.Labeled {
		return Scores{}, ErrUnlabeled
	}
	if p.model == nil {
		return Scores{}, ErrNotFitted
	}
	probs, err := predict(p.model, table.Matrix())
	if err != nil {
		return Scores{}, err
	}
	return Evaluate(table.Labels(), probs), nil
}

// predict runs c on X and requires one probability per row.
func predict(c Classifier, X [][]float64) ([]float64, error) {
	probs, err := c.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifier, err)
	}
	if len(probs) != len(X) {
		return nil, fmt.Errorf("%w: %d probabilities for %d rows", ErrClassifier, len(probs), len(X))
	}
	return probs, nil
}

func subset(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for k, i := range idx {
		xs[k], ys[k] = X[i], y[i]
	}
	return xs, ys
}
