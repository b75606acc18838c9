// Package metafeatures aggregates per-edge existence probabilities into
// per-community normality scores.
package metafeatures

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/dd0wney/cluso-anomaly/pkg/graph"
)

var (
	// ErrInvalidProbability is returned for probabilities outside [0, 1] or NaN
	ErrInvalidProbability = errors.New("probability outside [0, 1]")
	// ErrInvalidThreshold is returned for thresholds outside [0, 1]
	ErrInvalidThreshold = errors.New("threshold outside [0, 1]")
)

// Score column names. Each names a ranking column; the ranking header is
// derived by replacing the "__score" suffix.
const (
	ProbMean    = "normality_prob_mean__score"
	ProbStd     = "normality_prob_std__score"
	ProbMedian  = "normality_prob_median__score"
	LabelMean   = "predicted_label_mean__score"
	LabelStd    = "predicted_label_std__score"
	WeightedSum = "weighted_sum__score"
)

// ColumnNames lists the score columns in output order.
var ColumnNames = []string{ProbMean, ProbStd, ProbMedian, LabelMean, LabelStd, WeightedSum}

// Probabilities maps a (community, member) edge to its existence probability.
type Probabilities map[graph.Edge]float64

// Config holds the binarisation threshold and the weights of the weighted
// sum, applied to (mean, std, median, label mean, label std) in that order.
type Config struct {
	Threshold float64    `yaml:"threshold" json:"threshold" validate:"gte=0,lte=1"`
	Weights   [5]float64 `yaml:"weights" json:"weights"`
}

// DefaultConfig weighs the five scores uniformly and binarises at 0.5.
func DefaultConfig() Config {
	return Config{
		Threshold: 0.5,
		Weights:   [5]float64{0.2, 0.2, 0.2, 0.2, 0.2},
	}
}

// RedditWeights is a weight vector fitted on the Reddit experiments.
var RedditWeights = [5]float64{0.15183381, -0.03859362, 0.00116014, 0.14657687, -0.0609772}

// Record holds the six scores of one community.
type Record struct {
	ProbMean    float64
	ProbStd     float64
	ProbMedian  float64
	LabelMean   float64
	LabelStd    float64
	WeightedSum float64
	// Edges is the number of incident probabilities aggregated
	Edges int
}

// Scores returns the record keyed by column name.
func (r Record) Scores() map[string]float64 {
	return map[string]float64{
		ProbMean:    r.ProbMean,
		ProbStd:     r.ProbStd,
		ProbMedian:  r.ProbMedian,
		LabelMean:   r.LabelMean,
		LabelStd:    r.LabelStd,
		WeightedSum: r.WeightedSum,
	}
}

// Aggregate computes a Record for every community that appears as the U
// endpoint of a key in probs. Incidence comes only from the keys of probs.
// A community with a single edge has both std scores equal to 1.
func Aggregate(probs Probabilities, cfg Config) (map[string]Record, error) {
	if math.IsNaN(cfg.Threshold) || cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, cfg.Threshold)
	}

	incident := make(map[string][]float64)
	for e, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: %v for %s", ErrInvalidProbability, p, e.Key())
		}
		incident[e.U] = append(incident[e.U], p)
	}

	out := make(map[string]Record, len(incident))
	for community, p := range incident {
		out[community] = aggregate(p, cfg)
	}
	return out, nil
}

func aggregate(p []float64, cfg Config) Record {
	// Map iteration order must not leak into float sums.
	sort.Float64s(p)

	labels := make([]float64, len(p))
	for i, v := range p {
		if v >= cfg.Threshold {
			labels[i] = 1
		}
	}

	mean, std := popMeanStd(p)
	labelMean, labelStd := popMeanStd(labels)

	r := Record{
		ProbMean:   mean,
		ProbStd:    1 - std,
		ProbMedian: median(p),
		LabelMean:  labelMean,
		LabelStd:   1 - labelStd,
		Edges:      len(p),
	}
	parts := [5]float64{r.ProbMean, r.ProbStd, r.ProbMedian, r.LabelMean, r.LabelStd}
	for i, w := range cfg.Weights {
		r.WeightedSum += w * parts[i]
	}
	return r
}

// popMeanStd returns the mean and population standard deviation of sorted x.
func popMeanStd(x []float64) (float64, float64) {
	if x[0] == x[len(x)-1] {
		// The float mean of equal values need not reproduce them, so the
		// zero spread is set exactly.
		return x[0], 0
	}
	mean, variance := stat.PopMeanVariance(x, nil)
	return mean, math.Sqrt(variance)
}

// median of sorted x; the midpoint of the central pair for even lengths.
func median(x []float64) float64 {
	n := len(x)
	if n%2 == 1 {
		return x[n/2]
	}
	return (x[n/2-1] + x[n/2]) / 2
}

// Columns pivots records into one community -> score map per column.
func Columns(records map[string]Record) map[string]map[string]float64 {
	cols := make(map[string]map[string]float64, len(ColumnNames))
	for _, name := range ColumnNames {
		cols[name] = make(map[string]float64, len(records))
	}
	for community, r := range records {
		for name, v := range r.Scores() {
			cols[name][community] = v
		}
	}
	return cols
}
