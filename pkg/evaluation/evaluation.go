// Package evaluation measures how well a ranking column surfaces known
// anomalous communities.
package evaluation

import (
	"errors"
	"math"
	"sort"

	"github.com/dd0wney/cluso-anomaly/pkg/ranking"
)

var (
	// ErrNoPositives is returned when no anomalous community is in the column
	ErrNoPositives = errors.New("no anomalous community in column")
	// ErrInvalidK is returned for a non-positive cutoff
	ErrInvalidK = errors.New("k must be positive")
)

// AveragePrecision returns the average precision of a column with the
// anomalous communities as positives. Scores are negated first, so low
// scores count as anomalous, unless reverse is set. Tied scores share one
// threshold. NaN scores are treated as least anomalous.
func AveragePrecision(col ranking.Column, anomalous []string, reverse bool) (float64, error) {
	positive := set(anomalous)

	type point struct {
		score float64
		label bool
	}
	points := make([]point, len(col.Entries))
	total := 0
	for i, e := range col.Entries {
		s := e.Score
		if !reverse {
			s = -s
		}
		if math.IsNaN(s) {
			s = math.Inf(-1)
		}
		points[i] = point{score: s, label: positive[e.Community]}
		if points[i].label {
			total++
		}
	}
	if total == 0 {
		return 0, ErrNoPositives
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].score > points[j].score })

	ap, tp, fp, prevRecall := 0.0, 0, 0, 0.0
	for i := 0; i < len(points); {
		j := i
		for ; j < len(points) && points[j].score == points[i].score; j++ {
			if points[j].label {
				tp++
			} else {
				fp++
			}
		}
		recall := float64(tp) / float64(total)
		precision := float64(tp) / float64(tp+fp)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
		i = j
	}
	return ap, nil
}

// PrecisionAtK returns the share of anomalous communities among the first k
// entries of the column in its ranked order. A k beyond the column length
// uses the whole column.
func PrecisionAtK(col ranking.Column, anomalous []string, k int) (float64, error) {
	if k <= 0 {
		return 0, ErrInvalidK
	}
	if k > len(col.Entries) {
		k = len(col.Entries)
	}
	if k == 0 {
		return 0, nil
	}
	positive := set(anomalous)
	hits := 0
	for _, e := range col.Entries[:k] {
		if positive[e.Community] {
			hits++
		}
	}
	return float64(hits) / float64(k), nil
}

// Result is the evaluation of one column.
type Result struct {
	Column           string
	AveragePrecision float64
	PrecisionAtK     float64
	K                int
	Reversed         bool
}

// Table evaluates every column of t. highIsAnomalous reports, per column
// name, whether high scores flag anomalies; k defaults to the number of
// anomalous communities when zero.
func Table(t *ranking.Table, anomalous []string, highIsAnomalous func(name string) bool, k int) ([]Result, error) {
	if k <= 0 {
		k = len(anomalous)
	}
	out := make([]Result, 0, len(t.Columns))
	for _, col := range t.Columns {
		reverse := highIsAnomalous != nil && highIsAnomalous(col.Name)
		ap, err := AveragePrecision(col, anomalous, reverse)
		if err != nil {
			return nil, err
		}
		// Precision@k reads from the anomalous end of the column.
		ordered := ranking.RankOrdered(col.Name, col.Entries, ranking.Ascending)
		if reverse {
			ordered = ranking.RankOrdered(col.Name, col.Entries, ranking.Descending)
		}
		pk, err := PrecisionAtK(ordered, anomalous, k)
		if err != nil {
			return nil, err
		}
		out = append(out, Result{
			Column:           col.Name,
			AveragePrecision: ap,
			PrecisionAtK:     pk,
			K:                k,
			Reversed:         reverse,
		})
	}
	return out, nil
}

func set(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
