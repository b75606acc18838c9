package linkpred

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// DecisionThreshold turns probabilities into predicted labels.
const DecisionThreshold = 0.5

// Scores summarises a classifier on labelled rows.
type Scores struct {
	Precision float64
	Accuracy  float64
	F1        float64
	// AUC is the ROC area over the predicted probabilities; HasAUC is false
	// when only one class is present.
	AUC    float64
	HasAUC bool

	TN, FP, FN, TP int
}

// Map returns the scores keyed by name, for logs and metrics.
func (s Scores) Map() map[string]float64 {
	m := map[string]float64{
		"precision": s.Precision,
		"accuracy":  s.Accuracy,
		"f1":        s.F1,
	}
	if s.HasAUC {
		m["auc"] = s.AUC
	}
	return m
}

// Evaluate scores probabilities against true labels.
func Evaluate(y []int, probs []float64) Scores {
	var s Scores
	for i, label := range y {
		predicted := probs[i] >= DecisionThreshold
		switch {
		case label == 1 && predicted:
			s.TP++
		case label == 1:
			s.FN++
		case predicted:
			s.FP++
		default:
			s.TN++
		}
	}

	if n := len(y); n > 0 {
		s.Accuracy = float64(s.TP+s.TN) / float64(n)
	}
	if s.TP+s.FP > 0 {
		s.Precision = float64(s.TP) / float64(s.TP+s.FP)
	}
	recall := 0.0
	if s.TP+s.FN > 0 {
		recall = float64(s.TP) / float64(s.TP+s.FN)
	}
	if s.Precision+recall > 0 {
		s.F1 = 2 * s.Precision * recall / (s.Precision + recall)
	}

	positives := s.TP + s.FN
	if positives > 0 && positives < len(y) {
		s.AUC = rocAUC(y, probs)
		s.HasAUC = true
	}
	return s
}

func rocAUC(y []int, probs []float64) float64 {
	sorted := append([]float64(nil), probs...)
	inds := make([]int, len(sorted))
	floats.Argsort(sorted, inds)

	classes := make([]bool, len(inds))
	for k, i := range inds {
		classes[k] = y[i] == 1
	}
	tpr, fpr, _ := stat.ROC(nil, sorted, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}
