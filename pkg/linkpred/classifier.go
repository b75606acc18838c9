// Package linkpred fits edge-existence classifiers on topological feature
// tables and turns their output into per-edge probabilities.
package linkpred

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrClassifier wraps every failure reported by a classifier
	ErrClassifier = errors.New("classifier failure")
	// ErrNotFitted is returned when predicting before a successful Fit
	ErrNotFitted = errors.New("classifier not fitted")
	// ErrMalformedInput is returned for ragged or mismatched matrices
	ErrMalformedInput = errors.New("malformed classifier input")
	// ErrUnlabeled is returned when fitting or evaluating an unlabeled table
	ErrUnlabeled = errors.New("feature table has no labels")
)

// Classifier is a binary classifier over dense feature rows. Labels are 0
// or 1; PredictProba returns the probability of class 1 per row.
type Classifier interface {
	Fit(ctx context.Context, X [][]float64, y []int) error
	PredictProba(X [][]float64) ([]float64, error)
}

// Factory creates an unfitted classifier. The predictor uses a fresh
// instance for validation so the final model never sees the split.
type Factory func() Classifier

func checkMatrix(X [][]float64, cols int) (int, error) {
	if len(X) == 0 {
		return cols, fmt.Errorf("%w: no rows", ErrMalformedInput)
	}
	if cols < 0 {
		cols = len(X[0])
	}
	for i, row := range X {
		if len(row) != cols {
			return cols, fmt.Errorf("%w: row %d has %d columns, want %d", ErrMalformedInput, i, len(row), cols)
		}
	}
	return cols, nil
}
