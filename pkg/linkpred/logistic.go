package linkpred

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// LogisticRegression is an L2-regularised logistic regression fitted with
// BFGS. Features are standardised with the training mean and deviation.
type LogisticRegression struct {
	// L2 is the ridge penalty on the non-bias weights
	L2 float64
	// MaxIterations bounds the optimiser's major iterations
	MaxIterations int

	weights []float64 // bias first
	mean    []float64
	scale   []float64
}

// NewLogisticRegression creates an unfitted model.
func NewLogisticRegression(l2 float64, maxIterations int) *LogisticRegression {
	return &LogisticRegression{L2: l2, MaxIterations: maxIterations}
}

// Fit trains the model. Labels must be 0 or 1.
func (m *LogisticRegression) Fit(ctx context.Context, X [][]float64, y []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cols, err := checkMatrix(X, -1)
	if err != nil {
		return err
	}
	if len(y) != len(X) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrMalformedInput, len(X), len(y))
	}
	target := make([]float64, len(y))
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("%w: label %d at row %d", ErrMalformedInput, label, i)
		}
		target[i] = float64(label)
	}

	m.mean = make([]float64, cols)
	m.scale = make([]float64, cols)
	column := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i, row := range X {
			column[i] = row[j]
		}
		mu, sd := stat.MeanStdDev(column, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		m.mean[j], m.scale[j] = mu, sd
	}

	design := make([][]float64, len(X))
	for i, row := range X {
		design[i] = m.standardise(row)
	}

	n := float64(len(X))
	l2 := m.L2
	problem := optimize.Problem{
		Func: func(w []float64) float64 {
			loss := 0.0
			for i, x := range design {
				z := floats.Dot(w, x)
				loss += softplus(z) - target[i]*z
			}
			return loss/n + 0.5*l2*floats.Dot(w[1:], w[1:])
		},
		Grad: func(grad, w []float64) {
			for k := range grad {
				grad[k] = 0
			}
			for i, x := range design {
				r := sigmoid(floats.Dot(w, x)) - target[i]
				floats.AddScaled(grad, r, x)
			}
			floats.Scale(1/n, grad)
			floats.AddScaled(grad[1:], l2, w[1:])
		},
	}

	x0 := make([]float64, cols+1)
	initial := problem.Func(x0)
	settings := &optimize.Settings{
		MajorIterations:   m.MaxIterations,
		GradientThreshold: 1e-8,
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if result == nil || !allFinite(result.X) {
		if err == nil {
			err = fmt.Errorf("non-finite weights")
		}
		return fmt.Errorf("logistic regression did not converge: %w", err)
	}
	// A line search that stalls at the optimum reports an error with a
	// usable location.
	if err != nil && result.F > initial {
		return fmt.Errorf("logistic regression did not converge: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.weights = append([]float64(nil), result.X...)
	return nil
}

// PredictProba returns P(y=1) per row.
func (m *LogisticRegression) PredictProba(X [][]float64) ([]float64, error) {
	if m.weights == nil {
		return nil, ErrNotFitted
	}
	if _, err := checkMatrix(X, len(m.mean)); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = sigmoid(floats.Dot(m.weights, m.standardise(row)))
	}
	return out, nil
}

// Weights returns a copy of the fitted weights, bias first, in
// standardised feature space.
func (m *LogisticRegression) Weights() []float64 {
	return append([]float64(nil), m.weights...)
}

func (m *LogisticRegression) standardise(row []float64) []float64 {
	x := make([]float64, len(row)+1)
	x[0] = 1
	for j, v := range row {
		x[j+1] = (v - m.mean[j]) / m.scale[j]
	}
	return x
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1+e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
