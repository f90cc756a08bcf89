package loss

import (
	"github.com/hupe1980/tracesim/dataset"
	"github.com/hupe1980/tracesim/internal/math32"
)

// Logistic is the average logistic loss over a dataset:
//
//	f(x) = (1/N) Σ log(1 + exp(-b_i a_iᵀx))
//
// Labels greater than zero are treated as +1, all others as -1.
type Logistic struct {
	data *dataset.Dataset
}

// NewLogistic creates a logistic loss over data.
func NewLogistic(data *dataset.Dataset) *Logistic {
	return &Logistic{data: data}
}

// Dimension returns the number of features.
func (l *Logistic) Dimension() int {
	return l.data.NumFeatures()
}

// Evaluate implements Evaluator.
func (l *Logistic) Evaluate(x, grad []float32) (float32, error) {
	if err := checkDims(l.data.NumFeatures(), x, grad); err != nil {
		return 0, err
	}

	math32.Zero(grad)

	n := l.data.NumSamples()
	if n == 0 {
		return 0, nil
	}

	var fval float32
	for i := 0; i < n; i++ {
		b := float32(-1)
		if l.data.Label(i) > 0 {
			b = 1
		}
		row := l.data.Row(i)
		margin := -b * row.Dot(x)
		fval += math32.Log1pExp(margin)
		row.AddScaledTo(-b*math32.Sigmoid(margin), grad)
	}

	inv := 1 / float32(n)
	for j := range grad {
		grad[j] *= inv
	}
	return fval * inv, nil
}
