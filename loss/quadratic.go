package loss

import (
	"fmt"

	"github.com/hupe1980/tracesim/internal/math32"
)

// Quadratic is f(x) = ½xᵀQx + qᵀx with gradient Qx + q.
type Quadratic struct {
	d int
	Q []float32 // row-major d×d, assumed symmetric
	q []float32
}

// NewQuadratic validates the shapes of Q and q.
func NewQuadratic(Q, q []float32) (*Quadratic, error) {
	d := len(q)
	if len(Q) != d*d {
		return nil, fmt.Errorf("%w: Q has %d entries, want %d", ErrDimensionMismatch, len(Q), d*d)
	}
	return &Quadratic{d: d, Q: Q, q: q}, nil
}

// Dimension returns the number of coordinates.
func (f *Quadratic) Dimension() int { return f.d }

// Evaluate implements Evaluator.
func (f *Quadratic) Evaluate(x, grad []float32) (float32, error) {
	if err := checkDims(f.d, x, grad); err != nil {
		return 0, err
	}

	var fval float32
	for i := 0; i < f.d; i++ {
		qx := math32.Dot(f.Q[i*f.d:(i+1)*f.d], x)
		fval += 0.5*x[i]*qx + f.q[i]*x[i]
		grad[i] = qx + f.q[i]
	}
	return fval, nil
}
