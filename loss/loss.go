// Package loss defines the objective evaluators used to replay a trace.
//
// An Evaluator is called concurrently from every replay worker, each with its
// own x and grad buffers, so implementations must not keep mutable state
// between calls.
package loss

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when x or grad do not match the
// evaluator's dimension.
var ErrDimensionMismatch = errors.New("loss: dimension mismatch")

// Evaluator computes an objective value and its gradient.
type Evaluator interface {
	// Evaluate returns f(x) and writes ∇f(x) into grad. len(grad) == len(x).
	Evaluate(x, grad []float32) (float32, error)
}

// Dimensioned is implemented by evaluators with a fixed input dimension.
type Dimensioned interface {
	Dimension() int
}

// EvaluatorFunc adapts an ordinary function to the Evaluator interface.
type EvaluatorFunc func(x, grad []float32) (float32, error)

// Evaluate calls f(x, grad).
func (f EvaluatorFunc) Evaluate(x, grad []float32) (float32, error) {
	return f(x, grad)
}

// Zero is the evaluator whose value and gradient are identically zero.
// Replaying with Zero reports the L1 penalty alone.
type Zero struct{}

// Evaluate implements Evaluator.
func (Zero) Evaluate(_, grad []float32) (float32, error) {
	clear(grad)
	return 0, nil
}

func checkDims(d int, x, grad []float32) error {
	if len(x) != d {
		return fmt.Errorf("%w: x has %d coordinates, want %d", ErrDimensionMismatch, len(x), d)
	}
	if len(grad) != d {
		return fmt.Errorf("%w: grad has %d coordinates, want %d", ErrDimensionMismatch, len(grad), d)
	}
	return nil
}
