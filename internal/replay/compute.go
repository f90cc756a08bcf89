package replay

import (
	"github.com/hupe1980/tracesim/internal/math32"
	"github.com/hupe1980/tracesim/loss"
	"github.com/hupe1980/tracesim/trace"
)

// Compute evaluates one record.
//
// grad is scratch space of len(rec.X) for the evaluator's gradient; the
// gradient is always computed even though no metric consumes it.
//
// The threshold comparison needs the record's maximum magnitude, so it runs
// as a second pass. An all-zero vector counts every coordinate (0 >= 0).
func Compute(ev loss.Evaluator, rec *trace.Record, lambda1, threshold float32, grad []float32) (Result, error) {
	base, err := ev.Evaluate(rec.X, grad)
	if err != nil {
		return Result{}, err
	}

	fval, maxAbs := math32.WeightedAbsSum(base, lambda1, rec.X)
	nnz := math32.CountAbsAtLeast(rec.X, threshold*maxAbs)

	return Result{
		Iteration:   rec.Iteration,
		Timestamp:   rec.Timestamp,
		Objective:   fval,
		SparseCount: int32(nnz),
	}, nil
}
