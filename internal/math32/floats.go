// Package math32 provides the float32 vector kernels used by the evaluators
// and the per-record sparsity pass.
//
// All kernels accumulate sequentially from index 0 so results are bit-for-bit
// reproducible regardless of which goroutine calls them.
package math32

import "math"

// Abs returns |v|.
func Abs(v float32) float32 {
	return math.Float32frombits(math.Float32bits(v) &^ (1 << 31))
}

// Dot calculates the dot product of two vectors.
func Dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}

	return ret
}

// Axpy computes y += alpha*x.
func Axpy(alpha float32, x, y []float32) {
	for i := range x {
		y[i] += alpha * x[i]
	}
}

// Zero sets every element of a to zero.
func Zero(a []float32) {
	clear(a)
}

// WeightedAbsSum returns base + Σ weight*|a_i| together with max |a_i|.
//
// The penalty is added one coordinate at a time, matching the way the
// optimizer logs the regularized objective.
func WeightedAbsSum(base, weight float32, a []float32) (sum, maxAbs float32) {
	sum = base
	for _, v := range a {
		av := Abs(v)
		if av > maxAbs {
			maxAbs = av
		}
		sum += weight * av
	}
	return sum, maxAbs
}

// CountAbsAtLeast returns the number of coordinates with |a_i| >= bound.
func CountAbsAtLeast(a []float32, bound float32) int {
	n := 0
	for _, v := range a {
		if Abs(v) >= bound {
			n++
		}
	}
	return n
}

// Log1pExp returns log(1 + exp(v)) without overflowing for large v.
func Log1pExp(v float32) float32 {
	if v > 0 {
		return v + float32(math.Log1p(math.Exp(-float64(v))))
	}
	return float32(math.Log1p(math.Exp(float64(v))))
}

// Sigmoid returns 1 / (1 + exp(-v)).
func Sigmoid(v float32) float32 {
	if v >= 0 {
		return float32(1 / (1 + math.Exp(-float64(v))))
	}
	e := math.Exp(float64(v))
	return float32(e / (1 + e))
}
