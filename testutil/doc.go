// Package testutil provides testing utilities for tracesim.
//
// This package is intended for tests, benchmarks and the tracegen tool.
// It provides a seeded RNG, synthetic trace generation and small evaluator
// doubles with known closed forms.
//
// # Synthetic Traces
//
//	rng := testutil.NewRNG(seed)
//	hdr, recs := rng.RandomTrace(testutil.TraceSpec{Records: 1000, Dim: 64, Lambda1: 0.1})
//	data := testutil.EncodeTrace(hdr, recs)
//
// # Truncated Traces
//
//	data := testutil.TruncatedTrace(hdr, recs[:3], 5) // declares 5, holds 3
package testutil
