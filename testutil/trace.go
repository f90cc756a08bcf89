package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/tracesim/trace"
)

// TraceSpec describes a synthetic trace.
type TraceSpec struct {
	Records int
	Dim     int
	Lambda1 float32

	// Density is the probability that a coordinate is non-zero (0 means 1).
	Density float64

	// ZeroEvery makes every n-th record an all-zero vector (0 disables).
	ZeroEvery int
}

// RandomTrace generates a header and records following spec. Iterations are
// strictly increasing but not contiguous, as in a real logging schedule.
func (r *RNG) RandomTrace(spec TraceSpec) (trace.Header, []trace.Record) {
	density := spec.Density
	if density <= 0 {
		density = 1
	}
	xs := r.SparseVectors(spec.Records, spec.Dim, density)

	recs := make([]trace.Record, spec.Records)
	k := int32(1)
	for i := range recs {
		if spec.ZeroEvery > 0 && i%spec.ZeroEvery == 0 {
			clear(xs[i])
		}
		recs[i] = trace.Record{
			Iteration: k,
			Timestamp: float32(i) * 0.125,
			X:         xs[i],
		}
		k += int32(1 + r.Intn(100))
	}

	hdr := trace.Header{
		Lambda1:     spec.Lambda1,
		RecordCount: int32(spec.Records),
		Dimension:   int32(spec.Dim),
	}
	return hdr, recs
}

// EncodeTrace encodes hdr and recs. It panics on malformed input.
func EncodeTrace(hdr trace.Header, recs []trace.Record) []byte {
	var buf bytes.Buffer
	w, err := trace.NewWriter(&buf, hdr)
	if err != nil {
		panic(err)
	}
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			panic(err)
		}
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// TruncatedTrace encodes recs under a header that declares declared records.
// When declared exceeds len(recs) the trace ends early.
func TruncatedTrace(hdr trace.Header, recs []trace.Record, declared int32) []byte {
	hdr.RecordCount = declared
	out := trace.AppendHeader(nil, hdr)
	buf := make([]byte, hdr.RecordSize())
	for _, rec := range recs {
		trace.EncodeRecord(buf, rec)
		out = append(out, buf...)
	}
	return out
}

// L2Evaluator is f(x) = ½‖x‖² with gradient x.
type L2Evaluator struct{}

// Evaluate implements loss.Evaluator.
func (L2Evaluator) Evaluate(x, grad []float32) (float32, error) {
	var f float32
	for i, v := range x {
		f += 0.5 * v * v
		grad[i] = v
	}
	return f, nil
}

// ErrInjected is returned by FailingEvaluator.
var ErrInjected = errors.New("injected evaluator failure")

// FailingEvaluator wraps another evaluator and fails when the first
// coordinate equals FailOn.
type FailingEvaluator struct {
	Inner  L2Evaluator
	FailOn float32
}

// Evaluate implements loss.Evaluator.
func (f FailingEvaluator) Evaluate(x, grad []float32) (float32, error) {
	if len(x) > 0 && x[0] == f.FailOn {
		return 0, fmt.Errorf("%w: x[0]=%v", ErrInjected, x[0])
	}
	return f.Inner.Evaluate(x, grad)
}

// JitterEvaluator sleeps for a duration derived from x before evaluating, so
// completion order differs from claim order.
type JitterEvaluator struct {
	Inner L2Evaluator
	Max   time.Duration
}

// Evaluate implements loss.Evaluator.
func (j JitterEvaluator) Evaluate(x, grad []float32) (float32, error) {
	if j.Max > 0 && len(x) > 0 {
		h := math.Float32bits(x[0]) * 2654435761
		time.Sleep(time.Duration(uint64(h) % uint64(j.Max)))
	}
	return j.Inner.Evaluate(x, grad)
}
