package replay

import (
	"fmt"
	"iter"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/tracesim/trace"
)

// Result is the recomputed metrics for one trace record.
type Result struct {
	Iteration   int32
	Timestamp   float32
	Objective   float32
	SparseCount int32
}

const resultSize = int64(unsafe.Sizeof(Result{}))

// Results is the fixed-length store written by the workers.
//
// Slot i holds the result for the i-th record in file order. Each slot is
// written once by the worker that claimed it; slots are disjoint so writes
// take no lock. Nothing may read a slot before Run returns.
type Results struct {
	header  trace.Header
	records []Result

	// marks[w] holds the slots written by worker w. Each worker owns its
	// bitmap exclusively until the pool joins.
	marks []*roaring.Bitmap
}

func newResults(hdr trace.Header, workers int) *Results {
	marks := make([]*roaring.Bitmap, workers)
	for i := range marks {
		marks[i] = roaring.New()
	}
	return &Results{
		header:  hdr,
		records: make([]Result, hdr.RecordCount),
		marks:   marks,
	}
}

func (r *Results) set(worker, slot int, res Result) {
	r.records[slot] = res
	r.marks[worker].Add(uint32(slot))
}

// verify checks that every slot in [0, n) was written exactly once.
func (r *Results) verify() error {
	var total uint64
	for _, m := range r.marks {
		total += m.GetCardinality()
	}
	union := roaring.FastOr(r.marks...)
	n := uint64(len(r.records))

	if total != n || union.GetCardinality() != n {
		return fmt.Errorf("%w: %d writes covering %d of %d slots", ErrIncomplete, total, union.GetCardinality(), n)
	}
	if n > 0 && (union.Minimum() != 0 || uint64(union.Maximum()) != n-1) {
		return fmt.Errorf("%w: slots outside [0, %d)", ErrIncomplete, n)
	}
	return nil
}

// Header returns the header of the replayed trace.
func (r *Results) Header() trace.Header {
	return r.header
}

// Len returns the number of results.
func (r *Results) Len() int {
	return len(r.records)
}

// At returns the result for slot i.
func (r *Results) At(i int) Result {
	return r.records[i]
}

// All iterates results in slot order.
func (r *Results) All() iter.Seq2[int, Result] {
	return func(yield func(int, Result) bool) {
		for i, res := range r.records {
			if !yield(i, res) {
				return
			}
		}
	}
}

// Records returns a copy of the results in slot order.
func (r *Results) Records() []Result {
	return append([]Result(nil), r.records...)
}

// WorkerCounts returns how many records each worker computed.
func (r *Results) WorkerCounts() []int {
	counts := make([]int, len(r.marks))
	for i, m := range r.marks {
		counts[i] = int(m.GetCardinality())
	}
	return counts
}

// NewResults wraps records computed outside an Engine so that report.Write
// and report.Render can format them.
func NewResults(hdr trace.Header, records []Result) *Results {
	return &Results{
		header:  hdr,
		records: records,
	}
}
