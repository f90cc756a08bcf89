// Package replay implements the concurrent trace-replay engine.
//
// A fixed pool of workers shares one trace.Reader. Each worker repeatedly
// claims the next record (slot assignment and the read happen under a single
// lock), evaluates it outside the lock, and stores the result at the claimed
// slot. Because slots are handed out in file order, the result order equals
// the trace order for any worker count and any scheduling.
//
//	claim (locked) ──► Compute (parallel) ──► Results[slot] (disjoint)
//
// Run is the join barrier; results are only readable after it returns.
package replay
