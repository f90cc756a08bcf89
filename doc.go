// Package tracesim replays optimizer traces to recompute their convergence
// metrics.
//
// An L1-regularized optimizer logs its iterates to a trace: a small header
// (lambda1, record count, dimension) followed by one fixed-size record per
// logged iteration. tracesim re-reads the trace with a pool of workers, calls
// an objective evaluator on each iterate and writes a report with one line
// per record:
//
//	k,t,fval,nnz
//	1,0,10,2
//	5,1.5,0,3
//
// where fval = f(x) + lambda1*‖x‖₁ and nnz counts the coordinates whose
// magnitude is at least threshold times the largest magnitude in x.
//
// # Quick Start
//
//	store := blobstore.NewLocalStore("./traces")
//	ev := loss.NewLogistic(data)
//
//	sum, err := tracesim.Simulate(ctx, store, "rcv1.trace.zst", ev,
//	    tracesim.WithWorkers(8),
//	    tracesim.WithThreshold(0.01),
//	    tracesim.WithReport(store, "rcv1.csv"),
//	)
//
// # Ordering
//
// The report lists records in trace order for any worker count. Two runs of
// the same trace produce byte-identical reports and the same Summary.Digest.
//
// # Errors
//
// Simulate returns an *Error whose Kind tells truncated traces, invalid
// headers, bad configuration, evaluator failures and storage failures apart:
//
//	if errors.Is(err, tracesim.ErrTruncatedTrace) { ... }
//	os.Exit(tracesim.KindOf(err).ExitCode())
//
// No report is stored when a run fails.
package tracesim
