package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/tracesim/loss"
	"github.com/hupe1980/tracesim/resource"
	"github.com/hupe1980/tracesim/trace"
	"golang.org/x/sync/errgroup"
)

// EvaluatorError reports an evaluator failure for one record.
type EvaluatorError struct {
	Slot      int
	Iteration int32
	cause     error
}

func (e *EvaluatorError) Error() string {
	return fmt.Sprintf("evaluator failed on record %d (iteration %d): %v", e.Slot, e.Iteration, e.cause)
}

func (e *EvaluatorError) Unwrap() error { return e.cause }

// Observer receives one call per evaluated record, from the worker that
// evaluated it. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveRecord(worker, slot int, res Result, elapsed time.Duration, err error)
}

// Engine replays one trace.
type Engine struct {
	src *trace.Reader
	ev  loss.Evaluator
	cfg Config
	rc  *resource.Controller
	obs Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithResourceController charges the result store and worker buffers
// against rc's memory limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(e *Engine) { e.rc = rc }
}

// WithObserver installs a per-record observer.
func WithObserver(obs Observer) Option {
	return func(e *Engine) { e.obs = obs }
}

// New validates cfg against the trace and the evaluator.
//
// src must be positioned right after the header; the engine does not resume
// partially consumed traces.
func New(src *trace.Reader, ev loss.Evaluator, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: evaluator is nil", ErrInvalidConfig)
	}
	if src.Consumed() != 0 {
		return nil, fmt.Errorf("%w: trace already advanced by %d records", ErrInvalidConfig, src.Consumed())
	}
	if dim, ok := ev.(loss.Dimensioned); ok && dim.Dimension() != int(src.Header().Dimension) {
		return nil, fmt.Errorf("%w: evaluator dimension %d does not match trace dimension %d",
			ErrInvalidConfig, dim.Dimension(), src.Header().Dimension)
	}

	e := &Engine{src: src, ev: ev, cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// MemoryFootprint estimates the bytes pinned by a run: the result store plus
// each worker's record, vector and gradient buffers.
func MemoryFootprint(hdr trace.Header, workers int) int64 {
	d := int64(hdr.Dimension)
	perWorker := int64(hdr.RecordSize()) + 8*d
	return int64(hdr.RecordCount)*resultSize + int64(workers)*perWorker
}

// Run replays the trace to completion and blocks until every worker has
// exited.
//
// Cancelling ctx does not stop the replay; ctx only carries values. The first
// worker failure is returned and the remaining workers stop at their next
// claim. No partial results are returned on failure.
func (e *Engine) Run(ctx context.Context) (*Results, error) {
	hdr := e.src.Header()

	mem := MemoryFootprint(hdr, e.cfg.Workers)
	if err := e.rc.AcquireMemory(mem); err != nil {
		return nil, fmt.Errorf("%w: %d bytes: %w", ErrMemoryBudget, mem, err)
	}
	defer e.rc.ReleaseMemory(mem)

	store := newResults(hdr, e.cfg.Workers)
	cl := newClaimer(e.src)

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	for w := 0; w < e.cfg.Workers; w++ {
		g.Go(func() error {
			return e.work(gctx, w, cl, store)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := store.verify(); err != nil {
		return nil, err
	}
	return store, nil
}

func (e *Engine) work(ctx context.Context, worker int, cl *claimer, store *Results) error {
	hdr := e.src.Header()
	d := int(hdr.Dimension)

	raw := make([]byte, hdr.RecordSize())
	rec := trace.Record{X: make([]float32, d)}
	grad := make([]float32, d)

	for {
		// Another worker failed; its error is the one Wait reports.
		if ctx.Err() != nil {
			return nil
		}

		slot, ok, err := cl.claim(raw)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		trace.DecodeRecord(raw, &rec)

		var start time.Time
		if e.obs != nil {
			start = time.Now()
		}
		res, err := Compute(e.ev, &rec, hdr.Lambda1, e.cfg.Threshold, grad)
		if e.obs != nil {
			e.obs.ObserveRecord(worker, slot, res, time.Since(start), err)
		}
		if err != nil {
			return &EvaluatorError{Slot: slot, Iteration: rec.Iteration, cause: err}
		}

		store.set(worker, slot, res)
	}
}
