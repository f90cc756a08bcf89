package tracesim

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/tracesim/blobstore"
	"github.com/hupe1980/tracesim/internal/replay"
	"github.com/hupe1980/tracesim/ledger"
	"github.com/hupe1980/tracesim/loss"
	"github.com/hupe1980/tracesim/report"
	"github.com/hupe1980/tracesim/resource"
	"github.com/hupe1980/tracesim/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type (
	// Result is the recomputed metrics for one trace record.
	Result = replay.Result
	// Results holds one Result per trace record, in trace order.
	Results = replay.Results
)

// Summary describes a completed replay.
type Summary struct {
	RunID     string
	Trace     string
	Header    trace.Header
	Workers   int
	Threshold float32

	Results *Results

	// Report is the rendered k,t,fval,nnz report.
	Report []byte
	// Digest fingerprints Report; it does not depend on the worker count.
	Digest string
	// ReportName is where Report was stored, if WithReport was given.
	ReportName string

	StartedAt time.Time
	Elapsed   time.Duration
}

// Simulate replays traceName from store with ev and renders the report.
//
// The trace is decompressed according to its extension (.zst, .lz4, .sz).
// On any failure no report is stored and the returned error is an *Error.
// Cancelling ctx does not interrupt a run; ctx only carries values.
func Simulate(ctx context.Context, store blobstore.BlobStore, traceName string, ev loss.Evaluator, opts ...Option) (*Summary, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sum := &Summary{
		RunID:     uuid.NewString(),
		Trace:     traceName,
		Workers:   o.workers,
		Threshold: o.threshold,
		StartedAt: time.Now(),
	}
	log := o.logger.WithRunID(sum.RunID).WithTrace(traceName)

	ctx, span := o.tracer.Start(ctx, "tracesim.replay", oteltrace.WithAttributes(
		attribute.String("tracesim.run_id", sum.RunID),
		attribute.String("tracesim.trace", traceName),
		attribute.Int("tracesim.workers", o.workers),
		attribute.Float64("tracesim.threshold", float64(o.threshold)),
	))
	defer span.End()

	err := simulate(ctx, store, ev, &o, log, span, sum)
	sum.Elapsed = time.Since(sum.StartedAt)

	log.LogRunComplete(ctx, int(sum.Header.RecordCount), sum.Elapsed, err)
	o.metricsCollector.RecordRun(int(sum.Header.RecordCount), o.workers, sum.Elapsed, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
	}

	if o.ledger != nil {
		if lerr := o.ledger.Record(context.WithoutCancel(ctx), ledgerRun(sum, err)); lerr != nil {
			log.WarnContext(ctx, "failed to record run in ledger", "error", lerr)
		}
	}

	if err != nil {
		return nil, err
	}
	return sum, nil
}

func simulate(ctx context.Context, store blobstore.BlobStore, ev loss.Evaluator, o *options, log *Logger, span oteltrace.Span, sum *Summary) error {
	cfg := replay.Config{Workers: o.workers, Threshold: o.threshold}
	if err := cfg.Validate(); err != nil {
		return translateError("configure replay", err)
	}

	// Reads, rate limiting and the report upload outlive the caller's ctx.
	ctx = context.WithoutCancel(ctx)

	blob, err := store.Open(ctx, sum.Trace)
	if err != nil {
		return translateError("open trace", err)
	}
	defer func() { _ = blob.Close() }()

	comp := trace.CompressionFromName(sum.Trace)
	if o.compression != nil {
		comp = *o.compression
	}
	rc, err := trace.NewDecompressor(blob, comp)
	if err != nil {
		return translateError("open trace", err)
	}
	defer func() { _ = rc.Close() }()

	var src io.Reader = rc
	if o.resource != nil {
		src = resource.NewRateLimitedReader(ctx, src, o.resource)
	}

	tr, err := trace.NewReader(src)
	if err != nil {
		return translateError("read header", err)
	}
	sum.Header = tr.Header()
	span.SetAttributes(
		attribute.Int("tracesim.records", int(sum.Header.RecordCount)),
		attribute.Int("tracesim.dimension", int(sum.Header.Dimension)),
		attribute.Float64("tracesim.lambda1", float64(sum.Header.Lambda1)),
	)

	eng, err := replay.New(tr, ev, cfg,
		replay.WithResourceController(o.resource),
		replay.WithObserver(&recordObserver{ctx: ctx, log: log, metrics: o.metricsCollector}),
	)
	if err != nil {
		return translateError("configure replay", err)
	}

	log.LogRunStart(ctx, int(sum.Header.RecordCount), int(sum.Header.Dimension), o.workers, o.threshold)

	res, err := eng.Run(ctx)
	if err != nil {
		return translateError("replay", err)
	}
	sum.Results = res

	sum.Report, err = report.Render(res, report.Options{Precision: o.precision})
	if err != nil {
		return translateError("render report", err)
	}
	sum.Digest = report.Digest(sum.Report)

	if o.reportStore != nil {
		err := o.reportStore.Put(ctx, o.reportName, sum.Report)
		log.LogReportSaved(ctx, o.reportName, sum.Digest, err)
		if err != nil {
			return translateError("store report", fmt.Errorf("%s: %w", o.reportName, err))
		}
		sum.ReportName = o.reportName
	}
	return nil
}

type recordObserver struct {
	ctx     context.Context
	log     *Logger
	metrics MetricsCollector
}

func (r *recordObserver) ObserveRecord(worker, slot int, res Result, elapsed time.Duration, err error) {
	r.metrics.RecordEvaluate(worker, elapsed, err)
	if err == nil {
		r.log.LogRecord(r.ctx, worker, slot, res)
	}
}

func ledgerRun(sum *Summary, err error) ledger.Run {
	run := ledger.Run{
		ID:        sum.RunID,
		Trace:     sum.Trace,
		Workers:   sum.Workers,
		Threshold: sum.Threshold,
		Lambda1:   sum.Header.Lambda1,
		Records:   int(sum.Header.RecordCount),
		Dimension: int(sum.Header.Dimension),
		Digest:    sum.Digest,
		StartedAt: sum.StartedAt,
		Duration:  sum.Elapsed,
		Status:    ledger.StatusOK,
	}
	if err != nil {
		run.Status = ledger.StatusFailed
		run.ErrorKind = KindOf(err).String()
	}
	return run
}
