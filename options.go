package tracesim

import (
	"github.com/hupe1980/tracesim/blobstore"
	"github.com/hupe1980/tracesim/internal/replay"
	"github.com/hupe1980/tracesim/ledger"
	"github.com/hupe1980/tracesim/report"
	"github.com/hupe1980/tracesim/resource"
	"github.com/hupe1980/tracesim/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type options struct {
	workers          int
	threshold        float32
	precision        int
	compression      *trace.Compression
	logger           *Logger
	metricsCollector MetricsCollector
	resource         *resource.Controller
	tracer           oteltrace.Tracer
	ledger           *ledger.Ledger
	reportStore      blobstore.BlobStore
	reportName       string
}

func defaultOptions() options {
	cfg := replay.DefaultConfig()
	return options{
		workers:          cfg.Workers,
		threshold:        cfg.Threshold,
		precision:        report.DefaultPrecision,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		tracer:           noop.NewTracerProvider().Tracer(""),
	}
}

// Option configures Simulate.
type Option func(*options)

// WithWorkers sets the number of concurrent workers. Must be at least 1.
// Default: runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithThreshold sets the sparsity threshold as a fraction of the largest
// coordinate magnitude. Must be finite and >= 0. Default: 0.01.
func WithThreshold(t float32) Option {
	return func(o *options) {
		o.threshold = t
	}
}

// WithPrecision sets the significant digits of floats in the report.
// Default: 6.
func WithPrecision(p int) Option {
	return func(o *options) {
		o.precision = p
	}
}

// WithCompression overrides the codec otherwise inferred from the trace
// name's extension.
func WithCompression(c trace.Compression) Option {
	return func(o *options) {
		o.compression = &c
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithResourceController bounds the memory a run may pin and the trace
// read throughput.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resource = rc
	}
}

// WithTracer sets the OpenTelemetry tracer. Default: a no-op tracer.
func WithTracer(t oteltrace.Tracer) Option {
	return func(o *options) {
		if t == nil {
			t = noop.NewTracerProvider().Tracer("")
		}
		o.tracer = t
	}
}

// WithLedger records every run, successful or not, in l.
func WithLedger(l *ledger.Ledger) Option {
	return func(o *options) {
		o.ledger = l
	}
}

// WithReport stores the rendered report as name in store. Without it the
// report is only returned in the Summary.
func WithReport(store blobstore.BlobStore, name string) Option {
	return func(o *options) {
		o.reportStore = store
		o.reportName = name
	}
}
