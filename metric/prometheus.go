// Package metric exports replay metrics to Prometheus.
package metric

import (
	"strconv"
	"time"

	"github.com/hupe1980/tracesim"
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements tracesim.MetricsCollector.
type Prometheus struct {
	reg *prometheus.Registry

	evalLatency *prometheus.HistogramVec
	evaluations *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runLatency  prometheus.Histogram
	records     prometheus.Counter
	workers     prometheus.Gauge
}

// NewPrometheus registers the tracesim metrics on a fresh registry.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		reg: prometheus.NewRegistry(),
		evalLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracesim_evaluate_latency_seconds",
			Help:    "Latency of a single record evaluation",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"status"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracesim_evaluations_total",
			Help: "Record evaluations per worker",
		}, []string{"worker"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracesim_runs_total",
			Help: "Completed replays",
		}, []string{"status"}),
		runLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracesim_run_duration_seconds",
			Help:    "Wall time of a replay",
			Buckets: prometheus.DefBuckets,
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracesim_records_total",
			Help: "Records replayed by successful runs",
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracesim_workers",
			Help: "Worker count of the most recent run",
		}),
	}

	p.reg.MustRegister(p.evalLatency, p.evaluations, p.runs, p.runLatency, p.records, p.workers)
	return p
}

// Registry returns the registry holding the metrics.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.reg
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordEvaluate implements tracesim.MetricsCollector.
func (p *Prometheus) RecordEvaluate(worker int, d time.Duration, err error) {
	p.evalLatency.WithLabelValues(status(err)).Observe(d.Seconds())
	p.evaluations.WithLabelValues(strconv.Itoa(worker)).Inc()
}

// RecordRun implements tracesim.MetricsCollector.
func (p *Prometheus) RecordRun(records, workers int, d time.Duration, err error) {
	p.runs.WithLabelValues(status(err)).Inc()
	p.runLatency.Observe(d.Seconds())
	p.workers.Set(float64(workers))
	if err == nil {
		p.records.Add(float64(records))
	}
}

// WriteTextfile writes the metrics in text exposition format to path, for
// the node_exporter textfile collector.
func (p *Prometheus) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.reg)
}

var _ tracesim.MetricsCollector = (*Prometheus)(nil)
