// Command tracesim replays a recorded optimizer trace against a dataset's
// logistic loss and writes the k,t,fval,nnz report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hupe1980/tracesim"
	"github.com/hupe1980/tracesim/dataset"
	"github.com/hupe1980/tracesim/internal/config"
	tsotel "github.com/hupe1980/tracesim/internal/otel"
	"github.com/hupe1980/tracesim/internal/storage"
	"github.com/hupe1980/tracesim/ledger"
	"github.com/hupe1980/tracesim/loss"
	"github.com/hupe1980/tracesim/metric"
	"github.com/hupe1980/tracesim/resource"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	configFile  string
	datasetID   int
	suffix      string
	tracePath   string
	datasetPath string
	reportPath  string
	showVersion bool

	// Overrides; applied only when set on the command line.
	dataDir     string
	resultsDir  string
	threshold   float64
	workers     int
	precision   int
	ledger      string
	metricsFile string
	logLevel    string
	logJSON     bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var f flags

	fs := flag.NewFlagSet("tracesim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configFile, "config", "", "Path to YAML configuration file")
	fs.IntVar(&f.datasetID, "dataset-id", -1, "ID of the dataset in <data-dir>/datasets.lst")
	fs.StringVar(&f.suffix, "suffix", "", "Suffix of the trace name (<results-dir>/<dataset>-<suffix>.bin)")
	fs.StringVar(&f.tracePath, "trace", "", "Trace location (path, file://, s3:// or minio:// URL); overrides -suffix")
	fs.StringVar(&f.datasetPath, "dataset", "", "LIBSVM dataset file; overrides the catalog lookup")
	fs.StringVar(&f.reportPath, "report", "", "Report location (default: trace location with .csv extension)")
	fs.StringVar(&f.dataDir, "data-dir", "", "Directory holding datasets.lst and datasets")
	fs.StringVar(&f.resultsDir, "results-dir", "", "Directory holding traces and reports")
	fs.Float64Var(&f.threshold, "threshold", 0, "Sparsity threshold as a fraction of the largest magnitude (default 0.01)")
	fs.IntVar(&f.workers, "workers", 0, "Number of workers (default: number of CPUs)")
	fs.IntVar(&f.precision, "precision", 0, "Significant digits of report floats, -1 for shortest (default 6)")
	fs.StringVar(&f.ledger, "ledger", "", "SQLite run ledger path")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVar(&f.logJSON, "log-json", false, "Log in JSON format")
	fs.BoolVar(&f.showVersion, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "tracesim - replay an optimizer trace and recompute its metrics\n\n")
		fmt.Fprintf(stderr, "Usage: tracesim -dataset-id N -suffix NAME [options]\n")
		fmt.Fprintf(stderr, "       tracesim -trace LOCATION -dataset FILE [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(stderr, "  TRACESIM_*               Configuration overrides (see internal/config)\n")
		fmt.Fprintf(stderr, "  TRACESIM_OTEL_ENDPOINT   OTLP/HTTP collector URL\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return tracesim.KindConfig.ExitCode()
	}

	if f.showVersion {
		fmt.Fprintf(stdout, "tracesim version %s (commit: %s)\n", version, commit)
		return 0
	}

	cfg, err := loadConfig(fs, &f)
	if err != nil {
		fmt.Fprintf(stderr, "Error occurred: %v\n", err)
		return tracesim.KindConfig.ExitCode()
	}

	logger := newLogger(cfg.Log, stderr)

	if err := simulate(ctx, cfg, &f, logger, stdout); err != nil {
		fmt.Fprintf(stderr, "Error occurred: %v\n", err)
		if errors.Is(err, errUsage) {
			fs.Usage()
		}
		return tracesim.KindOf(err).ExitCode()
	}
	return 0
}

var errUsage = &tracesim.Error{Kind: tracesim.KindConfig, Op: "usage", Err: errors.New("either -dataset-id with -suffix or -trace with -dataset is required")}

// loadConfig layers command-line flags over file and environment settings.
func loadConfig(fs *flag.FlagSet, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "data-dir":
			cfg.DataDir = f.dataDir
		case "results-dir":
			cfg.ResultsDir = f.resultsDir
		case "threshold":
			cfg.Threshold = float32(f.threshold)
		case "workers":
			cfg.Workers = f.workers
		case "precision":
			cfg.Precision = f.precision
		case "ledger":
			cfg.Ledger = f.ledger
		case "metrics-file":
			cfg.MetricsFile = f.metricsFile
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "log-json":
			cfg.Log.JSON = f.logJSON
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *tracesim.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(cfg.Level))

	opts := &slog.HandlerOptions{Level: level}
	if cfg.JSON {
		return tracesim.NewLogger(slog.NewJSONHandler(w, opts))
	}
	return tracesim.NewLogger(slog.NewTextHandler(w, opts))
}

// names holds the resolved input and output locations of a run.
type names struct {
	dataset string
	trace   string
	report  string
	entry   dataset.Entry
}

func resolveNames(cfg *config.Config, f *flags) (names, error) {
	var n names

	switch {
	case f.datasetPath != "":
		n.dataset = f.datasetPath
		n.entry = dataset.Entry{Name: strings.TrimSuffix(filepath.Base(f.datasetPath), filepath.Ext(f.datasetPath))}
	case f.datasetID >= 0:
		cat, err := dataset.LoadCatalog(cfg.CatalogPath())
		if err != nil {
			return n, &tracesim.Error{Kind: tracesim.KindDataset, Op: "load catalog", Err: err}
		}
		entry, err := cat.Lookup(f.datasetID)
		if err != nil {
			return n, &tracesim.Error{Kind: tracesim.KindDataset, Op: "lookup dataset", Err: err}
		}
		n.entry = entry
		n.dataset = filepath.Join(cfg.DataDir, entry.Name+".svm")
	default:
		return n, errUsage
	}

	switch {
	case f.tracePath != "":
		n.trace = f.tracePath
	case f.suffix != "":
		n.trace = filepath.Join(cfg.ResultsDir, n.entry.Name+"-"+f.suffix+".bin")
	default:
		return n, errUsage
	}

	n.report = f.reportPath
	if n.report == "" {
		n.report = reportLocation(n.trace)
	}
	return n, nil
}

// reportLocation swaps the trace's .bin extension (and any compression
// extension after it) for .csv.
func reportLocation(trace string) string {
	base := trace
	for _, ext := range []string{".zst", ".lz4", ".sz", ".bin"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".csv"
}

func loadDataset(path string, entry dataset.Entry) (*dataset.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &tracesim.Error{Kind: tracesim.KindDataset, Op: "open dataset", Err: err}
	}
	defer func() { _ = file.Close() }()

	ds, err := dataset.ReadSVM(file, dataset.ReadOptions{
		Dense:       entry.Dense,
		NumFeatures: entry.NumFeatures,
	})
	if err != nil {
		return nil, &tracesim.Error{Kind: tracesim.KindDataset, Op: "read dataset", Err: err}
	}
	return ds, nil
}

func simulate(ctx context.Context, cfg *config.Config, f *flags, logger *tracesim.Logger, stdout io.Writer) (err error) {
	n, err := resolveNames(cfg, f)
	if err != nil {
		return err
	}

	ds, err := loadDataset(n.dataset, n.entry)
	if err != nil {
		return err
	}
	ev := loss.NewLogistic(ds)

	src, err := storage.Resolve(ctx, n.trace, cfg.StorageBackends())
	if err != nil {
		return storageError("resolve trace", err)
	}
	dst, err := storage.Resolve(ctx, n.report, cfg.StorageBackends())
	if err != nil {
		return storageError("resolve report", err)
	}

	shutdown, err := tsotel.Setup(ctx, "tracesim")
	if err != nil {
		logger.WarnContext(ctx, "tracing disabled", "error", err)
	}
	defer func() { _ = shutdown(context.WithoutCancel(ctx)) }()

	opts := []tracesim.Option{
		tracesim.WithWorkers(cfg.Workers),
		tracesim.WithThreshold(cfg.Threshold),
		tracesim.WithPrecision(cfg.Precision),
		tracesim.WithLogger(logger),
		tracesim.WithResourceController(resource.NewController(cfg.ResourceLimits())),
		tracesim.WithTracer(tsotel.Tracer()),
		tracesim.WithReport(dst.Store, dst.Name),
	}

	if cfg.Ledger != "" {
		l, err := ledger.Open(cfg.Ledger)
		if err != nil {
			return &tracesim.Error{Kind: tracesim.KindIO, Op: "open ledger", Err: err}
		}
		defer func() { _ = l.Close() }()
		opts = append(opts, tracesim.WithLedger(l))
	}

	var prom *metric.Prometheus
	if cfg.MetricsFile != "" {
		prom = metric.NewPrometheus()
		opts = append(opts, tracesim.WithMetrics(prom))
		defer func() {
			if werr := prom.WriteTextfile(cfg.MetricsFile); werr != nil && err == nil {
				err = &tracesim.Error{Kind: tracesim.KindIO, Op: "write metrics", Err: werr}
			}
		}()
	}

	fmt.Fprintf(stdout, "Simulating from %s with\n", n.trace)
	fmt.Fprintf(stdout, "  - dataset  : %s (%d samples, %d features)\n", n.entry, ds.NumSamples(), ds.NumFeatures())
	fmt.Fprintf(stdout, "  - threshold: %g\n", cfg.Threshold)
	fmt.Fprintf(stdout, "  - W        : %d\n", cfg.Workers)

	sum, err := tracesim.Simulate(ctx, src.Store, src.Name, ev, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "  - lambda1  : %g\n", sum.Header.Lambda1)
	fmt.Fprintf(stdout, "  - numlogs  : %d\n", sum.Header.RecordCount)
	fmt.Fprintf(stdout, "Saved the traces to %s (digest %s).\n", n.report, sum.Digest)
	fmt.Fprintf(stdout, "Simulation took %s.\n", formatElapsed(sum.Elapsed))
	return nil
}

func storageError(op string, err error) error {
	kind := tracesim.KindIO
	if errors.Is(err, storage.ErrUnsupportedScheme) {
		kind = tracesim.KindConfig
	}
	return &tracesim.Error{Kind: kind, Op: op, Err: err}
}

// formatElapsed renders d as h:m:s with unpadded whole-second fields.
func formatElapsed(d time.Duration) string {
	s := int64(d / time.Second)
	return fmt.Sprintf("%d:%d:%d", s/3600, (s%3600)/60, s%60)
}
