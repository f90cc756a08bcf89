// Command tracegen writes a synthetic optimizer trace for stress-testing
// tracesim. The codec follows the output extension (.zst, .lz4, .sz).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/tracesim/internal/config"
	"github.com/hupe1980/tracesim/internal/storage"
	"github.com/hupe1980/tracesim/testutil"
	"github.com/hupe1980/tracesim/trace"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error occurred: %v\n", err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		spec       testutil.TraceSpec
		lambda1    float64
		seed       int64
		out        string
		configFile string
	)

	fs := flag.NewFlagSet("tracegen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&spec.Records, "records", 1000, "Number of records")
	fs.IntVar(&spec.Dim, "dim", 100, "Dimension of each decision vector")
	fs.Float64Var(&lambda1, "lambda1", 0.01, "L1 regularization weight stored in the header")
	fs.Int64Var(&seed, "seed", 1, "Random seed")
	fs.IntVar(&spec.ZeroEvery, "zero-every", 0, "Make every n-th record an all-zero vector (0 disables)")
	fs.Float64Var(&spec.Density, "density", 1, "Probability that a coordinate is non-zero")
	fs.StringVar(&out, "out", "", "Output location (path, file://, s3:// or minio:// URL)")
	fs.StringVar(&configFile, "config", "", "Path to YAML configuration file (object-store settings)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if out == "" {
		return errors.New("-out is required")
	}
	if spec.Records < 0 || spec.Dim < 0 {
		return fmt.Errorf("records and dim must be non-negative, got %d and %d", spec.Records, spec.Dim)
	}
	if spec.Density < 0 || spec.Density > 1 {
		return fmt.Errorf("density must be in [0, 1], got %v", spec.Density)
	}
	spec.Lambda1 = float32(lambda1)

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	loc, err := storage.Resolve(ctx, out, cfg.StorageBackends())
	if err != nil {
		return err
	}

	hdr, recs := testutil.NewRNG(seed).RandomTrace(spec)
	if err := write(ctx, loc, hdr, recs); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Wrote %d records of dimension %d to %s (%s)\n",
		hdr.RecordCount, hdr.Dimension, out, trace.CompressionFromName(loc.Name))
	return nil
}

func write(ctx context.Context, loc storage.Location, hdr trace.Header, recs []trace.Record) (err error) {
	blob, err := loc.Store.Create(ctx, loc.Name)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = blob.Abort()
			return
		}
		err = blob.Close()
	}()

	cw, err := trace.NewCompressor(blob, trace.CompressionFromName(loc.Name))
	if err != nil {
		return err
	}

	tw, err := trace.NewWriter(cw, hdr)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := tw.Write(rec); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return cw.Close()
}
