package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tracesim/ledger"
	"github.com/hupe1980/tracesim/testutil"
	"github.com/hupe1980/tracesim/trace"
)

const testSVM = `+1 1:0.5 3:2
-1 2:1
+1 1:1 2:1 3:1
-1 3:-0.5
`

// workspace lays out data/ and results/ the way the CLI expects.
type workspace struct {
	dataDir    string
	resultsDir string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	root := t.TempDir()
	ws := workspace{
		dataDir:    filepath.Join(root, "data"),
		resultsDir: filepath.Join(root, "results"),
	}
	require.NoError(t, os.MkdirAll(ws.dataDir, 0o755))
	require.NoError(t, os.MkdirAll(ws.resultsDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(ws.dataDir, "datasets.lst"), []byte("toy false\nother true 4 3\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ws.dataDir, "toy.svm"), []byte(testSVM), 0o644))
	return ws
}

func (ws workspace) writeTrace(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(ws.resultsDir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func (ws workspace) args(extra ...string) []string {
	return append([]string{"-data-dir", ws.dataDir, "-results-dir", ws.resultsDir}, extra...)
}

func exec(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_CatalogDataset(t *testing.T) {
	ws := newWorkspace(t)
	hdr, recs := testutil.NewRNG(1).RandomTrace(testutil.TraceSpec{Records: 50, Dim: 3, Lambda1: 0.1, ZeroEvery: 7})
	ws.writeTrace(t, "toy-serial.bin", testutil.EncodeTrace(hdr, recs))

	code, stdout, stderr := exec(t, ws.args("-dataset-id", "0", "-suffix", "serial", "-workers", "4")...)
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stdout, "Simulating from ")
	assert.Contains(t, stdout, "  - W        : 4")
	assert.Regexp(t, `Simulation took \d+:\d+:\d+\.`, stdout)

	report, err := os.ReadFile(filepath.Join(ws.resultsDir, "toy-serial.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(report), "\n"), "\n")
	require.Len(t, lines, 51)
	assert.Equal(t, "k,t,fval,nnz", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,0,"), lines[1])
}

func TestRun_ExplicitPathsAndOutputs(t *testing.T) {
	ws := newWorkspace(t)
	hdr, recs := testutil.NewRNG(2).RandomTrace(testutil.TraceSpec{Records: 20, Dim: 3, Lambda1: 0.5})

	var buf bytes.Buffer
	cw, err := trace.NewCompressor(&buf, trace.CompressionZstd)
	require.NoError(t, err)
	_, err = cw.Write(testutil.EncodeTrace(hdr, recs))
	require.NoError(t, err)
	require.NoError(t, cw.Close())
	tracePath := ws.writeTrace(t, "custom.bin.zst", buf.Bytes())

	reportPath := filepath.Join(ws.resultsDir, "out.csv")
	ledgerPath := filepath.Join(ws.resultsDir, "runs.db")
	metricsPath := filepath.Join(ws.resultsDir, "tracesim.prom")

	for _, workers := range []string{"1", "3"} {
		code, _, stderr := exec(t, ws.args(
			"-trace", tracePath,
			"-dataset", filepath.Join(ws.dataDir, "toy.svm"),
			"-report", reportPath,
			"-workers", workers,
			"-ledger", ledgerPath,
			"-metrics-file", metricsPath,
			"-log-json",
		)...)
		require.Equal(t, 0, code, stderr)
		assert.Contains(t, stderr, `"msg":"replay completed"`)
	}

	_, err = os.Stat(reportPath)
	require.NoError(t, err)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "tracesim_runs_total")

	l, err := ledger.Open(ledgerPath)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	runs, err := l.List(context.Background(), "custom.bin.zst")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.ElementsMatch(t, []int{1, 3}, []int{runs[0].Workers, runs[1].Workers})
	assert.Equal(t, ledger.StatusOK, runs[0].Status)
	assert.Equal(t, ledger.StatusOK, runs[1].Status)

	digests, err := l.Digests(context.Background(), "custom.bin.zst")
	require.NoError(t, err)
	assert.Equal(t, []string{runs[0].Digest}, digests, "both worker counts produced the same report")
}

func TestRun_ExitCodes(t *testing.T) {
	ws := newWorkspace(t)
	hdr, recs := testutil.NewRNG(3).RandomTrace(testutil.TraceSpec{Records: 10, Dim: 3, Lambda1: 0.1})
	ws.writeTrace(t, "toy-ok.bin", testutil.EncodeTrace(hdr, recs))
	ws.writeTrace(t, "toy-short.bin", testutil.TruncatedTrace(hdr, recs[:4], 10))
	ws.writeTrace(t, "toy-bad.bin", trace.AppendHeader(nil, trace.Header{Lambda1: 0.1, RecordCount: 1, Dimension: -3}))

	hdr4, recs4 := testutil.NewRNG(3).RandomTrace(testutil.TraceSpec{Records: 10, Dim: 4})
	ws.writeTrace(t, "toy-wide.bin", testutil.EncodeTrace(hdr4, recs4))

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"ok", ws.args("-dataset-id", "0", "-suffix", "ok"), 0},
		{"missing dataset id", ws.args("-suffix", "ok"), 2},
		{"missing suffix", ws.args("-dataset-id", "0"), 2},
		{"unknown dataset id", ws.args("-dataset-id", "9", "-suffix", "ok"), 5},
		{"missing dataset file", ws.args("-dataset-id", "1", "-suffix", "ok"), 5},
		{"missing trace", ws.args("-dataset-id", "0", "-suffix", "nope"), 1},
		{"zero workers", ws.args("-dataset-id", "0", "-suffix", "ok", "-workers", "0"), 2},
		{"negative threshold", ws.args("-dataset-id", "0", "-suffix", "ok", "-threshold", "-1"), 2},
		{"truncated trace", ws.args("-dataset-id", "0", "-suffix", "short"), 3},
		{"invalid trace", ws.args("-dataset-id", "0", "-suffix", "bad"), 6},
		{"dimension mismatch", ws.args("-dataset-id", "0", "-suffix", "wide"), 2},
		{"unsupported scheme", ws.args("-dataset-id", "0", "-trace", "ftp://host/t.bin"), 2},
		{"unknown flag", []string{"-bogus"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := exec(t, tt.args...)
			assert.Equal(t, tt.want, code, stderr)
		})
	}

	t.Run("failed run leaves no report", func(t *testing.T) {
		_, err := os.Stat(filepath.Join(ws.resultsDir, "toy-short.csv"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := exec(t, "-version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "tracesim version dev")
}

func TestRun_ConfigFile(t *testing.T) {
	ws := newWorkspace(t)
	hdr, recs := testutil.NewRNG(4).RandomTrace(testutil.TraceSpec{Records: 5, Dim: 3})
	ws.writeTrace(t, "toy-cfg.bin", testutil.EncodeTrace(hdr, recs))

	cfgPath := filepath.Join(t.TempDir(), "tracesim.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("workers: 0\n"), 0o644))

	code, _, _ := exec(t, ws.args("-config", cfgPath, "-dataset-id", "0", "-suffix", "cfg")...)
	assert.Equal(t, 2, code, "invalid file value is rejected")

	code, stdout, stderr := exec(t, ws.args("-config", cfgPath, "-dataset-id", "0", "-suffix", "cfg", "-workers", "2")...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "  - W        : 2", "flags override the file")
}

func TestReportLocation(t *testing.T) {
	assert.Equal(t, "results/a-b.csv", reportLocation("results/a-b.bin"))
	assert.Equal(t, "results/a-b.csv", reportLocation("results/a-b.bin.zst"))
	assert.Equal(t, "s3://bucket/x.csv", reportLocation("s3://bucket/x.bin.lz4"))
	assert.Equal(t, "trace.csv", reportLocation("trace"))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0:0:0", formatElapsed(999*time.Millisecond))
	assert.Equal(t, "1:2:5", formatElapsed(3725*time.Second))
	assert.Equal(t, "26:0:59", formatElapsed(26*time.Hour+59*time.Second))
}
