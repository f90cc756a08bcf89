package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tracesim/trace"
)

func readTrace(t *testing.T, path string) (trace.Header, []trace.Record) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rc, err := trace.NewDecompressor(f, trace.CompressionFromName(path))
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	r, err := trace.NewReader(rc)
	require.NoError(t, err)

	var recs []trace.Record
	for r.Remaining() > 0 {
		rec := trace.Record{}
		require.NoError(t, r.Next(&rec))
		recs = append(recs, rec)
	}
	return r.Header(), recs
}

func TestRun_WritesTrace(t *testing.T) {
	for _, name := range []string{"t.bin", "t.bin.zst", "t.bin.lz4", "t.bin.sz"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), name)
			var stdout bytes.Buffer
			err := run(context.Background(), []string{
				"-records", "25", "-dim", "6", "-lambda1", "0.25", "-seed", "7", "-zero-every", "5", "-out", out,
			}, &stdout, &bytes.Buffer{})
			require.NoError(t, err)
			assert.Contains(t, stdout.String(), "Wrote 25 records of dimension 6")

			hdr, recs := readTrace(t, out)
			assert.Equal(t, trace.Header{Lambda1: 0.25, RecordCount: 25, Dimension: 6}, hdr)
			require.Len(t, recs, 25)
			assert.Equal(t, make([]float32, 6), recs[0].X)
			for i := 1; i < len(recs); i++ {
				assert.Greater(t, recs[i].Iteration, recs[i-1].Iteration)
			}
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.bin", "b.bin"} {
		require.NoError(t, run(context.Background(), []string{"-records", "10", "-dim", "3", "-seed", "42", "-out", filepath.Join(dir, name)}, &bytes.Buffer{}, &bytes.Buffer{}))
	}

	a, err := os.ReadFile(filepath.Join(dir, "a.bin"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "b.bin"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRun_Errors(t *testing.T) {
	out := filepath.Join(t.TempDir(), "t.bin")

	tests := []struct {
		name string
		args []string
	}{
		{"missing out", []string{"-records", "1"}},
		{"negative records", []string{"-records", "-1", "-out", out}},
		{"bad density", []string{"-density", "2", "-out", out}},
		{"unsupported scheme", []string{"-out", "ftp://host/t.bin"}},
		{"unknown flag", []string{"-bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, run(context.Background(), tt.args, &bytes.Buffer{}, &bytes.Buffer{}))
		})
	}

	_, err := os.Stat(out)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_Help(t *testing.T) {
	err := run(context.Background(), []string{"-h"}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, flag.ErrHelp))
}
