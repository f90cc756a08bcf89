// Package report renders replay results as the k,t,fval,nnz CSV report.
package report

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/hupe1980/tracesim/internal/replay"
	"github.com/spaolacci/murmur3"
)

// Header is the first line of every report.
const Header = "k,t,fval,nnz"

// DefaultPrecision matches the significant digits of a default C++ ostream.
const DefaultPrecision = 6

// Options configures float formatting.
type Options struct {
	// Precision is the number of significant digits for t and fval.
	// Zero selects DefaultPrecision; -1 selects the shortest exact form.
	Precision int
}

// Writer streams report rows.
type Writer struct {
	bw   *bufio.Writer
	prec int
	buf  []byte
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer, opts Options) *Writer {
	prec := opts.Precision
	if prec == 0 {
		prec = DefaultPrecision
	}
	return &Writer{bw: bufio.NewWriter(w), prec: prec}
}

// WriteHeader writes the column header.
func (w *Writer) WriteHeader() error {
	_, err := w.bw.WriteString(Header + "\n")
	return err
}

// Write writes one row.
func (w *Writer) Write(r replay.Result) error {
	b := w.buf[:0]
	b = strconv.AppendInt(b, int64(r.Iteration), 10)
	b = append(b, ',')
	b = appendFloat(b, r.Timestamp, w.prec)
	b = append(b, ',')
	b = appendFloat(b, r.Objective, w.prec)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(r.SparseCount), 10)
	b = append(b, '\n')
	w.buf = b

	_, err := w.bw.Write(b)
	return err
}

// appendFloat formats v like a C++ ostream: non-finite values print as nan,
// inf and -inf.
func appendFloat(b []byte, v float32, prec int) []byte {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return append(b, "nan"...)
	case math.IsInf(f, 1):
		return append(b, "inf"...)
	case math.IsInf(f, -1):
		return append(b, "-inf"...)
	}
	return strconv.AppendFloat(b, f, 'g', prec, 32)
}

// Flush writes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Write renders res in slot order.
func Write(dst io.Writer, res *replay.Results, opts Options) error {
	w := NewWriter(dst, opts)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for i, r := range res.All() {
		if err := w.Write(r); err != nil {
			return fmt.Errorf("failed to write report row %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}

// Render returns the complete report for res.
func Render(res *replay.Results, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(Header) + 1 + res.Len()*32)
	if err := Write(&buf, res, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Digest returns a 128-bit murmur3 fingerprint of a rendered report as 32
// hex digits. Two runs over the same trace produce the same digest
// regardless of worker count.
func Digest(report []byte) string {
	h := murmur3.New128()
	_, _ = h.Write(report)
	hi, lo := h.Sum128()
	return fmt.Sprintf("%016x%016x", hi, lo)
}
