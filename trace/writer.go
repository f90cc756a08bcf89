package trace

import (
	"bufio"
	"fmt"
	"io"
)

// Writer produces a trace in the format the optimizer logs.
type Writer struct {
	bw      *bufio.Writer
	hdr     Header
	written int
	buf     []byte
	closed  bool
}

// NewWriter validates hdr and writes it to w.
func NewWriter(w io.Writer, hdr Header) (*Writer, error) {
	if err := hdr.Validate(); err != nil {
		return nil, err
	}

	bw := bufio.NewWriterSize(w, defaultBufferSize)

	var buf [HeaderSize]byte
	encodeHeader(buf[:], hdr)
	if _, err := bw.Write(buf[:]); err != nil {
		return nil, fmt.Errorf("failed to write trace header: %w", err)
	}

	return &Writer{
		bw:  bw,
		hdr: hdr,
		buf: make([]byte, hdr.RecordSize()),
	}, nil
}

// Write appends one record.
func (w *Writer) Write(rec Record) error {
	if w.closed {
		return io.ErrClosedPipe
	}
	if len(rec.X) != int(w.hdr.Dimension) {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(rec.X), w.hdr.Dimension)
	}
	if w.written >= int(w.hdr.RecordCount) {
		return fmt.Errorf("%w: header declares %d records", ErrRecordCount, w.hdr.RecordCount)
	}

	EncodeRecord(w.buf, rec)
	if _, err := w.bw.Write(w.buf); err != nil {
		return fmt.Errorf("failed to write record %d: %w", w.written, err)
	}
	w.written++
	return nil
}

// Close flushes buffered data. It does not close the underlying writer.
//
// Close fails with ErrRecordCount if fewer records were written than the
// header declares.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace: %w", err)
	}
	if w.written != int(w.hdr.RecordCount) {
		return fmt.Errorf("%w: wrote %d of %d", ErrRecordCount, w.written, w.hdr.RecordCount)
	}
	return nil
}
