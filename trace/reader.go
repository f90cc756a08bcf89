package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const defaultBufferSize = 64 << 10

// Reader reads a trace sequentially.
//
// A Reader is a single stateful cursor and is not safe for concurrent use;
// callers sharing one must serialize access themselves.
type Reader struct {
	r    io.Reader
	hdr  Header
	read int
}

// NewReader reads and validates the header from r.
func NewReader(r io.Reader) (*Reader, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, defaultBufferSize)
	}

	var buf [HeaderSize]byte
	n, err := io.ReadFull(br, buf[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &TruncatedError{Record: -1, Want: HeaderSize, Got: n}
		}
		return nil, fmt.Errorf("failed to read trace header: %w", err)
	}

	hdr := decodeHeader(buf[:])
	if err := hdr.Validate(); err != nil {
		return nil, err
	}

	return &Reader{r: br, hdr: hdr}, nil
}

// Header returns the trace header.
func (r *Reader) Header() Header {
	return r.hdr
}

// RecordSize returns the encoded size of one record.
func (r *Reader) RecordSize() int {
	return r.hdr.RecordSize()
}

// Consumed returns the number of records read so far.
func (r *Reader) Consumed() int {
	return r.read
}

// Remaining returns the number of records not yet read.
func (r *Reader) Remaining() int {
	return int(r.hdr.RecordCount) - r.read
}

// ReadRaw reads the next encoded record into p, which must be exactly
// RecordSize bytes long.
//
// It returns io.EOF once every record promised by the header has been read,
// and keeps returning io.EOF afterwards. A short read yields a
// *TruncatedError.
func (r *Reader) ReadRaw(p []byte) error {
	if r.read >= int(r.hdr.RecordCount) {
		return io.EOF
	}
	if len(p) != r.RecordSize() {
		return fmt.Errorf("record buffer is %d bytes, want %d", len(p), r.RecordSize())
	}

	n, err := io.ReadFull(r.r, p)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return &TruncatedError{Record: r.read, Want: len(p), Got: n}
		}
		return fmt.Errorf("failed to read record %d: %w", r.read, err)
	}

	r.read++
	return nil
}

// Next reads and decodes the next record into rec.
func (r *Reader) Next(rec *Record) error {
	buf := make([]byte, r.RecordSize())
	if err := r.ReadRaw(buf); err != nil {
		return err
	}
	DecodeRecord(buf, rec)
	return nil
}
