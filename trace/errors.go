package trace

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when the stream ends before the header's
	// promised records (or the header itself) have been read.
	ErrTruncated = errors.New("trace truncated")

	// ErrInvalidHeader is returned when the header cannot describe a trace.
	ErrInvalidHeader = errors.New("invalid trace header")

	// ErrRecordCount is returned by Writer.Close when the number of written
	// records differs from the header.
	ErrRecordCount = errors.New("record count does not match header")

	// ErrDimensionMismatch is returned when a record's vector length differs
	// from the header dimension.
	ErrDimensionMismatch = errors.New("record dimension does not match header")
)

// TruncatedError describes a short read.
//
// Record is -1 when the header itself was short. The error never matches
// io.EOF, which Reader reserves for a fully consumed trace.
type TruncatedError struct {
	Record int
	Want   int
	Got    int
}

func (e *TruncatedError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("trace truncated in header: read %d of %d bytes", e.Got, e.Want)
	}
	return fmt.Sprintf("trace truncated at record %d: read %d of %d bytes", e.Record, e.Got, e.Want)
}

func (e *TruncatedError) Unwrap() error { return ErrTruncated }

// InvalidHeaderError carries the rejected header.
type InvalidHeaderError struct {
	Header Header
}

func (e *InvalidHeaderError) Error() string {
	return fmt.Sprintf("invalid trace header: recordCount=%d dimension=%d", e.Header.RecordCount, e.Header.Dimension)
}

func (e *InvalidHeaderError) Unwrap() error { return ErrInvalidHeader }
