package trace

import (
	"encoding/binary"
	"math"
)

// HeaderSize is the encoded size of a Header in bytes.
const HeaderSize = 12

// recordPrefixSize covers the iteration and timestamp fields.
const recordPrefixSize = 8

// byteOrder is the order used by the optimizer that produced the trace.
//
// Traces carry no byte-order marker, so a trace written on a big-endian host
// cannot be replayed on a little-endian one (and vice versa).
var byteOrder = binary.NativeEndian

// Header is written once at the start of a trace.
type Header struct {
	// Lambda1 is the L1 regularization weight used by the optimizer.
	Lambda1 float32
	// RecordCount is the number of records that follow the header.
	RecordCount int32
	// Dimension is the length of every decision vector.
	Dimension int32
}

// Validate reports whether the header describes a readable trace.
func (h Header) Validate() error {
	if h.RecordCount < 0 || h.Dimension < 0 {
		return &InvalidHeaderError{Header: h}
	}
	return nil
}

// RecordSize returns the encoded size of a single record in bytes.
func (h Header) RecordSize() int {
	return RecordSize(int(h.Dimension))
}

// RecordSize returns the encoded size of a record with a d-dimensional vector.
func RecordSize(d int) int {
	return recordPrefixSize + 4*d
}

// Record is one logged iterate.
type Record struct {
	Iteration int32
	Timestamp float32
	X         []float32
}

func encodeHeader(dst []byte, h Header) {
	byteOrder.PutUint32(dst[0:4], math.Float32bits(h.Lambda1))
	byteOrder.PutUint32(dst[4:8], uint32(h.RecordCount))
	byteOrder.PutUint32(dst[8:12], uint32(h.Dimension))
}

// AppendHeader appends the encoding of h to dst.
func AppendHeader(dst []byte, h Header) []byte {
	var buf [HeaderSize]byte
	encodeHeader(buf[:], h)
	return append(dst, buf[:]...)
}

func decodeHeader(src []byte) Header {
	return Header{
		Lambda1:     math.Float32frombits(byteOrder.Uint32(src[0:4])),
		RecordCount: int32(byteOrder.Uint32(src[4:8])),
		Dimension:   int32(byteOrder.Uint32(src[8:12])),
	}
}

// EncodeRecord writes rec into dst, which must be RecordSize(len(rec.X)) bytes.
func EncodeRecord(dst []byte, rec Record) {
	byteOrder.PutUint32(dst[0:4], uint32(rec.Iteration))
	byteOrder.PutUint32(dst[4:8], math.Float32bits(rec.Timestamp))
	off := recordPrefixSize
	for _, v := range rec.X {
		byteOrder.PutUint32(dst[off:off+4], math.Float32bits(v))
		off += 4
	}
}

// DecodeRecord decodes an encoded record into rec.
//
// rec.X is resized to the vector length implied by len(src), reusing its
// backing array when the capacity allows.
func DecodeRecord(src []byte, rec *Record) {
	d := (len(src) - recordPrefixSize) / 4
	if cap(rec.X) < d {
		rec.X = make([]float32, d)
	}
	rec.X = rec.X[:d]

	rec.Iteration = int32(byteOrder.Uint32(src[0:4]))
	rec.Timestamp = math.Float32frombits(byteOrder.Uint32(src[4:8]))
	off := recordPrefixSize
	for i := range rec.X {
		rec.X[i] = math.Float32frombits(byteOrder.Uint32(src[off : off+4]))
		off += 4
	}
}
