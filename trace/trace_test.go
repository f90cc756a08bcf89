package trace

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTrace(t *testing.T, hdr Header, recs []Record) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, hdr)
	require.NoError(t, err)
	for _, rec := range recs {
		require.NoError(t, w.Write(rec))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestWriterReader_RoundTrip(t *testing.T) {
	hdr := Header{Lambda1: 0.5, RecordCount: 2, Dimension: 3}
	recs := []Record{
		{Iteration: 1, Timestamp: 0, X: []float32{1, 2, 3}},
		{Iteration: 5, Timestamp: 1.5, X: []float32{0, 0, 0}},
	}
	data := writeTrace(t, hdr, recs)
	require.Len(t, data, HeaderSize+2*RecordSize(3))

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, hdr, r.Header())
	assert.Equal(t, 20, r.RecordSize())

	var rec Record
	for i, want := range recs {
		require.NoError(t, r.Next(&rec))
		assert.Equal(t, want, rec, "record %d", i)
	}
	assert.Equal(t, 0, r.Remaining())

	// Exhaustion is sticky.
	require.ErrorIs(t, r.Next(&rec), io.EOF)
	require.ErrorIs(t, r.Next(&rec), io.EOF)
}

func TestReader_TruncatedHeader(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{1, 2, 3, 4, 5}))
	require.ErrorIs(t, err, ErrTruncated)

	var te *TruncatedError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, -1, te.Record)
	assert.Equal(t, 5, te.Got)
	assert.Equal(t, HeaderSize, te.Want)
}

func TestReader_TruncatedRecords(t *testing.T) {
	full := writeTrace(t, Header{RecordCount: 3, Dimension: 2}, []Record{
		{Iteration: 0, X: []float32{1, 1}},
		{Iteration: 1, X: []float32{2, 2}},
		{Iteration: 2, X: []float32{3, 3}},
	})

	// Rewrite the header to promise five records.
	var hdr [HeaderSize]byte
	encodeHeader(hdr[:], Header{RecordCount: 5, Dimension: 2})
	data := append(hdr[:], full[HeaderSize:]...)

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	var rec Record
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Next(&rec))
	}

	err = r.Next(&rec)
	require.ErrorIs(t, err, ErrTruncated)
	var te *TruncatedError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 3, te.Record)
	assert.Equal(t, 0, te.Got)
}

func TestReader_PartialRecord(t *testing.T) {
	data := writeTrace(t, Header{RecordCount: 1, Dimension: 4}, []Record{
		{Iteration: 7, X: []float32{1, 2, 3, 4}},
	})

	r, err := NewReader(bytes.NewReader(data[:len(data)-3]))
	require.NoError(t, err)

	buf := make([]byte, r.RecordSize())
	err = r.ReadRaw(buf)
	require.ErrorIs(t, err, ErrTruncated)
	assert.NotErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestReader_TruncationIsNotEOF(t *testing.T) {
	full := writeTrace(t, Header{RecordCount: 3, Dimension: 2}, []Record{
		{Iteration: 0, X: []float32{1, 1}},
		{Iteration: 1, X: []float32{2, 2}},
		{Iteration: 2, X: []float32{3, 3}},
	})

	var hdr [HeaderSize]byte
	encodeHeader(hdr[:], Header{RecordCount: 5, Dimension: 2})
	r, err := NewReader(bytes.NewReader(append(hdr[:], full[HeaderSize:]...)))
	require.NoError(t, err)

	var (
		rec  Record
		read int
	)
	for {
		if err = r.Next(&rec); err != nil {
			break
		}
		read++
	}
	assert.Equal(t, 3, read)
	require.ErrorIs(t, err, ErrTruncated)
	assert.NotErrorIs(t, err, io.EOF, "a read loop must not mistake truncation for the end of the trace")
}

func TestReader_InvalidHeader(t *testing.T) {
	var hdr [HeaderSize]byte
	encodeHeader(hdr[:], Header{RecordCount: -1, Dimension: 3})

	_, err := NewReader(bytes.NewReader(hdr[:]))
	require.ErrorIs(t, err, ErrInvalidHeader)

	_, err = NewWriter(io.Discard, Header{RecordCount: 1, Dimension: -2})
	require.ErrorIs(t, err, ErrInvalidHeader)
}

func TestReader_ZeroDimension(t *testing.T) {
	data := writeTrace(t, Header{RecordCount: 2}, []Record{
		{Iteration: 1, Timestamp: 0.25},
		{Iteration: 2, Timestamp: 0.5},
	})

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	var rec Record
	require.NoError(t, r.Next(&rec))
	assert.Empty(t, rec.X)
	require.NoError(t, r.Next(&rec))
	assert.Equal(t, int32(2), rec.Iteration)
}

func TestReader_ReadRawBufferSize(t *testing.T) {
	data := writeTrace(t, Header{RecordCount: 1, Dimension: 1}, []Record{{X: []float32{1}}})
	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	require.Error(t, r.ReadRaw(make([]byte, 3)))
	assert.Equal(t, 0, r.Consumed())
}

func TestWriter_RecordCountMismatch(t *testing.T) {
	w, err := NewWriter(io.Discard, Header{RecordCount: 2, Dimension: 1})
	require.NoError(t, err)

	require.ErrorIs(t, w.Write(Record{X: []float32{1, 2}}), ErrDimensionMismatch)
	require.NoError(t, w.Write(Record{X: []float32{1}}))
	require.ErrorIs(t, w.Close(), ErrRecordCount)

	w, err = NewWriter(io.Discard, Header{RecordCount: 1, Dimension: 1})
	require.NoError(t, err)
	require.NoError(t, w.Write(Record{X: []float32{1}}))
	require.ErrorIs(t, w.Write(Record{X: []float32{1}}), ErrRecordCount)
}

func TestDecodeRecord_ReusesBuffer(t *testing.T) {
	buf := make([]byte, RecordSize(2))
	EncodeRecord(buf, Record{Iteration: 3, Timestamp: 2, X: []float32{-1, 4}})

	backing := make([]float32, 8)
	rec := Record{X: backing}
	DecodeRecord(buf, &rec)

	assert.Equal(t, []float32{-1, 4}, rec.X)
	assert.Same(t, &backing[0], &rec.X[0])
}

func TestCompression_RoundTrip(t *testing.T) {
	hdr := Header{Lambda1: 1e-3, RecordCount: 50, Dimension: 16}
	recs := make([]Record, hdr.RecordCount)
	for i := range recs {
		x := make([]float32, hdr.Dimension)
		for j := range x {
			x[j] = float32(i*j) / 7
		}
		recs[i] = Record{Iteration: int32(i * 100), Timestamp: float32(i) / 10, X: x}
	}
	raw := writeTrace(t, hdr, recs)

	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4, CompressionSnappy} {
		t.Run(c.String(), func(t *testing.T) {
			var compressed bytes.Buffer
			cw, err := NewCompressor(&compressed, c)
			require.NoError(t, err)
			_, err = cw.Write(raw)
			require.NoError(t, err)
			require.NoError(t, cw.Close())

			dr, err := NewDecompressor(&compressed, c)
			require.NoError(t, err)
			defer dr.Close()

			r, err := NewReader(dr)
			require.NoError(t, err)
			assert.Equal(t, hdr, r.Header())

			var rec Record
			for i := range recs {
				require.NoError(t, r.Next(&rec))
				assert.Equal(t, recs[i], rec)
			}
			require.ErrorIs(t, r.Next(&rec), io.EOF)
		})
	}
}

func TestCompressionFromName(t *testing.T) {
	tests := map[string]Compression{
		"results/a9a-serial.bin":        CompressionNone,
		"results/a9a-serial.bin.zst":    CompressionZstd,
		"results/a9a-serial.bin.zstd":   CompressionZstd,
		"results/a9a-serial.bin.lz4":    CompressionLZ4,
		"results/a9a-serial.bin.sz":     CompressionSnappy,
		"results/a9a-serial.bin.snappy": CompressionSnappy,
	}
	for name, want := range tests {
		assert.Equal(t, want, CompressionFromName(name), name)
		if want != CompressionNone {
			assert.NotEmpty(t, want.Extension())
		}
	}
	assert.Equal(t, ".zst", CompressionZstd.Extension())
}
