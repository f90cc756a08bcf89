// Package trace reads and writes optimizer traces.
//
// A trace is a header followed by fixed-size records, all fields in the
// native byte order of the host that produced it:
//
//	Header:  lambda1:f32  recordCount:i32  dimension:i32
//	Record:  iteration:i32  timestamp:f32  x:f32[dimension]
//
// Records appear in the order the optimizer logged them; that order is the
// only ordering key. Traces may be wrapped in zstd, lz4 or snappy framing,
// selected by file extension.
package trace
