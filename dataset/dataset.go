// Package dataset loads the labelled sample matrices that evaluators are
// built from, together with the datasets.lst catalog naming them.
package dataset

import (
	"errors"

	"github.com/hupe1980/tracesim/internal/math32"
)

var (
	// ErrMalformed is returned for unparsable dataset or catalog lines.
	ErrMalformed = errors.New("dataset: malformed input")

	// ErrUnknownDataset is returned when a catalog lookup fails.
	ErrUnknownDataset = errors.New("dataset: unknown dataset")
)

// Dataset is an immutable labelled sample matrix stored either dense
// (row-major) or in compressed sparse row form.
//
// A Dataset is safe for concurrent reads.
type Dataset struct {
	labels    []float32
	nfeatures int
	dense     bool

	values []float32
	rowPtr []int
	colIdx []int32
}

// NewDense builds a dense dataset from row-major values.
func NewDense(labels []float32, nfeatures int, values []float32) *Dataset {
	return &Dataset{
		labels:    labels,
		nfeatures: nfeatures,
		dense:     true,
		values:    values,
	}
}

// NewSparse builds a CSR dataset. rowPtr has len(labels)+1 entries.
func NewSparse(labels []float32, nfeatures int, rowPtr []int, colIdx []int32, values []float32) *Dataset {
	return &Dataset{
		labels:    labels,
		nfeatures: nfeatures,
		values:    values,
		rowPtr:    rowPtr,
		colIdx:    colIdx,
	}
}

// NumSamples returns the number of rows.
func (d *Dataset) NumSamples() int { return len(d.labels) }

// NumFeatures returns the number of columns.
func (d *Dataset) NumFeatures() int { return d.nfeatures }

// Dense reports whether rows are stored densely.
func (d *Dataset) Dense() bool { return d.dense }

// Label returns the label of row i.
func (d *Dataset) Label(i int) float32 { return d.labels[i] }

// NonZeros returns the number of stored values.
func (d *Dataset) NonZeros() int { return len(d.values) }

// Row returns a view of row i. The view aliases the dataset's storage.
func (d *Dataset) Row(i int) Row {
	if d.dense {
		return Row{Values: d.values[i*d.nfeatures : (i+1)*d.nfeatures]}
	}
	lo, hi := d.rowPtr[i], d.rowPtr[i+1]
	return Row{Indices: d.colIdx[lo:hi], Values: d.values[lo:hi]}
}

// Row is one sample. Indices is nil for dense rows.
type Row struct {
	Indices []int32
	Values  []float32
}

// Dot returns the inner product of the row with x.
func (r Row) Dot(x []float32) float32 {
	if r.Indices == nil {
		return math32.Dot(r.Values, x)
	}
	var s float32
	for k, j := range r.Indices {
		s += r.Values[k] * x[j]
	}
	return s
}

// AddScaledTo computes y += alpha*row.
func (r Row) AddScaledTo(alpha float32, y []float32) {
	if r.Indices == nil {
		math32.Axpy(alpha, r.Values, y)
		return
	}
	for k, j := range r.Indices {
		y[j] += alpha * r.Values[k]
	}
}
