package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadOptions control how a LIBSVM file is materialized.
type ReadOptions struct {
	// Dense stores rows densely instead of in CSR form.
	Dense bool

	// NumFeatures fixes the column count. If 0, the largest index seen is used.
	NumFeatures int
}

type svmEntry struct {
	col int32
	val float32
}

// ReadSVM parses LIBSVM text ("label idx:val idx:val ...", 1-based indices).
// Blank lines and lines starting with '#' are skipped.
func ReadSVM(r io.Reader, opts ReadOptions) (*Dataset, error) {
	var (
		labels []float32
		rowPtr = []int{0}
		colIdx []int32
		values []float32
		maxCol int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 64<<20)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := strings.Fields(line)
		label, err := strconv.ParseFloat(fields[0], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad label %q", ErrMalformed, lineNo, fields[0])
		}

		row, err := parseSVMFeatures(fields[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
		for _, e := range row {
			if c := int(e.col) + 1; c > maxCol {
				maxCol = c
			}
			colIdx = append(colIdx, e.col)
			values = append(values, e.val)
		}

		labels = append(labels, float32(label))
		rowPtr = append(rowPtr, len(values))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read svm data: %w", err)
	}

	nfeatures := maxCol
	if opts.NumFeatures > 0 {
		if maxCol > opts.NumFeatures {
			return nil, fmt.Errorf("%w: feature index %d exceeds %d features", ErrMalformed, maxCol, opts.NumFeatures)
		}
		nfeatures = opts.NumFeatures
	}

	if !opts.Dense {
		return NewSparse(labels, nfeatures, rowPtr, colIdx, values), nil
	}

	dense := make([]float32, len(labels)*nfeatures)
	for i := range labels {
		base := i * nfeatures
		for k := rowPtr[i]; k < rowPtr[i+1]; k++ {
			dense[base+int(colIdx[k])] = values[k]
		}
	}
	return NewDense(labels, nfeatures, dense), nil
}

func parseSVMFeatures(fields []string) ([]svmEntry, error) {
	row := make([]svmEntry, 0, len(fields))
	prev := int32(-1)
	for _, f := range fields {
		idxStr, valStr, ok := strings.Cut(f, ":")
		if !ok {
			return nil, fmt.Errorf("bad feature %q", f)
		}
		idx, err := strconv.ParseInt(idxStr, 10, 32)
		if err != nil || idx < 1 {
			return nil, fmt.Errorf("bad feature index %q", idxStr)
		}
		val, err := strconv.ParseFloat(valStr, 32)
		if err != nil {
			return nil, fmt.Errorf("bad feature value %q", valStr)
		}
		col := int32(idx - 1)
		if col <= prev {
			return nil, fmt.Errorf("feature indices not increasing at %d", idx)
		}
		prev = col
		row = append(row, svmEntry{col: col, val: float32(val)})
	}
	return row, nil
}
