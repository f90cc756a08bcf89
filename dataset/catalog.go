package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Entry is one line of datasets.lst.
type Entry struct {
	Name        string
	Dense       bool
	NumSamples  int
	NumFeatures int
}

func (e Entry) String() string {
	kind := "sparse"
	if e.Dense {
		kind = "dense"
	}
	return fmt.Sprintf("%s(%s)", e.Name, kind)
}

// Catalog is the ordered list of known datasets. IDs are line positions.
type Catalog struct {
	entries []Entry
}

// UnknownDatasetError is returned by Lookup for an out-of-range ID.
type UnknownDatasetError struct {
	ID        int
	Supported []Entry
}

func (e *UnknownDatasetError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dataset ID is set to %d; supported IDs are:", e.ID)
	for i, entry := range e.Supported {
		fmt.Fprintf(&b, "\n  - %d) %s", i, entry)
	}
	return b.String()
}

func (e *UnknownDatasetError) Unwrap() error { return ErrUnknownDataset }

// ParseCatalog reads "name dense [nsamples nfeatures]" lines.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	c := &Catalog{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 && len(fields) != 4 {
			return nil, fmt.Errorf("%w: catalog line %d: want 2 or 4 fields, got %d", ErrMalformed, lineNo, len(fields))
		}

		dense, err := strconv.ParseBool(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: catalog line %d: bad dense flag %q", ErrMalformed, lineNo, fields[1])
		}
		e := Entry{Name: fields[0], Dense: dense}
		if len(fields) == 4 {
			if e.NumSamples, err = strconv.Atoi(fields[2]); err != nil {
				return nil, fmt.Errorf("%w: catalog line %d: bad sample count %q", ErrMalformed, lineNo, fields[2])
			}
			if e.NumFeatures, err = strconv.Atoi(fields[3]); err != nil {
				return nil, fmt.Errorf("%w: catalog line %d: bad feature count %q", ErrMalformed, lineNo, fields[3])
			}
		}
		c.entries = append(c.entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return c, nil
}

// LoadCatalog parses the catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return ParseCatalog(f)
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns a copy of all entries.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Lookup returns the entry with the given ID.
func (c *Catalog) Lookup(id int) (Entry, error) {
	if id < 0 || id >= len(c.entries) {
		return Entry{}, &UnknownDatasetError{ID: id, Supported: c.Entries()}
	}
	return c.entries[id], nil
}
