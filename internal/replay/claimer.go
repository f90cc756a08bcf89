package replay

import (
	"sync"

	"github.com/hupe1980/tracesim/trace"
)

// claimer pairs slot assignment with the sequential read of the matching
// record. Both happen under one lock: the reader is a single cursor with no
// independent position, so splitting them would let two workers interleave
// reads of the same byte range.
type claimer struct {
	mu   sync.Mutex
	src  *trace.Reader
	next int
	n    int
	err  error
}

func newClaimer(src *trace.Reader) *claimer {
	return &claimer{
		src: src,
		n:   int(src.Header().RecordCount),
	}
}

// claim reads the next record's bytes into raw and returns its slot.
//
// ok is false once every record has been claimed, and stays false. A read
// failure is sticky: every later claim returns the same error.
func (c *claimer) claim(raw []byte) (slot int, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return 0, false, c.err
	}
	if c.next >= c.n {
		return 0, false, nil
	}

	if err := c.src.ReadRaw(raw); err != nil {
		c.err = err
		return 0, false, err
	}

	slot = c.next
	c.next++
	return slot, true, nil
}

// claimed returns the number of successful claims.
func (c *claimer) claimed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}
