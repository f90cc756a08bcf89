package replay

import (
	"errors"
	"fmt"
	"math"
	"runtime"
)

// DefaultThreshold is the fraction of the largest coordinate magnitude a
// coordinate must reach to be counted as non-zero.
const DefaultThreshold float32 = 0.01

var (
	// ErrInvalidConfig is returned before any worker starts when the
	// configuration cannot be run.
	ErrInvalidConfig = errors.New("invalid replay configuration")

	// ErrMemoryBudget is returned when the result store and worker buffers
	// do not fit the resource controller's memory limit.
	ErrMemoryBudget = errors.New("replay exceeds memory budget")

	// ErrIncomplete is returned if a slot was left empty or written twice.
	ErrIncomplete = errors.New("replay produced an incomplete result set")
)

// Config holds the replay parameters.
type Config struct {
	// Workers is the number of concurrent workers. Must be >= 1.
	Workers int

	// Threshold is the sparsity threshold. Must be finite and >= 0.
	Threshold float32
}

// DefaultConfig uses one worker per CPU and DefaultThreshold.
func DefaultConfig() Config {
	return Config{
		Workers:   runtime.NumCPU(),
		Threshold: DefaultThreshold,
	}
}

// Validate reports whether c can be run.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: worker count must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	t := float64(c.Threshold)
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return fmt.Errorf("%w: threshold must be a finite value >= 0, got %v", ErrInvalidConfig, c.Threshold)
	}
	return nil
}
