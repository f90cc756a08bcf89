package tracesim

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tracesim/dataset"
	"github.com/hupe1980/tracesim/internal/replay"
	"github.com/hupe1980/tracesim/loss"
	"github.com/hupe1980/tracesim/trace"
)

// Kind classifies a failure. Each kind maps to a distinct process exit status.
type Kind int

const (
	// KindIO covers open, read and write failures other than truncation.
	KindIO Kind = iota + 1
	// KindConfig is an invalid worker count, threshold or memory budget.
	KindConfig
	// KindTruncatedTrace means the trace ended before its declared records.
	KindTruncatedTrace
	// KindEvaluator is a failure of the objective evaluator.
	KindEvaluator
	// KindDataset is a dataset or catalog load failure.
	KindDataset
	// KindInvalidTrace is a trace header that cannot describe a trace.
	KindInvalidTrace
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindConfig:
		return "config"
	case KindTruncatedTrace:
		return "truncated_trace"
	case KindEvaluator:
		return "evaluator"
	case KindDataset:
		return "dataset"
	case KindInvalidTrace:
		return "invalid_trace"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ExitCode returns the process exit status for k.
func (k Kind) ExitCode() int {
	if k < KindIO || k > KindInvalidTrace {
		return int(KindIO)
	}
	return int(k)
}

// Error is the typed failure returned by Simulate.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrIO             = &Error{Kind: KindIO}
	ErrConfig         = &Error{Kind: KindConfig}
	ErrTruncatedTrace = &Error{Kind: KindTruncatedTrace}
	ErrEvaluator      = &Error{Kind: KindEvaluator}
	ErrDataset        = &Error{Kind: KindDataset}
	ErrInvalidTrace   = &Error{Kind: KindInvalidTrace}
)

// KindOf returns the kind of err, or KindIO for unclassified errors.
// It returns 0 for a nil error.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return translateError("", err).(*Error).Kind
}

func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	kind := KindIO

	var ee *replay.EvaluatorError
	switch {
	case errors.Is(err, replay.ErrInvalidConfig), errors.Is(err, replay.ErrMemoryBudget):
		kind = KindConfig
	case errors.Is(err, trace.ErrTruncated):
		kind = KindTruncatedTrace
	case errors.Is(err, trace.ErrInvalidHeader):
		kind = KindInvalidTrace
	case errors.As(err, &ee), errors.Is(err, loss.ErrDimensionMismatch):
		kind = KindEvaluator
	case errors.Is(err, dataset.ErrMalformed), errors.Is(err, dataset.ErrUnknownDataset):
		kind = KindDataset
	}

	return &Error{Kind: kind, Op: op, Err: err}
}
