package sink

import "github.com/pkg/errors"

// ErrClosed reports an operation attempted on an already-closed Queue.
var ErrClosed = errors.New("sink: queue is closed")

// IOFailure wraps an error returned by the external RawSink/RawSource,
// preserving the original cause (spec.md §7's IOFailure).
type IOFailure struct {
	cause error
}

func wrapIOFailure(cause error) error {
	if cause == nil {
		return nil
	}

	return &IOFailure{cause: cause}
}

func (e *IOFailure) Error() string {
	return "sink: I/O failure: " + e.cause.Error()
}

func (e *IOFailure) Unwrap() error {
	return e.cause
}
