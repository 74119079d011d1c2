package segio

import "github.com/pkg/errors"

// Sentinel errors for the segio core. Callers unwrap with errors.Is; all
// wrapping at package boundaries uses github.com/pkg/errors so a stack
// trace is attached at the point the error originated, matching the
// teacher's error-handling style in cas/ and repo/encryption.
var (
	// ErrIllegalArgument reports a precondition violation on an argument,
	// e.g. a negative byte count or a minCapacity outside [1, SegSize].
	ErrIllegalArgument = errors.New("segio: illegal argument")

	// ErrIllegalState reports an invariant violation, e.g. removing or
	// splitting the head of an empty buffer, or writing into a segment
	// that is not an owner.
	ErrIllegalState = errors.New("segio: illegal state")
)
