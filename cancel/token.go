package cancel

import (
	"sync/atomic"
	"time"
)

// Token is one entry in a Scope's stack: a timeout/deadline/cancelled
// policy pushed for the duration of one logical call. Only one of
// timeout or deadline is normally set by a given With* call — deadline is
// an absolute point in time, timeout is a relative duration that a
// blocking primitive is expected to re-apply on its own (e.g. as a
// per-attempt socket timeout), matching spec.md §3's distinct
// timeout_nanos/deadline_nanos fields.
type Token struct {
	timeout  time.Duration
	deadline time.Time

	cancelled atomic.Bool
	shielded  bool
	finished  atomic.Bool
}

func timeoutToken(d time.Duration) *Token {
	return &Token{timeout: d}
}

func deadlineToken(at time.Time) *Token {
	return &Token{deadline: at}
}

func shieldedToken() *Token {
	return &Token{shielded: true}
}

// EffectiveToken is the resolved policy produced by intersecting every
// unshielded token visible from the top of a Scope's stack (spec.md
// §4.6). A nil *EffectiveToken means no policy is in effect at all.
type EffectiveToken struct {
	deadline time.Time
	timeout  time.Duration
	cancelled bool
}

// Deadline returns the intersected absolute deadline, if any.
func (e *EffectiveToken) Deadline() (time.Time, bool) {
	if e == nil || e.deadline.IsZero() {
		return time.Time{}, false
	}

	return e.deadline, true
}

// Timeout returns the nearest unresolved relative timeout, if any
// (only meaningful when Deadline is unset — see Token's doc comment).
func (e *EffectiveToken) Timeout() (time.Duration, bool) {
	if e == nil || e.timeout == 0 {
		return 0, false
	}

	return e.timeout, true
}

// Cancelled reports whether any token in the intersected chain was
// explicitly cancelled.
func (e *EffectiveToken) Cancelled() bool {
	return e != nil && e.cancelled
}
