package cancel

import (
	"context"
	"sync"
	"time"
)

// Scope is an explicit, per-call-chain cancellation stack. Unlike a
// thread-local deque, a Scope is a value callers create once (per
// goroutine tree, typically) and thread through explicitly to every
// collaborator that needs to consult it — the re-architecture spec.md §9
// calls for in place of the source's global thread-local state.
type Scope struct {
	mu    sync.Mutex
	stack []*Token
}

// NewScope creates an empty cancellation scope.
func NewScope() *Scope {
	return &Scope{}
}

func (s *Scope) push(t *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stack = append(s.stack, t)
}

// runCancellable pushes tok, runs body, and marks tok finished on every
// exit path (including panics), per spec.md §4.6's run_cancellable.
func (s *Scope) runCancellable(tok *Token, body func() error) (err error) {
	s.push(tok)
	defer tok.finished.Store(true)

	return body()
}

// WithTimeout pushes a relative-timeout token for the duration of body.
func (s *Scope) WithTimeout(d time.Duration, body func() error) error {
	return s.runCancellable(timeoutToken(d), body)
}

// WithDeadline pushes an absolute-deadline token for the duration of body.
func (s *Scope) WithDeadline(at time.Time, body func() error) error {
	return s.runCancellable(deadlineToken(at), body)
}

// Shielded pushes a token that hides every older token (and itself) from
// the effective-token computation for the duration of body: a way to run
// cleanup work that must not be aborted by an enclosing timeout.
func (s *Scope) Shielded(body func() error) error {
	return s.runCancellable(shieldedToken(), body)
}

// Cancel marks the innermost not-yet-finished token as cancelled. Every
// blocking operation consulting this scope observes it at its next
// ThrowIfReached check.
func (s *Scope) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.stack) - 1; i >= 0; i-- {
		t := s.stack[i]
		if t.finished.Load() {
			continue
		}

		t.cancelled.Store(true)

		return
	}
}

// Effective walks the stack from the top, dropping finished tokens
// (removing them from the stack as a side effect) and stopping at the
// first shielded token — which hides itself and everything below it from
// the intersection, per spec.md §4.6.
func (s *Scope) Effective() *EffectiveToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	newStack := make([]*Token, 0, len(s.stack))
	var seen []*Token
	stopped := false

	for i := len(s.stack) - 1; i >= 0; i-- {
		t := s.stack[i]
		if t.finished.Load() {
			continue
		}

		newStack = append(newStack, t)

		if !stopped {
			if t.shielded {
				stopped = true
			} else {
				seen = append(seen, t)
			}
		}
	}

	// newStack was built top-first; reverse it back to bottom-to-top
	// order before storing.
	for l, r := 0, len(newStack)-1; l < r; l, r = l+1, r-1 {
		newStack[l], newStack[r] = newStack[r], newStack[l]
	}

	s.stack = newStack

	if len(seen) == 0 {
		return nil
	}

	return intersect(seen)
}

// intersect combines tokens seen top-first (seen[0] is the innermost).
func intersect(seen []*Token) *EffectiveToken {
	eff := &EffectiveToken{}

	for _, t := range seen {
		if t.cancelled.Load() {
			eff.cancelled = true
		}

		if !t.deadline.IsZero() {
			if eff.deadline.IsZero() || t.deadline.Before(eff.deadline) {
				eff.deadline = t.deadline
			}
		}
	}

	if eff.deadline.IsZero() {
		for _, t := range seen {
			if t.timeout != 0 {
				eff.timeout = t.timeout
				break
			}
		}
	}

	return eff
}

// ThrowIfReached returns ErrCancelled if eff is cancelled or its deadline
// has already passed; otherwise nil. A nil eff (no scope in effect) never
// errors. Timeout-only tokens are not instantaneously checkable here —
// callers bound their actual wait using Context, which turns Timeout into
// a context.Context deadline.
func ThrowIfReached(eff *EffectiveToken) error {
	if eff == nil {
		return nil
	}

	if eff.Cancelled() {
		return ErrCancelled
	}

	if dl, ok := eff.Deadline(); ok && !time.Now().Before(dl) {
		return ErrCancelled
	}

	return nil
}

// Context derives a context.Context from eff layered onto parent: a
// deadline becomes context.WithDeadline, an unresolved timeout becomes
// context.WithTimeout, and a nil eff (or one with neither) returns parent
// unchanged. This is how the cancellation model reaches external
// RawSink/RawSource calls, which take a context.Context per Go
// convention (SPEC_FULL.md §6).
func (e *EffectiveToken) Context(parent context.Context) (context.Context, context.CancelFunc) {
	if e == nil {
		return parent, func() {}
	}

	if dl, ok := e.Deadline(); ok {
		return context.WithDeadline(parent, dl)
	}

	if to, ok := e.Timeout(); ok {
		return context.WithTimeout(parent, to)
	}

	return parent, func() {}
}
