// Package cancel implements a per-logical-call cancellation context: a
// stack of cancel tokens (timeouts, deadlines, explicit cancellation)
// consulted at every suspension point in segio/sink. Grounded on the
// teacher's use of context.Context for deadline propagation throughout
// repo/content and blob, generalized into an explicit scope value per
// spec.md §9's rejection of a thread-local deque.
package cancel

import "github.com/pkg/errors"

// ErrCancelled reports that an operation was aborted because its
// effective token's deadline was reached or it was explicitly cancelled.
var ErrCancelled = errors.New("cancel: operation cancelled")
