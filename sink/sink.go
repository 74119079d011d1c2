// Package sink implements the asynchronous sink queue (C4): a background
// emitter that drains a segio.Buffer into an external RawSink as a
// producer keeps writing, with flush barriers and backpressure. Grounded
// directly on the teacher's blob/writeback.go writeBackStorage, the
// clearest analogue in the retrieval pack of a producer/worker queue with
// a pause/release flush handshake and a deferred error.
package sink

import (
	"context"

	"github.com/segio/segio"
)

// RawSink is the minimal external byte-sink contract the core consumes.
// Write must consume exactly byteCount bytes from the front of buf (via
// buf.Read or equivalent); Flush forces any intermediary to commit; Close
// is idempotent.
type RawSink interface {
	Write(ctx context.Context, buf *segio.Buffer, byteCount int64) error
	Flush(ctx context.Context) error
	Close() error
}

// RawSource is the minimal external byte-source contract. ReadAtMostTo
// appends up to byteCount bytes to buf, returning the count actually
// appended, or -1 at end of stream.
type RawSource interface {
	ReadAtMostTo(ctx context.Context, buf *segio.Buffer, byteCount int64) (int64, error)
}
