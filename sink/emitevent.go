package sink

import "github.com/segio/segio"

// emitEvent is one unit of work posted by the producer side and consumed
// by the background emitter (spec.md §3's Emit Event). segment and
// limitSnapshot together pin exactly how far the emitter should drain:
// the snapshot matters because segment's own limit can keep growing after
// the event is posted if it is still the owner tail.
type emitEvent struct {
	segment       *segio.Segment
	includingTail bool
	limitSnapshot int
	flush         bool
}
