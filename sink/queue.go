package sink

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/segio/segio"
	"github.com/segio/segio/cancel"
	"github.com/segio/segio/internal/logging"
)

// DefaultMaxByteSize is the backpressure threshold applied when NewQueue
// is given maxByteSize <= 0 (spec.md §4.4's MAX_BYTE_SIZE default).
const DefaultMaxByteSize int64 = 128 * 1024

// Queue is the asynchronous sink queue (C4): producers write into buf and
// call EmitCompleteSegments/Emit to keep a single background emitter fed;
// the emitter drains completed segments into rawSink in strict order,
// honoring flush barriers and backpressure. Grounded on blob/writeback.go's
// writeBackStorage: a channel-shaped request queue feeding worker
// goroutines, a deferred error surfaced to the next caller, and a
// WaitGroup pause/release handshake standing in here for flushSignal.
type Queue struct {
	buf     *segio.Buffer
	rawSink RawSink
	scope   *cancel.Scope

	maxByteSize int64

	logger *zap.Logger
	id     uuid.UUID

	mu sync.Mutex

	events       []emitEvent
	eventsSignal chan struct{}

	lastEmittedSegment   *segio.Segment
	lastEmittedIncluding bool

	isQueueFull   bool
	notFullSignal chan struct{}

	flushSignal chan struct{}

	terminated     bool
	closeRequested bool
	savedErr       error

	emitterDone  chan struct{}
	closeSinkOnce sync.Once
}

// NewQueue creates a Queue draining buf into rawSink, starting its
// background emitter immediately. A nil scope gets an empty cancel.Scope
// (no deadline policy in effect). maxByteSize <= 0 uses
// DefaultMaxByteSize.
func NewQueue(buf *segio.Buffer, rawSink RawSink, scope *cancel.Scope, maxByteSize int64) *Queue {
	if scope == nil {
		scope = cancel.NewScope()
	}

	if maxByteSize <= 0 {
		maxByteSize = DefaultMaxByteSize
	}

	id := uuid.New()

	q := &Queue{
		buf:          buf,
		rawSink:      rawSink,
		scope:        scope,
		maxByteSize:  maxByteSize,
		id:           id,
		logger:       logging.L().With(zap.String("sink_queue_id", id.String())),
		eventsSignal: make(chan struct{}),
		notFullSignal: make(chan struct{}),
		flushSignal:  make(chan struct{}),
		emitterDone:  make(chan struct{}),
	}

	go q.emitterLoop()

	return q
}

// broadcastLocked wakes every goroutine currently waiting on *ch by
// closing it and installing a fresh channel for the next round — the
// channel-based analogue of a condition variable's Broadcast. Must be
// called with q.mu held.
func (q *Queue) broadcastLocked(ch *chan struct{}) {
	close(*ch)
	*ch = make(chan struct{})
}

// errLocked returns the error a producer call should currently surface:
// a saved emitter error takes precedence (fail-stop semantics, spec.md
// §7), otherwise ErrClosed once the queue has terminated cleanly. Must be
// called with q.mu held.
func (q *Queue) errLocked() error {
	if q.savedErr != nil {
		return q.savedErr
	}

	if q.terminated {
		return ErrClosed
	}

	return nil
}

// terminateLocked records the first error that poisons the queue and
// wakes every waiter so they observe it instead of hanging forever. Must
// be called with q.mu held.
func (q *Queue) terminateLocked(err error) {
	if q.savedErr == nil {
		q.savedErr = err
	}

	if q.terminated {
		return
	}

	q.terminated = true
	q.closeRequested = true

	q.broadcastLocked(&q.notFullSignal)
	q.broadcastLocked(&q.flushSignal)
}

func (q *Queue) closeSink() {
	q.closeSinkOnce.Do(func() {
		_ = q.rawSink.Close()
	})
}

func (q *Queue) pushEventLocked(ev emitEvent) {
	q.events = append(q.events, ev)
	q.broadcastLocked(&q.eventsSignal)
}

// postPartialTailLocked unconditionally posts an includingTail=true
// snapshot event for the current tail. Unlike EmitCompleteSegments, this
// forces includingTail regardless of whether the tail is still the
// owner's in-progress write target: under backpressure (spec.md §4.4) a
// segment smaller than SegSize is the only thing left to drain, and
// without this the emitter would have nothing to do until that tail
// happens to fill — which can never happen when maxByteSize < SegSize.
//
// It does not dedupe against lastEmittedSegment/lastEmittedIncluding the
// way EmitCompleteSegments does: those fields are stale the moment a
// drained segment is recycled and its *Segment pointer reused for an
// unrelated later tail, and a sticky "already posted" bit keyed only on
// that pointer would then wrongly suppress a genuinely new drain request
// for the reused object. PauseIfFull only reaches this call while already
// blocked, so the extra events this may post are bounded by actual
// wake/recheck cycles, not by every write. Must be called with q.mu held.
func (q *Queue) postPartialTailLocked() {
	tail := q.buf.Tail()
	if tail == nil {
		return
	}

	q.pushEventLocked(emitEvent{
		segment:       tail,
		includingTail: true,
		limitSnapshot: tail.Limit(),
	})

	q.lastEmittedSegment = tail
	q.lastEmittedIncluding = true
}

// PauseIfFull blocks the calling producer while the buffer holds more
// than maxByteSize bytes, per spec.md §4.4. Returns immediately with any
// saved emitter error, and with cancel.ErrCancelled if the effective
// cancellation token fires first.
func (q *Queue) PauseIfFull() error {
	q.mu.Lock()

	for q.buf.Size() > q.maxByteSize && q.errLocked() == nil {
		q.isQueueFull = true
		q.postPartialTailLocked()
		ch := q.notFullSignal
		eff := q.scope.Effective()
		q.mu.Unlock()

		if err := cancel.ThrowIfReached(eff); err != nil {
			q.mu.Lock()
			q.terminateLocked(err)
			q.mu.Unlock()
			q.closeSink()

			return err
		}

		ctx, cancelFn := eff.Context(context.Background())

		select {
		case <-ch:
			cancelFn()
		case <-ctx.Done():
			cancelFn()
			q.mu.Lock()
			q.terminateLocked(cancel.ErrCancelled)
			q.mu.Unlock()
			q.closeSink()

			return cancel.ErrCancelled
		}

		q.mu.Lock()
	}

	err := q.errLocked()
	q.mu.Unlock()

	return err
}

// EmitCompleteSegments posts a new EmitEvent for the current tail if (and
// only if) its (segment, includingTail) pair differs from the last one
// posted — the de-duplication spec.md §4.4 and §9's open question (a)
// call for, with includingTail always re-evaluated fresh against the
// tail's current state rather than cached.
func (q *Queue) EmitCompleteSegments() error {
	tail := q.buf.Tail()

	q.mu.Lock()
	defer q.mu.Unlock()

	if tail == nil {
		return q.errLocked()
	}

	includingTail := !tail.Owner() || tail.Limit() == segio.SegSize

	if q.lastEmittedSegment == tail && q.lastEmittedIncluding == includingTail {
		return q.errLocked()
	}

	q.pushEventLocked(emitEvent{
		segment:       tail,
		includingTail: includingTail,
		limitSnapshot: tail.Limit(),
	})

	q.lastEmittedSegment = tail
	q.lastEmittedIncluding = includingTail

	return q.errLocked()
}

// Emit always posts an event draining through the current tail
// (includingTail=true), and, if flush is true, additionally blocks until
// the emitter has called the sink's Flush and every byte written before
// this call has been observed by the sink.
func (q *Queue) Emit(flush bool) error {
	tail := q.buf.Tail()

	q.mu.Lock()

	if tail != nil {
		q.pushEventLocked(emitEvent{
			segment:       tail,
			includingTail: true,
			limitSnapshot: tail.Limit(),
			flush:         flush,
		})

		q.lastEmittedSegment = tail
		q.lastEmittedIncluding = true
	} else if flush {
		q.pushEventLocked(emitEvent{flush: true})
	}

	if !flush {
		defer q.mu.Unlock()

		return q.errLocked()
	}

	ch := q.flushSignal
	eff := q.scope.Effective()
	q.mu.Unlock()

	if err := cancel.ThrowIfReached(eff); err != nil {
		q.mu.Lock()
		q.terminateLocked(err)
		q.mu.Unlock()
		q.closeSink()

		return err
	}

	ctx, cancelFn := eff.Context(context.Background())
	defer cancelFn()

	select {
	case <-ch:
		q.mu.Lock()
		defer q.mu.Unlock()

		return q.errLocked()

	case <-ctx.Done():
		q.mu.Lock()
		q.terminateLocked(cancel.ErrCancelled)
		q.mu.Unlock()
		q.closeSink()

		return cancel.ErrCancelled
	}
}

// Close is idempotent. On the first call it posts a final event draining
// through the current tail, lets the emitter finish draining everything
// posted, then waits for it to exit and returns any saved error (nil on a
// clean drain).
func (q *Queue) Close() error {
	tail := q.buf.Tail()

	q.mu.Lock()

	if !q.closeRequested {
		if tail != nil {
			q.pushEventLocked(emitEvent{
				segment:       tail,
				includingTail: true,
				limitSnapshot: tail.Limit(),
			})
		}

		q.closeRequested = true
		q.broadcastLocked(&q.eventsSignal)
	}

	q.mu.Unlock()

	<-q.emitterDone

	q.mu.Lock()
	defer q.mu.Unlock()

	return q.savedErr
}

// takeEvent blocks until an event is available or the queue has been
// closed with no events left, in which case it returns ok=false.
func (q *Queue) takeEvent() (emitEvent, bool) {
	q.mu.Lock()

	for len(q.events) == 0 && !q.closeRequested {
		ch := q.eventsSignal
		q.mu.Unlock()
		<-ch
		q.mu.Lock()
	}

	if len(q.events) == 0 {
		q.mu.Unlock()

		return emitEvent{}, false
	}

	ev := q.events[0]
	q.events = q.events[1:]
	q.mu.Unlock()

	return ev, true
}

// computeToWrite walks the buffer from its current head up to ev.segment,
// summing full segment lengths, plus — if includingTail — the bytes up
// to ev.limitSnapshot in the target segment itself. If ev.segment is no
// longer reachable (a prior event already drained through it), there is
// nothing new to do for this event.
//
// Segments strictly before ev.segment never have their Next() pointer
// mutated again once a producer moves on to a new tail (writes only ever
// extend the current tail), so walking them via Segment.Next() without
// holding buf's internal lock for the whole walk is safe: each call to
// buf.Head() already round-trips that lock, which is enough to publish
// every earlier link mutation under the Go memory model.
func (q *Queue) computeToWrite(ev emitEvent) int64 {
	if ev.segment == nil {
		return 0
	}

	var toWrite int64

	for seg := q.buf.Head(); seg != nil; seg = seg.Next() {
		if seg == ev.segment {
			if ev.includingTail {
				if amt := ev.limitSnapshot - seg.Pos(); amt > 0 {
					toWrite += int64(amt)
				}
			}

			return toWrite
		}

		toWrite += int64(seg.Len())
	}

	// Not found: already fully drained by an earlier event.
	return 0
}

// emitterLoop is the single background goroutine per Queue (spec.md §5).
func (q *Queue) emitterLoop() {
	defer close(q.emitterDone)

	for {
		ev, ok := q.takeEvent()
		if !ok {
			q.mu.Lock()
			q.terminated = true
			q.mu.Unlock()
			q.closeSink()
			q.logger.Info("sink queue emitter terminated cleanly")

			return
		}

		if !q.processEvent(ev) {
			return
		}
	}
}

// processEvent drains one EmitEvent: writes whatever bytes it covers, and,
// if requested, flushes. Returns false if the sink failed and the queue
// was terminated, in which case the emitter loop must stop.
func (q *Queue) processEvent(ev emitEvent) bool {
	// Every collaborator call honors the scope's effective cancel token
	// (spec.md §5(d)), not just the producer-side waits: derive a fresh
	// context per event since the effective token can change between
	// events as callers push/pop scopes concurrently.
	ctx, cancelFn := q.scope.Effective().Context(context.Background())
	defer cancelFn()

	toWrite := q.computeToWrite(ev)

	var err error
	if toWrite > 0 {
		if err = q.rawSink.Write(ctx, q.buf, toWrite); err != nil {
			err = wrapIOFailure(err)
		}
	}

	if err != nil {
		q.mu.Lock()
		q.terminateLocked(err)
		q.mu.Unlock()
		q.closeSink()
		q.logger.Warn("sink queue emitter stopped on write error", zap.Error(err))

		return false
	}

	q.mu.Lock()
	if q.isQueueFull && q.buf.Size() <= q.maxByteSize {
		q.isQueueFull = false
		q.broadcastLocked(&q.notFullSignal)
	}
	q.mu.Unlock()

	if !ev.flush {
		return true
	}

	if err := q.rawSink.Flush(ctx); err != nil {
		werr := wrapIOFailure(err)

		q.mu.Lock()
		q.terminateLocked(werr)
		q.mu.Unlock()
		q.closeSink()
		q.logger.Warn("sink queue flush failed", zap.Error(werr))

		return false
	}

	q.mu.Lock()
	q.broadcastLocked(&q.flushSignal)
	q.mu.Unlock()

	return true
}
