package segio

import (
	"math/rand/v2"
	"runtime"
	"sync/atomic"

	"github.com/segio/segio/internal/logging"
	"go.uber.org/zap"
)

// maxBucketSize bounds how many idle bytes of segment capacity a single
// bucket will hold onto (spec.md §3's MAX_SIZE, 256 * SegSize).
const maxBucketSize = 256 * SegSize

// doorLocked is the sentinel value stored in a bucket's head while an
// operation is in flight on it. Its identity (not its contents) is what
// matters: no real Segment is ever compared equal to it by pointer other
// than this one.
var doorLocked = &Segment{}

// bucket is one shard of the pool: a singly-linked LIFO stack of idle
// segments guarded by a lock-free sentinel instead of a mutex, per
// spec.md §4.2 and §9's re-architecture of a CAS-based free list.
type bucket struct {
	head atomic.Pointer[Segment]

	idleBytes atomic.Int64 // aggregate capacity of idle segments, bytes
	idleCount atomic.Int32 // for Stats()
	allocated atomic.Int64 // lifetime fresh allocations, for Stats()
	recycled  atomic.Int64 // lifetime Takes served from the idle stack, for Stats()
	contended atomic.Int64 // lifetime sentinel-contention events, for Stats()
}

// Pool is a sharded, lock-free free list of reusable Segments. Contenders
// never retry: if a bucket's door is locked when they arrive, they
// allocate (Take) or drop (Recycle) instead of spinning, trading transient
// extra GC pressure for a worst case that never blocks.
type Pool struct {
	buckets []bucket
	mask    uint32
	logger  *zap.Logger
}

// DefaultBucketCount returns the next power of two at or above twice the
// logical CPU count, matching spec.md §3's HASH_BUCKET_COUNT formula.
func DefaultBucketCount() int {
	return nextPow2(2 * runtime.NumCPU())
}

func nextPow2(n int) int {
	if n < 1 {
		return 1
	}

	p := 1
	for p < n {
		p <<= 1
	}

	return p
}

// NewPool creates a Pool with DefaultBucketCount() buckets.
func NewPool() *Pool {
	return NewPoolWithBuckets(DefaultBucketCount())
}

// NewPoolWithBuckets creates a Pool with exactly n buckets, rounded up to
// the next power of two. Exposed mainly for tests that want to force
// contention with a single bucket.
func NewPoolWithBuckets(n int) *Pool {
	n = nextPow2(n)

	return &Pool{
		buckets: make([]bucket, n),
		mask:    uint32(n - 1),
		logger:  logging.L(),
	}
}

// bucketFor picks a shard for the current call. Go exposes no portable,
// stable OS-thread identity for goroutines, so unlike the source design's
// literal "thread_id mod HASH_BUCKET_COUNT" this approximates locality
// with a fast per-call random choice: buckets still bound contention to
// 1/N of callers, just without the "same goroutine reuses its own bucket"
// locality property.
func (p *Pool) bucketFor() *bucket {
	return &p.buckets[rand.Uint32()&p.mask] //nolint:gosec
}

// Take returns an owner Segment with zeroed cursors, either reused from a
// bucket or freshly allocated. Never blocks.
func (p *Pool) Take() *Segment {
	b := p.bucketFor()

	old := b.head.Swap(doorLocked)

	switch {
	case old == doorLocked:
		// Someone else is mid-operation on this bucket; don't wait for
		// them, and don't disturb the lock we just (harmlessly) re-wrote.
		b.contended.Add(1)
		p.logger.Debug("segio: pool bucket contended on take, allocating fresh segment")

		return p.allocFresh(b)

	case old == nil:
		b.head.Store(nil)

		return p.allocFresh(b)

	default:
		next := old.next
		old.reset()
		b.idleCount.Add(-1)
		b.idleBytes.Add(-SegSize)
		b.head.Store(next)
		b.recycled.Add(1)

		return old
	}
}

func (p *Pool) allocFresh(b *bucket) *Segment {
	b.allocated.Add(1)

	return newOwnerSegment()
}

// Recycle returns seg to the pool so a future Take can reuse it. Shared
// segments are rejected outright (an alias could still be reading the
// bytes); segments are also dropped, never blocked on, if the bucket's
// door is locked by a concurrent operation or the bucket is already at
// maxBucketSize.
func (p *Pool) Recycle(seg *Segment) {
	if seg == nil {
		return
	}

	if seg.shared {
		return
	}

	b := p.bucketFor()

	old := b.head.Swap(doorLocked)

	if old == doorLocked {
		// Not the lock holder: must not restore anything, just drop seg.
		b.contended.Add(1)
		p.logger.Debug("segio: pool bucket contended on recycle, dropping segment")

		return
	}

	if b.idleBytes.Load() >= maxBucketSize {
		b.head.Store(old)
		return
	}

	seg.next = old
	b.head.Store(seg)
	b.idleCount.Add(1)
	b.idleBytes.Add(SegSize)
}

// Stats summarizes pool activity across every bucket, for tests and debug
// logging only — never consulted on the hot path.
type Stats struct {
	Idle       int32
	Allocated  int64
	Recycled   int64
	Contention int64
}

// Stats aggregates counters from every bucket.
func (p *Pool) Stats() Stats {
	var s Stats
	for i := range p.buckets {
		b := &p.buckets[i]
		s.Idle += b.idleCount.Load()
		s.Allocated += b.allocated.Load()
		s.Recycled += b.recycled.Load()
		s.Contention += b.contended.Load()
	}

	return s
}

var defaultPool = NewPool()

// DefaultPool returns the process-wide Pool used by NewBuffer when no
// explicit pool is supplied.
func DefaultPool() *Pool { return defaultPool }
