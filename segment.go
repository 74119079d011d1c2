package segio

// status describes where a Segment sits in the producer/emitter protocol.
// Only Segment.reset sets it (to segAvailable); no code reads it.
type status int32

const (
	segAvailable status = iota
	segWriting
	segTransferring
	segSentinel
)

// Segment is a fixed-capacity byte block with independent read (pos) and
// write (limit) cursors. A Segment is either an owner — the sole holder
// permitted to extend limit — or shared, in which case [pos, limit) is
// immutable for as long as any other Segment or byte string aliases the
// same underlying array.
//
// Segments are arranged into singly-linked queues (via next) by Buffer;
// Segment itself never walks that list.
type Segment struct {
	data   []byte
	pos    int
	limit  int
	shared bool
	owner  bool
	status status

	next *Segment

	// arenaIdx is a slot index for arena-style pool bookkeeping, per
	// spec.md §9's arena+index re-architecture of the teacher's
	// pointer-chasing chunk allocator. The Pool does not read it; every
	// segment is created with -1.
	arenaIdx int32
}

func newOwnerSegment() *Segment {
	return &Segment{
		data:     make([]byte, SegSize),
		owner:    true,
		arenaIdx: -1,
	}
}

// Len returns the number of unread bytes currently held, limit-pos.
func (s *Segment) Len() int { return s.limit - s.pos }

// Next returns the next segment in whatever queue this segment is linked
// into, or nil if it is detached or the last element.
func (s *Segment) Next() *Segment { return s.next }

// Pos returns the current read cursor.
func (s *Segment) Pos() int { return s.pos }

// Limit returns the current write cursor.
func (s *Segment) Limit() int { return s.limit }

// Shared reports whether this segment's underlying array may be aliased by
// another Segment or a byte string view.
func (s *Segment) Shared() bool { return s.shared }

// Owner reports whether this segment may have its tail (limit) extended by
// new writes.
func (s *Segment) Owner() bool { return s.owner }

// WritableCapacity returns how many more bytes can be appended at the tail
// without allocating a new segment. Non-owner segments always report 0.
func (s *Segment) WritableCapacity() int {
	if !s.owner {
		return 0
	}
	return SegSize - s.limit
}

// AsReadBytes returns the read-only view [pos, limit). Callers must not
// retain the slice past the next mutation of s if s is an owner segment;
// shared segments are immutable in this range for their lifetime.
func (s *Segment) AsReadBytes() []byte {
	return s.data[s.pos:s.limit]
}

// reset clears cursors and flags so the segment can re-enter the pool as a
// fresh owner segment. Only valid when the segment has no outstanding
// aliases (shared == false) and is detached from every queue.
func (s *Segment) reset() {
	s.pos = 0
	s.limit = 0
	s.shared = false
	s.owner = true
	s.status = segAvailable
	s.next = nil
}

// Split creates a companion segment sharing this segment's underlying
// array. The returned prefix segment covers [pos, pos+n); this segment is
// mutated in place to become the suffix, covering [pos+n, limit). Both
// segments are marked shared and lose owner status: per spec.md §3, once a
// byte array is aliased, only the sole holder of a *non*-shared tail may
// extend it, and splitting always produces two holders.
func (s *Segment) Split(n int) (*Segment, error) {
	if n <= 0 || n > s.Len() {
		return nil, ErrIllegalArgument
	}

	prefix := &Segment{
		data:     s.data,
		pos:      s.pos,
		limit:    s.pos + n,
		shared:   true,
		arenaIdx: -1,
	}

	s.pos += n
	s.shared = true
	s.owner = false

	return prefix, nil
}

// shareRange returns a new, non-owner segment aliasing [start, start+n) of
// this segment's underlying array (positions relative to pos). It marks
// this segment shared as a side effect, same as Split, but leaves this
// segment's own cursors untouched — used by Buffer.CopyTo to hand out
// read-only views without disturbing the source buffer.
func (s *Segment) shareRange(start, n int) *Segment {
	s.shared = true

	return &Segment{
		data:     s.data,
		pos:      s.pos + start,
		limit:    s.pos + start + n,
		shared:   true,
		arenaIdx: -1,
	}
}

// writeFrom copies n bytes from src (at src.pos) into this owner segment's
// tail, advancing both cursors: it coalesces by appending directly into an
// existing owner tail rather than allocating a new segment. Nothing in the
// package calls it.
func (s *Segment) writeFrom(src *Segment, n int) error {
	if !s.owner {
		return ErrIllegalState
	}

	if n < 0 || n > src.Len() || n > s.WritableCapacity() {
		return ErrIllegalArgument
	}

	copy(s.data[s.limit:s.limit+n], src.data[src.pos:src.pos+n])
	s.limit += n
	src.pos += n

	return nil
}
