package segio

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/segio/segio/bytestring"
)

// Buffer is an ordered FIFO queue of Segments plus a running byte-size
// counter. Per spec.md §5 only one producer writes and only one consumer
// reads at a time — but sink.Queue runs exactly those two roles on
// separate goroutines, so Buffer serializes its own bookkeeping (head/
// tail links, size) behind a mutex rather than requiring callers to
// coordinate externally. The mutex is held only across pointer/size
// bookkeeping, never across an external sink/source call.
type Buffer struct {
	mu sync.Mutex

	head, tail *Segment
	size       int64
	pool       *Pool
}

// NewBuffer creates an empty Buffer drawing segments from pool. A nil pool
// uses DefaultPool().
func NewBuffer(pool *Pool) *Buffer {
	if pool == nil {
		pool = defaultPool
	}

	return &Buffer{pool: pool}
}

// Size returns the current aggregate byte count, Σ (seg.limit - seg.pos).
func (b *Buffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.size
}

// Head peeks the first segment, or nil if the buffer is empty.
func (b *Buffer) Head() *Segment {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.head
}

// Tail peeks the last segment, or nil if the buffer is empty.
func (b *Buffer) Tail() *Segment {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.tail
}

// WritableTail returns an owner segment with at least minCapacity free
// bytes at its tail, allocating a fresh one from the pool if the current
// tail is absent, non-owner, or too full. 1 <= minCapacity <= SegSize.
func (b *Buffer) WritableTail(minCapacity int) (*Segment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.writableTailLocked(minCapacity)
}

func (b *Buffer) writableTailLocked(minCapacity int) (*Segment, error) {
	if minCapacity < 1 || minCapacity > SegSize {
		return nil, ErrIllegalArgument
	}

	if t := b.tail; t != nil && t.owner && t.WritableCapacity() >= minCapacity {
		return t, nil
	}

	ns := b.pool.Take()
	b.linkTailLocked(ns)

	return ns, nil
}

func (b *Buffer) linkTailLocked(ns *Segment) {
	if b.tail != nil {
		b.tail.next = ns
	}

	b.tail = ns

	if b.head == nil {
		b.head = ns
	}
}

// WriteToTail appends n bytes (0 <= n <= SegSize) to the buffer by calling
// f with a destination slice of exactly that length carved out of the
// writable tail. If f returns an error, nothing is committed: limit and
// Size are left untouched.
func (b *Buffer) WriteToTail(n int, f func(dst []byte) error) error {
	if n < 0 || n > SegSize {
		return ErrIllegalArgument
	}

	if n == 0 {
		return f(nil)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	seg, err := b.writableTailLocked(n)
	if err != nil {
		return err
	}

	dst := seg.data[seg.limit : seg.limit+n]
	if err := f(dst); err != nil {
		return err
	}

	seg.limit += n
	b.size += int64(n)

	return nil
}

// RemoveHead detaches and returns the first segment. The caller is
// responsible for recycling it via a Pool once done (e.g. Pool.Recycle).
func (b *Buffer) RemoveHead() (*Segment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.removeHeadLocked()
}

func (b *Buffer) removeHeadLocked() (*Segment, error) {
	if b.head == nil {
		return nil, ErrIllegalState
	}

	h := b.head
	b.head = h.next
	h.next = nil

	if b.head == nil {
		b.tail = nil
	}

	b.size -= int64(h.Len())

	return h, nil
}

// SplitHead detaches the first n bytes of the head as a new prefix segment
// and returns it; the head stays in place holding the remaining bytes, and
// Size drops by n. Used to move a partial head into another buffer without
// disturbing anything downstream of it.
func (b *Buffer) SplitHead(n int) (*Segment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.head == nil {
		return nil, ErrIllegalState
	}

	prefix, err := b.head.Split(n)
	if err != nil {
		return nil, err
	}

	b.size -= int64(n)

	return prefix, nil
}

// CopyTo reads n bytes starting at offset into dst by sharing the
// underlying arrays (no byte copy); both partial and whole-segment ranges
// are shared directly, since a shared sub-range is exactly what Segment.
// Split already relies on for correctness.
func (b *Buffer) CopyTo(dst *Buffer, offset, n int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if offset < 0 || n < 0 || offset+n > b.size {
		return ErrIllegalArgument
	}

	var pos int64

	for seg := b.head; seg != nil && n > 0; seg = seg.next {
		segLen := int64(seg.Len())
		if pos+segLen <= offset {
			pos += segLen
			continue
		}

		start := int64(0)
		if pos < offset {
			start = offset - pos
		}

		avail := segLen - start
		take := avail

		if take > n {
			take = n
		}

		shared := seg.shareRange(int(start), int(take))

		if dst == b {
			dst.linkTailLocked(shared)
			dst.size += int64(shared.Len())
		} else {
			dst.mu.Lock()
			dst.linkTailLocked(shared)
			dst.size += int64(shared.Len())
			dst.mu.Unlock()
		}

		n -= take
		pos += segLen
	}

	return nil
}

// ---- Public read/write surface (spec.md §6) ----

// Write appends all of p to the buffer, chunked across as many segments as
// needed. It never returns a short write without an error.
func (b *Buffer) Write(p []byte) (int, error) {
	total := len(p)

	for len(p) > 0 {
		n := len(p)
		if n > SegSize {
			n = SegSize
		}

		chunk := p[:n]
		if err := b.WriteToTail(n, func(dst []byte) error {
			copy(dst, chunk)
			return nil
		}); err != nil {
			return total - len(p), err
		}

		p = p[n:]
	}

	return total, nil
}

// WriteString appends the UTF-8 bytes of s.
func (b *Buffer) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(v byte) error {
	_, err := b.Write([]byte{v})
	return err
}

// WriteInt16 appends v big-endian.
func (b *Buffer) WriteInt16(v int16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	_, err := b.Write(buf[:])

	return err
}

// WriteInt16LE appends v little-endian (the "reverse-bytes" variant).
func (b *Buffer) WriteInt16LE(v int16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(v))
	_, err := b.Write(buf[:])

	return err
}

// WriteInt32 appends v big-endian.
func (b *Buffer) WriteInt32(v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, err := b.Write(buf[:])

	return err
}

// WriteInt32LE appends v little-endian.
func (b *Buffer) WriteInt32LE(v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := b.Write(buf[:])

	return err
}

// WriteInt64 appends v big-endian.
func (b *Buffer) WriteInt64(v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, err := b.Write(buf[:])

	return err
}

// WriteInt64LE appends v little-endian.
func (b *Buffer) WriteInt64LE(v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := b.Write(buf[:])

	return err
}

// Read consumes up to len(p) bytes from the head, recycling exhausted
// segments back to the pool. Returns io.EOF once the buffer is empty and p
// is non-empty.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	read := 0

	for read < len(p) {
		if b.head == nil {
			if read == 0 {
				return 0, io.EOF
			}

			break
		}

		n := copy(p[read:], b.head.AsReadBytes())
		b.head.pos += n
		b.size -= int64(n)
		read += n

		if b.head.Len() == 0 {
			h, err := b.removeHeadLocked()
			if err != nil {
				return read, err
			}

			if !h.shared {
				b.pool.Recycle(h)
			}
		}
	}

	return read, nil
}

func (b *Buffer) readExact(n int) ([]byte, error) {
	buf := make([]byte, n)

	read, err := io.ReadFull(b, buf)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF { //nolint:errorlint
			return nil, io.ErrUnexpectedEOF
		}

		return nil, err
	}

	return buf[:read], nil
}

// ReadByte consumes a single byte.
func (b *Buffer) ReadByte() (byte, error) {
	buf, err := b.readExact(1)
	if err != nil {
		return 0, err
	}

	return buf[0], nil
}

// ReadInt16 consumes a big-endian 16-bit integer.
func (b *Buffer) ReadInt16() (int16, error) {
	buf, err := b.readExact(2)
	if err != nil {
		return 0, err
	}

	return int16(binary.BigEndian.Uint16(buf)), nil
}

// ReadInt16LE consumes a little-endian 16-bit integer.
func (b *Buffer) ReadInt16LE() (int16, error) {
	buf, err := b.readExact(2)
	if err != nil {
		return 0, err
	}

	return int16(binary.LittleEndian.Uint16(buf)), nil
}

// ReadInt32 consumes a big-endian 32-bit integer.
func (b *Buffer) ReadInt32() (int32, error) {
	buf, err := b.readExact(4)
	if err != nil {
		return 0, err
	}

	return int32(binary.BigEndian.Uint32(buf)), nil
}

// ReadInt32LE consumes a little-endian 32-bit integer.
func (b *Buffer) ReadInt32LE() (int32, error) {
	buf, err := b.readExact(4)
	if err != nil {
		return 0, err
	}

	return int32(binary.LittleEndian.Uint32(buf)), nil
}

// ReadInt64 consumes a big-endian 64-bit integer.
func (b *Buffer) ReadInt64() (int64, error) {
	buf, err := b.readExact(8)
	if err != nil {
		return 0, err
	}

	return int64(binary.BigEndian.Uint64(buf)), nil
}

// ReadInt64LE consumes a little-endian 64-bit integer.
func (b *Buffer) ReadInt64LE() (int64, error) {
	buf, err := b.readExact(8)
	if err != nil {
		return 0, err
	}

	return int64(binary.LittleEndian.Uint64(buf)), nil
}

// ReadBytes consumes exactly n bytes and returns them as a fresh slice.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrIllegalArgument
	}

	return b.readExact(n)
}

// ReadString consumes exactly n bytes and returns them decoded as UTF-8.
func (b *Buffer) ReadString(n int) (string, error) {
	buf, err := b.readExact(n)
	if err != nil {
		return "", err
	}

	return string(buf), nil
}

// Snapshot returns an immutable, segmented byte-string view over the
// entire current contents, built by sharing this buffer's segment arrays
// (no byte copy). The buffer itself is left untouched — reading it
// afterwards still returns the same bytes.
func (b *Buffer) Snapshot() bytestring.Bytes {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.head == nil {
		return bytestring.Bytes{}
	}

	slices := make([][]byte, 0, 4)

	for seg := b.head; seg != nil; seg = seg.next {
		seg.shared = true
		slices = append(slices, seg.AsReadBytes())
	}

	return bytestring.FromSlices(slices)
}

// Peek returns a read-only snapshot of the first n bytes without consuming
// them, sharing segment storage.
func (b *Buffer) Peek(n int) (bytestring.Bytes, error) {
	tmp := NewBuffer(b.pool)
	if err := b.CopyTo(tmp, 0, int64(n)); err != nil {
		return bytestring.Bytes{}, err
	}

	return tmp.Snapshot(), nil
}
