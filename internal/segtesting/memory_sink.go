// Package segtesting provides in-memory RawSink/RawSource test doubles
// with optional fault injection, used only by this module's own tests.
// Grounded on the teacher's internal/blobtesting.NewMapStorage and its
// FaultyStorage wrapper (inject an error or delay on the Nth call to a
// given method).
package segtesting

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/segio/segio"
)

// MemorySink is a RawSink backed by an in-memory byte slice. It records
// every Write/Flush call's wall-clock timestamp so tests can assert
// ordering (spec.md §8 scenarios 4 and 5), and supports injecting a delay
// and a failure after N writes (scenario 4's "slow sink", scenario 6's
// "sink blocks for 1s").
type MemorySink struct {
	mu sync.Mutex

	data []byte

	writeCalls  int
	failAfter   int
	writeErr    error
	flushErr    error
	writeDelay  time.Duration
	flushDelay  time.Duration
	closed      bool
	flushCount  int

	writeTimestamps []time.Time
	flushTimestamps []time.Time
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// SetWriteDelay makes every subsequent Write block for d (or until ctx is
// done, whichever comes first) before copying any bytes.
func (m *MemorySink) SetWriteDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeDelay = d
}

// SetFlushDelay makes every subsequent Flush block for d before
// completing.
func (m *MemorySink) SetFlushDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flushDelay = d
}

// FailAfterWrites makes the n-th call to Write (1-indexed) return err (or
// a default injected error if err is nil), and every call after it.
func (m *MemorySink) FailAfterWrites(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failAfter = n
	m.writeErr = err
}

// FailFlush makes every subsequent Flush call return err.
func (m *MemorySink) FailFlush(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flushErr = err
}

// Write implements sink.RawSink.
func (m *MemorySink) Write(ctx context.Context, buf *segio.Buffer, byteCount int64) error {
	m.mu.Lock()
	delay := m.writeDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	m.writeCalls++

	if m.failAfter > 0 && m.writeCalls >= m.failAfter {
		err := m.writeErr
		if err == nil {
			err = errors.New("segtesting: injected write failure")
		}

		m.mu.Unlock()

		return err
	}

	m.mu.Unlock()

	chunk := make([]byte, byteCount)

	n, err := io.ReadFull(buf, chunk)
	if err != nil {
		return errors.Wrap(err, "segtesting: short read from buffer")
	}

	m.mu.Lock()
	m.data = append(m.data, chunk[:n]...)
	m.writeTimestamps = append(m.writeTimestamps, time.Now())
	m.mu.Unlock()

	return nil
}

// Flush implements sink.RawSink.
func (m *MemorySink) Flush(ctx context.Context) error {
	m.mu.Lock()
	delay := m.flushDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.flushCount++
	m.flushTimestamps = append(m.flushTimestamps, time.Now())

	return m.flushErr
}

// Close implements sink.RawSink.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

// Bytes returns a copy of everything written so far.
func (m *MemorySink) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]byte, len(m.data))
	copy(out, m.data)

	return out
}

// FlushCount reports how many times Flush has completed.
func (m *MemorySink) FlushCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.flushCount
}

// Closed reports whether Close has been called.
func (m *MemorySink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

// WriteTimestamps returns the wall-clock time each successful Write call
// completed, in call order.
func (m *MemorySink) WriteTimestamps() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]time.Time, len(m.writeTimestamps))
	copy(out, m.writeTimestamps)

	return out
}

// FlushTimestamps returns the wall-clock time each successful Flush call
// completed, in call order.
func (m *MemorySink) FlushTimestamps() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]time.Time, len(m.flushTimestamps))
	copy(out, m.flushTimestamps)

	return out
}

// MemorySource is a RawSource serving bytes from a fixed in-memory slice.
type MemorySource struct {
	mu   sync.Mutex
	data []byte
	pos  int
}

// NewMemorySource creates a RawSource that serves data, then reports EOF.
func NewMemorySource(data []byte) *MemorySource {
	cp := make([]byte, len(data))
	copy(cp, data)

	return &MemorySource{data: cp}
}

// ReadAtMostTo implements sink.RawSource.
func (s *MemorySource) ReadAtMostTo(ctx context.Context, buf *segio.Buffer, byteCount int64) (int64, error) {
	s.mu.Lock()

	if s.pos >= len(s.data) {
		s.mu.Unlock()

		return -1, nil
	}

	end := s.pos + int(byteCount)
	if end > len(s.data) {
		end = len(s.data)
	}

	chunk := s.data[s.pos:end]
	s.pos = end

	s.mu.Unlock()

	n, err := buf.Write(chunk)

	return int64(n), err
}
