package segio_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segio/segio"
)

func TestRecycleThenTakeReturnsSameSegmentWithoutContention(t *testing.T) {
	// Pool recycling: recycling a segment then taking from the same
	// thread's bucket returns that segment, if no contention occurred.
	p := segio.NewPoolWithBuckets(1)

	s1 := p.Take()
	p.Recycle(s1)

	s2 := p.Take()
	require.Same(t, s1, s2)
}

func TestRecycleRejectsSharedSegment(t *testing.T) {
	p := segio.NewPoolWithBuckets(1)

	buf := segio.NewBuffer(p)
	err := buf.WriteToTail(4, func(dst []byte) error {
		copy(dst, []byte("abcd"))
		return nil
	})
	require.NoError(t, err)

	shared, err := buf.SplitHead(2)
	require.NoError(t, err)
	require.True(t, shared.Shared())

	statsBefore := p.Stats()
	p.Recycle(shared)
	statsAfter := p.Stats()

	require.Equal(t, statsBefore.Idle, statsAfter.Idle)
}

func TestTakeAllocatesFreshWhenBucketEmpty(t *testing.T) {
	p := segio.NewPoolWithBuckets(4)

	s := p.Take()
	require.NotNil(t, s)

	stats := p.Stats()
	require.GreaterOrEqual(t, stats.Allocated, int64(1))
}

func TestPoolConcurrentTakeRecycleNeverPanics(t *testing.T) {
	p := segio.NewPool()

	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 200; j++ {
				s := p.Take()
				p.Recycle(s)
			}
		}()
	}

	wg.Wait()

	stats := p.Stats()
	require.GreaterOrEqual(t, stats.Recycled+stats.Allocated, int64(32*200))
}

func TestDefaultBucketCountIsPowerOfTwo(t *testing.T) {
	n := segio.DefaultBucketCount()
	require.Positive(t, n)
	require.Zero(t, n&(n-1))
}
