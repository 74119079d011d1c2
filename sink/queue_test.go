package sink_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/segio/segio"
	"github.com/segio/segio/cancel"
	"github.com/segio/segio/internal/segtesting"
	"github.com/segio/segio/sink"
)

func TestRoundTripWriteThenClose(t *testing.T) {
	buf := segio.NewBuffer(nil)
	ms := segtesting.NewMemorySink()
	q := sink.NewQueue(buf, ms, nil, 0)

	want := make([]byte, 256)
	for i := range want {
		want[i] = byte(i)
	}

	n, err := buf.Write(want)
	require.NoError(t, err)
	require.Equal(t, len(want), n)

	require.NoError(t, q.EmitCompleteSegments())
	require.NoError(t, q.Close())

	require.Equal(t, want, ms.Bytes())
	require.True(t, ms.Closed())
	require.EqualValues(t, 0, buf.Size())
}

func TestFlushBarrierOrdering(t *testing.T) {
	buf := segio.NewBuffer(nil)
	ms := segtesting.NewMemorySink()
	q := sink.NewQueue(buf, ms, nil, 0)

	_, err := buf.Write(make([]byte, 1000))
	require.NoError(t, err)

	require.NoError(t, q.Emit(true))

	flushTimes := ms.FlushTimestamps()
	require.Len(t, flushTimes, 1)

	_, err = buf.Write(make([]byte, 10))
	require.NoError(t, err)
	require.NoError(t, q.Emit(true))

	writeTimes := ms.WriteTimestamps()
	require.GreaterOrEqual(t, len(writeTimes), 2)

	// The write that happened after the first flush must be timestamped
	// after that flush completed.
	require.True(t, writeTimes[len(writeTimes)-1].After(flushTimes[0]) || writeTimes[len(writeTimes)-1].Equal(flushTimes[0]))

	require.NoError(t, q.Close())
}

func TestBackpressureBlocksProducer(t *testing.T) {
	buf := segio.NewBuffer(nil)
	ms := segtesting.NewMemorySink()
	ms.SetWriteDelay(10 * time.Millisecond)

	q := sink.NewQueue(buf, ms, nil, 1024)

	total := 64 * 1024
	chunk := make([]byte, 256)

	start := time.Now()

	var g errgroup.Group
	g.Go(func() error {
		written := 0
		for written < total {
			if err := q.PauseIfFull(); err != nil {
				return err
			}

			n, err := buf.Write(chunk)
			if err != nil {
				return err
			}

			written += n

			if err := q.EmitCompleteSegments(); err != nil {
				return err
			}
		}

		return q.Close()
	})

	require.NoError(t, g.Wait())
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.Len(t, ms.Bytes(), total)
}

func TestCancellationMidFlush(t *testing.T) {
	buf := segio.NewBuffer(nil)
	ms := segtesting.NewMemorySink()
	ms.SetFlushDelay(time.Second)

	scope := cancel.NewScope()
	q := sink.NewQueue(buf, ms, scope, 0)

	_, err := buf.Write(make([]byte, 10))
	require.NoError(t, err)

	start := time.Now()

	err = scope.WithTimeout(time.Millisecond, func() error {
		return q.Emit(true)
	})

	require.ErrorIs(t, err, cancel.ErrCancelled)
	require.Less(t, time.Since(start), 500*time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	require.True(t, ms.Closed())
}

func TestEmitCompleteSegmentsDedupesSameTail(t *testing.T) {
	buf := segio.NewBuffer(nil)
	ms := segtesting.NewMemorySink()
	q := sink.NewQueue(buf, ms, nil, 0)

	_, err := buf.Write([]byte("hello"))
	require.NoError(t, err)

	require.NoError(t, q.EmitCompleteSegments())
	require.NoError(t, q.EmitCompleteSegments())
	require.NoError(t, q.EmitCompleteSegments())

	require.NoError(t, q.Close())
	require.Equal(t, "hello", string(ms.Bytes()))
}
