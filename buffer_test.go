package segio_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segio/segio"
)

func TestBasicWriteThenRead(t *testing.T) {
	buf := segio.NewBuffer(nil)

	want := make([]byte, 256)
	for i := range want {
		want[i] = byte(i)
	}

	n, err := buf.Write(want)
	require.NoError(t, err)
	require.Equal(t, 256, n)

	got := make([]byte, 256)
	read, err := buf.Read(got)
	require.NoError(t, err)
	require.Equal(t, 256, read)
	require.Equal(t, want, got)

	require.EqualValues(t, 0, buf.Size())
}

func TestByteSizeInvariant(t *testing.T) {
	buf := segio.NewBuffer(nil)

	_, err := buf.Write(make([]byte, 20000))
	require.NoError(t, err)

	var sum int64
	for seg := buf.Head(); seg != nil; seg = seg.Next() {
		sum += int64(seg.Len())
	}

	require.Equal(t, buf.Size(), sum)
}

func TestWriteSpansMultipleSegments(t *testing.T) {
	buf := segio.NewBuffer(nil)

	_, err := buf.Write(make([]byte, segio.SegSize+10))
	require.NoError(t, err)

	count := 0
	for seg := buf.Head(); seg != nil; seg = seg.Next() {
		count++
	}

	require.Equal(t, 2, count)
}

func TestPrimitiveReadWriteRoundTrip(t *testing.T) {
	buf := segio.NewBuffer(nil)

	require.NoError(t, buf.WriteByte(0xAB))
	require.NoError(t, buf.WriteInt16(0x1234))
	require.NoError(t, buf.WriteInt16LE(0x1234))
	require.NoError(t, buf.WriteInt32(0x0A0B0C0D))
	require.NoError(t, buf.WriteInt32LE(0x0A0B0C0D))
	require.NoError(t, buf.WriteInt64(0x0102030405060708))
	require.NoError(t, buf.WriteInt64LE(0x0102030405060708))

	b, err := buf.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), b)

	i16, err := buf.ReadInt16()
	require.NoError(t, err)
	require.EqualValues(t, 0x1234, i16)

	i16le, err := buf.ReadInt16LE()
	require.NoError(t, err)
	require.EqualValues(t, 0x1234, i16le)

	i32, err := buf.ReadInt32()
	require.NoError(t, err)
	require.EqualValues(t, 0x0A0B0C0D, i32)

	i32le, err := buf.ReadInt32LE()
	require.NoError(t, err)
	require.EqualValues(t, 0x0A0B0C0D, i32le)

	i64, err := buf.ReadInt64()
	require.NoError(t, err)
	require.EqualValues(t, 0x0102030405060708, i64)

	i64le, err := buf.ReadInt64LE()
	require.NoError(t, err)
	require.EqualValues(t, 0x0102030405060708, i64le)

	require.EqualValues(t, 0, buf.Size())
}

func TestWriteStringAndReadString(t *testing.T) {
	buf := segio.NewBuffer(nil)

	_, err := buf.WriteString("hello, segio")
	require.NoError(t, err)

	s, err := buf.ReadString(len("hello, segio"))
	require.NoError(t, err)
	require.Equal(t, "hello, segio", s)
}

func TestReadEmptyBufferReturnsEOF(t *testing.T) {
	buf := segio.NewBuffer(nil)

	got := make([]byte, 1)
	_, err := buf.Read(got)
	require.ErrorIs(t, err, io.EOF)
}

func TestSnapshotDoesNotConsumeBuffer(t *testing.T) {
	buf := segio.NewBuffer(nil)

	_, err := buf.WriteString("snapshot me")
	require.NoError(t, err)

	snap := buf.Snapshot()
	require.EqualValues(t, len("snapshot me"), snap.ByteSize())

	// The buffer itself must be untouched.
	require.EqualValues(t, len("snapshot me"), buf.Size())

	s, err := buf.ReadString(len("snapshot me"))
	require.NoError(t, err)
	require.Equal(t, "snapshot me", s)
}

func TestEmptyBufferSnapshotIsEmpty(t *testing.T) {
	buf := segio.NewBuffer(nil)

	snap := buf.Snapshot()
	require.EqualValues(t, 0, snap.ByteSize())
}

func TestPeekDoesNotConsume(t *testing.T) {
	buf := segio.NewBuffer(nil)

	_, err := buf.WriteString("peekable")
	require.NoError(t, err)

	peeked, err := buf.Peek(4)
	require.NoError(t, err)

	s, err := peeked.DecodeToString("")
	require.NoError(t, err)
	require.Equal(t, "peek", s)

	require.EqualValues(t, len("peekable"), buf.Size())
}

func TestCopyToPreservesContent(t *testing.T) {
	src := segio.NewBuffer(nil)
	dst := segio.NewBuffer(nil)

	_, err := src.WriteString("shared bytes")
	require.NoError(t, err)

	require.NoError(t, src.CopyTo(dst, 0, src.Size()))
	require.Equal(t, src.Size(), dst.Size())

	got, err := dst.ReadString(int(dst.Size()))
	require.NoError(t, err)
	require.Equal(t, "shared bytes", got)
}

func TestRemoveHeadDetaches(t *testing.T) {
	buf := segio.NewBuffer(nil)

	_, err := buf.Write(make([]byte, segio.SegSize+1))
	require.NoError(t, err)

	h, err := buf.RemoveHead()
	require.NoError(t, err)
	require.Equal(t, segio.SegSize, h.Len())
	require.EqualValues(t, 1, buf.Size())
}

func TestWritableTailRejectsOutOfRangeCapacity(t *testing.T) {
	buf := segio.NewBuffer(nil)

	_, err := buf.WritableTail(0)
	require.ErrorIs(t, err, segio.ErrIllegalArgument)

	_, err = buf.WritableTail(segio.SegSize + 1)
	require.ErrorIs(t, err, segio.ErrIllegalArgument)
}
