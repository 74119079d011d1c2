package bytestring_test

import (
	"testing"

	"github.com/segio/segio/bytestring"
	"github.com/stretchr/testify/require"
)

func collectRunes(it *bytestring.CodePointIter) []rune {
	var out []rune

	for {
		r, ok := it.Next()
		if !ok {
			break
		}

		out = append(out, r)
	}

	return out
}

func TestCodePointsASCII(t *testing.T) {
	b := bytestring.FromString("hello")

	require.Equal(t, []rune("hello"), collectRunes(b.CodePoints()))
	require.Equal(t, 5, b.Length())
	require.True(t, b.IsASCII())
}

func TestCodePointsMultiByte(t *testing.T) {
	b := bytestring.FromString("日本語")

	require.Equal(t, []rune("日本語"), collectRunes(b.CodePoints()))
	require.Equal(t, 3, b.Length())
	require.False(t, b.IsASCII())
}

func TestCodePointsRoundTrip(t *testing.T) {
	// ∀ valid UTF-8 string S: code_points(encode(S)) == S.code_points.
	for _, s := range []string{
		"",
		"plain",
		"café",
		"\U0001F600",
		"mixed \U0001F600 emoji éè",
	} {
		b := bytestring.FromString(s)
		require.Equal(t, []rune(s), collectRunes(b.CodePoints()))
	}
}

func TestCodePointsAcrossSegmentBoundary(t *testing.T) {
	// 8190 'a' bytes then the four-byte code point U+1F600 (F0 9F 98 80)
	// split across two underlying slices at an arbitrary byte boundary.
	aRun := make([]byte, 8190)
	for i := range aRun {
		aRun[i] = 'a'
	}

	emoji := []byte{0xF0, 0x9F, 0x98, 0x80}

	seg1 := append(append([]byte{}, aRun...), emoji[:2]...)
	seg2 := emoji[2:]

	b := bytestring.FromSlices([][]byte{seg1, seg2})

	runes := collectRunes(b.CodePoints())
	require.Len(t, runes, 8191)

	for i := 0; i < 8190; i++ {
		require.Equal(t, 'a', runes[i])
	}

	require.Equal(t, rune(0x1F600), runes[8190])
	require.Equal(t, 8191, b.Length())
}

func TestInvalidContinuationReplacesAndResyncs(t *testing.T) {
	// A 2-byte lead (0xC2) followed by a non-continuation byte: emit
	// U+FFFD for the lead only, then resume decoding at the next byte.
	b := bytestring.FromSlices([][]byte{{0xC2, 'x'}})

	runes := collectRunes(b.CodePoints())
	require.Equal(t, []rune{0xFFFD, 'x'}, runes)
}

func TestOverlongEncodingRejected(t *testing.T) {
	// 0xC0 0x80 is an overlong encoding of NUL; must decode to U+FFFD,
	// not U+0000.
	b := bytestring.FromSlices([][]byte{{0xC0, 0x80}})

	runes := collectRunes(b.CodePoints())
	require.Equal(t, []rune{0xFFFD, 0xFFFD}, runes)
}

func TestSurrogateRejected(t *testing.T) {
	// 0xED 0xA0 0x80 encodes U+D800, a surrogate; must be replaced.
	b := bytestring.FromSlices([][]byte{{0xED, 0xA0, 0x80}})

	runes := collectRunes(b.CodePoints())
	require.Equal(t, []rune{0xFFFD}, runes)
}

func TestAboveMaxCodePointRejected(t *testing.T) {
	// 0xF4 0x90 0x80 0x80 would decode to 0x110000, one past 0x10FFFF.
	b := bytestring.FromSlices([][]byte{{0xF4, 0x90, 0x80, 0x80}})

	runes := collectRunes(b.CodePoints())
	require.Equal(t, []rune{0xFFFD}, runes)
}

func TestTruncatedMultiByteAtEnd(t *testing.T) {
	// A 3-byte lead with only one continuation byte available.
	b := bytestring.FromSlices([][]byte{{0xE2, 0x82}})

	runes := collectRunes(b.CodePoints())
	require.Equal(t, []rune{0xFFFD, 0xFFFD}, runes)
}

func TestLengthIsCachedAndRestartable(t *testing.T) {
	b := bytestring.FromString("abc日本語")

	first := b.Length()
	second := b.Length()
	require.Equal(t, first, second)

	// CodePoints() always returns a fresh iterator.
	it1 := b.CodePoints()
	it1.Next()
	it2 := b.CodePoints()
	r, ok := it2.Next()
	require.True(t, ok)
	require.Equal(t, 'a', r)
}
