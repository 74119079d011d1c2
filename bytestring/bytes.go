package bytestring

import "sort"

// Bytes is an immutable, segmented byte string: a sequence of read-only
// byte slices (borrowed, never copied) plus a directory of cumulative
// offsets that lets GetByte and Substring locate the owning slice in
// O(log N). It plays the same role as the teacher's internal/gather.Bytes,
// generalized to understand UTF-8 instead of treating the payload as
// opaque.
//
// Because every slice handed to FromSlices is already trimmed to its
// logical [pos, limit) range (segio.Segment.AsReadBytes never exposes
// anything else), the directory only needs one half of spec.md §3's
// "2·N" layout: the per-segment starting position within its own
// underlying array is always implicitly 0 here.
type Bytes struct {
	slices []byte2d
	prefix []int64 // len(slices)+1; prefix[0] == 0

	lengthKnown bool
	length      int
	isASCII     bool
}

// byte2d avoids repeating [][]byte everywhere; kept as its own name so a
// future refcounted-range type (spec.md §9's "shared array + range" note)
// has an obvious place to grow into without reshaping Bytes itself.
type byte2d = []byte

// FromSlices builds a Bytes view directly over the given slices, without
// copying their contents. Callers must not mutate any slice afterwards.
func FromSlices(slices [][]byte) Bytes {
	prefix := make([]int64, len(slices)+1)

	for i, s := range slices {
		prefix[i+1] = prefix[i] + int64(len(s))
	}

	return Bytes{slices: slices, prefix: prefix}
}

// FromString builds a single-segment Bytes view over s's UTF-8 bytes.
func FromString(s string) Bytes {
	if s == "" {
		return Bytes{}
	}

	return FromSlices([][]byte{[]byte(s)})
}

// ByteSize returns the total byte length, O(1): the last directory entry.
func (b Bytes) ByteSize() int64 {
	if len(b.prefix) == 0 {
		return 0
	}

	return b.prefix[len(b.prefix)-1]
}

// segmentFor returns the index of the slice containing logical offset i,
// plus i's offset relative to that slice's start. i must be in
// [0, ByteSize()).
func (b Bytes) segmentFor(i int64) (seg int, rel int64) {
	// prefix[0]=0 < prefix[1] <= ... ; find rightmost prefix[k] <= i.
	k := sort.Search(len(b.prefix), func(k int) bool { return b.prefix[k] > i }) - 1
	if k < 0 {
		k = 0
	}

	return k, i - b.prefix[k]
}

// GetByte returns the byte at logical offset i.
func (b Bytes) GetByte(i int64) (byte, error) {
	if i < 0 || i >= b.ByteSize() {
		return 0, ErrIllegalArgument
	}

	seg, rel := b.segmentFor(i)

	return b.slices[seg][rel], nil
}

// Substring carves [start, end) without copying any byte; the returned
// Bytes shares the same underlying slices, rebased and length-clamped.
func (b Bytes) Substring(start, end int64) (Bytes, error) {
	size := b.ByteSize()
	if start < 0 || end < start || end > size {
		return Bytes{}, ErrIllegalArgument
	}

	if start == end {
		return Bytes{}, nil
	}

	beginSeg, beginRel := b.segmentFor(start)
	endSeg, endRel := b.segmentFor(end - 1)

	out := make([][]byte, 0, endSeg-beginSeg+1)

	for s := beginSeg; s <= endSeg; s++ {
		lo, hi := int64(0), int64(len(b.slices[s]))

		if s == beginSeg {
			lo = beginRel
		}

		if s == endSeg {
			hi = endRel + 1
		}

		out = append(out, b.slices[s][lo:hi])
	}

	return FromSlices(out), nil
}

// ToByteSlice materializes the entire view as one contiguous slice.
func (b Bytes) ToByteSlice() []byte {
	out := make([]byte, 0, b.ByteSize())
	for _, s := range b.slices {
		out = append(out, s...)
	}

	return out
}

// DecodeToString decodes the view as UTF-8 into a string. charset is
// accepted for API symmetry with spec.md §6 but only "utf-8" (and the
// empty string, meaning the same) is supported; the core never ships
// other codecs.
func (b Bytes) DecodeToString(charset string) (string, error) {
	if charset != "" && charset != "utf-8" && charset != "UTF-8" {
		return "", ErrCharacterCoding
	}

	return string(b.ToByteSlice()), nil
}

// ToAsciiLowercase materializes to a contiguous byte string, then
// lowercases ASCII letters in place; non-ASCII bytes are left untouched,
// matching the "ascii subclass" behavior in spec.md §4.5.
func (b Bytes) ToAsciiLowercase() Bytes {
	raw := b.ToByteSlice()

	for i, c := range raw {
		if c >= 'A' && c <= 'Z' {
			raw[i] = c + ('a' - 'A')
		}
	}

	return FromSlices([][]byte{raw})
}

// ToAsciiUppercase is the uppercase counterpart of ToAsciiLowercase.
func (b Bytes) ToAsciiUppercase() Bytes {
	raw := b.ToByteSlice()

	for i, c := range raw {
		if c >= 'a' && c <= 'z' {
			raw[i] = c - ('a' - 'A')
		}
	}

	return FromSlices([][]byte{raw})
}

// Equal reports byte-for-byte equality of the logical sequences.
func (b Bytes) Equal(other Bytes) bool {
	return b.Compare(other) == 0
}

// Compare performs a lexicographic unsigned-byte comparison, returning
// <0, 0, or >0 the way bytes.Compare does.
func (b Bytes) Compare(other Bytes) int {
	size, otherSize := b.ByteSize(), other.ByteSize()

	n := size
	if otherSize < n {
		n = otherSize
	}

	var i int64
	for i = 0; i < n; i++ {
		bb, _ := b.GetByte(i)
		ob, _ := other.GetByte(i)

		if bb != ob {
			if bb < ob {
				return -1
			}

			return 1
		}
	}

	switch {
	case size < otherSize:
		return -1
	case size > otherSize:
		return 1
	default:
		return 0
	}
}
