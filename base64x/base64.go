// Package base64x implements the standard and URL-safe base64 alphabets
// by hand, per spec.md §4.7 — the core treats base64 as one of the small,
// self-contained codecs external callers use atop the segmented byte
// store, not something layered on encoding/base64 (the rest of this
// module avoids depending on the stdlib codec so the decode/encode
// tables stay explicit and the error handling matches the taxonomy used
// everywhere else in segio).
package base64x

import "github.com/pkg/errors"

// ErrInvalidCharacter reports a byte that is not part of either base64
// alphabet (after whitespace and padding are stripped).
var ErrInvalidCharacter = errors.New("base64x: invalid character")

// ErrInvalidLength reports a trailing group that cannot decode to a whole
// number of bytes (a single leftover character).
var ErrInvalidLength = errors.New("base64x: invalid length")

const (
	stdAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	urlAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

// Alphabet selects which two non-alphanumeric characters (62, 63) encode
// output uses; decode always accepts both '+'/'-' and '/'/'_' regardless
// of which Alphabet encoded the input.
type Alphabet int

const (
	Standard Alphabet = iota
	URLSafe
)

func (a Alphabet) chars() string {
	if a == URLSafe {
		return urlAlphabet
	}

	return stdAlphabet
}

// decodeTable maps a base64 character to its 6-bit value, or -1 if the
// byte is not part of either alphabet.
var decodeTable = buildDecodeTable()

func buildDecodeTable() [256]int8 {
	var t [256]int8

	for i := range t {
		t[i] = -1
	}

	for i := 0; i < 26; i++ {
		t['A'+i] = int8(i)
		t['a'+i] = int8(26 + i)
	}

	for i := 0; i < 10; i++ {
		t['0'+i] = int8(52 + i)
	}

	t['+'] = 62
	t['-'] = 62
	t['/'] = 63
	t['_'] = 63

	return t
}

func isWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	default:
		return false
	}
}

// Encode produces the base64 text for data using alphabet, padding the
// final partial group with '=' as needed. Output length is always
// ((len(data)+2)/3)*4.
func Encode(data []byte, alphabet Alphabet) string {
	chars := alphabet.chars()

	outLen := ((len(data) + 2) / 3) * 4
	out := make([]byte, 0, outLen)

	for i := 0; i < len(data); i += 3 {
		remaining := len(data) - i

		b0 := data[i]

		var b1, b2 byte
		if remaining > 1 {
			b1 = data[i+1]
		}

		if remaining > 2 {
			b2 = data[i+2]
		}

		out = append(out, chars[b0>>2])
		out = append(out, chars[(b0&0x03)<<4|(b1>>4)])

		switch {
		case remaining >= 3:
			out = append(out, chars[(b1&0x0F)<<2|(b2>>6)])
			out = append(out, chars[b2&0x3F])
		case remaining == 2:
			out = append(out, chars[(b1&0x0F)<<2])
			out = append(out, '=')
		default: // remaining == 1
			out = append(out, '=')
			out = append(out, '=')
		}
	}

	return string(out)
}

// Decode parses base64 text (standard or URL-safe, or a mix — decode
// accepts both alphabets' extra two characters regardless of which one
// produced the input) back into bytes. Trailing '=' and any whitespace
// are stripped before decoding; any other non-alphabet byte is an error.
func Decode(chars string) ([]byte, error) {
	end := len(chars)
	for end > 0 && (chars[end-1] == '=' || isWhitespace(chars[end-1])) {
		end--
	}

	filtered := make([]byte, 0, end)

	for i := 0; i < end; i++ {
		c := chars[i]
		if isWhitespace(c) {
			continue
		}

		filtered = append(filtered, c)
	}

	out := make([]byte, 0, (len(filtered)/4+1)*3)

	var group [4]int8
	n := 0

	flush := func(count int) error {
		switch count {
		case 4:
			out = append(out,
				byte(group[0])<<2|byte(group[1])>>4,
				byte(group[1])<<4|byte(group[2])>>2,
				byte(group[2])<<6|byte(group[3]),
			)
		case 3:
			out = append(out,
				byte(group[0])<<2|byte(group[1])>>4,
				byte(group[1])<<4|byte(group[2])>>2,
			)
		case 2:
			out = append(out, byte(group[0])<<2|byte(group[1])>>4)
		case 1:
			return ErrInvalidLength
		}

		return nil
	}

	for _, c := range filtered {
		v := decodeTable[c]
		if v < 0 {
			return nil, ErrInvalidCharacter
		}

		group[n] = v
		n++

		if n == 4 {
			if err := flush(4); err != nil {
				return nil, err
			}

			n = 0
		}
	}

	if n > 0 {
		if err := flush(n); err != nil {
			return nil, err
		}
	}

	return out, nil
}
