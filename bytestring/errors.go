// Package bytestring implements an immutable, segmented UTF-8 byte string:
// a view over shared byte slices (typically borrowed from segio.Segment
// arrays) plus a directory that lets byte-level and code-point-level
// operations work without ever copying the underlying bytes.
//
// Grounded on the teacher's internal/gather.Bytes (a bare {Slices [][]byte}
// aggregate used only for opaque byte transfer); this package generalizes
// that shape to understand UTF-8.
package bytestring

import "github.com/pkg/errors"

// ErrCharacterCoding reports a character-coding failure. DecodeToString
// returns it for any charset other than UTF-8; malformed UTF-8 itself is
// never reported with it, since decoding substitutes U+FFFD.
var ErrCharacterCoding = errors.New("bytestring: character coding error")

// ErrIllegalArgument reports an out-of-range substring or byte index.
var ErrIllegalArgument = errors.New("bytestring: illegal argument")
