// Package segio implements the data-plane core of a segmented byte-stream
// I/O library: fixed-size Segment blocks, a lock-free Pool that recycles
// them, and Buffer, the FIFO queue of segments that backs every higher
// level operation (encoding, async draining to a sink, UTF-8 byte strings).
//
// Segment geometry, pool sharding, and buffer bookkeeping follow the
// "buffer of linked byte blocks" design: writers only ever extend the tail
// segment, readers only ever consume from the head, and a segment is
// shared (never mutated) the moment more than one reader can see it.
package segio

// SegSize is the fixed capacity, in bytes, of every Segment. It is not
// configurable: a uniform size is what makes the Pool's recycling cheap
// and the byte-string directory's arithmetic simple.
const SegSize = 8192
