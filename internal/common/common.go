// Package common holds the byte-level primitives shared by the document
// codec packages: little-endian integer access, c-string scanning and the
// wire size bounds. Everything here operates on raw []byte with no
// allocation beyond what append requires.
package common

import (
	"encoding/binary"
	"math"
	"strings"
)

// Wire size bounds. Every length field read from untrusted input is checked
// against these before any allocation happens.
const (
	// MaxDocumentSize is the conventional ceiling on a whole document,
	// including the envelope.
	MaxDocumentSize = 16 * 1024 * 1024

	// MinDocumentSize is the empty document: 4-byte length + trailing NUL.
	MinDocumentSize = 4 + 1

	// MinStringSize is the empty string: 4-byte length + trailing NUL.
	MinStringSize = 4 + 1

	// MinCodeWithScopeSize is the smallest code-with-scope payload:
	// 4-byte total length + empty string + empty document.
	MinCodeWithScopeSize = 4 + MinStringSize + MinDocumentSize
)

// ReadInt32 reads a little-endian int32 from the start of b.
func ReadInt32(b []byte) (int32, bool) {
	if len(b) < 4 {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(b)), true
}

// ReadInt64 reads a little-endian int64 from the start of b.
func ReadInt64(b []byte) (int64, bool) {
	if len(b) < 8 {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(b)), true
}

// ReadUint32 reads a little-endian uint32 from the start of b.
func ReadUint32(b []byte) (uint32, bool) {
	if len(b) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

// ReadDouble reads a little-endian IEEE-754 double from the start of b.
func ReadDouble(b []byte) (float64, bool) {
	if len(b) < 8 {
		return 0, false
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), true
}

// ReadCString scans for the NUL terminator and returns the string before it
// plus the total number of bytes consumed (including the NUL).
func ReadCString(b []byte) (string, int, bool) {
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), i + 1, true
		}
	}
	return "", 0, false
}

// AppendInt32 appends v little-endian to dst.
func AppendInt32(dst []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}

// AppendInt64 appends v little-endian to dst.
func AppendInt64(dst []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(dst, uint64(v))
}

// AppendUint32 appends v little-endian to dst.
func AppendUint32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

// AppendDouble appends the IEEE-754 bits of f little-endian to dst.
func AppendDouble(dst []byte, f float64) []byte {
	return binary.LittleEndian.AppendUint64(dst, math.Float64bits(f))
}

// AppendCString appends s followed by a NUL terminator. The caller is
// responsible for s containing no embedded NUL.
func AppendCString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	return append(dst, 0)
}

// AppendString appends the standard string layout: 4-byte length covering
// the content plus trailing NUL, then the content, then the NUL.
func AppendString(dst []byte, s string) []byte {
	dst = AppendInt32(dst, int32(len(s)+1))
	dst = append(dst, s...)
	return append(dst, 0)
}

// PutInt32 overwrites the 4 bytes at dst[off:] with v little-endian.
// Used to backpatch reserved length fields.
func PutInt32(dst []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(dst[off:], uint32(v))
}

// HasNull reports whether s contains an embedded NUL byte, which would
// corrupt any c-string position on the wire.
func HasNull(s string) bool {
	return strings.IndexByte(s, 0) >= 0
}
