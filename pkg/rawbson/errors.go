package rawbson

import "fmt"

// ErrorKind classifies the ways untrusted bytes can fail to parse.
type ErrorKind int

const (
	// ErrTruncated means a length field or fixed-width payload pointed
	// past the end of the available bytes.
	ErrTruncated ErrorKind = iota + 1
	// ErrBadEnvelope means the document length prefix or trailing NUL
	// did not match the buffer.
	ErrBadEnvelope
	// ErrBadTag means an unrecognized element type tag.
	ErrBadTag
	// ErrBadBool means a boolean byte other than 0 or 1.
	ErrBadBool
	// ErrBadLength means a length field outside its allowed bounds,
	// including the 16 MiB document ceiling.
	ErrBadLength
	// ErrOldBinaryLength means a subtype-0x02 binary whose redundant
	// inner length does not equal the outer length minus 4.
	ErrOldBinaryLength
	// ErrMissingNull means a c-string or string payload without its
	// NUL terminator where one is required.
	ErrMissingNull
	// ErrWrongType means a typed accessor was called on a value of a
	// different type.
	ErrWrongType
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTruncated:
		return "truncated input"
	case ErrBadEnvelope:
		return "malformed document envelope"
	case ErrBadTag:
		return "invalid element type tag"
	case ErrBadBool:
		return "invalid boolean byte"
	case ErrBadLength:
		return "length out of bounds"
	case ErrOldBinaryLength:
		return "old binary length mismatch"
	case ErrMissingNull:
		return "missing null terminator"
	case ErrWrongType:
		return "unexpected element type"
	default:
		return "parse error"
	}
}

// Error is the typed failure produced while parsing raw bytes. It names the
// violated invariant and, where known, the offending key and byte offset.
type Error struct {
	Kind   ErrorKind
	Key    string // element key being parsed, if one was read
	Offset int    // byte offset into the document where parsing failed
	Detail string
}

func (e *Error) Error() string {
	msg := "rawbson: " + e.Kind.String()
	if e.Key != "" {
		msg += fmt.Sprintf(" (key %q)", e.Key)
	}
	if e.Offset > 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func parseErr(kind ErrorKind, key string, off int, detail string) *Error {
	return &Error{Kind: kind, Key: key, Offset: off, Detail: detail}
}
