package bson

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching. Decode failures on untrusted bytes are
// reported as *rawbson.Error values naming the violated invariant; the
// errors below cover value access and encoding.
var (
	// ErrNotPresent matches a lookup of a key or index that is absent.
	ErrNotPresent = errors.New("bson: value not present")

	// ErrWrongType matches a lookup that found the key holding a value
	// of a different type.
	ErrWrongType = errors.New("bson: value has the wrong type")

	// ErrOversize matches an encode whose output would exceed the
	// 16 MiB document ceiling.
	ErrOversize = errors.New("bson: document exceeds the size ceiling")

	// ErrInvalidKey matches an encode with a non-string map key or a key
	// containing an embedded NUL byte.
	ErrInvalidKey = errors.New("bson: invalid document key")

	// ErrIntRange matches an encode of an integer outside the
	// representable range.
	ErrIntRange = errors.New("bson: integer out of range")

	// ErrInvalidUTF8 matches a strict-mode decode of a string that is
	// not valid UTF-8.
	ErrInvalidUTF8 = errors.New("bson: invalid UTF-8 string")
)

// ValueAccessError reports a failed typed lookup. A missing key and a key
// present with the wrong type are always distinguished.
type ValueAccessError struct {
	Key        string
	Want       string
	Got        string
	NotPresent bool
}

func (e *ValueAccessError) Error() string {
	if e.NotPresent {
		return fmt.Sprintf("bson: key %s not present", e.Key)
	}
	return fmt.Sprintf("bson: key %s holds a %s, not a %s", e.Key, e.Got, e.Want)
}

// Is matches ErrNotPresent or ErrWrongType depending on the failure.
func (e *ValueAccessError) Is(target error) bool {
	if e.NotPresent {
		return target == ErrNotPresent
	}
	return target == ErrWrongType
}
