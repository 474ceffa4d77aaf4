// Package bson converts between raw byte buffers and structured value
// trees in both directions, tolerating arbitrary input without crashing.
// The materialized tree is built from the value types in this package; the
// zero-copy layer lives in pkg/rawbson and the textual interop in
// pkg/extjson.
//
// A materialized value is one of:
//
//	*Document           embedded document
//	*Array              array
//	float64             double
//	string              string
//	Binary              binary with subtype
//	ObjectID            12-byte object id
//	bool                boolean
//	DateTime            signed milliseconds since the Unix epoch
//	nil                 null
//	Regex               regular expression
//	DBPointer           deprecated db pointer
//	JavaScript          javascript code
//	Symbol              deprecated symbol
//	CodeWithScope       javascript code with scope
//	int32               32-bit integer
//	Timestamp           internal timestamp
//	int64               64-bit integer
//	Decimal128          128-bit decimal
//	MinKey, MaxKey      ordering sentinels
//	Undefined           deprecated undefined
package bson

import (
	"fmt"
	"time"

	"github.com/rawbytedev/bson/internal/common"
)

// Binary is a byte payload tagged with a subtype. Subtype constants are
// re-exported from rawbson for convenience.
type Binary struct {
	Subtype byte
	Data    []byte
}

func (b Binary) String() string {
	return fmt.Sprintf("Binary(0x%02x, %d bytes)", b.Subtype, len(b.Data))
}

// Regex is a regular expression pattern with its options string. Neither
// half may contain an embedded NUL; the options are conventionally kept
// sorted and the encoder sorts them.
type Regex struct {
	Pattern string
	Options string
}

// Timestamp is the special internal timestamp: a seconds value and an
// ordinal increment within that second.
type Timestamp struct {
	T uint32
	I uint32
}

// DateTime is a UTC datetime as signed milliseconds since the Unix epoch.
type DateTime int64

// Time returns the datetime as a time.Time in UTC.
func (d DateTime) Time() time.Time {
	return time.UnixMilli(int64(d)).UTC()
}

// NewDateTimeFromTime truncates t to millisecond precision.
func NewDateTimeFromTime(t time.Time) DateTime {
	return DateTime(t.UnixMilli())
}

// JavaScript is javascript code without a scope.
type JavaScript string

// Symbol is the deprecated symbol type.
type Symbol string

// CodeWithScope is javascript code paired with a scope document mapping
// identifiers to values.
type CodeWithScope struct {
	Code  string
	Scope *Document
}

// DBPointer is the deprecated dbPointer type.
type DBPointer struct {
	Namespace string
	ID        ObjectID
}

// MinKey sorts before every other value.
type MinKey struct{}

// MaxKey sorts after every other value.
type MaxKey struct{}

// Undefined is the deprecated undefined type.
type Undefined struct{}

// CString is a string guaranteed to contain no embedded NUL byte, the
// requirement for every wire position terminated by a NUL: element keys,
// regex patterns and options, and dbPointer namespaces.
type CString string

// NewCString validates that s has no embedded NUL.
func NewCString(s string) (CString, error) {
	if common.HasNull(s) {
		return "", fmt.Errorf("bson: string %q contains an embedded null byte", s)
	}
	return CString(s), nil
}

func (c CString) String() string { return string(c) }
