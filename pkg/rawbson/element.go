package rawbson

import (
	"fmt"

	"github.com/rawbytedev/bson/internal/common"
)

// RawValue is the borrowed form of one element value: a type tag plus the
// exact payload bytes, still aliasing the parent document's buffer. Typed
// accessors decode the payload on demand; calling an accessor for a
// different type is reported as a wrong-type error, never a panic.
type RawValue struct {
	Type Type
	Data []byte
}

// Owned returns a deep copy whose payload no longer aliases the parent
// buffer. The conversion always succeeds.
func (v RawValue) Owned() RawValue {
	data := make([]byte, len(v.Data))
	copy(data, v.Data)
	return RawValue{Type: v.Type, Data: data}
}

func (v RawValue) wrongType(want Type) *Error {
	return parseErr(ErrWrongType, "", 0, fmt.Sprintf("want %s, have %s", want, v.Type))
}

func (v RawValue) truncated(want Type) *Error {
	return parseErr(ErrTruncated, "", 0, fmt.Sprintf("%s payload is %d bytes", want, len(v.Data)))
}

// Double returns the value as an IEEE-754 double.
func (v RawValue) Double() (float64, error) {
	if v.Type != TypeDouble {
		return 0, v.wrongType(TypeDouble)
	}
	f, ok := common.ReadDouble(v.Data)
	if !ok {
		return 0, v.truncated(TypeDouble)
	}
	return f, nil
}

// StringValue returns the value as a string. The bytes are not checked for
// UTF-8 validity here; that policy belongs to materialization.
func (v RawValue) StringValue() (string, error) {
	if v.Type != TypeString {
		return "", v.wrongType(TypeString)
	}
	return readString(v, TypeString)
}

// JavaScript returns the value as javascript code.
func (v RawValue) JavaScript() (string, error) {
	if v.Type != TypeJavaScript {
		return "", v.wrongType(TypeJavaScript)
	}
	return readString(v, TypeJavaScript)
}

// Symbol returns the value as a symbol.
func (v RawValue) Symbol() (string, error) {
	if v.Type != TypeSymbol {
		return "", v.wrongType(TypeSymbol)
	}
	return readString(v, TypeSymbol)
}

func readString(v RawValue, want Type) (string, error) {
	length, ok := common.ReadInt32(v.Data)
	if !ok || int(length) < 1 || len(v.Data) < 4+int(length) {
		return "", v.truncated(want)
	}
	return string(v.Data[4 : 4+length-1]), nil
}

// Document returns the value as a nested document view sharing the same
// backing buffer.
func (v RawValue) Document() (RawDocument, error) {
	if v.Type != TypeDocument {
		return nil, v.wrongType(TypeDocument)
	}
	return NewDocument(v.Data)
}

// Array returns the value as a nested array view sharing the same backing
// buffer.
func (v RawValue) Array() (RawArray, error) {
	if v.Type != TypeArray {
		return RawArray{}, v.wrongType(TypeArray)
	}
	doc, err := NewDocument(v.Data)
	if err != nil {
		return RawArray{}, err
	}
	return RawArray{doc: doc}, nil
}

// Binary returns the subtype and payload. For old binaries (subtype 0x02)
// the redundant inner length prefix is stripped from the returned payload.
func (v RawValue) Binary() (byte, []byte, error) {
	if v.Type != TypeBinary {
		return 0, nil, v.wrongType(TypeBinary)
	}
	length, ok := common.ReadInt32(v.Data)
	if !ok || len(v.Data) < 4+1+int(length) || length < 0 {
		return 0, nil, v.truncated(TypeBinary)
	}
	subtype := v.Data[4]
	payload := v.Data[5 : 5+length]
	if subtype == SubtypeBinaryOld {
		if length < 4 {
			return 0, nil, parseErr(ErrOldBinaryLength, "", 0,
				fmt.Sprintf("outer length %d is below the 4 byte inner prefix", length))
		}
		payload = payload[4:]
	}
	return subtype, payload, nil
}

// ObjectID returns the 12 raw id bytes.
func (v RawValue) ObjectID() ([12]byte, error) {
	var id [12]byte
	if v.Type != TypeObjectID {
		return id, v.wrongType(TypeObjectID)
	}
	if len(v.Data) < 12 {
		return id, v.truncated(TypeObjectID)
	}
	copy(id[:], v.Data)
	return id, nil
}

// Boolean returns the value as a bool.
func (v RawValue) Boolean() (bool, error) {
	if v.Type != TypeBoolean {
		return false, v.wrongType(TypeBoolean)
	}
	if len(v.Data) < 1 {
		return false, v.truncated(TypeBoolean)
	}
	if v.Data[0] > 1 {
		return false, parseErr(ErrBadBool, "", 0, fmt.Sprintf("byte 0x%02x", v.Data[0]))
	}
	return v.Data[0] == 1, nil
}

// DateTime returns the signed milliseconds since the Unix epoch.
func (v RawValue) DateTime() (int64, error) {
	if v.Type != TypeDateTime {
		return 0, v.wrongType(TypeDateTime)
	}
	ms, ok := common.ReadInt64(v.Data)
	if !ok {
		return 0, v.truncated(TypeDateTime)
	}
	return ms, nil
}

// Regex returns the pattern and options c-strings.
func (v RawValue) Regex() (pattern, options string, err error) {
	if v.Type != TypeRegex {
		return "", "", v.wrongType(TypeRegex)
	}
	pattern, n, ok := common.ReadCString(v.Data)
	if !ok {
		return "", "", v.truncated(TypeRegex)
	}
	options, _, ok = common.ReadCString(v.Data[n:])
	if !ok {
		return "", "", v.truncated(TypeRegex)
	}
	return pattern, options, nil
}

// DBPointer returns the namespace string and the 12 id bytes.
func (v RawValue) DBPointer() (string, [12]byte, error) {
	var id [12]byte
	if v.Type != TypeDBPointer {
		return "", id, v.wrongType(TypeDBPointer)
	}
	length, ok := common.ReadInt32(v.Data)
	if !ok || length < 1 || len(v.Data) < 4+int(length)+12 {
		return "", id, v.truncated(TypeDBPointer)
	}
	ns := string(v.Data[4 : 4+length-1])
	copy(id[:], v.Data[4+length:])
	return ns, id, nil
}

// CodeWithScope returns the code string and a view over the scope document.
func (v RawValue) CodeWithScope() (string, RawDocument, error) {
	if v.Type != TypeCodeWithScope {
		return "", nil, v.wrongType(TypeCodeWithScope)
	}
	if len(v.Data) < common.MinCodeWithScopeSize {
		return "", nil, v.truncated(TypeCodeWithScope)
	}
	codeLen, ok := common.ReadInt32(v.Data[4:])
	if !ok || codeLen < 1 || len(v.Data) < 4+4+int(codeLen) {
		return "", nil, v.truncated(TypeCodeWithScope)
	}
	code := string(v.Data[8 : 8+codeLen-1])
	scope, err := NewDocument(v.Data[4+4+codeLen:])
	if err != nil {
		return "", nil, err
	}
	return code, scope, nil
}

// Int32 returns the value as an int32.
func (v RawValue) Int32() (int32, error) {
	if v.Type != TypeInt32 {
		return 0, v.wrongType(TypeInt32)
	}
	n, ok := common.ReadInt32(v.Data)
	if !ok {
		return 0, v.truncated(TypeInt32)
	}
	return n, nil
}

// Int64 returns the value as an int64.
func (v RawValue) Int64() (int64, error) {
	if v.Type != TypeInt64 {
		return 0, v.wrongType(TypeInt64)
	}
	n, ok := common.ReadInt64(v.Data)
	if !ok {
		return 0, v.truncated(TypeInt64)
	}
	return n, nil
}

// Timestamp returns the increment and seconds halves of a timestamp.
func (v RawValue) Timestamp() (t, i uint32, err error) {
	if v.Type != TypeTimestamp {
		return 0, 0, v.wrongType(TypeTimestamp)
	}
	if len(v.Data) < 8 {
		return 0, 0, v.truncated(TypeTimestamp)
	}
	// Increment is stored first, seconds second.
	i, _ = common.ReadUint32(v.Data)
	t, _ = common.ReadUint32(v.Data[4:])
	return t, i, nil
}

// Decimal128 returns the 16 raw bytes of a decimal128.
func (v RawValue) Decimal128() ([16]byte, error) {
	var bits [16]byte
	if v.Type != TypeDecimal128 {
		return bits, v.wrongType(TypeDecimal128)
	}
	if len(v.Data) < 16 {
		return bits, v.truncated(TypeDecimal128)
	}
	copy(bits[:], v.Data)
	return bits, nil
}
