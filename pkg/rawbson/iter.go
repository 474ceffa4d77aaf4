package rawbson

import (
	"fmt"

	"github.com/rawbytedev/bson/internal/common"
)

// Iter walks the elements of a RawDocument lazily. Each call to Next reads
// one tag, one key and one payload, validating sizes and shapes as it goes.
// Once a malformed element is seen the iterator is dead: Next keeps
// returning false and Err reports the failure. There is no recovery
// mid-stream.
type Iter struct {
	doc  RawDocument
	pos  int
	key  string
	val  RawValue
	err  *Error
	done bool
}

// Iter returns an element iterator positioned before the first element.
func (d RawDocument) Iter() *Iter {
	// Skip the 4-byte length prefix; the envelope was checked when the
	// view was constructed.
	return &Iter{doc: d, pos: 4}
}

// Next advances to the next element, returning false at the end of the
// document or on the first malformed element.
func (it *Iter) Next() bool {
	if it.done || it.err != nil {
		return false
	}
	if it.pos >= len(it.doc) {
		it.fail(parseErr(ErrTruncated, "", it.pos, "ran past the end of the document"))
		return false
	}
	tag := Type(it.doc[it.pos])
	if tag == typeEndOfDocument {
		if it.pos != len(it.doc)-1 {
			it.fail(parseErr(ErrBadEnvelope, "", it.pos,
				fmt.Sprintf("%d trailing bytes after the end-of-document tag", len(it.doc)-1-it.pos)))
			return false
		}
		it.done = true
		return false
	}
	if !tag.valid() {
		it.fail(parseErr(ErrBadTag, "", it.pos, fmt.Sprintf("tag 0x%02x", byte(tag))))
		return false
	}
	keyStart := it.pos + 1
	key, n, ok := common.ReadCString(it.doc[keyStart:])
	if !ok {
		it.fail(parseErr(ErrMissingNull, "", keyStart, "unterminated element key"))
		return false
	}
	valStart := keyStart + n
	size, perr := scanValue(tag, it.doc.Bytes(), valStart, key)
	if perr != nil {
		it.fail(perr)
		return false
	}
	it.key = key
	it.val = RawValue{Type: tag, Data: it.doc[valStart : valStart+size]}
	it.pos = valStart + size
	return true
}

// Key returns the key of the current element.
func (it *Iter) Key() string { return it.key }

// Value returns the current element's value. The value aliases the
// document's backing buffer.
func (it *Iter) Value() RawValue { return it.val }

// Err returns the error that terminated iteration, or nil after a clean
// walk to the end-of-document tag.
func (it *Iter) Err() error {
	if it.err == nil {
		return nil
	}
	return it.err
}

func (it *Iter) fail(err *Error) {
	it.err = err
	it.done = true
}

// scanValue determines the payload size of a tag's value starting at b[off],
// validating every length field against the wire bounds before trusting it.
// It does not recurse into nested documents; those are validated by their
// own iterators.
func scanValue(tag Type, b []byte, off int, key string) (int, *Error) {
	rem := len(b) - off
	need := func(n int) *Error {
		if rem < n {
			return parseErr(ErrTruncated, key, off,
				fmt.Sprintf("%s needs %d bytes, %d available", tag, n, rem))
		}
		return nil
	}

	switch tag {
	case TypeNull, TypeUndefined, TypeMinKey, TypeMaxKey:
		return 0, nil

	case TypeBoolean:
		if err := need(1); err != nil {
			return 0, err
		}
		if b[off] > 1 {
			return 0, parseErr(ErrBadBool, key, off, fmt.Sprintf("byte 0x%02x", b[off]))
		}
		return 1, nil

	case TypeInt32:
		return 4, need(4)

	case TypeDouble, TypeInt64, TypeDateTime, TypeTimestamp:
		return 8, need(8)

	case TypeObjectID:
		return 12, need(12)

	case TypeDecimal128:
		return 16, need(16)

	case TypeString, TypeJavaScript, TypeSymbol:
		return scanString(b, off, key)

	case TypeDocument, TypeArray:
		return scanSubdocument(b, off, key)

	case TypeBinary:
		if err := need(5); err != nil {
			return 0, err
		}
		length, _ := common.ReadInt32(b[off:])
		if length < 0 || length > common.MaxDocumentSize {
			return 0, parseErr(ErrBadLength, key, off,
				fmt.Sprintf("binary length %d", length))
		}
		if err := need(4 + 1 + int(length)); err != nil {
			return 0, err
		}
		if b[off+4] == SubtypeBinaryOld {
			if length < 4 {
				return 0, parseErr(ErrOldBinaryLength, key, off,
					fmt.Sprintf("outer length %d is below the 4 byte inner prefix", length))
			}
			inner, _ := common.ReadInt32(b[off+5:])
			if inner != length-4 {
				return 0, parseErr(ErrOldBinaryLength, key, off,
					fmt.Sprintf("inner length %d, outer length %d", inner, length))
			}
		}
		return 4 + 1 + int(length), nil

	case TypeRegex:
		pat, pn, ok := common.ReadCString(b[off:])
		if !ok {
			return 0, parseErr(ErrMissingNull, key, off, "unterminated regex pattern")
		}
		_, on, ok := common.ReadCString(b[off+pn:])
		if !ok {
			return 0, parseErr(ErrMissingNull, key, off+pn,
				fmt.Sprintf("unterminated options for pattern %q", pat))
		}
		return pn + on, nil

	case TypeDBPointer:
		sn, err := scanString(b, off, key)
		if err != nil {
			return 0, err
		}
		if rem < sn+12 {
			return 0, parseErr(ErrTruncated, key, off+sn, "dbPointer id needs 12 bytes")
		}
		return sn + 12, nil

	case TypeCodeWithScope:
		return scanCodeWithScope(b, off, key)
	}
	return 0, parseErr(ErrBadTag, key, off, fmt.Sprintf("tag 0x%02x", byte(tag)))
}

// scanString validates the 4-byte length + content + NUL layout shared by
// strings, javascript, symbols and the dbPointer namespace.
func scanString(b []byte, off int, key string) (int, *Error) {
	length, ok := common.ReadInt32(b[off:])
	if !ok {
		return 0, parseErr(ErrTruncated, key, off, "string length needs 4 bytes")
	}
	if length < 1 || length > common.MaxDocumentSize {
		return 0, parseErr(ErrBadLength, key, off, fmt.Sprintf("string length %d", length))
	}
	total := 4 + int(length)
	if len(b)-off < total {
		return 0, parseErr(ErrTruncated, key, off,
			fmt.Sprintf("string of %d bytes, %d available", length, len(b)-off-4))
	}
	if b[off+total-1] != 0 {
		return 0, parseErr(ErrMissingNull, key, off+total-1, "string does not end with a null byte")
	}
	return total, nil
}

// scanSubdocument validates a nested document or array envelope without
// descending into its elements.
func scanSubdocument(b []byte, off int, key string) (int, *Error) {
	length, ok := common.ReadInt32(b[off:])
	if !ok {
		return 0, parseErr(ErrTruncated, key, off, "document length needs 4 bytes")
	}
	if length < common.MinDocumentSize || length > common.MaxDocumentSize {
		return 0, parseErr(ErrBadLength, key, off, fmt.Sprintf("document length %d", length))
	}
	if len(b)-off < int(length) {
		return 0, parseErr(ErrTruncated, key, off,
			fmt.Sprintf("document of %d bytes, %d available", length, len(b)-off))
	}
	if b[off+int(length)-1] != 0 {
		return 0, parseErr(ErrBadEnvelope, key, off+int(length)-1,
			"document does not end with a null byte")
	}
	return int(length), nil
}

// scanCodeWithScope validates that the declared total length equals exactly
// the sum of the code string and the scope document.
func scanCodeWithScope(b []byte, off int, key string) (int, *Error) {
	total, ok := common.ReadInt32(b[off:])
	if !ok {
		return 0, parseErr(ErrTruncated, key, off, "code-with-scope length needs 4 bytes")
	}
	if total < common.MinCodeWithScopeSize || total > common.MaxDocumentSize {
		return 0, parseErr(ErrBadLength, key, off, fmt.Sprintf("code-with-scope length %d", total))
	}
	if len(b)-off < int(total) {
		return 0, parseErr(ErrTruncated, key, off,
			fmt.Sprintf("code-with-scope of %d bytes, %d available", total, len(b)-off))
	}
	codeLen, err := scanString(b, off+4, key)
	if err != nil {
		return 0, err
	}
	scopeOff := off + 4 + codeLen
	if 4+codeLen+common.MinDocumentSize > int(total) {
		return 0, parseErr(ErrBadLength, key, off,
			"code string leaves no room for the scope document")
	}
	scopeLen, err := scanSubdocument(b, scopeOff, key)
	if err != nil {
		return 0, err
	}
	if 4+codeLen+scopeLen != int(total) {
		return 0, parseErr(ErrBadLength, key, off,
			fmt.Sprintf("declared length %d, parts sum to %d", total, 4+codeLen+scopeLen))
	}
	return int(total), nil
}
