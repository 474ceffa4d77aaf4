package rawbson

import (
	"fmt"

	"github.com/rawbytedev/bson/internal/common"
)

// DocumentBuf is the owned, append-only counterpart of RawDocument. The
// buffer is a valid encoded document after every append: each append
// removes the trailing NUL, writes the new element, restores the NUL and
// backpatches the length prefix. There is no update or delete; appending a
// key that already exists is a caller error and is not detected here.
type DocumentBuf struct {
	buf []byte
}

// NewDocumentBuf returns an empty document: 05 00 00 00 00.
func NewDocumentBuf() *DocumentBuf {
	return &DocumentBuf{buf: []byte{5, 0, 0, 0, 0}}
}

// NewDocumentBufFromBytes validates the envelope of b and copies it into an
// owned buffer that can be appended to.
func NewDocumentBufFromBytes(b []byte) (*DocumentBuf, error) {
	doc, err := NewDocument(b)
	if err != nil {
		return nil, err
	}
	return doc.Owned(), nil
}

// Bytes returns the encoded document. The slice aliases the builder's
// buffer and is invalidated by further appends.
func (d *DocumentBuf) Bytes() []byte { return d.buf }

// View returns the buffer as a borrowed view. The view is invalidated by
// further appends.
func (d *DocumentBuf) View() RawDocument { return RawDocument(d.buf) }

// Len returns the encoded size in bytes.
func (d *DocumentBuf) Len() int { return len(d.buf) }

// appendElement writes tag + key + payload before the trailing NUL and
// fixes up the length prefix.
func (d *DocumentBuf) appendElement(tag Type, key string, payload ...[]byte) error {
	if common.HasNull(key) {
		return fmt.Errorf("rawbson: key %q contains an embedded null byte", key)
	}
	d.buf = d.buf[:len(d.buf)-1]
	d.buf = append(d.buf, byte(tag))
	d.buf = common.AppendCString(d.buf, key)
	for _, p := range payload {
		d.buf = append(d.buf, p...)
	}
	d.buf = append(d.buf, 0)
	common.PutInt32(d.buf, 0, int32(len(d.buf)))
	return nil
}

// AppendDouble appends an IEEE-754 double element.
func (d *DocumentBuf) AppendDouble(key string, f float64) error {
	return d.appendElement(TypeDouble, key, common.AppendDouble(nil, f))
}

// AppendString appends a string element.
func (d *DocumentBuf) AppendString(key, s string) error {
	return d.appendElement(TypeString, key, common.AppendString(nil, s))
}

// AppendDocument appends a nested document element from an encoded view.
func (d *DocumentBuf) AppendDocument(key string, doc RawDocument) error {
	return d.appendElement(TypeDocument, key, doc.Bytes())
}

// AppendArray appends a nested array element from an encoded view.
func (d *DocumentBuf) AppendArray(key string, arr RawArray) error {
	return d.appendElement(TypeArray, key, arr.doc.Bytes())
}

// AppendBinary appends a binary element. For subtype 0x02 the redundant
// inner length prefix is written automatically.
func (d *DocumentBuf) AppendBinary(key string, subtype byte, data []byte) error {
	if subtype == SubtypeBinaryOld {
		header := common.AppendInt32(nil, int32(len(data)+4))
		header = append(header, subtype)
		return d.appendElement(TypeBinary, key, header, common.AppendInt32(nil, int32(len(data))), data)
	}
	header := common.AppendInt32(nil, int32(len(data)))
	header = append(header, subtype)
	return d.appendElement(TypeBinary, key, header, data)
}

// AppendObjectID appends a 12-byte object id element.
func (d *DocumentBuf) AppendObjectID(key string, id [12]byte) error {
	return d.appendElement(TypeObjectID, key, id[:])
}

// AppendBoolean appends a boolean element.
func (d *DocumentBuf) AppendBoolean(key string, b bool) error {
	v := byte(0)
	if b {
		v = 1
	}
	return d.appendElement(TypeBoolean, key, []byte{v})
}

// AppendDateTime appends a datetime element (signed milliseconds since the
// Unix epoch).
func (d *DocumentBuf) AppendDateTime(key string, ms int64) error {
	return d.appendElement(TypeDateTime, key, common.AppendInt64(nil, ms))
}

// AppendNull appends a null element.
func (d *DocumentBuf) AppendNull(key string) error {
	return d.appendElement(TypeNull, key)
}

// AppendUndefined appends an undefined element.
func (d *DocumentBuf) AppendUndefined(key string) error {
	return d.appendElement(TypeUndefined, key)
}

// AppendMinKey appends a min-key element.
func (d *DocumentBuf) AppendMinKey(key string) error {
	return d.appendElement(TypeMinKey, key)
}

// AppendMaxKey appends a max-key element.
func (d *DocumentBuf) AppendMaxKey(key string) error {
	return d.appendElement(TypeMaxKey, key)
}

// AppendRegex appends a regex element. Pattern and options are written as
// c-strings, so neither may contain an embedded NUL.
func (d *DocumentBuf) AppendRegex(key, pattern, options string) error {
	if common.HasNull(pattern) || common.HasNull(options) {
		return fmt.Errorf("rawbson: regex under key %q contains an embedded null byte", key)
	}
	payload := common.AppendCString(nil, pattern)
	payload = common.AppendCString(payload, options)
	return d.appendElement(TypeRegex, key, payload)
}

// AppendDBPointer appends a dbPointer element.
func (d *DocumentBuf) AppendDBPointer(key, namespace string, id [12]byte) error {
	payload := common.AppendString(nil, namespace)
	payload = append(payload, id[:]...)
	return d.appendElement(TypeDBPointer, key, payload)
}

// AppendJavaScript appends a javascript code element.
func (d *DocumentBuf) AppendJavaScript(key, code string) error {
	return d.appendElement(TypeJavaScript, key, common.AppendString(nil, code))
}

// AppendSymbol appends a symbol element.
func (d *DocumentBuf) AppendSymbol(key, s string) error {
	return d.appendElement(TypeSymbol, key, common.AppendString(nil, s))
}

// AppendCodeWithScope appends a code-with-scope element from an encoded
// scope document.
func (d *DocumentBuf) AppendCodeWithScope(key, code string, scope RawDocument) error {
	body := common.AppendString(nil, code)
	body = append(body, scope.Bytes()...)
	total := common.AppendInt32(nil, int32(4+len(body)))
	return d.appendElement(TypeCodeWithScope, key, total, body)
}

// AppendInt32 appends an int32 element.
func (d *DocumentBuf) AppendInt32(key string, n int32) error {
	return d.appendElement(TypeInt32, key, common.AppendInt32(nil, n))
}

// AppendInt64 appends an int64 element.
func (d *DocumentBuf) AppendInt64(key string, n int64) error {
	return d.appendElement(TypeInt64, key, common.AppendInt64(nil, n))
}

// AppendTimestamp appends a timestamp element. The increment is stored
// first, the seconds second.
func (d *DocumentBuf) AppendTimestamp(key string, t, i uint32) error {
	payload := common.AppendUint32(nil, i)
	payload = common.AppendUint32(payload, t)
	return d.appendElement(TypeTimestamp, key, payload)
}

// AppendDecimal128 appends the 16 raw bytes of a decimal128 element.
func (d *DocumentBuf) AppendDecimal128(key string, bits [16]byte) error {
	return d.appendElement(TypeDecimal128, key, bits[:])
}

// AppendValue appends an already-encoded value under key. The payload is
// copied, so v may alias another buffer.
func (d *DocumentBuf) AppendValue(key string, v RawValue) error {
	return d.appendElement(v.Type, key, v.Data)
}
