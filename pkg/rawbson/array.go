package rawbson

import (
	"strconv"
)

// RawArray reinterprets a document view as an array: the same byte layout
// whose keys are the decimal strings "0", "1", "2", ... in ascending order.
// It is a thin wrapper sharing all of RawDocument's iteration and
// validation; only the index-to-key mapping is added. Nothing re-checks the
// key sequence on construction; bytes written with out-of-order keys stop
// being array-shaped for every consumer.
type RawArray struct {
	doc RawDocument
}

// NewArray validates the envelope of b and returns it as an array view.
func NewArray(b []byte) (RawArray, error) {
	doc, err := NewDocument(b)
	if err != nil {
		return RawArray{}, err
	}
	return RawArray{doc: doc}, nil
}

// Document returns the underlying document view.
func (a RawArray) Document() RawDocument { return a.doc }

// Bytes returns the underlying buffer.
func (a RawArray) Bytes() []byte { return a.doc.Bytes() }

// Index returns the value at position i. The found flag is false for an
// out-of-range index; the error reports malformed bytes. A failed lookup
// does not corrupt later lookups.
func (a RawArray) Index(i int) (RawValue, bool, error) {
	if i < 0 {
		return RawValue{}, false, nil
	}
	return a.doc.Get(strconv.Itoa(i))
}

// Iter returns an iterator over the array's values in index order.
func (a RawArray) Iter() *Iter { return a.doc.Iter() }

// IsEmpty reports whether the array holds no values.
func (a RawArray) IsEmpty() bool { return a.doc.IsEmpty() }

// Owned returns an ArrayBuf holding a deep copy of the view.
func (a RawArray) Owned() *ArrayBuf {
	buf := a.doc.Owned()
	n := 0
	it := buf.View().Iter()
	for it.Next() {
		n++
	}
	return &ArrayBuf{buf: buf, n: n}
}

// ArrayBuf is the owned, append-only array builder. Push assigns the next
// decimal index key itself, keeping the bytes array-shaped by construction.
type ArrayBuf struct {
	buf *DocumentBuf
	n   int
}

// NewArrayBuf returns an empty array.
func NewArrayBuf() *ArrayBuf {
	return &ArrayBuf{buf: NewDocumentBuf()}
}

// Bytes returns the encoded array. The slice is invalidated by further
// pushes.
func (a *ArrayBuf) Bytes() []byte { return a.buf.Bytes() }

// View returns the buffer as a borrowed array view.
func (a *ArrayBuf) View() RawArray { return RawArray{doc: a.buf.View()} }

// Len returns the number of values pushed.
func (a *ArrayBuf) Len() int { return a.n }

func (a *ArrayBuf) nextKey() string {
	key := strconv.Itoa(a.n)
	a.n++
	return key
}

// PushDouble appends a double value.
func (a *ArrayBuf) PushDouble(f float64) error {
	return a.buf.AppendDouble(a.nextKey(), f)
}

// PushString appends a string value.
func (a *ArrayBuf) PushString(s string) error {
	return a.buf.AppendString(a.nextKey(), s)
}

// PushDocument appends a nested document value.
func (a *ArrayBuf) PushDocument(doc RawDocument) error {
	return a.buf.AppendDocument(a.nextKey(), doc)
}

// PushArray appends a nested array value.
func (a *ArrayBuf) PushArray(arr RawArray) error {
	return a.buf.AppendArray(a.nextKey(), arr)
}

// PushInt32 appends an int32 value.
func (a *ArrayBuf) PushInt32(n int32) error {
	return a.buf.AppendInt32(a.nextKey(), n)
}

// PushInt64 appends an int64 value.
func (a *ArrayBuf) PushInt64(n int64) error {
	return a.buf.AppendInt64(a.nextKey(), n)
}

// PushBoolean appends a boolean value.
func (a *ArrayBuf) PushBoolean(b bool) error {
	return a.buf.AppendBoolean(a.nextKey(), b)
}

// PushNull appends a null value.
func (a *ArrayBuf) PushNull() error {
	return a.buf.AppendNull(a.nextKey())
}

// PushValue appends an already-encoded value.
func (a *ArrayBuf) PushValue(v RawValue) error {
	return a.buf.AppendValue(a.nextKey(), v)
}
