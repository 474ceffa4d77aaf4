// Package rawbson provides zero-copy views over encoded documents and
// append-only owned builders for producing them.
//
// A RawDocument is a read-only window over bytes owned by something else:
// construction checks only the envelope (length prefix and trailing NUL),
// an O(1) cost regardless of how deep or large the document is. Everything
// inside is validated lazily as an Iter walks the elements. A view must not
// be used after its backing buffer is mutated or released.
//
// DocumentBuf and ArrayBuf own their bytes and grow strictly by append;
// there is no update or delete. Appending a key that is already present is
// a caller error, not a merge.
package rawbson

import (
	"fmt"

	"github.com/rawbytedev/bson/internal/common"
)

// RawDocument is a borrowed view over one encoded document. The underlying
// slice is aliased, never copied.
type RawDocument []byte

// NewDocument validates the envelope of b and returns it as a view. The
// three checks are: at least 5 bytes, length prefix equal to the buffer
// length, and a final NUL byte. Element payloads are not inspected.
func NewDocument(b []byte) (RawDocument, error) {
	if len(b) < common.MinDocumentSize {
		return nil, parseErr(ErrBadEnvelope, "", 0,
			fmt.Sprintf("%d bytes is below the %d byte minimum", len(b), common.MinDocumentSize))
	}
	length, _ := common.ReadInt32(b)
	if int64(length) != int64(len(b)) {
		return nil, parseErr(ErrBadEnvelope, "", 0,
			fmt.Sprintf("length prefix %d does not match buffer length %d", length, len(b)))
	}
	if length > common.MaxDocumentSize {
		return nil, parseErr(ErrBadLength, "", 0,
			fmt.Sprintf("document length %d exceeds the %d byte ceiling", length, common.MaxDocumentSize))
	}
	if b[len(b)-1] != 0 {
		return nil, parseErr(ErrBadEnvelope, "", len(b)-1, "document does not end with a null byte")
	}
	return RawDocument(b), nil
}

// Bytes returns the underlying buffer.
func (d RawDocument) Bytes() []byte { return []byte(d) }

// Get scans the elements in order and returns the value stored under key.
// The found flag distinguishes an absent key from a malformed document.
// Cost is linear in the position of the key; callers doing repeated lookups
// should materialize the document once instead.
func (d RawDocument) Get(key string) (RawValue, bool, error) {
	it := d.Iter()
	for it.Next() {
		if it.Key() == key {
			return it.Value(), true, nil
		}
	}
	if err := it.Err(); err != nil {
		return RawValue{}, false, err
	}
	return RawValue{}, false, nil
}

// IsEmpty reports whether the document holds no elements.
func (d RawDocument) IsEmpty() bool {
	return len(d) == common.MinDocumentSize
}

// Owned returns a DocumentBuf holding a deep copy of the view. The copy is
// independent of the backing buffer and always succeeds.
func (d RawDocument) Owned() *DocumentBuf {
	buf := make([]byte, len(d))
	copy(buf, d)
	return &DocumentBuf{buf: buf}
}
