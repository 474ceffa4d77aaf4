package rawbson

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyDocument(t *testing.T) {
	doc, err := NewDocument([]byte{5, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.True(t, doc.IsEmpty())

	it := doc.Iter()
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestIterWalk(t *testing.T) {
	buf := NewDocumentBuf()
	require.NoError(t, buf.AppendDouble("d", 3.25))
	require.NoError(t, buf.AppendString("s", "hello"))
	require.NoError(t, buf.AppendInt32("i", -7))
	require.NoError(t, buf.AppendBoolean("b", true))
	require.NoError(t, buf.AppendNull("n"))

	doc := buf.View()
	it := doc.Iter()

	require.True(t, it.Next())
	assert.Equal(t, "d", it.Key())
	f, err := it.Value().Double()
	require.NoError(t, err)
	assert.Equal(t, 3.25, f)

	require.True(t, it.Next())
	s, err := it.Value().StringValue()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	require.True(t, it.Next())
	n, err := it.Value().Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), n)

	require.True(t, it.Next())
	b, err := it.Value().Boolean()
	require.NoError(t, err)
	assert.True(t, b)

	require.True(t, it.Next())
	assert.Equal(t, TypeNull, it.Value().Type)

	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

// element wraps a single encoded element in a valid document envelope so
// malformed payloads can be fed to the iterator.
func element(tag byte, key string, payload ...byte) []byte {
	body := append([]byte{tag}, key...)
	body = append(body, 0)
	body = append(body, payload...)
	doc := make([]byte, 4, 4+len(body)+1)
	doc = append(doc, body...)
	doc = append(doc, 0)
	binary.LittleEndian.PutUint32(doc, uint32(len(doc)))
	return doc
}

func iterErr(t *testing.T, raw []byte) error {
	t.Helper()
	doc, err := NewDocument(raw)
	if err != nil {
		return err
	}
	it := doc.Iter()
	for it.Next() {
	}
	return it.Err()
}

func TestMalformedEnvelope(t *testing.T) {
	cases := map[string][]byte{
		"too short":       {5, 0, 0},
		"length mismatch": {9, 0, 0, 0, 0},
		"missing nul":     {5, 0, 0, 0, 1},
		"below minimum":   {4, 0, 0, 0},
		"negative length": {0xFF, 0xFF, 0xFF, 0xFF, 0},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewDocument(raw)
			require.Error(t, err)
		})
	}
}

func TestMalformedElements(t *testing.T) {
	cases := map[string][]byte{
		"invalid tag":          element(0x20, "k"),
		"bool byte two":        element(byte(TypeBoolean), "k", 2),
		"truncated double":     element(byte(TypeDouble), "k", 1, 2, 3),
		"string zero length":   element(byte(TypeString), "k", 0, 0, 0, 0),
		"string no terminator": element(byte(TypeString), "k", 2, 0, 0, 0, 'a', 'b'),
		"string runs past end": element(byte(TypeString), "k", 0xFF, 0, 0, 0, 'a', 0),
		"nested too short":     element(byte(TypeDocument), "k", 4, 0, 0, 0),
		"nested runs past end": element(byte(TypeDocument), "k", 0x40, 0, 0, 0, 0),
		"binary runs past end": element(byte(TypeBinary), "k", 9, 0, 0, 0, SubtypeGeneric, 1),
		"old binary mismatch":  element(byte(TypeBinary), "k", 6, 0, 0, 0, SubtypeBinaryOld, 9, 0, 0, 0, 0xAA, 0xBB),
		"regex no terminator":  element(byte(TypeRegex), "k", 'a', 'b'),
		"scope below minimum":  element(byte(TypeCodeWithScope), "k", 13, 0, 0, 0, 1, 0, 0, 0, 0, 5, 0, 0, 0, 0),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			err := iterErr(t, raw)
			require.Error(t, err)
			var perr *Error
			require.ErrorAs(t, err, &perr)
		})
	}
}

func TestHugeNestedLength(t *testing.T) {
	// The nested document claims far more bytes than the buffer holds.
	raw := element(byte(TypeDocument), "deep", 0xF0, 0xFF, 0xFF, 0x7E, 0)
	err := iterErr(t, raw)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "deep", perr.Key)
}

func TestTrailingBytesAfterTerminator(t *testing.T) {
	// Terminator appears before the declared end of the document.
	raw := []byte{7, 0, 0, 0, 0, 0xAA, 0}
	err := iterErr(t, raw)
	require.Error(t, err)
}

func TestErroredIterStaysDown(t *testing.T) {
	raw := element(byte(TypeBoolean), "k", 7)
	doc, err := NewDocument(raw)
	require.NoError(t, err)
	it := doc.Iter()
	require.False(t, it.Next())
	require.Error(t, it.Err())
	first := it.Err()
	for i := 0; i < 3; i++ {
		assert.False(t, it.Next())
		assert.Same(t, first.(*Error), it.Err().(*Error))
	}
}

func TestGet(t *testing.T) {
	buf := NewDocumentBuf()
	require.NoError(t, buf.AppendInt64("first", 1))
	require.NoError(t, buf.AppendString("second", "x"))
	doc := buf.View()

	v, ok, err := doc.Get("second")
	require.NoError(t, err)
	require.True(t, ok)
	s, err := v.StringValue()
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	_, ok, err = doc.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOldBinaryAccessor(t *testing.T) {
	raw := element(byte(TypeBinary), "k", 8, 0, 0, 0, SubtypeBinaryOld, 4, 0, 0, 0, 0xDE, 0xAD, 0xBE, 0xEF)
	doc, err := NewDocument(raw)
	require.NoError(t, err)
	v, ok, err := doc.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	sub, data, err := v.Binary()
	require.NoError(t, err)
	assert.Equal(t, SubtypeBinaryOld, sub)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, data)
}

func TestWrongTypeAccessor(t *testing.T) {
	buf := NewDocumentBuf()
	require.NoError(t, buf.AppendInt32("n", 5))
	v, ok, err := buf.View().Get("n")
	require.NoError(t, err)
	require.True(t, ok)
	_, err = v.Double()
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrWrongType, perr.Kind)
}
