package rawbson

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufEmpty(t *testing.T) {
	buf := NewDocumentBuf()
	assert.Equal(t, []byte{5, 0, 0, 0, 0}, buf.Bytes())
	assert.Equal(t, 5, buf.Len())
}

func TestBufDoubleExactBytes(t *testing.T) {
	buf := NewDocumentBuf()
	require.NoError(t, buf.AppendDouble("key", 1020.123))

	want := []byte{0x12, 0, 0, 0, 0x01, 'k', 'e', 'y', 0}
	want = binary.LittleEndian.AppendUint64(want, math.Float64bits(1020.123))
	want = append(want, 0)
	assert.Equal(t, want, buf.Bytes())
}

func TestBufValidAfterEveryAppend(t *testing.T) {
	buf := NewDocumentBuf()
	appends := []func() error{
		func() error { return buf.AppendString("a", "one") },
		func() error { return buf.AppendInt64("b", 42) },
		func() error { return buf.AppendObjectID("c", [12]byte{1, 2, 3}) },
		func() error { return buf.AppendTimestamp("d", 100, 7) },
		func() error { return buf.AppendDecimal128("e", [16]byte{0xFF}) },
	}
	for _, step := range appends {
		require.NoError(t, step())
		_, err := NewDocument(buf.Bytes())
		require.NoError(t, err)
	}
}

func TestBufNestedDocument(t *testing.T) {
	inner := NewDocumentBuf()
	require.NoError(t, inner.AppendBoolean("flag", false))

	outer := NewDocumentBuf()
	require.NoError(t, outer.AppendDocument("inner", inner.View()))

	v, ok, err := outer.View().Get("inner")
	require.NoError(t, err)
	require.True(t, ok)
	sub, err := v.Document()
	require.NoError(t, err)
	b, ok, err := sub.Get("flag")
	require.NoError(t, err)
	require.True(t, ok)
	flag, err := b.Boolean()
	require.NoError(t, err)
	assert.False(t, flag)
}

func TestBufKeyWithNull(t *testing.T) {
	buf := NewDocumentBuf()
	require.Error(t, buf.AppendInt32("bad\x00key", 1))
}

func TestBufOldBinaryRoundTrip(t *testing.T) {
	buf := NewDocumentBuf()
	require.NoError(t, buf.AppendBinary("bin", SubtypeBinaryOld, []byte{9, 8, 7}))

	v, ok, err := buf.View().Get("bin")
	require.NoError(t, err)
	require.True(t, ok)
	sub, data, err := v.Binary()
	require.NoError(t, err)
	assert.Equal(t, SubtypeBinaryOld, sub)
	assert.Equal(t, []byte{9, 8, 7}, data)
}

func TestBufTimestampLayout(t *testing.T) {
	// Increment is stored before seconds on the wire.
	buf := NewDocumentBuf()
	require.NoError(t, buf.AppendTimestamp("ts", 0x11223344, 0x55667788))
	raw := buf.Bytes()
	payload := raw[len(raw)-9 : len(raw)-1]
	assert.Equal(t, uint32(0x55667788), binary.LittleEndian.Uint32(payload[:4]))
	assert.Equal(t, uint32(0x11223344), binary.LittleEndian.Uint32(payload[4:]))
}

func TestBufAppendValue(t *testing.T) {
	src := NewDocumentBuf()
	require.NoError(t, src.AppendString("s", "carry"))
	v, ok, err := src.View().Get("s")
	require.NoError(t, err)
	require.True(t, ok)

	dst := NewDocumentBuf()
	require.NoError(t, dst.AppendValue("copied", v))
	got, ok, err := dst.View().Get("copied")
	require.NoError(t, err)
	require.True(t, ok)
	s, err := got.StringValue()
	require.NoError(t, err)
	assert.Equal(t, "carry", s)
}

func TestArrayBuf(t *testing.T) {
	buf := NewArrayBuf()
	require.NoError(t, buf.PushInt32(10))
	require.NoError(t, buf.PushString("two"))
	require.NoError(t, buf.PushNull())

	arr, err := NewArray(buf.Bytes())
	require.NoError(t, err)

	v, ok, err := arr.Index(1)
	require.NoError(t, err)
	require.True(t, ok)
	s, err := v.StringValue()
	require.NoError(t, err)
	assert.Equal(t, "two", s)

	_, ok, err = arr.Index(3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOwnedCopiesDoNotAlias(t *testing.T) {
	buf := NewDocumentBuf()
	require.NoError(t, buf.AppendString("k", "val"))
	view := buf.View()
	owned := view.Owned()

	raw := buf.Bytes()
	raw[len(raw)-2] = 'X'
	assert.NotEqual(t, view.Bytes(), owned.Bytes())
}
