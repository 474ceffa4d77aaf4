package bson

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
	"testing/quick"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/bson/pkg/rawbson"
)

func TestMarshalEmptyDocument(t *testing.T) {
	data, err := Marshal(NewDocument())
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 0, 0, 0, 0}, data)
}

func TestMarshalDoubleExactBytes(t *testing.T) {
	doc := NewDocument().Append("key", 1020.123)
	data, err := Marshal(doc)
	require.NoError(t, err)

	want := []byte{0x12, 0, 0, 0, 0x01, 'k', 'e', 'y', 0}
	want = binary.LittleEndian.AppendUint64(want, math.Float64bits(1020.123))
	want = append(want, 0)
	assert.Equal(t, want, data)
}

func allTypesDocument() *Document {
	scope := NewDocument().Append("x", int32(1))
	return NewDocument().
		Append("double", 3.5).
		Append("string", "text").
		Append("doc", NewDocument().Append("nested", "yes")).
		Append("arr", NewArray(int32(1), "two", nil)).
		Append("bin", Binary{Subtype: rawbson.SubtypeGeneric, Data: []byte{1, 2, 3}}).
		Append("oldbin", Binary{Subtype: rawbson.SubtypeBinaryOld, Data: []byte{4, 5}}).
		Append("undef", Undefined{}).
		Append("oid", ObjectID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}).
		Append("bool", true).
		Append("date", DateTime(1136239445000)).
		Append("null", nil).
		Append("regex", Regex{Pattern: "^a.*z$", Options: "is"}).
		Append("dbptr", DBPointer{Namespace: "db.coll", ID: ObjectID{0xFF}}).
		Append("js", JavaScript("function(){}")).
		Append("sym", Symbol("sym")).
		Append("cws", CodeWithScope{Code: "return x", Scope: scope}).
		Append("i32", int32(-12)).
		Append("ts", Timestamp{T: 4, I: 9}).
		Append("i64", int64(1)<<40).
		Append("dec", NewDecimal128(0x3040000000000000, 42)).
		Append("min", MinKey{}).
		Append("max", MaxKey{})
}

func TestRoundTripAllTypes(t *testing.T) {
	doc := allTypesDocument()
	data, err := Marshal(doc)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, doc.Equal(got), "round trip changed the tree:\n%s\n%s", doc, got)
}

func TestEncoderMatchesMarshal(t *testing.T) {
	doc := allTypesDocument()
	direct, err := Marshal(doc)
	require.NoError(t, err)

	var streamed bytes.Buffer
	require.NoError(t, NewEncoder(&streamed).Encode(doc))
	assert.Equal(t, direct, streamed.Bytes())
}

func TestEncoderMatchesMarshalForMaps(t *testing.T) {
	v := map[string]any{
		"b": map[string]any{"deep": []any{int32(1), "x"}},
		"a": int64(7),
		"c": 1.25,
	}
	direct, err := Marshal(v)
	require.NoError(t, err)

	var streamed bytes.Buffer
	require.NoError(t, NewEncoder(&streamed).Encode(v))
	assert.Equal(t, direct, streamed.Bytes())
}

func TestDecoderStream(t *testing.T) {
	first, err := Marshal(NewDocument().Append("n", int32(1)))
	require.NoError(t, err)
	second, err := Marshal(NewDocument().Append("n", int32(2)))
	require.NoError(t, err)

	dec := NewDecoder(bytes.NewReader(append(first, second...)))
	for want := int32(1); want <= 2; want++ {
		var doc *Document
		require.NoError(t, dec.Decode(&doc))
		n, err := doc.GetInt32("n")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	var doc *Document
	assert.Equal(t, io.EOF, dec.Decode(&doc))
}

func TestDecoderTruncatedBody(t *testing.T) {
	data, err := Marshal(NewDocument().Append("k", "value"))
	require.NoError(t, err)
	dec := NewDecoder(bytes.NewReader(data[:len(data)-3]))
	var doc *Document
	err = dec.Decode(&doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

type address struct {
	City string `bson:"city"`
	Zip  string `bson:"zip,omitempty"`
}

type person struct {
	Name    string   `bson:"name"`
	Age     int32    `bson:"age"`
	Home    address  `bson:"home"`
	Tags    []string `bson:"tags"`
	Ignored string   `bson:"-"`
}

func TestStructRoundTrip(t *testing.T) {
	in := person{
		Name: "ada",
		Age:  36,
		Home: address{City: "london"},
		Tags: []string{"x", "y"},
	}
	data, err := Marshal(in)
	require.NoError(t, err)

	var out person
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)

	// omitempty dropped the zip field entirely.
	doc, err := Decode(data)
	require.NoError(t, err)
	home, err := doc.GetDocument("home")
	require.NoError(t, err)
	assert.False(t, home.Has("zip"))
}

func TestUnmarshalIntoMap(t *testing.T) {
	data, err := Marshal(NewDocument().Append("a", int32(1)).Append("b", "two"))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, Unmarshal(data, &m))
	assert.Equal(t, map[string]any{"a": int32(1), "b": "two"}, m)
}

func TestUnmarshalRawView(t *testing.T) {
	data, err := Marshal(NewDocument().Append("a", int32(1)))
	require.NoError(t, err)

	var raw rawbson.RawDocument
	require.NoError(t, Unmarshal(data, &raw))
	// The view aliases the input rather than copying it.
	assert.Same(t, &data[0], &raw.Bytes()[0])
}

func TestValueAccessErrors(t *testing.T) {
	doc := NewDocument().Append("s", "text")

	_, err := doc.GetInt32("missing")
	assert.ErrorIs(t, err, ErrNotPresent)
	assert.NotErrorIs(t, err, ErrWrongType)

	_, err = doc.GetInt32("s")
	assert.ErrorIs(t, err, ErrWrongType)
	assert.NotErrorIs(t, err, ErrNotPresent)
}

func TestArrayIndexOutOfRange(t *testing.T) {
	arr := NewArray(int32(1))
	_, err := arr.Get(1)
	assert.ErrorIs(t, err, ErrNotPresent)
	_, err = arr.Get(-1)
	assert.ErrorIs(t, err, ErrNotPresent)
}

func TestDuplicateKeysLastWins(t *testing.T) {
	buf := rawbson.NewDocumentBuf()
	require.NoError(t, buf.AppendInt32("k", 1))
	require.NoError(t, buf.AppendString("other", "x"))
	require.NoError(t, buf.AppendInt32("k", 2))

	doc, err := Decode(buf.Bytes())
	require.NoError(t, err)
	n, err := doc.GetInt32("k")
	require.NoError(t, err)
	assert.Equal(t, int32(2), n)
	// The first occurrence keeps its position.
	assert.Equal(t, []string{"k", "other"}, doc.Keys())
}

func TestInvalidKeyRejected(t *testing.T) {
	_, err := Marshal(NewDocument().Append("bad\x00key", int32(1)))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestOversizeRejected(t *testing.T) {
	big := make([]byte, 17<<20)
	_, err := Marshal(NewDocument().Append("blob", big))
	assert.ErrorIs(t, err, ErrOversize)
}

func TestMarshalTopLevelArrayRejected(t *testing.T) {
	arr := rawbson.NewArrayBuf()
	require.NoError(t, arr.PushInt32(1))

	values := []any{
		NewArray(int32(1), "two", int32(3)),
		Array{},
		rawbson.RawArray{},
		arr,
		rawbson.RawValue{},
	}
	for _, v := range values {
		data, err := Marshal(v)
		require.Errorf(t, err, "%T", v)
		assert.Nil(t, data)

		err = NewEncoder(&bytes.Buffer{}).Encode(v)
		require.Errorf(t, err, "%T", v)
	}
}

func TestLenCounterHugePayload(t *testing.T) {
	c := &lenCounter{}
	require.NoError(t, c.BeginDocument())
	require.NoError(t, c.add(int64(math.MaxInt32)+8))
	assert.ErrorIs(t, c.EndDocument(), ErrOversize)
}

func TestUintOutOfRange(t *testing.T) {
	_, err := Marshal(NewDocument().Append("n", uint64(math.MaxUint64)))
	assert.ErrorIs(t, err, ErrIntRange)
}

func TestUTF8Strict(t *testing.T) {
	buf := rawbson.NewDocumentBuf()
	require.NoError(t, buf.AppendString("s", "ok\xffbad"))

	_, err := Decode(buf.Bytes())
	assert.ErrorIs(t, err, ErrInvalidUTF8)

	lossy := NewCodec(Options{UTF8Lossy: true})
	doc, err := lossy.Decode(buf.Bytes())
	require.NoError(t, err)
	s, err := doc.GetString("s")
	require.NoError(t, err)
	assert.Equal(t, "ok�bad", s)
}

func TestNaNRoundTrip(t *testing.T) {
	data, err := Marshal(NewDocument().Append("nan", math.NaN()).Append("inf", math.Inf(-1)))
	require.NoError(t, err)
	doc, err := Decode(data)
	require.NoError(t, err)
	f, err := doc.GetDouble("nan")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(f))
	f, err = doc.GetDouble("inf")
	require.NoError(t, err)
	assert.True(t, math.IsInf(f, -1))
}

func TestTimeRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 17, 8, 30, 0, 250e6, time.UTC)
	data, err := Marshal(NewDocument().Append("at", at))
	require.NoError(t, err)

	var out struct {
		At time.Time `bson:"at"`
	}
	require.NoError(t, Unmarshal(data, &out))
	assert.True(t, at.Equal(out.At), "want %v, got %v", at, out.At)
}

func TestQuickRoundTrip(t *testing.T) {
	prop := func(s string, n int32, big int64, f float64, b bool, blob []byte) bool {
		doc := NewDocument().
			Append("s", s).
			Append("n", n).
			Append("big", big).
			Append("f", f).
			Append("b", b).
			Append("blob", Binary{Subtype: rawbson.SubtypeGeneric, Data: blob})
		data, err := Marshal(doc)
		if err != nil {
			// Only a key or string with no valid encoding may fail,
			// and quick generates valid Go strings.
			return errors.Is(err, ErrInvalidKey)
		}
		got, err := Decode(data)
		if err != nil {
			return errors.Is(err, ErrInvalidUTF8)
		}
		return cmp.Equal(documentToMap(doc), documentToMap(got),
			cmpopts.EquateNaNs(), cmpopts.EquateEmpty())
	}
	require.NoError(t, quick.Check(prop, nil))
}

func TestMarshalRawDocumentPassThrough(t *testing.T) {
	data, err := Marshal(NewDocument().Append("k", int32(1)))
	require.NoError(t, err)
	raw, err := rawbson.NewDocument(data)
	require.NoError(t, err)

	again, err := Marshal(raw)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	var streamed bytes.Buffer
	require.NoError(t, NewEncoder(&streamed).Encode(raw))
	assert.Equal(t, data, streamed.Bytes())
}
