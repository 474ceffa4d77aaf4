package extjson

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/bson"
)

func TestCanonicalWrapsEverything(t *testing.T) {
	doc := bson.NewDocument().
		Append("a", int32(1)).
		Append("b", int64(2)).
		Append("c", 1.5).
		Append("d", "text")

	out, err := Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"a":{"$numberInt":"1"},"b":{"$numberLong":"2"},"c":{"$numberDouble":"1.5"},"d":"text"}`,
		string(out))
}

func TestRelaxedUsesPlainNumbers(t *testing.T) {
	doc := bson.NewDocument().
		Append("a", int32(1)).
		Append("b", int64(2)).
		Append("c", 1.5)

	out, err := MarshalRelaxed(doc)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":1.5}`, string(out))
}

func TestRelaxedIntegralDoubleKeepsPoint(t *testing.T) {
	out, err := MarshalRelaxed(bson.NewDocument().Append("f", 3.0))
	require.NoError(t, err)
	assert.Equal(t, `{"f":3.0}`, string(out))
}

func TestNonFiniteDoublesAlwaysWrapped(t *testing.T) {
	doc := bson.NewDocument().Append("nan", math.NaN()).Append("inf", math.Inf(1))
	out, err := MarshalRelaxed(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nan":{"$numberDouble":"NaN"},"inf":{"$numberDouble":"Infinity"}}`, string(out))
}

func TestCanonicalDate(t *testing.T) {
	out, err := Marshal(bson.NewDocument().Append("at", bson.DateTime(1136239445000)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":{"$date":{"$numberLong":"1136239445000"}}}`, string(out))
}

func TestRelaxedDateIsReadable(t *testing.T) {
	out, err := MarshalRelaxed(bson.NewDocument().Append("at", bson.DateTime(1136239445000)))
	require.NoError(t, err)
	assert.Equal(t, `{"at":{"$date":"2006-01-02T22:04:05Z"}}`, string(out))
}

func TestRelaxedDateOutOfRFC3339Range(t *testing.T) {
	// Far-past dates cannot be written as RFC 3339 text.
	out, err := MarshalRelaxed(bson.NewDocument().Append("at", bson.DateTime(-99999999999999)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":{"$date":{"$numberLong":"-99999999999999"}}}`, string(out))
}

func TestUnmarshalCanonical(t *testing.T) {
	doc, err := Unmarshal([]byte(`{
		"id": {"$oid": "635061f5b9e7b3a1d3a2b4c5"},
		"n": {"$numberInt": "7"},
		"when": {"$date": {"$numberLong": "1136239445000"}},
		"data": {"$binary": {"base64": "AQID", "subType": "00"}},
		"dec": {"$numberDecimal": "1.5"}
	}`))
	require.NoError(t, err)

	id, err := doc.GetObjectID("id")
	require.NoError(t, err)
	assert.Equal(t, "635061f5b9e7b3a1d3a2b4c5", id.Hex())

	n, err := doc.GetInt32("n")
	require.NoError(t, err)
	assert.Equal(t, int32(7), n)

	when, err := doc.GetDateTime("when")
	require.NoError(t, err)
	assert.Equal(t, bson.DateTime(1136239445000), when)

	data, err := doc.GetBinary("data")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data.Data)

	dec, err := doc.GetDecimal128("dec")
	require.NoError(t, err)
	assert.Equal(t, "1.5", dec.String())
}

func TestUnmarshalRelaxedNumbers(t *testing.T) {
	doc, err := Unmarshal([]byte(`{"small": 5, "big": 5000000000, "frac": 0.5}`))
	require.NoError(t, err)

	small, err := doc.GetInt32("small")
	require.NoError(t, err)
	assert.Equal(t, int32(5), small)

	big, err := doc.GetInt64("big")
	require.NoError(t, err)
	assert.Equal(t, int64(5000000000), big)

	frac, err := doc.GetDouble("frac")
	require.NoError(t, err)
	assert.Equal(t, 0.5, frac)
}

func TestUnmarshalNestedMarkersInsideScope(t *testing.T) {
	doc, err := Unmarshal([]byte(`{
		"fn": {"$code": "run()", "$scope": {"id": {"$oid": "635061f5b9e7b3a1d3a2b4c5"}}}
	}`))
	require.NoError(t, err)

	fn, ok := doc.Get("fn")
	require.True(t, ok)
	cws, ok := fn.(bson.CodeWithScope)
	require.True(t, ok)
	assert.Equal(t, "run()", cws.Code)
	id, err := cws.Scope.GetObjectID("id")
	require.NoError(t, err)
	assert.Equal(t, "635061f5b9e7b3a1d3a2b4c5", id.Hex())
}

func TestUnmarshalMalformedMarker(t *testing.T) {
	_, err := Unmarshal([]byte(`{"id": {"$oid": "nope"}}`))
	require.Error(t, err)

	_, err = Unmarshal([]byte(`{"id": {"$oid": "635061f5b9e7b3a1d3a2b4c5", "extra": 1}}`))
	require.Error(t, err)
}

func TestUnmarshalRejectsNonObjectTopLevel(t *testing.T) {
	_, err := Unmarshal([]byte(`[1, 2]`))
	require.Error(t, err)
	_, err = Unmarshal([]byte(`{"a":1} trailing`))
	require.Error(t, err)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	doc := bson.NewDocument().
		Append("arr", bson.NewArray(int32(1), "x", nil)).
		Append("min", bson.MinKey{}).
		Append("re", bson.Regex{Pattern: "^a", Options: "i"}).
		Append("sym", bson.Symbol("sym")).
		Append("ts", bson.Timestamp{T: 1, I: 2}).
		Append("undef", bson.Undefined{})

	text, err := Marshal(doc)
	require.NoError(t, err)

	got, err := Unmarshal(text)
	require.NoError(t, err)
	assert.True(t, doc.Equal(got), "round trip changed the tree:\n%s\n%s", doc, got)
}

func TestBinaryRoundTripThroughText(t *testing.T) {
	doc := bson.NewDocument().Append("v", bson.Binary{Subtype: 0x80, Data: []byte{0xCA, 0xFE}})
	text, err := Marshal(doc)
	require.NoError(t, err)
	got, err := Unmarshal(text)
	require.NoError(t, err)
	bin, err := got.GetBinary("v")
	require.NoError(t, err)
	assert.Equal(t, byte(0x80), bin.Subtype)
	assert.Equal(t, []byte{0xCA, 0xFE}, bin.Data)
}
