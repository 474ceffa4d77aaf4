package bson

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectIDHexRoundTrip(t *testing.T) {
	id := NewObjectID()
	hex := id.Hex()
	require.Len(t, hex, 24)

	parsed, err := ObjectIDFromHex(hex)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestObjectIDFromHexErrors(t *testing.T) {
	_, err := ObjectIDFromHex("635061f5b9e7b3a1d3a2b4c")
	require.Error(t, err, "23 characters must be rejected")

	_, err = ObjectIDFromHex("635061f5b9e7b3a1d3a2b4c5f")
	require.Error(t, err, "25 characters must be rejected")

	_, err = ObjectIDFromHex("zz5061f5b9e7b3a1d3a2b4c5")
	require.Error(t, err, "non-hex characters must be rejected")
}

func TestObjectIDTimestamp(t *testing.T) {
	at := time.Date(2023, 10, 12, 6, 45, 0, 0, time.UTC)
	id := NewObjectIDFromTime(at)
	assert.True(t, id.Timestamp().Equal(at))
}

func TestObjectIDUnique(t *testing.T) {
	seen := make(map[ObjectID]bool)
	for i := 0; i < 1000; i++ {
		id := NewObjectID()
		require.False(t, seen[id], "duplicate id %s", id.Hex())
		seen[id] = true
	}
}

func TestObjectIDZero(t *testing.T) {
	var id ObjectID
	assert.True(t, id.IsZero())
	assert.False(t, NewObjectID().IsZero())
}
