package frame

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte{5, 0, 0, 0, 0}
	f, err := Encode(payload, false)
	require.NoError(t, err)

	got, err := Decode(f)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestCompressedRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdef"), 4096)
	f, err := Encode(payload, true)
	require.NoError(t, err)
	assert.Less(t, len(f), len(payload), "repetitive payload should shrink")

	got, err := Decode(f)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDecodeRejectsCorruption(t *testing.T) {
	f, err := Encode([]byte("payload"), false)
	require.NoError(t, err)

	flipped := append([]byte(nil), f...)
	flipped[len(flipped)/2] ^= 0xFF
	_, err = Decode(flipped)
	assert.ErrorIs(t, err, ErrChecksum)

	badMagic := append([]byte(nil), f...)
	badMagic[0] = 0
	_, err = Decode(badMagic)
	assert.ErrorIs(t, err, ErrBadMagic)

	badType := append([]byte(nil), f...)
	badType[2] = 0x7E
	_, err = Decode(badType)
	assert.ErrorIs(t, err, ErrBadType)

	_, err = Decode(f[:6])
	assert.ErrorIs(t, err, ErrTruncated)

	short := append([]byte(nil), f...)
	_, err = Decode(short[:len(short)-1])
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestStreamReadWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("first"), false))
	require.NoError(t, WriteFrame(&buf, []byte("second"), true))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	got, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	_, err = ReadFrame(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestReadFrameTruncated(t *testing.T) {
	f, err := Encode([]byte("payload"), false)
	require.NoError(t, err)
	_, err = ReadFrame(bytes.NewReader(f[:len(f)-2]))
	assert.ErrorIs(t, err, ErrTruncated)
}
