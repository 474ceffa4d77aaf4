// Package frame wraps encoded documents in a length-delimited transport
// frame with a checksum trailer and optional zstd compression, for
// shipping documents over sockets or appending them to log files.
//
// Layout: magic(2) type(1) length(u32 LE) flags(1) payload crc32(u32 LE).
// The length covers the whole frame including magic and CRC; the CRC is
// computed over everything after the magic and before the trailer.
package frame

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zstd"
)

const (
	magic0 = 0xB5
	magic1 = 0x0D

	// TypeDocument frames carry one encoded document as payload.
	TypeDocument = 0x01

	// FlagCompressed marks a zstd-compressed payload.
	FlagCompressed = 0x01

	headerSize  = 2 + 1 + 4 + 1
	trailerSize = 4

	// MaxFrameSize bounds a declared frame length before any allocation.
	MaxFrameSize = 64 * 1024 * 1024
)

var (
	ErrBadMagic       = errors.New("frame: bad magic")
	ErrBadType        = errors.New("frame: unknown frame type")
	ErrLengthMismatch = errors.New("frame: declared length does not match")
	ErrChecksum       = errors.New("frame: crc mismatch")
	ErrTruncated      = errors.New("frame: truncated frame")
)

var (
	zstdEnc, _ = zstd.NewWriter(nil)
	zstdDec, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxFrameSize))
)

// Encode wraps payload in a document frame. When compress is set the
// payload is zstd-compressed and the flag recorded, so Decode can undo
// it transparently.
func Encode(payload []byte, compress bool) ([]byte, error) {
	var flags byte
	if compress {
		flags |= FlagCompressed
		payload = zstdEnc.EncodeAll(payload, nil)
	}
	total := headerSize + len(payload) + trailerSize
	if total > MaxFrameSize {
		return nil, ErrLengthMismatch
	}
	out := make([]byte, 0, total)
	out = append(out, magic0, magic1, TypeDocument)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))
	out = append(out, flags)
	out = append(out, payload...)

	crc := crc32.ChecksumIEEE(out[2:])
	out = binary.LittleEndian.AppendUint32(out, crc)
	return out, nil
}

// Decode validates a whole frame and returns its payload, decompressing
// when the frame was written compressed.
func Decode(data []byte) ([]byte, error) {
	if len(data) < headerSize+trailerSize {
		return nil, ErrTruncated
	}
	if data[0] != magic0 || data[1] != magic1 {
		return nil, ErrBadMagic
	}
	if data[2] != TypeDocument {
		return nil, ErrBadType
	}
	total := binary.LittleEndian.Uint32(data[3:])
	if int(total) != len(data) || total > MaxFrameSize {
		return nil, ErrLengthMismatch
	}
	want := binary.LittleEndian.Uint32(data[len(data)-trailerSize:])
	if crc32.ChecksumIEEE(data[2:len(data)-trailerSize]) != want {
		return nil, ErrChecksum
	}
	flags := data[7]
	payload := data[headerSize : len(data)-trailerSize]
	if flags&FlagCompressed != 0 {
		return zstdDec.DecodeAll(payload, nil)
	}
	return append([]byte(nil), payload...), nil
}

// WriteFrame encodes payload and writes the frame to w.
func WriteFrame(w io.Writer, payload []byte, compress bool) error {
	f, err := Encode(payload, compress)
	if err != nil {
		return err
	}
	_, err = w.Write(f)
	return err
}

// ReadFrame reads exactly one frame from r and returns its payload. A
// clean end of stream before the first header byte surfaces as io.EOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, ErrTruncated
	}
	total := binary.LittleEndian.Uint32(hdr[3:])
	if total < headerSize+trailerSize || total > MaxFrameSize {
		return nil, ErrLengthMismatch
	}
	buf := make([]byte, total)
	copy(buf, hdr[:])
	if _, err := io.ReadFull(r, buf[headerSize:]); err != nil {
		return nil, ErrTruncated
	}
	return Decode(buf)
}
