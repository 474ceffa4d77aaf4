package bson

import (
	"fmt"
	"io"

	"github.com/rawbytedev/bson/internal/common"
	"github.com/rawbytedev/bson/pkg/rawbson"
)

// Marshal encodes v as a single document using the default codec. v must
// have a document shape: a *Document, a string-keyed map, a struct or a
// pre-encoded raw document.
func Marshal(v any) ([]byte, error) {
	return defaultCodec.Marshal(v)
}

// Unmarshal validates data as a single document and raises it into v
// using the default codec.
func Unmarshal(data []byte, v any) error {
	return defaultCodec.Unmarshal(data, v)
}

// Marshal encodes v into a fresh buffer. Lengths are written as
// placeholders and patched in place once each document closes, so the
// value tree is walked exactly once.
func (c *Codec) Marshal(v any) ([]byte, error) {
	w := &backpatchWriter{}
	if err := c.encodeDocument(w, v); err != nil {
		return nil, err
	}
	return w.buf, nil
}

// Unmarshal validates data as a document and raises it into v. When v is
// a *rawbson.RawDocument the validated view aliases data and no
// materialization happens; every other destination receives owned values.
func (c *Codec) Unmarshal(data []byte, v any) error {
	raw, err := rawbson.NewDocument(data)
	if err != nil {
		return err
	}
	if dst, ok := v.(*rawbson.RawDocument); ok {
		*dst = raw
		return nil
	}
	doc, err := c.decodeDocument(raw)
	if err != nil {
		return err
	}
	return c.unmarshalDocument(doc, v)
}

// Decode materializes data into an owned document tree.
func (c *Codec) Decode(data []byte) (*Document, error) {
	raw, err := rawbson.NewDocument(data)
	if err != nil {
		return nil, err
	}
	return c.decodeDocument(raw)
}

// Decode materializes data into an owned document tree using the default
// codec.
func Decode(data []byte) (*Document, error) {
	return defaultCodec.Decode(data)
}

// An Encoder writes documents to a forward-only destination. Because the
// sink cannot be rewritten, every document length is computed in a
// counting pass before a single byte is emitted; the emit pass then
// consumes the precomputed lengths in lock-step. The output is
// byte-identical to Marshal.
type Encoder struct {
	w io.Writer
	c *Codec
}

// NewEncoder returns an encoder writing to w with the default codec.
func NewEncoder(w io.Writer) *Encoder {
	return defaultCodec.NewEncoder(w)
}

// NewEncoder returns an encoder writing to w with this codec's options.
func (c *Codec) NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, c: c}
}

// Encode writes v to the destination as one document.
func (e *Encoder) Encode(v any) error {
	if b, ok, err := rawBody(v); err != nil {
		return err
	} else if ok {
		if _, err := e.w.Write(b); err != nil {
			return fmt.Errorf("bson: sink write failed: %w", err)
		}
		return nil
	}
	count := &lenCounter{}
	if err := e.c.encodeDocument(count, v); err != nil {
		return err
	}
	emit := &streamEmitter{w: e.w, lens: count.lens}
	return e.c.encodeDocument(emit, v)
}

// rawBody short-circuits values that already hold encoded bytes.
func rawBody(v any) ([]byte, bool, error) {
	switch rv := v.(type) {
	case rawbson.RawDocument:
		if _, err := rawbson.NewDocument(rv.Bytes()); err != nil {
			return nil, true, err
		}
		return rv.Bytes(), true, nil
	case *rawbson.DocumentBuf:
		return rv.Bytes(), true, nil
	default:
		return nil, false, nil
	}
}

// A Decoder reads length-prefixed documents from a stream. Each call to
// Decode consumes exactly one document.
type Decoder struct {
	r io.Reader
	c *Codec
}

// NewDecoder returns a decoder reading from r with the default codec.
func NewDecoder(r io.Reader) *Decoder {
	return defaultCodec.NewDecoder(r)
}

// NewDecoder returns a decoder reading from r with this codec's options.
func (c *Codec) NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, c: c}
}

// Decode reads the next document and raises it into v. A clean end of
// stream surfaces as io.EOF; a stream cut mid-document surfaces as
// io.ErrUnexpectedEOF.
func (d *Decoder) Decode(v any) error {
	var hdr [4]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("bson: reading document length: %w", err)
	}
	size, _ := common.ReadInt32(hdr[:])
	if size < common.MinDocumentSize || size > common.MaxDocumentSize {
		return fmt.Errorf("bson: declared document length %d is outside [%d, %d]",
			size, common.MinDocumentSize, common.MaxDocumentSize)
	}
	buf := make([]byte, size)
	copy(buf, hdr[:])
	if _, err := io.ReadFull(d.r, buf[4:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("bson: reading document body: %w", err)
	}
	return d.c.Unmarshal(buf, v)
}
