package bson

import (
	"fmt"
	"io"

	"github.com/rawbytedev/bson/internal/common"
)

// docWriter is the seam between the encode walk and the destination. Two
// interchangeable strategies implement it: backpatchWriter rewrites length
// placeholders in a random-access buffer, and the lenCounter/streamEmitter
// pair precomputes every length so a forward-only destination never needs a
// rewrite. Both must produce byte-identical output for the same walk.
type docWriter interface {
	BeginDocument() error
	EndDocument() error
	WriteByte(b byte) error
	WriteBytes(p []byte) error
	WriteInt32(n int32) error
	WriteInt64(n int64) error
	WriteDouble(f float64) error
	WriteCString(s string) error
	WriteString(s string) error
}

// backpatchWriter is strategy (a): reserve a 4-byte placeholder when a
// document opens, encode children into the same buffer, then overwrite the
// placeholder once the true size is known.
type backpatchWriter struct {
	buf   []byte
	stack []int // offsets of open length placeholders
}

func (w *backpatchWriter) BeginDocument() error {
	w.stack = append(w.stack, len(w.buf))
	w.buf = append(w.buf, 0, 0, 0, 0)
	return nil
}

func (w *backpatchWriter) EndDocument() error {
	w.buf = append(w.buf, 0)
	start := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	size := len(w.buf) - start
	if size > common.MaxDocumentSize {
		return fmt.Errorf("%w: %d bytes", ErrOversize, size)
	}
	common.PutInt32(w.buf, start, int32(size))
	return nil
}

func (w *backpatchWriter) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

func (w *backpatchWriter) WriteBytes(p []byte) error {
	w.buf = append(w.buf, p...)
	return nil
}

func (w *backpatchWriter) WriteInt32(n int32) error {
	w.buf = common.AppendInt32(w.buf, n)
	return nil
}

func (w *backpatchWriter) WriteInt64(n int64) error {
	w.buf = common.AppendInt64(w.buf, n)
	return nil
}

func (w *backpatchWriter) WriteDouble(f float64) error {
	w.buf = common.AppendDouble(w.buf, f)
	return nil
}

func (w *backpatchWriter) WriteCString(s string) error {
	w.buf = common.AppendCString(w.buf, s)
	return nil
}

func (w *backpatchWriter) WriteString(s string) error {
	w.buf = common.AppendString(w.buf, s)
	return nil
}

// lenCounter is pass one of strategy (b): it follows the exact walk the
// emitter will take but only accumulates sizes, maintaining a stack of open
// documents whose totals fold into their parent on close. The result is
// the final length of every document in emission order, root first.
type lenCounter struct {
	lens  []int64 // wider than the wire field so totals never wrap before the ceiling check
	stack []int   // indices into lens of open documents
}

func (c *lenCounter) add(n int64) error {
	if len(c.stack) == 0 {
		return fmt.Errorf("bson: cannot encode a non-document at the top level")
	}
	c.lens[c.stack[len(c.stack)-1]] += n
	return nil
}

func (c *lenCounter) BeginDocument() error {
	c.stack = append(c.stack, len(c.lens))
	c.lens = append(c.lens, 0)
	return nil
}

func (c *lenCounter) EndDocument() error {
	i := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.lens[i] += 4 + 1 // length prefix + trailing NUL
	if c.lens[i] > common.MaxDocumentSize {
		return fmt.Errorf("%w: %d bytes", ErrOversize, c.lens[i])
	}
	if len(c.stack) > 0 {
		c.lens[c.stack[len(c.stack)-1]] += c.lens[i]
	}
	return nil
}

func (c *lenCounter) WriteByte(byte) error        { return c.add(1) }
func (c *lenCounter) WriteBytes(p []byte) error   { return c.add(int64(len(p))) }
func (c *lenCounter) WriteInt32(int32) error      { return c.add(4) }
func (c *lenCounter) WriteInt64(int64) error      { return c.add(8) }
func (c *lenCounter) WriteDouble(float64) error   { return c.add(8) }
func (c *lenCounter) WriteCString(s string) error { return c.add(int64(len(s)) + 1) }
func (c *lenCounter) WriteString(s string) error  { return c.add(4 + int64(len(s)) + 1) }

// streamEmitter is pass two of strategy (b): it repeats the walk and
// consumes the precomputed lengths in lock-step, so nothing already written
// is ever touched again. Suitable for write-once, forward-only sinks.
type streamEmitter struct {
	w       io.Writer
	lens    []int64
	next    int
	scratch [8]byte
}

func (e *streamEmitter) write(p []byte) error {
	_, err := e.w.Write(p)
	if err != nil {
		return fmt.Errorf("bson: sink write failed: %w", err)
	}
	return nil
}

func (e *streamEmitter) BeginDocument() error {
	if e.next >= len(e.lens) {
		return fmt.Errorf("bson: length pass and emit pass diverged")
	}
	n := e.lens[e.next]
	e.next++
	common.PutInt32(e.scratch[:4], 0, int32(n))
	return e.write(e.scratch[:4])
}

func (e *streamEmitter) EndDocument() error {
	return e.WriteByte(0)
}

func (e *streamEmitter) WriteByte(b byte) error {
	e.scratch[0] = b
	return e.write(e.scratch[:1])
}

func (e *streamEmitter) WriteBytes(p []byte) error {
	return e.write(p)
}

func (e *streamEmitter) WriteInt32(n int32) error {
	common.PutInt32(e.scratch[:4], 0, n)
	return e.write(e.scratch[:4])
}

func (e *streamEmitter) WriteInt64(n int64) error {
	b := common.AppendInt64(e.scratch[:0], n)
	return e.write(b)
}

func (e *streamEmitter) WriteDouble(f float64) error {
	b := common.AppendDouble(e.scratch[:0], f)
	return e.write(b)
}

func (e *streamEmitter) WriteCString(s string) error {
	if err := e.write([]byte(s)); err != nil {
		return err
	}
	return e.WriteByte(0)
}

func (e *streamEmitter) WriteString(s string) error {
	if err := e.WriteInt32(int32(len(s)) + 1); err != nil {
		return err
	}
	return e.WriteCString(s)
}
