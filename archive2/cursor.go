package archive2

import (
	"encoding/binary"
	"math"
)

// Cursor reads big-endian fields from a byte window. The first failed read is sticky:
// every later read returns a zero value and Err keeps reporting the original failure,
// so decoders can read a run of fields and check once.
type Cursor struct {
	buf []byte
	pos int
	err error
}

// NewCursor positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos is the number of bytes consumed so far.
func (c *Cursor) Pos() int { return c.pos }

// Len is the size of the window.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining bytes after the cursor.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// Err returns the first read failure, if any.
func (c *Cursor) Err() error { return c.err }

// Fail makes err the sticky error unless one is already set.
func (c *Cursor) Fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *Cursor) take(n int, field string) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || n > c.Remaining() {
		c.err = newError(ErrTruncated, int64(c.pos), "%s needs %d bytes, %d left", field, n, c.Remaining())
		return nil
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b
}

// Bytes returns the next n bytes without copying.
func (c *Cursor) Bytes(n int, field string) []byte {
	return c.take(n, field)
}

// Skip advances n bytes.
func (c *Cursor) Skip(n int, field string) {
	c.take(n, field)
}

// Seek moves the cursor to an absolute position inside the window.
func (c *Cursor) Seek(pos int, field string) {
	if c.err != nil {
		return
	}
	if pos < 0 || pos > len(c.buf) {
		c.err = newError(ErrTruncated, int64(pos), "%s points outside a %d byte window", field, len(c.buf))
		return
	}
	c.pos = pos
}

func (c *Cursor) Uint8(field string) uint8 {
	b := c.take(1, field)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *Cursor) Uint16(field string) uint16 {
	b := c.take(2, field)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (c *Cursor) Int16(field string) int16 {
	return int16(c.Uint16(field))
}

func (c *Cursor) Uint32(field string) uint32 {
	b := c.take(4, field)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (c *Cursor) Int32(field string) int32 {
	return int32(c.Uint32(field))
}

// Float32 reads an IEEE-754 single precision value.
func (c *Cursor) Float32(field string) float32 {
	return math.Float32frombits(c.Uint32(field))
}

// Text reads n bytes of ASCII text, trimming trailing NUL and space padding. Anything
// other than printable ASCII fails with ErrMalformedHeader.
func (c *Cursor) Text(n int, field string) string {
	start := c.pos
	b := c.take(n, field)
	if b == nil {
		return ""
	}
	s, ok := asciiText(b)
	if !ok {
		c.err = newError(ErrMalformedHeader, int64(start), "%s is not text: % x", field, b)
		return ""
	}
	return s
}

func asciiText(b []byte) (string, bool) {
	end := len(b)
	for end > 0 && (b[end-1] == 0 || b[end-1] == ' ') {
		end--
	}
	for _, ch := range b[:end] {
		if ch < 0x20 || ch > 0x7e {
			return "", false
		}
	}
	return string(b[:end]), true
}
