package archive2

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_Fields(t *testing.T) {
	c := NewCursor([]byte{
		0x7f,
		0xff, 0xfe,
		0x00, 0x00, 0x01, 0x00,
		0x43, 0xb3, 0xe0, 0x00, // 359.75
		'K', 'M', 'P', 'X', 0x00, ' ',
	})

	assert.Equal(t, uint8(0x7f), c.Uint8("a"))
	assert.Equal(t, int16(-2), c.Int16("b"))
	assert.Equal(t, int32(256), c.Int32("c"))
	assert.Equal(t, float32(359.75), c.Float32("d"))
	assert.Equal(t, "KMPX", c.Text(6, "e"))
	require.NoError(t, c.Err())
	assert.Equal(t, c.Len(), c.Pos())
	assert.Equal(t, 0, c.Remaining())
}

func TestCursor_StickyError(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3})

	assert.Equal(t, uint16(0x0102), c.Uint16("first"))
	assert.Equal(t, uint32(0), c.Uint32("second"))
	require.ErrorIs(t, c.Err(), ErrTruncated)
	assert.Contains(t, c.Err().Error(), "second")

	// later reads return zero values and keep the first error
	first := c.Err()
	assert.Equal(t, uint8(0), c.Uint8("third"))
	assert.Same(t, first, c.Err())
	assert.Equal(t, 2, c.Pos())

	var de *DecodeError
	require.True(t, errors.As(first, &de))
	assert.Equal(t, int64(2), de.Offset)
	assert.Equal(t, -1, de.Segment)
}

func TestCursor_Seek(t *testing.T) {
	c := NewCursor(make([]byte, 10))
	c.Seek(10, "end")
	require.NoError(t, c.Err())
	assert.Equal(t, 0, c.Remaining())

	c.Seek(11, "past the end")
	assert.ErrorIs(t, c.Err(), ErrTruncated)
}

func TestCursor_Text(t *testing.T) {
	testCases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "KTST", want: "KTST", ok: true},
		{raw: "AB\x00\x00", want: "AB", ok: true},
		{raw: "AB  ", want: "AB", ok: true},
		{raw: "\x00\x00\x00\x00", want: "", ok: true},
		{raw: "A\x00B\x00", ok: false},
		{raw: "\xffABC", ok: false},
	}

	for _, tc := range testCases {
		c := NewCursor([]byte(tc.raw))
		got := c.Text(4, "text")
		if !tc.ok {
			assert.ErrorIs(t, c.Err(), ErrMalformedHeader, "%q", tc.raw)
			continue
		}
		require.NoError(t, c.Err(), "%q", tc.raw)
		assert.Equal(t, tc.want, got)
	}
}

func TestCursor_Fail(t *testing.T) {
	c := NewCursor(nil)
	first := errors.New("first")
	c.Fail(first)
	c.Fail(errors.New("second"))
	assert.Same(t, first, c.Err())
}
