package raw

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderBounds(t *testing.T) {
	r := Reader{0x01, 0x02, 0x03, 0x04}

	v, err := r.U16LE(0)
	require.NoError(t, err)
	require.Equal(t, 0x0201, v)

	v, err = r.U16BE(2)
	require.NoError(t, err)
	require.Equal(t, 0x0304, v)

	u, err := r.U32BE(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0x01020304), u)

	_, err = r.U16LE(3)
	require.True(t, errors.Is(err, ErrTruncated))

	_, err = r.U8(-1)
	require.True(t, errors.Is(err, ErrTruncated))

	_, err = r.Slice(2, 1<<62)
	require.True(t, errors.Is(err, ErrTruncated))

	require.Equal(t, byte(0), r.Byte(99))
	require.True(t, r.Match(1, "\x02\x03"))
	require.False(t, r.Match(3, "\x04\x05"))
}

func TestBoundsErrorOffset(t *testing.T) {
	_, err := Reader(make([]byte, 10)).U32LE(8)

	var be *BoundsError
	require.True(t, errors.As(err, &be))
	require.Equal(t, 8, be.Offset)
	require.Equal(t, 4, be.Want)
	require.Equal(t, 10, be.Len)
}

func TestCursor(t *testing.T) {
	c := NewCursor([]byte("FORM\x00\x00\x00\x04ILBM"))

	b, err := c.Bytes(4)
	require.NoError(t, err)
	require.Equal(t, "FORM", string(b))

	n, err := c.U32BE()
	require.NoError(t, err)
	require.Equal(t, uint32(4), n)
	require.Equal(t, 4, c.Remaining())

	require.NoError(t, c.Skip(4))
	_, err = c.U8()
	require.True(t, errors.Is(err, ErrTruncated))
	require.Error(t, c.Seek(13))
}

func TestStrTrims(t *testing.T) {
	s, err := Reader("MSX  \x00\x00").Str(0, 7)
	require.NoError(t, err)
	require.Equal(t, "MSX", s)
}
