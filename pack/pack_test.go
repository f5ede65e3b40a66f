package pack

import (
	"bytes"
	"compress/lzw"
	"errors"
	"math/rand"
	"testing"

	"github.com/paleotronic/picm8/raw"
	"github.com/stretchr/testify/require"
)

func TestUnpackPCX(t *testing.T) {
	tests := []struct {
		name     string
		src      []byte
		want     int
		expected []byte
		consumed int
	}{
		{"literals", []byte{0x01, 0x02, 0x03}, 3, []byte{1, 2, 3}, 3},
		{"run", []byte{0xc4, 0xaa}, 4, []byte{0xaa, 0xaa, 0xaa, 0xaa}, 2},
		{"escaped high literal", []byte{0xc1, 0xc5, 0x07}, 2, []byte{0xc5, 0x07}, 3},
		{"run clipped", []byte{0xcf, 0x11}, 3, []byte{0x11, 0x11, 0x11}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, n, err := UnpackPCX(tt.src, tt.want)
			require.NoError(t, err)
			require.Equal(t, tt.expected, out)
			require.Equal(t, tt.consumed, n)
		})
	}

	_, _, err := UnpackPCX([]byte{0xc3}, 3)
	require.True(t, errors.Is(err, raw.ErrTruncated))
}

func TestUnpackBits(t *testing.T) {
	// Apple's Technical Note TN1023 example.
	src := []byte{0xFE, 0xAA, 0x02, 0x80, 0x00, 0x2A, 0xFD, 0xAA, 0x03, 0x80, 0x00, 0x2A, 0x22, 0xF7, 0xAA}
	expected := []byte{
		0xAA, 0xAA, 0xAA, 0x80, 0x00, 0x2A, 0xAA, 0xAA, 0xAA, 0xAA, 0x80, 0x00,
		0x2A, 0x22, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA,
	}
	out, n, err := UnpackBits(src, len(expected))
	require.NoError(t, err)
	require.Equal(t, expected, out)
	require.Equal(t, len(src), n)

	out, _, err = UnpackBits([]byte{0x80, 0x00, 0x07}, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{0x07}, out)

	_, _, err = UnpackBits([]byte{0x05, 0x01}, 6)
	require.True(t, errors.Is(err, raw.ErrTruncated))
}

func TestUnpackBytes(t *testing.T) {
	src := []byte{
		0x02, 'a', 'b', 'c', // 3 literals
		0x41, 'x', // x * 2
		0x80, 1, 2, 3, 4, // quad once
		0xc0, 'z', // z * 4
	}
	out, err := UnpackBytes(src, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("abcxx\x01\x02\x03\x04zzzz"), out)

	out, err = UnpackBytes(src, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("abcx"), out)

	_, err = UnpackBytes(src, 64)
	require.True(t, errors.Is(err, raw.ErrTruncated))

	_, err = UnpackBytes([]byte{0x05, 'a'}, 0)
	require.True(t, errors.Is(err, raw.ErrTruncated))
}

func TestUnLZWMatchesGIFEncoder(t *testing.T) {
	r := rand.New(rand.NewSource(3200))
	src := make([]byte, 38400)
	for i := range src {
		// low entropy so the dictionary fills and widens
		src[i] = byte(r.Intn(6)) * 0x11
	}

	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.LSB, 8)
	_, err := w.Write(src)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := UnLZW(buf.Bytes(), len(src))
	require.NoError(t, err)
	require.Equal(t, src, out)

	out, err = UnLZW(buf.Bytes(), 0)
	require.NoError(t, err)
	require.Equal(t, src, out)

	out, err = UnLZW(buf.Bytes(), 100)
	require.NoError(t, err)
	require.Equal(t, src[:100], out)

	// without the end code an unbounded read keeps what it has
	cut := buf.Bytes()[:buf.Len()/2]
	out, err = UnLZW(cut, 0)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, src[:len(out)], out)

	_, err = UnLZW(cut, len(src))
	require.True(t, errors.Is(err, raw.ErrTruncated))
}

func TestUnLZWRejectsBadCode(t *testing.T) {
	// 9-bit code 0x1ff straight after a clear.
	_, err := UnLZW([]byte{0x00, 0xff, 0x03}, 10)
	require.True(t, errors.Is(err, raw.ErrInvalidHeader))

	_, err = UnLZW(nil, 10)
	require.True(t, errors.Is(err, raw.ErrTruncated))
}

func FuzzUnpack(f *testing.F) {
	f.Add([]byte{0xc4, 0xaa, 0x02, 0x80, 0x00})
	f.Add([]byte{0xFE, 0xAA, 0x02, 0x80, 0x00, 0x2A})
	f.Fuzz(func(t *testing.T, b []byte) {
		UnpackPCX(b, 512)
		UnpackBits(b, 512)
		UnpackBytes(b, 512)
		UnLZW(b, 512)
	})
}
