package palette

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForLine(t *testing.T) {
	a := Palette{{1, 1, 1}}
	b := Palette{{2, 2, 2}}

	single := NewSingle(a)
	require.Equal(t, a, single.ForLine(0))
	require.Equal(t, a, single.ForLine(199))

	multi := NewMulti([]Palette{a, b}, []int{0, 1, 1, 7})
	require.Equal(t, a, multi.ForLine(0))
	require.Equal(t, b, multi.ForLine(2))
	require.Nil(t, multi.ForLine(3), "line selecting a missing palette resolves to nothing")
	require.Equal(t, a, multi.ForLine(500))

	per := NewPerScanline([]Palette{a, b})
	require.Equal(t, PerScanline, per.Kind)
	require.Equal(t, []int{0, 1}, per.Lines)
}

func TestAtOutOfRangeIsBlack(t *testing.T) {
	p := Palette{{255, 255, 255}}
	require.Equal(t, RGB{}, p.At(1))
	require.Equal(t, RGB{}, p.At(-1))
	require.Equal(t, RGB{}, Palette(nil).At(0))
}

func TestWithColorCopies(t *testing.T) {
	orig := NewSingle(Palette{{0, 0, 0}, {9, 9, 9}})
	edited, err := orig.WithColor(0, 1, RGB{255, 0, 0})
	require.NoError(t, err)
	require.Equal(t, RGB{9, 9, 9}, orig.Palettes[0][1])
	require.Equal(t, RGB{255, 0, 0}, edited.Palettes[0][1])
	require.False(t, orig.Equal(edited))
	require.True(t, orig.Equal(orig.Clone()))

	_, err = orig.WithColor(0, 2, RGB{})
	require.Error(t, err)

	_, err = NewFixed(C64()).WithColor(0, 0, RGB{})
	require.True(t, errors.Is(err, ErrNotEditable))
}

func TestColourWords(t *testing.T) {
	// IIgs 0x0F80: red 15, green 8, blue 0
	require.Equal(t, RGB{255, 136, 0}, IIGS(0x80, 0x0f))
	require.Equal(t, RGB{255, 255, 255}, AtariST(0x777|0x888))
	require.Equal(t, RGB{238, 238, 238}, AtariST(0x777))
	require.Equal(t, RGB{255, 0, 0}, MSX2(0x70, 0x00))
	require.Equal(t, uint8(255), Scale3(7))
	require.Equal(t, uint8(0), Scale3(0))
}

func TestHardwareTables(t *testing.T) {
	require.Len(t, C64(), 16)
	require.Len(t, ZXSpectrum(), 16)
	require.Equal(t, RGB{0, 0, 0xd7}, ZXSpectrum()[1])
	require.Equal(t, RGB{0xff, 0xff, 0xff}, ZXSpectrum()[15])
	require.Len(t, CPCHardware(), 27)
	require.Len(t, GRB332(), 256)
	require.Equal(t, RGB{255, 255, 255}, GRB332()[255])
	require.Len(t, AppleHGR(), 6)
	require.Len(t, CGAFour(3), 3)

	c, ok := CPCInk(0x54)
	require.True(t, ok)
	require.Equal(t, RGB{}, c)
	c, ok = CPCInk(26)
	require.True(t, ok)
	require.Equal(t, RGB{255, 255, 255}, c)
	_, ok = CPCInk(0x30)
	require.False(t, ok)

	atari := Atari8()
	require.Len(t, atari, 256)
	require.Equal(t, RGB{}, atari[0x00])
	require.Equal(t, RGB{255, 255, 255}, atari[0x0f])
	require.NotEqual(t, atari[0x10], atari[0x90])
}

func TestSummarize(t *testing.T) {
	m := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				m.Set(x, y, color.RGBA{255, 0, 0, 255})
			} else {
				m.Set(x, y, color.RGBA{0, 0, 255, 255})
			}
		}
	}
	p := Summarize(m, 16)
	require.NotEmpty(t, p)
	require.LessOrEqual(t, len(p), 16)
	var reds, blues int
	for _, c := range p {
		if c.R > 200 && c.B < 50 {
			reds++
		}
		if c.B > 200 && c.R < 50 {
			blues++
		}
	}
	require.NotZero(t, reds)
	require.NotZero(t, blues)

	require.Nil(t, Summarize(nil, 4))
}
