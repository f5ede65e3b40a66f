package picture

import (
	"github.com/paleotronic/picm8/pack"
	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

const (
	macPaintWidth   = 576
	macPaintHeight  = 720
	macPaintRow     = macPaintWidth / 8
	macPaintHeader  = 512
	macBinaryHeader = 128
)

func init() {
	register(MacPaint, codec{
		palette: func(raw.Reader) (*palette.Info, error) { return palette.NewSingle(palette.Mono()), nil },
		index:   macPaintIndex,
	})
}

// isMacBinaryPaint reports a MacBinary wrapper around a PNTG file.
func isMacBinaryPaint(data raw.Reader) bool {
	return len(data) > macBinaryHeader && data[0] == 0 && data[1] > 0 && data[1] < 64 && data.Match(65, "PNTG")
}

// macPaintVersion reports whether data starts with a MacPaint header
// version word (0, 2 or 3).
func macPaintVersion(data raw.Reader) bool {
	v, err := data.U32BE(0)
	return err == nil && (v == 0 || v == 2 || v == 3)
}

func macPaintBody(data raw.Reader) ([]byte, error) {
	if isMacBinaryPaint(data) {
		data = data[macBinaryHeader:]
	}
	if err := need(data, macPaintHeader, "MacPaint header"); err != nil {
		return nil, err
	}
	if !macPaintVersion(data) {
		return nil, invalid(0, "MacPaint version word")
	}
	out, _, err := pack.UnpackBits(data[macPaintHeader:], macPaintRow*macPaintHeight)
	return out, err
}

func macPaintIndex(data raw.Reader) (*frame, error) {
	body, err := macPaintBody(data)
	if err != nil {
		return nil, err
	}
	f := newFrame(macPaintWidth, macPaintHeight, 1)
	for i, b := range body {
		for bit := 0; bit < 8; bit++ {
			f.pix[i*8+bit] = (b >> uint(7-bit)) & 1
		}
	}
	return f, nil
}
