package palette

import (
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"
)

// Summarize reduces a true colour image to at most n representative colours
// using median cut. The result is meant for display, never for re-rendering.
func Summarize(m image.Image, n int) Palette {
	if m == nil || m.Bounds().Empty() || n <= 0 {
		return nil
	}
	q := quantize.MedianCutQuantizer{}
	cp := q.Quantize(make(color.Palette, 0, n), m)
	out := make(Palette, 0, len(cp))
	for _, c := range cp {
		r, g, b, _ := c.RGBA()
		out = append(out, RGB{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)})
	}
	return out
}
