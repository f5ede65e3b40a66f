package picture

import (
	"image"

	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

// A codec splits a format into its palette and its pixel indices. Decoding
// renders one against the other, which is what lets an edited palette be
// applied to the same indices.
type codec struct {
	palette func(data raw.Reader) (*palette.Info, error)
	index   func(data raw.Reader) (*frame, error)
}

var codecs = map[FormatTag]codec{}

func register(tag FormatTag, c codec) {
	if _, dup := codecs[tag]; dup {
		panic("picture: codec registered twice for " + tag.String())
	}
	codecs[tag] = c
}

func lookup(tag FormatTag) (codec, error) {
	c, ok := codecs[tag]
	if !ok {
		return codec{}, &DecodeError{Format: tag, Offset: -1, Err: ErrUnknownFormat}
	}
	return c, nil
}

// fixed adapts a palette constructor into a codec palette function.
func fixed(p func() palette.Palette) func(raw.Reader) (*palette.Info, error) {
	return func(raw.Reader) (*palette.Info, error) {
		return palette.NewFixed(p()), nil
	}
}

// frame holds palette indices, or true colour pixels when rgb is set. Each
// logical pixel is drawn xscale pixels wide.
type frame struct {
	width, height int
	xscale        int
	pix           []uint8
	rgb           []palette.RGB
	// ham is 6 or 8 for Amiga hold-and-modify data, whose pix values are
	// control codes rather than indices.
	ham int
}

func newFrame(w, h, xscale int) *frame {
	return &frame{width: w, height: h, xscale: xscale, pix: make([]uint8, w*h)}
}

func (f *frame) set(x, y int, v uint8) {
	f.pix[y*f.width+x] = v
}

func (f *frame) render(pal *palette.Info) *image.RGBA {
	xs := f.xscale
	if xs < 1 {
		xs = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, f.width*xs, f.height))
	for y := 0; y < f.height; y++ {
		row := img.Pix[y*img.Stride : (y+1)*img.Stride]
		var line palette.Palette
		if f.rgb == nil {
			line = pal.ForLine(y)
		}
		hold := line.At(0)
		for x := 0; x < f.width; x++ {
			var c palette.RGB
			switch {
			case f.rgb != nil:
				c = f.rgb[y*f.width+x]
			case f.ham != 0:
				hold = hamStep(f.ham, hold, line, f.pix[y*f.width+x])
				c = hold
			default:
				c = line.At(int(f.pix[y*f.width+x]))
			}
			for s := 0; s < xs; s++ {
				o := (x*xs + s) * 4
				row[o] = c.R
				row[o+1] = c.G
				row[o+2] = c.B
				row[o+3] = 0xff
			}
		}
	}
	return img
}

// hamStep applies one hold-and-modify code to the previous pixel colour.
func hamStep(bits int, prev palette.RGB, base palette.Palette, code uint8) palette.RGB {
	shift := uint(bits - 2)
	ctl := code >> shift
	v := code & (1<<shift - 1)
	var ch uint8
	if bits == 6 {
		ch = v<<4 | v
	} else {
		ch = v<<2 | v>>4
	}
	switch ctl {
	case 0:
		return base.At(int(v))
	case 1:
		prev.B = ch
	case 2:
		prev.R = ch
	default:
		prev.G = ch
	}
	return prev
}
