package picture

import (
	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

const (
	koalaMin     = 10003
	koalaMax     = 10010
	artStudioLen = 9002

	c64Bitmap = 2
	c64Screen = c64Bitmap + 8000
	c64Colour = c64Screen + 1000
	c64Back   = c64Colour + 1000
)

func init() {
	register(C64Koala, codec{palette: fixed(palette.C64), index: koalaIndex})
	register(C64ArtStudio, codec{palette: fixed(palette.C64), index: artStudioIndex})
}

// koalaIndex decodes multicolour bitmap mode: 2 bits per pixel selecting the
// background, the screen nibbles or colour RAM of the 8x8 cell.
func koalaIndex(data raw.Reader) (*frame, error) {
	if err := need(data, koalaMin, "Koala image"); err != nil {
		return nil, err
	}
	if len(data) > koalaMax {
		return nil, invalid(koalaMax, "%d bytes is past the Koala size window", len(data))
	}
	bg := data[c64Back] & 0x0f
	f := newFrame(160, 200, 2)
	for cy := 0; cy < 25; cy++ {
		for cx := 0; cx < 40; cx++ {
			cell := cy*40 + cx
			scr := data[c64Screen+cell]
			col := [4]uint8{bg, scr >> 4, scr & 0x0f, data[c64Colour+cell] & 0x0f}
			for r := 0; r < 8; r++ {
				b := data[c64Bitmap+cell*8+r]
				for p := 0; p < 4; p++ {
					f.set(cx*4+p, cy*8+r, col[(b>>uint(6-2*p))&3])
				}
			}
		}
	}
	return f, nil
}

func artStudioIndex(data raw.Reader) (*frame, error) {
	if err := need(data, artStudioLen, "Art Studio image"); err != nil {
		return nil, err
	}
	if len(data) != artStudioLen {
		return nil, invalid(artStudioLen, "Art Studio files are exactly %d bytes, have %d", artStudioLen, len(data))
	}
	f := newFrame(320, 200, 1)
	for cy := 0; cy < 25; cy++ {
		for cx := 0; cx < 40; cx++ {
			cell := cy*40 + cx
			scr := data[c64Screen+cell]
			for r := 0; r < 8; r++ {
				b := data[c64Bitmap+cell*8+r]
				for bit := 0; bit < 8; bit++ {
					c := scr & 0x0f
					if b&(0x80>>uint(bit)) != 0 {
						c = scr >> 4
					}
					f.set(cx*8+bit, cy*8+r, c)
				}
			}
		}
	}
	return f, nil
}
