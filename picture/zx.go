package picture

import (
	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

const (
	zxBitmap = 6144
	zxSize   = zxBitmap + 768
)

func init() {
	register(ZXSCR, codec{palette: fixed(palette.ZXSpectrum), index: zxIndex})
}

// zxRow returns the offset of line y in the Spectrum display file.
func zxRow(y int) int {
	return (y&0xc0)<<5 | (y&0x07)<<8 | (y&0x38)<<2
}

func zxIndex(data raw.Reader) (*frame, error) {
	if err := need(data, zxSize, "Spectrum screen"); err != nil {
		return nil, err
	}
	f := newFrame(256, 192, 1)
	for y := 0; y < 192; y++ {
		row := zxRow(y)
		for col := 0; col < 32; col++ {
			b := data[row+col]
			attr := data[zxBitmap+(y/8)*32+col]
			bright := ((attr >> 6) & 1) * 8
			ink := attr&7 + bright
			paper := (attr>>3)&7 + bright
			for bit := 0; bit < 8; bit++ {
				c := paper
				if b&(0x80>>uint(bit)) != 0 {
					c = ink
				}
				f.set(col*8+bit, y, c)
			}
		}
	}
	return f, nil
}
