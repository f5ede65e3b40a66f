package picture

import (
	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

const atariScreen = 40 * 192

// atariRegs holds the GTIA colour registers in hardware order: four player
// colours, four playfield colours and the background.
type atariRegs [9]byte

const (
	regPF0 = 4
	regPF1 = 5
	regPF2 = 6
	regPF3 = 7
	regBAK = 8
)

var atariDefaultRegs = atariRegs{0, 0, 0, 0, 0x28, 0xca, 0x94, 0x46, 0x00}

// atariRegisters applies the register bytes saved after the screen:
// 1 byte background, 4 or 5 bytes background then playfields, or all 9.
func atariRegisters(data raw.Reader) atariRegs {
	r := atariDefaultRegs
	if len(data) <= atariScreen {
		return r
	}
	extra := data[atariScreen:]
	switch len(extra) {
	case 9:
		copy(r[:], extra)
	case 4, 5:
		r[regBAK] = extra[0]
		copy(r[regPF0:], extra[1:])
	case 1:
		r[regBAK] = extra[0]
	}
	return r
}

type atariMode struct {
	width int
	bpp   int
	// colours builds the palette from the registers
	colours func(r atariRegs) palette.Palette
}

func atariLookup(values ...byte) palette.Palette {
	all := palette.Atari8()
	p := make(palette.Palette, len(values))
	for i, v := range values {
		p[i] = all[v]
	}
	return p
}

var atariModes = map[FormatTag]atariMode{
	Atari8GR8: {320, 1, func(r atariRegs) palette.Palette {
		return atariLookup(r[regPF2], r[regPF2]&0xf0|r[regPF1]&0x0f)
	}},
	Atari8GR15: {160, 2, fourColour},
	Atari8MIC:  {160, 2, fourColour},
	Atari8GR9: {80, 4, func(r atariRegs) palette.Palette {
		v := make([]byte, 16)
		for i := range v {
			v[i] = r[regBAK]&0xf0 | byte(i)
		}
		return atariLookup(v...)
	}},
	Atari8GR10: {80, 4, func(r atariRegs) palette.Palette {
		return atariLookup(r[:]...)
	}},
	Atari8GR11: {80, 4, func(r atariRegs) palette.Palette {
		lum := r[regBAK] & 0x0f
		if lum == 0 {
			lum = 6
		}
		v := make([]byte, 16)
		for i := range v {
			v[i] = byte(i)<<4 | lum
		}
		v[0] = 0
		return atariLookup(v...)
	}},
}

func fourColour(r atariRegs) palette.Palette {
	return atariLookup(r[regBAK], r[regPF0], r[regPF1], r[regPF2])
}

func init() {
	for tag, m := range atariModes {
		tag, m := tag, m
		register(tag, codec{
			palette: func(data raw.Reader) (*palette.Info, error) {
				if err := need(data, atariScreen, "Atari screen"); err != nil {
					return nil, err
				}
				return palette.NewSingle(m.colours(atariRegisters(data))), nil
			},
			index: func(data raw.Reader) (*frame, error) { return atariIndex(data, tag, m) },
		})
	}
}

func atariIndex(data raw.Reader, tag FormatTag, m atariMode) (*frame, error) {
	if err := need(data, atariScreen, "Atari screen"); err != nil {
		return nil, err
	}
	f := newFrame(m.width, 192, 320/m.width)
	ppb := 8 / m.bpp
	mask := byte(1<<uint(m.bpp) - 1)
	for i, b := range data[:atariScreen] {
		for p := 0; p < ppb; p++ {
			v := (b >> uint(8-m.bpp*(p+1))) & mask
			if tag == Atari8GR10 && v > regBAK {
				v = regBAK
			}
			f.pix[i*ppb+p] = v
		}
	}
	return f, nil
}
