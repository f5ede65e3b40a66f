package picture

import (
	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

const (
	bbcLarge = 20480
	bbcSmall = 10240
)

type bbcMode struct {
	mode    int
	columns int
	colours int
	xscale  int
}

var bbcModes = map[FormatTag]bbcMode{
	BBCMode0: {0, 80, 2, 1},
	BBCMode1: {1, 80, 4, 1},
	BBCMode2: {2, 80, 16, 2},
	BBCMode4: {4, 40, 2, 1},
	BBCMode5: {5, 40, 4, 2},
}

func init() {
	for tag, m := range bbcModes {
		m := m
		register(tag, codec{
			palette: func(raw.Reader) (*palette.Info, error) { return palette.NewSingle(m.defaults()), nil },
			index:   func(data raw.Reader) (*frame, error) { return bbcIndex(data, m) },
		})
	}
}

// defaults is the logical to physical colour mapping the OS sets up on a
// mode change. Flashing colours 8-15 show their first phase.
func (m bbcMode) defaults() palette.Palette {
	phys := palette.BBC()
	switch m.colours {
	case 2:
		return palette.Palette{phys[0], phys[7]}
	case 4:
		return palette.Palette{phys[0], phys[1], phys[3], phys[7]}
	}
	p := make(palette.Palette, 16)
	for i := range p {
		p[i] = phys[i&7]
	}
	return p
}

func (m bbcMode) size() int {
	return m.columns * 8 * 32
}

func (m bbcMode) pixelsPerByte() int {
	switch m.colours {
	case 2:
		return 8
	case 4:
		return 4
	}
	return 2
}

func bbcIndex(data raw.Reader, m bbcMode) (*frame, error) {
	if err := need(data, m.size(), "BBC screen"); err != nil {
		return nil, err
	}
	ppb := m.pixelsPerByte()
	f := newFrame(m.columns*ppb, 256, m.xscale)
	bit := func(b byte, n int) uint8 { return (b >> uint(n)) & 1 }
	for y := 0; y < 256; y++ {
		for col := 0; col < m.columns; col++ {
			b := data[(y/8)*m.columns*8+col*8+y%8]
			for p := 0; p < ppb; p++ {
				var v uint8
				switch ppb {
				case 8:
					v = bit(b, 7-p)
				case 4:
					v = bit(b, 7-p)<<1 | bit(b, 3-p)
				default:
					v = bit(b, 7-p)<<3 | bit(b, 5-p)<<2 | bit(b, 3-p)<<1 | bit(b, 1-p)
				}
				f.set(col*ppb+p, y, v)
			}
		}
	}
	return f, nil
}
