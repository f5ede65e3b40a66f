package picture

import (
	"github.com/paleotronic/picm8/pack"
	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

const (
	degasHeader = 34
	degasBody   = 32000
	degasSize   = degasHeader + degasBody
	// PI files written with colour animation data.
	degasAnimSize = degasSize + 32
)

type stMode struct {
	res    int
	width  int
	height int
	planes int
}

var stModes = map[FormatTag]stMode{
	DegasPI1: {0, 320, 200, 4},
	DegasPI2: {1, 640, 200, 2},
	DegasPI3: {2, 640, 400, 1},
}

func init() {
	for tag, m := range stModes {
		m := m
		register(tag, codec{
			palette: func(data raw.Reader) (*palette.Info, error) { return degasPalette(data, m) },
			index:   func(data raw.Reader) (*frame, error) { return degasIndex(data, m) },
		})
	}
}

// degasResolution returns the resolution word's mode and whether the body
// is PackBits compressed.
func degasResolution(data raw.Reader) (int, bool, error) {
	w, err := data.U16BE(0)
	if err != nil {
		return 0, false, err
	}
	return w & 0x7fff, w&0x8000 != 0, nil
}

func degasCheck(data raw.Reader, m stMode) (bool, error) {
	res, packed, err := degasResolution(data)
	if err != nil {
		return false, err
	}
	if res != m.res {
		return false, invalid(0, "resolution %d, want %d", res, m.res)
	}
	return packed, nil
}

func degasPalette(data raw.Reader, m stMode) (*palette.Info, error) {
	if _, err := degasCheck(data, m); err != nil {
		return nil, err
	}
	if err := need(data, degasHeader, "Degas header"); err != nil {
		return nil, err
	}
	n := 1 << uint(m.planes)
	p := make(palette.Palette, n)
	for i := range p {
		w, _ := data.U16BE(2 + i*2)
		p[i] = palette.AtariST(w)
	}
	if m.planes == 1 && p[0] == p[1] {
		p = palette.Mono()
	}
	return palette.NewSingle(p), nil
}

func degasIndex(data raw.Reader, m stMode) (*frame, error) {
	packed, err := degasCheck(data, m)
	if err != nil {
		return nil, err
	}
	lineBytes := m.width / 8 * m.planes
	var body raw.Reader
	if packed {
		if err := need(data, degasHeader, "Degas header"); err != nil {
			return nil, err
		}
		out, _, err := pack.UnpackBits(data[degasHeader:], lineBytes*m.height)
		if err != nil {
			return nil, err
		}
		body = out
	} else {
		if err := need(data, degasSize, "Degas image"); err != nil {
			return nil, err
		}
		body = data[degasHeader:degasSize]
	}

	f := newFrame(m.width, m.height, 1)
	planeBytes := m.width / 8
	for y := 0; y < m.height; y++ {
		line := body[y*lineBytes : (y+1)*lineBytes]
		for x := 0; x < m.width; x++ {
			var v uint8
			for p := 0; p < m.planes; p++ {
				var set bool
				if packed {
					set = line[p*planeBytes+x/8]&(0x80>>uint(x%8)) != 0
				} else {
					o := (x/16)*m.planes*2 + p*2
					w := int(line[o])<<8 | int(line[o+1])
					set = w&(0x8000>>uint(x%16)) != 0
				}
				if set {
					v |= 1 << uint(p)
				}
			}
			f.set(x, y, v)
		}
	}
	return f, nil
}
