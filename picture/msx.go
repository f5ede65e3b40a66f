package picture

import (
	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

const (
	bsaveMagic  = 0xfe
	bsaveHeader = 7

	sc5Palette = 0x7680
	sc7Palette = 0xfa80
)

type msxBitmap struct {
	width    int
	bpp      int
	palAddr  int
	fixedPal func() palette.Palette
}

var msxBitmaps = map[FormatTag]msxBitmap{
	MSXScreen5: {width: 256, bpp: 4, palAddr: sc5Palette},
	MSXScreen7: {width: 512, bpp: 4, palAddr: sc7Palette},
	MSXScreen8: {width: 256, bpp: 8, fixedPal: palette.GRB332},
}

func init() {
	register(MSXScreen1, codec{palette: fixed(palette.TMS9918), index: sc1Index})
	register(MSXScreen2, codec{palette: fixed(palette.TMS9918), index: sc2Index})
	for tag, m := range msxBitmaps {
		m := m
		c := codec{index: func(data raw.Reader) (*frame, error) { return msxBitmapIndex(data, m) }}
		if m.fixedPal != nil {
			c.palette = fixed(m.fixedPal)
		} else {
			c.palette = func(data raw.Reader) (*palette.Info, error) { return msxBitmapPalette(data, m) }
		}
		register(tag, c)
	}
}

// bsave returns the start and end addresses of an MSX BASIC BSAVE header.
func bsave(data raw.Reader) (start, end int, ok bool) {
	if len(data) < bsaveHeader || data[0] != bsaveMagic {
		return 0, 0, false
	}
	start, _ = data.U16LE(1)
	end, _ = data.U16LE(3)
	return start, end, end >= start
}

// msxVRAM returns the file as a VRAM image starting at address 0, without
// the BSAVE header when there is one.
func msxVRAM(data raw.Reader) (raw.Reader, error) {
	if len(data) > 0 && data[0] == bsaveMagic {
		start, end, ok := bsave(data)
		if !ok {
			return nil, invalid(1, "BSAVE header")
		}
		if start != 0 {
			return nil, unsupported(1, "BSAVE image loaded at %#04x", start)
		}
		body := data[bsaveHeader:]
		if n := end - start + 1; n < len(body) {
			body = body[:n]
		}
		return body, nil
	}
	return data, nil
}

func sc1Index(data raw.Reader) (*frame, error) {
	vram, err := msxVRAM(data)
	if err != nil {
		return nil, err
	}
	const (
		pg  = 0x0000
		pnt = 0x1800
		ct  = 0x2000
	)
	if err := need(vram, ct+32, "Screen 1 VRAM"); err != nil {
		return nil, err
	}
	f := newFrame(256, 192, 1)
	for cy := 0; cy < 24; cy++ {
		for cx := 0; cx < 32; cx++ {
			name := int(vram[pnt+cy*32+cx])
			colour := vram[ct+name/8]
			for r := 0; r < 8; r++ {
				tmsCell(f, cx, cy*8+r, vram[pg+name*8+r], colour)
			}
		}
	}
	return f, nil
}

func tmsCell(f *frame, cx, y int, pattern, colour byte) {
	fg, bg := colour>>4, colour&0x0f
	for bit := 0; bit < 8; bit++ {
		c := bg
		if pattern&(0x80>>uint(bit)) != 0 {
			c = fg
		}
		f.set(cx*8+bit, y, c)
	}
}

// identityNames counts name table bytes holding their own position, which
// is how the default Screen 2 name table looks.
func identityNames(vram raw.Reader, off int) int {
	n := 0
	for i := 0; i < 768; i++ {
		if vram.Has(off+i, 1) && vram[off+i] == byte(i) {
			n++
		}
	}
	return n
}

// sc2Layout picks between VRAM order (patterns, names at 0x1800, colours
// at 0x2000) and the packed order some tools write (patterns, colours at
// 0x1800, names at 0x3000). The region that looks more like a name table
// wins and ties keep VRAM order.
func sc2Layout(vram raw.Reader) (pnt, ct int) {
	const (
		vramPNT, vramCT = 0x1800, 0x2000
		altCT, altPNT   = 0x1800, 0x3000
	)
	switch {
	case !vram.Has(altPNT, 768):
		return vramPNT, vramCT
	case !vram.Has(vramCT, 6144):
		return altPNT, altCT
	}
	if identityNames(vram, altPNT) > identityNames(vram, vramPNT) {
		return altPNT, altCT
	}
	return vramPNT, vramCT
}

func sc2Index(data raw.Reader) (*frame, error) {
	vram, err := msxVRAM(data)
	if err != nil {
		return nil, err
	}
	if err := need(vram, 0x1800+6144, "Screen 2 VRAM"); err != nil {
		return nil, err
	}
	pnt, ct := sc2Layout(vram)
	if err := need(vram, max(pnt+768, ct+6144), "Screen 2 tables"); err != nil {
		return nil, err
	}
	f := newFrame(256, 192, 1)
	for cy := 0; cy < 24; cy++ {
		bank := (cy / 8) * 2048
		for cx := 0; cx < 32; cx++ {
			name := int(vram[pnt+cy*32+cx])
			for r := 0; r < 8; r++ {
				o := bank + name*8 + r
				tmsCell(f, cx, cy*8+r, vram[o], vram[ct+o])
			}
		}
	}
	return f, nil
}

func msxBitmapPalette(data raw.Reader, m msxBitmap) (*palette.Info, error) {
	vram, err := msxVRAM(data)
	if err != nil {
		return nil, err
	}
	if !vram.Has(m.palAddr, 32) {
		return palette.NewSingle(palette.MSX2Default()), nil
	}
	p := make(palette.Palette, 16)
	for i := range p {
		p[i] = palette.MSX2(vram[m.palAddr+i*2], vram[m.palAddr+i*2+1])
	}
	return palette.NewSingle(p), nil
}

// msxBitmapIndex decodes the bitmap screens. Files saved with fewer than
// 212 lines are accepted down to 192.
func msxBitmapIndex(data raw.Reader, m msxBitmap) (*frame, error) {
	vram, err := msxVRAM(data)
	if err != nil {
		return nil, err
	}
	lineBytes := m.width * m.bpp / 8
	lines := min(len(vram)/lineBytes, 212)
	if lines < 192 {
		return nil, truncated(len(vram), "%d lines of bitmap, need at least 192", lines)
	}
	f := newFrame(m.width, lines, 1)
	if m.bpp == 8 {
		copy(f.pix, vram[:m.width*lines])
		return f, nil
	}
	for i, b := range vram[:lineBytes*lines] {
		f.pix[i*2] = b >> 4
		f.pix[i*2+1] = b & 0x0f
	}
	return f, nil
}
