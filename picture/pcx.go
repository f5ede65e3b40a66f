package picture

import (
	"github.com/paleotronic/picm8/pack"
	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

const (
	pcxHeader   = 128
	pcxVGABlock = 769
	maxSide     = 16384
	maxPixels   = 1 << 24
	// colours kept when summarising true colour images
	summaryColours = 16
)

func init() {
	register(PCX, codec{palette: pcxPalette, index: pcxIndex})
}

type pcxHead struct {
	version      byte
	rle          bool
	bpp          int
	width        int
	height       int
	colormap     raw.Reader
	planes       int
	bytesPerLine int
	paletteInfo  int
}

func parsePCX(data raw.Reader) (*pcxHead, error) {
	if err := need(data, pcxHeader, "PCX header"); err != nil {
		return nil, err
	}
	if data[0] != 0x0a {
		return nil, invalid(0, "PCX magic %#x", data[0])
	}
	h := &pcxHead{
		version:     data[1],
		rle:         data[2] == 1,
		bpp:         int(data[3]),
		colormap:    data[16:64],
		planes:      int(data[65]),
		paletteInfo: int(data[68]),
	}
	xmin, _ := data.U16LE(4)
	ymin, _ := data.U16LE(6)
	xmax, _ := data.U16LE(8)
	ymax, _ := data.U16LE(10)
	h.bytesPerLine, _ = data.U16LE(66)
	h.width = xmax - xmin + 1
	h.height = ymax - ymin + 1
	if h.width < 1 || h.height < 1 || h.width > maxSide || h.height > maxSide {
		return nil, invalid(4, "window %d,%d-%d,%d", xmin, ymin, xmax, ymax)
	}
	if h.planes < 1 || h.planes > 4 {
		return nil, unsupported(65, "%d planes", h.planes)
	}
	if h.planes == 1 {
		h.bpp = pcxInferDepth(h.bpp, h.width, h.bytesPerLine)
	}
	switch {
	case h.planes == 1 && (h.bpp == 1 || h.bpp == 2 || h.bpp == 4 || h.bpp == 8):
	case h.bpp == 1:
	case h.bpp == 8 && h.planes >= 3:
	default:
		return nil, unsupported(3, "%d bits per pixel with %d planes", h.bpp, h.planes)
	}
	if h.bytesPerLine*8 < h.width*h.bpp {
		return nil, invalid(66, "%d bytes per line cannot hold %d pixels at %d bits", h.bytesPerLine, h.width, h.bpp)
	}
	if h.width*h.height > maxPixels || h.bytesPerLine*h.planes*h.height > maxPixels*4 {
		return nil, invalid(4, "image of %dx%d is too large", h.width, h.height)
	}
	return h, nil
}

// pcxInferDepth trusts the declared depth unless bytesPerLine is exactly the
// line length of a deeper one. Writers that claim 1 bit for 2 bit CGA images
// give themselves away with lines twice as long as needed. Lines are
// allowed the usual padding to an even length.
func pcxInferDepth(declared, width, bytesPerLine int) int {
	exact := func(d int) bool {
		n := (width*d + 7) / 8
		return bytesPerLine == n || bytesPerLine == n+n%2
	}
	if exact(declared) {
		return declared
	}
	for _, d := range []int{2, 4, 8} {
		if d > declared && exact(d) {
			return d
		}
	}
	return declared
}

func (h *pcxHead) trueColour() bool {
	return h.bpp == 8 && h.planes >= 3
}

func (h *pcxHead) bits() int {
	return h.bpp * h.planes
}

func (h *pcxHead) headerColours(n int) palette.Palette {
	p := make(palette.Palette, n)
	for i := range p {
		if i*3+2 < len(h.colormap) {
			p[i] = palette.RGB{R: h.colormap[i*3], G: h.colormap[i*3+1], B: h.colormap[i*3+2]}
		}
	}
	return p
}

// cgaColours decodes the CGA background and palette selection that
// PC Paintbrush stores in the header colormap. Version 4 files encode the
// selection differently from version 3.
func (h *pcxHead) cgaColours() palette.Palette {
	p := make(palette.Palette, 0, 4)
	p = append(p, palette.CGA()[h.colormap[0]>>4])
	idx := int(h.colormap[3] >> 5)
	if h.paletteInfo != 0 {
		i := 0
		if h.colormap[5] >= h.colormap[4] {
			i = 1
		}
		idx = i * 2
		if h.colormap[4+i] > 200 {
			idx++
		}
	}
	return append(p, palette.CGAFour(idx)...)
}

func pcxVGA(data raw.Reader, h *pcxHead) (palette.Palette, bool) {
	off := len(data) - pcxVGABlock
	if h.version < 5 || off < pcxHeader || data[off] != 0x0c {
		return nil, false
	}
	p := make(palette.Palette, 256)
	for i := range p {
		o := off + 1 + i*3
		p[i] = palette.RGB{R: data[o], G: data[o+1], B: data[o+2]}
	}
	return p, true
}

func pcxPalette(data raw.Reader) (*palette.Info, error) {
	h, err := parsePCX(data)
	if err != nil {
		return nil, err
	}
	if h.trueColour() {
		f, err := pcxIndex(data)
		if err != nil {
			return nil, err
		}
		return palette.NewFixed(palette.Summarize(f.render(nil), summaryColours)), nil
	}
	n := 1 << uint(h.bits())
	if vga, ok := pcxVGA(data, h); ok {
		return palette.NewSingle(vga[:n]), nil
	}
	var p palette.Palette
	switch {
	case h.bits() == 8:
		p = palette.Grey(256)
	case h.bits() == 1:
		p = palette.Grey(2)
	case h.bits() == 2 && h.planes == 1:
		p = h.cgaColours()
	default:
		p = h.headerColours(n)
		blank := true
		for _, c := range p {
			if c != (palette.RGB{}) {
				blank = false
				break
			}
		}
		if blank {
			p = palette.CGA()[:n]
		}
	}
	return palette.NewSingle(p), nil
}

func pcxIndex(data raw.Reader) (*frame, error) {
	h, err := parsePCX(data)
	if err != nil {
		return nil, err
	}
	lineBytes := h.bytesPerLine * h.planes
	want := lineBytes * h.height
	var body []byte
	if h.rle {
		body, _, err = pack.UnpackPCX(data[pcxHeader:], want)
		if err != nil {
			return nil, err
		}
	} else {
		if err := need(data, pcxHeader+want, "PCX image"); err != nil {
			return nil, err
		}
		body = data[pcxHeader : pcxHeader+want]
	}

	f := newFrame(h.width, h.height, 1)
	if h.trueColour() {
		f.pix = nil
		f.rgb = make([]palette.RGB, h.width*h.height)
	}
	bpl := h.bytesPerLine
	for y := 0; y < h.height; y++ {
		line := body[y*lineBytes : (y+1)*lineBytes]
		for x := 0; x < h.width; x++ {
			switch {
			case h.trueColour():
				f.rgb[y*h.width+x] = palette.RGB{R: line[x], G: line[bpl+x], B: line[2*bpl+x]}
			case h.planes == 1:
				bit := x * h.bpp
				shift := uint(8 - h.bpp - bit%8)
				f.set(x, y, (line[bit/8]>>shift)&(1<<uint(h.bpp)-1))
			default:
				var v uint8
				for p := 0; p < h.planes; p++ {
					if line[p*bpl+x/8]&(0x80>>uint(x%8)) != 0 {
						v |= 1 << uint(p)
					}
				}
				f.set(x, y, v)
			}
		}
	}
	return f, nil
}
