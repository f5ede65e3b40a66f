package picture

import (
	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

const (
	bmpFileHeader = 14
	bmpCoreHeader = 12

	biRGB  = 0
	biRLE8 = 1
	biRLE4 = 2
)

func init() {
	register(BMP, codec{palette: bmpPalette, index: bmpIndex})
}

type bmpHead struct {
	dibSize     int
	pixelOffset int
	width       int
	height      int
	topDown     bool
	bpp         int
	compression uint32
	colorsUsed  int
}

func parseBMP(data raw.Reader) (*bmpHead, error) {
	if !data.Match(0, "BM") {
		return nil, invalid(0, "missing BM signature")
	}
	off, err := data.U32LE(10)
	if err != nil {
		return nil, err
	}
	dib, err := data.U32LE(14)
	if err != nil {
		return nil, err
	}
	h := &bmpHead{dibSize: int(dib), pixelOffset: int(off)}
	if h.dibSize == bmpCoreHeader {
		if err := need(data, bmpFileHeader+bmpCoreHeader, "OS/2 bitmap header"); err != nil {
			return nil, err
		}
		h.width, _ = data.U16LE(18)
		h.height, _ = data.U16LE(20)
		h.bpp, _ = data.U16LE(24)
	} else {
		if h.dibSize < 40 || h.dibSize > 1024 {
			return nil, invalid(14, "DIB header size %d", h.dibSize)
		}
		if err := need(data, bmpFileHeader+40, "bitmap info header"); err != nil {
			return nil, err
		}
		w, _ := data.U32LE(18)
		hh, _ := data.U32LE(22)
		h.width = int(int32(w))
		h.height = int(int32(hh))
		h.bpp, _ = data.U16LE(28)
		h.compression, _ = data.U32LE(30)
		used, _ := data.U32LE(46)
		if used > 256 {
			return nil, invalid(46, "%d colours used", used)
		}
		h.colorsUsed = int(used)
	}
	if h.height < 0 {
		h.topDown = true
		h.height = -h.height
	}
	if h.width < 1 || h.height < 1 || h.width > maxSide || h.height > maxSide || h.width*h.height > maxPixels {
		return nil, invalid(18, "image size %dx%d", h.width, h.height)
	}
	switch h.bpp {
	case 1, 4, 8, 24, 32:
	default:
		return nil, unsupported(28, "%d bits per pixel", h.bpp)
	}
	switch {
	case h.compression == biRGB:
	case h.compression == biRLE8 && h.bpp == 8, h.compression == biRLE4 && h.bpp == 4:
		if h.topDown {
			return nil, invalid(22, "RLE bitmaps cannot be top-down")
		}
	default:
		return nil, unsupported(30, "compression %d with %d bits per pixel", h.compression, h.bpp)
	}
	return h, nil
}

func (h *bmpHead) indexed() bool {
	return h.bpp <= 8
}

// colours reads the colour table that follows the DIB header. OS/2 core
// headers use 3 byte entries, everything else 4.
func (h *bmpHead) colours(data raw.Reader) (palette.Palette, error) {
	n := 1 << uint(h.bpp)
	if h.colorsUsed > 0 && h.colorsUsed < n {
		n = h.colorsUsed
	}
	entry := 4
	if h.dibSize == bmpCoreHeader {
		entry = 3
	}
	base := bmpFileHeader + h.dibSize
	if err := need(data, base+n*entry, "colour table"); err != nil {
		return nil, err
	}
	p := make(palette.Palette, n)
	for i := range p {
		o := base + i*entry
		p[i] = palette.RGB{R: data[o+2], G: data[o+1], B: data[o]}
	}
	return p, nil
}

func bmpPalette(data raw.Reader) (*palette.Info, error) {
	h, err := parseBMP(data)
	if err != nil {
		return nil, err
	}
	if !h.indexed() {
		f, err := bmpIndex(data)
		if err != nil {
			return nil, err
		}
		return palette.NewFixed(palette.Summarize(f.render(nil), summaryColours)), nil
	}
	p, err := h.colours(data)
	if err != nil {
		return nil, err
	}
	return palette.NewSingle(p), nil
}

func bmpIndex(data raw.Reader) (*frame, error) {
	h, err := parseBMP(data)
	if err != nil {
		return nil, err
	}
	if h.pixelOffset < bmpFileHeader || h.pixelOffset > len(data) {
		return nil, truncated(10, "pixel data offset %d outside %d byte file", h.pixelOffset, len(data))
	}
	f := newFrame(h.width, h.height, 1)
	if h.compression != biRGB {
		if err := bmpRLE(data[h.pixelOffset:], h, f); err != nil {
			return nil, err
		}
		return f, nil
	}
	if !h.indexed() {
		f.pix = nil
		f.rgb = make([]palette.RGB, h.width*h.height)
	}
	stride := ((h.width*h.bpp + 31) / 32) * 4
	if err := need(data, h.pixelOffset+stride*h.height, "bitmap pixels"); err != nil {
		return nil, err
	}
	for row := 0; row < h.height; row++ {
		y := h.height - 1 - row
		if h.topDown {
			y = row
		}
		line := data[h.pixelOffset+row*stride : h.pixelOffset+(row+1)*stride]
		for x := 0; x < h.width; x++ {
			switch h.bpp {
			case 24, 32:
				o := x * h.bpp / 8
				f.rgb[y*h.width+x] = palette.RGB{R: line[o+2], G: line[o+1], B: line[o]}
			default:
				bit := x * h.bpp
				shift := uint(8 - h.bpp - bit%8)
				f.set(x, y, (line[bit/8]>>shift)&(1<<uint(h.bpp)-1))
			}
		}
	}
	return f, nil
}

// bmpRLE expands RLE8 and RLE4 data. The stream is bottom-up; pixels skipped
// by deltas or early line ends stay at index 0.
func bmpRLE(src raw.Reader, h *bmpHead, f *frame) error {
	x, y := 0, h.height-1
	put := func(v uint8) {
		if x >= 0 && x < h.width && y >= 0 && y < h.height {
			f.set(x, y, v)
		}
		x++
	}
	pos := 0
	for y >= 0 {
		if pos+2 > len(src) {
			return truncated(pos, "RLE data ends before end of bitmap")
		}
		b1, b2 := src[pos], src[pos+1]
		pos += 2
		switch {
		case b1 > 0:
			for k := 0; k < int(b1); k++ {
				switch {
				case h.compression == biRLE8:
					put(b2)
				case k%2 == 0:
					put(b2 >> 4)
				default:
					put(b2 & 0x0f)
				}
			}
		case b2 == 0:
			x = 0
			y--
		case b2 == 1:
			return nil
		case b2 == 2:
			if pos+2 > len(src) {
				return truncated(pos, "RLE delta")
			}
			x += int(src[pos])
			y -= int(src[pos+1])
			pos += 2
		default:
			n := int(b2)
			size := n
			if h.compression == biRLE4 {
				size = (n + 1) / 2
			}
			if pos+size > len(src) {
				return truncated(pos, "RLE literal run of %d pixels", n)
			}
			for k := 0; k < n; k++ {
				if h.compression == biRLE8 {
					put(src[pos+k])
				} else if k%2 == 0 {
					put(src[pos+k/2] >> 4)
				} else {
					put(src[pos+k/2] & 0x0f)
				}
			}
			pos += size + size&1
		}
	}
	return nil
}
