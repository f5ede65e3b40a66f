package picture

import (
	"github.com/paleotronic/picm8/pack"
	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

const (
	camgEHB = 0x80
	camgHAM = 0x800

	iffMaxSide = 8192
)

func init() {
	register(IFFIndexed, codec{palette: iffPalette(0), index: iffIndex(0)})
	register(IFFHAM6, codec{palette: iffPalette(6), index: iffIndex(6)})
	register(IFFHAM8, codec{palette: iffPalette(8), index: iffIndex(8)})
}

type ilbm struct {
	chunky      bool
	width       int
	height      int
	planes      int
	masking     byte
	compression byte
	cmap        []byte
	camg        uint32
	body        raw.Reader
}

func (i *ilbm) ham() int {
	if i.camg&camgHAM == 0 || i.chunky {
		return 0
	}
	return i.planes
}

func parseILBM(data raw.Reader) (*ilbm, error) {
	if !data.Match(0, "FORM") {
		return nil, invalid(0, "missing FORM")
	}
	out := &ilbm{}
	switch {
	case data.Match(8, "ILBM"):
	case data.Match(8, "PBM "):
		out.chunky = true
	default:
		return nil, invalid(8, "FORM is not ILBM or PBM")
	}
	end := len(data)
	if size, err := data.U32BE(4); err == nil && int64(size)+8 < int64(end) {
		end = int(size) + 8
	}
	haveHeader := false
	pos := 12
	for pos+8 <= end {
		id, _ := data.Str(pos, 4)
		size, _ := data.U32BE(pos + 4)
		start := pos + 8
		n := int(size)
		if size > uint32(end) || start+n > end {
			if id != "BODY" {
				return nil, truncated(start, "%s chunk of %d bytes", id, size)
			}
			n = end - start
		}
		chunk := data[start : start+n]
		switch id {
		case "BMHD":
			if err := need(chunk, 20, "BMHD"); err != nil {
				return nil, err
			}
			out.width, _ = chunk.U16BE(0)
			out.height, _ = chunk.U16BE(2)
			out.planes = int(chunk[8])
			out.masking = chunk[9]
			out.compression = chunk[10]
			haveHeader = true
		case "CMAP":
			out.cmap = chunk
		case "CAMG":
			if len(chunk) >= 4 {
				out.camg, _ = chunk.U32BE(0)
			}
		case "BODY":
			out.body = chunk
		}
		pos = start + n + n&1
	}
	if !haveHeader {
		return nil, invalid(12, "no BMHD chunk")
	}
	if out.width < 1 || out.height < 1 || out.width > iffMaxSide || out.height > iffMaxSide || out.width*out.height > maxPixels {
		return nil, invalid(20, "image size %dx%d", out.width, out.height)
	}
	if out.planes < 1 || out.planes > 8 || (out.chunky && out.planes != 8) {
		return nil, unsupported(28, "%d bitplanes", out.planes)
	}
	if out.compression > 1 {
		return nil, unsupported(30, "compression %d", out.compression)
	}
	return out, nil
}

func (i *ilbm) checkKind(want int) error {
	switch ham := i.ham(); {
	case want == 0 && ham != 0:
		return unsupported(-1, "HAM%d image", ham)
	case want != 0 && ham != want:
		return unsupported(-1, "not a HAM%d image", want)
	}
	return nil
}

// colours expands CMAP, repairing 4-bit maps and building the half bright
// half for EHB images.
func (i *ilbm) colours() palette.Palette {
	n := len(i.cmap) / 3
	size := 1 << uint(i.planes)
	switch i.ham() {
	case 6:
		size = 16
	case 8:
		size = 64
	}
	ehb := i.ham() == 0 && !i.chunky && i.planes == 6 && (i.camg&camgEHB != 0 || n <= 32)
	if size < n && !ehb {
		n = size
	}
	fourBit := n > 0
	for _, b := range i.cmap[:n*3] {
		if b&0x0f != 0 {
			fourBit = false
			break
		}
	}
	p := make(palette.Palette, size)
	for c := 0; c < n && c < size; c++ {
		r, g, b := i.cmap[c*3], i.cmap[c*3+1], i.cmap[c*3+2]
		if fourBit {
			r, g, b = r|r>>4, g|g>>4, b|b>>4
		}
		p[c] = palette.RGB{R: r, G: g, B: b}
	}
	if ehb {
		for c := 0; c < 32; c++ {
			p[32+c] = palette.RGB{R: p[c].R >> 1, G: p[c].G >> 1, B: p[c].B >> 1}
		}
	}
	return p
}

func iffPalette(ham int) func(raw.Reader) (*palette.Info, error) {
	return func(data raw.Reader) (*palette.Info, error) {
		img, err := parseILBM(data)
		if err != nil {
			return nil, err
		}
		if err := img.checkKind(ham); err != nil {
			return nil, err
		}
		return palette.NewSingle(img.colours()), nil
	}
}

func iffIndex(ham int) func(raw.Reader) (*frame, error) {
	return func(data raw.Reader) (*frame, error) {
		img, err := parseILBM(data)
		if err != nil {
			return nil, err
		}
		if err := img.checkKind(ham); err != nil {
			return nil, err
		}
		if img.body == nil {
			return nil, truncated(len(data), "no BODY chunk")
		}
		rowBytes := ((img.width + 15) / 16) * 2
		planes := img.planes
		if img.masking == 1 {
			planes++
		}
		if img.chunky {
			rowBytes = img.width + img.width&1
			planes = 1
		}
		want := rowBytes * planes * img.height
		body := []byte(img.body)
		if img.compression == 1 {
			body, _, err = pack.UnpackBits(img.body, want)
			if err != nil {
				return nil, err
			}
		} else if len(body) < want {
			return nil, truncated(len(data), "BODY has %d of %d bytes", len(body), want)
		}

		f := newFrame(img.width, img.height, 1)
		f.ham = ham
		for y := 0; y < img.height; y++ {
			row := body[y*rowBytes*planes:]
			if img.chunky {
				copy(f.pix[y*img.width:(y+1)*img.width], row[:img.width])
				continue
			}
			for x := 0; x < img.width; x++ {
				mask := byte(0x80) >> uint(x&7)
				var v uint8
				for p := 0; p < img.planes; p++ {
					if row[p*rowBytes+x>>3]&mask != 0 {
						v |= 1 << uint(p)
					}
				}
				f.set(x, y, v)
			}
		}
		return f, nil
	}
}
