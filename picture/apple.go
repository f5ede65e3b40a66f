package picture

import (
	"github.com/paleotronic/picm8/pack"
	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

const (
	hgrSize    = 8192
	hgrMinSize = 8184
	dhgrSize   = 16384
	shrSize    = 32768
	shr3200    = 38400
	shrPixels  = 32000

	dreamTrailer = 17
)

func init() {
	register(HGR, codec{
		palette: func(raw.Reader) (*palette.Info, error) { return palette.NewSingle(palette.AppleHGR()), nil },
		index:   hgrIndex,
	})
	register(DHGR, codec{
		palette: func(raw.Reader) (*palette.Info, error) { return palette.NewSingle(palette.AppleDHGR()), nil },
		index:   dhgrIndex,
	})
	register(SHRStandard, codec{palette: shrPalette, index: shrIndex})
	register(SHR3200, codec{palette: brooksPalette, index: brooksIndex})
}

// screenBytes returns an Apple II screen dump of size bytes, unpacking
// PackBytes data when the file is smaller than the screen.
func screenBytes(data raw.Reader, size, min int) (raw.Reader, error) {
	switch {
	case len(data) >= min && len(data) <= size:
		return data, nil
	case len(data) > size:
		return nil, invalid(size, "%d bytes is larger than a %d byte screen", len(data), size)
	}
	out, err := pack.UnpackBytes(data, size)
	if err != nil {
		return nil, truncated(len(data), "%d bytes is neither a screen nor PackBytes data: %v", len(data), err)
	}
	return out, nil
}

func hgrRow(y int) int {
	return (y%8)*1024 + ((y/8)%8)*128 + (y/64)*40
}

func dhgrRow(y int) int {
	return ((y & 7) << 10) | (((y >> 3) & 7) << 7) | ((y>>6)&3)*40
}

// HGR palette order.
const (
	hgrBlack = iota
	hgrGreen
	hgrViolet
	hgrWhite
	hgrOrange
	hgrBlue
)

func hgrColour(x int, hi bool) uint8 {
	switch {
	case x%2 == 0 && hi:
		return hgrBlue
	case x%2 == 0:
		return hgrViolet
	case hi:
		return hgrOrange
	}
	return hgrGreen
}

func hgrIndex(data raw.Reader) (*frame, error) {
	scr, err := screenBytes(data, hgrSize, hgrMinSize)
	if err != nil {
		return nil, err
	}
	f := newFrame(280, 192, 1)
	var bits [282]bool
	var hi [280]bool
	for y := 0; y < 192; y++ {
		base := hgrRow(y)
		for col := 0; col < 40; col++ {
			b := scr.Byte(base + col)
			for bit := 0; bit < 7; bit++ {
				x := col*7 + bit
				bits[x+1] = b&(1<<uint(bit)) != 0
				hi[x] = b&0x80 != 0
			}
		}
		for x := 0; x < 280; x++ {
			prev, on, next := bits[x], bits[x+1], bits[x+2]
			var c uint8
			switch {
			case on && (prev || next):
				c = hgrWhite
			case on:
				c = hgrColour(x, hi[x])
			case prev && next:
				c = hgrColour(x+1, hi[x])
			default:
				c = hgrBlack
			}
			f.set(x, y, c)
		}
	}
	return f, nil
}

func dhgrIndex(data raw.Reader) (*frame, error) {
	scr, err := screenBytes(data, dhgrSize, dhgrSize)
	if err != nil {
		return nil, err
	}
	f := newFrame(140, 192, 2)
	var bits [560]uint8
	for y := 0; y < 192; y++ {
		base := dhgrRow(y)
		for col := 0; col < 40; col++ {
			aux := scr.Byte(base + col)
			main := scr.Byte(0x2000 + base + col)
			for bit := 0; bit < 7; bit++ {
				bits[col*14+bit] = (aux >> uint(bit)) & 1
				bits[col*14+7+bit] = (main >> uint(bit)) & 1
			}
		}
		for x := 0; x < 140; x++ {
			b := bits[x*4:]
			f.set(x, y, b[0]|b[1]<<1|b[2]<<2|b[3]<<3)
		}
	}
	return f, nil
}

// dreamGrafix reports the colour mode of a DreamGrafix file, or -1.
func dreamGrafix(data raw.Reader) int {
	if len(data) < dreamTrailer || !data.Match(len(data)-11, "\nDreamWorld") {
		return -1
	}
	mode, _ := data.U16LE(len(data) - dreamTrailer)
	return mode
}

func dreamBody(data raw.Reader, want int) (raw.Reader, error) {
	out, err := pack.UnLZW(data[:len(data)-dreamTrailer], want)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// shrScreen returns the 32K super hi-res memory image: raw, PackBytes
// packed or DreamGrafix 256 colour.
func shrScreen(data raw.Reader) (raw.Reader, error) {
	switch dreamGrafix(data) {
	case -1:
	case 0:
		return dreamBody(data, shrSize)
	default:
		return nil, unsupported(len(data)-dreamTrailer, "DreamGrafix 3200 colour file is not a standard SHR image")
	}
	if len(data) >= shrSize {
		return data[:shrSize], nil
	}
	out, err := pack.UnpackBytes(data, shrSize)
	if err != nil {
		return nil, truncated(len(data), "short SHR image: %v", err)
	}
	return out, nil
}

func shrPalette(data raw.Reader) (*palette.Info, error) {
	scr, err := shrScreen(data)
	if err != nil {
		return nil, err
	}
	pals := make([]palette.Palette, 16)
	for n := range pals {
		p := make(palette.Palette, 16)
		for i := range p {
			o := 0x7e00 + n*32 + i*2
			p[i] = palette.IIGS(scr[o], scr[o+1])
		}
		pals[n] = p
	}
	lines := make([]int, 200)
	same := true
	for y := range lines {
		lines[y] = int(scr[0x7d00+y] & 0x0f)
		if lines[y] != lines[0] {
			same = false
		}
	}
	if same {
		return palette.NewSingle(pals[lines[0]]), nil
	}
	return palette.NewMulti(pals, lines), nil
}

var shr640Quarter = [4]uint8{8, 12, 0, 4}

func shrIndex(data raw.Reader) (*frame, error) {
	scr, err := shrScreen(data)
	if err != nil {
		return nil, err
	}
	wide := false
	for y := 0; y < 200; y++ {
		if scr[0x7d00+y]&0x80 != 0 {
			wide = true
			break
		}
	}
	w := 320
	if wide {
		w = 640
	}
	f := newFrame(w, 200, 1)
	for y := 0; y < 200; y++ {
		line := scr[y*160 : y*160+160]
		if scr[0x7d00+y]&0x80 != 0 {
			for i, b := range line {
				for p := 0; p < 4; p++ {
					v := (b >> uint(6-2*p)) & 3
					f.set(i*4+p, y, shr640Quarter[p]+v)
				}
			}
			continue
		}
		step := w / 320
		for i, b := range line {
			for s := 0; s < step; s++ {
				f.set((i*2)*step+s, y, b>>4)
				f.set((i*2+1)*step+s, y, b&0x0f)
			}
		}
	}
	return f, nil
}

// brooks splits a 3200 colour image into its pixel bytes and 200 palettes.
// Brooks and APP files store each line's colours from 15 down to 0.
func brooks(data raw.Reader) (pixels, pals raw.Reader, reversed bool, err error) {
	const palBytes = 200 * 32
	switch {
	case dreamGrafix(data) == 1:
		body, err := dreamBody(data, shrPixels+palBytes)
		if err != nil {
			return nil, nil, false, err
		}
		return body[:shrPixels], body[shrPixels:], false, nil
	case dreamGrafix(data) >= 0:
		return nil, nil, false, unsupported(len(data)-dreamTrailer, "DreamGrafix 256 colour file is not a 3200 colour image")
	case data.Match(0, "APP\x00"):
		pals, err := data.Slice(4, palBytes)
		if err != nil {
			return nil, nil, false, err
		}
		px, err := pack.UnpackBytes(data[4+palBytes:], shrPixels)
		if err != nil {
			return nil, nil, false, err
		}
		return px, pals, true, nil
	}
	if err := need(data, shr3200, "3200 colour image"); err != nil {
		return nil, nil, false, err
	}
	return data[:shrPixels], data[shrPixels:shr3200], true, nil
}

func brooksPalette(data raw.Reader) (*palette.Info, error) {
	_, pals, reversed, err := brooks(data)
	if err != nil {
		return nil, err
	}
	out := make([]palette.Palette, 200)
	for y := range out {
		p := make(palette.Palette, 16)
		for i := range p {
			slot := i
			if reversed {
				slot = 15 - i
			}
			o := y*32 + slot*2
			p[i] = palette.IIGS(pals[o], pals[o+1])
		}
		out[y] = p
	}
	return palette.NewPerScanline(out), nil
}

func brooksIndex(data raw.Reader) (*frame, error) {
	px, _, _, err := brooks(data)
	if err != nil {
		return nil, err
	}
	f := newFrame(320, 200, 1)
	for i, b := range px[:shrPixels] {
		f.pix[i*2] = b >> 4
		f.pix[i*2+1] = b & 0x0f
	}
	return f, nil
}
