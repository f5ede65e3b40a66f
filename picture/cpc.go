package picture

import (
	"github.com/paleotronic/picm8/disk"
	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

const (
	cpcScreen = 16384
	// Mode byte followed by 16 inks, kept in an unused screen gap.
	cpcMarker = 0x17d0
)

var (
	cpcMode0Inks = []byte{1, 24, 20, 6, 26, 0, 2, 8, 10, 12, 14, 16, 18, 22, 1, 16}
	cpcMode1Inks = []byte{1, 24, 20, 6}
)

func init() {
	register(CPCMode0, codec{
		palette: func(data raw.Reader) (*palette.Info, error) { return cpcPalette(data, 0) },
		index:   func(data raw.Reader) (*frame, error) { return cpcIndex(data, 0) },
	})
	register(CPCMode1, codec{
		palette: func(data raw.Reader) (*palette.Info, error) { return cpcPalette(data, 1) },
		index:   func(data raw.Reader) (*frame, error) { return cpcIndex(data, 1) },
	})
}

// cpcBody strips an AMSDOS header and returns the 16K screen.
func cpcBody(data raw.Reader) (raw.Reader, error) {
	if disk.IsAMSDOSHeader(data) {
		data = data[disk.AMSDOSHeaderSize:]
	}
	if err := need(data, cpcScreen, "CPC screen"); err != nil {
		return nil, err
	}
	return data[:cpcScreen], nil
}

// cpcMarkerMode reads the screen mode and inks stored at the marker. ok is
// false when the block does not hold a mode and 16 valid inks.
func cpcMarkerMode(scr raw.Reader) (mode int, inks palette.Palette, ok bool) {
	if !scr.Has(cpcMarker, 17) {
		return 0, nil, false
	}
	// a zeroed gap is an unused gap
	blank := true
	for _, b := range scr[cpcMarker : cpcMarker+17] {
		if b != 0 {
			blank = false
			break
		}
	}
	if blank {
		return 0, nil, false
	}
	mode = int(scr[cpcMarker])
	if mode > 2 {
		return 0, nil, false
	}
	inks = make(palette.Palette, 16)
	for i := range inks {
		c, valid := palette.CPCInk(scr[cpcMarker+1+i])
		if !valid {
			return 0, nil, false
		}
		inks[i] = c
	}
	return mode, inks, true
}

func cpcCheck(scr raw.Reader) error {
	if mode, _, ok := cpcMarkerMode(scr); ok && mode == 2 {
		return unsupported(cpcMarker, "mode 2 screen")
	}
	return nil
}

func cpcPalette(data raw.Reader, mode int) (*palette.Info, error) {
	scr, err := cpcBody(data)
	if err != nil {
		return nil, err
	}
	if err := cpcCheck(scr); err != nil {
		return nil, err
	}
	n := 16
	if mode == 1 {
		n = 4
	}
	if _, inks, ok := cpcMarkerMode(scr); ok {
		return palette.NewSingle(inks[:n].Clone()), nil
	}
	def := cpcMode0Inks
	if mode == 1 {
		def = cpcMode1Inks
	}
	p := make(palette.Palette, n)
	for i, ink := range def {
		p[i], _ = palette.CPCInk(ink)
	}
	return palette.NewSingle(p), nil
}

func cpcRow(y int) int {
	return (y/8)*80 + (y%8)*2048
}

func cpcIndex(data raw.Reader, mode int) (*frame, error) {
	scr, err := cpcBody(data)
	if err != nil {
		return nil, err
	}
	if err := cpcCheck(scr); err != nil {
		return nil, err
	}
	var f *frame
	if mode == 0 {
		f = newFrame(160, 200, 2)
	} else {
		f = newFrame(320, 200, 1)
	}
	bit := func(b byte, n uint) uint8 { return (b >> n) & 1 }
	for y := 0; y < 200; y++ {
		row := cpcRow(y)
		for col := 0; col < 80; col++ {
			b := scr[row+col]
			if mode == 0 {
				f.set(col*2, y, bit(b, 7)|bit(b, 3)<<1|bit(b, 5)<<2|bit(b, 1)<<3)
				f.set(col*2+1, y, bit(b, 6)|bit(b, 2)<<1|bit(b, 4)<<2|bit(b, 0)<<3)
				continue
			}
			for p := uint(0); p < 4; p++ {
				f.set(col*4+int(p), y, bit(b, 7-p)|bit(b, 3-p)<<1)
			}
		}
	}
	return f, nil
}
