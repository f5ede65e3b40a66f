package palette

import "math"

func hex(v ...uint32) Palette {
	p := make(Palette, len(v))
	for i, c := range v {
		p[i] = RGB{uint8(c >> 16), uint8(c >> 8), uint8(c)}
	}
	return p
}

// Mono is white paper with black ink, index 1 being ink.
func Mono() Palette {
	return hex(0xffffff, 0x000000)
}

// AppleHGR is the artifact colour set, in the order black, green, violet,
// white, orange, blue.
func AppleHGR() Palette {
	return hex(0x000000, 0x14f53c, 0xff44fd, 0xffffff, 0xff6a3c, 0x14cffd)
}

// AppleDHGR is indexed by the 4-bit pattern a double hi-res pixel spells out.
func AppleDHGR() Palette {
	return hex(
		0x000000, 0x901740, 0x405400, 0xd06a1a,
		0x006940, 0x808080, 0x2fbc1a, 0xbfd35a,
		0x402ca5, 0xd043e5, 0x808080, 0xff9bc9,
		0x2f95e5, 0xbfabff, 0x6fe6c0, 0xffffff,
	)
}

// C64 is the Pepto VIC-II palette.
func C64() Palette {
	return hex(
		0x000000, 0xffffff, 0x68372b, 0x70a4b2,
		0x6f3d86, 0x588d43, 0x352879, 0xb8c76f,
		0x6f4f25, 0x433900, 0x9a6759, 0x444444,
		0x6c6c6c, 0x9ad284, 0x6c5eb5, 0x959595,
	)
}

// ZXSpectrum holds the eight normal colours followed by their BRIGHT forms.
func ZXSpectrum() Palette {
	p := make(Palette, 16)
	for i := range p {
		level := uint8(0xd7)
		if i >= 8 {
			level = 0xff
		}
		var c RGB
		if i&1 != 0 {
			c.B = level
		}
		if i&2 != 0 {
			c.R = level
		}
		if i&4 != 0 {
			c.G = level
		}
		p[i] = c
	}
	return p
}

// CPCHardware is the 27 colour gate array palette in firmware order.
func CPCHardware() Palette {
	levels := [3]uint8{0x00, 0x80, 0xff}
	p := make(Palette, 27)
	for n := range p {
		p[n] = RGB{levels[(n/3)%3], levels[n/9], levels[n%3]}
	}
	return p
}

var cpcGateArray = [32]int{
	13, 13, 19, 25, 1, 7, 10, 16, 7, 25, 24, 26, 6, 8, 15, 17,
	1, 19, 18, 20, 0, 2, 9, 11, 4, 22, 21, 23, 3, 5, 12, 14,
}

// CPCInk resolves an ink value given either as a firmware colour (0..26) or
// as a gate array hardware number (0x40..0x5f). ok is false for anything else.
func CPCInk(v byte) (RGB, bool) {
	hw := CPCHardware()
	switch {
	case int(v) < len(hw):
		return hw[v], true
	case v >= 0x40 && v <= 0x5f:
		return hw[cpcGateArray[v-0x40]], true
	}
	return RGB{}, false
}

// TMS9918 is the MSX1 video chip palette. Colour 0 is transparent and shown
// as black.
func TMS9918() Palette {
	return hex(
		0x000000, 0x000000, 0x21c842, 0x5edc78,
		0x5455ed, 0x7d76fc, 0xd4524d, 0x42ebf5,
		0xfc5554, 0xff7978, 0xd4c154, 0xe6ce80,
		0x21b03b, 0xc95bba, 0xcccccc, 0xffffff,
	)
}

// MSX2Default is the V9938 power-on palette.
func MSX2Default() Palette {
	rgb := [16][3]byte{
		{0, 0, 0}, {0, 0, 0}, {1, 6, 1}, {3, 7, 3},
		{1, 1, 7}, {2, 3, 7}, {5, 1, 1}, {2, 6, 7},
		{7, 1, 1}, {7, 3, 3}, {6, 6, 1}, {6, 6, 4},
		{1, 4, 1}, {6, 2, 5}, {5, 5, 5}, {7, 7, 7},
	}
	p := make(Palette, 16)
	for i, c := range rgb {
		p[i] = RGB{Scale3(c[0]), Scale3(c[1]), Scale3(c[2])}
	}
	return p
}

// GRB332 is the fixed SCREEN 8 palette, byte layout GGGRRRBB.
func GRB332() Palette {
	p := make(Palette, 256)
	for i := range p {
		g := byte(i>>5) & 7
		r := byte(i>>2) & 7
		b := byte(i) & 3
		p[i] = RGB{Scale3(r), Scale3(g), uint8(int(b) * 255 / 3)}
	}
	return p
}

// BBC holds the eight physical colours of the video ULA.
func BBC() Palette {
	return hex(0x000000, 0xff0000, 0x00ff00, 0xffff00, 0x0000ff, 0xff00ff, 0x00ffff, 0xffffff)
}

// CGA is the 16 colour RGBI palette, also the EGA default.
func CGA() Palette {
	return hex(
		0x000000, 0x0000aa, 0x00aa00, 0x00aaaa,
		0xaa0000, 0xaa00aa, 0xaa5500, 0xaaaaaa,
		0x555555, 0x5555ff, 0x55ff55, 0x55ffff,
		0xff5555, 0xff55ff, 0xffff55, 0xffffff,
	)
}

// CGAFour returns the three foreground colours of CGA palette idx (0..7:
// palette, intensity and colour burst bits).
func CGAFour(idx int) Palette {
	sets := [8][3]int{
		{2, 4, 6}, {10, 12, 14}, {3, 5, 7}, {11, 13, 15},
		{3, 4, 7}, {11, 12, 15}, {3, 4, 7}, {11, 12, 15},
	}
	cga := CGA()
	set := sets[idx&7]
	return Palette{cga[set[0]], cga[set[1]], cga[set[2]]}
}

// Grey returns an n step ramp from black to white.
func Grey(n int) Palette {
	p := make(Palette, n)
	if n == 1 {
		return p
	}
	for i := range p {
		v := uint8(i * 255 / (n - 1))
		p[i] = RGB{v, v, v}
	}
	return p
}

// Atari8 generates the 256 GTIA colours (hue in the high nibble, luminance in
// the low nibble) from the NTSC YIQ model.
func Atari8() Palette {
	const (
		minY       = 0.0
		maxY       = 1.0
		saturation = 0.3
		phiBurst   = 180.0
		phiStep    = 24.0
		phiAdjust  = -57.28
	)
	clamp := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	p := make(Palette, 256)
	for c := range p {
		hue := c >> 4
		lum := c & 0x0f
		Y := minY + float64(lum)/15*(maxY-minY)
		var I, Q float64
		if hue != 0 {
			phi := (float64(hue-1)*-phiStep + phiBurst + phiAdjust) * math.Pi / 180
			I = saturation * math.Sin(phi)
			Q = saturation * math.Cos(phi)
		}
		p[c] = RGB{
			clamp(Y + 0.956*I + 0.619*Q),
			clamp(Y - 0.272*I - 0.647*Q),
			clamp(Y - 1.106*I + 1.703*Q),
		}
	}
	return p
}
