// Package palette models the colour tables behind indexed retro images:
// fixed hardware palettes, a single palette for the whole frame, a small set
// of palettes selected per scanline, and one palette per scanline.
package palette

import (
	"errors"
	"fmt"
)

var ErrNotEditable = errors.New("palette is not editable")

// RGB is an 8-bit per channel colour. It satisfies color.Color.
type RGB struct {
	R, G, B uint8
}

func (c RGB) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R) | uint32(c.R)<<8
	g = uint32(c.G) | uint32(c.G)<<8
	b = uint32(c.B) | uint32(c.B)<<8
	return r, g, b, 0xffff
}

func (c RGB) String() string {
	return fmt.Sprintf("#%.2x%.2x%.2x", c.R, c.G, c.B)
}

type Palette []RGB

// At returns colour i, or black when i is out of range.
func (p Palette) At(i int) RGB {
	if i < 0 || i >= len(p) {
		return RGB{}
	}
	return p[i]
}

func (p Palette) Clone() Palette {
	if p == nil {
		return nil
	}
	out := make(Palette, len(p))
	copy(out, p)
	return out
}

type Kind int

const (
	Fixed Kind = iota
	Single
	MultiPalette
	PerScanline
)

func (k Kind) String() string {
	switch k {
	case Fixed:
		return "Fixed"
	case Single:
		return "Single"
	case MultiPalette:
		return "MultiPalette"
	case PerScanline:
		return "PerScanline"
	}
	return "Unknown"
}

// Info describes every palette an image uses and which one each scanline
// selects. Lines is nil for Fixed and Single.
type Info struct {
	Kind     Kind
	Palettes []Palette
	Lines    []int
	Editable bool
}

func NewFixed(p Palette) *Info {
	return &Info{Kind: Fixed, Palettes: []Palette{p}}
}

func NewSingle(p Palette) *Info {
	return &Info{Kind: Single, Palettes: []Palette{p}, Editable: true}
}

func NewMulti(pals []Palette, lines []int) *Info {
	return &Info{Kind: MultiPalette, Palettes: pals, Lines: lines, Editable: true}
}

// NewPerScanline gives scanline y palette y.
func NewPerScanline(pals []Palette) *Info {
	lines := make([]int, len(pals))
	for i := range lines {
		lines[i] = i
	}
	return &Info{Kind: PerScanline, Palettes: pals, Lines: lines, Editable: true}
}

// ForLine returns the palette selected by scanline y.
func (i *Info) ForLine(y int) Palette {
	if i == nil || len(i.Palettes) == 0 {
		return nil
	}
	idx := 0
	if i.Lines != nil && y >= 0 && y < len(i.Lines) {
		idx = i.Lines[y]
	}
	if idx < 0 || idx >= len(i.Palettes) {
		return nil
	}
	return i.Palettes[idx]
}

func (i *Info) Clone() *Info {
	if i == nil {
		return nil
	}
	out := &Info{Kind: i.Kind, Editable: i.Editable}
	out.Palettes = make([]Palette, len(i.Palettes))
	for n, p := range i.Palettes {
		out.Palettes[n] = p.Clone()
	}
	if i.Lines != nil {
		out.Lines = make([]int, len(i.Lines))
		copy(out.Lines, i.Lines)
	}
	return out
}

// WithColor returns a copy with colour c of palette p replaced.
func (i *Info) WithColor(p, c int, rgb RGB) (*Info, error) {
	if !i.Editable {
		return nil, ErrNotEditable
	}
	if p < 0 || p >= len(i.Palettes) {
		return nil, fmt.Errorf("palette %d out of range 0..%d", p, len(i.Palettes)-1)
	}
	if c < 0 || c >= len(i.Palettes[p]) {
		return nil, fmt.Errorf("colour %d out of range 0..%d", c, len(i.Palettes[p])-1)
	}
	out := i.Clone()
	out.Palettes[p][c] = rgb
	return out, nil
}

func (i *Info) Equal(o *Info) bool {
	if i == nil || o == nil {
		return i == o
	}
	if i.Kind != o.Kind || i.Editable != o.Editable || len(i.Palettes) != len(o.Palettes) || len(i.Lines) != len(o.Lines) {
		return false
	}
	for n, p := range i.Palettes {
		if len(p) != len(o.Palettes[n]) {
			return false
		}
		for c := range p {
			if p[c] != o.Palettes[n][c] {
				return false
			}
		}
	}
	for n := range i.Lines {
		if i.Lines[n] != o.Lines[n] {
			return false
		}
	}
	return true
}
