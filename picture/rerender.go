package picture

import (
	"github.com/paleotronic/picm8/palette"
)

// ExtractPalette returns the palette data would be decoded with, without
// decoding any pixels.
func ExtractPalette(data []byte, tag FormatTag) (*palette.Info, error) {
	c, err := lookup(tag)
	if err != nil {
		return nil, err
	}
	pal, err := c.palette(data)
	if err != nil {
		return nil, wrap(tag, err)
	}
	return pal, nil
}

// Rerender decodes data as tag but takes its colours from pal. Indices that
// pal has no colour for render black. A nil pal falls back to Decode.
func Rerender(data []byte, tag FormatTag, pal *palette.Info) (*DecodedImage, error) {
	if pal == nil {
		return Decode(data, tag)
	}
	c, err := lookup(tag)
	if err != nil {
		return nil, err
	}
	f, err := c.index(data)
	if err != nil {
		return nil, wrap(tag, err)
	}
	return finish(data, tag, f, pal), nil
}
