package picture

import (
	"github.com/paleotronic/picm8/palette"
)

// Document is a picture opened for palette editing. The original bytes never
// change; edits live in an override palette applied at render time.
type Document struct {
	data     []byte
	format   FormatTag
	original *palette.Info
	override *palette.Info
}

// Open detects the format of data and reads its palette.
func Open(data []byte, hint Hint) (*Document, error) {
	tag := Detect(data, hint)
	if tag == Unknown {
		return nil, &DecodeError{Format: Unknown, Offset: -1, Reason: hint.Filename, Err: ErrUnknownFormat}
	}
	return OpenAs(data, tag)
}

// OpenAs opens data as a known format.
func OpenAs(data []byte, tag FormatTag) (*Document, error) {
	pal, err := ExtractPalette(data, tag)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Document{data: buf, format: tag, original: pal}, nil
}

func (d *Document) Format() FormatTag {
	return d.format
}

// Palette returns a copy of the palette Render would use.
func (d *Document) Palette() *palette.Info {
	if d.override != nil {
		return d.override.Clone()
	}
	return d.original.Clone()
}

// SetColor changes colour c of palette p. Fixed palettes refuse with
// palette.ErrNotEditable and leave the document as it was.
func (d *Document) SetColor(p, c int, rgb palette.RGB) error {
	cur := d.override
	if cur == nil {
		cur = d.original
	}
	next, err := cur.WithColor(p, c, rgb)
	if err != nil {
		return err
	}
	d.override = next
	return nil
}

// Modified reports whether the palette differs from the file's own.
func (d *Document) Modified() bool {
	return d.override != nil && !d.override.Equal(d.original)
}

// Reset drops every edit.
func (d *Document) Reset() {
	d.override = nil
}

func (d *Document) Render() (*DecodedImage, error) {
	if d.override == nil {
		return Decode(d.data, d.format)
	}
	return Rerender(d.data, d.format, d.override)
}

// Original returns a copy of the bytes the document was opened with.
func (d *Document) Original() []byte {
	out := make([]byte, len(d.data))
	copy(out, d.data)
	return out
}
