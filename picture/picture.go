// Package picture decodes vintage computer graphics formats into RGBA images
// and exposes the palette behind each one so it can be edited and re-applied.
package picture

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/raw"
)

var (
	ErrUnknownFormat      = raw.ErrUnknownFormat
	ErrTruncated          = raw.ErrTruncated
	ErrInvalidHeader      = raw.ErrInvalidHeader
	ErrUnsupportedVariant = raw.ErrUnsupportedVariant
)

type FormatTag int

const (
	Unknown FormatTag = iota
	SHRStandard
	SHR3200
	HGR
	DHGR
	IFFIndexed
	IFFHAM6
	IFFHAM8
	DegasPI1
	DegasPI2
	DegasPI3
	C64Koala
	C64ArtStudio
	ZXSCR
	CPCMode0
	CPCMode1
	PCX
	BMP
	MacPaint
	MSXScreen1
	MSXScreen2
	MSXScreen5
	MSXScreen7
	MSXScreen8
	BBCMode0
	BBCMode1
	BBCMode2
	BBCMode4
	BBCMode5
	Atari8GR8
	Atari8GR9
	Atari8GR10
	Atari8GR11
	Atari8GR15
	Atari8MIC
	tagCount
)

var tagNames = [tagCount]string{
	Unknown:      "Unknown",
	SHRStandard:  "SHR-standard",
	SHR3200:      "SHR-3200",
	HGR:          "HGR",
	DHGR:         "DHGR",
	IFFIndexed:   "IFF-indexed",
	IFFHAM6:      "IFF-HAM6",
	IFFHAM8:      "IFF-HAM8",
	DegasPI1:     "Degas-PI1",
	DegasPI2:     "Degas-PI2",
	DegasPI3:     "Degas-PI3",
	C64Koala:     "C64-Koala",
	C64ArtStudio: "C64-ArtStudio",
	ZXSCR:        "ZX-SCR",
	CPCMode0:     "CPC-Mode0",
	CPCMode1:     "CPC-Mode1",
	PCX:          "PCX",
	BMP:          "BMP",
	MacPaint:     "MacPaint",
	MSXScreen1:   "MSX-Screen1",
	MSXScreen2:   "MSX-Screen2",
	MSXScreen5:   "MSX-Screen5",
	MSXScreen7:   "MSX-Screen7",
	MSXScreen8:   "MSX-Screen8",
	BBCMode0:     "BBC-Mode0",
	BBCMode1:     "BBC-Mode1",
	BBCMode2:     "BBC-Mode2",
	BBCMode4:     "BBC-Mode4",
	BBCMode5:     "BBC-Mode5",
	Atari8GR8:    "Atari8-GR8",
	Atari8GR9:    "Atari8-GR9",
	Atari8GR10:   "Atari8-GR10",
	Atari8GR11:   "Atari8-GR11",
	Atari8GR15:   "Atari8-GR15",
	Atari8MIC:    "Atari8-MIC",
}

func (t FormatTag) String() string {
	if t < 0 || t >= tagCount {
		return fmt.Sprintf("FormatTag(%d)", int(t))
	}
	return tagNames[t]
}

// ParseFormatTag is the inverse of String, ignoring case.
func ParseFormatTag(s string) (FormatTag, bool) {
	for t, name := range tagNames {
		if strings.EqualFold(name, s) {
			return FormatTag(t), true
		}
	}
	return Unknown, false
}

// Tags lists every decodable format.
func Tags() []FormatTag {
	out := make([]FormatTag, 0, tagCount-1)
	for t := Unknown + 1; t < tagCount; t++ {
		out = append(out, t)
	}
	return out
}

// DecodedImage is the result of a decode. Source keeps the original bytes so
// the file can be exported unchanged.
type DecodedImage struct {
	Pixels *image.RGBA
	Width  int
	Height int
	Format FormatTag
	Source []byte
}

// DecodeError wraps one of the taxonomy errors with the format and the byte
// offset where decoding gave up. Offset is -1 when not known.
type DecodeError struct {
	Format FormatTag
	Offset int
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Format.String())
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Reason != "" {
		b.WriteString(" (")
		b.WriteString(e.Reason)
		b.WriteString(")")
	}
	return b.String()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func invalid(off int, format string, args ...interface{}) error {
	return &DecodeError{Offset: off, Reason: fmt.Sprintf(format, args...), Err: ErrInvalidHeader}
}

func unsupported(off int, format string, args ...interface{}) error {
	return &DecodeError{Offset: off, Reason: fmt.Sprintf(format, args...), Err: ErrUnsupportedVariant}
}

func truncated(off int, format string, args ...interface{}) error {
	return &DecodeError{Offset: off, Reason: fmt.Sprintf(format, args...), Err: ErrTruncated}
}

// need fails unless data holds at least n bytes.
func need(data raw.Reader, n int, what string) error {
	if len(data) < n {
		return truncated(len(data), "%s needs %d bytes, have %d", what, n, len(data))
	}
	return nil
}

// wrap attaches the format to err, turning bare errors into a DecodeError.
func wrap(tag FormatTag, err error) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	if errors.As(err, &de) {
		out := *de
		out.Format = tag
		return &out
	}
	off := -1
	var be *raw.BoundsError
	if errors.As(err, &be) {
		off = be.Offset
	}
	cause := err
	for _, s := range []error{ErrTruncated, ErrInvalidHeader, ErrUnsupportedVariant, ErrUnknownFormat} {
		if errors.Is(err, s) {
			cause = s
			break
		}
	}
	reason := ""
	if cause != err {
		reason = err.Error()
	}
	return &DecodeError{Format: tag, Offset: off, Reason: reason, Err: cause}
}

// Decode renders data as the given format using the palette stored in it.
func Decode(data []byte, tag FormatTag) (*DecodedImage, error) {
	c, err := lookup(tag)
	if err != nil {
		return nil, err
	}
	f, err := c.index(data)
	if err != nil {
		return nil, wrap(tag, err)
	}
	pal, err := c.palette(data)
	if err != nil {
		return nil, wrap(tag, err)
	}
	return finish(data, tag, f, pal), nil
}

// DecodeAuto detects the format and decodes it.
func DecodeAuto(data []byte, hint Hint) (*DecodedImage, error) {
	tag := Detect(data, hint)
	if tag == Unknown {
		return nil, &DecodeError{Format: Unknown, Offset: -1, Reason: hint.Filename, Err: ErrUnknownFormat}
	}
	return Decode(data, tag)
}

func finish(data []byte, tag FormatTag, f *frame, pal *palette.Info) *DecodedImage {
	img := f.render(pal)
	return &DecodedImage{
		Pixels: img,
		Width:  img.Rect.Dx(),
		Height: img.Rect.Dy(),
		Format: tag,
		Source: data,
	}
}
