package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/picture"
	"github.com/urfave/cli/v2"
	"golang.org/x/image/draw"
)

var entryFlag = &cli.StringFlag{
	Name:    "entry",
	Aliases: []string{"e"},
	Usage:   "file inside a disk image",
}

var formatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"f"},
	Usage:   "decode as this format instead of detecting it",
}

var detectCommand = &cli.Command{
	Name:      "detect",
	Usage:     "identify pictures and disk images",
	ArgsUsage: "FILE...",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			cli.ShowCommandHelpAndExit(c, "detect", 1)
		}
		for _, filename := range c.Args().Slice() {
			s, err := loadSource(filename)
			if err != nil {
				return cli.Exit(err, 1)
			}
			describeSource(os.Stdout, s)
		}
		return nil
	},
}

var decodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "convert a picture to PNG",
	ArgsUsage: "FILE",
	Flags: []cli.Flag{
		entryFlag,
		formatFlag,
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "output PNG (default: picture name with .png)",
		},
		&cli.IntFlag{
			Name:  "scale",
			Value: 1,
			Usage: "integer zoom factor",
		},
		&cli.StringSliceFlag{
			Name:  "color",
			Usage: "palette edit P:C=#RRGGBB or C=#RRGGBB, may repeat",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			cli.ShowCommandHelpAndExit(c, "decode", 1)
		}
		part, err := pictureArg(c)
		if err != nil {
			return cli.Exit(err, 1)
		}
		doc, err := openPart(part, c.String("format"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		for _, edit := range c.StringSlice("color") {
			p, n, rgb, err := parseColorEdit(edit)
			if err != nil {
				return cli.Exit(err, 1)
			}
			if err := doc.SetColor(p, n, rgb); err != nil {
				return cli.Exit(fmt.Errorf("%s: %w", edit, err), 1)
			}
		}
		img, err := doc.Render()
		if err != nil {
			return cli.Exit(err, 1)
		}
		out := c.String("out")
		if out == "" {
			out = pngName(part.Name)
		}
		if err := writePNG(img, c.Int("scale"), out); err != nil {
			return cli.Exit(err, 1)
		}
		fmt.Printf("%s: %s %dx%d -> %s\n", part.Name, img.Format, img.Width, img.Height, out)
		return nil
	},
}

var paletteCommand = &cli.Command{
	Name:      "palette",
	Usage:     "show the palette of a picture",
	ArgsUsage: "FILE",
	Flags:     []cli.Flag{entryFlag, formatFlag},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			cli.ShowCommandHelpAndExit(c, "palette", 1)
		}
		part, err := pictureArg(c)
		if err != nil {
			return cli.Exit(err, 1)
		}
		doc, err := openPart(part, c.String("format"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		fmt.Printf("%s: %s\n", part.Name, doc.Format())
		printPalette(os.Stdout, doc.Palette())
		return nil
	},
}

func pictureArg(c *cli.Context) (*picturePart, error) {
	s, err := loadSource(c.Args().First())
	if err != nil {
		return nil, err
	}
	return s.Picture(c.String("entry"))
}

// openPart opens part for rendering, as the named format when one is given.
func openPart(part *picturePart, format string) (*picture.Document, error) {
	tag, err := formatTag(format)
	if err != nil {
		return nil, err
	}
	if tag == picture.Unknown {
		return picture.Open(part.Data, part.Hint)
	}
	return picture.OpenAs(part.Data, tag)
}

func describeSource(w io.Writer, s *source) {
	if !s.IsDisk() {
		p := s.standalone()
		if p.Tag == picture.Unknown {
			fmt.Fprintf(w, "%s: not a recognised picture or disk image\n", s.Path)
			return
		}
		fmt.Fprintf(w, "%s: %s picture\n", s.Path, p.Tag)
		return
	}
	cat := s.Catalog
	name := cat.DiskName
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(w, "%s: %s disk %s, %d files, %d pictures\n", s.Path, cat.DiskFormat, name, cat.TotalFiles, cat.ImageFiles)
	for _, p := range s.Pictures() {
		fmt.Fprintf(w, "  %-32s %s\n", p.Entry, p.Tag)
	}
}

func pngName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, base)
	if base == "" {
		base = "picture"
	}
	return base + ".png"
}

func writePNG(img *picture.DecodedImage, scale int, filename string) error {
	var m image.Image = img.Pixels
	if scale > 1 {
		dst := image.NewRGBA(image.Rect(0, 0, img.Width*scale, img.Height*scale))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img.Pixels, img.Pixels.Bounds(), draw.Src, nil)
		m = dst
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printPalette(w io.Writer, info *palette.Info) {
	edit := "read only"
	if info.Editable {
		edit = "editable"
	}
	fmt.Fprintf(w, "%s palette, %d table(s), %s\n", info.Kind, len(info.Palettes), edit)
	for n, p := range info.Palettes {
		fmt.Fprintf(w, "%3d:", n)
		for i, c := range p {
			if i > 0 && i%16 == 0 {
				fmt.Fprintf(w, "\n    ")
			}
			fmt.Fprintf(w, " %s", c)
		}
		fmt.Fprintln(w)
	}
}

// parseColorEdit reads P:C=#RRGGBB, or C=#RRGGBB for palette 0.
func parseColorEdit(s string) (int, int, palette.RGB, error) {
	target, hex, ok := strings.Cut(s, "=")
	if !ok {
		return 0, 0, palette.RGB{}, fmt.Errorf("%q: expected P:C=#RRGGBB", s)
	}
	p, c := "0", target
	if a, b, ok := strings.Cut(target, ":"); ok {
		p, c = a, b
	}
	pn, err := strconv.Atoi(strings.TrimSpace(p))
	if err != nil {
		return 0, 0, palette.RGB{}, fmt.Errorf("%q: bad palette number", s)
	}
	cn, err := strconv.Atoi(strings.TrimSpace(c))
	if err != nil {
		return 0, 0, palette.RGB{}, fmt.Errorf("%q: bad colour number", s)
	}
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return 0, 0, palette.RGB{}, fmt.Errorf("%q: colour must be six hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, palette.RGB{}, fmt.Errorf("%q: colour must be six hex digits", s)
	}
	return pn, cn, palette.RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}
