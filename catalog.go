package main

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/paleotronic/picm8/disk"
	"github.com/paleotronic/picm8/loggy"
	"github.com/paleotronic/picm8/picture"
	"github.com/urfave/cli/v2"
)

var catalogCommand = &cli.Command{
	Name:      "catalog",
	Usage:     "list the files on a disk image",
	ArgsUsage: "DISK [PATTERN]",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "images",
			Usage: "list pictures only",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 || c.NArg() > 2 {
			cli.ShowCommandHelpAndExit(c, "catalog", 1)
		}
		s, err := diskArg(c.Args().First())
		if err != nil {
			return cli.Exit(err, 1)
		}
		printCatalog(os.Stdout, s.Catalog, c.Args().Get(1), c.Bool("images"))
		return nil
	},
}

var extractCommand = &cli.Command{
	Name:      "extract",
	Usage:     "copy the files on a disk image to a folder",
	ArgsUsage: "DISK",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Value:   ".",
			Usage:   "destination folder",
		},
		&cli.BoolFlag{
			Name:  "images",
			Usage: "extract pictures only",
		},
		&cli.BoolFlag{
			Name:  "png",
			Usage: "write pictures as PNG instead of their original bytes",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			cli.ShowCommandHelpAndExit(c, "extract", 1)
		}
		s, err := diskArg(c.Args().First())
		if err != nil {
			return cli.Exit(err, 1)
		}
		n, err := extractCatalog(s.Catalog, c.String("dir"), c.Bool("images"), c.Bool("png"))
		if err != nil {
			return cli.Exit(err, 1)
		}
		fmt.Printf("%d files extracted to %s\n", n, c.String("dir"))
		return nil
	},
}

func diskArg(filename string) (*source, error) {
	s, err := loadSource(filename)
	if err != nil {
		return nil, err
	}
	if !s.IsDisk() {
		return nil, fmt.Errorf("%s: not a recognised disk image", filename)
	}
	return s, nil
}

// entryKind describes the type fields a filesystem keeps for a file.
func entryKind(m disk.FileMeta) string {
	var parts []string
	if m.DOSType != "" {
		parts = append(parts, m.DOSType)
	}
	if m.ProDOSType != 0 {
		parts = append(parts, fmt.Sprintf("$%.2X/$%.4X", m.ProDOSType, m.ProDOSAux))
	}
	if m.HasLoad {
		parts = append(parts, fmt.Sprintf("(A$%.4X)", m.LoadAddr))
	}
	return strings.Join(parts, " ")
}

func matchEntry(pattern string, e *disk.Entry) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	p := strings.ToUpper(pattern)
	for _, name := range []string{e.Name, e.Path} {
		if ok, _ := path.Match(p, strings.ToUpper(name)); ok {
			return true
		}
	}
	return false
}

func printCatalog(w io.Writer, cat *disk.Catalog, pattern string, imagesOnly bool) {
	name := cat.DiskName
	if name == "" {
		name = "no-name"
	}
	fmt.Fprintf(w, "Volume Name is %s (%s, %s)\n\n", name, cat.DiskFormat, cat.DiskFormat.Platform())

	fmt.Fprintf(w, "%-33s  %7s  %2s  %-18s  %s\n", "NAME", "BYTES", "RO", "KIND", "PICTURE")
	shown := 0
	cat.Walk(func(e *disk.Entry) {
		if e.IsDirectory || (imagesOnly && !e.IsImage) || !matchEntry(pattern, e) {
			return
		}
		locked := " "
		if e.Meta.Locked {
			locked = "Y"
		}
		pic := ""
		if e.IsImage {
			pic = picture.Detect(e.Data, picture.Hint{Filename: e.Name, Meta: e.Meta}).String()
		}
		fmt.Fprintf(w, "%-33s  %7d  %2s  %-18s  %s\n", e.Path, e.Size, locked, entryKind(e.Meta), pic)
		shown++
	})

	fmt.Fprintf(w, "\nFILES: %-8d PICTURES: %-8d SHOWN: %-8d\n", cat.TotalFiles, cat.ImageFiles, shown)
	for _, s := range cat.Skipped {
		fmt.Fprintf(w, "SKIPPED: %s\n", s)
	}
}

// extractCatalog writes the catalog's files below dir, keeping the disk's
// folder layout, and returns how many were written.
func extractCatalog(cat *disk.Catalog, dir string, imagesOnly, asPNG bool) (int, error) {
	l := loggy.Get(0)
	count := 0
	var firstErr error
	cat.Walk(func(e *disk.Entry) {
		if firstErr != nil || e.IsDirectory || (imagesOnly && !e.IsImage) {
			return
		}
		target := filepath.Join(dir, filepath.FromSlash(e.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			firstErr = err
			return
		}
		if asPNG && e.IsImage {
			img, err := picture.DecodeAuto(e.Data, picture.Hint{Filename: e.Name, Meta: e.Meta})
			if err == nil {
				target = strings.TrimSuffix(target, filepath.Ext(target)) + ".png"
				if err := writePNG(img, 1, target); err != nil {
					firstErr = err
					return
				}
				l.Logf("extracted %s as %s", e.Path, target)
				count++
				return
			}
			l.Errorf("%s: %v, writing original bytes", e.Path, err)
		}
		if err := os.WriteFile(target, e.Data, 0644); err != nil {
			firstErr = err
			return
		}
		l.Logf("extracted %s", e.Path)
		count++
	})
	return count, firstErr
}
