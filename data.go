package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/paleotronic/picm8/disk"
	"github.com/paleotronic/picm8/loggy"
	"github.com/paleotronic/picm8/picture"
)

var diskRegex = regexp.MustCompile("(?i)[.](po|do|dsk|d13|2mg|nib|hdv|d64|d71|d81|atr|xfd|adf|st|msa|img|ima|dmk)$")

// source is one file named on the command line or found by ingest. It is
// either a standalone picture or a disk image with a catalog.
type source struct {
	Path    string
	Data    []byte
	Catalog *disk.Catalog
}

// picturePart is one picture inside a source.
type picturePart struct {
	Entry string
	Name  string
	Data  []byte
	Hint  picture.Hint
	Tag   picture.FormatTag
}

func isPicture(name string, data []byte, meta disk.FileMeta) bool {
	return picture.Detect(data, picture.Hint{Filename: name, Meta: meta}) != picture.Unknown
}

func loadSource(filename string) (*source, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return newSource(filename, data), nil
}

// newSource tries data as a disk image first. A damaged disk image is
// logged and treated as a plain file.
func newSource(filename string, data []byte) *source {
	s := &source{Path: filename, Data: data}
	cat, err := disk.Open(data, filepath.Base(filename), isPicture)
	switch {
	case err == nil:
		s.Catalog = cat
	case errors.Is(err, disk.ErrFilesystemMismatch):
	default:
		loggy.Get(0).Errorf("%s: %v", filename, err)
	}
	return s
}

func (s *source) IsDisk() bool {
	return s.Catalog != nil
}

// Pictures lists every picture the source holds.
func (s *source) Pictures() []*picturePart {
	if s.Catalog == nil {
		p := s.standalone()
		if p.Tag == picture.Unknown {
			return nil
		}
		return []*picturePart{p}
	}
	var out []*picturePart
	s.Catalog.Walk(func(e *disk.Entry) {
		if e.IsImage {
			out = append(out, entryPart(e))
		}
	})
	return out
}

// Picture returns the picture named by entry. entry must be empty for a
// standalone file and must name a file for a disk image.
func (s *source) Picture(entry string) (*picturePart, error) {
	if s.Catalog == nil {
		if entry != "" {
			return nil, fmt.Errorf("%s is not a disk image", s.Path)
		}
		return s.standalone(), nil
	}
	if entry == "" {
		return nil, fmt.Errorf("%s is a %s disk image, name a file with --entry", s.Path, s.Catalog.DiskFormat)
	}
	e := s.Catalog.Find(entry)
	if e == nil {
		return nil, fmt.Errorf("%s: no such file %q", s.Path, entry)
	}
	if e.IsDirectory {
		return nil, fmt.Errorf("%s: %q is a directory", s.Path, entry)
	}
	return entryPart(e), nil
}

func (s *source) standalone() *picturePart {
	hint := picture.Hint{Filename: filepath.Base(s.Path)}
	return &picturePart{
		Name: hint.Filename,
		Data: s.Data,
		Hint: hint,
		Tag:  picture.Detect(s.Data, hint),
	}
}

func entryPart(e *disk.Entry) *picturePart {
	hint := picture.Hint{Filename: e.Name, Meta: e.Meta}
	return &picturePart{
		Entry: e.Path,
		Name:  e.Name,
		Data:  e.Data,
		Hint:  hint,
		Tag:   picture.Detect(e.Data, hint),
	}
}

// formatTag resolves a --format flag. An empty name means detect.
func formatTag(name string) (picture.FormatTag, error) {
	if name == "" {
		return picture.Unknown, nil
	}
	t, ok := picture.ParseFormatTag(name)
	if !ok {
		var names []string
		for _, t := range picture.Tags() {
			names = append(names, t.String())
		}
		return picture.Unknown, fmt.Errorf("unknown format %q, expected one of %s", name, strings.Join(names, ", "))
	}
	return t, nil
}
