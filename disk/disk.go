// Package disk reads the catalogs of vintage disk images and returns the
// files on them with whatever platform metadata the filesystem keeps.
package disk

import (
	"fmt"
	"path"
	"strings"

	"github.com/paleotronic/picm8/raw"
)

var (
	ErrUnknownFormat      = raw.ErrUnknownFormat
	ErrTruncated          = raw.ErrTruncated
	ErrInvalidHeader      = raw.ErrInvalidHeader
	ErrUnsupportedVariant = raw.ErrUnsupportedVariant
	ErrFilesystemMismatch = raw.ErrFilesystemMismatch
)

type Platform string

const (
	PlatformNone    Platform = ""
	PlatformApple2  Platform = "apple2"
	PlatformC64     Platform = "c64"
	PlatformCPC     Platform = "cpc"
	PlatformMSX     Platform = "msx"
	PlatformAtariST Platform = "atarist"
	PlatformAtari8  Platform = "atari8"
	PlatformAmiga   Platform = "amiga"
	PlatformPC      Platform = "pc"
)

// FileMeta is the type information a filesystem records for a file.
// Zero values mean the filesystem has no such field.
type FileMeta struct {
	Platform   Platform
	ProDOSType int
	ProDOSAux  int
	// DOSType is the Apple DOS 3.3 / RDOS type letter or the CBM file type.
	DOSType  string
	User     int
	LoadAddr int
	HasLoad  bool
	Locked   bool
}

type Entry struct {
	Name        string
	Path        string
	IsDirectory bool
	Size        int
	Data        []byte
	Meta        FileMeta
	Children    []*Entry
	IsImage     bool
}

// Catalog is the parsed directory tree of one disk image.
type Catalog struct {
	Root       *Entry
	DiskName   string
	DiskFormat DiskFormat
	TotalFiles int
	ImageFiles int
	DiskSize   int
	// Skipped lists entries dropped because they were damaged.
	Skipped []string
}

func newCatalog(format DiskFormat, name string, size int) *Catalog {
	return &Catalog{
		Root:       &Entry{Name: "/", IsDirectory: true},
		DiskName:   name,
		DiskFormat: format,
		DiskSize:   size,
	}
}

// add attaches e under dir and fills in its path.
func (c *Catalog) add(dir *Entry, e *Entry) *Entry {
	if dir == nil {
		dir = c.Root
	}
	e.Name = uniqueName(dir, e.Name)
	e.Path = strings.TrimPrefix(path.Join(dir.Path, e.Name), "/")
	if !e.IsDirectory {
		e.Size = len(e.Data)
		c.TotalFiles++
	}
	dir.Children = append(dir.Children, e)
	return e
}

func uniqueName(dir *Entry, name string) string {
	taken := func(n string) bool {
		for _, ch := range dir.Children {
			if strings.EqualFold(ch.Name, n) {
				return true
			}
		}
		return false
	}
	out := name
	for i := 2; taken(out); i++ {
		out = fmt.Sprintf("%s~%d", name, i)
	}
	return out
}

func (c *Catalog) skip(format string, args ...interface{}) {
	c.Skipped = append(c.Skipped, fmt.Sprintf(format, args...))
}

// Walk visits every entry below the root depth first.
func (c *Catalog) Walk(fn func(e *Entry)) {
	var visit func(e *Entry)
	visit = func(e *Entry) {
		for _, ch := range e.Children {
			fn(ch)
			if ch.IsDirectory {
				visit(ch)
			}
		}
	}
	visit(c.Root)
}

// Find returns the entry with the given path, matched case-insensitively.
func (c *Catalog) Find(p string) *Entry {
	p = strings.Trim(p, "/")
	var found *Entry
	c.Walk(func(e *Entry) {
		if found == nil && strings.EqualFold(e.Path, p) {
			found = e
		}
	})
	return found
}

type File struct {
	Name string
	Data []byte
	Meta FileMeta
}

// ReadAllFiles flattens a catalog into its files, named by path.
func ReadAllFiles(cat *Catalog) []File {
	var out []File
	cat.Walk(func(e *Entry) {
		if !e.IsDirectory {
			out = append(out, File{Name: e.Path, Data: e.Data, Meta: e.Meta})
		}
	})
	return out
}

// Reader parses one family of filesystems.
type Reader interface {
	Name() string
	// ReadCatalog returns ErrFilesystemMismatch when data is not this
	// filesystem.
	ReadCatalog(data []byte) (*Catalog, error)
}

// ReadError wraps one of the error sentinels with the filesystem and the
// byte offset involved. Offset is -1 when not known.
type ReadError struct {
	Filesystem string
	Offset     int
	Reason     string
	Err        error
}

func (e *ReadError) Error() string {
	s := e.Filesystem + ": " + e.Err.Error()
	if e.Offset >= 0 {
		s += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Reason != "" {
		s += " (" + e.Reason + ")"
	}
	return s
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

func mismatch(fs string, format string, args ...interface{}) error {
	return &ReadError{Filesystem: fs, Offset: -1, Reason: fmt.Sprintf(format, args...), Err: ErrFilesystemMismatch}
}

func corrupt(fs string, off int, format string, args ...interface{}) error {
	return &ReadError{Filesystem: fs, Offset: off, Reason: fmt.Sprintf(format, args...), Err: ErrInvalidHeader}
}

// cleanName makes a directory entry name safe to use as a path element.
func cleanName(s string) string {
	s = strings.TrimRight(s, " \x00")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		s = "_"
	}
	return s
}
