package disk

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/paleotronic/picm8/loggy"
)

// Readers lists every filesystem in the order Identify tries them. The
// Apple readers come first since their geometry checks are the strictest
// on 140K images.
func Readers() []Reader {
	return []Reader{
		proDOSReader{},
		pascalReader{},
		rdosReader{},
		appleDOSReader{},
		cpcReader{},
		amigaReader{},
		atariDOSReader{},
		cbmReader{},
		fat12Reader{},
	}
}

// preferred maps file extensions to the reader tried before the others.
var preferred = map[string]string{
	".po":  "ProDOS",
	".2mg": "ProDOS",
	".hdv": "ProDOS",
	".do":  "Apple DOS 3.3",
	".adf": "AmigaDOS",
	".atr": "Atari DOS",
	".xfd": "Atari DOS",
	".d64": "CBM DOS",
	".d71": "CBM DOS",
	".d81": "CBM DOS",
	".st":  "FAT12",
	".msa": "FAT12",
}

func orderedReaders(filename string) []Reader {
	all := Readers()
	want, ok := preferred[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return all
	}
	out := make([]Reader, 0, len(all))
	for _, r := range all {
		if r.Name() == want {
			out = append(out, r)
		}
	}
	for _, r := range all {
		if r.Name() != want {
			out = append(out, r)
		}
	}
	return out
}

// Identify finds the filesystem of a disk image and reads its catalog.
// A reader that reports a mismatch hands over to the next one. The first
// error that is not a mismatch is kept in case no reader succeeds.
func Identify(data []byte, filename string) (Reader, *Catalog, error) {
	var firstErr error
	for _, r := range orderedReaders(filename) {
		cat, err := r.ReadCatalog(data)
		if err == nil {
			return r, cat, nil
		}
		if !errors.Is(err, ErrFilesystemMismatch) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}
	return nil, nil, &ReadError{Filesystem: "disk", Offset: -1, Reason: "no reader recognised the image", Err: ErrFilesystemMismatch}
}

// Classifier reports whether a catalog file is a picture.
type Classifier func(name string, data []byte, meta FileMeta) bool

// Open identifies and reads a disk image, then marks the picture files with
// classify. classify may be nil.
func Open(data []byte, filename string, classify Classifier) (*Catalog, error) {
	log := loggy.Get(0)
	r, cat, err := Identify(data, filename)
	if err != nil {
		log.Debugf("%s: %v", filename, err)
		return nil, err
	}
	log.Debugf("%s: %s (%s), %d files", filename, r.Name(), cat.DiskFormat, cat.TotalFiles)
	for _, s := range cat.Skipped {
		log.Debugf("%s: skipped %s", filename, s)
	}
	if classify != nil {
		cat.Walk(func(e *Entry) {
			if !e.IsDirectory && classify(e.Name, e.Data, e.Meta) {
				e.IsImage = true
				cat.ImageFiles++
			}
		})
	}
	return cat, nil
}
