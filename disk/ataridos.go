package disk

import (
	"strings"

	"github.com/paleotronic/picm8/raw"
)

const (
	atrHeaderSize = 16
	atrMagic      = "\x96\x02"

	atariVTOCSector = 360
	atariDirFirst   = 361
	atariDirLast    = 368
	atariDirEntry   = 16
	atariMaxFiles   = 64

	atariFlagDeleted = 0x80
	atariFlagInUse   = 0x40
	atariFlagLocked  = 0x20

	atariSD = 720 * 128
	atariED = 1040 * 128
	atariDD = 720 * 256
)

// atariDisk addresses sectors by their 1-based number. Double density
// images keep the first three boot sectors at 128 bytes unless padded.
type atariDisk struct {
	data       raw.Reader
	sectorSize int
	padded     bool
	sectors    int
}

func (d *atariDisk) sector(n int) ([]byte, error) {
	if n < 1 || n > d.sectors {
		return nil, corrupt("Atari DOS", -1, "sector %d out of range", n)
	}
	switch {
	case d.sectorSize == 128:
		return d.data.Slice((n-1)*128, 128)
	case n <= 3 && !d.padded:
		return d.data.Slice((n-1)*128, 128)
	case n <= 3:
		return d.data.Slice((n-1)*256, 128)
	case d.padded:
		return d.data.Slice((n-1)*256, 256)
	}
	return d.data.Slice(3*128+(n-4)*256, 256)
}

func openAtariDisk(data raw.Reader) (*atariDisk, error) {
	const fs = "Atari DOS"
	if data.Match(0, atrMagic) {
		if len(data) < atrHeaderSize {
			return nil, &ReadError{Filesystem: fs, Offset: 0, Reason: "ATR header", Err: ErrTruncated}
		}
		size, _ := data.U16LE(4)
		if size != 128 && size != 256 {
			return nil, corrupt(fs, 4, "ATR sector size %d", size)
		}
		body := data[atrHeaderSize:]
		d := &atariDisk{data: body, sectorSize: size}
		if size == 128 {
			d.sectors = len(body) / 128
		} else {
			d.padded = len(body)%256 == 0
			if d.padded {
				d.sectors = len(body) / 256
			} else {
				d.sectors = 3 + (len(body)-3*128)/256
			}
		}
		return d, nil
	}
	switch len(data) {
	case atariSD, atariED:
		return &atariDisk{data: data, sectorSize: 128, sectors: len(data) / 128}, nil
	case atariDD:
		return &atariDisk{data: data, sectorSize: 256, padded: true, sectors: len(data) / 256}, nil
	}
	return nil, mismatch(fs, "not an ATR or XFD image")
}

type atariEntry struct {
	index  int
	flags  byte
	count  int
	start  int
	name   string
	locked bool
}

func atariName(e []byte) string {
	name := strings.TrimRight(string(e[5:13]), " ")
	ext := strings.TrimRight(string(e[13:16]), " ")
	if ext != "" {
		name += "." + ext
	}
	return cleanName(name)
}

func (d *atariDisk) directory() ([]atariEntry, error) {
	var out []atariEntry
	for s := atariDirFirst; s <= atariDirLast; s++ {
		sec, err := d.sector(s)
		if err != nil {
			return out, err
		}
		for i := 0; i < 8; i++ {
			e := sec[i*atariDirEntry : (i+1)*atariDirEntry]
			if e[0] == 0 {
				return out, nil
			}
			if e[0]&atariFlagDeleted != 0 || e[0]&atariFlagInUse == 0 {
				continue
			}
			out = append(out, atariEntry{
				index:  (s-atariDirFirst)*8 + i,
				flags:  e[0],
				count:  int(e[1]) | int(e[2])<<8,
				start:  int(e[3]) | int(e[4])<<8,
				name:   atariName(e),
				locked: e[0]&atariFlagLocked != 0,
			})
		}
	}
	return out, nil
}

// read follows the sector links. The last three bytes of each data sector
// hold the file number, the next sector and the byte count.
func (d *atariDisk) read(e atariEntry) ([]byte, error) {
	var out []byte
	seen := map[int]bool{}
	for n, steps := e.start, 0; n != 0; steps++ {
		if seen[n] || steps > d.sectors {
			return out, corrupt("Atari DOS", -1, "%s: sector chain loops at %d", e.name, n)
		}
		seen[n] = true
		sec, err := d.sector(n)
		if err != nil {
			return out, err
		}
		link := len(sec) - 3
		fileNo := int(sec[link] >> 2)
		if fileNo != e.index {
			return out, corrupt("Atari DOS", -1, "%s: sector %d belongs to file %d", e.name, n, fileNo)
		}
		used := int(sec[link+2])
		if d.sectorSize == 128 {
			used &= 0x7f
		}
		if used > link {
			return out, corrupt("Atari DOS", -1, "%s: sector %d claims %d bytes", e.name, n, used)
		}
		out = append(out, sec[:used]...)
		n = int(sec[link]&0x03)<<8 | int(sec[link+1])
	}
	return out, nil
}

type atariDOSReader struct{}

func (atariDOSReader) Name() string { return "Atari DOS" }

func (r atariDOSReader) ReadCatalog(data []byte) (*Catalog, error) {
	d, err := openAtariDisk(data)
	if err != nil {
		return nil, err
	}
	vtoc, err := d.sector(atariVTOCSector)
	if err != nil {
		return nil, mismatch(r.Name(), "no VTOC sector")
	}
	if vtoc[0] != 2 {
		return nil, mismatch(r.Name(), "VTOC DOS code %d", vtoc[0])
	}
	entries, err := d.directory()
	if err != nil && len(entries) == 0 {
		return nil, err
	}
	format := GetDiskFormat(DF_ATARI_DOS2)
	if d.sectorSize == 128 && d.sectors == 1040 {
		format = GetDiskFormat(DF_ATARI_DOS25)
	}
	cat := newCatalog(format, format.String(), len(data))
	if err != nil {
		cat.skip("directory: %v", err)
	}
	for _, e := range entries {
		body, err := d.read(e)
		if err != nil {
			cat.skip("%v", err)
			continue
		}
		cat.add(nil, &Entry{Name: e.name, Data: body, Meta: FileMeta{Platform: PlatformAtari8, Locked: e.locked}})
	}
	return cat, nil
}
