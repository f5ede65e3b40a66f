package disk

import (
	"strings"

	"github.com/paleotronic/picm8/raw"
)

const (
	cbmSectorSize = 256

	d64Size       = 174848
	d64ErrorsSize = 175531
	d64Size40     = 196608
	d71Size       = 349696
	d81Size       = 819200

	cbmEntrySize = 32
	cbmPadding   = 0xa0

	cbmTypeClosed = 0x80
	cbmTypeLocked = 0x40
)

var cbmTypeNames = [...]string{"DEL", "SEQ", "PRG", "USR", "REL"}

type cbmImage struct {
	data    raw.Reader
	format  DiskFormat
	tracks  int
	dirT    int
	dirS    int
	nameOff int
}

func d64SectorsOn(track int) int {
	switch {
	case track <= 17:
		return 21
	case track <= 24:
		return 19
	case track <= 30:
		return 18
	}
	return 17
}

func (c *cbmImage) sectorsOn(track int) int {
	switch c.format.ID {
	case DF_D81:
		return 40
	case DF_D71:
		if track > 35 {
			return d64SectorsOn(track - 35)
		}
	}
	return d64SectorsOn(track)
}

func (c *cbmImage) sector(t, s int) ([]byte, error) {
	if t < 1 || t > c.tracks || s < 0 || s >= c.sectorsOn(t) {
		return nil, corrupt("CBM DOS", -1, "track %d sector %d out of range", t, s)
	}
	n := s
	for i := 1; i < t; i++ {
		n += c.sectorsOn(i)
	}
	return c.data.Slice(n*cbmSectorSize, cbmSectorSize)
}

func openCBM(data raw.Reader) (*cbmImage, error) {
	switch len(data) {
	case d64Size, d64ErrorsSize:
		return &cbmImage{data: data, format: GetDiskFormat(DF_D64), tracks: 35, dirT: 18, nameOff: 0x90}, nil
	case d64Size40:
		return &cbmImage{data: data, format: GetDiskFormat(DF_D64), tracks: 40, dirT: 18, nameOff: 0x90}, nil
	case d71Size:
		return &cbmImage{data: data, format: GetDiskFormat(DF_D71), tracks: 70, dirT: 18, nameOff: 0x90}, nil
	case d81Size:
		return &cbmImage{data: data, format: GetDiskFormat(DF_D81), tracks: 80, dirT: 40, nameOff: 0x04}, nil
	}
	return nil, mismatch("CBM DOS", "%d bytes is not a D64, D71 or D81 size", len(data))
}

// petscii maps the printable part of PETSCII onto ASCII.
func petscii(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c == cbmPadding {
			break
		}
		switch {
		case c >= 0xc1 && c <= 0xda:
			c -= 0x80
		case c < 0x20 || c > 0x7e:
			c = '_'
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// chain follows the track/sector links from t/s. A zero track ends the
// chain and its sector byte is the index of the last used byte.
func (c *cbmImage) chain(t, s int) ([]byte, error) {
	var out []byte
	seen := map[[2]int]bool{}
	for t != 0 {
		if seen[[2]int{t, s}] {
			return out, corrupt("CBM DOS", -1, "sector chain loops at %d/%d", t, s)
		}
		seen[[2]int{t, s}] = true
		sec, err := c.sector(t, s)
		if err != nil {
			return out, err
		}
		t, s = int(sec[0]), int(sec[1])
		if t == 0 {
			if s < 1 {
				s = 1
			}
			out = append(out, sec[2:s+1]...)
			break
		}
		out = append(out, sec[2:]...)
	}
	return out, nil
}

type cbmReader struct{}

func (cbmReader) Name() string { return "CBM DOS" }

func (r cbmReader) ReadCatalog(data []byte) (*Catalog, error) {
	c, err := openCBM(data)
	if err != nil {
		return nil, err
	}
	header, err := c.sector(c.dirT, 0)
	if err != nil {
		return nil, mismatch(r.Name(), "no header sector")
	}
	first := [2]int{int(header[0]), int(header[1])}
	if c.format.ID == DF_D81 {
		first = [2]int{40, 3}
	}
	if first[0] != c.dirT {
		return nil, mismatch(r.Name(), "directory does not start on track %d", c.dirT)
	}
	cat := newCatalog(c.format, petscii(header[c.nameOff:c.nameOff+16]), len(data))

	seen := map[[2]int]bool{}
	for ts := first; ts[0] != 0; {
		if seen[ts] {
			cat.skip("directory chain loops at %d/%d", ts[0], ts[1])
			break
		}
		seen[ts] = true
		sec, err := c.sector(ts[0], ts[1])
		if err != nil {
			cat.skip("directory: %v", err)
			break
		}
		for i := 0; i < 8; i++ {
			e := sec[i*cbmEntrySize : (i+1)*cbmEntrySize]
			kind := e[2]
			if kind&cbmTypeClosed == 0 || int(kind&0x07) >= len(cbmTypeNames) {
				continue
			}
			typ := cbmTypeNames[kind&0x07]
			name := cleanName(petscii(e[5:21]))
			if typ == "DEL" {
				continue
			}
			body, err := c.chain(int(e[3]), int(e[4]))
			if err != nil {
				cat.skip("%s: %v", name, err)
				continue
			}
			meta := FileMeta{Platform: PlatformC64, DOSType: typ, Locked: kind&cbmTypeLocked != 0}
			if typ == "PRG" && len(body) >= 2 {
				meta.LoadAddr = int(body[0]) | int(body[1])<<8
				meta.HasLoad = true
			}
			cat.add(nil, &Entry{Name: name, Data: body, Meta: meta})
		}
		ts = [2]int{int(sec[0]), int(sec[1])}
	}
	return cat, nil
}
