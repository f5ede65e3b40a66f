package disk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paleotronic/picm8/raw"
)

const (
	dskHeaderSize     = 256
	dskMagicStandard  = "MV - CPC"
	dskMagicExtended  = "EXTENDED CPC DSK File"
	dskTrackInfoMagic = "Track-Info"

	cpmBlockSize   = 1024
	cpmDirEntries  = 64
	cpmEntrySize   = 32
	cpmRecordSize  = 128
	cpmDeletedUser = 0xe5
)

type dskSector struct {
	id   byte
	data []byte
}

// dskImage is a CPC disk flattened into its sectors: tracks in file order,
// sectors within a track by ID.
type dskImage struct {
	tracks [][]dskSector
}

func parseDSK(data raw.Reader) (*dskImage, error) {
	const fs = "CPC DSK"
	extended := data.Match(0, dskMagicExtended)
	if !extended && !data.Match(0, dskMagicStandard) {
		return nil, mismatch(fs, "no DSK signature")
	}
	if len(data) < dskHeaderSize {
		return nil, &ReadError{Filesystem: fs, Offset: 0, Reason: "disk header", Err: ErrTruncated}
	}
	tracks, sides := int(data[0x30]), int(data[0x31])
	if sides < 1 || sides > 2 {
		return nil, corrupt(fs, 0x31, "%d sides", sides)
	}
	stdSize, _ := data.U16LE(0x32)

	img := &dskImage{}
	pos := dskHeaderSize
	for i := 0; i < tracks*sides; i++ {
		size := stdSize
		if extended {
			if 0x34+i >= dskHeaderSize {
				break
			}
			size = int(data[0x34+i]) * 256
		}
		if size == 0 {
			continue
		}
		if !data.Has(pos, dskHeaderSize) {
			break
		}
		if !data.Match(pos, dskTrackInfoMagic) {
			return nil, corrupt(fs, pos, "track %d has no Track-Info block", i)
		}
		img.tracks = append(img.tracks, readDSKTrack(data, pos, extended))
		pos += size
	}
	if len(img.tracks) == 0 {
		return nil, corrupt(fs, dskHeaderSize, "no formatted tracks")
	}
	return img, nil
}

func readDSKTrack(data raw.Reader, pos int, extended bool) []dskSector {
	count := int(data[pos+0x15])
	if count > 29 {
		count = 29
	}
	var out []dskSector
	off := pos + dskHeaderSize
	for s := 0; s < count; s++ {
		info := pos + 0x18 + s*8
		size := 128 << uint(data[info+3]&7)
		if extended {
			if n, _ := data.U16LE(info + 6); n > 0 {
				size = n
			}
		}
		body, err := data.Slice(off, size)
		if err != nil {
			break
		}
		out = append(out, dskSector{id: data[info+2], data: body})
		off += size
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].id < out[b].id })
	return out
}

// cpmGeometry reads the format from the first sector ID of the first track.
func (img *dskImage) cpmGeometry() (DiskFormat, int) {
	if len(img.tracks[0]) == 0 {
		return GetDiskFormat(DF_NONE), 0
	}
	switch img.tracks[0][0].id & 0xc0 {
	case 0xc0:
		return GetDiskFormat(DF_CPC_DATA), 0
	case 0x40:
		return GetDiskFormat(DF_CPC_SYSTEM), 2
	}
	return GetDiskFormat(DF_CPC_IBM), 1
}

// dataArea concatenates the sectors after the reserved tracks.
func (img *dskImage) dataArea(reserved int) []byte {
	var out []byte
	for i, t := range img.tracks {
		if i < reserved {
			continue
		}
		for _, s := range t {
			out = append(out, s.data...)
		}
	}
	return out
}

type cpmExtent struct {
	extent int
	ro     bool
	bytes  int
	blocks []int
}

type cpmFile struct {
	user    int
	name    string
	extents []cpmExtent
}

func cpmName(e []byte) string {
	clean := func(b []byte) string {
		out := make([]byte, len(b))
		for i, c := range b {
			out[i] = c & 0x7f
		}
		return strings.TrimRight(string(out), " ")
	}
	name, ext := clean(e[1:9]), clean(e[9:12])
	if ext != "" {
		name += "." + ext
	}
	return cleanName(name)
}

func readCPMDirectory(area raw.Reader, cat *Catalog) []*cpmFile {
	files := map[string]*cpmFile{}
	var order []string
	for i := 0; i < cpmDirEntries; i++ {
		e, err := area.Slice(i*cpmEntrySize, cpmEntrySize)
		if err != nil {
			break
		}
		user := int(e[0])
		if user == cpmDeletedUser || user > 15 {
			continue
		}
		name := cpmName(e)
		rc := int(e[15])
		if rc > 0x80 {
			cat.skip("%s: record count %d", name, rc)
			continue
		}
		x := cpmExtent{
			extent: int(e[12]&0x1f) + 32*int(e[14]),
			ro:     e[9]&0x80 != 0,
			bytes:  rc * cpmRecordSize,
		}
		for _, b := range e[16:32] {
			if b != 0 {
				x.blocks = append(x.blocks, int(b))
			}
		}
		key := fmt.Sprintf("%d:%s", user, name)
		f, ok := files[key]
		if !ok {
			f = &cpmFile{user: user, name: name}
			files[key] = f
			order = append(order, key)
		}
		f.extents = append(f.extents, x)
	}
	out := make([]*cpmFile, 0, len(order))
	for _, k := range order {
		f := files[k]
		sort.SliceStable(f.extents, func(a, b int) bool { return f.extents[a].extent < f.extents[b].extent })
		out = append(out, f)
	}
	return out
}

func (f *cpmFile) read(area raw.Reader) ([]byte, error) {
	var out []byte
	dirBlocks := cpmDirEntries * cpmEntrySize / cpmBlockSize
	for _, x := range f.extents {
		var chunk []byte
		for _, b := range x.blocks {
			if b < dirBlocks {
				return nil, corrupt("AMSDOS", -1, "%s uses directory block %d", f.name, b)
			}
			blk, err := area.Slice(b*cpmBlockSize, cpmBlockSize)
			if err != nil {
				return nil, &ReadError{Filesystem: "AMSDOS", Offset: b * cpmBlockSize, Reason: f.name + " block past the end of the disk", Err: ErrTruncated}
			}
			chunk = append(chunk, blk...)
		}
		out = append(out, chunk[:min(len(chunk), x.bytes)]...)
	}
	return out, nil
}

type cpcReader struct{}

func (cpcReader) Name() string { return "AMSDOS" }

func (r cpcReader) ReadCatalog(data []byte) (*Catalog, error) {
	img, err := parseDSK(data)
	if err != nil {
		return nil, err
	}
	format, reserved := img.cpmGeometry()
	if format.ID == DF_NONE {
		return nil, corrupt(r.Name(), dskHeaderSize, "first track has no sectors")
	}
	area := raw.Reader(img.dataArea(reserved))
	cat := newCatalog(format, format.String(), len(data))
	for _, f := range readCPMDirectory(area, cat) {
		body, err := f.read(area)
		if err != nil {
			cat.skip("%s: %v", f.name, err)
			continue
		}
		meta := FileMeta{Platform: PlatformCPC, User: f.user}
		if len(f.extents) > 0 {
			meta.Locked = f.extents[0].ro
		}
		if stripped, h := StripAMSDOSHeader(body); h != nil {
			body = stripped
			meta.LoadAddr = h.LoadAddr
			meta.HasLoad = true
		}
		cat.add(nil, &Entry{Name: f.name, Data: body, Meta: meta})
	}
	return cat, nil
}
