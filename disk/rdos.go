package disk

import (
	"bytes"
	"strings"
)

const RDOS_CATALOG_LENGTH = 0xB
const RDOS_ENTRY_LENGTH = 0x20
const RDOS_NAME_LENGTH = 0x18

var RDOS_SIGNATURE_32 = []byte{'R' | 0x80, 'D' | 0x80, 'O' | 0x80, 'S' | 0x80, ' ' | 0x80, '2' | 0x80}
var RDOS_SIGNATURE_33 = []byte{'R' | 0x80, 'D' | 0x80, 'O' | 0x80, 'S' | 0x80, ' ' | 0x80, '3' | 0x80}

type RDOSFormat int

const (
	RDOS_Unknown RDOSFormat = iota
	RDOS_3
	RDOS_32
	RDOS_33
)

func (f RDOSFormat) String() string {
	switch f {
	case RDOS_3:
		return "RDOS3"
	case RDOS_32:
		return "RDOS32"
	case RDOS_33:
		return "RDOS33"
	}
	return "Unknown"
}

// SectorMax is the number of sectors RDOS uses on each track.
func (f RDOSFormat) SectorMax() int {
	if f == RDOS_33 {
		return 16
	}
	return 13
}

func (f RDOSFormat) Layout() SectorOrder {
	switch f {
	case RDOS_3:
		return SectorOrderDOS33Alt
	case RDOS_33:
		return SectorOrderProDOS
	}
	return SectorOrderDOS33
}

func (f RDOSFormat) DiskFormat() DiskFormat {
	switch f {
	case RDOS_3:
		return GetDiskFormat(DF_RDOS_3)
	case RDOS_32:
		return GetDiskFormat(DF_RDOS_32)
	}
	return GetDiskFormat(DF_RDOS_33)
}

// IsRDOS looks for the signature at the start of track 1.
func IsRDOS(data []byte) RDOSFormat {
	if len(data) != STD_DISK_BYTES && len(data) != STD_DISK_BYTES_OLD {
		return RDOS_Unknown
	}
	sectorStride := (len(data) / STD_TRACKS_PER_DISK) / STD_BYTES_PER_SECTOR
	idbytes := data[sectorStride*STD_BYTES_PER_SECTOR : sectorStride*STD_BYTES_PER_SECTOR+6]
	switch {
	case bytes.Equal(idbytes, RDOS_SIGNATURE_32) && sectorStride == 13:
		return RDOS_32
	case bytes.Equal(idbytes, RDOS_SIGNATURE_32) && sectorStride == 16:
		return RDOS_3
	case bytes.Equal(idbytes, RDOS_SIGNATURE_33) && sectorStride == 16:
		return RDOS_33
	}
	return RDOS_Unknown
}

type RDOSFileDescriptor struct {
	data []byte
}

func (fd *RDOSFileDescriptor) IsDeleted() bool {
	return fd.data[24] == 0xa0 || fd.data[0] == 0x80
}

func (fd *RDOSFileDescriptor) IsUnused() bool {
	return fd.data[24] == 0x00
}

// TypeLetter is A, B or T.
func (fd *RDOSFileDescriptor) TypeLetter() string {
	switch fd.data[24] & 0x7f {
	case 'A':
		return "A"
	case 'B':
		return "B"
	case 'T':
		return "T"
	}
	return "?"
}

func (fd *RDOSFileDescriptor) Name() string {
	var b strings.Builder
	for i := 0; i < RDOS_NAME_LENGTH; i++ {
		ch := fd.data[i] & 0x7f
		if ch == 0 {
			break
		}
		b.WriteByte(ch)
	}
	return strings.TrimRight(b.String(), " ")
}

func (fd RDOSFileDescriptor) NumSectors() int {
	return int(fd.data[25])
}

func (fd RDOSFileDescriptor) LoadAddress() int {
	return int(fd.data[26]) + 256*int(fd.data[27])
}

func (fd RDOSFileDescriptor) Length() int {
	return int(fd.data[28]) + 256*int(fd.data[29])
}

func (fd RDOSFileDescriptor) StartSector() int {
	return int(fd.data[30]) + 256*int(fd.data[31])
}

// RDOSGetCatalog reads the catalog sectors of track 1.
func (dsk *DSKWrapper) RDOSGetCatalog() ([]*RDOSFileDescriptor, error) {
	d := make([]byte, 0, RDOS_CATALOG_LENGTH*STD_BYTES_PER_SECTOR)
	for s := 0; s < RDOS_CATALOG_LENGTH; s++ {
		chunk, err := dsk.ReadSector(1, s)
		if err != nil {
			return nil, err
		}
		d = append(d, chunk...)
	}
	var files []*RDOSFileDescriptor
	for p := 0; p+RDOS_ENTRY_LENGTH <= len(d); p += RDOS_ENTRY_LENGTH {
		entry := &RDOSFileDescriptor{data: d[p : p+RDOS_ENTRY_LENGTH]}
		if entry.IsUnused() {
			break
		}
		if !entry.IsDeleted() {
			files = append(files, entry)
		}
	}
	return files, nil
}

// RDOSReadFile reads the file's run of consecutive sectors.
func (dsk *DSKWrapper) RDOSReadFile(file *RDOSFileDescriptor, spt int) ([]byte, error) {
	start, length := file.StartSector(), file.NumSectors()
	if start+length > spt*STD_TRACKS_PER_DISK {
		return nil, corrupt("RDOS", -1, "file %q runs past the end of the disk", file.Name())
	}
	data := make([]byte, 0, file.Length())
	for block := start; block < start+length && len(data) < file.Length(); block++ {
		chunk, err := dsk.ReadSector(block/spt, block%spt)
		if err != nil {
			return data, err
		}
		data = append(data, chunk[:min(STD_BYTES_PER_SECTOR, file.Length()-len(data))]...)
	}
	return data, nil
}

type rdosReader struct{}

func (rdosReader) Name() string { return "SSI RDOS" }

func (r rdosReader) ReadCatalog(data []byte) (*Catalog, error) {
	version := IsRDOS(data)
	if version == RDOS_Unknown {
		return nil, mismatch(r.Name(), "no RDOS signature")
	}
	dsk := NewDSKWrapper(data, version.Layout())
	dsk.Format = version.DiskFormat()
	files, err := dsk.RDOSGetCatalog()
	if err != nil {
		return nil, err
	}
	cat := newCatalog(dsk.Format, version.String(), len(data))
	for _, f := range files {
		name := cleanName(f.Name())
		body, err := dsk.RDOSReadFile(f, version.SectorMax())
		if err != nil {
			cat.skip("%s: %v", name, err)
			continue
		}
		meta := FileMeta{Platform: PlatformApple2, DOSType: f.TypeLetter(), Locked: true}
		if meta.DOSType == "B" {
			meta.LoadAddr = f.LoadAddress()
			meta.HasLoad = true
		}
		cat.add(nil, &Entry{Name: name, Data: body, Meta: meta})
	}
	return cat, nil
}
