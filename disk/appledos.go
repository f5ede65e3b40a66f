package disk

import (
	"bytes"
	"fmt"
	"strings"
)

type FileType byte

const (
	FileTypeTXT FileType = 0x00
	FileTypeINT FileType = 0x01
	FileTypeAPP FileType = 0x02
	FileTypeBIN FileType = 0x04
	FileTypeS   FileType = 0x08
	FileTypeREL FileType = 0x10
	FileTypeA   FileType = 0x20
	FileTypeB   FileType = 0x40
)

// AppleDOSTypeMap holds the catalog letter and description of each type.
var AppleDOSTypeMap = map[FileType][2]string{
	0x00: {"T", "ASCII Text"},
	0x01: {"I", "Integer Basic Program"},
	0x02: {"A", "Applesoft Basic Program"},
	0x04: {"B", "Binary File"},
	0x08: {"S", "S File Type"},
	0x10: {"R", "Relocatable Object Code"},
	0x20: {"a", "A File Type"},
	0x40: {"b", "B File Type"},
}

func (ft FileType) String() string {
	info, ok := AppleDOSTypeMap[ft]
	if ok {
		return info[1]
	}
	return "Unknown"
}

// Letter is the type as the CATALOG command shows it.
func (ft FileType) Letter() string {
	info, ok := AppleDOSTypeMap[ft]
	if ok {
		return info[0]
	}
	return "?"
}

const appleDOSEntrySize = 35

type FileDescriptor struct {
	Data              []byte
	trackid, sectorid int
}

func (fd *FileDescriptor) GetTrackSectorListStart() (int, int) {
	return int(fd.Data[0]), int(fd.Data[1])
}

func (fd *FileDescriptor) IsLocked() bool {
	return fd.Data[2]&0x80 != 0
}

func (fd *FileDescriptor) Type() FileType {
	return FileType(fd.Data[2] & 0x7f)
}

func (fd *FileDescriptor) Name() string {
	return strings.TrimRight(appleString(fd.Data[0x03:0x21]), " ")
}

func (fd *FileDescriptor) TotalSectors() int {
	return int(fd.Data[0x21]) + 256*int(fd.Data[0x22])
}

type VTOC struct {
	Data []byte
}

func (fd *VTOC) GetCatalogStart() (int, int) {
	return int(fd.Data[1]), int(fd.Data[2])
}

func (fd *VTOC) GetDOSVersion() byte {
	return fd.Data[3]
}

func (fd *VTOC) GetVolumeID() byte {
	return fd.Data[6]
}

func (fd *VTOC) GetMaxTSPairsPerSector() int {
	return int(fd.Data[0x27])
}

func (fd *VTOC) GetTracks() int {
	return int(fd.Data[0x34])
}

func (fd *VTOC) GetSectors() int {
	return int(fd.Data[0x35])
}

func (d *DSKWrapper) AppleDOSGetVTOC() (*VTOC, error) {
	data, err := d.ReadSector(17, 0)
	if err != nil {
		return nil, err
	}
	return &VTOC{Data: data}, nil
}

// IsAppleDOS checks the VTOC geometry against the image.
func (d *DSKWrapper) IsAppleDOS() bool {
	vtoc, err := d.AppleDOSGetVTOC()
	if err != nil {
		return false
	}
	ct, cs := vtoc.GetCatalogStart()
	return vtoc.GetTracks() == d.Tracks() &&
		vtoc.GetSectors() == d.SectorsPerTrack &&
		ct > 0 && ct < d.Tracks() && cs < d.SectorsPerTrack
}

// AppleDOSGetCatalog follows the catalog sector chain. Entries that are
// deleted or never used are left out.
func (d *DSKWrapper) AppleDOSGetCatalog() (*VTOC, []FileDescriptor, error) {
	vtoc, err := d.AppleDOSGetVTOC()
	if err != nil {
		return nil, nil, err
	}
	var files []FileDescriptor
	visited := map[[2]int]bool{}
	ct, cs := vtoc.GetCatalogStart()
	for ct != 0 && !visited[[2]int{ct, cs}] {
		visited[[2]int{ct, cs}] = true
		data, err := d.ReadSector(ct, cs)
		if err != nil {
			return vtoc, files, err
		}
		for slot := 0; slot < 7; slot++ {
			pos := 0x0b + appleDOSEntrySize*slot
			fd := FileDescriptor{Data: data[pos : pos+appleDOSEntrySize], trackid: ct, sectorid: cs}
			if fd.Data[0] == 0x00 || fd.Data[0] == 0xff {
				continue
			}
			files = append(files, fd)
		}
		ct, cs = int(data[1]), int(data[2])
	}
	return vtoc, files, nil
}

// AppleDOSReadFileSectors concatenates the sectors named by the file's
// track/sector lists.
func (d *DSKWrapper) AppleDOSReadFileSectors(fd FileDescriptor) ([]byte, error) {
	var out []byte
	visited := map[[2]int]bool{}
	t, s := fd.GetTrackSectorListStart()
	for t != 0 && !visited[[2]int{t, s}] {
		visited[[2]int{t, s}] = true
		list, err := d.ReadSector(t, s)
		if err != nil {
			return out, err
		}
		for p := 0x0c; p+1 < len(list); p += 2 {
			dt, ds := int(list[p]), int(list[p+1])
			if dt == 0 && ds == 0 {
				return out, nil
			}
			chunk, err := d.ReadSector(dt, ds)
			if err != nil {
				return out, err
			}
			out = append(out, chunk...)
		}
		t, s = int(list[1]), int(list[2])
	}
	return out, nil
}

// AppleDOSReadFile returns the file contents without the DOS length and
// address header, plus the load address for binary files.
func (d *DSKWrapper) AppleDOSReadFile(fd FileDescriptor) (int, []byte, error) {
	data, err := d.AppleDOSReadFileSectors(fd)
	if err != nil {
		return 0, nil, err
	}
	lenAt := func(off int) []byte {
		if len(data) < off+2 {
			return nil
		}
		l := int(data[off]) + 256*int(data[off+1])
		if l > len(data)-off-2 {
			l = len(data) - off - 2
		}
		return data[off+2 : off+2+l]
	}
	switch fd.Type() {
	case FileTypeTXT:
		if i := bytes.IndexByte(data, 0); i >= 0 {
			data = data[:i]
		}
		return 0, data, nil
	case FileTypeBIN:
		if len(data) < 4 {
			return 0, nil, corrupt("Apple DOS", -1, "binary file %q has no header", fd.Name())
		}
		addr := int(data[0]) + 256*int(data[1])
		return addr, lenAt(2), nil
	case FileTypeINT, FileTypeAPP:
		return 0, lenAt(0), nil
	}
	return 0, data, nil
}

type appleDOSReader struct{}

func (appleDOSReader) Name() string { return "Apple DOS 3.3" }

func (r appleDOSReader) ReadCatalog(data []byte) (*Catalog, error) {
	for _, dsk := range appleImages(data, SectorOrderDOS33, SectorOrderProDOSLinear, SectorOrderDOS33Alt) {
		if dsk.SectorsPerTrack == STD_SECTORS_PER_TRACK && len(dsk.Data) != STD_DISK_BYTES {
			continue
		}
		if !dsk.IsAppleDOS() {
			continue
		}
		return r.read(dsk)
	}
	return nil, mismatch(r.Name(), "no VTOC at track 17 sector 0")
}

func (r appleDOSReader) read(dsk *DSKWrapper) (*Catalog, error) {
	dsk.Format = GetDiskFormat(DF_DOS_SECTORS_16)
	if dsk.SectorsPerTrack == STD_SECTORS_PER_TRACK_OLD {
		dsk.Format = GetDiskFormat(DF_DOS_SECTORS_13)
	}
	vtoc, files, err := dsk.AppleDOSGetCatalog()
	if err != nil && len(files) == 0 {
		return nil, err
	}
	cat := newCatalog(dsk.Format, fmt.Sprintf("DISK VOLUME %d", vtoc.GetVolumeID()), len(dsk.Data))
	if err != nil {
		cat.skip("catalog chain: %v", err)
	}
	for _, fd := range files {
		name := cleanName(fd.Name())
		if _, ok := AppleDOSTypeMap[fd.Type()]; !ok {
			cat.skip("%s: unknown file type %#02x", name, byte(fd.Type()))
			continue
		}
		addr, body, err := dsk.AppleDOSReadFile(fd)
		if err != nil {
			cat.skip("%s: %v", name, err)
			continue
		}
		meta := FileMeta{
			Platform: PlatformApple2,
			DOSType:  fd.Type().Letter(),
			Locked:   fd.IsLocked(),
		}
		if fd.Type() == FileTypeBIN {
			meta.LoadAddr = addr
			meta.HasLoad = true
		}
		cat.add(nil, &Entry{Name: name, Data: body, Meta: meta})
	}
	return cat, nil
}
