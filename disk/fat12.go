package disk

import (
	"strings"

	"github.com/paleotronic/picm8/raw"
)

const (
	fatDirEntry     = 32
	fatAttrVolume   = 0x08
	fatAttrDir      = 0x10
	fatAttrLFN      = 0x0f
	fatAttrReadOnly = 0x01
	fat12MaxCluster = 4085
)

// BPB is the BIOS parameter block of a FAT boot sector.
type BPB struct {
	OEM               string
	BytesPerSector    int
	SectorsPerCluster int
	ReservedSectors   int
	FATs              int
	RootEntries       int
	TotalSectors      int
	Media             byte
	SectorsPerFAT     int
}

func (b *BPB) fatStart() int  { return b.ReservedSectors * b.BytesPerSector }
func (b *BPB) rootStart() int { return b.fatStart() + b.FATs*b.SectorsPerFAT*b.BytesPerSector }
func (b *BPB) dataStart() int { return b.rootStart() + b.RootEntries*fatDirEntry }
func (b *BPB) clusterSize() int {
	return b.SectorsPerCluster * b.BytesPerSector
}

func (b *BPB) clusters() int {
	return (b.TotalSectors*b.BytesPerSector - b.dataStart()) / b.clusterSize()
}

func parseBPB(data raw.Reader) (*BPB, error) {
	const fs = "FAT12"
	if len(data) < 512 {
		return nil, mismatch(fs, "image smaller than a boot sector")
	}
	b := &BPB{}
	b.OEM, _ = data.Str(3, 8)
	b.BytesPerSector, _ = data.U16LE(0x0b)
	spc, _ := data.U8(0x0d)
	b.SectorsPerCluster = int(spc)
	b.ReservedSectors, _ = data.U16LE(0x0e)
	fats, _ := data.U8(0x10)
	b.FATs = int(fats)
	b.RootEntries, _ = data.U16LE(0x11)
	b.TotalSectors, _ = data.U16LE(0x13)
	if b.TotalSectors == 0 {
		big, _ := data.U32LE(0x20)
		b.TotalSectors = int(big)
	}
	b.Media, _ = data.U8(0x15)
	b.SectorsPerFAT, _ = data.U16LE(0x16)

	switch {
	case b.BytesPerSector != 512 && b.BytesPerSector != 1024:
		return nil, mismatch(fs, "%d bytes per sector", b.BytesPerSector)
	case b.SectorsPerCluster == 0 || b.SectorsPerCluster&(b.SectorsPerCluster-1) != 0:
		return nil, mismatch(fs, "%d sectors per cluster", b.SectorsPerCluster)
	case b.ReservedSectors < 1 || b.FATs < 1 || b.FATs > 2:
		return nil, mismatch(fs, "%d reserved sectors, %d FATs", b.ReservedSectors, b.FATs)
	case b.RootEntries == 0 || b.RootEntries%(b.BytesPerSector/fatDirEntry) != 0:
		return nil, mismatch(fs, "%d root entries", b.RootEntries)
	case b.SectorsPerFAT < 1 || b.SectorsPerFAT > 12:
		return nil, mismatch(fs, "%d sectors per FAT", b.SectorsPerFAT)
	case b.Media < 0xf0:
		return nil, mismatch(fs, "media byte %#02x", b.Media)
	case b.TotalSectors*b.BytesPerSector <= b.dataStart():
		return nil, mismatch(fs, "%d sectors leave no data area", b.TotalSectors)
	case !data.Has(0, b.dataStart()):
		return nil, mismatch(fs, "image ends before the root directory")
	case b.clusters() >= fat12MaxCluster:
		return nil, mismatch(fs, "%d clusters is not FAT12", b.clusters())
	}
	return b, nil
}

// Platform tells MSX-DOS, PC and Atari ST disks apart. The BPB layout is
// identical so the boot sector OEM name and boot signature decide.
func (b *BPB) Platform(boot raw.Reader) DiskFormat {
	switch {
	case strings.Contains(strings.ToUpper(b.OEM), "MSX"):
		return GetDiskFormat(DF_FAT12_MSX)
	case boot.Match(510, "\x55\xaa") && (boot[0] == 0xeb || boot[0] == 0xe9):
		return GetDiskFormat(DF_FAT12_PC)
	}
	return GetDiskFormat(DF_FAT12_ATARIST)
}

type fatVolume struct {
	data raw.Reader
	bpb  *BPB
	cat  *Catalog
	meta FileMeta
}

func (v *fatVolume) next(cluster int) int {
	off := v.bpb.fatStart() + cluster*3/2
	w, err := v.data.U16LE(off)
	if err != nil {
		return -1
	}
	if cluster&1 == 1 {
		return w >> 4
	}
	return w & 0xfff
}

// chain reads a cluster chain. size < 0 reads the whole chain.
func (v *fatVolume) chain(start, size int) ([]byte, error) {
	var out []byte
	visited := map[int]bool{}
	limit := v.bpb.clusters() + 2
	for c := start; size < 0 || len(out) < size; {
		switch {
		case c >= 0xff8:
			if size < 0 {
				return out, nil
			}
			return out, &ReadError{Filesystem: "FAT12", Offset: -1, Reason: "cluster chain ends early", Err: ErrTruncated}
		case c < 2 || c >= limit:
			return out, corrupt("FAT12", -1, "bad cluster %d in chain", c)
		case visited[c]:
			return out, corrupt("FAT12", -1, "cluster chain loops at %d", c)
		}
		visited[c] = true
		chunk, err := v.data.Slice(v.bpb.dataStart()+(c-2)*v.bpb.clusterSize(), v.bpb.clusterSize())
		if err != nil {
			return out, err
		}
		out = append(out, chunk...)
		c = v.next(c)
	}
	return out[:size], nil
}

func fatName(e []byte) string {
	name := strings.TrimRight(string(e[0:8]), " ")
	ext := strings.TrimRight(string(e[8:11]), " ")
	if name != "" && name[0] == 0x05 {
		name = "\xe5" + name[1:]
	}
	if ext != "" {
		name += "." + ext
	}
	return cleanName(name)
}

func (v *fatVolume) readDir(entries []byte, dir *Entry, depth int, visited map[int]bool) {
	for p := 0; p+fatDirEntry <= len(entries); p += fatDirEntry {
		e := entries[p : p+fatDirEntry]
		if e[0] == 0x00 {
			return
		}
		attr := e[0x0b]
		if e[0] == 0xe5 || e[0] == '.' || attr == fatAttrLFN {
			continue
		}
		if attr&fatAttrVolume != 0 {
			if dir == v.cat.Root {
				v.cat.DiskName = strings.TrimRight(string(e[0:11]), " ")
			}
			continue
		}
		name := fatName(e)
		start := int(e[0x1a]) | int(e[0x1b])<<8
		meta := v.meta
		meta.Locked = attr&fatAttrReadOnly != 0
		if attr&fatAttrDir != 0 {
			if depth > 16 || visited[start] {
				v.cat.skip("%s/%s: directory loop", dir.Path, name)
				continue
			}
			visited[start] = true
			sub, err := v.chain(start, -1)
			if err != nil && len(sub) == 0 {
				v.cat.skip("%s/%s: %v", dir.Path, name, err)
				continue
			}
			child := v.cat.add(dir, &Entry{Name: name, IsDirectory: true, Meta: meta})
			v.readDir(sub, child, depth+1, visited)
			continue
		}
		size := int(e[0x1c]) | int(e[0x1d])<<8 | int(e[0x1e])<<16 | int(e[0x1f])<<24
		var body []byte
		if size > 0 {
			if size > len(v.data) {
				v.cat.skip("%s/%s: size %d larger than the disk", dir.Path, name, size)
				continue
			}
			var err error
			if body, err = v.chain(start, size); err != nil {
				v.cat.skip("%s/%s: %v", dir.Path, name, err)
				continue
			}
		}
		v.cat.add(dir, &Entry{Name: name, Data: body, Meta: meta})
	}
}

type fat12Reader struct{}

func (fat12Reader) Name() string { return "FAT12" }

func (r fat12Reader) ReadCatalog(data []byte) (*Catalog, error) {
	bpb, err := parseBPB(data)
	if err != nil {
		return nil, err
	}
	format := bpb.Platform(data)
	v := &fatVolume{
		data: data,
		bpb:  bpb,
		cat:  newCatalog(format, bpb.OEM, len(data)),
		meta: FileMeta{Platform: format.Platform()},
	}
	root := data[bpb.rootStart():bpb.dataStart()]
	v.readDir(root, v.cat.Root, 0, map[int]bool{})
	return v.cat, nil
}
