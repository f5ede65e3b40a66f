package disk

import (
	"strings"
)

type ProDOSStorageType byte

const (
	StorageType_Inactive      ProDOSStorageType = 0x0
	StorageType_Seedling      ProDOSStorageType = 0x1
	StorageType_Sapling       ProDOSStorageType = 0x2
	StorageType_Tree          ProDOSStorageType = 0x3
	StorageType_Extended      ProDOSStorageType = 0x5
	StorageType_SubDir_File   ProDOSStorageType = 0xd
	StorageType_SubDir_Header ProDOSStorageType = 0xe
	StorageType_Volume_Header ProDOSStorageType = 0xf
)

type ProDOSAccessMode byte

const (
	AccessType_Destroy  ProDOSAccessMode = 0x80
	AccessType_Rename   ProDOSAccessMode = 0x40
	AccessType_Writable ProDOSAccessMode = 0x02
)

type ProDOSFileType byte

const (
	FileType_PD_None      ProDOSFileType = 0x00
	FileType_PD_TXT       ProDOSFileType = 0x04
	FileType_PD_BIN       ProDOSFileType = 0x06
	FileType_PD_FOT       ProDOSFileType = 0x08
	FileType_PD_Directory ProDOSFileType = 0x0f
	FileType_PD_PNT       ProDOSFileType = 0xc0
	FileType_PD_PIC       ProDOSFileType = 0xc1
	FileType_PD_INT       ProDOSFileType = 0xfa
	FileType_PD_APP       ProDOSFileType = 0xfc
	FileType_PD_SYS       ProDOSFileType = 0xff
)

var ProDOSTypeMap = map[ProDOSFileType][2]string{
	0x00: {"UNK", "Unknown"},
	0x01: {"BAD", "Bad Block"},
	0x02: {"PCD", "Pascal Code"},
	0x03: {"PTX", "Pascal Text"},
	0x04: {"TXT", "ASCII Text"},
	0x05: {"PDA", "Pascal Data"},
	0x06: {"BIN", "Binary File"},
	0x08: {"FOT", "HiRes/Double HiRes Graphics"},
	0x0F: {"DIR", "ProDOS Directory"},
	0x19: {"ADB", "AppleWorks Database"},
	0x1A: {"AWP", "AppleWorks Word Processing"},
	0x1B: {"ASP", "AppleWorks Spreadsheet"},
	0x53: {"DRW", "Object Oriented Graphics"},
	0x5B: {"ANM", "Animation"},
	0xB3: {"S16", "Apple IIgs Application Program"},
	0xC0: {"PNT", "Apple IIgs Packed Super HiRes"},
	0xC1: {"PIC", "Apple IIgs Super HiRes"},
	0xC2: {"ANI", "PaintWorks Animation"},
	0xC3: {"PAL", "PaintWorks Palette"},
	0xE0: {"LBR", "Archive"},
	0xFA: {"INT", "Integer BASIC Program"},
	0xFC: {"BAS", "Applesoft BASIC Program"},
	0xFF: {"SYS", "ProDOS-8 System File"},
}

func (t ProDOSFileType) String() string {
	info, ok := ProDOSTypeMap[t]
	if ok {
		return info[1]
	}
	return "Unknown"
}

func (t ProDOSFileType) Ext() string {
	info, ok := ProDOSTypeMap[t]
	if ok {
		return info[0]
	}
	return "BIN"
}

// VDH is a volume or subdirectory header entry.
type VDH struct {
	Data []byte
}

func (fd *VDH) GetNameLength() int {
	return int(fd.Data[0] & 0xf)
}

func (fd *VDH) GetStorageType() ProDOSStorageType {
	return ProDOSStorageType(fd.Data[0] >> 4)
}

func (fd *VDH) GetVolumeName() string {
	return strings.Trim(appleString(fd.Data[1:1+fd.GetNameLength()]), " ")
}

func (fd *VDH) GetEntryLength() int {
	return int(fd.Data[0x1f])
}

func (fd *VDH) GetEntriesPerBlock() int {
	return int(fd.Data[0x20])
}

func (fd *VDH) GetFileCount() int {
	return int(fd.Data[0x21]) + 256*int(fd.Data[0x22])
}

func (fd *VDH) GetTotalBlocks() int {
	return int(fd.Data[0x25]) + 256*int(fd.Data[0x26])
}

type ProDOSFileDescriptor struct {
	Data []byte
}

func (fd *ProDOSFileDescriptor) GetNameLength() int {
	return int(fd.Data[0] & 0xf)
}

func (fd *ProDOSFileDescriptor) GetStorageType() ProDOSStorageType {
	return ProDOSStorageType(fd.Data[0] >> 4)
}

func (fd *ProDOSFileDescriptor) Name() string {
	return strings.Trim(appleString(fd.Data[1:1+fd.GetNameLength()]), " ")
}

func (fd *ProDOSFileDescriptor) Type() ProDOSFileType {
	return ProDOSFileType(fd.Data[16])
}

func (fd *ProDOSFileDescriptor) IndexBlock() int {
	return int(fd.Data[17]) + 256*int(fd.Data[18])
}

func (fd *ProDOSFileDescriptor) TotalBlocks() int {
	return int(fd.Data[19]) + 256*int(fd.Data[20])
}

func (fd *ProDOSFileDescriptor) Size() int {
	return int(fd.Data[21]) + 256*int(fd.Data[22]) + 65536*int(fd.Data[23])
}

func (fd *ProDOSFileDescriptor) AccessMode() ProDOSAccessMode {
	return ProDOSAccessMode(fd.Data[30])
}

func (fd *ProDOSFileDescriptor) IsLocked() bool {
	return fd.AccessMode()&AccessType_Writable == 0
}

func (fd *ProDOSFileDescriptor) AuxType() int {
	return int(fd.Data[31]) + 256*int(fd.Data[32])
}

func (d *DSKWrapper) PRODOSGetVDH(b int) (*VDH, error) {
	data, err := d.GetBlock(b)
	if err != nil {
		return nil, err
	}
	return &VDH{Data: data[4 : 4+PRODOS_ENTRY_SIZE]}, nil
}

// IsProDOS checks the volume directory header in block 2.
func (d *DSKWrapper) IsProDOS() bool {
	data, err := d.GetBlock(2)
	if err != nil {
		return false
	}
	vdh := &VDH{Data: data[4 : 4+PRODOS_ENTRY_SIZE]}
	prev := int(data[0]) + 256*int(data[1])
	return prev == 0 &&
		vdh.GetStorageType() == StorageType_Volume_Header &&
		vdh.GetNameLength() > 0 &&
		vdh.GetEntryLength() == PRODOS_ENTRY_SIZE &&
		vdh.GetEntriesPerBlock() == 0x0d &&
		vdh.GetTotalBlocks() > 2 && vdh.GetTotalBlocks() <= d.Blocks()
}

// PRODOSGetCatalog lists the active entries of the directory whose key
// block is startblock.
func (d *DSKWrapper) PRODOSGetCatalog(startblock int) (*VDH, []ProDOSFileDescriptor, error) {
	vdh, err := d.PRODOSGetVDH(startblock)
	if err != nil {
		return nil, nil, err
	}
	entryLen, perBlock := vdh.GetEntryLength(), vdh.GetEntriesPerBlock()
	if entryLen < PRODOS_ENTRY_SIZE || perBlock < 1 || 4+entryLen*perBlock > PRODOS_BLOCK_SIZE {
		return vdh, nil, corrupt("ProDOS", startblock*PRODOS_BLOCK_SIZE, "directory entry size %d x %d", entryLen, perBlock)
	}

	var files []ProDOSFileDescriptor
	visited := map[int]bool{}
	slot := 1
	for block := startblock; block != 0 && !visited[block]; {
		visited[block] = true
		data, err := d.GetBlock(block)
		if err != nil {
			return vdh, files, err
		}
		for ; slot < perBlock; slot++ {
			off := 4 + slot*entryLen
			fd := ProDOSFileDescriptor{Data: data[off : off+PRODOS_ENTRY_SIZE]}
			if fd.GetStorageType() == StorageType_Inactive || fd.GetNameLength() == 0 {
				continue
			}
			files = append(files, fd)
		}
		slot = 0
		block = int(data[2]) + 256*int(data[3])
	}
	return vdh, files, nil
}

// indexPointers returns the 256 block numbers of an index block, low bytes
// in the first half and high bytes in the second.
func (d *DSKWrapper) indexPointers(block int) ([]int, error) {
	index, err := d.GetBlock(block)
	if err != nil {
		return nil, err
	}
	out := make([]int, 256)
	for i := range out {
		out[i] = int(index[i]) + 256*int(index[i+256])
	}
	return out, nil
}

// PRODOSReadFileSectors reads a seedling, sapling or tree file. Zero block
// pointers are sparse blocks and read as zeros.
func (d *DSKWrapper) PRODOSReadFileSectors(storage ProDOSStorageType, key, size int) ([]byte, error) {
	var blocks []int
	switch storage {
	case StorageType_Seedling:
		blocks = []int{key}
	case StorageType_Sapling:
		ptrs, err := d.indexPointers(key)
		if err != nil {
			return nil, err
		}
		blocks = ptrs
	case StorageType_Tree:
		master, err := d.indexPointers(key)
		if err != nil {
			return nil, err
		}
		for _, ib := range master[:128] {
			if len(blocks)*PRODOS_BLOCK_SIZE >= size {
				break
			}
			if ib == 0 {
				blocks = append(blocks, make([]int, 256)...)
				continue
			}
			ptrs, err := d.indexPointers(ib)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, ptrs...)
		}
	default:
		return nil, &ReadError{Filesystem: "ProDOS", Offset: -1, Reason: "storage type", Err: ErrUnsupportedVariant}
	}

	data := make([]byte, 0, min(size, len(blocks)*PRODOS_BLOCK_SIZE))
	zero := make([]byte, PRODOS_BLOCK_SIZE)
	for _, b := range blocks {
		if len(data) >= size {
			break
		}
		chunk := zero
		if b != 0 {
			var err error
			if chunk, err = d.GetBlock(b); err != nil {
				return data, err
			}
		}
		data = append(data, chunk[:min(PRODOS_BLOCK_SIZE, size-len(data))]...)
	}
	if len(data) < size {
		return data, &ReadError{Filesystem: "ProDOS", Offset: key * PRODOS_BLOCK_SIZE, Reason: "file shorter than its EOF", Err: ErrTruncated}
	}
	return data, nil
}

// PRODOSReadFile returns the contents of a file, or the data fork of an
// extended file.
func (d *DSKWrapper) PRODOSReadFile(fd ProDOSFileDescriptor) ([]byte, error) {
	if fd.GetStorageType() != StorageType_Extended {
		return d.PRODOSReadFileSectors(fd.GetStorageType(), fd.IndexBlock(), fd.Size())
	}
	ext, err := d.GetBlock(fd.IndexBlock())
	if err != nil {
		return nil, err
	}
	storage := ProDOSStorageType(ext[0] & 0x0f)
	key := int(ext[1]) + 256*int(ext[2])
	eof := int(ext[5]) + 256*int(ext[6]) + 65536*int(ext[7])
	return d.PRODOSReadFileSectors(storage, key, eof)
}

type proDOSReader struct{}

func (proDOSReader) Name() string { return "ProDOS" }

func (r proDOSReader) ReadCatalog(data []byte) (*Catalog, error) {
	for _, dsk := range appleImages(data, SectorOrderDOS33, SectorOrderProDOSLinear, SectorOrderDOS33Alt, SectorOrderProDOS) {
		if dsk.SectorsPerTrack != STD_SECTORS_PER_TRACK || !dsk.IsProDOS() {
			continue
		}
		return r.read(dsk)
	}
	return nil, mismatch(r.Name(), "no volume directory header in block 2")
}

func (r proDOSReader) read(dsk *DSKWrapper) (*Catalog, error) {
	switch dsk.Blocks() {
	case PRODOS_BLOCKS_PER_DISK:
		dsk.Format = GetDiskFormat(DF_PRODOS)
	case PRODOS_400KB_BLOCKS:
		dsk.Format = GetDiskFormat(DF_PRODOS_400KB)
	case PRODOS_800KB_BLOCKS:
		dsk.Format = GetDiskFormat(DF_PRODOS_800KB)
	default:
		dsk.Format = GetPDDiskFormat(DF_PRODOS_CUSTOM, dsk.Blocks())
	}
	vdh, err := dsk.PRODOSGetVDH(2)
	if err != nil {
		return nil, err
	}
	cat := newCatalog(dsk.Format, vdh.GetVolumeName(), len(dsk.Data))
	r.readDir(dsk, cat, cat.Root, 2, map[int]bool{2: true})
	return cat, nil
}

func (r proDOSReader) readDir(dsk *DSKWrapper, cat *Catalog, dir *Entry, key int, visited map[int]bool) {
	_, files, err := dsk.PRODOSGetCatalog(key)
	if err != nil {
		cat.skip("%s: directory at block %d: %v", dir.Path, key, err)
	}
	for _, fd := range files {
		name := cleanName(fd.Name())
		if fd.GetStorageType() == StorageType_SubDir_File {
			if visited[fd.IndexBlock()] {
				cat.skip("%s: directory loop at block %d", name, fd.IndexBlock())
				continue
			}
			visited[fd.IndexBlock()] = true
			sub := cat.add(dir, &Entry{Name: name, IsDirectory: true, Meta: FileMeta{Platform: PlatformApple2, ProDOSType: int(FileType_PD_Directory)}})
			r.readDir(dsk, cat, sub, fd.IndexBlock(), visited)
			continue
		}
		body, err := dsk.PRODOSReadFile(fd)
		if err != nil {
			cat.skip("%s: %v", name, err)
			continue
		}
		cat.add(dir, &Entry{Name: name, Data: body, Meta: FileMeta{
			Platform:   PlatformApple2,
			ProDOSType: int(fd.Type()),
			ProDOSAux:  fd.AuxType(),
			Locked:     fd.IsLocked(),
		}})
	}
}
