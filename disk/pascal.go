package disk

import (
	"strings"
)

const PASCAL_BLOCK_SIZE = 512
const PASCAL_VOLUME_BLOCK = 2
const PASCAL_MAX_VOLUME_NAME = 7
const PASCAL_DIRECTORY_ENTRY_LENGTH = 26
const PASCAL_OVERSIZE_DIR = 32

type PascalFileType int

const (
	FileType_PAS_NONE PascalFileType = 0
	FileType_PAS_BADD PascalFileType = 1
	FileType_PAS_CODE PascalFileType = 2
	FileType_PAS_TEXT PascalFileType = 3
	FileType_PAS_INFO PascalFileType = 4
	FileType_PAS_DATA PascalFileType = 5
	FileType_PAS_GRAF PascalFileType = 6
	FileType_PAS_FOTO PascalFileType = 7
	FileType_PAS_SECD PascalFileType = 8
)

var PascalTypeMap = map[PascalFileType][2]string{
	0x00: {"UNK", "ASCII Text"},
	0x01: {"BAD", "Bad Block"},
	0x02: {"PCD", "Pascal Code"},
	0x03: {"PTX", "Pascal Text"},
	0x04: {"PIF", "Pascal Info"},
	0x05: {"PDA", "Pascal Data"},
	0x06: {"GRF", "Pascal Graphics"},
	0x07: {"FOT", "HiRes Graphics"},
	0x08: {"SEC", "Secure Directory"},
}

func (ft PascalFileType) String() string {
	info, ok := PascalTypeMap[ft]
	if ok {
		return info[1]
	}
	return "Unknown"
}

func (ft PascalFileType) Ext() string {
	info, ok := PascalTypeMap[ft]
	if ok {
		return info[0]
	}
	return "UNK"
}

type PascalVolumeHeader struct {
	data []byte
}

func (pvh *PascalVolumeHeader) GetStartBlock() int {
	return int(pvh.data[0x00]) + 256*int(pvh.data[0x01])
}

func (pvh *PascalVolumeHeader) GetNextBlock() int {
	return int(pvh.data[0x02]) + 256*int(pvh.data[0x03])
}

func (pvh *PascalVolumeHeader) GetNameLength() int {
	return int(pvh.data[0x06]) & 0x07
}

func (pvh *PascalVolumeHeader) GetName() string {
	return string(pvh.data[0x07 : 0x07+pvh.GetNameLength()])
}

func (pvh *PascalVolumeHeader) GetTotalBlocks() int {
	return int(pvh.data[0x0e]) + 256*int(pvh.data[0x0f])
}

func (pvh *PascalVolumeHeader) GetNumFiles() int {
	return int(pvh.data[0x10]) + 256*int(pvh.data[0x11])
}

type PascalFileEntry struct {
	data []byte
}

func (pfe *PascalFileEntry) GetStartBlock() int {
	return int(pfe.data[0x00]) + 256*int(pfe.data[0x01])
}

func (pfe *PascalFileEntry) GetNextBlock() int {
	return int(pfe.data[0x02]) + 256*int(pfe.data[0x03])
}

func (pfe *PascalFileEntry) GetType() PascalFileType {
	return PascalFileType(int(pfe.data[0x04]) & 0x0f)
}

func (pfe *PascalFileEntry) GetNameLength() int {
	return int(pfe.data[0x06]) & 0x0f
}

func (pfe *PascalFileEntry) GetName() string {
	return string(pfe.data[0x07 : 0x07+pfe.GetNameLength()])
}

func (pfe *PascalFileEntry) GetBytesRemaining() int {
	return int(pfe.data[0x16]) + 256*int(pfe.data[0x17])
}

func (pfe *PascalFileEntry) GetFileSize() int {
	return pfe.GetBytesRemaining() + (pfe.GetNextBlock()-pfe.GetStartBlock()-1)*PASCAL_BLOCK_SIZE
}

// IsPascal checks the volume header in block 2 and returns the volume name.
func (dsk *DSKWrapper) IsPascal() (bool, string) {
	data, err := dsk.GetBlock(PASCAL_VOLUME_BLOCK)
	if err != nil {
		return false, ""
	}
	if !(data[0x00] == 0 && data[0x01] == 0) ||
		!(data[0x04] == 0 && data[0x05] == 0) ||
		!(data[0x06] > 0 && data[0x06] <= PASCAL_MAX_VOLUME_NAME) {
		return false, ""
	}
	l := int(data[0x06])
	str := ""
	for _, ch := range data[0x07 : 0x07+l] {
		if ch == 0x00 {
			break
		}
		if ch < 0x20 || ch >= 0x7f {
			return false, ""
		}
		if strings.ContainsRune("$=?,[#:", rune(ch)) {
			return false, ""
		}
		str += string(rune(ch))
	}
	return true, str
}

func (dsk *DSKWrapper) PascalGetCatalog() (*PascalVolumeHeader, []*PascalFileEntry, error) {
	d, err := dsk.GetBlock(PASCAL_VOLUME_BLOCK)
	if err != nil {
		return nil, nil, err
	}
	pvh := &PascalVolumeHeader{data: d[:PASCAL_DIRECTORY_ENTRY_LENGTH]}
	numBlocks := pvh.GetNextBlock() - PASCAL_VOLUME_BLOCK
	if numBlocks <= 0 || numBlocks > PASCAL_OVERSIZE_DIR {
		return pvh, nil, corrupt("Pascal", PASCAL_VOLUME_BLOCK*PASCAL_BLOCK_SIZE, "directory of %d blocks", numBlocks)
	}

	catdata := make([]byte, 0, numBlocks*PASCAL_BLOCK_SIZE)
	for block := PASCAL_VOLUME_BLOCK; block < PASCAL_VOLUME_BLOCK+numBlocks; block++ {
		data, err := dsk.GetBlock(block)
		if err != nil {
			return pvh, nil, err
		}
		catdata = append(catdata, data...)
	}

	var files []*PascalFileEntry
	dirPtr := PASCAL_DIRECTORY_ENTRY_LENGTH
	for i := 0; i < pvh.GetNumFiles() && dirPtr+PASCAL_DIRECTORY_ENTRY_LENGTH <= len(catdata); i++ {
		files = append(files, &PascalFileEntry{data: catdata[dirPtr : dirPtr+PASCAL_DIRECTORY_ENTRY_LENGTH]})
		dirPtr += PASCAL_DIRECTORY_ENTRY_LENGTH
	}
	return pvh, files, nil
}

func (dsk *DSKWrapper) PascalReadFile(file *PascalFileEntry) ([]byte, error) {
	start := file.GetStartBlock()
	length := file.GetNextBlock() - start
	size := file.GetFileSize()
	if length <= 0 || start+length > dsk.Blocks() || size < 0 {
		return nil, corrupt("Pascal", -1, "file %q spans blocks %d-%d", file.GetName(), start, start+length)
	}
	data := make([]byte, 0, size)
	for block := start; block < start+length && len(data) < size; block++ {
		chunk, err := dsk.GetBlock(block)
		if err != nil {
			return data, err
		}
		data = append(data, chunk[:min(PASCAL_BLOCK_SIZE, size-len(data))]...)
	}
	return data, nil
}

type pascalReader struct{}

func (pascalReader) Name() string { return "Apple Pascal" }

func (r pascalReader) ReadCatalog(data []byte) (*Catalog, error) {
	for _, dsk := range appleImages(data, SectorOrderDOS33, SectorOrderProDOSLinear) {
		if dsk.SectorsPerTrack != STD_SECTORS_PER_TRACK {
			continue
		}
		ok, name := dsk.IsPascal()
		if !ok {
			continue
		}
		_, files, err := dsk.PascalGetCatalog()
		if err != nil {
			continue
		}
		dsk.Format = GetDiskFormat(DF_PASCAL)
		cat := newCatalog(dsk.Format, name, len(dsk.Data))
		for _, f := range files {
			fname := cleanName(f.GetName())
			body, err := dsk.PascalReadFile(f)
			if err != nil {
				cat.skip("%s: %v", fname, err)
				continue
			}
			cat.add(nil, &Entry{Name: fname, Data: body, Meta: FileMeta{
				Platform: PlatformApple2,
				DOSType:  f.GetType().Ext(),
			}})
		}
		return cat, nil
	}
	return nil, mismatch(r.Name(), "no volume header in block 2")
}
