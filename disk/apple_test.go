package disk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func appleName(s string, n int) []byte {
	out := bytes.Repeat([]byte{0xa0}, n)
	for i := range s {
		out[i] = s[i] | 0x80
	}
	return out
}

// dos33Image builds a 140K DOS ordered disk with one binary file.
func dos33Image(body []byte, addr int) []byte {
	img := make([]byte, STD_DISK_BYTES)
	sector := func(t, s int) []byte {
		off := (t*STD_SECTORS_PER_TRACK + s) * STD_BYTES_PER_SECTOR
		return img[off : off+STD_BYTES_PER_SECTOR]
	}
	vtoc := sector(17, 0)
	vtoc[1], vtoc[2] = 17, 15
	vtoc[3] = 3
	vtoc[6] = 254
	vtoc[0x27] = 122
	vtoc[0x34], vtoc[0x35] = 35, 16

	entry := sector(17, 15)[0x0b : 0x0b+appleDOSEntrySize]
	entry[0], entry[1] = 18, 0
	entry[2] = byte(FileTypeBIN) | 0x80
	copy(entry[3:0x21], appleName("PICTURE", 30))
	entry[0x21] = 2

	tsl := sector(18, 0)
	tsl[0x0c], tsl[0x0d] = 18, 1

	data := sector(18, 1)
	data[0], data[1] = byte(addr), byte(addr>>8)
	data[2], data[3] = byte(len(body)), byte(len(body)>>8)
	copy(data[4:], body)
	return img
}

func TestAppleDOSBinaryFile(t *testing.T) {
	img := dos33Image([]byte("HGRDATA!"), 0x2000)

	r, cat, err := Identify(img, "games.dsk")
	require.NoError(t, err)
	require.Equal(t, "Apple DOS 3.3", r.Name())
	require.Equal(t, DF_DOS_SECTORS_16, cat.DiskFormat.ID)
	require.Equal(t, "DISK VOLUME 254", cat.DiskName)
	require.Equal(t, 1, cat.TotalFiles)

	e := cat.Find("picture")
	require.NotNil(t, e)
	require.Equal(t, []byte("HGRDATA!"), e.Data)
	require.Equal(t, "B", e.Meta.DOSType)
	require.True(t, e.Meta.HasLoad)
	require.Equal(t, 0x2000, e.Meta.LoadAddr)
	require.True(t, e.Meta.Locked)
	require.Equal(t, PlatformApple2, e.Meta.Platform)
}

func TestAppleDOSCatalogLoop(t *testing.T) {
	img := dos33Image([]byte{1, 2, 3}, 0x4000)
	cs := (17*STD_SECTORS_PER_TRACK + 15) * STD_BYTES_PER_SECTOR
	img[cs+1], img[cs+2] = 17, 15

	_, cat, err := Identify(img, "")
	require.NoError(t, err)
	require.Equal(t, 1, cat.TotalFiles)
}

type proDOSBuilder struct {
	img []byte
}

func (b *proDOSBuilder) block(n int) []byte {
	return b.img[n*PRODOS_BLOCK_SIZE : (n+1)*PRODOS_BLOCK_SIZE]
}

func (b *proDOSBuilder) header(key int, storage ProDOSStorageType, name string, files int) {
	blk := b.block(key)
	h := blk[4:]
	h[0] = byte(storage)<<4 | byte(len(name))
	copy(h[1:], name)
	h[0x1f] = PRODOS_ENTRY_SIZE
	h[0x20] = 0x0d
	h[0x21] = byte(files)
	blocks := len(b.img) / PRODOS_BLOCK_SIZE
	h[0x25], h[0x26] = byte(blocks), byte(blocks>>8)
}

func (b *proDOSBuilder) entry(dirKey, slot int, storage ProDOSStorageType, name string, ftype ProDOSFileType, key, size, aux int) {
	off := 4 + slot*PRODOS_ENTRY_SIZE
	e := b.block(dirKey)[off : off+PRODOS_ENTRY_SIZE]
	e[0] = byte(storage)<<4 | byte(len(name))
	copy(e[1:], name)
	e[16] = byte(ftype)
	e[17], e[18] = byte(key), byte(key>>8)
	e[21], e[22], e[23] = byte(size), byte(size>>8), byte(size>>16)
	e[30] = 0xc3
	e[31], e[32] = byte(aux), byte(aux>>8)
}

func (b *proDOSBuilder) index(key int, ptrs ...int) {
	blk := b.block(key)
	for i, p := range ptrs {
		blk[i] = byte(p)
		blk[i+256] = byte(p >> 8)
	}
}

func TestProDOSTreeFileAndSubdirectory(t *testing.T) {
	b := &proDOSBuilder{img: make([]byte, PRODOS_800KB_DISK_BYTES)}
	b.header(2, StorageType_Volume_Header, "PICS", 3)

	// tree: master 10 -> index 11 (blocks 20..275), index 12 (block 300)
	var first []int
	for i := 0; i < 256; i++ {
		first = append(first, 20+i)
		for j := range b.block(20 + i) {
			b.block(20 + i)[j] = byte(i)
		}
	}
	b.index(10, 11, 12)
	b.index(11, first...)
	b.index(12, 300)
	for j := range b.block(300) {
		b.block(300)[j] = 0xab
	}
	treeSize := 256*PRODOS_BLOCK_SIZE + 100
	b.entry(2, 1, StorageType_Tree, "TREE", FileType_PD_BIN, 10, treeSize, 0)

	// sapling with a sparse second block
	b.index(400, 401, 0, 402)
	copy(b.block(401), "first")
	copy(b.block(402), "third")
	b.entry(2, 2, StorageType_Sapling, "SPARSE", FileType_PD_BIN, 400, 3*PRODOS_BLOCK_SIZE, 0)

	b.header(5, StorageType_SubDir_Header, "ART", 1)
	b.entry(2, 3, StorageType_SubDir_File, "ART", FileType_PD_Directory, 5, PRODOS_BLOCK_SIZE, 0)
	copy(b.block(6), bytes.Repeat([]byte{0x11}, PRODOS_BLOCK_SIZE))
	b.entry(5, 1, StorageType_Seedling, "SHR.PIC", FileType_PD_PIC, 6, 300, 0x0000)

	r, cat, err := Identify(b.img, "pics.po")
	require.NoError(t, err)
	require.Equal(t, "ProDOS", r.Name())
	require.Equal(t, DF_PRODOS_800KB, cat.DiskFormat.ID)
	require.Equal(t, "PICS", cat.DiskName)
	require.Equal(t, 3, cat.TotalFiles)
	require.Empty(t, cat.Skipped)

	tree := cat.Find("TREE")
	require.NotNil(t, tree)
	require.Len(t, tree.Data, treeSize)
	require.Equal(t, byte(0), tree.Data[0])
	require.Equal(t, byte(7), tree.Data[7*PRODOS_BLOCK_SIZE])
	require.Equal(t, byte(255), tree.Data[255*PRODOS_BLOCK_SIZE+511])
	require.Equal(t, byte(0xab), tree.Data[256*PRODOS_BLOCK_SIZE+99])

	sparse := cat.Find("sparse")
	require.NotNil(t, sparse)
	require.Equal(t, "first", string(sparse.Data[:5]))
	require.Equal(t, make([]byte, PRODOS_BLOCK_SIZE), sparse.Data[PRODOS_BLOCK_SIZE:2*PRODOS_BLOCK_SIZE])
	require.Equal(t, "third", string(sparse.Data[2*PRODOS_BLOCK_SIZE:2*PRODOS_BLOCK_SIZE+5]))

	pic := cat.Find("ART/SHR.PIC")
	require.NotNil(t, pic)
	require.Equal(t, "ART/SHR.PIC", pic.Path)
	require.Equal(t, int(FileType_PD_PIC), pic.Meta.ProDOSType)
	require.Len(t, pic.Data, 300)
	require.False(t, pic.Meta.Locked)
}

func TestProDOSDirectoryLoop(t *testing.T) {
	b := &proDOSBuilder{img: make([]byte, PRODOS_800KB_DISK_BYTES)}
	b.header(2, StorageType_Volume_Header, "LOOP", 1)
	b.entry(2, 1, StorageType_SubDir_File, "SELF", FileType_PD_Directory, 2, PRODOS_BLOCK_SIZE, 0)
	// the directory block chain points back at itself
	b.block(2)[2] = 2

	_, cat, err := Identify(b.img, "")
	require.NoError(t, err)
	require.NotEmpty(t, cat.Skipped)
}

func TestTwoMGUnwrap(t *testing.T) {
	b := &proDOSBuilder{img: make([]byte, PRODOS_400KB_DISK_BYTES)}
	b.header(2, StorageType_Volume_Header, "WRAPPED", 0)

	hdr := make([]byte, PREAMBLE_2MG_SIZE)
	copy(hdr, MAGIC_2MG)
	hdr[0x08] = PREAMBLE_2MG_SIZE
	hdr[0x0c] = format2MGProDOS
	hdr[0x18] = PREAMBLE_2MG_SIZE
	n := len(b.img)
	hdr[0x1c], hdr[0x1d], hdr[0x1e] = byte(n), byte(n>>8), byte(n>>16)

	_, cat, err := Identify(append(hdr, b.img...), "wrapped.2mg")
	require.NoError(t, err)
	require.Equal(t, DF_PRODOS_400KB, cat.DiskFormat.ID)
	require.Equal(t, "WRAPPED", cat.DiskName)
}
