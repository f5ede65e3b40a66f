package disk

import (
	"sort"

	"github.com/paleotronic/picm8/raw"
)

const (
	adfBlockSize = 512
	adfDDBlocks  = 1760
	adfHDBlocks  = 3520

	adfTypeHeader = 2
	adfTypeData   = 8
	adfTypeList   = 16

	adfSecRoot    = 1
	adfSecUserDir = 2
	adfSecFile    = -3

	adfOFSData = adfBlockSize - 24

	adfFlagFFS  = 0x01
	adfFlagIntl = 0x02
)

type adfVolume struct {
	data    raw.Reader
	blocks  int
	ffs     bool
	cat     *Catalog
	visited map[int]bool
}

// block returns block n or nil when it is outside the image.
func (v *adfVolume) block(n int) raw.Reader {
	if n <= 1 || n >= v.blocks {
		return nil
	}
	b, err := v.data.Slice(n*adfBlockSize, adfBlockSize)
	if err != nil {
		return nil
	}
	return b
}

func adfLong(b raw.Reader, off int) int {
	u, _ := b.U32BE(off)
	return int(int32(u))
}

// adfTable returns the 72 entry pointer table of a header or extension block
// in the order the blocks are used.
func adfTable(b raw.Reader) []int {
	out := make([]int, 0, 72)
	for i := 71; i >= 0; i-- {
		out = append(out, adfLong(b, 24+i*4))
	}
	return out
}

func adfName(b raw.Reader) string {
	n := int(b[432])
	if n > 30 {
		n = 30
	}
	rs := make([]rune, 0, n)
	for _, c := range b[433 : 433+n] {
		rs = append(rs, rune(c))
	}
	return cleanName(string(rs))
}

func (v *adfVolume) readDir(hdr raw.Reader, dir *Entry, depth int) {
	if depth > 32 {
		v.cat.skip("%s: directories nested too deep", dir.Path)
		return
	}
	tableSize := 72
	for slot := 0; slot < tableSize; slot++ {
		for key := adfLong(hdr, 24+slot*4); key != 0; {
			if v.visited[key] {
				v.cat.skip("%s: block %d linked twice", dir.Path, key)
				break
			}
			v.visited[key] = true
			b := v.block(key)
			if b == nil || adfLong(b, 0) != adfTypeHeader || adfLong(b, 4) != key {
				v.cat.skip("%s: bad header block %d", dir.Path, key)
				break
			}
			name := adfName(b)
			switch adfLong(b, 508) {
			case adfSecUserDir:
				sub := v.cat.add(dir, &Entry{Name: name, IsDirectory: true, Meta: FileMeta{Platform: PlatformAmiga}})
				v.readDir(b, sub, depth+1)
			case adfSecFile:
				body, err := v.readFile(key, b)
				if err != nil {
					v.cat.skip("%s/%s: %v", dir.Path, name, err)
				} else {
					v.cat.add(dir, &Entry{Name: name, Data: body, Meta: FileMeta{
						Platform: PlatformAmiga,
						Locked:   adfLong(b, 320)&0x04 != 0,
					}})
				}
			default:
				v.cat.skip("%s/%s: links and other entry types are not followed", dir.Path, name)
			}
			key = adfLong(b, 496)
		}
	}
}

// dataBlocks collects the data block pointers from the file header and its
// extension blocks.
func (v *adfVolume) dataBlocks(key int, hdr raw.Reader) ([]int, error) {
	var out []int
	seen := map[int]bool{}
	for b := hdr; b != nil; {
		n := adfLong(b, 8)
		if n < 0 || n > 72 {
			return nil, corrupt("AmigaDOS", key*adfBlockSize, "%d blocks in table", n)
		}
		out = append(out, adfTable(b)[:n]...)
		ext := adfLong(b, 504)
		if ext == 0 {
			break
		}
		if seen[ext] {
			return nil, corrupt("AmigaDOS", ext*adfBlockSize, "extension chain loops")
		}
		seen[ext] = true
		b = v.block(ext)
		if b == nil || adfLong(b, 0) != adfTypeList || adfLong(b, 4) != ext {
			return nil, corrupt("AmigaDOS", ext*adfBlockSize, "bad extension block")
		}
	}
	return out, nil
}

func (v *adfVolume) readFile(key int, hdr raw.Reader) ([]byte, error) {
	size := adfLong(hdr, 324)
	if size < 0 || size > len(v.data) {
		return nil, corrupt("AmigaDOS", key*adfBlockSize, "file size %d", size)
	}
	ptrs, err := v.dataBlocks(key, hdr)
	if err != nil {
		return nil, err
	}
	if v.ffs {
		out := make([]byte, 0, size)
		for _, p := range ptrs {
			if len(out) >= size {
				break
			}
			b := v.block(p)
			if b == nil {
				return nil, corrupt("AmigaDOS", -1, "data block %d outside the disk", p)
			}
			out = append(out, b[:min(adfBlockSize, size-len(out))]...)
		}
		if len(out) < size {
			return out, &ReadError{Filesystem: "AmigaDOS", Offset: key * adfBlockSize, Reason: "file shorter than its size", Err: ErrTruncated}
		}
		return out, nil
	}
	return v.readOFS(key, hdr, ptrs, size)
}

type ofsBlock struct {
	seq  int
	data []byte
	next int
}

// readOFS orders OFS data blocks by their sequence numbers. When the
// pointer table is short the next_data links fill in the rest.
func (v *adfVolume) readOFS(key int, hdr raw.Reader, ptrs []int, size int) ([]byte, error) {
	load := func(p int) (ofsBlock, bool) {
		b := v.block(p)
		if b == nil || adfLong(b, 0) != adfTypeData || adfLong(b, 4) != key {
			return ofsBlock{}, false
		}
		n := adfLong(b, 12)
		if n < 0 || n > adfOFSData {
			return ofsBlock{}, false
		}
		return ofsBlock{seq: adfLong(b, 8), data: b[24 : 24+n], next: adfLong(b, 16)}, true
	}

	bySeq := map[int]ofsBlock{}
	for _, p := range ptrs {
		if blk, ok := load(p); ok {
			bySeq[blk.seq] = blk
		}
	}
	seen := map[int]bool{}
	for p := adfLong(hdr, 16); p != 0 && !seen[p]; {
		seen[p] = true
		blk, ok := load(p)
		if !ok {
			break
		}
		if _, dup := bySeq[blk.seq]; !dup {
			bySeq[blk.seq] = blk
		}
		p = blk.next
	}

	seqs := make([]int, 0, len(bySeq))
	for s := range bySeq {
		seqs = append(seqs, s)
	}
	sort.Ints(seqs)
	out := make([]byte, 0, size)
	for _, s := range seqs {
		if len(out) >= size {
			break
		}
		d := bySeq[s].data
		out = append(out, d[:min(len(d), size-len(out))]...)
	}
	if len(out) < size {
		return out, &ReadError{Filesystem: "AmigaDOS", Offset: key * adfBlockSize, Reason: "missing OFS data blocks", Err: ErrTruncated}
	}
	return out, nil
}

type amigaReader struct{}

func (amigaReader) Name() string { return "AmigaDOS" }

func (r amigaReader) ReadCatalog(data []byte) (*Catalog, error) {
	img := raw.Reader(data)
	blocks := len(data) / adfBlockSize
	if (blocks != adfDDBlocks && blocks != adfHDBlocks) || !img.Match(0, "DOS") {
		return nil, mismatch(r.Name(), "no DOS boot block")
	}
	flags := img[3]
	if flags > 7 {
		return nil, mismatch(r.Name(), "boot block flags %#02x", flags)
	}
	v := &adfVolume{data: img, blocks: blocks, ffs: flags&adfFlagFFS != 0, visited: map[int]bool{}}
	rootKey := blocks / 2
	root := v.block(rootKey)
	if root == nil || adfLong(root, 0) != adfTypeHeader || adfLong(root, 508) != adfSecRoot {
		return nil, corrupt(r.Name(), rootKey*adfBlockSize, "no root block")
	}
	format := GetDiskFormat(DF_AMIGA_OFS)
	if v.ffs {
		format = GetDiskFormat(DF_AMIGA_FFS)
	}
	v.cat = newCatalog(format, adfName(root), len(data))
	v.visited[rootKey] = true
	v.readDir(root, v.cat.Root, 0)
	return v.cat, nil
}
