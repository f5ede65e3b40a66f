package disk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testFATStart  = 512
	testRootStart = testFATStart + 2*3*512
	testDataStart = testRootStart + 112*fatDirEntry
)

func setFAT12(img []byte, n, v int) {
	off := testFATStart + n*3/2
	if n&1 == 0 {
		img[off] = byte(v)
		img[off+1] = img[off+1]&0xf0 | byte(v>>8)&0x0f
	} else {
		img[off] = img[off]&0x0f | byte(v<<4)
		img[off+1] = byte(v >> 4)
	}
}

func fatEntry(dst []byte, name, ext string, attr byte, cluster, size int) {
	copy(dst[0:8], []byte(name+"        ")[:8])
	copy(dst[8:11], []byte(ext+"   ")[:3])
	dst[0x0b] = attr
	dst[0x1a], dst[0x1b] = byte(cluster), byte(cluster>>8)
	dst[0x1c], dst[0x1d], dst[0x1e] = byte(size), byte(size>>8), byte(size>>16)
}

// fat12Image builds a 720K double sided disk with a volume label, a two
// cluster file and a subdirectory holding one more file.
func fat12Image(oem string, jump byte, bootSig bool) []byte {
	img := make([]byte, 1440*512)
	img[0] = jump
	copy(img[3:11], []byte(oem+"        ")[:8])
	img[0x0b], img[0x0c] = 0x00, 0x02
	img[0x0d] = 2
	img[0x0e] = 1
	img[0x10] = 2
	img[0x11] = 112
	img[0x13], img[0x14] = byte(1440&0xff), byte(1440>>8)
	img[0x15] = 0xf9
	img[0x16] = 3
	if bootSig {
		img[510], img[511] = 0x55, 0xaa
	}

	setFAT12(img, 2, 3)
	setFAT12(img, 3, 0xfff)
	setFAT12(img, 4, 0xfff)
	setFAT12(img, 5, 0xfff)

	root := img[testRootStart:]
	fatEntry(root[0:], "ARTDISK", "", fatAttrVolume, 0, 0)
	fatEntry(root[32:], "PIC", "SC5", 0x21, 2, 1500)
	fatEntry(root[64:], "SUB", "", fatAttrDir, 4, 0)

	cluster := func(n int) []byte {
		off := testDataStart + (n-2)*1024
		return img[off : off+1024]
	}
	copy(cluster(2), bytes.Repeat([]byte{0x11}, 1024))
	copy(cluster(3), bytes.Repeat([]byte{0x22}, 1024))

	sub := cluster(4)
	fatEntry(sub[0:], ".", "", fatAttrDir, 4, 0)
	fatEntry(sub[32:], "..", "", fatAttrDir, 0, 0)
	fatEntry(sub[64:], "INNER", "TXT", 0x20, 5, 5)
	copy(cluster(5), "hello")
	return img
}

func TestFAT12OEMDecidesPlatform(t *testing.T) {
	tests := []struct {
		name   string
		oem    string
		jump   byte
		sig    bool
		format DiskFormatID
		plat   Platform
	}{
		{"msx", "MSX_03.0", 0xeb, true, DF_FAT12_MSX, PlatformMSX},
		{"msx lower case", "msxdos", 0xeb, true, DF_FAT12_MSX, PlatformMSX},
		{"atari st", "Loader", 0x60, false, DF_FAT12_ATARIST, PlatformAtariST},
		{"pc", "MSDOS5.0", 0xeb, true, DF_FAT12_PC, PlatformPC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, cat, err := Identify(fat12Image(tt.oem, tt.jump, tt.sig), "disk.dsk")
			require.NoError(t, err)
			require.Equal(t, "FAT12", r.Name())
			require.Equal(t, tt.format, cat.DiskFormat.ID)

			e := cat.Find("PIC.SC5")
			require.NotNil(t, e)
			require.Equal(t, tt.plat, e.Meta.Platform)
		})
	}
}

func TestFAT12ReadsChainsAndSubdirectories(t *testing.T) {
	_, cat, err := Identify(fat12Image("MSX_03.0", 0xeb, true), "art.dsk")
	require.NoError(t, err)
	require.Equal(t, "ARTDISK", cat.DiskName)
	require.Equal(t, 2, cat.TotalFiles)

	pic := cat.Find("pic.sc5")
	require.NotNil(t, pic)
	require.Len(t, pic.Data, 1500)
	require.Equal(t, byte(0x11), pic.Data[1023])
	require.Equal(t, byte(0x22), pic.Data[1024])
	require.True(t, pic.Meta.Locked)

	inner := cat.Find("SUB/INNER.TXT")
	require.NotNil(t, inner)
	require.Equal(t, "hello", string(inner.Data))
}

func TestFAT12ChainLoopIsSkipped(t *testing.T) {
	img := fat12Image("TOS", 0x60, false)
	setFAT12(img, 2, 2)

	_, cat, err := Identify(img, "loop.st")
	require.NoError(t, err)
	require.Nil(t, cat.Find("PIC.SC5"))
	require.NotEmpty(t, cat.Skipped)
	require.NotNil(t, cat.Find("SUB/INNER.TXT"))
}
