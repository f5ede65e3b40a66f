package picture

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paleotronic/picm8/disk"
)

// packedZeros is PackBytes data expanding to n zero bytes.
func packedZeros(n int) []byte {
	return bytes.Repeat([]byte{0xff, 0x00}, n/256)
}

func bsaveFile(end int, body []byte) []byte {
	out := []byte{bsaveMagic, 0, 0, byte(end), byte(end >> 8), 0, 0}
	return append(out, body...)
}

func TestDetectBySize(t *testing.T) {
	for _, tc := range []struct {
		size int
		want FormatTag
	}{
		{hgrSize, HGR},
		{hgrMinSize, HGR},
		{dhgrSize, DHGR},
		{shrSize, SHRStandard},
		{shr3200, SHR3200},
		{zxSize, ZXSCR},
		{koalaMin, C64Koala},
		{artStudioLen, C64ArtStudio},
		{bbcLarge, BBCMode1},
		{bbcSmall, BBCMode5},
		{atariScreen, Atari8GR15},
		{atariScreen + 4, Atari8MIC},
		{atariScreen + 9, Atari8GR10},
		{1234, Unknown},
	} {
		require.Equal(t, tc.want, Detect(make([]byte, tc.size), Hint{}), "%d bytes", tc.size)
	}
	require.Equal(t, DegasPI2, Detect(degasImage(1), Hint{}))
	require.Equal(t, Unknown, Detect(nil, Hint{Filename: "X.HGR"}))
}

func TestDetectPackedAppleScreens(t *testing.T) {
	require.Equal(t, HGR, Detect(packedZeros(hgrSize), Hint{}))
	require.Equal(t, SHRStandard, Detect(packedZeros(shrSize), Hint{}))

	img, err := DecodeAuto(packedZeros(hgrSize), Hint{Filename: "PIC.HGR"})
	require.NoError(t, err)
	require.Equal(t, HGR, img.Format)
}

func TestDetectSkipsDiskImages(t *testing.T) {
	dsk := append([]byte("EXTENDED CPC DSK File\r\nDisk-Info\r\n"), make([]byte, 20000)...)
	require.Equal(t, Unknown, Detect(dsk, Hint{}))
	require.Equal(t, Unknown, Detect(append([]byte("2IMG"), make([]byte, 16380)...), Hint{}))

	atr := make([]byte, 16+92160)
	atr[0], atr[1] = 0x96, 0x02
	binary.LittleEndian.PutUint16(atr[2:], uint16(92160/16))
	require.Equal(t, Unknown, Detect(atr, Hint{}))

	adf := make([]byte, 901120)
	copy(adf, "DOS")
	require.Equal(t, Unknown, Detect(adf, Hint{Filename: "x.shr"}))
}

func TestDetectMetadata(t *testing.T) {
	apple := func(typ disk.ProDOSFileType, aux int) Hint {
		return Hint{Meta: disk.FileMeta{Platform: disk.PlatformApple2, ProDOSType: int(typ), ProDOSAux: aux}}
	}
	require.Equal(t, SHR3200, Detect(make([]byte, shr3200), apple(disk.FileType_PD_PIC, aux3200)))
	require.Equal(t, HGR, Detect(packedZeros(hgrSize), apple(disk.FileType_PD_FOT, auxPackedHGR)))
	require.Equal(t, SHRStandard, Detect(packedZeros(shrSize), apple(disk.FileType_PD_PNT, auxPackedSHR)))

	dos := Hint{Meta: disk.FileMeta{Platform: disk.PlatformApple2, DOSType: "B", LoadAddr: 0x2000, HasLoad: true}}
	require.Equal(t, DHGR, Detect(make([]byte, dhgrSize), dos))

	cpc := make([]byte, cpcScreen)
	cpc[cpcMarker+2] = 24
	hint := Hint{Meta: disk.FileMeta{Platform: disk.PlatformCPC}}
	require.Equal(t, CPCMode0, Detect(cpc, hint))
	cpc[cpcMarker] = 1
	require.Equal(t, CPCMode1, Detect(cpc, hint))
	require.Equal(t, CPCMode1, Detect(make([]byte, cpcScreen), hint))

	c64 := Hint{Meta: disk.FileMeta{Platform: disk.PlatformC64, LoadAddr: 0x6000, HasLoad: true}}
	require.Equal(t, C64Koala, Detect(make([]byte, koalaMin), c64))
}

func TestDetectPlatformOnlyMetadataDefersToExtension(t *testing.T) {
	atari := disk.FileMeta{Platform: disk.PlatformAtari8}
	screen := make([]byte, atariScreen)
	for name, want := range map[string]FormatTag{
		"PIC.GR8": Atari8GR8,
		"PIC.GR9": Atari8GR9,
		"PIC.G11": Atari8GR11,
		"PIC.GR1": Atari8GR10,
		"PIC":     Atari8GR15,
		// not an Atari extension, so the size decides
		"PIC.SC2": Atari8GR15,
	} {
		require.Equal(t, want, Detect(screen, Hint{Filename: name, Meta: atari}), name)
	}
	require.Equal(t, Atari8MIC, Detect(make([]byte, atariScreen+4), Hint{Filename: "PIC", Meta: atari}))

	msx := disk.FileMeta{Platform: disk.PlatformMSX}
	require.Equal(t, MSXScreen8, Detect(bsaveFile(0xd3ff, nil), Hint{Meta: msx}))
	require.Equal(t, MSXScreen7, Detect(bsaveFile(0xd3ff, nil), Hint{Filename: "A.SC7", Meta: msx}))
	// an Atari extension on an MSX disk is ignored
	require.Equal(t, MSXScreen8, Detect(bsaveFile(0xd3ff, nil), Hint{Filename: "A.GR8", Meta: msx}))
}

func TestDetectExtension(t *testing.T) {
	require.Equal(t, ZXSCR, Detect(make([]byte, zxSize), Hint{Filename: "game.scr"}))
	require.Equal(t, CPCMode1, Detect(make([]byte, cpcScreen), Hint{Filename: "LOADING.SCR"}))
	require.Equal(t, Atari8GR10, Detect(make([]byte, atariScreen), Hint{Filename: "PIC.GR1"}))
	require.Equal(t, Atari8GR9, Detect(make([]byte, atariScreen), Hint{Filename: "PIC.GR9"}))
	require.Equal(t, MSXScreen7, Detect(bsaveFile(0xd3ff, nil), Hint{Filename: "A.SC7"}))
	require.Equal(t, DegasPI3, Detect(degasImage(2), Hint{Filename: "hi.pi3"}))

	// the extension is only a hint and the size still has to fit
	require.Equal(t, HGR, Detect(make([]byte, hgrSize), Hint{Filename: "PIC.SC2"}))
}

func TestDetectDHGROrCPC(t *testing.T) {
	data := make([]byte, dhgrSize)
	require.Equal(t, DHGR, Detect(data, Hint{}))
	require.Equal(t, DHGR, Detect(data, Hint{Filename: "A.DHR"}))
	require.Equal(t, CPCMode1, Detect(data, Hint{Filename: "A.WIN"}))
}

func TestDetectMacPaintOrSHR(t *testing.T) {
	require.Equal(t, SHRStandard, Detect(make([]byte, shrSize), Hint{Filename: "X.MAC"}))
	require.Equal(t, MacPaint, Detect(macPaintImage(), Hint{Filename: "X.MAC"}))

	bin := make([]byte, macBinaryHeader)
	bin[1] = 5
	copy(bin[65:], "PNTG")
	require.Equal(t, MacPaint, Detect(append(bin, macPaintImage()...), Hint{}))
}

func TestDetectCoCoExtensionsAreNotDegas(t *testing.T) {
	data := degasImage(0)
	require.Equal(t, DegasPI1, Detect(data, Hint{}))
	for _, name := range []string{"a.max", "a.cc3", "a.pix", "a.mge"} {
		got := Detect(data, Hint{Filename: name})
		require.NotContains(t, []FormatTag{DegasPI1, DegasPI2, DegasPI3}, got, name)
	}
}

func TestDetectMagic(t *testing.T) {
	require.Equal(t, PCX, Detect(pcxVGAImage(), Hint{}))
	require.Equal(t, BMP, Detect(bmpPaletted(t), Hint{}))
	require.Equal(t, IFFIndexed, Detect(ilbmImage(2, 0, 4), Hint{}))
	require.Equal(t, IFFHAM6, Detect(ilbmImage(6, camgHAM, 16), Hint{}))
	require.Equal(t, IFFHAM8, Detect(ilbmImage(8, camgHAM, 64), Hint{Filename: "x.lbm"}))
	require.Equal(t, SHR3200, Detect(append([]byte("APP\x00"), make([]byte, 7000)...), Hint{}))
	require.Equal(t, MSXScreen5, Detect(bsaveFile(0x69ff, make([]byte, 0x6a00)), Hint{}))
	require.Equal(t, MSXScreen2, Detect(bsaveFile(0x37ff, make([]byte, 0x3800)), Hint{}))
	require.Equal(t, MSXScreen8, Detect(bsaveFile(0xd3ff, make([]byte, 0xd400)), Hint{}))

	// loaded somewhere other than VRAM address 0
	moved := bsaveFile(0x69ff, make([]byte, 0x6a00))
	moved[1] = 0x10
	require.Equal(t, Unknown, Detect(moved, Hint{}))
}

func TestDetectIsDeterministic(t *testing.T) {
	for tag, data := range fixtures(t) {
		first := Detect(data, Hint{})
		for i := 0; i < 3; i++ {
			require.Equal(t, first, Detect(data, Hint{}), tag.String())
		}
	}
}
