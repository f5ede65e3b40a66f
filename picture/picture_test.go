package picture

import (
	"bytes"
	"compress/lzw"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/paleotronic/picm8/palette"
)

func noise(seed int64, n int) []byte {
	out := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(out)
	return out
}

type iffChunk struct {
	id   string
	body []byte
}

func iffFile(kind string, chunks ...iffChunk) []byte {
	var body bytes.Buffer
	body.WriteString(kind)
	for _, c := range chunks {
		body.WriteString(c.id)
		binary.Write(&body, binary.BigEndian, uint32(len(c.body)))
		body.Write(c.body)
		if len(c.body)%2 == 1 {
			body.WriteByte(0)
		}
	}
	out := []byte("FORM")
	out = binary.BigEndian.AppendUint32(out, uint32(body.Len()))
	return append(out, body.Bytes()...)
}

func bmhd(w, h, planes int) []byte {
	b := make([]byte, 20)
	binary.BigEndian.PutUint16(b[0:], uint16(w))
	binary.BigEndian.PutUint16(b[2:], uint16(h))
	b[8] = byte(planes)
	return b
}

func ilbmImage(planes int, camg uint32, colours int) []byte {
	const w, h = 16, 4
	cmap := noise(7, colours*3)
	chunks := []iffChunk{{"BMHD", bmhd(w, h, planes)}, {"CMAP", cmap}}
	if camg != 0 {
		chunks = append(chunks, iffChunk{"CAMG", binary.BigEndian.AppendUint32(nil, camg)})
	}
	chunks = append(chunks, iffChunk{"BODY", noise(8, 2*planes*h)})
	return iffFile("ILBM", chunks...)
}

func pcxHeaderBytes(version, bpp byte, w, h, planes, bpl int) []byte {
	hdr := make([]byte, pcxHeader)
	hdr[0], hdr[1], hdr[3] = 0x0a, version, bpp
	binary.LittleEndian.PutUint16(hdr[8:], uint16(w-1))
	binary.LittleEndian.PutUint16(hdr[10:], uint16(h-1))
	hdr[65] = byte(planes)
	binary.LittleEndian.PutUint16(hdr[66:], uint16(bpl))
	return hdr
}

func pcxVGAImage() []byte {
	const w, h = 8, 4
	out := pcxHeaderBytes(5, 8, w, h, 1, w)
	out = append(out, noise(3, w*h)...)
	out = append(out, 0x0c)
	return append(out, noise(4, 768)...)
}

func macPaintImage() []byte {
	out := make([]byte, macPaintHeader)
	row := noise(5, macPaintRow)
	for y := 0; y < macPaintHeight; y++ {
		out = append(out, macPaintRow-1)
		out = append(out, row...)
	}
	return out
}

func degasImage(res int) []byte {
	out := noise(int64(10+res), degasSize)
	out[0], out[1] = 0, byte(res)
	return out
}

func bmpPaletted(t *testing.T) []byte {
	pal := make(color.Palette, 256)
	for i := range pal {
		pal[i] = color.RGBA{uint8(i), uint8(255 - i), uint8(i * 7), 0xff}
	}
	img := image.NewPaletted(image.Rect(0, 0, 13, 7), pal)
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 5)
	}
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	return buf.Bytes()
}

// fixtures holds one decodable sample per format.
func fixtures(t *testing.T) map[FormatTag][]byte {
	cpc := noise(20, cpcScreen)
	cpc[cpcMarker] = 0xff
	vram := func(seed int64, n int) []byte {
		b := noise(seed, n)
		b[0] = 0
		return b
	}
	return map[FormatTag][]byte{
		HGR:          noise(1, hgrSize),
		DHGR:         noise(2, dhgrSize),
		SHRStandard:  noise(3, shrSize),
		SHR3200:      noise(4, shr3200),
		IFFIndexed:   ilbmImage(2, 0, 4),
		IFFHAM6:      ilbmImage(6, camgHAM, 16),
		IFFHAM8:      ilbmImage(8, camgHAM, 64),
		DegasPI1:     degasImage(0),
		DegasPI2:     degasImage(1),
		DegasPI3:     degasImage(2),
		C64Koala:     noise(5, koalaMin),
		C64ArtStudio: noise(6, artStudioLen),
		ZXSCR:        noise(7, zxSize),
		CPCMode0:     cpc,
		CPCMode1:     cpc,
		PCX:          pcxVGAImage(),
		BMP:          bmpPaletted(t),
		MacPaint:     macPaintImage(),
		MSXScreen1:   vram(8, 0x4000),
		MSXScreen2:   vram(9, 0x4000),
		MSXScreen5:   vram(10, 0x8000),
		MSXScreen7:   vram(11, 0x10000),
		MSXScreen8:   vram(12, 0xd400),
		BBCMode0:     noise(13, bbcLarge),
		BBCMode1:     noise(14, bbcLarge),
		BBCMode2:     noise(15, bbcLarge),
		BBCMode4:     noise(16, bbcSmall),
		BBCMode5:     noise(17, bbcSmall),
		Atari8GR8:    noise(18, atariScreen),
		Atari8GR9:    noise(19, atariScreen),
		Atari8GR10:   noise(21, atariScreen+9),
		Atari8GR11:   noise(22, atariScreen),
		Atari8GR15:   noise(23, atariScreen+1),
		Atari8MIC:    noise(24, atariScreen+5),
	}
}

func TestEveryFormatHasAFixture(t *testing.T) {
	fx := fixtures(t)
	for _, tag := range Tags() {
		_, ok := fx[tag]
		require.True(t, ok, "no sample for %s", tag)
	}
}

func TestRerenderWithOwnPaletteMatchesDecode(t *testing.T) {
	for tag, data := range fixtures(t) {
		t.Run(tag.String(), func(t *testing.T) {
			want, err := Decode(data, tag)
			require.NoError(t, err)
			require.Equal(t, tag, want.Format)
			require.Equal(t, want.Width, want.Pixels.Rect.Dx())

			pal, err := ExtractPalette(data, tag)
			require.NoError(t, err)
			got, err := Rerender(data, tag, pal)
			require.NoError(t, err)
			require.Equal(t, want.Pixels.Pix, got.Pixels.Pix)
		})
	}
}

// shortestValid is the length below which a sample is damaged, for formats
// where a prefix can still be a whole file: optional trailers, and VRAM
// dumps that may stop after the last table.
var shortestValid = map[FormatTag]int{
	PCX:        pcxHeader + 8*4,
	MSXScreen1: 0x2000 + 32,
	MSXScreen2: 0x3300,
	MSXScreen5: 128 * 192,
	MSXScreen7: 256 * 192,
	MSXScreen8: 256 * 192,
	Atari8GR10: atariScreen,
	Atari8GR15: atariScreen,
	Atari8MIC:  atariScreen,
}

func requirePrefixesFail(t *testing.T, tag FormatTag, data []byte, upto int) {
	step := 1
	if testing.Short() && upto > 4096 {
		step = 61
	}
	for n := 0; n < upto; n += step {
		_, err := Decode(data[:n], tag)
		require.Error(t, err, "%d bytes", n)
		var de *DecodeError
		require.True(t, errors.As(err, &de), "%d bytes", n)
		require.Equal(t, tag, de.Format)
	}
}

func TestTruncatedInputFails(t *testing.T) {
	samples := fixtures(t)
	// a short Apple screen is read as PackBytes data, so cut the packed form
	samples[HGR] = packedZeros(hgrSize)
	samples[DHGR] = packedZeros(dhgrSize)
	samples[SHRStandard] = packedZeros(shrSize)

	for tag, data := range samples {
		t.Run(tag.String(), func(t *testing.T) {
			upto := len(data)
			if n, ok := shortestValid[tag]; ok {
				upto = n
			}
			_, err := Decode(data, tag)
			require.NoError(t, err)
			if upto < len(data) {
				_, err := Decode(data[:upto], tag)
				require.NoError(t, err)
			}
			requirePrefixesFail(t, tag, data, upto)
		})
	}
	t.Run("APP", func(t *testing.T) {
		data := appImage(make([]byte, 200*32))
		requirePrefixesFail(t, SHR3200, data, len(data))
	})
}

func lzwPack(t *testing.T, src []byte) []byte {
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.LSB, 8)
	_, err := w.Write(src)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func dreamTrailerBytes(mode int) []byte {
	out := binary.LittleEndian.AppendUint16(nil, uint16(mode))
	out = binary.LittleEndian.AppendUint16(out, 200)
	out = binary.LittleEndian.AppendUint16(out, 320)
	return append(out, "\nDreamWorld"...)
}

func dreamImage(t *testing.T, mode int, body []byte) []byte {
	return append(lzwPack(t, body), dreamTrailerBytes(mode)...)
}

// reverseLines turns 200 palettes stored colour 0 first into the Brooks
// order, colour 15 first.
func reverseLines(pals []byte) []byte {
	out := make([]byte, len(pals))
	for y := 0; y < 200; y++ {
		for i := 0; i < 16; i++ {
			copy(out[y*32+(15-i)*2:], pals[y*32+i*2:y*32+i*2+2])
		}
	}
	return out
}

// appImage is a compressed 3200 colour file with blank pixels.
func appImage(pals []byte) []byte {
	out := append([]byte("APP\x00"), pals...)
	return append(out, packedZeros(shrPixels)...)
}

func requireSamePixels(t *testing.T, tag FormatTag, want, got []byte) {
	a, err := Decode(want, tag)
	require.NoError(t, err)
	b, err := Decode(got, tag)
	require.NoError(t, err)
	require.Equal(t, a.Pixels.Pix, b.Pixels.Pix)
}

func TestDreamGrafix256(t *testing.T) {
	shr := noise(50, shrSize)
	data := dreamImage(t, 0, shr)

	require.Equal(t, SHRStandard, Detect(data, Hint{}))
	requireSamePixels(t, SHRStandard, shr, data)

	_, err := Decode(data, SHR3200)
	require.ErrorIs(t, err, ErrUnsupportedVariant)

	// the last few bytes hold only the final code and the end code
	body := data[:len(data)-dreamTrailer]
	for n := 0; n < len(body)-4; n += 997 {
		cut := append(append([]byte{}, body[:n]...), dreamTrailerBytes(0)...)
		_, err := Decode(cut, SHRStandard)
		require.Error(t, err, "%d bytes of LZW data", n)
	}
}

func TestDreamGrafix3200(t *testing.T) {
	body := noise(51, shr3200)
	data := dreamImage(t, 1, body)
	require.Equal(t, SHR3200, Detect(data, Hint{}))

	// DreamGrafix keeps palettes in colour order, Brooks files reverse them
	brooksFile := append(append([]byte{}, body[:shrPixels]...), reverseLines(body[shrPixels:])...)
	requireSamePixels(t, SHR3200, brooksFile, data)

	_, err := Decode(data, SHRStandard)
	require.ErrorIs(t, err, ErrUnsupportedVariant)
}

func TestAPPCompressed3200(t *testing.T) {
	pals := noise(52, 200*32)
	data := appImage(pals)
	require.Equal(t, SHR3200, Detect(data, Hint{}))
	require.Equal(t, SHR3200, Detect(data, Hint{Filename: "PIC.3201"}))

	brooksFile := append(make([]byte, shrPixels), pals...)
	requireSamePixels(t, SHR3200, brooksFile, data)

	pal, err := ExtractPalette(data, SHR3200)
	require.NoError(t, err)
	require.Equal(t, palette.IIGS(pals[30], pals[31]), pal.Palettes[0][0])
}

func TestUnknownTag(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3}, Unknown)
	require.ErrorIs(t, err, ErrUnknownFormat)
	_, err = ExtractPalette(nil, tagCount)
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestHGRBlackScreen(t *testing.T) {
	img, err := Decode(make([]byte, hgrSize), HGR)
	require.NoError(t, err)
	require.Equal(t, 280, img.Width)
	require.Equal(t, 192, img.Height)
	for i := 0; i < len(img.Pixels.Pix); i += 4 {
		require.Equal(t, []byte{0, 0, 0, 0xff}, img.Pixels.Pix[i:i+4])
	}
}

func TestHGRShortFileAccepted(t *testing.T) {
	img, err := Decode(make([]byte, hgrMinSize), HGR)
	require.NoError(t, err)
	require.Equal(t, 280, img.Width)
}

func TestSHRZeroScreen(t *testing.T) {
	data := make([]byte, shrSize)
	pal, err := ExtractPalette(data, SHRStandard)
	require.NoError(t, err)
	require.Equal(t, palette.Single, pal.Kind)
	require.Len(t, pal.Palettes[0], 16)
	for _, c := range pal.Palettes[0] {
		require.Equal(t, palette.RGB{}, c)
	}

	img, err := Decode(data, SHRStandard)
	require.NoError(t, err)
	require.Equal(t, 320, img.Width)
	require.Equal(t, 200, img.Height)
}

func TestSHRScanlineControlSelectsPalette(t *testing.T) {
	data := make([]byte, shrSize)
	// palette 1 colour 0 is white, used from line 100 down
	data[0x7e00+32], data[0x7e00+33] = 0xff, 0x0f
	for y := 100; y < 200; y++ {
		data[0x7d00+y] = 1
	}
	pal, err := ExtractPalette(data, SHRStandard)
	require.NoError(t, err)
	require.Equal(t, palette.MultiPalette, pal.Kind)

	img, err := Decode(data, SHRStandard)
	require.NoError(t, err)
	require.Equal(t, color.RGBA{0, 0, 0, 0xff}, img.Pixels.RGBAAt(5, 99))
	require.Equal(t, color.RGBA{0xff, 0xff, 0xff, 0xff}, img.Pixels.RGBAAt(5, 100))
}

func TestSHR3200SelectiveEdit(t *testing.T) {
	data := noise(30, shr3200)
	f, err := brooksIndex(data)
	require.NoError(t, err)
	before, err := Decode(data, SHR3200)
	require.NoError(t, err)

	pal, err := ExtractPalette(data, SHR3200)
	require.NoError(t, err)
	require.Equal(t, palette.PerScanline, pal.Kind)
	require.Len(t, pal.Palettes, 200)

	const line, slot = 7, 9
	edited, err := pal.WithColor(line, slot, palette.RGB{R: 1, G: 2, B: 3})
	require.NoError(t, err)
	after, err := Rerender(data, SHR3200, edited)
	require.NoError(t, err)

	for y := 0; y < 200; y++ {
		for x := 0; x < 320; x++ {
			changed := before.Pixels.RGBAAt(x, y) != after.Pixels.RGBAAt(x, y)
			require.Equal(t, y == line && f.pix[y*320+x] == slot, changed, "pixel %d,%d", x, y)
		}
	}
}

func TestPCXCGADepthMismatch(t *testing.T) {
	// 16 pixels claimed at 1 bit, in lines of 4 bytes
	data := pcxHeaderBytes(3, 1, 16, 1, 1, 4)
	data[16] = 0x10
	data = append(data, 0x1b, 0x1b, 0x1b, 0x1b)

	pal, err := ExtractPalette(data, PCX)
	require.NoError(t, err)
	cga := palette.CGA()
	require.Equal(t, palette.Palette{cga[1], cga[2], cga[4], cga[6]}, pal.Palettes[0])

	img, err := Decode(data, PCX)
	require.NoError(t, err)
	require.Equal(t, 16, img.Width)
	for x, want := range []palette.RGB{cga[1], cga[2], cga[4], cga[6]} {
		got := img.Pixels.RGBAAt(x, 0)
		require.Equal(t, color.RGBA{want.R, want.G, want.B, 0xff}, got, "pixel %d", x)
	}
}

func TestPCXPaddedMonochromeKeepsDepth(t *testing.T) {
	// 8 pixels at 1 bit in a line padded to 2 bytes, the same length a
	// 2 bit line would need
	data := pcxHeaderBytes(3, 1, 8, 1, 1, 2)
	data = append(data, 0xaa, 0x00)

	pal, err := ExtractPalette(data, PCX)
	require.NoError(t, err)
	require.Len(t, pal.Palettes[0], 2)

	img, err := Decode(data, PCX)
	require.NoError(t, err)
	require.Equal(t, 8, img.Width)
	grey := palette.Grey(2)
	for x := 0; x < 8; x++ {
		want := grey[1-x%2]
		require.Equal(t, color.RGBA{want.R, want.G, want.B, 0xff}, img.Pixels.RGBAAt(x, 0), "pixel %d", x)
	}
}

func TestPCXTrueColourIsFixed(t *testing.T) {
	const w, h = 4, 2
	data := pcxHeaderBytes(5, 8, w, h, 3, w)
	data = append(data, noise(40, w*h*3)...)
	pal, err := ExtractPalette(data, PCX)
	require.NoError(t, err)
	require.Equal(t, palette.Fixed, pal.Kind)
	_, err = pal.WithColor(0, 0, palette.RGB{})
	require.ErrorIs(t, err, palette.ErrNotEditable)
}

func TestBMPMatchesStandardDecoder(t *testing.T) {
	data := bmpPaletted(t)
	want, err := bmp.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	got, err := Decode(data, BMP)
	require.NoError(t, err)
	b := want.Bounds()
	require.Equal(t, b.Dx(), got.Width)
	require.Equal(t, b.Dy(), got.Height)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := want.At(x, y).RGBA()
			c := got.Pixels.RGBAAt(x, y)
			require.Equal(t, [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)}, [3]uint8{c.R, c.G, c.B})
		}
	}
}

func TestIFFKindMismatch(t *testing.T) {
	_, err := Decode(ilbmImage(6, camgHAM, 16), IFFIndexed)
	require.ErrorIs(t, err, ErrUnsupportedVariant)
	_, err = Decode(ilbmImage(2, 0, 4), IFFHAM6)
	require.ErrorIs(t, err, ErrUnsupportedVariant)
}

func TestCPCMarkerMode2Unsupported(t *testing.T) {
	data := make([]byte, cpcScreen)
	data[cpcMarker] = 2
	_, err := Decode(data, CPCMode1)
	require.ErrorIs(t, err, ErrUnsupportedVariant)
}

func TestDecodeErrorText(t *testing.T) {
	_, err := Decode(make([]byte, 10), ZXSCR)
	require.ErrorIs(t, err, ErrTruncated)
	require.Contains(t, err.Error(), "ZX-SCR")
}

func TestFormatTagNames(t *testing.T) {
	for _, tag := range Tags() {
		got, ok := ParseFormatTag(tag.String())
		require.True(t, ok)
		require.Equal(t, tag, got)
	}
	_, ok := ParseFormatTag("nope")
	require.False(t, ok)
	require.Equal(t, "FormatTag(99)", FormatTag(99).String())
}

func FuzzDecode(f *testing.F) {
	f.Add([]byte("FORM\x00\x00\x00\x04ILBM"), uint8(IFFIndexed))
	f.Add(pcxHeaderBytes(5, 8, 2, 2, 1, 2), uint8(PCX))
	f.Add([]byte("BM"), uint8(BMP))
	f.Add([]byte{0xfe, 0, 0, 0xff, 0x37, 0, 0}, uint8(MSXScreen2))
	f.Add([]byte("APP\x00"), uint8(SHR3200))
	f.Fuzz(func(t *testing.T, data []byte, tag uint8) {
		ft := FormatTag(int(tag) % int(tagCount))
		img, err := Decode(data, ft)
		if err == nil {
			require.Equal(t, img.Width*img.Height*4, len(img.Pixels.Pix))
		}
		Detect(data, Hint{})
	})
}
