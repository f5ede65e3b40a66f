package picture

import (
	"path/filepath"
	"strings"

	"github.com/paleotronic/picm8/disk"
	"github.com/paleotronic/picm8/pack"
	"github.com/paleotronic/picm8/raw"
)

// Hint is what is known about a file besides its bytes: its name and, for
// files taken from a disk image, the metadata the filesystem kept.
type Hint struct {
	Filename string
	Meta     disk.FileMeta
}

// ProDOS aux types that mark pictures.
const (
	auxPackedHGR  = 0x4000
	auxPackedDHGR = 0x4001
	auxPackedSHR  = 0x0001
	aux3200       = 0x0002
	auxDreamGrafx = 0x8005
)

// Detect names the format of data. It never fails: anything it cannot place
// is Unknown, including disk images, which belong to disk.Identify.
func Detect(data []byte, hint Hint) FormatTag {
	d := raw.Reader(data)
	if len(d) == 0 || isDiskImage(d) {
		return Unknown
	}
	ext := strings.ToUpper(filepath.Ext(hint.Filename))
	for _, step := range []func(raw.Reader, string, disk.FileMeta) FormatTag{
		byMeta,
		byExtension,
		byMagic,
		bySize,
	} {
		if t := step(d, ext, hint.Meta); t != Unknown {
			return t
		}
	}
	return Unknown
}

func isDiskImage(d raw.Reader) bool {
	switch {
	case d.Match(0, "MV - CPC"), d.Match(0, "EXTENDED CPC DSK File"), d.Match(0, "2IMG"):
		return true
	case d.Match(0, "\x96\x02") && len(d) > 16:
		paras, _ := d.U16LE(2)
		return paras+int(d.Byte(6))<<16 == (len(d)-16)/16
	case d.Match(0, "DOS") && d.Byte(3) <= 7:
		return len(d) == 1760*512 || len(d) == 3520*512
	}
	return false
}

func isHGRSize(n int) bool {
	return n >= hgrMinSize && n <= hgrSize
}

// packedTo reports whether data is PackBytes data that expands to exactly
// size bytes.
func packedTo(d raw.Reader, size int) bool {
	if len(d) >= size {
		return false
	}
	out, err := pack.UnpackBytes(d, 0)
	return err == nil && len(out) == size
}

func byMeta(d raw.Reader, ext string, m disk.FileMeta) FormatTag {
	n := len(d)
	switch m.Platform {
	case disk.PlatformApple2:
		return appleByMeta(d, m)
	case disk.PlatformCPC:
		if n == cpcScreen || (n == cpcScreen+disk.AMSDOSHeaderSize && disk.IsAMSDOSHeader(d)) {
			return cpcTag(d)
		}
	case disk.PlatformC64:
		switch {
		case m.LoadAddr == 0x6000 && n >= koalaMin && n <= koalaMax:
			return C64Koala
		case m.LoadAddr == 0x2000 && n == artStudioLen:
			return C64ArtStudio
		}
	case disk.PlatformAtariST:
		if n == degasSize || n == degasAnimSize {
			return degasTag(d)
		}
	case disk.PlatformAmiga:
		if d.Match(0, "FORM") {
			return iffTag(d)
		}
	case disk.PlatformMSX:
		if t := platformExtension(d, ext, disk.PlatformMSX); t != Unknown {
			return t
		}
		return msxBySize(d)
	case disk.PlatformAtari8:
		if t := platformExtension(d, ext, disk.PlatformAtari8); t != Unknown {
			return t
		}
		return atariBySize(n)
	}
	return Unknown
}

// platformTags are the formats a bare platform can stand for. Filesystems
// that record nothing but the platform leave the choice to the extension.
var platformTags = map[disk.Platform][]FormatTag{
	disk.PlatformMSX:    {MSXScreen1, MSXScreen2, MSXScreen5, MSXScreen7, MSXScreen8},
	disk.PlatformAtari8: {Atari8GR8, Atari8GR9, Atari8GR10, Atari8GR11, Atari8GR15, Atari8MIC},
}

func platformExtension(d raw.Reader, ext string, p disk.Platform) FormatTag {
	t := byExtension(d, ext, disk.FileMeta{})
	for _, want := range platformTags[p] {
		if t == want {
			return t
		}
	}
	return Unknown
}

func appleByMeta(d raw.Reader, m disk.FileMeta) FormatTag {
	n := len(d)
	typ := disk.ProDOSFileType(m.ProDOSType)
	switch {
	case typ == disk.FileType_PD_FOT && m.ProDOSAux == auxPackedHGR && packedTo(d, hgrSize):
		return HGR
	case typ == disk.FileType_PD_FOT && m.ProDOSAux == auxPackedDHGR && packedTo(d, dhgrSize):
		return DHGR
	case typ == disk.FileType_PD_FOT || typ == disk.FileType_PD_BIN:
		if isHGRSize(n) {
			return HGR
		}
		if n == dhgrSize {
			return DHGR
		}
	case (typ == disk.FileType_PD_PNT || typ == disk.FileType_PD_PIC) && m.ProDOSAux == auxDreamGrafx:
		return dreamTag(d)
	case typ == disk.FileType_PD_PIC && m.ProDOSAux == 0 && n >= shrPixels+200+512:
		return SHRStandard
	case typ == disk.FileType_PD_PIC && m.ProDOSAux == aux3200 && n >= shr3200:
		return SHR3200
	case typ == disk.FileType_PD_PNT && m.ProDOSAux == auxPackedSHR && packedTo(d, shrSize):
		return SHRStandard
	case m.DOSType == "B" && m.HasLoad && (m.LoadAddr == 0x2000 || m.LoadAddr == 0x4000):
		if isHGRSize(n) {
			return HGR
		}
		if n == dhgrSize {
			return DHGR
		}
	}
	return Unknown
}

// extensions maps a file extension to the format it usually holds. Every
// candidate is checked against the data before it is accepted.
var extensions = map[string]FormatTag{
	".HGR":  HGR,
	".HGR2": HGR,
	".FOT":  HGR,
	".DHR":  DHGR,
	".DHGR": DHGR,
	".A2FC": DHGR,
	".SHR":  SHRStandard,
	".PIC":  SHRStandard,
	".PNT":  SHRStandard,
	".3200": SHR3200,
	".3201": SHR3200,
	".IFF":  IFFIndexed,
	".ILBM": IFFIndexed,
	".LBM":  IFFIndexed,
	".PI1":  DegasPI1,
	".PI2":  DegasPI2,
	".PI3":  DegasPI3,
	".PC1":  DegasPI1,
	".PC2":  DegasPI2,
	".PC3":  DegasPI3,
	".KOA":  C64Koala,
	".KLA":  C64Koala,
	".ART":  C64ArtStudio,
	".SCR":  ZXSCR,
	".CPC":  CPCMode1,
	".WIN":  CPCMode1,
	".PCX":  PCX,
	".BMP":  BMP,
	".MAC":  MacPaint,
	".PNTG": MacPaint,
	".SC1":  MSXScreen1,
	".SC2":  MSXScreen2,
	".GRP":  MSXScreen2,
	".SC5":  MSXScreen5,
	".GE5":  MSXScreen5,
	".SC7":  MSXScreen7,
	".GE7":  MSXScreen7,
	".SC8":  MSXScreen8,
	".GE8":  MSXScreen8,
	".GR8":  Atari8GR8,
	".GR9":  Atari8GR9,
	".GR1":  Atari8GR10,
	".G10":  Atari8GR10,
	".G11":  Atari8GR11,
	".G15":  Atari8GR15,
	".MIC":  Atari8MIC,
}

// cocoExtensions are TRS-80 Color Computer picture files, some of which
// share the Degas size.
var cocoExtensions = map[string]bool{".MAX": true, ".CC3": true, ".PIX": true, ".MGE": true}

func byExtension(d raw.Reader, ext string, _ disk.FileMeta) FormatTag {
	n := len(d)
	t, ok := extensions[ext]
	if !ok {
		return Unknown
	}
	switch t {
	case HGR:
		if isHGRSize(n) || packedTo(d, hgrSize) {
			return HGR
		}
	case DHGR:
		if n == dhgrSize || packedTo(d, dhgrSize) {
			return DHGR
		}
	case SHRStandard:
		switch {
		case dreamGrafix(d) >= 0:
			return dreamTag(d)
		case n == shrSize || packedTo(d, shrSize):
			return SHRStandard
		}
	case SHR3200:
		if n == shr3200 || (d.Match(0, "APP\x00") && n > 4+6400) || dreamGrafix(d) == 1 {
			return SHR3200
		}
	case IFFIndexed:
		return iffTag(d)
	case DegasPI1, DegasPI2, DegasPI3:
		if res, _, err := degasResolution(d); err == nil && n > degasHeader && res == int(t-DegasPI1) {
			return t
		}
	case C64Koala:
		if n >= koalaMin && n <= koalaMax {
			return t
		}
	case C64ArtStudio:
		if n == artStudioLen {
			return t
		}
	case ZXSCR:
		switch {
		case n == zxSize:
			return ZXSCR
		case isCPCScreen(d):
			return cpcTag(d)
		}
	case CPCMode1:
		if isCPCScreen(d) {
			return cpcTag(d)
		}
	case PCX, BMP:
		return byMagic(d, ext, disk.FileMeta{})
	case MacPaint:
		if isMacPaint(d) {
			return MacPaint
		}
	case MSXScreen1, MSXScreen2, MSXScreen5, MSXScreen7, MSXScreen8:
		if msxBySize(d) != Unknown {
			return t
		}
	case Atari8GR8, Atari8GR9, Atari8GR10, Atari8GR11, Atari8GR15, Atari8MIC:
		if atariBySize(n) != Unknown {
			return t
		}
	}
	return Unknown
}

func byMagic(d raw.Reader, ext string, _ disk.FileMeta) FormatTag {
	switch {
	case d.Byte(0) == 0x0a && isPCX(d):
		return PCX
	case d.Match(0, "BM"):
		if _, err := parseBMP(d); err == nil {
			return BMP
		}
	case d.Match(0, "FORM"):
		return iffTag(d)
	case d.Match(0, "APP\x00") && len(d) > 4+6400:
		return SHR3200
	case dreamGrafix(d) >= 0:
		return dreamTag(d)
	case isMacBinaryPaint(d):
		if isMacPaint(d) {
			return MacPaint
		}
	case d.Byte(0) == bsaveMagic:
		return msxBySize(d)
	case disk.IsAMSDOSHeader(d):
		if isCPCScreen(d) {
			return cpcTag(d)
		}
	}
	return Unknown
}

func bySize(d raw.Reader, ext string, _ disk.FileMeta) FormatTag {
	n := len(d)
	switch {
	case isHGRSize(n):
		return HGR
	case n == dhgrSize:
		return DHGR
	case n == cpcScreen+disk.AMSDOSHeaderSize && disk.IsAMSDOSHeader(d):
		return cpcTag(d)
	case n == shrSize:
		return SHRStandard
	case n == shr3200:
		return SHR3200
	case (n == degasSize || n == degasAnimSize) && !cocoExtensions[ext]:
		return degasTag(d)
	case n >= koalaMin && n <= koalaMax:
		return C64Koala
	case n == artStudioLen:
		return C64ArtStudio
	case n == zxSize:
		return ZXSCR
	case n == bbcLarge:
		return BBCMode1
	case n == bbcSmall:
		return BBCMode5
	}
	if t := atariBySize(n); t != Unknown {
		return t
	}
	switch {
	case packedTo(d, hgrSize):
		return HGR
	case packedTo(d, dhgrSize):
		return DHGR
	case packedTo(d, shrSize):
		return SHRStandard
	}
	return Unknown
}

func isPCX(d raw.Reader) bool {
	switch d.Byte(1) {
	case 0, 2, 3, 4, 5:
	default:
		return false
	}
	if d.Byte(2) > 1 {
		return false
	}
	_, err := parsePCX(d)
	return err == nil
}

// isMacPaint needs the header version word and enough PackBits data for
// every row.
func isMacPaint(d raw.Reader) bool {
	body, err := macPaintBody(d)
	return err == nil && len(body) == macPaintRow*macPaintHeight
}

func isCPCScreen(d raw.Reader) bool {
	if len(d) == cpcScreen {
		return true
	}
	return len(d) == cpcScreen+disk.AMSDOSHeaderSize && disk.IsAMSDOSHeader(d)
}

// cpcTag picks the mode from the screen marker, defaulting to mode 1.
func cpcTag(d raw.Reader) FormatTag {
	scr, err := cpcBody(d)
	if err != nil {
		return Unknown
	}
	if mode, _, ok := cpcMarkerMode(scr); ok && mode == 0 {
		return CPCMode0
	}
	return CPCMode1
}

func iffTag(d raw.Reader) FormatTag {
	img, err := parseILBM(d)
	if err != nil {
		return Unknown
	}
	switch img.ham() {
	case 6:
		return IFFHAM6
	case 8:
		return IFFHAM8
	}
	return IFFIndexed
}

func degasTag(d raw.Reader) FormatTag {
	res, _, err := degasResolution(d)
	if err != nil || res > 2 {
		return Unknown
	}
	return DegasPI1 + FormatTag(res)
}

func dreamTag(d raw.Reader) FormatTag {
	switch dreamGrafix(d) {
	case 0:
		return SHRStandard
	case 1:
		return SHR3200
	}
	return Unknown
}

// msxBySize places MSX files by their BSAVE end address, or by length for
// raw VRAM dumps.
func msxBySize(d raw.Reader) FormatTag {
	if d.Byte(0) == bsaveMagic {
		start, end, ok := bsave(d)
		if !ok || start != 0 {
			return Unknown
		}
		switch {
		case end >= sc7Palette+31:
			return MSXScreen7
		case end >= 0xbfff:
			return MSXScreen8
		case end >= 0x5fff:
			return MSXScreen5
		case end >= 0x37ff:
			return MSXScreen2
		case end >= 0x201f:
			return MSXScreen1
		}
		return Unknown
	}
	switch n := len(d); {
	case n >= 0x37ff && n <= 0x4000:
		return MSXScreen2
	case n >= 0x6000 && n <= 0x8000:
		return MSXScreen5
	case n >= 0xc000 && n < 0x10000:
		return MSXScreen8
	case n == 0x10000:
		return MSXScreen7
	}
	return Unknown
}

// atariBySize matches a 7680 byte screen with 0, 1, 4, 5 or 9 register
// bytes after it.
func atariBySize(n int) FormatTag {
	switch n - atariScreen {
	case 0, 1:
		return Atari8GR15
	case 4, 5:
		return Atari8MIC
	case 9:
		return Atari8GR10
	}
	return Unknown
}
