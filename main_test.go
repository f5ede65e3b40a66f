package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/paleotronic/picm8/palette"
	"github.com/paleotronic/picm8/picture"
	"github.com/paleotronic/picm8/store"
	"github.com/stretchr/testify/require"
)

const d64Bytes = 174848

// d64Offset locates a sector on a 35 track D64.
func d64Offset(t, s int) int {
	n := s
	for i := 1; i < t; i++ {
		switch {
		case i <= 17:
			n += 21
		case i <= 24:
			n += 19
		case i <= 30:
			n += 18
		default:
			n += 17
		}
	}
	return n * 256
}

func petsciiName(s string) []byte {
	out := bytes.Repeat([]byte{0xa0}, 16)
	copy(out, s)
	return out
}

// koalaDisk builds a D64 holding one blank Koala picture loaded at $6000.
func koalaDisk() []byte {
	data := make([]byte, d64Bytes)
	h := data[d64Offset(18, 0):]
	h[0], h[1] = 18, 1
	copy(h[0x90:], petsciiName("ART"))

	dir := data[d64Offset(18, 1):]
	dir[0], dir[1] = 0, 0xff
	dir[2] = 0x82
	dir[3], dir[4] = 17, 0
	copy(dir[5:21], petsciiName("KOALA PIC"))

	body := make([]byte, 10003)
	body[0], body[1] = 0x00, 0x60

	var chain [][2]int
	for s := 0; s < 21; s++ {
		chain = append(chain, [2]int{17, s})
	}
	for s := 0; len(chain) < 40; s++ {
		chain = append(chain, [2]int{16, s})
	}
	for i, ts := range chain {
		sec := data[d64Offset(ts[0], ts[1]):]
		part := body[i*254:]
		if i == len(chain)-1 {
			sec[0], sec[1] = 0, byte(len(part)+1)
		} else {
			sec[0], sec[1] = byte(chain[i+1][0]), byte(chain[i+1][1])
			part = part[:254]
		}
		copy(sec[2:], part)
	}
	return data
}

func TestSmartSplit(t *testing.T) {
	verb, args := smartSplit(`mount "My Disk.dsk"`)
	require.Equal(t, "mount", verb)
	require.Equal(t, []string{"My Disk.dsk"}, args)

	verb, args = smartSplit(`open KOALA\ PIC C64-Koala`)
	require.Equal(t, "open", verb)
	require.Equal(t, []string{"KOALA PIC", "C64-Koala"}, args)

	verb, args = smartSplit("   ")
	require.Empty(t, verb)
	require.Empty(t, args)
}

func TestParseColorEdit(t *testing.T) {
	p, c, rgb, err := parseColorEdit("3:15=#ff8000")
	require.NoError(t, err)
	require.Equal(t, 3, p)
	require.Equal(t, 15, c)
	require.Equal(t, palette.RGB{R: 0xff, G: 0x80}, rgb)

	p, c, rgb, err = parseColorEdit("7=00FF00")
	require.NoError(t, err)
	require.Zero(t, p)
	require.Equal(t, 7, c)
	require.Equal(t, palette.RGB{G: 0xff}, rgb)

	for _, bad := range []string{"", "7", "a:1=#000000", "1:b=#000000", "1=#fff", "1=#gggggg"} {
		_, _, _, err := parseColorEdit(bad)
		require.Error(t, err, bad)
	}
}

func TestFormatTagFlag(t *testing.T) {
	tag, err := formatTag("")
	require.NoError(t, err)
	require.Equal(t, picture.Unknown, tag)

	tag, err = formatTag("shr-3200")
	require.NoError(t, err)
	require.Equal(t, picture.SHR3200, tag)

	_, err = formatTag("JPEG")
	require.ErrorContains(t, err, "HGR")
}

func TestStandaloneSource(t *testing.T) {
	s := newSource("pic.hgr", make([]byte, 8192))
	require.False(t, s.IsDisk())

	parts := s.Pictures()
	require.Len(t, parts, 1)
	require.Equal(t, picture.HGR, parts[0].Tag)
	require.Empty(t, parts[0].Entry)

	_, err := s.Picture("PIC")
	require.Error(t, err)

	require.Empty(t, newSource("notes.txt", []byte("hello")).Pictures())
}

func TestDiskSource(t *testing.T) {
	s := newSource("art.d64", koalaDisk())
	require.True(t, s.IsDisk())
	require.Equal(t, "ART", s.Catalog.DiskName)

	parts := s.Pictures()
	require.Len(t, parts, 1)
	require.Equal(t, picture.C64Koala, parts[0].Tag)
	require.Equal(t, "KOALA PIC", parts[0].Entry)

	_, err := s.Picture("")
	require.ErrorContains(t, err, "--entry")
	_, err = s.Picture("MISSING")
	require.Error(t, err)

	p, err := s.Picture("koala pic")
	require.NoError(t, err)
	doc, err := openPart(p, "")
	require.NoError(t, err)
	require.Equal(t, picture.C64Koala, doc.Format())

	var out bytes.Buffer
	printCatalog(&out, s.Catalog, "KOALA*", true)
	require.Contains(t, out.String(), "C64-Koala")
	require.Contains(t, out.String(), "(A$6000)")
}

func TestExtractCatalog(t *testing.T) {
	s := newSource("art.d64", koalaDisk())
	dir := t.TempDir()

	n, err := extractCatalog(s.Catalog, dir, true, false)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	b, err := os.ReadFile(filepath.Join(dir, "KOALA PIC"))
	require.NoError(t, err)
	require.Len(t, b, 10003)

	n, err = extractCatalog(s.Catalog, dir, true, true)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.FileExists(t, filepath.Join(dir, "KOALA PIC.png"))
}

func TestIngestAndReport(t *testing.T) {
	dir := t.TempDir()
	screen := make([]byte, 6912)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.scr"), screen, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.scr"), screen, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "art.d64"), koalaDisk(), 0644))

	st, err := store.Open(filepath.Join(t.TempDir(), "picm8.db"))
	require.NoError(t, err)
	defer st.Close()

	ing := newIngestor(st, 2, false)
	require.NoError(t, ing.walk(dir))
	require.Equal(t, 1, ing.disks)
	require.Equal(t, 1, ing.skipped)
	require.Zero(t, ing.errorcount)
	require.Equal(t, 2, ing.out[picture.ZXSCR])
	require.Equal(t, 1, ing.out[picture.C64Koala])

	images, err := st.Search(store.Query{})
	require.NoError(t, err)
	require.Len(t, images, 3)

	koala, err := st.Search(store.Query{Format: "c64-koala"})
	require.NoError(t, err)
	require.Len(t, koala, 1)
	require.Equal(t, "c64", koala[0].Platform)
	require.Equal(t, 320, koala[0].Width)

	var report bytes.Buffer
	require.NoError(t, dupeReport(&report, st))
	require.Contains(t, report.String(), "duplicated 2 times")
	require.Contains(t, report.String(), "1 pictures with duplicates")

	again := newIngestor(st, 2, false)
	require.NoError(t, again.walk(dir))
	require.Equal(t, 1, again.unchanged)
	images, err = st.Search(store.Query{})
	require.NoError(t, err)
	require.Len(t, images, 3)

	require.NoError(t, statsReport(io.Discard, st))

	out := filepath.Join(t.TempDir(), "koala.bin")
	require.NoError(t, exportImage(st, koala[0].ID, out, false))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, b, 10003)
}

func TestIngestSkipsUndecodablePictures(t *testing.T) {
	dir := t.TempDir()
	// a PCX header with no pixel data
	hdr := make([]byte, 128)
	hdr[0], hdr[1], hdr[3] = 0x0a, 5, 8
	hdr[8], hdr[10], hdr[65], hdr[66] = 7, 3, 1, 8
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.pcx"), hdr, 0644))

	st, err := store.Open(filepath.Join(t.TempDir(), "picm8.db"))
	require.NoError(t, err)
	defer st.Close()

	ing := newIngestor(st, 1, false)
	require.NoError(t, ing.walk(dir))
	require.Equal(t, 1, ing.in[picture.PCX])
	require.Zero(t, ing.out[picture.PCX])
	require.Equal(t, 1, ing.skipped)
	require.Zero(t, ing.errorcount)

	images, err := st.Search(store.Query{})
	require.NoError(t, err)
	require.Empty(t, images)

	var report bytes.Buffer
	ing.report(&report)
	require.Contains(t, report.String(), "1 files skipped")
}

func TestShellCommandsAreDocumented(t *testing.T) {
	for name, cmd := range commandList {
		require.Equal(t, name, cmd.Name)
		require.NotEmpty(t, cmd.Description, name)
		require.NotNil(t, cmd.Code, name)
	}
	require.Equal(t, 999, shellProcess("quit"))
	require.Equal(t, -1, shellProcess("frobnicate"))
	require.Equal(t, -1, shellProcess("palette"))
}
