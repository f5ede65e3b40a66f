package disk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func petName(s string) []byte {
	out := bytes.Repeat([]byte{cbmPadding}, 16)
	copy(out, s)
	return out
}

type d64Builder struct {
	c *cbmImage
}

func newD64() *d64Builder {
	c := &cbmImage{data: make([]byte, d64Size), format: GetDiskFormat(DF_D64), tracks: 35}
	b := &d64Builder{c: c}
	h := b.sector(18, 0)
	h[0], h[1] = 18, 1
	h[2] = 'A'
	copy(h[0x90:], petName("GRAPHICS"))
	dir := b.sector(18, 1)
	dir[0], dir[1] = 0, 0xff
	return b
}

func (b *d64Builder) sector(t, s int) []byte {
	sec, err := b.c.sector(t, s)
	if err != nil {
		panic(err)
	}
	return sec
}

func (b *d64Builder) entry(slot int, kind byte, name string, t, s int) {
	e := b.sector(18, 1)[slot*cbmEntrySize:]
	e[2] = kind
	e[3], e[4] = byte(t), byte(s)
	copy(e[5:21], petName(name))
}

func TestCBMReadsPRG(t *testing.T) {
	b := newD64()
	b.entry(0, 0x82, "KOALA PIC", 17, 0)
	first := b.sector(17, 0)
	first[0], first[1] = 17, 1
	first[2], first[3] = 0x00, 0x60
	for i := 4; i < 256; i++ {
		first[i] = byte(i)
	}
	last := b.sector(17, 1)
	last[0], last[1] = 0, 11
	copy(last[2:], "0123456789")

	b.entry(1, 0x00, "SCRATCHED", 17, 2)
	b.entry(2, 0xc1, "NOTES", 17, 3)
	notes := b.sector(17, 3)
	notes[0], notes[1] = 0, 3
	notes[2], notes[3] = 'h', 'i'

	r, cat, err := Identify(b.c.data, "art.d64")
	require.NoError(t, err)
	require.Equal(t, "CBM DOS", r.Name())
	require.Equal(t, DF_D64, cat.DiskFormat.ID)
	require.Equal(t, "GRAPHICS", cat.DiskName)
	require.Equal(t, 2, cat.TotalFiles)

	e := cat.Find("KOALA PIC")
	require.NotNil(t, e)
	require.Len(t, e.Data, 254+10)
	require.Equal(t, "PRG", e.Meta.DOSType)
	require.True(t, e.Meta.HasLoad)
	require.Equal(t, 0x6000, e.Meta.LoadAddr)
	require.Equal(t, PlatformC64, e.Meta.Platform)
	require.Equal(t, "0123456789", string(e.Data[254:]))

	n := cat.Find("NOTES")
	require.NotNil(t, n)
	require.Equal(t, "hi", string(n.Data))
	require.Equal(t, "SEQ", n.Meta.DOSType)
	require.True(t, n.Meta.Locked)
	require.False(t, n.Meta.HasLoad)
}

func TestCBMSectorChainLoop(t *testing.T) {
	b := newD64()
	b.entry(0, 0x82, "LOOP", 17, 0)
	s0 := b.sector(17, 0)
	s0[0], s0[1] = 17, 1
	s1 := b.sector(17, 1)
	s1[0], s1[1] = 17, 0

	_, cat, err := Identify(b.c.data, "")
	require.NoError(t, err)
	require.Zero(t, cat.TotalFiles)
	require.Len(t, cat.Skipped, 1)
}

func TestCBMSectorOffsets(t *testing.T) {
	c := &cbmImage{data: make([]byte, d71Size), format: GetDiskFormat(DF_D71), tracks: 70}
	c.data[357*cbmSectorSize] = 1
	c.data[(683+357)*cbmSectorSize] = 2

	s, err := c.sector(18, 0)
	require.NoError(t, err)
	require.Equal(t, byte(1), s[0])

	s, err = c.sector(53, 0)
	require.NoError(t, err)
	require.Equal(t, byte(2), s[0])

	_, err = c.sector(18, 19)
	require.ErrorIs(t, err, ErrInvalidHeader)
}
