package disk

import (
	"github.com/paleotronic/picm8/raw"
)

const STD_BYTES_PER_SECTOR = 256
const STD_TRACKS_PER_DISK = 35
const STD_SECTORS_PER_TRACK = 16
const STD_SECTORS_PER_TRACK_OLD = 13
const STD_DISK_BYTES = STD_TRACKS_PER_DISK * STD_SECTORS_PER_TRACK * STD_BYTES_PER_SECTOR
const STD_DISK_BYTES_OLD = STD_TRACKS_PER_DISK * STD_SECTORS_PER_TRACK_OLD * STD_BYTES_PER_SECTOR
const PRODOS_BLOCK_SIZE = 512
const PRODOS_800KB_BLOCKS = 1600
const PRODOS_800KB_DISK_BYTES = PRODOS_BLOCK_SIZE * PRODOS_800KB_BLOCKS
const PRODOS_400KB_BLOCKS = 800
const PRODOS_400KB_DISK_BYTES = PRODOS_BLOCK_SIZE * PRODOS_400KB_BLOCKS
const PRODOS_BLOCKS_PER_TRACK = 8
const PRODOS_BLOCKS_PER_DISK = 280
const PRODOS_ENTRY_SIZE = 39

// SectorOrder is the order 256 byte sectors are stored within a track of an
// image file.
type SectorOrder int

const (
	SectorOrderDOS33 SectorOrder = iota
	SectorOrderDOS33Alt
	SectorOrderProDOS
	SectorOrderProDOSLinear
)

func (so SectorOrder) String() string {
	switch so {
	case SectorOrderDOS33:
		return "DOS"
	case SectorOrderDOS33Alt:
		return "DOS Alternate"
	case SectorOrderProDOS:
		return "ProDOS"
	}
	return "Linear"
}

// sector position within the track for each requested sector, per order.
var sectorMaps = map[SectorOrder][16]int{
	SectorOrderDOS33:        {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	SectorOrderDOS33Alt:     {0, 7, 14, 6, 13, 5, 12, 4, 11, 3, 10, 2, 9, 1, 8, 15},
	SectorOrderProDOS:       {0, 2, 4, 6, 8, 10, 12, 14, 1, 3, 5, 7, 9, 11, 13, 15},
	SectorOrderProDOSLinear: {0, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 15},
}

// the two DOS sectors that hold each ProDOS block of a track
var blockSectors = [PRODOS_BLOCKS_PER_TRACK][2]int{
	{0x0, 0xe}, {0xd, 0xc}, {0xb, 0xa}, {0x9, 0x8},
	{0x7, 0x6}, {0x5, 0x4}, {0x3, 0x2}, {0x1, 0xf},
}

// DSKWrapper gives track/sector and block access to an Apple II image.
type DSKWrapper struct {
	Data            raw.Reader
	Layout          SectorOrder
	Format          DiskFormat
	SectorsPerTrack int
	CurrentTrack    int
	CurrentSector   int
	SectorPointer   int
}

func NewDSKWrapper(data []byte, layout SectorOrder) *DSKWrapper {
	d := &DSKWrapper{
		Data:            data,
		Layout:          layout,
		SectorsPerTrack: STD_SECTORS_PER_TRACK,
	}
	if len(data) == STD_DISK_BYTES_OLD {
		d.SectorsPerTrack = STD_SECTORS_PER_TRACK_OLD
	}
	return d
}

func (d *DSKWrapper) Tracks() int {
	return len(d.Data) / (d.SectorsPerTrack * STD_BYTES_PER_SECTOR)
}

func (d *DSKWrapper) SetTrack(t int) error {
	if t >= 0 && t < d.Tracks() {
		d.CurrentTrack = t
		d.SetSectorPointer()
		return nil
	}
	return &ReadError{Filesystem: "apple", Offset: -1, Reason: "invalid track", Err: ErrInvalidHeader}
}

// SetSector changes the sector we are looking at
func (d *DSKWrapper) SetSector(s int) error {
	if s >= 0 && s < d.SectorsPerTrack {
		d.CurrentSector = s
		d.SetSectorPointer()
		return nil
	}
	return &ReadError{Filesystem: "apple", Offset: -1, Reason: "invalid sector", Err: ErrInvalidHeader}
}

// SetSectorPointer calculates the pointer to the current sector, taking into
// account the sector interleaving of the image.
func (d *DSKWrapper) SetSectorPointer() {
	isector := d.CurrentSector
	if d.SectorsPerTrack == STD_SECTORS_PER_TRACK {
		isector = sectorMaps[d.Layout][d.CurrentSector]
	}
	d.SectorPointer = (d.CurrentTrack*d.SectorsPerTrack + isector) * STD_BYTES_PER_SECTOR
}

// Seek is a convienience function to go straight to a particular track & sector
func (d *DSKWrapper) Seek(t, s int) error {
	if err := d.SetTrack(t); err != nil {
		return err
	}
	return d.SetSector(s)
}

// Read returns the current sector.
func (d *DSKWrapper) Read() ([]byte, error) {
	return d.Data.Slice(d.SectorPointer, STD_BYTES_PER_SECTOR)
}

func (d *DSKWrapper) ReadSector(t, s int) ([]byte, error) {
	if err := d.Seek(t, s); err != nil {
		return nil, err
	}
	return d.Read()
}

// Blocks is the number of 512 byte blocks in the image.
func (d *DSKWrapper) Blocks() int {
	return len(d.Data) / PRODOS_BLOCK_SIZE
}

// GetBlock returns ProDOS block b. Images bigger than a 5.25" disk are
// always in block order.
func (d *DSKWrapper) GetBlock(b int) ([]byte, error) {
	if b < 0 || b >= d.Blocks() {
		return nil, &ReadError{Filesystem: "apple", Offset: b * PRODOS_BLOCK_SIZE, Reason: "block out of range", Err: ErrInvalidHeader}
	}
	if len(d.Data) != STD_DISK_BYTES {
		return d.Data.Slice(b*PRODOS_BLOCK_SIZE, PRODOS_BLOCK_SIZE)
	}
	track := b / PRODOS_BLOCKS_PER_TRACK
	pair := blockSectors[b%PRODOS_BLOCKS_PER_TRACK]
	out := make([]byte, 0, PRODOS_BLOCK_SIZE)
	for _, s := range pair {
		chunk, err := d.ReadSector(track, s)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// PokeToAscii turns an Apple II screen code into its ASCII character.
func PokeToAscii(v byte) rune {
	v &= 0x7f
	if v < 0x20 {
		return rune(v + 0x40)
	}
	return rune(v)
}

func appleString(b []byte) string {
	out := make([]rune, 0, len(b))
	for _, v := range b {
		out = append(out, PokeToAscii(v))
	}
	return string(out)
}

// appleSizes are the image sizes the Apple readers accept after any
// container header is removed.
func isAppleSize(n int) bool {
	switch n {
	case STD_DISK_BYTES, STD_DISK_BYTES_OLD, PRODOS_400KB_DISK_BYTES, PRODOS_800KB_DISK_BYTES:
		return true
	}
	return false
}
