package disk

import "fmt"

type DiskFormatID int

const (
	DF_NONE DiskFormatID = iota
	DF_DOS_SECTORS_13
	DF_DOS_SECTORS_16
	DF_PRODOS
	DF_PRODOS_800KB
	DF_PASCAL
	DF_RDOS_3
	DF_RDOS_32
	DF_RDOS_33
	DF_PRODOS_400KB
	DF_PRODOS_CUSTOM
	DF_FAT12_MSX
	DF_FAT12_ATARIST
	DF_FAT12_PC
	DF_AMIGA_OFS
	DF_AMIGA_FFS
	DF_CPC_DATA
	DF_CPC_SYSTEM
	DF_CPC_IBM
	DF_ATARI_DOS2
	DF_ATARI_DOS25
	DF_D64
	DF_D71
	DF_D81
)

// DiskFormat identifies a filesystem. Blocks is only set for ProDOS
// volumes whose size is not one of the standard ones.
type DiskFormat struct {
	ID     DiskFormatID
	Blocks int
}

func GetDiskFormat(id DiskFormatID) DiskFormat {
	return DiskFormat{ID: id}
}

func GetPDDiskFormat(id DiskFormatID, blocks int) DiskFormat {
	return DiskFormat{ID: id, Blocks: blocks}
}

func (f DiskFormat) String() string {
	switch f.ID {
	case DF_DOS_SECTORS_13:
		return "Apple DOS 13 Sector"
	case DF_DOS_SECTORS_16:
		return "Apple DOS 16 Sector"
	case DF_PRODOS:
		return "ProDOS"
	case DF_PASCAL:
		return "Pascal"
	case DF_PRODOS_400KB:
		return "ProDOS 400Kb"
	case DF_PRODOS_800KB:
		return "ProDOS 800Kb"
	case DF_RDOS_3:
		return "SSI RDOS 3 (16/13/Physical)"
	case DF_RDOS_32:
		return "SSI RDOS 32 (13/13/Physical)"
	case DF_RDOS_33:
		return "SSI RDOS 33 (16/16/PD)"
	case DF_PRODOS_CUSTOM:
		return fmt.Sprintf("ProDOS Custom (%d blocks)", f.Blocks)
	case DF_FAT12_MSX:
		return "MSX-DOS FAT12"
	case DF_FAT12_ATARIST:
		return "Atari ST TOS FAT12"
	case DF_FAT12_PC:
		return "PC FAT12"
	case DF_AMIGA_OFS:
		return "AmigaDOS OFS"
	case DF_AMIGA_FFS:
		return "AmigaDOS FFS"
	case DF_CPC_DATA:
		return "AMSDOS Data"
	case DF_CPC_SYSTEM:
		return "AMSDOS System"
	case DF_CPC_IBM:
		return "CP/M IBM"
	case DF_ATARI_DOS2:
		return "Atari DOS 2.0"
	case DF_ATARI_DOS25:
		return "Atari DOS 2.5"
	case DF_D64:
		return "CBM DOS D64"
	case DF_D71:
		return "CBM DOS D71"
	case DF_D81:
		return "CBM DOS D81"
	}
	return "Unrecognized"
}

// Platform is the machine that writes this filesystem.
func (f DiskFormat) Platform() Platform {
	switch f.ID {
	case DF_NONE:
		return PlatformNone
	case DF_FAT12_MSX:
		return PlatformMSX
	case DF_FAT12_ATARIST:
		return PlatformAtariST
	case DF_FAT12_PC:
		return PlatformPC
	case DF_AMIGA_OFS, DF_AMIGA_FFS:
		return PlatformAmiga
	case DF_CPC_DATA, DF_CPC_SYSTEM, DF_CPC_IBM:
		return PlatformCPC
	case DF_ATARI_DOS2, DF_ATARI_DOS25:
		return PlatformAtari8
	case DF_D64, DF_D71, DF_D81:
		return PlatformC64
	}
	return PlatformApple2
}
