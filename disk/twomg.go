package disk

import "github.com/paleotronic/picm8/raw"

/*
	2MG container unwrapping
*/

const PREAMBLE_2MG_SIZE = 0x40

const MAGIC_2MG = "2IMG"

const (
	format2MGDOS    = 0
	format2MGProDOS = 1
	format2MGNibble = 2
)

type Header2MG struct {
	Data raw.Reader
}

func (h *Header2MG) GetID() string {
	s, _ := h.Data.Str(0x00, 4)
	return s
}

func (h *Header2MG) GetCreatorID() string {
	s, _ := h.Data.Str(0x04, 4)
	return s
}

func (h *Header2MG) GetHeaderSize() int {
	v, _ := h.Data.U16LE(0x08)
	return v
}

func (h *Header2MG) GetImageFormat() int {
	v, _ := h.Data.U32LE(0x0c)
	return int(v)
}

func (h *Header2MG) GetProDOSBlocks() int {
	v, _ := h.Data.U32LE(0x14)
	return int(v)
}

func (h *Header2MG) GetDiskDataStart() int {
	v, _ := h.Data.U32LE(0x18)
	return int(v)
}

func (h *Header2MG) GetDiskDataLength() int {
	v, _ := h.Data.U32LE(0x1c)
	return int(v)
}

// Is2MG strips a 2MG header and reports the sector order of the body.
func Is2MG(data []byte) (bool, []byte, SectorOrder) {
	h := &Header2MG{Data: data}
	if len(data) < PREAMBLE_2MG_SIZE || h.GetID() != MAGIC_2MG {
		return false, nil, SectorOrderDOS33
	}
	start := h.GetDiskDataStart()
	size := h.GetDiskDataLength()
	if start < PREAMBLE_2MG_SIZE || start > len(data) {
		return false, nil, SectorOrderDOS33
	}
	if size <= 0 || size > len(data)-start {
		size = len(data) - start
	}
	body := data[start : start+size]
	switch h.GetImageFormat() {
	case format2MGDOS:
		return true, body, SectorOrderDOS33
	case format2MGProDOS:
		return true, body, SectorOrderProDOSLinear
	}
	return false, nil, SectorOrderDOS33
}

// appleImages lists the ways data can be read as an Apple II image, most
// likely first.
func appleImages(data []byte, layouts ...SectorOrder) []*DSKWrapper {
	if ok, body, layout := Is2MG(data); ok {
		if len(body) == 0 || len(body)%PRODOS_BLOCK_SIZE != 0 {
			return nil
		}
		return []*DSKWrapper{NewDSKWrapper(body, layout)}
	}
	if !isAppleSize(len(data)) {
		return nil
	}
	switch len(data) {
	case STD_DISK_BYTES_OLD:
		return []*DSKWrapper{NewDSKWrapper(data, SectorOrderDOS33)}
	case PRODOS_400KB_DISK_BYTES, PRODOS_800KB_DISK_BYTES:
		return []*DSKWrapper{NewDSKWrapper(data, SectorOrderProDOSLinear)}
	}
	out := make([]*DSKWrapper, 0, len(layouts))
	for _, l := range layouts {
		out = append(out, NewDSKWrapper(data, l))
	}
	return out
}
