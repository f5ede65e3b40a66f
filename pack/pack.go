// Package pack holds the run-length and dictionary decompressors used by the
// picture formats: PCX RLE, PackBits, Apple IIgs PackBytes and the LZW
// variant written by DreamGrafix.
//
// Every routine writes at most the requested number of bytes and reports
// raw.ErrTruncated when the input runs out first.
package pack

import (
	"fmt"

	"github.com/paleotronic/picm8/raw"
)

func short(have, want, pos int) error {
	return fmt.Errorf("need %d bytes, decoded %d at input offset %d: %w", want, have, pos, raw.ErrTruncated)
}

// UnpackPCX expands ZSoft RLE. A byte with the top two bits set is a run
// count (low six bits) for the byte that follows; anything else is a literal.
// It returns the decoded bytes and the number of input bytes consumed.
func UnpackPCX(src []byte, want int) ([]byte, int, error) {
	out := make([]byte, 0, want)
	pos := 0
	for len(out) < want {
		if pos >= len(src) {
			return out, pos, short(len(out), want, pos)
		}
		val := src[pos]
		pos++
		run := 1
		if val >= 0xc0 {
			run = int(val & 0x3f)
			if pos >= len(src) {
				return out, pos, short(len(out), want, pos)
			}
			val = src[pos]
			pos++
		}
		for ; run > 0 && len(out) < want; run-- {
			out = append(out, val)
		}
	}
	return out, pos, nil
}

// UnpackBits expands Apple PackBits (also IFF ByteRun1). A signed header n in
// 0..127 copies n+1 literals, -127..-1 repeats the next byte 1-n times and
// -128 is a no-op.
func UnpackBits(src []byte, want int) ([]byte, int, error) {
	out := make([]byte, 0, want)
	pos := 0
	for len(out) < want {
		if pos >= len(src) {
			return out, pos, short(len(out), want, pos)
		}
		n := int(int8(src[pos]))
		pos++
		switch {
		case n >= 0:
			count := n + 1
			if pos+count > len(src) {
				return out, pos, short(len(out), want, pos)
			}
			if len(out)+count > want {
				count = want - len(out)
			}
			out = append(out, src[pos:pos+count]...)
			pos += n + 1
		case n == -128:
		default:
			if pos >= len(src) {
				return out, pos, short(len(out), want, pos)
			}
			v := src[pos]
			pos++
			for run := 1 - n; run > 0 && len(out) < want; run-- {
				out = append(out, v)
			}
		}
	}
	return out, pos, nil
}

// UnpackBytes expands Apple IIgs PackBytes. The flag byte's top two bits pick
// the mode and the low six bits hold count-1:
//
//	00  count literal bytes
//	01  one byte repeated count times
//	10  four bytes repeated count times
//	11  one byte repeated count*4 times
//
// Decoding stops at want bytes or at the end of src; want <= 0 means
// unbounded. A short result is an error only when want > 0.
func UnpackBytes(src []byte, want int) ([]byte, error) {
	limit := want
	if limit <= 0 {
		limit = int(^uint(0) >> 1)
	}
	out := make([]byte, 0, max(want, 0))
	pos := 0
	for pos < len(src) && len(out) < limit {
		flag := src[pos]
		pos++
		count := int(flag&0x3f) + 1
		switch flag >> 6 {
		case 0:
			if pos+count > len(src) {
				return out, short(len(out), want, pos)
			}
			out = append(out, src[pos:pos+count]...)
			pos += count
		case 1, 3:
			if pos >= len(src) {
				return out, short(len(out), want, pos)
			}
			if flag>>6 == 3 {
				count *= 4
			}
			v := src[pos]
			pos++
			for i := 0; i < count; i++ {
				out = append(out, v)
			}
		case 2:
			if pos+4 > len(src) {
				return out, short(len(out), want, pos)
			}
			quad := src[pos : pos+4]
			pos += 4
			for i := 0; i < count; i++ {
				out = append(out, quad...)
			}
		}
	}
	if want > 0 {
		if len(out) < want {
			return out, short(len(out), want, pos)
		}
		out = out[:want]
	}
	return out, nil
}
