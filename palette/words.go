package palette

// Nibble widens a 4-bit channel to 8 bits.
func Nibble(v byte) uint8 {
	return (v & 0x0f) * 17
}

// Scale3 widens a 3-bit channel to 8 bits.
func Scale3(v byte) uint8 {
	return uint8((int(v&7)*255 + 3) / 7)
}

// IIGS decodes an Apple IIgs colour word stored little endian as
// GGGGBBBB 0000RRRR.
func IIGS(lo, hi byte) RGB {
	return RGB{Nibble(hi), Nibble(lo >> 4), Nibble(lo)}
}

// AtariST decodes a ST/STE colour word 0000 RRRR GGGG BBBB where each nibble
// holds three ST bits and the STE low bit in bit 3.
func AtariST(word int) RGB {
	ch := func(v int) uint8 {
		v &= 0xf
		return Nibble(byte(((v & 7) << 1) | (v >> 3)))
	}
	return RGB{ch(word >> 8), ch(word >> 4), ch(word)}
}

// MSX2 decodes a V9938 palette register pair 0RRR0BBB 00000GGG.
func MSX2(b0, b1 byte) RGB {
	return RGB{Scale3(b0 >> 4), Scale3(b1), Scale3(b0)}
}
