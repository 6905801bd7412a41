package charset

// Mosaic converts a semi-graphic cell into its G1 byte. The cell is a 2x3 block of
// pixels given as the six low bits of pattern, most significant bit first, reading
// left to right and top to bottom. Patterns wider than six bits are rejected.
//
// G1 spreads the six pixels over bits 0-4 and 6 of the code, with bit 5 always set.
// The fully lit cell would land on 0x7F and is folded onto its alias 0x5F.
func Mosaic(pattern byte) (byte, bool) {
	if pattern > 0x3f {
		return 0, false
	}

	b := byte(0x20)
	b |= (pattern >> 5) & 1
	b |= ((pattern >> 4) & 1) << 1
	b |= ((pattern >> 3) & 1) << 2
	b |= ((pattern >> 2) & 1) << 3
	b |= ((pattern >> 1) & 1) << 4
	b |= (pattern & 1) << 6

	if b == 0x7f {
		b = 0x5f
	}

	return b, true
}
