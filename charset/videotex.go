package charset

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Videotex is the character encoding spoken by Teletel terminals: the G0 alphanumeric
// set in the 7-bit range, with the supplementary G2 set reached through SS2.
//
// The encoder accepts UTF-8 and produces 7-bit terminal bytes (parity is the concern
// of the link layer, not of the character set). Code points the terminal cannot show
// are dropped rather than replaced: a stray emoji in free text must not put garbage on
// screen. Upper case accented letters degrade to SI followed by the bare letter.
//
// The decoder accepts the byte codes sent by the terminal keyboard, including SS2
// sequences, and produces UTF-8. Control codes are dropped.
var Videotex encoding.Encoding = videotex{}

type videotex struct{}

func (videotex) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: &videotexEncoder{}}
}

func (videotex) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: &videotexDecoder{}}
}

func (videotex) String() string {
	return "Videotex"
}

// IsRenderable reports whether the terminal can display r in some way
func IsRenderable(r rune) bool {
	if r >= 0x20 && r <= 0x7f {
		return true
	}

	if _, ok := diacritics[r]; ok {
		return true
	}

	if _, ok := specials[r]; ok {
		return true
	}

	_, ok := g0Substitutes[r]
	return ok
}

// AppendRune appends the terminal bytes for r to dst. Nothing is appended for code
// points the terminal cannot display.
func AppendRune(dst []byte, r rune) []byte {
	switch {
	case r == '^' || r == '`':
		// Not visualisable on their own
		return dst
	case r >= 0x20 && r <= 0x7f:
		return append(dst, byte(r))
	}

	if a, ok := diacritics[r]; ok {
		return append(dst, SS2, a.mark, a.base)
	}

	if base, ok := uppercase[r]; ok {
		return append(dst, SI, base)
	}

	if b, ok := specials[r]; ok {
		return append(dst, SS2, b)
	}

	if b, ok := g0Substitutes[r]; ok {
		return append(dst, b)
	}

	return dst
}

// EncodeRune returns the terminal bytes for r, or nil if it cannot be displayed
func EncodeRune(r rune) []byte {
	return AppendRune(nil, r)
}

type videotexEncoder struct {
	transform.NopResetter
}

func (e *videotexEncoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	var scratch [3]byte

	for nSrc < len(src) {
		r, size := rune(src[nSrc]), 1
		if r >= utf8.RuneSelf {
			if !utf8.FullRune(src[nSrc:]) && !atEOF {
				return nDst, nSrc, transform.ErrShortSrc
			}

			r, size = utf8.DecodeRune(src[nSrc:])
		}

		encoded := AppendRune(scratch[:0], r)
		if nDst+len(encoded) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}

		nDst += copy(dst[nDst:], encoded)
		nSrc += size
	}

	return nDst, nSrc, nil
}

type videotexDecoder struct {
	transform.NopResetter
}

func (d *videotexDecoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		code, size := src[nSrc], 1
		var r rune
		var ok bool

		switch {
		case code == SS2:
			var key uint32
			key, size, ok = scanShift(src[nSrc:])
			if !ok {
				if !atEOF {
					return nDst, nSrc, transform.ErrShortSrc
				}

				// A truncated shift sequence at the end of input can't be completed
				size = len(src) - nSrc
				break
			}

			r, ok = KeyRune(key)
		case code >= 0x20 && code <= 0x7f:
			r, ok = KeyRune(uint32(code))
		}

		if ok {
			if nDst+utf8.RuneLen(r) > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}

			nDst += utf8.EncodeRune(dst[nDst:], r)
		}

		nSrc += size
	}

	return nDst, nSrc, nil
}

// scanShift collects the key code of an SS2 sequence at the start of src
func scanShift(src []byte) (code uint32, size int, complete bool) {
	if len(src) < 2 {
		return 0, 0, false
	}

	code = uint32(SS2)<<8 | uint32(src[1])
	if !IsDiacritic(src[1]) {
		return code, 2, true
	}

	if len(src) < 3 {
		return 0, 0, false
	}

	return code<<8 | uint32(src[2]), 3, true
}

// KeyRune translates a raw key code, as assembled by the keyboard decoder from one to
// three bytes, into the character it stands for.
//
// A diacritic sequence with a base letter the terminal does not compose yields the base
// letter alone.
func KeyRune(code uint32) (rune, bool) {
	switch {
	case code < 0x20:
		return 0, false
	case code <= 0x7f:
		if r, ok := g0Runes[byte(code)]; ok {
			return r, true
		}

		return rune(code), true
	}

	if r, ok := keyRunes[code]; ok {
		return r, true
	}

	if code>>16 == uint32(SS2) && IsDiacritic(byte(code>>8)) {
		return KeyRune(code & 0xff)
	}

	return 0, false
}

// RuneString returns r as UTF-8 if the terminal can display it, or an empty string
func RuneString(r rune) string {
	if !IsRenderable(r) {
		return ""
	}

	return string(r)
}

// RuneLen returns the number of UTF-8 bytes RuneString would return for r
func RuneLen(r rune) int {
	if !IsRenderable(r) {
		return 0
	}

	return utf8.RuneLen(r)
}

// KeyString returns the UTF-8 text for a raw key code, or an empty string if the code
// does not correspond to a displayable character.
func KeyString(code uint32) string {
	r, ok := KeyRune(code)
	if !ok {
		return ""
	}

	return RuneString(r)
}
