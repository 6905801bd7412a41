package charset

import (
	"bytes"
	"testing"

	"golang.org/x/text/transform"
)

func TestEncodeRune(t *testing.T) {
	tests := []struct {
		name string
		r    rune
		want []byte
	}{
		{"letter", 'A', []byte{'A'}},
		{"space", ' ', []byte{0x20}},
		{"block", 0x7f, []byte{0x7f}},
		{"caret dropped", '^', nil},
		{"grave dropped", '`', nil},
		{"control dropped", '\n', nil},
		{"a grave", 'à', []byte{SS2, Grave, 'a'}},
		{"e acute", 'é', []byte{SS2, Acute, 'e'}},
		{"c cedilla", 'ç', []byte{SS2, Cedilla, 'c'}},
		{"u diaeresis", 'ü', []byte{SS2, Diaeresis, 'u'}},
		{"upper E acute", 'É', []byte{SI, 'E'}},
		{"upper C cedilla", 'Ç', []byte{SI, 'C'}},
		{"pound", '£', []byte{SS2, Pound}},
		{"one half", '½', []byte{SS2, OneHalf}},
		{"beta", 'β', []byte{SS2, Beta}},
		{"oe", 'œ', []byte{SS2, OELower}},
		{"em dash", '—', []byte{0x60}},
		{"arrow up", '↑', []byte{0x5e}},
		{"arrow left", '←', []byte{SS2, ArrowLeft}},
		{"arrow down", '↓', []byte{SS2, ArrowDown}},
		{"euro unknown", '€', nil},
		{"emoji unknown", '😀', nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeRune(tt.r)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got % X, want % X", got, tt.want)
			}
		})
	}
}

// Upper case accented letters have no glyph; they must degrade to SI and the bare
// letter rather than disappear.
func TestUppercaseAccentsDegrade(t *testing.T) {
	for r, base := range uppercase {
		got := EncodeRune(r)
		want := []byte{SI, base}
		if !bytes.Equal(got, want) {
			t.Errorf("%q: got % X, want % X", r, got, want)
		}
	}
}

func TestKeyRoundTrip(t *testing.T) {
	var runes []rune
	for r := range diacritics {
		runes = append(runes, r)
	}
	for r := range specials {
		runes = append(runes, r)
	}
	for r := range g0Substitutes {
		runes = append(runes, r)
	}

	for _, r := range runes {
		encoded := EncodeRune(r)
		if len(encoded) == 0 {
			t.Fatalf("%q: no encoding", r)
		}

		var code uint32
		for _, b := range encoded {
			code = code<<8 | uint32(b)
		}

		got, ok := KeyRune(code)
		if !ok || got != r {
			t.Errorf("%q: KeyRune(0x%X) = %q, %v", r, code, got, ok)
		}

		if s := KeyString(code); s != string(r) {
			t.Errorf("%q: KeyString(0x%X) = %q", r, code, s)
		}
	}
}

func TestKeyRune(t *testing.T) {
	tests := []struct {
		name   string
		code   uint32
		want   rune
		wantOk bool
	}{
		{"letter", 'z', 'z', true},
		{"caret is up arrow", 0x5e, '↑', true},
		{"grave is em dash", 0x60, '—', true},
		{"control", 0x0d, 0, false},
		{"a grave", 0x194161, 'à', true},
		{"unmapped diacritic falls back to base", 0x19416f, 'o', true},
		{"pound", 0x1923, '£', true},
		{"unknown special", 0x1950, 0, false},
		{"function key", 0x1341, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KeyRune(tt.code)
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("got %q, %v, want %q, %v", got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestRuneString(t *testing.T) {
	tests := []struct {
		r       rune
		want    string
		wantLen int
	}{
		{'a', "a", 1},
		{'é', "é", 2},
		{'→', "→", 3},
		{'É', "", 0},
		{0x07, "", 0},
	}

	for _, tt := range tests {
		if got := RuneString(tt.r); got != tt.want {
			t.Errorf("RuneString(%q) = %q, want %q", tt.r, got, tt.want)
		}
		if got := RuneLen(tt.r); got != tt.wantLen {
			t.Errorf("RuneLen(%q) = %d, want %d", tt.r, got, tt.wantLen)
		}
	}
}

func TestEncoder(t *testing.T) {
	got, _, err := transform.Bytes(Videotex.NewEncoder(), []byte("Père ^Noël` — 3€ ½"))
	if err != nil {
		t.Fatal(err)
	}

	want := []byte{
		'P', SS2, Grave, 'e', 'r', 'e', ' ',
		'N', 'o', SS2, Diaeresis, 'e', 'l', ' ',
		0x60, ' ', '3', ' ',
		SS2, OneHalf,
	}

	if !bytes.Equal(got, want) {
		t.Errorf("got % X, want % X", got, want)
	}
}

func TestEncoderSplitRune(t *testing.T) {
	enc := Videotex.NewEncoder()
	dst := make([]byte, 16)

	// é is C3 A9; feed only the lead byte
	nDst, nSrc, err := enc.Transform(dst, []byte{'a', 0xc3}, false)
	if err != transform.ErrShortSrc {
		t.Fatalf("got err %v, want ErrShortSrc", err)
	}
	if nDst != 1 || nSrc != 1 {
		t.Errorf("got nDst=%d nSrc=%d, want 1, 1", nDst, nSrc)
	}
}

func TestEncoderShortDst(t *testing.T) {
	enc := Videotex.NewEncoder()
	dst := make([]byte, 2)

	nDst, nSrc, err := enc.Transform(dst, []byte("é"), true)
	if err != transform.ErrShortDst {
		t.Fatalf("got err %v, want ErrShortDst", err)
	}
	if nDst != 0 || nSrc != 0 {
		t.Errorf("got nDst=%d nSrc=%d, want 0, 0", nDst, nSrc)
	}
}

func TestDecoder(t *testing.T) {
	src := []byte{
		'c', SS2, Acute, 'e', 0x0d, SS2, Pound, 0x5e, SI, 'A', 0x60,
	}

	got, _, err := transform.String(Videotex.NewDecoder(), string(src))
	if err != nil {
		t.Fatal(err)
	}

	want := "cé£↑A—"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecodeEncodedText(t *testing.T) {
	text := "ça coûte 5£ ± ¼ → œuvre ß"
	encoded, _, err := transform.String(Videotex.NewEncoder(), text)
	if err != nil {
		t.Fatal(err)
	}

	decoded, _, err := transform.String(Videotex.NewDecoder(), encoded)
	if err != nil {
		t.Fatal(err)
	}

	// ß is not renderable and disappears
	want := "ça coûte 5£ ± ¼ → œuvre "
	if decoded != want {
		t.Errorf("got %q, want %q", decoded, want)
	}
}

func TestDecoderTruncatedShift(t *testing.T) {
	dec := Videotex.NewDecoder()
	dst := make([]byte, 16)

	nDst, nSrc, err := dec.Transform(dst, []byte{'a', SS2, Grave}, false)
	if err != transform.ErrShortSrc {
		t.Fatalf("got err %v, want ErrShortSrc", err)
	}
	if nDst != 1 || nSrc != 1 {
		t.Errorf("got nDst=%d nSrc=%d, want 1, 1", nDst, nSrc)
	}

	nDst, nSrc, err = dec.Transform(dst, []byte{SS2, Grave}, true)
	if err != nil {
		t.Fatalf("unexpected error at EOF: %v", err)
	}
	if nDst != 0 || nSrc != 2 {
		t.Errorf("got nDst=%d nSrc=%d, want 0, 2", nDst, nSrc)
	}
}

func TestMosaic(t *testing.T) {
	tests := []struct {
		pattern byte
		want    byte
		wantOk  bool
	}{
		{0x00, 0x20, true},
		{0x20, 0x21, true},
		{0x10, 0x22, true},
		{0x01, 0x60, true},
		{0x3e, 0x3f, true},
		{0x3f, 0x5f, true},
		{0x40, 0, false},
	}

	for _, tt := range tests {
		got, ok := Mosaic(tt.pattern)
		if got != tt.want || ok != tt.wantOk {
			t.Errorf("Mosaic(%06b) = 0x%02X, %v, want 0x%02X, %v", tt.pattern, got, ok, tt.want, tt.wantOk)
		}
	}
}
