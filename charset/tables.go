package charset

// Control codes used by the character set itself
const (
	// SI selects the G0 (alphanumeric) set
	SI byte = 0x0F
	// SO selects the G1 (semi-graphic) set
	SO byte = 0x0E
	// SS2 calls a single character from the G2 (supplementary) set
	SS2 byte = 0x19
)

// Characters of the G2 set. They are sent after SS2.
const (
	Pound        byte = 0x23
	Dollar       byte = 0x24
	Hash         byte = 0x26
	Section      byte = 0x27
	ArrowLeft    byte = 0x2C
	ArrowUp      byte = 0x2D
	ArrowRight   byte = 0x2E
	ArrowDown    byte = 0x2F
	Degree       byte = 0x30
	PlusMinus    byte = 0x31
	Division     byte = 0x38
	OneQuarter   byte = 0x3C
	OneHalf      byte = 0x3D
	ThreeQuarter byte = 0x3E
	OEUpper      byte = 0x6A
	OELower      byte = 0x7A
	Beta         byte = 0x7B
)

// Diacritic selectors of the G2 set. They cannot be displayed on their own and must be
// followed by the base letter they modify.
const (
	Grave      byte = 0x41
	Acute      byte = 0x42
	Circumflex byte = 0x43
	Diaeresis  byte = 0x48
	Cedilla    byte = 0x4B
)

// IsDiacritic reports whether b, received after SS2, announces a three byte diacritic
// sequence.
func IsDiacritic(b byte) bool {
	switch b {
	case Grave, Acute, Circumflex, Diaeresis, Cedilla:
		return true
	}

	return false
}

type accented struct {
	mark byte
	base byte
}

// Lower case letters the terminal composes from a diacritic selector and a base letter.
var diacritics = map[rune]accented{
	'à': {Grave, 'a'},
	'â': {Circumflex, 'a'},
	'ä': {Diaeresis, 'a'},
	'ç': {Cedilla, 'c'},
	'è': {Grave, 'e'},
	'é': {Acute, 'e'},
	'ê': {Circumflex, 'e'},
	'ë': {Diaeresis, 'e'},
	'î': {Circumflex, 'i'},
	'ï': {Diaeresis, 'i'},
	'ô': {Circumflex, 'o'},
	'ö': {Diaeresis, 'o'},
	'ù': {Grave, 'u'},
	'û': {Circumflex, 'u'},
	'ü': {Diaeresis, 'u'},
}

// The terminal has no upper case accented glyphs. These degrade to the bare letter,
// preceded by SI so that the letter is drawn from G0 whatever set was active.
var uppercase = map[rune]byte{
	'À': 'A',
	'Â': 'A',
	'Ä': 'A',
	'Ç': 'C',
	'È': 'E',
	'É': 'E',
	'Ê': 'E',
	'Ë': 'E',
	'Î': 'I',
	'Ï': 'I',
	'Ô': 'O',
	'Ö': 'O',
	'Ù': 'U',
	'Û': 'U',
	'Ü': 'U',
}

// Symbols available in G2, sent as SS2 followed by one byte
var specials = map[rune]byte{
	'£': Pound,
	'§': Section,
	'°': Degree,
	'±': PlusMinus,
	'¼': OneQuarter,
	'½': OneHalf,
	'¾': ThreeQuarter,
	'÷': Division,
	'Œ': OEUpper,
	'œ': OELower,
	'β': Beta,
	'←': ArrowLeft,
	'→': ArrowRight,
	'↓': ArrowDown,
}

// The G0 positions of '^' and '`' are drawn by this terminal family as an up arrow and
// an em dash, which is how the keyboard reports them too.
var g0Substitutes = map[rune]byte{
	'↑': 0x5E,
	'—': 0x60,
}

var (
	// raw key code -> rune, covers two and three byte SS2 codes
	keyRunes map[uint32]rune
	// G0 byte -> rune for the two substituted positions
	g0Runes map[byte]rune
)

func init() {
	keyRunes = make(map[uint32]rune, len(diacritics)+len(specials))
	for r, a := range diacritics {
		keyRunes[uint32(SS2)<<16|uint32(a.mark)<<8|uint32(a.base)] = r
	}

	for r, b := range specials {
		keyRunes[uint32(SS2)<<8|uint32(b)] = r
	}

	g0Runes = make(map[byte]rune, len(g0Substitutes))
	for r, b := range g0Substitutes {
		g0Runes[b] = r
	}
}
