package videotex

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/moodclient/videotex/charset"
)

// C0 functions understood by the terminal. Where Teletel gives a code a different
// meaning than ISO 646, the Teletel name is used.
const (
	NUL = byte(ansi.NUL)
	SOH = byte(ansi.SOH)
	EOT = byte(ansi.EOT)
	BEL = byte(ansi.BEL)
	// BS moves the cursor one column left
	BS = byte(ansi.BS)
	// HT moves the cursor one column right
	HT = byte(ansi.HT)
	// LF moves the cursor one row down
	LF = byte(ansi.LF)
	// VT moves the cursor one row up
	VT = byte(ansi.VT)
	// FF clears the screen and homes the cursor on row 1
	FF = byte(ansi.FF)
	// CR returns the cursor to the start of the current row
	CR = byte(ansi.CR)
	// SO selects the semi-graphic G1 set
	SO = byte(ansi.SO)
	// SI selects the alphanumeric G0 set
	SI = byte(ansi.SI)
	// CON shows the cursor
	CON = byte(ansi.DC1)
	// REP repeats the last displayed character
	REP = byte(ansi.DC2)
	// SEP introduces function keys and several protocol acknowledgments
	SEP = byte(ansi.DC3)
	// COFF hides the cursor
	COFF = byte(ansi.DC4)
	// CAN fills the rest of the row with spaces without moving the cursor
	CAN = byte(ansi.CAN)
	// SS2 calls a single character from G2
	SS2 = charset.SS2
	ESC = byte(ansi.ESC)
	// RS homes the cursor on row 1, and explicitly separates articles
	RS = byte(ansi.RS)
	// US separates sub-articles and is followed by an address
	US = byte(ansi.US)

	SP  byte = 0x20
	DEL byte = 0x7f
)

// Escape sequence introducers
var (
	// CSI (ESC [) introduces the ISO 6429 cursor and erase functions
	CSI = []byte{ESC, 0x5b}
	// PRO1 introduces protocol commands that take one argument
	PRO1 = []byte{ESC, 0x39}
	// PRO2 introduces protocol commands that take two arguments
	PRO2 = []byte{ESC, 0x3a}
	// PRO3 introduces protocol commands that take three arguments
	PRO3 = []byte{ESC, 0x3b}
)

// Final bytes of CSI sequences
const (
	csiCursorUp      byte = 0x41
	csiCursorDown    byte = 0x42
	csiCursorRight   byte = 0x43
	csiCursorLeft    byte = 0x44
	csiCursorAddress byte = 0x48
	csiEraseScreen   byte = 0x4a
	csiEraseLine     byte = 0x4b
	csiInsertLines   byte = 0x4c
	csiDeleteLines   byte = 0x4d
	csiDeleteChars   byte = 0x50
	csiInsertChars   byte = 0x40
	csiSetMode       byte = 0x68
	csiResetMode     byte = 0x6c
	csiSeparator     byte = 0x3b

	// insertMode is the ISO 6429 mode number of insert/replace
	insertMode = 4
)

// Attribute is a C1 display attribute, sent after ESC
type Attribute byte

// Character colours
const (
	CharBlack   Attribute = 0x40
	CharRed     Attribute = 0x41
	CharGreen   Attribute = 0x42
	CharYellow  Attribute = 0x43
	CharBlue    Attribute = 0x44
	CharMagenta Attribute = 0x45
	CharCyan    Attribute = 0x46
	CharWhite   Attribute = 0x47
)

// Background colours. In text mode the background change is triggered by the next
// space and holds until the end of the row.
const (
	BackgroundBlack   Attribute = 0x50
	BackgroundRed     Attribute = 0x51
	BackgroundGreen   Attribute = 0x52
	BackgroundYellow  Attribute = 0x53
	BackgroundBlue    Attribute = 0x54
	BackgroundMagenta Attribute = 0x55
	BackgroundCyan    Attribute = 0x56
	BackgroundWhite   Attribute = 0x57
)

// Character sizes, unavailable in semi-graphic mode
const (
	SizeNormal       Attribute = 0x4c
	SizeDoubleHeight Attribute = 0x4d
	SizeDoubleWidth  Attribute = 0x4e
	SizeDouble       Attribute = 0x4f
)

// Other attributes
const (
	Blink            Attribute = 0x48
	Steady           Attribute = 0x49
	Mask             Attribute = 0x58
	Unmask           Attribute = 0x5f
	UnderlineEnd     Attribute = 0x59
	UnderlineStart   Attribute = 0x5a
	BackgroundNormal Attribute = 0x5c
	BackgroundInvert Attribute = 0x5d
)

// Protocol command codes, sent after PRO1/PRO2/PRO3
const (
	proStatusMode      byte = 0x72
	proStatusModeReply byte = 0x73
	proStatusSpeed     byte = 0x74
	proStatusSpeedRepl byte = 0x75
	proStart           byte = 0x69
	proStop            byte = 0x6a
	proProg            byte = 0x6b
	proTo              byte = 0x62
	proFrom            byte = 0x63
	proRoutingOff      byte = 0x60
	proRoutingOn       byte = 0x61
	proConnect         byte = 0x68
	proDisconnect      byte = 0x67
	proEnqROM          byte = 0x7b
	proReset           byte = 0x7f
	proScroll          byte = 0x43
	proLowercase       byte = 0x45
	proExtended        byte = 0x41
	proCursorC0        byte = 0x43
	proCursorQuery     byte = 0x61
)

// Teletel standard transitions
var (
	proMixed1  = []byte{0x32, 0x7d}
	proMixed2  = []byte{0x32, 0x7e}
	proTelInfo = []byte{0x31, 0x7d}
)

// Module is one of the terminal's internal modules, as addressed by routing
// (aiguillage) commands. Transmit and receive sides have distinct codes.
type Module byte

const (
	ScreenTx   Module = 0x50
	KeyboardTx Module = 0x51
	ModemTx    Module = 0x52
	SocketTx   Module = 0x53

	ScreenRx   Module = 0x58
	KeyboardRx Module = 0x59
	ModemRx    Module = 0x5a
	SocketRx   Module = 0x5b
)

// param encodes n the way the terminal expects Pn, Pr and Pc: one ASCII digit up to 9,
// two digits above. There is no three digit form, so n must not exceed 99.
func param(dst []byte, n int) []byte {
	if n <= 9 {
		return append(dst, '0'+byte(n))
	}

	return append(dst, '0'+byte(n/10), '0'+byte(n%10))
}

// escape builds introducer, then each parameter separated by ';', then the final byte.
// Every parameterized sequence goes through here so the digit rule is applied the same
// way everywhere.
func escape(introducer []byte, final byte, params ...int) []byte {
	seq := make([]byte, 0, len(introducer)+3*len(params)+1)
	seq = append(seq, introducer...)

	for i, p := range params {
		if i > 0 {
			seq = append(seq, csiSeparator)
		}
		seq = param(seq, p)
	}

	return append(seq, final)
}

var byteNames = map[byte]string{
	NUL:  "NUL",
	SOH:  "SOH",
	EOT:  "EOT",
	BEL:  "BEL",
	BS:   "BS",
	HT:   "HT",
	LF:   "LF",
	VT:   "VT",
	FF:   "FF",
	CR:   "CR",
	SO:   "SO",
	SI:   "SI",
	CON:  "CON",
	REP:  "REP",
	SEP:  "SEP",
	COFF: "COFF",
	CAN:  "CAN",
	SS2:  "SS2",
	ESC:  "ESC",
	RS:   "RS",
	US:   "US",
	SP:   "SP",
	DEL:  "DEL",
}

// SequenceString converts raw (unframed) protocol bytes into a legible form such as
// "ESC [ 4 2 C". This is useful when logging traffic.
func SequenceString(b []byte) string {
	var sb strings.Builder

	for i := 0; i < len(b); i++ {
		if i > 0 {
			sb.WriteRune(' ')
		}

		name, hasName := byteNames[b[i]]
		switch {
		case hasName:
			sb.WriteString(name)
		case b[i] > SP && b[i] < DEL:
			sb.WriteByte(b[i])
		default:
			sb.WriteString("0x")
			sb.WriteString(strconv.FormatUint(uint64(b[i]), 16))
		}
	}

	return sb.String()
}
