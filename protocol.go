package videotex

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnsupportedBaud is returned when asked for a rate the terminal doesn't know
var ErrUnsupportedBaud = errors.New("videotex: unsupported baud rate")

// StatusUnknown is returned in place of a status byte when the terminal did not
// answer in time. Status bytes always have bit 7 clear, so it can't be confused with
// a real answer.
const StatusUnknown byte = 0xff

// Bits of the status byte returned by the mode commands
const (
	Mode80Columns byte = 0x01
	ModeScroll    byte = 0x02
	ModePCE       byte = 0x04
	ModeLowercase byte = 0x08
)

// Bits of the status byte returned by the keyboard commands
const (
	KeyboardExtended byte = 0x01
	KeyboardC0       byte = 0x04
)

// Bits of the status byte returned by the routing commands. Each bit is set when the
// module is linked to the one being asked about, and the module's own bit tells
// whether it is active.
const (
	RouteScreen   byte = 0x01
	RouteKeyboard byte = 0x02
	RouteModem    byte = 0x04
	RouteSocket   byte = 0x08
)

var baudCodes = map[int]byte{
	Baud300:  0x52,
	Baud1200: 0x64,
	Baud4800: 0x76,
	Baud9600: 0x7f,
}

var baudRates = map[byte]int{
	0x52: Baud300,
	0x64: Baud1200,
	0x76: Baud4800,
	0x7f: Baud9600,
}

// The order speeds are tried in when searching, most likely first
var searchOrder = []int{Baud1200, Baud4800, Baud300, Baud9600}

var speedReply = telegramPattern{prefix: []byte{ESC, PRO2[1], proStatusSpeedRepl}, trailing: 1}

func (t *Terminal) speedTelegram(name string, request []byte) telegram {
	return telegram{
		name:    name,
		request: request,
		pattern: speedReply,
		budget:  t.config.SpeedTimeout,
	}
}

func speedResult(result telegramResult) int {
	if !result.matched {
		return BaudUnknown
	}

	baud, ok := baudRates[byte(result.trailing)]
	if !ok {
		return BaudUnknown
	}

	return baud
}

// ChangeSpeed asks the terminal to switch to baud, then switches the link. The
// terminal acknowledges at the new rate, so the acknowledgment can be lost if the
// link is slow to switch. The rate the terminal reports is returned, or BaudUnknown
// if there was no acknowledgment within TerminalConfig.SpeedTimeout.
//
// 9600 baud is only available on the later terminals.
func (t *Terminal) ChangeSpeed(baud int) (int, error) {
	code, ok := baudCodes[baud]
	if !ok {
		return BaudUnknown, fmt.Errorf("%d: %w", baud, ErrUnsupportedBaud)
	}

	tg := t.speedTelegram("ChangeSpeed", append(append([]byte{}, PRO2...), proProg, code))
	tg.afterSend = func() error {
		err := t.link.SetBaudRate(baud)
		if err != nil {
			return fmt.Errorf("videotex: set rate %d: %w", baud, err)
		}

		t.state.Baud = baud
		return nil
	}

	result, err := t.scan(tg)
	if err != nil {
		return BaudUnknown, err
	}

	return speedResult(result), nil
}

// CurrentSpeed asks the terminal for its rate. This only works if the link already
// runs at the same rate, see SearchSpeed otherwise.
func (t *Terminal) CurrentSpeed() (int, error) {
	result, err := t.scan(t.speedTelegram("CurrentSpeed", append(append([]byte{}, PRO1...), proStatusSpeed)))
	if err != nil {
		return BaudUnknown, err
	}

	baud := speedResult(result)
	if baud != BaudUnknown {
		t.state.Baud = baud
	}

	return baud, nil
}

// SearchSpeed finds the terminal's rate by trying each rate on the link in turn
// until CurrentSpeed gets an answer. All rates are tried up to rounds times; a
// rounds below 1 tries them once. If no rate answers, the link is set back to its
// previous rate and BaudUnknown is returned.
func (t *Terminal) SearchSpeed(rounds int) (int, error) {
	if rounds < 1 {
		rounds = 1
	}

	previous := t.state.Baud
	for round := 0; round < rounds; round++ {
		for _, baud := range searchOrder {
			err := t.link.SetBaudRate(baud)
			if err != nil {
				return BaudUnknown, fmt.Errorf("videotex: set rate %d: %w", baud, err)
			}
			t.state.Baud = baud

			found, err := t.CurrentSpeed()
			if err != nil {
				return BaudUnknown, err
			}

			if found != BaudUnknown {
				return found, nil
			}
		}
	}

	if previous != BaudUnknown {
		err := t.link.SetBaudRate(previous)
		if err != nil {
			return BaudUnknown, fmt.Errorf("videotex: set rate %d: %w", previous, err)
		}
		t.state.Baud = previous
	}

	return BaudUnknown, nil
}

// Identification is the answer to IdentifyDevice
type Identification struct {
	Maker   byte
	Model   byte
	Version byte
}

var makerNames = map[byte]string{
	0x42: "Philips",
	0x43: "Telic-Alcatel",
}

var modelNames = map[byte]string{
	0x62: "Minitel 1",
	0x63: "Minitel 1",
	0x64: "Minitel 10",
	0x66: "Minitel 10",
	0x72: "Minitel 1 Dialogue",
	0x73: "Minitel 1 Couleur",
	0x75: "Minitel 1 Bistandard",
	0x76: "Minitel 2",
	0x77: "Minitel 10 Bistandard",
	0x79: "Minitel 5",
	0x7a: "Minitel 12",
}

// MakerName returns the manufacturer's name if it is known
func (id Identification) MakerName() string {
	if name, ok := makerNames[id.Maker]; ok {
		return name
	}

	return "0x" + strconv.FormatUint(uint64(id.Maker), 16)
}

// ModelName returns the terminal's model name if it is known
func (id Identification) ModelName() string {
	if name, ok := modelNames[id.Model]; ok {
		return name
	}

	return "0x" + strconv.FormatUint(uint64(id.Model), 16)
}

func (id Identification) String() string {
	return fmt.Sprintf("%s %s (version %c)", id.MakerName(), id.ModelName(), id.Version)
}

// IdentifyDevice asks the terminal for its maker, model and software version. ok is
// false if the reply was malformed or, when TerminalConfig.IdentifyTimeout is set, late.
func (t *Terminal) IdentifyDevice() (id Identification, ok bool, err error) {
	payload, ok, err := t.scanFrame("IdentifyDevice", append(append([]byte{}, PRO1...), proEnqROM), t.config.IdentifyTimeout)
	if err != nil || !ok {
		return Identification{}, false, err
	}

	return Identification{
		Maker:   byte(payload >> 16),
		Model:   byte(payload >> 8),
		Version: byte(payload),
	}, true, nil
}

var modeReply = telegramPattern{prefix: []byte{ESC, PRO2[1], proStatusModeReply}, trailing: 1}

func (t *Terminal) modeCommand(name string, request ...byte) (byte, error) {
	result, err := t.scan(telegram{
		name:    name,
		request: request,
		pattern: modeReply,
		budget:  t.config.StatusTimeout,
	})
	if err != nil || !result.matched {
		return StatusUnknown, err
	}

	return byte(result.trailing), nil
}

// PageMode stops scrolling: text reaching the bottom row continues from the top.
// The mode status byte is returned, see Mode80Columns and the others.
func (t *Terminal) PageMode() (byte, error) {
	return t.modeCommand("PageMode", ESC, PRO2[1], proStop, proScroll)
}

// ScrollMode makes the screen scroll when text reaches the bottom row
func (t *Terminal) ScrollMode() (byte, error) {
	return t.modeCommand("ScrollMode", ESC, PRO2[1], proStart, proScroll)
}

// SmallMode makes the keyboard type lower case letters without shift
func (t *Terminal) SmallMode() (byte, error) {
	return t.modeCommand("SmallMode", ESC, PRO2[1], proStart, proLowercase)
}

// CapitalMode makes the keyboard type upper case letters without shift
func (t *Terminal) CapitalMode() (byte, error) {
	return t.modeCommand("CapitalMode", ESC, PRO2[1], proStop, proLowercase)
}

// ModeStatus returns the mode status byte without changing anything
func (t *Terminal) ModeStatus() (byte, error) {
	return t.modeCommand("ModeStatus", ESC, PRO1[1], proStatusMode)
}

var keyboardReply = telegramPattern{prefix: []byte{ESC, PRO3[1], proStatusModeReply, byte(KeyboardRx)}}

func (t *Terminal) keyboardCommand(name string, request ...byte) (byte, error) {
	result, err := t.scan(telegram{
		name:    name,
		request: request,
		pattern: keyboardReply,
		budget:  t.config.StatusTimeout,
		status:  true,
	})
	if err != nil || !result.matched {
		return StatusUnknown, err
	}

	return result.status, nil
}

// ExtendedKeyboard enables the cursor keys and the other keys of the extended
// keyboard. The keyboard status byte is returned, see KeyboardExtended.
func (t *Terminal) ExtendedKeyboard() (byte, error) {
	return t.keyboardCommand("ExtendedKeyboard", ESC, PRO3[1], proStart, byte(KeyboardRx), proExtended)
}

// StandardKeyboard returns the keyboard to the plain Videotex layout
func (t *Terminal) StandardKeyboard() (byte, error) {
	return t.keyboardCommand("StandardKeyboard", ESC, PRO3[1], proStop, byte(KeyboardRx), proExtended)
}

// CursorKeysC0 makes the extended keyboard send the cursor keys as the C0 codes
// BS, HT, LF and VT instead of CSI sequences
func (t *Terminal) CursorKeysC0(on bool) (byte, error) {
	command := proStop
	if on {
		command = proStart
	}

	return t.keyboardCommand("CursorKeysC0", ESC, PRO3[1], command, byte(KeyboardRx), proCursorC0)
}

// KeyboardStatus returns the keyboard status byte without changing anything
func (t *Terminal) KeyboardStatus() (byte, error) {
	return t.keyboardCommand("KeyboardStatus", ESC, PRO2[1], proStatusMode, byte(KeyboardRx))
}

func (t *Terminal) routingCommand(name string, module Module, request ...byte) (byte, error) {
	result, err := t.scan(telegram{
		name:    name,
		request: request,
		pattern: telegramPattern{prefix: []byte{ESC, PRO3[1], proFrom, byte(module)}},
		budget:  t.config.StatusTimeout,
		status:  true,
	})
	if err != nil || !result.matched {
		return StatusUnknown, err
	}

	return result.status, nil
}

// Route links the transmit side of module from to the receive side of module to, or
// unlinks them. The routing status byte of to is returned, see RouteScreen and the
// others.
func (t *Terminal) Route(on bool, from, to Module) (byte, error) {
	command := proRoutingOff
	if on {
		command = proRoutingOn
	}

	return t.routingCommand("Route", to, ESC, PRO3[1], command, byte(to), byte(from))
}

// RouteStatus returns the routing status byte of module without changing anything
func (t *Terminal) RouteStatus(module Module) (byte, error) {
	return t.routingCommand("RouteStatus", module, ESC, PRO2[1], proTo, byte(module))
}

// Echo turns the terminal's local echo of typed keys on or off. It routes the
// keyboard to the modem, so it matters only when a host is on the line.
func (t *Terminal) Echo(on bool) (byte, error) {
	return t.Route(on, KeyboardTx, ModemRx)
}

// Connect asks the modem to connect or disconnect. The second byte of the modem's
// SEP acknowledgment is returned. Only the immediate acknowledgment is read: the
// later notice of an established connection or a timeout arrives as a function key.
func (t *Terminal) Connect(on bool) (byte, error) {
	command := proDisconnect
	if on {
		command = proConnect
	}

	result, err := t.scan(telegram{
		name:    "Connect",
		request: []byte{ESC, PRO1[1], command},
		pattern: telegramPattern{prefix: []byte{SEP}, trailing: 1},
		budget:  t.config.StatusTimeout,
	})
	if err != nil || !result.matched {
		return StatusUnknown, err
	}

	return byte(result.trailing), nil
}

func (t *Terminal) standardCommand(name string, ack []byte, request ...byte) (bool, error) {
	result, err := t.scan(telegram{
		name:    name,
		request: request,
		pattern: telegramPattern{prefix: ack},
		budget:  t.config.StandardTimeout,
	})

	return result.matched, err
}

// Reset returns the terminal to its power-on configuration. It reports whether the
// terminal acknowledged.
func (t *Terminal) Reset() (bool, error) {
	ok, err := t.standardCommand("Reset", []byte{SEP, 0x5e}, ESC, PRO1[1], proReset)
	if err == nil && ok {
		t.state.Size = NormalSize
	}

	return ok, err
}

// ModeMixte switches from Teletel Videotex mode to Teletel Mixed mode. The terminal
// doesn't acknowledge if it was already in Mixed mode.
func (t *Terminal) ModeMixte() (bool, error) {
	return t.standardCommand("ModeMixte", []byte{SEP, 0x70}, append([]byte{ESC, PRO2[1]}, proMixed1...)...)
}

// ModeVideotex switches from Teletel Mixed mode to Teletel Videotex mode
func (t *Terminal) ModeVideotex() (bool, error) {
	return t.standardCommand("ModeVideotex", []byte{SEP, 0x71}, append([]byte{ESC, PRO2[1]}, proMixed2...)...)
}

// StandardTeleinformatique switches from the Teletel standard to the ASCII
// Teleinformatique standard, where the terminal behaves like a VT100
func (t *Terminal) StandardTeleinformatique() (bool, error) {
	return t.standardCommand("StandardTeleinformatique", []byte{ESC, CSI[1], 0x3f, 0x7a}, append([]byte{ESC, PRO2[1]}, proTelInfo...)...)
}

// StandardTeletel switches back from the Teleinformatique standard to Teletel
func (t *Terminal) StandardTeletel() (bool, error) {
	return t.standardCommand("StandardTeletel", []byte{SEP, 0x5e}, ESC, CSI[1], 0x3f, 0x7b)
}

// Position is a screen position. Rows start at 1, row 0 is the status row.
type Position struct {
	Col int
	Row int
}

// CursorPosition asks the terminal where the cursor is. ok is false if the answer
// didn't arrive within TerminalConfig.StatusTimeout.
func (t *Terminal) CursorPosition() (pos Position, ok bool, err error) {
	result, err := t.scan(telegram{
		name:    "CursorPosition",
		request: []byte{ESC, proCursorQuery},
		pattern: telegramPattern{prefix: []byte{US}, trailing: 2},
		budget:  t.config.StatusTimeout,
	})
	if err != nil || !result.matched {
		return Position{}, false, err
	}

	return Position{
		Col: int(byte(result.trailing)) - 0x40,
		Row: int(byte(result.trailing>>8)) - 0x40,
	}, true, nil
}
