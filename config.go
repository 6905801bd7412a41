package videotex

import "time"

// SizeMode mirrors the character size the terminal is currently drawing with.
// The terminal resets it to NormalSize on its own whenever a new screen or a
// new row is started, so Terminal tracks it to know how far a line feed must go.
type SizeMode byte

const (
	NormalSize SizeMode = iota
	DoubleHeight
	DoubleWidth
	DoubleSize
)

func (m SizeMode) String() string {
	switch m {
	case NormalSize:
		return "Normal"
	case DoubleHeight:
		return "DoubleHeight"
	case DoubleWidth:
		return "DoubleWidth"
	case DoubleSize:
		return "DoubleSize"
	}

	return "Unknown"
}

// rows returns the number of rows a line of text occupies in this mode
func (m SizeMode) rows() int {
	if m == DoubleHeight || m == DoubleSize {
		return 2
	}

	return 1
}

// Link rates understood by the terminal. 9600 is only available on the later models.
const (
	Baud300  = 300
	Baud1200 = 1200
	Baud4800 = 4800
	Baud9600 = 9600

	// BaudUnknown is returned by speed exchanges that did not receive an acknowledgment
	// in time. Callers should assume the previous rate still holds.
	BaudUnknown = -1
)

// SessionState is the part of the terminal's state that the driver has to mirror.
type SessionState struct {
	Size SizeMode
	// Baud is the rate the link was last configured with, or BaudUnknown
	Baud int
}

type TerminalConfig struct {
	// InitialBaud is the rate the link is assumed to run at when the Terminal is
	// created. Terminals power on at 1200 baud, which is the default.
	InitialBaud int

	// SpeedTimeout bounds the wait for a speed acknowledgment. The terminal answers
	// at the new rate, so a lost acknowledgment usually means the rates disagree.
	// The default is one second.
	SpeedTimeout time.Duration

	// StandardTimeout bounds the wait for the acknowledgment of a standard
	// transition or a reset. The terminal doesn't acknowledge a transition to the
	// mode it is already in, so this should be short. The default is 100ms.
	StandardTimeout time.Duration

	// StatusTimeout bounds the wait for mode, keyboard, routing and modem status
	// replies. Zero, the default, waits as long as it takes: the terminal always
	// answers these.
	StatusTimeout time.Duration

	// IdentifyTimeout bounds the wait for the identification frame. Zero, the
	// default, waits as long as it takes.
	IdentifyTimeout time.Duration

	// EscapeGrace is how long the keyboard decoder waits after ESC before deciding
	// the Escape key was pressed on its own. The default is 20ms.
	EscapeGrace time.Duration

	// PollInterval is how long polling loops sleep between checks of a link that
	// has no byte available. Zero spins without sleeping.
	PollInterval time.Duration

	// EventHooks is a set of callbacks that the terminal will call when the relevant
	// event occurs.  You can register additional callbacks after creation with
	// Terminal.Register* methods.
	EventHooks EventHooks

	// KeyMiddlewares is a set of middlewares that process decoded keys before
	// they are returned from Keyboard.ReadKey
	KeyMiddlewares []KeyMiddleware
}

func (c TerminalConfig) withDefaults() TerminalConfig {
	if c.InitialBaud == 0 {
		c.InitialBaud = Baud1200
	}

	if c.SpeedTimeout == 0 {
		c.SpeedTimeout = time.Second
	}

	if c.StandardTimeout == 0 {
		c.StandardTimeout = 100 * time.Millisecond
	}

	if c.EscapeGrace == 0 {
		c.EscapeGrace = 20 * time.Millisecond
	}

	return c
}
