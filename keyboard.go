package videotex

import (
	"errors"
	"fmt"
	"time"

	"github.com/moodclient/videotex/charset"
)

// Function keys of the Videotex keyboard, sent as SEP and one byte
const (
	KeyEnvoi        uint32 = 0x1341
	KeyRetour       uint32 = 0x1342
	KeyRepetition   uint32 = 0x1343
	KeyGuide        uint32 = 0x1344
	KeyAnnulation   uint32 = 0x1345
	KeySommaire     uint32 = 0x1346
	KeyCorrection   uint32 = 0x1347
	KeySuite        uint32 = 0x1348
	KeyConnexionFin uint32 = 0x1349
)

// Keys of the extended keyboard, see Terminal.ExtendedKeyboard
const (
	KeyUp         uint32 = 0x1b5b41
	KeyDown       uint32 = 0x1b5b42
	KeyRight      uint32 = 0x1b5b43
	KeyLeft       uint32 = 0x1b5b44
	KeyShiftUp    uint32 = 0x1b5b4d
	KeyShiftDown  uint32 = 0x1b5b4c
	KeyShiftRight uint32 = 0x1b5b3443
	KeyShiftLeft  uint32 = 0x1b5b50
	KeyCtrlLeft   uint32 = 0x7f
	KeyEnter      uint32 = 0x0d
	KeyShiftEnter uint32 = 0x1b5b48
	KeyCtrlEnter  uint32 = 0x1b5b324a
	KeyEscape     uint32 = 0x1b
)

var keyNames = map[uint32]string{
	KeyEnvoi:        "Envoi",
	KeyRetour:       "Retour",
	KeyRepetition:   "Repetition",
	KeyGuide:        "Guide",
	KeyAnnulation:   "Annulation",
	KeySommaire:     "Sommaire",
	KeyCorrection:   "Correction",
	KeySuite:        "Suite",
	KeyConnexionFin: "ConnexionFin",
	KeyUp:           "Up",
	KeyDown:         "Down",
	KeyRight:        "Right",
	KeyLeft:         "Left",
	KeyShiftUp:      "Shift+Up",
	KeyShiftDown:    "Shift+Down",
	KeyShiftRight:   "Shift+Right",
	KeyShiftLeft:    "Shift+Left",
	KeyCtrlLeft:     "Ctrl+Left",
	KeyEnter:        "Enter",
	KeyShiftEnter:   "Shift+Enter",
	KeyCtrlEnter:    "Ctrl+Enter",
	KeyEscape:       "Escape",
}

// KeyEvent is one key read from the keyboard
type KeyEvent struct {
	// Code holds the one to four bytes the keyboard sent, first byte most significant
	Code uint32
	// Rune is the character the key stands for, or zero for keys that aren't characters
	Rune rune
}

func newKeyEvent(code uint32) KeyEvent {
	r, _ := charset.KeyRune(code)
	return KeyEvent{Code: code, Rune: r}
}

// IsZero reports whether the event holds no key
func (k KeyEvent) IsZero() bool {
	return k.Code == 0
}

// Unicode returns the key's code point, or its raw code for keys that aren't characters
func (k KeyEvent) Unicode() uint32 {
	if k.Rune != 0 {
		return uint32(k.Rune)
	}

	return k.Code
}

func (k KeyEvent) String() string {
	if name, ok := keyNames[k.Code]; ok {
		return name
	}

	if text := charset.RuneString(k.Rune); text != "" {
		return text
	}

	return fmt.Sprintf("0x%X", k.Code)
}

// Keyboard is a Terminal subsidiary that decodes keys. Keys arrive as one to four
// bytes, and once the first byte of a sequence has been read the terminal
// guarantees the rest will follow, so Keyboard waits for them without a limit.
type Keyboard struct {
	terminal   *Terminal
	middleware *MiddlewareStack

	processed    KeyEvent
	hasProcessed bool
}

func newKeyboard(terminal *Terminal, middlewares []KeyMiddleware) *Keyboard {
	keyboard := &Keyboard{terminal: terminal}
	keyboard.middleware = NewMiddlewareStack(keyboard.lineOut, middlewares...)

	return keyboard
}

func (k *Keyboard) lineOut(_ *Terminal, key KeyEvent) {
	k.processed = key
	k.hasProcessed = true
}

// Middleware returns the stack keys pass through before ReadKey returns them
func (k *Keyboard) Middleware() *MiddlewareStack {
	return k.middleware
}

// ReadKey returns the next key, or a zero KeyEvent if no key is pending or a
// middleware swallowed it. It doesn't wait for a key to be pressed, but once a key
// has started arriving it waits for the whole sequence.
//
// A byte with bad parity is returned as a *ParityError; the keyboard can be read
// again afterwards.
func (k *Keyboard) ReadKey() (KeyEvent, error) {
	code, err := k.readCode()
	if err != nil || code == 0 {
		return KeyEvent{}, err
	}

	k.hasProcessed = false
	k.middleware.LineIn(k.terminal, newKeyEvent(code))
	if !k.hasProcessed || k.processed.IsZero() {
		return KeyEvent{}, nil
	}

	key := k.processed
	k.terminal.keyHooks.Fire(k.terminal, key)
	return key, nil
}

// KeyCode reads a key like ReadKey. It returns the key's code point when unicode is
// set and the key is a character, and the raw code otherwise. Zero means no key.
func (k *Keyboard) KeyCode(unicode bool) (uint32, error) {
	key, err := k.ReadKey()
	if err != nil {
		return 0, err
	}

	if unicode {
		return key.Unicode(), nil
	}

	return key.Code, nil
}

func (k *Keyboard) readCode() (uint32, error) {
	if !k.terminal.link.Available() {
		return 0, nil
	}

	b, err := k.terminal.readByte()
	if errors.Is(err, ErrNoData) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	switch b {
	case SS2:
		return k.readShift()
	case SEP:
		next, err := k.terminal.waitByte()
		if err != nil {
			return 0, err
		}

		return uint32(SEP)<<8 | uint32(next), nil
	case ESC:
		return k.readEscape()
	}

	return uint32(b), nil
}

// readShift reads the rest of a G2 key: one byte, plus the base letter when the first
// byte is a diacritic
func (k *Keyboard) readShift() (uint32, error) {
	b, err := k.terminal.waitByte()
	if err != nil {
		return 0, err
	}

	code := uint32(SS2)<<8 | uint32(b)
	if !charset.IsDiacritic(b) {
		return code, nil
	}

	for {
		base, err := k.terminal.waitByte()
		if err != nil {
			return 0, err
		}

		switch base {
		case SS2:
			// Pressing the accent key again repeats SS2 and the diacritic
			_, err = k.terminal.waitByte()
			if err != nil {
				return 0, err
			}
			continue
		case SEP:
			// A function key pressed after the accent key cancels the accent
			fn, err := k.terminal.waitByte()
			if err != nil {
				return 0, err
			}

			return uint32(SEP)<<8 | uint32(fn), nil
		}

		return code<<8 | uint32(base), nil
	}
}

// readEscape reads an extended keyboard sequence. ESC alone is the Escape key, so the
// only way to tell is to wait a little for a following byte.
func (k *Keyboard) readEscape() (uint32, error) {
	code := uint32(ESC)

	deadline := time.Now().Add(k.terminal.config.EscapeGrace)
	available, err := k.terminal.awaitAvailable(deadline)
	if err != nil {
		return 0, err
	} else if !available {
		return code, nil
	}

	b, err := k.terminal.readByte()
	if err != nil {
		return 0, err
	}

	code = code<<8 | uint32(b)
	if b != CSI[1] {
		return code, nil
	}

	b, err = k.terminal.waitByte()
	if err != nil {
		return 0, err
	}

	code = code<<8 | uint32(b)
	if b != '4' && b != '2' {
		return code, nil
	}

	b, err = k.terminal.waitByte()
	if err != nil {
		return 0, err
	}

	return code<<8 | uint32(b), nil
}
