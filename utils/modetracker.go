package utils

import (
	"bytes"
	"sync"

	"github.com/moodclient/videotex"
)

// Acknowledgment prefixes carrying a status byte
var (
	modeReplyPrefix     = []byte{videotex.ESC, 0x3a, 0x73}
	keyboardReplyPrefix = []byte{videotex.ESC, 0x3b, 0x73, 0x59}
)

// ModeTracker follows the mode and keyboard status bytes the terminal reports, so
// that callers can check the current configuration without another exchange. It only
// knows what was reported since it was created: until then, every check reports false.
type ModeTracker struct {
	lock sync.Mutex

	mode         byte
	keyboard     byte
	knowMode     bool
	knowKeyboard bool
}

func NewModeTracker(t *videotex.Terminal) *ModeTracker {
	tracker := &ModeTracker{}
	t.RegisterTelegramHook(tracker.TelegramEvent)

	return tracker
}

func (t *ModeTracker) TelegramEvent(terminal *videotex.Terminal, event videotex.TelegramEvent) {
	if !event.Matched {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	response := event.Response
	switch {
	case len(response) == len(modeReplyPrefix)+1 && bytes.HasPrefix(response, modeReplyPrefix):
		t.mode = response[len(response)-1]
		t.knowMode = true
	case len(response) == len(keyboardReplyPrefix)+1 && bytes.HasPrefix(response, keyboardReplyPrefix):
		t.keyboard = response[len(response)-1]
		t.knowKeyboard = true
	}
}

func (t *ModeTracker) modeBit(bit byte) bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.knowMode && t.mode&bit != 0
}

// IsScrolling reports whether the screen scrolls rather than wrapping to the top
func (t *ModeTracker) IsScrolling() bool {
	return t.modeBit(videotex.ModeScroll)
}

// IsLowercase reports whether the keyboard types lower case without shift
func (t *ModeTracker) IsLowercase() bool {
	return t.modeBit(videotex.ModeLowercase)
}

// IsExtendedKeyboard reports whether the cursor keys and the other extended keys are
// enabled
func (t *ModeTracker) IsExtendedKeyboard() bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.knowKeyboard && t.keyboard&videotex.KeyboardExtended != 0
}

// CursorKeysC0 reports whether the cursor keys send C0 codes instead of CSI sequences
func (t *ModeTracker) CursorKeysC0() bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.knowKeyboard && t.keyboard&videotex.KeyboardC0 != 0
}
