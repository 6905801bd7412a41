package videotex

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Terminal drives a Teletel (Minitel) terminal over a Link. The terminal is a
// display with an attached keyboard: output is sent through Screen, keys are
// read through Keyboard, and the negotiated commands (speed, modes, routing,
// identification) are methods of the Terminal itself.
//
// The protocol is half-duplex and synchronous. Every exchange sends a request
// and then polls the link until the acknowledgment arrives or its budget runs
// out, so a Terminal must be used from one goroutine at a time. Callers sharing
// a Terminal between goroutines must serialize all calls themselves.
//
// Every byte written is framed with even parity and every byte read is checked.
// Hooks are called synchronously from whatever method raised the event, which
// means that blocking calls made in hook methods will block the caller.
type Terminal struct {
	link   Link
	config TerminalConfig
	state  SessionState

	screen   *Screen
	keyboard *Keyboard

	encounteredErrorHooks *EventPublisher[error]
	outboundDataHooks     *EventPublisher[[]byte]
	telegramHooks         *EventPublisher[TelegramEvent]
	keyHooks              *EventPublisher[KeyEvent]
}

// NewTerminal wraps link and configures it at config.InitialBaud. Nothing is sent
// to the terminal.
//
// All functioning of this terminal is determined by the properties passed in the TerminalConfig
// object.  See that type for more information.
func NewTerminal(link Link, config TerminalConfig) (*Terminal, error) {
	if link == nil {
		return nil, errors.New("videotex: nil link")
	}

	config = config.withDefaults()
	if _, ok := baudCodes[config.InitialBaud]; !ok {
		return nil, fmt.Errorf("initial rate %d: %w", config.InitialBaud, ErrUnsupportedBaud)
	}

	err := link.SetBaudRate(config.InitialBaud)
	if err != nil {
		return nil, fmt.Errorf("videotex: set initial rate: %w", err)
	}

	terminal := &Terminal{
		link:   link,
		config: config,
		state: SessionState{
			Size: NormalSize,
			Baud: config.InitialBaud,
		},

		encounteredErrorHooks: NewPublisher(config.EventHooks.EncounteredError),
		outboundDataHooks:     NewPublisher(config.EventHooks.OutboundData),
		telegramHooks:         NewPublisher(config.EventHooks.Telegram),
		keyHooks:              NewPublisher(config.EventHooks.KeyReceived),
	}
	terminal.screen = &Screen{terminal: terminal}
	terminal.keyboard = newKeyboard(terminal, config.KeyMiddlewares)

	return terminal, nil
}

// Screen returns the object used to send display commands and text
func (t *Terminal) Screen() *Screen {
	return t.screen
}

// Keyboard returns the object used to read keys
func (t *Terminal) Keyboard() *Keyboard {
	return t.keyboard
}

// Link returns the link the terminal was created with
func (t *Terminal) Link() Link {
	return t.link
}

// State returns a copy of the mirrored session state
func (t *Terminal) State() SessionState {
	return t.state
}

// send frames and writes each byte in order
func (t *Terminal) send(seq ...byte) error {
	for i, b := range seq {
		err := t.link.WriteByte(Frame(b))
		if err != nil {
			if i > 0 {
				t.outboundDataHooks.Fire(t, seq[:i])
			}
			return fmt.Errorf("videotex: write: %w", err)
		}
	}

	if len(seq) > 0 {
		t.outboundDataHooks.Fire(t, seq)
	}

	return nil
}

// readByte reads one available byte and checks its parity. It must only be called
// after the link reported a byte available.
func (t *Terminal) readByte() (byte, error) {
	raw, err := t.link.ReadByte()
	if err != nil {
		return 0, err
	}

	return Deframe(raw)
}

// waitByte blocks until the link delivers a byte. It is used only where the terminal
// guarantees that a byte will follow, so there is no budget.
func (t *Terminal) waitByte() (byte, error) {
	if waiter, ok := t.link.(ByteWaiter); ok {
		raw, err := waiter.WaitByte()
		if err != nil {
			return 0, err
		}

		return Deframe(raw)
	}

	_, err := t.awaitAvailable(time.Time{})
	if err != nil {
		return 0, err
	}

	return t.readByte()
}

// linkErr returns the error that ended the link, if the link reports one
func (t *Terminal) linkErr() error {
	reporter, ok := t.link.(ErrorReporter)
	if !ok {
		return nil
	}

	return reporter.Err()
}

// awaitAvailable polls the link until a byte is available or the deadline passes.
// A zero deadline waits forever, unless the link fails: its error is returned once
// the bytes it received before failing have been read.
func (t *Terminal) awaitAvailable(deadline time.Time) (bool, error) {
	for !t.link.Available() {
		if err := t.linkErr(); err != nil {
			if t.link.Available() {
				return true, nil
			}
			return false, fmt.Errorf("videotex: link failed: %w", err)
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return false, nil
		}
		t.pause()
	}

	return true, nil
}

// awaitListening polls the link until the receiver is attached or the deadline
// passes. A zero deadline waits forever, unless the link fails.
func (t *Terminal) awaitListening(deadline time.Time) (bool, error) {
	for !t.link.Listening() {
		if err := t.linkErr(); err != nil {
			return false, fmt.Errorf("videotex: link failed: %w", err)
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return false, nil
		}
		t.pause()
	}

	return true, nil
}

func (t *Terminal) pause() {
	if t.config.PollInterval > 0 {
		time.Sleep(t.config.PollInterval)
		return
	}

	runtime.Gosched()
}

func deadlineFor(start time.Time, budget time.Duration) time.Time {
	if budget <= 0 {
		return time.Time{}
	}

	return start.Add(budget)
}

func (t *Terminal) encounteredError(err error) {
	t.encounteredErrorHooks.Fire(t, err)
}

// RegisterEncounteredErrorHook will register an event to be called when an error
// was encountered that did not end the current operation, such as a parity error
// while waiting for an acknowledgment.
func (t *Terminal) RegisterEncounteredErrorHook(encounteredError ErrorHandler) {
	t.encounteredErrorHooks.Register(EventHook[error](encounteredError))
}

// RegisterOutboundDataHook will register an event to be called when bytes have been
// written to the link. The bytes are passed without parity. This is primarily useful
// for debug logging.
func (t *Terminal) RegisterOutboundDataHook(outboundData OutboundDataHandler) {
	t.outboundDataHooks.Register(EventHook[[]byte](outboundData))
}

// RegisterTelegramHook will register an event to be called when a negotiated command
// has completed, whether or not it was acknowledged.
func (t *Terminal) RegisterTelegramHook(telegram TelegramHandler) {
	t.telegramHooks.Register(EventHook[TelegramEvent](telegram))
}

// RegisterKeyReceivedHook will register an event to be called when Keyboard.ReadKey
// returns a key.
func (t *Terminal) RegisterKeyReceivedHook(key KeyHandler) {
	t.keyHooks.Register(EventHook[KeyEvent](key))
}
