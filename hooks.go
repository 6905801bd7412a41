package videotex

import (
	"sync"
	"time"
)

// EventHook is a type for function pointers that are registered to receive events
type EventHook[T any] func(terminal *Terminal, data T)

// EventPublisher is a type used to register and fire arbitrary events
type EventPublisher[U any] struct {
	lock sync.Mutex

	registeredHooks []EventHook[U]
}

// NewPublisher creates a new EventPublisher for a particular EventHook. A slice of
// hooks can be passed in- in which case the hooks will be registered to receive events
// from the publisher.  Otherwise, nil can be passed in.
func NewPublisher[U any, T ~func(terminal *Terminal, data U)](hooks []T) *EventPublisher[U] {
	var convertedHooks []EventHook[U]

	for _, hook := range hooks {
		convertedHooks = append(convertedHooks, EventHook[U](hook))
	}

	return &EventPublisher[U]{
		registeredHooks: convertedHooks,
	}
}

// Register registers a single EventHook to receive events from this publisher.
func (e *EventPublisher[U]) Register(hook EventHook[U]) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.registeredHooks = append(e.registeredHooks, hook)
}

// Fire calls the event for all EventHook instances registered to this publisher with
// the provided parameters
func (e *EventPublisher[U]) Fire(terminal *Terminal, eventData U) {
	e.lock.Lock()
	defer e.lock.Unlock()

	for _, hook := range e.registeredHooks {
		hook(terminal, eventData)
	}
}

// TelegramEvent describes one request/acknowledgment exchange with the terminal
type TelegramEvent struct {
	// Name is the operation that ran the exchange, such as "CurrentSpeed"
	Name string
	// Request holds the unframed bytes that were sent
	Request []byte
	// Response holds the unframed bytes that matched, or the last bytes seen if
	// nothing matched
	Response []byte
	Matched  bool
	Elapsed  time.Duration
}

// ErrorHandler is an event hook type that receives errors
type ErrorHandler func(t *Terminal, err error)

// OutboundDataHandler is an event hook type that receives unframed bytes as they are
// written to the link
type OutboundDataHandler func(t *Terminal, data []byte)

// TelegramHandler is an event hook type that receives completed exchanges
type TelegramHandler func(t *Terminal, event TelegramEvent)

// KeyHandler is an event hook type that receives keys after the middleware stack
// has processed them
type KeyHandler func(t *Terminal, key KeyEvent)

// EventHooks is used to pass in a set of pre-registered event hooks to a Terminal
// when calling NewTerminal.  See TerminalConfig for more info.
type EventHooks struct {
	EncounteredError []ErrorHandler
	OutboundData     []OutboundDataHandler
	Telegram         []TelegramHandler
	KeyReceived      []KeyHandler
}
