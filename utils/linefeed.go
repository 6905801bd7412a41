package utils

import (
	"slices"
	"sync"

	"github.com/moodclient/videotex"
	"github.com/moodclient/videotex/charset"
)

type LineFeedConfig struct {
	// MaxLength is the longest line accepted, zero for no limit. Keys past the limit
	// sound the bell.
	MaxLength int
	// SuppressLocalEcho stops the line feed from drawing what is typed. Use it when
	// the terminal echoes keys itself, see Terminal.Echo.
	SuppressLocalEcho bool
}

// LineFeed is a key middleware that edits a line of input on the terminal, the way a
// Videotex service collects a field: characters are drawn as they are typed, Correction
// erases the last character, Annulation erases the line and Envoi submits it. The
// extended keyboard's left and right keys move within the line.
//
// Submitted lines are passed to LineOut. Keys the line feed doesn't use, such as the
// other function keys, continue down the middleware stack.
type LineFeed struct {
	LineOut func(terminal *videotex.Terminal, line string)

	lineLock sync.Mutex
	config   LineFeedConfig

	currentLine []rune
	cursorPos   int
	err         error
}

func NewLineFeed(lineOut func(terminal *videotex.Terminal, line string), config LineFeedConfig) *LineFeed {
	return &LineFeed{
		LineOut: lineOut,
		config:  config,
	}
}

func (l *LineFeed) Handle(terminal *videotex.Terminal, key videotex.KeyEvent, next videotex.KeyHandler) {
	l.lineLock.Lock()

	switch key.Code {
	case videotex.KeyEnvoi, videotex.KeyEnter:
		// The echo cursor ends up after the line
		if tail := len(l.currentLine) - l.cursorPos; tail > 0 {
			l.echo(func() error {
				return StepRight(terminal.Screen(), tail)
			})
		}

		line := string(l.currentLine)
		l.currentLine = l.currentLine[:0]
		l.cursorPos = 0
		l.lineLock.Unlock()

		if l.LineOut != nil {
			l.LineOut(terminal, line)
		}
		return
	case videotex.KeyCorrection, videotex.KeyCtrlLeft:
		l.deleteBeforeCursor(terminal)
	case videotex.KeyAnnulation:
		l.clear(terminal)
	case videotex.KeyLeft:
		l.moveCursor(terminal, -1)
	case videotex.KeyRight:
		l.moveCursor(terminal, 1)
	default:
		if key.Rune < ' ' || !charset.IsRenderable(key.Rune) {
			l.lineLock.Unlock()
			next(terminal, key)
			return
		}

		l.insert(terminal, key.Rune)
	}

	l.lineLock.Unlock()
}

// Text returns the line typed so far
func (l *LineFeed) Text() string {
	l.lineLock.Lock()
	defer l.lineLock.Unlock()

	return string(l.currentLine)
}

// Err returns the first error raised while echoing, if any
func (l *LineFeed) Err() error {
	l.lineLock.Lock()
	defer l.lineLock.Unlock()

	return l.err
}

func (l *LineFeed) SuppressLocalEcho() bool {
	l.lineLock.Lock()
	defer l.lineLock.Unlock()

	return l.config.SuppressLocalEcho
}

func (l *LineFeed) SetSuppressLocalEcho(suppress bool) {
	l.lineLock.Lock()
	defer l.lineLock.Unlock()

	l.config.SuppressLocalEcho = suppress
}

// echo runs draw unless echo is suppressed or drawing already failed
func (l *LineFeed) echo(draw func() error) {
	if l.config.SuppressLocalEcho || l.err != nil {
		return
	}

	l.err = draw()
}

func (l *LineFeed) insert(terminal *videotex.Terminal, r rune) {
	screen := terminal.Screen()

	if l.config.MaxLength > 0 && len(l.currentLine) >= l.config.MaxLength {
		l.echo(screen.Bip)
		return
	}

	l.currentLine = slices.Insert(l.currentLine, l.cursorPos, r)
	l.cursorPos++

	// Redraw from the new character to the end of the line, then walk back
	tail := l.currentLine[l.cursorPos-1:]
	l.echo(func() error {
		err := screen.Print(string(tail))
		if err != nil {
			return err
		}

		return StepLeft(screen, len(tail)-1)
	})
}

func (l *LineFeed) deleteBeforeCursor(terminal *videotex.Terminal) {
	screen := terminal.Screen()

	if l.cursorPos == 0 {
		l.echo(screen.Bip)
		return
	}

	l.cursorPos--
	l.currentLine = slices.Delete(l.currentLine, l.cursorPos, l.cursorPos+1)

	// Shift the rest of the line left and blank the cell it vacated
	tail := l.currentLine[l.cursorPos:]
	l.echo(func() error {
		err := screen.MoveCursorLeft(1)
		if err != nil {
			return err
		}

		err = screen.Print(string(tail) + " ")
		if err != nil {
			return err
		}

		return StepLeft(screen, len(tail)+1)
	})
}

func (l *LineFeed) clear(terminal *videotex.Terminal) {
	screen := terminal.Screen()
	start := l.cursorPos

	l.currentLine = l.currentLine[:0]
	l.cursorPos = 0

	l.echo(func() error {
		err := StepLeft(screen, start)
		if err != nil {
			return err
		}

		return screen.Cancel()
	})
}

func (l *LineFeed) moveCursor(terminal *videotex.Terminal, delta int) {
	screen := terminal.Screen()

	target := min(max(l.cursorPos+delta, 0), len(l.currentLine))
	if target == l.cursorPos {
		l.echo(screen.Bip)
		return
	}

	moved := target - l.cursorPos
	l.cursorPos = target

	l.echo(func() error {
		if moved > 0 {
			return StepRight(screen, moved)
		}

		return StepLeft(screen, -moved)
	})
}
