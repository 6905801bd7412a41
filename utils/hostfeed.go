package utils

import (
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/moodclient/videotex"
)

// Screen size of the terminal in its default 40 column mode
const (
	screenRows = 24
	screenCols = 40
)

type HostFeedConfig struct {
	// ConvertNewlines makes a lone LF return to the start of the next line, the way
	// a tty in cooked mode would. Otherwise LF only moves down.
	ConvertNewlines bool
}

// HostFeed displays text from a host program on the terminal. The host is expected to
// write for an ANSI terminal: the control codes and CSI sequences the terminal has an
// equivalent for are translated, and everything else is dropped.
type HostFeed struct {
	terminal *videotex.Terminal
	input    io.Reader
	config   HostFeedConfig

	parser      *ansi.Parser
	parserState byte
	parsedBytes []byte
	text        strings.Builder
}

func NewHostFeed(terminal *videotex.Terminal, input io.Reader, config HostFeedConfig) *HostFeed {
	return &HostFeed{
		terminal: terminal,
		input:    input,
		config:   config,
		parser:   ansi.NewParser(nil),
	}
}

// FeedLoop copies the input to the terminal until the input is exhausted. Reaching
// io.EOF is not an error.
func (f *HostFeed) FeedLoop() error {
	buf := make([]byte, 1024)

	for {
		n, err := f.input.Read(buf)
		if n > 0 {
			_, writeErr := f.Write(buf[:n])
			if writeErr != nil {
				return writeErr
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
	}
}

// Write translates p and sends it to the terminal. An escape sequence split across
// two calls is completed by the second.
func (f *HostFeed) Write(p []byte) (int, error) {
	index := 0

	for index < len(p) {
		var parsed []byte
		var width, consumed int
		parsed, width, consumed, f.parserState = ansi.DecodeSequence(p[index:], f.parserState, f.parser)
		index += consumed

		if width > 0 {
			f.text.Write(parsed)
			continue
		}

		f.parsedBytes = append(f.parsedBytes, parsed...)
		if f.parserState != ansi.NormalState {
			continue
		}

		err := f.flushText()
		if err != nil {
			return index, err
		}

		err = f.dispatch(f.parsedBytes)
		f.parsedBytes = f.parsedBytes[:0]
		if err != nil {
			return index, err
		}
	}

	return len(p), f.flushText()
}

func (f *HostFeed) flushText() error {
	if f.text.Len() == 0 {
		return nil
	}

	text := f.text.String()
	f.text.Reset()

	return f.terminal.Screen().Print(text)
}

func (f *HostFeed) dispatch(seq []byte) error {
	switch {
	case len(seq) == 1:
		return f.controlCode(seq[0])
	case ansi.HasCsiPrefix(seq):
		return f.csi(ansi.CsiSequence{
			Cmd:    f.parser.Cmd(),
			Params: append([]ansi.Parameter{}, f.parser.Params()...),
		})
	}

	// OSC, DCS and the other string sequences have no equivalent
	return nil
}

func (f *HostFeed) controlCode(code byte) error {
	screen := f.terminal.Screen()

	switch code {
	case videotex.LF:
		if f.config.ConvertNewlines {
			return screen.Newline()
		}
		return screen.MoveCursorDown(1)
	case videotex.FF:
		return screen.NewScreen()
	case videotex.BEL:
		return screen.Bip()
	case videotex.BS, videotex.HT, videotex.VT, videotex.CR:
		// Same meaning on both sides
		return screen.WriteByte(code)
	}

	return nil
}

func (f *HostFeed) csi(seq ansi.CsiSequence) error {
	screen := f.terminal.Screen()
	// Counts past the edge of the screen change nothing more, and keep the
	// parameter within two digits
	count, _ := seq.Param(0, 1)
	rows := clamp(count, screenRows)
	cols := clamp(count, screenCols)

	switch seq.Cmd.Command() {
	case 'A':
		return screen.MoveCursorUp(rows)
	case 'B':
		return screen.MoveCursorDown(rows)
	case 'C':
		return screen.MoveCursorRight(cols)
	case 'D':
		return screen.MoveCursorLeft(cols)
	case 'H', 'f':
		row, _ := seq.Param(0, 1)
		col, _ := seq.Param(1, 1)
		return screen.MoveCursorXY(clamp(col, screenCols), clamp(row, screenRows))
	case 'J':
		mode, _ := seq.Param(0, 0)
		switch mode {
		case 0:
			return screen.ClearScreenFromCursor()
		case 1:
			return screen.ClearScreenToCursor()
		}
		return screen.ClearScreen()
	case 'K':
		mode, _ := seq.Param(0, 0)
		switch mode {
		case 0:
			return screen.ClearLineFromCursor()
		case 1:
			return screen.ClearLineToCursor()
		}
		return screen.ClearLine()
	case 'L':
		return screen.InsertLines(rows)
	case 'M':
		return screen.DeleteLines(rows)
	case 'P':
		return screen.DeleteChars(cols)
	case '@':
		return screen.InsertChars(cols)
	case 'h', 'l':
		// Only the cursor visibility mode, ?25
		mode, _ := seq.Param(0, 0)
		if seq.Marker() != '?' || mode != 25 {
			return nil
		}
		if seq.Cmd.Command() == 'h' {
			return screen.Cursor()
		}
		return screen.NoCursor()
	case 'm':
		return f.sgr(seq)
	}

	return nil
}

func clamp(n, limit int) int {
	if n < 1 {
		return 1
	}
	if n > limit {
		return limit
	}

	return n
}

// sgr maps graphic rendition onto the terminal's serial attributes
func (f *HostFeed) sgr(seq ansi.CsiSequence) error {
	count := len(seq.Params)
	if count == 0 {
		count = 1
	}

	var attributes []videotex.Attribute
	for i := 0; i < count; i++ {
		param, _ := seq.Param(i, 0)

		switch {
		case param == 0:
			attributes = append(attributes, videotex.CharWhite, videotex.BackgroundBlack,
				videotex.Steady, videotex.UnderlineEnd, videotex.BackgroundNormal, videotex.Unmask)
		case param == 4:
			attributes = append(attributes, videotex.UnderlineStart)
		case param == 5 || param == 6:
			attributes = append(attributes, videotex.Blink)
		case param == 7:
			attributes = append(attributes, videotex.BackgroundInvert)
		case param == 8:
			attributes = append(attributes, videotex.Mask)
		case param == 24:
			attributes = append(attributes, videotex.UnderlineEnd)
		case param == 25:
			attributes = append(attributes, videotex.Steady)
		case param == 27:
			attributes = append(attributes, videotex.BackgroundNormal)
		case param == 28:
			attributes = append(attributes, videotex.Unmask)
		case param >= 30 && param <= 37:
			attributes = append(attributes, videotex.CharBlack+videotex.Attribute(param-30))
		case param == 39:
			attributes = append(attributes, videotex.CharWhite)
		case param >= 40 && param <= 47:
			attributes = append(attributes, videotex.BackgroundBlack+videotex.Attribute(param-40))
		case param == 49:
			attributes = append(attributes, videotex.BackgroundBlack)
		case param >= 90 && param <= 97:
			attributes = append(attributes, videotex.CharBlack+videotex.Attribute(param-90))
		case param == 38 || param == 48:
			// Extended colours can't be mapped, but what follows them can
			i = skipExtendedColour(seq.Params, i)
		}
	}

	for _, attribute := range attributes {
		err := f.terminal.Screen().Attributes(attribute)
		if err != nil {
			return err
		}
	}

	return nil
}

// skipExtendedColour returns the index of the last parameter of the 38 or 48
// colour starting at i
func skipExtendedColour(params []ansi.Parameter, i int) int {
	// 38:5:n and 38:2:r:g:b flag every parameter that has sub-parameters after it
	if params[i].HasMore() {
		for i < len(params)-1 && params[i].HasMore() {
			i++
		}
		return i
	}

	if i+1 < len(params) {
		switch params[i+1].Param(0) {
		case 5:
			return min(i+2, len(params)-1)
		case 2:
			return min(i+4, len(params)-1)
		}
	}

	return i
}
