package videotex

import (
	"io"

	"golang.org/x/text/transform"

	"github.com/moodclient/videotex/charset"
)

// Screen is a Terminal subsidiary that sends display commands and text. Every
// method writes through the terminal's framer as it goes: there is no buffering
// and nothing is validated. Counts and coordinates are expected to be between
// 1 and 99, rows between 1 and 24 (0 addresses the status row) and columns
// between 1 and 40.
type Screen struct {
	terminal *Terminal
	encoder  *transform.Writer
}

var (
	_ io.Writer       = (*Screen)(nil)
	_ io.StringWriter = (*Screen)(nil)
	_ io.ByteWriter   = (*Screen)(nil)
)

// NewScreen clears the screen and homes the cursor. Display attributes are reset.
func (s *Screen) NewScreen() error {
	err := s.terminal.send(FF)
	if err != nil {
		return err
	}

	s.terminal.state.Size = NormalSize
	return nil
}

// NewXY starts a sub-article at col, row. Display attributes are reset.
func (s *Screen) NewXY(col, row int) error {
	var err error
	if col == 1 && row == 1 {
		err = s.terminal.send(RS)
	} else {
		err = s.terminal.send(US, 0x40+byte(row), 0x40+byte(col))
	}

	if err != nil {
		return err
	}

	s.terminal.state.Size = NormalSize
	return nil
}

// Cursor shows the cursor
func (s *Screen) Cursor() error {
	return s.terminal.send(CON)
}

// NoCursor hides the cursor
func (s *Screen) NoCursor() error {
	return s.terminal.send(COFF)
}

// MoveCursorXY moves the cursor to col, row without resetting attributes
func (s *Screen) MoveCursorXY(col, row int) error {
	return s.terminal.send(escape(CSI, csiCursorAddress, row, col)...)
}

// move sends the one byte shorthand for a single step, and CSI Pn final otherwise.
// Nothing is sent when n is below 1.
func (s *Screen) move(n int, shorthand byte, final byte) error {
	switch {
	case n == 1:
		return s.terminal.send(shorthand)
	case n > 1:
		return s.terminal.send(escape(CSI, final, n)...)
	}

	return nil
}

// MoveCursorLeft moves the cursor n columns left, stopping at the screen edge
func (s *Screen) MoveCursorLeft(n int) error {
	return s.move(n, BS, csiCursorLeft)
}

// MoveCursorRight moves the cursor n columns right, stopping at the screen edge
func (s *Screen) MoveCursorRight(n int) error {
	return s.move(n, HT, csiCursorRight)
}

// MoveCursorDown moves the cursor n rows down, stopping at the screen edge
func (s *Screen) MoveCursorDown(n int) error {
	return s.move(n, LF, csiCursorDown)
}

// MoveCursorUp moves the cursor n rows up, stopping at the screen edge
func (s *Screen) MoveCursorUp(n int) error {
	return s.move(n, VT, csiCursorUp)
}

// MoveCursorReturn returns the cursor to the start of the row, then moves it n rows down
func (s *Screen) MoveCursorReturn(n int) error {
	err := s.terminal.send(CR)
	if err != nil {
		return err
	}

	return s.MoveCursorDown(n)
}

// Cancel fills the rest of the row with spaces. The cursor doesn't move.
func (s *Screen) Cancel() error {
	return s.terminal.send(CAN)
}

func (s *Screen) ClearScreenFromCursor() error {
	return s.terminal.send(escape(CSI, csiEraseScreen)...)
}

func (s *Screen) ClearScreenToCursor() error {
	return s.terminal.send(escape(CSI, csiEraseScreen, 1)...)
}

// ClearScreen erases the whole screen. Unlike NewScreen, the cursor doesn't move.
func (s *Screen) ClearScreen() error {
	return s.terminal.send(escape(CSI, csiEraseScreen, 2)...)
}

func (s *Screen) ClearLineFromCursor() error {
	return s.terminal.send(escape(CSI, csiEraseLine)...)
}

func (s *Screen) ClearLineToCursor() error {
	return s.terminal.send(escape(CSI, csiEraseLine, 1)...)
}

func (s *Screen) ClearLine() error {
	return s.terminal.send(escape(CSI, csiEraseLine, 2)...)
}

func (s *Screen) DeleteChars(n int) error {
	return s.terminal.send(escape(CSI, csiDeleteChars, n)...)
}

func (s *Screen) InsertChars(n int) error {
	return s.terminal.send(escape(CSI, csiInsertChars, n)...)
}

// StartInsert switches the terminal to insert mode
func (s *Screen) StartInsert() error {
	return s.terminal.send(escape(CSI, csiSetMode, insertMode)...)
}

// StopInsert switches the terminal back to replace mode
func (s *Screen) StopInsert() error {
	return s.terminal.send(escape(CSI, csiResetMode, insertMode)...)
}

func (s *Screen) DeleteLines(n int) error {
	return s.terminal.send(escape(CSI, csiDeleteLines, n)...)
}

func (s *Screen) InsertLines(n int) error {
	return s.terminal.send(escape(CSI, csiInsertLines, n)...)
}

// TextMode selects the alphanumeric set
func (s *Screen) TextMode() error {
	return s.terminal.send(SI)
}

// GraphicMode selects the semi-graphic set. See Graphic.
func (s *Screen) GraphicMode() error {
	return s.terminal.send(SO)
}

// Attributes sends a display attribute. Double height and double size characters
// extend upwards from the cursor row, so the cursor is moved down one row to make
// room for them.
func (s *Screen) Attributes(a Attribute) error {
	err := s.terminal.send(ESC, byte(a))
	if err != nil {
		return err
	}

	switch a {
	case SizeDoubleHeight, SizeDouble:
		err = s.MoveCursorDown(1)
		if err != nil {
			return err
		}
		s.terminal.state.Size = sizeModes[a]
	case SizeNormal, SizeDoubleWidth:
		s.terminal.state.Size = sizeModes[a]
	}

	return nil
}

var sizeModes = map[Attribute]SizeMode{
	SizeNormal:       NormalSize,
	SizeDoubleHeight: DoubleHeight,
	SizeDoubleWidth:  DoubleWidth,
	SizeDouble:       DoubleSize,
}

// linkWriter is the io.Writer end of the text encoder
type linkWriter struct {
	terminal *Terminal
}

func (w linkWriter) Write(p []byte) (int, error) {
	err := w.terminal.send(p...)
	if err != nil {
		return 0, err
	}

	return len(p), nil
}

// Write encodes UTF-8 text for the terminal and sends it. Characters the terminal
// cannot display are dropped. A multi-byte character split across two calls is
// held back until it is complete.
func (s *Screen) Write(p []byte) (int, error) {
	return s.writer().Write(p)
}

func (s *Screen) writer() *transform.Writer {
	if s.encoder == nil {
		s.encoder = transform.NewWriter(linkWriter{s.terminal}, charset.Videotex.NewEncoder())
	}

	return s.encoder
}

// WriteString is Write for strings
func (s *Screen) WriteString(text string) (int, error) {
	return s.Write([]byte(text))
}

// Print sends text, dropping characters the terminal cannot display
func (s *Screen) Print(text string) error {
	_, err := s.WriteString(text)
	if err != nil {
		return err
	}

	// A trailing partial rune is invalid UTF-8 by now
	return s.flush()
}

func (s *Screen) flush() error {
	if s.encoder == nil {
		return nil
	}

	err := s.encoder.Close()
	s.encoder = nil
	return err
}

// Println prints text and moves to the start of the next line, accounting for
// the current character height
func (s *Screen) Println(text string) error {
	err := s.Print(text)
	if err != nil {
		return err
	}

	return s.Newline()
}

// Newline moves to the start of the next line, accounting for the current
// character height
func (s *Screen) Newline() error {
	return s.MoveCursorReturn(s.terminal.state.Size.rows())
}

// PrintChar sends a single G0 character. Bytes outside the printable range are ignored.
func (s *Screen) PrintChar(b byte) error {
	if b < SP || b > DEL {
		return nil
	}

	return s.terminal.send(b)
}

// PrintSpecialChar sends a G2 character, such as charset.Pound. It can't be used for
// diacritics, which need a base letter: use Print instead.
func (s *Screen) PrintSpecialChar(b byte) error {
	return s.terminal.send(SS2, b)
}

// Graphic draws one semi-graphic cell. pattern holds the six pixels of the cell,
// see charset.Mosaic. The screen must be in graphic mode. Invalid patterns are ignored.
func (s *Screen) Graphic(pattern byte) error {
	b, ok := charset.Mosaic(pattern)
	if !ok {
		return nil
	}

	return s.terminal.send(b)
}

// GraphicXY moves to col, row and draws one semi-graphic cell
func (s *Screen) GraphicXY(pattern byte, col, row int) error {
	err := s.MoveCursorXY(col, row)
	if err != nil {
		return err
	}

	return s.Graphic(pattern)
}

// Repeat draws the last character n more times, with n up to 63
func (s *Screen) Repeat(n int) error {
	return s.terminal.send(REP, 0x40+byte(n))
}

// Bip sounds the terminal's bell
func (s *Screen) Bip() error {
	return s.terminal.send(BEL)
}

// WriteByte sends one raw byte
func (s *Screen) WriteByte(b byte) error {
	return s.terminal.send(b)
}

// WriteBytes sends raw bytes
func (s *Screen) WriteBytes(b ...byte) error {
	return s.terminal.send(b...)
}

// WriteWord sends the high byte of w, then the low byte
func (s *Screen) WriteWord(w uint16) error {
	return s.terminal.send(byte(w>>8), byte(w))
}

// WriteCode sends code without its leading zero bytes, most significant byte first.
// This is the inverse of the codes returned by Keyboard.KeyCode.
func (s *Screen) WriteCode(code uint32) error {
	seq := make([]byte, 0, 4)
	for shift := 24; shift > 0; shift -= 8 {
		if code>>shift != 0 {
			seq = append(seq, byte(code>>shift))
		}
	}

	return s.terminal.send(append(seq, byte(code))...)
}
