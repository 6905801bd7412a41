package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/moodclient/videotex"
)

const (
	esc = videotex.ESC
	csi = '['
)

func TestHostFeed(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		convert bool
		want    []byte
	}{
		{"text", "Bonjour", false, []byte("Bonjour")},
		{"accents", "café", false, []byte{'c', 'a', 'f', videotex.SS2, 0x42, 'e'}},
		{"crlf", "a\r\nb", false, []byte{'a', videotex.CR, videotex.LF, 'b'}},
		{"lone lf", "a\nb", false, []byte{'a', videotex.LF, 'b'}},
		{"converted lf", "a\nb", true, []byte{'a', videotex.CR, videotex.LF, 'b'}},
		{"bell", "\a", false, []byte{videotex.BEL}},
		{"form feed", "\f", false, []byte{videotex.FF}},
		{"dropped controls", "\x0e\x0fx\x00", false, []byte{'x'}},
		{"clear", "\x1b[2J", false, []byte{esc, csi, '2', 'J'}},
		{"clear default", "\x1b[J", false, []byte{esc, csi, 'J'}},
		{"clear line", "\x1b[1K", false, []byte{esc, csi, '1', 'K'}},
		{"home", "\x1b[H", false, []byte{esc, csi, '1', ';', '1', 'H'}},
		{"position", "\x1b[5;12H", false, []byte{esc, csi, '5', ';', '1', '2', 'H'}},
		{"position clamped", "\x1b[30;80H", false, []byte{esc, csi, '2', '4', ';', '4', '0', 'H'}},
		{"up", "\x1b[A", false, []byte{videotex.VT}},
		{"right", "\x1b[3C", false, []byte{esc, csi, '3', 'C'}},
		{"colour", "\x1b[31mX", false, []byte{esc, 0x41, 'X'}},
		{"colours", "\x1b[1;33;44m", false, []byte{esc, 0x43, esc, 0x54}},
		{"bright colour", "\x1b[96m", false, []byte{esc, 0x46}},
		{"invert", "\x1b[7m", false, []byte{esc, 0x5d}},
		{"extended colour", "\x1b[38;5;200m", false, nil},
		{"colours around extended colour", "\x1b[1;31;38;5;200;4m", false, []byte{esc, 0x41, esc, 0x5a}},
		{"true colour then colour", "\x1b[48;2;10;20;30;32m", false, []byte{esc, 0x42}},
		{"sub-parameter colour", "\x1b[38:5:200;33m", false, []byte{esc, 0x43}},
		{"reset", "\x1b[0m", false, []byte{esc, 0x47, esc, 0x50, esc, 0x49, esc, 0x59, esc, 0x5c, esc, 0x5f}},
		{"hide cursor", "\x1b[?25l", false, []byte{videotex.COFF}},
		{"show cursor", "\x1b[?25h", false, []byte{videotex.CON}},
		{"cursor mode without marker", "\x1b[25h\x1b[25l", false, nil},
		{"far right", "\x1b[200C", false, []byte{esc, csi, '4', '0', 'C'}},
		{"far down", "\x1b[150B", false, []byte{esc, csi, '2', '4', 'B'}},
		{"many deleted chars", "\x1b[120P", false, []byte{esc, csi, '4', '0', 'P'}},
		{"title", "\x1b]0;title\a", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terminal, link := newTestTerminal(t, videotex.TerminalConfig{})
			feed := NewHostFeed(terminal, strings.NewReader(tt.in), HostFeedConfig{ConvertNewlines: tt.convert})

			err := feed.FeedLoop()
			if err != nil {
				t.Fatal(err)
			}

			if got := link.Written(); !bytes.Equal(got, tt.want) {
				t.Errorf("got %s, want %s", videotex.SequenceString(got), videotex.SequenceString(tt.want))
			}
		})
	}
}

func TestHostFeedWrite(t *testing.T) {
	terminal, link := newTestTerminal(t, videotex.TerminalConfig{})
	feed := NewHostFeed(terminal, nil, HostFeedConfig{})

	n, err := feed.Write([]byte("\x1b[2J\x1b[1;1HHello\x1b[32m!\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 23 {
		t.Errorf("wrote %d bytes, want 23", n)
	}

	want := []byte{
		esc, csi, '2', 'J',
		esc, csi, '1', ';', '1', 'H',
		'H', 'e', 'l', 'l', 'o',
		esc, 0x42, '!',
		videotex.CR, videotex.LF,
	}
	if got := link.Written(); !bytes.Equal(got, want) {
		t.Errorf("got %s, want %s", videotex.SequenceString(got), videotex.SequenceString(want))
	}
}
