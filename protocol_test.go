package videotex

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"testing"
	"time"
)

func TestChangeSpeed(t *testing.T) {
	terminal, link := newTestTerminal(t, TerminalConfig{})
	link.ReplyOnRate(Baud4800, ESC, 0x3a, 0x75, 0x76)

	baud, err := terminal.ChangeSpeed(Baud4800)
	if err != nil {
		t.Fatal(err)
	}
	if baud != Baud4800 {
		t.Errorf("got %d, want 4800", baud)
	}

	if got, want := link.Written(), []byte{ESC, 0x3a, 0x6b, 0x76}; !bytes.Equal(got, want) {
		t.Errorf("sent % X, want % X", got, want)
	}
	if got, want := link.Rates(), []int{Baud1200, Baud4800}; !slices.Equal(got, want) {
		t.Errorf("rates %v, want %v", got, want)
	}
	if got := terminal.State().Baud; got != Baud4800 {
		t.Errorf("state rate %d, want 4800", got)
	}
}

func TestChangeSpeedLost(t *testing.T) {
	terminal, link := newTestTerminal(t, TerminalConfig{SpeedTimeout: 5 * time.Millisecond})

	baud, err := terminal.ChangeSpeed(Baud9600)
	if err != nil {
		t.Fatal(err)
	}
	if baud != BaudUnknown {
		t.Errorf("got %d, want BaudUnknown", baud)
	}

	// The link has switched even though the terminal didn't confirm
	if got := link.Rates(); got[len(got)-1] != Baud9600 {
		t.Errorf("rates %v, want 9600 last", got)
	}
}

func TestChangeSpeedUnsupported(t *testing.T) {
	terminal, link := newTestTerminal(t, TerminalConfig{})

	baud, err := terminal.ChangeSpeed(2400)
	if !errors.Is(err, ErrUnsupportedBaud) {
		t.Errorf("got %v, want ErrUnsupportedBaud", err)
	}
	if baud != BaudUnknown {
		t.Errorf("got %d, want BaudUnknown", baud)
	}
	if len(link.Written()) != 0 {
		t.Errorf("sent % X", link.Written())
	}
}

func TestCurrentSpeedUnknownCode(t *testing.T) {
	terminal, link := newTestTerminal(t, TerminalConfig{})
	link.Feed(ESC, 0x3a, 0x75, 0x41)

	baud, err := terminal.CurrentSpeed()
	if err != nil {
		t.Fatal(err)
	}
	if baud != BaudUnknown {
		t.Errorf("got %d, want BaudUnknown", baud)
	}
	if got := terminal.State().Baud; got != Baud1200 {
		t.Errorf("state rate changed to %d", got)
	}
}

func TestSearchSpeed(t *testing.T) {
	terminal, link := newTestTerminal(t, TerminalConfig{SpeedTimeout: 2 * time.Millisecond})
	link.ReplyOnRate(Baud4800, ESC, 0x3a, 0x75, 0x76)

	baud, err := terminal.SearchSpeed(1)
	if err != nil {
		t.Fatal(err)
	}
	if baud != Baud4800 {
		t.Errorf("got %d, want 4800", baud)
	}

	if got, want := link.Rates(), []int{Baud1200, Baud1200, Baud4800}; !slices.Equal(got, want) {
		t.Errorf("rates %v, want %v", got, want)
	}
	if got := terminal.State().Baud; got != Baud4800 {
		t.Errorf("state rate %d, want 4800", got)
	}
}

func TestSearchSpeedNoAnswer(t *testing.T) {
	terminal, link := newTestTerminal(t, TerminalConfig{SpeedTimeout: time.Millisecond})

	baud, err := terminal.SearchSpeed(2)
	if err != nil {
		t.Fatal(err)
	}
	if baud != BaudUnknown {
		t.Errorf("got %d, want BaudUnknown", baud)
	}

	want := []int{Baud1200}
	for range 2 {
		want = append(want, searchOrder...)
	}
	want = append(want, Baud1200)

	if got := link.Rates(); !slices.Equal(got, want) {
		t.Errorf("rates %v, want %v", got, want)
	}
	if got := terminal.State().Baud; got != Baud1200 {
		t.Errorf("state rate %d, want 1200 restored", got)
	}
}

func TestIdentifyDevice(t *testing.T) {
	tests := []struct {
		name   string
		reply  []byte
		want   Identification
		wantOK bool
	}{
		{"minitel 1b", []byte{SOH, 0x43, 0x75, '4', EOT}, Identification{0x43, 0x75, '4'}, true},
		{"after noise", []byte{0x41, SOH, 0x42, 0x76, '2', EOT}, Identification{0x42, 0x76, '2'}, true},
		{"payload looks like a frame", []byte{SOH, SOH, SOH, SOH, EOT}, Identification{SOH, SOH, SOH}, true},
		{"bad terminator", []byte{SOH, 0x43, 0x75, '4', 'X'}, Identification{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terminal, link := newTestTerminal(t, TerminalConfig{})
			link.Reply([]byte{ESC, 0x39, 0x7b}, tt.reply...)

			id, ok, err := terminal.IdentifyDevice()
			if err != nil {
				t.Fatal(err)
			}
			if ok != tt.wantOK || id != tt.want {
				t.Errorf("got %+v, %v, want %+v, %v", id, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIdentifyDeviceTimeout(t *testing.T) {
	terminal, link := newTestTerminal(t, TerminalConfig{IdentifyTimeout: 5 * time.Millisecond})
	link.Feed(SOH, 0x43, 0x75, '4')

	_, ok, err := terminal.IdentifyDevice()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("identified without a terminator")
	}
}

func TestIdentificationString(t *testing.T) {
	tests := []struct {
		id   Identification
		want string
	}{
		{Identification{0x43, 0x75, '4'}, "Telic-Alcatel Minitel 1 Bistandard (version 4)"},
		{Identification{0x42, 0x76, '2'}, "Philips Minitel 2 (version 2)"},
		{Identification{0x51, 0x30, '1'}, "0x51 0x30 (version 1)"},
	}

	for _, tt := range tests {
		if got := tt.id.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestStatusCommands(t *testing.T) {
	tests := []struct {
		name    string
		run     func(*Terminal) (byte, error)
		request []byte
		reply   []byte
		want    byte
	}{
		{"page", (*Terminal).PageMode, []byte{ESC, 0x3a, 0x6a, 0x43}, []byte{ESC, 0x3a, 0x73, 0x00}, 0x00},
		{"scroll", (*Terminal).ScrollMode, []byte{ESC, 0x3a, 0x69, 0x43}, []byte{ESC, 0x3a, 0x73, ModeScroll}, ModeScroll},
		{"small", (*Terminal).SmallMode, []byte{ESC, 0x3a, 0x69, 0x45}, []byte{ESC, 0x3a, 0x73, ModeLowercase}, ModeLowercase},
		{"capital", (*Terminal).CapitalMode, []byte{ESC, 0x3a, 0x6a, 0x45}, []byte{ESC, 0x3a, 0x73, 0x00}, 0x00},
		{"mode status", (*Terminal).ModeStatus, []byte{ESC, 0x39, 0x72}, []byte{ESC, 0x3a, 0x73, 0x06}, 0x06},
		{"extended keyboard", (*Terminal).ExtendedKeyboard, []byte{ESC, 0x3b, 0x69, 0x59, 0x41}, []byte{ESC, 0x3b, 0x73, 0x59, 0x41}, 0x41},
		{"standard keyboard", (*Terminal).StandardKeyboard, []byte{ESC, 0x3b, 0x6a, 0x59, 0x41}, []byte{ESC, 0x3b, 0x73, 0x59, 0x40}, 0x40},
		{"cursor keys c0", func(t *Terminal) (byte, error) { return t.CursorKeysC0(true) }, []byte{ESC, 0x3b, 0x69, 0x59, 0x43}, []byte{ESC, 0x3b, 0x73, 0x59, 0x45}, 0x45},
		{"cursor keys csi", func(t *Terminal) (byte, error) { return t.CursorKeysC0(false) }, []byte{ESC, 0x3b, 0x6a, 0x59, 0x43}, []byte{ESC, 0x3b, 0x73, 0x59, 0x41}, 0x41},
		{"keyboard status", (*Terminal).KeyboardStatus, []byte{ESC, 0x3a, 0x72, 0x59}, []byte{ESC, 0x3b, 0x73, 0x59, 0x41}, 0x41},
		{"echo on", func(t *Terminal) (byte, error) { return t.Echo(true) }, []byte{ESC, 0x3b, 0x61, 0x5a, 0x51}, []byte{ESC, 0x3b, 0x63, 0x5a, 0x46}, 0x46},
		{"echo off", func(t *Terminal) (byte, error) { return t.Echo(false) }, []byte{ESC, 0x3b, 0x60, 0x5a, 0x51}, []byte{ESC, 0x3b, 0x63, 0x5a, 0x44}, 0x44},
		{"route", func(t *Terminal) (byte, error) { return t.Route(true, ModemTx, ScreenRx) }, []byte{ESC, 0x3b, 0x61, 0x58, 0x52}, []byte{ESC, 0x3b, 0x63, 0x58, 0x05}, 0x05},
		{"route status", func(t *Terminal) (byte, error) { return t.RouteStatus(ScreenRx) }, []byte{ESC, 0x3a, 0x62, 0x58}, []byte{ESC, 0x3b, 0x63, 0x58, 0x07}, 0x07},
		{"connect", func(t *Terminal) (byte, error) { return t.Connect(true) }, []byte{ESC, 0x39, 0x68}, []byte{SEP, 0x53}, 0x53},
		{"disconnect", func(t *Terminal) (byte, error) { return t.Connect(false) }, []byte{ESC, 0x39, 0x67}, []byte{SEP, 0x53}, 0x53},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terminal, link := newTestTerminal(t, TerminalConfig{})
			link.Reply(tt.request, tt.reply...)

			got, err := tt.run(terminal)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got 0x%02X, want 0x%02X", got, tt.want)
			}
			if written := link.Written(); !bytes.Equal(written, tt.request) {
				t.Errorf("sent % X, want % X", written, tt.request)
			}
			if link.Pending() != 0 {
				t.Errorf("%d reply bytes left unread", link.Pending())
			}
		})
	}
}

func TestStatusCommandTimeout(t *testing.T) {
	terminal, _ := newTestTerminal(t, TerminalConfig{StatusTimeout: 5 * time.Millisecond})

	for name, run := range map[string]func() (byte, error){
		"mode":     terminal.ModeStatus,
		"keyboard": terminal.KeyboardStatus,
		"route":    func() (byte, error) { return terminal.RouteStatus(ModemRx) },
		"connect":  func() (byte, error) { return terminal.Connect(true) },
	} {
		got, err := run()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != StatusUnknown {
			t.Errorf("%s: got 0x%02X, want StatusUnknown", name, got)
		}
	}
}

func TestStatusCommandLinkFailure(t *testing.T) {
	terminal, link := newTestTerminal(t, TerminalConfig{})
	// Half a reply, then the link goes away
	link.Reply([]byte{ESC, 0x39, 0x72}, ESC, 0x3a)
	link.Fail(io.ErrClosedPipe)

	got, err := terminal.ModeStatus()
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("got %v, want io.ErrClosedPipe", err)
	}
	if got != StatusUnknown {
		t.Errorf("got 0x%02X, want StatusUnknown", got)
	}
	if link.Pending() != 0 {
		t.Error("bytes received before the failure were not read")
	}
}

func TestStatusByteParity(t *testing.T) {
	var errs []error
	terminal, link := newTestTerminal(t, TerminalConfig{})
	terminal.RegisterEncounteredErrorHook(func(_ *Terminal, err error) {
		errs = append(errs, err)
	})

	link.Feed(ESC, 0x3b, 0x73, 0x59)
	link.FeedRaw(0x01)

	got, err := terminal.KeyboardStatus()
	if err != nil {
		t.Fatal(err)
	}
	if got != StatusUnknown {
		t.Errorf("got 0x%02X, want StatusUnknown", got)
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrParity) {
		t.Errorf("error hook got %v, want one parity error", errs)
	}
}

func TestStandardCommands(t *testing.T) {
	tests := []struct {
		name    string
		run     func(*Terminal) (bool, error)
		request []byte
		reply   []byte
	}{
		{"reset", (*Terminal).Reset, []byte{ESC, 0x39, 0x7f}, []byte{SEP, 0x5e}},
		{"mixte", (*Terminal).ModeMixte, []byte{ESC, 0x3a, 0x32, 0x7d}, []byte{SEP, 0x70}},
		{"videotex", (*Terminal).ModeVideotex, []byte{ESC, 0x3a, 0x32, 0x7e}, []byte{SEP, 0x71}},
		{"teleinformatique", (*Terminal).StandardTeleinformatique, []byte{ESC, 0x3a, 0x31, 0x7d}, []byte{ESC, 0x5b, 0x3f, 0x7a}},
		{"teletel", (*Terminal).StandardTeletel, []byte{ESC, 0x5b, 0x3f, 0x7b}, []byte{SEP, 0x5e}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terminal, link := newTestTerminal(t, TerminalConfig{StandardTimeout: 5 * time.Millisecond})

			ok, err := tt.run(terminal)
			if err != nil {
				t.Fatal(err)
			}
			if ok {
				t.Error("acknowledged without a reply")
			}
			if written := link.Written(); !bytes.Equal(written, tt.request) {
				t.Errorf("sent % X, want % X", written, tt.request)
			}

			link.ClearWritten()
			link.Reply(tt.request, tt.reply...)

			ok, err = tt.run(terminal)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Error("acknowledgment not recognised")
			}
		})
	}
}

func TestResetRestoresSize(t *testing.T) {
	terminal, link := newTestTerminal(t, TerminalConfig{})

	if err := terminal.Screen().Attributes(SizeDouble); err != nil {
		t.Fatal(err)
	}

	link.Reply([]byte{ESC, 0x39, 0x7f}, SEP, 0x5e)
	ok, err := terminal.Reset()
	if err != nil || !ok {
		t.Fatalf("Reset = %v, %v", ok, err)
	}

	if got := terminal.State().Size; got != NormalSize {
		t.Errorf("size %v, want Normal", got)
	}
}

func TestCursorPosition(t *testing.T) {
	terminal, link := newTestTerminal(t, TerminalConfig{})
	link.Reply([]byte{ESC, 0x61}, US, 0x45, 0x4b)

	pos, ok, err := terminal.CursorPosition()
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("no position")
	}
	if want := (Position{Col: 11, Row: 5}); pos != want {
		t.Errorf("got %+v, want %+v", pos, want)
	}
}

func TestCursorPositionTimeout(t *testing.T) {
	terminal, _ := newTestTerminal(t, TerminalConfig{StatusTimeout: 5 * time.Millisecond})

	pos, ok, err := terminal.CursorPosition()
	if err != nil {
		t.Fatal(err)
	}
	if ok || pos != (Position{}) {
		t.Errorf("got %+v, %v, want nothing", pos, ok)
	}
}
