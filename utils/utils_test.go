package utils

import (
	"testing"

	"github.com/moodclient/videotex"
	"github.com/moodclient/videotex/linktest"
)

func newTestTerminal(t *testing.T, config videotex.TerminalConfig) (*videotex.Terminal, *linktest.Link) {
	t.Helper()

	link := linktest.New()
	terminal, err := videotex.NewTerminal(link, config)
	if err != nil {
		t.Fatalf("NewTerminal: %v", err)
	}

	return terminal, link
}

// drainKeys reads keys until none are pending, returning the ones that made it
// through the middleware stack
func drainKeys(t *testing.T, terminal *videotex.Terminal, link *linktest.Link) []videotex.KeyEvent {
	t.Helper()

	var keys []videotex.KeyEvent
	for link.Pending() > 0 {
		key, err := terminal.Keyboard().ReadKey()
		if err != nil {
			t.Fatal(err)
		}
		if !key.IsZero() {
			keys = append(keys, key)
		}
	}

	return keys
}
