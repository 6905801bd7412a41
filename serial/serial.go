// Package serial connects a videotex.Terminal to a terminal's peripheral socket
// through a serial port.
//
// The socket speaks 7 data bits with even parity. The port is opened as 8 data
// bits without parity instead, since the Terminal computes the parity bit itself
// and checks it on every byte it receives.
package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	tarm "github.com/tarm/serial"

	"github.com/moodclient/videotex"
)

// ReadTimeout is how long a read on the port waits before checking whether the
// link has been closed
const ReadTimeout = 100 * time.Millisecond

// Link is a videotex.Link over a serial port. Changing the rate reopens the port.
type Link struct {
	name string

	lock sync.Mutex
	port *tarm.Port
	pipe *videotex.PipeLink
	baud int
}

var _ videotex.Link = (*Link)(nil)
var _ videotex.ByteWaiter = (*Link)(nil)
var _ videotex.ErrorReporter = (*Link)(nil)

// Open opens the named port at baud
func Open(name string, baud int) (*Link, error) {
	link := &Link{name: name}

	err := link.open(baud)
	if err != nil {
		return nil, err
	}

	return link, nil
}

func (l *Link) open(baud int) error {
	port, err := tarm.OpenPort(&tarm.Config{
		Name:        l.name,
		Baud:        baud,
		ReadTimeout: ReadTimeout,
		Size:        8,
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
	})
	if err != nil {
		return fmt.Errorf("serial: open %s at %d baud: %w", l.name, baud, err)
	}

	l.port = port
	l.baud = baud
	l.pipe = videotex.NewPipeLink(portReader{port}, port)
	return nil
}

// portReader turns read timeouts into empty reads so the pipe keeps reading
type portReader struct {
	port *tarm.Port
}

func (r portReader) Read(b []byte) (int, error) {
	n, err := r.port.Read(b)
	if errors.Is(err, io.EOF) {
		return n, nil
	}

	return n, err
}

func (l *Link) current() *videotex.PipeLink {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.pipe
}

func (l *Link) WriteByte(b byte) error {
	return l.current().WriteByte(b)
}

func (l *Link) ReadByte() (byte, error) {
	return l.current().ReadByte()
}

func (l *Link) WaitByte() (byte, error) {
	return l.current().WaitByte()
}

func (l *Link) Available() bool {
	return l.current().Available()
}

func (l *Link) Listening() bool {
	return l.current().Listening()
}

func (l *Link) Err() error {
	return l.current().Err()
}

// requestBits is the number of bits on the wire for the longest request that can
// precede a rate change: four bytes of ten bits each
const requestBits = 4 * 10

// SetBaudRate reopens the port at baud. Bytes received but not yet read are lost.
func (l *Link) SetBaudRate(baud int) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if baud == l.baud {
		return nil
	}

	// Writes return once the bytes are queued, let the last request go out at the
	// old rate before closing
	if l.baud > 0 {
		time.Sleep(requestBits * time.Second / time.Duration(l.baud))
	}

	err := l.port.Close()
	if err != nil {
		return fmt.Errorf("serial: close %s: %w", l.name, err)
	}

	return l.open(baud)
}

// BaudRate returns the rate the port is open at
func (l *Link) BaudRate() int {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.baud
}

// Close closes the port. Pending and future reads fail.
func (l *Link) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.port.Close()
}
