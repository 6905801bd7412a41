package videotex

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
)

// ErrNoData is returned by Link.ReadByte when no byte is available
var ErrNoData = errors.New("videotex: no byte available")

// Link is the transport a Terminal drives. Bytes cross it framed: the Terminal
// adds parity before WriteByte and checks it after ReadByte.
type Link interface {
	io.ByteWriter
	// ReadByte returns the next received byte. It must not block, and is only
	// expected to succeed when Available reports true.
	io.ByteReader

	// Available reports whether ReadByte has a byte to return
	Available() bool
	// Listening reports whether the receiving side of the link is attached
	Listening() bool
	// SetBaudRate reconfigures the local end of the link
	SetBaudRate(baud int) error
}

// ByteWaiter is implemented by links that can block until a byte arrives. When the
// link supports it, the Terminal uses WaitByte for the continuation bytes the
// terminal always sends, instead of polling Available. WaitByte returns an error
// once the link can no longer deliver bytes.
type ByteWaiter interface {
	WaitByte() (byte, error)
}

// ErrorReporter is implemented by links that can fail for good, like a pipe whose
// reader has closed. Once Err returns an error the Terminal stops waiting on the link
// and returns it, even where it would otherwise wait without a limit.
type ErrorReporter interface {
	Err() error
}

// PipeLink is a Link over an ordinary reader and writer, such as a net.Conn or a
// pseudo-terminal. A goroutine moves inbound bytes into a buffer so that Available
// never blocks.
type PipeLink struct {
	writer    io.Writer
	writeLock sync.Mutex

	inbound   chan byte
	listening atomic.Bool
	readErr   atomic.Value

	baud       atomic.Int64
	onBaudRate func(baud int) error
}

const pipeLinkBuffer = 4096

// NewPipeLink starts reading from reader immediately. The goroutine stops once reader
// returns an error, including io.EOF.
func NewPipeLink(reader io.Reader, writer io.Writer) *PipeLink {
	link := &PipeLink{
		writer:  writer,
		inbound: make(chan byte, pipeLinkBuffer),
	}

	link.listening.Store(true)
	go link.pump(reader)

	return link
}

// OnBaudRate registers a function that SetBaudRate calls to apply a rate to the
// underlying device. Without one, SetBaudRate only records the rate.
func (l *PipeLink) OnBaudRate(apply func(baud int) error) {
	l.onBaudRate = apply
}

func (l *PipeLink) pump(reader io.Reader) {
	defer close(l.inbound)
	defer l.listening.Store(false)

	buf := make([]byte, 256)
	for {
		n, err := reader.Read(buf)
		for _, b := range buf[:n] {
			l.inbound <- b
		}

		if err != nil {
			// Don't worry about temporary errors
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			l.readErr.Store(err)
			return
		}
	}
}

func (l *PipeLink) err() error {
	err, _ := l.readErr.Load().(error)
	if err == nil {
		return io.EOF
	}

	return err
}

// Err returns the error that stopped the reader, io.EOF included, or nil while the
// reader runs
func (l *PipeLink) Err() error {
	err, _ := l.readErr.Load().(error)
	return err
}

func (l *PipeLink) WriteByte(b byte) error {
	l.writeLock.Lock()
	defer l.writeLock.Unlock()

	for {
		_, err := l.writer.Write([]byte{b})

		// Retry when error is temporary
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}

		return err
	}
}

func (l *PipeLink) ReadByte() (byte, error) {
	select {
	case b, ok := <-l.inbound:
		if !ok {
			return 0, l.err()
		}
		return b, nil
	default:
		return 0, ErrNoData
	}
}

// WaitByte blocks until a byte arrives or the reader fails
func (l *PipeLink) WaitByte() (byte, error) {
	b, ok := <-l.inbound
	if !ok {
		return 0, l.err()
	}

	return b, nil
}

func (l *PipeLink) Available() bool {
	return len(l.inbound) > 0
}

func (l *PipeLink) Listening() bool {
	return l.listening.Load()
}

func (l *PipeLink) SetBaudRate(baud int) error {
	if l.onBaudRate != nil {
		if err := l.onBaudRate(baud); err != nil {
			return err
		}
	}

	l.baud.Store(int64(baud))
	return nil
}

// BaudRate returns the last rate passed to SetBaudRate, or zero
func (l *PipeLink) BaudRate() int {
	return int(l.baud.Load())
}
