// Package linktest provides a scripted videotex.Link for tests, in the manner of
// net/http/httptest. Inbound bytes are queued up front or in response to what the
// code under test writes, and everything written is recorded.
package linktest

import (
	"bytes"
	"io"
	"math/bits"
	"sync"
	"time"
)

type reply struct {
	trigger []byte
	bytes   []byte
}

// Link is a scripted link. The zero value is not usable, call New.
type Link struct {
	lock sync.Mutex

	inbound []byte
	written []byte
	rates   []int

	listening   bool
	listenAfter int

	replies     []reply
	rateReplies map[int][]byte
	rateErr     error

	failErr    error
	writeDelay time.Duration
}

// New returns a link that is listening and has nothing to read
func New() *Link {
	return &Link{
		listening:   true,
		rateReplies: make(map[int][]byte),
	}
}

// Frame sets bit 7 of b to even parity, as the terminal does
func Frame(b byte) byte {
	return b&0x7f | byte(bits.OnesCount8(b&0x7f)&1)<<7
}

// Feed queues bytes to be read, adding parity to each
func (l *Link) Feed(b ...byte) {
	l.lock.Lock()
	defer l.lock.Unlock()

	for _, c := range b {
		l.inbound = append(l.inbound, Frame(c))
	}
}

// FeedRaw queues bytes to be read exactly as given
func (l *Link) FeedRaw(b ...byte) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.inbound = append(l.inbound, b...)
}

// Reply queues response (with parity) once the bytes written so far end with
// trigger, compared without parity. Each reply fires once.
func (l *Link) Reply(trigger []byte, response ...byte) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.replies = append(l.replies, reply{trigger: trigger, bytes: response})
}

// ReplyOnRate queues response (with parity) when the rate is set to baud
func (l *Link) ReplyOnRate(baud int, response ...byte) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.rateReplies[baud] = response
}

// FailRates makes SetBaudRate return err
func (l *Link) FailRates(err error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.rateErr = err
}

// SetListening sets what Listening returns
func (l *Link) SetListening(listening bool) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.listening = listening
}

// ListenAfter makes Listening return false n times before it returns true
func (l *Link) ListenAfter(n int) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.listening = true
	l.listenAfter = n
}

// Written returns everything written so far with the parity bit cleared
func (l *Link) Written() []byte {
	l.lock.Lock()
	defer l.lock.Unlock()

	out := make([]byte, len(l.written))
	for i, b := range l.written {
		out[i] = b & 0x7f
	}

	return out
}

// WrittenFramed returns everything written so far, exactly as written
func (l *Link) WrittenFramed() []byte {
	l.lock.Lock()
	defer l.lock.Unlock()

	return bytes.Clone(l.written)
}

// ClearWritten forgets what was written so far
func (l *Link) ClearWritten() {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.written = nil
}

// Rates returns every rate passed to SetBaudRate, in order
func (l *Link) Rates() []int {
	l.lock.Lock()
	defer l.lock.Unlock()

	return append([]int(nil), l.rates...)
}

// Pending returns the number of queued bytes not yet read
func (l *Link) Pending() int {
	l.lock.Lock()
	defer l.lock.Unlock()

	return len(l.inbound)
}

// Fail makes Err return err, as a link whose transport has closed
func (l *Link) Fail(err error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.failErr = err
}

// Err returns the error passed to Fail
func (l *Link) Err() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.failErr
}

// SetWriteDelay makes every WriteByte take at least d, like a slow serial line
func (l *Link) SetWriteDelay(d time.Duration) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.writeDelay = d
}

func (l *Link) delay() time.Duration {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.writeDelay
}

func (l *Link) WriteByte(b byte) error {
	if d := l.delay(); d > 0 {
		time.Sleep(d)
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	l.written = append(l.written, b)

	for i, r := range l.replies {
		if l.writtenEndsWith(r.trigger) {
			for _, c := range r.bytes {
				l.inbound = append(l.inbound, Frame(c))
			}
			l.replies = append(l.replies[:i], l.replies[i+1:]...)
			break
		}
	}

	return nil
}

func (l *Link) writtenEndsWith(trigger []byte) bool {
	if len(trigger) > len(l.written) {
		return false
	}

	tail := l.written[len(l.written)-len(trigger):]
	for i, b := range tail {
		if b&0x7f != trigger[i] {
			return false
		}
	}

	return true
}

// ReadByte returns io.EOF when nothing is queued
func (l *Link) ReadByte() (byte, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if len(l.inbound) == 0 {
		return 0, io.EOF
	}

	b := l.inbound[0]
	l.inbound = l.inbound[1:]
	return b, nil
}

// WaitByte returns io.ErrUnexpectedEOF when nothing is queued, since nothing else
// can queue bytes while the caller waits
func (l *Link) WaitByte() (byte, error) {
	b, err := l.ReadByte()
	if err == io.EOF {
		return 0, io.ErrUnexpectedEOF
	}

	return b, err
}

func (l *Link) Available() bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	return len(l.inbound) > 0
}

func (l *Link) Listening() bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.listenAfter > 0 {
		l.listenAfter--
		return false
	}

	return l.listening
}

func (l *Link) SetBaudRate(baud int) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.rateErr != nil {
		return l.rateErr
	}

	l.rates = append(l.rates, baud)
	if response, ok := l.rateReplies[baud]; ok {
		for _, c := range response {
			l.inbound = append(l.inbound, Frame(c))
		}
		delete(l.rateReplies, baud)
	}

	return nil
}
