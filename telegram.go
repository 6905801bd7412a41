package videotex

import (
	"errors"
	"time"
)

// shiftRegister holds the last four bytes received, most recent in the low byte
type shiftRegister struct {
	window uint32
	filled int
}

func (r *shiftRegister) push(b byte) {
	r.window = r.window<<8 | uint32(b)
	if r.filled < 4 {
		r.filled++
	}
}

func (r *shiftRegister) reset() {
	r.window = 0
	r.filled = 0
}

// last returns the n most recent bytes, oldest first
func (r *shiftRegister) last(n int) []byte {
	if n > r.filled {
		n = r.filled
	}

	out := make([]byte, n)
	for i := range out {
		out[i] = byte(r.window >> (8 * (n - 1 - i)))
	}

	return out
}

// telegramPattern matches a fixed prefix followed by a fixed number of bytes of any
// value. The whole pattern must fit the register.
type telegramPattern struct {
	prefix   []byte
	trailing int
}

func (p telegramPattern) width() int {
	return len(p.prefix) + p.trailing
}

func (r *shiftRegister) matches(p telegramPattern) bool {
	width := p.width()
	if r.filled < width {
		return false
	}

	for i, b := range p.prefix {
		if byte(r.window>>(8*(width-1-i))) != b {
			return false
		}
	}

	return true
}

// trailing returns the bytes that followed the prefix, packed into an integer
func (r *shiftRegister) trailing(p telegramPattern) uint32 {
	if p.trailing == 0 {
		return 0
	}

	return r.window & (1<<(8*p.trailing) - 1)
}

// telegram is one request/acknowledgment exchange
type telegram struct {
	name    string
	request []byte
	pattern telegramPattern
	budget  time.Duration

	// afterSend runs between the request and the wait for the acknowledgment
	afterSend func() error
	// status is set when the acknowledgment is followed by a status byte, which the
	// terminal always sends
	status bool
}

type telegramResult struct {
	// trailing holds the bytes matched after the prefix
	trailing uint32
	status   byte
	matched  bool
}

// scan runs a fixed-width exchange: the request is sent, then received bytes roll
// through a shift register until the pattern matches or the budget runs out.
//
// Bytes with bad parity are reported to the error hooks and restart the match, since
// the pattern can't span them. Link failures end the exchange with an error.
func (t *Terminal) scan(tg telegram) (telegramResult, error) {
	start := time.Now()
	deadline := deadlineFor(start, tg.budget)

	var result telegramResult
	var reg shiftRegister
	var received []byte

	defer func() {
		t.telegramHooks.Fire(t, TelegramEvent{
			Name:     tg.name,
			Request:  tg.request,
			Response: received,
			Matched:  result.matched,
			Elapsed:  time.Since(start),
		})
	}()

	listening, err := t.awaitListening(deadline)
	if err != nil || !listening {
		return result, err
	}

	err = t.send(tg.request...)
	if err != nil {
		return result, err
	}

	if tg.afterSend != nil {
		err = tg.afterSend()
		if err != nil {
			return result, err
		}
	}

	for !reg.matches(tg.pattern) {
		available, err := t.awaitAvailable(deadline)
		if err != nil || !available {
			received = reg.last(tg.pattern.width())
			return result, err
		}

		b, err := t.readByte()
		if errors.Is(err, ErrParity) {
			t.encounteredError(err)
			reg.reset()
			continue
		} else if errors.Is(err, ErrNoData) {
			continue
		} else if err != nil {
			return result, err
		}

		reg.push(b)
	}

	received = reg.last(tg.pattern.width())
	result.trailing = reg.trailing(tg.pattern)

	if tg.status {
		b, err := t.followingByte(deadline)
		if errors.Is(err, errTelegramTimeout) {
			return result, nil
		} else if errors.Is(err, ErrParity) {
			t.encounteredError(err)
			return result, nil
		} else if err != nil {
			return result, err
		}

		received = append(received, b)
		result.status = b
	}

	result.matched = true
	return result, nil
}

// followingByte reads the byte the terminal sends after an acknowledgment. With a
// deadline the wait is bounded like the rest of the exchange.
func (t *Terminal) followingByte(deadline time.Time) (byte, error) {
	if deadline.IsZero() {
		return t.waitByte()
	}

	available, err := t.awaitAvailable(deadline)
	if err != nil {
		return 0, err
	} else if !available {
		return 0, errTelegramTimeout
	}

	return t.readByte()
}

var errTelegramTimeout = errors.New("videotex: acknowledgment incomplete")

// scanFrame runs an exchange whose reply is delimited rather than fixed: SOH, three
// payload bytes, EOT. The payload may contain any byte, so the register is only
// trusted once SOH has shifted to the top and the closing EOT has been checked.
func (t *Terminal) scanFrame(name string, request []byte, budget time.Duration) (payload uint32, ok bool, err error) {
	start := time.Now()
	deadline := deadlineFor(start, budget)
	pattern := telegramPattern{prefix: []byte{SOH}, trailing: 3}

	var reg shiftRegister
	var received []byte

	defer func() {
		t.telegramHooks.Fire(t, TelegramEvent{
			Name:     name,
			Request:  request,
			Response: received,
			Matched:  ok,
			Elapsed:  time.Since(start),
		})
	}()

	listening, err := t.awaitListening(deadline)
	if err != nil || !listening {
		return 0, false, err
	}

	err = t.send(request...)
	if err != nil {
		return 0, false, err
	}

	for !reg.matches(pattern) {
		available, err := t.awaitAvailable(deadline)
		if err != nil || !available {
			received = reg.last(4)
			return 0, false, err
		}

		b, err := t.readByte()
		if errors.Is(err, ErrParity) {
			t.encounteredError(err)
			reg.reset()
			continue
		} else if errors.Is(err, ErrNoData) {
			continue
		} else if err != nil {
			return 0, false, err
		}

		reg.push(b)
	}

	received = reg.last(4)

	end, err := t.followingByte(deadline)
	if errors.Is(err, errTelegramTimeout) {
		return 0, false, nil
	} else if errors.Is(err, ErrParity) {
		t.encounteredError(err)
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}

	received = append(received, end)
	if end != EOT {
		return 0, false, nil
	}

	return reg.trailing(pattern), true, nil
}
