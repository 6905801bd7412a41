package videotex

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrParity is matched by every *ParityError through errors.Is
var ErrParity = errors.New("videotex: parity error")

// ParityError is returned when a byte arrives from the terminal with a parity bit
// that does not agree with its seven payload bits. The link is inherently lossy, so
// this is never fatal: the telegram scanner absorbs it and the keyboard decoder
// hands it to the caller, who may simply read the next key.
type ParityError struct {
	Received byte
}

func (e *ParityError) Error() string {
	return fmt.Sprintf("videotex: parity error on received byte 0x%02X", e.Received)
}

func (e *ParityError) Is(target error) bool {
	return target == ErrParity
}

func parityBit(b byte) byte {
	return byte(bits.OnesCount8(b&0x7f) & 1)
}

// Frame returns b with bit 7 replaced by the even parity bit computed over bits 0-6.
// Every byte that leaves the driver goes through Frame, escape and parameter bytes
// included.
func Frame(b byte) byte {
	return (b & 0x7f) | parityBit(b)<<7
}

// Deframe checks the parity bit of a received byte and returns its 7-bit payload.
func Deframe(b byte) (byte, error) {
	if b>>7 != parityBit(b) {
		return 0, &ParityError{Received: b}
	}

	return b & 0x7f, nil
}
