package utils

import "github.com/moodclient/videotex"

// maxStep is the largest count a single cursor sequence can carry
const maxStep = 99

// StepLeft moves the cursor n columns left, splitting the move into as many
// sequences as n needs
func StepLeft(screen *videotex.Screen, n int) error {
	return step(screen.MoveCursorLeft, n)
}

// StepRight moves the cursor n columns right, see StepLeft
func StepRight(screen *videotex.Screen, n int) error {
	return step(screen.MoveCursorRight, n)
}

func step(move func(n int) error, n int) error {
	for n > 0 {
		count := min(n, maxStep)

		err := move(count)
		if err != nil {
			return err
		}

		n -= count
	}

	return nil
}
