package frame

import "golang.org/x/text/cases"

const (
	// DefaultHeaderSize is the standard header width: 32 length bytes and one flag byte.
	DefaultHeaderSize = 33

	// MinHeaderSize allows a single length digit plus the flag byte.
	MinHeaderSize = 2

	// WaitFlag marks a frame that will be followed by another frame from the same sender.
	WaitFlag byte = '1'

	// NoWaitFlag fills the flag byte of ordinary turn-taking frames.
	NoWaitFlag byte = ' '

	// EndTransmission is the connection-level disconnect sentinel.
	EndTransmission = "/q"

	// EndGame tells the relay side that the current match is over.
	EndGame = "[exit]"
)

// Triggers start a game when sent while chatting.
var Triggers = []string{"!TICTACTOE", "!TIC-TAC-TOE"}

// IsTrigger reports whether text is one of the game-start tokens, ignoring case.
func IsTrigger(text string) bool {
	folded := cases.Fold().String(text)
	for _, t := range Triggers {
		if folded == cases.Fold().String(t) {
			return true
		}
	}
	return false
}

// IsEndGame reports whether text is the end-of-game sentinel.
func IsEndGame(text string) bool {
	return text == EndGame
}

// IsEndTransmission reports whether text is the disconnect sentinel.
// Matching is exact: " /q" or "/Q" are ordinary messages.
func IsEndTransmission(text string) bool {
	return text == EndTransmission
}
