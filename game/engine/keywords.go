package engine

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	QuitKeywords = []string{"QUIT", "END", "EXIT"}
	YesKeywords  = []string{"Y", "YES"}
	NoKeywords   = []string{"N", "NO"}
)

// normalize upper-cases an answer and strips surrounding whitespace, so the
// "\n" a relay sends for an empty line reads as an empty answer.
func normalize(answer string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(answer))
}

func oneOf(answer string, keywords []string) bool {
	n := normalize(answer)
	for _, k := range keywords {
		if n == k {
			return true
		}
	}
	return false
}

// IsQuit reports whether answer asks to leave the match.
func IsQuit(answer string) bool { return oneOf(answer, QuitKeywords) }

// IsYes reports whether answer is an explicit yes.
func IsYes(answer string) bool { return oneOf(answer, YesKeywords) }

// IsNo reports whether answer is an explicit no.
func IsNo(answer string) bool { return oneOf(answer, NoKeywords) }

// ParseMark accepts "X" or "O" in either case.
func ParseMark(answer string) (Mark, bool) {
	switch normalize(answer) {
	case "X":
		return X, true
	case "O":
		return O, true
	}
	return Empty, false
}

// ParseCoordinate accepts a row or column number between 1 and BoardSize.
func ParseCoordinate(answer string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || n < 1 || n > BoardSize {
		return 0, false
	}
	return n, true
}
