package engine

// Mark is the content of one board cell.
type Mark byte

const (
	Empty Mark = 0
	X     Mark = 'X'
	O     Mark = 'O'

	// BoardSize is the number of rows and columns.
	BoardSize = 3
	// BoardWidth is the width of the rendered board border.
	BoardWidth = 31
)

// String renders the mark the way it appears on the board.
func (m Mark) String() string {
	switch m {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return " "
	}
}

// Opponent returns the other player's mark. Empty has no opponent.
func (m Mark) Opponent() Mark {
	switch m {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// Phase is a state of the match state machine.
type Phase int

const (
	PhaseAskPreference Phase = iota
	PhaseTurn
	PhaseCheck
	PhaseWon
	PhaseTied
	PhaseAborted
)

var phaseNames = map[Phase]string{
	PhaseAskPreference: "ask_preference",
	PhaseTurn:          "turn",
	PhaseCheck:         "check",
	PhaseWon:           "won",
	PhaseTied:          "tied",
	PhaseAborted:       "aborted",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseWon || p == PhaseTied || p == PhaseAborted
}

// Outcome is the externally visible result of a match.
type Outcome int

const (
	InProgress Outcome = iota
	Won
	Tied
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Won:
		return "won"
	case Tied:
		return "tied"
	case Aborted:
		return "aborted"
	default:
		return "in_progress"
	}
}

// Triples lists every winning line as 1-based (row, column) pairs: rows,
// then columns, then the two diagonals.
var Triples = [8][3][2]int{
	{{1, 1}, {1, 2}, {1, 3}},
	{{2, 1}, {2, 2}, {2, 3}},
	{{3, 1}, {3, 2}, {3, 3}},
	{{1, 1}, {2, 1}, {3, 1}},
	{{1, 2}, {2, 2}, {3, 2}},
	{{1, 3}, {2, 3}, {3, 3}},
	{{1, 1}, {2, 2}, {3, 3}},
	{{3, 1}, {2, 2}, {1, 3}},
}
