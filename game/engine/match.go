package engine

import (
	"context"
	"fmt"
)

// Messages shown to players.
const (
	IntroMessage      = "Enter \"QUIT\", \"END\", OR \"EXIT\" at any time to quit the game.\n"
	PreferencePrompt  = "Please choose X or O...\nPrefer \"X\" or \"O\"? "
	ConfirmPreference = "Does this sound okay? (y/n) "
	ConfirmMove       = "\n  Does this move look okay? (y/n) "
	OccupiedMessage   = "  This position has already been played!  Please choose a different position.\n"
	GoodbyeMessage    = "Thanks for playing! Until next time!\n"
	TieBanner         = "  *** The game was a tie! ***\n"
)

// Match is one tic-tac-toe game between two seats, run by the host.
type Match struct {
	seats   [2]Seat
	marks   [2]Mark
	current int

	board  Board
	phase  Phase
	winner Mark
	moves  int
	toggle int
}

// NewMatch prepares a match. playerOne chooses the marks and moves first.
func NewMatch(playerOne, playerTwo Seat) *Match {
	return &Match{
		seats: [2]Seat{playerOne, playerTwo},
		marks: [2]Mark{Empty, Empty},
		phase: PhaseAskPreference,
	}
}

// Phase returns the current state.
func (m *Match) Phase() Phase { return m.phase }

// Board returns a copy of the board.
func (m *Match) Board() Board { return m.board }

// Winner returns the winning mark, or Empty.
func (m *Match) Winner() Mark { return m.winner }

// Moves returns the number of confirmed moves.
func (m *Match) Moves() int { return m.moves }

// Toggles returns how many times the turn has passed between players.
func (m *Match) Toggles() int { return m.toggle }

// Marks returns the marks of player one and player two. Both are Empty until
// the preference has been confirmed.
func (m *Match) Marks() (Mark, Mark) { return m.marks[0], m.marks[1] }

// Current returns the mark whose turn it is.
func (m *Match) Current() Mark { return m.marks[m.current] }

// Outcome maps the phase to the externally visible result.
func (m *Match) Outcome() Outcome {
	switch m.phase {
	case PhaseWon:
		return Won
	case PhaseTied:
		return Tied
	case PhaseAborted:
		return Aborted
	default:
		return InProgress
	}
}

// Play runs the match until it reaches a terminal phase. A seat error stops the
// match in PhaseAborted and is returned wrapped.
func (m *Match) Play(ctx context.Context) (Outcome, error) {
	if err := m.broadcast(IntroMessage); err != nil {
		return m.fail(err)
	}

	for !m.phase.Terminal() {
		if err := ctx.Err(); err != nil {
			return m.fail(err)
		}

		var (
			next Phase
			err  error
		)
		switch m.phase {
		case PhaseAskPreference:
			next, err = m.askPreference()
		case PhaseTurn:
			next, err = m.turn()
		case PhaseCheck:
			next = m.check()
		default:
			err = fmt.Errorf("unexpected phase %s", m.phase)
		}
		if err != nil {
			return m.fail(err)
		}
		m.phase = next
	}

	if err := m.finish(); err != nil {
		return m.Outcome(), fmt.Errorf("announce result: %w", err)
	}
	return m.Outcome(), nil
}

func (m *Match) fail(err error) (Outcome, error) {
	m.phase = PhaseAborted
	return Aborted, fmt.Errorf("match aborted: %w", err)
}

func (m *Match) active() Seat {
	return m.seats[m.current]
}

func (m *Match) broadcast(text string) error {
	for _, s := range uniqueSeats(m.seats[0], m.seats[1]) {
		if err := s.Show(text); err != nil {
			return err
		}
	}
	return nil
}

// askPreference lets player one pick a mark and confirm it.
func (m *Match) askPreference() (Phase, error) {
	seat := m.seats[0]
	for {
		var choice Mark
		for {
			answer, err := seat.Ask(PreferencePrompt)
			if err != nil {
				return m.phase, err
			}
			if IsQuit(answer) {
				return PhaseAborted, nil
			}
			if mark, ok := ParseMark(answer); ok {
				choice = mark
				break
			}
		}

		announce := fmt.Sprintf("Player one will play as %q\nPlayer two will play as %q\n",
			choice.String(), choice.Opponent().String())
		if err := seat.Show(announce); err != nil {
			return m.phase, err
		}

		for {
			answer, err := seat.Ask(ConfirmPreference)
			if err != nil {
				return m.phase, err
			}
			if IsQuit(answer) {
				return PhaseAborted, nil
			}
			if IsYes(answer) {
				m.marks = [2]Mark{choice, choice.Opponent()}
				m.current = 0
				return PhaseTurn, nil
			}
			if IsNo(answer) {
				break
			}
		}
	}
}

// turn collects one confirmed move from the active seat. Occupied cells and
// rejected moves repeat the turn without passing it on.
func (m *Match) turn() (Phase, error) {
	seat := m.active()
	mark := m.Current()
	for {
		if err := seat.Show(fmt.Sprintf("\n  *** %s's turn! ***\n\n", mark)); err != nil {
			return m.phase, err
		}
		if err := seat.Show(m.board.Render() + "\n"); err != nil {
			return m.phase, err
		}

		row, quit, err := m.askCoordinate(seat, "row")
		if err != nil || quit {
			return PhaseAborted, err
		}
		col, quit, err := m.askCoordinate(seat, "column")
		if err != nil || quit {
			return PhaseAborted, err
		}

		if m.board.At(row, col) != Empty {
			if err := seat.Show(OccupiedMessage); err != nil {
				return m.phase, err
			}
			continue
		}

		if err := m.board.Place(row, col, mark); err != nil {
			return m.phase, err
		}
		if err := seat.Show("\n" + m.board.Render()); err != nil {
			m.board.Clear(row, col)
			return m.phase, err
		}

		answer, err := seat.Ask(ConfirmMove)
		if err != nil {
			m.board.Clear(row, col)
			return m.phase, err
		}
		if IsQuit(answer) {
			m.board.Clear(row, col)
			return PhaseAborted, nil
		}
		if IsNo(answer) {
			m.board.Clear(row, col)
			continue
		}

		// Anything that is not an explicit no keeps the move.
		m.moves++
		m.current = 1 - m.current
		m.toggle++
		return PhaseCheck, nil
	}
}

func (m *Match) askCoordinate(seat Seat, name string) (int, bool, error) {
	prompt := fmt.Sprintf("Please choose the %s where you would like to move: ", name)
	invalid := fmt.Sprintf("Please enter a valid %s number (e.g. 1, 2, or 3)\n", name)
	for {
		answer, err := seat.Ask(prompt)
		if err != nil {
			return 0, false, err
		}
		if IsQuit(answer) {
			return 0, true, nil
		}
		if n, ok := ParseCoordinate(answer); ok {
			return n, false, nil
		}
		if err := seat.Show(invalid); err != nil {
			return 0, false, err
		}
	}
}

func (m *Match) check() Phase {
	outcome, winner := m.board.Evaluate()
	switch outcome {
	case Won:
		m.winner = winner
		return PhaseWon
	case Tied:
		return PhaseTied
	default:
		return PhaseTurn
	}
}

// finish announces the terminal phase to every seat.
func (m *Match) finish() error {
	if m.phase == PhaseAborted {
		return m.broadcast(GoodbyeMessage)
	}
	return m.broadcast(m.board.Render() + ResultBanner(m.Outcome(), m.winner))
}

// ResultBanner frames the result line between two borders.
func ResultBanner(outcome Outcome, winner Mark) string {
	line := TieBanner
	if outcome == Won {
		line = fmt.Sprintf("*** %s won the game! ***\n", winner)
	}
	return Border() + "\n" + line + Border() + "\n"
}
