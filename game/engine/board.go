package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOutOfRange = errors.New("position out of range")
	ErrOccupied   = errors.New("position already played")
)

// Board is a 3x3 grid. The zero value is an empty board.
// Rows and columns are addressed 1..3 as players type them.
type Board struct {
	cells [BoardSize][BoardSize]Mark
}

func inRange(row, col int) bool {
	return row >= 1 && row <= BoardSize && col >= 1 && col <= BoardSize
}

// At returns the mark at (row, col), or Empty when out of range.
func (b *Board) At(row, col int) Mark {
	if !inRange(row, col) {
		return Empty
	}
	return b.cells[row-1][col-1]
}

// Place puts mark on an empty cell.
func (b *Board) Place(row, col int, mark Mark) error {
	if !inRange(row, col) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, row, col)
	}
	if mark != X && mark != O {
		return fmt.Errorf("invalid mark %q", byte(mark))
	}
	if b.cells[row-1][col-1] != Empty {
		return fmt.Errorf("%w: (%d,%d)", ErrOccupied, row, col)
	}
	b.cells[row-1][col-1] = mark
	return nil
}

// Clear empties a cell. It is used to take back a move that was not confirmed.
func (b *Board) Clear(row, col int) {
	if inRange(row, col) {
		b.cells[row-1][col-1] = Empty
	}
}

// Filled counts the non-empty cells.
func (b *Board) Filled() int {
	count := 0
	for _, row := range b.cells {
		for _, cell := range row {
			if cell != Empty {
				count++
			}
		}
	}
	return count
}

// Full reports whether no empty cell remains.
func (b *Board) Full() bool {
	return b.Filled() == BoardSize*BoardSize
}

// Evaluate scans the winning triples in order. The first triple of three
// equal non-empty marks wins; otherwise a full board is a tie. Evaluate does
// not modify the board, so repeated calls give the same answer.
func (b *Board) Evaluate() (Outcome, Mark) {
	for _, triple := range Triples {
		first := b.At(triple[0][0], triple[0][1])
		if first == Empty {
			continue
		}
		if b.At(triple[1][0], triple[1][1]) == first && b.At(triple[2][0], triple[2][1]) == first {
			return Won, first
		}
	}
	if b.Full() {
		return Tied, Empty
	}
	return InProgress, Empty
}

// Border is the horizontal line drawn above and below every row.
func Border() string {
	return "  " + strings.Repeat("*", BoardWidth)
}

// Render draws the board with row numbers in the left margin:
//
//	  *******************************
//	1 *    X    *         *    O    *
//	  *******************************
func (b *Board) Render() string {
	border := Border()
	pad := strings.Repeat(" ", ((BoardWidth-1)-6)/3/2)

	var sb strings.Builder
	sb.WriteString(border)
	sb.WriteString("\n")
	for i, row := range b.cells {
		fmt.Fprintf(&sb, "%d *", i+1)
		for _, cell := range row {
			sb.WriteString(pad)
			sb.WriteString(cell.String())
			sb.WriteString(pad)
			sb.WriteString("*")
		}
		sb.WriteString("\n")
		sb.WriteString(border)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (b *Board) String() string {
	return b.Render()
}
