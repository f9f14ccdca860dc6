package engine

import "reflect"

// Seat is one participant of a match as seen by the host.
type Seat interface {
	// Show displays text to the player. No answer is expected.
	Show(text string) error
	// Ask displays prompt and returns the player's answer.
	Ask(prompt string) (string, error)
}

// uniqueSeats drops repeated seats, so a console playing both sides sees each
// announcement once.
func uniqueSeats(seats ...Seat) []Seat {
	out := make([]Seat, 0, len(seats))
	for _, s := range seats {
		dup := false
		for _, o := range out {
			if sameSeat(o, s) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}

// sameSeat reports whether a and b are the same seat. Seats whose dynamic type
// cannot be compared, such as structs holding a slice, are always distinct.
func sameSeat(a, b Seat) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}
