// Package engine provides the tic-tac-toe rules and the match state machine
// that is played inside a framechat session.
//
// The engine package implements:
//   - A 3x3 board with placement, evaluation and text rendering
//   - Keyword parsing for quit, yes/no answers, marks and coordinates
//   - The host-driven match state machine (preference, turns, checks)
//
// Core Types:
//
// Board holds the cells and knows how to evaluate itself. Match runs one game
// between two Seats. A Seat is anything that can show text to a player and ask
// that player a question: the local console, or the remote peer of a session.
//
// Host and relay:
//
// Only one side of a connection runs a Match. That side is the host and is
// authoritative for every rule. The other side is a relay: it prints whatever
// the host sends and answers prompts with whatever its operator types. A relay
// never evaluates the board. Player one is always the seat that asked for the
// game (the remote peer when hosting for a connection), player two is the
// local operator.
//
// Usage:
//
//	match := engine.NewMatch(remoteSeat, consoleSeat)
//	outcome, err := match.Play(ctx)
//	if err != nil {
//		return err
//	}
//	log.Printf("Match finished: %s (winner %s)", outcome, match.Winner())
//
// Match is not safe for concurrent use; it is owned by the goroutine that
// plays it.
package engine
