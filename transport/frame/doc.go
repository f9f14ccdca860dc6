// Package frame implements the fixed-header framing used by framechat peers.
//
// Every message on the wire is a Frame: a fixed-width ASCII header followed by
// the payload. The header is HeaderSize bytes wide (33 by default):
//
//	bytes 0..H-2  payload length, ASCII decimal, left-justified, space padded
//	byte  H-1     '1' when the sender will send again before expecting a reply
//
// The payload is exactly length bytes of ASCII text and is written in the
// same Write call as its header.
//
// Reserved payloads:
//   - "/q" ends the conversation (reported as ErrEndOfTransmission)
//   - "[exit]" ends the current game and returns both peers to chat
//   - "!TICTACTOE" / "!TIC-TAC-TOE" (any case) start a game while chatting
//
// Usage:
//
//	codec := frame.DefaultCodec()
//	if err := codec.Send(conn, "hello", false); err != nil {
//		return err
//	}
//	f, err := codec.Receive(conn)
//	if frame.IsEnd(err) {
//		// peer is gone or said goodbye
//	}
package frame
