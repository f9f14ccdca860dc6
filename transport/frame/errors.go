package frame

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

var (
	// ErrMessageTooLong is returned by Send when the payload length does not fit
	// the header's length field. Nothing has been written; shorten and retry.
	ErrMessageTooLong = errors.New("message too long")

	// ErrNotASCII is returned by Send when the payload is not 7-bit ASCII.
	// Nothing has been written.
	ErrNotASCII = errors.New("message is not ASCII text")

	// ErrMalformedHeader means the peer is out of sync with the framing. There
	// is no resynchronization; the connection should be closed.
	ErrMalformedHeader = errors.New("malformed frame header")

	// ErrEndOfTransmission is returned by Receive when the peer sent "/q".
	ErrEndOfTransmission = errors.New("end of transmission")

	// ErrConnectionClosed covers EOF, resets, aborts and locally closed
	// connections. It is a graceful end, not a failure.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrNoData is returned by Receive when a read deadline expired before any
	// header byte arrived. The stream is still usable; retry.
	ErrNoData = errors.New("no data yet")
)

// HeaderError describes a header that could not be decoded.
type HeaderError struct {
	Header []byte
	Reason string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%v: %s (header %q)", ErrMalformedHeader, e.Reason, e.Header)
}

// Unwrap lets errors.Is match ErrMalformedHeader.
func (e *HeaderError) Unwrap() error {
	return ErrMalformedHeader
}

// IsEnd reports whether err means the conversation is over without fault:
// the peer sent "/q" or the connection went away.
func IsEnd(err error) bool {
	return errors.Is(err, ErrEndOfTransmission) || errors.Is(err, ErrConnectionClosed)
}

// isTimeout reports whether err is a deadline expiry on a net.Conn.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// closedError maps the many ways a stream can go away onto ErrConnectionClosed.
// Any other error is returned unchanged.
func closedError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	default:
		return err
	}
}
