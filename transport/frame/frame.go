package frame

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

// readChunk bounds how much payload buffer is reserved ahead of the bytes
// actually arriving, so a large advertised length costs nothing until sent.
const readChunk = 64 * 1024

// Frame is one message as carried on the wire.
type Frame struct {
	Payload string
	Wait    bool
}

// Codec encodes and decodes frames with a fixed header width.
// A Codec holds no per-stream state and may be shared between sessions.
type Codec struct {
	headerSize int
	maxPayload int
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithMaxPayload caps payload lengths in both directions. Without it the only
// limit is the width of the length field. n <= 0 means no cap.
func WithMaxPayload(n int) CodecOption {
	return func(c *Codec) {
		if n < 0 {
			n = 0
		}
		c.maxPayload = n
	}
}

// NewCodec returns a codec for the given header width.
func NewCodec(headerSize int, opts ...CodecOption) (*Codec, error) {
	if headerSize < MinHeaderSize {
		return nil, fmt.Errorf("header size %d is below the minimum of %d", headerSize, MinHeaderSize)
	}
	c := &Codec{headerSize: headerSize}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DefaultCodec returns a codec for the standard 33-byte header.
func DefaultCodec() *Codec {
	return &Codec{headerSize: DefaultHeaderSize}
}

// HeaderSize returns the header width in bytes.
func (c *Codec) HeaderSize() int {
	return c.headerSize
}

// MaxPayload returns the payload cap, or 0 when only the field width applies.
func (c *Codec) MaxPayload() int {
	return c.maxPayload
}

// fieldWidth is the width of the length field.
func (c *Codec) fieldWidth() int {
	return c.headerSize - 1
}

// EncodeHeader builds the header for a payload of the given length.
func (c *Codec) EncodeHeader(length int, wait bool) ([]byte, error) {
	if length < 0 || (c.maxPayload > 0 && length > c.maxPayload) {
		return nil, ErrMessageTooLong
	}
	digits := strconv.Itoa(length)
	if len(digits) > c.fieldWidth() {
		return nil, ErrMessageTooLong
	}

	header := bytes.Repeat([]byte{' '}, c.headerSize)
	copy(header, digits)
	header[c.headerSize-1] = NoWaitFlag
	if wait {
		header[c.headerSize-1] = WaitFlag
	}
	return header, nil
}

// DecodeHeader parses a header produced by EncodeHeader.
func (c *Codec) DecodeHeader(header []byte) (length int, wait bool, err error) {
	if len(header) != c.headerSize {
		return 0, false, &HeaderError{Header: header, Reason: fmt.Sprintf("expected %d bytes, got %d", c.headerSize, len(header))}
	}

	field := bytes.TrimSpace(header[:c.fieldWidth()])
	if len(field) == 0 {
		return 0, false, &HeaderError{Header: header, Reason: "empty length field"}
	}
	for _, b := range field {
		if b < '0' || b > '9' {
			return 0, false, &HeaderError{Header: header, Reason: "length field is not decimal"}
		}
	}
	length, err = strconv.Atoi(string(field))
	if err != nil {
		return 0, false, &HeaderError{Header: header, Reason: err.Error()}
	}
	if c.maxPayload > 0 && length > c.maxPayload {
		return 0, false, &HeaderError{Header: header, Reason: fmt.Sprintf("length %d exceeds limit", length)}
	}

	return length, header[c.headerSize-1] == WaitFlag, nil
}

// Send writes text as one frame. Header and payload go out in a single Write.
// ErrMessageTooLong and ErrNotASCII leave w untouched.
func (c *Codec) Send(w io.Writer, text string, wait bool) error {
	if !isASCII(text) {
		return ErrNotASCII
	}
	header, err := c.EncodeHeader(len(text), wait)
	if err != nil {
		return err
	}

	buf := make([]byte, 0, len(header)+len(text))
	buf = append(buf, header...)
	buf = append(buf, text...)
	if _, err := w.Write(buf); err != nil {
		return closedError(err)
	}
	return nil
}

// Receive reads one frame.
//
// ErrNoData means a read deadline expired before the first header byte; the
// stream is intact and the caller may retry. ErrConnectionClosed means the
// stream is gone. A "/q" payload is returned together with
// ErrEndOfTransmission.
func (c *Codec) Receive(r io.Reader) (Frame, error) {
	header := make([]byte, c.headerSize)
	n, err := readFull(r, header, true)
	if err != nil {
		if n == 0 && isTimeout(err) {
			return Frame{}, ErrNoData
		}
		return Frame{}, closedError(err)
	}

	length, wait, err := c.DecodeHeader(header)
	if err != nil {
		return Frame{}, err
	}

	payload, err := readPayload(r, length)
	if err != nil {
		return Frame{}, closedError(err)
	}

	f := Frame{Payload: payload, Wait: wait}
	if IsEndTransmission(f.Payload) {
		return f, ErrEndOfTransmission
	}
	return f, nil
}

// readFull fills buf. Deadline expiries are retried once some bytes of buf
// have arrived, since the rest of the frame is known to be in flight. When
// idleOK is set a timeout before the first byte is reported to the caller.
func readFull(r io.Reader, buf []byte, idleOK bool) (int, error) {
	read := 0
	for read < len(buf) {
		n, err := r.Read(buf[read:])
		read += n
		if err == nil {
			continue
		}
		if read == len(buf) {
			return read, nil
		}
		if isTimeout(err) && (read > 0 || !idleOK) {
			continue
		}
		if err == io.EOF && read > 0 {
			return read, io.ErrUnexpectedEOF
		}
		return read, err
	}
	return read, nil
}

// readPayload reads exactly length bytes, growing its buffer one chunk at a
// time.
func readPayload(r io.Reader, length int) (string, error) {
	var buf bytes.Buffer
	chunk := make([]byte, min(length, readChunk))
	for remaining := length; remaining > 0; {
		n := min(remaining, len(chunk))
		if _, err := readFull(r, chunk[:n], false); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		buf.Write(chunk[:n])
		remaining -= n
	}
	return buf.String(), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
