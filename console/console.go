// Package console is the line-oriented operator terminal of framechat.
//
// A Console is an engine.Seat backed by a reader and a writer, normally
// os.Stdin and os.Stdout. One Console may be shared by every session of a
// server; a prompt and the line that answers it are never interleaved with
// another session's output.
package console

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
)

// Console reads answers line by line and writes text unmodified.
type Console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// New returns a console over in and out.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Stdio returns a console over the process's standard input and output.
func Stdio() *Console {
	return New(os.Stdin, os.Stdout)
}

// Show writes text as is.
func (c *Console) Show(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.out, text)
	return err
}

// Ask writes prompt and reads one line without its line ending. A last line
// without a newline is still returned; io.EOF is returned only when nothing
// is left to read.
func (c *Console) Ask(prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prompt != "" {
		if _, err := io.WriteString(c.out, prompt); err != nil {
			return "", err
		}
	}

	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
