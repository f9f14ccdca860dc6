// Command framedump prints the frames found in a captured framechat byte
// stream, one line per frame, followed by a summary. It reads the files named
// on the command line, or standard input when none are given.
//
//	tcpdump -w - port 5050 | ... > capture.bin
//	framedump -header-size 33 capture.bin
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/wricardo/framechat/transport/frame"
)

// Summary counts what a dump saw.
type Summary struct {
	Frames       int
	WaitFrames   int
	PayloadBytes int
	Triggers     int
	GamesEnded   int
	EndedCleanly bool
}

var headerSize = flag.Int("header-size", frame.DefaultHeaderSize, "frame header width in bytes")

func main() {
	flag.Parse()

	codec, err := frame.NewCodec(*headerSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "framedump: %v\n", err)
		os.Exit(2)
	}

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	failed := false
	for _, path := range paths {
		fmt.Printf("\n=== Frames in %s ===\n", path)
		if err := dumpFile(path, codec, os.Stdout); err != nil {
			fmt.Printf("Error: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func dumpFile(path string, codec *frame.Codec, w io.Writer) error {
	if path == "-" {
		_, err := dump(os.Stdin, codec, w)
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = dump(f, codec, w)
	return err
}

// dump decodes r until it is exhausted or a header is malformed.
func dump(r io.Reader, codec *frame.Codec, w io.Writer) (Summary, error) {
	var s Summary
	for {
		f, err := codec.Receive(r)
		switch {
		case errors.Is(err, frame.ErrConnectionClosed):
			printSummary(w, s)
			if s.Frames > 0 && !s.EndedCleanly {
				fmt.Fprintln(w, "Stream ended without \"/q\" (connection dropped or capture cut short)")
			}
			return s, nil
		case err != nil && !errors.Is(err, frame.ErrEndOfTransmission):
			printSummary(w, s)
			return s, fmt.Errorf("frame %d: %w", s.Frames+1, err)
		}

		s.Frames++
		s.PayloadBytes += len(f.Payload)
		note := ""
		switch {
		case frame.IsEndTransmission(f.Payload):
			s.EndedCleanly = true
			note = "  <- end of transmission"
		case frame.IsEndGame(f.Payload):
			s.GamesEnded++
			note = "  <- end of game"
		case frame.IsTrigger(f.Payload):
			s.Triggers++
			note = "  <- game trigger"
		}
		if f.Wait {
			s.WaitFrames++
		}

		marker := " "
		if f.Wait {
			marker = "W"
		}
		fmt.Fprintf(w, "#%-4d %s %6d %q%s\n", s.Frames, marker, len(f.Payload), f.Payload, note)
	}
}

func printSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "Frames: %d (%d wait)\n", s.Frames, s.WaitFrames)
	fmt.Fprintf(w, "Payload bytes: %d\n", s.PayloadBytes)
	fmt.Fprintf(w, "Game triggers: %d, games ended: %d\n", s.Triggers, s.GamesEnded)
}
