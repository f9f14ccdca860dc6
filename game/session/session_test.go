package session

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wricardo/framechat/game/engine"
	"github.com/wricardo/framechat/transport/frame"
)

// scriptedOperator answers prompts from a fixed list and records everything
// shown. An exhausted script reads as io.EOF, like a closed stdin.
type scriptedOperator struct {
	mu      sync.Mutex
	answers []string
	shown   []string
	prompts []string
	onAsk   func(lastShown string)
}

func newOperator(answers ...string) *scriptedOperator {
	return &scriptedOperator{answers: answers}
}

func (o *scriptedOperator) Show(text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.shown = append(o.shown, text)
	return nil
}

func (o *scriptedOperator) Ask(prompt string) (string, error) {
	o.mu.Lock()
	o.prompts = append(o.prompts, prompt)
	last := ""
	if len(o.shown) > 0 {
		last = o.shown[len(o.shown)-1]
	}
	hook := o.onAsk
	o.mu.Unlock()

	if hook != nil {
		hook(last)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.answers) == 0 {
		return "", io.EOF
	}
	answer := o.answers[0]
	o.answers = o.answers[1:]
	return answer, nil
}

func (o *scriptedOperator) output() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return strings.Join(o.shown, "")
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// runBoth runs two sessions to completion and returns their errors.
func runBoth(t *testing.T, server, client *Session) (error, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverErr := make(chan error, 1)
	clientErr := make(chan error, 1)
	go func() { serverErr <- server.Run(ctx) }()
	go func() { clientErr <- client.Run(ctx) }()

	var errs [2]error
	for i, ch := range []chan error{serverErr, clientErr} {
		select {
		case errs[i] = <-ch:
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for sessions to finish")
		}
	}
	return errs[0], errs[1]
}

func newPair(serverOp, clientOp engine.Seat, opts ...Option) (*Session, *Session) {
	serverConn, clientConn := net.Pipe()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	server := New(serverConn, RoleServer, serverOp, opts...)
	client := New(clientConn, RoleClient, clientOp, WithLogger(quietLogger()))
	return server, client
}

func TestSession_ChatUntilClientQuits(t *testing.T) {
	serverOp := newOperator("hi")
	clientOp := newOperator("hello", "/q")
	server, client := newPair(serverOp, clientOp)

	serverErr, clientErr := runBoth(t, server, client)
	if serverErr != nil || clientErr != nil {
		t.Fatalf("Expected graceful end, got server=%v client=%v", serverErr, clientErr)
	}

	if !strings.Contains(serverOp.output(), "CLIENT: hello\n") {
		t.Errorf("Expected server to show the client message, got %q", serverOp.output())
	}
	if !strings.Contains(clientOp.output(), "SERVER: hi\n") {
		t.Errorf("Expected client to show the server message, got %q", clientOp.output())
	}
	if !strings.HasPrefix(clientOp.output(), ConnectedBanner) {
		t.Error("Expected the client banner first")
	}
	if !strings.Contains(clientOp.output(), "YOU: hello\n") {
		t.Error("Expected the client to echo its own message")
	}
	if clientOp.prompts[0] != TriggerHint+ChatPrompt {
		t.Errorf("Expected client prompt to advertise the game, got %q", clientOp.prompts[0])
	}
	if serverOp.prompts[0] != ChatPrompt {
		t.Errorf("Expected plain server prompt, got %q", serverOp.prompts[0])
	}

	info := server.Info()
	if info.FramesIn != 2 || info.FramesOut != 1 {
		t.Errorf("Expected 2 frames in and 1 out, got %d and %d", info.FramesIn, info.FramesOut)
	}
	if info.Role != "server" || info.Mode != "chat" {
		t.Errorf("Unexpected info %+v", info)
	}
}

func TestSession_ServerQuits(t *testing.T) {
	serverOp := newOperator("/q")
	clientOp := newOperator("hello")
	server, client := newPair(serverOp, clientOp)

	serverErr, clientErr := runBoth(t, server, client)
	if serverErr != nil || clientErr != nil {
		t.Fatalf("Expected graceful end, got server=%v client=%v", serverErr, clientErr)
	}
	if strings.Contains(clientOp.output(), "SERVER: /q") {
		t.Error("The end-of-transmission sentinel must not be shown as a message")
	}
}

func TestSession_EmptyLineIsSentAsNewline(t *testing.T) {
	conn, peer := net.Pipe()
	defer peer.Close()
	client := New(conn, RoleClient, newOperator(""), WithLogger(quietLogger()))

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background()) }()

	codec := frame.DefaultCodec()
	f, err := codec.Receive(peer)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if f.Payload != "\n" {
		t.Errorf("Expected newline payload, got %q", f.Payload)
	}

	peer.Close()
	if err := <-done; err != nil {
		t.Errorf("Expected graceful end, got %v", err)
	}
}

func TestSession_MatchOverConnection(t *testing.T) {
	serverOp := newOperator(
		"hi",
		"2", "1", "y",
		"2", "2", "y",
		"/q",
	)
	clientOp := newOperator(
		"hello",
		"!TicTacToe",
		"x", "y",
		"1", "1", "y",
		"1", "2", "y",
		"1", "3", "y",
	)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	server, client := newPair(serverOp, clientOp, WithTracer(provider.Tracer("test")))

	var (
		checked             bool
		serverMode, clientM Mode
	)
	clientOp.onAsk = func(lastShown string) {
		if lastShown == engine.PreferencePrompt && !checked {
			checked = true
			serverMode, clientM = server.Mode(), client.Mode()
		}
	}

	serverErr, clientErr := runBoth(t, server, client)
	if serverErr != nil || clientErr != nil {
		t.Fatalf("Expected graceful end, got server=%v client=%v", serverErr, clientErr)
	}

	if !checked {
		t.Fatal("Expected the trigger sender to be asked for a preference")
	}
	if serverMode != ModeGame || clientM != ModeGame {
		t.Errorf("Expected both sides in game mode, got server=%s client=%s", serverMode, clientM)
	}
	if server.Mode() != ModeChat || client.Mode() != ModeChat {
		t.Error("Expected both sides back in chat mode")
	}

	for name, op := range map[string]*scriptedOperator{"server": serverOp, "client": clientOp} {
		out := op.output()
		if !strings.Contains(out, engine.IntroMessage) {
			t.Errorf("Expected %s to see the intro", name)
		}
		if !strings.Contains(out, "*** X won the game! ***") {
			t.Errorf("Expected %s to see the result", name)
		}
	}
	if strings.Contains(clientOp.output(), frame.EndGame) {
		t.Error("The end-of-game sentinel must not be shown")
	}
	// Each side sees only its own turns: the host's moves are not announced
	// to the relay.
	if !strings.Contains(serverOp.output(), "  *** O's turn! ***") {
		t.Error("Expected the host to see its turn announcement")
	}
	if strings.Contains(clientOp.output(), "  *** O's turn! ***") {
		t.Error("The relay must not see the host's turn announcement")
	}
	if !strings.Contains(serverOp.output(), "CLIENT: !TicTacToe\n") {
		t.Error("Expected the host to show the trigger")
	}

	if server.Info().GamesPlayed != 1 || client.Info().GamesPlayed != 1 {
		t.Errorf("Expected one game on each side, got %d and %d",
			server.Info().GamesPlayed, client.Info().GamesPlayed)
	}

	names := map[string]int{}
	for _, span := range recorder.Ended() {
		names[span.Name()]++
	}
	if names["session.run"] != 1 || names["session.match"] != 1 {
		t.Errorf("Expected one run and one match span, got %v", names)
	}
}

func TestSession_RelayQuitEndsGameWithExit(t *testing.T) {
	serverOp := newOperator("/q")
	clientOp := newOperator("!tic-tac-toe", "QUIT")
	server, client := newPair(serverOp, clientOp)

	serverErr, clientErr := runBoth(t, server, client)
	if serverErr != nil || clientErr != nil {
		t.Fatalf("Expected graceful end, got server=%v client=%v", serverErr, clientErr)
	}
	if !strings.Contains(clientOp.output(), engine.GoodbyeMessage) {
		t.Error("Expected the relay to see the goodbye message")
	}
	if !strings.Contains(serverOp.output(), engine.GoodbyeMessage) {
		t.Error("Expected the host to see the goodbye message")
	}
	if client.Mode() != ModeChat {
		t.Error("Expected the relay to leave game mode on [exit]")
	}
}

func TestSession_HostInputEndsMidGame(t *testing.T) {
	// The server operator's input runs out on its first move.
	serverOp := newOperator("hi", "2")
	clientOp := newOperator(
		"hello",
		"!TicTacToe",
		"x", "y",
		"1", "1", "y",
	)
	server, client := newPair(serverOp, clientOp)

	serverErr, clientErr := runBoth(t, server, client)
	if serverErr != nil || clientErr != nil {
		t.Fatalf("Expected graceful end, got server=%v client=%v", serverErr, clientErr)
	}
	if !strings.Contains(clientOp.output(), engine.GoodbyeMessage) {
		t.Errorf("Expected the relay to see the goodbye message, got %q", clientOp.output())
	}
	if !strings.Contains(serverOp.output(), engine.GoodbyeMessage) {
		t.Error("Expected the host to see the goodbye message")
	}
	if strings.Contains(clientOp.output(), frame.EndGame) {
		t.Error("The end-of-game sentinel must not be shown")
	}
	if client.Mode() != ModeChat || server.Mode() != ModeChat {
		t.Error("Expected both sides back in chat mode")
	}
	if server.Info().GamesPlayed != 0 {
		t.Errorf("An abandoned match must not count, got %d", server.Info().GamesPlayed)
	}
}

func TestSession_RelayDisconnectsMidGame(t *testing.T) {
	serverOp := newOperator()
	clientOp := newOperator("!tictactoe", "/q")
	server, client := newPair(serverOp, clientOp)

	serverErr, clientErr := runBoth(t, server, client)
	if serverErr != nil || clientErr != nil {
		t.Fatalf("Expected graceful end, got server=%v client=%v", serverErr, clientErr)
	}
}

func TestSession_WaitFrameDefersReply(t *testing.T) {
	conn, peer := net.Pipe()
	defer peer.Close()
	op := newOperator("/q")
	server := New(conn, RoleServer, op, WithLogger(quietLogger()))

	done := make(chan error, 1)
	go func() { done <- server.Run(context.Background()) }()

	codec := frame.DefaultCodec()
	if err := codec.Send(peer, "one", true); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := codec.Send(peer, "two", false); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := codec.Receive(peer); !errors.Is(err, frame.ErrEndOfTransmission) {
		t.Fatalf("Expected end of transmission, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Expected graceful end, got %v", err)
	}

	want := []string{"CLIENT: one\n", "CLIENT: two\n", "YOU: /q\n"}
	if strings.Join(op.shown, "") != strings.Join(want, "") {
		t.Errorf("Expected %q, got %q", want, op.shown)
	}
	if len(op.prompts) != 1 {
		t.Errorf("Expected one prompt, got %d", len(op.prompts))
	}
}

func TestSession_RejectedMessagesArePromptedAgain(t *testing.T) {
	codec, err := frame.NewCodec(3)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	conn, peer := net.Pipe()
	op := newOperator(strings.Repeat("a", 100), "café", "ok")
	server := New(conn, RoleServer, op, WithCodec(codec), WithLogger(quietLogger()))

	done := make(chan error, 1)
	go func() { done <- server.Run(context.Background()) }()

	if err := codec.Send(peer, "hi", false); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	f, err := codec.Receive(peer)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if f.Payload != "ok" {
		t.Errorf("Expected %q, got %q", "ok", f.Payload)
	}
	peer.Close()

	if err := <-done; err != nil {
		t.Fatalf("Expected graceful end, got %v", err)
	}
	out := op.output()
	if !strings.Contains(out, TooLongMessage) || !strings.Contains(out, NotASCIIMessage) {
		t.Errorf("Expected both rejection messages, got %q", out)
	}
	if len(op.prompts) != 3 {
		t.Errorf("Expected 3 prompts, got %d", len(op.prompts))
	}
}

func TestSession_MalformedHeaderClosesConnection(t *testing.T) {
	conn, peer := net.Pipe()
	defer peer.Close()
	server := New(conn, RoleServer, newOperator(), WithLogger(quietLogger()))

	done := make(chan error, 1)
	go func() { done <- server.Run(context.Background()) }()

	if _, err := peer.Write([]byte(strings.Repeat("z", frame.DefaultHeaderSize))); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	err := <-done
	if !errors.Is(err, frame.ErrMalformedHeader) {
		t.Fatalf("Expected ErrMalformedHeader, got %v", err)
	}
	if _, err := peer.Write([]byte("x")); err == nil {
		t.Error("Expected the connection to be closed")
	}
}

func TestSession_ContextCancelEndsRun(t *testing.T) {
	conn, peer := net.Pipe()
	defer peer.Close()
	server := New(conn, RoleServer, newOperator(), WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected graceful end, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

type closeCounter struct {
	io.ReadWriter
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	conn := &closeCounter{}
	s := New(conn, RoleServer, newOperator(), WithID("fixed-id"))

	s.Close()
	s.Close()
	if conn.closes != 1 {
		t.Errorf("Expected 1 close, got %d", conn.closes)
	}
	if s.ID() != "fixed-id" {
		t.Errorf("Expected ID fixed-id, got %s", s.ID())
	}
}

func TestRole(t *testing.T) {
	if RoleServer.InboundHeader() != "CLIENT: " || RoleClient.InboundHeader() != "SERVER: " {
		t.Error("Unexpected inbound headers")
	}
	if RoleServer.String() != "server" || RoleClient.String() != "client" {
		t.Error("Unexpected role names")
	}
}
