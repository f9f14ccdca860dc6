package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/framechat/config"
	"github.com/wricardo/framechat/console"
	"github.com/wricardo/framechat/game/session"
	"github.com/wricardo/framechat/transport/frame"
	"github.com/wricardo/framechat/transport/tcp"
)

var configKeys = []string{
	"SERVER", "PORT", "HTTP_ADDR", "HEADER_SIZE", "MAX_PAYLOAD", "ACCEPT_TIMEOUT",
	"SHUTDOWN_TIMEOUT", "OTEL_ENDPOINT", "NGROK_ENABLED", "NGROK_AUTHTOKEN", "NGROK_DOMAIN",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// runApp runs the command line with input on stdin and returns stdout.
func runApp(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader(input)
	app.Writer = &out
	app.ErrWriter = io.Discard

	missing := filepath.Join(t.TempDir(), "missing.env")
	argv := append([]string{AppName, "--env-file", missing}, args...)
	err := app.Run(context.Background(), argv)
	return out.String(), err
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "framechat" {
		t.Errorf("Expected app name framechat, got %s", AppName)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runApp(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "framechat v"+Version+"\n" {
		t.Errorf("Unexpected version output %q", out)
	}
}

func TestConfigCommand(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER", "env-host")
	t.Setenv("PORT", "7000")
	t.Setenv("NGROK_AUTHTOKEN", "secret-token")

	t.Run("flags override environment", func(t *testing.T) {
		out, err := runApp(t, "", "--port", "6001", "config")
		if err != nil {
			t.Fatalf("config failed: %v", err)
		}
		for _, want := range []string{"SERVER=env-host\n", "PORT=6001\n", "HEADER_SIZE=33\n", "MAX_PAYLOAD=0\n", "NGROK_AUTHTOKEN=********\n"} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected %q in output, got:\n%s", want, out)
			}
		}
		if strings.Contains(out, "secret-token") {
			t.Error("Auth token must not be printed")
		}
	})

	t.Run("invalid flag value", func(t *testing.T) {
		_, err := runApp(t, "", "--header-size", "1", "config")
		if !errors.Is(err, config.ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestPlayCommand(t *testing.T) {
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	// X takes the top row while O answers in the middle row.
	script := strings.Join([]string{
		"X", "y",
		"1", "1", "y",
		"2", "1", "y",
		"1", "2", "y",
		"2", "2", "y",
		"1", "3", "y",
	}, "\n") + "\n"

	out, err := runApp(t, script, "play")
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if !strings.Contains(out, "*** X won the game! ***") {
		t.Errorf("Expected X to win, got:\n%s", out)
	}
}

func TestPlayCommand_InputEnds(t *testing.T) {
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	if _, err := runApp(t, "X\n", "play"); err == nil {
		t.Error("Expected an error when the terminal closes mid-game")
	}
}

func TestConnectCommand(t *testing.T) {
	clearEnv(t)
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	manager := session.NewManager()
	srv := tcp.NewServer(manager, console.New(strings.NewReader("hi\n"), io.Discard),
		tcp.WithLogger(log.New(io.Discard, "", 0)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx, ln)

	addr := ln.Addr().(*net.TCPAddr)
	out, err := runApp(t, "hello\n/q\n",
		"--server", "127.0.0.1", "--port", strconv.Itoa(addr.Port), "connect")
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	for _, want := range []string{"Successfully connected", "YOU: hello\n", "SERVER: hi\n", "YOU: /q\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output, got:\n%s", want, out)
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	srv.Shutdown(shutdownCtx)
}

func TestLocalURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080/api"},
		{"0.0.0.0:8080", "http://localhost:8080/api"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000/api"},
		{"chat.example.com:80", "http://chat.example.com:80/api"},
		{"no-port", "http://no-port/api"},
	}

	for _, tt := range tests {
		if got := localURL("http", tt.addr, "/api"); got != tt.want {
			t.Errorf("localURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestHTTPHandler(t *testing.T) {
	sessions := session.NewManager()
	handler := newHTTPHandler(sessions, console.New(strings.NewReader(""), io.Discard), frame.DefaultCodec(), ":0")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 from /api/health, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 from /mcp, got %d", w.Code)
	}

	// A plain GET is not a WebSocket handshake.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/ws", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 from a non-upgrade /ws request, got %d", w.Code)
	}
}
