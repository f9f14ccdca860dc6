// Command framechat runs a framed chat server, connects to one, or plays a
// local game of tic-tac-toe.
//
// Commands:
//  1. "serve" – accepts TCP chat clients, and with HTTP_ADDR set also serves
//     the admin API, WebSocket chat at /ws and an /mcp endpoint
//  2. "connect" – opens a client session over TCP or WebSocket
//  3. "play" – both players share this terminal
//  4. "mcp" – runs an MCP stdio server against a running admin API
//  5. "config" – prints the effective configuration
//  6. "version" – prints the version
//
// Settings come from .env, then the environment, then flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/framechat/api"
	"github.com/wricardo/framechat/config"
	"github.com/wricardo/framechat/console"
	"github.com/wricardo/framechat/game/engine"
	"github.com/wricardo/framechat/game/session"
	"github.com/wricardo/framechat/telemetry"
	"github.com/wricardo/framechat/transport/frame"
	"github.com/wricardo/framechat/transport/mcp"
	"github.com/wricardo/framechat/transport/tcp"
	"github.com/wricardo/framechat/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "framechat"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "framed terminal chat with tic-tac-toe",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file to load before reading the environment"},
			&cli.BoolFlag{Name: "debug", Usage: "log file and line numbers"},
			&cli.StringFlag{Name: "server", Usage: "chat server host (SERVER)"},
			&cli.IntFlag{Name: "port", Usage: "chat server port (PORT)"},
			&cli.IntFlag{Name: "header-size", Usage: "frame header width in bytes (HEADER_SIZE)"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			} else {
				log.SetFlags(log.LstdFlags)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "accept chat clients",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "http-addr", Usage: "admin API, /ws and /mcp listen address (HTTP_ADDR)"},
					&cli.BoolFlag{Name: "ngrok", Usage: "also accept clients on a public ngrok TCP endpoint (NGROK_ENABLED)"},
				},
				Action: runServe,
			},
			{
				Name:  "connect",
				Usage: "chat with a server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "WebSocket URL (ws://host:port/ws); TCP to --server and --port when empty"},
				},
				Action: runConnect,
			},
			{
				Name:   "play",
				Usage:  "play tic-tac-toe locally, both players at this terminal",
				Action: runPlay,
			},
			{
				Name:  "mcp",
				Usage: "serve MCP tools over stdio for a running server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Usage: "admin API base URL (defaults to HTTP_ADDR or http://localhost:8080)"},
				},
				Action: runMCP,
			},
			{
				Name:   "config",
				Usage:  "print the effective configuration",
				Action: runConfig,
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(cmd.Root().Writer, "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// loadConfig reads .env and the environment, then applies flags that were
// set explicitly.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("env-file"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("server") {
		cfg.Server = cmd.String("server")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("header-size") {
		cfg.HeaderSize = int(cmd.Int("header-size"))
	}
	if cmd.IsSet("http-addr") {
		cfg.HTTPAddr = cmd.String("http-addr")
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// operatorFor is the terminal of the person running the command.
func operatorFor(cmd *cli.Command) *console.Console {
	root := cmd.Root()
	return console.New(root.Reader, root.Writer)
}

func setupTelemetry(ctx context.Context, cfg *config.Config) func() {
	shutdown, err := telemetry.Setup(ctx, AppName, Version, cfg.OTelEndpoint)
	if err != nil {
		log.Printf("Warning: tracing disabled: %v", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.Printf("Failed to flush traces: %v", err)
		}
	}
}

// localURL turns a listen address into a URL this process can call.
func localURL(scheme, addr, path string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return scheme + "://" + addr + path
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return scheme + "://" + net.JoinHostPort(host, port) + path
}

// newHTTPHandler mounts the admin API with the WebSocket transport and the
// MCP endpoint, all sharing the session registry.
func newHTTPHandler(sessions *session.Manager, operator engine.Seat, codec *frame.Codec, httpAddr string) http.Handler {
	wsHandler := websocket.NewHandler(sessions, operator, websocket.WithCodec(codec))
	mcpClient := mcp.NewClient(localURL("http", httpAddr, ""))
	return api.NewServer(sessions,
		api.WithCodec(codec),
		api.WithWebSocket(wsHandler),
		api.WithMCP(mcpClient.HTTPHandler()),
	)
}

// runServe accepts chat clients until interrupted.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	codec, err := cfg.Codec()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer setupTelemetry(ctx, cfg)()

	log.Printf("Starting %s v%s", AppName, Version)

	sessions := session.NewManager()
	operator := operatorFor(cmd)
	tcpServer := tcp.NewServer(sessions, operator,
		tcp.WithCodec(codec),
		tcp.WithAcceptTimeout(cfg.AcceptTimeout),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := tcpServer.ListenAndServe(gctx, cfg.Addr())
		if errors.Is(err, tcp.ErrServerClosed) {
			return nil
		}
		return err
	})

	var httpServer *http.Server
	var handler http.Handler
	if cfg.HTTPAddr != "" {
		handler = newHTTPHandler(sessions, operator, codec, cfg.HTTPAddr)
		httpServer = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		g.Go(func() error {
			log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
			log.Printf("REST API: %s", localURL("http", cfg.HTTPAddr, "/api"))
			log.Printf("WebSocket: %s", localURL("ws", cfg.HTTPAddr, "/ws"))
			log.Printf("MCP endpoint: %s", localURL("http", cfg.HTTPAddr, "/mcp"))
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	if cfg.Ngrok.Enabled {
		g.Go(func() error {
			serveNgrok(gctx, cfg, tcpServer, handler)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := tcpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Chat server shutdown error: %v", err)
		}
		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("HTTP server shutdown error: %v", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("Server stopped")
	return nil
}

// serveNgrok feeds a public TCP endpoint into the chat server and, when the
// HTTP surface is enabled, a public HTTP endpoint into handler. Failures are
// logged; the local listeners keep running.
func serveNgrok(ctx context.Context, cfg *config.Config, tcpServer *tcp.Server, handler http.Handler) {
	log.Println("Starting ngrok tunnel...")

	tun, err := ngrok.Listen(ctx,
		ngrokConfig.TCPEndpoint(),
		ngrok.WithAuthtoken(cfg.Ngrok.AuthToken),
	)
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	log.Printf("🚀 Ngrok chat endpoint established: %s", tun.URL())

	var httpTun ngrok.Tunnel
	if handler != nil {
		var endpoint ngrokConfig.Tunnel
		if cfg.Ngrok.Domain != "" {
			endpoint = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Ngrok.Domain))
			log.Printf("Using custom ngrok domain: %s", cfg.Ngrok.Domain)
		} else {
			endpoint = ngrokConfig.HTTPEndpoint()
		}

		httpTun, err = ngrok.Listen(ctx, endpoint, ngrok.WithAuthtoken(cfg.Ngrok.AuthToken))
		if err != nil {
			log.Printf("Failed to start ngrok HTTP tunnel: %v", err)
		} else {
			log.Printf("  REST API (ngrok): %s/api", httpTun.URL())
			log.Printf("  MCP endpoint (ngrok): %s/mcp", httpTun.URL())
			go func() {
				if err := http.Serve(httpTun, handler); err != nil && !errors.Is(err, net.ErrClosed) {
					log.Printf("Ngrok HTTP server error: %v", err)
				}
			}()
		}
	}

	// Serve closes tun when ctx is done.
	if err := tcpServer.Serve(ctx, tun); err != nil && !errors.Is(err, tcp.ErrServerClosed) {
		log.Printf("Ngrok chat endpoint error: %v", err)
	}
	if httpTun != nil {
		if err := httpTun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}
	log.Println("Ngrok tunnel closed")
}

// runConnect opens a client session and chats until either side quits.
func runConnect(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	codec, err := cfg.Codec()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer setupTelemetry(ctx, cfg)()

	operator := operatorFor(cmd)
	opts := []session.Option{session.WithCodec(codec)}

	var sess *session.Session
	if url := cmd.String("url"); url != "" {
		sess, err = websocket.Dial(ctx, url, operator, opts...)
	} else {
		sess, err = tcp.Dial(ctx, cfg.Addr(), operator, opts...)
	}
	if err != nil {
		return err
	}
	return sess.Run(ctx)
}

// runPlay runs one match with both seats on this terminal.
func runPlay(ctx context.Context, cmd *cli.Command) error {
	operator := operatorFor(cmd)
	outcome, err := engine.NewMatch(operator, operator).Play(ctx)
	if err != nil {
		return err
	}
	log.Printf("Game finished: %s", outcome)
	return nil
}

// runMCP serves the admin tools over stdio.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	baseURL := cmd.String("api-url")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
		if cfg.HTTPAddr != "" {
			baseURL = localURL("http", cfg.HTTPAddr, "")
		}
	}

	testClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := testClient.Get(baseURL + "/api/health"); err != nil {
		log.Printf("Warning: admin API at %s is not reachable yet: %v", baseURL, err)
	} else {
		resp.Body.Close()
	}

	log.Printf("MCP stdio server ready (admin API %s)", baseURL)
	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}

// runConfig prints the effective settings in .env form.
func runConfig(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	token := ""
	if cfg.Ngrok.AuthToken != "" {
		token = "********"
	}

	w := cmd.Root().Writer
	fmt.Fprintf(w, "SERVER=%s\n", cfg.Server)
	fmt.Fprintf(w, "PORT=%d\n", cfg.Port)
	fmt.Fprintf(w, "HTTP_ADDR=%s\n", cfg.HTTPAddr)
	fmt.Fprintf(w, "HEADER_SIZE=%d\n", cfg.HeaderSize)
	fmt.Fprintf(w, "MAX_PAYLOAD=%d\n", cfg.MaxPayload)
	fmt.Fprintf(w, "ACCEPT_TIMEOUT=%s\n", cfg.AcceptTimeout)
	fmt.Fprintf(w, "SHUTDOWN_TIMEOUT=%s\n", cfg.ShutdownTimeout)
	fmt.Fprintf(w, "OTEL_ENDPOINT=%s\n", cfg.OTelEndpoint)
	fmt.Fprintf(w, "NGROK_ENABLED=%t\n", cfg.Ngrok.Enabled)
	fmt.Fprintf(w, "NGROK_AUTHTOKEN=%s\n", token)
	fmt.Fprintf(w, "NGROK_DOMAIN=%s\n", cfg.Ngrok.Domain)
	return nil
}
