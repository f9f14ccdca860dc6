// Package tcp accepts framed chat connections over TCP and dials them.
//
// Server runs one session goroutine per accepted connection and registers
// every session in a session.Manager, so shutdown can close live connections
// without any process-wide connection variable.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wricardo/framechat/game/engine"
	"github.com/wricardo/framechat/game/session"
	"github.com/wricardo/framechat/transport/frame"
)

const tracerName = "github.com/wricardo/framechat/transport/tcp"

// DefaultAcceptTimeout bounds each Accept so the loop notices shutdown.
const DefaultAcceptTimeout = 500 * time.Millisecond

// ErrServerClosed is returned by Serve after Shutdown or cancellation.
var ErrServerClosed = errors.New("tcp: server closed")

// Option configures a Server.
type Option func(*Server)

// WithCodec sets the frame codec handed to every session.
func WithCodec(codec *frame.Codec) Option {
	return func(s *Server) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithAcceptTimeout sets how long one Accept may block.
func WithAcceptTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.acceptTimeout = d
		}
	}
}

// WithLogger sets the logger for the server and its sessions.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer for the server and its sessions.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// Server is the connection manager.
type Server struct {
	sessions      *session.Manager
	operator      engine.Seat
	codec         *frame.Codec
	acceptTimeout time.Duration
	logger        *log.Logger
	tracer        trace.Tracer

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
}

// NewServer creates a server whose sessions talk to operator.
func NewServer(sessions *session.Manager, operator engine.Seat, opts ...Option) *Server {
	s := &Server{
		sessions:      sessions,
		operator:      operator,
		codec:         frame.DefaultCodec(),
		acceptTimeout: DefaultAcceptTimeout,
		logger:        log.Default(),
		tracer:        otel.Tracer(tracerName),
		listeners:     make(map[net.Listener]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

type deadliner interface {
	SetDeadline(time.Time) error
}

// Serve accepts connections on ln until ctx is done or Shutdown is called.
// Listeners that support SetDeadline are polled with the accept timeout;
// others are closed when ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.closed.Load() {
		ln.Close()
		return ErrServerClosed
	}
	s.track(ln, true)
	defer s.track(ln, false)
	defer ln.Close()

	dl, canDeadline := ln.(deadliner)
	if !canDeadline {
		stop := context.AfterFunc(ctx, func() { ln.Close() })
		defer stop()
	}

	s.logger.Printf("Server started listening on %s", ln.Addr())
	for {
		if ctx.Err() != nil || s.closed.Load() {
			return ErrServerClosed
		}
		if canDeadline {
			dl.SetDeadline(time.Now().Add(s.acceptTimeout))
		}

		conn, err := ln.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if s.closed.Load() || ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			return fmt.Errorf("accept: %w", err)
		}

		// Shutdown flips closed under mu, so no Add can follow its Wait.
		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			conn.Close()
			return ErrServerClosed
		}
		s.wg.Add(1)
		s.mu.Unlock()
		go s.handle(ctx, conn)
	}
}

func (s *Server) track(ln net.Listener, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.listeners[ln] = struct{}{}
	} else {
		delete(s.listeners, ln)
	}
}

// handle runs one session to completion.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()

	remote := conn.RemoteAddr().String()
	_, span := s.tracer.Start(ctx, "tcp.accept", trace.WithAttributes(
		attribute.String("net.peer.addr", remote),
	))
	sess := session.New(conn, session.RoleServer, s.operator,
		session.WithRemoteAddr(remote),
		session.WithCodec(s.codec),
		session.WithLogger(s.logger),
		session.WithTracer(s.tracer),
	)
	span.SetAttributes(attribute.String("session.id", sess.ID()))
	err := s.sessions.Add(sess)
	span.End()
	if err != nil {
		s.logger.Printf("Rejecting connection from %s: %v", remote, err)
		conn.Close()
		return
	}
	defer s.sessions.Remove(sess.ID())
	if s.closed.Load() {
		sess.Close()
	}

	s.logger.Printf("New connection from %s (session %s)", remote, sess.ID())
	if err := sess.Run(ctx); err != nil {
		s.logger.Printf("Connection from %s closed with error: %v", remote, err)
		return
	}
	s.logger.Printf("Closing connection from %s", remote)
}

// Shutdown stops accepting, closes every registered session and waits for
// the session goroutines until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed.Store(true)
	for ln := range s.listeners {
		ln.Close()
	}
	s.mu.Unlock()

	if n := s.sessions.CloseAll(); n > 0 {
		s.logger.Printf("Closed %d live sessions", n)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dial connects to a server and returns a client-role session that is ready
// to Run.
func Dial(ctx context.Context, addr string, operator engine.Seat, opts ...session.Option) (*session.Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	opts = append([]session.Option{session.WithRemoteAddr(conn.RemoteAddr().String())}, opts...)
	return session.New(conn, session.RoleClient, operator, opts...), nil
}
