package websocket

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wricardo/framechat/game/engine"
	"github.com/wricardo/framechat/game/session"
	"github.com/wricardo/framechat/transport/frame"
)

const tracerName = "github.com/wricardo/framechat/transport/websocket"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Terminal clients send no Origin header; browsers are not a target.
		return true
	},
}

// Option configures a Handler.
type Option func(*Handler)

// WithCodec sets the frame codec handed to every session.
func WithCodec(codec *frame.Codec) Option {
	return func(h *Handler) {
		if codec != nil {
			h.codec = codec
		}
	}
}

// WithLogger sets the logger for the handler and its sessions.
func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithTracer sets the tracer for the handler and its sessions.
func WithTracer(tracer trace.Tracer) Option {
	return func(h *Handler) {
		if tracer != nil {
			h.tracer = tracer
		}
	}
}

// Handler upgrades each request and runs a server-role session on it until
// the conversation ends.
type Handler struct {
	sessions *session.Manager
	operator engine.Seat
	codec    *frame.Codec
	logger   *log.Logger
	tracer   trace.Tracer
}

// NewHandler creates a handler whose sessions talk to operator and are
// registered in sessions.
func NewHandler(sessions *session.Manager, operator engine.Seat, opts ...Option) *Handler {
	h := &Handler{
		sessions: sessions,
		operator: operator,
		codec:    frame.DefaultCodec(),
		logger:   log.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("WebSocket upgrade error: %v", err)
		return
	}
	// Every Write is one message, so a capped codec bounds the message size.
	if limit := h.codec.MaxPayload(); limit > 0 {
		ws.SetReadLimit(int64(limit + h.codec.HeaderSize()))
	}

	remote := r.RemoteAddr
	ctx, span := h.tracer.Start(r.Context(), "websocket.accept", trace.WithAttributes(
		attribute.String("net.peer.addr", remote),
	))
	conn := NewConn(ws, true)
	sess := session.New(conn, session.RoleServer, h.operator,
		session.WithRemoteAddr(remote),
		session.WithCodec(h.codec),
		session.WithLogger(h.logger),
		session.WithTracer(h.tracer),
	)
	span.SetAttributes(attribute.String("session.id", sess.ID()))
	err = h.sessions.Add(sess)
	span.End()
	if err != nil {
		h.logger.Printf("Rejecting WebSocket client %s: %v", remote, err)
		conn.Close()
		return
	}
	defer h.sessions.Remove(sess.ID())

	h.logger.Printf("WebSocket client connected from %s (session %s)", remote, sess.ID())
	if err := sess.Run(ctx); err != nil {
		h.logger.Printf("WebSocket client %s closed with error: %v", remote, err)
		return
	}
	h.logger.Printf("WebSocket client disconnected from %s", remote)
}

// Dial connects to a Handler at url (ws:// or wss://) and returns a
// client-role session that is ready to Run.
func Dial(ctx context.Context, url string, operator engine.Seat, opts ...session.Option) (*session.Session, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	opts = append([]session.Option{session.WithRemoteAddr(ws.RemoteAddr().String())}, opts...)
	return session.New(NewConn(ws, false), session.RoleClient, operator, opts...), nil
}
