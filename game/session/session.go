package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wricardo/framechat/game/engine"
	"github.com/wricardo/framechat/transport/frame"
)

const tracerName = "github.com/wricardo/framechat/game/session"

// Operator-facing text.
const (
	OutboundHeader   = "YOU: "
	ChatPrompt       = "Enter a message: "
	TriggerHint      = "Enter \"!TICTACTOE\" to play a game!\n"
	ConnectedBanner  = "Successfully connected to the server!\nSend '/q' to cancel the connection.\n"
	TooLongMessage   = "Message is too long!\n"
	NotASCIIMessage  = "Only ASCII text can be sent.\n"
	emptyLinePayload = "\n"
)

// Role is the side of the conversation a session plays.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleClient {
		return "client"
	}
	return "server"
}

// InboundHeader prefixes text received from the peer.
func (r Role) InboundHeader() string {
	if r == RoleClient {
		return "SERVER: "
	}
	return "CLIENT: "
}

func (r Role) chatPrompt() string {
	if r == RoleClient {
		return TriggerHint + ChatPrompt
	}
	return ChatPrompt
}

// Mode tells which sub-protocol currently owns the connection.
type Mode int32

const (
	ModeChat Mode = iota
	ModeGame
)

func (m Mode) String() string {
	if m == ModeGame {
		return "game"
	}
	return "chat"
}

// Info is a point-in-time snapshot of a session.
type Info struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	Role        string    `json:"role"`
	Mode        string    `json:"mode"`
	CreatedAt   time.Time `json:"created_at"`
	GamesPlayed int64     `json:"games_played"`
	FramesIn    int64     `json:"frames_in"`
	FramesOut   int64     `json:"frames_out"`
}

type step int

const (
	stepReceive step = iota
	stepSend
	stepDone
)

// Session is one live framed connection.
type Session struct {
	id         string
	remoteAddr string
	role       Role
	createdAt  time.Time

	conn     io.ReadWriteCloser
	codec    *frame.Codec
	operator engine.Seat
	logger   *log.Logger
	tracer   trace.Tracer

	mode      atomic.Int32
	games     atomic.Int64
	framesIn  atomic.Int64
	framesOut atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

// New wraps conn. The session owns conn from now on and closes it when Run
// returns.
func New(conn io.ReadWriteCloser, role Role, operator engine.Seat, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		role:      role,
		createdAt: time.Now(),
		conn:      conn,
		codec:     frame.DefaultCodec(),
		operator:  operator,
		logger:    log.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Role returns the role the session was created with.
func (s *Session) Role() Role { return s.role }

// Mode returns the current mode. Safe for concurrent use.
func (s *Session) Mode() Mode { return Mode(s.mode.Load()) }

func (s *Session) setMode(m Mode) { s.mode.Store(int32(m)) }

// Info returns a snapshot. Safe for concurrent use.
func (s *Session) Info() Info {
	return Info{
		ID:          s.id,
		RemoteAddr:  s.remoteAddr,
		Role:        s.role.String(),
		Mode:        s.Mode().String(),
		CreatedAt:   s.createdAt,
		GamesPlayed: s.games.Load(),
		FramesIn:    s.framesIn.Load(),
		FramesOut:   s.framesOut.Load(),
	}
}

// Close closes the connection. Only the first call has an effect; a Run in
// progress returns once its blocked read or write fails.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// Run drives the conversation until either side sends "/q", the connection
// goes away or ctx is cancelled. Those endings return nil. A malformed header
// closes the connection and is returned wrapped.
func (s *Session) Run(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "session.run", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("session.role", s.role.String()),
		attribute.String("session.remote_addr", s.remoteAddr),
	))
	defer span.End()
	defer s.Close()

	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	next := stepReceive
	if s.role == RoleClient {
		next = stepSend
		if err := s.operator.Show(ConnectedBanner); err != nil {
			return s.finish(span, err)
		}
	}

	for next != stepDone {
		var err error
		switch next {
		case stepReceive:
			next, err = s.receive(ctx)
		case stepSend:
			next, err = s.send(ctx)
		}
		if err != nil {
			return s.finish(span, err)
		}
	}
	return s.finish(span, nil)
}

func (s *Session) finish(span trace.Span, err error) error {
	span.SetAttributes(
		attribute.Int64("session.games_played", s.games.Load()),
		attribute.Int64("session.frames_in", s.framesIn.Load()),
		attribute.Int64("session.frames_out", s.framesOut.Load()),
	)
	switch {
	case err == nil:
		s.logger.Printf("Session %s closed", s.id)
		return nil
	case frame.IsEnd(err):
		s.logger.Printf("Session %s ended: %v", s.id, err)
		return nil
	default:
		s.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Printf("Session %s failed: %v", s.id, err)
		return fmt.Errorf("session %s: %w", s.id, err)
	}
}

// receive reads frames until one expects a reply.
func (s *Session) receive(ctx context.Context) (step, error) {
	for {
		f, err := s.recv(ctx)
		if err != nil {
			return stepDone, err
		}
		if err := s.operator.Show(s.role.InboundHeader() + f.Payload + "\n"); err != nil {
			return stepDone, fmt.Errorf("show inbound message: %w", err)
		}

		if frame.IsTrigger(f.Payload) {
			if err := s.host(ctx); err != nil {
				return stepDone, err
			}
			return stepSend, nil
		}
		if !f.Wait {
			return stepSend, nil
		}
	}
}

// send reads one line from the operator and sends it.
func (s *Session) send(ctx context.Context) (step, error) {
	text, err := s.askOperator(s.role.chatPrompt())
	if err != nil {
		return stepDone, err
	}
	if err := s.operator.Show(OutboundHeader + text + "\n"); err != nil {
		return stepDone, fmt.Errorf("echo outbound message: %w", err)
	}

	switch {
	case frame.IsEndTransmission(text):
		return stepDone, nil
	case frame.IsTrigger(text):
		if err := s.relay(ctx); err != nil {
			return stepDone, err
		}
	}
	return stepReceive, nil
}

// askOperator prompts until a line is accepted by the codec and sent. An
// operator that has gone away (io.EOF) is treated as typing "/q".
func (s *Session) askOperator(prompt string) (string, error) {
	for {
		text, err := s.operator.Ask(prompt)
		if errors.Is(err, io.EOF) {
			text, err = frame.EndTransmission, nil
		}
		if err != nil {
			return "", fmt.Errorf("read operator input: %w", err)
		}
		if text == "" {
			text = emptyLinePayload
		}

		err = s.sendFrame(text, false)
		switch {
		case err == nil:
			return text, nil
		case errors.Is(err, frame.ErrMessageTooLong):
			err = s.operator.Show(TooLongMessage)
		case errors.Is(err, frame.ErrNotASCII):
			err = s.operator.Show(NotASCIIMessage)
		default:
			return "", err
		}
		if err != nil {
			return "", err
		}
	}
}

// host runs a match with the peer as player one and the local operator as
// player two, then tells the peer the game is over.
func (s *Session) host(ctx context.Context) error {
	s.setMode(ModeGame)
	defer s.setMode(ModeChat)

	ctx, span := s.tracer.Start(ctx, "session.match", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("match.side", "host"),
	))
	defer span.End()

	s.logger.Printf("Session %s hosting a match", s.id)
	match := engine.NewMatch(&remoteSeat{session: s, ctx: ctx}, s.operator)
	outcome, err := match.Play(ctx)
	span.SetAttributes(
		attribute.String("match.outcome", outcome.String()),
		attribute.String("match.winner", match.Winner().String()),
		attribute.Int("match.moves", match.Moves()),
	)
	if err != nil {
		span.RecordError(err)
		// Remote seat errors never wrap io.EOF, so this is the local operator.
		if errors.Is(err, io.EOF) {
			return s.abandon()
		}
		return err
	}

	s.games.Add(1)
	s.logger.Printf("Session %s match finished: %s after %d moves", s.id, outcome, match.Moves())
	return s.sendFrame(frame.EndGame, false)
}

// relay shows what the host sends and answers its prompts until "[exit]".
// abandon ends a hosted match whose local operator has no more input. The
// peer is told goodbye and released from game mode before "/q" ends the
// conversation.
func (s *Session) abandon() error {
	s.logger.Printf("Session %s operator input ended mid-match", s.id)
	if err := s.operator.Show(engine.GoodbyeMessage); err != nil {
		s.logger.Printf("Session %s: show goodbye: %v", s.id, err)
	}
	for _, f := range []frame.Frame{
		{Payload: engine.GoodbyeMessage, Wait: true},
		{Payload: frame.EndGame},
		{Payload: frame.EndTransmission},
	} {
		if err := s.sendFrame(f.Payload, f.Wait); err != nil {
			return err
		}
	}
	return frame.ErrEndOfTransmission
}

func (s *Session) relay(ctx context.Context) error {
	s.setMode(ModeGame)
	defer s.setMode(ModeChat)

	_, span := s.tracer.Start(ctx, "session.match", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("match.side", "relay"),
	))
	defer span.End()

	for {
		f, err := s.recv(ctx)
		if err != nil {
			return err
		}
		if frame.IsEndGame(f.Payload) {
			s.games.Add(1)
			return nil
		}
		if err := s.operator.Show(f.Payload); err != nil {
			return fmt.Errorf("show host message: %w", err)
		}
		if f.Wait {
			continue
		}

		answer, err := s.askOperator("")
		if err != nil {
			return err
		}
		if frame.IsEndTransmission(answer) {
			return frame.ErrEndOfTransmission
		}
	}
}

// recv reads one frame, retrying while the stream is merely idle.
func (s *Session) recv(ctx context.Context) (frame.Frame, error) {
	for {
		f, err := s.codec.Receive(s.conn)
		if errors.Is(err, frame.ErrNoData) {
			if ctx.Err() != nil {
				return frame.Frame{}, fmt.Errorf("%w: %v", frame.ErrConnectionClosed, ctx.Err())
			}
			continue
		}
		if err == nil || errors.Is(err, frame.ErrEndOfTransmission) {
			s.framesIn.Add(1)
		}
		return f, err
	}
}

func (s *Session) sendFrame(text string, wait bool) error {
	if err := s.codec.Send(s.conn, text, wait); err != nil {
		return err
	}
	s.framesOut.Add(1)
	return nil
}
