package session

import (
	"log"

	"go.opentelemetry.io/otel/trace"

	"github.com/wricardo/framechat/transport/frame"
)

// Option configures a Session.
type Option func(*Session)

// WithID sets the session ID. A random UUID is used otherwise.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithRemoteAddr records the peer address for Info.
func WithRemoteAddr(addr string) Option {
	return func(s *Session) {
		s.remoteAddr = addr
	}
}

// WithCodec sets the frame codec. DefaultCodec is used otherwise.
func WithCodec(codec *frame.Codec) Option {
	return func(s *Session) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithLogger sets the logger. log.Default is used otherwise.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for session and match spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Session) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}
