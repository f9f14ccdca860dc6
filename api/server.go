package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wricardo/framechat/game/engine"
	"github.com/wricardo/framechat/game/session"
	"github.com/wricardo/framechat/transport/frame"
)

// ProtocolInfo describes the wire conventions a server speaks.
type ProtocolInfo struct {
	HeaderSize      int      `json:"header_size"`
	MaxPayloadSize  int      `json:"max_payload_size"` // 0 when only the header width limits it
	WaitFlag        string   `json:"wait_flag"`
	EndTransmission string   `json:"end_transmission"`
	EndGame         string   `json:"end_game"`
	Triggers        []string `json:"triggers"`
	QuitKeywords    []string `json:"quit_keywords"`
}

// Option configures a Server.
type Option func(*Server)

// WithWebSocket mounts h at /ws.
func WithWebSocket(h http.Handler) Option {
	return func(s *Server) {
		s.ws = h
	}
}

// WithMCP mounts h at /mcp for POST requests.
func WithMCP(h http.Handler) Option {
	return func(s *Server) {
		s.mcp = h
	}
}

// WithCodec reports codec's header width and payload cap from /api/protocol.
func WithCodec(codec *frame.Codec) Option {
	return func(s *Server) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// Server represents the admin API server
type Server struct {
	sessions *session.Manager
	codec    *frame.Codec
	ws       http.Handler
	mcp      http.Handler
	router   *mux.Router
}

// NewServer creates a new API server over the session registry
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		codec:    frame.DefaultCodec(),
		router:   mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/protocol", s.handleProtocol).Methods("GET")

	if s.ws != nil {
		s.router.Handle("/ws", s.ws)
	}
	if s.mcp != nil {
		s.router.Handle("/mcp", s.mcp).Methods("POST")
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func sessionStatus(err error) int {
	if errors.Is(err, session.ErrSessionNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Session Handlers

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondError(w, sessionStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.sessions.Close(sessionID); err != nil {
		respondError(w, sessionStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s closed", sessionID),
	})
}

// Service Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

func (s *Server) handleProtocol(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ProtocolInfo{
		HeaderSize:      s.codec.HeaderSize(),
		MaxPayloadSize:  s.codec.MaxPayload(),
		WaitFlag:        string(frame.WaitFlag),
		EndTransmission: frame.EndTransmission,
		EndGame:         frame.EndGame,
		Triggers:        frame.Triggers,
		QuitKeywords:    engine.QuitKeywords,
	})
}
