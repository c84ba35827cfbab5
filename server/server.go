package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcpbroker/session"
)

// NewHandler creates the protocol engine attached to one session.
type NewHandler func(ctx context.Context, transport transport.Transport) transport.Handler

// Server is the session broker: it accepts connections on the pipe, push+sidecar
// and unified stream transports, tracks their sessions and attaches a protocol
// engine to each of them.
type Server struct {
	newHandler NewHandler
	logger     zerolog.Logger
	newID      func() string

	streams         *session.Registry
	pushes          *session.Registry
	latest          *session.Latest
	sidecarFallback bool

	keepalive     time.Duration
	idleTimeout   time.Duration
	sweepInterval time.Duration
	sweepOnce     sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	httpServer
}

// Streams returns the unified stream session registry.
func (s *Server) Streams() *session.Registry {
	return s.streams
}

// Pushes returns the push+sidecar session registry.
func (s *Server) Pushes() *session.Registry {
	return s.pushes
}

// Close stops all sessions. Each handle is closed and then removed with a
// conditional remove.
func (s *Server) Close() error {
	s.cancel()
	for _, registry := range []*session.Registry{s.streams, s.pushes} {
		for _, handle := range registry.Handles() {
			s.release(registry, handle.Session().ID(), handle, "shutdown")
		}
	}
	return nil
}

// release closes handle and drops its registry entry. A close error is logged
// and the handle is treated as closed.
func (s *Server) release(registry *session.Registry, id string, handle session.Handle, reason string) {
	if err := handle.Close(); err != nil {
		s.logger.Warn().Err(err).Str("session", id).Str("reason", reason).Msg("session close failed")
	}
	if registry.RemoveIfMatches(id, handle) {
		s.logger.Info().Str("session", id).Str("kind", string(handle.Session().Kind)).Str("reason", reason).Msg("session closed")
	}
}

// New creates a new Server instance
func New(options ...Option) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		logger:          zerolog.Nop(),
		newID:           uuid.NewString,
		streams:         session.NewRegistry(),
		pushes:          session.NewRegistry(),
		latest:          &session.Latest{},
		sidecarFallback: true,
		keepalive:       30 * time.Second,
		sweepInterval:   time.Minute,
		ctx:             ctx,
		cancel:          cancel,
		httpServer:      newHTTPServer(),
	}
	for _, option := range options {
		if err := option(s); err != nil {
			cancel()
			return nil, err
		}
	}
	if s.newHandler == nil {
		cancel()
		return nil, errors.New("no handler specified")
	}
	return s, nil
}
