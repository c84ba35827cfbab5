// Package session tracks logical client sessions and the transport handles
// that carry them.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Kind identifies the transport shape carrying a session.
type Kind string

const (
	KindStdio      Kind = "stdio"
	KindSSE        Kind = "sse"
	KindStreamable Kind = "streamable"
)

var (
	// ErrDuplicate is returned when registering an identifier that is already live.
	ErrDuplicate = errors.New("session already registered")
	// ErrClosed is returned by handle operations after Close.
	ErrClosed = errors.New("session closed")
	// ErrUnbound is returned when registering a session without an identifier.
	ErrUnbound = errors.New("session identifier not assigned")
)

// Session holds per-client bookkeeping shared by all transport kinds.
type Session struct {
	Kind      Kind
	CreatedAt time.Time

	mux          sync.RWMutex
	id           string
	lastActivity atomic.Int64
	closed       atomic.Bool
}

// ID returns the session identifier, empty until bound.
func (s *Session) ID() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.id
}

// Bind assigns identifier once.
func (s *Session) Bind(id string) error {
	if id == "" {
		return ErrUnbound
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.id != "" {
		return errors.New("session identifier already bound: " + s.id)
	}
	s.id = id
	return nil
}

// Touch records activity.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the most recent Touch.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// MarkClosed flips the session to closed, reporting whether this call did it.
func (s *Session) MarkClosed() bool {
	return s.closed.CompareAndSwap(false, true)
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// New creates a session; id may be empty when it is confirmed later by a handshake.
func New(id string, kind Kind) *Session {
	ret := &Session{id: id, Kind: kind, CreatedAt: time.Now()}
	ret.Touch()
	return ret
}

// Handle is the capability set every transport adapter exposes to the broker
// and the protocol engine.
type Handle interface {
	// Session returns bookkeeping for the handle.
	Session() *Session
	// Receive blocks for the next inbound message.
	Receive(ctx context.Context) ([]byte, error)
	// Send emits an outbound message.
	Send(ctx context.Context, data []byte) error
	// Close releases the underlying connection; it is safe to call more than once.
	Close() error
	// Done is closed once the handle is closed.
	Done() <-chan struct{}
}
