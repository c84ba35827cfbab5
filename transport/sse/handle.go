// Package sse implements the push+sidecar transport: a long lived server-sent
// event stream for server to client messages and a separate POST sidecar for
// client to server messages.
package sse

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/viant/mcpbroker/session"
)

// EventEndpoint is the first event on a push stream, carrying the sidecar URL.
const EventEndpoint = "endpoint"

const outboundBuffer = 64

// Handle is a push stream handle fed by sidecar deliveries.
type Handle struct {
	session  *session.Session
	mux      sync.Mutex
	inbound  *queue.Queue
	signal   chan struct{}
	outbound chan []byte
	done     chan struct{}
	once     sync.Once
}

func (h *Handle) Session() *session.Session {
	return h.session
}

// Deliver enqueues a sidecar message for the protocol engine.
func (h *Handle) Deliver(data []byte) error {
	if h.session.IsClosed() {
		return session.ErrClosed
	}
	h.mux.Lock()
	h.inbound.Add(data)
	h.mux.Unlock()
	select {
	case h.signal <- struct{}{}:
	default:
	}
	return nil
}

// Receive returns delivered messages in arrival order.
func (h *Handle) Receive(ctx context.Context) ([]byte, error) {
	for {
		h.mux.Lock()
		if h.inbound.Length() > 0 {
			data := h.inbound.Remove().([]byte)
			h.mux.Unlock()
			return data, nil
		}
		h.mux.Unlock()
		select {
		case <-h.signal:
		case <-h.done:
			return nil, io.EOF
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Send queues data for the push stream.
func (h *Handle) Send(ctx context.Context, data []byte) error {
	select {
	case <-h.done:
		return session.ErrClosed
	default:
	}
	select {
	case h.outbound <- data:
		return nil
	case <-h.done:
		return session.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stream writes the endpoint event followed by outbound messages until ctx is
// done or the handle is closed.
func (h *Handle) Stream(ctx context.Context, w http.ResponseWriter, endpoint string, keepalive time.Duration) error {
	writer, err := NewWriter(w)
	if err != nil {
		return err
	}
	writer.WriteHeaders()
	if err = writer.WriteEvent(EventEndpoint, []byte(endpoint)); err != nil {
		return err
	}
	var tick <-chan time.Time
	if keepalive > 0 {
		ticker := time.NewTicker(keepalive)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case data := <-h.outbound:
			if err = writer.WriteEvent(EventMessage, data); err != nil {
				return err
			}
		case <-tick:
			if err = writer.WriteComment("keepalive"); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		case <-h.done:
			return nil
		}
	}
}

func (h *Handle) Close() error {
	h.once.Do(func() {
		h.session.MarkClosed()
		close(h.done)
	})
	return nil
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// New creates a push handle for id.
func New(id string) *Handle {
	return &Handle{
		session:  session.New(id, session.KindSSE),
		inbound:  queue.New(),
		signal:   make(chan struct{}, 1),
		outbound: make(chan []byte, outboundBuffer),
		done:     make(chan struct{}),
	}
}
