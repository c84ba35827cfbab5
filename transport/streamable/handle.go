// Package streamable implements the unified stream transport: one HTTP endpoint
// where POST carries client messages and their responses, GET opens a receive
// stream for server initiated messages, and DELETE terminates the session.
package streamable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
	"github.com/viant/mcpbroker/internal/collection"
	"github.com/viant/mcpbroker/message"
	"github.com/viant/mcpbroker/session"
	"github.com/viant/mcpbroker/transport/sse"
)

const (
	maxBodySize    = 10 * 1024 * 1024
	inboundBuffer  = 16
	outboundBuffer = 64
)

var (
	// ErrHandshake is returned when the initiating exchange does not complete initialize.
	ErrHandshake = errors.New("handshake failed")
	// ErrStreamBusy is returned when a second receive stream is opened for a session.
	ErrStreamBusy = errors.New("receive stream already open")
	// ErrDuplicateRequest is returned when a request id is already awaiting a response.
	ErrDuplicateRequest = errors.New("request id already in flight")
	// ErrOutboundFull is returned when no receive stream drains server initiated messages.
	ErrOutboundFull = errors.New("outbound buffer full")
)

// Handle is a unified stream session.
type Handle struct {
	session   *session.Session
	newID     func() string
	keepalive time.Duration
	inbound   chan []byte
	waiters   *collection.SyncMap[string, chan []byte]
	outbound  chan []byte
	streaming atomic.Bool
	done      chan struct{}
	once      sync.Once
}

// Option configures a Handle.
type Option func(h *Handle)

// WithKeepalive sets the comment interval on receive streams.
func WithKeepalive(interval time.Duration) Option {
	return func(h *Handle) {
		h.keepalive = interval
	}
}

func (h *Handle) Session() *session.Session {
	return h.session
}

// Receive returns the next client message for the protocol engine.
func (h *Handle) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-h.inbound:
		return data, nil
	case <-h.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send routes a response to the POST awaiting it; anything else goes to the
// receive stream.
func (h *Handle) Send(ctx context.Context, data []byte) error {
	if envelope, err := message.Inspect(data); err == nil && envelope.Kind() == message.Response {
		if waiter, ok := h.waiters.Take(envelope.Key()); ok {
			waiter <- data
			return nil
		}
	}
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
	default:
		return ErrOutboundFull
	}
}

// Handshake runs the initiating exchange. The session identifier is bound only
// when the first message is an initialize request the engine answered without error.
func (h *Handle) Handshake(ctx context.Context, body []byte) ([]byte, error) {
	messages, _, err := message.Split(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	first, err := message.Inspect(messages[0])
	if err != nil || first.Kind() != message.Request || first.Method != schema.MethodInitialize {
		return nil, fmt.Errorf("%w: session must start with %v request", ErrHandshake, schema.MethodInitialize)
	}
	response, err := h.exchange(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if rejected := rejection(response, first.Key()); rejected != "" {
		return response, fmt.Errorf("%w: %s", ErrHandshake, rejected)
	}
	if err = h.session.Bind(h.newID()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	return response, nil
}

func rejection(response []byte, key string) string {
	responses, _, err := message.Split(response)
	if err != nil {
		return "missing initialize response"
	}
	for _, item := range responses {
		envelope, err := message.Inspect(item)
		if err != nil || envelope.Key() != key {
			continue
		}
		if len(envelope.Error) > 0 {
			return string(envelope.Error)
		}
		return ""
	}
	return "missing initialize response"
}

// exchange feeds body to the engine and collects responses for its requests,
// returning nil when body carried no requests.
func (h *Handle) exchange(ctx context.Context, body []byte) ([]byte, error) {
	messages, batch, err := message.Split(body)
	if err != nil {
		return nil, err
	}
	var keys []string
	var waiters []chan []byte
	release := func(from int) {
		for _, key := range keys[from:] {
			h.waiters.Delete(key)
		}
	}
	for _, item := range messages {
		envelope, err := message.Inspect(item)
		if err != nil {
			release(0)
			return nil, err
		}
		if envelope.Kind() != message.Request {
			continue
		}
		waiter := make(chan []byte, 1)
		if _, loaded := h.waiters.PutIfAbsent(envelope.Key(), waiter); loaded {
			release(0)
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRequest, envelope.ID)
		}
		keys = append(keys, envelope.Key())
		waiters = append(waiters, waiter)
	}
	for _, item := range messages {
		select {
		case h.inbound <- item:
		case <-h.done:
			release(0)
			return nil, session.ErrClosed
		case <-ctx.Done():
			release(0)
			return nil, ctx.Err()
		}
	}
	if len(waiters) == 0 {
		return nil, nil
	}
	responses := make([]json.RawMessage, 0, len(waiters))
	for i, waiter := range waiters {
		select {
		case data := <-waiter:
			responses = append(responses, data)
		case <-h.done:
			release(i)
			return nil, session.ErrClosed
		case <-ctx.Done():
			release(i)
			return nil, ctx.Err()
		}
	}
	if !batch {
		return responses[0], nil
	}
	return json.Marshal(responses)
}

// ServePost handles a client POST on an established session.
func (h *Handle) ServePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		WriteError(w, http.StatusBadRequest, jsonrpc.NewParsingError(err.Error(), nil))
		return
	}
	response, err := h.exchange(r.Context(), body)
	switch {
	case err == nil:
	case errors.Is(err, message.ErrInvalid):
		WriteError(w, http.StatusBadRequest, jsonrpc.NewParsingError(err.Error(), nil))
		return
	case errors.Is(err, ErrDuplicateRequest):
		WriteError(w, http.StatusBadRequest, jsonrpc.NewInvalidRequest(err.Error(), nil))
		return
	case errors.Is(err, session.ErrClosed):
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	default:
		return
	}
	h.WriteResponse(w, response)
}

// WriteResponse writes engine output for a POST; nil response means accepted.
func (h *Handle) WriteResponse(w http.ResponseWriter, response []byte) {
	if id := h.session.ID(); id != "" {
		w.Header().Set(session.HeaderID, id)
	}
	if response == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", sse.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(response)
}

// ServeGet streams server initiated messages until the client goes away or
// the session closes. Only one receive stream may be open at a time.
func (h *Handle) ServeGet(w http.ResponseWriter, r *http.Request) {
	if !h.streaming.CompareAndSwap(false, true) {
		http.Error(w, ErrStreamBusy.Error(), http.StatusConflict)
		return
	}
	defer h.streaming.Store(false)
	writer, err := sse.NewWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(session.HeaderID, h.session.ID())
	writer.WriteHeaders()
	var tick <-chan time.Time
	if h.keepalive > 0 {
		ticker := time.NewTicker(h.keepalive)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case data := <-h.outbound:
			if err = writer.WriteEvent(sse.EventMessage, data); err != nil {
				return
			}
		case <-tick:
			if err = writer.WriteComment("keepalive"); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		}
	}
}

// Streaming reports whether a receive stream is open.
func (h *Handle) Streaming() bool {
	return h.streaming.Load()
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

// WriteError writes a JSON-RPC error response with a null id.
func WriteError(w http.ResponseWriter, status int, rpcError *jsonrpc.Error) {
	response := &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Error: rpcError}
	data, err := json.Marshal(response)
	if err != nil {
		http.Error(w, rpcError.Message, status)
		return
	}
	w.Header().Set("Content-Type", sse.ContentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// New creates an unbound handle; newID supplies the identifier after a successful handshake.
func New(newID func() string, options ...Option) *Handle {
	ret := &Handle{
		session:  session.New("", session.KindStreamable),
		newID:    newID,
		inbound:  make(chan []byte, inboundBuffer),
		waiters:  collection.NewSyncMap[string, chan []byte](),
		outbound: make(chan []byte, outboundBuffer),
		done:     make(chan struct{}),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}
