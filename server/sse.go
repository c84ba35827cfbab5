package server

import (
	"io"
	"net/http"
	"net/url"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcpbroker/message"
	"github.com/viant/mcpbroker/session"
	"github.com/viant/mcpbroker/transport/sse"
	"github.com/viant/mcpbroker/transport/streamable"
)

// handleSSE opens a push stream and keeps it until the client disconnects.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet:
	default:
		w.Header().Set("Allow", "GET, OPTIONS")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := s.newID()
	handle := sse.New(id)
	if err := s.pushes.Register(id, handle); err != nil {
		_ = handle.Close()
		s.logger.Error().Err(err).Str("session", id).Msg("push stream registration failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.latest.Set(handle)
	s.attach(handle)
	s.logger.Info().Str("session", id).Str("kind", string(session.KindSSE)).Msg("session opened")
	defer func() {
		s.release(s.pushes, id, handle, "disconnected")
		s.latest.ClearIf(handle)
	}()
	endpoint := s.sseMessageURI + "?" + session.QueryID + "=" + url.QueryEscape(id)
	if err := handle.Stream(r.Context(), w, endpoint, s.keepalive); err != nil {
		s.logger.Debug().Err(err).Str("session", id).Msg("push stream ended")
	}
}

// handleSidecar delivers a client message to its push stream.
func (s *Server) handleSidecar(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	handle, ok := s.resolvePush(session.IDFromRequest(r))
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	deliverer, ok := handle.(session.Deliverer)
	if !ok {
		s.mismatch(w, handle)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err == nil {
		_, _, err = message.Split(body)
	}
	if err != nil {
		streamable.WriteError(w, http.StatusBadRequest, jsonrpc.NewParsingError(err.Error(), nil))
		return
	}
	if err = deliverer.Deliver(body); err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	handle.Session().Touch()
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("Accepted"))
}

// resolvePush finds the sidecar target: exact identifier match first, then the
// most recently opened stream when the fallback is enabled.
func (s *Server) resolvePush(id string) (session.Handle, bool) {
	if handle, ok := s.pushes.Lookup(id); ok {
		return handle, true
	}
	if !s.sidecarFallback {
		return nil, false
	}
	return s.fallbackToLatest(id)
}

// fallbackToLatest routes a sidecar message with a missing or unknown identifier
// to the most recently opened push stream. This keeps clients that lose their
// identifier working, but it is lossy: with several clients connected a message
// can reach another client's stream. Never use it for unified stream sessions.
func (s *Server) fallbackToLatest(requested string) (session.Handle, bool) {
	handle, ok := s.latest.Get()
	if ok {
		s.logger.Warn().Str("requested", requested).Str("session", handle.Session().ID()).Msg("sidecar message routed to most recent push stream")
	}
	return handle, ok
}
