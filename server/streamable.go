package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcpbroker/session"
	"github.com/viant/mcpbroker/transport/sse"
	"github.com/viant/mcpbroker/transport/streamable"
)

const maxBodySize = 10 * 1024 * 1024

// handleStreamable serves the unified stream endpoint.
func (s *Server) handleStreamable(w http.ResponseWriter, r *http.Request) {
	id := session.IDFromRequest(r)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodDelete:
		s.terminate(w, id)
		return
	case http.MethodGet, http.MethodPost:
	default:
		w.Header().Set("Allow", "GET, POST, DELETE, OPTIONS")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if handle, ok := s.streams.Lookup(id); ok {
		handle.Session().Touch()
		s.dispatch(w, r, handle)
		return
	}
	if r.Method == http.MethodGet {
		if id == "" {
			http.Error(w, "missing session identifier", http.StatusBadRequest)
			return
		}
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	s.initiate(w, r)
}

// dispatch forwards a request to the entry point the handle exposes for it.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, handle session.Handle) {
	if handler, ok := handle.(http.Handler); ok {
		handler.ServeHTTP(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if server, ok := handle.(session.GetServer); ok {
			server.ServeGet(w, r)
			s.releaseOnDisconnect(r, handle)
			return
		}
	case http.MethodPost:
		if server, ok := handle.(session.PostServer); ok {
			server.ServePost(w, r)
			return
		}
	}
	s.mismatch(w, handle)
}

// releaseOnDisconnect ends the session when the client dropped its receive
// stream. A stream that ended because the session closed, or was refused as
// busy, leaves the session alone.
func (s *Server) releaseOnDisconnect(r *http.Request, handle session.Handle) {
	if r.Context().Err() == nil || handle.Session().IsClosed() {
		return
	}
	s.release(s.streams, handle.Session().ID(), handle, "receive stream disconnected")
}

func (s *Server) mismatch(w http.ResponseWriter, handle session.Handle) {
	operations := strings.Join(session.Operations(handle), ", ")
	s.logger.Error().Str("session", handle.Session().ID()).Str("operations", operations).Msg("transport API mismatch")
	http.Error(w, fmt.Sprintf("transport API mismatch, operations: %s", operations), http.StatusInternalServerError)
}

// initiate creates a session from a POST without a known identifier. The engine
// is attached before the handshake; the session is registered only once the
// handshake bound its identifier.
func (s *Server) initiate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		streamable.WriteError(w, http.StatusBadRequest, jsonrpc.NewParsingError(err.Error(), nil))
		return
	}
	handle := streamable.New(s.newID, streamable.WithKeepalive(s.keepalive))
	s.attach(handle)
	response, err := handle.Handshake(r.Context(), body)
	if err != nil {
		_ = handle.Close()
		s.logger.Warn().Err(err).Msg("session handshake failed")
		if response != nil {
			w.Header().Set("Content-Type", sse.ContentTypeJSON)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write(response)
			return
		}
		streamable.WriteError(w, http.StatusBadRequest, jsonrpc.NewInvalidRequest(err.Error(), nil))
		return
	}
	id := handle.Session().ID()
	if err = s.streams.Register(id, handle); err != nil {
		_ = handle.Close()
		s.logger.Warn().Err(err).Str("session", id).Msg("session registration rejected")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.logger.Info().Str("session", id).Str("kind", string(session.KindStreamable)).Msg("session opened")
	handle.WriteResponse(w, response)
}

// terminate acknowledges a DELETE at once and tears the session down in the background.
func (s *Server) terminate(w http.ResponseWriter, id string) {
	handle, ok := s.streams.Lookup(id)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Closed"))
	if !ok {
		return
	}
	go s.release(s.streams, id, handle, "terminated")
}
