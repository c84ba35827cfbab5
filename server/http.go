package server

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/viant/mcp-protocol/schema"
)

type httpServer struct {
	addr               string
	sseURI             string
	sseMessageURI      string
	streamableURI      string
	healthURI          string
	protocolVersions   []string
	corsConfig         *Cors
	corsHandler        Middleware
	customHTTPHandlers map[string]http.HandlerFunc
	tlsConfig          *tls.Config
}

func newHTTPServer() httpServer {
	cors := defaultCors()
	return httpServer{
		addr:             "127.0.0.1:5000",
		sseURI:           "/sse",
		sseMessageURI:    "/messages",
		streamableURI:    "/mcp",
		healthURI:        "/health",
		protocolVersions: []string{schema.LatestProtocolVersion, "2025-03-26", "2024-11-05"},
		corsConfig:       cors,
		corsHandler:      newCorsHandler(cors).Middleware,
	}
}

// Handler returns the HTTP handler serving push+sidecar, unified stream and health endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for path, handler := range s.customHTTPHandlers {
		mux.Handle(path, handler)
	}
	base := []Middleware{
		recoverMiddleware(s.logger),
		requestLogMiddleware(s.logger),
		securityHeadersMiddleware(),
		s.corsHandler,
	}
	if s.corsConfig != nil {
		base = append(base, originValidationMiddleware(s.corsConfig.AllowOrigins, s.logger))
	}
	mcp := append(append([]Middleware{}, base...), protocolVersionMiddleware(s.protocolVersions))

	mux.Handle(s.healthURI, ChainMiddlewareHandlers(http.HandlerFunc(handleHealth), base...))
	mux.Handle(s.sseURI, ChainMiddlewareHandlers(http.HandlerFunc(s.handleSSE), mcp...))
	mux.Handle(s.sseMessageURI, ChainMiddlewareHandlers(http.HandlerFunc(s.handleSidecar), mcp...))
	mux.Handle(s.streamableURI, ChainMiddlewareHandlers(http.HandlerFunc(s.handleStreamable), mcp...))
	return mux
}

// HTTP creates and returns an HTTP server; it starts the idle sweeper when an
// idle timeout is configured.
func (s *Server) HTTP(_ context.Context, addr string) *http.Server {
	if addr == "" {
		addr = s.addr
	}
	if s.idleTimeout > 0 {
		s.sweepOnce.Do(func() {
			go s.sweep(s.ctx)
		})
	}
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		TLSConfig:         s.tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// UseTLS reports whether TLS was configured.
func (s *Server) UseTLS() bool {
	return s.tlsConfig != nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
