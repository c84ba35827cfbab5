package server

import (
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Option is a function that configures the server.
type Option func(s *Server) error

// WithNewHandler sets the protocol engine factory.
func WithNewHandler(newHandler NewHandler) Option {
	return func(s *Server) error {
		s.newHandler = newHandler
		return nil
	}
}

// WithLogger sets the broker logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithSessionIDGenerator overrides session identifier generation.
func WithSessionIDGenerator(newID func() string) Option {
	return func(s *Server) error {
		if newID == nil {
			return errors.New("session id generator was nil")
		}
		s.newID = newID
		return nil
	}
}

// WithSidecarFallback toggles routing of unresolved sidecar messages to the most
// recently opened push stream.
func WithSidecarFallback(enabled bool) Option {
	return func(s *Server) error {
		s.sidecarFallback = enabled
		return nil
	}
}

// WithIdleTimeout closes sessions idle longer than timeout, checked every interval.
func WithIdleTimeout(timeout, interval time.Duration) Option {
	return func(s *Server) error {
		s.idleTimeout = timeout
		if interval > 0 {
			s.sweepInterval = interval
		}
		return nil
	}
}

// WithKeepalive sets the comment interval on event streams, 0 disables.
func WithKeepalive(interval time.Duration) Option {
	return func(s *Server) error {
		s.keepalive = interval
		return nil
	}
}

// WithCORS adds a new CORS handler to the server.
func WithCORS(cors *Cors) Option {
	return func(s *Server) error {
		handler := newCorsHandler(cors)
		s.corsConfig = cors
		s.corsHandler = handler.Middleware
		return nil
	}
}

// WithEndpointAddress sets the HTTP listen address.
func WithEndpointAddress(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithSSEURI sets the push stream URI.
func WithSSEURI(uri string) Option {
	return func(s *Server) error {
		s.sseURI = uri
		return nil
	}
}

// WithSSEMessageURI sets the sidecar URI.
func WithSSEMessageURI(uri string) Option {
	return func(s *Server) error {
		s.sseMessageURI = uri
		return nil
	}
}

// WithStreamableURI sets the unified stream URI.
func WithStreamableURI(uri string) Option {
	return func(s *Server) error {
		s.streamableURI = uri
		return nil
	}
}

// WithHealthURI sets the health check URI.
func WithHealthURI(uri string) Option {
	return func(s *Server) error {
		s.healthURI = uri
		return nil
	}
}

// WithProtocolVersions sets accepted MCP-Protocol-Version header values.
func WithProtocolVersions(versions ...string) Option {
	return func(s *Server) error {
		if len(versions) > 0 {
			s.protocolVersions = versions
		}
		return nil
	}
}

// WithTLSConfig enables TLS on the HTTP server.
func WithTLSConfig(config *tls.Config) Option {
	return func(s *Server) error {
		s.tlsConfig = config
		return nil
	}
}

// WithCustomHTTPHandler adds a custom HTTP handler to the server.
func WithCustomHTTPHandler(path string, handler http.HandlerFunc) Option {
	return func(s *Server) error {
		if s.customHTTPHandlers == nil {
			s.customHTTPHandlers = make(map[string]http.HandlerFunc)
		}
		s.customHTTPHandlers[path] = handler
		return nil
	}
}
