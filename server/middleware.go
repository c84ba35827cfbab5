package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Middleware is a function that takes an http.Handler and returns an http.Handler
type Middleware func(next http.Handler) http.Handler

// ChainMiddlewareHandlers chains multiple middleware handlers together
func ChainMiddlewareHandlers(h http.Handler, mws ...Middleware) http.Handler {
	// apply in reverse so the first middleware is outermost
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		h = mws[i](h)
	}
	return h
}

// securityHeadersMiddleware sets hardening headers on every response.
func securityHeadersMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := w.Header()
			header.Set("X-Content-Type-Options", "nosniff")
			header.Set("X-Frame-Options", "DENY")
			header.Set("Referrer-Policy", "no-referrer")
			header.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			header.Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}

// statusWriter records the response status; it keeps streaming responses working
// by passing Flush through.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(data []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(data)
}

func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// requestLogMiddleware logs one event per request, at a level chosen by status.
func requestLogMiddleware(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			writer := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(writer, r)
			status := writer.status
			if status == 0 {
				status = http.StatusOK
			}
			var event *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				event = logger.Error()
			case status >= http.StatusBadRequest:
				event = logger.Warn()
			default:
				event = logger.Info()
			}
			event.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", time.Since(started)).
				Msg("http_request")
		})
	}
}

// recoverMiddleware turns a handler panic into a 500.
func recoverMiddleware(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					if recovered == http.ErrAbortHandler {
						panic(recovered)
					}
					logger.Error().Interface("panic", recovered).Str("path", r.URL.Path).Msg("handler panic")
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
