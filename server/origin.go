package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// originValidationMiddleware rejects browser requests whose Origin is not
// allowed. Requests without Origin pass, as do all requests when allowed is
// empty or holds "*". Origins compare case-insensitively without a trailing slash.
func originValidationMiddleware(allowed []string, logger zerolog.Logger) Middleware {
	allowedOrigins := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		allowedOrigins[normalizeOrigin(origin)] = true
	}
	allowAll := len(allowedOrigins) == 0 || allowedOrigins["*"]
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll || allowedOrigins[normalizeOrigin(origin)] {
				next.ServeHTTP(w, r)
				return
			}
			logger.Warn().Str("origin", origin).Str("path", r.URL.Path).Msg("origin rejected")
			http.Error(w, "origin not allowed", http.StatusForbidden)
		})
	}
}

func normalizeOrigin(origin string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
}
