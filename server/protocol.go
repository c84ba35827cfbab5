package server

import (
	"net/http"
)

// HeaderProtocolVersion carries the negotiated MCP protocol version.
const HeaderProtocolVersion = "MCP-Protocol-Version"

// protocolVersionMiddleware rejects unsupported MCP-Protocol-Version values and
// echoes the effective version. An absent header falls back to the latest version.
func protocolVersionMiddleware(supported []string) Middleware {
	accepted := make(map[string]bool, len(supported))
	for _, version := range supported {
		accepted[version] = true
	}
	latest := ""
	if len(supported) > 0 {
		latest = supported[0]
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			version := r.Header.Get(HeaderProtocolVersion)
			if version != "" && !accepted[version] {
				http.Error(w, "invalid MCP-Protocol-Version", http.StatusBadRequest)
				return
			}
			if version == "" {
				version = latest
			}
			w.Header().Set(HeaderProtocolVersion, version)
			next.ServeHTTP(w, r)
		})
	}
}
