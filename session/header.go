package session

import "net/http"

// HTTP headers used to carry session identifiers.
const (
	HeaderID       = "Mcp-Session-Id"
	HeaderIDLegacy = "X-Mcp-Session-Id"
	// QueryID is the query parameter carrying a session identifier.
	QueryID = "sessionId"
)

// IDFromRequest extracts a session identifier from any accepted header alias or
// the sessionId query parameter. Header lookup is case-insensitive.
func IDFromRequest(r *http.Request) string {
	if id := r.Header.Get(HeaderID); id != "" {
		return id
	}
	if id := r.Header.Get(HeaderIDLegacy); id != "" {
		return id
	}
	return r.URL.Query().Get(QueryID)
}
