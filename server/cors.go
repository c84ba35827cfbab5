package server

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	AllowOriginHeader       = "Access-Control-Allow-Origin"
	AllowHeadersHeader      = "Access-Control-Allow-Headers"
	AllowMethodsHeader      = "Access-Control-Allow-Methods"
	AllControlRequestHeader = "Access-Control-Request-Method"
	AllowCredentialsHeader  = "Access-Control-Allow-Credentials"
	ExposeHeadersHeader     = "Access-Control-Expose-Headers"
	MaxAgeHeader            = "Access-Control-Max-Age"
	Separator               = ", "

	defaultAllowHeaders  = "Content-Type, Authorization, Accept, Last-Event-ID, Mcp-Session-Id, X-Mcp-Session-Id, MCP-Protocol-Version"
	defaultExposeHeaders = "Content-Type, Mcp-Session-Id, MCP-Protocol-Version"
	defaultAllowMethods  = "GET, POST, DELETE, OPTIONS"
)

// Cors configures cross-origin access to the HTTP transports.
type Cors struct {
	AllowCredentials *bool    `yaml:"allowCredentials,omitempty" json:"allowCredentials,omitempty"`
	AllowHeaders     []string `yaml:"allowHeaders,omitempty" json:"allowHeaders,omitempty"`
	AllowMethods     []string `yaml:"allowMethods,omitempty" json:"allowMethods,omitempty"`
	AllowOrigins     []string `yaml:"allowOrigins,omitempty" json:"allowOrigins,omitempty"`
	ExposeHeaders    []string `yaml:"exposeHeaders,omitempty" json:"exposeHeaders,omitempty"`
	MaxAge           *int64   `yaml:"maxAge,omitempty" json:"maxAge,omitempty"`
}

// headerValue joins values; a lone "*" expands to fallback since the session
// headers must be listed explicitly for credentialed requests.
func headerValue(values []string, fallback string) string {
	joined := strings.Join(values, Separator)
	if joined == "*" {
		return fallback
	}
	return joined
}

// corsHandler sets CORS headers computed once from Cors.
type corsHandler struct {
	origins     map[string]bool
	anyOrigin   bool
	methods     string
	anyMethod   bool
	headers     string
	expose      string
	credentials string
	maxAge      string
}

func newCorsHandler(cors *Cors) *corsHandler {
	ret := &corsHandler{origins: map[string]bool{}}
	if cors == nil {
		return ret
	}
	for _, origin := range cors.AllowOrigins {
		if origin == "*" {
			ret.anyOrigin = true
			continue
		}
		ret.origins[normalizeOrigin(origin)] = true
	}
	ret.methods = headerValue(cors.AllowMethods, defaultAllowMethods)
	ret.anyMethod = strings.Join(cors.AllowMethods, Separator) == "*"
	ret.headers = headerValue(cors.AllowHeaders, defaultAllowHeaders)
	ret.expose = headerValue(cors.ExposeHeaders, defaultExposeHeaders)
	if cors.AllowCredentials != nil {
		ret.credentials = strconv.FormatBool(*cors.AllowCredentials)
	}
	if cors.MaxAge != nil {
		ret.maxAge = strconv.FormatInt(*cors.MaxAge, 10)
	}
	return ret
}

func (h *corsHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.setHeaders(w.Header(), r)
		next.ServeHTTP(w, r)
	})
}

func (h *corsHandler) setHeaders(header http.Header, r *http.Request) {
	origin := r.Header.Get("Origin")
	switch {
	case h.anyOrigin && origin == "":
		header.Set(AllowOriginHeader, "*")
	case origin != "" && (h.anyOrigin || h.origins[normalizeOrigin(origin)]):
		header.Set(AllowOriginHeader, origin)
		header.Add("Vary", "Origin")
	}
	if h.methods != "" {
		methods := h.methods
		if requested := r.Header.Get(AllControlRequestHeader); h.anyMethod && r.Method == http.MethodOptions && requested != "" {
			methods = requested
		}
		header.Set(AllowMethodsHeader, methods)
	}
	if h.headers != "" {
		header.Set(AllowHeadersHeader, h.headers)
	}
	if h.expose != "" {
		header.Set(ExposeHeadersHeader, h.expose)
	}
	if h.credentials != "" {
		header.Set(AllowCredentialsHeader, h.credentials)
	}
	if h.maxAge != "" {
		header.Set(MaxAgeHeader, h.maxAge)
	}
}

func defaultCors() *Cors {
	allowCredentials := true
	return &Cors{
		AllowCredentials: &allowCredentials,
		AllowHeaders:     []string{"*"},
		AllowMethods:     []string{"*"},
		AllowOrigins:     []string{"*"},
		ExposeHeaders:    []string{"*"},
	}
}
