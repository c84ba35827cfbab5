package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/viant/mcp-protocol/schema"
)

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Route maps a tool onto a backend endpoint.
type Route struct {
	Name        string                 `yaml:"name" json:"name"`
	Description string                 `yaml:"description" json:"description"`
	Method      string                 `yaml:"method" json:"method"`
	Path        string                 `yaml:"path" json:"path"`
	Body        []string               `yaml:"body" json:"body"`
	Query       []string               `yaml:"query" json:"query"`
	Unwrap      string                 `yaml:"unwrap" json:"unwrap"`
	Enabled     *bool                  `yaml:"enabled" json:"enabled"`
	InputSchema map[string]interface{} `yaml:"inputSchema" json:"inputSchema"`
}

// IsEnabled reports whether the route should be exposed.
func (r *Route) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Validate checks the route declaration.
func (r *Route) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("route name was empty")
	}
	if r.Path == "" {
		return fmt.Errorf("route %v: path was empty", r.Name)
	}
	switch strings.ToUpper(r.Method) {
	case "", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("route %v: unsupported method %v", r.Name, r.Method)
	}
	return nil
}

// Definition returns the MCP tool definition of the route.
func (r *Route) Definition() (schema.Tool, error) {
	inputSchema := r.InputSchema
	if len(inputSchema) == 0 {
		inputSchema = map[string]interface{}{"type": "object"}
	}
	raw := map[string]interface{}{
		"name":        r.Name,
		"inputSchema": inputSchema,
	}
	if r.Description != "" {
		raw["description"] = r.Description
	}
	var ret schema.Tool
	data, err := json.Marshal(raw)
	if err != nil {
		return ret, fmt.Errorf("route %v: %w", r.Name, err)
	}
	if err = json.Unmarshal(data, &ret); err != nil {
		return ret, fmt.Errorf("route %v: invalid input schema: %w", r.Name, err)
	}
	return ret, nil
}

// call builds the backend call for args.
func (r *Route) call(args map[string]interface{}, tokenArgument string) (*Call, error) {
	ret := &Call{Method: strings.ToUpper(r.Method), Query: url.Values{}}
	if ret.Method == "" {
		ret.Method = http.MethodGet
	}
	if token, ok := args[tokenArgument].(string); ok {
		ret.Token = token
	}
	consumed := map[string]bool{tokenArgument: true}
	var missing []string
	ret.Path = placeholder.ReplaceAllStringFunc(r.Path, func(match string) string {
		name := match[1 : len(match)-1]
		consumed[name] = true
		value, ok := args[name]
		if !ok || value == nil {
			missing = append(missing, name)
			return match
		}
		return url.PathEscape(asString(value))
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing path arguments: %v", strings.Join(missing, ", "))
	}
	for _, name := range r.Query {
		consumed[name] = true
		if value, ok := args[name]; ok && value != nil {
			ret.Query.Set(name, asString(value))
		}
	}
	body := map[string]interface{}{}
	for _, name := range r.Body {
		if name == "*" {
			for key, value := range args {
				if !consumed[key] {
					body[key] = value
				}
			}
			continue
		}
		if value, ok := args[name]; ok {
			body[name] = value
		}
	}
	if len(r.Body) > 0 {
		ret.Body = body
	}
	return ret, nil
}

func asString(value interface{}) string {
	switch actual := value.(type) {
	case string:
		return actual
	case float64:
		if actual == float64(int64(actual)) {
			return fmt.Sprintf("%d", int64(actual))
		}
	}
	return fmt.Sprintf("%v", value)
}
