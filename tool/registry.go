// Package tool implements the MCP protocol engine attached to each broker
// session: lifecycle methods, tool listing and invocation, cancellation and
// log notifications.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/viant/mcp-protocol/schema"
)

// Func executes a tool call with validated arguments.
type Func func(ctx context.Context, args map[string]interface{}) (*schema.CallToolResult, error)

// Tool is a registered tool.
type Tool struct {
	Definition schema.Tool
	Call       Func
	validator  *jsonschema.Schema
}

// Validate checks args against the tool input schema, returning violations.
func (t *Tool) Validate(args map[string]interface{}) []string {
	if t.validator == nil {
		return nil
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	err := t.validator.Validate(args)
	if err == nil {
		return nil
	}
	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	var ret []string
	collectViolations(validationErr, &ret)
	return ret
}

func collectViolations(err *jsonschema.ValidationError, violations *[]string) {
	if len(err.Causes) == 0 {
		location := strings.TrimPrefix(err.InstanceLocation, "/")
		if location == "" {
			*violations = append(*violations, err.Message)
			return
		}
		*violations = append(*violations, strings.ReplaceAll(location, "/", ".")+": "+err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectViolations(cause, violations)
	}
}

// Registry holds tools in registration order.
type Registry struct {
	mux      sync.RWMutex
	tools    []*Tool
	index    map[string]*Tool
	disabled map[string]bool
}

// Register adds a tool; its input schema is compiled for argument validation.
func (r *Registry) Register(definition schema.Tool, call Func) error {
	if definition.Name == "" {
		return fmt.Errorf("tool name was empty")
	}
	if call == nil {
		return fmt.Errorf("tool %v: handler was nil", definition.Name)
	}
	validator, err := compileSchema(definition)
	if err != nil {
		return fmt.Errorf("tool %v: %w", definition.Name, err)
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	if _, ok := r.index[definition.Name]; ok {
		return fmt.Errorf("tool %v already registered", definition.Name)
	}
	aTool := &Tool{Definition: definition, Call: call, validator: validator}
	r.tools = append(r.tools, aTool)
	r.index[definition.Name] = aTool
	return nil
}

// Disable hides tools from listing and invocation. Names are case-insensitive.
func (r *Registry) Disable(names ...string) {
	r.mux.Lock()
	defer r.mux.Unlock()
	for _, name := range names {
		r.disabled[strings.ToLower(name)] = true
	}
}

// Enabled reports whether name is registered and not disabled.
func (r *Registry) Enabled(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Lookup returns an enabled tool.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	aTool, ok := r.index[name]
	if !ok || r.disabled[strings.ToLower(name)] {
		return nil, false
	}
	return aTool, true
}

// List returns enabled tool definitions in registration order.
func (r *Registry) List() []schema.Tool {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]schema.Tool, 0, len(r.tools))
	for _, aTool := range r.tools {
		if r.disabled[strings.ToLower(aTool.Definition.Name)] {
			continue
		}
		ret = append(ret, aTool.Definition)
	}
	return ret
}

func compileSchema(definition schema.Tool) (*jsonschema.Schema, error) {
	schemaBytes, err := json.Marshal(definition.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema: %w", err)
	}
	// unset optional fields marshal as null, which is not a valid keyword value
	keywords := map[string]interface{}{}
	if err = json.Unmarshal(schemaBytes, &keywords); err == nil {
		for key, value := range keywords {
			if value == nil {
				delete(keywords, key)
			}
		}
		if schemaBytes, err = json.Marshal(keywords); err != nil {
			return nil, err
		}
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	resource := definition.Name + ".json"
	if err = compiler.AddResource(resource, strings.NewReader(string(schemaBytes))); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile(resource)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*Tool), disabled: make(map[string]bool)}
}
