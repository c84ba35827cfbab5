package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/mcp-protocol/schema"
	"github.com/viant/mcpbroker/tool"
)

// Register exposes every enabled route as a tool backed by client.
func Register(registry *tool.Registry, client *Client, routes []*Route) error {
	for _, route := range routes {
		if !route.IsEnabled() {
			continue
		}
		if err := route.Validate(); err != nil {
			return err
		}
		definition, err := route.Definition()
		if err != nil {
			return err
		}
		if err = registry.Register(definition, client.forward(route)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) forward(route *Route) tool.Func {
	return func(ctx context.Context, args map[string]interface{}) (*schema.CallToolResult, error) {
		call, err := route.call(args, c.config.TokenArgument)
		if err != nil {
			return nil, err
		}
		data, err := c.Do(ctx, call)
		if err != nil {
			return nil, err
		}
		if route.Unwrap != "" {
			data = unwrap(data, route.Unwrap)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return tool.TextResult(fmt.Sprintf("%v completed", route.Name)), nil
		}
		return tool.JSONResult(data, c.config.TextLimit), nil
	}
}

// unwrap returns the named field of a JSON object, or data unchanged.
func unwrap(data []byte, field string) []byte {
	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return data
	}
	if value, ok := envelope[field]; ok {
		return value
	}
	return data
}
