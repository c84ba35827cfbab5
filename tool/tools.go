package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
)

// ListTools handles the tools/list method
func (h *Handler) ListTools(ctx context.Context, request *jsonrpc.Request) (*schema.ListToolsResult, *jsonrpc.Error) {
	return &schema.ListToolsResult{Tools: h.registry.List()}, nil
}

// CallTool handles the tools/call method
func (h *Handler) CallTool(ctx context.Context, request *jsonrpc.Request) (*schema.CallToolResult, *jsonrpc.Error) {
	params := &schema.CallToolRequestParams{}
	if err := json.Unmarshal(request.Params, params); err != nil {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse: %v", err), request.Params)
	}
	aTool, ok := h.registry.Lookup(params.Name)
	if !ok {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("unknown tool: %v", params.Name), request.Params)
	}
	if violations := aTool.Validate(params.Arguments); len(violations) > 0 {
		return ErrorResult("invalid arguments: " + strings.Join(violations, "; ")), nil
	}
	_ = h.Logger.Debug(ctx, map[string]interface{}{"tool": params.Name, "event": "call"})
	result, err := aTool.Call(ctx, params.Arguments)
	if err != nil {
		h.logger.Warn().Err(err).Str("tool", params.Name).Msg("tool call failed")
		_ = h.Logger.Error(ctx, map[string]interface{}{"tool": params.Name, "error": err.Error()})
		return ErrorResult(err.Error()), nil
	}
	if result == nil {
		result = TextResult("")
	}
	return result, nil
}
