package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
)

// SetLevel handles the logging/setLevel method
func (h *Handler) SetLevel(ctx context.Context, request *jsonrpc.Request) (*struct{}, *jsonrpc.Error) {
	params := struct {
		Level schema.LoggingLevel `json:"level"`
	}{}
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse: %v", err), request.Params)
	}
	if params.Level == "" {
		return nil, jsonrpc.NewInvalidParamsError("level was empty", request.Params)
	}
	h.loggingLevel = params.Level
	return &struct{}{}, nil
}
