package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
)

type clientInfo struct {
	ProtocolVersion string `json:"protocolVersion"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

// Initialize handles the initialize method
func (h *Handler) Initialize(ctx context.Context, request *jsonrpc.Request) (*schema.InitializeResult, *jsonrpc.Error) {
	params := &clientInfo{}
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, params); err != nil {
			return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse %v", err), request.Params)
		}
	}
	h.clientInfo = params
	protoVersion := h.protocolVersion
	if h.supported[params.ProtocolVersion] {
		protoVersion = params.ProtocolVersion
	}
	h.logger.Info().Str("client", params.ClientInfo.Name).Str("clientVersion", params.ClientInfo.Version).Str("protocol", protoVersion).Msg("client initialized")
	return &schema.InitializeResult{
		ProtocolVersion: protoVersion,
		ServerInfo:      h.info,
		Capabilities: schema.ServerCapabilities{
			Tools: &schema.ServerCapabilitiesTools{},
		},
		Instructions: h.instructions,
	}, nil
}

// Ping handles the ping method
func (h *Handler) Ping(ctx context.Context, request *jsonrpc.Request) (*schema.PingResult, *jsonrpc.Error) {
	return &schema.PingResult{}, nil
}
