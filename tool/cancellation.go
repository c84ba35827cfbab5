package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcpbroker/internal/conv"
)

// Cancel stops the in-flight request named by a notifications/cancelled message.
func (h *Handler) Cancel(ctx context.Context, notification *jsonrpc.Notification) *jsonrpc.Error {
	var params struct {
		RequestId json.RawMessage `json:"requestId"`
		Reason    string          `json:"reason,omitempty"`
	}
	if err := json.Unmarshal(notification.Params, &params); err != nil {
		return jsonrpc.NewParsingError(fmt.Sprintf("failed to parse notification: %v", err), notification.Params)
	}
	if len(params.RequestId) == 0 || string(params.RequestId) == "null" {
		return jsonrpc.NewInvalidParamsError("invalid requestId", notification.Params)
	}
	h.cancelOperation(conv.AsKey(params.RequestId))
	return nil
}
