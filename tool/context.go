package tool

import (
	"context"
	"encoding/json"

	"github.com/viant/jsonrpc"
)

type progressTokenKey struct{}

type activeContext struct {
	context.Context
	context.CancelFunc
}

func newActiveContext(ctx context.Context, cancel context.CancelFunc, request *jsonrpc.Request) (*activeContext, context.Context) {
	if progressToken, ok := parameterMeta(request)["progressToken"]; ok {
		ctx = context.WithValue(ctx, progressTokenKey{}, progressToken)
	}
	return &activeContext{
		Context:    ctx,
		CancelFunc: cancel,
	}, ctx
}

// ProgressToken returns the progress token the client attached to the request, if any.
func ProgressToken(ctx context.Context) (interface{}, bool) {
	value := ctx.Value(progressTokenKey{})
	return value, value != nil
}

func parameterMeta(request *jsonrpc.Request) map[string]interface{} {
	type paramsMeta struct {
		Meta map[string]interface{} `json:"_meta,omitempty" yaml:"_meta,omitempty" `
	}
	meta := &paramsMeta{}
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, meta); err == nil && meta.Meta != nil {
			return meta.Meta
		}
	}
	return make(map[string]interface{})
}
