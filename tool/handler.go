package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
	"github.com/viant/mcpbroker/internal/collection"
	"github.com/viant/mcpbroker/internal/conv"
)

// Handler is the protocol engine bound to one session.
type Handler struct {
	transport.Notifier
	*Logger
	*Engine
	clientInfo     *clientInfo
	loggingLevel   schema.LoggingLevel
	activeContexts *collection.SyncMap[string, *activeContext]
	initialized    atomic.Bool
}

// Serve handles incoming JSON-RPC requests
func (h *Handler) Serve(parent context.Context, request *jsonrpc.Request, response *jsonrpc.Response) {
	if jsonrpc.Version != request.Jsonrpc {
		response.Error = jsonrpc.NewInvalidRequest("invalid JSON-RPC version", nil)
		return
	}
	key := conv.AsKey(request.Id)
	ctx, cancel := context.WithCancel(parent)
	active, ctx := newActiveContext(ctx, cancel, request)
	h.activeContexts.Put(key, active)
	defer h.cancelOperation(key)

	switch request.Method {
	case schema.MethodInitialize:
		result, err := h.Initialize(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodPing:
		result, err := h.Ping(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodToolsList:
		result, err := h.ListTools(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodToolsCall:
		result, err := h.CallTool(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodLoggingSetLevel:
		result, err := h.SetLevel(ctx, request)
		h.setResponse(response, result, err)
	default:
		response.Error = jsonrpc.NewMethodNotFound(fmt.Sprintf("method: %v not found", request.Method), request.Params)
	}
}

func (h *Handler) setResponse(response *jsonrpc.Response, result interface{}, rpcError *jsonrpc.Error) {
	if rpcError != nil {
		response.Error = rpcError
		return
	}
	var err error
	response.Result, err = json.Marshal(result)
	if err != nil {
		response.Error = jsonrpc.NewInternalError(err.Error(), []byte{})
	}
}

// OnNotification handles incoming JSON-RPC notifications
func (h *Handler) OnNotification(ctx context.Context, notification *jsonrpc.Notification) {
	switch notification.Method {
	case schema.MethodNotificationCancel:
		if err := h.Cancel(ctx, notification); err != nil {
			h.logger.Debug().Str("error", err.Message).Msg("cancel notification ignored")
		}
	case schema.MethodNotificationInitialized:
		h.initialized.Store(true)
	default:
		h.logger.Debug().Str("method", notification.Method).Msg("notification ignored")
	}
}

// Initialized reports whether the client confirmed initialization.
func (h *Handler) Initialized() bool {
	return h.initialized.Load()
}

func (h *Handler) cancelOperation(key string) {
	if active, ok := h.activeContexts.Take(key); ok {
		active.CancelFunc()
	}
}

// Engine holds state shared by all sessions.
type Engine struct {
	registry        *Registry
	info            schema.Implementation
	instructions    *string
	protocolVersion string
	supported       map[string]bool
	loggerName      string
	logger          zerolog.Logger
}

// NewHandler creates the protocol engine for one session.
func (e *Engine) NewHandler(ctx context.Context, aTransport transport.Transport) transport.Handler {
	ret := &Handler{
		Notifier:       aTransport,
		Engine:         e,
		activeContexts: collection.NewSyncMap[string, *activeContext](),
	}
	ret.Logger = NewLogger(e.loggerName, &ret.loggingLevel, aTransport)
	return ret
}

// Registry returns engine tools.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// New creates an engine serving registry tools.
func New(registry *Registry, options ...Option) *Engine {
	ret := &Engine{
		registry: registry,
		info: schema.Implementation{
			Name:    "mcpbroker",
			Version: "0.1",
		},
		protocolVersion: schema.LatestProtocolVersion,
		supported:       map[string]bool{schema.LatestProtocolVersion: true, "2025-03-26": true, "2024-11-05": true},
		loggerName:      "mcpbroker",
		logger:          zerolog.Nop(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}
