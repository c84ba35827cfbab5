package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcpbroker/internal/collection"
	"github.com/viant/mcpbroker/message"
	"github.com/viant/mcpbroker/session"
)

// peer exposes a session handle to the protocol engine as a jsonrpc transport,
// so the engine can notify the client and issue its own requests.
type peer struct {
	handle  session.Handle
	pending *collection.SyncMap[string, chan *jsonrpc.Response]
	seq     atomic.Uint64
}

// Notify sends a notification to the client.
func (p *peer) Notify(ctx context.Context, notification *jsonrpc.Notification) error {
	if notification.Jsonrpc == "" {
		notification.Jsonrpc = jsonrpc.Version
	}
	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return p.handle.Send(ctx, data)
}

// Send issues a server initiated request and waits for the client response.
func (p *peer) Send(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	if request.Id == nil {
		request.Id = p.NextRequestID()
	}
	if request.Jsonrpc == "" {
		request.Jsonrpc = jsonrpc.Version
	}
	key := message.IDKey(request.Id)
	waiter := make(chan *jsonrpc.Response, 1)
	if _, loaded := p.pending.PutIfAbsent(key, waiter); loaded {
		return nil, fmt.Errorf("request %v already pending", request.Id)
	}
	defer p.pending.Delete(key)
	data, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	if err = p.handle.Send(ctx, data); err != nil {
		return nil, err
	}
	select {
	case response := <-waiter:
		return response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.handle.Done():
		return nil, session.ErrClosed
	}
}

func (p *peer) NextRequestID() jsonrpc.RequestId {
	return p.seq.Add(1)
}

func (p *peer) LastRequestID() jsonrpc.RequestId {
	return p.seq.Load()
}

// resolve hands a client response to the pending request, reporting whether one was waiting.
func (p *peer) resolve(data []byte) (bool, error) {
	response := &jsonrpc.Response{}
	if err := json.Unmarshal(data, response); err != nil {
		return false, err
	}
	waiter, ok := p.pending.Take(message.IDKey(response.Id))
	if !ok {
		return false, nil
	}
	waiter <- response
	return true, nil
}

func newPeer(handle session.Handle) *peer {
	return &peer{handle: handle, pending: collection.NewSyncMap[string, chan *jsonrpc.Response]()}
}
