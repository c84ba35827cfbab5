package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
	"github.com/viant/mcpbroker/message"
	"github.com/viant/mcpbroker/session"
)

const workQueueSize = 32

// attach binds a protocol engine to handle and starts relaying its messages.
// Requests and notifications of one handle are processed in arrival order;
// client responses and cancellations bypass the queue so that a request waiting
// on the client never blocks its own answer. The returned channel is closed
// once every received message has been processed.
func (s *Server) attach(handle session.Handle) <-chan struct{} {
	ctx, cancel := context.WithCancel(s.ctx)
	aPeer := newPeer(handle)
	handler := s.newHandler(ctx, aPeer)
	work := make(chan []byte, workQueueSize)
	finished := make(chan struct{})
	go func() {
		select {
		case <-handle.Done():
		case <-ctx.Done():
		}
		cancel()
	}()
	go s.receive(ctx, aPeer, handler, work)
	go func() {
		defer close(finished)
		for data := range work {
			s.process(ctx, aPeer, handler, data)
		}
	}()
	return finished
}

func (s *Server) receive(ctx context.Context, aPeer *peer, handler transport.Handler, work chan<- []byte) {
	defer close(work)
	handle := aPeer.handle
	for {
		data, err := handle.Receive(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Warn().Err(err).Str("session", handle.Session().ID()).Msg("session receive failed")
			}
			return
		}
		handle.Session().Touch()
		messages, _, err := message.Split(data)
		if err != nil {
			messages = []json.RawMessage{data}
		}
		for _, item := range messages {
			envelope, err := message.Inspect(item)
			switch {
			case err != nil:
			case envelope.Kind() == message.Response:
				if ok, err := aPeer.resolve(item); !ok {
					s.logger.Debug().Err(err).Str("session", handle.Session().ID()).Msg("unsolicited response dropped")
				}
				continue
			case envelope.Kind() == message.Notification && envelope.Method == schema.MethodNotificationCancel:
				s.process(ctx, aPeer, handler, item)
				continue
			}
			select {
			case work <- item:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Server) process(ctx context.Context, aPeer *peer, handler transport.Handler, data []byte) {
	envelope, err := message.Inspect(data)
	if err != nil {
		s.reply(ctx, aPeer.handle, &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Error: jsonrpc.NewParsingError(err.Error(), nil)})
		return
	}
	switch envelope.Kind() {
	case message.Request:
		request := &jsonrpc.Request{}
		if err = json.Unmarshal(data, request); err != nil {
			s.reply(ctx, aPeer.handle, &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Error: jsonrpc.NewInvalidRequest(err.Error(), data)})
			return
		}
		response := &jsonrpc.Response{Id: request.Id, Jsonrpc: jsonrpc.Version}
		handler.Serve(ctx, request, response)
		s.reply(ctx, aPeer.handle, response)
	case message.Notification:
		notification := &jsonrpc.Notification{}
		if err = json.Unmarshal(data, notification); err != nil {
			return
		}
		handler.OnNotification(ctx, notification)
	default:
		s.reply(ctx, aPeer.handle, &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Error: jsonrpc.NewInvalidRequest("not a JSON-RPC request", data)})
	}
}

func (s *Server) reply(ctx context.Context, handle session.Handle, response *jsonrpc.Response) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error().Err(err).Str("session", handle.Session().ID()).Msg("failed to encode response")
		return
	}
	if err = handle.Send(ctx, data); err != nil && !errors.Is(err, session.ErrClosed) {
		s.logger.Warn().Err(err).Str("session", handle.Session().ID()).Msg("failed to send response")
	}
}
