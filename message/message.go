// Package message classifies raw JSON-RPC 2.0 payloads without decoding them
// into full request or response types.
package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/viant/mcpbroker/internal/conv"
)

// Kind identifies JSON-RPC message type.
type Kind int

const (
	Invalid Kind = iota
	Request
	Notification
	Response
)

func (k Kind) String() string {
	switch k {
	case Request:
		return "request"
	case Notification:
		return "notification"
	case Response:
		return "response"
	}
	return "invalid"
}

// ErrInvalid is returned when a payload is not a JSON-RPC message or batch.
var ErrInvalid = errors.New("invalid JSON-RPC payload")

// Envelope captures the fields needed for routing.
type Envelope struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// Kind returns envelope message kind.
func (e *Envelope) Kind() Kind {
	hasID := len(e.ID) > 0 && !bytes.Equal(e.ID, []byte("null"))
	switch {
	case e.Method != "" && hasID:
		return Request
	case e.Method != "":
		return Notification
	case len(e.Result) > 0 || len(e.Error) > 0:
		return Response
	}
	return Invalid
}

// Key returns normalised id key, empty for notifications.
func (e *Envelope) Key() string {
	if len(e.ID) == 0 {
		return ""
	}
	return conv.AsKey(e.ID)
}

// Inspect decodes a single message envelope.
func Inspect(data []byte) (*Envelope, error) {
	envelope := &Envelope{}
	if err := json.Unmarshal(data, envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return envelope, nil
}

// Split breaks a payload into individual messages; batch reports whether the
// payload was a JSON array.
func Split(data []byte) (messages []json.RawMessage, batch bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("%w: empty payload", ErrInvalid)
	}
	switch trimmed[0] {
	case '[':
		if err = json.Unmarshal(trimmed, &messages); err != nil {
			return nil, true, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if len(messages) == 0 {
			return nil, true, fmt.Errorf("%w: empty batch", ErrInvalid)
		}
		return messages, true, nil
	case '{':
		if !json.Valid(trimmed) {
			return nil, false, fmt.Errorf("%w: malformed object", ErrInvalid)
		}
		return []json.RawMessage{json.RawMessage(trimmed)}, false, nil
	}
	return nil, false, fmt.Errorf("%w: unexpected token %q", ErrInvalid, trimmed[0])
}

// IDKey returns the normalised key for a decoded JSON-RPC id value.
func IDKey(id interface{}) string {
	return conv.AsKey(id)
}
