package tool

import (
	"context"
	"encoding/json"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
)

// Logger emits notifications/message to the client once it has chosen a level
// with logging/setLevel; messages below that level are dropped.
type Logger struct {
	name     string
	level    *schema.LoggingLevel
	notifier transport.Notifier
}

// Enabled reports whether messages at level reach the client.
func (l *Logger) Enabled(level schema.LoggingLevel) bool {
	if l.level == nil || *l.level == "" {
		return false
	}
	return level.Ordinal() >= l.level.Ordinal()
}

// Log sends data at level.
func (l *Logger) Log(ctx context.Context, level schema.LoggingLevel, data interface{}) error {
	if !l.Enabled(level) {
		return nil
	}
	params, err := json.Marshal(schema.LoggingMessageNotificationParams{Level: level, Logger: &l.name, Data: data})
	if err != nil {
		return err
	}
	return l.notifier.Notify(ctx, &jsonrpc.Notification{
		Jsonrpc: jsonrpc.Version,
		Method:  schema.MethodNotificationMessage,
		Params:  params,
	})
}

func (l *Logger) Debug(ctx context.Context, data interface{}) error {
	return l.Log(ctx, schema.LoggingLevelDebug, data)
}

func (l *Logger) Error(ctx context.Context, data interface{}) error {
	return l.Log(ctx, schema.LoggingLevelError, data)
}

// NewLogger creates a client logger reading the session level through level.
func NewLogger(name string, level *schema.LoggingLevel, notifier transport.Notifier) *Logger {
	return &Logger{name: name, level: level, notifier: notifier}
}
