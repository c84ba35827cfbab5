package tool

import (
	"github.com/rs/zerolog"
	"github.com/viant/mcp-protocol/schema"
)

// Option configures an Engine.
type Option func(e *Engine)

// WithImplementation sets the server info reported by initialize.
func WithImplementation(implementation schema.Implementation) Option {
	return func(e *Engine) {
		e.info = implementation
	}
}

// WithInstructions sets initialize instructions.
func WithInstructions(instructions string) Option {
	return func(e *Engine) {
		e.instructions = &instructions
	}
}

// WithProtocolVersion sets the preferred protocol version; it is also accepted.
func WithProtocolVersion(version string) Option {
	return func(e *Engine) {
		e.protocolVersion = version
		e.supported[version] = true
	}
}

// WithLoggerName sets the logger name used in MCP log notifications.
func WithLoggerName(name string) Option {
	return func(e *Engine) {
		e.loggerName = name
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}
