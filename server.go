package mcp

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/viant/mcp-protocol/schema"
	"github.com/viant/mcpbroker/backend"
	"github.com/viant/mcpbroker/config"
	"github.com/viant/mcpbroker/server"
	"github.com/viant/mcpbroker/tool"
)

// NewEngine creates the tool engine with the configured backend routes.
func NewEngine(cfg *config.Config, logger zerolog.Logger) (*tool.Engine, error) {
	registry := tool.NewRegistry()
	if cfg.Backend != nil && len(cfg.Tools) > 0 {
		client, err := backend.NewClient(cfg.Backend, logger.With().Str("component", "backend").Logger())
		if err != nil {
			return nil, err
		}
		if err = backend.Register(registry, client, cfg.Tools); err != nil {
			return nil, err
		}
	}
	registry.Disable(cfg.DisabledTools()...)

	options := []tool.Option{
		tool.WithImplementation(schema.Implementation{Name: cfg.Name, Version: cfg.Version}),
		tool.WithLoggerName(cfg.Name),
		tool.WithLogger(logger),
	}
	if cfg.Instructions != "" {
		options = append(options, tool.WithInstructions(cfg.Instructions))
	}
	if cfg.Server.ProtocolVersion != "" {
		options = append(options, tool.WithProtocolVersion(cfg.Server.ProtocolVersion))
	}
	return tool.New(registry, options...), nil
}

// NewServer creates the session broker for cfg.
func NewServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*server.Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config was nil")
	}
	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	serverConfig := cfg.Server
	options := []server.Option{
		server.WithNewHandler(engine.NewHandler),
		server.WithLogger(logger),
		server.WithEndpointAddress(serverConfig.Addr()),
		server.WithSidecarFallback(serverConfig.UseSidecarFallback()),
	}
	if serverConfig.SSEURI != "" {
		options = append(options, server.WithSSEURI(serverConfig.SSEURI))
	}
	if serverConfig.SSEMessageURI != "" {
		options = append(options, server.WithSSEMessageURI(serverConfig.SSEMessageURI))
	}
	if serverConfig.StreamableURI != "" {
		options = append(options, server.WithStreamableURI(serverConfig.StreamableURI))
	}
	if serverConfig.HealthURI != "" {
		options = append(options, server.WithHealthURI(serverConfig.HealthURI))
	}
	if serverConfig.ProtocolVersion != "" {
		options = append(options, server.WithProtocolVersions(serverConfig.ProtocolVersion, schema.LatestProtocolVersion, "2025-03-26", "2024-11-05"))
	}
	if serverConfig.Cors != nil {
		options = append(options, server.WithCORS(serverConfig.Cors))
	}
	if serverConfig.Keepalive > 0 {
		options = append(options, server.WithKeepalive(serverConfig.Keepalive))
	}
	if serverConfig.IdleTimeout > 0 {
		options = append(options, server.WithIdleTimeout(serverConfig.IdleTimeout, serverConfig.SweepInterval))
	}
	if serverConfig.TLS.Enabled() {
		tlsConfig, err := TLSConfig(ctx, serverConfig.TLS)
		if err != nil {
			return nil, err
		}
		options = append(options, server.WithTLSConfig(tlsConfig))
	}
	return server.New(options...)
}
