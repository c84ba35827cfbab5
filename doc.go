// Package mcp assembles the MCP session broker from configuration.
//
// A broker accepts MCP sessions over three transports (a stdio pipe, an SSE push
// stream with a POST sidecar and the unified streamable HTTP endpoint), keeps a
// registry of live sessions and attaches a tool engine to each of them. Tools are
// declared in configuration as routes onto a downstream REST backend.
//
// Typical use:
//
//	cfg, _ := config.Load(ctx, "broker.yaml", os.LookupEnv)
//	srv, _ := mcp.NewServer(ctx, cfg, logger)
//	httpServer := srv.HTTP(ctx, "")
//
// Run wires the same steps behind a command line.
package mcp
