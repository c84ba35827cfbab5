// Package server implements the MCP session broker.
//
// A Server accepts sessions on three transports:
//   - the stdio pipe, one session per process (ServeStdio)
//   - an SSE push stream paired with a POST sidecar (/sse and /messages)
//   - the unified streamable HTTP endpoint (/mcp)
//
// Each session handle is attached to a protocol engine created by the NewHandler
// option. HTTP sessions are tracked in registries keyed by session id and are
// released on disconnect, DELETE, idle expiry or Close.
//
//	srv, _ := server.New(server.WithNewHandler(engine.NewHandler))
//	log.Fatal(srv.HTTP(ctx, ":5000").ListenAndServe())
package server
