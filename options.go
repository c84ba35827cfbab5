package mcp

// Transport names accepted on the command line.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Options defines broker command line options.
type Options struct {
	ConfigURL string `short:"c" long:"config" description:"config location, a local path or any afs URL"`
	Transport string `short:"T" long:"transport" description:"mcp transport" choice:"stdio" choice:"http" default:"http"`
	Addr      string `short:"a" long:"addr" description:"listen address, overrides server host and port"`
	LogLevel  string `short:"l" long:"log-level" description:"log level, e.g. debug, info, warn, error"`
}
