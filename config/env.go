package config

import (
	"fmt"
	"strconv"

	"github.com/viant/mcpbroker/backend"
)

// Environment variable names
const (
	EnvHost     = "MCP_HOST"
	EnvPort     = "MCP_PORT"
	EnvAPIURL   = "API_URL"
	EnvLogLevel = "LOG_LEVEL"
)

// Lookup resolves an environment variable, os.LookupEnv in production.
type Lookup func(key string) (string, bool)

// ApplyEnv overrides configuration with the environment.
func (c *Config) ApplyEnv(lookup Lookup) error {
	if lookup == nil {
		return nil
	}
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.Server.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %v: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		if c.Backend == nil {
			c.Backend = &backend.Config{}
			c.Backend.Init()
		}
		c.Backend.URL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	return nil
}
