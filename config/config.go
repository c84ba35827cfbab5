// Package config defines the broker configuration file and its loading rules.
package config

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/mcpbroker/backend"
	"github.com/viant/mcpbroker/logging"
	"github.com/viant/mcpbroker/server"
	"gopkg.in/yaml.v3"
)

const (
	defaultHost = "127.0.0.1"
	defaultPort = 5000
	defaultName = "mcpbroker"

	enablePrefix = "ENABLE_"
)

// Config represents the broker configuration.
type Config struct {
	Name         string           `yaml:"name" json:"name"`
	Version      string           `yaml:"version" json:"version"`
	Instructions string           `yaml:"instructions" json:"instructions"`
	Server       *Server          `yaml:"server" json:"server"`
	Logging      *logging.Config  `yaml:"logging" json:"logging"`
	Backend      *backend.Config  `yaml:"backend" json:"backend"`
	Tools        []*backend.Route `yaml:"tools" json:"tools"`
	// Functions toggles tools by name, ENABLE_<TOOL> keys are accepted.
	Functions map[string]bool `yaml:"functions" json:"functions"`
}

// Server configures the HTTP transports.
type Server struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	TLS             *TLS          `yaml:"tls" json:"tls"`
	SSEURI          string        `yaml:"sseURI" json:"sseURI"`
	SSEMessageURI   string        `yaml:"sseMessageURI" json:"sseMessageURI"`
	StreamableURI   string        `yaml:"streamableURI" json:"streamableURI"`
	HealthURI       string        `yaml:"healthURI" json:"healthURI"`
	Cors            *server.Cors  `yaml:"cors" json:"cors"`
	ProtocolVersion string        `yaml:"protocolVersion" json:"protocolVersion"`
	Keepalive       time.Duration `yaml:"keepalive" json:"keepalive"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" json:"idleTimeout"`
	SweepInterval   time.Duration `yaml:"sweepInterval" json:"sweepInterval"`
	SidecarFallback *bool         `yaml:"sidecarFallback" json:"sidecarFallback"`
}

// TLS configures transport security.
type TLS struct {
	CertFile          string `yaml:"certFile" json:"certFile"`
	KeyFile           string `yaml:"keyFile" json:"keyFile"`
	CAFile            string `yaml:"caFile" json:"caFile"`
	RequireClientCert bool   `yaml:"requireClientCert" json:"requireClientCert"`
}

// Enabled reports whether a certificate pair was configured.
func (t *TLS) Enabled() bool {
	return t != nil && t.CertFile != "" && t.KeyFile != ""
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// UseSidecarFallback reports whether unmatched sidecar posts go to the latest session.
func (s *Server) UseSidecarFallback() bool {
	return s.SidecarFallback == nil || *s.SidecarFallback
}

// Init applies defaults.
func (c *Config) Init() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Server == nil {
		c.Server = &Server{}
	}
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Logging == nil {
		c.Logging = &logging.Config{}
	}
	if c.Backend != nil {
		c.Backend.Init()
	}
}

// DisabledTools returns tool names switched off in Functions.
func (c *Config) DisabledTools() []string {
	var result []string
	for key, enabled := range c.Functions {
		if enabled {
			continue
		}
		name := key
		if strings.HasPrefix(strings.ToUpper(name), enablePrefix) {
			name = name[len(enablePrefix):]
		}
		result = append(result, name)
	}
	return result
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %v", c.Server.Port)
	}
	if tls := c.Server.TLS; tls != nil {
		if (tls.CertFile == "") != (tls.KeyFile == "") {
			return fmt.Errorf("tls requires both certFile and keyFile")
		}
		if tls.RequireClientCert && tls.CAFile == "" {
			return fmt.Errorf("tls requireClientCert requires caFile")
		}
	}
	if c.Server.IdleTimeout < 0 {
		return fmt.Errorf("invalid idle timeout: %v", c.Server.IdleTimeout)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if len(c.Tools) > 0 && c.Backend == nil {
		return fmt.Errorf("tools were configured without a backend")
	}
	if c.Backend != nil {
		if err := c.Backend.Validate(); err != nil {
			return err
		}
	}
	names := map[string]bool{}
	for _, route := range c.Tools {
		if err := route.Validate(); err != nil {
			return err
		}
		if names[route.Name] {
			return fmt.Errorf("duplicate tool: %v", route.Name)
		}
		names[route.Name] = true
	}
	return nil
}

// Decode parses YAML (or JSON) configuration.
func Decode(data []byte) (*Config, error) {
	ret := &Config{}
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return ret, nil
}

// Load reads configuration from URL (a local path or any afs supported URL),
// applies defaults and environment overrides, then validates it. An empty URL
// yields the defaults.
func Load(ctx context.Context, URL string, lookup Lookup) (*Config, error) {
	ret := &Config{}
	if URL != "" {
		fs := afs.New()
		data, err := fs.DownloadWithURL(ctx, URL)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
		}
		if ret, err = Decode(data); err != nil {
			return nil, err
		}
	}
	ret.Init()
	if err := ret.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
