package backend

import (
	"fmt"
	"net/url"
	"time"
)

const (
	defaultTimeout       = 120 * time.Second
	defaultTokenArgument = "token"
)

// Config configures the downstream REST backend.
type Config struct {
	URL           string            `yaml:"url" json:"url"`
	Timeout       time.Duration     `yaml:"timeout" json:"timeout"`
	SSLValidate   *bool             `yaml:"sslValidate" json:"sslValidate"`
	Headers       map[string]string `yaml:"headers" json:"headers"`
	TextLimit     int               `yaml:"textLimit" json:"textLimit"`
	TokenArgument string            `yaml:"tokenArgument" json:"tokenArgument"`
}

// Init applies defaults.
func (c *Config) Init() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.TokenArgument == "" {
		c.TokenArgument = defaultTokenArgument
	}
	if c.SSLValidate == nil {
		validate := true
		c.SSLValidate = &validate
	}
}

// Validate checks the backend URL.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("backend url was empty")
	}
	parsed, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid backend url %v: %w", c.URL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported backend url scheme: %v", parsed.Scheme)
	}
	return nil
}
