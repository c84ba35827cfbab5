// Package logging builds the broker's zerolog logger.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config configures logging.
type Config struct {
	Level   string `yaml:"level" json:"level"`
	Format  string `yaml:"format" json:"format"`
	NoColor bool   `yaml:"noColor" json:"noColor"`
}

// ParseLevel maps a textual level onto zerolog; empty means info.
func ParseLevel(raw string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "off", "none", "disabled":
		return zerolog.Disabled, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", raw, err)
	}
	return level, nil
}

// New creates a logger writing to out. stdout is reserved for the stdio
// transport, so callers normally pass os.Stderr.
func New(app string, config *Config, out io.Writer) (zerolog.Logger, error) {
	if config == nil {
		config = &Config{}
	}
	level, err := ParseLevel(config.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	var writer io.Writer
	switch strings.ToLower(config.Format) {
	case "", FormatConsole:
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: config.NoColor}
	case FormatJSON:
		writer = out
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format: %v", config.Format)
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Str("app", app).Logger(), nil
}
