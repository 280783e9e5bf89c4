package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/cansat-telemetry/internal/window"
)

const (
	// StdinPath selects standard input as the line source
	StdinPath = "-"

	defaultReadoutInterval = time.Second
	maxWindowCapacity      = 100_000
)

// Duration is a time.Duration read from its string form, e.g. "500ms" or "2s"
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config represents the main application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	Input    InputConfig   `yaml:"input"`
	Buffers  BuffersConfig `yaml:"buffers"`
	Readout  ReadoutConfig `yaml:"readout"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// InputConfig selects where telemetry lines are read from
type InputConfig struct {
	Path          string `yaml:"path"`          // File or device node to read, "-" for stdin
	MaxLineLength int    `yaml:"maxLineLength"` // Longest accepted line in bytes, 0 for default
}

// BuffersConfig represents the plotted channel history settings
type BuffersConfig struct {
	Capacity            int  `yaml:"capacity"`
	EnvironmentChannels bool `yaml:"environmentChannels"`
}

// ReadoutConfig represents the periodic status readout settings
type ReadoutConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
}

// NewConfig returns a Config populated with defaults
func NewConfig() *Config {
	return &Config{
		Settings: Settings{LogLevel: slog.LevelInfo.String()},
		Input:    InputConfig{Path: StdinPath},
		Buffers:  BuffersConfig{Capacity: window.DefaultCapacity},
		Readout: ReadoutConfig{
			Enabled:  true,
			Interval: Duration(defaultReadoutInterval),
		},
	}
}

// LoadConfig reads the YAML configuration file at path on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration data on top of the defaults
func ParseConfig(data []byte) (*Config, error) {
	c := NewConfig()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Input.Path == "" {
		return errors.New("app.Config: input path is required")
	}
	if c.Input.MaxLineLength < 0 {
		return fmt.Errorf("app.Config: max line length must not be negative: %d", c.Input.MaxLineLength)
	}
	if c.Buffers.Capacity <= 0 || c.Buffers.Capacity > maxWindowCapacity {
		return fmt.Errorf("app.Config: buffer capacity must be between 1 and %d: %d given", maxWindowCapacity, c.Buffers.Capacity)
	}
	if c.Readout.Enabled && c.Readout.Interval <= 0 {
		return fmt.Errorf("app.Config: readout interval must be positive: %s", c.Readout.Interval)
	}
	return nil
}

// Level returns the configured log level
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
		return level, fmt.Errorf("app.Config: invalid log level: %s", c.Settings.LogLevel)
	}
	return level, nil
}
