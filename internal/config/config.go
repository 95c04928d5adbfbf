// Package config holds export settings. Values start from defaults, may be
// replaced by a YAML file, and are finally overridden by command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bashhack/otpqr/internal/filename"
	"github.com/bashhack/otpqr/internal/label"
	"github.com/bashhack/otpqr/internal/logging"
)

// Config holds all export settings.
type Config struct {
	Font        string  `yaml:"font"`
	FontSize    float64 `yaml:"font_size"`
	OnCollision string  `yaml:"on_collision"`
	Verify      bool    `yaml:"verify"`
	LogLevel    string  `yaml:"log_level"`
}

// Default returns the settings used when nothing else is given.
func Default() *Config {
	return &Config{
		Font:        label.DefaultFont,
		FontSize:    label.DefaultFontSize,
		OnCollision: string(filename.Overwrite),
		Verify:      false,
		LogLevel:    logging.DefaultLevel.String(),
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults; a path that was given but cannot be read is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.FontSize <= 0 {
		return fmt.Errorf("font size must be positive, got %v", c.FontSize)
	}
	if _, err := filename.ParsePolicy(c.OnCollision); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}
