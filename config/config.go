// Package config handles the numvm TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
)

// DefaultFile is the configuration file looked up in the home directory.
const DefaultFile = ".numvm.toml"

// Config holds settings shared by the CLI and the VM.
type Config struct {
	Trace    bool   `toml:"trace"`
	StackMax int    `toml:"stack_max"`
	Color    *bool  `toml:"color"`
	LogLevel string `toml:"log_level"`
	Output   string `toml:"output"`

	// Path is the file the configuration was read from (set at load time).
	Path string `toml:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
		Output:   "text",
	}
}

// DefaultPath returns ~/.numvm.toml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultFile), nil
}

// Load parses the configuration file at path. A leading "~" is expanded.
// A missing file yields the defaults when optional is true.
func Load(path string, optional bool) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", expanded, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", expanded, err)
	}
	cfg.Path = expanded
	return cfg, nil
}

// Parse decodes TOML text over the defaults and validates the result.
func Parse(text string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.StackMax < 0 {
		return fmt.Errorf("stack_max must not be negative, got %d", c.StackMax)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.Output) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown output format: %s", c.Output)
	}
	return nil
}

// Level returns the parsed log level. An empty level means warn.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}

// ColorEnabled reports whether the file enables color. Unset means the
// caller decides, usually from terminal detection.
func (c *Config) ColorEnabled(fallback bool) bool {
	if c.Color == nil {
		return fallback
	}
	return *c.Color
}
