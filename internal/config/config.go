// Package config loads upkeep settings.
//
// Settings are read from the file named by $UPKEEP_CONFIG, falling back to
// $XDG_CONFIG_HOME/upkeep/config.yaml (~/.config/upkeep/config.yaml). A
// missing file yields the defaults; command-line flags override both.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Execution modes.
const (
	ModeReal   = "real"
	ModeDryRun = "dry-run"
	ModeReplay = "replay"
)

// Config holds every setting of the upkeep CLI.
type Config struct {
	Definitions     string        `yaml:"definitions"`
	LineWidth       int           `yaml:"line_width"`
	SpinnerInterval time.Duration `yaml:"spinner_interval"`
	Color           string        `yaml:"color"`
	LogLevel        string        `yaml:"log_level"`
	AssumeYes       bool          `yaml:"assume_yes"`
	Mode            string        `yaml:"mode"`
	ReplayFile      string        `yaml:"replay_file,omitempty"`
	// Root prefixes paths checked by file-based feature detection.
	Root string `yaml:"root"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Definitions:     "definitions.yaml",
		LineWidth:       80,
		SpinnerInterval: 100 * time.Millisecond,
		Color:           "auto",
		LogLevel:        "warn",
		Mode:            ModeReal,
		Root:            "/",
	}
}

// Path returns the config file location.
func Path() string {
	if p := os.Getenv("UPKEEP_CONFIG"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".config", "upkeep", "config.yaml")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "upkeep", "config.yaml")
}

// Load reads the config file at path over the defaults. If the file does not
// exist the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	var errs []error
	if c.LineWidth < 20 {
		errs = append(errs, fmt.Errorf("line_width must be at least 20, got %d", c.LineWidth))
	}
	if c.SpinnerInterval <= 0 {
		errs = append(errs, fmt.Errorf("spinner_interval must be positive, got %s", c.SpinnerInterval))
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("color must be auto, always or never, got %q", c.Color))
	}
	switch c.Mode {
	case ModeReal, ModeDryRun:
	case ModeReplay:
		if c.ReplayFile == "" {
			errs = append(errs, fmt.Errorf("mode replay needs replay_file"))
		}
	default:
		errs = append(errs, fmt.Errorf("mode must be real, dry-run or replay, got %q", c.Mode))
	}
	return errors.Join(errs...)
}
