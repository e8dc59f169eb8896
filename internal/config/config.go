// Package config handles nova.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"novavm/pkg/gc"
	"novavm/pkg/interpreter"
)

// FileName is the configuration file FindAndLoad looks for.
const FileName = "nova.toml"

// Config represents a nova.toml file.
type Config struct {
	VM          VM          `toml:"vm"`
	GC          GC          `toml:"gc"`
	Diagnostics Diagnostics `toml:"diagnostics"`
	Output      Output      `toml:"output"`

	// Path is the file the configuration was read from (set at load time).
	Path string `toml:"-"`
}

// VM configures the interpreter.
type VM struct {
	MaxFrameDepth int  `toml:"max-frame-depth"`
	MaxSteps      int  `toml:"max-steps"`
	Trace         bool `toml:"trace"`
}

// GC configures the collector.
type GC struct {
	Enabled   bool `toml:"enabled"`
	Threshold int  `toml:"threshold"`
}

// Diagnostics configures fault reporting.
type Diagnostics struct {
	DumpFile string `toml:"dump-file"`
}

// Output configures terminal output.
type Output struct {
	NoColor bool `toml:"no-color"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		VM: VM{MaxFrameDepth: interpreter.DefaultMaxFrameDepth},
		GC: GC{Enabled: true, Threshold: gc.DefaultThreshold},
	}
}

// Load parses the file at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.Warn("Unknown configuration key", "file", path, "key", key.String())
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	c.Path = path

	return c, nil
}

// FindAndLoad walks up from startDir to find a nova.toml file,
// then loads and returns it. Returns the defaults if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate rejects negative limits.
func (c *Config) Validate() error {
	switch {
	case c.VM.MaxFrameDepth < 0:
		return fmt.Errorf("vm.max-frame-depth must not be negative, got %d", c.VM.MaxFrameDepth)
	case c.VM.MaxSteps < 0:
		return fmt.Errorf("vm.max-steps must not be negative, got %d", c.VM.MaxSteps)
	case c.GC.Threshold < 0:
		return fmt.Errorf("gc.threshold must not be negative, got %d", c.GC.Threshold)
	}
	return nil
}
