// Package config loads optional query and output defaults from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Defaults for the size queries.
const (
	DefaultThreshold = "100000"
	DefaultCapacity  = "70000000"
	DefaultRequired  = "30000000"
	DefaultTopN      = 10
	DefaultOutput    = "table"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "SHELLDU_CONFIG"

// Config holds defaults that flags may override.
// Sizes accept plain byte counts or humanized values such as "100kB".
type Config struct {
	Threshold string   `yaml:"threshold"`
	Capacity  string   `yaml:"capacity"`
	Required  string   `yaml:"required"`
	TopN      int      `yaml:"top"`
	Output    string   `yaml:"output"`
	Excludes  []string `yaml:"excludes"`
	Debug     bool     `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Threshold: DefaultThreshold,
		Capacity:  DefaultCapacity,
		Required:  DefaultRequired,
		TopN:      DefaultTopN,
		Output:    DefaultOutput,
	}
}

// Path returns the config file path from SHELLDU_CONFIG, or "" when unset.
func Path() string {
	return os.Getenv(EnvPath)
}

// Load reads the YAML file at path on fsys over the defaults.
// A missing file yields the defaults; an empty path skips reading.
func Load(fsys afero.Fs, path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}

		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the size fields parse.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"threshold": c.Threshold,
		"capacity":  c.Capacity,
		"required":  c.Required,
	} {
		if _, err := ParseSize(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if c.TopN < 0 {
		return errors.New("top cannot be negative")
	}

	return nil
}

// ParseSize parses a byte count such as "100000", "100kB" or "64MiB".
func ParseSize(s string) (int64, error) {
	size, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}

	if size > uint64(1<<63-1) {
		return 0, fmt.Errorf("size %q overflows int64", s)
	}

	return int64(size), nil //nolint:gosec // Bounds checked above
}
