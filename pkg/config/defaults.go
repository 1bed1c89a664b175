package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default values for configuration.
const (
	DefaultSampleLines = 100
	DefaultWorkers     = 1
	DefaultFormat      = "text"
	DefaultPattern     = "*log*"
)

// DefaultPaths are the subdirectories searched when none are given.
var DefaultPaths = []string{
	"var/log/",
	"var/nvOS/etc/*/",
	"var/nvOS/log/",
	"var/lib/lxc/*/rootfs/",
	"var/lib/lxc/*/rootfs/var/log",
}

// Environment variable names.
const (
	EnvDir         = "LOGTRAVELER_DIR"
	EnvSampleLines = "LOGTRAVELER_SAMPLE_LINES"
	EnvNoColor     = "NO_COLOR"
)

// DefaultConfig returns a configuration with sensible defaults. The search
// root is the working directory.
func DefaultConfig() *Config {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return &Config{
		Search: SearchConfig{
			Dir:      dir,
			Paths:    append([]string(nil), DefaultPaths...),
			Patterns: []string{DefaultPattern},
		},
		Scan: ScanConfig{
			SampleLines: DefaultSampleLines,
			Workers:     DefaultWorkers,
		},
		Output: OutputConfig{
			Format:      DefaultFormat,
			LineNumbers: true,
			Color:       true,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() error {
	if dir := os.Getenv(EnvDir); dir != "" {
		c.Search.Dir = dir
	}
	if v := os.Getenv(EnvSampleLines); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", EnvSampleLines, v)
		}
		c.Scan.SampleLines = n
	}
	// https://no-color.org: any non-empty value disables colour.
	if os.Getenv(EnvNoColor) != "" {
		c.Output.Color = false
	}
	return nil
}
