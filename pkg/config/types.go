// Package config provides configuration loading and validation for logtraveler.
package config

import "github.com/ccollicutt/logtraveler/pkg/timestamp"

// Config is the root configuration structure loaded from YAML or TOML.
type Config struct {
	Search      SearchConfig    `yaml:"search" toml:"search"`
	Scan        ScanConfig      `yaml:"scan" toml:"scan"`
	Output      OutputConfig    `yaml:"output" toml:"output"`
	Grammars    []GrammarConfig `yaml:"grammars,omitempty" toml:"grammars,omitempty"`
	MetricsFile string          `yaml:"metrics_file,omitempty" toml:"metrics_file,omitempty"`
}

// SearchConfig selects the files to scan.
type SearchConfig struct {
	// Dir is the root every path is relative to.
	Dir string `yaml:"dir" toml:"dir"`

	// Paths are subdirectory globs under Dir. ["*"] walks Dir recursively.
	Paths []string `yaml:"paths" toml:"paths"`

	// Patterns are file name globs matched inside each path.
	Patterns []string `yaml:"patterns" toml:"patterns"`
}

// ScanConfig tunes the file scanner.
type ScanConfig struct {
	// SampleLines is how many head and tail lines are used for discovery.
	SampleLines int `yaml:"sample_lines" toml:"sample_lines"`

	// Workers is the number of files scanned concurrently.
	Workers int `yaml:"workers" toml:"workers"`

	// Year is assumed for timestamps without one. Zero means the current year.
	Year int `yaml:"year,omitempty" toml:"year,omitempty"`
}

// OutputConfig controls how emitted lines are written.
type OutputConfig struct {
	Format      string `yaml:"format" toml:"format"` // text, json
	LineNumbers bool   `yaml:"line_numbers" toml:"line_numbers"`
	Color       bool   `yaml:"color" toml:"color"`
}

// GrammarConfig defines an extra timestamp grammar. Extra grammars are
// tried after the built-in ones.
type GrammarConfig struct {
	Name string `yaml:"name" toml:"name"`

	// Pattern is a regex whose first capture group is the timestamp.
	Pattern string `yaml:"pattern" toml:"pattern"`

	// Layout is the Go time layout for parsing the captured timestamp.
	// See https://pkg.go.dev/time#pkg-constants for format.
	Layout string `yaml:"layout" toml:"layout"`

	// compiled is populated during validation.
	compiled *timestamp.Grammar
}

// Compiled returns the grammar built during validation.
func (g *GrammarConfig) Compiled() *timestamp.Grammar {
	return g.compiled
}

// Registry returns the built-in grammars followed by the configured ones.
// The configuration must have been validated.
func (c *Config) Registry() *timestamp.Registry {
	var extra []*timestamp.Grammar
	for i := range c.Grammars {
		if g := c.Grammars[i].compiled; g != nil {
			extra = append(extra, g)
		}
	}
	if len(extra) == 0 {
		return timestamp.Builtin()
	}
	return timestamp.NewRegistry(extra...)
}

// Extractor returns an extractor over Registry honouring Scan.Year.
func (c *Config) Extractor() *timestamp.Extractor {
	return timestamp.NewExtractor(c.Registry(), timestamp.WithYear(c.Scan.Year))
}
