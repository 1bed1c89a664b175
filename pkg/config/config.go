package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/logtraveler/pkg/output"
	"github.com/ccollicutt/logtraveler/pkg/timestamp"
)

// Load reads and validates a configuration file. The format follows the
// extension: .toml is TOML, anything else YAML. An empty path yields the
// defaults. Environment overrides are applied in both cases.
func Load(_ context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks a configuration for errors, expands ~ in paths and
// compiles the extra grammars.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Search.Dir) == "" {
		return errors.New("search.dir: a search directory is required")
	}
	dir, err := expandPath(cfg.Search.Dir)
	if err != nil {
		return fmt.Errorf("search.dir: %w", err)
	}
	cfg.Search.Dir = dir

	if len(cfg.Search.Paths) == 0 {
		return errors.New("search.paths: at least one path is required")
	}
	if len(cfg.Search.Patterns) == 0 {
		return errors.New("search.patterns: at least one pattern is required")
	}
	for i, pat := range cfg.Search.Patterns {
		if _, err := filepath.Match(pat, ""); err != nil {
			return fmt.Errorf("search.patterns[%d]: invalid pattern %q: %w", i, pat, err)
		}
	}

	if cfg.Scan.SampleLines < 1 {
		return fmt.Errorf("scan.sample_lines: must be >= 1, got %d", cfg.Scan.SampleLines)
	}
	if cfg.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers: must be >= 1, got %d", cfg.Scan.Workers)
	}
	if cfg.Scan.Year < 0 {
		return fmt.Errorf("scan.year: must be >= 0, got %d", cfg.Scan.Year)
	}

	if !validFormat(cfg.Output.Format) {
		return fmt.Errorf("output.format: invalid format %q (must be %s)",
			cfg.Output.Format, strings.Join(output.Formats, " or "))
	}

	seen := make(map[string]bool)
	for _, name := range timestamp.Builtin().Names() {
		seen[name] = true
	}
	for i := range cfg.Grammars {
		g := &cfg.Grammars[i]
		if seen[g.Name] {
			return fmt.Errorf("grammars[%d] (%s): duplicate grammar name", i, g.Name)
		}
		compiled, err := timestamp.NewLayoutGrammar(g.Name, g.Pattern, g.Layout)
		if err != nil {
			return fmt.Errorf("grammars[%d] (%s): %w", i, g.Name, err)
		}
		g.compiled = compiled
		seen[g.Name] = true
	}

	if cfg.MetricsFile != "" {
		path, err := expandPath(cfg.MetricsFile)
		if err != nil {
			return fmt.Errorf("metrics_file: %w", err)
		}
		cfg.MetricsFile = path
	}

	return nil
}

func validFormat(name string) bool {
	for _, f := range output.Formats {
		if name == f {
			return true
		}
	}
	return false
}

// expandPath resolves a leading ~ to the home directory and makes path absolute.
func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
