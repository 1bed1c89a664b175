package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logtraveler/pkg/config"
	"github.com/ccollicutt/logtraveler/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a logtraveler configuration file without searching.

Checks:
  - YAML or TOML syntax
  - Search directory, paths and file patterns
  - Scan and output settings
  - Extra grammar patterns and layouts
  - Log files matched by the search (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	// Load and validate config
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Report what we found
	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Search dir:   %s\n", cfg.Search.Dir)
	fmt.Fprintf(out, "  Paths:        %s\n", strings.Join(cfg.Search.Paths, ", "))
	fmt.Fprintf(out, "  Patterns:     %s\n", strings.Join(cfg.Search.Patterns, ", "))
	fmt.Fprintf(out, "  Sample lines: %d\n", cfg.Scan.SampleLines)
	fmt.Fprintf(out, "  Workers:      %d\n", cfg.Scan.Workers)
	fmt.Fprintf(out, "  Output:       %s\n", cfg.Output.Format)

	if len(cfg.Grammars) > 0 {
		fmt.Fprintf(out, "\nExtra grammars:\n")
		for i, g := range cfg.Grammars {
			fmt.Fprintf(out, "  %d. %s (layout %q)\n", i+1, g.Name, g.Layout)
		}
	}

	// Check if log files exist (warnings only)
	files, err := parser.Discover(cfg.Search.Dir, cfg.Search.Paths, cfg.Search.Patterns)
	if err != nil {
		fmt.Fprintf(out, "\nWarning: Error finding log files: %v\n", err)
	} else if len(files) == 0 {
		fmt.Fprintf(out, "\nWarning: No files match the search\n")
	} else {
		fmt.Fprintf(out, "\nLog files matched: %d\n", len(files))
		for _, f := range files {
			fmt.Fprintf(out, "  - %s\n", f)
		}
	}

	return nil
}
