package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logtraveler/pkg/config"
)

// GrammarsOptions holds command-line options for the grammars command.
type GrammarsOptions struct {
	Output string
	Config string
}

// JSONGrammar represents a grammar in JSON output.
type JSONGrammar struct {
	Name    string `json:"name"`
	Example string `json:"example"`
	Pattern string `json:"pattern"`
	HasYear bool   `json:"has_year"`
}

// NewGrammarsCommand creates the grammars command.
func NewGrammarsCommand() *cobra.Command {
	opts := &GrammarsOptions{}

	cmd := &cobra.Command{
		Use:   "grammars",
		Short: "List the supported timestamp formats",
		Long: `List the timestamp grammars in precedence order. When a line matches more
than one grammar, the one listed first wins. Grammars from the configuration
file given with --config are listed after the built-in ones.

The same formats are accepted in window expressions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrammars(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "Configuration file with extra grammars")

	return cmd
}

func runGrammars(cmd *cobra.Command, opts *GrammarsOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, opts.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	grammars := cfg.Registry().Grammars()
	out := cmd.OutOrStdout()

	switch opts.Output {
	case "json":
		list := make([]JSONGrammar, 0, len(grammars))
		for _, g := range grammars {
			list = append(list, JSONGrammar{
				Name:    g.Name,
				Example: g.Example,
				Pattern: g.PatternStr,
				HasYear: g.HasYear,
			})
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(list)
	case "text":
		for i, g := range grammars {
			fmt.Fprintf(out, "%2d. %s\n", i+1, g.Name)
			if g.Example != "" {
				fmt.Fprintf(out, "    example: %s\n", g.Example)
			} else {
				fmt.Fprintf(out, "    pattern: %s\n", g.PatternStr)
			}
			if !g.HasYear {
				fmt.Fprintln(out, "    no year: the current year (or scan.year) is assumed")
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}
