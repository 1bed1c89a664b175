package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/logtraveler/pkg/config"
	"github.com/ccollicutt/logtraveler/pkg/detector"
	"github.com/ccollicutt/logtraveler/pkg/parser"
	"github.com/ccollicutt/logtraveler/pkg/timestamp"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
	Config      string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file>...",
		Short: "Detect the timestamp format of log files",
		Long: `Report how each log file would be scanned: the timestamp grammar inferred
from its first lines, the first and last timestamps, and whether the file is
chronologically ordered (which allows it to be skipped or cut short).

Also counts, for every known grammar, how many of the sampled lines it
matches. Use --all to list every matching grammar, not just the best one.

Quoted glob patterns are expanded, so they also work where the shell
does not expand them.

Optionally generates a starter config file searching the file's directory
with --write-config.

Example:
  logtraveler detect /var/log/syslog
  logtraveler detect --sample 500 /var/log/*.log
  logtraveler detect '/var/log/app/*.log'
  logtraveler detect -w logtraveler.yaml /var/log/app.log`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", config.DefaultSampleLines, "Number of lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all matching grammars, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "Configuration file with extra grammars")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Output != "text" && opts.Output != "json" {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
	args, err := parser.ExpandArgs(args)
	if err != nil {
		return err
	}
	if opts.WriteConfig != "" && len(args) != 1 {
		return errors.New("--write-config needs exactly one log file")
	}

	cfg, err := config.Load(ctx, opts.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	d := detector.New(cfg.Extractor(), detector.WithSampleSize(opts.SampleSize))

	results := make([]*detector.DetectionResult, len(args))
	for i, logFile := range args {
		if _, err := os.Stat(logFile); os.IsNotExist(err) {
			return fmt.Errorf("log file not found: %s", logFile)
		}
		results[i], err = d.DetectFromFile(ctx, logFile)
		if err != nil {
			return fmt.Errorf("detection failed for %s: %w", logFile, err)
		}
	}

	out := cmd.OutOrStdout()

	// Write config file if requested
	if opts.WriteConfig != "" {
		if err := writeStarterConfig(out, results[0], args[0], opts.WriteConfig); err != nil {
			return err
		}
	}

	if opts.Output == "json" {
		return outputDetectJSON(out, results, args, opts)
	}
	for i, result := range results {
		outputDetectText(out, result, args[i], opts)
	}
	return nil
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) {
	fmt.Fprintln(w, "=== Timestamp Grammar Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", logFile)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintf(w, "Lines with timestamps: %d\n", result.ParsedLines)
	fmt.Fprintln(w)

	if result.Grammar == nil {
		fmt.Fprintln(w, "No timestamp grammar detected.")
		fmt.Fprintln(w, "The file will be skipped by search.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: The file may use an uncommon format.")
		fmt.Fprintln(w, "Add a grammar for it in the grammars section of a config file.")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "Grammar: %s\n", result.Grammar.Name)
	fmt.Fprintf(w, "First timestamp: %s\n", result.First)
	if result.HasLast {
		fmt.Fprintf(w, "Last timestamp:  %s\n", result.Last)
	} else {
		fmt.Fprintln(w, "Last timestamp:  not found in the tail sample")
	}
	fmt.Fprintf(w, "Ordered: %s\n", yesNo(result.Ordered))
	if !result.Grammar.HasYear {
		fmt.Fprintln(w, "Note: This grammar has no year; the current year (or scan.year) is assumed.")
	}
	fmt.Fprintln(w)

	if best := result.BestMatch(); best != nil {
		fmt.Fprintf(w, "Best match: %s\n", best.Grammar.Name)
		fmt.Fprintf(w, "Confidence: %.1f%% (%d/%d lines matched)\n",
			best.Confidence*100, best.MatchCount, result.SampledLines)
		fmt.Fprintf(w, "Sample match:\n  %s\n", best.SampleLine)
		fmt.Fprintf(w, "Parsed as: %s\n", best.Parsed)
		fmt.Fprintln(w)
	}

	// Show alternatives if requested
	if opts.ShowAll && len(result.Matches) > 1 {
		fmt.Fprintln(w, "--- Other grammars matching the sample ---")
		for i, m := range result.Matches[1:] {
			fmt.Fprintf(w, "%d. %s (%.1f%% confidence, %d lines)\n",
				i+2, m.Grammar.Name, m.Confidence*100, m.MatchCount)
		}
		fmt.Fprintln(w)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// JSONMatch represents a grammar match in JSON output.
type JSONMatch struct {
	Name       string            `json:"name"`
	Example    string            `json:"example"`
	Confidence float64           `json:"confidence"`
	MatchCount int               `json:"match_count"`
	SampleLine string            `json:"sample_line"`
	Parsed     timestamp.Instant `json:"parsed"`
}

// JSONOutput represents the detection result of one file.
type JSONOutput struct {
	File         string             `json:"file"`
	Grammar      string             `json:"grammar,omitempty"`
	First        *timestamp.Instant `json:"first,omitempty"`
	Last         *timestamp.Instant `json:"last,omitempty"`
	Ordered      bool               `json:"ordered"`
	Matches      []JSONMatch        `json:"matches"`
	SampledLines int                `json:"sampled_lines"`
	ParsedLines  int                `json:"parsed_lines"`
}

func outputDetectJSON(w io.Writer, results []*detector.DetectionResult, files []string, opts *DetectOptions) error {
	outputs := make([]JSONOutput, 0, len(results))
	for i, result := range results {
		o := JSONOutput{
			File:         files[i],
			Ordered:      result.Ordered,
			SampledLines: result.SampledLines,
			ParsedLines:  result.ParsedLines,
			Matches:      make([]JSONMatch, 0),
		}
		if result.Grammar != nil {
			o.Grammar = result.Grammar.Name
			first := result.First
			o.First = &first
		}
		if result.HasLast {
			last := result.Last
			o.Last = &last
		}

		matches := result.Matches
		if !opts.ShowAll && len(matches) > 1 {
			matches = matches[:1] // Only show best match
		}
		for _, m := range matches {
			o.Matches = append(o.Matches, JSONMatch{
				Name:       m.Grammar.Name,
				Example:    m.Grammar.Example,
				Confidence: m.Confidence,
				MatchCount: m.MatchCount,
				SampleLine: m.SampleLine,
				Parsed:     m.Parsed,
			})
		}
		outputs = append(outputs, o)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(outputs)
}

// writeStarterConfig writes a config file that searches the directory of
// logFile for files with the same name.
func writeStarterConfig(w io.Writer, result *detector.DetectionResult, logFile, configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if result.Grammar == nil {
		return errors.New("cannot generate config: no timestamp grammar detected")
	}

	data, err := generateStarterConfig(logFile, result)
	if err != nil {
		return err
	}

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

// generateStarterConfig renders the YAML for writeStarterConfig.
func generateStarterConfig(logFile string, result *detector.DetectionResult) ([]byte, error) {
	absLogFile := logFile
	if abs, err := filepath.Abs(logFile); err == nil {
		absLogFile = abs
	}

	cfg := config.DefaultConfig()
	cfg.Search.Dir = filepath.Dir(absLogFile)
	cfg.Search.Paths = []string{"."}
	cfg.Search.Patterns = []string{filepath.Base(absLogFile)}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("rendering config: %w", err)
	}

	header := fmt.Sprintf(`# logtraveler configuration
# Generated by: logtraveler detect
# Detected grammar: %s

# Extra grammars are tried after the built-in ones:
# grammars:
#   - name: nginx-access
#     pattern: '\[(\d{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2})'
#     layout: "02/Jan/2006:15:04:05"

`, result.Grammar.Name)
	return append([]byte(header), body...), nil
}
