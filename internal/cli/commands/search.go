package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logtraveler/pkg/config"
	"github.com/ccollicutt/logtraveler/pkg/follow"
	"github.com/ccollicutt/logtraveler/pkg/metrics"
	"github.com/ccollicutt/logtraveler/pkg/output"
	"github.com/ccollicutt/logtraveler/pkg/parser"
	"github.com/ccollicutt/logtraveler/pkg/scanner"
	"github.com/ccollicutt/logtraveler/pkg/window"
)

// SearchOptions holds command-line options for the search command.
type SearchOptions struct {
	Window      string
	Dir         string
	Paths       string
	Patterns    string
	Local       bool
	NoColor     bool
	NoLineNo    bool
	SampleLines int
	Workers     int
	Output      string
	Follow      bool
	MetricsFile string
	Config      string
}

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	return newSearchCommand(&SearchOptions{})
}

func newSearchCommand(opts *SearchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search -d <window>",
		Short: "Print log lines inside a time window",
		Long: `Search log files under a directory and print the lines whose timestamp
falls inside the window given with -d.

Files are selected by globbing <dir>/<path>/<pattern> for every path and
pattern. A path of "*" walks <dir> recursively instead. Files that are
chronologically ordered and cannot overlap the window are skipped after
reading only their first and last lines.

Example:
  logtraveler search -d "2018-01-01 12:00:00+-30s"
  logtraveler search -l -d "Jan  1 12:00:00@Jan  1 12:05:00" --path var/log/
  logtraveler search -d "2018-01-01 12:00:00+5m" --dir /srv --path '*' --pat '*.log,*.gz'
  logtraveler search -d "2018-01-01 12:00:00+1h" --follow -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Window, "dt", "d", "", "Time window expression (required)")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "Directory to search log files (default: working directory)")
	cmd.Flags().StringVar(&opts.Paths, "path", "", "Subdirectories of --dir to search (, or : separated); * searches recursively")
	cmd.Flags().StringVar(&opts.Patterns, "pat", "", "File name patterns (, separated) (default \""+config.DefaultPattern+"\")")
	cmd.Flags().BoolVarP(&opts.Local, "local", "l", false, "Search the local system: --dir is set to /")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "Do not colour line numbers")
	cmd.Flags().BoolVar(&opts.NoLineNo, "no-lineno", false, "Do not print line numbers")
	cmd.Flags().IntVar(&opts.SampleLines, "sample-lines", config.DefaultSampleLines, "Lines read from the head and tail of a file to infer its timestamp format")
	cmd.Flags().IntVar(&opts.Workers, "workers", config.DefaultWorkers, "Files scanned concurrently")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", config.DefaultFormat, "Output format (text|json)")
	cmd.Flags().BoolVar(&opts.Follow, "follow", false, "Keep printing lines appended to the files until the window end is passed")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write scan metrics in Prometheus textfile format")
	cmd.Flags().StringVar(&opts.Config, "config", "", "Configuration file (YAML or TOML)")
	_ = cmd.MarkFlagRequired("dt")

	return cmd
}

func runSearch(cmd *cobra.Command, opts *SearchOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.New(cmd.ErrOrStderr(), "logtraveler: ", 0)

	cfg, err := searchConfig(ctx, cmd, opts)
	if err != nil {
		return err
	}

	extractor := cfg.Extractor()
	w, err := window.NewResolver(extractor).Resolve(opts.Window)
	if err != nil {
		var invalid *window.InvalidExpressionError
		if errors.As(err, &invalid) {
			_ = cmd.Usage()
		}
		return err
	}

	files, err := parser.Discover(cfg.Search.Dir, cfg.Search.Paths, cfg.Search.Patterns)
	if err != nil {
		return fmt.Errorf("finding log files: %w", err)
	}

	var rec *metrics.Recorder
	if cfg.MetricsFile != "" {
		rec = metrics.NewRecorder()
	}

	formatOpts := output.FormatOptions{
		LineNumbers: cfg.Output.LineNumbers,
		Color:       cfg.Output.Color,
	}
	formatter, err := output.NewFormatter(cfg.Output.Format, formatOpts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	printer := newLinePrinter(out, cfg.Output.Format, formatOpts)

	var follower *follow.Follower
	open := parser.ReadFile
	if opts.Follow {
		follower = follow.New(printer.print, follow.WithLogger(logger))
		open = parser.ReadCompleteFile
	}

	s := scanner.New(extractor,
		scanner.WithSampleLines(cfg.Scan.SampleLines),
		scanner.WithMetrics(rec),
	)
	batch := scanner.NewBatch(s, open,
		scanner.WithWorkers(cfg.Scan.Workers),
		scanner.WithErrorHandler(func(path string, err error) {
			logger.Printf("skipping %s: %v", path, err)
		}),
	)

	err = batch.Run(ctx, files, w, func(res *scanner.Result) error {
		n, err := formatter.Format(ctx, res.File.Path, res.Scan, out)
		if err != nil {
			return fmt.Errorf("writing %s: %w", res.File.Path, err)
		}
		if follower == nil {
			return nil
		}
		if n > 0 {
			printer.started[res.File.Path] = true
		}
		if _, err := follower.Add(res.File.Path, res.File.Size, res.File.Compressed, res.Scan); err != nil {
			logger.Printf("%v", err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if follower != nil && err == nil {
		if err := follower.Run(ctx); err != nil {
			return err
		}
	}

	if rec != nil {
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

// searchConfig loads the configuration and applies the flags given on the
// command line over it.
func searchConfig(ctx context.Context, cmd *cobra.Command, opts *SearchOptions) (*config.Config, error) {
	cfg, err := config.Load(ctx, opts.Config)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Search.Dir = opts.Dir
	}
	if opts.Local {
		cfg.Search.Dir = "/"
	}
	if flags.Changed("path") {
		cfg.Search.Paths = parser.SplitPaths(opts.Paths)
	}
	if flags.Changed("pat") {
		cfg.Search.Patterns = parser.SplitList(opts.Patterns)
	}
	if opts.NoColor {
		cfg.Output.Color = false
	}
	if opts.NoLineNo {
		cfg.Output.LineNumbers = false
	}
	if flags.Changed("sample-lines") {
		cfg.Scan.SampleLines = opts.SampleLines
	}
	if flags.Changed("workers") {
		cfg.Scan.Workers = opts.Workers
	}
	if flags.Changed("output") {
		cfg.Output.Format = opts.Output
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = opts.MetricsFile
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

// linePrinter writes lines that arrive one at a time in follow mode, in
// the same layout the formatters use.
type linePrinter struct {
	w       io.Writer
	text    *output.TextFormatter
	json    *json.Encoder
	started map[string]bool
}

func newLinePrinter(w io.Writer, format string, opts output.FormatOptions) *linePrinter {
	p := &linePrinter{w: w, started: make(map[string]bool)}
	if format == "json" {
		p.json = json.NewEncoder(w)
		p.json.SetEscapeHTML(false)
	} else {
		p.text = output.NewTextFormatter(opts)
	}
	return p
}

func (p *linePrinter) print(path string, line *parser.Line) error {
	if p.json != nil {
		return p.json.Encode(output.NewRecord(path, line))
	}
	if !p.started[path] {
		p.started[path] = true
		if _, err := io.WriteString(p.w, p.text.Header(path)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(p.w, p.text.Line(p.w, line)+"\n")
	return err
}
