// Package cli provides the command-line interface for logtraveler.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logtraveler/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Usage, configuration or runtime error
	}
	return 0
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logtraveler",
		Short: "Print the log lines that fall inside a time window",
		Long: `logtraveler searches a directory tree for log files and prints, per file,
the lines whose timestamp falls inside a time window.

The timestamp format of every file is inferred from its first lines, so
mixed collections of syslog, ISO 8601, Apache and application logs can be
searched in one pass. Lines without a timestamp that follow a printed line
(stack traces, wrapped messages) are printed along with it. Gzip-compressed
files are read transparently.

Window expressions:
  "2018-01-01 12:00:00"                   a single instant
  "2018-01-01 12:00:00+-30s"              30 seconds either side
  "2018-01-01 12:00:00-1m+500ms"          1 minute before to 500ms after
  "2018-01-01 12:00:00@2018-01-01 13:00:00"  between two timestamps

Exit codes:
  0 - Success (also when no line matched)
  2 - Usage, configuration or runtime error`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewSearchCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewGrammarsCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
