// Package output renders the lines emitted for each file.
package output

import (
	"context"
	"fmt"
	"io"

	"github.com/ccollicutt/logtraveler/pkg/parser"
)

// Formatter renders the emitted lines of one file.
type Formatter interface {
	// Format drains lines and writes them for file to w. It returns the
	// number of lines written.
	Format(ctx context.Context, file string, lines parser.LineIterator, w io.Writer) (int, error)

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// LineNumbers prefixes each line with its number in the source file.
	LineNumbers bool

	// Color highlights line numbers with ANSI escape codes.
	Color bool
}

// Formats lists the supported format names.
var Formats = []string{"text", "json"}

// NewFormatter returns the formatter called name.
func NewFormatter(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "text", "":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", name)
	}
}
