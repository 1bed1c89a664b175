package output

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/ccollicutt/logtraveler/pkg/parser"
)

const banner = "========================="

// lineNumberColor is bright yellow.
const lineNumberColor = lipgloss.Color("11")

// TextFormatter writes a banner per file followed by its lines.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format writes the file's lines. Nothing at all is written for a file
// without lines, not even the banner.
func (f *TextFormatter) Format(ctx context.Context, file string, lines parser.LineIterator, w io.Writer) (int, error) {
	number := f.numberStyle(w)

	n := 0
	for {
		line, err := lines.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, err
		}
		if n == 0 {
			if _, err := io.WriteString(w, f.Header(file)); err != nil {
				return n, err
			}
		}
		if _, err := io.WriteString(w, f.render(number, line)+"\n"); err != nil {
			return n, err
		}
		n++
	}

	if n > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Line renders a single line the way Format does, for callers that print
// lines as they arrive.
func (f *TextFormatter) Line(w io.Writer, line *parser.Line) string {
	return f.render(f.numberStyle(w), line)
}

// Header renders the banner that opens the block of file, blank lines
// included.
func (f *TextFormatter) Header(file string) string {
	return fmt.Sprintf("\n%s %s %s\n\n", banner, file, banner)
}

func (f *TextFormatter) render(number lipgloss.Style, line *parser.Line) string {
	if !f.opts.LineNumbers {
		return line.Text
	}
	prefix := strconv.Itoa(line.Number) + ":"
	if f.opts.Color {
		prefix = number.Render(prefix)
	}
	return prefix + " " + line.Text
}

// numberStyle builds the line number style for w. Colour is forced on
// because the options, not the terminal, decide whether to colour.
func (f *TextFormatter) numberStyle(w io.Writer) lipgloss.Style {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.ANSI)
	return r.NewStyle().Foreground(lineNumberColor)
}
