package parser

import (
	"context"
	"io"
)

// LineIterator provides a lazy, finite, non-restartable sequence of lines.
// Implementations must be safe for sequential access (not concurrent).
type LineIterator interface {
	// Next returns the next line.
	// Returns io.EOF when no more lines are available.
	Next(ctx context.Context) (*Line, error)
}

// SliceIterator iterates over lines that are already in memory.
type SliceIterator struct {
	lines []Line
	pos   int
}

// NewSliceIterator returns an iterator over lines.
func NewSliceIterator(lines []Line) *SliceIterator {
	return &SliceIterator{lines: lines}
}

// Next returns the next line, or io.EOF once all lines were returned.
func (s *SliceIterator) Next(ctx context.Context) (*Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.lines) {
		return nil, io.EOF
	}
	line := &s.lines[s.pos]
	s.pos++
	return line, nil
}

// Collect drains it into a slice.
func Collect(ctx context.Context, it LineIterator) ([]Line, error) {
	var lines []Line
	for {
		line, err := it.Next(ctx)
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, *line)
	}
}
