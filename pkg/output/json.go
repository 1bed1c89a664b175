package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ccollicutt/logtraveler/pkg/parser"
	"github.com/ccollicutt/logtraveler/pkg/timestamp"
)

// Record is the JSON form of an emitted line.
type Record struct {
	File      string             `json:"file"`
	Line      int                `json:"line"`
	Text      string             `json:"text"`
	Timestamp *timestamp.Instant `json:"timestamp,omitempty"`
}

// NewRecord converts line into a Record for file.
func NewRecord(file string, line *parser.Line) Record {
	rec := Record{File: file, Line: line.Number, Text: line.Text}
	if line.Timestamped {
		ts := line.Timestamp
		rec.Timestamp = &ts
	}
	return rec
}

// JSONFormatter writes one JSON object per line (newline-delimited JSON).
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format writes a Record for each line.
func (f *JSONFormatter) Format(ctx context.Context, file string, lines parser.LineIterator, w io.Writer) (int, error) {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)

	n := 0
	for {
		line, err := lines.Next(ctx)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := encoder.Encode(NewRecord(file, line)); err != nil {
			return n, err
		}
		n++
	}
}
