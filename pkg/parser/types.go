// Package parser provides log file discovery and line reading.
package parser

import "github.com/ccollicutt/logtraveler/pkg/timestamp"

// Line is a single log line, optionally carrying the timestamp extracted
// from it.
type Line struct {
	// Text is the original line content without the trailing newline.
	Text string

	// Number is the 1-based line number in the source file.
	Number int

	// Timestamp is the extracted instant; valid only when Timestamped is set.
	Timestamp timestamp.Instant

	// Timestamped is false for lines without a recognisable timestamp, such
	// as stack-trace continuations.
	Timestamped bool
}

// File is the fully read content of a log file.
type File struct {
	// Path is the file path the lines came from.
	Path string

	// Lines holds every line in order, decompressed if necessary.
	Lines []string

	// Size is the number of bytes on disk up to and including the last line
	// terminator. For compressed files it is the compressed size read.
	Size int64

	// Compressed is true when the file was gzip-compressed.
	Compressed bool

	// Partial is true when the last line in Lines had no terminator.
	Partial bool
}
