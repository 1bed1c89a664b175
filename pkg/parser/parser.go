package parser

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var gzipMagic = []byte{0x1f, 0x8b}

// ReadFile reads every line of the file at path. Gzip-compressed files are
// detected by their magic bytes and decompressed transparently. Lines may be
// of any length.
func ReadFile(ctx context.Context, path string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	defer f.Close()

	counter := &countingReader{r: f}
	br := bufio.NewReader(counter)

	var r io.Reader = br
	compressed := false
	if magic, err := br.Peek(len(gzipMagic)); err == nil && bytes.Equal(magic, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
		compressed = true
	}

	lines, complete, partial, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	size := complete
	if compressed {
		size = counter.n - int64(br.Buffered())
	}
	return &File{
		Path:       path,
		Lines:      lines,
		Size:       size,
		Compressed: compressed,
		Partial:    partial,
	}, nil
}

// ReadCompleteFile is ReadFile without an unterminated last line, which a
// writer may still be in the middle of. Size stops before that line, so
// reading on from Size picks it up once it is finished.
func ReadCompleteFile(ctx context.Context, path string) (*File, error) {
	f, err := ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if f.Partial && !f.Compressed {
		f.Lines = f.Lines[:len(f.Lines)-1]
		f.Partial = false
	}
	return f, nil
}

// ReadLines splits r into lines without their line terminators.
func ReadLines(r io.Reader) ([]string, error) {
	lines, _, _, err := readLines(r)
	return lines, err
}

// readLines returns the lines of r, the number of bytes up to and including
// the last '\n', and whether a final line had no terminator.
func readLines(r io.Reader) ([]string, int64, bool, error) {
	var (
		lines    []string
		complete int64
	)
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		s, err := br.ReadString('\n')
		if strings.HasSuffix(s, "\n") {
			complete += int64(len(s))
			lines = append(lines, strings.TrimSuffix(s[:len(s)-1], "\r"))
		} else if s != "" {
			lines = append(lines, strings.TrimSuffix(s, "\r"))
			if errors.Is(err, io.EOF) {
				return lines, complete, true, nil
			}
		}
		if errors.Is(err, io.EOF) {
			return lines, complete, false, nil
		}
		if err != nil {
			return lines, complete, false, err
		}
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
