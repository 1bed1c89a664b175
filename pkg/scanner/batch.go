package scanner

import (
	"context"

	"github.com/ccollicutt/logtraveler/pkg/metrics"
	"github.com/ccollicutt/logtraveler/pkg/parser"
	"github.com/ccollicutt/logtraveler/pkg/window"
)

// Opener reads a whole log file. parser.ReadFile is the usual implementation.
type Opener func(ctx context.Context, path string) (*parser.File, error)

// Result is one scanned file handed to the Batch callback.
type Result struct {
	File *parser.File
	Scan *FileScan
}

// Batch scans many files against one window.
type Batch struct {
	scanner *Scanner
	open    Opener
	workers int
	onError func(path string, err error)
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithWorkers sets how many files are read and scanned concurrently
// (default 1). With more than one worker each file is filtered into memory
// before it is delivered.
func WithWorkers(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithErrorHandler sets the function told about files that could not be read.
// Such files are skipped. The handler is called from the goroutine running
// Run, in the order of the paths.
func WithErrorHandler(fn func(path string, err error)) BatchOption {
	return func(b *Batch) {
		b.onError = fn
	}
}

// NewBatch creates a Batch that reads files with open and scans them with s.
func NewBatch(s *Scanner, open Opener, opts ...BatchOption) *Batch {
	b := &Batch{
		scanner: s,
		open:    open,
		workers: 1,
		onError: func(string, error) {},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run scans paths and calls fn for every readable file, in the order of
// paths. An error from fn stops the run and is returned.
func (b *Batch) Run(ctx context.Context, paths []string, w window.Window, fn func(*Result) error) error {
	if b.workers <= 1 || len(paths) <= 1 {
		for _, path := range paths {
			res, err := b.load(ctx, path, w, false)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				b.fail(path, err)
				continue
			}
			if err := fn(res); err != nil {
				return err
			}
		}
		return ctx.Err()
	}
	return b.runConcurrent(ctx, paths, w, fn)
}

type loaded struct {
	res *Result
	err error
}

func (b *Batch) runConcurrent(ctx context.Context, paths []string, w window.Window, fn func(*Result) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan loaded, len(paths))
	for i := range results {
		results[i] = make(chan loaded, 1)
	}

	sem := make(chan struct{}, b.workers)
	go func() {
		for i, path := range paths {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				for _, ch := range results[i:] {
					ch <- loaded{err: ctx.Err()}
				}
				return
			}
			go func(ch chan<- loaded, path string) {
				defer func() { <-sem }()
				res, err := b.load(ctx, path, w, true)
				ch <- loaded{res: res, err: err}
			}(results[i], path)
		}
	}()

	for i, ch := range results {
		var l loaded
		select {
		case l = <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		if l.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			b.fail(paths[i], l.err)
			continue
		}
		if err := fn(l.res); err != nil {
			return err
		}
	}
	return nil
}

func (b *Batch) fail(path string, err error) {
	b.scanner.metrics.FileScanned(metrics.OutcomeReadError)
	b.onError(path, err)
}

// load reads and scans one file.
func (b *Batch) load(ctx context.Context, path string, w window.Window, prefetch bool) (*Result, error) {
	f, err := b.open(ctx, path)
	if err != nil {
		return nil, err
	}
	scan := b.scanner.Scan(path, f.Lines, w)
	if prefetch {
		if err := scan.Prefetch(ctx); err != nil {
			return nil, err
		}
	}
	return &Result{File: f, Scan: scan}, nil
}
