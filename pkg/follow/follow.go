// Package follow keeps filtering log files as lines are appended to them.
package follow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ccollicutt/logtraveler/pkg/parser"
	"github.com/ccollicutt/logtraveler/pkg/scanner"
)

// DefaultPollInterval is how often files are re-read in case a change
// notification was missed.
const DefaultPollInterval = time.Second

// EmitFunc receives every line emitted from an appended chunk.
type EmitFunc func(path string, line *parser.Line) error

type target struct {
	path    string
	file    *os.File
	offset  int64
	partial []byte
	scan    *scanner.FileScan
}

// Follower watches files whose scan reached the end and feeds appended
// lines back into their scans.
type Follower struct {
	emit     EmitFunc
	logger   *log.Logger
	interval time.Duration
	targets  map[string]*target
	buf      []byte
}

// Option configures a Follower.
type Option func(*Follower)

// WithLogger sets the logger used for warnings (default: discard).
func WithLogger(l *log.Logger) Option {
	return func(f *Follower) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithPollInterval sets the fallback polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(f *Follower) {
		if d > 0 {
			f.interval = d
		}
	}
}

// New creates a Follower that hands emitted lines to emit.
func New(emit EmitFunc, opts ...Option) *Follower {
	f := &Follower{
		emit:     emit,
		logger:   log.New(io.Discard, "", 0),
		interval: DefaultPollInterval,
		targets:  make(map[string]*target),
		buf:      make([]byte, 32*1024),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Add follows path from offset, the number of bytes already scanned. Files
// whose scan cannot emit anything more and compressed files are not
// followed; Add reports whether path was added.
func (f *Follower) Add(path string, offset int64, compressed bool, scan *scanner.FileScan) (bool, error) {
	if compressed || !scan.Resumable() {
		return false, nil
	}
	if _, ok := f.targets[path]; ok {
		return false, nil
	}
	file, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return false, fmt.Errorf("following %s: %w", path, err)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return false, fmt.Errorf("following %s: %w", path, err)
	}
	f.targets[path] = &target{path: path, file: file, offset: offset, scan: scan}
	return true, nil
}

// Len returns the number of files being followed.
func (f *Follower) Len() int {
	return len(f.targets)
}

// Run follows the added files until none is left to follow, ctx is
// cancelled or emit fails. Cancellation is not an error.
func (f *Follower) Run(ctx context.Context) error {
	defer f.closeAll()
	if len(f.targets) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for path := range f.targets {
		if err := watcher.Add(path); err != nil {
			f.logger.Printf("watching %s: %v (polling instead)", path, err)
		}
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	// Catch up on anything written between the scan and the watch.
	for path := range f.targets {
		if err := f.read(path); err != nil {
			return err
		}
	}

	for len(f.targets) > 0 {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			for path := range f.targets {
				if err := f.read(path); err != nil {
					return err
				}
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, tracked := f.targets[event.Name]; !tracked {
				continue
			}
			if event.Has(fsnotify.Write) {
				if err := f.read(event.Name); err != nil {
					return err
				}
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if err := f.read(event.Name); err != nil {
					return err
				}
				f.logger.Printf("%s was rotated away, no longer following it", event.Name)
				f.drop(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Printf("watcher error: %v", err)
		}
	}
	return nil
}

// read consumes everything appended to path since the last read.
func (f *Follower) read(path string) error {
	t, ok := f.targets[path]
	if !ok {
		return nil
	}

	if info, err := t.file.Stat(); err == nil && info.Size() < t.offset {
		// Truncated in place: start over from the beginning.
		if _, err := t.file.Seek(0, io.SeekStart); err == nil {
			t.offset = 0
			t.partial = t.partial[:0]
		}
	}

	for {
		n, err := t.file.Read(f.buf)
		if n > 0 {
			t.offset += int64(n)
			if emitErr := f.feed(t, f.buf[:n]); emitErr != nil {
				return emitErr
			}
			if !t.scan.Resumable() {
				f.drop(path)
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			f.logger.Printf("reading %s: %v", path, err)
			f.drop(path)
			return nil
		}
	}
}

// feed splits chunk into complete lines and filters each one. An
// unterminated trailing line waits for the next chunk.
func (f *Follower) feed(t *target, chunk []byte) error {
	t.partial = append(t.partial, chunk...)
	for {
		i := bytes.IndexByte(t.partial, '\n')
		if i < 0 {
			return nil
		}
		text := string(bytes.TrimSuffix(t.partial[:i], []byte{'\r'}))
		t.partial = t.partial[i+1:]

		line, ok := t.scan.Feed(text)
		if ok {
			if err := f.emit(t.path, line); err != nil {
				return err
			}
		}
		if !t.scan.Resumable() {
			return nil
		}
	}
}

func (f *Follower) drop(path string) {
	if t, ok := f.targets[path]; ok {
		t.file.Close()
		delete(f.targets, path)
	}
}

func (f *Follower) closeAll() {
	for path := range f.targets {
		f.drop(path)
	}
}
