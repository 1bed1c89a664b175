// Package scanner filters the lines of a log file down to a time window.
//
// A scan first infers the file's timestamp grammar from its head, then reads
// the tail with that grammar to decide whether the file is chronologically
// ordered. Ordered files that cannot overlap the window are rejected without
// testing a single line, and the filter stops at the first line past the
// window end. Lines without a timestamp are carried over onto the preceding
// emitted line.
package scanner

import (
	"context"
	"io"

	"github.com/ccollicutt/logtraveler/pkg/metrics"
	"github.com/ccollicutt/logtraveler/pkg/parser"
	"github.com/ccollicutt/logtraveler/pkg/timestamp"
	"github.com/ccollicutt/logtraveler/pkg/window"
)

// DefaultSampleLines is the number of head and tail lines used for discovery.
const DefaultSampleLines = 100

// State is the phase a FileScan is in.
type State int

const (
	StateDiscoverGrammar State = iota
	StateDiscoverTail
	StateFastReject
	StateFilter
	StateDone
)

func (s State) String() string {
	switch s {
	case StateDiscoverGrammar:
		return "discover-grammar"
	case StateDiscoverTail:
		return "discover-tail"
	case StateFastReject:
		return "fast-reject"
	case StateFilter:
		return "filter"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Stats counts what a scan did.
type Stats struct {
	LinesTested   int  // Lines examined by the filter
	LinesEmitted  int  // Lines emitted, continuations included
	Continuations int  // Timestamp-less lines carried over
	FastRejected  bool // Rejected from the head and tail alone
	StoppedEarly  bool // Filter stopped at a line past the window end
}

// Scanner creates FileScans. It is safe for concurrent use.
type Scanner struct {
	extractor   *timestamp.Extractor
	sampleLines int
	metrics     *metrics.Recorder
}

// Option configures the Scanner.
type Option func(*Scanner)

// WithSampleLines sets the number of head and tail lines used to discover
// the grammar and the last timestamp (default 100).
func WithSampleLines(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.sampleLines = n
		}
	}
}

// WithMetrics records scan counters in r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Scanner) {
		s.metrics = r
	}
}

// New creates a Scanner that reads timestamps with extractor.
func New(extractor *timestamp.Extractor, opts ...Option) *Scanner {
	s := &Scanner{
		extractor:   extractor,
		sampleLines: DefaultSampleLines,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SampleLines returns the discovery sample size.
func (s *Scanner) SampleLines() int {
	return s.sampleLines
}

// Scan runs discovery over lines and returns the scan positioned at the
// start of filtering, or already Done when the file has no recognisable
// grammar or was fast-rejected.
func (s *Scanner) Scan(name string, lines []string, w window.Window) *FileScan {
	f := &FileScan{
		name:      name,
		lines:     lines,
		window:    w,
		extractor: s.extractor,
		metrics:   s.metrics,
		state:     StateDiscoverGrammar,
	}

	head := lines
	if len(head) > s.sampleLines {
		head = head[:s.sampleLines]
	}
	for _, line := range head {
		if ts, g, ok := s.extractor.Extract(line, nil); ok {
			f.grammar = g
			f.first = ts
			break
		}
	}
	if f.grammar == nil {
		f.finish(metrics.OutcomeNoGrammar)
		return f
	}
	s.metrics.GrammarDiscovered(f.grammar.Name)

	f.state = StateDiscoverTail
	tailStart := len(lines) - s.sampleLines
	if tailStart < 0 {
		tailStart = 0
	}
	for i := len(lines) - 1; i >= tailStart; i-- {
		if ts, _, ok := s.extractor.Extract(lines[i], f.grammar); ok {
			f.last = ts
			f.hasLast = true
			break
		}
	}
	f.ordered = f.hasLast && !f.first.After(f.last)

	if f.ordered {
		f.state = StateFastReject
		if f.first.After(w.End) || f.last.Before(w.Start) {
			f.stats.FastRejected = true
			f.finish(metrics.OutcomeFastRejected)
			return f
		}
	}

	f.state = StateFilter
	return f
}

// FileScan is the per-file filtering state. It yields the emitted lines of
// one file and must not be used concurrently.
type FileScan struct {
	name      string
	lines     []string
	window    window.Window
	extractor *timestamp.Extractor
	metrics   *metrics.Recorder

	grammar *timestamp.Grammar
	first   timestamp.Instant
	last    timestamp.Instant
	hasLast bool
	ordered bool

	state    State
	pos      int  // lines consumed, including appended ones
	emitted  bool // a line of this file has been emitted
	recorded bool
	stats    Stats

	buffered []parser.Line
	replay   int
	prefetch bool
}

// Name returns the name the scan was created with.
func (f *FileScan) Name() string { return f.name }

// State returns the current phase.
func (f *FileScan) State() State { return f.state }

// Grammar returns the discovered grammar, or nil when none matched.
func (f *FileScan) Grammar() *timestamp.Grammar { return f.grammar }

// First returns the first timestamp found in the head sample.
func (f *FileScan) First() (timestamp.Instant, bool) { return f.first, f.grammar != nil }

// Last returns the last timestamp found in the tail sample.
func (f *FileScan) Last() (timestamp.Instant, bool) { return f.last, f.hasLast }

// Ordered reports whether the first timestamp is not after the last one.
func (f *FileScan) Ordered() bool { return f.ordered }

// Stats returns the counters collected so far.
func (f *FileScan) Stats() Stats { return f.stats }

// Window returns the window the file is filtered against.
func (f *FileScan) Window() window.Window { return f.window }

// Next returns the next emitted line, or io.EOF when the file is exhausted
// or the filter stopped early.
func (f *FileScan) Next(ctx context.Context) (*parser.Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.prefetch {
		if f.replay >= len(f.buffered) {
			return nil, io.EOF
		}
		line := &f.buffered[f.replay]
		f.replay++
		return line, nil
	}
	if f.state != StateFilter {
		return nil, io.EOF
	}

	for f.pos < len(f.lines) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := f.lines[f.pos]
		f.pos++
		if line, ok := f.filter(text, f.pos); ok {
			return line, nil
		}
		if f.stats.StoppedEarly {
			break
		}
	}
	f.finish("")
	return nil, io.EOF
}

// Prefetch drains the scan into memory so that Next can later replay the
// emitted lines without further work.
func (f *FileScan) Prefetch(ctx context.Context) error {
	if f.prefetch {
		return nil
	}
	for {
		line, err := f.Next(ctx)
		if err == io.EOF {
			f.prefetch = true
			return nil
		}
		if err != nil {
			return err
		}
		f.buffered = append(f.buffered, *line)
	}
}

// Resumable reports whether lines appended to the file after the scan could
// still be emitted: a grammar is known and no line past the window end has
// been seen.
func (f *FileScan) Resumable() bool {
	if f.grammar == nil || f.stats.StoppedEarly {
		return false
	}
	return !f.first.After(f.window.End)
}

// Feed filters a line appended to the file once the scan is Done, with the
// same grammar, window and carry-over state. Appended lines are assumed to
// be chronological, so any timestamped line past the window end stops the
// scan for good.
func (f *FileScan) Feed(text string) (*parser.Line, bool) {
	if f.state != StateDone || !f.Resumable() {
		return nil, false
	}
	if f.pos < len(f.lines) {
		f.pos = len(f.lines)
	}
	f.pos++
	return f.filter(text, f.pos)
}

func (f *FileScan) filter(text string, number int) (*parser.Line, bool) {
	f.stats.LinesTested++
	f.metrics.LineTested()

	ts, _, ok := f.extractor.Extract(text, f.grammar)
	if !ok {
		if !f.emitted {
			return nil, false
		}
		f.stats.LinesEmitted++
		f.stats.Continuations++
		f.metrics.LineEmitted(metrics.KindContinuation)
		return &parser.Line{Text: text, Number: number}, true
	}

	if ts.After(f.window.End) && (f.ordered || f.state == StateDone) {
		f.stats.StoppedEarly = true
		return nil, false
	}
	if !f.window.Contains(ts) {
		return nil, false
	}
	f.emitted = true
	f.stats.LinesEmitted++
	f.metrics.LineEmitted(metrics.KindTimestamped)
	return &parser.Line{Text: text, Number: number, Timestamp: ts, Timestamped: true}, true
}

// finish moves the scan to Done and records its outcome once. An empty
// outcome is derived from the stats.
func (f *FileScan) finish(outcome string) {
	f.state = StateDone
	if f.recorded {
		return
	}
	f.recorded = true
	if outcome == "" {
		outcome = metrics.OutcomeEmpty
		if f.stats.LinesEmitted > 0 {
			outcome = metrics.OutcomeEmitted
		}
	}
	f.metrics.FileScanned(outcome)
}
