package timestamp

import "time"

// Match describes a timestamp found in a line.
type Match struct {
	Instant Instant
	Grammar *Grammar
	Text    string // The matched substring, unchanged
	Start   int    // Byte offset of Text in the line
	End     int
}

// Extractor extracts timestamps from log lines using a registry of grammars.
// It is safe for concurrent use.
type Extractor struct {
	registry *Registry
	year     int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithYear sets the year assumed for grammars that carry none
// (default: the current year).
func WithYear(year int) ExtractorOption {
	return func(e *Extractor) {
		if year > 0 {
			e.year = year
		}
	}
}

// NewExtractor creates an extractor over registry. A nil registry means the
// built-in grammars.
func NewExtractor(registry *Registry, opts ...ExtractorOption) *Extractor {
	if registry == nil {
		registry = Builtin()
	}
	e := &Extractor{
		registry: registry,
		year:     time.Now().Year(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the grammars this extractor tries.
func (e *Extractor) Registry() *Registry {
	return e.registry
}

// Year returns the year assumed for year-less grammars.
func (e *Extractor) Year() int {
	return e.year
}

// Extract attempts to extract a timestamp from line. With a non-nil g only
// that grammar is tried; otherwise the registry is tried in order and the
// first grammar that both matches and parses wins. ok is false when nothing
// matched; a matched substring that is not a valid date counts as no match.
func (e *Extractor) Extract(line string, g *Grammar) (Instant, *Grammar, bool) {
	m, ok := e.Match(line, g)
	if !ok {
		return 0, nil, false
	}
	return m.Instant, m.Grammar, true
}

// Match is Extract that also reports the matched substring and its position.
func (e *Extractor) Match(line string, g *Grammar) (Match, bool) {
	if g != nil {
		return e.matchOne(line, g)
	}
	for _, candidate := range e.registry.grammars {
		if m, ok := e.matchOne(line, candidate); ok {
			return m, true
		}
	}
	return Match{}, false
}

func (e *Extractor) matchOne(line string, g *Grammar) (Match, bool) {
	loc := g.Pattern.FindStringSubmatchIndex(line)
	start, end, ok := g.span(loc)
	if !ok {
		return Match{}, false
	}
	instant, ok := g.parse(line, loc, e.year)
	if !ok {
		return Match{}, false
	}
	return Match{
		Instant: instant,
		Grammar: g,
		Text:    line[start:end],
		Start:   start,
		End:     end,
	}, true
}
