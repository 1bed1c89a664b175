// Package detector reports which timestamp grammars match a log file.
package detector

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/ccollicutt/logtraveler/pkg/parser"
	"github.com/ccollicutt/logtraveler/pkg/scanner"
	"github.com/ccollicutt/logtraveler/pkg/timestamp"
	"github.com/ccollicutt/logtraveler/pkg/window"
)

// everything is a window no timestamp falls outside of.
var everything = window.Window{Start: math.MinInt64, End: math.MaxInt64}

// DetectionResult holds the result of analyzing a log file.
type DetectionResult struct {
	Matches      []GrammarMatch // Grammars that matched, sorted by confidence descending
	SampledLines int            // Number of non-blank lines sampled
	ParsedLines  int            // Number of lines parsed by the best match

	// Discovery as the scanner performs it.
	Grammar *timestamp.Grammar // Grammar fixed for the file, nil if none
	First   timestamp.Instant
	Last    timestamp.Instant
	HasLast bool
	Ordered bool
}

// GrammarMatch represents a grammar that matched with its confidence score.
type GrammarMatch struct {
	Grammar    *timestamp.Grammar
	Confidence float64 // 0.0 to 1.0 (share of sampled lines matched)
	MatchCount int
	SampleLine string            // First line that matched
	Parsed     timestamp.Instant // Timestamp parsed from SampleLine
	precedence int
}

// Detector analyzes log files to identify timestamp grammars.
type Detector struct {
	extractor  *timestamp.Extractor
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a Detector over the grammars of extractor.
func New(extractor *timestamp.Extractor, opts ...Option) *Detector {
	d := &Detector{
		extractor:  extractor,
		sampleSize: scanner.DefaultSampleLines,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile analyzes a log file, decompressing it if needed.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	f, err := parser.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(f.Lines), nil
}

// DetectFromLines analyzes a slice of log lines.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{}

	scan := scanner.New(d.extractor, scanner.WithSampleLines(d.sampleSize)).Scan("", lines, everything)
	result.Grammar = scan.Grammar()
	result.First, _ = scan.First()
	result.Last, result.HasLast = scan.Last()
	result.Ordered = scan.Ordered()

	stats := make(map[*timestamp.Grammar]*GrammarMatch)
	for i, line := range lines {
		if i >= d.sampleSize {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		result.SampledLines++

		for p, g := range d.extractor.Registry().Grammars() {
			ts, _, ok := d.extractor.Extract(line, g)
			if !ok {
				continue
			}
			if stats[g] == nil {
				stats[g] = &GrammarMatch{
					Grammar:    g,
					SampleLine: line,
					Parsed:     ts,
					precedence: p,
				}
			}
			stats[g].MatchCount++
		}
	}

	for _, s := range stats {
		s.Confidence = float64(s.MatchCount) / float64(result.SampledLines)
		result.Matches = append(result.Matches, *s)
	}

	// Sort by confidence descending, then by registry precedence
	sort.Slice(result.Matches, func(i, j int) bool {
		if result.Matches[i].MatchCount != result.Matches[j].MatchCount {
			return result.Matches[i].MatchCount > result.Matches[j].MatchCount
		}
		return result.Matches[i].precedence < result.Matches[j].precedence
	})

	if len(result.Matches) > 0 {
		result.ParsedLines = result.Matches[0].MatchCount
	}

	return result
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *GrammarMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one grammar matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}
