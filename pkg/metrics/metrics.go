// Package metrics exposes scan counters in the Prometheus text format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// File outcomes recorded by FileScanned.
const (
	OutcomeEmitted      = "emitted"
	OutcomeEmpty        = "empty"
	OutcomeNoGrammar    = "no_grammar"
	OutcomeFastRejected = "fast_rejected"
	OutcomeReadError    = "read_error"
)

// Kinds of emitted lines.
const (
	KindTimestamped  = "timestamped"
	KindContinuation = "continuation"
)

// Recorder holds the counters of a single run. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	FilesTotal        *prometheus.CounterVec
	LinesTestedTotal  prometheus.Counter
	LinesEmittedTotal *prometheus.CounterVec
	GrammarsTotal     *prometheus.CounterVec
}

// NewRecorder creates a Recorder backed by its own registry, so several
// recorders can coexist in one process.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		FilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logtraveler_files_total",
				Help: "Total number of files scanned, by outcome.",
			},
			[]string{"outcome"},
		),
		LinesTestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "logtraveler_lines_tested_total",
				Help: "Total number of lines tested against the time window.",
			},
		),
		LinesEmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logtraveler_lines_emitted_total",
				Help: "Total number of lines emitted, by kind.",
			},
			[]string{"kind"},
		),
		GrammarsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logtraveler_grammar_discovered_total",
				Help: "Total number of files whose timestamp grammar was discovered, by grammar.",
			},
			[]string{"grammar"},
		),
	}
	r.registry.MustRegister(r.FilesTotal, r.LinesTestedTotal, r.LinesEmittedTotal, r.GrammarsTotal)
	return r
}

// Registry returns the registry the counters are registered with.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// FileScanned records the final outcome of one file.
func (r *Recorder) FileScanned(outcome string) {
	if r == nil {
		return
	}
	r.FilesTotal.WithLabelValues(outcome).Inc()
}

// LineTested records a line compared against the window.
func (r *Recorder) LineTested() {
	if r == nil {
		return
	}
	r.LinesTestedTotal.Inc()
}

// LineEmitted records an emitted line of the given kind.
func (r *Recorder) LineEmitted(kind string) {
	if r == nil {
		return
	}
	r.LinesEmittedTotal.WithLabelValues(kind).Inc()
}

// GrammarDiscovered records the grammar inferred for a file.
func (r *Recorder) GrammarDiscovered(name string) {
	if r == nil {
		return
	}
	r.GrammarsTotal.WithLabelValues(name).Inc()
}

// WriteTextfile writes all counters to path in the format read by the
// node exporter textfile collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
