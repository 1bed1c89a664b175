// Package window resolves time-window expressions such as
// "2018-01-01 00:00:00+-30s" or "A@B" into an inclusive [Start, End] range.
package window

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ccollicutt/logtraveler/pkg/timestamp"
)

// Window is an inclusive range of instants. Start <= End always holds for
// windows returned by a Resolver.
type Window struct {
	Start timestamp.Instant
	End   timestamp.Instant
}

// Contains reports whether i lies within the window, bounds included.
func (w Window) Contains(i timestamp.Instant) bool {
	return !i.Before(w.Start) && !i.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start, w.End)
}

// InvalidExpressionError reports a window expression that cannot be resolved.
type InvalidExpressionError struct {
	Expr     string   // The offending (sub)expression
	Reason   string   // Why it was rejected
	Grammars []string // Supported timestamp grammars
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("invalid window expression %q: %s (supported formats: %s)",
		e.Expr, e.Reason, strings.Join(e.Grammars, ", "))
}

// Resolver turns window expressions into Windows.
type Resolver struct {
	extractor *timestamp.Extractor
}

// NewResolver creates a resolver that reads timestamps with extractor.
func NewResolver(extractor *timestamp.Extractor) *Resolver {
	return &Resolver{extractor: extractor}
}

// Resolve parses expr. Supported forms:
//
//	A@B       two timestamps, in either order
//	T         Start = End = T
//	T+-N      [T-N, T+N]
//	T-N+M     [T-N, T+M]
//	T+M-N     [T-N, T+M]
//	T-N       [T-N, T]
//	T+M       [T, T+M]
//
// Offsets take a unit suffix of us, ms, s or m; a bare number is seconds.
func (r *Resolver) Resolve(expr string) (Window, error) {
	if strings.Contains(expr, "@") {
		return r.resolvePair(expr)
	}

	m, err := r.timestamp(expr)
	if err != nil {
		return Window{}, err
	}
	if strings.TrimSpace(expr[:m.Start]) != "" {
		return Window{}, r.invalid(expr, "unexpected text before timestamp")
	}
	lo, hi, err := splitOffsets(strings.TrimSpace(expr[m.End:]))
	if err != nil {
		return Window{}, r.invalid(expr, err.Error())
	}

	w := Window{Start: m.Instant.Add(-lo), End: m.Instant.Add(hi)}
	if w.Start.After(w.End) {
		w.Start, w.End = w.End, w.Start
	}
	return w, nil
}

func (r *Resolver) resolvePair(expr string) (Window, error) {
	parts := strings.Split(expr, "@")
	if len(parts) != 2 {
		return Window{}, r.invalid(expr, "expected exactly one '@'")
	}
	a, err := r.exact(parts[0])
	if err != nil {
		return Window{}, err
	}
	b, err := r.exact(parts[1])
	if err != nil {
		return Window{}, err
	}
	if b.Before(a) {
		a, b = b, a
	}
	return Window{Start: a, End: b}, nil
}

// exact resolves s, which must consist of a single timestamp.
func (r *Resolver) exact(s string) (timestamp.Instant, error) {
	m, err := r.timestamp(s)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(s[:m.Start]) != "" || strings.TrimSpace(s[m.End:]) != "" {
		return 0, r.invalid(s, "unexpected text around timestamp")
	}
	return m.Instant, nil
}

func (r *Resolver) timestamp(s string) (timestamp.Match, error) {
	m, ok := r.extractor.Match(s, nil)
	if !ok {
		return timestamp.Match{}, r.invalid(s, "no supported timestamp found")
	}
	return m, nil
}

func (r *Resolver) invalid(expr, reason string) error {
	return &InvalidExpressionError{
		Expr:     expr,
		Reason:   reason,
		Grammars: r.extractor.Registry().Names(),
	}
}

// splitOffsets parses the suffix following the timestamp into the distance
// below (lo) and above (hi) it.
func splitOffsets(suffix string) (lo, hi time.Duration, err error) {
	if suffix == "" {
		return 0, 0, nil
	}
	if rest, ok := strings.CutPrefix(suffix, "+-"); ok {
		d, err := parseOffset(rest)
		return d, d, err
	}

	plus := strings.Index(suffix, "+")
	minus := strings.Index(suffix, "-")
	switch {
	case plus == 0 && minus > 0:
		// T+M-N
		if hi, err = parseOffset(suffix[1:minus]); err != nil {
			return 0, 0, err
		}
		lo, err = parseOffset(suffix[minus+1:])
		return lo, hi, err
	case minus == 0 && plus > 0:
		// T-N+M
		if lo, err = parseOffset(suffix[1:plus]); err != nil {
			return 0, 0, err
		}
		hi, err = parseOffset(suffix[plus+1:])
		return lo, hi, err
	case minus == 0:
		lo, err = parseOffset(suffix[1:])
		return lo, 0, err
	case plus == 0:
		hi, err = parseOffset(suffix[1:])
		return 0, hi, err
	}
	return 0, 0, fmt.Errorf("unexpected text %q after timestamp", suffix)
}

// parseOffset parses a non-negative magnitude with an optional unit.
func parseOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	unit := time.Second
	num := s
	switch {
	case strings.HasSuffix(s, "us"):
		unit, num = time.Microsecond, strings.TrimSuffix(s, "us")
	case strings.HasSuffix(s, "ms"):
		unit, num = time.Millisecond, strings.TrimSuffix(s, "ms")
	case strings.HasSuffix(s, "s"):
		unit, num = time.Second, strings.TrimSuffix(s, "s")
	case strings.HasSuffix(s, "m"):
		unit, num = time.Minute, strings.TrimSuffix(s, "m")
	}
	n, err := strconv.ParseUint(strings.TrimSpace(num), 10, 63)
	if err != nil || n > uint64(math.MaxInt64/unit) {
		return 0, fmt.Errorf("invalid offset %q (want N, Nus, Nms, Ns or Nm)", s)
	}
	return time.Duration(n) * unit, nil
}
