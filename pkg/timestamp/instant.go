// Package timestamp infers and extracts timestamps from log lines.
//
// A Registry holds an ordered list of Grammars. The Extractor tries them in
// precedence order and turns the first substring that both matches and parses
// into an Instant.
package timestamp

import (
	"strconv"
	"time"
)

// Instant is a point in time with microsecond resolution, counted in
// microseconds since the Unix epoch. Calendar fields are interpreted as UTC;
// no timezone conversion is ever applied.
type Instant int64

// Date builds an Instant from a calendar decomposition.
func Date(year int, month time.Month, day, hour, min, sec, usec int) Instant {
	return FromTime(time.Date(year, month, day, hour, min, sec, usec*int(time.Microsecond), time.UTC))
}

// FromTime converts t to an Instant, truncating below the microsecond.
func FromTime(t time.Time) Instant {
	return Instant(t.Unix()*1_000_000 + int64(t.Nanosecond()/1000))
}

// Time returns the Instant as a UTC time.Time.
func (i Instant) Time() time.Time {
	return time.UnixMicro(int64(i)).UTC()
}

// Add returns i shifted by d. Sub-microsecond parts of d are dropped.
func (i Instant) Add(d time.Duration) Instant {
	return i + Instant(d/time.Microsecond)
}

// Before reports whether i is strictly earlier than j.
func (i Instant) Before(j Instant) bool { return i < j }

// After reports whether i is strictly later than j.
func (i Instant) After(j Instant) bool { return i > j }

// Compare returns -1, 0 or +1.
func (i Instant) Compare(j Instant) int {
	switch {
	case i < j:
		return -1
	case i > j:
		return 1
	}
	return 0
}

// Micros returns the raw microsecond count.
func (i Instant) Micros() int64 { return int64(i) }

func (i Instant) String() string {
	return i.Time().Format("2006-01-02 15:04:05.000000")
}

// MarshalText renders the Instant as RFC 3339 with microseconds.
func (i Instant) MarshalText() ([]byte, error) {
	return []byte(i.Time().Format("2006-01-02T15:04:05.000000Z07:00")), nil
}

// UnmarshalText parses the form written by MarshalText.
func (i *Instant) UnmarshalText(text []byte) error {
	t, err := time.Parse(time.RFC3339Nano, string(text))
	if err != nil {
		return err
	}
	*i = FromTime(t)
	return nil
}

// fractionMicros interprets a fractional-second digit string as microseconds,
// padding or truncating it to six digits.
func fractionMicros(frac string) int {
	if frac == "" {
		return 0
	}
	if len(frac) > 6 {
		frac = frac[:6]
	}
	for len(frac) < 6 {
		frac += "0"
	}
	n, err := strconv.Atoi(frac)
	if err != nil {
		return 0
	}
	return n
}
