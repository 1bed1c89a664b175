package timestamp

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Grammar is a named timestamp shape plus the logic to locate and parse it
// within a line.
type Grammar struct {
	Name       string         // strftime-style identifier, e.g. "%Y-%m-%d %H:%M:%S"
	Example    string         // Canonical example timestamp
	PatternStr string         // Matcher source, for display
	Pattern    *regexp.Regexp // Compiled matcher (set on construction)
	HasYear    bool           // False when the year must be assumed

	// Built-in grammars name their fields with capture groups; layout grammars
	// capture the whole timestamp in group 1 and parse it with a Go layout.
	layout string
	fields fieldIndex
}

type fieldIndex struct {
	year, month, monthName, day, weekday, hour, minute, second, fraction int
}

// Capture group names shared by the built-in matchers.
const (
	yearRe      = `(?P<Y>\d{4})`
	monthRe     = `(?P<m>\d{1,2})`
	monthNameRe = `(?P<b>[A-Za-z]{3})`
	dayRe       = `(?P<d>\d{1,2})`
	weekdayRe   = `(?P<a>[A-Za-z]{3})`
	clockRe     = `(?P<H>\d{1,2}):(?P<M>\d{1,2}):(?P<S>\d{1,2})`
	fractionRe  = `(?P<f>\d{1,6})`
)

// builtinGrammars is built once at package initialisation and never mutated.
var builtinGrammars = []*Grammar{
	mustBuiltin("%Y-%m-%dT%H:%M:%S.%fZ", "2018-02-08T17:06:33.088Z",
		yearRe+`-`+monthRe+`-`+dayRe+`T`+clockRe+`\.`+fractionRe+`Z`),
	mustBuiltin("%Y-%m-%d,%H:%M:%S.%f", "2018-03-28,15:51:25.847",
		yearRe+`-`+monthRe+`-`+dayRe+`,`+clockRe+`\.`+fractionRe),
	mustBuiltin("%Y/%m/%d %H:%M:%S", "2018/03/28 15:51:25",
		yearRe+`/`+monthRe+`/`+dayRe+`\s+`+clockRe),
	mustBuiltin("%Y-%m-%d %H:%M:%S", "2017-07-13  18:20:42",
		yearRe+`-`+monthRe+`-`+dayRe+`\s+`+clockRe),
	mustBuiltin("%Y-%m-%d,%H:%M:%S", "2018-03-28,15:51:25",
		yearRe+`-`+monthRe+`-`+dayRe+`,`+clockRe),
	mustBuiltin("%a %b %d %H:%M:%S %Y", "Wed Apr  4 10:07:38 2018",
		weekdayRe+`\s+`+monthNameRe+`\s+`+dayRe+`\s+`+clockRe+`\s+`+yearRe),
	mustBuiltin("%b %d %H:%M:%S %Y", "Apr  4 10:07:38 2018",
		monthNameRe+`\s+`+dayRe+`\s+`+clockRe+`\s+`+yearRe),
	mustBuiltin("%b%d.%H:%M:%S.%f", "Apr04.10:08:08.800",
		monthNameRe+dayRe+`\.`+clockRe+`\.`+fractionRe),
	mustBuiltin("%b%d.%H:%M:%S", "Apr04.10:08:08",
		monthNameRe+dayRe+`\.`+clockRe),
	mustBuiltin("%Y %b %d %H:%M:%S", "2013 Apr  8 17:15:02",
		yearRe+`\s+`+monthNameRe+`\s+`+dayRe+`\s+`+clockRe),
	// Classic syslog; must stay last of the built-ins since it is a prefix of
	// several of the shapes above.
	mustBuiltin("%b %d %H:%M:%S", "Apr  8 17:15:02",
		monthNameRe+`\s+`+dayRe+`\s+`+clockRe),
}

func mustBuiltin(name, example, pattern string) *Grammar {
	re := regexp.MustCompile(pattern)
	g := &Grammar{
		Name:       name,
		Example:    example,
		PatternStr: pattern,
		Pattern:    re,
		fields: fieldIndex{
			year:      re.SubexpIndex("Y"),
			month:     re.SubexpIndex("m"),
			monthName: re.SubexpIndex("b"),
			day:       re.SubexpIndex("d"),
			weekday:   re.SubexpIndex("a"),
			hour:      re.SubexpIndex("H"),
			minute:    re.SubexpIndex("M"),
			second:    re.SubexpIndex("S"),
			fraction:  re.SubexpIndex("f"),
		},
	}
	g.HasYear = g.fields.year >= 0
	return g
}

// NewLayoutGrammar builds a grammar from a regular expression whose first
// capture group holds the timestamp and a Go time layout that parses it.
// Layouts without a year element are parsed in the processing year. Zone
// elements are matched but the clock reading is taken as written.
func NewLayoutGrammar(name, pattern, layout string) (*Grammar, error) {
	if name == "" {
		return nil, errors.New("name is required")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, errors.New("pattern must have at least one capture group for the timestamp")
	}
	if layout == "" {
		return nil, errors.New("layout is required")
	}
	return &Grammar{
		Name:       name,
		PatternStr: pattern,
		Pattern:    re,
		HasYear:    strings.Contains(layout, "06"),
		layout:     layout,
	}, nil
}

// Find returns the first substring of line conforming to the grammar's shape.
func (g *Grammar) Find(line string) (string, bool) {
	start, end, ok := g.span(g.Pattern.FindStringSubmatchIndex(line))
	if !ok {
		return "", false
	}
	return line[start:end], true
}

// span returns the timestamp's byte range within a submatch index slice.
func (g *Grammar) span(loc []int) (int, int, bool) {
	if loc == nil {
		return 0, 0, false
	}
	if g.layout != "" {
		if loc[2] < 0 {
			return 0, 0, false
		}
		return loc[2], loc[3], true
	}
	return loc[0], loc[1], true
}

// parse converts a match into an Instant. ok is false when the matched text is
// not a valid calendar value.
func (g *Grammar) parse(line string, loc []int, year int) (Instant, bool) {
	if g.layout != "" {
		return g.parseLayout(line[loc[2]:loc[3]], year)
	}

	group := func(i int) string {
		if i < 0 || loc[2*i] < 0 {
			return ""
		}
		return line[loc[2*i]:loc[2*i+1]]
	}
	num := func(i int) (int, bool) {
		n, err := strconv.Atoi(group(i))
		return n, err == nil
	}

	f := g.fields
	var month time.Month
	if f.month >= 0 {
		m, ok := num(f.month)
		if !ok {
			return 0, false
		}
		month = time.Month(m)
	} else {
		m, ok := monthByAbbrev(group(f.monthName))
		if !ok {
			return 0, false
		}
		month = m
	}
	if f.weekday >= 0 && !isWeekdayAbbrev(group(f.weekday)) {
		return 0, false
	}
	if f.year >= 0 {
		y, ok := num(f.year)
		if !ok {
			return 0, false
		}
		year = y
	}
	day, ok1 := num(f.day)
	hour, ok2 := num(f.hour)
	minute, ok3 := num(f.minute)
	second, ok4 := num(f.second)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return 0, false
	}
	if !validCalendar(year, month, day, hour, minute, second) {
		return 0, false
	}
	return Date(year, month, day, hour, minute, second, fractionMicros(group(f.fraction))), true
}

func (g *Grammar) parseLayout(text string, year int) (Instant, bool) {
	layout, value := g.layout, text
	if !g.HasYear {
		layout = "2006 " + layout
		value = strconv.Itoa(year) + " " + text
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return 0, false
	}
	// Zone elements must match but are not applied: the wall clock is the instant.
	return Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1000), true
}

func validCalendar(year int, month time.Month, day, hour, minute, second int) bool {
	if year < 1 || month < time.January || month > time.December {
		return false
	}
	// Day zero of the next month is the last day of this one.
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day < 1 || day > last {
		return false
	}
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59 && second >= 0 && second <= 59
}

var monthAbbrevs = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func monthByAbbrev(s string) (time.Month, bool) {
	m, ok := monthAbbrevs[strings.ToLower(s)]
	return m, ok
}

func isWeekdayAbbrev(s string) bool {
	switch strings.ToLower(s) {
	case "mon", "tue", "wed", "thu", "fri", "sat", "sun":
		return true
	}
	return false
}
