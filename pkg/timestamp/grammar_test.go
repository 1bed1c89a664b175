package timestamp

import (
	"testing"
	"time"
)

func TestBuiltin_Order(t *testing.T) {
	want := []string{
		"%Y-%m-%dT%H:%M:%S.%fZ",
		"%Y-%m-%d,%H:%M:%S.%f",
		"%Y/%m/%d %H:%M:%S",
		"%Y-%m-%d %H:%M:%S",
		"%Y-%m-%d,%H:%M:%S",
		"%a %b %d %H:%M:%S %Y",
		"%b %d %H:%M:%S %Y",
		"%b%d.%H:%M:%S.%f",
		"%b%d.%H:%M:%S",
		"%Y %b %d %H:%M:%S",
		"%b %d %H:%M:%S",
	}
	got := Builtin().Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %d grammars, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuiltin_HasYear(t *testing.T) {
	for _, g := range Builtin().Grammars() {
		wantYear := g.Name != "%b %d %H:%M:%S" && g.Name != "%b%d.%H:%M:%S.%f" && g.Name != "%b%d.%H:%M:%S"
		if g.HasYear != wantYear {
			t.Errorf("%s: HasYear = %v, want %v", g.Name, g.HasYear, wantYear)
		}
	}
}

func TestGrammar_Find(t *testing.T) {
	g, _ := Builtin().Lookup("%Y-%m-%d %H:%M:%S")

	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{"[2024-01-15 10:30:00] message", "2024-01-15 10:30:00", true},
		{"prefix 2024-1-5\t9:3:7 suffix", "2024-1-5\t9:3:7", true},
		{"no time here", "", false},
		{"2024-01-15", "", false},
	}
	for _, tt := range tests {
		got, ok := g.Find(tt.line)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Find(%q) = %q, %v; want %q, %v", tt.line, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRegistry_Immutable(t *testing.T) {
	r := Builtin()
	gs := r.Grammars()
	gs[0] = nil
	if r.Grammars()[0] == nil {
		t.Error("Grammars() exposed the registry's backing slice")
	}
}

func TestNewRegistry_Extra(t *testing.T) {
	clf, err := NewLayoutGrammar("clf", `\[(\d{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2})`, "02/Jan/2006:15:04:05")
	if err != nil {
		t.Fatalf("NewLayoutGrammar() error = %v", err)
	}
	dup, err := NewLayoutGrammar("%b %d %H:%M:%S", `(\d+)`, "2006")
	if err != nil {
		t.Fatalf("NewLayoutGrammar() error = %v", err)
	}

	r := NewRegistry(clf, dup)
	if r.Len() != Builtin().Len()+1 {
		t.Fatalf("Len() = %d, want %d", r.Len(), Builtin().Len()+1)
	}
	names := r.Names()
	if names[len(names)-1] != "clf" {
		t.Errorf("extra grammar is not last: %v", names)
	}

	e := NewExtractor(r)
	line := `127.0.0.1 - - [15/Jun/2024:10:30:00 +0000] "GET / HTTP/1.1" 200`
	m, ok := e.Match(line, nil)
	if !ok {
		t.Fatal("Match() found nothing with extra grammar")
	}
	if m.Grammar != clf {
		t.Errorf("Match() grammar = %q, want clf", m.Grammar.Name)
	}
	if m.Text != "15/Jun/2024:10:30:00" {
		t.Errorf("Match() text = %q", m.Text)
	}
	if want := Date(2024, time.June, 15, 10, 30, 0, 0); m.Instant != want {
		t.Errorf("Match() instant = %v, want %v", m.Instant, want)
	}
}

func TestNewLayoutGrammar_Yearless(t *testing.T) {
	g, err := NewLayoutGrammar("stamp", `^(\w{3} \d{2} \d{2}:\d{2}:\d{2})`, "Jan 02 15:04:05")
	if err != nil {
		t.Fatalf("NewLayoutGrammar() error = %v", err)
	}
	if g.HasYear {
		t.Error("HasYear = true for a layout without a year")
	}
	got, _, ok := NewExtractor(NewRegistry(g), WithYear(2021)).Extract("Mar 03 01:02:03 x", g)
	if !ok {
		t.Fatal("Extract() found nothing")
	}
	if want := Date(2021, time.March, 3, 1, 2, 3, 0); got != want {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
}

func TestNewLayoutGrammar_ZoneNotApplied(t *testing.T) {
	g, err := NewLayoutGrammar("zoned", `^(\S+)`, "2006-01-02T15:04:05.000-07:00")
	if err != nil {
		t.Fatalf("NewLayoutGrammar() error = %v", err)
	}
	got, _, ok := NewExtractor(NewRegistry(g)).Extract("2018-03-28T15:51:25.847+02:00 up", g)
	if !ok {
		t.Fatal("Extract() found nothing")
	}
	if want := Date(2018, time.March, 28, 15, 51, 25, 847000); got != want {
		t.Errorf("Extract() = %v, want the wall clock %v", got, want)
	}
}

func TestNewLayoutGrammar_Errors(t *testing.T) {
	tests := []struct {
		name, gname, pattern, layout string
	}{
		{"missing name", "", `(\d+)`, "2006"},
		{"invalid regex", "x", `[invalid`, "2006"},
		{"no capture group", "x", `\d+`, "2006"},
		{"missing layout", "x", `(\d+)`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLayoutGrammar(tt.gname, tt.pattern, tt.layout); err == nil {
				t.Error("NewLayoutGrammar() expected error")
			}
		})
	}
}

func TestInstant_Arithmetic(t *testing.T) {
	base := Date(2018, time.January, 1, 0, 0, 1, 0)

	if got := base.Add(-time.Second); got != Date(2018, time.January, 1, 0, 0, 0, 0) {
		t.Errorf("Add(-1s) = %v", got)
	}
	if got := base.Add(1500 * time.Microsecond); got.Micros()-base.Micros() != 1500 {
		t.Errorf("Add(1500us) moved by %d", got.Micros()-base.Micros())
	}
	if got := base.Add(time.Nanosecond); got != base {
		t.Errorf("Add(1ns) = %v, want truncation to %v", got, base)
	}
	if !base.Before(base.Add(time.Microsecond)) || base.After(base) {
		t.Error("Before/After disagree with ordering")
	}
	if base.Compare(base) != 0 || base.Compare(base.Add(time.Minute)) != -1 || base.Add(time.Minute).Compare(base) != 1 {
		t.Error("Compare() returned wrong sign")
	}
	if !base.Time().Equal(time.Date(2018, 1, 1, 0, 0, 1, 0, time.UTC)) {
		t.Errorf("Time() = %v", base.Time())
	}
	if got := base.String(); got != "2018-01-01 00:00:01.000000" {
		t.Errorf("String() = %q", got)
	}
}
