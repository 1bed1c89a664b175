package timestamp

import (
	"testing"
	"time"
)

func TestExtractor_CanonicalExamples(t *testing.T) {
	e := NewExtractor(nil, WithYear(2018))

	for _, g := range Builtin().Grammars() {
		t.Run(g.Name, func(t *testing.T) {
			line := "PRE" + g.Example + "POST"
			m, ok := e.Match(line, nil)
			if !ok {
				t.Fatalf("Match(%q) found no timestamp", line)
			}
			if m.Text != g.Example {
				t.Errorf("Match(%q).Text = %q, want %q", line, m.Text, g.Example)
			}
			if m.Grammar != g {
				t.Errorf("Match(%q).Grammar = %q, want %q", line, m.Grammar.Name, g.Name)
			}
		})
	}
}

func TestExtractor_OriginalExamples(t *testing.T) {
	e := NewExtractor(nil)
	examples := []string{
		"2018-02-08T17:06:33.088Z",
		"2018-03-28,15:51:25.847",
		"2017-07-13  18:20:42",
		"2018-03-28,15:51:25",
		"Apr04.10:08:08",
		"Apr04.10:08:08.800",
		"2013 Apr  8 17:15:02",
		"Apr  8 17:15:02",
		"Sep09.15:41:57",
		"Wed Apr  4 10:07:38 2018",
		"Apr  4 10:07:38 2018",
	}
	for _, ex := range examples {
		m, ok := e.Match("PRE"+ex+"POST", nil)
		if !ok || m.Text != ex {
			t.Errorf("Match(PRE%sPOST) = %q, %v; want %q", ex, m.Text, ok, ex)
		}
	}
}

func TestExtractor_Extract(t *testing.T) {
	e := NewExtractor(nil, WithYear(2020))

	tests := []struct {
		name    string
		line    string
		want    Instant
		grammar string
		wantOK  bool
	}{
		{
			name:    "iso with fraction",
			line:    "ts=2018-02-08T17:06:33.088Z level=info",
			want:    Date(2018, time.February, 8, 17, 6, 33, 88000),
			grammar: "%Y-%m-%dT%H:%M:%S.%fZ",
			wantOK:  true,
		},
		{
			name:    "comma fraction padded",
			line:    "2018-03-28,15:51:25.8 worker started",
			want:    Date(2018, time.March, 28, 15, 51, 25, 800000),
			grammar: "%Y-%m-%d,%H:%M:%S.%f",
			wantOK:  true,
		},
		{
			name:    "slashed date",
			line:    "2023/10/27 10:00:00 [error] 1#1: oops",
			want:    Date(2023, time.October, 27, 10, 0, 0, 0),
			grammar: "%Y/%m/%d %H:%M:%S",
			wantOK:  true,
		},
		{
			name:    "space separated",
			line:    "2017-07-13 18:20:42 INFO hello",
			want:    Date(2017, time.July, 13, 18, 20, 42, 0),
			grammar: "%Y-%m-%d %H:%M:%S",
			wantOK:  true,
		},
		{
			name:    "lowercase month names",
			line:    "wed apr  4 10:07:38 2018 kernel",
			want:    Date(2018, time.April, 4, 10, 7, 38, 0),
			grammar: "%a %b %d %H:%M:%S %Y",
			wantOK:  true,
		},
		{
			name:    "syslog uses processing year",
			line:    "Apr  8 17:15:02 host sshd[1]: accepted",
			want:    Date(2020, time.April, 8, 17, 15, 2, 0),
			grammar: "%b %d %H:%M:%S",
			wantOK:  true,
		},
		{
			name:   "no timestamp",
			line:   "  at com.example.Foo.bar(Foo.java:42)",
			wantOK: false,
		},
		{
			name:   "empty line",
			line:   "",
			wantOK: false,
		},
		{
			name:   "impossible date",
			line:   "2018-02-30 10:00:00 leap",
			wantOK: false,
		},
		{
			name:   "hour out of range",
			line:   "2018-02-01 25:00:00 late",
			wantOK: false,
		},
		{
			name:   "unknown month name",
			line:   "Foo 12 10:00:00 nothing",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, g, ok := e.Extract(tt.line, nil)
			if ok != tt.wantOK {
				t.Fatalf("Extract(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if got != tt.want {
				t.Errorf("Extract() = %v, want %v", got, tt.want)
			}
			if g.Name != tt.grammar {
				t.Errorf("Extract() grammar = %q, want %q", g.Name, tt.grammar)
			}
		})
	}
}

func TestExtractor_FixedGrammar(t *testing.T) {
	e := NewExtractor(nil, WithYear(2018))
	syslog, ok := Builtin().Lookup("%b %d %H:%M:%S")
	if !ok {
		t.Fatal("Lookup() missing syslog grammar")
	}

	// With a fixed grammar, other shapes in the line are ignored.
	line := "2018-01-01 00:00:00 relayed from Apr  8 17:15:02"
	got, g, ok := e.Extract(line, syslog)
	if !ok {
		t.Fatalf("Extract() with fixed grammar found nothing")
	}
	if g != syslog {
		t.Errorf("Extract() grammar = %q, want %q", g.Name, syslog.Name)
	}
	if want := Date(2018, time.April, 8, 17, 15, 2, 0); got != want {
		t.Errorf("Extract() = %v, want %v", got, want)
	}

	if _, _, ok := e.Extract("2018-01-01 00:00:00 only iso here", syslog); ok {
		t.Error("Extract() matched a line lacking the fixed grammar")
	}
}

func TestExtractor_MicrosecondArithmetic(t *testing.T) {
	e := NewExtractor(nil)
	got, _, ok := e.Extract("1970-01-01T00:00:01.000002Z", nil)
	if !ok {
		t.Fatal("Extract() found nothing")
	}
	if got.Micros() != 1_000_002 {
		t.Errorf("Micros() = %d, want 1000002", got.Micros())
	}
}

func TestExtractor_YearlessLeapDay(t *testing.T) {
	line := "Feb 29 12:00:00 host cron"
	if _, _, ok := NewExtractor(nil, WithYear(2023)).Extract(line, nil); ok {
		t.Error("Extract() accepted Feb 29 in a non-leap processing year")
	}
	if _, _, ok := NewExtractor(nil, WithYear(2024)).Extract(line, nil); !ok {
		t.Error("Extract() rejected Feb 29 in a leap processing year")
	}
}

func TestNewExtractor_DefaultYear(t *testing.T) {
	e := NewExtractor(nil)
	if e.Year() != time.Now().Year() {
		t.Errorf("Year() = %d, want %d", e.Year(), time.Now().Year())
	}
	if e.Registry() != Builtin() {
		t.Error("Registry() is not the built-in registry")
	}
}
