package commands

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ccollicutt/logtraveler/pkg/window"
)

const banner = "========================="

// searchTree creates a search root with an app log inside the window and an
// older log that is rejected without being filtered.
func searchTree(t *testing.T) (root, app, old string) {
	t.Helper()
	root = t.TempDir()
	app = filepath.Join(root, "var", "log", "app.log")
	old = filepath.Join(root, "var", "log", "old.log")
	writeFile(t, app, orderedLog)
	writeFile(t, old, "2017-06-01 00:00:00 old\n2017-06-01 00:00:01 older\n")
	return root, app, old
}

func header(path string) string {
	return "\n" + banner + " " + path + " " + banner + "\n\n"
}

func TestSearchCommand_Text(t *testing.T) {
	clearEnv(t)
	root, app, _ := searchTree(t)

	out, _, err := execute(t, NewSearchCommand(), "--dir", root, "-d", "2018-01-01 00:00:00+5s", "--no-color")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}

	want := header(app) + "1: 2018-01-01 00:00:01 start\n2:   trace\n\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestSearchCommand_Color(t *testing.T) {
	clearEnv(t)
	root, _, _ := searchTree(t)

	out, _, err := execute(t, NewSearchCommand(), "--dir", root, "-d", "2018-01-01 00:00:00+5s")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}
	if !strings.Contains(out, "\x1b[93m1:\x1b[0m 2018-01-01 00:00:01 start") {
		t.Errorf("output has no coloured line number: %q", out)
	}
}

func TestSearchCommand_NoColorEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("NO_COLOR", "1")
	root, _, _ := searchTree(t)

	out, _, err := execute(t, NewSearchCommand(), "--dir", root, "-d", "2018-01-01 00:00:00+5s")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("output is coloured with NO_COLOR set: %q", out)
	}
}

func TestSearchCommand_NoLineNumbers(t *testing.T) {
	clearEnv(t)
	root, app, _ := searchTree(t)

	out, _, err := execute(t, NewSearchCommand(), "--dir", root, "-d", "2018-01-01 00:00:00+5s", "--no-lineno")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}

	want := header(app) + "2018-01-01 00:00:01 start\n  trace\n\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestSearchCommand_PairWindow(t *testing.T) {
	clearEnv(t)
	root, app, old := searchTree(t)

	out, _, err := execute(t, NewSearchCommand(), "--dir", root, "--no-color",
		"-d", "2018-01-01 00:00:10@2017-06-01 00:00:01")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}

	want := header(app) +
		"1: 2018-01-01 00:00:01 start\n2:   trace\n3: 2018-01-01 00:00:09 late\n\n" +
		header(old) +
		"2: 2017-06-01 00:00:01 older\n\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestSearchCommand_NothingMatches(t *testing.T) {
	clearEnv(t)
	root, _, _ := searchTree(t)

	out, _, err := execute(t, NewSearchCommand(), "--dir", root, "-d", "2030-01-01 00:00:00+-1m")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}
	if out != "" {
		t.Errorf("output = %q, want nothing", out)
	}
}

func TestSearchCommand_JSON(t *testing.T) {
	clearEnv(t)
	root, app, _ := searchTree(t)

	out, _, err := execute(t, NewSearchCommand(), "--dir", root, "-d", "2018-01-01 00:00:00+5s", "-o", "json")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}

	var records []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0]["file"] != app || records[0]["timestamp"] != "2018-01-01T00:00:01.000000Z" {
		t.Errorf("first record = %v", records[0])
	}
	if _, ok := records[1]["timestamp"]; ok || records[1]["text"] != "  trace" {
		t.Errorf("continuation record = %v", records[1])
	}
}

func TestSearchCommand_InvalidWindow(t *testing.T) {
	clearEnv(t)
	root, _, _ := searchTree(t)

	out, _, err := execute(t, NewSearchCommand(), "--dir", root, "-d", "yesterday at noon")
	var invalid *window.InvalidExpressionError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want InvalidExpressionError", err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("usage not printed: %q", out)
	}
}

func TestSearchCommand_WindowRequired(t *testing.T) {
	clearEnv(t)
	if _, _, err := execute(t, NewSearchCommand(), "--dir", t.TempDir()); err == nil {
		t.Error("Expected error without -d")
	}
}

func TestSearchCommand_WorkersKeepOrder(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	for i := 0; i < 8; i++ {
		writeFile(t, filepath.Join(root, "logs", fmt.Sprintf("app%d.log", i)),
			fmt.Sprintf("2018-01-01 00:00:0%d file %d\n  detail %d\n", i%5, i, i))
	}

	args := []string{"--dir", root, "--path", "logs", "--pat", "*.log", "-d", "2018-01-01 00:00:00+4s", "--no-color"}
	sequential, _, err := execute(t, NewSearchCommand(), args...)
	if err != nil {
		t.Fatalf("search error = %v", err)
	}
	concurrent, _, err := execute(t, NewSearchCommand(), append(args, "--workers", "4")...)
	if err != nil {
		t.Fatalf("search --workers error = %v", err)
	}

	if sequential != concurrent {
		t.Errorf("output differs with workers:\n%s\n---\n%s", sequential, concurrent)
	}
	if strings.Count(sequential, banner+"\n") != 8 {
		t.Errorf("expected 8 file blocks:\n%s", sequential)
	}
}

func TestSearchCommand_UnreadableFileIsSkipped(t *testing.T) {
	clearEnv(t)
	root, app, _ := searchTree(t)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, _ = zw.Write([]byte(strings.Repeat("2018-01-01 00:00:02 zipped\n", 500)))
	_ = zw.Close()
	broken := filepath.Join(root, "var", "log", "broken.log")
	if err := os.WriteFile(broken, gz.Bytes()[:gz.Len()/2], 0644); err != nil {
		t.Fatal(err)
	}

	out, stderr, err := execute(t, NewSearchCommand(), "--dir", root, "-d", "2018-01-01 00:00:00+5s", "--no-color")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}
	if !strings.Contains(stderr, "logtraveler: skipping "+broken) {
		t.Errorf("stderr = %q, want warning for %s", stderr, broken)
	}
	if !strings.Contains(out, header(app)) {
		t.Errorf("readable file missing from output: %q", out)
	}
}

func TestSearchCommand_MetricsFile(t *testing.T) {
	clearEnv(t)
	root, _, _ := searchTree(t)
	metricsPath := filepath.Join(t.TempDir(), "logtraveler.prom")

	_, _, err := execute(t, NewSearchCommand(), "--dir", root, "-d", "2018-01-01 00:00:00+5s", "--metrics-file", metricsPath)
	if err != nil {
		t.Fatalf("search error = %v", err)
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{
		`logtraveler_files_total{outcome="emitted"} 1`,
		`logtraveler_files_total{outcome="fast_rejected"} 1`,
		`logtraveler_lines_emitted_total{kind="continuation"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}

func TestSearchConfig_Flags(t *testing.T) {
	clearEnv(t)
	opts := &SearchOptions{}
	cmd := newSearchCommand(opts)
	err := cmd.ParseFlags([]string{
		"-l", "-d", "2018-01-01 00:00:00",
		"--path", "a:b,c", "--pat", "*.log, *.gz",
		"--no-color", "--no-lineno", "--workers", "3", "--sample-lines", "20", "-o", "json",
	})
	if err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg, err := searchConfig(context.Background(), cmd, opts)
	if err != nil {
		t.Fatalf("searchConfig() error = %v", err)
	}
	if cfg.Search.Dir != "/" {
		t.Errorf("Dir = %q, want /", cfg.Search.Dir)
	}
	if strings.Join(cfg.Search.Paths, "|") != "a|b|c" {
		t.Errorf("Paths = %v", cfg.Search.Paths)
	}
	if strings.Join(cfg.Search.Patterns, "|") != "*.log|*.gz" {
		t.Errorf("Patterns = %v", cfg.Search.Patterns)
	}
	if cfg.Output.Color || cfg.Output.LineNumbers || cfg.Output.Format != "json" {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if cfg.Scan.Workers != 3 || cfg.Scan.SampleLines != 20 {
		t.Errorf("Scan = %+v", cfg.Scan)
	}
}

func TestSearchConfig_FlagsOverrideConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "logtraveler.yaml")
	writeFile(t, configPath, `search:
  dir: `+dir+`
  paths: ["*"]
output:
  format: json
scan:
  workers: 2
`)

	opts := &SearchOptions{}
	cmd := newSearchCommand(opts)
	if err := cmd.ParseFlags([]string{"--config", configPath, "-d", "x", "-o", "text"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg, err := searchConfig(context.Background(), cmd, opts)
	if err != nil {
		t.Fatalf("searchConfig() error = %v", err)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Format = %q, want the flag's text", cfg.Output.Format)
	}
	if cfg.Scan.Workers != 2 {
		t.Errorf("Workers = %d, want the config file's 2", cfg.Scan.Workers)
	}
	if cfg.Search.Dir != dir || len(cfg.Search.Paths) != 1 || cfg.Search.Paths[0] != "*" {
		t.Errorf("Search = %+v", cfg.Search)
	}
}

func TestSearchConfig_InvalidFlag(t *testing.T) {
	clearEnv(t)
	opts := &SearchOptions{}
	cmd := newSearchCommand(opts)
	if err := cmd.ParseFlags([]string{"-d", "x", "--workers", "0"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if _, err := searchConfig(context.Background(), cmd, opts); err == nil {
		t.Error("Expected error for --workers 0")
	}
}

func TestSearchCommand_FollowStopsWhenNothingToFollow(t *testing.T) {
	clearEnv(t)
	root, app, _ := searchTree(t)

	// app.log already holds a line past the window end, so it is not followed.
	out, _, err := execute(t, NewSearchCommand(), "--dir", root, "--pat", "app.log",
		"-d", "2018-01-01 00:00:00+5s", "--no-color", "--follow")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}
	want := header(app) + "1: 2018-01-01 00:00:01 start\n2:   trace\n\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

// syncBuffer is a bytes.Buffer safe to read while the command writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, b *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !strings.Contains(b.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q in %q", want, b.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSearchCommand_FollowPrintsAppendedLines(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	app := filepath.Join(root, "var", "log", "app.log")
	quiet := filepath.Join(root, "var", "log", "quiet.log")
	writeFile(t, app, "2018-01-01 00:00:01 start\n")
	writeFile(t, quiet, "2018-01-01 00:00:00 before\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	cmd := NewSearchCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"--dir", root, "-d", "2018-01-01 00:00:01+1m", "--no-color", "--follow"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	waitFor(t, &out, "1: 2018-01-01 00:00:01 start\n")

	appendTo := func(path, text string) {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.WriteString(text); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}

	appendTo(app, "2018-01-01 00:00:02 appended\n  more\n")
	waitFor(t, &out, "2: 2018-01-01 00:00:02 appended\n3:   more\n")

	// quiet.log printed nothing so far; its banner comes with its first line.
	appendTo(quiet, "2018-01-01 00:00:30 woke up\n")
	waitFor(t, &out, header(quiet)+"2: 2018-01-01 00:00:30 woke up\n")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("search error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("search did not stop after cancellation")
	}
}
