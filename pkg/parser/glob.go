package parser

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WalkAll is the subdirectory pattern that selects a full recursive walk.
const WalkAll = "*"

// SplitList splits a comma-separated list, dropping empty elements.
func SplitList(s string) []string {
	return split(s, ",")
}

// SplitPaths splits a list of subdirectories separated by commas or colons.
func SplitPaths(s string) []string {
	return split(s, ",:")
}

func split(s, seps string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(seps, r) }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Discover returns the log files under root. When paths is exactly ["*"],
// root is walked recursively (symlinked directories are not followed) and
// every file whose base name matches one of patterns is returned. Otherwise
// each root/path/pattern combination is globbed and regular files are kept.
//
// Results are deduplicated and ordered by the combination that produced
// them; matches within a single glob or directory are sorted.
func Discover(root string, paths, patterns []string) ([]string, error) {
	for _, pat := range patterns {
		if _, err := filepath.Match(pat, ""); err != nil {
			return nil, fmt.Errorf("invalid file pattern %q: %w", pat, err)
		}
	}

	if len(paths) == 1 && paths[0] == WalkAll {
		return walk(root, patterns)
	}

	seen := make(map[string]bool)
	var result []string
	for _, dir := range paths {
		for _, pat := range patterns {
			glob := filepath.Join(root, dir, pat)
			matches, err := filepath.Glob(glob)
			if err != nil {
				return nil, fmt.Errorf("invalid glob pattern %q: %w", glob, err)
			}
			sort.Strings(matches)
			for _, match := range matches {
				if seen[match] || !isRegularFile(match) {
					continue
				}
				seen[match] = true
				result = append(result, match)
			}
		}
	}
	return result, nil
}

func walk(root string, patterns []string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("search root: %w", err)
	}

	var result []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped, not fatal.
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		for _, pat := range patterns {
			if ok, _ := filepath.Match(pat, d.Name()); ok {
				if isRegularFile(path) {
					result = append(result, path)
				}
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ExpandArgs turns file arguments into paths. An argument containing glob
// metacharacters is replaced by its matches in sorted order; other arguments,
// and patterns that match nothing, are kept as given so the caller can report
// them as missing. Duplicates are dropped.
func ExpandArgs(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool, len(args))
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[") {
			add(arg)
			continue
		}
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			add(arg)
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return paths, nil
}
