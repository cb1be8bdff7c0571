package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreMatcher decides which extracted entries are archive clutter
// (e.g. "__MACOSX", ".DS_Store") to be dropped from the staging area.
//
// Pattern syntax is a small subset of .gitignore:
//
//	name      any entry called name, at any depth
//	name/     only directories called name
//	/name     only name directly under the staging root
//	a/b       the path a/b relative to the staging root
//
// Each segment is a filepath.Match glob.
type IgnoreMatcher struct {
	rules []ignoreRule
}

type ignoreRule struct {
	glob     string
	anchored bool // glob is matched against the whole relative path
	dirOnly  bool
}

// NewIgnoreMatcher compiles raw patterns. Blank lines, lines starting
// with '#' and malformed globs are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		var r ignoreRule
		if strings.HasSuffix(raw, "/") {
			r.dirOnly = true
			raw = strings.TrimRight(raw, "/")
		}
		if strings.HasPrefix(raw, "/") {
			r.anchored = true
			raw = strings.TrimLeft(raw, "/")
		}
		if strings.Contains(raw, "/") {
			r.anchored = true
		}
		if raw == "" {
			continue
		}
		if _, err := path.Match(raw, ""); err != nil {
			continue
		}
		r.glob = raw
		m.rules = append(m.rules, r)
	}
	return m
}

// Empty reports whether the matcher has no patterns. A nil matcher is empty.
func (m *IgnoreMatcher) Empty() bool {
	return m == nil || len(m.rules) == 0
}

// Match reports whether the entry at rel, relative to the staging root,
// should be dropped. isDir tells whether the entry is a directory.
func (m *IgnoreMatcher) Match(rel string, isDir bool) bool {
	if m.Empty() || rel == "" || rel == "." {
		return false
	}
	slashed := filepath.ToSlash(rel)
	base := path.Base(slashed)

	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		subject := base
		if r.anchored {
			subject = slashed
		}
		if ok, _ := path.Match(r.glob, subject); ok {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads patterns, one per line. An empty path or a missing
// file yields no patterns.
func ParseIgnoreFile(name string) ([]string, error) {
	if name == "" {
		return nil, nil
	}
	f, err := os.Open(name)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file %s: %w", name, err)
	}
	return lines, nil
}
