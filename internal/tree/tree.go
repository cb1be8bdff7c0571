// Package tree renders a read-only textual outline of a directory.
package tree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"zipatch/internal/zp"
)

const (
	Header       = "📁 Structure:"
	folderMarker = "📂"
	fileMarker   = "📄"
	skipMarker   = "⚠️"
	indent       = "    "
)

// Summarizer lists a directory's first-level entries. Each first-level
// folder is followed by everything below it, indented one level per depth.
// Folders below the first level that cannot be read are noted and skipped.
type Summarizer struct {
	readDir func(name string) ([]fs.DirEntry, error)
}

var _ zp.Summarizer = (*Summarizer)(nil)

func NewSummarizer() *Summarizer {
	return &Summarizer{readDir: os.ReadDir}
}

// Summarize returns the outline of dir. Symlinks are listed but not followed.
func (s *Summarizer) Summarize(dir string) (string, error) {
	entries, err := s.readDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", dir, err)
	}

	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')
	for _, e := range entries {
		writeLine(&b, 0, e)
		if e.IsDir() {
			s.walk(&b, filepath.Join(dir, e.Name()), 1)
		}
	}
	return b.String(), nil
}

// walk writes the entries of dir at depth, descending into folders.
// Entries read before a failure are still listed.
func (s *Summarizer) walk(b *strings.Builder, dir string, depth int) {
	entries, err := s.readDir(dir)
	for _, e := range entries {
		writeLine(b, depth, e)
		if e.IsDir() {
			s.walk(b, filepath.Join(dir, e.Name()), depth+1)
		}
	}
	if err != nil {
		fmt.Fprintf(b, "%s%s could not be read, skipped\n", strings.Repeat(indent, depth), skipMarker)
	}
}

func writeLine(b *strings.Builder, depth int, d fs.DirEntry) {
	b.WriteString(strings.Repeat(indent, depth))
	if d.IsDir() {
		fmt.Fprintf(b, "%s %s/\n", folderMarker, d.Name())
	} else {
		fmt.Fprintf(b, "%s %s\n", fileMarker, d.Name())
	}
}
