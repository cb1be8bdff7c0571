package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"zipatch/internal/zp"
)

// StubExtractor writes a fixed tree into the destination instead of
// decoding anything. When Err is set, the tree is still written (to model
// a partial extraction) and Err is returned.
type StubExtractor struct {
	Tree map[string]string
	Err  error

	// Release, when non-nil, blocks Extract until it is closed.
	Release chan struct{}

	mu    sync.Mutex
	calls []string
}

var _ zp.Extractor = (*StubExtractor)(nil)

func (e *StubExtractor) Extract(ctx context.Context, archivePath, destDir string, progress zp.ProgressFunc) error {
	e.mu.Lock()
	e.calls = append(e.calls, archivePath)
	e.mu.Unlock()

	if e.Release != nil {
		<-e.Release
	}

	names := make([]string, 0, len(e.Tree))
	for name := range e.Tree {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(destDir, filepath.FromSlash(strings.TrimSuffix(name, "/")))
		if strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(path, 0755); err != nil {
				return err
			}
		} else {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(e.Tree[name]), 0644); err != nil {
				return err
			}
		}
		if progress != nil {
			progress(name)
		}
	}
	return e.Err
}

// Calls returns the archive paths Extract was called with.
func (e *StubExtractor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}
