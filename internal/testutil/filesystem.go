package testutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	zfs "zipatch/internal/fs"
	"zipatch/internal/zp"
)

// FaultyFilesystemManager wraps the real filesystem and fails selected
// operations. Failures are keyed by the base name of the path involved.
type FaultyFilesystemManager struct {
	zp.FilesystemManager

	mu             sync.Mutex
	moveFailures   map[string]error
	removeFailures map[string]error
	moved          []string
}

// NewFaultyFilesystemManager creates a FaultyFilesystemManager that
// behaves like the OS filesystem until a failure is registered.
func NewFaultyFilesystemManager() *FaultyFilesystemManager {
	return &FaultyFilesystemManager{
		FilesystemManager: zfs.NewOSFilesystemManager(),
		moveFailures:      make(map[string]error),
		removeFailures:    make(map[string]error),
	}
}

// FailMove makes every Move whose source is named name fail with err.
func (m *FaultyFilesystemManager) FailMove(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moveFailures[name] = err
}

// FailRemove makes every RemoveAll of a path named name fail with err.
func (m *FaultyFilesystemManager) FailRemove(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeFailures[name] = err
}

func (m *FaultyFilesystemManager) Move(src, dst string) error {
	m.mu.Lock()
	err := m.moveFailures[filepath.Base(src)]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if err := m.FilesystemManager.Move(src, dst); err != nil {
		return err
	}
	m.mu.Lock()
	m.moved = append(m.moved, src)
	m.mu.Unlock()
	return nil
}

func (m *FaultyFilesystemManager) RemoveAll(path string) error {
	m.mu.Lock()
	err := m.removeFailures[filepath.Base(path)]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.FilesystemManager.RemoveAll(path)
}

// Moved returns the source paths of successful moves, in order.
func (m *FaultyFilesystemManager) Moved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.moved...)
}

// WriteTree creates files and directories under root. Keys are slash
// separated relative paths; a key ending in "/" is a directory, any other
// key is a file with the given content.
func WriteTree(t *testing.T, root string, entries map[string]string) {
	t.Helper()
	for rel, content := range entries {
		path := filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(rel, "/")))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(path, 0755); err != nil {
				t.Fatalf("creating %s: %v", rel, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("creating parent of %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}
}

// ReadTree returns the tree under root in the format accepted by
// WriteTree. Symlinks are reported as "-> target".
func ReadTree(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			tree[rel] = "-> " + target
		case d.IsDir():
			tree[rel+"/"] = ""
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			tree[rel] = string(data)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reading tree %s: %v", root, err)
	}
	return tree
}

// AssertTree fails the test unless the tree under root equals want.
func AssertTree(t *testing.T, root string, want map[string]string) {
	t.Helper()
	got := ReadTree(t, root)
	if diff := DiffTrees(got, want); diff != "" {
		t.Errorf("tree %s mismatch:\n%s", root, diff)
	}
}

// DiffTrees describes the differences between two trees, or returns "".
func DiffTrees(got, want map[string]string) string {
	keys := make(map[string]struct{})
	for k := range got {
		keys[k] = struct{}{}
	}
	for k := range want {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var b strings.Builder
	for _, k := range sorted {
		g, gok := got[k]
		w, wok := want[k]
		switch {
		case !gok:
			fmt.Fprintf(&b, "  missing %s\n", k)
		case !wok:
			fmt.Fprintf(&b, "  unexpected %s\n", k)
		case g != w:
			fmt.Fprintf(&b, "  %s = %q, want %q\n", k, g, w)
		}
	}
	return b.String()
}
