package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"zipatch/internal/config"
	zfs "zipatch/internal/fs"
	"zipatch/internal/merge"
	"zipatch/internal/zp"
)

// seqIDs returns predictable scratch names.
type seqIDs struct{ n int }

func (g *seqIDs) New() string {
	g.n++
	return fmt.Sprintf("%d", g.n)
}

func newTestSA(t *testing.T, ignore ...string) *stagingArea {
	t.Helper()
	fsmgr := zfs.NewOSFilesystemManager()
	sa, err := NewStagingArea(
		filepath.Join(t.TempDir(), "Temp"),
		fsmgr,
		merge.NewMerger(fsmgr, zp.NewNopLogger()),
		zfs.NewIgnoreMatcher(ignore),
		&seqIDs{},
		zp.NewNopLogger(),
	)
	if err != nil {
		t.Fatalf("NewStagingArea() error = %v", err)
	}
	if err := sa.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	return sa.(*stagingArea)
}

// write creates files (and their parents) relative to root; names ending
// in "/" are created as directories.
func write(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(path, 0755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// list returns every path under root, slash separated and sorted.
func list(t *testing.T, root string) []string {
	t.Helper()
	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			rel += "/"
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		t.Fatalf("walking %s: %v", root, err)
	}
	sort.Strings(paths)
	return paths
}

func TestStagingArea_Clear(t *testing.T) {
	t.Run("creates a missing directory", func(t *testing.T) {
		sa := newTestSA(t)
		if err := os.RemoveAll(sa.Dir()); err != nil {
			t.Fatal(err)
		}
		if err := sa.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if info, err := os.Stat(sa.Dir()); err != nil || !info.IsDir() {
			t.Fatalf("staging directory not created: %v", err)
		}
	})

	t.Run("removes every entry but keeps the directory", func(t *testing.T) {
		sa := newTestSA(t)
		write(t, sa.Dir(), "a.txt", "mod/deep/file.esp", "empty/")

		if err := sa.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if got := list(t, sa.Dir()); len(got) != 0 {
			t.Errorf("staging not empty after Clear(): %v", got)
		}
	})
}

func TestStagingArea_SingleRoot(t *testing.T) {
	tests := []struct {
		name     string
		entries  []string
		wantRoot string
		wantOK   bool
	}{
		{name: "empty", entries: nil, wantOK: false},
		{name: "one folder", entries: []string{"ModA/file.txt"}, wantRoot: "ModA", wantOK: true},
		{name: "one empty folder", entries: []string{"ModA/"}, wantRoot: "ModA", wantOK: true},
		{name: "one file", entries: []string{"readme.txt"}, wantOK: false},
		{name: "folder and file", entries: []string{"ModA/x", "readme.txt"}, wantOK: false},
		{name: "two folders", entries: []string{"a/", "b/"}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sa := newTestSA(t)
			write(t, sa.Dir(), tt.entries...)

			root, ok, err := sa.SingleRoot()
			if err != nil {
				t.Fatalf("SingleRoot() error = %v", err)
			}
			if ok != tt.wantOK || root != tt.wantRoot {
				t.Errorf("SingleRoot() = (%q, %v), want (%q, %v)", root, ok, tt.wantRoot, tt.wantOK)
			}
		})
	}

	t.Run("symlink to a folder does not count", func(t *testing.T) {
		sa := newTestSA(t)
		target := t.TempDir()
		if err := os.Symlink(target, filepath.Join(sa.Dir(), "link")); err != nil {
			t.Fatal(err)
		}
		if _, ok, err := sa.SingleRoot(); err != nil || ok {
			t.Errorf("SingleRoot() = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("recomputed after mutation", func(t *testing.T) {
		sa := newTestSA(t)
		write(t, sa.Dir(), "ModA/x")
		if _, ok, _ := sa.SingleRoot(); !ok {
			t.Fatal("SingleRoot() = false before mutation")
		}
		write(t, sa.Dir(), "extra.txt")
		if _, ok, _ := sa.SingleRoot(); ok {
			t.Error("SingleRoot() = true after adding a second entry")
		}
	})
}

func TestStagingArea_Collapse(t *testing.T) {
	t.Run("moves children up and removes the root", func(t *testing.T) {
		sa := newTestSA(t)
		write(t, sa.Dir(), "ModA/Data/x.esp", "ModA/readme.txt")

		name, err := sa.Collapse()
		if err != nil {
			t.Fatalf("Collapse() error = %v", err)
		}
		if name != "ModA" {
			t.Errorf("Collapse() = %q, want %q", name, "ModA")
		}
		want := []string{"Data/", "Data/x.esp", "readme.txt"}
		if got := list(t, sa.Dir()); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("staging = %v, want %v", got, want)
		}
	})

	t.Run("child named like the root", func(t *testing.T) {
		sa := newTestSA(t)
		write(t, sa.Dir(), "Mod/Mod/inner.txt", "Mod/other.txt")

		if _, err := sa.Collapse(); err != nil {
			t.Fatalf("Collapse() error = %v", err)
		}
		want := []string{"Mod/", "Mod/inner.txt", "other.txt"}
		if got := list(t, sa.Dir()); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("staging = %v, want %v", got, want)
		}
	})

	t.Run("fails without a single root", func(t *testing.T) {
		sa := newTestSA(t)
		write(t, sa.Dir(), "a.txt", "b/")
		if _, err := sa.Collapse(); err == nil {
			t.Error("Collapse() expected error")
		}
	})
}

func TestStagingArea_Prune(t *testing.T) {
	t.Run("removes matching entries at any depth", func(t *testing.T) {
		sa := newTestSA(t, "__MACOSX", ".DS_Store")
		write(t, sa.Dir(), "__MACOSX/ModA/._x", "ModA/.DS_Store", "ModA/x.esp")

		n, err := sa.Prune()
		if err != nil {
			t.Fatalf("Prune() error = %v", err)
		}
		if n != 2 {
			t.Errorf("Prune() = %d, want 2", n)
		}
		want := []string{"ModA/", "ModA/x.esp"}
		if got := list(t, sa.Dir()); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("staging = %v, want %v", got, want)
		}
		if _, ok, _ := sa.SingleRoot(); !ok {
			t.Error("SingleRoot() = false after pruning clutter")
		}
	})

	t.Run("no patterns removes nothing", func(t *testing.T) {
		sa := newTestSA(t)
		write(t, sa.Dir(), "__MACOSX/x")
		n, err := sa.Prune()
		if err != nil || n != 0 {
			t.Errorf("Prune() = %d, %v; want 0, nil", n, err)
		}
	})
}

func TestStagingArea_Drain(t *testing.T) {
	t.Run("empties the directory", func(t *testing.T) {
		sa := newTestSA(t)
		write(t, sa.Dir(), "leftover/")
		if err := sa.Drain(); err != nil {
			t.Fatalf("Drain() error = %v", err)
		}
		names, err := sa.Entries()
		if err != nil {
			t.Fatalf("Entries() error = %v", err)
		}
		if len(names) != 0 {
			t.Errorf("Entries() = %v, want none", names)
		}
	})

	t.Run("missing directory is not an error", func(t *testing.T) {
		sa := newTestSA(t)
		if err := os.RemoveAll(sa.Dir()); err != nil {
			t.Fatal(err)
		}
		if err := sa.Drain(); err != nil {
			t.Errorf("Drain() error = %v", err)
		}
	})
}

func TestNewStagingAreaFromConfig(t *testing.T) {
	fsmgr := zfs.NewOSFilesystemManager()

	t.Run("filesystem", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "Temp")
		sa, err := NewStagingAreaFromConfig(config.StagingConfig{Type: "filesystem", StagingDir: dir}, fsmgr, zp.NewNopLogger())
		if err != nil {
			t.Fatalf("NewStagingAreaFromConfig() error = %v", err)
		}
		if sa.Dir() != dir {
			t.Errorf("Dir() = %q, want %q", sa.Dir(), dir)
		}
		if err := sa.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	})

	t.Run("filesystem without staging_dir", func(t *testing.T) {
		if _, err := NewStagingAreaFromConfig(config.StagingConfig{Type: "filesystem"}, fsmgr, zp.NewNopLogger()); err == nil {
			t.Error("expected error for missing staging_dir")
		}
	})

	t.Run("temp is removed on close", func(t *testing.T) {
		sa, err := NewStagingAreaFromConfig(config.StagingConfig{Type: "temp"}, fsmgr, zp.NewNopLogger())
		if err != nil {
			t.Fatalf("NewStagingAreaFromConfig() error = %v", err)
		}
		dir := sa.Dir()
		if err := sa.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("temp staging directory still exists: %v", err)
		}
	})

	t.Run("ignore file patterns are added", func(t *testing.T) {
		ignoreFile := filepath.Join(t.TempDir(), "ignore")
		if err := os.WriteFile(ignoreFile, []byte("*.url\n"), 0644); err != nil {
			t.Fatal(err)
		}
		sa, err := NewStagingAreaFromConfig(config.StagingConfig{
			Type:       "filesystem",
			StagingDir: filepath.Join(t.TempDir(), "Temp"),
			Ignore:     []string{"__MACOSX"},
			IgnoreFile: ignoreFile,
		}, fsmgr, zp.NewNopLogger())
		if err != nil {
			t.Fatalf("NewStagingAreaFromConfig() error = %v", err)
		}
		if err := sa.Clear(); err != nil {
			t.Fatal(err)
		}
		write(t, sa.Dir(), "__MACOSX/x", "Nexus.url", "mod.esp")

		n, err := sa.Prune()
		if err != nil {
			t.Fatalf("Prune() error = %v", err)
		}
		if n != 2 {
			t.Errorf("Prune() = %d, want 2", n)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewStagingAreaFromConfig(config.StagingConfig{Type: "memory"}, fsmgr, zp.NewNopLogger()); err == nil {
			t.Error("expected error for unknown type")
		}
	})
}
