// Package merge moves extracted trees into place, overwriting collisions.
package merge

import (
	"errors"
	"io/fs"
	"path/filepath"

	"zipatch/internal/zp"
)

// Merger implements the two overwrite strategies used by a run:
// whole-entry replacement (MoveInto) when collapsing a root folder, and
// directory union (UnionInto) for the final placement at the destination.
type Merger struct {
	fsmgr  zp.FilesystemManager
	logger zp.Logger
}

var _ zp.Merger = (*Merger)(nil)

// NewMerger creates a Merger operating through fsmgr.
func NewMerger(fsmgr zp.FilesystemManager, logger zp.Logger) *Merger {
	return &Merger{fsmgr: fsmgr, logger: logger}
}

// MoveInto moves every first-level entry of srcDir into dstDir. A colliding
// destination entry is removed first, whatever its type. srcDir is left empty.
func (m *Merger) MoveInto(srcDir, dstDir string) error {
	entries, err := m.fsmgr.ReadDir(srcDir)
	if err != nil {
		return &zp.MergeError{Op: "read", Path: srcDir, Err: err}
	}
	for _, e := range entries {
		src := filepath.Join(srcDir, e.Name())
		dst := filepath.Join(dstDir, e.Name())
		if err := m.replace(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// UnionInto merges srcDir into dstDir. Directories present on both sides
// are merged recursively; any other collision is overwritten by the source
// entry. Source directories are removed once emptied.
func (m *Merger) UnionInto(srcDir, dstDir string) error {
	entries, err := m.fsmgr.ReadDir(srcDir)
	if err != nil {
		return &zp.MergeError{Op: "read", Path: srcDir, Err: err}
	}
	for _, e := range entries {
		if err := m.PlaceEntry(filepath.Join(srcDir, e.Name()), dstDir); err != nil {
			return err
		}
	}
	return nil
}

// PlaceEntry places the single entry src into dstDir under the same name.
func (m *Merger) PlaceEntry(src, dstDir string) error {
	dst := filepath.Join(dstDir, filepath.Base(src))

	srcInfo, err := m.fsmgr.Lstat(src)
	if err != nil {
		return &zp.MergeError{Op: "stat", Path: src, Err: err}
	}
	if srcInfo.IsDir() {
		// Stat, not Lstat: a symlink to a directory at the destination is
		// merged into rather than replaced.
		dstInfo, err := m.fsmgr.Stat(dst)
		if err == nil && dstInfo.IsDir() {
			if err := m.UnionInto(src, dst); err != nil {
				return err
			}
			if err := m.fsmgr.RemoveAll(src); err != nil {
				return &zp.MergeError{Op: "remove", Path: src, Err: err}
			}
			return nil
		}
	}
	return m.replace(src, dst)
}

// replace removes dst if it exists and moves src onto it.
func (m *Merger) replace(src, dst string) error {
	if _, err := m.fsmgr.Lstat(dst); err == nil {
		m.logger.Debug("overwriting", "path", dst)
		if err := m.fsmgr.RemoveAll(dst); err != nil {
			return &zp.MergeError{Op: "remove", Path: dst, Err: err}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &zp.MergeError{Op: "stat", Path: dst, Err: err}
	}

	if err := m.fsmgr.Move(src, dst); err != nil {
		return &zp.MergeError{Op: "move", Path: src, Err: err}
	}
	return nil
}
