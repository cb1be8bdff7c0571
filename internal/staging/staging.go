package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	zfs "zipatch/internal/fs"
	"zipatch/internal/zp"
)

// treeMover moves the first-level entries of one directory into another,
// replacing colliding entries whole.
type treeMover interface {
	MoveInto(srcDir, dstDir string) error
}

// collapsePrefix names the scratch directory a root folder is renamed to
// while its children move up.
const collapsePrefix = ".zipatch-collapse-"

// stagingArea implements zp.StagingArea on a single directory.
type stagingArea struct {
	dir       string
	fsmgr     zp.FilesystemManager
	mover     treeMover
	ignore    *zfs.IgnoreMatcher
	idgen     zp.IDGenerator
	logger    zp.Logger
	ephemeral bool
}

var _ zp.StagingArea = (*stagingArea)(nil)

// NewStagingArea creates a staging area rooted at dir. The directory is
// created by the first Clear.
func NewStagingArea(dir string, fsmgr zp.FilesystemManager, mover treeMover, ignore *zfs.IgnoreMatcher, idgen zp.IDGenerator, logger zp.Logger) (zp.StagingArea, error) {
	if dir == "" {
		return nil, fmt.Errorf("staging directory must be set")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving staging directory: %w", err)
	}
	return &stagingArea{
		dir:    abs,
		fsmgr:  fsmgr,
		mover:  mover,
		ignore: ignore,
		idgen:  idgen,
		logger: logger,
	}, nil
}

func (s *stagingArea) Dir() string {
	return s.dir
}

// Clear deletes every first-level entry, creating the directory if needed.
func (s *stagingArea) Clear() error {
	if err := s.fsmgr.MkdirAll(s.dir); err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	return s.removeEntries()
}

// Drain removes whatever is left after a move. A missing directory is fine.
func (s *stagingArea) Drain() error {
	err := s.removeEntries()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *stagingArea) removeEntries() error {
	entries, err := s.fsmgr.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading staging directory: %w", err)
	}
	for _, e := range entries {
		if err := s.fsmgr.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	if len(entries) > 0 {
		s.logger.Debug("staging area cleared", "entries", len(entries))
	}
	return nil
}

// Prune removes entries matching the ignore patterns, at any depth.
func (s *stagingArea) Prune() (int, error) {
	if s.ignore.Empty() {
		return 0, nil
	}

	var matched []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == s.dir {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		if !s.ignore.Match(rel, d.IsDir()) {
			return nil
		}
		matched = append(matched, path)
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking staging directory: %w", err)
	}

	for _, path := range matched {
		if err := s.fsmgr.RemoveAll(path); err != nil {
			return 0, fmt.Errorf("removing ignored entry: %w", err)
		}
		s.logger.Debug("ignored entry removed", "path", path)
	}
	return len(matched), nil
}

func (s *stagingArea) Entries() ([]string, error) {
	entries, err := s.fsmgr.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading staging directory: %w", err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// SingleRoot reports the name of the only first-level entry when that
// entry is a real directory. A symlink to a directory does not count.
func (s *stagingArea) SingleRoot() (string, bool, error) {
	entries, err := s.fsmgr.ReadDir(s.dir)
	if err != nil {
		return "", false, fmt.Errorf("reading staging directory: %w", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return "", false, nil
	}
	return entries[0].Name(), true, nil
}

// Collapse replaces the single root folder with its children. The folder
// is first renamed to a scratch name so a child sharing the folder's name
// can move up without colliding with its parent.
func (s *stagingArea) Collapse() (string, error) {
	name, ok, err := s.SingleRoot()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("staging area does not hold a single root folder")
	}

	scratch := filepath.Join(s.dir, collapsePrefix+s.idgen.New())
	if err := s.fsmgr.Move(filepath.Join(s.dir, name), scratch); err != nil {
		return "", fmt.Errorf("renaming root folder: %w", err)
	}
	if err := s.mover.MoveInto(scratch, s.dir); err != nil {
		return "", fmt.Errorf("moving %s contents up: %w", name, err)
	}
	if err := s.fsmgr.RemoveAll(scratch); err != nil {
		return "", fmt.Errorf("removing root folder: %w", err)
	}
	return name, nil
}

// Close deletes the directory of an ephemeral staging area. A configured
// staging directory is kept.
func (s *stagingArea) Close() error {
	if !s.ephemeral {
		return nil
	}
	if err := s.fsmgr.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing staging directory: %w", err)
	}
	return nil
}
