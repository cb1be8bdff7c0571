package zp

import "io/fs"

// FilesystemManager provides the filesystem operations the staging area and
// the merger are built on. It abstracts file access so failures can be
// injected in tests.
type FilesystemManager interface {
	// Resolve validates a raw path and returns a Path object.
	// It resolves the path to an absolute path, stats it, and validates
	// it's a regular file or directory (not a device, pipe or socket).
	Resolve(rawPath string) (*Path, error)

	// ReadDir returns the first-level entries of dir.
	ReadDir(dir string) ([]fs.DirEntry, error)

	// Stat returns file info, following symlinks.
	Stat(path string) (fs.FileInfo, error)

	// Lstat returns file info without following symlinks.
	Lstat(path string) (fs.FileInfo, error)

	// Move renames src to dst. When a rename is not possible across devices
	// the entry is copied and the source removed afterwards.
	Move(src, dst string) error

	// RemoveAll removes path and anything it contains.
	RemoveAll(path string) error

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path string) error
}
