package zp

import "io/fs"

// Path is an absolute path that existed when it was resolved, with the
// stat result taken at that moment. Paths come from FilesystemManager.Resolve.
type Path struct {
	abs  string
	info fs.FileInfo
}

// NewPath wraps an absolute path and its stat result.
func NewPath(abs string, info fs.FileInfo) *Path {
	return &Path{abs: abs, info: info}
}

func (p *Path) String() string { return p.abs }

func (p *Path) IsDir() bool { return p.info.IsDir() }

// Size is the file size in bytes at resolve time.
func (p *Path) Size() int64 { return p.info.Size() }
