package zp

import "context"

// ProgressFunc is called with the name of each archive entry as it is written.
type ProgressFunc func(name string)

// Extractor decodes a supported archive into a target directory.
// Failures are reported as *ExtractionError.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string, progress ProgressFunc) error
}

// Summarizer renders a human-readable tree of a directory.
type Summarizer interface {
	Summarize(dir string) (string, error)
}

// Merger places a staged entry into a destination directory. Colliding
// directories are combined and colliding files are overwritten.
type Merger interface {
	PlaceEntry(src, dstDir string) error
}
