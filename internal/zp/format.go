package zp

import (
	"path/filepath"
	"strings"
)

// Format is an archive format inferred from a file extension.
type Format string

const (
	FormatZip      Format = "zip"
	FormatRar      Format = "rar"
	FormatSevenZip Format = "7z"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatZip, FormatRar, FormatSevenZip}

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string { return "." + string(f) }

// FormatFromPath infers the archive format from the path's extension.
// The comparison is case-insensitive.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range Formats {
		if ext == f.Extension() {
			return f, nil
		}
	}
	return "", &ExtractionError{Kind: UnsupportedFormat, Archive: path}
}
