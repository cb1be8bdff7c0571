// Package extract decodes zip, rar and 7z archives into a directory.
package extract

import (
	"context"
	"fmt"

	"zipatch/internal/zp"
)

// Decoder extracts one archive format.
type Decoder interface {
	Decode(ctx context.Context, archivePath, destDir string, progress zp.ProgressFunc) error
}

// Dispatcher picks a Decoder by archive extension. Unsupported extensions
// are rejected before any decoder runs.
type Dispatcher struct {
	decoders map[zp.Format]Decoder
	logger   zp.Logger
}

var _ zp.Extractor = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with no decoders registered.
func NewDispatcher(logger zp.Logger) *Dispatcher {
	return &Dispatcher{decoders: make(map[zp.Format]Decoder), logger: logger}
}

// Register sets the decoder used for format.
func (d *Dispatcher) Register(format zp.Format, dec Decoder) {
	d.decoders[format] = dec
}

// Extract decodes archivePath into destDir.
func (d *Dispatcher) Extract(ctx context.Context, archivePath, destDir string, progress zp.ProgressFunc) error {
	format, err := zp.FormatFromPath(archivePath)
	if err != nil {
		d.logger.Warn("unsupported archive", "archive", archivePath)
		return err
	}
	dec, ok := d.decoders[format]
	if !ok {
		return &zp.ExtractionError{
			Kind:    zp.UnsupportedFormat,
			Archive: archivePath,
			Err:     fmt.Errorf("no decoder configured for %s", format),
		}
	}

	d.logger.Info("extracting", "archive", archivePath, "format", string(format), "dest", destDir)
	return dec.Decode(ctx, archivePath, destDir, progress)
}
