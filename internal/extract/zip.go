package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mholt/archives"

	"zipatch/internal/zp"
)

// ZipDecoder extracts zip archives in-process. Entries that would land
// outside the destination are rejected and symlink entries are skipped.
type ZipDecoder struct {
	logger zp.Logger
}

var _ Decoder = (*ZipDecoder)(nil)

func NewZipDecoder(logger zp.Logger) *ZipDecoder {
	return &ZipDecoder{logger: logger}
}

// Decode extracts archivePath into destDir. Every failure is a DecodeFailure.
func (z *ZipDecoder) Decode(ctx context.Context, archivePath, destDir string, progress zp.ProgressFunc) error {
	if err := z.decode(ctx, archivePath, destDir, progress); err != nil {
		return &zp.ExtractionError{Kind: zp.DecodeFailure, Archive: archivePath, Err: err}
	}
	return nil
}

func (z *ZipDecoder) decode(ctx context.Context, archivePath, destDir string, progress zp.ProgressFunc) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer file.Close()

	handler := func(ctx context.Context, f archives.FileInfo) error {
		if err := z.extractEntry(destDir, f); err != nil {
			return fmt.Errorf("extracting %s: %w", f.NameInArchive, err)
		}
		if progress != nil {
			progress(f.NameInArchive)
		}
		return nil
	}

	if err := (archives.Zip{}).Extract(ctx, file, handler); err != nil {
		return err
	}
	return nil
}

func (z *ZipDecoder) extractEntry(destDir string, f archives.FileInfo) error {
	target, err := safeJoin(destDir, f.NameInArchive)
	if err != nil {
		return err
	}

	if f.IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if f.Mode()&os.ModeSymlink != 0 {
		z.logger.Debug("skipping symlink entry", "entry", f.NameInArchive, "target", f.LinkTarget)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating parent directories: %w", err)
	}

	reader, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening entry: %w", err)
	}
	defer reader.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}
	writer, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if _, err := io.Copy(writer, reader); err != nil {
		writer.Close()
		os.Remove(target)
		return fmt.Errorf("writing file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}

	if mtime := f.ModTime(); !mtime.IsZero() {
		if err := os.Chtimes(target, time.Now(), mtime); err != nil {
			z.logger.Debug("setting timestamps", "path", target, "error", err)
		}
	}
	return nil
}

// safeJoin joins name onto root, refusing names that escape root.
func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	prefix := filepath.Clean(root) + string(os.PathSeparator)
	if !strings.HasPrefix(target+string(os.PathSeparator), prefix) {
		return "", fmt.Errorf("entry escapes the output directory: %s", name)
	}
	return target, nil
}
