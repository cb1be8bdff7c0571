package testutil

import (
	"path/filepath"
	"testing"

	zfs "zipatch/internal/fs"
	"zipatch/internal/merge"
	"zipatch/internal/staging"
	"zipatch/internal/zp"
)

// NewTestStagingArea creates a staging area in a fresh temporary directory
// on the real filesystem. ignore lists patterns pruned after extraction.
func NewTestStagingArea(t *testing.T, ignore ...string) zp.StagingArea {
	t.Helper()
	fsmgr := zfs.NewOSFilesystemManager()
	area, err := staging.NewStagingArea(
		filepath.Join(t.TempDir(), "Temp"),
		fsmgr,
		merge.NewMerger(fsmgr, zp.NewNopLogger()),
		zfs.NewIgnoreMatcher(ignore),
		NewStubIDGenerator(),
		zp.NewNopLogger(),
	)
	if err != nil {
		t.Fatalf("creating staging area: %v", err)
	}
	t.Cleanup(func() { area.Close() })
	return area
}
