package staging

import (
	"fmt"
	"os"

	"zipatch/internal/config"
	zfs "zipatch/internal/fs"
	"zipatch/internal/merge"
	"zipatch/internal/zp"
)

// NewStagingAreaFromConfig creates a StagingArea implementation based on the config type.
func NewStagingAreaFromConfig(cfg config.StagingConfig, fsmgr zp.FilesystemManager, logger zp.Logger) (zp.StagingArea, error) {
	patterns := append([]string(nil), cfg.Ignore...)
	extra, err := zfs.ParseIgnoreFile(cfg.IgnoreFile)
	if err != nil {
		return nil, err
	}
	ignore := zfs.NewIgnoreMatcher(append(patterns, extra...))
	mover := merge.NewMerger(fsmgr, logger)

	switch cfg.Type {
	case "filesystem":
		if cfg.StagingDir == "" {
			return nil, fmt.Errorf("filesystem staging area requires staging_dir to be set")
		}
		return NewStagingArea(cfg.StagingDir, fsmgr, mover, ignore, zp.UUIDGenerator{}, logger)
	case "temp":
		return NewTempStagingArea(fsmgr, mover, ignore, zp.UUIDGenerator{}, logger)
	default:
		return nil, fmt.Errorf("unknown staging area type: %s", cfg.Type)
	}
}

// NewTempStagingArea creates a staging area in a fresh temporary directory
// that is deleted by Close.
func NewTempStagingArea(fsmgr zp.FilesystemManager, mover treeMover, ignore *zfs.IgnoreMatcher, idgen zp.IDGenerator, logger zp.Logger) (zp.StagingArea, error) {
	dir, err := os.MkdirTemp("", "zipatch-staging-")
	if err != nil {
		return nil, fmt.Errorf("creating temporary staging directory: %w", err)
	}
	return &stagingArea{
		dir:       dir,
		fsmgr:     fsmgr,
		mover:     mover,
		ignore:    ignore,
		idgen:     idgen,
		logger:    logger,
		ephemeral: true,
	}, nil
}
