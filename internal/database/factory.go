package database

import (
	"fmt"
	"os"
	"path/filepath"

	"zipatch/internal/config"
	"zipatch/internal/zp"
)

// HistoryFile is the name of the run history database inside data_dir.
const HistoryFile = "history.db"

// NewDatabaseFromConfig creates a RunStore implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (zp.RunStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, HistoryFile))
	case "memory":
		return NewSQLiteDatabase(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
