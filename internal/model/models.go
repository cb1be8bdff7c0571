package model

import (
	"database/sql"
	"time"
)

// Run is the persisted record of one pass through the staging workflow.
type Run struct {
	ID            string // UUID
	ArchivePath   string // Absolute path of the extracted archive
	Destination   string // Empty unless the run reached the move step
	Collapsed     bool   // Whether a single root folder was collapsed
	PlacedEntries int64  // First-level staging entries placed at the destination
	Status        string // "running", "success", "skipped", "error", "abandoned"
	Error         string
	StartedAt     time.Time
	FinishedAt    sql.NullTime
}
