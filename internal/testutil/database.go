package testutil

import (
	"testing"

	"zipatch/internal/database"
	"zipatch/internal/zp"
)

// NewTestDatabase creates a new in-memory SQLite run store with schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) zp.RunStore {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
