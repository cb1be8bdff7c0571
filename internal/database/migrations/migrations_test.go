package migrations

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Migrate up
	err := MigrateUp(db)
	if err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Verify tables were created
	tables := []string{"runs", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := CheckDBMigrationStatus(db)
	if !errors.Is(err, ErrNoSchema) {
		t.Errorf("CheckDBMigrationStatus() error = %v, want %v", err, ErrNoSchema)
	}
}

func TestInspect(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	latest, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if latest != 1 {
		t.Errorf("LatestVersion() = %d, want 1", latest)
	}

	if _, err := Inspect(db); !errors.Is(err, ErrNoSchema) {
		t.Fatalf("Inspect() on fresh database error = %v, want %v", err, ErrNoSchema)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	st, err := Inspect(db)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	want := Status{Current: latest, Latest: latest}
	if st != want {
		t.Errorf("Inspect() = %+v, want %+v", st, want)
	}
}

func TestCheckDBMigrationStatus_Dirty(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_migrations SET dirty = 1"); err != nil {
		t.Fatalf("marking schema dirty: %v", err)
	}

	err := CheckDBMigrationStatus(db)
	if err == nil || !strings.Contains(err.Error(), "dirty") {
		t.Errorf("CheckDBMigrationStatus() error = %v, want dirty state error", err)
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Migrate up
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Status should be OK now
	err := CheckDBMigrationStatus(db)
	if err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Run migration twice
	if err := MigrateUp(db); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}

	if err := MigrateUp(db); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}

	// Status should still be OK
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestSchema_Runs(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO runs (id, archive_path, status, started_at)
		VALUES ('run-1', '/downloads/mod.zip', 'running', datetime('now'))
	`)
	if err != nil {
		t.Fatalf("Failed to insert run: %v", err)
	}

	var destination string
	var placed int64
	err = db.QueryRow("SELECT destination, placed_entries FROM runs WHERE id = 'run-1'").Scan(&destination, &placed)
	if err != nil {
		t.Fatalf("Failed to retrieve run: %v", err)
	}
	if destination != "" || placed != 0 {
		t.Errorf("defaults = (%q, %d), want (\"\", 0)", destination, placed)
	}
}

func TestSchema_RunIDUnique(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	insert := "INSERT INTO runs (id, archive_path, status, started_at) VALUES ('run-1', '/a.zip', 'running', datetime('now'))"
	if _, err := db.Exec(insert); err != nil {
		t.Fatalf("Failed to insert first run: %v", err)
	}
	if _, err := db.Exec(insert); err == nil {
		t.Error("Expected primary key violation for duplicate id, but insert succeeded")
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Each pooled connection to ":memory:" would get its own database.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	return db
}
