package database

import (
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "nested", "digest.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func TestNewConnection(t *testing.T) {
	_, err := NewConnection("")
	if err == nil {
		t.Error("Expected error for empty database path")
	}
}

func TestRunMigrations(t *testing.T) {
	db := newTestDB(t)

	// Running again must be a no-op.
	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Expected no error on second run, got: %v", err)
	}
	if version != 1 {
		t.Errorf("Expected schema version 1, got %d", version)
	}
	if dirty {
		t.Error("Expected clean migration state")
	}
}
