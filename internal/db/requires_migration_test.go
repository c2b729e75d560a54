package db_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/lherron/clara/internal/db"
)

func TestRequiresMigrationError(t *testing.T) {
	// Create a temporary database with only some migrations applied
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	// Open and create schema_migrations table with only first migration
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()

	// Create schema_migrations table and add only first migration
	_, err = database.Exec(`
		CREATE TABLE schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		)
	`)
	if err != nil {
		t.Fatalf("could not create schema_migrations: %v", err)
	}

	_, err = database.Exec(`INSERT INTO schema_migrations (version) VALUES ('000001_baseline.sql')`)
	if err != nil {
		t.Fatalf("could not insert migration: %v", err)
	}

	// Test RequiresMigrationError
	migErr := database.RequiresMigrationError()
	if migErr == nil {
		t.Fatal("expected migration error, got nil")
	}

	errStr := migErr.Error()
	t.Logf("Error message: %s", errStr)

	// Check that error contains db path
	if !strings.Contains(errStr, dbPath) {
		t.Errorf("error should contain db path '%s', got: %s", dbPath, errStr)
	}

	// Check that error contains version
	if !strings.Contains(errStr, "000001_baseline.sql") {
		t.Errorf("error should contain version '000001_baseline.sql', got: %s", errStr)
	}

	// Check that error mentions pending migrations
	if !strings.Contains(errStr, "pending migration") {
		t.Errorf("error should mention pending migrations, got: %s", errStr)
	}

	// Check that error suggests claraadm migrate
	if !strings.Contains(errStr, "claraadm migrate") {
		t.Errorf("error should suggest 'claraadm migrate', got: %s", errStr)
	}
}

func TestRequiresMigrationErrorFreshDB(t *testing.T) {
	// Test with no migrations applied (fresh db)
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()

	migErr := database.RequiresMigrationError()
	if migErr == nil {
		t.Fatal("expected migration error for fresh db, got nil")
	}

	errStr := migErr.Error()
	t.Logf("Fresh DB Error: %s", errStr)

	if !strings.Contains(errStr, "version: none") {
		t.Errorf("fresh db error should contain 'version: none', got: %s", errStr)
	}

	if !strings.Contains(errStr, dbPath) {
		t.Errorf("error should contain db path '%s', got: %s", dbPath, errStr)
	}
}

func TestRequiresMigrationErrorFullyMigrated(t *testing.T) {
	// Test with fully migrated database (should return nil)
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()

	// Run all migrations
	if err := database.Migrate(); err != nil {
		t.Fatalf("could not run migrations: %v", err)
	}

	// Should return nil when fully migrated
	migErr := database.RequiresMigrationError()
	if migErr != nil {
		t.Errorf("expected nil for fully migrated db, got: %v", migErr)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()

	applied, err := database.MigrateWithInfo()
	if err != nil {
		t.Fatalf("first migrate failed: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 applied migrations, got %v", applied)
	}

	applied, err = database.MigrateWithInfo()
	if err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected no migrations on second run, got %v", applied)
	}
}

func TestActivityLogIsAppendOnly(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		t.Fatalf("could not run migrations: %v", err)
	}

	_, err = database.Exec(`
		INSERT INTO activity_log (op_id, action_type, entity_type, entity_id, data, created_at)
		VALUES ('op', 'create', 'task', 1, '{}', '2026-01-01T00:00:00Z')
	`)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if _, err := database.Exec(`UPDATE activity_log SET action_type = 'update'`); err == nil {
		t.Error("expected UPDATE on activity_log to fail")
	} else if !strings.Contains(err.Error(), "append-only") {
		t.Errorf("unexpected UPDATE error: %v", err)
	}
	if _, err := database.Exec(`DELETE FROM activity_log`); err == nil {
		t.Error("expected DELETE on activity_log to fail")
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		t.Fatalf("could not run migrations: %v", err)
	}

	_, err = database.Exec(`
		INSERT INTO projects (workspace_id, title, created_at, updated_at)
		VALUES (999, 'orphan', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')
	`)
	if err == nil {
		t.Error("expected foreign key violation for missing workspace")
	}
}
