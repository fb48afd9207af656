// ABOUTME: Tests for SQLite store initialization and schema migrations.
// ABOUTME: Verifies database setup, table creation, and idempotent reopening.

package store

import (
	"path/filepath"
	"testing"
)

// setupTestDB opens a store in a temp directory. An in-memory database is not
// used because each pooled connection would see its own copy.
func setupTestDB(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "dic.db"), nil)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesTables(t *testing.T) {
	s := setupTestDB(t)

	for _, table := range []string{"schema_migrations", "request_logs", "schemas"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	version, err := s.Version()
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("Version() = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestNewStore_ReopenDoesNotReapplyMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dic.db")

	first, err := New(path, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	first.Close()

	second, err := New(path, nil)
	if err != nil {
		t.Fatalf("New() on existing database error = %v", err)
	}
	defer second.Close()

	var count int
	if err := second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("schema_migrations has %d rows, want %d", count, len(migrations))
	}
}
