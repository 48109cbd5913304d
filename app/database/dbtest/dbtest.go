// Package dbtest provides a migrated SQLite database for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/lysyi3m/rss-reader/app/database"
)

// New opens a fresh database in a temporary directory and applies all
// migrations. The database is closed when the test finishes.
func New(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}
