package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3" // Blank import for sql driver

	"podbay/internal/db"
)

// SetupTestDB creates an in-memory SQLite database and applies all migrations.
// It returns the database connection, ready for use in tests.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use in-memory database for testing to ensure tests are fast and isolated.
	// Foreign keys go in the DSN so every pooled connection enforces them.
	database, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	// Each connection to ":memory:" is its own empty database. Cap the pool
	// at one so queries from timer or download goroutines see the same
	// schema as the test body.
	database.SetMaxOpenConns(1)

	// Attach a cleanup function to automatically close the DB when the test completes.
	t.Cleanup(func() {
		database.Close()
	})

	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return database
}
