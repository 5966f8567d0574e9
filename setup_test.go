package upsert_test

import (
	"database/sql"
	"os"
	"testing"

	"github.com/arllen133/upsert"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB opens the database named by TEST_DRIVER and TEST_DSN,
// defaulting to an in-memory SQLite database.
func setupTestDB(t *testing.T, opts ...upsert.SessionOption) (*sql.DB, *upsert.Session) {
	t.Helper()
	driver := os.Getenv("TEST_DRIVER")
	dsn := os.Getenv("TEST_DSN")

	if driver == "" {
		driver = "sqlite3"
		dsn = ":memory:"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if driver == "sqlite3" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	t.Cleanup(func() { db.Close() })

	dialect, err := upsert.ParseDialect(driver)
	if err != nil {
		t.Fatalf("Unsupported TEST_DRIVER %q: %v", driver, err)
	}

	return db, upsert.NewSession(db, dialect, opts...)
}

// createFooTable recreates foo_table(bar PRIMARY KEY, count, created).
func createFooTable(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec(`DROP TABLE IF EXISTS foo_table`); err != nil {
		t.Fatalf("Failed to drop table: %v", err)
	}
	_, err := db.Exec(`CREATE TABLE foo_table (
		bar VARCHAR(64) PRIMARY KEY,
		count INT,
		created VARCHAR(64)
	)`)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
}
