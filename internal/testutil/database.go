package testutil

import (
	"testing"

	"evidence-vault/internal/database"
)

// NewTestCatalog creates an in-memory SQLite catalog with the schema applied.
// The catalog is closed when the test completes.
func NewTestCatalog(t *testing.T) *database.SQLiteCatalog {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}

	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	c := database.NewSQLiteCatalogFromDB(sqlDB)

	t.Cleanup(func() {
		c.Close()
	})

	return c
}
