package database

import (
	"fmt"

	"evidence-vault/internal/config"
)

// NewCatalogFromConfig creates the catalog selected by cfg.Type.
// path is the database file used by the sqlite type.
func NewCatalogFromConfig(cfg config.CatalogConfig, path string) (*SQLiteCatalog, error) {
	switch cfg.Type {
	case "sqlite", "":
		if path == "" {
			return nil, fmt.Errorf("catalog path required for sqlite catalog")
		}
		return NewSQLiteCatalog(path)
	case "memory":
		return NewSQLiteCatalog(":memory:")
	default:
		return nil, fmt.Errorf("unknown catalog type: %s", cfg.Type)
	}
}
