package objectstore

import (
	"fmt"

	"evidence-vault/internal/config"
	"evidence-vault/internal/evidence"
)

// NewObjectStoreFromConfig creates an ObjectStore implementation based on the objects config type.
// root is the objects directory of the vault.
func NewObjectStoreFromConfig(cfg config.ObjectsConfig, root string) (evidence.ObjectStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem", "":
		if root == "" {
			return nil, fmt.Errorf("filesystem object store requires a root directory")
		}
		return NewFileSystemStore(root, cfg.ShardDepth)
	default:
		return nil, fmt.Errorf("unknown object store type: %s", cfg.Type)
	}
}
