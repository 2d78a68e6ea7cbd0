package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for evault.
type Config struct {
	VaultID   string        `toml:"vault_id"`
	BaseDir   string        `toml:"base_dir"`
	VaultRoot string        `toml:"vault_root"`
	LogDir    string        `toml:"log_dir"`
	Objects   ObjectsConfig `toml:"objects"`
	Catalog   CatalogConfig `toml:"catalog"`
	Ingest    IngestConfig  `toml:"ingest"`
	Export    ExportConfig  `toml:"export"`
}

// ObjectsConfig represents configuration for the content-addressed object store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ObjectsConfig struct {
	Type       string `toml:"type"`                  // "filesystem" or "memory"
	ShardDepth int    `toml:"shard_depth,omitempty"` // only used for type=filesystem; 0 keeps objects/<digest>
}

// CatalogConfig represents configuration for the relational catalog.
type CatalogConfig struct {
	Type string `toml:"type"` // "sqlite" or "memory"
}

// IngestConfig holds defaults applied when a caller omits optional metadata.
type IngestConfig struct {
	DefaultSensitivity string `toml:"default_sensitivity"`
	DefaultRetention   string `toml:"default_retention"`
}

// ExportConfig controls how export archives leave the vault.
type ExportConfig struct {
	Sealing        string `toml:"sealing"`                   // "none" (default) or "age"
	RecipientsFile string `toml:"recipients_file,omitempty"` // age recipients, one per line; only used for sealing=age
}

// NewConfig creates a new Config with the provided values and default layout.
func NewConfig(vaultID, baseDir string) *Config {
	return &Config{
		VaultID:   vaultID,
		BaseDir:   baseDir,
		VaultRoot: filepath.Join(baseDir, "vault"),
		LogDir:    filepath.Join(baseDir, "log"),
		Objects:   ObjectsConfig{Type: "filesystem"},
		Catalog:   CatalogConfig{Type: "sqlite"},
		Ingest: IngestConfig{
			DefaultSensitivity: "medium",
			DefaultRetention:   "7y",
		},
		Export: ExportConfig{Sealing: "none"},
	}
}

// Vault directory layout. All paths are derived from VaultRoot.

func (c *Config) ObjectsDir() string       { return filepath.Join(c.VaultRoot, "objects") }
func (c *Config) CatalogPath() string      { return filepath.Join(c.VaultRoot, "catalog.db") }
func (c *Config) AuditPath() string        { return filepath.Join(c.VaultRoot, "audit", "audit.jsonl") }
func (c *Config) ManifestDir() string      { return filepath.Join(c.VaultRoot, "manifests") }
func (c *Config) ExportDir() string        { return filepath.Join(c.VaultRoot, "exports") }
func (c *Config) CatalogBackupDir() string { return filepath.Join(c.VaultRoot, "catalog-backups") }

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if cfg.VaultRoot == "" {
		return nil, fmt.Errorf("reading config from %s: vault_root is required", path)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
