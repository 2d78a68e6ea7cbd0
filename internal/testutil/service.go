package testutil

import (
	"path/filepath"
	"testing"

	"evidence-vault/internal/audit"
	"evidence-vault/internal/database"
	"evidence-vault/internal/evidence"
	"evidence-vault/internal/objectstore"
)

// Harness is a Service wired to in-memory and temp-dir collaborators, with
// handles on each so tests can inspect or damage them.
type Harness struct {
	Service   *evidence.Service
	Catalog   *database.SQLiteCatalog
	Objects   evidence.ObjectStore
	Memory    *objectstore.MemoryStore // nil when WithFilesystemObjects is used
	Audit     *audit.Log
	AuditPath string
	FS        *MockFilesystemManager
	Clock     *StubClock
	IDs       *StubIDGenerator
	Layout    evidence.Layout
	Root      string
}

// HarnessOption customizes NewTestService.
type HarnessOption func(*harnessConfig)

type harnessConfig struct {
	sealer     evidence.Sealer
	fileObject bool
}

// WithSealer seals exports with s.
func WithSealer(s evidence.Sealer) HarnessOption {
	return func(c *harnessConfig) { c.sealer = s }
}

// WithFilesystemObjects stores objects under Root/objects instead of in memory.
func WithFilesystemObjects() HarnessOption {
	return func(c *harnessConfig) { c.fileObject = true }
}

// NewTestService builds a Harness rooted in a fresh temp directory.
func NewTestService(t *testing.T, opts ...HarnessOption) *Harness {
	t.Helper()

	var cfg harnessConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	root := t.TempDir()
	h := &Harness{
		Catalog:   NewTestCatalog(t),
		AuditPath: filepath.Join(root, "audit", "audit.jsonl"),
		FS:        NewMockFilesystemManager(),
		Clock:     FixedClock(),
		IDs:       NewStubIDGenerator(),
		Layout: evidence.Layout{
			ManifestDir: filepath.Join(root, "manifests"),
			ExportDir:   filepath.Join(root, "exports"),
		},
		Root: root,
	}

	if cfg.fileObject {
		store, err := objectstore.NewFileSystemStore(filepath.Join(root, "objects"), 0)
		if err != nil {
			t.Fatalf("failed to create object store: %v", err)
		}
		h.Objects = store
	} else {
		h.Memory = objectstore.NewMemoryStore()
		h.Objects = h.Memory
	}

	file, err := audit.OpenJSONL(h.AuditPath)
	if err != nil {
		t.Fatalf("failed to open audit file: %v", err)
	}
	h.Audit = audit.NewLog(h.Catalog, file, nil)
	t.Cleanup(func() {
		h.Audit.Close()
	})

	h.Service = evidence.NewService(h.Catalog, h.Objects, h.Audit, h.FS, cfg.sealer, h.Layout,
		evidence.NewNopLogger(), h.Clock, h.IDs)
	return h
}
