package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"evidence-vault/internal/audit"
	"evidence-vault/internal/config"
	"evidence-vault/internal/database"
	"evidence-vault/internal/encryption"
	"evidence-vault/internal/evidence"
	"evidence-vault/internal/fs"
	"evidence-vault/internal/objectstore"
)

// EvidenceApp is the application layer between the CLI and evidence.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and releases the catalog and audit file on Close.
type EvidenceApp struct {
	cfg     *config.Config
	catalog *database.SQLiteCatalog
	objects evidence.ObjectStore
	audit   *audit.Log
	fsmgr   *fs.OSFilesystemManager
	service *evidence.Service
	logger  *slogAdapter
	op      *Operation
	logFile *os.File
}

// NewEvidenceApp creates a fully wired EvidenceApp from the given config.
// command names the CLI command being run (e.g. "ingest", "export").
// The caller must call Close when done.
func NewEvidenceApp(cfg *config.Config, command string) (*EvidenceApp, error) {
	return newEvidenceApp(cfg, command, os.Stderr)
}

func newEvidenceApp(cfg *config.Config, command string, console io.Writer) (*EvidenceApp, error) {
	if cfg.VaultRoot == "" {
		return nil, fmt.Errorf("no vault_root configured")
	}

	op := NewOperation(command, time.Now())
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	// closeAll releases whatever was opened before a construction error.
	var closers []io.Closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
		logFile.Close()
	}

	objects, err := objectstore.NewObjectStoreFromConfig(cfg.Objects, cfg.ObjectsDir())
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("creating object store: %w", err)
	}
	if err := objects.ValidateSetup(); err != nil {
		closeAll()
		return nil, fmt.Errorf("object store not usable: %w", err)
	}

	catalog, err := database.NewCatalogFromConfig(cfg.Catalog, cfg.CatalogPath())
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("creating catalog: %w", err)
	}
	closers = append(closers, catalog)

	if err := catalog.CheckMigrations(); err != nil {
		closeAll()
		return nil, fmt.Errorf("catalog schema out of date: %w", err)
	}

	file, err := audit.OpenJSONL(cfg.AuditPath())
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("opening audit file: %w", err)
	}
	auditLog := audit.NewLog(catalog, file, log)
	closers = append(closers, auditLog)

	sealer, err := encryption.NewSealerFromConfig(cfg.Export)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("creating sealer: %w", err)
	}

	fsmgr := fs.NewOSFilesystemManager()
	layout := evidence.Layout{
		ManifestDir: cfg.ManifestDir(),
		ExportDir:   cfg.ExportDir(),
	}
	svc := evidence.NewService(catalog, objects, auditLog, fsmgr, sealer, layout, log, evidence.RealClock{}, evidence.UUIDGenerator{})

	log.Debug("vault opened", "command", command, "vault", cfg.VaultRoot)

	return &EvidenceApp{
		cfg:     cfg,
		catalog: catalog,
		objects: objects,
		audit:   auditLog,
		fsmgr:   fsmgr,
		service: svc,
		logger:  log,
		op:      op,
		logFile: logFile,
	}, nil
}

// Service exposes the wired evidence service.
func (a *EvidenceApp) Service() *evidence.Service {
	return a.service
}

// withDefaults fills optional ingest metadata from the [ingest] config section.
func (a *EvidenceApp) withDefaults(req evidence.IngestRequest) evidence.IngestRequest {
	if req.Sensitivity == "" {
		req.Sensitivity = a.cfg.Ingest.DefaultSensitivity
	}
	if req.Retention == "" {
		req.Retention = a.cfg.Ingest.DefaultRetention
	}
	return req
}

// Ingest admits a single file into the vault.
func (a *EvidenceApp) Ingest(ctx context.Context, req evidence.IngestRequest) (*evidence.EvidenceItem, error) {
	return a.service.Ingest(ctx, a.withDefaults(req))
}

// IngestDirectory ingests every file found under dir into the same case.
// Files matching the directory's ignore file are skipped. When recursive is true,
// subdirectories are walked too. Ingest stops at the first failure and returns
// the items admitted before it.
func (a *EvidenceApp) IngestDirectory(ctx context.Context, dir string, recursive bool, req evidence.IngestRequest) ([]*evidence.EvidenceItem, error) {
	ignore, err := fs.LoadIgnoreMatcher(dir)
	if err != nil {
		return nil, err
	}
	paths, err := a.fsmgr.FindFiles(dir, recursive, ignore)
	if err != nil {
		return nil, err
	}

	items := make([]*evidence.EvidenceItem, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		r := req
		r.Path = p
		item, err := a.Ingest(ctx, r)
		if err != nil {
			return items, fmt.Errorf("ingesting %s: %w", p, err)
		}
		a.logger.Info("ingested", "path", p, "evidence_id", item.EvidenceID)
		items = append(items, item)
	}
	return items, nil
}

// Verify re-hashes an item's stored object against its recorded digest.
func (a *EvidenceApp) Verify(ctx context.Context, evidenceID, actor string) (*evidence.VerifyResult, error) {
	return a.service.Verify(ctx, evidenceID, actor)
}

// GetManifest builds and persists the manifest of a case, returning it with the
// path it was written to.
func (a *EvidenceApp) GetManifest(ctx context.Context, caseID string) (*evidence.Manifest, string, error) {
	m, err := a.service.GetManifest(ctx, caseID)
	if err != nil {
		return nil, "", err
	}
	return m, a.service.ManifestPath(caseID), nil
}

// Export packages a case into a zip archive.
func (a *EvidenceApp) Export(ctx context.Context, caseID, actor string) (*evidence.ExportResult, error) {
	return a.service.ExportCase(ctx, caseID, actor)
}

// ListCases returns every case, oldest first.
func (a *EvidenceApp) ListCases(ctx context.Context) ([]*evidence.Case, error) {
	return a.service.ListCases(ctx)
}

// ListEvidence returns a case's items in insertion order.
func (a *EvidenceApp) ListEvidence(ctx context.Context, caseID string) ([]*evidence.EvidenceItem, error) {
	return a.service.ListEvidence(ctx, caseID)
}

// AuditTrail returns recorded audit events matching f.
func (a *EvidenceApp) AuditTrail(ctx context.Context, f evidence.AuditFilter) ([]*evidence.AuditEvent, error) {
	return a.service.AuditTrail(ctx, f)
}

// AuditHealth is the combined result of the chain check and reconciliation.
type AuditHealth struct {
	Chain          *audit.ChainReport    `json:"chain"`
	Reconciliation *audit.Reconciliation `json:"reconciliation"`
}

// OK reports whether the chain is intact and both sinks agree.
func (h *AuditHealth) OK() bool {
	return h.Chain.OK() && h.Reconciliation.Consistent()
}

// CheckAudit walks the audit file's hash chain and compares it with the audit table.
func (a *EvidenceApp) CheckAudit(ctx context.Context) (*AuditHealth, error) {
	report, err := a.audit.Check()
	if err != nil {
		return nil, fmt.Errorf("checking audit chain: %w", err)
	}
	rec, err := a.audit.Reconcile(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconciling audit sinks: %w", err)
	}
	health := &AuditHealth{Chain: report, Reconciliation: rec}
	if !health.OK() {
		a.logger.Warn("audit log inconsistent",
			"chain_ok", report.OK(),
			"missing_from_file", len(rec.MissingFromFile),
			"missing_from_table", len(rec.MissingFromTable),
			"mismatched", len(rec.Mismatched))
	}
	return health, nil
}

// BackupCatalog snapshots the catalog into the vault's catalog-backups directory
// and returns the snapshot path.
func (a *EvidenceApp) BackupCatalog(ctx context.Context) (string, error) {
	dir := a.cfg.CatalogBackupDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating catalog backup directory: %w", err)
	}
	dest := filepath.Join(dir, fmt.Sprintf("catalog-%s.db", time.Now().UTC().Format("20060102T150405.000Z")))
	if err := a.catalog.BackupTo(ctx, dest); err != nil {
		return "", err
	}
	a.logger.Info("catalog snapshot written", "path", dest)
	return dest, nil
}

// Fail marks the operation as failed so Close logs it as such.
func (a *EvidenceApp) Fail(err error) {
	if err == nil {
		return
	}
	a.op.Fail()
	a.logger.Error("operation failed", "command", a.op.Command, "error", err)
}

// Close logs the operation outcome and closes the audit file, catalog and log file.
func (a *EvidenceApp) Close() error {
	a.logger.Info("operation finished", "command", a.op.Command, "status", a.op.Status, "elapsed", a.op.Elapsed(time.Now()))

	var errs []error
	if err := a.audit.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing audit file: %w", err))
	}
	if err := a.catalog.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing catalog: %w", err))
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return errors.Join(errs...)
}
