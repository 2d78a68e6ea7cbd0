package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evidence-vault/internal/config"
	"evidence-vault/internal/evidence"
	"evidence-vault/internal/fs"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.NewConfig("test-vault", t.TempDir())
}

func openTestApp(t *testing.T, cfg *config.Config) *EvidenceApp {
	t.Helper()
	a, err := newEvidenceApp(cfg, "test", io.Discard)
	if err != nil {
		t.Fatalf("newEvidenceApp() error = %v", err)
	}
	return a
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestEvidenceApp_Lifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	cfg.Ingest.DefaultSensitivity = "high"
	cfg.Ingest.DefaultRetention = "10y"
	src := writeSource(t, t.TempDir(), "statement.txt", "witness statement\n")

	a := openTestApp(t, cfg)

	item, err := a.Ingest(ctx, evidence.IngestRequest{Path: src, CaseID: "CASE-7", Actor: "cli:tester"})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if item.OriginalName != "statement.txt" {
		t.Errorf("OriginalName = %q, want %q", item.OriginalName, "statement.txt")
	}

	cases, err := a.ListCases(ctx)
	if err != nil {
		t.Fatalf("ListCases() error = %v", err)
	}
	if len(cases) != 1 || cases[0].Sensitivity != evidence.SensitivityHigh || cases[0].RetentionPolicy != "10y" {
		t.Fatalf("ListCases() = %+v, want one high/10y case from config defaults", cases)
	}

	res, err := a.Verify(ctx, item.EvidenceID, "cli:tester")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !res.OK {
		t.Errorf("Verify() = %+v, want OK", res)
	}

	_, manifestPath, err := a.GetManifest(ctx, "CASE-7")
	if err != nil {
		t.Fatalf("GetManifest() error = %v", err)
	}
	if _, err := os.Stat(manifestPath); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
	if !strings.HasPrefix(manifestPath, cfg.ManifestDir()) {
		t.Errorf("manifest path %q outside %q", manifestPath, cfg.ManifestDir())
	}

	exp, err := a.Export(ctx, "CASE-7", "cli:tester")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.HasPrefix(exp.ArchivePath, cfg.ExportDir()) {
		t.Errorf("archive path %q outside %q", exp.ArchivePath, cfg.ExportDir())
	}
	if exp.SealedPath != "" {
		t.Errorf("SealedPath = %q, want empty with sealing disabled", exp.SealedPath)
	}

	health, err := a.CheckAudit(ctx)
	if err != nil {
		t.Fatalf("CheckAudit() error = %v", err)
	}
	if !health.OK() {
		t.Errorf("CheckAudit() = %+v, want OK", health)
	}
	if health.Chain.Records != 3 {
		t.Errorf("chain records = %d, want 3 (ingest, verify, export)", health.Chain.Records)
	}

	snapshot, err := a.BackupCatalog(ctx)
	if err != nil {
		t.Fatalf("BackupCatalog() error = %v", err)
	}
	if filepath.Dir(snapshot) != cfg.CatalogBackupDir() {
		t.Errorf("snapshot %q not in %q", snapshot, cfg.CatalogBackupDir())
	}
	if info, err := os.Stat(snapshot); err != nil || info.Size() == 0 {
		t.Errorf("snapshot missing or empty: %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopening the vault sees the same catalog and continues the same chain.
	b := openTestApp(t, cfg)
	defer b.Close()

	items, err := b.ListEvidence(ctx, "CASE-7")
	if err != nil {
		t.Fatalf("ListEvidence() error = %v", err)
	}
	if len(items) != 1 || items[0].EvidenceID != item.EvidenceID {
		t.Errorf("ListEvidence() after reopen = %+v", items)
	}
	if _, err := b.Verify(ctx, item.EvidenceID, "cli:tester"); err != nil {
		t.Fatalf("Verify() after reopen error = %v", err)
	}
	health, err = b.CheckAudit(ctx)
	if err != nil {
		t.Fatalf("CheckAudit() after reopen error = %v", err)
	}
	if !health.OK() || health.Chain.Records != 4 {
		t.Errorf("CheckAudit() after reopen = %+v, want 4 intact records", health.Chain)
	}

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, logFileName))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "operation finished") {
		t.Errorf("log missing operation summary: %q", data)
	}
}

func TestEvidenceApp_IngestDirectory(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	writeSource(t, src, "photo.jpg", "not really a jpeg")
	writeSource(t, src, "scratch.tmp", "ignored")
	writeSource(t, src, ".DS_Store", "ignored")
	writeSource(t, src, "sub/ledger.csv", "date,amount\n")
	writeSource(t, src, fs.IgnoreFileName, "*.tmp\n")

	tests := []struct {
		name      string
		recursive bool
		want      []string
	}{
		{name: "top level only", recursive: false, want: []string{"photo.jpg"}},
		{name: "recursive", recursive: true, want: []string{"photo.jpg", "ledger.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := openTestApp(t, newTestConfig(t))
			defer a.Close()

			items, err := a.IngestDirectory(ctx, src, tt.recursive, evidence.IngestRequest{CaseID: "BATCH-1", Actor: "cli:tester"})
			if err != nil {
				t.Fatalf("IngestDirectory() error = %v", err)
			}

			var got []string
			for _, it := range items {
				got = append(got, it.OriginalName)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ingested %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvidenceApp_IngestDirectoryMissing(t *testing.T) {
	a := openTestApp(t, newTestConfig(t))
	defer a.Close()

	_, err := a.IngestDirectory(context.Background(), filepath.Join(t.TempDir(), "absent"), true, evidence.IngestRequest{CaseID: "C"})
	if !errors.Is(err, evidence.ErrSourceNotFound) {
		t.Errorf("IngestDirectory() error = %v, want ErrSourceNotFound", err)
	}
}

func TestEvidenceApp_CheckAuditDetectsTampering(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	src := writeSource(t, t.TempDir(), "a.txt", "alpha\n")

	a := openTestApp(t, cfg)
	if _, err := a.Ingest(ctx, evidence.IngestRequest{Path: src, CaseID: "C-1", Actor: "cli:tester"}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(cfg.AuditPath())
	if err != nil {
		t.Fatal(err)
	}
	forged := strings.Replace(string(data), "cli:tester", "cli:mallory", 1)
	if err := os.WriteFile(cfg.AuditPath(), []byte(forged), 0o600); err != nil {
		t.Fatal(err)
	}

	b := openTestApp(t, cfg)
	defer b.Close()

	health, err := b.CheckAudit(ctx)
	if err != nil {
		t.Fatalf("CheckAudit() error = %v", err)
	}
	if health.OK() {
		t.Fatal("CheckAudit() reported OK for a forged audit file")
	}
	if health.Chain.OK() {
		t.Error("chain check missed the forged record")
	}
	if len(health.Reconciliation.Mismatched) != 1 {
		t.Errorf("Mismatched = %v, want one event", health.Reconciliation.Mismatched)
	}
}

func TestEvidenceApp_ArbitraryBytesKeepAuditIntact(t *testing.T) {
	ctx := context.Background()
	a := openTestApp(t, newTestConfig(t))
	defer a.Close()

	src := writeSource(t, t.TempDir(), "scan\xff.txt", "scanned page\n")
	caseIDs := []string{"nul\x00id", "bad\xffutf8", "ctl\x01\x1b[0m"}
	for _, caseID := range caseIDs {
		item, err := a.Ingest(ctx, evidence.IngestRequest{Path: src, CaseID: caseID, Actor: "cli:tester"})
		if err != nil {
			t.Fatalf("Ingest(%q) error = %v", caseID, err)
		}
		if item.OriginalName != "scan\xff.txt" {
			t.Errorf("OriginalName = %q, want %q", item.OriginalName, "scan\xff.txt")
		}

		_, path, err := a.GetManifest(ctx, caseID)
		if err != nil {
			t.Fatalf("GetManifest(%q) error = %v", caseID, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var m evidence.Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("decoding manifest: %v", err)
		}
		if m.CaseID != caseID || len(m.Items) != 1 || m.Items[0].OriginalName != "scan\xff.txt" {
			t.Errorf("manifest file read back as %q / %+v", m.CaseID, m.Items)
		}
	}

	health, err := a.CheckAudit(ctx)
	if err != nil {
		t.Fatalf("CheckAudit() error = %v", err)
	}
	if !health.OK() {
		t.Errorf("CheckAudit() chain = %+v, reconciliation = %+v; want OK", health.Chain, health.Reconciliation)
	}
	if health.Chain.Records != len(caseIDs) {
		t.Errorf("chain records = %d, want %d", health.Chain.Records, len(caseIDs))
	}
}

func TestNewEvidenceApp_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *config.Config)
	}{
		{name: "missing vault root", modify: func(cfg *config.Config) { cfg.VaultRoot = "" }},
		{name: "unknown object store", modify: func(cfg *config.Config) { cfg.Objects.Type = "tape" }},
		{name: "unknown catalog", modify: func(cfg *config.Config) { cfg.Catalog.Type = "postgres" }},
		{name: "age sealing without recipients", modify: func(cfg *config.Config) { cfg.Export.Sealing = "age" }},
		{name: "unknown sealing", modify: func(cfg *config.Config) { cfg.Export.Sealing = "rot13" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			tt.modify(cfg)

			a, err := newEvidenceApp(cfg, "test", io.Discard)
			if err == nil {
				a.Close()
				t.Fatal("newEvidenceApp() error = nil, want error")
			}
		})
	}
}

func TestEvidenceApp_MemoryBackends(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	cfg.Objects.Type = "memory"
	cfg.Catalog.Type = "memory"
	src := writeSource(t, t.TempDir(), "a.txt", "alpha\n")

	a := openTestApp(t, cfg)
	defer a.Close()

	item, err := a.Ingest(ctx, evidence.IngestRequest{Path: src, CaseID: "MEM-1", Actor: "cli:tester"})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if _, err := os.Stat(cfg.CatalogPath()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("memory catalog created %s", cfg.CatalogPath())
	}
	res, err := a.Verify(ctx, item.EvidenceID, "cli:tester")
	if err != nil || !res.OK {
		t.Errorf("Verify() = %+v, %v; want OK", res, err)
	}
}
