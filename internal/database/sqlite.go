package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evidence-vault/internal/database/migrations"
	"evidence-vault/internal/database/sqlc"
	"evidence-vault/internal/evidence"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteCatalog implements evidence.Catalog on a single SQLite database.
type SQLiteCatalog struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

// NewSQLiteCatalog opens the catalog at path (or ":memory:"), migrating a fresh
// database up and refusing one whose schema does not match this binary.
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteCatalog{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}, nil
}

// NewSQLiteCatalogFromDB wraps an existing connection.
// The caller is responsible for the connection's pragmas and schema.
func NewSQLiteCatalogFromDB(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{
		db:      db,
		queries: sqlc.New(db),
	}
}

// OpenConnection opens and configures a SQLite connection.
// This is exported for tools and tests that need the same configuration.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return db, nil
}

// Path returns the database file path, empty for wrapped connections.
func (s *SQLiteCatalog) Path() string {
	return s.path
}

// Cases

func (s *SQLiteCatalog) RecordEvidence(ctx context.Context, c *evidence.Case, item *evidence.EvidenceItem) error {
	if c.CaseID != item.CaseID {
		return fmt.Errorf("recording evidence: item case %q does not match case %q", item.CaseID, c.CaseID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	err = qtx.InsertCaseIfAbsent(ctx, sqlc.InsertCaseIfAbsentParams{
		CaseID:          c.CaseID,
		CreatedAt:       c.CreatedAt.UTC(),
		UpdatedAt:       c.UpdatedAt.UTC(),
		Sensitivity:     string(c.Sensitivity),
		RetentionPolicy: c.RetentionPolicy,
		Status:          c.Status,
	})
	if err != nil {
		return fmt.Errorf("inserting case: %w", err)
	}

	err = qtx.TouchCase(ctx, sqlc.TouchCaseParams{
		UpdatedAt: item.ReceivedAt.UTC(),
		CaseID:    c.CaseID,
	})
	if err != nil {
		return fmt.Errorf("updating case: %w", err)
	}

	err = qtx.InsertEvidenceItem(ctx, sqlc.InsertEvidenceItemParams{
		EvidenceID:   item.EvidenceID,
		CaseID:       item.CaseID,
		Sha256:       item.SHA256,
		Size:         item.Size,
		Mime:         item.MIME,
		ReceivedAt:   item.ReceivedAt.UTC(),
		ObjectPath:   item.ObjectPath,
		OriginalName: item.OriginalName,
	})
	if err != nil {
		return fmt.Errorf("inserting evidence item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) GetCase(ctx context.Context, caseID string) (*evidence.Case, error) {
	row, err := s.queries.GetCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("case %q: %w", caseID, evidence.ErrNotFound)
		}
		return nil, fmt.Errorf("finding case: %w", err)
	}
	return toCase(row), nil
}

func (s *SQLiteCatalog) ListCases(ctx context.Context) ([]*evidence.Case, error) {
	rows, err := s.queries.ListCases(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}

	result := make([]*evidence.Case, len(rows))
	for i := range rows {
		result[i] = toCase(rows[i])
	}
	return result, nil
}

// Evidence items

func (s *SQLiteCatalog) GetEvidence(ctx context.Context, evidenceID string) (*evidence.EvidenceItem, error) {
	row, err := s.queries.GetEvidenceItem(ctx, evidenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("evidence %q: %w", evidenceID, evidence.ErrNotFound)
		}
		return nil, fmt.Errorf("finding evidence item: %w", err)
	}
	return toEvidenceItem(row), nil
}

func (s *SQLiteCatalog) ListEvidenceByCase(ctx context.Context, caseID string) ([]*evidence.EvidenceItem, error) {
	rows, err := s.queries.ListEvidenceItemsByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing evidence items: %w", err)
	}

	result := make([]*evidence.EvidenceItem, len(rows))
	for i := range rows {
		result[i] = toEvidenceItem(rows[i])
	}
	return result, nil
}

func (s *SQLiteCatalog) CountEvidenceByDigest(ctx context.Context, digest string) (int64, error) {
	n, err := s.queries.CountEvidenceItemsBySha256(ctx, digest)
	if err != nil {
		return 0, fmt.Errorf("counting evidence items: %w", err)
	}
	return n, nil
}

// Audit events

func (s *SQLiteCatalog) AppendAuditEvent(ctx context.Context, e *evidence.AuditEvent) (int64, error) {
	id, err := s.queries.InsertAuditEvent(ctx, sqlc.InsertAuditEventParams{
		Ts:              e.Timestamp.UTC(),
		EventType:       string(e.EventType),
		CaseID:          e.CaseID,
		EvidenceID:      sql.NullString{String: e.EvidenceID, Valid: e.EvidenceID != ""},
		Actor:           e.Actor,
		DetailsRedacted: e.DetailsRedacted,
	})
	if err != nil {
		return 0, fmt.Errorf("inserting audit event: %w", err)
	}
	return id, nil
}

func (s *SQLiteCatalog) ListAuditEvents(ctx context.Context, f evidence.AuditFilter) ([]*evidence.AuditEvent, error) {
	limit := int64(-1) // SQLite: no limit
	if f.Limit > 0 {
		limit = int64(f.Limit)
	}

	rows, err := s.queries.ListAuditEvents(ctx, sqlc.ListAuditEventsParams{
		CaseID:     f.CaseID,
		EvidenceID: f.EvidenceID,
		RowLimit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}

	result := make([]*evidence.AuditEvent, len(rows))
	for i, r := range rows {
		result[i] = &evidence.AuditEvent{
			EventID:         r.EventID,
			Timestamp:       r.Ts.UTC(),
			EventType:       evidence.EventType(r.EventType),
			CaseID:          r.CaseID,
			EvidenceID:      r.EvidenceID.String,
			Actor:           r.Actor,
			DetailsRedacted: r.DetailsRedacted,
		}
	}
	return result, nil
}

func (s *SQLiteCatalog) CountAuditEvents(ctx context.Context) (int64, error) {
	n, err := s.queries.CountAuditEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting audit events: %w", err)
	}
	return n, nil
}

// Maintenance

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteCatalog) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo writes a consistent snapshot of the catalog to destPath using VACUUM INTO.
// destPath must not exist.
func (s *SQLiteCatalog) BackupTo(ctx context.Context, destPath string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up catalog: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteCatalog) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func toCase(r sqlc.Case) *evidence.Case {
	return &evidence.Case{
		CaseID:          r.CaseID,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
		Sensitivity:     evidence.Sensitivity(r.Sensitivity),
		RetentionPolicy: r.RetentionPolicy,
		Status:          r.Status,
	}
}

func toEvidenceItem(r sqlc.EvidenceItem) *evidence.EvidenceItem {
	return &evidence.EvidenceItem{
		EvidenceID:   r.EvidenceID,
		CaseID:       r.CaseID,
		SHA256:       r.Sha256,
		Size:         r.Size,
		MIME:         r.Mime,
		ReceivedAt:   r.ReceivedAt.UTC(),
		ObjectPath:   r.ObjectPath,
		OriginalName: r.OriginalName,
	}
}

var _ evidence.Catalog = (*SQLiteCatalog)(nil)
