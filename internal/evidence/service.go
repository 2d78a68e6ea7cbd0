package evidence

import (
	"context"
	"fmt"
)

// Layout names the vault directories the service writes side artifacts to.
type Layout struct {
	ManifestDir string // manifests/<case>.json, overwritten on each build
	ExportDir   string // exports/<case>_export_<ms>.zip, never overwritten
}

// Service is the evidence store. It coordinates the object store, catalog and
// audit log to ingest, verify, summarize and export evidence.
// Construct one per vault and share it; it holds no per-call state.
type Service struct {
	catalog Catalog
	objects ObjectStore
	audit   AuditSink
	fsmgr   FilesystemManager
	sealer  Sealer
	layout  Layout
	logger  Logger
	clock   Clock
	idgen   IDGenerator
}

// NewService creates a Service with the provided dependencies.
// sealer may be nil, in which case exports are written unsealed only.
func NewService(catalog Catalog, objects ObjectStore, audit AuditSink, fsmgr FilesystemManager, sealer Sealer, layout Layout, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		catalog: catalog,
		objects: objects,
		audit:   audit,
		fsmgr:   fsmgr,
		sealer:  sealer,
		layout:  layout,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
	}
}

// ListCases returns every case in the catalog, oldest first.
func (s *Service) ListCases(ctx context.Context) ([]*Case, error) {
	cases, err := s.catalog.ListCases(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	return cases, nil
}

// ListEvidence returns the items of a case in insertion order.
func (s *Service) ListEvidence(ctx context.Context, caseID string) ([]*EvidenceItem, error) {
	if _, err := s.catalog.GetCase(ctx, caseID); err != nil {
		return nil, fmt.Errorf("finding case: %w", err)
	}
	items, err := s.catalog.ListEvidenceByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing evidence: %w", err)
	}
	return items, nil
}

// AuditTrail returns recorded audit events matching f, oldest first.
func (s *Service) AuditTrail(ctx context.Context, f AuditFilter) ([]*AuditEvent, error) {
	events, err := s.catalog.ListAuditEvents(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	return events, nil
}

// record appends an audit event stamped with the service clock.
func (s *Service) record(ctx context.Context, eventType EventType, caseID, evidenceID, actor, details string) error {
	e := &AuditEvent{
		Timestamp:       s.clock.Now().UTC(),
		EventType:       eventType,
		CaseID:          caseID,
		EvidenceID:      evidenceID,
		Actor:           actor,
		DetailsRedacted: details,
	}
	if err := s.audit.Record(ctx, e); err != nil {
		return persistenceError("recording audit event", err)
	}
	s.logger.Debug("audit event recorded", "event_id", e.EventID, "type", string(eventType))
	return nil
}
