package evidence

import "context"

// Catalog is the relational record of cases, evidence items and audit events.
// Implementations must bind every caller-derived value as a query parameter and
// match case ids exactly. Lookups for absent rows return ErrNotFound.
type Catalog interface {
	// RecordEvidence inserts c if no case with c.CaseID exists (first ingest wins),
	// bumps the case's UpdatedAt, and inserts item. It is all-or-nothing.
	RecordEvidence(ctx context.Context, c *Case, item *EvidenceItem) error

	// GetCase returns the case with an exactly matching id.
	GetCase(ctx context.Context, caseID string) (*Case, error)

	// ListCases returns all cases ordered by creation.
	ListCases(ctx context.Context) ([]*Case, error)

	// GetEvidence returns a single evidence item.
	GetEvidence(ctx context.Context, evidenceID string) (*EvidenceItem, error)

	// ListEvidenceByCase returns a case's items in insertion order.
	ListEvidenceByCase(ctx context.Context, caseID string) ([]*EvidenceItem, error)

	// CountEvidenceByDigest returns how many items reference an object.
	CountEvidenceByDigest(ctx context.Context, digest string) (int64, error)

	// AppendAuditEvent inserts e into the durable log table and returns its event id.
	AppendAuditEvent(ctx context.Context, e *AuditEvent) (int64, error)

	// ListAuditEvents returns events matching f in event id order.
	ListAuditEvents(ctx context.Context, f AuditFilter) ([]*AuditEvent, error)

	// CountAuditEvents returns the number of rows in the durable log table.
	CountAuditEvents(ctx context.Context) (int64, error)

	// Close closes the catalog.
	Close() error
}
