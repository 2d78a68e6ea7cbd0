package evidence

import (
	"fmt"
	"time"
)

// Sensitivity is the handling classification recorded on a case.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

const (
	DefaultSensitivity = SensitivityMedium
	DefaultRetention   = "7y"

	// CaseStatusActive is the only status assigned by the store.
	CaseStatusActive = "active"

	// DefaultMIME is recorded when content sniffing finds nothing better.
	DefaultMIME = "application/octet-stream"
)

// ParseSensitivity validates a sensitivity label. An empty string selects the default.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch Sensitivity(s) {
	case "":
		return DefaultSensitivity, nil
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
		return Sensitivity(s), nil
	default:
		return "", fmt.Errorf("%w: sensitivity must be low, medium or high, got %q", ErrInvalidArgument, s)
	}
}

// Case groups evidence items under one investigation identifier.
// The first ingest for a case id creates it; later ingests only touch UpdatedAt.
type Case struct {
	CaseID          string      `json:"caseId"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	Sensitivity     Sensitivity `json:"sensitivity"`
	RetentionPolicy string      `json:"retentionPolicy"`
	Status          string      `json:"status"`
}

// EvidenceItem is the provenance record created by one ingest call.
// Several items may point at the same stored object.
type EvidenceItem struct {
	EvidenceID   string    `json:"evidenceId"`
	CaseID       string    `json:"caseId"`
	SHA256       string    `json:"sha256"` // lowercase hex, 64 chars
	Size         int64     `json:"size"`
	MIME         string    `json:"mime"`
	ReceivedAt   time.Time `json:"receivedAt"`
	ObjectPath   string    `json:"objectPath"`   // Object Store location for SHA256
	OriginalName string    `json:"originalName"` // display only, never used for addressing
}

// EventType classifies an audit event.
type EventType string

const (
	EventIngest EventType = "INGEST"
	EventVerify EventType = "VERIFY"
	EventExport EventType = "EXPORT"
)

// AuditEvent is an append-only chain-of-custody record.
type AuditEvent struct {
	EventID         int64     `json:"eventId"` // assigned by the catalog, monotonic
	Timestamp       time.Time `json:"ts"`
	EventType       EventType `json:"eventType"`
	CaseID          string    `json:"caseId"`
	EvidenceID      string    `json:"evidenceId,omitempty"` // empty when the event is case-scoped
	Actor           string    `json:"actor"`
	DetailsRedacted string    `json:"detailsRedacted"`
}

// AuditFilter narrows an audit trail query. Zero values match everything.
type AuditFilter struct {
	CaseID     string
	EvidenceID string
	Limit      int
}

// IngestRequest carries the caller-validated arguments of an ingest.
type IngestRequest struct {
	Path        string
	CaseID      string
	Actor       string
	Sensitivity string // low|medium|high, default medium
	Retention   string // opaque label, default 7y
}

// VerifyResult reports the outcome of an integrity check.
type VerifyResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

const (
	ReasonNotFound      = "Evidence ID not found"
	ReasonHashMismatch  = "Hash mismatch"
	ReasonObjectMissing = "Object missing"
)

// Err converts a failed result into the matching sentinel error, or nil when OK.
func (r *VerifyResult) Err() error {
	switch {
	case r.OK:
		return nil
	case r.Reason == ReasonNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, r.Reason)
	default:
		return fmt.Errorf("%w: %s", ErrIntegrityMismatch, r.Reason)
	}
}

// ExportResult locates an export archive and anchors it by digest.
type ExportResult struct {
	ArchivePath   string `json:"archivePath"`
	ArchiveDigest string `json:"archiveDigest"`
	SealedPath    string `json:"sealedPath,omitempty"`
}
