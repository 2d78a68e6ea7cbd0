package evidence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/gabriel-vasile/mimetype"
)

// Ingest admits a file into the vault.
//
// Order: read → hash → store object → catalogue → audit. Each step is safe to
// retry. A failure after the object is written leaves at worst an unreferenced
// object, never a catalog row pointing at a missing object.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*EvidenceItem, error) {
	if req.CaseID == "" {
		return nil, fmt.Errorf("%w: case id is required", ErrInvalidArgument)
	}
	sensitivity, err := ParseSensitivity(req.Sensitivity)
	if err != nil {
		return nil, err
	}
	retention := req.Retention
	if retention == "" {
		retention = DefaultRetention
	}

	// Received
	path, err := s.fsmgr.Resolve(req.Path)
	if err != nil {
		return nil, err
	}
	data, err := s.fsmgr.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, req.Path)
		}
		return nil, fmt.Errorf("reading source: %w", err)
	}

	// Hashed, Stored
	digest, err := s.objects.Put(data)
	if err != nil {
		return nil, persistenceError("storing object", err)
	}

	// Catalogued
	now := s.clock.Now().UTC()
	item := &EvidenceItem{
		EvidenceID:   s.idgen.New(),
		CaseID:       req.CaseID,
		SHA256:       digest,
		Size:         int64(len(data)),
		MIME:         detectMIME(data),
		ReceivedAt:   now,
		ObjectPath:   s.objects.Locate(digest),
		OriginalName: path.Base(),
	}
	c := &Case{
		CaseID:          req.CaseID,
		CreatedAt:       now,
		UpdatedAt:       now,
		Sensitivity:     sensitivity,
		RetentionPolicy: retention,
		Status:          CaseStatusActive,
	}
	if err := s.catalog.RecordEvidence(ctx, c, item); err != nil {
		return nil, persistenceError("recording evidence", err)
	}

	// Audited
	details := fmt.Sprintf("Ingested file %s (SHA256: %s...)", item.OriginalName, shortDigest(digest))
	if err := s.record(ctx, EventIngest, item.CaseID, item.EvidenceID, req.Actor, details); err != nil {
		return nil, err
	}

	s.logger.Info("evidence ingested", "evidence_id", item.EvidenceID, "sha256", shortDigest(digest), "size", item.Size)
	return item, nil
}

// detectMIME sniffs the content type from the leading bytes.
func detectMIME(data []byte) string {
	if len(data) == 0 {
		return DefaultMIME
	}
	m := mimetype.Detect(data)
	if m == nil || m.String() == "" {
		return DefaultMIME
	}
	return m.String()
}
