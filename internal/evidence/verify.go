package evidence

import (
	"context"
	"errors"
	"fmt"
)

// Verify re-hashes the stored object behind evidenceID and compares it with the
// catalogued digest. A mismatch is reported in the result, not as an error, and
// is always audited as an integrity failure. An unknown id is not audited.
// The returned error is non-nil only when the check itself could not be recorded.
func (s *Service) Verify(ctx context.Context, evidenceID, actor string) (*VerifyResult, error) {
	// Lookup
	item, err := s.catalog.GetEvidence(ctx, evidenceID)
	if errors.Is(err, ErrNotFound) {
		return &VerifyResult{OK: false, Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding evidence: %w", err)
	}

	// Rehash, Compare
	result := &VerifyResult{OK: true}
	data, err := s.objects.Get(item.SHA256)
	switch {
	case errors.Is(err, ErrObjectMissing):
		result = &VerifyResult{OK: false, Reason: ReasonObjectMissing}
	case err != nil:
		return nil, fmt.Errorf("reading object: %w", err)
	case Digest(data) != item.SHA256:
		result = &VerifyResult{OK: false, Reason: ReasonHashMismatch}
	}

	// Audit
	details := "Integrity verified"
	if !result.OK {
		details = "INTEGRITY FAILURE: " + result.Reason
		s.logger.Warn("integrity failure", "evidence_id", item.EvidenceID, "reason", result.Reason)
	}
	if err := s.record(ctx, EventVerify, item.CaseID, item.EvidenceID, actor, details); err != nil {
		return nil, err
	}

	return result, nil
}
