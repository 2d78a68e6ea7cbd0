package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"
)

// Manifest is a deterministic projection of a case and its items.
// It is derived from the catalog and carries no generation time, so the same
// catalog state always encodes to the same bytes.
type Manifest struct {
	CaseID          string         `json:"caseId"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	Sensitivity     Sensitivity    `json:"sensitivity"`
	RetentionPolicy string         `json:"retentionPolicy"`
	Status          string         `json:"status"`
	Items           []ManifestItem `json:"items"`
}

// ManifestItem summarizes one evidence item.
type ManifestItem struct {
	EvidenceID   string    `json:"evidenceId"`
	OriginalName string    `json:"originalName"`
	SHA256       string    `json:"sha256"`
	Size         int64     `json:"size"`
	MIME         string    `json:"mime"`
	ReceivedAt   time.Time `json:"receivedAt"`
}

// MarshalJSON encodes the case id losslessly; see Text.
func (m Manifest) MarshalJSON() ([]byte, error) {
	type plain Manifest
	return marshalNoEscape(struct {
		CaseID Text `json:"caseId"`
		plain
	}{Text(m.CaseID), plain(m)})
}

// UnmarshalJSON reverses MarshalJSON.
func (m *Manifest) UnmarshalJSON(b []byte) error {
	type plain Manifest
	aux := struct {
		CaseID Text `json:"caseId"`
		*plain
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	m.CaseID = string(aux.CaseID)
	return nil
}

// MarshalJSON encodes the original name losslessly; see Text.
func (it ManifestItem) MarshalJSON() ([]byte, error) {
	type plain ManifestItem
	return marshalNoEscape(struct {
		EvidenceID   string `json:"evidenceId"`
		OriginalName Text   `json:"originalName"`
		plain
	}{it.EvidenceID, Text(it.OriginalName), plain(it)})
}

// UnmarshalJSON reverses MarshalJSON.
func (it *ManifestItem) UnmarshalJSON(b []byte) error {
	type plain ManifestItem
	aux := struct {
		OriginalName Text `json:"originalName"`
		*plain
	}{plain: (*plain)(it)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	it.OriginalName = string(aux.OriginalName)
	return nil
}

// Encode renders the manifest as indented JSON with a trailing newline.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// NewManifest projects a case and its items, in the given order.
func NewManifest(c *Case, items []*EvidenceItem) *Manifest {
	m := &Manifest{
		CaseID:          c.CaseID,
		CreatedAt:       c.CreatedAt.UTC(),
		UpdatedAt:       c.UpdatedAt.UTC(),
		Sensitivity:     c.Sensitivity,
		RetentionPolicy: c.RetentionPolicy,
		Status:          c.Status,
		Items:           make([]ManifestItem, 0, len(items)),
	}
	for _, item := range items {
		m.Items = append(m.Items, ManifestItem{
			EvidenceID:   item.EvidenceID,
			OriginalName: item.OriginalName,
			SHA256:       item.SHA256,
			Size:         item.Size,
			MIME:         item.MIME,
			ReceivedAt:   item.ReceivedAt.UTC(),
		})
	}
	return m
}

// GetManifest builds the manifest for caseID and rewrites its cached copy under
// the manifest directory. An unknown case yields ErrNotFound and a nil manifest.
func (s *Service) GetManifest(ctx context.Context, caseID string) (*Manifest, error) {
	m, _, _, err := s.buildManifest(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// buildManifest reads one snapshot of the case and its items, persists the
// manifest and returns it with its encoding and the items it was built from.
func (s *Service) buildManifest(ctx context.Context, caseID string) (*Manifest, []byte, []*EvidenceItem, error) {
	c, err := s.catalog.GetCase(ctx, caseID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("finding case: %w", err)
	}
	items, err := s.catalog.ListEvidenceByCase(ctx, caseID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("listing evidence: %w", err)
	}

	m := NewManifest(c, items)
	encoded, err := m.Encode()
	if err != nil {
		return nil, nil, nil, err
	}

	path := s.ManifestPath(caseID)
	if err := writeFileAtomic(path, encoded, 0644); err != nil {
		return nil, nil, nil, persistenceError("writing manifest", err)
	}

	s.logger.Debug("manifest written", "path", path, "items", len(m.Items))
	return m, encoded, items, nil
}

// ManifestPath returns where the cached manifest for caseID is written.
func (s *Service) ManifestPath(caseID string) string {
	return filepath.Join(s.layout.ManifestDir, SafeName(caseID)+".json")
}
