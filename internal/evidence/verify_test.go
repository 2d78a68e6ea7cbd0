package evidence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evidence-vault/internal/evidence"
	"evidence-vault/internal/testutil"
)

func TestVerify(t *testing.T) {
	tests := []struct {
		name        string
		damage      func(h *testutil.Harness, item *evidence.EvidenceItem)
		wantOK      bool
		wantReason  string
		wantDetails string
	}{
		{
			name:        "untouched object",
			damage:      func(*testutil.Harness, *evidence.EvidenceItem) {},
			wantOK:      true,
			wantDetails: "Integrity verified",
		},
		{
			name: "tampered object",
			damage: func(h *testutil.Harness, item *evidence.EvidenceItem) {
				h.Memory.Tamper(item.SHA256, []byte("%PDF-1.4\n% doctored\n"))
			},
			wantReason:  "Hash mismatch",
			wantDetails: "INTEGRITY FAILURE: Hash mismatch",
		},
		{
			name: "lost object",
			damage: func(h *testutil.Harness, item *evidence.EvidenceItem) {
				h.Memory.Delete(item.SHA256)
			},
			wantReason:  "Object missing",
			wantDetails: "INTEGRITY FAILURE: Object missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testutil.NewTestService(t)
			item := ingest(t, h, h.FS.AddFile("/evidence/report.pdf", []byte(reportPDF)), "CASE-42")
			tt.damage(h, item)

			result, err := h.Service.Verify(context.Background(), item.EvidenceID, "agent:checker")
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, result.OK)
			assert.Equal(t, tt.wantReason, result.Reason)

			events := auditTrail(t, h, evidence.AuditFilter{EvidenceID: item.EvidenceID})
			require.Len(t, events, 2)
			last := events[1]
			assert.Equal(t, evidence.EventVerify, last.EventType)
			assert.Equal(t, "CASE-42", last.CaseID)
			assert.Equal(t, "agent:checker", last.Actor)
			assert.Equal(t, tt.wantDetails, last.DetailsRedacted)
		})
	}
}

func TestVerify_UnknownIDIsNotAudited(t *testing.T) {
	h := testutil.NewTestService(t)

	result, err := h.Service.Verify(context.Background(), "no-such-id", "a")
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "Evidence ID not found", result.Reason)
	assert.ErrorIs(t, result.Err(), evidence.ErrNotFound)
	assert.Empty(t, auditTrail(t, h, evidence.AuditFilter{}))
}

func TestVerify_OnDiskTampering(t *testing.T) {
	h := testutil.NewTestService(t, testutil.WithFilesystemObjects())
	item := ingest(t, h, h.FS.AddFile("/evidence/notes.txt", []byte(notesTXT)), "CASE-1")

	result, err := h.Service.Verify(context.Background(), item.EvidenceID, "a")
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.NoError(t, result.Err())

	writeOverReadOnly(t, item.ObjectPath, []byte("rewritten notes\n"))

	result, err = h.Service.Verify(context.Background(), item.EvidenceID, "a")
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, evidence.ReasonHashMismatch, result.Reason)
	assert.ErrorIs(t, result.Err(), evidence.ErrIntegrityMismatch)
}

func TestVerify_RepeatedChecksAreEachAudited(t *testing.T) {
	h := testutil.NewTestService(t)
	item := ingest(t, h, h.FS.AddFile("/evidence/a.txt", []byte("a")), "CASE-1")

	for i := 0; i < 3; i++ {
		result, err := h.Service.Verify(context.Background(), item.EvidenceID, "a")
		require.NoError(t, err)
		require.True(t, result.OK)
	}

	events := auditTrail(t, h, evidence.AuditFilter{CaseID: "CASE-1"})
	require.Len(t, events, 4)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].EventID, events[i-1].EventID)
	}
}
