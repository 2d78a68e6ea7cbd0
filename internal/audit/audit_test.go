package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evidence-vault/internal/database"
	"evidence-vault/internal/evidence"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTable(t *testing.T) *database.SQLiteCatalog {
	t.Helper()
	c, err := database.NewSQLiteCatalog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func newLog(t *testing.T) (*Log, *database.SQLiteCatalog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit", "audit.jsonl")
	file, err := OpenJSONL(path)
	require.NoError(t, err)
	table := newTable(t)
	l := NewLog(table, file, nil)
	t.Cleanup(func() { l.Close() })
	return l, table, path
}

func event(i int) *evidence.AuditEvent {
	return &evidence.AuditEvent{
		Timestamp:       t0.Add(time.Duration(i) * time.Second),
		EventType:       evidence.EventIngest,
		CaseID:          "CASE-42",
		EvidenceID:      "ev-1",
		Actor:           "agent:test",
		DetailsRedacted: "Ingested file report.pdf (SHA256: abcdef01...)",
	}
}

func TestLog_RecordWritesBothSinks(t *testing.T) {
	l, table, path := newLog(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e := event(i)
		require.NoError(t, l.Record(ctx, e))
		assert.Equal(t, int64(i+1), e.EventID)
	}

	rows, err := table.ListAuditEvents(ctx, evidence.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	records, err := l.file.Records()
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, rows[i].EventID, r.EventID)
		assert.True(t, sameEvent(rows[i], r.Event()), "record %d differs from table row", i)
	}
	assert.Empty(t, records[0].PrevHash, "first record chains from the empty string")
	assert.Equal(t, records[0].Hash, records[1].PrevHash)
	assert.Equal(t, records[1].Hash, records[2].PrevHash)

	report, err := CheckChain(path)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, records[2].Hash, report.LastHash)

	rec, err := l.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, rec.Consistent())
}

func TestLog_ConcurrentRecordsKeepFileOrder(t *testing.T) {
	l, _, path := newLog(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Record(ctx, event(i)))
		}(i)
	}
	wg.Wait()

	report, err := CheckChain(path)
	require.NoError(t, err)
	assert.True(t, report.OK(), report.Reason)
	assert.Equal(t, 20, report.Records)
}

type failingTable struct{ EventStore }

func (failingTable) AppendAuditEvent(context.Context, *evidence.AuditEvent) (int64, error) {
	return 0, errors.New("disk I/O error")
}

func TestLog_TableFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	file, err := OpenJSONL(path)
	require.NoError(t, err)
	l := NewLog(failingTable{}, file, nil)
	defer l.Close()

	err = l.Record(context.Background(), event(0))
	require.ErrorIs(t, err, evidence.ErrPersistence)

	records, err := file.Records()
	require.NoError(t, err)
	assert.Empty(t, records, "file must not get an event the table rejected")
}

func TestLog_FileFailureIsReconciled(t *testing.T) {
	l, _, _ := newLog(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, event(0)))
	require.NoError(t, l.file.Close())

	err := l.Record(ctx, event(1))
	require.ErrorIs(t, err, evidence.ErrPersistence)
	assert.Contains(t, err.Error(), "catalog only")

	rec, err := l.Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, rec.Consistent())
	assert.Equal(t, []int64{2}, rec.MissingFromFile)
	assert.Equal(t, 2, rec.TableEvents)
	assert.Equal(t, 1, rec.FileEvents)
}

func TestOpenJSONL_ResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	first, err := OpenJSONL(path)
	require.NoError(t, err)
	r1 := NewRecord(&evidence.AuditEvent{EventID: 1, Timestamp: t0, EventType: evidence.EventIngest, CaseID: "C", Actor: "a"})
	require.NoError(t, first.Append(r1))
	require.NoError(t, first.Close())

	second, err := OpenJSONL(path)
	require.NoError(t, err)
	defer second.Close()
	assert.Equal(t, r1.Hash, second.LastHash())

	r2 := NewRecord(&evidence.AuditEvent{EventID: 2, Timestamp: t0, EventType: evidence.EventVerify, CaseID: "C", Actor: "a"})
	require.NoError(t, second.Append(r2))
	assert.Equal(t, r1.Hash, r2.PrevHash)

	report, err := CheckChain(path)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Records)
}

func TestOpenJSONL_TornLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	j, err := OpenJSONL(path)
	require.NoError(t, err)
	r1 := NewRecord(&evidence.AuditEvent{EventID: 1, Timestamp: t0, EventType: evidence.EventIngest, CaseID: "C", Actor: "a"})
	require.NoError(t, j.Append(r1))
	require.NoError(t, j.Close())

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	require.NoError(t, err)
	_, err = f.WriteString(`{"event_id":2,"ts":"2024-`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	j, err = OpenJSONL(path)
	require.NoError(t, err)
	defer j.Close()
	assert.Equal(t, r1.Hash, j.LastHash())

	r3 := NewRecord(&evidence.AuditEvent{EventID: 3, Timestamp: t0, EventType: evidence.EventIngest, CaseID: "C", Actor: "a"})
	require.NoError(t, j.Append(r3))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3, "torn line stays on its own line")

	report, err := CheckChain(path)
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, 2, report.BrokenAt)
	assert.Equal(t, "unreadable record", report.Reason)
	assert.ErrorIs(t, report.Err(), ErrChainBroken)
}

func TestCheckChain_DetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(lines []string) []string
		line   int
		reason string
	}{
		{
			name: "edited details",
			mutate: func(lines []string) []string {
				lines[1] = strings.Replace(lines[1], "report.pdf", "other.pdf", 1)
				return lines
			},
			line:   2,
			reason: "hash does not match record contents",
		},
		{
			name: "deleted record",
			mutate: func(lines []string) []string {
				return append(lines[:1], lines[2:]...)
			},
			line:   2,
			reason: "prev_hash does not match the previous record",
		},
		{
			name: "reordered records",
			mutate: func(lines []string) []string {
				lines[0], lines[1] = lines[1], lines[0]
				return lines
			},
			line:   1,
			reason: "prev_hash does not match the previous record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, path := newLog(t)
			for i := 0; i < 3; i++ {
				require.NoError(t, l.Record(context.Background(), event(i)))
			}

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			lines := tt.mutate(strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"))
			require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))

			report, err := CheckChain(path)
			require.NoError(t, err)
			assert.Equal(t, tt.line, report.BrokenAt)
			assert.Equal(t, tt.reason, report.Reason)
		})
	}
}

func TestCheckChain_MissingFile(t *testing.T) {
	report, err := CheckChain(filepath.Join(t.TempDir(), "none.jsonl"))
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Zero(t, report.Records)
}

func TestRecord_ComputeHashIsDomainSeparated(t *testing.T) {
	r := NewRecord(event(0))
	r.EventID = 1

	h1 := r.ComputeHash()
	assert.Len(t, h1, 64)

	r.PrevHash = "x"
	h2 := r.ComputeHash()
	assert.NotEqual(t, h1, h2, "prev hash is part of the digest")
}

func TestLog_NonUTF8FieldsRoundTrip(t *testing.T) {
	l, table, path := newLog(t)
	ctx := context.Background()

	ids := []string{"nul\x00id", "bad\xffutf8", "ctl\x01\x1b[0m", "plain <&> id"}
	for i, id := range ids {
		e := event(i)
		e.CaseID = id
		e.DetailsRedacted = "Ingested file scan\xfe.pdf (SHA256: abcdef01...)"
		require.NoError(t, l.Record(ctx, e))
	}

	records, err := l.file.Records()
	require.NoError(t, err)
	require.Len(t, records, len(ids))
	for i, r := range records {
		assert.Equal(t, ids[i], r.CaseID)
		assert.Equal(t, "Ingested file scan\xfe.pdf (SHA256: abcdef01...)", r.DetailsRedacted)
	}

	report, err := CheckChain(path)
	require.NoError(t, err)
	assert.True(t, report.OK(), "chain broken: %+v", report)
	assert.Equal(t, len(ids), report.Records)

	rec, err := l.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, rec.Consistent(), "reconcile: %+v", rec)

	rows, err := table.ListAuditEvents(ctx, evidence.AuditFilter{CaseID: "bad\xffutf8"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecord_ComputeHashSeparatesFields(t *testing.T) {
	a := NewRecord(event(0))
	a.CaseID, a.EvidenceID = "ab", "c"
	b := NewRecord(event(0))
	b.CaseID, b.EvidenceID = "a", "bc"

	assert.NotEqual(t, a.ComputeHash(), b.ComputeHash())
}
