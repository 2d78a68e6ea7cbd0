// Package audit keeps the chain-of-custody record. Every event is written to
// the catalog's audit table and to a hash-chained JSON lines file.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"evidence-vault/internal/evidence"
)

// EventStore is the durable log table, normally the catalog.
type EventStore interface {
	AppendAuditEvent(ctx context.Context, e *evidence.AuditEvent) (int64, error)
	ListAuditEvents(ctx context.Context, f evidence.AuditFilter) ([]*evidence.AuditEvent, error)
}

// Log implements evidence.AuditSink as a dual write: table first, for the
// event id, then the flat file. Events reach the file in event id order.
type Log struct {
	mu     sync.Mutex
	table  EventStore
	file   *JSONLFile
	logger evidence.Logger
}

// NewLog creates a dual-write audit log.
func NewLog(table EventStore, file *JSONLFile, logger evidence.Logger) *Log {
	if logger == nil {
		logger = evidence.NewNopLogger()
	}
	return &Log{table: table, file: file, logger: logger}
}

// Record writes e to both sinks and sets e.EventID.
// A failure in either sink is returned wrapped in evidence.ErrPersistence.
func (l *Log) Record(ctx context.Context, e *evidence.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := l.table.AppendAuditEvent(ctx, e)
	if err != nil {
		return errors.Join(evidence.ErrPersistence, fmt.Errorf("audit table: %w", err))
	}
	e.EventID = id

	if err := l.file.Append(NewRecord(e)); err != nil {
		l.logger.Error("audit event recorded in catalog only", "event_id", id, "error", err)
		return errors.Join(evidence.ErrPersistence, fmt.Errorf("audit file (event %d is in the catalog only): %w", id, err))
	}
	return nil
}

// Check verifies the flat file's hash chain.
func (l *Log) Check() (*ChainReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return CheckChain(l.file.Path())
}

// Reconciliation lists the differences between the audit table and the flat file.
type Reconciliation struct {
	TableEvents      int     `json:"tableEvents"`
	FileEvents       int     `json:"fileEvents"`
	MissingFromFile  []int64 `json:"missingFromFile,omitempty"`
	MissingFromTable []int64 `json:"missingFromTable,omitempty"`
	Mismatched       []int64 `json:"mismatched,omitempty"`
}

// Consistent reports whether both sinks hold the same events.
func (r *Reconciliation) Consistent() bool {
	return len(r.MissingFromFile) == 0 && len(r.MissingFromTable) == 0 && len(r.Mismatched) == 0
}

// Reconcile compares every event in the table against the flat file.
func (l *Log) Reconcile(ctx context.Context) (*Reconciliation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.table.ListAuditEvents(ctx, evidence.AuditFilter{})
	if err != nil {
		return nil, fmt.Errorf("reading audit table: %w", err)
	}
	records, err := l.file.Records()
	if err != nil {
		return nil, fmt.Errorf("reading audit file: %w", err)
	}

	inFile := make(map[int64]*evidence.AuditEvent, len(records))
	for _, r := range records {
		inFile[r.EventID] = r.Event()
	}

	rec := &Reconciliation{TableEvents: len(rows), FileEvents: len(records)}
	seen := make(map[int64]bool, len(rows))
	for _, row := range rows {
		seen[row.EventID] = true
		fileEvent, ok := inFile[row.EventID]
		switch {
		case !ok:
			rec.MissingFromFile = append(rec.MissingFromFile, row.EventID)
		case !sameEvent(row, fileEvent):
			rec.Mismatched = append(rec.Mismatched, row.EventID)
		}
	}
	for id := range inFile {
		if !seen[id] {
			rec.MissingFromTable = append(rec.MissingFromTable, id)
		}
	}
	sort.Slice(rec.MissingFromTable, func(i, j int) bool { return rec.MissingFromTable[i] < rec.MissingFromTable[j] })

	return rec, nil
}

// Close closes the flat file. The table belongs to the catalog.
func (l *Log) Close() error {
	return l.file.Close()
}

func sameEvent(a, b *evidence.AuditEvent) bool {
	return a.EventID == b.EventID &&
		a.Timestamp.Equal(b.Timestamp) &&
		a.EventType == b.EventType &&
		a.CaseID == b.CaseID &&
		a.EvidenceID == b.EvidenceID &&
		a.Actor == b.Actor &&
		a.DetailsRedacted == b.DetailsRedacted
}

var _ evidence.AuditSink = (*Log)(nil)
