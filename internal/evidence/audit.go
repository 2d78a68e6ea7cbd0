package evidence

import "context"

// AuditSink records chain-of-custody events.
// Record persists e and assigns e.EventID. e.Timestamp is set by the caller.
// A returned error means the event must not be treated as recorded.
type AuditSink interface {
	Record(ctx context.Context, e *AuditEvent) error
}
