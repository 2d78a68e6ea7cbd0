package app

import "time"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation identifies one CLI invocation. Its ID prefixes every log line the
// invocation writes, so interleaved runs can be told apart in evault.log.
type Operation struct {
	ID      string
	Command string
	Status  string // "success" or "error"
	Started time.Time
}

// NewOperation creates an operation started at now.
func NewOperation(command string, now time.Time) *Operation {
	now = now.UTC()
	return &Operation{
		ID:      now.Format("20060102T150405.000Z"),
		Command: command,
		Status:  StatusSuccess,
		Started: now,
	}
}

// Fail marks the operation as failed. It cannot be undone.
func (op *Operation) Fail() {
	op.Status = StatusError
}

// Failed returns true once Fail has been called.
func (op *Operation) Failed() bool {
	return op.Status == StatusError
}

// Elapsed returns the time since the operation started, rounded to milliseconds.
func (op *Operation) Elapsed(now time.Time) time.Duration {
	return now.Sub(op.Started).Round(time.Millisecond)
}
