package audit

import (
	"errors"
	"fmt"
)

// ErrChainBroken is returned when a flat-file log fails verification.
var ErrChainBroken = errors.New("audit chain broken")

// ChainReport is the result of walking a flat-file log.
type ChainReport struct {
	Records  int    `json:"records"`
	LastHash string `json:"lastHash,omitempty"`
	BrokenAt int    `json:"brokenAt,omitempty"` // 1-based line of the first bad record
	EventID  int64  `json:"eventId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// OK reports whether every record chained correctly.
func (r *ChainReport) OK() bool {
	return r.BrokenAt == 0
}

// Err returns ErrChainBroken with the break location, or nil.
func (r *ChainReport) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: line %d: %s", ErrChainBroken, r.BrokenAt, r.Reason)
}

// CheckChain re-walks the log at path and stops at the first broken link.
// An absent file is an empty, valid chain.
func CheckChain(path string) (*ChainReport, error) {
	report := &ChainReport{}
	var prevID int64

	errStop := errors.New("stop")
	err := scan(path, func(line int, r *Record, decodeErr error) error {
		fail := func(reason string) error {
			report.BrokenAt = line
			report.Reason = reason
			if r != nil {
				report.EventID = r.EventID
			}
			return errStop
		}

		if decodeErr != nil {
			return fail("unreadable record")
		}
		if r.PrevHash != report.LastHash {
			return fail("prev_hash does not match the previous record")
		}
		if r.Hash != r.ComputeHash() {
			return fail("hash does not match record contents")
		}
		if r.EventID <= prevID {
			return fail(fmt.Sprintf("event id %d does not follow %d", r.EventID, prevID))
		}

		prevID = r.EventID
		report.LastHash = r.Hash
		report.Records++
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return report, nil
}
