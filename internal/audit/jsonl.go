package audit

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"evidence-vault/internal/evidence"
)

// hashDomain separates audit chain hashes from every other sha256 in the vault.
const hashDomain = "evidence-vault/audit/v2"

// Record is one line of the flat-file audit log.
type Record struct {
	EventID         int64     `json:"event_id"`
	Timestamp       time.Time `json:"ts"`
	EventType       string    `json:"event_type"`
	CaseID          string    `json:"case_id"`
	EvidenceID      string    `json:"evidence_id,omitempty"`
	Actor           string    `json:"actor"`
	DetailsRedacted string    `json:"details_redacted"`
	PrevHash        string    `json:"prev_hash"`
	Hash            string    `json:"hash"`
}

// recordJSON is the on-disk form of Record. Free-text fields use
// evidence.Text so that non-UTF-8 bytes read back unchanged.
type recordJSON struct {
	EventID         int64         `json:"event_id"`
	Timestamp       time.Time     `json:"ts"`
	EventType       string        `json:"event_type"`
	CaseID          evidence.Text `json:"case_id"`
	EvidenceID      evidence.Text `json:"evidence_id,omitempty"`
	Actor           evidence.Text `json:"actor"`
	DetailsRedacted evidence.Text `json:"details_redacted"`
	PrevHash        string        `json:"prev_hash"`
	Hash            string        `json:"hash"`
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		EventID:         r.EventID,
		Timestamp:       r.Timestamp,
		EventType:       r.EventType,
		CaseID:          evidence.Text(r.CaseID),
		EvidenceID:      evidence.Text(r.EvidenceID),
		Actor:           evidence.Text(r.Actor),
		DetailsRedacted: evidence.Text(r.DetailsRedacted),
		PrevHash:        r.PrevHash,
		Hash:            r.Hash,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(b []byte) error {
	var w recordJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Record{
		EventID:         w.EventID,
		Timestamp:       w.Timestamp,
		EventType:       w.EventType,
		CaseID:          string(w.CaseID),
		EvidenceID:      string(w.EvidenceID),
		Actor:           string(w.Actor),
		DetailsRedacted: string(w.DetailsRedacted),
		PrevHash:        w.PrevHash,
		Hash:            w.Hash,
	}
	return nil
}

// NewRecord converts an event that already carries its catalog event id.
func NewRecord(e *evidence.AuditEvent) *Record {
	return &Record{
		EventID:         e.EventID,
		Timestamp:       e.Timestamp.UTC(),
		EventType:       string(e.EventType),
		CaseID:          e.CaseID,
		EvidenceID:      e.EvidenceID,
		Actor:           e.Actor,
		DetailsRedacted: e.DetailsRedacted,
	}
}

// Event converts the record back to the catalog's event shape.
func (r *Record) Event() *evidence.AuditEvent {
	return &evidence.AuditEvent{
		EventID:         r.EventID,
		Timestamp:       r.Timestamp.UTC(),
		EventType:       evidence.EventType(r.EventType),
		CaseID:          r.CaseID,
		EvidenceID:      r.EvidenceID,
		Actor:           r.Actor,
		DetailsRedacted: r.DetailsRedacted,
	}
}

// ComputeHash returns sha256(domain 0x00 prev 0x00 fields) in hex. Each field
// is its raw bytes behind a big-endian uint64 length, so the digest does not
// depend on how the record is encoded on disk.
func (r *Record) ComputeHash() string {
	h := sha256.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0})
	h.Write([]byte(r.PrevHash))
	h.Write([]byte{0})

	var n [8]byte
	field := func(s string) {
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	field(strconv.FormatInt(r.EventID, 10))
	field(r.Timestamp.UTC().Format(time.RFC3339Nano))
	field(r.EventType)
	field(r.CaseID)
	field(r.EvidenceID)
	field(r.Actor)
	field(r.DetailsRedacted)
	return hex.EncodeToString(h.Sum(nil))
}

// JSONLFile is an append-only, hash-chained JSON lines file.
// Appends are serialized and synced before returning.
type JSONLFile struct {
	path string

	mu   sync.Mutex
	f    *os.File
	last string
}

// OpenJSONL opens or creates the log at path and positions the chain after its
// last readable record. A torn final line is left in place, terminated, so that
// CheckChain reports it.
func OpenJSONL(path string) (*JSONLFile, error) {
	if path == "" {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	last, torn, err := tail(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit file: %w", err)
	}
	if torn {
		if _, err := f.Write([]byte{'\n'}); err != nil {
			f.Close()
			return nil, fmt.Errorf("terminating torn audit line: %w", err)
		}
	}

	return &JSONLFile{path: path, f: f, last: last}, nil
}

// Path returns the file location.
func (j *JSONLFile) Path() string {
	return j.path
}

// LastHash returns the hash the next record will chain from.
func (j *JSONLFile) LastHash() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

// Append chains r onto the file, filling PrevHash and Hash.
func (j *JSONLFile) Append(r *Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.f == nil {
		return os.ErrClosed
	}

	r.PrevHash = j.last
	r.Hash = r.ComputeHash()

	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding audit record: %w", err)
	}
	line = append(line, '\n')

	if _, err := j.f.Write(line); err != nil {
		return fmt.Errorf("writing audit record: %w", err)
	}
	if err := j.f.Sync(); err != nil {
		return fmt.Errorf("syncing audit file: %w", err)
	}

	j.last = r.Hash
	return nil
}

// Records reads every parseable record in file order.
func (j *JSONLFile) Records() ([]*Record, error) {
	var out []*Record
	err := scan(j.path, func(_ int, r *Record, err error) error {
		if err == nil {
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

// Close closes the underlying file.
func (j *JSONLFile) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}

// scan calls fn for each non-empty line with its 1-based number. Lines that do
// not decode are passed with a non-nil err. A missing file has no lines.
func scan(path string, fn func(line int, r *Record, err error) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("opening audit file: %w", err)
	}
	defer f.Close()

	rd := bufio.NewReader(f)
	for n := 1; ; n++ {
		line, err := rd.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var r Record
			decodeErr := json.Unmarshal(line, &r)
			if decodeErr != nil {
				if cbErr := fn(n, nil, decodeErr); cbErr != nil {
					return cbErr
				}
			} else if cbErr := fn(n, &r, nil); cbErr != nil {
				return cbErr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading audit file: %w", err)
		}
	}
}

// tail returns the last decodable hash in path and whether the file ends
// without a newline.
func tail(path string) (string, bool, error) {
	var last string
	err := scan(path, func(_ int, r *Record, err error) error {
		if err == nil {
			last = r.Hash
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.Size() == 0) {
		return last, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading audit file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", false, fmt.Errorf("opening audit file: %w", err)
	}
	defer f.Close()

	b := make([]byte, 1)
	if _, err := f.ReadAt(b, info.Size()-1); err != nil {
		return "", false, fmt.Errorf("reading audit file: %w", err)
	}
	return last, b[0] != '\n', nil
}
