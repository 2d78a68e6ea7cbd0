package encryption

import (
	"bytes"
	"fmt"
	"io"

	"evidence-vault/internal/evidence"
)

// testHeader marks output of TestSealer so sealed bytes never equal the plaintext.
var testHeader = []byte("EVSEAL\x00\x00")

// TestSealer is a deterministic, reversible sealer for tests. It performs no
// cryptography.
type TestSealer struct {
	calls int
}

var _ evidence.Sealer = (*TestSealer)(nil)

func NewTestSealer() *TestSealer {
	return &TestSealer{}
}

func (s *TestSealer) Seal(r io.Reader, w io.Writer) error {
	s.calls++
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

// Calls returns how many archives were sealed.
func (s *TestSealer) Calls() int {
	return s.calls
}

// UnsealTest strips the TestSealer header.
func UnsealTest(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test seal header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
