package evidence

import "io"

// Sealer encrypts an export archive for hand-off to its recipients.
// Vault contents are never sealed; only copies leaving the vault are.
type Sealer interface {
	Seal(r io.Reader, w io.Writer) error
}
