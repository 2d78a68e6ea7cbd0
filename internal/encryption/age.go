// Package encryption seals export archives for the people they are handed to.
// The vault's own objects and catalog are never encrypted.
package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"evidence-vault/internal/evidence"
)

// AgeSealer implements evidence.Sealer by age-encrypting to a fixed recipient set.
type AgeSealer struct {
	recipients []age.Recipient
}

var _ evidence.Sealer = (*AgeSealer)(nil)

// NewAgeSealer creates a sealer for the given recipients.
func NewAgeSealer(recipients ...age.Recipient) (*AgeSealer, error) {
	if len(recipients) == 0 {
		return nil, errors.New("age sealer needs at least one recipient")
	}
	return &AgeSealer{recipients: recipients}, nil
}

// LoadAgeSealer reads recipients from path, one age public key per line.
func LoadAgeSealer(path string) (*AgeSealer, error) {
	recipients, err := loadRecipients(path)
	if err != nil {
		return nil, err
	}
	return NewAgeSealer(recipients...)
}

// Seal reads plaintext from r and writes age ciphertext to w.
func (s *AgeSealer) Seal(r io.Reader, w io.Writer) error {
	encWriter, err := age.Encrypt(w, s.recipients...)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}

	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}

	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}

	return nil
}

// GenerateIdentity creates a recipient key pair for receiving sealed exports.
// The private key is written to identityPath encrypted with passphrase (age's
// scrypt recipient). The public key is appended to recipientsPath.
func GenerateIdentity(identityPath, recipientsPath, passphrase string) (*age.X25519Recipient, error) {
	if _, err := os.Stat(identityPath); err == nil {
		return nil, fmt.Errorf("identity file already exists: %s", identityPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating key pair: %w", err)
	}

	for _, p := range []string{identityPath, recipientsPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return nil, fmt.Errorf("creating key directory: %w", err)
		}
	}

	privFile, err := os.OpenFile(identityPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating identity file: %w", err)
	}
	defer privFile.Close()

	scrypt, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}

	w, err := age.Encrypt(privFile, scrypt)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return nil, fmt.Errorf("writing encrypted identity: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encrypted identity: %w", err)
	}
	if err := privFile.Sync(); err != nil {
		return nil, fmt.Errorf("syncing identity file: %w", err)
	}

	pubFile, err := os.OpenFile(recipientsPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening recipients file: %w", err)
	}
	defer pubFile.Close()

	if _, err := fmt.Fprintln(pubFile, identity.Recipient().String()); err != nil {
		return nil, fmt.Errorf("writing recipient: %w", err)
	}

	return identity.Recipient(), nil
}

// UnlockIdentity decrypts the identity file written by GenerateIdentity.
func UnlockIdentity(identityPath, passphrase string) (age.Identity, error) {
	privData, err := os.ReadFile(identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	scrypt, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	decReader, err := age.Decrypt(bytes.NewReader(privData), scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypting identity: %w", err)
	}

	keyData, err := io.ReadAll(decReader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted identity: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(keyData))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in %s", identityPath)
	}

	return identities[0], nil
}

// Unseal reads a sealed archive from r and writes the plaintext to w.
func Unseal(r io.Reader, w io.Writer, identity age.Identity) error {
	decReader, err := age.Decrypt(r, identity)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}

	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}

	return nil
}

func loadRecipients(path string) ([]age.Recipient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipients file: %w", err)
	}

	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing recipients file: %w", err)
	}

	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients found in %s", path)
	}

	return recipients, nil
}
