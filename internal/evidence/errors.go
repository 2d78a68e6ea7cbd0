package evidence

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound means the ingest source file does not exist.
	ErrSourceNotFound = errors.New("source file not found")

	// ErrNotFound means a case or evidence id is absent from the catalog.
	ErrNotFound = errors.New("not found")

	// ErrIntegrityMismatch means stored bytes no longer hash to the catalogued digest.
	ErrIntegrityMismatch = errors.New("integrity mismatch")

	// ErrPersistence means a catalog, object or audit write did not complete.
	// The operation must be treated as not recorded.
	ErrPersistence = errors.New("persistence failure")

	// ErrObjectMissing means no object is stored under a digest.
	ErrObjectMissing = errors.New("object missing")

	// ErrInvalidDigest means a digest is not 64 lowercase hex characters.
	ErrInvalidDigest = errors.New("invalid digest")

	// ErrInvalidArgument means a caller-supplied value was rejected before any side effect.
	ErrInvalidArgument = errors.New("invalid argument")
)

// persistenceError marks err as a persistence failure while keeping the cause inspectable.
func persistenceError(op string, err error) error {
	if errors.Is(err, ErrPersistence) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return errors.Join(ErrPersistence, fmt.Errorf("%s: %w", op, err))
}
