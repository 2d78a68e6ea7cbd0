package evidence

// ObjectStore is content-addressed, write-once byte storage.
// The storage location of an object is a pure function of its digest.
type ObjectStore interface {
	// Put stores data and returns its lowercase hex SHA-256 digest.
	// If an object with that digest already exists the call succeeds without rewriting it.
	Put(data []byte) (string, error)

	// Get returns the current bytes stored for digest.
	Get(digest string) ([]byte, error)

	// Exists reports whether an object is stored for digest.
	Exists(digest string) (bool, error)

	// Locate returns the storage pointer recorded as an item's object path.
	Locate(digest string) string

	// ValidateSetup verifies that the store is accessible.
	ValidateSetup() error
}
