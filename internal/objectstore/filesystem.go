package objectstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"evidence-vault/internal/evidence"
)

// MaxShardDepth bounds the number of two-character directory levels.
const MaxShardDepth = 3

// FileSystemStore is a filesystem-based implementation of evidence.ObjectStore.
// Objects are stored as read-only files named by their digest:
//
//	<root>/
//	  <digest>           (shardDepth 0)
//	  ab/cd/<digest>     (shardDepth 2)
type FileSystemStore struct {
	root       string
	shardDepth int
}

// NewFileSystemStore creates a store rooted at root, creating the directory if needed.
func NewFileSystemStore(root string, shardDepth int) (*FileSystemStore, error) {
	if shardDepth < 0 || shardDepth > MaxShardDepth {
		return nil, fmt.Errorf("shard depth must be between 0 and %d, got %d", MaxShardDepth, shardDepth)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create objects directory: %w", err)
	}
	return &FileSystemStore{root: root, shardDepth: shardDepth}, nil
}

// Locate returns the path an object with digest is stored at.
func (s *FileSystemStore) Locate(digest string) string {
	parts := make([]string, 0, s.shardDepth+2)
	parts = append(parts, s.root)
	for i := 0; i < s.shardDepth; i++ {
		parts = append(parts, digest[2*i:2*i+2])
	}
	parts = append(parts, digest)
	return filepath.Join(parts...)
}

// Put stores data under its digest. Existing objects are left untouched.
func (s *FileSystemStore) Put(data []byte) (string, error) {
	digest := evidence.Digest(data)
	destPath := s.Locate(digest)

	// Existence, not content, decides: objects are write-once.
	if _, err := os.Stat(destPath); err == nil {
		return digest, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking object: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create shard directory: %w", err)
	}
	if err := s.writeOnce(destPath, data); err != nil {
		return "", err
	}
	return digest, nil
}

// Get returns the bytes currently stored for digest.
func (s *FileSystemStore) Get(digest string) ([]byte, error) {
	if !evidence.ValidDigest(digest) {
		return nil, fmt.Errorf("%w: %q", evidence.ErrInvalidDigest, digest)
	}
	data, err := os.ReadFile(s.Locate(digest))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", evidence.ErrObjectMissing, digest)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Exists reports whether an object is stored for digest.
func (s *FileSystemStore) Exists(digest string) (bool, error) {
	if !evidence.ValidDigest(digest) {
		return false, fmt.Errorf("%w: %q", evidence.ErrInvalidDigest, digest)
	}
	_, err := os.Stat(s.Locate(digest))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking object: %w", err)
}

// ValidateSetup verifies that the objects directory is accessible.
func (s *FileSystemStore) ValidateSetup() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("objects directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("objects path is not a directory: %s", s.root)
	}
	return nil
}

// writeOnce writes data to a temp file beside destPath and hard-links it into
// place. The link fails if another writer got there first, which is success:
// the digest guarantees the bytes are the same. No partial object is ever visible.
func (s *FileSystemStore) writeOnce(destPath string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0444); err != nil {
		return fmt.Errorf("failed to set object permissions: %w", err)
	}

	if err := os.Link(tmpPath, destPath); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("failed to link object: %w", err)
	}
	return nil
}

// Compile-time check that FileSystemStore implements evidence.ObjectStore
var _ evidence.ObjectStore = (*FileSystemStore)(nil)
