package objectstore

import (
	"fmt"
	"sync"

	"evidence-vault/internal/evidence"
)

// MemoryStore is an in-memory implementation of evidence.ObjectStore.
// It is useful for testing and is safe for concurrent use.
type MemoryStore struct {
	objects map[string][]byte
	puts    map[string]int
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		puts:    make(map[string]int),
	}
}

// Put stores a copy of data under its digest unless it is already present.
func (m *MemoryStore) Put(data []byte) (string, error) {
	digest := evidence.Digest(data)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[digest]; !ok {
		m.objects[digest] = append([]byte(nil), data...)
		m.puts[digest]++
	}
	return digest, nil
}

// Get returns a copy of the stored bytes.
func (m *MemoryStore) Get(digest string) ([]byte, error) {
	if !evidence.ValidDigest(digest) {
		return nil, fmt.Errorf("%w: %q", evidence.ErrInvalidDigest, digest)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[digest]
	if !ok {
		return nil, fmt.Errorf("%w: %s", evidence.ErrObjectMissing, digest)
	}
	return append([]byte(nil), data...), nil
}

// Exists reports whether digest is stored.
func (m *MemoryStore) Exists(digest string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[digest]
	return ok, nil
}

// Locate returns a pseudo path for digest.
func (m *MemoryStore) Locate(digest string) string {
	return "memory://" + digest
}

// ValidateSetup always succeeds.
func (m *MemoryStore) ValidateSetup() error {
	return nil
}

// Len returns the number of distinct objects stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Writes returns how many times bytes were actually written for digest.
func (m *MemoryStore) Writes(digest string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts[digest]
}

// Tamper replaces the stored bytes for digest, simulating out-of-band modification.
func (m *MemoryStore) Tamper(digest string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[digest] = append([]byte(nil), data...)
}

// Delete removes an object, simulating out-of-band loss.
func (m *MemoryStore) Delete(digest string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, digest)
}

// Compile-time check that MemoryStore implements evidence.ObjectStore
var _ evidence.ObjectStore = (*MemoryStore)(nil)
