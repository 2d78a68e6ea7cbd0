package testutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"evidence-vault/internal/evidence"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory evidence.FilesystemManager.
type MockFilesystemManager struct {
	mu    sync.Mutex
	files map[string]*MockFile
	reads int
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
	}
}

// AddFile adds a file at path, which is made absolute, and returns that path.
func (m *MockFilesystemManager) AddFile(path string, content []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	abs := mustAbs(path)
	m.files[abs] = &MockFile{
		Content:     append([]byte(nil), content...),
		Permissions: 0644,
		ModTime:     time.Now(),
	}
	return abs
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[mustAbs(path)] = &MockFile{
		Permissions: 0755,
		ModTime:     time.Now(),
		IsDirectory: true,
	}
}

// RemoveFile deletes path, simulating a source vanishing between resolve and read.
func (m *MockFilesystemManager) RemoveFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, mustAbs(path))
}

// Reads returns how many ReadFile calls succeeded.
func (m *MockFilesystemManager) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*evidence.Path, error) {
	if rawPath == "" {
		return nil, fmt.Errorf("%w: source path is required", evidence.ErrInvalidArgument)
	}
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", evidence.ErrSourceNotFound, absPath)
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("%w: %s is a directory", evidence.ErrInvalidArgument, absPath)
	}

	return evidence.NewPath(absPath, &mockFileInfo{
		name:    filepath.Base(absPath),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
	}), nil
}

func (m *MockFilesystemManager) ReadFile(path *evidence.Path) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", path.String(), fs.ErrNotExist)
	}
	m.reads++
	return append([]byte(nil), file.Content...), nil
}

func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		panic(err)
	}
	return abs
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return false }
func (m *mockFileInfo) Sys() any           { return nil }

var _ evidence.FilesystemManager = (*MockFilesystemManager)(nil)
