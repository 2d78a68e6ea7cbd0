package evidence

import (
	"io/fs"
	"path/filepath"
)

// FilesystemManager reads ingest sources.
// It abstracts file access so the service can be tested without a real filesystem.
// It resolves to an absolute path only; sandboxing the path is the caller's job.
type FilesystemManager interface {
	// Resolve makes rawPath absolute and stats it. A missing path yields ErrSourceNotFound.
	// Only regular files are accepted.
	Resolve(rawPath string) (*Path, error)

	// ReadFile reads the whole file into memory.
	ReadFile(path *Path) ([]byte, error)
}

// Path is a resolved source file with the stat info captured at resolution time.
type Path struct {
	absPath string
	info    fs.FileInfo
}

// NewPath creates a Path from its components.
// This is primarily for use by FilesystemManager implementations.
func NewPath(absPath string, info fs.FileInfo) *Path {
	return &Path{absPath: absPath, info: info}
}

// String returns the absolute path.
func (p *Path) String() string {
	return p.absPath
}

// Base returns the final path element, used as the display name of an item.
func (p *Path) Base() string {
	return filepath.Base(p.absPath)
}

// Info returns the cached file info.
func (p *Path) Info() fs.FileInfo {
	return p.info
}
