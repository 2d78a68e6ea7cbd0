// Package fs reads ingest sources from the real filesystem.
package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"evidence-vault/internal/evidence"
)

// OSFilesystemManager is the real filesystem implementation of evidence.FilesystemManager.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Resolve makes rawPath absolute and accepts it only if it is a regular file.
// Symlinks are followed.
func (m *OSFilesystemManager) Resolve(rawPath string) (*evidence.Path, error) {
	if rawPath == "" {
		return nil, fmt.Errorf("%w: source path is required", evidence.ErrInvalidArgument)
	}

	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", evidence.ErrSourceNotFound, absPath)
		}
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	switch {
	case mode.IsDir():
		return nil, fmt.Errorf("%w: %s is a directory", evidence.ErrInvalidArgument, absPath)
	case mode&os.ModeDevice != 0:
		return nil, fmt.Errorf("%w: device files not supported: %s", evidence.ErrInvalidArgument, absPath)
	case mode&os.ModeNamedPipe != 0:
		return nil, fmt.Errorf("%w: named pipes not supported: %s", evidence.ErrInvalidArgument, absPath)
	case mode&os.ModeSocket != 0:
		return nil, fmt.Errorf("%w: sockets not supported: %s", evidence.ErrInvalidArgument, absPath)
	case !mode.IsRegular():
		return nil, fmt.Errorf("%w: not a regular file: %s", evidence.ErrInvalidArgument, absPath)
	}

	return evidence.NewPath(absPath, info), nil
}

// ReadFile reads the whole file. A file removed since Resolve yields fs.ErrNotExist.
func (m *OSFilesystemManager) ReadFile(path *evidence.Path) ([]byte, error) {
	data, err := os.ReadFile(path.String())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path.String(), err)
	}
	return data, nil
}

// FindFiles lists regular files under dir in lexical order for batch ingest.
// Paths matched by ignore (relative to dir) are skipped; a nil matcher skips nothing.
func (m *OSFilesystemManager) FindFiles(dir string, recursive bool, ignore *IgnoreMatcher) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", evidence.ErrSourceNotFound, root)
		}
		return nil, fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", evidence.ErrInvalidArgument, root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && (!recursive || ignore.MatchDir(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || ignore.Match(rel) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return paths, nil
}

var _ evidence.FilesystemManager = (*OSFilesystemManager)(nil)
