package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// IgnoreFileName is read from the top of a directory given to batch ingest.
const IgnoreFileName = ".evignore"

// defaultIgnorePatterns are always applied: the ignore file itself and the
// desktop metadata files that are never evidence.
var defaultIgnorePatterns = []string{IgnoreFileName, ".DS_Store", "Thumbs.db", "desktop.ini"}

// ignoreRule is one parsed line of an ignore file.
type ignoreRule struct {
	pattern  string
	anchored bool // pattern contains '/', so it is matched against the whole relative path
	dirOnly  bool // trailing '/': applies to directories only
	negate   bool // leading '!': re-includes a path an earlier rule excluded
	matcher  glob.Glob
}

func (r ignoreRule) matches(relSlash, base string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	if r.anchored {
		return r.matcher.Match(relSlash)
	}
	return r.matcher.Match(base)
}

// IgnoreMatcher decides which files a batch ingest leaves out.
//
// Syntax, one rule per line:
//
//	*.tmp          base name glob, matches at any depth
//	drafts/*.txt   glob against the path relative to the ingest root
//	drafts/**.txt  '**' also crosses directory boundaries
//	scratch/       directory rule; the whole subtree is skipped
//	!keep.tmp      re-include something an earlier rule excluded
//
// Rules are evaluated in order and the last match wins. Lines that do not
// compile as globs are dropped.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher parses raw rule lines. Blank lines and '#' comments are skipped.
func NewIgnoreMatcher(lines []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var r ignoreRule
		if strings.HasPrefix(line, "!") {
			r.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			r.dirOnly = true
			line = strings.TrimRight(line, "/")
		}
		line = strings.TrimPrefix(line, "/")
		if line == "" {
			continue
		}
		g, err := glob.Compile(line, '/')
		if err != nil {
			continue
		}
		r.pattern = line
		r.anchored = strings.Contains(line, "/")
		r.matcher = g
		m.rules = append(m.rules, r)
	}
	return m
}

// Match reports whether the file at relativePath (relative to the ingest root)
// is excluded. A nil matcher excludes nothing.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	return m.match(relativePath, false)
}

// MatchDir reports whether the directory at relativePath should not be walked.
func (m *IgnoreMatcher) MatchDir(relativePath string) bool {
	return m.match(relativePath, true)
}

func (m *IgnoreMatcher) match(relativePath string, isDir bool) bool {
	if m == nil || relativePath == "" || relativePath == "." {
		return false
	}
	relSlash := filepath.ToSlash(relativePath)
	base := filepath.Base(relativePath)

	ignored := false
	for _, r := range m.rules {
		if r.matches(relSlash, base, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

// ParseIgnoreFile returns the raw lines of the ignore file at path.
// A missing file yields no lines and no error.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}

// LoadIgnoreMatcher combines the default rules with dir's ignore file, if any.
// Rules in the file come last, so they can re-include a default with '!'.
func LoadIgnoreMatcher(dir string) (*IgnoreMatcher, error) {
	lines, err := ParseIgnoreFile(filepath.Join(dir, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	return NewIgnoreMatcher(append(append([]string{}, defaultIgnorePatterns...), lines...)), nil
}
