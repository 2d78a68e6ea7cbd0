// Package archive writes export packages: a zip with manifest.json at the root
// and evidence files under evidence/.
package archive

import (
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
)

const (
	ManifestName = "manifest.json"
	EvidenceDir  = "evidence/"
)

// Entry is one file in an archive.
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// Write encodes entries, in order, as a deflate-compressed zip to w.
// Entry headers depend only on the entries themselves, so the same entries
// always produce the same entry bytes; comment is the only per-archive field.
func Write(w io.Writer, entries []Entry, comment string) error {
	zw := zip.NewWriter(w)

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Name] {
			zw.Close()
			return fmt.Errorf("duplicate archive entry: %s", e.Name)
		}
		seen[e.Name] = true

		hdr := &zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: e.Modified.UTC(),
		}
		hdr.SetMode(0444)

		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			zw.Close()
			return fmt.Errorf("creating entry %s: %w", e.Name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			zw.Close()
			return fmt.Errorf("writing entry %s: %w", e.Name, err)
		}
	}

	if err := zw.SetComment(comment); err != nil {
		zw.Close()
		return fmt.Errorf("setting archive comment: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}
