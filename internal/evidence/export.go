package evidence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"evidence-vault/internal/archive"
)

// ExportCase packages a case's manifest and every referenced object into a new
// zip archive and returns its path and SHA-256. Each call is a distinct custody
// event: the archive name and comment carry the export time, so digests differ
// across exports even when the entries are identical.
//
// Objects are re-hashed before packaging; an object that no longer matches its
// catalogued digest aborts the export with ErrIntegrityMismatch.
func (s *Service) ExportCase(ctx context.Context, caseID, actor string) (*ExportResult, error) {
	m, manifest, items, err := s.buildManifest(ctx, caseID)
	if err != nil {
		return nil, err
	}

	exportedAt := s.clock.Now().UTC()
	entries := make([]archive.Entry, 0, len(items)+1)
	entries = append(entries, archive.Entry{
		Name:     archive.ManifestName,
		Data:     manifest,
		Modified: m.UpdatedAt,
	})

	namer := archive.NewNamer()
	for _, item := range items {
		data, err := s.objects.Get(item.SHA256)
		if errors.Is(err, ErrObjectMissing) {
			return nil, fmt.Errorf("%w: object for evidence %s is missing", ErrIntegrityMismatch, item.EvidenceID)
		}
		if err != nil {
			return nil, fmt.Errorf("reading object for evidence %s: %w", item.EvidenceID, err)
		}
		if Digest(data) != item.SHA256 {
			return nil, fmt.Errorf("%w: object for evidence %s fails its digest", ErrIntegrityMismatch, item.EvidenceID)
		}
		entries = append(entries, archive.Entry{
			Name:     archive.EvidenceDir + namer.Name(item.OriginalName, item.EvidenceID),
			Data:     data,
			Modified: item.ReceivedAt,
		})
	}

	var buf bytes.Buffer
	comment := fmt.Sprintf("case %s exported %s", m.CaseID, exportedAt.Format("2006-01-02T15:04:05.000Z07:00"))
	if err := archive.Write(&buf, entries, comment); err != nil {
		return nil, fmt.Errorf("building archive: %w", err)
	}
	digest := Digest(buf.Bytes())

	archivePath, err := s.createArchive(SafeName(caseID), exportedAt, buf.Bytes())
	if err != nil {
		return nil, persistenceError("writing archive", err)
	}
	name := filepath.Base(archivePath)

	result := &ExportResult{ArchivePath: archivePath, ArchiveDigest: digest}
	if s.sealer != nil {
		sealedPath := archivePath + ".age"
		if err := writeExclusive(sealedPath, func(f *os.File) error {
			return s.sealer.Seal(bytes.NewReader(buf.Bytes()), f)
		}); err != nil {
			// No EXPORT event is recorded, so the plain archive must not stay behind.
			os.Remove(archivePath)
			return nil, persistenceError("sealing archive", err)
		}
		result.SealedPath = sealedPath
	}

	details := fmt.Sprintf("Exported case to %s (SHA256: %s...)", name, shortDigest(digest))
	if err := s.record(ctx, EventExport, caseID, "", actor, details); err != nil {
		return nil, err
	}

	s.logger.Info("case exported", "archive", name, "sha256", shortDigest(digest), "items", len(items))
	return result, nil
}

// maxArchiveAttempts bounds the uniquifier tried when exports of one case
// share a millisecond.
const maxArchiveAttempts = 100

// createArchive writes data to <base>_export_<ms>.zip in the export directory,
// falling back to <base>_export_<ms>-<n>.zip while the name is taken.
func (s *Service) createArchive(base string, at time.Time, data []byte) (string, error) {
	stem := fmt.Sprintf("%s_export_%d", base, at.UnixMilli())
	for n := 0; n < maxArchiveAttempts; n++ {
		name := stem + ".zip"
		if n > 0 {
			name = fmt.Sprintf("%s-%d.zip", stem, n)
		}
		path := filepath.Join(s.layout.ExportDir, name)
		err := writeExclusive(path, func(f *os.File) error {
			_, err := f.Write(data)
			return err
		})
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("%s: %d archive names already taken", stem, maxArchiveAttempts)
}

// writeExclusive creates path, which must not exist, and fills it with write.
// A failed write removes the partial file.
func writeExclusive(path string, write func(f *os.File) error) error {
	f, err := createExclusive(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("syncing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
