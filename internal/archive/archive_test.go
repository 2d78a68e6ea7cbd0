package archive

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, data []byte) (map[string][]byte, []string, string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	contents := make(map[string][]byte)
	var order []string
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[f.Name] = b
		order = append(order, f.Name)
	}
	return contents, order, zr.Comment
}

func TestWrite(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	entries := []Entry{
		{Name: ManifestName, Data: []byte(`{"caseId":"CASE-42"}`), Modified: ts},
		{Name: EvidenceDir + "report.pdf", Data: []byte("%PDF-1.4 fake"), Modified: ts},
	}

	t.Run("round trips entries in order", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, entries, "export one"))

		contents, order, comment := readEntries(t, buf.Bytes())
		assert.Equal(t, []string{"manifest.json", "evidence/report.pdf"}, order)
		assert.Equal(t, "%PDF-1.4 fake", string(contents["evidence/report.pdf"]))
		assert.Equal(t, "export one", comment)
	})

	t.Run("same entries and comment produce identical bytes", func(t *testing.T) {
		var a, b bytes.Buffer
		require.NoError(t, Write(&a, entries, "c"))
		require.NoError(t, Write(&b, entries, "c"))
		assert.Equal(t, a.Bytes(), b.Bytes())
	})

	t.Run("comment alone changes the archive bytes", func(t *testing.T) {
		var a, b bytes.Buffer
		require.NoError(t, Write(&a, entries, "first"))
		require.NoError(t, Write(&b, entries, "second"))
		assert.NotEqual(t, a.Bytes(), b.Bytes())

		ca, _, _ := readEntries(t, a.Bytes())
		cb, _, _ := readEntries(t, b.Bytes())
		assert.Equal(t, ca, cb)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		var buf bytes.Buffer
		dup := append([]Entry{}, entries...)
		dup = append(dup, entries[1])
		assert.Error(t, Write(&buf, dup, ""))
	})
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\x\evil.txt`, "evil.txt"},
		{"tab\there.txt", "tab_here.txt"},
		{"what?.txt", "what_.txt"},
		{"..", ""},
		{"", ""},
		{"  ", ""},
		{"dir/", ""},
		{"cafe\u0301.txt", "caf\u00e9.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestNamer(t *testing.T) {
	n := NewNamer()
	assert.Equal(t, "report.pdf", n.Name("report.pdf", "id-1"))
	assert.Equal(t, "id-2_report.pdf", n.Name("report.pdf", "id-2"))
	assert.Equal(t, "evidence_id-3.bin", n.Name("", "id-3"))
	assert.Equal(t, "evidence_id-4.bin", n.Name("..", "id-4"))
	assert.Equal(t, "notes.txt", n.Name("sub/notes.txt", "id-5"))
}
