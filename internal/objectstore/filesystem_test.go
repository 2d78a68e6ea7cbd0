package objectstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"evidence-vault/internal/evidence"
)

func TestNewFileSystemStore(t *testing.T) {
	t.Run("creates root directory", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "objects")

		s, err := NewFileSystemStore(root, 0)
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}
		if err := s.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("rejects out of range shard depth", func(t *testing.T) {
		for _, depth := range []int{-1, MaxShardDepth + 1} {
			if _, err := NewFileSystemStore(t.TempDir(), depth); err == nil {
				t.Errorf("NewFileSystemStore(depth=%d) expected error", depth)
			}
		}
	})
}

func TestFileSystemStore_Put(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "store content successfully", data: "hello world"},
		{name: "empty content", data: ""},
		{name: "binary content", data: "\x00\x01\xff\xfe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewFileSystemStore(t.TempDir(), 0)
			if err != nil {
				t.Fatalf("NewFileSystemStore() error = %v", err)
			}

			digest, err := s.Put([]byte(tt.data))
			if err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if digest != evidence.Digest([]byte(tt.data)) {
				t.Errorf("digest = %s, want sha256 of content", digest)
			}

			data, err := os.ReadFile(filepath.Join(s.root, digest))
			if err != nil {
				t.Fatalf("failed to read object file: %v", err)
			}
			if string(data) != tt.data {
				t.Errorf("content = %q, want %q", string(data), tt.data)
			}
		})
	}
}

func TestFileSystemStore_Put_WriteOnce(t *testing.T) {
	s, err := NewFileSystemStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	data := []byte("hello world")
	digest, err := s.Put(data)
	if err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	info1, err := os.Stat(s.Locate(digest))
	if err != nil {
		t.Fatalf("stat object: %v", err)
	}
	if info1.Mode().Perm() != 0444 {
		t.Errorf("object mode = %v, want 0444", info1.Mode().Perm())
	}

	// Second put of identical bytes must not rewrite the file.
	if _, err := s.Put(data); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}
	info2, err := os.Stat(s.Locate(digest))
	if err != nil {
		t.Fatalf("stat object: %v", err)
	}
	if !os.SameFile(info1, info2) {
		t.Error("second Put() replaced the stored object")
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("objects directory has %d entries, want 1 (no temp files left)", len(entries))
	}
}

func TestFileSystemStore_Put_Concurrent(t *testing.T) {
	s, err := NewFileSystemStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	data := []byte("same bytes from many ingests")
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Put(data); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Put() error = %v", err)
	}

	got, err := s.Get(evidence.Digest(data))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("content = %q, want %q", got, data)
	}
}

func TestFileSystemStore_Sharding(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileSystemStore(root, 2)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	digest, err := s.Put([]byte("sharded"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	want := filepath.Join(root, digest[0:2], digest[2:4], digest)
	if got := s.Locate(digest); got != want {
		t.Errorf("Locate() = %s, want %s", got, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("object not stored at sharded path: %v", err)
	}
}

func TestFileSystemStore_Get(t *testing.T) {
	s, err := NewFileSystemStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	t.Run("retrieve existing content", func(t *testing.T) {
		digest, err := s.Put([]byte("hello world"))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		data, err := s.Get(digest)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(data) != "hello world" {
			t.Errorf("content = %q, want %q", data, "hello world")
		}
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := s.Get(strings.Repeat("0", 64))
		if !errors.Is(err, evidence.ErrObjectMissing) {
			t.Errorf("Get() error = %v, want ErrObjectMissing", err)
		}
	})

	t.Run("rejects digests that could escape the root", func(t *testing.T) {
		for _, d := range []string{"../../etc/passwd", "ABC", strings.Repeat("A", 64), ""} {
			_, err := s.Get(d)
			if !errors.Is(err, evidence.ErrInvalidDigest) {
				t.Errorf("Get(%q) error = %v, want ErrInvalidDigest", d, err)
			}
		}
	})
}

func TestFileSystemStore_Exists(t *testing.T) {
	s, err := NewFileSystemStore(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	digest := evidence.Digest([]byte("x"))
	ok, err := s.Exists(digest)
	if err != nil || ok {
		t.Fatalf("Exists() before Put = %v, %v; want false, nil", ok, err)
	}

	if _, err := s.Put([]byte("x")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	ok, err = s.Exists(digest)
	if err != nil || !ok {
		t.Fatalf("Exists() after Put = %v, %v; want true, nil", ok, err)
	}
}
