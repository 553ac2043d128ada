package fileutil

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

func writeFile(t *testing.T, fs billy.Filesystem, name, content string) {
	t.Helper()
	if err := util.WriteFile(fs, name, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, fs billy.Filesystem, name string) string {
	t.Helper()
	data, err := util.ReadFile(fs, name)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestCopyFile(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "/in/src.dcm", "hello world")

	if err := CopyFile(fs, "/in/src.dcm", "/out/nested/dst.dcm"); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, fs, "/out/nested/dst.dcm"); got != "hello world" {
		t.Fatalf("content mismatch: got %q", got)
	}
	if got := readFile(t, fs, "/in/src.dcm"); got != "hello world" {
		t.Fatalf("source changed: %q", got)
	}
}

func TestCopyFileTruncatesExisting(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "/src", "ab")
	writeFile(t, fs, "/dst", "a much longer placeholder")

	if err := CopyFile(fs, "/src", "/dst"); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, fs, "/dst"); got != "ab" {
		t.Fatalf("expected truncated copy, got %q", got)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	fs := memfs.New()
	if err := CopyFile(fs, "/missing", "/dst"); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestClaimUniqueAppendsSuffix(t *testing.T) {
	fs := memfs.New()

	first, err := ClaimUnique(fs, "/out/a.dcm", ".copy")
	if err != nil {
		t.Fatal(err)
	}
	second, err := ClaimUnique(fs, "/out/a.dcm", ".copy")
	if err != nil {
		t.Fatal(err)
	}
	third, err := ClaimUnique(fs, "/out/a.dcm", ".copy")
	if err != nil {
		t.Fatal(err)
	}
	if first != "/out/a.dcm" || second != "/out/a.dcm.copy" || third != "/out/a.dcm.copy.copy" {
		t.Fatalf("unexpected claims %q %q %q", first, second, third)
	}
}

func TestClaimUniqueRejectsEmptySuffix(t *testing.T) {
	if _, err := ClaimUnique(memfs.New(), "/out/a", ""); err == nil {
		t.Fatal("expected error for empty suffix")
	}
}

func TestClaimUniqueConcurrent(t *testing.T) {
	fs := osfs.New(t.TempDir())
	const workers = 8

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := ClaimUnique(fs, "/out/a.dcm", ".copy")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[claimed] {
				t.Errorf("path %q claimed twice", claimed)
			}
			seen[claimed] = true
		}()
	}
	wg.Wait()
	if len(seen) != workers {
		t.Fatalf("expected %d distinct claims, got %d", workers, len(seen))
	}
}

func TestMoveOntoClaimedPath(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "/in/a.dcm", "payload")
	dst, err := ClaimUnique(fs, "/out/a.dcm", ".copy")
	if err != nil {
		t.Fatal(err)
	}

	if err := Move(fs, "/in/a.dcm", dst); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, fs, dst); got != "payload" {
		t.Fatalf("unexpected content %q", got)
	}
	if _, err := fs.Stat("/in/a.dcm"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected source removed, stat err = %v", err)
	}
}
