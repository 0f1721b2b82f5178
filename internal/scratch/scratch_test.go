package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateAndRemove(t *testing.T) {
	root := t.TempDir()

	dir, err := Create(root)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if !strings.HasPrefix(filepath.Base(dir.Path()), "rs_ingestion_temp_") {
		t.Errorf("unexpected directory name: %s", dir.Path())
	}

	info, err := os.Stat(dir.Path())
	if err != nil {
		t.Fatalf("scratch directory should exist: %v", err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("expected mode 0700, got %v", info.Mode().Perm())
	}

	// Populate so Remove has real work to do
	if err := os.WriteFile(dir.Join("node.toml"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := dir.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(dir.Path()); !os.IsNotExist(err) {
		t.Errorf("scratch directory should be gone, stat err: %v", err)
	}
	if !dir.Removed() {
		t.Error("Removed should report true")
	}
}

func TestRemoveIdempotent(t *testing.T) {
	dir, err := Create(t.TempDir())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := dir.Remove(); err != nil {
		t.Fatalf("first Remove failed: %v", err)
	}
	if err := dir.Remove(); err != nil {
		t.Fatalf("second Remove should be a no-op, got: %v", err)
	}
}

func TestCreateUniquePaths(t *testing.T) {
	root := t.TempDir()

	a, err := Create(root)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	b, err := Create(root)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer a.Remove()
	defer b.Remove()

	if a.Path() == b.Path() {
		t.Errorf("two scratch directories share a path: %s", a.Path())
	}
}

func TestJoin(t *testing.T) {
	dir, err := Create(t.TempDir())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer dir.Remove()

	want := filepath.Join(dir.Path(), "a", "b")
	if got := dir.Join("a", "b"); got != want {
		t.Errorf("Join = %s, want %s", got, want)
	}
}
