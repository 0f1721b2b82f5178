// Package scratch manages the per-run scratch directory that holds the
// generated node configuration, the metadata FIFO, and the node's in-memory
// mode working files (buckets, database).
package scratch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// DefaultRoot returns the default context path for scratch directories.
func DefaultRoot() string {
	return filepath.Join(os.TempDir(), "rs_ingestion_temp")
}

// Dir is an exclusively owned scratch directory. Exactly one live supervisor
// owns a Dir; Remove is safe to call more than once.
type Dir struct {
	mu      sync.Mutex
	path    string
	removed bool
	log     *slog.Logger
}

// Create makes a fresh uniquely named scratch directory under root.
// The root is created if it does not exist. The per-run directory is
// restricted to the current user.
func Create(root string) (*Dir, error) {
	if root == "" {
		root = DefaultRoot()
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch root %s: %w", root, err)
	}

	path := filepath.Join(root, "rs_ingestion_temp_"+uuid.NewString())
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch directory %s: %w", path, err)
	}

	log := slog.With("component", "scratch", "path", path)
	log.Debug("scratch directory created")

	return &Dir{path: path, log: log}, nil
}

// Path returns the absolute path of the scratch directory.
func (d *Dir) Path() string {
	return d.path
}

// Join returns a path inside the scratch directory.
func (d *Dir) Join(elem ...string) string {
	return filepath.Join(append([]string{d.path}, elem...)...)
}

// Remove deletes the scratch directory and everything inside it.
// Calling Remove on an already removed directory returns nil.
func (d *Dir) Remove() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.removed {
		return nil
	}

	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("remove scratch directory %s: %w", d.path, err)
	}

	d.removed = true
	d.log.Debug("scratch directory removed")
	return nil
}

// Removed reports whether the directory has been removed.
func (d *Dir) Removed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removed
}
