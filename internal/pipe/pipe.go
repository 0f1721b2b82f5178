// Package pipe manages the named FIFO the node writes framed ledger metadata
// to. The FIFO is created before the node is launched so its path can be
// handed to the node, and the supervisor owns the read end.
package pipe

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// FileName is the name of the FIFO inside the scratch directory.
const FileName = "meta.pipe"

// Pipe is a POSIX FIFO on the filesystem, restricted to the current user.
type Pipe struct {
	mu      sync.Mutex
	path    string
	readEnd *os.File
	log     *slog.Logger
}

// New creates the FIFO at dir/meta.pipe. The node opens the write end by path
// when it starts; the supervisor opens the read end via OpenRead.
func New(dir string) (*Pipe, error) {
	path := filepath.Join(dir, FileName)
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return nil, fmt.Errorf("mkfifo %s: %w", path, err)
	}

	return &Pipe{
		path: path,
		log:  slog.With("component", "pipe", "path", path),
	}, nil
}

// Path returns the filesystem path of the FIFO.
func (p *Pipe) Path() string {
	return p.path
}

// OpenRead opens the read end of the FIFO. The open blocks until a writer
// opens the other end, so it must be called from the reader worker, after the
// node has been spawned. Unblock releases a pending OpenRead.
func (p *Pipe) OpenRead() (*os.File, error) {
	f, err := os.OpenFile(p.path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open pipe read end: %w", err)
	}

	p.mu.Lock()
	p.readEnd = f
	p.mu.Unlock()

	p.log.Debug("pipe read end open")
	return f, nil
}

// Unblock releases a reader stuck in OpenRead by briefly opening and closing
// the write end. Opening with O_NONBLOCK fails with ENXIO when no reader is
// waiting, which means there is nothing to unblock.
func (p *Pipe) Unblock() error {
	fd, err := unix.Open(p.path, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) || errors.Is(err, unix.ENOENT) {
			return nil
		}
		return fmt.Errorf("unblock pipe: %w", err)
	}
	return unix.Close(fd)
}

// Close closes the read end if open and unlinks the FIFO. Idempotent.
func (p *Pipe) Close() error {
	p.mu.Lock()
	readEnd := p.readEnd
	p.readEnd = nil
	p.mu.Unlock()

	if readEnd != nil {
		readEnd.Close()
	}

	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unlink pipe %s: %w", p.path, err)
	}
	return nil
}
