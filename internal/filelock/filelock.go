// Package filelock provides an exclusive advisory lock on a file, shared by
// every process that opens the same path.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"
)

// Lock is a held lock. Release it with Unlock.
type Lock struct {
	f *os.File
}

// Acquire blocks until it holds an exclusive lock on path, creating the file
// and its directory if needed.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return &Lock{f: f}, nil
}

// Unlock releases the lock. Closing the descriptor releases it as well, so
// the close error is the one reported.
func (l *Lock) Unlock() error {
	_ = unlockFile(l.f)
	return l.f.Close()
}
