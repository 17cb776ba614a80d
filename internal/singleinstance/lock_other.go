//go:build !windows

package singleinstance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"floatrans/internal/userutil"
)

// Lock holds an exclusive flock on a per-user lock file. The kernel drops
// the lock when the owning process terminates.
type Lock struct {
	file *os.File
}

// TryLock takes a non-blocking exclusive lock on the file called name in
// the temp directory. An absolute name is used as is.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(os.TempDir(), name)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %q: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("flock %q: %w", path, err)
	}
	return &Lock{file: f}, nil
}

// Release unlocks and closes the lock file. Safe on a nil receiver and
// idempotent.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		_ = f.Close()
		return fmt.Errorf("unlock: %w", err)
	}
	return f.Close()
}

// DefaultMutexName returns the per-user lock file name.
func DefaultMutexName() string {
	return "floatrans-" + userutil.CurrentUsername() + ".lock"
}
