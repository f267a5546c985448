//go:build unix

package flock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// PollInterval is how often Lock retries a held lock.
var PollInterval = 50 * time.Millisecond

// Lock takes an exclusive advisory lock on the file at path, creating
// it if needed. It blocks until the lock is acquired or ctx is done.
func Lock(ctx context.Context, path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err == nil {
			return f, nil
		} else if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = f.Close()
			return nil, &os.PathError{Op: "flock", Path: path, Err: err}
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Unlock releases a lock taken by Lock. A nil file is a no-op.
func Unlock(f *os.File) error {
	if f == nil {
		return nil
	}

	return errors.Join(
		unix.Flock(int(f.Fd()), unix.LOCK_UN),
		f.Close(),
	)
}
