package jsondb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	minPoll = time.Millisecond
	maxPoll = 50 * time.Millisecond
)

// Lock is an advisory, exclusive, cross-process lock backed by a lock file.
type Lock struct {
	path    string
	timeout time.Duration
}

// NewLock returns a Lock on path. timeout bounds how long WithWriteLock waits;
// zero or negative means wait until the context is done.
func NewLock(path string, timeout time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return &Lock{path: path, timeout: timeout}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// WithWriteLock runs fn while holding the exclusive lock.
//
// The lock is released and the handle closed on every exit path, including a
// panic in fn. Failing to acquire the lock in time returns an error wrapping
// ErrLockTimeout and fn is not called. The lock is not reentrant.
func (l *Lock) WithWriteLock(ctx context.Context, fn func() error) (err error) {
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o644) //nolint:gosec // G302: lock file is shared with other local tools
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := l.acquire(ctx, f); err != nil {
		return err
	}
	defer func() {
		if err2 := unlockFile(f); err2 != nil {
			slog.ErrorContext(ctx, "Failed to release write lock", "path", l.path, "err", err2)
		}
	}()
	return fn()
}

func (l *Lock) acquire(ctx context.Context, f *os.File) error {
	start := time.Now()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	poll := minPoll
	for waited := false; ; waited = true {
		ok, err := tryLockFile(f)
		if err != nil {
			return fmt.Errorf("failed to lock %s: %w", l.path, err)
		}
		if ok {
			if waited {
				slog.DebugContext(ctx, "Acquired write lock", "path", l.path, "waited", time.Since(start))
			}
			return nil
		}
		if !waited {
			slog.DebugContext(ctx, "Waiting for write lock", "path", l.path)
		}
		t := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w after %s: %w", ErrLockTimeout, time.Since(start).Round(time.Millisecond), ctx.Err())
		case <-t.C:
		}
		poll = min(2*poll, maxPoll)
	}
}
