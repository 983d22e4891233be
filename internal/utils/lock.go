package utils

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/mitchellh/go-homedir"
)

// lockRetryDelay is how often a waiting check run polls a busy history lock.
const lockRetryDelay = 250 * time.Millisecond

// HistoryLock is an advisory lock on "<history>.lock", held while a check run
// records its matches.
type HistoryLock struct {
	fl   *flock.Flock
	path string
}

// LockHistory takes the lock of the history database at dbPath. A run that
// finds it busy logs once and waits until the holder releases it or ctx ends.
func LockHistory(ctx context.Context, dbPath string) (*HistoryLock, error) {
	abs, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("resolving history path: %w", err)
	}
	l := &HistoryLock{fl: flock.New(abs + ".lock"), path: abs}

	ok, err := l.fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking history %s: %w", l.path, err)
	}
	if ok {
		return l, nil
	}

	Log.Warnf("History %s is being written by another lineupwatch run, waiting", l.path)
	if _, err := l.fl.TryLockContext(ctx, lockRetryDelay); err != nil {
		return nil, fmt.Errorf("waiting for history lock on %s: %w", l.path, err)
	}
	return l, nil
}

// Release drops the lock. Releasing twice is a no-op.
func (l *HistoryLock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("releasing history lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDBPath resolves the history database path. Empty means
// ~/.config/lineupwatch/lineupwatch.sqlite.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "lineupwatch", "lineupwatch.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
