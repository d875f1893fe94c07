package state

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"

	"github.com/bolasblack/dirsync/internal/util"
)

// ErrLocked is returned when another process already holds the replica lock.
var ErrLocked = errors.New("replica is locked by another dirsync process")

// AcquireLock takes the exclusive lock for replica without blocking.
// The caller releases it with Unlock. The lock is advisory and only works on
// the real filesystem.
func AcquireLock(env *util.Env, stateDir, replica string) (*flock.Flock, error) {
	if err := env.Fs.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	lock := flock.New(LockFilePath(stateDir, replica))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, lock.Path())
	}
	return lock, nil
}
