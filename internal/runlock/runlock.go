// Package runlock serialises pipeline runs per game directory with an
// advisory file lock held under the state dir, so nothing is written into the
// game directory itself.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"autocrack/internal/fileutil"
)

// ErrLocked is returned when another process holds the lock for a target.
var ErrLocked = errors.New("another autocrack run is already working on this directory")

// Lock is a held per-target lock.
type Lock struct {
	target string
	path   string
	lock   *flock.Flock
}

// PathFor returns the lock file for target inside lockDir. The file name is
// the xxhash of the absolute target path.
func PathFor(lockDir, target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve target: %w", err)
	}
	return filepath.Join(lockDir, fileutil.DigestString(filepath.Clean(abs))+".lock"), nil
}

// Acquire takes the lock for target without blocking.
func Acquire(lockDir, target string) (*Lock, error) {
	path, err := PathFor(lockDir, target)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, target)
	}
	return &Lock{target: target, path: path, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks. The lock file stays on disk: unlinking it would let a
// waiter holding the old inode and a newcomer creating a fresh one both
// succeed.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
