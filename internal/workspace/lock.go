package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock guards an episode workspace against concurrent runs.
type Lock struct {
	flock *flock.Flock
}

// AcquireLock takes an exclusive lock on the workspace. It fails immediately
// when another process holds the lock.
func (w *Workspace) AcquireLock() (*Lock, error) {
	fl := flock.New(filepath.Join(w.Root, ".dubbin.lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("workspace %s is locked by another process", w.Root)
	}
	return &Lock{flock: fl}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	return l.flock.Unlock()
}
