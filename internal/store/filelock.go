package store

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// WorkspaceLock guards a workspace directory against concurrent processes.
// Writes within one process are serialized by the store mutex; the lock only
// keeps a second ascend instance from opening the same workspace.
type WorkspaceLock struct {
	mu          sync.Mutex
	flk         *flock.Flock
	workspaceID string
	acquiredAt  time.Time
}

type LockOptions struct {
	Timeout time.Duration
	Retry   time.Duration
}

func AcquireWorkspaceLock(workspaceID, lockPath string, opts LockOptions) (*WorkspaceLock, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry <= 0 {
		opts.Retry = 100 * time.Millisecond
	}

	flk := flock.New(lockPath)
	deadline := time.Now().Add(opts.Timeout)
	for {
		locked, err := flk.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lock workspace %s: %w", workspaceID, err)
		}
		if locked {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("workspace %s is in use by another instance (gave up after %v)", workspaceID, opts.Timeout)
		}
		time.Sleep(opts.Retry)
	}

	lock := &WorkspaceLock{
		flk:         flk,
		workspaceID: workspaceID,
		acquiredAt:  time.Now(),
	}
	slog.Debug("Workspace lock acquired", "workspace", workspaceID, "path", lockPath)
	return lock, nil
}

func (l *WorkspaceLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.flk == nil {
		return
	}
	if err := l.flk.Unlock(); err != nil {
		slog.Error("Failed to release workspace lock",
			"workspace", l.workspaceID,
			"error", err,
		)
	} else {
		slog.Debug("Workspace lock released",
			"workspace", l.workspaceID,
			"held_ms", time.Since(l.acquiredAt).Milliseconds(),
		)
	}
	l.flk = nil
}
