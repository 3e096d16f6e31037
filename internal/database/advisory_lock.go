package database

import (
	"context"
	"fmt"
)

// LockHandle holds a session-level advisory lock on a dedicated session.
// Call Release to unlock.
type LockHandle struct {
	q          Querier
	releaseSQL string
}

// TryAcquireLock runs acquireSQL on q, which must return a single boolean
// reporting whether the lock was taken. Returns ErrLockNotAcquired if the
// lock is held elsewhere. The lock lives as long as the session behind q,
// so the caller must keep that session open until handle.Release().
func TryAcquireLock(ctx context.Context, q Querier, acquireSQL, releaseSQL string) (*LockHandle, error) {
	var acquired bool

	if err := q.QueryRow(ctx, acquireSQL).Scan(&acquired); err != nil {
		return nil, fmt.Errorf("acquiring advisory lock: %w", err)
	}

	if !acquired {
		return nil, ErrLockNotAcquired
	}

	return &LockHandle{q: q, releaseSQL: releaseSQL}, nil
}

// Release unlocks the advisory lock.
// Safe to call multiple times; subsequent calls are no-ops.
func (h *LockHandle) Release(ctx context.Context) error {
	if h == nil || h.q == nil {
		return nil
	}

	q := h.q
	h.q = nil

	if _, err := q.Exec(ctx, h.releaseSQL); err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}

	return nil
}
