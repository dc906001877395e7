// Package dblock provides a cross-process exclusive lock guarding
// operations that must never run concurrently against the same
// database file. Its caller in this module is `taskctl migrate`, which
// holds it while running schema migrations.
package dblock

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Lock wraps a file lock scoped to a single database path.
type Lock struct {
	flock *flock.Flock
}

// New returns a Lock backed by a sidecar file at dbPath+".lock". It
// does not acquire the lock; call TryLock.
func New(dbPath string) *Lock {
	return &Lock{flock: flock.New(dbPath + ".lock")}
}

// TryLock attempts to acquire the lock without blocking. ok is false
// if another process currently holds it.
func (l *Lock) TryLock() (ok bool, err error) {
	locked, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquiring database lock: %w", err)
	}
	return locked, nil
}

// Unlock releases the lock. Safe to call even if TryLock never
// succeeded.
func (l *Lock) Unlock() error {
	return l.flock.Unlock()
}

// WithLock runs fn while holding the lock, returning an error without
// calling fn if the lock is already held elsewhere.
func WithLock(dbPath string, fn func() error) error {
	l := New(dbPath)
	locked, err := l.TryLock()
	if err != nil {
		return err
	}
	if !locked {
		return fmt.Errorf("database %s is locked by another process", dbPath)
	}
	defer func() { _ = l.Unlock() }()
	return fn()
}
