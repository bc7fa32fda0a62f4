// Package lock serialises work on a single event key.  The service
// takes the lock around each load-mutate-save cycle; the version check
// in the store still guards writers that bypass it.
package lock

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when the lock could not be acquired before
// the wait budget or the caller's context ran out.
var ErrLockTimeout = errors.New("lock wait timed out")

const keyPrefix = "ticketvault:lock:"

// Locker acquires a named mutual-exclusion lock.  The returned function
// releases it and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Key builds the lock name for one event.
func Key(owner, name string) string {
	return keyPrefix + owner + "/" + name
}
