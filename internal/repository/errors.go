// Package repository implements event storage.  Every backend stores one
// snapshot per (owner, event name) key and guards overwrites with a
// version number, so concurrent load-mutate-save cycles on the same key
// cannot silently lose an update.
//
// The sentinel values below let higher layers such as the service and
// the HTTP handlers distinguish between failure scenarios without
// knowing which backend is in use.
package repository

import "errors"

// ErrEventNotFound is returned when no record exists for the key, or the
// stored record cannot be parsed.  Handlers translate this into 404.
var ErrEventNotFound = errors.New("event not found")

// ErrEventExists is returned by Create when the key is already taken.
var ErrEventExists = errors.New("event already exists")

// ErrVersionConflict is returned by Save when the stored version no
// longer matches the version the caller loaded.  The caller should
// reload and retry.
var ErrVersionConflict = errors.New("event version conflict")

// ErrReadFailure wraps storage I/O errors while loading.
var ErrReadFailure = errors.New("event store read failure")

// ErrWriteFailure wraps storage I/O errors while saving.
var ErrWriteFailure = errors.New("event store write failure")
