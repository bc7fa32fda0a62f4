package service

import "errors"

var (
	// ErrConflict is returned when a mutation kept losing the version
	// race after the configured number of retries.
	ErrConflict = errors.New("event was modified concurrently, retry later")
	// ErrInvalidOwner is returned for an empty or oversized owner.
	ErrInvalidOwner = errors.New("invalid owner")
	// ErrInvalidName is returned for an empty, oversized or slash-bearing event name.
	ErrInvalidName = errors.New("invalid event name")
	// ErrTooManyTickets is returned when a create or extend asks for more
	// tickets than one request may allocate.
	ErrTooManyTickets = errors.New("too many tickets requested")
)
