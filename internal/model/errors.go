package model

import (
	"errors"

	"github.com/iliyamo/event-ticket-vault/internal/utils"
)

// Domain errors returned by Event operations.  Handlers translate them
// into HTTP statuses; the service layer passes them through unchanged.
var (
	// ErrNoTicketsAvailable is returned by IssueNext when every ticket is sold.
	ErrNoTicketsAvailable = errors.New("no tickets available")
	// ErrBadSecret is returned by Extend when the secret does not
	// re-derive the event's first credential.
	ErrBadSecret = errors.New("secret does not match event")
	// ErrNotSold is returned when refunding a ticket that was never sold.
	ErrNotSold = errors.New("ticket is not sold")
	// ErrInvalidCount is returned for a non-positive ticket count.
	ErrInvalidCount = errors.New("ticket count must be positive")
	// ErrInvalidEvent is returned when an event violates its invariants.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrEncodingFailure aliases the deriver's error so callers only
	// need to import model.
	ErrEncodingFailure = utils.ErrEncodingFailure
)
