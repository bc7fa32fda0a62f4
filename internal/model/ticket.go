package model

import "crypto/subtle"

// Ticket is a single entry credential belonging to an Event.  The
// credential is the ticket's only identity and never changes once the
// ticket is created.
//
// Fields:
//
//	Credential – derived digest bytes.
//	Sold       – set when the ticket has been handed to a buyer.
//	Used       – set when the ticket has been redeemed at the door.
//
// Used implies Sold.  A used ticket stays spent until it is refunded.
type Ticket struct {
	Credential []byte
	Sold       bool
	Used       bool
}

// NewTicket wraps a copy of credential in an unsold, unused ticket.
func NewTicket(credential []byte) Ticket {
	c := make([]byte, len(credential))
	copy(c, credential)
	return Ticket{Credential: c}
}

// Matches reports whether candidate is this ticket's credential.  It
// does not look at the ticket state.
func (t *Ticket) Matches(candidate []byte) bool {
	if len(candidate) != len(t.Credential) {
		return false
	}
	return subtle.ConstantTimeCompare(candidate, t.Credential) == 1
}

// Validate is the single-use gate.  It returns true and marks the
// ticket used only when the ticket is sold, not yet used, and candidate
// matches.  Unsold tickets never validate so Used always implies Sold.
func (t *Ticket) Validate(candidate []byte) bool {
	if t.Used || !t.Sold || !t.Matches(candidate) {
		return false
	}
	t.Used = true
	return true
}

// Issue marks the ticket sold.
func (t *Ticket) Issue() { t.Sold = true }

// Refund returns the ticket to the unsold, unused state.
func (t *Ticket) Refund() {
	t.Used = false
	t.Sold = false
}
