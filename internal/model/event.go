package model

import (
	"fmt"

	"github.com/iliyamo/event-ticket-vault/internal/utils"
)

// Event is a named, ordered set of tickets derived from one secret.
// Events are rebuilt from their stored snapshot on every request and
// thrown away afterwards; nothing holds on to an Event between calls.
//
// Fields:
//
//	Name         – identifier, fixed at creation.
//	Digest       – digest algorithm used to derive every credential.
//	TotalTickets – number of tickets ever allocated.
//	SoldCount    – number of tickets currently sold.
//	Tickets      – tickets in derivation order; len(Tickets) == TotalTickets.
type Event struct {
	Name         string
	Digest       string
	TotalTickets int
	SoldCount    int
	Tickets      []Ticket
}

// Stats summarises ticket states for read-only views.
type Stats struct {
	Total     int `json:"total"`
	Sold      int `json:"sold"`
	Used      int `json:"used"`
	Available int `json:"available"`
}

// NewEvent derives count credentials from secret (indices 0..count-1)
// and wraps them in a fresh event.  An empty digest selects SHA-256.
func NewEvent(name, secret string, count int, digest string) (*Event, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if digest == "" {
		digest = utils.DigestSHA256
	}
	creds, err := utils.DeriveBatch(digest, secret, 0, count)
	if err != nil {
		return nil, err
	}
	ev := &Event{Name: name, Digest: digest, Tickets: make([]Ticket, 0, count)}
	for _, c := range creds {
		ev.Tickets = append(ev.Tickets, NewTicket(c))
	}
	ev.TotalTickets = len(ev.Tickets)
	return ev, nil
}

// IssueNext sells the first unsold ticket in derivation order and
// returns a copy of it.
func (e *Event) IssueNext() (Ticket, error) {
	for i := range e.Tickets {
		t := &e.Tickets[i]
		if !t.Sold {
			t.Issue()
			e.SoldCount++
			return *t, nil
		}
	}
	return Ticket{}, ErrNoTicketsAvailable
}

// Verify redeems the ticket carrying candidate.  It returns false when
// no ticket matches or the matching ticket was already used.  SoldCount
// is not touched: it counts sales, not redemptions.
func (e *Event) Verify(candidate []byte) bool {
	for i := range e.Tickets {
		if e.Tickets[i].Validate(candidate) {
			return true
		}
	}
	return false
}

// Refund puts the ticket carrying candidate back on sale, whether or
// not it was already redeemed.  It returns false with a nil error when
// no credential matches and ErrNotSold when the ticket is not sold.
func (e *Event) Refund(candidate []byte) (bool, error) {
	for i := range e.Tickets {
		t := &e.Tickets[i]
		if !t.Matches(candidate) {
			continue
		}
		if !t.Sold {
			return false, ErrNotSold
		}
		t.Refund()
		e.SoldCount--
		return true, nil
	}
	return false, nil
}

// Extend appends additional tickets derived from secret, continuing at
// index TotalTickets.  Only the holder of the original secret may
// extend: index 0 is re-derived and compared with the first ticket.
func (e *Event) Extend(secret string, additional int) error {
	if additional <= 0 {
		return ErrInvalidCount
	}
	if len(e.Tickets) == 0 {
		return fmt.Errorf("%w: event %q has no tickets", ErrInvalidEvent, e.Name)
	}
	first, err := utils.DeriveWith(e.Digest, secret, 0)
	if err != nil {
		return err
	}
	if !e.Tickets[0].Matches(first) {
		return ErrBadSecret
	}
	creds, err := utils.DeriveBatch(e.Digest, secret, e.TotalTickets, additional)
	if err != nil {
		return err
	}
	for _, c := range creds {
		e.Tickets = append(e.Tickets, NewTicket(c))
	}
	e.TotalTickets = len(e.Tickets)
	return nil
}

// Stats counts tickets by state.
func (e *Event) Stats() Stats {
	s := Stats{Total: e.TotalTickets}
	for _, t := range e.Tickets {
		if t.Sold {
			s.Sold++
		}
		if t.Used {
			s.Used++
		}
	}
	s.Available = s.Total - s.Sold
	return s
}

// Check verifies the event invariants.  It is run on every decoded
// snapshot so a damaged record never reaches business logic.
func (e *Event) Check() error {
	if e.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidEvent)
	}
	if !utils.ValidDigest(e.Digest) {
		return fmt.Errorf("%w: digest %q", ErrInvalidEvent, e.Digest)
	}
	if e.TotalTickets != len(e.Tickets) {
		return fmt.Errorf("%w: total %d but %d tickets", ErrInvalidEvent, e.TotalTickets, len(e.Tickets))
	}
	sold := 0
	for i, t := range e.Tickets {
		if t.Used && !t.Sold {
			return fmt.Errorf("%w: ticket %d used but not sold", ErrInvalidEvent, i)
		}
		if t.Sold {
			sold++
		}
	}
	if sold != e.SoldCount {
		return fmt.Errorf("%w: sold count %d but %d tickets sold", ErrInvalidEvent, e.SoldCount, sold)
	}
	return nil
}
