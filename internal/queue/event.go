// Package queue carries ticket lifecycle messages over RabbitMQ: the
// publisher used by the service after each durable mutation, and the
// audit consumer that appends them to a log file.
package queue

import (
	"time"

	"github.com/iliyamo/event-ticket-vault/internal/model"
	"github.com/iliyamo/event-ticket-vault/internal/utils"
)

// Lifecycle message types.
const (
	TypeEventCreated   = "event.created"
	TypeTicketIssued   = "ticket.issued"
	TypeTicketRedeemed = "ticket.redeemed"
	TypeTicketRefunded = "ticket.refunded"
	TypeEventExtended  = "event.extended"
)

// DefaultQueueName is used when LIFECYCLE_QUEUE is unset.
const DefaultQueueName = "ticket.lifecycle"

// LifecycleEvent is published after a mutation has been saved.  It holds
// enough for consumers to log or aggregate without reading the store.
// Neither the secret nor a credential appears here; tickets are named by
// their fingerprint.
type LifecycleEvent struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Owner         string `json:"owner"`
	Event         string `json:"event"`
	Ticket        string `json:"ticket,omitempty"`
	Total         int    `json:"total"`
	Sold          int    `json:"sold"`
	Used          int    `json:"used"`
	Available     int    `json:"available"`
	CorrelationID string `json:"correlation_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// NewLifecycleEvent fills the counters from the event's current state.
// credential may be nil for event-level messages.
func NewLifecycleEvent(typ, owner string, ev *model.Event, credential []byte) LifecycleEvent {
	st := ev.Stats()
	msg := LifecycleEvent{
		Type:       typ,
		Owner:      owner,
		Event:      ev.Name,
		Total:      st.Total,
		Sold:       st.Sold,
		Used:       st.Used,
		Available:  st.Available,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if credential != nil {
		msg.Ticket = utils.Fingerprint(credential)
	}
	return msg
}
