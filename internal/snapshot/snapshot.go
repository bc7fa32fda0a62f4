// Package snapshot defines the stored representation of an event.
//
// A snapshot is a single CBOR record holding the event header and every
// ticket in derivation order.  It is versioned independently of the
// in-memory model so the storage format can evolve without touching
// business logic.  Records are encoded with Core Deterministic Encoding
// (RFC 8949 §4.2): the same event always produces identical bytes.
package snapshot

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/iliyamo/event-ticket-vault/internal/model"
)

// SchemaVersion is written into every record.
const SchemaVersion = 1

var (
	// ErrUnsupportedSchema is returned for records written by a newer schema.
	ErrUnsupportedSchema = errors.New("unsupported snapshot schema")
	// ErrCorruptSnapshot is returned when a record cannot be decoded or
	// describes an event that breaks its invariants.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

type record struct {
	Version int           `cbor:"v"`
	Name    string        `cbor:"name"`
	Digest  string        `cbor:"digest"`
	Total   int           `cbor:"total"`
	Sold    int           `cbor:"sold"`
	Tickets []ticketEntry `cbor:"tickets"`
}

type ticketEntry struct {
	Credential []byte `cbor:"c"`
	Sold       bool   `cbor:"s"`
	Used       bool   `cbor:"u"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("snapshot: CBOR encoder initialization failed: " + err.Error())
	}
	// Unknown fields are ignored so an older reader tolerates additive
	// changes within the same schema version.
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("snapshot: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serialises the full event, including every ticket state.
func Encode(ev *model.Event) ([]byte, error) {
	rec := record{
		Version: SchemaVersion,
		Name:    ev.Name,
		Digest:  ev.Digest,
		Total:   ev.TotalTickets,
		Sold:    ev.SoldCount,
		Tickets: make([]ticketEntry, len(ev.Tickets)),
	}
	for i, t := range ev.Tickets {
		rec.Tickets[i] = ticketEntry{Credential: t.Credential, Sold: t.Sold, Used: t.Used}
	}
	data, err := encMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %q: %w", ev.Name, err)
	}
	return data, nil
}

// Decode rebuilds a fresh Event from a stored record.
func Decode(data []byte) (*model.Event, error) {
	var rec record
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if rec.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedSchema, rec.Version)
	}
	ev := &model.Event{
		Name:         rec.Name,
		Digest:       rec.Digest,
		TotalTickets: rec.Total,
		SoldCount:    rec.Sold,
		Tickets:      make([]model.Ticket, len(rec.Tickets)),
	}
	for i, t := range rec.Tickets {
		ev.Tickets[i] = model.Ticket{Credential: t.Credential, Sold: t.Sold, Used: t.Used}
	}
	if err := ev.Check(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return ev, nil
}
