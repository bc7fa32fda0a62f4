package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/event-ticket-vault/internal/model"
	"github.com/iliyamo/event-ticket-vault/internal/snapshot"
)

type memKey struct{ owner, name string }

type memRecord struct {
	data    []byte
	version uint64
}

// MemoryEventRepo keeps encoded snapshots in a map.  It stores bytes,
// not Event values, so every Load hands out a fresh copy exactly like
// the SQL backends do.  Used by tests and STORE_DRIVER=memory.
type MemoryEventRepo struct {
	mu      sync.Mutex
	records map[memKey]memRecord
}

// NewMemoryEventRepo returns an empty in-memory store.
func NewMemoryEventRepo() *MemoryEventRepo {
	return &MemoryEventRepo{records: make(map[memKey]memRecord)}
}

// Create stores a new event at version 1.
func (r *MemoryEventRepo) Create(ctx context.Context, owner string, ev *model.Event) error {
	data, err := snapshot.Encode(ev)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := memKey{owner, ev.Name}
	if _, ok := r.records[k]; ok {
		return ErrEventExists
	}
	r.records[k] = memRecord{data: data, version: 1}
	return nil
}

// Load decodes the stored snapshot and returns it with its version.
func (r *MemoryEventRepo) Load(ctx context.Context, owner, name string) (*model.Event, uint64, error) {
	r.mu.Lock()
	rec, ok := r.records[memKey{owner, name}]
	r.mu.Unlock()
	if !ok {
		return nil, 0, ErrEventNotFound
	}
	ev, err := snapshot.Decode(rec.data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrEventNotFound, err)
	}
	return ev, rec.version, nil
}

// Save replaces the snapshot if the stored version equals version.
func (r *MemoryEventRepo) Save(ctx context.Context, owner string, ev *model.Event, version uint64) error {
	data, err := snapshot.Encode(ev)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := memKey{owner, ev.Name}
	rec, ok := r.records[k]
	if !ok {
		return ErrEventNotFound
	}
	if rec.version != version {
		return ErrVersionConflict
	}
	r.records[k] = memRecord{data: data, version: version + 1}
	return nil
}

// Delete removes the record for the key.
func (r *MemoryEventRepo) Delete(ctx context.Context, owner, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := memKey{owner, name}
	if _, ok := r.records[k]; !ok {
		return ErrEventNotFound
	}
	delete(r.records, k)
	return nil
}

// List returns the owner's event names in lexical order.
func (r *MemoryEventRepo) List(ctx context.Context, owner string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := []string{}
	for k := range r.records {
		if k.owner == owner {
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	return names, nil
}
