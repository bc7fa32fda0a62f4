package repository

import "context"

// Corrupt overwrites the stored bytes for a key.
func (r *MemoryEventRepo) Corrupt(_ context.Context, owner, name string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := memKey{owner, name}
	rec, ok := r.records[k]
	if !ok {
		return ErrEventNotFound
	}
	rec.data = data
	r.records[k] = rec
	return nil
}
