package tokencache

import "time"

// Tiered composes the memory tier over the durable tier: reads check memory
// first, a durable hit repopulates memory, and writes go through to both.
type Tiered struct {
	memory  Cache
	durable Cache
}

var _ Cache = (*Tiered)(nil)

func NewTiered(memory, durable Cache) *Tiered {
	return &Tiered{memory: memory, durable: durable}
}

func (t *Tiered) Get(profileID string, now time.Time) (*Entry, bool) {
	if entry, ok := t.memory.Get(profileID, now); ok {
		return entry, true
	}
	entry, ok := t.durable.Get(profileID, now)
	if !ok {
		return nil, false
	}
	t.memory.Put(profileID, *entry)
	return entry, true
}

func (t *Tiered) Put(profileID string, entry Entry) {
	t.memory.Put(profileID, entry)
	t.durable.Put(profileID, entry)
}
