package journal

import (
	"context"
	"sync"

	"github.com/tabletopvod/battletrace/internal/battle/event"
)

// Memory is an in-memory journal store, the default when no durability is
// configured. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	battles map[string][]event.Event
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{battles: make(map[string][]event.Event)}
}

// Append implements Store.
func (m *Memory) Append(ctx context.Context, battleID string, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.battles[battleID]
	next := uint64(len(log)) + 1
	if evt.Seq == 0 {
		evt.Seq = next
	} else if evt.Seq != next {
		return event.Event{}, ErrSequenceConflict
	}
	m.battles[battleID] = append(log, evt)
	return evt, nil
}

// ListEvents implements Store.
func (m *Memory) ListEvents(ctx context.Context, battleID string, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	log := m.battles[battleID]
	if afterSeq >= uint64(len(log)) {
		return nil, nil
	}
	events := log[afterSeq:]
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return append([]event.Event(nil), events...), nil
}

// LastSeq implements Store.
func (m *Memory) LastSeq(ctx context.Context, battleID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.battles[battleID])), nil
}
