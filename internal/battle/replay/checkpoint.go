package replay

import (
	"context"
	"sync"

	"github.com/tabletopvod/battletrace/internal/journal"
)

// MemoryCheckpoints is an in-memory checkpoint store. Safe for concurrent
// use.
type MemoryCheckpoints struct {
	mu   sync.RWMutex
	seqs map[string]uint64
}

// NewMemoryCheckpoints creates an empty checkpoint store.
func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{seqs: make(map[string]uint64)}
}

// Load implements CheckpointStore.
func (m *MemoryCheckpoints) Load(ctx context.Context, battleID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	seq, ok := m.seqs[battleID]
	if !ok {
		return 0, journal.ErrNotFound
	}
	return seq, nil
}

// Save implements CheckpointStore.
func (m *MemoryCheckpoints) Save(ctx context.Context, battleID string, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seqs[battleID] = seq
	return nil
}
