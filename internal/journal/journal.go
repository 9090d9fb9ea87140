// Package journal persists the append-only event log. The machine's
// in-memory log is authoritative within a session; a journal store adds
// durability and lets a later session replay the game.
package journal

import (
	"context"
	"errors"

	"github.com/tabletopvod/battletrace/internal/battle/event"
)

var (
	// ErrNotFound indicates a missing battle or checkpoint.
	ErrNotFound = errors.New("journal: not found")
	// ErrSequenceConflict indicates an append whose sequence does not
	// extend the stored log.
	ErrSequenceConflict = errors.New("journal: sequence conflict")
)

// Store persists events per battle in strict sequence order.
type Store interface {
	// Append stores an event. A zero Seq is assigned the next sequence
	// number; a non-zero Seq must extend the log exactly or the append
	// fails with ErrSequenceConflict.
	Append(ctx context.Context, battleID string, evt event.Event) (event.Event, error)
	// ListEvents returns up to limit events with Seq greater than
	// afterSeq, in sequence order. A non-positive limit means no limit.
	ListEvents(ctx context.Context, battleID string, afterSeq uint64, limit int) ([]event.Event, error)
	// LastSeq returns the highest stored sequence, zero for an unknown
	// battle.
	LastSeq(ctx context.Context, battleID string) (uint64, error)
}

// Recorder binds a store to one battle so the machine can tee accepted
// events into it.
type Recorder struct {
	store    Store
	battleID string
}

// NewRecorder builds a recorder for one battle.
func NewRecorder(store Store, battleID string) *Recorder {
	return &Recorder{store: store, battleID: battleID}
}

// Record appends one accepted event to the bound battle's journal.
func (r *Recorder) Record(evt event.Event) error {
	_, err := r.store.Append(context.Background(), r.battleID, evt)
	return err
}
