// Package replay rebuilds machine state from a persisted journal. Events are
// paged out of the store and restored in sequence order; a checkpoint store
// tracks progress so interrupted replays resume where they stopped.
package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/journal"
)

// DefaultPageSize bounds one journal read.
const DefaultPageSize = 256

// Target consumes journaled events in sequence order. machine.Machine's
// Restore method satisfies it.
type Target interface {
	Restore(evt event.Event) error
}

// CheckpointStore persists replay progress per battle.
type CheckpointStore interface {
	// Load returns the last applied sequence, or journal.ErrNotFound.
	Load(ctx context.Context, battleID string) (uint64, error)
	// Save records the last applied sequence.
	Save(ctx context.Context, battleID string, seq uint64) error
}

// Options configure a replay run.
type Options struct {
	// PageSize bounds each journal read; zero means DefaultPageSize.
	PageSize int
	// Checkpoints records progress when set, and is consulted for the
	// resume point.
	Checkpoints CheckpointStore
}

// Replay pages events from the store into the target, returning the last
// applied sequence. Sequence gaps between pages abort the replay; the target
// rejects intra-page gaps itself.
func Replay(ctx context.Context, store journal.Store, battleID string, target Target, opts Options) (uint64, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var applied uint64
	if opts.Checkpoints != nil {
		seq, err := opts.Checkpoints.Load(ctx, battleID)
		switch {
		case err == nil:
			applied = seq
		case errors.Is(err, journal.ErrNotFound):
		default:
			return 0, fmt.Errorf("load checkpoint: %w", err)
		}
	}

	for {
		events, err := store.ListEvents(ctx, battleID, applied, pageSize)
		if err != nil {
			return applied, fmt.Errorf("list events after %d: %w", applied, err)
		}
		if len(events) == 0 {
			return applied, nil
		}
		for _, evt := range events {
			if evt.Seq != applied+1 {
				return applied, fmt.Errorf("sequence gap: applied %d, next stored event is %d", applied, evt.Seq)
			}
			if err := target.Restore(evt); err != nil {
				return applied, fmt.Errorf("restore seq %d: %w", evt.Seq, err)
			}
			applied = evt.Seq
		}
		if opts.Checkpoints != nil {
			if err := opts.Checkpoints.Save(ctx, battleID, applied); err != nil {
				return applied, fmt.Errorf("save checkpoint: %w", err)
			}
		}
	}
}
