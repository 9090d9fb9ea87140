package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/phase"
)

func testEvent(seq uint64, eventType event.Type) event.Event {
	return event.Event{
		ID:             "evt-1",
		Seq:            seq,
		Type:           eventType,
		VideoTimestamp: 10,
		Round:          1,
		Phase:          phase.Command,
		PayloadJSON:    []byte("{}"),
	}
}

func TestMemoryAppendAssignsSequence(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	first, err := store.Append(ctx, "battle-1", testEvent(0, event.TypeGameStarted))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first.Seq != 1 {
		t.Fatalf("seq = %d, want 1", first.Seq)
	}

	second, err := store.Append(ctx, "battle-1", testEvent(2, event.TypePhaseAdvanced))
	if err != nil {
		t.Fatalf("Append with explicit seq: %v", err)
	}
	if second.Seq != 2 {
		t.Fatalf("seq = %d, want 2", second.Seq)
	}

	if _, err := store.Append(ctx, "battle-1", testEvent(7, event.TypePhaseAdvanced)); !errors.Is(err, ErrSequenceConflict) {
		t.Fatalf("gapped append error = %v, want ErrSequenceConflict", err)
	}

	last, err := store.LastSeq(ctx, "battle-1")
	if err != nil || last != 2 {
		t.Fatalf("LastSeq = %d, %v", last, err)
	}
}

func TestMemoryListEvents(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := store.Append(ctx, "battle-1", testEvent(0, event.TypePhaseAdvanced)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	events, err := store.ListEvents(ctx, "battle-1", 2, 2)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 || events[0].Seq != 3 || events[1].Seq != 4 {
		t.Fatalf("page = %+v", events)
	}

	rest, err := store.ListEvents(ctx, "battle-1", 4, 0)
	if err != nil || len(rest) != 1 || rest[0].Seq != 5 {
		t.Fatalf("tail = %+v, %v", rest, err)
	}

	empty, err := store.ListEvents(ctx, "battle-1", 5, 10)
	if err != nil || len(empty) != 0 {
		t.Fatalf("past-end page = %+v, %v", empty, err)
	}

	none, err := store.ListEvents(ctx, "unknown", 0, 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("unknown battle = %+v, %v", none, err)
	}
}

func TestMemoryBattlesAreIsolated(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	if _, err := store.Append(ctx, "battle-1", testEvent(0, event.TypeGameStarted)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	last, err := store.LastSeq(ctx, "battle-2")
	if err != nil || last != 0 {
		t.Fatalf("LastSeq for other battle = %d, %v", last, err)
	}
}
