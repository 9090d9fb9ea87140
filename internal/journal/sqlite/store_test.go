package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/phase"
	"github.com/tabletopvod/battletrace/internal/journal"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testEvent(id string, ts float64) event.Event {
	return event.Event{
		ID:             id,
		Type:           event.TypePhaseAdvanced,
		VideoTimestamp: ts,
		Round:          1,
		Phase:          phase.Movement,
		PayloadJSON:    []byte(`{"note":"test"}`),
	}
}

func TestAppendAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"evt-a", "evt-b", "evt-c"} {
		appended, err := store.Append(ctx, "battle-1", testEvent(id, float64(i)*10))
		if err != nil {
			t.Fatalf("Append %s: %v", id, err)
		}
		if appended.Seq != uint64(i)+1 {
			t.Fatalf("seq = %d, want %d", appended.Seq, i+1)
		}
	}

	events, err := store.ListEvents(ctx, "battle-1", 1, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 || events[0].ID != "evt-b" || events[1].ID != "evt-c" {
		t.Fatalf("page = %+v", events)
	}
	if events[0].Phase != phase.Movement || string(events[0].PayloadJSON) != `{"note":"test"}` {
		t.Fatalf("round trip lost fields: %+v", events[0])
	}

	last, err := store.LastSeq(ctx, "battle-1")
	if err != nil || last != 3 {
		t.Fatalf("LastSeq = %d, %v", last, err)
	}
}

func TestAppendRejectsSequenceGaps(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Append(ctx, "battle-1", testEvent("evt-a", 0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	gapped := testEvent("evt-b", 10)
	gapped.Seq = 5
	if _, err := store.Append(ctx, "battle-1", gapped); !errors.Is(err, journal.ErrSequenceConflict) {
		t.Fatalf("gapped append error = %v, want ErrSequenceConflict", err)
	}
}

func TestBattlesAreIsolated(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Append(ctx, "battle-1", testEvent("evt-a", 0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	last, err := store.LastSeq(ctx, "battle-2")
	if err != nil || last != 0 {
		t.Fatalf("LastSeq for other battle = %d, %v", last, err)
	}
	events, err := store.ListEvents(ctx, "battle-2", 0, 0)
	if err != nil || len(events) != 0 {
		t.Fatalf("other battle events = %+v, %v", events, err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected an error for a blank path")
	}
}
