package phase

import "testing"

func TestNextVisitsPhasesInOrder(t *testing.T) {
	want := []Phase{Command, Movement, Shooting, Charge, Fight, Scoring}

	current := Command
	visited := []Phase{current}
	for {
		next, ok := Next(current)
		if !ok {
			break
		}
		visited = append(visited, next)
		current = next
	}

	if len(visited) != len(want) {
		t.Fatalf("visited %d phases, want %d", len(visited), len(want))
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("phase %d = %s, want %s", i, visited[i], want[i])
		}
	}
}

func TestNextFromScoringIsNoAdvance(t *testing.T) {
	next, ok := Next(Scoring)
	if ok {
		t.Fatalf("expected no advance from scoring, got %s", next)
	}
	if next != Scoring {
		t.Fatalf("expected scoring back, got %s", next)
	}
}

func TestNextUnknownPhase(t *testing.T) {
	if _, ok := Next(Phase("deployment")); ok {
		t.Fatal("expected no advance for unknown phase")
	}
}

func TestIsValid(t *testing.T) {
	for _, p := range Order() {
		if !p.IsValid() {
			t.Fatalf("phase %s should be valid", p)
		}
	}
	if Phase("morale").IsValid() {
		t.Fatal("unknown phase should be invalid")
	}
}
