package player

import "testing"

func TestAddCommandPointsClampsAtZero(t *testing.T) {
	state := State{CommandPoints: 2}
	state.AddCommandPoints(-5, 0)
	if state.CommandPoints != 0 {
		t.Fatalf("command points = %d, want 0", state.CommandPoints)
	}
}

func TestAddCommandPointsRespectsCap(t *testing.T) {
	state := State{CommandPoints: 11}
	state.AddCommandPoints(4, 12)
	if state.CommandPoints != 12 {
		t.Fatalf("command points = %d, want 12", state.CommandPoints)
	}
}

func TestAddCommandPointsUncappedWhenCapZero(t *testing.T) {
	state := State{CommandPoints: 20}
	state.AddCommandPoints(5, 0)
	if state.CommandPoints != 25 {
		t.Fatalf("command points = %d, want 25", state.CommandPoints)
	}
}

func TestAddVictoryPointsClampsAtZero(t *testing.T) {
	state := State{VictoryPoints: 3}
	state.AddVictoryPoints(-10)
	if state.VictoryPoints != 0 {
		t.Fatalf("victory points = %d, want 0", state.VictoryPoints)
	}
}
