// Package unit models tracked units and their status flags.
package unit

// Status bundles a unit's condition flags.
//
// Persistent flags survive across turns; turn-scoped flags are reset when the
// owning player's turn ends. Destroyed, once set, is permanent for the game.
type Status struct {
	// Persistent flags.
	Destroyed         bool `json:"destroyed"`
	BelowHalfStrength bool `json:"below_half_strength"`
	BattleShocked     bool `json:"battle_shocked"`
	Engaged           bool `json:"engaged"`

	// Turn-scoped flags.
	Advanced   bool `json:"advanced"`
	FellBack   bool `json:"fell_back"`
	HasShot    bool `json:"has_shot"`
	HasCharged bool `json:"has_charged"`
	HasFought  bool `json:"has_fought"`
}

// ResetTurnScoped clears the flags that only live for the owning player's turn.
func (s *Status) ResetTurnScoped() {
	s.Advanced = false
	s.FellBack = false
	s.HasShot = false
	s.HasCharged = false
	s.HasFought = false
}

// Unit is a tracked unit. Units are stored by value in the context's unit
// map so reducers never share mutable unit pointers across snapshots.
type Unit struct {
	// ID is the generated stable key of the unit.
	ID string `json:"id"`
	// Name is the display name from the battle report.
	Name string `json:"name"`
	// PlayerIndex is the owning player (0 or 1).
	PlayerIndex int `json:"player_index"`
	// Points is the list cost of the unit, used for points-lost tallies.
	Points int `json:"points"`

	// Wounds and models are optional; zero max means untracked.
	Wounds    int `json:"wounds"`
	MaxWounds int `json:"max_wounds"`
	Models    int `json:"models"`
	MaxModels int `json:"max_models"`

	Status Status `json:"status"`

	// DestroyedRound and DestroyedAt record when the unit was destroyed.
	// They are only meaningful when Status.Destroyed is true.
	DestroyedRound int     `json:"destroyed_round,omitempty"`
	DestroyedAt    float64 `json:"destroyed_at,omitempty"`
}
