// Package player models per-player identity and resource state.
package player

// State captures one player's identity and resource tallies.
type State struct {
	// Index is the player's seat (0 or 1), fixed for the game.
	Index int `json:"index"`
	// Name is the player's display name.
	Name string `json:"name"`
	// Faction is the army faction (e.g., "Space Marines").
	Faction string `json:"faction"`
	// Subfaction is the optional chapter/dynasty/sept refinement.
	Subfaction string `json:"subfaction,omitempty"`
	// Detachment is the chosen detachment rules set.
	Detachment string `json:"detachment"`
	// CommandPoints is clamped to be non-negative, and to the ruleset cap
	// where one exists.
	CommandPoints int `json:"command_points"`
	// VictoryPoints is clamped to be non-negative.
	VictoryPoints int `json:"victory_points"`
	// IsActive reports whether it is this player's turn.
	IsActive bool `json:"is_active"`
	// WentFirst reports whether this player took the first turn of each round.
	WentFirst bool `json:"went_first"`
}

// AddCommandPoints adjusts command points by delta, clamping to zero and to
// cap when cap is positive. Clamping, not error raising, is the policy for
// resource invariants.
func (s *State) AddCommandPoints(delta, cap int) {
	s.CommandPoints += delta
	if s.CommandPoints < 0 {
		s.CommandPoints = 0
	}
	if cap > 0 && s.CommandPoints > cap {
		s.CommandPoints = cap
	}
}

// AddVictoryPoints adjusts victory points by delta, clamping to zero.
func (s *State) AddVictoryPoints(delta int) {
	s.VictoryPoints += delta
	if s.VictoryPoints < 0 {
		s.VictoryPoints = 0
	}
}
