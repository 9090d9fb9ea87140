// Package phase defines the turn-phase vocabulary of a battle round.
//
// A game is a flattened hierarchical machine: a Segment (setup, round,
// game over) plus, within the round segment, an (active player, phase)
// pair. Phases within a player turn advance in a fixed order and never
// skip or repeat.
package phase

// Phase identifies a phase within a player turn.
type Phase string

const (
	// Command is the resource and battle-shock phase that opens a turn.
	Command Phase = "command"
	// Movement covers normal moves, advances, and fall backs.
	Movement Phase = "movement"
	// Shooting covers ranged attacks.
	Shooting Phase = "shooting"
	// Charge covers charge declarations and moves.
	Charge Phase = "charge"
	// Fight covers melee combat.
	Fight Phase = "fight"
	// Scoring closes a turn with objective and victory point bookkeeping.
	Scoring Phase = "scoring"
)

// Segment identifies the top-level machine state.
type Segment string

const (
	// SegmentSetup precedes the first battle round.
	SegmentSetup Segment = "setup"
	// SegmentRound covers the five battle rounds.
	SegmentRound Segment = "round"
	// SegmentGameOver is terminal.
	SegmentGameOver Segment = "game_over"
)

// MaxRound is the last battle round.
const MaxRound = 5

// order is the validated transition table for phases within a turn.
var order = []Phase{Command, Movement, Shooting, Charge, Fight, Scoring}

// IsValid reports whether p names a known phase.
func (p Phase) IsValid() bool {
	for _, candidate := range order {
		if p == candidate {
			return true
		}
	}
	return false
}

// Next returns the phase following p within a turn. The second return is
// false when p is Scoring (turns end by an explicit turn or round end, not
// by phase advance) or when p is not a known phase.
func Next(p Phase) (Phase, bool) {
	for i, candidate := range order {
		if p != candidate {
			continue
		}
		if i == len(order)-1 {
			return p, false
		}
		return order[i+1], true
	}
	return p, false
}

// Order returns the phase order within a turn.
func Order() []Phase {
	return append([]Phase(nil), order...)
}
