// Package event defines the battle event envelope and the registry of
// appendable event types.
package event

import (
	"encoding/json"
	"strings"

	"github.com/tabletopvod/battletrace/internal/battle/phase"
)

// Type identifies the type of a battle event.
type Type string

// Game lifecycle events.
const (
	// TypeGameStarted records the transition out of setup into round 1.
	TypeGameStarted Type = "game.started"
	// TypeGameEnded records the game reaching its terminal state.
	TypeGameEnded Type = "game.ended"
)

// Sequencing events.
const (
	// TypePhaseAdvanced records a single-step phase advance within a turn.
	TypePhaseAdvanced Type = "phase.advanced"
	// TypePhaseJumped records a direct seek to a round/phase/player position.
	TypePhaseJumped Type = "phase.jumped"
	// TypeTurnEnded records the first player's turn ending.
	TypeTurnEnded Type = "turn.ended"
	// TypeRoundEnded records the second player's turn ending the round.
	TypeRoundEnded Type = "round.ended"
)

// Resource events.
const (
	// TypeCPSpent records command points spent.
	TypeCPSpent Type = "cp.spent"
	// TypeCPGained records command points gained.
	TypeCPGained Type = "cp.gained"
	// TypeStratagemUsed records a stratagem use and its CP cost.
	TypeStratagemUsed Type = "stratagem.used"
	// TypePointsScored records victory points scored under base rules.
	TypePointsScored Type = "points.scored"
)

// Unit events.
const (
	// TypeUnitAdded records a unit entering play, including reinforcements.
	TypeUnitAdded Type = "unit.added"
	// TypeUnitUpdated records a patch to a tracked unit's stats or status.
	TypeUnitUpdated Type = "unit.updated"
	// TypeUnitMoved records a movement-phase action.
	TypeUnitMoved Type = "unit.moved"
	// TypeUnitShot records a shooting-phase action.
	TypeUnitShot Type = "unit.shot"
	// TypeUnitCharged records a successful charge.
	TypeUnitCharged Type = "unit.charged"
	// TypeUnitFought records a fight-phase activation.
	TypeUnitFought Type = "unit.fought"
	// TypeUnitBattleShocked records a battle-shock test result.
	TypeUnitBattleShocked Type = "unit.battleshock"
	// TypeUnitDestroyed records a unit's destruction.
	TypeUnitDestroyed Type = "unit.destroyed"
)

// Event represents an immutable entry in the append-only battle journal.
//
// The envelope carries the machine position the event left the game in:
// transition events stamp the position they moved the game to, gameplay
// events stamp the position they occurred in. Timestamp queries and replay
// both read position directly off the envelope.
type Event struct {
	// ID is the generated identifier of the event.
	ID string `json:"id"`
	// Seq is the journal sequence number (starts at 1). Assigned on append.
	Seq uint64 `json:"seq"`
	// Type identifies the kind of event.
	Type Type `json:"type"`
	// VideoTimestamp is the caller-supplied external clock, in seconds from
	// the start of the recording. It is not required to be monotonic.
	VideoTimestamp float64 `json:"video_timestamp"`
	// Round is the battle round (1..5).
	Round int `json:"round"`
	// Phase is the turn phase.
	Phase phase.Phase `json:"phase"`
	// PlayerIndex is the active player (0 or 1).
	PlayerIndex int `json:"player_index"`
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON json.RawMessage `json:"payload"`
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the event type (e.g., "unit", "phase").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}
