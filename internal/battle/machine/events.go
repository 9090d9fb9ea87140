package machine

import (
	"encoding/json"
	"fmt"

	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/phase"
)

// Rejection codes emitted by the core guards.
const (
	RejectGameNotStarted      = "GAME_NOT_STARTED"
	RejectGameAlreadyStarted  = "GAME_ALREADY_STARTED"
	RejectGameOver            = "GAME_OVER"
	RejectEventTypeUnknown    = "EVENT_TYPE_UNKNOWN"
	RejectPayloadInvalid      = "PAYLOAD_INVALID"
	RejectPhaseSequenceDone   = "PHASE_SEQUENCE_COMPLETE"
	RejectTurnNotAtScoring    = "TURN_NOT_AT_SCORING"
	RejectNotFirstTurn        = "NOT_FIRST_PLAYER_TURN"
	RejectNotSecondTurn       = "NOT_SECOND_PLAYER_TURN"
	RejectPositionOutOfRange  = "POSITION_OUT_OF_RANGE"
	RejectPhaseMismatch       = "PHASE_MISMATCH"
	RejectUnitNotFound        = "UNIT_NOT_FOUND"
	RejectUnitDestroyed       = "UNIT_DESTROYED"
	RejectPlayerIndexInvalid  = "PLAYER_INDEX_INVALID"
	RejectAmountInvalid       = "AMOUNT_INVALID"
	RejectRulesetEventUnbound = "RULESET_EVENT_UNBOUND"
	RejectScoringRulesetOwned = "SCORING_OWNED_BY_RULESET"
)

// GameStartedPayload records mission context on game.started for readers that
// consume the log without the seeding report.
type GameStartedPayload struct {
	Mission     string `json:"mission,omitempty"`
	FirstPlayer int    `json:"first_player"`
}

// GameEndedPayload records why the game closed early or at the round cap.
type GameEndedPayload struct {
	Reason string `json:"reason,omitempty"`
}

// PhaseJumpedPayload names the target position of a non-linear jump.
type PhaseJumpedPayload struct {
	Round       int         `json:"round"`
	Phase       phase.Phase `json:"phase"`
	PlayerIndex int         `json:"player_index"`
}

// CommandPointsPayload adjusts a player's command points. PlayerIndex defaults
// to the active player when nil.
type CommandPointsPayload struct {
	Amount      int    `json:"amount"`
	Reason      string `json:"reason,omitempty"`
	PlayerIndex *int   `json:"player_index,omitempty"`
}

// StratagemUsedPayload records a stratagem use and its command point cost.
type StratagemUsedPayload struct {
	Name        string `json:"name"`
	CPCost      int    `json:"cp_cost"`
	PlayerIndex *int   `json:"player_index,omitempty"`
}

// PointsScoredPayload awards victory points under base rules.
type PointsScoredPayload struct {
	Amount      int    `json:"amount"`
	Reason      string `json:"reason,omitempty"`
	PlayerIndex *int   `json:"player_index,omitempty"`
}

// UnitAddedPayload introduces a tracked unit mid-game. UnitID is assigned by
// the machine before append so replay reproduces the same id.
type UnitAddedPayload struct {
	UnitID      string `json:"unit_id,omitempty"`
	Name        string `json:"name"`
	PlayerIndex int    `json:"player_index"`
	Points      int    `json:"points,omitempty"`
	Wounds      int    `json:"wounds,omitempty"`
	MaxWounds   int    `json:"max_wounds,omitempty"`
	Models      int    `json:"models,omitempty"`
	MaxModels   int    `json:"max_models,omitempty"`
}

// UnitUpdatedPayload patches a unit's tracked stats. Nil fields are left
// untouched.
type UnitUpdatedPayload struct {
	UnitID  string `json:"unit_id"`
	Wounds  *int   `json:"wounds,omitempty"`
	Models  *int   `json:"models,omitempty"`
	Engaged *bool  `json:"engaged,omitempty"`
}

// UnitActionPayload covers the per-phase unit action events.
type UnitActionPayload struct {
	UnitID string `json:"unit_id"`
	// Advanced and FellBack qualify unit.moved only.
	Advanced bool `json:"advanced,omitempty"`
	FellBack bool `json:"fell_back,omitempty"`
	// Target optionally names the opposing unit for shooting, charge and
	// fight actions.
	Target string `json:"target,omitempty"`
}

// UnitBattleshockPayload records a battle-shock test outcome.
type UnitBattleshockPayload struct {
	UnitID string `json:"unit_id"`
	Passed bool   `json:"passed"`
}

// UnitDestroyedPayload removes a unit from play permanently.
type UnitDestroyedPayload struct {
	UnitID      string `json:"unit_id"`
	DestroyedBy string `json:"destroyed_by,omitempty"`
}

func decodePayload(raw json.RawMessage, target any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return raw, nil
}

func validateAs[T any](raw json.RawMessage) error {
	var payload T
	return decodePayload(raw, &payload)
}

// RegisterCoreEvents installs the base-rules event catalog on a registry.
func RegisterCoreEvents(registry *event.Registry) error {
	definitions := []event.Definition{
		{Type: event.TypeGameStarted, Owner: event.OwnerCore, ValidatePayload: validateAs[GameStartedPayload]},
		{Type: event.TypeGameEnded, Owner: event.OwnerCore, ValidatePayload: validateAs[GameEndedPayload]},
		{Type: event.TypePhaseAdvanced, Owner: event.OwnerCore},
		{Type: event.TypePhaseJumped, Owner: event.OwnerCore, ValidatePayload: validateAs[PhaseJumpedPayload]},
		{Type: event.TypeTurnEnded, Owner: event.OwnerCore},
		{Type: event.TypeRoundEnded, Owner: event.OwnerCore},
		{Type: event.TypeCPSpent, Owner: event.OwnerCore, ValidatePayload: validateAs[CommandPointsPayload]},
		{Type: event.TypeCPGained, Owner: event.OwnerCore, ValidatePayload: validateAs[CommandPointsPayload]},
		{Type: event.TypeStratagemUsed, Owner: event.OwnerCore, ValidatePayload: validateAs[StratagemUsedPayload]},
		{Type: event.TypePointsScored, Owner: event.OwnerCore, ValidatePayload: validateAs[PointsScoredPayload]},
		{Type: event.TypeUnitAdded, Owner: event.OwnerCore, ValidatePayload: validateAs[UnitAddedPayload]},
		{Type: event.TypeUnitUpdated, Owner: event.OwnerCore, ValidatePayload: validateAs[UnitUpdatedPayload]},
		{Type: event.TypeUnitMoved, Owner: event.OwnerCore, ValidatePayload: validateAs[UnitActionPayload]},
		{Type: event.TypeUnitShot, Owner: event.OwnerCore, ValidatePayload: validateAs[UnitActionPayload]},
		{Type: event.TypeUnitCharged, Owner: event.OwnerCore, ValidatePayload: validateAs[UnitActionPayload]},
		{Type: event.TypeUnitFought, Owner: event.OwnerCore, ValidatePayload: validateAs[UnitActionPayload]},
		{Type: event.TypeUnitBattleShocked, Owner: event.OwnerCore, ValidatePayload: validateAs[UnitBattleshockPayload]},
		{Type: event.TypeUnitDestroyed, Owner: event.OwnerCore, ValidatePayload: validateAs[UnitDestroyedPayload]},
	}
	for _, definition := range definitions {
		if err := registry.Register(definition); err != nil {
			return err
		}
	}
	return nil
}
