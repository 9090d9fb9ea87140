package ca2025

import (
	"encoding/json"
	"fmt"

	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/machine"
)

// Ruleset constants from the Chapter Approved 2025 mission pack.
const (
	// StartingCP is each player's command point pool at deployment.
	StartingCP = 6
	// CPCap bounds command points for the whole game.
	CPCap = 12
	// ChallengerDeficit is the victory point gap that unlocks the
	// challenger deck.
	ChallengerDeficit = 6
	// PrimaryFromRound is the first battle round that scores primary.
	PrimaryFromRound = 2
	// HandLimit is the tactical secondary hand size.
	HandLimit = 2
	// DefaultTacticalDeckSize is the full tactical mission deck.
	DefaultTacticalDeckSize = 18
	// DefaultChallengerDeckSize is the full challenger deck.
	DefaultChallengerDeckSize = 10
)

// Module event types.
const (
	TypePrimaryScored        event.Type = "ca2025.primary_scored"
	TypeSecondaryAchieved    event.Type = "ca2025.secondary_achieved"
	TypeCardDrawn            event.Type = "ca2025.card_drawn"
	TypeCardDiscarded        event.Type = "ca2025.card_discarded"
	TypeObjectiveTerraformed event.Type = "ca2025.objective_terraformed"
	TypeChallengerUsed       event.Type = "ca2025.challenger_used"
)

// Module rejection codes.
const (
	RejectPrimaryTooEarly      = "PRIMARY_BEFORE_ROUND_TWO"
	RejectModeMismatch         = "SECONDARY_MODE_MISMATCH"
	RejectCardNotInHand        = "CARD_NOT_IN_HAND"
	RejectCardAlreadyInHand    = "CARD_ALREADY_IN_HAND"
	RejectHandFull             = "HAND_FULL"
	RejectDeckEmpty            = "DECK_EMPTY"
	RejectSlotInvalid          = "SLOT_INVALID"
	RejectChallengerIneligible = "CHALLENGER_NOT_ELIGIBLE"
)

// Challenger card options.
const (
	ChallengerOptionMission   = "mission"
	ChallengerOptionStratagem = "stratagem"
)

// PrimaryScoredPayload scores primary objective points in a scoring phase.
type PrimaryScoredPayload struct {
	Amount      int    `json:"amount"`
	ObjectiveID string `json:"objective_id,omitempty"`
	PlayerIndex *int   `json:"player_index,omitempty"`
}

// SecondaryAchievedPayload completes a secondary mission. Tactical players
// name a card in hand; fixed players name a slot (0 or 1).
type SecondaryAchievedPayload struct {
	CardID      string `json:"card_id,omitempty"`
	Slot        *int   `json:"slot,omitempty"`
	Points      int    `json:"points"`
	PlayerIndex *int   `json:"player_index,omitempty"`
}

// CardDrawnPayload draws a tactical secondary card into the hand.
type CardDrawnPayload struct {
	CardID      string `json:"card_id"`
	PlayerIndex *int   `json:"player_index,omitempty"`
}

// CardDiscardedPayload discards a tactical card from hand. GainedCP is
// asserted by the caller when the discard's command point grant applies.
type CardDiscardedPayload struct {
	CardID      string `json:"card_id"`
	GainedCP    bool   `json:"gained_cp"`
	PlayerIndex *int   `json:"player_index,omitempty"`
}

// ObjectiveTerraformedPayload claims an objective marker in the movement
// phase.
type ObjectiveTerraformedPayload struct {
	ObjectiveID     string `json:"objective_id"`
	FlippedOpponent bool   `json:"flipped_opponent"`
	PlayerIndex     *int   `json:"player_index,omitempty"`
}

// ChallengerUsedPayload plays the player's one challenger card. The mission
// option scores AchievedPoints as secondary; the stratagem option has no
// direct scoring effect.
type ChallengerUsedPayload struct {
	CardID         string `json:"card_id"`
	ChosenOption   string `json:"chosen_option"`
	AchievedPoints int    `json:"achieved_points,omitempty"`
	PlayerIndex    *int   `json:"player_index,omitempty"`
}

// Config selects per-player secondary modes at setup.
type Config struct {
	// Modes defaults to tactical for both players.
	Modes [2]Mode
	// FixedSecondaries names each fixed-mode player's two selected
	// missions. Ignored for tactical players.
	FixedSecondaries [2][2]string
	// TacticalDeckSize overrides the default deck size when positive.
	TacticalDeckSize int
	// ChallengerDeckSize overrides the default deck size when positive.
	ChallengerDeckSize int
}

// Module implements machine.Ruleset for the CA2025 mission pack.
type Module struct {
	cfg Config
}

// New builds the module, applying deck-size defaults.
func New(cfg Config) *Module {
	for i := range cfg.Modes {
		if cfg.Modes[i] == "" {
			cfg.Modes[i] = ModeTactical
		}
	}
	if cfg.TacticalDeckSize <= 0 {
		cfg.TacticalDeckSize = DefaultTacticalDeckSize
	}
	if cfg.ChallengerDeckSize <= 0 {
		cfg.ChallengerDeckSize = DefaultChallengerDeckSize
	}
	return &Module{cfg: cfg}
}

func (m *Module) ID() string { return "ca2025" }

func (m *Module) StartingCommandPoints() int { return StartingCP }

func (m *Module) CommandPointCap() int { return CPCap }

// RegisterEvents installs the module's event definitions.
func (m *Module) RegisterEvents(registry *event.Registry) error {
	definitions := []event.Definition{
		{Type: TypePrimaryScored, Owner: event.OwnerRuleset, ValidatePayload: validateAs[PrimaryScoredPayload]},
		{Type: TypeSecondaryAchieved, Owner: event.OwnerRuleset, ValidatePayload: validateAs[SecondaryAchievedPayload]},
		{Type: TypeCardDrawn, Owner: event.OwnerRuleset, ValidatePayload: validateAs[CardDrawnPayload]},
		{Type: TypeCardDiscarded, Owner: event.OwnerRuleset, ValidatePayload: validateAs[CardDiscardedPayload]},
		{Type: TypeObjectiveTerraformed, Owner: event.OwnerRuleset, ValidatePayload: validateAs[ObjectiveTerraformedPayload]},
		{Type: TypeChallengerUsed, Owner: event.OwnerRuleset, ValidatePayload: validateAs[ChallengerUsedPayload]},
	}
	for _, definition := range definitions {
		if err := registry.Register(definition); err != nil {
			return err
		}
	}
	return nil
}

// NewState builds the initial module aggregate.
func (m *Module) NewState(_ *machine.Context) any {
	state := &State{
		Terraform:          make(map[string]TerraformClaim),
		ChallengerDeckSize: m.cfg.ChallengerDeckSize,
	}
	for i := range state.Players {
		scoring := &state.Players[i]
		scoring.Mode = m.cfg.Modes[i]
		if scoring.Mode == ModeTactical {
			scoring.DeckSize = m.cfg.TacticalDeckSize
		} else {
			scoring.FixedSecondaries = m.cfg.FixedSecondaries[i]
		}
	}
	return state
}

// CloneState deep-copies the module aggregate.
func (m *Module) CloneState(state any) any {
	typed, ok := state.(*State)
	if !ok || typed == nil {
		return state
	}
	return typed.clone()
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

func validateAs[T any](raw json.RawMessage) error {
	var payload T
	return decodePayload(raw, &payload)
}
