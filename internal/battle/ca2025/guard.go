package ca2025

import (
	"fmt"

	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/machine"
	"github.com/tabletopvod/battletrace/internal/battle/phase"
)

func rejectf(code, format string, args ...any) *machine.Rejection {
	return &machine.Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Guard vets a module event against machine and module state. The incoming
// event is stamped with the machine's current position; the guard resolves
// the scoring player onto the envelope.
func (m *Module) Guard(ctx *machine.Context, evt event.Event) (event.Event, *machine.Rejection) {
	state, ok := StateFrom(ctx)
	if !ok {
		return event.Event{}, rejectf(machine.RejectRulesetEventUnbound, "ca2025 state missing from context")
	}
	switch evt.Type {
	case TypePrimaryScored:
		return m.guardPrimaryScored(ctx, evt)
	case TypeSecondaryAchieved:
		return m.guardSecondaryAchieved(ctx, state, evt)
	case TypeCardDrawn:
		return m.guardCardDrawn(state, evt)
	case TypeCardDiscarded:
		return m.guardCardDiscarded(ctx, state, evt)
	case TypeObjectiveTerraformed:
		return m.guardObjectiveTerraformed(ctx, evt)
	case TypeChallengerUsed:
		return m.guardChallengerUsed(ctx, evt)
	}
	return event.Event{}, rejectf(machine.RejectEventTypeUnknown, "unhandled ca2025 event %q", evt.Type)
}

func (m *Module) guardPrimaryScored(ctx *machine.Context, evt event.Event) (event.Event, *machine.Rejection) {
	if ctx.CurrentPhase != phase.Scoring {
		return event.Event{}, rejectf(machine.RejectPhaseMismatch,
			"primary is scored in the scoring phase, not %s", ctx.CurrentPhase)
	}
	if ctx.CurrentRound < PrimaryFromRound {
		return event.Event{}, rejectf(RejectPrimaryTooEarly,
			"primary objectives score from round %d", PrimaryFromRound)
	}
	var payload PrimaryScoredPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(machine.RejectPayloadInvalid, "%v", err)
	}
	if payload.Amount <= 0 {
		return event.Event{}, rejectf(machine.RejectAmountInvalid, "amount must be positive")
	}
	return stampPlayer(evt, payload.PlayerIndex)
}

func (m *Module) guardSecondaryAchieved(ctx *machine.Context, state *State, evt event.Event) (event.Event, *machine.Rejection) {
	if ctx.CurrentPhase != phase.Scoring {
		return event.Event{}, rejectf(machine.RejectPhaseMismatch,
			"secondaries are scored in the scoring phase, not %s", ctx.CurrentPhase)
	}
	var payload SecondaryAchievedPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(machine.RejectPayloadInvalid, "%v", err)
	}
	if payload.Points <= 0 {
		return event.Event{}, rejectf(machine.RejectAmountInvalid, "points must be positive")
	}
	stamped, rej := stampPlayer(evt, payload.PlayerIndex)
	if rej != nil {
		return event.Event{}, rej
	}
	scoring := &state.Players[stamped.PlayerIndex]
	switch scoring.Mode {
	case ModeTactical:
		if payload.CardID == "" {
			return event.Event{}, rejectf(machine.RejectPayloadInvalid, "card_id is required in tactical mode")
		}
		if !inHand(scoring.Hand, payload.CardID) {
			return event.Event{}, rejectf(RejectCardNotInHand, "card %q is not in hand", payload.CardID)
		}
	case ModeFixed:
		if payload.Slot == nil || (*payload.Slot != 0 && *payload.Slot != 1) {
			return event.Event{}, rejectf(RejectSlotInvalid, "fixed mode requires slot 0 or 1")
		}
	}
	return stamped, nil
}

func (m *Module) guardCardDrawn(state *State, evt event.Event) (event.Event, *machine.Rejection) {
	var payload CardDrawnPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(machine.RejectPayloadInvalid, "%v", err)
	}
	if payload.CardID == "" {
		return event.Event{}, rejectf(machine.RejectPayloadInvalid, "card_id is required")
	}
	stamped, rej := stampPlayer(evt, payload.PlayerIndex)
	if rej != nil {
		return event.Event{}, rej
	}
	scoring := &state.Players[stamped.PlayerIndex]
	if scoring.Mode != ModeTactical {
		return event.Event{}, rejectf(RejectModeMismatch, "player %d uses fixed secondaries", stamped.PlayerIndex)
	}
	if len(scoring.Hand) >= HandLimit {
		return event.Event{}, rejectf(RejectHandFull, "hand already holds %d cards", HandLimit)
	}
	if scoring.DeckSize <= 0 {
		return event.Event{}, rejectf(RejectDeckEmpty, "tactical deck is empty")
	}
	if inHand(scoring.Hand, payload.CardID) {
		return event.Event{}, rejectf(RejectCardAlreadyInHand, "card %q is already in hand", payload.CardID)
	}
	return stamped, nil
}

func (m *Module) guardCardDiscarded(ctx *machine.Context, state *State, evt event.Event) (event.Event, *machine.Rejection) {
	if ctx.CurrentPhase != phase.Scoring {
		return event.Event{}, rejectf(machine.RejectPhaseMismatch,
			"cards are discarded in the scoring phase, not %s", ctx.CurrentPhase)
	}
	var payload CardDiscardedPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(machine.RejectPayloadInvalid, "%v", err)
	}
	stamped, rej := stampPlayer(evt, payload.PlayerIndex)
	if rej != nil {
		return event.Event{}, rej
	}
	scoring := &state.Players[stamped.PlayerIndex]
	if scoring.Mode != ModeTactical {
		return event.Event{}, rejectf(RejectModeMismatch, "player %d uses fixed secondaries", stamped.PlayerIndex)
	}
	if !inHand(scoring.Hand, payload.CardID) {
		return event.Event{}, rejectf(RejectCardNotInHand, "card %q is not in hand", payload.CardID)
	}
	return stamped, nil
}

func (m *Module) guardObjectiveTerraformed(ctx *machine.Context, evt event.Event) (event.Event, *machine.Rejection) {
	if ctx.CurrentPhase != phase.Movement {
		return event.Event{}, rejectf(machine.RejectPhaseMismatch,
			"terraforming happens in the movement phase, not %s", ctx.CurrentPhase)
	}
	var payload ObjectiveTerraformedPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(machine.RejectPayloadInvalid, "%v", err)
	}
	if payload.ObjectiveID == "" {
		return event.Event{}, rejectf(machine.RejectPayloadInvalid, "objective_id is required")
	}
	return stampPlayer(evt, payload.PlayerIndex)
}

func (m *Module) guardChallengerUsed(ctx *machine.Context, evt event.Event) (event.Event, *machine.Rejection) {
	var payload ChallengerUsedPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(machine.RejectPayloadInvalid, "%v", err)
	}
	if payload.CardID == "" {
		return event.Event{}, rejectf(machine.RejectPayloadInvalid, "card_id is required")
	}
	switch payload.ChosenOption {
	case ChallengerOptionMission, ChallengerOptionStratagem:
	default:
		return event.Event{}, rejectf(machine.RejectPayloadInvalid,
			"chosen_option must be %q or %q", ChallengerOptionMission, ChallengerOptionStratagem)
	}
	if payload.ChosenOption == ChallengerOptionMission && payload.AchievedPoints < 0 {
		return event.Event{}, rejectf(machine.RejectAmountInvalid, "achieved_points cannot be negative")
	}
	stamped, rej := stampPlayer(evt, payload.PlayerIndex)
	if rej != nil {
		return event.Event{}, rej
	}
	if !EligibleForChallenger(ctx, stamped.PlayerIndex) {
		return event.Event{}, rejectf(RejectChallengerIneligible,
			"player %d is not eligible for a challenger card", stamped.PlayerIndex)
	}
	return stamped, nil
}

// stampPlayer resolves the scoring player onto the envelope, defaulting to
// the stamped active player.
func stampPlayer(evt event.Event, fromPayload *int) (event.Event, *machine.Rejection) {
	if fromPayload == nil {
		return evt, nil
	}
	if *fromPayload != 0 && *fromPayload != 1 {
		return event.Event{}, rejectf(machine.RejectPlayerIndexInvalid,
			"player index %d must be 0 or 1", *fromPayload)
	}
	evt.PlayerIndex = *fromPayload
	return evt, nil
}
