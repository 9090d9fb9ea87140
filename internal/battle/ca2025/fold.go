package ca2025

import (
	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/machine"
)

// Fold applies an accepted module event to the module aggregate, keeping the
// player's victory points in lockstep with primary plus secondary. Core
// transition events pass through here too; the module has no boundary
// bookkeeping and ignores them.
func (m *Module) Fold(ctx *machine.Context, evt event.Event) error {
	state, ok := StateFrom(ctx)
	if !ok {
		return nil
	}
	switch evt.Type {
	case TypePrimaryScored:
		var payload PrimaryScoredPayload
		if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		addPrimary(ctx, state, evt.PlayerIndex, payload.Amount)
	case TypeSecondaryAchieved:
		var payload SecondaryAchievedPayload
		if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		scoring := &state.Players[evt.PlayerIndex]
		switch scoring.Mode {
		case ModeTactical:
			scoring.Hand = removeFromHand(scoring.Hand, payload.CardID)
			scoring.Achieved = append(scoring.Achieved, AchievedCard{
				CardID: payload.CardID,
				Round:  evt.Round,
				Points: payload.Points,
				At:     evt.VideoTimestamp,
			})
		case ModeFixed:
			if payload.Slot != nil {
				scoring.FixedProgress[*payload.Slot] += payload.Points
			}
		}
		addSecondary(ctx, state, evt.PlayerIndex, payload.Points)
	case TypeCardDrawn:
		var payload CardDrawnPayload
		if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		scoring := &state.Players[evt.PlayerIndex]
		scoring.DeckSize--
		scoring.Hand = append(scoring.Hand, payload.CardID)
	case TypeCardDiscarded:
		var payload CardDiscardedPayload
		if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		scoring := &state.Players[evt.PlayerIndex]
		scoring.Hand = removeFromHand(scoring.Hand, payload.CardID)
		scoring.Discarded = append(scoring.Discarded, payload.CardID)
		if payload.GainedCP {
			ctx.Players[evt.PlayerIndex].AddCommandPoints(1, CPCap)
		}
	case TypeObjectiveTerraformed:
		var payload ObjectiveTerraformedPayload
		if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		if state.Terraform == nil {
			state.Terraform = make(map[string]TerraformClaim)
		}
		state.Terraform[payload.ObjectiveID] = TerraformClaim{
			PlayerIndex:     evt.PlayerIndex,
			FlippedOpponent: payload.FlippedOpponent,
			At:              evt.VideoTimestamp,
		}
	case TypeChallengerUsed:
		var payload ChallengerUsedPayload
		if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		scoring := &state.Players[evt.PlayerIndex]
		scoring.Challenger = &ChallengerRecord{
			CardID: payload.CardID,
			Option: payload.ChosenOption,
			Points: payload.AchievedPoints,
			At:     evt.VideoTimestamp,
		}
		state.ChallengerDeckSize--
		if payload.ChosenOption == ChallengerOptionMission && payload.AchievedPoints > 0 {
			addSecondary(ctx, state, evt.PlayerIndex, payload.AchievedPoints)
		}
	}
	return nil
}

func addPrimary(ctx *machine.Context, state *State, playerIndex, amount int) {
	scoring := &state.Players[playerIndex]
	scoring.Primary += amount
	scoring.Total += amount
	ctx.Players[playerIndex].AddVictoryPoints(amount)
}

func addSecondary(ctx *machine.Context, state *State, playerIndex, amount int) {
	scoring := &state.Players[playerIndex]
	scoring.Secondary += amount
	scoring.Total += amount
	ctx.Players[playerIndex].AddVictoryPoints(amount)
}
