package machine

import (
	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/phase"
	"github.com/tabletopvod/battletrace/internal/battle/unit"
)

// guardCore vets a core event against current state and, on acceptance,
// returns the stamped envelope plus a normalized payload.
//
// Transition events stamp the position the machine occupies AFTER the
// transition, so a reader that folds the log or scans it by timestamp can
// take any event's envelope as the position the game was in once the event
// took effect.
func (m *Machine) guardCore(evt event.Event) (event.Event, *Rejection) {
	switch evt.Type {
	case event.TypeGameStarted:
		return m.guardGameStarted(evt)
	case event.TypeGameEnded:
		return m.guardGameEnded(evt)
	case event.TypePhaseAdvanced:
		return m.guardPhaseAdvanced(evt)
	case event.TypePhaseJumped:
		return m.guardPhaseJumped(evt)
	case event.TypeTurnEnded:
		return m.guardTurnEnded(evt)
	case event.TypeRoundEnded:
		return m.guardRoundEnded(evt)
	}

	// Everything else is a gameplay event and requires a live round.
	if rej := m.guardSegmentForGameplay(); rej != nil {
		return event.Event{}, rej
	}
	evt = m.stampCurrent(evt)

	switch evt.Type {
	case event.TypeCPSpent, event.TypeCPGained:
		return m.guardCommandPoints(evt)
	case event.TypeStratagemUsed:
		return m.guardStratagemUsed(evt)
	case event.TypePointsScored:
		return m.guardPointsScored(evt)
	case event.TypeUnitAdded:
		return m.guardUnitAdded(evt)
	case event.TypeUnitUpdated:
		return m.guardUnitUpdated(evt)
	case event.TypeUnitMoved:
		return m.guardUnitAction(evt, phase.Movement)
	case event.TypeUnitShot:
		return m.guardUnitAction(evt, phase.Shooting)
	case event.TypeUnitCharged:
		return m.guardUnitAction(evt, phase.Charge)
	case event.TypeUnitFought:
		return m.guardUnitAction(evt, phase.Fight)
	case event.TypeUnitBattleShocked:
		return m.guardBattleShock(evt)
	case event.TypeUnitDestroyed:
		return m.guardUnitDestroyed(evt)
	}
	return evt, nil
}

func (m *Machine) guardGameStarted(evt event.Event) (event.Event, *Rejection) {
	switch m.ctx.Segment {
	case phase.SegmentRound:
		return event.Event{}, rejectf(RejectGameAlreadyStarted, "game has already started")
	case phase.SegmentGameOver:
		return event.Event{}, rejectf(RejectGameOver, "game is over")
	}
	first := m.ctx.FirstPlayer()
	evt.Round = 1
	evt.Phase = phase.Command
	evt.PlayerIndex = first
	payload := GameStartedPayload{Mission: m.ctx.Mission.Name, FirstPlayer: first}
	raw, err := encodePayload(payload)
	if err != nil {
		return event.Event{}, rejectf(RejectPayloadInvalid, "%v", err)
	}
	evt.PayloadJSON = raw
	return evt, nil
}

func (m *Machine) guardGameEnded(evt event.Event) (event.Event, *Rejection) {
	if m.ctx.Segment == phase.SegmentGameOver {
		return event.Event{}, rejectf(RejectGameOver, "game is already over")
	}
	var payload GameEndedPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(RejectPayloadInvalid, "%v", err)
	}
	evt = m.stampCurrent(evt)
	// The game can be abandoned during setup, before any position exists.
	if evt.Round == 0 {
		evt.Round = 1
	}
	if evt.Phase == "" {
		evt.Phase = phase.Command
	}
	return evt, nil
}

func (m *Machine) guardPhaseAdvanced(evt event.Event) (event.Event, *Rejection) {
	if rej := m.guardSegmentForGameplay(); rej != nil {
		return event.Event{}, rej
	}
	next, ok := phase.Next(m.ctx.CurrentPhase)
	if !ok {
		return event.Event{}, rejectf(RejectPhaseSequenceDone,
			"cannot advance past %s; end the turn or round", m.ctx.CurrentPhase)
	}
	evt.Round = m.ctx.CurrentRound
	evt.Phase = next
	evt.PlayerIndex = m.ctx.ActivePlayer
	return evt, nil
}

func (m *Machine) guardPhaseJumped(evt event.Event) (event.Event, *Rejection) {
	if rej := m.guardSegmentForGameplay(); rej != nil {
		return event.Event{}, rej
	}
	var payload PhaseJumpedPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(RejectPayloadInvalid, "%v", err)
	}
	if payload.Round < 1 || payload.Round > phase.MaxRound {
		return event.Event{}, rejectf(RejectPositionOutOfRange,
			"round %d is outside 1..%d", payload.Round, phase.MaxRound)
	}
	if !payload.Phase.IsValid() {
		return event.Event{}, rejectf(RejectPositionOutOfRange, "unknown phase %q", payload.Phase)
	}
	if payload.PlayerIndex != 0 && payload.PlayerIndex != 1 {
		return event.Event{}, rejectf(RejectPlayerIndexInvalid,
			"player index %d must be 0 or 1", payload.PlayerIndex)
	}
	evt.Round = payload.Round
	evt.Phase = payload.Phase
	evt.PlayerIndex = payload.PlayerIndex
	return evt, nil
}

func (m *Machine) guardTurnEnded(evt event.Event) (event.Event, *Rejection) {
	if rej := m.guardSegmentForGameplay(); rej != nil {
		return event.Event{}, rej
	}
	if m.ctx.CurrentPhase != phase.Scoring {
		return event.Event{}, rejectf(RejectTurnNotAtScoring,
			"turn ends from scoring, not %s", m.ctx.CurrentPhase)
	}
	if m.ctx.ActivePlayer != m.ctx.FirstPlayer() {
		return event.Event{}, rejectf(RejectNotFirstTurn,
			"second player's turn ends the round, not the turn")
	}
	evt.Round = m.ctx.CurrentRound
	evt.Phase = phase.Command
	evt.PlayerIndex = m.ctx.SecondPlayer()
	return evt, nil
}

func (m *Machine) guardRoundEnded(evt event.Event) (event.Event, *Rejection) {
	if rej := m.guardSegmentForGameplay(); rej != nil {
		return event.Event{}, rej
	}
	if m.ctx.CurrentPhase != phase.Scoring {
		return event.Event{}, rejectf(RejectTurnNotAtScoring,
			"round ends from scoring, not %s", m.ctx.CurrentPhase)
	}
	if m.ctx.ActivePlayer != m.ctx.SecondPlayer() {
		return event.Event{}, rejectf(RejectNotSecondTurn,
			"first player's turn ends with a turn end, not a round end")
	}
	if m.ctx.CurrentRound >= phase.MaxRound {
		// Final round end is the terminal transition; stamp where it closed.
		evt.Round = phase.MaxRound
		evt.Phase = phase.Scoring
		evt.PlayerIndex = m.ctx.ActivePlayer
		return evt, nil
	}
	evt.Round = m.ctx.CurrentRound + 1
	evt.Phase = phase.Command
	evt.PlayerIndex = m.ctx.FirstPlayer()
	return evt, nil
}

func (m *Machine) guardCommandPoints(evt event.Event) (event.Event, *Rejection) {
	var payload CommandPointsPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(RejectPayloadInvalid, "%v", err)
	}
	if payload.Amount <= 0 {
		return event.Event{}, rejectf(RejectAmountInvalid, "amount must be positive")
	}
	playerIndex, rej := resolvePlayer(payload.PlayerIndex, evt.PlayerIndex)
	if rej != nil {
		return event.Event{}, rej
	}
	evt.PlayerIndex = playerIndex
	return evt, nil
}

func (m *Machine) guardStratagemUsed(evt event.Event) (event.Event, *Rejection) {
	var payload StratagemUsedPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(RejectPayloadInvalid, "%v", err)
	}
	if payload.Name == "" {
		return event.Event{}, rejectf(RejectPayloadInvalid, "stratagem name is required")
	}
	if payload.CPCost < 0 {
		return event.Event{}, rejectf(RejectAmountInvalid, "cp cost cannot be negative")
	}
	playerIndex, rej := resolvePlayer(payload.PlayerIndex, evt.PlayerIndex)
	if rej != nil {
		return event.Event{}, rej
	}
	evt.PlayerIndex = playerIndex
	return evt, nil
}

func (m *Machine) guardPointsScored(evt event.Event) (event.Event, *Rejection) {
	// A layered ruleset owns scoring; base victory points bypassing its
	// aggregate would desync the two tallies.
	if m.ruleset != nil {
		return event.Event{}, rejectf(RejectScoringRulesetOwned,
			"victory points are scored through the %s ruleset's events", m.ruleset.ID())
	}
	if m.ctx.CurrentPhase != phase.Scoring {
		return event.Event{}, rejectf(RejectPhaseMismatch,
			"points are scored in the scoring phase, not %s", m.ctx.CurrentPhase)
	}
	var payload PointsScoredPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(RejectPayloadInvalid, "%v", err)
	}
	if payload.Amount <= 0 {
		return event.Event{}, rejectf(RejectAmountInvalid, "amount must be positive")
	}
	playerIndex, rej := resolvePlayer(payload.PlayerIndex, evt.PlayerIndex)
	if rej != nil {
		return event.Event{}, rej
	}
	evt.PlayerIndex = playerIndex
	return evt, nil
}

func (m *Machine) guardUnitAdded(evt event.Event) (event.Event, *Rejection) {
	var payload UnitAddedPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(RejectPayloadInvalid, "%v", err)
	}
	if payload.Name == "" {
		return event.Event{}, rejectf(RejectPayloadInvalid, "unit name is required")
	}
	if payload.PlayerIndex != 0 && payload.PlayerIndex != 1 {
		return event.Event{}, rejectf(RejectPlayerIndexInvalid,
			"player index %d must be 0 or 1", payload.PlayerIndex)
	}
	// The unit id is assigned before append so replay reproduces it.
	if payload.UnitID == "" {
		unitID, err := m.newID()
		if err != nil {
			return event.Event{}, rejectf(RejectPayloadInvalid, "generate unit id: %v", err)
		}
		payload.UnitID = unitID
	}
	raw, err := encodePayload(payload)
	if err != nil {
		return event.Event{}, rejectf(RejectPayloadInvalid, "%v", err)
	}
	evt.PayloadJSON = raw
	evt.PlayerIndex = payload.PlayerIndex
	return evt, nil
}

func (m *Machine) guardUnitUpdated(evt event.Event) (event.Event, *Rejection) {
	var payload UnitUpdatedPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(RejectPayloadInvalid, "%v", err)
	}
	target, rej := m.livingUnit(payload.UnitID)
	if rej != nil {
		return event.Event{}, rej
	}
	evt.PlayerIndex = target.PlayerIndex
	return evt, nil
}

func (m *Machine) guardUnitAction(evt event.Event, want phase.Phase) (event.Event, *Rejection) {
	if m.ctx.CurrentPhase != want {
		return event.Event{}, rejectf(RejectPhaseMismatch,
			"%s belongs to the %s phase, current phase is %s", evt.Type, want, m.ctx.CurrentPhase)
	}
	var payload UnitActionPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(RejectPayloadInvalid, "%v", err)
	}
	target, rej := m.livingUnit(payload.UnitID)
	if rej != nil {
		return event.Event{}, rej
	}
	if payload.Target != "" {
		if _, ok := m.ctx.Units[payload.Target]; !ok {
			return event.Event{}, rejectf(RejectUnitNotFound, "target unit %q not found", payload.Target)
		}
	}
	evt.PlayerIndex = target.PlayerIndex
	return evt, nil
}

func (m *Machine) guardBattleShock(evt event.Event) (event.Event, *Rejection) {
	if m.ctx.CurrentPhase != phase.Command {
		return event.Event{}, rejectf(RejectPhaseMismatch,
			"battle-shock tests happen in the command phase, current phase is %s", m.ctx.CurrentPhase)
	}
	var payload UnitBattleshockPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(RejectPayloadInvalid, "%v", err)
	}
	target, rej := m.livingUnit(payload.UnitID)
	if rej != nil {
		return event.Event{}, rej
	}
	evt.PlayerIndex = target.PlayerIndex
	return evt, nil
}

func (m *Machine) guardUnitDestroyed(evt event.Event) (event.Event, *Rejection) {
	var payload UnitDestroyedPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return event.Event{}, rejectf(RejectPayloadInvalid, "%v", err)
	}
	target, rej := m.livingUnit(payload.UnitID)
	if rej != nil {
		return event.Event{}, rej
	}
	evt.PlayerIndex = target.PlayerIndex
	return evt, nil
}

// livingUnit resolves a unit id to a unit that is still in play.
func (m *Machine) livingUnit(unitID string) (unit.Unit, *Rejection) {
	if unitID == "" {
		return unit.Unit{}, rejectf(RejectPayloadInvalid, "unit_id is required")
	}
	target, ok := m.ctx.Units[unitID]
	if !ok {
		return unit.Unit{}, rejectf(RejectUnitNotFound, "unit %q not found", unitID)
	}
	if target.Status.Destroyed {
		return unit.Unit{}, rejectf(RejectUnitDestroyed, "unit %q is destroyed", unitID)
	}
	return target, nil
}

func resolvePlayer(fromPayload *int, fallback int) (int, *Rejection) {
	if fromPayload == nil {
		return fallback, nil
	}
	if *fromPayload != 0 && *fromPayload != 1 {
		return 0, rejectf(RejectPlayerIndexInvalid, "player index %d must be 0 or 1", *fromPayload)
	}
	return *fromPayload, nil
}
