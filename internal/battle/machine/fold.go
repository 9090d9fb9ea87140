package machine

import (
	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/phase"
	"github.com/tabletopvod/battletrace/internal/battle/unit"
)

// foldCore applies an accepted core event to the aggregate. Folds never
// reject; everything state-dependent was settled by the guards, and replay
// trusts journaled events verbatim.
func (m *Machine) foldCore(evt event.Event) error {
	switch evt.Type {
	case event.TypeGameStarted:
		m.foldGameStarted(evt)
	case event.TypeGameEnded:
		m.foldGameEnded()
	case event.TypePhaseAdvanced, event.TypePhaseJumped:
		m.setPosition(evt)
	case event.TypeTurnEnded:
		m.foldTurnEnded(evt)
	case event.TypeRoundEnded:
		m.foldRoundEnded(evt)
	case event.TypeCPSpent:
		var payload CommandPointsPayload
		if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		m.ctx.Players[evt.PlayerIndex].AddCommandPoints(-payload.Amount, m.commandPointCap())
	case event.TypeCPGained:
		var payload CommandPointsPayload
		if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		m.ctx.Players[evt.PlayerIndex].AddCommandPoints(payload.Amount, m.commandPointCap())
	case event.TypeStratagemUsed:
		var payload StratagemUsedPayload
		if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		m.ctx.Players[evt.PlayerIndex].AddCommandPoints(-payload.CPCost, m.commandPointCap())
	case event.TypePointsScored:
		var payload PointsScoredPayload
		if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		m.ctx.Players[evt.PlayerIndex].AddVictoryPoints(payload.Amount)
	case event.TypeUnitAdded:
		var payload UnitAddedPayload
		if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
			return err
		}
		m.ctx.Units[payload.UnitID] = newUnit(payload.UnitID, payload.PlayerIndex, UnitSetup{
			Name:      payload.Name,
			Points:    payload.Points,
			Wounds:    payload.Wounds,
			MaxWounds: payload.MaxWounds,
			Models:    payload.Models,
			MaxModels: payload.MaxModels,
		})
	case event.TypeUnitUpdated:
		return m.foldUnitUpdated(evt)
	case event.TypeUnitMoved:
		return m.foldUnitMoved(evt)
	case event.TypeUnitShot:
		return m.foldUnitAction(evt, func(u *unit.Unit) { u.Status.HasShot = true })
	case event.TypeUnitCharged:
		return m.foldUnitCharged(evt)
	case event.TypeUnitFought:
		return m.foldUnitAction(evt, func(u *unit.Unit) { u.Status.HasFought = true })
	case event.TypeUnitBattleShocked:
		return m.foldBattleShock(evt)
	case event.TypeUnitDestroyed:
		return m.foldUnitDestroyed(evt)
	}
	return nil
}

// setPosition moves the machine to the position stamped on a transition
// event's envelope.
func (m *Machine) setPosition(evt event.Event) {
	m.ctx.CurrentRound = evt.Round
	m.ctx.CurrentPhase = evt.Phase
	m.ctx.ActivePlayer = evt.PlayerIndex
	m.ctx.Players[0].IsActive = evt.PlayerIndex == 0
	m.ctx.Players[1].IsActive = evt.PlayerIndex == 1
}

// enterCommandPhase grants the active player's start-of-turn command point.
func (m *Machine) enterCommandPhase() {
	m.ctx.Players[m.ctx.ActivePlayer].AddCommandPoints(1, m.commandPointCap())
}

func (m *Machine) foldGameStarted(evt event.Event) {
	m.ctx.Segment = phase.SegmentRound
	ts := evt.VideoTimestamp
	m.ctx.GameStartTimestamp = &ts
	m.setPosition(evt)
	m.enterCommandPhase()
}

func (m *Machine) foldGameEnded() {
	m.ctx.Segment = phase.SegmentGameOver
	m.ctx.GameEnded = true
	m.ctx.Players[0].IsActive = false
	m.ctx.Players[1].IsActive = false
	m.ctx.Result = m.computeResult()
}

func (m *Machine) foldTurnEnded(evt event.Event) {
	m.resetTurnScoped(m.ctx.ActivePlayer)
	m.setPosition(evt)
	m.enterCommandPhase()
}

func (m *Machine) foldRoundEnded(evt event.Event) {
	m.resetTurnScoped(m.ctx.ActivePlayer)
	if m.ctx.CurrentRound >= phase.MaxRound {
		m.foldGameEnded()
		return
	}
	m.setPosition(evt)
	m.enterCommandPhase()
}

// resetTurnScoped clears turn-scoped flags on the finishing player's units.
// The other player's units keep theirs until their own turn ends.
func (m *Machine) resetTurnScoped(playerIndex int) {
	for key, u := range m.ctx.Units {
		if u.PlayerIndex != playerIndex {
			continue
		}
		u.Status.ResetTurnScoped()
		m.ctx.Units[key] = u
	}
}

func (m *Machine) computeResult() *Result {
	result := &Result{
		VictoryPoints: [2]int{
			m.ctx.Players[0].VictoryPoints,
			m.ctx.Players[1].VictoryPoints,
		},
	}
	switch {
	case result.VictoryPoints[0] > result.VictoryPoints[1]:
		winner := 0
		result.Winner = &winner
	case result.VictoryPoints[1] > result.VictoryPoints[0]:
		winner := 1
		result.Winner = &winner
	}
	return result
}

func (m *Machine) foldUnitUpdated(evt event.Event) error {
	var payload UnitUpdatedPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return err
	}
	u, ok := m.ctx.Units[payload.UnitID]
	if !ok {
		return nil
	}
	if payload.Wounds != nil {
		u.Wounds = max(*payload.Wounds, 0)
	}
	if payload.Models != nil {
		u.Models = max(*payload.Models, 0)
	}
	if payload.Engaged != nil {
		u.Status.Engaged = *payload.Engaged
	}
	u.Status.BelowHalfStrength = belowHalfStrength(u)
	m.ctx.Units[payload.UnitID] = u
	return nil
}

// belowHalfStrength follows the model-count rule for multi-model units and
// the wounds rule for single-model units. Untracked stats never flag.
func belowHalfStrength(u unit.Unit) bool {
	if u.MaxModels > 1 {
		return u.Models*2 < u.MaxModels
	}
	if u.MaxWounds > 0 {
		return u.Wounds*2 < u.MaxWounds
	}
	return false
}

func (m *Machine) foldUnitMoved(evt event.Event) error {
	var payload UnitActionPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return err
	}
	u, ok := m.ctx.Units[payload.UnitID]
	if !ok {
		return nil
	}
	u.Status.Advanced = payload.Advanced
	u.Status.FellBack = payload.FellBack
	if payload.FellBack {
		u.Status.Engaged = false
	}
	m.ctx.Units[payload.UnitID] = u
	return nil
}

func (m *Machine) foldUnitCharged(evt event.Event) error {
	var payload UnitActionPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return err
	}
	if u, ok := m.ctx.Units[payload.UnitID]; ok {
		u.Status.HasCharged = true
		u.Status.Engaged = true
		m.ctx.Units[payload.UnitID] = u
	}
	// A successful charge puts the target into engagement too.
	if target, ok := m.ctx.Units[payload.Target]; ok {
		target.Status.Engaged = true
		m.ctx.Units[payload.Target] = target
	}
	return nil
}

func (m *Machine) foldBattleShock(evt event.Event) error {
	var payload UnitBattleshockPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return err
	}
	if u, ok := m.ctx.Units[payload.UnitID]; ok {
		u.Status.BattleShocked = !payload.Passed
		m.ctx.Units[payload.UnitID] = u
	}
	return nil
}

func (m *Machine) foldUnitDestroyed(evt event.Event) error {
	var payload UnitDestroyedPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return err
	}
	u, ok := m.ctx.Units[payload.UnitID]
	if !ok {
		return nil
	}
	u.Status.Destroyed = true
	u.Status.Engaged = false
	u.Wounds = 0
	u.Models = 0
	u.Status.BelowHalfStrength = belowHalfStrength(u)
	u.DestroyedRound = evt.Round
	u.DestroyedAt = evt.VideoTimestamp
	m.ctx.Units[payload.UnitID] = u
	return nil
}

func (m *Machine) foldUnitAction(evt event.Event, apply func(*unit.Unit)) error {
	var payload UnitActionPayload
	if err := decodePayload(evt.PayloadJSON, &payload); err != nil {
		return err
	}
	u, ok := m.ctx.Units[payload.UnitID]
	if !ok {
		return nil
	}
	apply(&u)
	m.ctx.Units[payload.UnitID] = u
	return nil
}
