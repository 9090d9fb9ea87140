package machine

import (
	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/phase"
)

// The facade wrappers below are sugar over Send: each builds the payload for
// one event type. Everything they do can be done by sending raw events.

func (m *Machine) send(eventType event.Type, ts float64, payload any) (Decision, error) {
	var raw []byte
	if payload != nil {
		encoded, err := encodePayload(payload)
		if err != nil {
			return Decision{}, err
		}
		raw = encoded
	}
	return m.Send(Input{Type: eventType, VideoTimestamp: ts, PayloadJSON: raw})
}

// StartGame transitions from setup into round 1, first player's command phase.
func (m *Machine) StartGame(ts float64) (Decision, error) {
	return m.send(event.TypeGameStarted, ts, nil)
}

// EndGame force-terminates the game from any live state.
func (m *Machine) EndGame(ts float64, reason string) (Decision, error) {
	return m.send(event.TypeGameEnded, ts, GameEndedPayload{Reason: reason})
}

// NextPhase advances to the next phase of the active player's turn.
func (m *Machine) NextPhase(ts float64) (Decision, error) {
	return m.send(event.TypePhaseAdvanced, ts, nil)
}

// JumpTo moves to an arbitrary in-round position, for out-of-order video
// annotation.
func (m *Machine) JumpTo(ts float64, round int, target phase.Phase, playerIndex int) (Decision, error) {
	return m.send(event.TypePhaseJumped, ts, PhaseJumpedPayload{
		Round:       round,
		Phase:       target,
		PlayerIndex: playerIndex,
	})
}

// EndTurn hands the round over to the second player.
func (m *Machine) EndTurn(ts float64) (Decision, error) {
	return m.send(event.TypeTurnEnded, ts, nil)
}

// EndRound closes the round, advancing to the next or ending the game after
// the final round.
func (m *Machine) EndRound(ts float64) (Decision, error) {
	return m.send(event.TypeRoundEnded, ts, nil)
}

// SpendCommandPoints deducts command points from a player, clamped at zero.
func (m *Machine) SpendCommandPoints(ts float64, playerIndex, amount int, reason string) (Decision, error) {
	return m.send(event.TypeCPSpent, ts, CommandPointsPayload{
		Amount:      amount,
		Reason:      reason,
		PlayerIndex: &playerIndex,
	})
}

// GainCommandPoints grants command points to a player, clamped to the
// ruleset cap.
func (m *Machine) GainCommandPoints(ts float64, playerIndex, amount int, reason string) (Decision, error) {
	return m.send(event.TypeCPGained, ts, CommandPointsPayload{
		Amount:      amount,
		Reason:      reason,
		PlayerIndex: &playerIndex,
	})
}

// UseStratagem records a stratagem use and deducts its cost.
func (m *Machine) UseStratagem(ts float64, playerIndex int, name string, cpCost int) (Decision, error) {
	return m.send(event.TypeStratagemUsed, ts, StratagemUsedPayload{
		Name:        name,
		CPCost:      cpCost,
		PlayerIndex: &playerIndex,
	})
}

// ScorePoints awards base-rules victory points during a scoring phase.
func (m *Machine) ScorePoints(ts float64, playerIndex, amount int, reason string) (Decision, error) {
	return m.send(event.TypePointsScored, ts, PointsScoredPayload{
		Amount:      amount,
		Reason:      reason,
		PlayerIndex: &playerIndex,
	})
}

// AddUnit introduces a tracked unit mid-game, returning its assigned id in
// the appended event's payload.
func (m *Machine) AddUnit(ts float64, playerIndex int, setup UnitSetup) (Decision, error) {
	return m.send(event.TypeUnitAdded, ts, UnitAddedPayload{
		Name:        setup.Name,
		PlayerIndex: playerIndex,
		Points:      setup.Points,
		Wounds:      setup.Wounds,
		MaxWounds:   setup.MaxWounds,
		Models:      setup.Models,
		MaxModels:   setup.MaxModels,
	})
}

// UpdateUnit patches a unit's tracked wounds, models or engagement.
func (m *Machine) UpdateUnit(ts float64, unitID string, wounds, models *int, engaged *bool) (Decision, error) {
	return m.send(event.TypeUnitUpdated, ts, UnitUpdatedPayload{
		UnitID:  unitID,
		Wounds:  wounds,
		Models:  models,
		Engaged: engaged,
	})
}

// MoveUnit records a movement-phase action for a unit.
func (m *Machine) MoveUnit(ts float64, unitID string, advanced, fellBack bool) (Decision, error) {
	return m.send(event.TypeUnitMoved, ts, UnitActionPayload{
		UnitID:   unitID,
		Advanced: advanced,
		FellBack: fellBack,
	})
}

// ShootUnit records a shooting-phase action, optionally naming the target.
func (m *Machine) ShootUnit(ts float64, unitID, target string) (Decision, error) {
	return m.send(event.TypeUnitShot, ts, UnitActionPayload{UnitID: unitID, Target: target})
}

// ChargeUnit records a successful charge, engaging both units.
func (m *Machine) ChargeUnit(ts float64, unitID, target string) (Decision, error) {
	return m.send(event.TypeUnitCharged, ts, UnitActionPayload{UnitID: unitID, Target: target})
}

// FightUnit records a fight-phase action.
func (m *Machine) FightUnit(ts float64, unitID, target string) (Decision, error) {
	return m.send(event.TypeUnitFought, ts, UnitActionPayload{UnitID: unitID, Target: target})
}

// RecordBattleShock records a command-phase battle-shock test result.
func (m *Machine) RecordBattleShock(ts float64, unitID string, passed bool) (Decision, error) {
	return m.send(event.TypeUnitBattleShocked, ts, UnitBattleshockPayload{UnitID: unitID, Passed: passed})
}

// DestroyUnit removes a unit from play for the rest of the game.
func (m *Machine) DestroyUnit(ts float64, unitID, destroyedBy string) (Decision, error) {
	return m.send(event.TypeUnitDestroyed, ts, UnitDestroyedPayload{UnitID: unitID, DestroyedBy: destroyedBy})
}
