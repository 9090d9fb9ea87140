package ca2025_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/tabletopvod/battletrace/internal/battle/ca2025"
	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/machine"
	"github.com/tabletopvod/battletrace/internal/battle/phase"
)

func testInput() machine.InitInput {
	return machine.InitInput{
		Players: [2]machine.PlayerSetup{
			{Name: "Marcus", Faction: "Space Marines", Detachment: "Gladius Task Force", WentFirst: true},
			{Name: "Elena", Faction: "Necrons", Detachment: "Awakened Dynasty"},
		},
		Mission: machine.MissionConfig{Name: "Purge the Foe", PointsLimit: 2000},
	}
}

func newGame(t *testing.T, cfg ca2025.Config) *machine.Machine {
	t.Helper()
	m, err := machine.New(testInput(), machine.WithRuleset(ca2025.New(cfg)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func send(t *testing.T, m *machine.Machine, eventType event.Type, ts float64, payload any) machine.Decision {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	d, err := m.Send(machine.Input{Type: eventType, VideoTimestamp: ts, PayloadJSON: raw})
	if err != nil {
		t.Fatalf("send %s: %v", eventType, err)
	}
	return d
}

func mustAccept(t *testing.T, d machine.Decision) event.Event {
	t.Helper()
	if !d.Accepted {
		t.Fatalf("expected acceptance, got rejection %+v", d.Rejection)
	}
	return d.Event
}

// mustAcceptCall returns an assertion that takes a facade call's results as
// its sole argument, failing the test unless the event was accepted.
func mustAcceptCall(t *testing.T) func(machine.Decision, error) event.Event {
	return func(d machine.Decision, err error) event.Event {
		t.Helper()
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		return mustAccept(t, d)
	}
}

func mustReject(t *testing.T, d machine.Decision, code string) {
	t.Helper()
	if d.Accepted {
		t.Fatalf("expected rejection %s, event was accepted: %+v", code, d.Event)
	}
	if d.Rejection.Code != code {
		t.Fatalf("expected rejection code %s, got %s (%s)", code, d.Rejection.Code, d.Rejection.Message)
	}
}

func advanceTo(t *testing.T, m *machine.Machine, target phase.Phase) {
	t.Helper()
	for m.Snapshot().CurrentPhase != target {
		mustAcceptCall(t)(m.NextPhase(0))
	}
}

// playToRound2Scoring finishes round 1 and walks round 2's first turn to the
// scoring phase.
func playToRound2Scoring(t *testing.T, m *machine.Machine) {
	t.Helper()
	advanceTo(t, m, phase.Scoring)
	mustAcceptCall(t)(m.EndTurn(0))
	advanceTo(t, m, phase.Scoring)
	mustAcceptCall(t)(m.EndRound(0))
	advanceTo(t, m, phase.Scoring)
}

func caState(t *testing.T, m *machine.Machine) *ca2025.State {
	t.Helper()
	ctx := m.Snapshot()
	state, ok := ca2025.StateFrom(&ctx)
	if !ok {
		t.Fatal("ca2025 state missing from context")
	}
	return state
}

func playerIndex(i int) *int { return &i }

func TestStartingAndCappedCommandPoints(t *testing.T) {
	m := newGame(t, ca2025.Config{})

	ctx := m.Snapshot()
	if ctx.Players[0].CommandPoints != ca2025.StartingCP || ctx.Players[1].CommandPoints != ca2025.StartingCP {
		t.Fatalf("starting command points = %d/%d, want %d each",
			ctx.Players[0].CommandPoints, ctx.Players[1].CommandPoints, ca2025.StartingCP)
	}

	mustAcceptCall(t)(m.StartGame(0))
	mustAcceptCall(t)(m.GainCommandPoints(1, 0, 20, "test"))
	if got := m.Snapshot().Players[0].CommandPoints; got != ca2025.CPCap {
		t.Fatalf("command points = %d, want capped at %d", got, ca2025.CPCap)
	}
}

func TestPrimaryScoresFromRoundTwo(t *testing.T) {
	m := newGame(t, ca2025.Config{})
	mustAcceptCall(t)(m.StartGame(0))

	d := send(t, m, ca2025.TypePrimaryScored, 1, ca2025.PrimaryScoredPayload{Amount: 5})
	mustReject(t, d, machine.RejectPhaseMismatch)

	advanceTo(t, m, phase.Scoring)
	d = send(t, m, ca2025.TypePrimaryScored, 2, ca2025.PrimaryScoredPayload{Amount: 5})
	mustReject(t, d, ca2025.RejectPrimaryTooEarly)

	playToRound2Scoring(t, m)
	mustAccept(t, send(t, m, ca2025.TypePrimaryScored, 3, ca2025.PrimaryScoredPayload{Amount: 5}))

	state := caState(t, m)
	ctx := m.Snapshot()
	if state.Players[0].Primary != 5 || state.Players[0].Total != 5 {
		t.Fatalf("scoring = %+v", state.Players[0])
	}
	if ctx.Players[0].VictoryPoints != 5 {
		t.Fatalf("victory points = %d, want lockstep 5", ctx.Players[0].VictoryPoints)
	}
}

func TestBasePointsScoredRejectedUnderRuleset(t *testing.T) {
	m := newGame(t, ca2025.Config{})
	mustAcceptCall(t)(m.StartGame(0))
	advanceTo(t, m, phase.Scoring)

	// points.scored bypasses the module's scoring aggregate and would let
	// victory points drift away from primary plus secondary.
	d, err := m.ScorePoints(1, 0, 5, "primary")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	mustReject(t, d, machine.RejectScoringRulesetOwned)

	ctx := m.Snapshot()
	state := caState(t, m)
	if ctx.Players[0].VictoryPoints != 0 {
		t.Fatalf("victory points = %d, want 0", ctx.Players[0].VictoryPoints)
	}
	if state.Players[0].Total != 0 {
		t.Fatalf("scoring total = %d, want 0", state.Players[0].Total)
	}
}

func TestTacticalDeckFlow(t *testing.T) {
	m := newGame(t, ca2025.Config{})
	mustAcceptCall(t)(m.StartGame(0))

	mustAccept(t, send(t, m, ca2025.TypeCardDrawn, 1, ca2025.CardDrawnPayload{CardID: "assassination"}))
	mustAccept(t, send(t, m, ca2025.TypeCardDrawn, 2, ca2025.CardDrawnPayload{CardID: "behind-enemy-lines"}))

	d := send(t, m, ca2025.TypeCardDrawn, 3, ca2025.CardDrawnPayload{CardID: "cleanse"})
	mustReject(t, d, ca2025.RejectHandFull)

	state := caState(t, m)
	if len(state.Players[0].Hand) != 2 {
		t.Fatalf("hand = %v", state.Players[0].Hand)
	}
	if state.Players[0].DeckSize != ca2025.DefaultTacticalDeckSize-2 {
		t.Fatalf("deck size = %d", state.Players[0].DeckSize)
	}

	// Achieve one card in scoring, discard the other for a command point.
	advanceTo(t, m, phase.Scoring)
	evt := mustAccept(t, send(t, m, ca2025.TypeSecondaryAchieved, 4, ca2025.SecondaryAchievedPayload{
		CardID: "assassination",
		Points: 4,
	}))
	if evt.PlayerIndex != 0 {
		t.Fatalf("secondary stamped player %d", evt.PlayerIndex)
	}

	cpBefore := m.Snapshot().Players[0].CommandPoints
	mustAccept(t, send(t, m, ca2025.TypeCardDiscarded, 5, ca2025.CardDiscardedPayload{
		CardID:   "behind-enemy-lines",
		GainedCP: true,
	}))

	state = caState(t, m)
	ctx := m.Snapshot()
	scoring := state.Players[0]
	if len(scoring.Hand) != 0 {
		t.Fatalf("hand after achieve+discard = %v", scoring.Hand)
	}
	if len(scoring.Achieved) != 1 || scoring.Achieved[0].CardID != "assassination" || scoring.Achieved[0].Points != 4 {
		t.Fatalf("achieved = %+v", scoring.Achieved)
	}
	if len(scoring.Discarded) != 1 || scoring.Discarded[0] != "behind-enemy-lines" {
		t.Fatalf("discarded = %v", scoring.Discarded)
	}
	if scoring.Secondary != 4 || scoring.Total != 4 || ctx.Players[0].VictoryPoints != 4 {
		t.Fatalf("secondary/total/vp = %d/%d/%d", scoring.Secondary, scoring.Total, ctx.Players[0].VictoryPoints)
	}
	if ctx.Players[0].CommandPoints != cpBefore+1 {
		t.Fatalf("discard cp grant: %d -> %d", cpBefore, ctx.Players[0].CommandPoints)
	}
}

func TestDiscardWithoutGrantLeavesCommandPoints(t *testing.T) {
	m := newGame(t, ca2025.Config{})
	mustAcceptCall(t)(m.StartGame(0))
	mustAccept(t, send(t, m, ca2025.TypeCardDrawn, 1, ca2025.CardDrawnPayload{CardID: "cleanse"}))
	advanceTo(t, m, phase.Scoring)

	cpBefore := m.Snapshot().Players[0].CommandPoints
	mustAccept(t, send(t, m, ca2025.TypeCardDiscarded, 2, ca2025.CardDiscardedPayload{CardID: "cleanse"}))
	if got := m.Snapshot().Players[0].CommandPoints; got != cpBefore {
		t.Fatalf("command points changed without grant: %d -> %d", cpBefore, got)
	}
}

func TestCardGuards(t *testing.T) {
	m := newGame(t, ca2025.Config{})
	mustAcceptCall(t)(m.StartGame(0))
	mustAccept(t, send(t, m, ca2025.TypeCardDrawn, 1, ca2025.CardDrawnPayload{CardID: "cleanse"}))

	d := send(t, m, ca2025.TypeCardDrawn, 2, ca2025.CardDrawnPayload{CardID: "cleanse"})
	mustReject(t, d, ca2025.RejectCardAlreadyInHand)

	advanceTo(t, m, phase.Scoring)
	d = send(t, m, ca2025.TypeCardDiscarded, 3, ca2025.CardDiscardedPayload{CardID: "no-such-card"})
	mustReject(t, d, ca2025.RejectCardNotInHand)
	d = send(t, m, ca2025.TypeSecondaryAchieved, 4, ca2025.SecondaryAchievedPayload{CardID: "no-such-card", Points: 3})
	mustReject(t, d, ca2025.RejectCardNotInHand)
}

func TestFixedSecondaries(t *testing.T) {
	cfg := ca2025.Config{
		Modes:            [2]ca2025.Mode{ca2025.ModeFixed, ca2025.ModeTactical},
		FixedSecondaries: [2][2]string{{"engage-on-all-fronts", "storm-hostile-objective"}, {}},
	}
	m := newGame(t, cfg)
	mustAcceptCall(t)(m.StartGame(0))

	d := send(t, m, ca2025.TypeCardDrawn, 1, ca2025.CardDrawnPayload{CardID: "cleanse"})
	mustReject(t, d, ca2025.RejectModeMismatch)

	advanceTo(t, m, phase.Scoring)
	d = send(t, m, ca2025.TypeSecondaryAchieved, 2, ca2025.SecondaryAchievedPayload{Points: 3})
	mustReject(t, d, ca2025.RejectSlotInvalid)

	mustAccept(t, send(t, m, ca2025.TypeSecondaryAchieved, 3, ca2025.SecondaryAchievedPayload{
		Slot:   playerIndex(1),
		Points: 3,
	}))
	state := caState(t, m)
	if state.Players[0].FixedProgress != [2]int{0, 3} {
		t.Fatalf("fixed progress = %v", state.Players[0].FixedProgress)
	}
	if state.Players[0].Secondary != 3 {
		t.Fatalf("secondary = %d", state.Players[0].Secondary)
	}
}

func TestTerraformLastWriterWins(t *testing.T) {
	m := newGame(t, ca2025.Config{})
	mustAcceptCall(t)(m.StartGame(0))

	d := send(t, m, ca2025.TypeObjectiveTerraformed, 1, ca2025.ObjectiveTerraformedPayload{ObjectiveID: "obj-2"})
	mustReject(t, d, machine.RejectPhaseMismatch)

	advanceTo(t, m, phase.Movement)
	mustAccept(t, send(t, m, ca2025.TypeObjectiveTerraformed, 2, ca2025.ObjectiveTerraformedPayload{
		ObjectiveID: "obj-2",
	}))

	// Second player re-terraforms on their own movement phase.
	advanceTo(t, m, phase.Scoring)
	mustAcceptCall(t)(m.EndTurn(3))
	mustAcceptCall(t)(m.NextPhase(4))
	mustAccept(t, send(t, m, ca2025.TypeObjectiveTerraformed, 5, ca2025.ObjectiveTerraformedPayload{
		ObjectiveID:     "obj-2",
		FlippedOpponent: true,
	}))

	state := caState(t, m)
	claim := state.Terraform["obj-2"]
	if claim.PlayerIndex != 1 || !claim.FlippedOpponent || claim.At != 5 {
		t.Fatalf("claim = %+v, want player 1's overwrite", claim)
	}
}

func TestChallengerEligibility(t *testing.T) {
	m := newGame(t, ca2025.Config{})
	mustAcceptCall(t)(m.StartGame(0))
	playToRound2Scoring(t, m)

	// Marcus at 10, Elena at 3: deficit 7 unlocks Elena's challenger deck.
	mustAccept(t, send(t, m, ca2025.TypePrimaryScored, 1, ca2025.PrimaryScoredPayload{Amount: 10}))
	mustAccept(t, send(t, m, ca2025.TypePrimaryScored, 2, ca2025.PrimaryScoredPayload{
		Amount:      3,
		PlayerIndex: playerIndex(1),
	}))

	// The leader is not eligible.
	d := send(t, m, ca2025.TypeChallengerUsed, 3, ca2025.ChallengerUsedPayload{
		CardID:       "vengeance",
		ChosenOption: ca2025.ChallengerOptionMission,
	})
	mustReject(t, d, ca2025.RejectChallengerIneligible)

	evt := mustAccept(t, send(t, m, ca2025.TypeChallengerUsed, 4, ca2025.ChallengerUsedPayload{
		CardID:         "desperate-breakout",
		ChosenOption:   ca2025.ChallengerOptionMission,
		AchievedPoints: 3,
		PlayerIndex:    playerIndex(1),
	}))
	if evt.PlayerIndex != 1 {
		t.Fatalf("challenger stamped player %d", evt.PlayerIndex)
	}

	state := caState(t, m)
	ctx := m.Snapshot()
	record := state.Players[1].Challenger
	if record == nil || record.CardID != "desperate-breakout" || record.Points != 3 {
		t.Fatalf("challenger record = %+v", record)
	}
	if state.Players[1].Secondary != 3 || ctx.Players[1].VictoryPoints != 6 {
		t.Fatalf("secondary/vp = %d/%d", state.Players[1].Secondary, ctx.Players[1].VictoryPoints)
	}
	if state.ChallengerDeckSize != ca2025.DefaultChallengerDeckSize-1 {
		t.Fatalf("challenger deck size = %d", state.ChallengerDeckSize)
	}

	// One challenger card per player per game.
	d = send(t, m, ca2025.TypeChallengerUsed, 5, ca2025.ChallengerUsedPayload{
		CardID:       "last-stand",
		ChosenOption: ca2025.ChallengerOptionStratagem,
		PlayerIndex:  playerIndex(1),
	})
	mustReject(t, d, ca2025.RejectChallengerIneligible)
}

func TestChallengerStratagemOptionDoesNotScore(t *testing.T) {
	m := newGame(t, ca2025.Config{})
	mustAcceptCall(t)(m.StartGame(0))
	playToRound2Scoring(t, m)
	mustAccept(t, send(t, m, ca2025.TypePrimaryScored, 1, ca2025.PrimaryScoredPayload{Amount: 10}))

	mustAccept(t, send(t, m, ca2025.TypeChallengerUsed, 2, ca2025.ChallengerUsedPayload{
		CardID:       "last-stand",
		ChosenOption: ca2025.ChallengerOptionStratagem,
		PlayerIndex:  playerIndex(1),
	}))
	ctx := m.Snapshot()
	if ctx.Players[1].VictoryPoints != 0 {
		t.Fatalf("stratagem option scored %d victory points", ctx.Players[1].VictoryPoints)
	}
}

func TestReplayReproducesRulesetState(t *testing.T) {
	cfg := ca2025.Config{}
	m := newGame(t, cfg)
	mustAcceptCall(t)(m.StartGame(0))
	mustAccept(t, send(t, m, ca2025.TypeCardDrawn, 1, ca2025.CardDrawnPayload{CardID: "assassination"}))
	advanceTo(t, m, phase.Movement)
	mustAccept(t, send(t, m, ca2025.TypeObjectiveTerraformed, 2, ca2025.ObjectiveTerraformedPayload{ObjectiveID: "obj-1"}))
	advanceTo(t, m, phase.Scoring)
	mustAccept(t, send(t, m, ca2025.TypeSecondaryAchieved, 3, ca2025.SecondaryAchievedPayload{
		CardID: "assassination",
		Points: 5,
	}))
	mustAcceptCall(t)(m.EndTurn(4))

	replayed, err := machine.New(testInput(), machine.WithRuleset(ca2025.New(cfg)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, evt := range m.EventLog() {
		if err := replayed.Restore(evt); err != nil {
			t.Fatalf("restore seq %d (%s): %v", evt.Seq, evt.Type, err)
		}
	}

	wantCtx, gotCtx := m.Snapshot(), replayed.Snapshot()
	want, _ := ca2025.StateFrom(&wantCtx)
	got, _ := ca2025.StateFrom(&gotCtx)
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("ruleset state diverged:\n got %+v\nwant %+v", got, want)
	}
	if !reflect.DeepEqual(wantCtx.Players, gotCtx.Players) {
		t.Fatalf("players diverged:\n got %+v\nwant %+v", gotCtx.Players, wantCtx.Players)
	}
}
