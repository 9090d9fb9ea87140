// Package ca2025 layers the Chapter Approved 2025 matched-play rules over the
// core machine: primary and secondary scoring, tactical and fixed secondary
// missions, objective terraforming and the challenger deck. It plugs in as a
// ruleset module; the phase graph and core events are reused, not duplicated.
package ca2025

import (
	"github.com/tabletopvod/battletrace/internal/battle/machine"
)

// Mode selects how a player scores secondary objectives.
type Mode string

const (
	// ModeTactical draws secondary missions from a shuffled deck into a
	// two-card hand.
	ModeTactical Mode = "tactical"
	// ModeFixed locks two selected secondary missions for the whole game.
	ModeFixed Mode = "fixed"
)

// AchievedCard records one completed tactical secondary mission.
type AchievedCard struct {
	CardID string  `json:"card_id"`
	Round  int     `json:"round"`
	Points int     `json:"points"`
	At     float64 `json:"at"`
}

// ChallengerRecord captures a player's single challenger card use.
type ChallengerRecord struct {
	CardID string  `json:"card_id"`
	Option string  `json:"option"`
	Points int     `json:"points"`
	At     float64 `json:"at"`
}

// PlayerScoring tracks one player's matched-play bookkeeping. Total always
// equals Primary plus Secondary and mirrors the player's victory points.
type PlayerScoring struct {
	Primary   int `json:"primary"`
	Secondary int `json:"secondary"`
	Total     int `json:"total"`

	Mode Mode `json:"mode"`

	// Tactical-mode fields.
	DeckSize  int            `json:"deck_size,omitempty"`
	Hand      []string       `json:"hand,omitempty"`
	Achieved  []AchievedCard `json:"achieved,omitempty"`
	Discarded []string       `json:"discarded,omitempty"`

	// Fixed-mode fields.
	FixedSecondaries [2]string `json:"fixed_secondaries,omitempty"`
	FixedProgress    [2]int    `json:"fixed_progress,omitempty"`

	Challenger *ChallengerRecord `json:"challenger,omitempty"`
}

// ChallengerUsed reports whether the player already played a challenger card.
func (p *PlayerScoring) ChallengerUsed() bool {
	return p.Challenger != nil
}

// TerraformClaim is the latest terraform action on one objective marker.
// Re-terraforming overwrites the claim; the last writer wins.
type TerraformClaim struct {
	PlayerIndex     int     `json:"player_index"`
	FlippedOpponent bool    `json:"flipped_opponent"`
	At              float64 `json:"at"`
}

// State is the module aggregate stored on the machine context.
type State struct {
	Players            [2]PlayerScoring          `json:"players"`
	Terraform          map[string]TerraformClaim `json:"terraform"`
	ChallengerDeckSize int                       `json:"challenger_deck_size"`
}

// StateFrom extracts the module aggregate from a machine context. The boolean
// is false when the context was not built with this ruleset.
func StateFrom(ctx *machine.Context) (*State, bool) {
	state, ok := ctx.RulesetState.(*State)
	return state, ok
}

func (s *State) clone() *State {
	cloned := &State{
		Players:            s.Players,
		ChallengerDeckSize: s.ChallengerDeckSize,
	}
	for i := range s.Players {
		src := &s.Players[i]
		dst := &cloned.Players[i]
		dst.Hand = append([]string(nil), src.Hand...)
		dst.Achieved = append([]AchievedCard(nil), src.Achieved...)
		dst.Discarded = append([]string(nil), src.Discarded...)
		if src.Challenger != nil {
			record := *src.Challenger
			dst.Challenger = &record
		}
	}
	if s.Terraform != nil {
		cloned.Terraform = make(map[string]TerraformClaim, len(s.Terraform))
		for key, claim := range s.Terraform {
			cloned.Terraform[key] = claim
		}
	}
	return cloned
}

func inHand(hand []string, cardID string) bool {
	for _, id := range hand {
		if id == cardID {
			return true
		}
	}
	return false
}

func removeFromHand(hand []string, cardID string) []string {
	for i, id := range hand {
		if id == cardID {
			return append(hand[:i], hand[i+1:]...)
		}
	}
	return hand
}

// EligibleForChallenger reports whether a player may play a challenger card:
// trailing by at least the deficit threshold, not already used, deck not
// exhausted.
func EligibleForChallenger(ctx *machine.Context, playerIndex int) bool {
	state, ok := StateFrom(ctx)
	if !ok {
		return false
	}
	if state.Players[playerIndex].ChallengerUsed() || state.ChallengerDeckSize <= 0 {
		return false
	}
	deficit := ctx.Players[1-playerIndex].VictoryPoints - ctx.Players[playerIndex].VictoryPoints
	return deficit >= ChallengerDeficit
}
