// Package report seeds games from extracted battle reports. A battle report
// is the JSON document produced upstream from a battle-report video: players,
// army lists with optional wound and model counts, and mission configuration.
// This is the only coupling between the machine and the extraction pipeline.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tabletopvod/battletrace/internal/battle/ca2025"
	"github.com/tabletopvod/battletrace/internal/battle/machine"
)

// Ruleset names accepted by a battle report.
const (
	RulesetBase   = "base"
	RulesetCA2025 = "ca2025"
)

var (
	// ErrPlayerNameRequired indicates a report with an unnamed player.
	ErrPlayerNameRequired = errors.New("report: player name is required")
	// ErrRulesetUnknown indicates an unrecognized ruleset name.
	ErrRulesetUnknown = errors.New("report: unknown ruleset")
	// ErrSecondaryModeUnknown indicates an unrecognized secondary mode.
	ErrSecondaryModeUnknown = errors.New("report: unknown secondary mode")
)

// Unit is one army-list entry.
type Unit struct {
	Name      string `json:"name"`
	Points    int    `json:"points,omitempty"`
	Wounds    int    `json:"wounds,omitempty"`
	MaxWounds int    `json:"max_wounds,omitempty"`
	Models    int    `json:"models,omitempty"`
	MaxModels int    `json:"max_models,omitempty"`
}

// Player is one side of the report.
type Player struct {
	Name       string `json:"name"`
	Faction    string `json:"faction"`
	Subfaction string `json:"subfaction,omitempty"`
	Detachment string `json:"detachment,omitempty"`
	WentFirst  bool   `json:"went_first,omitempty"`
	Units      []Unit `json:"units,omitempty"`

	// SecondaryMode and FixedSecondaries apply under the ca2025 ruleset
	// only. An empty mode defaults to tactical.
	SecondaryMode    string    `json:"secondary_mode,omitempty"`
	FixedSecondaries [2]string `json:"fixed_secondaries,omitempty"`
}

// Mission is the mission block of the report.
type Mission struct {
	Name        string `json:"name"`
	Deployment  string `json:"deployment,omitempty"`
	PointsLimit int    `json:"points_limit,omitempty"`
	// Ruleset selects base rules or the ca2025 matched-play layer.
	// Empty defaults to ca2025, the common case for recorded games.
	Ruleset string `json:"ruleset,omitempty"`
}

// BattleReport is the seed document for one recorded game.
type BattleReport struct {
	Mission Mission   `json:"mission"`
	Players [2]Player `json:"players"`
}

// Parse decodes and validates a battle report.
func Parse(r io.Reader) (*BattleReport, error) {
	var report BattleReport
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&report); err != nil {
		return nil, fmt.Errorf("report: decode: %w", err)
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}
	return &report, nil
}

// Validate checks the report for seedable content.
func (r *BattleReport) Validate() error {
	for i := range r.Players {
		if strings.TrimSpace(r.Players[i].Name) == "" {
			return fmt.Errorf("%w: player %d", ErrPlayerNameRequired, i)
		}
		switch r.Players[i].SecondaryMode {
		case "", string(ca2025.ModeTactical), string(ca2025.ModeFixed):
		default:
			return fmt.Errorf("%w: %q", ErrSecondaryModeUnknown, r.Players[i].SecondaryMode)
		}
	}
	switch r.Mission.Ruleset {
	case "", RulesetBase, RulesetCA2025:
	default:
		return fmt.Errorf("%w: %q", ErrRulesetUnknown, r.Mission.Ruleset)
	}
	return nil
}

// InitInput converts the report into machine init input.
func (r *BattleReport) InitInput() machine.InitInput {
	input := machine.InitInput{
		Mission: machine.MissionConfig{
			Name:        r.Mission.Name,
			Deployment:  r.Mission.Deployment,
			PointsLimit: r.Mission.PointsLimit,
		},
	}
	for i := range r.Players {
		p := r.Players[i]
		input.Players[i] = machine.PlayerSetup{
			Name:       p.Name,
			Faction:    p.Faction,
			Subfaction: p.Subfaction,
			Detachment: p.Detachment,
			WentFirst:  p.WentFirst,
		}
		for _, u := range p.Units {
			input.Units[i] = append(input.Units[i], machine.UnitSetup{
				Name:      u.Name,
				Points:    u.Points,
				Wounds:    u.Wounds,
				MaxWounds: u.MaxWounds,
				Models:    u.Models,
				MaxModels: u.MaxModels,
			})
		}
	}
	return input
}

// RulesetConfig builds the ca2025 module config from the report, or reports
// false when the mission plays base rules.
func (r *BattleReport) RulesetConfig() (ca2025.Config, bool) {
	if r.Mission.Ruleset == RulesetBase {
		return ca2025.Config{}, false
	}
	var cfg ca2025.Config
	for i := range r.Players {
		cfg.Modes[i] = ca2025.Mode(r.Players[i].SecondaryMode)
		cfg.FixedSecondaries[i] = r.Players[i].FixedSecondaries
	}
	return cfg, true
}

// InitializeGame validates the report and builds a seeded machine, layering
// the ca2025 module unless the mission names base rules.
func InitializeGame(r *BattleReport, opts ...machine.Option) (*machine.Machine, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if cfg, layered := r.RulesetConfig(); layered {
		opts = append(opts, machine.WithRuleset(ca2025.New(cfg)))
	}
	return machine.New(r.InitInput(), opts...)
}
