package machine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/phase"
	"github.com/tabletopvod/battletrace/internal/battle/player"
	"github.com/tabletopvod/battletrace/internal/battle/unit"
)

// MissionConfig captures the mission chosen at setup.
type MissionConfig struct {
	Name        string `json:"name"`
	Deployment  string `json:"deployment,omitempty"`
	PointsLimit int    `json:"points_limit,omitempty"`
}

// Result captures the terminal outcome of a game.
type Result struct {
	// Winner is the winning player index, nil for a draw.
	Winner *int `json:"winner"`
	// VictoryPoints records both players' final tallies.
	VictoryPoints [2]int `json:"victory_points"`
}

// Context is the root aggregate owned by the machine.
//
// The event log is the sole source of historical truth; unit and player
// current state is a cached projection that folding the log from the initial
// context reproduces exactly.
type Context struct {
	Segment      phase.Segment `json:"segment"`
	CurrentRound int           `json:"current_round"`
	CurrentPhase phase.Phase   `json:"current_phase"`
	ActivePlayer int           `json:"active_player"`

	Players [2]player.State      `json:"players"`
	Units   map[string]unit.Unit `json:"units"`

	EventLog []event.Event `json:"event_log"`

	Mission            MissionConfig `json:"mission"`
	GameStartTimestamp *float64      `json:"game_start_timestamp,omitempty"`
	GameEnded          bool          `json:"game_ended"`
	Result             *Result       `json:"result,omitempty"`

	// RulesetState holds the layered ruleset's aggregate (nil under base
	// rules). The machine routes it through the Ruleset interface and never
	// inspects it.
	RulesetState any `json:"-"`
}

// PlayerSetup seeds one player's identity at setup.
type PlayerSetup struct {
	Name       string `json:"name"`
	Faction    string `json:"faction"`
	Subfaction string `json:"subfaction,omitempty"`
	Detachment string `json:"detachment"`
	// WentFirst marks the player who takes the first turn of each round.
	// Exactly one player should carry it; when neither does, player 0 goes
	// first.
	WentFirst bool `json:"went_first"`
}

// UnitSetup seeds one tracked unit at setup or on reinforcement.
type UnitSetup struct {
	Name      string `json:"name"`
	Points    int    `json:"points,omitempty"`
	Wounds    int    `json:"wounds,omitempty"`
	MaxWounds int    `json:"max_wounds,omitempty"`
	Models    int    `json:"models,omitempty"`
	MaxModels int    `json:"max_models,omitempty"`
}

// InitInput seeds a game at setup. The core assumes well-formed input;
// validation belongs to the caller.
type InitInput struct {
	Players [2]PlayerSetup
	// Units holds optional starting units, keyed by owning player index.
	Units   [2][]UnitSetup
	Mission MissionConfig
}

// NewContext constructs the initial setup-segment context from init input.
//
// Seeded units get deterministic ids derived from their seat and position so
// replaying the same init input yields the same initial context. Units added
// mid-game carry generated ids inside their events instead.
func NewContext(input InitInput, startingCP int) Context {
	ctx := Context{
		Segment: phase.SegmentSetup,
		Units:   make(map[string]unit.Unit),
		Mission: input.Mission,
	}
	for i := range ctx.Players {
		setup := input.Players[i]
		ctx.Players[i] = player.State{
			Index:         i,
			Name:          strings.TrimSpace(setup.Name),
			Faction:       strings.TrimSpace(setup.Faction),
			Subfaction:    strings.TrimSpace(setup.Subfaction),
			Detachment:    strings.TrimSpace(setup.Detachment),
			CommandPoints: startingCP,
			WentFirst:     setup.WentFirst,
		}
	}
	if !ctx.Players[0].WentFirst && !ctx.Players[1].WentFirst {
		ctx.Players[0].WentFirst = true
	}
	for playerIndex, setups := range input.Units {
		for ordinal, setup := range setups {
			unitID := seededUnitID(playerIndex, ordinal, setup.Name)
			ctx.Units[unitID] = newUnit(unitID, playerIndex, setup)
		}
	}
	return ctx
}

func seededUnitID(playerIndex, ordinal int, name string) string {
	return fmt.Sprintf("p%d-%02d-%s", playerIndex, ordinal+1, slugify(name))
}

func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func newUnit(unitID string, playerIndex int, setup UnitSetup) unit.Unit {
	u := unit.Unit{
		ID:          unitID,
		Name:        strings.TrimSpace(setup.Name),
		PlayerIndex: playerIndex,
		Points:      setup.Points,
		Wounds:      setup.Wounds,
		MaxWounds:   setup.MaxWounds,
		Models:      setup.Models,
		MaxModels:   setup.MaxModels,
	}
	if u.Wounds == 0 {
		u.Wounds = u.MaxWounds
	}
	if u.Models == 0 {
		u.Models = u.MaxModels
	}
	return u
}

// FirstPlayer returns the index of the player who takes the first turn.
func (c Context) FirstPlayer() int {
	if c.Players[1].WentFirst && !c.Players[0].WentFirst {
		return 1
	}
	return 0
}

// SecondPlayer returns the index of the player who takes the second turn.
func (c Context) SecondPlayer() int {
	return 1 - c.FirstPlayer()
}

// Unit returns a unit by id. The boolean is false when no unit matches.
func (c Context) Unit(unitID string) (unit.Unit, bool) {
	u, ok := c.Units[unitID]
	return u, ok
}

// UnitsForPlayer returns the units owned by a player, sorted by name then id
// for stable output.
func (c Context) UnitsForPlayer(playerIndex int) []unit.Unit {
	var units []unit.Unit
	for _, u := range c.Units {
		if u.PlayerIndex == playerIndex {
			units = append(units, u)
		}
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].Name != units[j].Name {
			return units[i].Name < units[j].Name
		}
		return units[i].ID < units[j].ID
	})
	return units
}

// clone returns a deep copy of the context. Ruleset state is copied by the
// provided clone function, which may be nil under base rules.
func (c *Context) clone(cloneRulesetState func(any) any) Context {
	cloned := *c
	cloned.Units = make(map[string]unit.Unit, len(c.Units))
	for key, value := range c.Units {
		cloned.Units[key] = value
	}
	cloned.EventLog = append([]event.Event(nil), c.EventLog...)
	if c.GameStartTimestamp != nil {
		ts := *c.GameStartTimestamp
		cloned.GameStartTimestamp = &ts
	}
	if c.Result != nil {
		result := *c.Result
		if c.Result.Winner != nil {
			winner := *c.Result.Winner
			result.Winner = &winner
		}
		cloned.Result = &result
	}
	if cloneRulesetState != nil {
		cloned.RulesetState = cloneRulesetState(c.RulesetState)
	}
	return cloned
}
