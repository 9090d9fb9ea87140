// Package query provides pure, read-only lookups over a context snapshot:
// position by video timestamp, event slices by time window, round or phase,
// and unit derivations. Nothing here mutates the snapshot or consults the
// machine.
package query

import (
	"sort"
	"strings"

	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/machine"
	"github.com/tabletopvod/battletrace/internal/battle/phase"
	"github.com/tabletopvod/battletrace/internal/battle/unit"
)

// Position is a point in the game indexed by the event that established it.
type Position struct {
	Round       int         `json:"round"`
	Phase       phase.Phase `json:"phase"`
	PlayerIndex int         `json:"player_index"`
	// Event is the latest event at or before the queried timestamp, nil
	// when the query lands before the first event.
	Event *event.Event `json:"event,omitempty"`
}

// StateAtTimestamp resolves where the game was at a video timestamp: the
// stamped position of the latest event with VideoTimestamp at or before t.
// Before any event it reports the nominal start, round 1 command phase of
// the first player.
func StateAtTimestamp(ctx *machine.Context, t float64) Position {
	var latest *event.Event
	for i := range ctx.EventLog {
		evt := &ctx.EventLog[i]
		if evt.VideoTimestamp > t {
			continue
		}
		if latest == nil || evt.VideoTimestamp > latest.VideoTimestamp ||
			(evt.VideoTimestamp == latest.VideoTimestamp && evt.Seq > latest.Seq) {
			latest = evt
		}
	}
	if latest == nil {
		return Position{Round: 1, Phase: phase.Command, PlayerIndex: ctx.FirstPlayer()}
	}
	found := *latest
	return Position{
		Round:       found.Round,
		Phase:       found.Phase,
		PlayerIndex: found.PlayerIndex,
		Event:       &found,
	}
}

// EventsNearTimestamp returns events within the inclusive window
// [t-window, t+window], ordered by timestamp then sequence.
func EventsNearTimestamp(ctx *machine.Context, t, window float64) []event.Event {
	var events []event.Event
	for _, evt := range ctx.EventLog {
		if evt.VideoTimestamp >= t-window && evt.VideoTimestamp <= t+window {
			events = append(events, evt)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].VideoTimestamp != events[j].VideoTimestamp {
			return events[i].VideoTimestamp < events[j].VideoTimestamp
		}
		return events[i].Seq < events[j].Seq
	})
	return events
}

// EventsForPhase returns the events stamped with a round and phase, in
// sequence order. A non-nil playerIndex narrows to one player's turn.
func EventsForPhase(ctx *machine.Context, round int, p phase.Phase, playerIndex *int) []event.Event {
	var events []event.Event
	for _, evt := range ctx.EventLog {
		if evt.Round != round || evt.Phase != p {
			continue
		}
		if playerIndex != nil && evt.PlayerIndex != *playerIndex {
			continue
		}
		events = append(events, evt)
	}
	return events
}

// EventsByRound returns the events stamped with a round, in sequence order.
func EventsByRound(ctx *machine.Context, round int) []event.Event {
	var events []event.Event
	for _, evt := range ctx.EventLog {
		if evt.Round == round {
			events = append(events, evt)
		}
	}
	return events
}

// EventCounts tallies logged events by type.
func EventCounts(ctx *machine.Context) map[event.Type]int {
	counts := make(map[event.Type]int, len(ctx.EventLog))
	for _, evt := range ctx.EventLog {
		counts[evt.Type]++
	}
	return counts
}

// DestroyedUnits returns all destroyed units, sorted by destruction time.
func DestroyedUnits(ctx *machine.Context) []unit.Unit {
	units := filterUnits(ctx, func(u unit.Unit) bool { return u.Status.Destroyed })
	sort.Slice(units, func(i, j int) bool {
		if units[i].DestroyedAt != units[j].DestroyedAt {
			return units[i].DestroyedAt < units[j].DestroyedAt
		}
		return units[i].ID < units[j].ID
	})
	return units
}

// BattleShockedUnits returns the units currently battle-shocked.
func BattleShockedUnits(ctx *machine.Context) []unit.Unit {
	return sortByID(filterUnits(ctx, func(u unit.Unit) bool {
		return u.Status.BattleShocked && !u.Status.Destroyed
	}))
}

// EngagedUnits returns the units currently locked in engagement range.
func EngagedUnits(ctx *machine.Context) []unit.Unit {
	return sortByID(filterUnits(ctx, func(u unit.Unit) bool {
		return u.Status.Engaged && !u.Status.Destroyed
	}))
}

// SurvivingUnitsForPlayer returns a player's units still in play.
func SurvivingUnitsForPlayer(ctx *machine.Context, playerIndex int) []unit.Unit {
	return sortByID(filterUnits(ctx, func(u unit.Unit) bool {
		return u.PlayerIndex == playerIndex && !u.Status.Destroyed
	}))
}

// PointsLost sums the list cost of a player's destroyed units.
func PointsLost(ctx *machine.Context, playerIndex int) int {
	total := 0
	for _, u := range ctx.Units {
		if u.PlayerIndex == playerIndex && u.Status.Destroyed {
			total += u.Points
		}
	}
	return total
}

// FindUnitByName resolves a unit by case-insensitive substring match on its
// name. On multiple matches the first by name order wins; absent matches
// return ok=false.
func FindUnitByName(ctx *machine.Context, name string) (unit.Unit, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return unit.Unit{}, false
	}
	matches := filterUnits(ctx, func(u unit.Unit) bool {
		return strings.Contains(strings.ToLower(u.Name), needle)
	})
	if len(matches) == 0 {
		return unit.Unit{}, false
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].ID < matches[j].ID
	})
	return matches[0], true
}

func filterUnits(ctx *machine.Context, keep func(unit.Unit) bool) []unit.Unit {
	var units []unit.Unit
	for _, u := range ctx.Units {
		if keep(u) {
			units = append(units, u)
		}
	}
	return units
}

func sortByID(units []unit.Unit) []unit.Unit {
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units
}
