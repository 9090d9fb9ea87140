package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/machine"
	"github.com/tabletopvod/battletrace/internal/battle/query"
	"github.com/tabletopvod/battletrace/internal/battle/unit"
)

// EventSummary is the MCP view of one logged event.
type EventSummary struct {
	Seq            uint64         `json:"seq"`
	Type           string         `json:"type"`
	VideoTimestamp float64        `json:"video_timestamp"`
	Round          int            `json:"round"`
	Phase          string         `json:"phase"`
	PlayerIndex    int            `json:"player_index"`
	Payload        map[string]any `json:"payload,omitempty"`
}

func summarizeEvent(evt event.Event) EventSummary {
	summary := EventSummary{
		Seq:            evt.Seq,
		Type:           string(evt.Type),
		VideoTimestamp: evt.VideoTimestamp,
		Round:          evt.Round,
		Phase:          string(evt.Phase),
		PlayerIndex:    evt.PlayerIndex,
	}
	if len(evt.PayloadJSON) > 0 {
		_ = json.Unmarshal(evt.PayloadJSON, &summary.Payload)
	}
	return summary
}

// SendResult is the MCP view of a send decision.
type SendResult struct {
	Accepted         bool          `json:"accepted"`
	Event            *EventSummary `json:"event,omitempty"`
	RejectionCode    string        `json:"rejection_code,omitempty"`
	RejectionMessage string        `json:"rejection_message,omitempty"`
}

func summarizeDecision(d machine.Decision) SendResult {
	if !d.Accepted {
		return SendResult{
			RejectionCode:    d.Rejection.Code,
			RejectionMessage: d.Rejection.Message,
		}
	}
	summary := summarizeEvent(d.Event)
	return SendResult{Accepted: true, Event: &summary}
}

// UnitSummary is the MCP view of one tracked unit.
type UnitSummary struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	PlayerIndex       int     `json:"player_index"`
	Points            int     `json:"points,omitempty"`
	Wounds            int     `json:"wounds,omitempty"`
	MaxWounds         int     `json:"max_wounds,omitempty"`
	Models            int     `json:"models,omitempty"`
	MaxModels         int     `json:"max_models,omitempty"`
	Destroyed         bool    `json:"destroyed"`
	BelowHalfStrength bool    `json:"below_half_strength"`
	BattleShocked     bool    `json:"battle_shocked"`
	Engaged           bool    `json:"engaged"`
	DestroyedRound    int     `json:"destroyed_round,omitempty"`
	DestroyedAt       float64 `json:"destroyed_at,omitempty"`
}

func summarizeUnit(u unit.Unit) UnitSummary {
	return UnitSummary{
		ID:                u.ID,
		Name:              u.Name,
		PlayerIndex:       u.PlayerIndex,
		Points:            u.Points,
		Wounds:            u.Wounds,
		MaxWounds:         u.MaxWounds,
		Models:            u.Models,
		MaxModels:         u.MaxModels,
		Destroyed:         u.Status.Destroyed,
		BelowHalfStrength: u.Status.BelowHalfStrength,
		BattleShocked:     u.Status.BattleShocked,
		Engaged:           u.Status.Engaged,
		DestroyedRound:    u.DestroyedRound,
		DestroyedAt:       u.DestroyedAt,
	}
}

// PlayerSummary is the MCP view of one player's tallies.
type PlayerSummary struct {
	Index         int    `json:"index"`
	Name          string `json:"name"`
	Faction       string `json:"faction"`
	Detachment    string `json:"detachment,omitempty"`
	CommandPoints int    `json:"command_points"`
	VictoryPoints int    `json:"victory_points"`
	IsActive      bool   `json:"is_active"`
}

// EventSendInput sends one raw event through the machine.
type EventSendInput struct {
	Type           string         `json:"type" jsonschema:"event type, e.g. unit.destroyed"`
	VideoTimestamp float64        `json:"video_timestamp" jsonschema:"video timestamp in seconds"`
	Payload        map[string]any `json:"payload,omitempty" jsonschema:"event payload object"`
}

// EventSendTool defines the raw event-send tool.
func EventSendTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "battle_event_send",
		Description: "Sends one game event through the battle machine; illegal events are rejected without side effects",
	}
}

// EventSendHandler executes battle_event_send.
func EventSendHandler(service *Service) mcp.ToolHandlerFor[EventSendInput, SendResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EventSendInput) (*mcp.CallToolResult, SendResult, error) {
		var raw []byte
		if input.Payload != nil {
			encoded, err := json.Marshal(input.Payload)
			if err != nil {
				return nil, SendResult{}, fmt.Errorf("encode payload: %w", err)
			}
			raw = encoded
		}
		decision, err := service.send(ctx, "battle_event_send", machine.Input{
			Type:           event.Type(input.Type),
			VideoTimestamp: input.VideoTimestamp,
			PayloadJSON:    raw,
		})
		if err != nil {
			return nil, SendResult{}, err
		}
		return nil, summarizeDecision(decision), nil
	}
}

// TransitionInput drives the bare transition tools.
type TransitionInput struct {
	VideoTimestamp float64 `json:"video_timestamp" jsonschema:"video timestamp in seconds"`
	// Reason applies to battle_game_end only.
	Reason string `json:"reason,omitempty" jsonschema:"why the game ended early"`
}

func transitionTool(name, description string) *mcp.Tool {
	return &mcp.Tool{Name: name, Description: description}
}

// TransitionHandler executes one fixed-type transition tool.
func TransitionHandler(service *Service, eventType event.Type) mcp.ToolHandlerFor[TransitionInput, SendResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TransitionInput) (*mcp.CallToolResult, SendResult, error) {
		var raw []byte
		if eventType == event.TypeGameEnded && input.Reason != "" {
			encoded, err := json.Marshal(machine.GameEndedPayload{Reason: input.Reason})
			if err != nil {
				return nil, SendResult{}, fmt.Errorf("encode payload: %w", err)
			}
			raw = encoded
		}
		decision, err := service.send(ctx, "battle_"+string(eventType), machine.Input{
			Type:           eventType,
			VideoTimestamp: input.VideoTimestamp,
			PayloadJSON:    raw,
		})
		if err != nil {
			return nil, SendResult{}, err
		}
		return nil, summarizeDecision(decision), nil
	}
}

// StateAtInput queries the game position at a video timestamp.
type StateAtInput struct {
	Timestamp float64 `json:"timestamp" jsonschema:"video timestamp in seconds"`
}

// StateAtResult reports where the game was at a timestamp.
type StateAtResult struct {
	Round       int           `json:"round"`
	Phase       string        `json:"phase"`
	PlayerIndex int           `json:"player_index"`
	Event       *EventSummary `json:"event,omitempty"`
}

// StateAtTool defines the timestamp-position tool.
func StateAtTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "battle_state_at_timestamp",
		Description: "Resolves which round, phase and player turn the game was in at a video timestamp",
	}
}

// StateAtHandler executes battle_state_at_timestamp.
func StateAtHandler(service *Service) mcp.ToolHandlerFor[StateAtInput, StateAtResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input StateAtInput) (*mcp.CallToolResult, StateAtResult, error) {
		ctx := service.snapshot()
		position := query.StateAtTimestamp(&ctx, input.Timestamp)
		result := StateAtResult{
			Round:       position.Round,
			Phase:       string(position.Phase),
			PlayerIndex: position.PlayerIndex,
		}
		if position.Event != nil {
			summary := summarizeEvent(*position.Event)
			result.Event = &summary
		}
		return nil, result, nil
	}
}

// EventsNearInput queries events around a video timestamp.
type EventsNearInput struct {
	Timestamp float64 `json:"timestamp" jsonschema:"video timestamp in seconds"`
	Window    float64 `json:"window" jsonschema:"half-width of the inclusive window in seconds"`
}

// EventsNearResult lists events inside the window.
type EventsNearResult struct {
	Events []EventSummary `json:"events"`
}

// EventsNearTool defines the timestamp-window tool.
func EventsNearTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "battle_events_near_timestamp",
		Description: "Lists logged events within a window around a video timestamp",
	}
}

// EventsNearHandler executes battle_events_near_timestamp.
func EventsNearHandler(service *Service) mcp.ToolHandlerFor[EventsNearInput, EventsNearResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input EventsNearInput) (*mcp.CallToolResult, EventsNearResult, error) {
		ctx := service.snapshot()
		var result EventsNearResult
		for _, evt := range query.EventsNearTimestamp(&ctx, input.Timestamp, input.Window) {
			result.Events = append(result.Events, summarizeEvent(evt))
		}
		return nil, result, nil
	}
}

// UnitFindInput looks up a unit by name.
type UnitFindInput struct {
	Name string `json:"name" jsonschema:"case-insensitive substring of the unit name"`
}

// UnitFindResult reports the best match, if any.
type UnitFindResult struct {
	Found bool         `json:"found"`
	Unit  *UnitSummary `json:"unit,omitempty"`
}

// UnitFindTool defines the unit lookup tool.
func UnitFindTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "battle_unit_find",
		Description: "Finds a tracked unit by case-insensitive substring of its name",
	}
}

// UnitFindHandler executes battle_unit_find.
func UnitFindHandler(service *Service) mcp.ToolHandlerFor[UnitFindInput, UnitFindResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input UnitFindInput) (*mcp.CallToolResult, UnitFindResult, error) {
		ctx := service.snapshot()
		found, ok := query.FindUnitByName(&ctx, input.Name)
		if !ok {
			return nil, UnitFindResult{}, nil
		}
		summary := summarizeUnit(found)
		return nil, UnitFindResult{Found: true, Unit: &summary}, nil
	}
}

// EventCountsInput has no parameters.
type EventCountsInput struct{}

// EventCountsResult tallies logged events by type.
type EventCountsResult struct {
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}

// EventCountsTool defines the event tally tool.
func EventCountsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "battle_event_counts",
		Description: "Tallies logged events by type",
	}
}

// EventCountsHandler executes battle_event_counts.
func EventCountsHandler(service *Service) mcp.ToolHandlerFor[EventCountsInput, EventCountsResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ EventCountsInput) (*mcp.CallToolResult, EventCountsResult, error) {
		ctx := service.snapshot()
		result := EventCountsResult{Counts: make(map[string]int)}
		for eventType, count := range query.EventCounts(&ctx) {
			result.Counts[string(eventType)] = count
			result.Total += count
		}
		return nil, result, nil
	}
}

// SnapshotInput has no parameters.
type SnapshotInput struct{}

// SnapshotResult is the MCP view of the whole aggregate.
type SnapshotResult struct {
	BattleID    string          `json:"battle_id"`
	Segment     string          `json:"segment"`
	Round       int             `json:"round"`
	Phase       string          `json:"phase"`
	PlayerIndex int             `json:"player_index"`
	GameEnded   bool            `json:"game_ended"`
	Winner      *int            `json:"winner,omitempty"`
	Players     []PlayerSummary `json:"players"`
	Units       []UnitSummary   `json:"units"`
	EventCount  int             `json:"event_count"`
}

// SnapshotTool defines the full-state tool.
func SnapshotTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "battle_snapshot",
		Description: "Returns the current game position, player tallies and unit roster",
	}
}

// SnapshotHandler executes battle_snapshot.
func SnapshotHandler(service *Service) mcp.ToolHandlerFor[SnapshotInput, SnapshotResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ SnapshotInput) (*mcp.CallToolResult, SnapshotResult, error) {
		ctx := service.snapshot()
		result := SnapshotResult{
			BattleID:    service.battleID,
			Segment:     string(ctx.Segment),
			Round:       ctx.CurrentRound,
			Phase:       string(ctx.CurrentPhase),
			PlayerIndex: ctx.ActivePlayer,
			GameEnded:   ctx.GameEnded,
			EventCount:  len(ctx.EventLog),
		}
		if ctx.Result != nil {
			result.Winner = ctx.Result.Winner
		}
		for i := range ctx.Players {
			p := ctx.Players[i]
			result.Players = append(result.Players, PlayerSummary{
				Index:         p.Index,
				Name:          p.Name,
				Faction:       p.Faction,
				Detachment:    p.Detachment,
				CommandPoints: p.CommandPoints,
				VictoryPoints: p.VictoryPoints,
				IsActive:      p.IsActive,
			})
		}
		for playerIndex := 0; playerIndex < 2; playerIndex++ {
			for _, u := range ctx.UnitsForPlayer(playerIndex) {
				result.Units = append(result.Units, summarizeUnit(u))
			}
		}
		return nil, result, nil
	}
}

func registerTools(server *mcp.Server, service *Service) {
	mcp.AddTool(server, EventSendTool(), EventSendHandler(service))
	mcp.AddTool(server,
		transitionTool("battle_game_start", "Starts the game: round 1, first player's command phase"),
		TransitionHandler(service, event.TypeGameStarted))
	mcp.AddTool(server,
		transitionTool("battle_game_end", "Force-ends the game from any state"),
		TransitionHandler(service, event.TypeGameEnded))
	mcp.AddTool(server,
		transitionTool("battle_phase_next", "Advances to the next phase of the active turn"),
		TransitionHandler(service, event.TypePhaseAdvanced))
	mcp.AddTool(server,
		transitionTool("battle_turn_end", "Ends the first player's turn, handing over to the second"),
		TransitionHandler(service, event.TypeTurnEnded))
	mcp.AddTool(server,
		transitionTool("battle_round_end", "Ends the round, advancing to the next or finishing the game"),
		TransitionHandler(service, event.TypeRoundEnded))
	mcp.AddTool(server, StateAtTool(), StateAtHandler(service))
	mcp.AddTool(server, EventsNearTool(), EventsNearHandler(service))
	mcp.AddTool(server, UnitFindTool(), UnitFindHandler(service))
	mcp.AddTool(server, EventCountsTool(), EventCountsHandler(service))
	mcp.AddTool(server, SnapshotTool(), SnapshotHandler(service))
}
