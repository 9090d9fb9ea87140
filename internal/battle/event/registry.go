package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tabletopvod/battletrace/internal/battle/phase"
)

var (
	// ErrTypeRequired indicates a missing event type.
	ErrTypeRequired = errors.New("event type is required")
	// ErrTypeUnknown indicates an unregistered event type.
	ErrTypeUnknown = errors.New("event type is not registered")
	// ErrRoundOutOfRange indicates a round outside 1..5.
	ErrRoundOutOfRange = errors.New("round must be between 1 and 5")
	// ErrPhaseInvalid indicates an unknown phase on the envelope.
	ErrPhaseInvalid = errors.New("phase is invalid")
	// ErrPlayerIndexInvalid indicates a player index other than 0 or 1.
	ErrPlayerIndexInvalid = errors.New("player index must be 0 or 1")
	// ErrPayloadInvalid indicates malformed payload JSON.
	ErrPayloadInvalid = errors.New("payload json must be valid")
)

// Owner identifies whether an event type belongs to the core rules or to a
// layered ruleset module.
type Owner string

const (
	// OwnerCore indicates a core rules event.
	OwnerCore Owner = "core"
	// OwnerRuleset indicates a ruleset-module event.
	OwnerRuleset Owner = "ruleset"
)

// PayloadValidator validates a payload JSON document.
type PayloadValidator func(json.RawMessage) error

// Definition registers metadata for an event type.
type Definition struct {
	Type            Type
	Owner           Owner
	ValidatePayload PayloadValidator
}

// Registry stores event definitions and validates events before append.
//
// The registry is the closed-set boundary of the event vocabulary: an event
// whose type is not registered never reaches the journal or the reducers.
type Registry struct {
	definitions map[Type]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Type]Definition)}
}

// Register adds a new event type definition to the registry.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	def.Type = Type(strings.TrimSpace(string(def.Type)))
	if def.Type == "" {
		return ErrTypeRequired
	}
	switch def.Owner {
	case OwnerCore, OwnerRuleset:
		// allowed
	default:
		return fmt.Errorf("owner must be core or ruleset")
	}
	if r.definitions == nil {
		r.definitions = make(map[Type]Definition)
	}
	if _, exists := r.definitions[def.Type]; exists {
		return fmt.Errorf("event type already registered: %s", def.Type)
	}
	r.definitions[def.Type] = def
	return nil
}

// ValidateForAppend validates and normalizes an event before journal append.
func (r *Registry) ValidateForAppend(evt Event) (Event, error) {
	evt.Type = Type(strings.TrimSpace(string(evt.Type)))
	if evt.Type == "" {
		return Event{}, ErrTypeRequired
	}
	def, ok := r.definitions[evt.Type]
	if !ok {
		return Event{}, ErrTypeUnknown
	}
	if evt.Round < 1 || evt.Round > phase.MaxRound {
		return Event{}, ErrRoundOutOfRange
	}
	if !evt.Phase.IsValid() {
		return Event{}, ErrPhaseInvalid
	}
	if evt.PlayerIndex != 0 && evt.PlayerIndex != 1 {
		return Event{}, ErrPlayerIndexInvalid
	}

	if len(evt.PayloadJSON) == 0 {
		evt.PayloadJSON = json.RawMessage("{}")
	}
	if !json.Valid(evt.PayloadJSON) {
		return Event{}, ErrPayloadInvalid
	}
	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(evt.PayloadJSON); err != nil {
			return Event{}, fmt.Errorf("payload invalid: %w", err)
		}
	}
	return evt, nil
}

// Definition returns the event definition for a given type.
func (r *Registry) Definition(eventType Type) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	eventType = Type(strings.TrimSpace(string(eventType)))
	if eventType == "" {
		return Definition{}, false
	}
	def, ok := r.definitions[eventType]
	return def, ok
}

// ListDefinitions returns a stable, sorted snapshot of registered definitions.
func (r *Registry) ListDefinitions() []Definition {
	if r == nil || len(r.definitions) == 0 {
		return nil
	}
	definitions := make([]Definition, 0, len(r.definitions))
	for _, definition := range r.definitions {
		definitions = append(definitions, definition)
	}
	sort.Slice(definitions, func(i, j int) bool {
		return string(definitions[i].Type) < string(definitions[j].Type)
	})
	return definitions
}
