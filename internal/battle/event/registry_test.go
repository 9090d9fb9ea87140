package event

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/tabletopvod/battletrace/internal/battle/phase"
)

func validEvent() Event {
	return Event{
		Type:        TypeUnitShot,
		Round:       2,
		Phase:       phase.Shooting,
		PlayerIndex: 0,
		PayloadJSON: json.RawMessage(`{"unit_id":"u-1"}`),
	}
}

func registryWithShot(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()
	if err := registry.Register(Definition{Type: TypeUnitShot, Owner: OwnerCore}); err != nil {
		t.Fatalf("register: %v", err)
	}
	return registry
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry := registryWithShot(t)
	err := registry.Register(Definition{Type: TypeUnitShot, Owner: OwnerCore})
	if err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestRegisterRejectsUnknownOwner(t *testing.T) {
	registry := NewRegistry()
	err := registry.Register(Definition{Type: TypeUnitShot, Owner: Owner("homebrew")})
	if err == nil {
		t.Fatal("expected owner error")
	}
}

func TestValidateForAppendUnknownType(t *testing.T) {
	registry := registryWithShot(t)
	evt := validEvent()
	evt.Type = Type("unit.teleported")

	_, err := registry.ValidateForAppend(evt)
	if !errors.Is(err, ErrTypeUnknown) {
		t.Fatalf("expected ErrTypeUnknown, got %v", err)
	}
}

func TestValidateForAppendEnvelopeBounds(t *testing.T) {
	registry := registryWithShot(t)

	cases := []struct {
		name    string
		mutate  func(*Event)
		wantErr error
	}{
		{"round low", func(e *Event) { e.Round = 0 }, ErrRoundOutOfRange},
		{"round high", func(e *Event) { e.Round = 6 }, ErrRoundOutOfRange},
		{"bad phase", func(e *Event) { e.Phase = phase.Phase("morale") }, ErrPhaseInvalid},
		{"bad player", func(e *Event) { e.PlayerIndex = 2 }, ErrPlayerIndexInvalid},
		{"bad payload", func(e *Event) { e.PayloadJSON = json.RawMessage(`{`) }, ErrPayloadInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			evt := validEvent()
			tc.mutate(&evt)
			_, err := registry.ValidateForAppend(evt)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateForAppendDefaultsEmptyPayload(t *testing.T) {
	registry := registryWithShot(t)
	evt := validEvent()
	evt.PayloadJSON = nil

	validated, err := registry.ValidateForAppend(evt)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if string(validated.PayloadJSON) != "{}" {
		t.Fatalf("expected empty object payload, got %s", validated.PayloadJSON)
	}
}

func TestValidateForAppendRunsPayloadValidator(t *testing.T) {
	registry := NewRegistry()
	err := registry.Register(Definition{
		Type:  TypeUnitDestroyed,
		Owner: OwnerCore,
		ValidatePayload: func(raw json.RawMessage) error {
			var payload struct {
				UnitID string `json:"unit_id"`
			}
			if err := json.Unmarshal(raw, &payload); err != nil {
				return err
			}
			if payload.UnitID == "" {
				return errors.New("unit_id is required")
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	evt := validEvent()
	evt.Type = TypeUnitDestroyed
	evt.PayloadJSON = json.RawMessage(`{}`)
	if _, err := registry.ValidateForAppend(evt); err == nil {
		t.Fatal("expected payload validation error")
	}

	evt.PayloadJSON = json.RawMessage(`{"unit_id":"u-9"}`)
	if _, err := registry.ValidateForAppend(evt); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestTypeDomain(t *testing.T) {
	if TypeUnitShot.Domain() != "unit" {
		t.Fatalf("domain = %s, want unit", TypeUnitShot.Domain())
	}
	if Type("scoring").Domain() != "scoring" {
		t.Fatalf("domain without dot should return full type")
	}
}

func TestListDefinitionsSorted(t *testing.T) {
	registry := NewRegistry()
	for _, eventType := range []Type{TypeUnitShot, TypeGameStarted, TypePhaseAdvanced} {
		if err := registry.Register(Definition{Type: eventType, Owner: OwnerCore}); err != nil {
			t.Fatalf("register %s: %v", eventType, err)
		}
	}

	definitions := registry.ListDefinitions()
	if len(definitions) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(definitions))
	}
	for i := 1; i < len(definitions); i++ {
		if definitions[i-1].Type >= definitions[i].Type {
			t.Fatalf("definitions not sorted: %s before %s", definitions[i-1].Type, definitions[i].Type)
		}
	}
}
