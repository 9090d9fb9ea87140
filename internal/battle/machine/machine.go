package machine

import (
	"fmt"

	"github.com/tabletopvod/battletrace/internal/battle/event"
	"github.com/tabletopvod/battletrace/internal/battle/phase"
	"github.com/tabletopvod/battletrace/internal/platform/id"
)

// Rejection explains why an event was refused. Rejected events leave the
// machine untouched and never reach the log.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func rejectf(code, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Decision is the outcome of sending one event: either the appended event or
// a rejection, never both.
type Decision struct {
	Accepted  bool        `json:"accepted"`
	Event     event.Event `json:"event,omitempty"`
	Rejection *Rejection  `json:"rejection,omitempty"`
}

// Ruleset layers module-owned events and state on top of the core machine.
// The core routes ruleset-owned events through Guard and Fold and otherwise
// never inspects the ruleset aggregate.
type Ruleset interface {
	// ID names the ruleset for reports and logs.
	ID() string
	// StartingCommandPoints seeds both players at setup.
	StartingCommandPoints() int
	// CommandPointCap bounds command point gains. Zero means uncapped.
	CommandPointCap() int
	// RegisterEvents installs the module's event definitions.
	RegisterEvents(registry *event.Registry) error
	// NewState builds the initial module aggregate for a fresh game.
	NewState(ctx *Context) any
	// CloneState deep-copies the module aggregate for snapshots.
	CloneState(state any) any
	// Guard vets a ruleset event against current state, returning the
	// stamped, normalized event on acceptance.
	Guard(ctx *Context, evt event.Event) (event.Event, *Rejection)
	// Fold applies an accepted ruleset event to state. Fold also observes
	// core transition events so modules can react to round and phase
	// boundaries.
	Fold(ctx *Context, evt event.Event) error
}

// Recorder receives every accepted event after it is folded. Implementations
// provide durability; the machine's in-memory log is authoritative within a
// session.
type Recorder interface {
	Record(evt event.Event) error
}

// Machine is the deterministic game state machine. It owns the aggregate
// context, guards incoming events, appends accepted ones to the log and folds
// them into state. Machines are not safe for concurrent use.
type Machine struct {
	ctx      Context
	registry *event.Registry
	ruleset  Ruleset
	recorder Recorder
	newID    func() (string, error)
}

// Option configures a machine at construction.
type Option func(*Machine)

// WithRuleset layers a ruleset module over the base rules.
func WithRuleset(ruleset Ruleset) Option {
	return func(m *Machine) { m.ruleset = ruleset }
}

// WithRecorder tees accepted events into a durable store.
func WithRecorder(recorder Recorder) Option {
	return func(m *Machine) { m.recorder = recorder }
}

// New constructs a machine in the setup segment from init input.
func New(input InitInput, opts ...Option) (*Machine, error) {
	m := &Machine{
		registry: event.NewRegistry(),
		newID:    id.New,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := RegisterCoreEvents(m.registry); err != nil {
		return nil, fmt.Errorf("register core events: %w", err)
	}
	startingCP := 0
	if m.ruleset != nil {
		if err := m.ruleset.RegisterEvents(m.registry); err != nil {
			return nil, fmt.Errorf("register ruleset events: %w", err)
		}
		startingCP = m.ruleset.StartingCommandPoints()
	}
	m.ctx = NewContext(input, startingCP)
	if m.ruleset != nil {
		m.ctx.RulesetState = m.ruleset.NewState(&m.ctx)
	}
	return m, nil
}

// Registry exposes the event catalog for discovery surfaces.
func (m *Machine) Registry() *event.Registry {
	return m.registry
}

// RulesetID returns the layered ruleset's id, or empty under base rules.
func (m *Machine) RulesetID() string {
	if m.ruleset == nil {
		return ""
	}
	return m.ruleset.ID()
}

// Snapshot returns a deep copy of the current aggregate.
func (m *Machine) Snapshot() Context {
	var cloneState func(any) any
	if m.ruleset != nil {
		cloneState = m.ruleset.CloneState
	}
	return m.ctx.clone(cloneState)
}

// EventLog returns a copy of the appended events in sequence order.
func (m *Machine) EventLog() []event.Event {
	return append([]event.Event(nil), m.ctx.EventLog...)
}

// Input is an incoming event before stamping. Round, phase and player index
// on the envelope are assigned by the machine; callers supply only the type,
// video timestamp and payload.
type Input struct {
	Type           event.Type
	VideoTimestamp float64
	PayloadJSON    []byte
}

// Send runs the guard, append and fold pipeline for one event. Illegal
// events are rejected without side effects. The returned error covers
// internal failures only, never rule violations.
func (m *Machine) Send(input Input) (Decision, error) {
	evt := event.Event{
		Type:           input.Type,
		VideoTimestamp: input.VideoTimestamp,
		PayloadJSON:    input.PayloadJSON,
	}

	def, ok := m.registry.Definition(evt.Type)
	if !ok {
		return rejected(rejectf(RejectEventTypeUnknown, "event type %q is not registered", evt.Type)), nil
	}

	var stamped event.Event
	var rejection *Rejection
	switch def.Owner {
	case event.OwnerRuleset:
		if m.ruleset == nil {
			return rejected(rejectf(RejectRulesetEventUnbound, "event type %q requires a ruleset module", evt.Type)), nil
		}
		if rej := m.guardSegmentForGameplay(); rej != nil {
			return rejected(rej), nil
		}
		stamped = m.stampCurrent(evt)
		stamped, rejection = m.ruleset.Guard(&m.ctx, stamped)
	default:
		stamped, rejection = m.guardCore(evt)
	}
	if rejection != nil {
		return rejected(rejection), nil
	}

	eventID, err := m.newID()
	if err != nil {
		return Decision{}, fmt.Errorf("generate event id: %w", err)
	}
	stamped.ID = eventID
	stamped.Seq = uint64(len(m.ctx.EventLog)) + 1

	stamped, err = m.registry.ValidateForAppend(stamped)
	if err != nil {
		return rejected(rejectf(RejectPayloadInvalid, "invalid event: %v", err)), nil
	}

	if err := m.apply(stamped, def.Owner); err != nil {
		return Decision{}, err
	}
	if m.recorder != nil {
		if err := m.recorder.Record(stamped); err != nil {
			return Decision{}, fmt.Errorf("record event: %w", err)
		}
	}
	return Decision{Accepted: true, Event: stamped}, nil
}

// Restore applies an already-journaled event without guarding. It is the
// replay path: events that passed the guards once are trusted verbatim.
func (m *Machine) Restore(evt event.Event) error {
	def, ok := m.registry.Definition(evt.Type)
	if !ok {
		return fmt.Errorf("restore: %w: %s", event.ErrTypeUnknown, evt.Type)
	}
	if want := uint64(len(m.ctx.EventLog)) + 1; evt.Seq != want {
		return fmt.Errorf("restore: sequence gap: have %d events, got seq %d", len(m.ctx.EventLog), evt.Seq)
	}
	return m.apply(evt, def.Owner)
}

func (m *Machine) apply(evt event.Event, owner event.Owner) error {
	m.ctx.EventLog = append(m.ctx.EventLog, evt)
	if owner == event.OwnerRuleset {
		if err := m.ruleset.Fold(&m.ctx, evt); err != nil {
			return fmt.Errorf("fold ruleset event %s: %w", evt.Type, err)
		}
		return nil
	}
	if err := m.foldCore(evt); err != nil {
		return fmt.Errorf("fold event %s: %w", evt.Type, err)
	}
	// Modules observe core transitions for boundary bookkeeping.
	if m.ruleset != nil {
		if err := m.ruleset.Fold(&m.ctx, evt); err != nil {
			return fmt.Errorf("fold ruleset observer for %s: %w", evt.Type, err)
		}
	}
	return nil
}

func rejected(rej *Rejection) Decision {
	return Decision{Rejection: rej}
}

// stampCurrent stamps an event with the machine's current position.
func (m *Machine) stampCurrent(evt event.Event) event.Event {
	evt.Round = m.ctx.CurrentRound
	evt.Phase = m.ctx.CurrentPhase
	evt.PlayerIndex = m.ctx.ActivePlayer
	return evt
}

func (m *Machine) commandPointCap() int {
	if m.ruleset == nil {
		return 0
	}
	return m.ruleset.CommandPointCap()
}

func (m *Machine) guardSegmentForGameplay() *Rejection {
	switch m.ctx.Segment {
	case phase.SegmentSetup:
		return rejectf(RejectGameNotStarted, "game has not started")
	case phase.SegmentGameOver:
		return rejectf(RejectGameOver, "game is over")
	}
	return nil
}
