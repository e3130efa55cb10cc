package qualgate

import (
	"time"

	"github.com/gate-labs/qualgate/core"
)

// EventKind identifies the type of event emitted by the engine.
type EventKind string

const (
	// EventRunStarted is emitted when a run begins.
	EventRunStarted EventKind = "run_started"

	// EventPhaseChanged is emitted when the run enters a new phase.
	EventPhaseChanged EventKind = "phase_changed"

	// EventProbeFinished is emitted after tool availability probing.
	EventProbeFinished EventKind = "probe_finished"

	// EventToolStarted is emitted when a tool begins execution.
	EventToolStarted EventKind = "tool_started"

	// EventToolFinished is emitted when a tool completes, whatever the
	// status.
	EventToolFinished EventKind = "tool_finished"

	// EventToolSkipped is emitted when a tool is skipped without running.
	EventToolSkipped EventKind = "tool_skipped"

	// EventRunFinished is emitted when a run completes.
	EventRunFinished EventKind = "run_finished"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Phase names one stage of the run lifecycle.
type Phase string

const (
	PhaseConfigure Phase = "configure"
	PhaseMap       Phase = "map"
	PhaseValidate  Phase = "validate"
	PhasePlan      Phase = "plan"
	PhaseExecute   Phase = "execute"
	PhaseAggregate Phase = "aggregate"
	PhaseReport    Phase = "report"
)

// Event is a structured, streamable record of engine progress. Events
// carry a per-run sequence number so consumers can restore order after
// transport reordering.
type Event struct {
	// Kind identifies the event type.
	Kind EventKind

	// RunID is the unique identifier for this run.
	RunID string

	// Seq is the per-run sequence number, starting at 1.
	Seq uint64

	// Tool is the tool that produced this event (empty for run-level events).
	Tool string

	// Dimension is the tool's dimension (empty for run-level events).
	Dimension core.Dimension

	// Time is when the event occurred.
	Time time.Time

	// Elapsed is the duration since the run started.
	Elapsed time.Duration

	// Payload contains event-specific data. Keep it small; results live
	// in the report, not in events.
	Payload map[string]any
}

// NewEvent creates an event with the current timestamp.
func NewEvent(kind EventKind, runID string) Event {
	return Event{
		Kind:    kind,
		RunID:   runID,
		Time:    time.Now(),
		Payload: make(map[string]any),
	}
}

// WithTool sets the tool information on the event.
func (e Event) WithTool(tool string, dim core.Dimension) Event {
	e.Tool = tool
	e.Dimension = dim
	return e
}

// WithElapsed sets the elapsed duration on the event.
func (e Event) WithElapsed(elapsed time.Duration) Event {
	e.Elapsed = elapsed
	return e
}

// WithPayload adds a key-value pair to the event payload.
func (e Event) WithPayload(key string, value any) Event {
	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	e.Payload[key] = value
	return e
}

// EventHandler is a function type for handling events. Implementations
// can log, store, or forward events as needed.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

// ChannelEventHandler returns a handler that sends events to a channel.
// Events are dropped if the channel is full.
func ChannelEventHandler(ch chan<- Event) EventHandler {
	return func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}
}
