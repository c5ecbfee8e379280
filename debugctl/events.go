package debugctl

import (
	"time"

	"github.com/stplatform/stcore/ir"
)

// EventKind tags a debug control plane event. These are the
// "stopped"/"DebugLog" members of spec §4.L's event channel; cycle/task
// lifecycle events (CycleStart, TaskEnd, Fault, ...) are emitted
// separately by package runtime (runtime.Event) since they carry on
// whether or not a debug session is attached — a caller wiring up an
// external protocol (DAP, a control socket) merges both streams.
type EventKind int

const (
	EventStopped EventKind = iota
	EventContinued
	EventDebugLog
	EventTerminated
)

func (k EventKind) String() string {
	switch k {
	case EventStopped:
		return "Stopped"
	case EventContinued:
		return "Continued"
	case EventDebugLog:
		return "DebugLog"
	case EventTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Event is one occurrence on the debug control plane's event channel.
// Reason is set on EventStopped ("breakpoint", "step", "pause"). Message
// is set on EventDebugLog, already formatted from the logpoint's segments.
type Event struct {
	Kind    EventKind
	Reason  string
	Loc     ir.SourceLocation
	Depth   int
	Now     time.Time
	Message string
}

// EventSink receives debug control plane events. Sinks run synchronously
// on the goroutine that hit the breakpoint/logpoint/step, so a slow sink
// delays that resource's cycle — mirroring runtime.EventSink's contract.
type EventSink func(Event)

func noopSink(Event) {}
