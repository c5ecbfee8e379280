// Package debugctl implements the debug control plane of spec §4.L: an
// atomic set_breakpoints/clear_breakpoints/resume/pause/step_in/step_over/
// step_out/snapshot surface layered over the evaluator's statement hook
// (eval.Hook), plus the Running/Paused/Terminated state machine and the
// single StopGate mutex §5 requires for serializing stop delivery across
// resource goroutines.
package debugctl

import (
	"strings"
	"sync"
	"time"

	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/values"
)

// State is a position in the §4.L state machine.
type State int

const (
	StateRunning State = iota
	StatePaused
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// StepMode is the pending step request observed by the next Hook call.
type StepMode int

const (
	StepNone StepMode = iota
	StepIn
	StepOver
	StepOut
)

// frameProvider is the optional capability an eval.Env may offer to expose
// its active call frame, probed via type assertion (runtime.Env implements
// it; a test double need not).
type frameProvider interface {
	Frame() (*memory.Frame, bool)
}

// Controller is the debug control plane. One Controller's Hook method can
// be installed as the eval.Hook of any number of resources' evaluators —
// typically one per supervised resource — sharing the single mutex spec §5
// requires: "Debug breakpoint table, pause expectations, and the stop
// gate: protected by a single mutex and accessed only at statement
// boundaries and control-channel entry points."
type Controller struct {
	mu sync.Mutex

	eval *eval.Evaluator

	nextID      BreakpointID
	breakpoints map[ir.SourceLocation][]*breakpoint
	logpoints   map[ir.SourceLocation][]*logpoint

	state          State
	stepMode       StepMode
	stepDepth      int
	pauseRequested bool
	resumeCh       chan struct{}

	lastSnapshot *Snapshot
	sink         EventSink

	// Now, if set, stamps captured snapshots with the owning resource's
	// clock reading rather than the wall clock.
	Now func() time.Time

	// RetainSnapshot, if set, is called while paused to populate
	// Snapshot.Retain — wired by the owning runtime.Resource, which alone
	// knows which globals/members are retain-tagged.
	RetainSnapshot func() ([]memory.RetainEntry, error)
}

// New builds a Controller that evaluates breakpoint conditions and
// logpoint expressions with ev, sending events to sink (nil is a valid
// no-op sink).
func New(ev *eval.Evaluator, sink EventSink) *Controller {
	if sink == nil {
		sink = noopSink
	}
	return &Controller{
		eval:        ev,
		breakpoints: make(map[ir.SourceLocation][]*breakpoint),
		logpoints:   make(map[ir.SourceLocation][]*logpoint),
		sink:        sink,
	}
}

// Hook is the eval.Hook entry point: installed on an eval.Evaluator, it
// runs before every statement, evaluates logpoints, decides whether to
// stop, and — if so — blocks the calling goroutine at the StopGate until
// Resume/StepIn/StepOver/StepOut/Terminate releases it. This is the
// mechanism behind "the evaluator observes [pause] at the next statement
// boundary via the hook; until then, the current statement runs to
// completion" (§5): the hook runs strictly before the statement it gates.
//
// Breakpoint conditions and logpoint expressions are evaluated with the
// mutex released: a condition can itself call into a function block whose
// body runs through this same Hook (on the same goroutine), and the mutex
// is not reentrant, so holding it across EvalExpr would deadlock on any
// conditional breakpoint whose condition involves a call.
func (c *Controller) Hook(loc ir.SourceLocation, depth int, env eval.Env) {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return
	}
	lps := append([]*logpoint(nil), c.logpoints[loc]...)
	bps := append([]*breakpoint(nil), c.breakpoints[loc]...)
	stepMode, stepDepth, pauseRequested := c.stepMode, c.stepDepth, c.pauseRequested
	c.mu.Unlock()

	for _, lp := range lps {
		c.sink(Event{Kind: EventDebugLog, Loc: loc, Message: c.formatLogpoint(lp, env)})
	}

	reason, stop := c.checkStop(bps, stepMode, stepDepth, pauseRequested, depth, env)
	if !stop {
		return
	}

	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return
	}
	snap := c.captureSnapshotLocked(loc, depth, env)
	c.lastSnapshot = snap
	c.state = StatePaused
	c.stepMode = StepNone
	c.pauseRequested = false
	resumeCh := make(chan struct{})
	c.resumeCh = resumeCh
	c.sink(Event{Kind: EventStopped, Reason: reason, Loc: loc, Depth: depth, Now: snap.Now})
	c.mu.Unlock()

	<-resumeCh
}

// checkStop decides whether the statement at depth should stop execution,
// advancing breakpoint hit counters along the way. Runs without the
// controller mutex held (see Hook's doc comment).
func (c *Controller) checkStop(bps []*breakpoint, stepMode StepMode, stepDepth int, pauseRequested bool, depth int, env eval.Env) (string, bool) {
	for _, bp := range bps {
		if bp.spec.Condition != nil {
			v, err := c.eval.EvalExpr(bp.spec.Condition, env)
			if err != nil {
				continue
			}
			b, ok := v.(values.Bool)
			if !ok || !b.V {
				continue
			}
		}
		hits := bp.hits.Add(1)
		if !bp.spec.HitCondition.satisfied(hits) {
			continue
		}
		return "breakpoint", true
	}

	switch stepMode {
	case StepIn:
		return "step", true
	case StepOver:
		if depth <= stepDepth {
			return "step", true
		}
	case StepOut:
		if depth < stepDepth {
			return "step", true
		}
	}

	if pauseRequested {
		return "pause", true
	}
	return "", false
}

func (c *Controller) formatLogpoint(lp *logpoint, env eval.Env) string {
	var b strings.Builder
	for _, seg := range lp.spec.Segments {
		if seg.Expr == nil {
			b.WriteString(seg.Text)
			continue
		}
		v, err := c.eval.EvalExpr(seg.Expr, env)
		if err != nil {
			b.WriteString("<error>")
			continue
		}
		b.WriteString(v.String())
	}
	return b.String()
}

func (c *Controller) captureSnapshotLocked(loc ir.SourceLocation, depth int, env eval.Env) *Snapshot {
	var now time.Time
	if c.Now != nil {
		now = c.Now()
	}
	snap := &Snapshot{Loc: loc, Depth: depth, Now: now}

	if rs, ok := env.Store().(*memory.RuntimeStore); ok {
		snap.Globals = rs.Globals.Snapshot()
		snap.Instances = make(map[values.InstanceID]map[string]values.Value)
		for _, id := range rs.Arena.All() {
			inst, err := rs.Arena.Get(id)
			if err != nil {
				continue
			}
			snap.Instances[id] = inst.Snapshot()
		}
	}

	if fp, ok := env.(frameProvider); ok {
		if f, has := fp.Frame(); has {
			snap.HasFrame = true
			snap.FrameID = f.ID
			snap.Frame = f.Snapshot()
		}
	}

	if c.RetainSnapshot != nil {
		if entries, err := c.RetainSnapshot(); err == nil {
			snap.Retain = entries
		}
	}

	return snap
}
