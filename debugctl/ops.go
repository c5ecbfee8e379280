package debugctl

import "github.com/stplatform/stcore/ir"

// SetBreakpoints installs specs as new breakpoints and returns their
// assigned ids, in order. Breakpoints accumulate across calls; use
// ClearBreakpoints to remove the ones at a location first if replacing
// them is the intent (matching set_breakpoints/clear_breakpoints being
// distinct atomic operations per §4.L).
func (c *Controller) SetBreakpoints(specs []BreakpointSpec) []BreakpointID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]BreakpointID, len(specs))
	for i, spec := range specs {
		c.nextID++
		bp := &breakpoint{id: c.nextID, spec: spec}
		c.breakpoints[spec.Loc] = append(c.breakpoints[spec.Loc], bp)
		ids[i] = bp.id
	}
	return ids
}

// ClearBreakpoints removes every breakpoint at loc.
func (c *Controller) ClearBreakpoints(loc ir.SourceLocation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.breakpoints, loc)
}

// SetLogpoints installs specs as new logpoints and returns their assigned
// ids, in order.
func (c *Controller) SetLogpoints(specs []LogpointSpec) []BreakpointID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]BreakpointID, len(specs))
	for i, spec := range specs {
		c.nextID++
		lp := &logpoint{id: c.nextID, spec: spec}
		c.logpoints[spec.Loc] = append(c.logpoints[spec.Loc], lp)
		ids[i] = lp.id
	}
	return ids
}

// ClearLogpoints removes every logpoint at loc.
func (c *Controller) ClearLogpoints(loc ir.SourceLocation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.logpoints, loc)
}

// State returns the current position in the Running/Paused/Terminated
// state machine.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pause requests a stop at the next statement boundary; it does not block
// and has no effect unless the controller is currently Running.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning {
		c.pauseRequested = true
	}
}

// Resume releases a paused goroutine to run unconstrained until the next
// breakpoint, logpoint-triggered stop (there is none — logpoints never
// stop), or Pause call. A no-op unless currently Paused.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeLocked(StepNone, 0)
}

// StepIn releases a paused goroutine with StepIn semantics: stop on the
// very next statement, at any call depth (§4.L).
func (c *Controller) StepIn() { c.stepLocked(StepIn) }

// StepOver releases a paused goroutine with StepOver semantics: stop once
// depth returns to at most the depth at the time of this call, skipping
// over any call the stopped statement makes.
func (c *Controller) StepOver() { c.stepLocked(StepOver) }

// StepOut releases a paused goroutine with StepOut semantics: stop once
// depth drops below the depth at the time of this call, i.e. once the
// current call returns to its caller.
func (c *Controller) StepOut() { c.stepLocked(StepOut) }

func (c *Controller) stepLocked(mode StepMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	depth := 0
	if c.lastSnapshot != nil {
		depth = c.lastSnapshot.Depth
	}
	c.resumeLocked(mode, depth)
}

// resumeLocked releases the StopGate. Must be called with c.mu held.
func (c *Controller) resumeLocked(mode StepMode, depth int) {
	if c.state != StatePaused {
		return
	}
	c.state = StateRunning
	c.stepMode = mode
	c.stepDepth = depth
	c.sink(Event{Kind: EventContinued})
	close(c.resumeCh)
	c.resumeCh = nil
}

// Terminate transitions to Terminated and releases any paused goroutine,
// letting its in-progress statement (and the cycle containing it) run to
// completion rather than abandoning it mid-execution — every subsequent
// Hook call becomes a no-op (§4.L's "(either) --terminate--> Terminated").
func (c *Controller) Terminate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateTerminated {
		return
	}
	c.state = StateTerminated
	if c.resumeCh != nil {
		close(c.resumeCh)
		c.resumeCh = nil
	}
	c.sink(Event{Kind: EventTerminated})
}

// Snapshot returns the structural copy captured at the last pause. It only
// ever returns ok==true while Paused — once resumed, callers must read
// live storage instead, since "this distinction is load-bearing because
// live reads race" (§4.L).
func (c *Controller) Snapshot() (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused || c.lastSnapshot == nil {
		return nil, false
	}
	return c.lastSnapshot, true
}
