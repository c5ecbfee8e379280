package runtime

import (
	"fmt"
	"strings"
	"time"

	"github.com/stplatform/stcore/clock"
	"github.com/stplatform/stcore/debugctl"
	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/internal/rtlog"
	"github.com/stplatform/stcore/ioimage"
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/scheduler"
	"github.com/stplatform/stcore/types"
	"github.com/stplatform/stcore/values"
)

// programRetainScope prefixes a memory.RetainEntry.Scope for a program-
// local RETAIN variable, keeping it out of memory.RestoreSnapshot's
// global/local/instance/io dispatch (those entries are restored directly
// against the dispatcher's program frames instead, see restoreRetain).
const programRetainScope = "program:"

// FaultPolicy selects how a Resource reacts to a RuntimeError raised during
// statement execution, or to a watchdog timeout (§4.J "Faults").
type FaultPolicy int

const (
	FaultHalt FaultPolicy = iota
	FaultSafeHalt
	FaultRestart
)

// RestartMode selects how InitGlobals/retain are applied on Restart or at
// startup (§4.J "Restart modes").
type RestartMode int

const (
	RestartCold RestartMode = iota
	RestartWarm
)

// RetainStore is the persistence seam a Resource saves to and (on a warm
// restart) loads from; the concrete on-disk format lives in package
// retain, out of scope here.
type RetainStore interface {
	Load() ([]memory.RetainEntry, bool, error)
	Save(entries []memory.RetainEntry) error
}

// Config holds one resource's fault/watchdog/retain/safe-state policy,
// read from the runtime bundle's [resource]/[runtime.watchdog]/
// [runtime.fault]/[runtime.retain] tables (§6.2).
type Config struct {
	FaultPolicy     FaultPolicy
	RestartMode     RestartMode
	WatchdogTimeout time.Duration // 0 disables the watchdog
	SafeState       map[string]values.Value
	RetainInterval  time.Duration // 0 disables periodic retain save
	RetainStore     RetainStore
}

// Resource is one IEC resource: its own cycle loop, driven by a Clock, over
// a lowered program, a scheduler, a memory store, and a set of I/O drivers
// (§5 "Scheduling model").
type Resource struct {
	Name       string
	Program    *ir.Program
	Types      *types.Registry
	Dispatcher *Dispatcher
	Scheduler  *scheduler.Scheduler
	Store      *memory.RuntimeStore
	Drivers    []ioimage.Driver
	Clock      clock.Clock
	Config     Config
	Shared     *SharedGlobals
	Log        rtlog.Logger
	Events     EventSink
	Debug      *debugctl.Controller

	ioBoundNames []string

	cycleNum       uint64
	faulted        bool
	lastRetainSave time.Time
	stop           chan struct{}
}

// NewResource wires a Resource's collaborators together. The caller is
// responsible for having run Dispatcher.InitGlobals/InitPrograms (or Init,
// below) before the first RunCycle.
func NewResource(name string, prog *ir.Program, reg *types.Registry, d *Dispatcher, sched *scheduler.Scheduler, store *memory.RuntimeStore, drivers []ioimage.Driver, clk clock.Clock, cfg Config, shared *SharedGlobals, log rtlog.Logger, sink EventSink) *Resource {
	if log == nil {
		log = rtlog.Nop()
	}
	if sink == nil {
		sink = func(Event) {}
	}
	var bound []string
	for _, g := range prog.Globals {
		if g.DirectAddress != nil {
			bound = append(bound, g.Name)
		}
	}
	return &Resource{
		Name:         name,
		Program:      prog,
		Types:        reg,
		Dispatcher:   d,
		Scheduler:    sched,
		Store:        store,
		Drivers:      drivers,
		Clock:        clk,
		Config:       cfg,
		Shared:       shared,
		Log:          log,
		Events:       sink,
		ioBoundNames: bound,
		stop:         make(chan struct{}),
	}
}

// Init brings the resource to its starting state for mode: Cold
// reinitializes every global from its declared initializer and discards
// any retain store contents; Warm reloads the retain snapshot (or keeps
// whatever is already in memory if no store is configured) over a Cold
// baseline (§4.J "Restart modes").
func (r *Resource) Init(mode RestartMode) error {
	var kept []memory.RetainEntry
	if mode == RestartWarm && r.Config.RetainStore == nil {
		if entries, err := r.retainSnapshot(); err == nil {
			kept = entries
		}
	}
	if err := r.Dispatcher.InitGlobals(); err != nil {
		return err
	}
	if err := r.Dispatcher.InitPrograms(); err != nil {
		return err
	}
	if mode == RestartWarm && r.Config.RetainStore != nil {
		entries, ok, err := r.Config.RetainStore.Load()
		if err != nil {
			return err
		}
		if ok {
			if err := r.restoreRetain(entries); err != nil {
				return err
			}
		}
	}
	if kept != nil {
		if err := r.restoreRetain(kept); err != nil {
			return err
		}
	}
	r.faulted = false
	return nil
}

// AttachDebug installs d as this resource's debug control plane (§4.L): it
// wires d.Hook as the dispatcher's evaluator hook, so every statement this
// resource executes is observed for breakpoints/logpoints/steps, and wires
// d.Now/d.RetainSnapshot so a pause snapshot can stamp the resource's own
// clock reading and include its retain-eligible state.
func (r *Resource) AttachDebug(d *debugctl.Controller) {
	r.Debug = d
	d.Now = func() time.Time { return r.Clock.Now() }
	d.RetainSnapshot = r.retainSnapshot
	r.Dispatcher.Eval.Hook = d.Hook
}

func (r *Resource) retainSnapshot() ([]memory.RetainEntry, error) {
	entries, err := memory.RetainSnapshot(r.Store.Globals, r.Store.Arena, r.Dispatcher.retainGlobalNames(), r.Dispatcher.retainMembers())
	if err != nil {
		return nil, err
	}
	programEntries, err := r.Dispatcher.programRetainSnapshot()
	if err != nil {
		return nil, err
	}
	for _, pe := range programEntries {
		entries = append(entries, memory.RetainEntry{Scope: programRetainScope + pe.Program, Name: pe.Name, Value: pe.Value})
	}
	return entries, nil
}

func (r *Resource) emit(ev Event) {
	ev.Cycle = r.cycleNum
	r.Events(ev)
}

// RunCycle executes exactly one deterministic cycle at time now (§4.J steps
// 1-7). It returns the error that faulted the resource, if any, after
// having already applied the configured fault policy.
func (r *Resource) RunCycle(now time.Time) error {
	if r.faulted {
		return errs.New(errs.KindResourceFaulted, "resource %q is faulted", r.Name)
	}
	r.Dispatcher.SetNow(now)
	start := r.Clock.Now()

	if r.Shared != nil {
		if err := r.Shared.Refresh(r.Store.Globals); err != nil {
			return r.fault(now, err)
		}
	}

	for _, drv := range r.Drivers {
		if err := drv.ReadInputs(r.Store.Image); err != nil {
			return r.fault(now, errs.Wrap(errs.KindIoDriver, err, "driver %q failed to read inputs", drv.Name()))
		}
	}
	for _, name := range r.ioBoundNames {
		v, err := r.Store.Image.ReadBound(name)
		if err != nil {
			return r.fault(now, err)
		}
		if err := r.Store.Globals.Set(name, v); err != nil {
			return r.fault(now, err)
		}
	}

	r.emit(Event{Kind: EventCycleStart, Now: now})

	ready, err := r.Scheduler.ReadyTasks(now, r.Store)
	if err != nil {
		return r.fault(now, err)
	}

	for _, task := range ready {
		if err := r.runTask(task, now); err != nil {
			return r.fault(now, err)
		}
		if d := r.Clock.Now().Sub(start); r.Config.WatchdogTimeout > 0 && d > r.Config.WatchdogTimeout {
			return r.watchdogFault(now, d)
		}
	}

	for _, name := range r.ioBoundNames {
		v, err := r.Store.Globals.Get(name)
		if err != nil {
			return r.fault(now, err)
		}
		if err := r.Store.Image.WriteBound(name, v); err != nil {
			return r.fault(now, err)
		}
	}
	for _, drv := range r.Drivers {
		if err := drv.WriteOutputs(r.Store.Image); err != nil {
			return r.fault(now, errs.Wrap(errs.KindIoDriver, err, "driver %q failed to write outputs", drv.Name()))
		}
	}

	if r.Shared != nil {
		if err := r.Shared.Publish(r.Store.Globals); err != nil {
			return r.fault(now, err)
		}
	}

	r.emit(Event{Kind: EventCycleEnd, Now: now})
	r.cycleNum++

	if r.Config.RetainInterval > 0 && (r.lastRetainSave.IsZero() || now.Sub(r.lastRetainSave) >= r.Config.RetainInterval) {
		if err := r.saveRetain(); err != nil {
			return r.fault(now, err)
		}
		r.lastRetainSave = now
	}

	return nil
}

func (r *Resource) runTask(task *scheduler.Task, now time.Time) error {
	r.emit(Event{Kind: EventTaskStart, Now: now, Task: task.Config.Name})
	if k := task.Overrun(now); k >= 1 {
		r.emit(Event{Kind: EventTaskOverrun, Now: now, Task: task.Config.Name, Missed: k})
	}

	taskStart := r.Clock.Now()
	var runErr error
	for _, pname := range task.Config.Programs {
		if runErr = r.Dispatcher.RunProgram(pname); runErr != nil {
			break
		}
	}
	if runErr == nil {
		for _, instName := range task.Config.FBInstanceRefs {
			if runErr = r.Dispatcher.RunFBBinding(instName); runErr != nil {
				break
			}
		}
	}
	elapsed := r.Clock.Now().Sub(taskStart)
	task.Complete(now, elapsed)
	r.emit(Event{Kind: EventTaskEnd, Now: now, Task: task.Config.Name, Elapsed: elapsed})
	return runErr
}

func (r *Resource) saveRetain() error {
	if r.Config.RetainStore == nil {
		return nil
	}
	entries, err := r.retainSnapshot()
	if err != nil {
		return err
	}
	return r.Config.RetainStore.Save(entries)
}

// restoreRetain splits a loaded snapshot back into its global/instance
// entries (handed to memory.RestoreSnapshot) and its program-local
// entries (written directly into the dispatcher's program frames, which
// InitPrograms has already allocated by the time this runs).
func (r *Resource) restoreRetain(entries []memory.RetainEntry) error {
	var rest []memory.RetainEntry
	var programEntries []ProgramRetainEntry
	for _, e := range entries {
		if strings.HasPrefix(e.Scope, programRetainScope) {
			programEntries = append(programEntries, ProgramRetainEntry{
				Program: strings.TrimPrefix(e.Scope, programRetainScope),
				Name:    e.Name,
				Value:   e.Value,
			})
			continue
		}
		rest = append(rest, e)
	}
	if err := memory.RestoreSnapshot(r.Store, rest); err != nil {
		return err
	}
	return r.Dispatcher.restoreProgramRetain(programEntries)
}

func (r *Resource) fault(now time.Time, cause error) error {
	r.emit(Event{Kind: EventFault, Now: now, Err: cause})
	return r.applyFaultPolicy(now, cause)
}

func (r *Resource) watchdogFault(now time.Time, elapsed time.Duration) error {
	cause := errs.New(errs.KindWatchdogTimeout, "resource %q exceeded watchdog timeout %s (took %s)", r.Name, r.Config.WatchdogTimeout, elapsed)
	r.emit(Event{Kind: EventWatchdogTimeout, Now: now, Elapsed: elapsed, Err: cause})
	return r.applyFaultPolicy(now, cause)
}

func (r *Resource) applyFaultPolicy(now time.Time, cause error) error {
	switch r.Config.FaultPolicy {
	case FaultSafeHalt:
		if len(r.Config.SafeState) > 0 {
			if err := r.Store.Image.ApplySafeState(r.Config.SafeState); err != nil {
				r.Log.Errorf("resource %q: failed to apply safe state: %v", r.Name, err)
			}
			for _, drv := range r.Drivers {
				if err := drv.WriteOutputs(r.Store.Image); err != nil {
					r.Log.Errorf("resource %q: safe-state write-outputs failed on driver %q: %v", r.Name, drv.Name(), err)
				}
			}
		}
		r.faulted = true
		return cause
	case FaultRestart:
		if err := r.Init(r.Config.RestartMode); err != nil {
			r.faulted = true
			return fmt.Errorf("%w (restart also failed: %v)", cause, err)
		}
		return nil
	default: // FaultHalt
		r.faulted = true
		return cause
	}
}

// Restart clears a halted resource's fault state and reinitializes it per
// mode, for a supervisor-driven recovery after FaultHalt/SafeHalt.
func (r *Resource) Restart(mode RestartMode) error {
	return r.Init(mode)
}

// Stop requests the run loop to exit after its current cycle completes
// (§5 "Cancellation" — an in-progress cycle always completes before
// shutdown).
func (r *Resource) Stop() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
}

// RunLoop drives RunCycle once every tick: after each cycle it sleeps the
// Clock for tick, checking the stop flag between cycles, and
// returns only once Stop has been called or a cycle faults.
func (r *Resource) RunLoop(tick time.Duration) error {
	for {
		select {
		case <-r.stop:
			return nil
		default:
		}
		if err := r.RunCycle(r.Clock.Now()); err != nil {
			return err
		}
		r.Clock.SleepUntil(r.Clock.Now().Add(tick))
	}
}
