// Package memory implements the runtime storage model of spec §4.G: a
// global variable store, a call-frame stack for locals/temps, an instance
// arena for function-block and class objects (with a parent chain for
// SUPER), and reference resolution through a path of index/field segments.
package memory

import (
	"strings"
	"sync"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/types"
	"github.com/stplatform/stcore/values"
)

// Globals is the process-wide global variable store, keyed by uppercased
// name. It is safe for concurrent use: the control plane's debug snapshot
// path (§4.L) reads it from outside the cycle goroutine.
type Globals struct {
	mu   sync.RWMutex
	vars map[string]values.Value
}

func NewGlobals() *Globals {
	return &Globals{vars: make(map[string]values.Value)}
}

func (g *Globals) Declare(name string, v values.Value) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vars[strings.ToUpper(name)] = v
}

func (g *Globals) Get(name string) (values.Value, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.vars[strings.ToUpper(name)]
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "undefined global %q", name)
	}
	return v, nil
}

func (g *Globals) Set(name string, v values.Value) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := strings.ToUpper(name)
	if _, ok := g.vars[key]; !ok {
		return errs.New(errs.KindUndefinedName, "undefined global %q", name)
	}
	g.vars[key] = v
	return nil
}

// Names returns every declared global name, for the retain snapshot and
// debug inspection paths.
func (g *Globals) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.vars))
	for k := range g.vars {
		out = append(out, k)
	}
	return out
}

// Snapshot returns a shallow copy of the global table, used by the retain
// subsystem and debug "dump globals" command.
func (g *Globals) Snapshot() map[string]values.Value {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]values.Value, len(g.vars))
	for k, v := range g.vars {
		out[k] = v
	}
	return out
}

// FrameID identifies a call-frame for the lifetime of the call, so an
// IN_OUT reference can keep pointing at a caller's local after deeper
// calls push and pop their own frames (§4.G).
type FrameID uint32

// Frame is one call-frame's local/temp variable storage, pushed on entry to
// a program/function/function-block body and popped on return (§4.G).
type Frame struct {
	ID   FrameID
	vars map[string]values.Value
}

func NewFrame(id FrameID) *Frame {
	return &Frame{ID: id, vars: make(map[string]values.Value)}
}

func (f *Frame) Declare(name string, v values.Value) {
	f.vars[strings.ToUpper(name)] = v
}

func (f *Frame) Get(name string) (values.Value, error) {
	v, ok := f.vars[strings.ToUpper(name)]
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "undefined local %q", name)
	}
	return v, nil
}

func (f *Frame) Set(name string, v values.Value) error {
	key := strings.ToUpper(name)
	if _, ok := f.vars[key]; !ok {
		return errs.New(errs.KindUndefinedName, "undefined local %q", name)
	}
	f.vars[key] = v
	return nil
}

// Snapshot returns a shallow copy of this frame's locals, keyed by
// FrameId for the debug control plane's pause snapshot (§4.L).
func (f *Frame) Snapshot() map[string]values.Value {
	out := make(map[string]values.Value, len(f.vars))
	for k, v := range f.vars {
		out[k] = v
	}
	return out
}

// FrameStack is a LIFO of Frames, one per active call, used to resolve
// unqualified names against the innermost scope first. Frames also remain
// reachable by id after a deeper call pushes on top, so an IN_OUT
// reference into a caller's frame keeps working (§4.G).
type FrameStack struct {
	frames []*Frame
	byID   map[FrameID]*Frame
	nextID FrameID
}

func NewFrameStack() *FrameStack {
	return &FrameStack{byID: make(map[FrameID]*Frame), nextID: 1}
}

// PushNew allocates a fresh frame, pushes it, and returns it.
func (s *FrameStack) PushNew() *Frame {
	f := NewFrame(s.nextID)
	s.nextID++
	s.byID[f.ID] = f
	s.frames = append(s.frames, f)
	return f
}

func (s *FrameStack) Pop() {
	if len(s.frames) == 0 {
		return
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	delete(s.byID, top.ID)
}

func (s *FrameStack) Top() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func (s *FrameStack) ByID(id FrameID) (*Frame, bool) {
	f, ok := s.byID[id]
	return f, ok
}

func (s *FrameStack) Depth() int { return len(s.frames) }

// Instance is one live function-block/class object in the arena: its own
// variable store plus an optional parent for SUPER resolution (§4.G, §3.3).
type Instance struct {
	Type   types.ID
	Parent values.InstanceID
	HasBase bool
	vars   map[string]values.Value
}

func (i *Instance) Get(name string) (values.Value, error) {
	v, ok := i.vars[strings.ToUpper(name)]
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "undefined member %q", name)
	}
	return v, nil
}

func (i *Instance) Set(name string, v values.Value) error {
	key := strings.ToUpper(name)
	if _, ok := i.vars[key]; !ok {
		return errs.New(errs.KindUndefinedName, "undefined member %q", name)
	}
	i.vars[key] = v
	return nil
}

// Snapshot returns a shallow copy of this instance's members, used by the
// debug control plane's pause snapshot (§4.L) and retain persistence.
func (i *Instance) Snapshot() map[string]values.Value {
	out := make(map[string]values.Value, len(i.vars))
	for k, v := range i.vars {
		out[k] = v
	}
	return out
}

// Arena owns every live instance, keyed by a non-recycling id (§4.G).
type Arena struct {
	mu     sync.RWMutex
	insts  map[values.InstanceID]*Instance
	nextID values.InstanceID
}

func NewArena() *Arena {
	return &Arena{insts: make(map[values.InstanceID]*Instance), nextID: 1}
}

// New allocates a fresh instance of typ with the given initial member
// values and an optional base instance id for SUPER chains.
func (a *Arena) New(typ types.ID, base values.InstanceID, hasBase bool, initial map[string]values.Value) values.Instance {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	vars := make(map[string]values.Value, len(initial))
	for k, v := range initial {
		vars[strings.ToUpper(k)] = v
	}
	a.insts[id] = &Instance{Type: typ, Parent: base, HasBase: hasBase, vars: vars}
	return values.Instance{Type: typ, ID: id}
}

func (a *Arena) Get(id values.InstanceID) (*Instance, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	inst, ok := a.insts[id]
	if !ok {
		return nil, errs.New(errs.KindNullReference, "instance #%d does not exist", id)
	}
	return inst, nil
}

// Base returns the parent instance of id, or an error if id has no base
// (SUPER used outside a derived function block's method, §4.F).
func (a *Arena) Base(id values.InstanceID) (values.InstanceID, error) {
	inst, err := a.Get(id)
	if err != nil {
		return 0, err
	}
	if !inst.HasBase {
		return 0, errs.New(errs.KindInvalidControlFlow, "instance #%d has no base instance", id)
	}
	return inst.Parent, nil
}

// All returns every live instance id, for the retain snapshot walk.
func (a *Arena) All() []values.InstanceID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]values.InstanceID, 0, len(a.insts))
	for id := range a.insts {
		out = append(out, id)
	}
	return out
}
