// Package runtime implements the execution core of spec §4.K and the
// concurrency model of §5: a call dispatcher that binds the lowered
// program model to the memory subsystem and the standard library, a
// per-resource cycle loop driven by a clock.Clock, and a multi-resource
// supervisor sharing only an explicit SharedGlobals table.
package runtime

import (
	"strings"
	"time"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/stdlib"
	"github.com/stplatform/stcore/types"
	"github.com/stplatform/stcore/values"
)

// Dispatcher resolves every call the evaluator makes against a lowered
// program: function-block/class method calls (qualified by a dot, §4.B
// rule 1), bare function-block-instance invocation (the ordinary ST
// calling convention `inst(IN := x)`), function calls, and
// standard-library calls, in that order of precedence.
type Dispatcher struct {
	Program *ir.Program
	Types   *types.Registry
	Stdlib  *stdlib.Registry
	Eval    *eval.Evaluator

	store *memory.RuntimeStore

	functionsByName map[string]ir.FunctionDef
	fbsByName       map[string]ir.FunctionBlockDef
	classesByName   map[string]ir.ClassDef

	programDefs   map[string]ir.ProgramDef
	programFrames map[string]*memory.Frame

	now        time.Time
	depth      int
	lastInvoke map[values.InstanceID]time.Time
}

func NewDispatcher(prog *ir.Program, reg *types.Registry, std *stdlib.Registry, ev *eval.Evaluator, store *memory.RuntimeStore) *Dispatcher {
	d := &Dispatcher{
		Program:         prog,
		Types:           reg,
		Stdlib:          std,
		Eval:            ev,
		store:           store,
		functionsByName: make(map[string]ir.FunctionDef),
		fbsByName:       make(map[string]ir.FunctionBlockDef),
		classesByName:   make(map[string]ir.ClassDef),
		programDefs:     make(map[string]ir.ProgramDef),
		programFrames:   make(map[string]*memory.Frame),
		lastInvoke:      make(map[values.InstanceID]time.Time),
	}
	for _, fn := range prog.Functions {
		d.functionsByName[strings.ToUpper(fn.Name)] = fn
	}
	for _, fb := range prog.FBs {
		d.fbsByName[strings.ToUpper(fb.Name)] = fb
	}
	for _, c := range prog.Classes {
		d.classesByName[strings.ToUpper(c.Name)] = c
	}
	return d
}

// SetNow advances the dispatcher's notion of "now", read by every standard
// timer function block to compute its Δt (§4.H, §4.J step 4).
func (d *Dispatcher) SetNow(now time.Time) { d.now = now }

// NewEnv builds the Env a fresh program/function/method body runs against.
func (d *Dispatcher) NewEnv(frame *memory.Frame, this, base *values.Instance) *Env {
	return newEnv(d, frame, this, base)
}

// InitGlobals (re)declares every global at its lowered initializer value,
// allocating a fresh instance for function-block/class-typed globals
// instead of a bare zero struct (§3.4 "globals are created at program load
// with initializer evaluation"; restart Cold/Warm both start here).
func (d *Dispatcher) InitGlobals() error {
	for _, g := range d.Program.Globals {
		v, err := d.globalInitValue(g)
		if err != nil {
			return err
		}
		d.store.Globals.Declare(g.Name, v)
	}
	return nil
}

func (d *Dispatcher) globalInitValue(g ir.GlobalInit) (values.Value, error) {
	t, ok := d.Types.Get(g.Type)
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "global %q references unknown type id %d", g.Name, g.Type)
	}
	if t.Kind == types.KindStruct && d.isPOUType(t.Name) {
		return d.NewInstance(t.Name)
	}
	if g.Initializer != nil {
		return d.Eval.EvalExpr(g.Initializer, nil)
	}
	return values.DefaultForType(d.Types, g.Type)
}

// zeroOrInstance is InitGlobals' per-type-id counterpart for a Local/Param
// declaration: a function-block/class-typed member is allocated as an
// instance, everything else gets its declared type's zero value.
func (d *Dispatcher) zeroOrInstance(typ types.ID) (values.Value, error) {
	if t, ok := d.Types.Get(typ); ok && t.Kind == types.KindStruct && d.isPOUType(t.Name) {
		return d.NewInstance(t.Name)
	}
	return values.DefaultForType(d.Types, typ)
}

func (d *Dispatcher) isPOUType(name string) bool {
	if _, ok := stdlib.StandardFB(name); ok {
		return true
	}
	if _, ok := d.fbsByName[strings.ToUpper(name)]; ok {
		return true
	}
	if _, ok := d.classesByName[strings.ToUpper(name)]; ok {
		return true
	}
	return false
}

// NewInstance allocates a fresh function-block or class instance of
// typeName in the arena, recursively allocating a base instance first when
// the type declares one, so SUPER has somewhere to point (§4.G, §3.3).
func (d *Dispatcher) NewInstance(typeName string) (values.Instance, error) {
	id, ok := d.Types.Lookup(typeName)
	if !ok {
		return values.Instance{}, errs.New(errs.KindUnsupportedType, "unknown function-block/class type %q", typeName)
	}
	fields, base, hasBase, err := d.instanceFields(typeName)
	if err != nil {
		return values.Instance{}, err
	}
	var baseID values.InstanceID
	if hasBase {
		baseID = base.ID
	}
	return d.store.Arena.New(id, baseID, hasBase, fields), nil
}

func (d *Dispatcher) instanceFields(typeName string) (map[string]values.Value, values.Instance, bool, error) {
	if fb, ok := stdlib.StandardFB(typeName); ok {
		return fb.Defaults(), values.Instance{}, false, nil
	}
	if fbDef, ok := d.fbsByName[strings.ToUpper(typeName)]; ok {
		fields := map[string]values.Value{}
		base, hasBase, err := d.baseOf(fbDef.Base)
		if err != nil {
			return nil, values.Instance{}, false, err
		}
		for _, p := range fbDef.Params {
			v, err := d.paramDefault(p)
			if err != nil {
				return nil, values.Instance{}, false, err
			}
			fields[p.Name] = v
		}
		for _, l := range fbDef.Persistent {
			v, err := d.zeroOrInstance(l.Type)
			if err != nil {
				return nil, values.Instance{}, false, err
			}
			fields[l.Name] = v
		}
		return fields, base, hasBase, nil
	}
	if classDef, ok := d.classesByName[strings.ToUpper(typeName)]; ok {
		fields := map[string]values.Value{}
		base, hasBase, err := d.baseOf(classDef.Base)
		if err != nil {
			return nil, values.Instance{}, false, err
		}
		for _, l := range classDef.Vars {
			v, err := d.zeroOrInstance(l.Type)
			if err != nil {
				return nil, values.Instance{}, false, err
			}
			fields[l.Name] = v
		}
		return fields, base, hasBase, nil
	}
	return nil, values.Instance{}, false, errs.New(errs.KindUndefinedName, "no function-block or class body named %q", typeName)
}

func (d *Dispatcher) baseOf(baseName string) (values.Instance, bool, error) {
	if baseName == "" {
		return values.Instance{}, false, nil
	}
	inst, err := d.NewInstance(baseName)
	if err != nil {
		return values.Instance{}, false, err
	}
	return inst, true, nil
}

// paramDefault evaluates a parameter's declared default, if any. Defaults
// are folded to literals during lowering (§4.E "constants first"), so
// EvalExpr never needs an Env to evaluate one.
func (d *Dispatcher) paramDefault(p ir.Param) (values.Value, error) {
	if p.Default != nil {
		return d.Eval.EvalExpr(p.Default, nil)
	}
	return d.zeroOrInstance(p.Type)
}

// baseInstance returns id's parent instance as a values.Instance, or nil
// if id has none — absence is the ordinary case for a root FB/class, not
// an error.
func (d *Dispatcher) baseInstance(id values.InstanceID) *values.Instance {
	baseID, err := d.store.Arena.Base(id)
	if err != nil {
		return nil
	}
	raw, err := d.store.Arena.Get(baseID)
	if err != nil {
		return nil
	}
	return &values.Instance{Type: raw.Type, ID: baseID}
}

func (d *Dispatcher) instanceTypeName(inst values.Instance) (string, error) {
	t, ok := d.Types.Get(inst.Type)
	if !ok {
		return "", errs.New(errs.KindUnsupportedType, "instance references unknown type id %d", inst.Type)
	}
	return t.Name, nil
}

// Call implements the dispatcher's full resolution order: a dotted name
// is an instance method call (§4.B rule 1); an undotted name already bound
// to a live instance is an ordinary FB/class-instance invocation; failing
// that, a program-level function, then the standard library.
func (d *Dispatcher) Call(env *Env, name string, args []eval.Argument) (values.Value, error) {
	if head, method, ok := splitQualified(name); ok {
		v, err := env.Lookup(head)
		if err != nil {
			return nil, err
		}
		inst, ok := v.(values.Instance)
		if !ok {
			return nil, errs.New(errs.KindTypeMismatch, "%q is not a function-block or class instance", head)
		}
		return d.callMethod(inst, method, args)
	}

	if v, err := env.Lookup(name); err == nil {
		if inst, ok := v.(values.Instance); ok {
			typeName, err := d.instanceTypeName(inst)
			if err != nil {
				return nil, err
			}
			return d.callFBInstance(inst, typeName, args)
		}
	}

	if fn, ok := d.functionsByName[strings.ToUpper(name)]; ok {
		return d.callFunction(fn, args)
	}

	if d.Stdlib.Has(name) {
		return d.Stdlib.Call(name, args)
	}

	return nil, errs.New(errs.KindUndefinedName, "undefined call %q", name)
}

func splitQualified(name string) (head, rest string, ok bool) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:], true
	}
	return name, "", false
}

func (d *Dispatcher) findMethod(typeName, methodName string) (ir.MethodDef, bool) {
	cur := typeName
	for cur != "" {
		if fb, ok := d.fbsByName[strings.ToUpper(cur)]; ok {
			for _, m := range fb.Methods {
				if strings.EqualFold(m.Name, methodName) {
					return m, true
				}
			}
			cur = fb.Base
			continue
		}
		if cl, ok := d.classesByName[strings.ToUpper(cur)]; ok {
			for _, m := range cl.Methods {
				if strings.EqualFold(m.Name, methodName) {
					return m, true
				}
			}
			cur = cl.Base
			continue
		}
		break
	}
	return ir.MethodDef{}, false
}

func (d *Dispatcher) callMethod(inst values.Instance, methodName string, args []eval.Argument) (values.Value, error) {
	typeName, err := d.instanceTypeName(inst)
	if err != nil {
		return nil, err
	}
	method, ok := d.findMethod(typeName, methodName)
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "type %q has no method %q", typeName, methodName)
	}
	frame := d.store.Frames.PushNew()
	defer d.store.Frames.Pop()
	if err := d.bindParams(frame, method.Params, args); err != nil {
		return nil, err
	}
	for _, l := range method.Locals {
		v, err := d.zeroOrInstance(l.Type)
		if err != nil {
			return nil, err
		}
		frame.Declare(l.Name, v)
	}
	hasReturn := false
	if ret, err := d.zeroOrInstance(method.ReturnType); err == nil {
		frame.Declare(method.Name, ret)
		hasReturn = true
	}
	env := d.NewEnv(frame, &inst, d.baseInstance(inst.ID))
	d.depth++
	_, err = d.Eval.ExecBlock(method.Body, env, d.depth)
	d.depth--
	if err != nil {
		return nil, err
	}
	if hasReturn {
		return frame.Get(method.Name)
	}
	return values.Bool{}, nil
}

func (d *Dispatcher) callFunction(fn ir.FunctionDef, args []eval.Argument) (values.Value, error) {
	frame := d.store.Frames.PushNew()
	defer d.store.Frames.Pop()
	if err := d.bindParams(frame, fn.Params, args); err != nil {
		return nil, err
	}
	for _, l := range fn.Locals {
		v, err := d.zeroOrInstance(l.Type)
		if err != nil {
			return nil, err
		}
		frame.Declare(l.Name, v)
	}
	ret, err := d.zeroOrInstance(fn.ReturnType)
	if err != nil {
		return nil, err
	}
	frame.Declare(fn.Name, ret)

	env := d.NewEnv(frame, nil, nil)
	d.depth++
	_, err = d.Eval.ExecBlock(fn.Body, env, d.depth)
	d.depth--
	if err != nil {
		return nil, err
	}
	return frame.Get(fn.Name)
}

// bindParams declares params in frame from args, matched by name first
// and position second, falling back to the parameter's own default or
// its type's zero value. IN_OUT aliasing is not modeled here: an
// eval.Argument carries only a value, never the caller's location, so a
// VAR_IN_OUT parameter is effectively call-by-value-in/value-out-discarded
// — the evaluator's Argument shape has no room for more, and widening it
// is out of scope for this pass.
func (d *Dispatcher) bindParams(frame *memory.Frame, params []ir.Param, args []eval.Argument) error {
	named := map[string]values.Value{}
	var positional []values.Value
	for _, a := range args {
		if a.Name != "" {
			named[strings.ToUpper(a.Name)] = a.Value
		} else {
			positional = append(positional, a.Value)
		}
	}
	for i, p := range params {
		if v, ok := named[strings.ToUpper(p.Name)]; ok {
			frame.Declare(p.Name, v)
			continue
		}
		if i < len(positional) {
			frame.Declare(p.Name, positional[i])
			continue
		}
		v, err := d.paramDefault(p)
		if err != nil {
			return err
		}
		frame.Declare(p.Name, v)
	}
	return nil
}

// callFBInstance is the ordinary ST calling convention for a function
// block: `inst(IN := x, ...)`. Input/in-out parameters named in args are
// written into the instance's members before the body (or, for a standard
// FB, its Step) runs.
func (d *Dispatcher) callFBInstance(inst values.Instance, typeName string, args []eval.Argument) (values.Value, error) {
	if fb, ok := stdlib.StandardFB(typeName); ok {
		return d.stepStandardFB(inst, fb, args)
	}
	fbDef, ok := d.fbsByName[strings.ToUpper(typeName)]
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "no function-block body named %q", typeName)
	}

	named := map[string]values.Value{}
	var positional []values.Value
	for _, a := range args {
		if a.Name != "" {
			named[strings.ToUpper(a.Name)] = a.Value
		} else {
			positional = append(positional, a.Value)
		}
	}
	for i, p := range fbDef.Params {
		v, has := values.Value(nil), false
		if nv, ok := named[strings.ToUpper(p.Name)]; ok {
			v, has = nv, true
		} else if i < len(positional) {
			v, has = positional[i], true
		}
		if has {
			if err := d.store.SetLocation(memory.InstanceLocation(inst.ID, p.Name), v); err != nil {
				return nil, err
			}
		}
	}

	frame := d.store.Frames.PushNew()
	defer d.store.Frames.Pop()
	for _, l := range fbDef.Temps {
		v, err := d.zeroOrInstance(l.Type)
		if err != nil {
			return nil, err
		}
		frame.Declare(l.Name, v)
	}
	env := d.NewEnv(frame, &inst, d.baseInstance(inst.ID))
	d.depth++
	_, err := d.Eval.ExecBlock(fbDef.Body, env, d.depth)
	d.depth--
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func (d *Dispatcher) stepStandardFB(inst values.Instance, fb stdlib.FunctionBlock, args []eval.Argument) (values.Value, error) {
	defaults := fb.Defaults()
	canon := make(map[string]string, len(defaults))
	state := make(map[string]values.Value, len(defaults))
	for name := range defaults {
		canon[strings.ToUpper(name)] = name
		v, err := d.store.GetLocation(memory.InstanceLocation(inst.ID, name))
		if err != nil {
			return nil, err
		}
		state[name] = v
	}
	for _, a := range args {
		if a.Name == "" {
			return nil, errs.New(errs.KindInvalidArgumentName, "standard function blocks accept only named arguments")
		}
		key, ok := canon[strings.ToUpper(a.Name)]
		if !ok {
			return nil, errs.New(errs.KindInvalidArgumentName, "unknown input %q for standard function block", a.Name)
		}
		state[key] = a.Value
	}
	next, err := fb.Step(state, d.stepDelta(inst.ID))
	if err != nil {
		return nil, err
	}
	for name, v := range next {
		if err := d.store.SetLocation(memory.InstanceLocation(inst.ID, name), v); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

func (d *Dispatcher) stepDelta(id values.InstanceID) time.Duration {
	last, ok := d.lastInvoke[id]
	d.lastInvoke[id] = d.now
	if !ok {
		return 0
	}
	return d.now.Sub(last)
}

// InitPrograms allocates each configured program's persistent frame once,
// declaring VAR members at their zero value (§3.4 "instance arenas grow
// ... never shrink during a run" applies equally to a program's own
// storage, which is never torn down mid-run).
func (d *Dispatcher) InitPrograms() error {
	for _, p := range d.Program.Programs {
		frame := d.store.Frames.PushNew()
		for _, l := range p.Vars {
			v, err := d.zeroOrInstance(l.Type)
			if err != nil {
				return err
			}
			frame.Declare(l.Name, v)
		}
		key := strings.ToUpper(p.Name)
		d.programFrames[key] = frame
		d.programDefs[key] = p
	}
	return nil
}

// RunProgram resets pname's VAR_TEMP members (reinitialized every scan per
// §3.4) and runs its body against the persistent frame allocated by
// InitPrograms.
func (d *Dispatcher) RunProgram(pname string) error {
	key := strings.ToUpper(pname)
	def, ok := d.programDefs[key]
	if !ok {
		return errs.New(errs.KindUndefinedName, "no program named %q", pname)
	}
	frame := d.programFrames[key]
	for _, l := range def.Temps {
		v, err := d.zeroOrInstance(l.Type)
		if err != nil {
			return err
		}
		frame.Declare(l.Name, v)
	}
	env := d.NewEnv(frame, nil, nil)
	d.depth = 0
	_, err := d.Eval.ExecBlock(def.Body, env, d.depth)
	return err
}

// RunFBBinding invokes the body of the global FB instance named
// instanceName with no fresh inputs, for an "FB WITH task" binding that
// runs on the task's own cadence rather than inline from a program body
// (§4.E, §4.J step 4).
func (d *Dispatcher) RunFBBinding(instanceName string) error {
	v, err := d.store.Globals.Get(instanceName)
	if err != nil {
		return err
	}
	inst, ok := v.(values.Instance)
	if !ok {
		return errs.New(errs.KindTypeMismatch, "%q is not a function-block instance", instanceName)
	}
	typeName, err := d.instanceTypeName(inst)
	if err != nil {
		return err
	}
	_, err = d.callFBInstance(inst, typeName, nil)
	return err
}

// retainGlobalNames lists every global marked RETAIN/PERSISTENT.
func (d *Dispatcher) retainGlobalNames() []string {
	var names []string
	for _, g := range d.Program.Globals {
		if g.Retain == ir.RetainRetain || g.Retain == ir.RetainPersistent {
			names = append(names, g.Name)
		}
	}
	return names
}

// retainMembers walks every live instance and lists its RETAIN/PERSISTENT
// members, keyed by instance id, for the periodic retain-save step and
// warm-restart reload (§4.K step 7, §4.J restart modes).
func (d *Dispatcher) retainMembers() map[values.InstanceID][]string {
	out := map[values.InstanceID][]string{}
	for _, id := range d.store.Arena.All() {
		inst, err := d.store.Arena.Get(id)
		if err != nil {
			continue
		}
		t, ok := d.Types.Get(inst.Type)
		if !ok {
			continue
		}
		if names := d.retainableMembers(t.Name); len(names) > 0 {
			out[id] = names
		}
	}
	return out
}

func (d *Dispatcher) retainableMembers(typeName string) []string {
	var names []string
	if fb, ok := d.fbsByName[strings.ToUpper(typeName)]; ok {
		for _, l := range fb.Persistent {
			if l.Retain == ir.RetainRetain || l.Retain == ir.RetainPersistent {
				names = append(names, l.Name)
			}
		}
	}
	if cl, ok := d.classesByName[strings.ToUpper(typeName)]; ok {
		for _, l := range cl.Vars {
			if l.Retain == ir.RetainRetain || l.Retain == ir.RetainPersistent {
				names = append(names, l.Name)
			}
		}
	}
	return names
}

// ProgramRetainEntry is one RETAIN/PERSISTENT program-local variable. A
// program's frame has no stable id across a restart (InitPrograms
// allocates a fresh one every time it runs), so these are addressed by
// program name instead, separately from memory.RetainEntry's
// global/instance scopes.
type ProgramRetainEntry struct {
	Program string
	Name    string
	Value   values.Value
}

// programRetainSnapshot collects every RETAIN/PERSISTENT VAR declared
// directly on a program, the counterpart of retainMembers for program
// bodies (spec example "retain across warm restart" concerns exactly this
// case: a PROGRAM-local RETAIN variable, not a global).
func (d *Dispatcher) programRetainSnapshot() ([]ProgramRetainEntry, error) {
	var out []ProgramRetainEntry
	for key, def := range d.programDefs {
		frame, ok := d.programFrames[key]
		if !ok {
			continue
		}
		for _, l := range def.Vars {
			if l.Retain != ir.RetainRetain && l.Retain != ir.RetainPersistent {
				continue
			}
			v, err := frame.Get(l.Name)
			if err != nil {
				return nil, err
			}
			out = append(out, ProgramRetainEntry{Program: def.Name, Name: l.Name, Value: v})
		}
	}
	return out, nil
}

// restoreProgramRetain writes previously snapshotted program-local values
// back into each program's persistent frame. Must run after InitPrograms
// has (re)allocated those frames.
func (d *Dispatcher) restoreProgramRetain(entries []ProgramRetainEntry) error {
	for _, e := range entries {
		frame, ok := d.programFrames[strings.ToUpper(e.Program)]
		if !ok {
			continue
		}
		if err := frame.Set(e.Name, e.Value); err != nil {
			return err
		}
	}
	return nil
}
