package ir

import (
	"strconv"
	"strings"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/ioimage"
	"github.com/stplatform/stcore/symbols"
	"github.com/stplatform/stcore/types"
)

// PreDeclareTypes registers every function-block/class/interface name as a
// placeholder type before any body is lowered, so mutually recursive
// references resolve (§4.E, §9 two-phase approach). Bodies are filled in by
// a later call to types.Registry.RegisterType with the same name (which the
// registry treats as allocating a fresh id; this package offers no in-place
// update of a placeholder).
func PreDeclareTypes(reg *types.Registry, names []string) map[string]types.ID {
	out := make(map[string]types.ID, len(names))
	for _, n := range names {
		id, err := reg.RegisterType(n, types.Type{Kind: types.KindStruct, Name: n})
		if err == nil {
			out[n] = id
		}
	}
	return out
}

// TaskBinder accumulates PROGRAM/FB-WITH-task bindings as lowering walks
// declarations (§4.E "Task bindings").
type TaskBinder struct {
	tasks map[string]*TaskConfig
	order []string
}

func NewTaskBinder() *TaskBinder {
	return &TaskBinder{tasks: make(map[string]*TaskConfig)}
}

func (b *TaskBinder) Declare(cfg TaskConfig) {
	if _, ok := b.tasks[cfg.Name]; !ok {
		b.order = append(b.order, cfg.Name)
	}
	t := cfg
	b.tasks[cfg.Name] = &t
}

// BindProgram appends a program instance name to task's program list.
// "PROGRAM p WITH t : Type" (§4.E).
func (b *TaskBinder) BindProgram(taskName, programName string) error {
	t, ok := b.tasks[taskName]
	if !ok {
		return errs.New(errs.KindUndefinedName, "undefined task %q", taskName)
	}
	t.Programs = append(t.Programs, programName)
	return nil
}

// BindFB records an FB-task binding: the scheduler executes it on the
// task's cadence rather than inline ("FB WITH t").
func (b *TaskBinder) BindFB(taskName, instanceName string) (FBTaskBinding, error) {
	t, ok := b.tasks[taskName]
	if !ok {
		return FBTaskBinding{}, errs.New(errs.KindUndefinedName, "undefined task %q", taskName)
	}
	t.FBInstanceRefs = append(t.FBInstanceRefs, instanceName)
	return FBTaskBinding{InstanceName: instanceName, TaskName: taskName}, nil
}

func (b *TaskBinder) Tasks() []TaskConfig {
	out := make([]TaskConfig, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, *b.tasks[name])
	}
	return out
}

// LowerAccessPath lowers a raw `AT` clause or VAR_ACCESS/VAR_CONFIG entry
// into an AccessPath. A direct address (starting with '%') and containing
// no wildcard lowers to AccessDirect; anything else (a dotted symbolic
// path) lowers to AccessParts. A wildcard direct address
// ("AT %I*"/"%Q*"/"%M*") instead returns a non-nil *WildcardRequirement
// that the caller must collect and resolve via configuration before the
// first cycle, per §3.4/§4.E.
func LowerAccessPath(varName, raw string) (AccessPath, *WildcardRequirement, error) {
	if strings.HasPrefix(raw, "%") {
		addr, err := ioimage.Parse(raw)
		if err != nil {
			return AccessPath{}, nil, err
		}
		if addr.Wildcard {
			return AccessPath{}, &WildcardRequirement{
				VarName: varName,
				Area:    byte(addr.Area),
			}, nil
		}
		return AccessPath{Kind: AccessDirect, Address: raw, Text: raw}, nil, nil
	}
	parts := strings.Split(raw, ".")
	segs := make([]AccessSegment, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			segs = append(segs, AccessSegment{Kind: SegIndex, Index: n})
			continue
		}
		if p == "*" {
			segs = append(segs, AccessSegment{Kind: SegPartial})
			continue
		}
		segs = append(segs, AccessSegment{Kind: SegName, Name: p})
	}
	return AccessPath{Kind: AccessParts, Text: raw, Segments: segs}, nil, nil
}

// ResolveWildcard fills in a previously-collected WildcardRequirement from
// configuration, validating the concrete address's area matches the
// declared one. Lowering fails (returns an error) if configuration never
// supplies a matching address, per §3.4: "otherwise lowering fails."
func ResolveWildcard(req *WildcardRequirement, configuredAddress string) error {
	addr, err := ioimage.Parse(configuredAddress)
	if err != nil {
		return err
	}
	if addr.Wildcard {
		return errs.New(errs.KindInvalidIoAddress, "configured address %q for %q is itself a wildcard", configuredAddress, req.VarName)
	}
	if byte(addr.Area) != req.Area {
		return errs.New(errs.KindInvalidIoAddress, "configured address %q for %q does not match declared area %q", configuredAddress, req.VarName, string(req.Area))
	}
	req.Bound = true
	req.Address = configuredAddress
	return nil
}

// CheckWildcardsResolved returns an error naming the first unresolved
// wildcard requirement, or nil if every requirement in reqs was bound.
// Lowering must call this after applying configuration and before
// installing the program into the runtime (§3.4).
func CheckWildcardsResolved(reqs []WildcardRequirement) error {
	for _, r := range reqs {
		if !r.Bound {
			return errs.New(errs.KindInvalidIoAddress, "variable %q declared AT %%%s* has no configured address", r.VarName, string(r.Area))
		}
	}
	return nil
}

// ConstPrepass gathers every VAR CONSTANT initializer in decls and folds it,
// populating env. Declarations are processed in the order given; a
// constant may reference an earlier constant in the same or an outer scope
// through env, per "Constants first" (§4.E).
type ConstDecl struct {
	Scope string
	Name  string
	Init  Expr
}

func ConstPrepass(decls []ConstDecl, env MapConstEnv) []error {
	var errsOut []error
	for _, d := range decls {
		v, err := FoldConstInt(d.Init, d.Scope, env)
		if err != nil {
			errsOut = append(errsOut, err)
			continue
		}
		env.Set(d.Scope, strings.ToUpper(d.Name), v)
	}
	return errsOut
}

// DeclareGlobal installs one lowered global declaration into a symbol
// table's root scope, returning the new Symbol.
func DeclareGlobal(tbl *symbols.Table, g GlobalInit) *symbols.Symbol {
	mod := symbols.Modifier(0)
	switch g.Retain {
	case RetainRetain:
		mod |= symbols.ModRetain
	case RetainNonRetain:
		mod |= symbols.ModNonRetain
	case RetainPersistent:
		mod |= symbols.ModPersistent
	}
	sym := &symbols.Symbol{
		SimpleName:    g.Name,
		QualifiedName: g.Name,
		Kind:          symbols.KindVariable,
		DeclaredType:  g.Type,
		Modifiers:     mod,
	}
	if g.DirectAddress != nil {
		sym.DirectAddress = g.DirectAddress.Text
	}
	return tbl.Declare(0, sym)
}
