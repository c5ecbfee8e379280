package stdlib

import (
	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/values"
)

// Func is the shape every stdlib entry implements: evaluated arguments in,
// a single result value out.
type Func func(args []eval.Argument) (values.Value, error)

// MultiFunc is a Func variant for the handful of entries that return more
// than one value (SPLIT_DATE, SPLIT_TOD), which the caller scatters across
// multiple VAR_OUTPUT parameters.
type MultiFunc func(args []eval.Argument) ([]values.Value, error)

// Registry is the name -> implementation table the runtime package
// dispatches eval.Env.Call's built-in names into. Conversion entries
// (TO_X, SRC_TO_DST, TRUNC*, *_BCD_*) are resolved dynamically by name
// shape rather than enumerated, since their combinatorial count would
// otherwise dominate the table.
type Registry struct {
	funcs      map[string]Func
	multiFuncs map[string]MultiFunc
}

// New builds a Registry with every standard-library function family
// registered (§4.H).
func New() *Registry {
	r := &Registry{funcs: map[string]Func{}, multiFuncs: map[string]MultiFunc{}}
	registerNumeric(r)
	registerBit(r)
	registerSelection(r)
	registerComparison(r)
	registerString(r)
	registerTime(r)
	registerAssert(r)
	return r
}

func (r *Registry) register(name string, fn Func) {
	r.funcs[name] = fn
}

func (r *Registry) registerMulti(name string, fn MultiFunc) {
	r.multiFuncs[name] = fn
}

// Call dispatches name against the registry, falling back to the dynamic
// conversion-name resolver when name isn't one of the statically
// registered entries.
func (r *Registry) Call(name string, args []eval.Argument) (values.Value, error) {
	if fn, ok := r.funcs[name]; ok {
		return fn(args)
	}
	if fn, ok := resolveConversion(name); ok {
		return fn(args)
	}
	return nil, errs.New(errs.KindUndefinedName, "no standard-library entry named %q", name)
}

// CallMulti dispatches one of the handful of multi-result entries
// (SPLIT_DATE, SPLIT_TOD).
func (r *Registry) CallMulti(name string, args []eval.Argument) ([]values.Value, error) {
	fn, ok := r.multiFuncs[name]
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "no multi-result standard-library entry named %q", name)
	}
	return fn(args)
}

// Has reports whether name is a known standard-library entry, static or
// conversion-shaped, letting the runtime distinguish a stdlib call from a
// user-defined function before dispatching.
func (r *Registry) Has(name string) bool {
	if _, ok := r.funcs[name]; ok {
		return true
	}
	if _, ok := r.multiFuncs[name]; ok {
		return true
	}
	_, ok := resolveConversion(name)
	return ok
}
