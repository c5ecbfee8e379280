package runtime

import (
	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/values"
)

// Env is the eval.Env the dispatcher builds for every program, function,
// method or function-block body it runs: a call frame, an optional
// receiver instance and its base (for THIS/SUPER), and a handle back to
// the dispatcher so a call from inside the body resolves through the same
// instance/function/stdlib precedence as the top-level call that got here
// (§4.F, §4.G).
type Env struct {
	store      *memory.RuntimeStore
	frame      *memory.Frame
	this       *values.Instance
	base       *values.Instance
	dispatcher *Dispatcher
}

func newEnv(d *Dispatcher, frame *memory.Frame, this, base *values.Instance) *Env {
	return &Env{store: d.store, frame: frame, this: this, base: base, dispatcher: d}
}

// Lookup resolves name against the innermost scope first: the active call
// frame's locals/params, then the receiver instance's members (if any),
// then globals.
func (e *Env) Lookup(name string) (values.Value, error) {
	if e.frame != nil {
		if v, err := e.frame.Get(name); err == nil {
			return v, nil
		}
	}
	if e.this != nil {
		if v, err := e.store.GetLocation(memory.InstanceLocation(e.this.ID, name)); err == nil {
			return v, nil
		}
	}
	return e.store.Globals.Get(name)
}

func (e *Env) Assign(name string, v values.Value) error {
	if e.frame != nil {
		if err := e.frame.Set(name, v); err == nil {
			return nil
		}
	}
	if e.this != nil {
		if err := e.store.SetLocation(memory.InstanceLocation(e.this.ID, name), v); err == nil {
			return nil
		}
	}
	return e.store.Globals.Set(name, v)
}

// AddressOf resolves name the same way Lookup does, but returns the
// storage location instead of the value, so REF(name) always points at
// name's actual home — not a copy.
func (e *Env) AddressOf(name string) (*values.RefTarget, error) {
	if e.frame != nil {
		if _, err := e.frame.Get(name); err == nil {
			return &values.RefTarget{Location: memory.LocalLocation(e.frame.ID, name)}, nil
		}
	}
	if e.this != nil {
		loc := memory.InstanceLocation(e.this.ID, name)
		if _, err := e.store.GetLocation(loc); err == nil {
			return &values.RefTarget{Location: loc}, nil
		}
	}
	if _, err := e.store.Globals.Get(name); err == nil {
		return &values.RefTarget{Location: memory.GlobalLocation(name)}, nil
	}
	return nil, errs.New(errs.KindUndefinedName, "undefined name %q", name)
}

func (e *Env) This() (values.Instance, bool) {
	if e.this == nil {
		return values.Instance{}, false
	}
	return *e.this, true
}

func (e *Env) Super() (values.Instance, bool) {
	if e.base == nil {
		return values.Instance{}, false
	}
	return *e.base, true
}

func (e *Env) Call(name string, args []eval.Argument) (values.Value, error) {
	return e.dispatcher.Call(e, name, args)
}

func (e *Env) Store() memory.Store { return e.store }

// Frame returns the active call frame, if any. Not part of eval.Env —
// debugctl type-asserts for it (as an optional capability, the way
// encoding/json probes for json.Marshaler) to capture "current frame
// locals by FrameId" in a pause snapshot (§4.L).
func (e *Env) Frame() (*memory.Frame, bool) {
	if e.frame == nil {
		return nil, false
	}
	return e.frame, true
}
