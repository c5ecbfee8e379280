// Package eval implements the expression and statement evaluator of spec
// §4.F: short-circuit boolean operators, checked arithmetic, numeric
// coercion, comparisons, reference dereference/assignment-attempt, and the
// full statement set including FOR/CASE/labeled jumps.
package eval

import (
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/values"
)

// Env is the name-resolution and call-dispatch surface the evaluator runs
// against. A caller (the runtime package) supplies one per active
// program/function/method invocation, scoped to that call's frame and
// instance.
type Env interface {
	// Lookup resolves a simple or qualified name to its current value.
	Lookup(name string) (values.Value, error)
	// Assign stores v under name, which must already be declared.
	Assign(name string, v values.Value) error
	// AddressOf builds the RefTarget REF(name) denotes.
	AddressOf(name string) (*values.RefTarget, error)
	// This returns the receiver instance of the active method/FB body, if any.
	This() (values.Instance, bool)
	// Super returns the base instance of This(), for SUPER member access.
	Super() (values.Instance, bool)
	// Call dispatches a named function/function-block-method/stdlib call.
	Call(name string, args []Argument) (values.Value, error)
	// Store gives access to the underlying memory store for path-based
	// reference resolution (REF/deref).
	Store() memory.Store
}

// Argument is one evaluated call argument, positional (Name == "") or
// named.
type Argument struct {
	Name  string
	Value values.Value
}

// Hook is invoked before executing each statement (§4.F "Debug hook"). env
// is the statement's active environment, passed through so a debug control
// plane can evaluate conditional breakpoints and logpoint expressions
// against the current frame (§4.L); the default hook ignores it.
type Hook func(loc ir.SourceLocation, depth int, env Env)

func noopHook(ir.SourceLocation, int, Env) {}
