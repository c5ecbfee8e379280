package eval

import (
	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/values"
)

// Evaluator walks ir.Expr/ir.Stmt trees against a caller-supplied Env. It
// holds no mutable state of its own beyond the debug hook, so one
// Evaluator is shared across every concurrently running resource (§5).
type Evaluator struct {
	Hook Hook
}

func New() *Evaluator {
	return &Evaluator{Hook: noopHook}
}

// EvalExpr evaluates expr against env.
func (e *Evaluator) EvalExpr(expr ir.Expr, env Env) (values.Value, error) {
	switch x := expr.(type) {
	case ir.Literal:
		return literalValue(x)
	case ir.This:
		inst, ok := env.This()
		if !ok {
			return nil, errs.New(errs.KindInvalidControlFlow, "THIS used outside a method or function-block body")
		}
		return inst, nil
	case ir.Super:
		inst, ok := env.Super()
		if !ok {
			return nil, errs.New(errs.KindInvalidControlFlow, "SUPER used without a base instance")
		}
		return inst, nil
	case ir.Sizeof:
		return nil, errs.New(errs.KindCompileError, "SIZEOF must be folded before evaluation")
	case ir.NameRef:
		return env.Lookup(x.Name)
	case ir.Paren:
		return e.EvalExpr(x.X, env)
	case ir.Unary:
		v, err := e.EvalExpr(x.X, env)
		if err != nil {
			return nil, err
		}
		return evalUnary(int(x.Op), v)
	case ir.Binary:
		return e.evalBinary(x, env)
	case ir.Index:
		return e.evalIndex(x, env)
	case ir.Field:
		return e.evalField(x, env)
	case ir.Deref:
		return e.evalDeref(x, env)
	case ir.AddressOf:
		return e.evalAddressOf(x, env)
	case ir.AssignAttempt:
		return e.evalAssignAttempt(x, env)
	case ir.Call:
		return e.evalCall(x, env)
	}
	return nil, errs.New(errs.KindCompileError, "unhandled expression node")
}

func literalValue(lit ir.Literal) (values.Value, error) {
	if v, ok := lit.Raw.(values.Value); ok {
		return v, nil
	}
	return nil, errs.New(errs.KindCompileError, "literal is not a pre-lowered value")
}

func (e *Evaluator) evalBinary(b ir.Binary, env Env) (values.Value, error) {
	l, err := e.EvalExpr(b.L, env)
	if err != nil {
		return nil, err
	}
	if b.Op == ir.OpAnd || b.Op == ir.OpOr {
		lb, ok := l.(values.Bool)
		if !ok {
			return nil, errs.New(errs.KindConditionNotBool, "%v operand must be BOOL, got %v", b.Op, l.Kind())
		}
		if b.Op == ir.OpAnd && !lb.V {
			return values.Bool{V: false}, nil
		}
		if b.Op == ir.OpOr && lb.V {
			return values.Bool{V: true}, nil
		}
		r, err := e.EvalExpr(b.R, env)
		if err != nil {
			return nil, err
		}
		rb, ok := r.(values.Bool)
		if !ok {
			return nil, errs.New(errs.KindConditionNotBool, "%v operand must be BOOL, got %v", b.Op, r.Kind())
		}
		return rb, nil
	}

	r, err := e.EvalExpr(b.R, env)
	if err != nil {
		return nil, err
	}

	if isComparison(b.Op) && !sameDispatchFamily(l, r) {
		return genericCompare(b.Op, l, r)
	}
	return evalBinaryArith(int(b.Op), l, r)
}

func isComparison(op ir.BinaryOp) bool {
	switch op {
	case ir.OpEq, ir.OpNe, ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		return true
	}
	return false
}

// sameDispatchFamily reports whether l and r both belong to a kind family
// ops.go's numeric/bit/bool dispatch handles directly.
func sameDispatchFamily(l, r values.Value) bool {
	return (isNumeric(l) && isNumeric(r)) || (isBitString(l) && isBitString(r)) || (isBoolKind(l) && isBoolKind(r))
}

// genericCompare handles comparisons over strings, enums, dates, durations,
// chars and references, where §4.F defers to a shared total order (values.Compare/Equal).
func genericCompare(op ir.BinaryOp, l, r values.Value) (values.Value, error) {
	if op == ir.OpEq || op == ir.OpNe {
		eq, err := values.Equal(l, r)
		if err != nil {
			return nil, err
		}
		if op == ir.OpNe {
			eq = !eq
		}
		return values.Bool{V: eq}, nil
	}
	cmp, err := values.Compare(l, r)
	if err != nil {
		return nil, err
	}
	return values.Bool{V: compareSatisfies(int(op), cmp)}, nil
}

func (e *Evaluator) evalIndex(x ir.Index, env Env) (values.Value, error) {
	base, err := e.EvalExpr(x.X, env)
	if err != nil {
		return nil, err
	}
	arr, ok := base.(values.Array)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "indexing applied to non-array value of kind %v", base.Kind())
	}
	idx := make([]int64, len(x.Indices))
	for i, ie := range x.Indices {
		v, err := e.EvalExpr(ie, env)
		if err != nil {
			return nil, err
		}
		n, err := asInt(v)
		if err != nil {
			return nil, err
		}
		idx[i] = n
	}
	off, err := arr.Offset(idx)
	if err != nil {
		return nil, err
	}
	return arr.Elements[off], nil
}

func asInt(v values.Value) (int64, error) {
	switch x := v.(type) {
	case values.SInt:
		return x.V, nil
	case values.UInt:
		return int64(x.V), nil
	}
	return 0, errs.New(errs.KindTypeMismatch, "expected an integer index, got %v", v.Kind())
}

func (e *Evaluator) evalField(x ir.Field, env Env) (values.Value, error) {
	base, err := e.EvalExpr(x.X, env)
	if err != nil {
		return nil, err
	}
	switch b := base.(type) {
	case values.Struct:
		v, ok := b.Field(x.Name)
		if !ok {
			return nil, errs.New(errs.KindUndefinedName, "struct %q has no field %q", b.Name, x.Name)
		}
		return v, nil
	case values.Instance:
		return env.Store().GetLocation(memory.InstanceLocation(b.ID, x.Name))
	}
	return nil, errs.New(errs.KindTypeMismatch, "field access applied to non-struct value of kind %v", base.Kind())
}

func (e *Evaluator) evalDeref(x ir.Deref, env Env) (values.Value, error) {
	base, err := e.EvalExpr(x.X, env)
	if err != nil {
		return nil, err
	}
	ref, ok := base.(values.Reference)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "dereference applied to non-reference value of kind %v", base.Kind())
	}
	if ref.IsNull() {
		return nil, errs.New(errs.KindNullReference, "dereference of a null reference")
	}
	return memory.Resolve(env.Store(), ref.Target)
}

func (e *Evaluator) evalAddressOf(x ir.AddressOf, env Env) (values.Value, error) {
	name, ok := x.X.(ir.NameRef)
	if !ok {
		return nil, errs.New(errs.KindCompileError, "REF(...) requires a name reference operand")
	}
	target, err := env.AddressOf(name.Name)
	if err != nil {
		return nil, err
	}
	return values.Reference{Target: target}, nil
}

func (e *Evaluator) evalAssignAttempt(x ir.AssignAttempt, env Env) (values.Value, error) {
	source, err := e.EvalExpr(x.Source, env)
	if err != nil {
		return nil, err
	}
	srcRef, ok := source.(values.Reference)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "'?=' requires a reference source, got %v", source.Kind())
	}
	targetName, ok := x.Target.(ir.NameRef)
	if !ok {
		return nil, errs.New(errs.KindCompileError, "'?=' requires a name reference target")
	}
	current, err := env.Lookup(targetName.Name)
	if err != nil {
		return nil, err
	}
	targetRef, ok := current.(values.Reference)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "'?=' target must already hold a reference value")
	}
	if srcRef.PointeeType != targetRef.PointeeType {
		nulled := values.Reference{PointeeType: targetRef.PointeeType}
		if err := env.Assign(targetName.Name, nulled); err != nil {
			return nil, err
		}
		return nulled, nil
	}
	if err := env.Assign(targetName.Name, srcRef); err != nil {
		return nil, err
	}
	return srcRef, nil
}

func (e *Evaluator) evalCall(x ir.Call, env Env) (values.Value, error) {
	args := make([]Argument, len(x.Args))
	for i, a := range x.Args {
		v, err := e.EvalExpr(a.Expr, env)
		if err != nil {
			return nil, err
		}
		args[i] = Argument{Name: a.Name, Value: v}
	}
	return env.Call(x.Callee, args)
}
