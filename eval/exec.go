package eval

import (
	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/values"
)

// ctrlKind tags why ExecStmt/ExecBlock unwound early.
type ctrlKind int

const (
	ctrlNone ctrlKind = iota
	ctrlExit
	ctrlContinue
	ctrlReturn
	ctrlJump
)

// ctrl threads a non-local control transfer (EXIT/CONTINUE/RETURN/jump to
// label) back up through nested statement lists (§4.F).
type ctrl struct {
	kind  ctrlKind
	label string
}

var ctrlFallthrough = ctrl{kind: ctrlNone}

// ExecBlock runs stmts in order, honoring labels as jump targets local to
// this list: a ctrlJump bubbling up from a nested statement is resumed
// here if its label is declared directly in stmts, and otherwise
// propagated to the caller, so a GOTO can cross out of an IF/FOR/WHILE
// body into an ancestor block's label.
func (e *Evaluator) ExecBlock(stmts []ir.Stmt, env Env, depth int) (ctrl, error) {
	i := 0
	for i < len(stmts) {
		c, err := e.ExecStmt(stmts[i], env, depth)
		if err != nil {
			return ctrlFallthrough, err
		}
		if c.kind == ctrlJump {
			if idx, ok := findLabel(stmts, c.label); ok {
				i = idx
				continue
			}
			return c, nil
		}
		if c.kind != ctrlNone {
			return c, nil
		}
		i++
	}
	return ctrlFallthrough, nil
}

func findLabel(stmts []ir.Stmt, label string) (int, bool) {
	for i, s := range stmts {
		if l, ok := s.(ir.Labeled); ok && l.Label == label {
			return i, true
		}
	}
	return 0, false
}

// ExecStmt executes one statement, invoking the evaluator's debug hook
// first (§4.F).
func (e *Evaluator) ExecStmt(stmt ir.Stmt, env Env, depth int) (ctrl, error) {
	hook := e.Hook
	if hook == nil {
		hook = noopHook
	}
	hook(stmt.Loc(), depth, env)

	switch s := stmt.(type) {
	case ir.Empty:
		return ctrlFallthrough, nil
	case ir.Labeled:
		return e.ExecStmt(s.Stmt, env, depth)
	case ir.Jump:
		return ctrl{kind: ctrlJump, label: s.Label}, nil
	case ir.Exit:
		return ctrl{kind: ctrlExit}, nil
	case ir.Continue:
		return ctrl{kind: ctrlContinue}, nil
	case ir.Return:
		return ctrl{kind: ctrlReturn}, nil
	case ir.ExprStmt:
		_, err := e.EvalExpr(s.X, env)
		return ctrlFallthrough, err
	case ir.Assign:
		return ctrlFallthrough, e.execAssign(s, env)
	case ir.If:
		return e.execIf(s, env, depth)
	case ir.Case:
		return e.execCase(s, env, depth)
	case ir.For:
		return e.execFor(s, env, depth)
	case ir.While:
		return e.execWhile(s, env, depth)
	case ir.Repeat:
		return e.execRepeat(s, env, depth)
	}
	return ctrlFallthrough, errs.New(errs.KindCompileError, "unhandled statement node")
}

func (e *Evaluator) execAssign(s ir.Assign, env Env) error {
	v, err := e.EvalExpr(s.Value, env)
	if err != nil {
		return err
	}
	return e.assignTo(s.Target, v, env)
}

// assignTo writes v to the location expr denotes: a bare name, an N-
// dimensional index, a struct field, or a dereferenced reference.
func (e *Evaluator) assignTo(target ir.Expr, v values.Value, env Env) error {
	switch t := target.(type) {
	case ir.NameRef:
		return env.Assign(t.Name, v)
	case ir.Deref:
		base, err := e.EvalExpr(t.X, env)
		if err != nil {
			return err
		}
		ref, ok := base.(values.Reference)
		if !ok {
			return errs.New(errs.KindTypeMismatch, "dereference-assignment applied to non-reference value of kind %v", base.Kind())
		}
		if ref.IsNull() {
			return errs.New(errs.KindNullReference, "assignment through a null reference")
		}
		return memory.Assign(env.Store(), ref.Target, v)
	case ir.Index, ir.Field:
		return e.assignNested(t, v, env)
	}
	return errs.New(errs.KindCompileError, "expression is not assignable")
}

// assignNested rebuilds the containing aggregate for an Index/Field
// assignment target and writes the rebuilt value back through the root's
// addressable name or reference, since values.Array/Struct are immutable
// from the evaluator's point of view once read out of the environment.
func (e *Evaluator) assignNested(target ir.Expr, v values.Value, env Env) error {
	root, path, err := e.resolveNestedPath(target, env)
	if err != nil {
		return err
	}
	switch r := root.(type) {
	case ir.NameRef:
		current, err := env.Lookup(r.Name)
		if err != nil {
			return err
		}
		if inst, ok := current.(values.Instance); ok {
			return e.assignInstancePath(env, inst, path, v)
		}
		updated, err := memory.NavigateSet(current, path, v)
		if err != nil {
			return err
		}
		return env.Assign(r.Name, updated)
	case ir.Deref:
		base, err := e.EvalExpr(r.X, env)
		if err != nil {
			return err
		}
		ref, ok := base.(values.Reference)
		if !ok {
			return errs.New(errs.KindTypeMismatch, "dereference-assignment applied to non-reference value of kind %v", base.Kind())
		}
		if ref.IsNull() {
			return errs.New(errs.KindNullReference, "assignment through a null reference")
		}
		current, err := memory.Resolve(env.Store(), ref.Target)
		if err != nil {
			return err
		}
		updated, err := memory.NavigateSet(current, path, v)
		if err != nil {
			return err
		}
		return memory.Assign(env.Store(), ref.Target, updated)
	case ir.This:
		inst, ok := env.This()
		if !ok {
			return errs.New(errs.KindInvalidControlFlow, "THIS used outside a method or function-block body")
		}
		return e.assignInstancePath(env, inst, path, v)
	case ir.Super:
		inst, ok := env.Super()
		if !ok {
			return errs.New(errs.KindInvalidControlFlow, "SUPER used without a base instance")
		}
		return e.assignInstancePath(env, inst, path, v)
	}
	return errs.New(errs.KindCompileError, "expression is not assignable")
}

// assignInstancePath writes through an FB/class instance member: path's
// first segment names the member itself (instances have no numeric
// offset, only named members), and any remaining segments navigate into
// that member's own structure.
func (e *Evaluator) assignInstancePath(env Env, inst values.Instance, path []values.PathSegment, v values.Value) error {
	if len(path) == 0 || path[0].IsIndex {
		return errs.New(errs.KindCompileError, "instance value is not directly assignable")
	}
	loc := memory.InstanceLocation(inst.ID, path[0].Field)
	if len(path) == 1 {
		return env.Store().SetLocation(loc, v)
	}
	current, err := env.Store().GetLocation(loc)
	if err != nil {
		return err
	}
	updated, err := memory.NavigateSet(current, path[1:], v)
	if err != nil {
		return err
	}
	return env.Store().SetLocation(loc, updated)
}

// resolveNestedPath walks an Index/Field chain down to its root NameRef (or
// Deref), collecting path segments in root-to-leaf order.
func (e *Evaluator) resolveNestedPath(target ir.Expr, env Env) (ir.Expr, []values.PathSegment, error) {
	var segs []values.PathSegment
	cur := target
	for {
		switch t := cur.(type) {
		case ir.Index:
			idx := make([]int64, len(t.Indices))
			for i, ie := range t.Indices {
				iv, err := e.EvalExpr(ie, env)
				if err != nil {
					return nil, nil, err
				}
				n, err := asInt(iv)
				if err != nil {
					return nil, nil, err
				}
				idx[i] = n
			}
			segs = append([]values.PathSegment{values.IndexSeg(idx...)}, segs...)
			cur = t.X
		case ir.Field:
			segs = append([]values.PathSegment{values.FieldSeg(t.Name)}, segs...)
			cur = t.X
		default:
			return cur, segs, nil
		}
	}
}

func (e *Evaluator) execIf(s ir.If, env Env, depth int) (ctrl, error) {
	cond, err := e.EvalExpr(s.Cond, env)
	if err != nil {
		return ctrlFallthrough, err
	}
	b, ok := cond.(values.Bool)
	if !ok {
		return ctrlFallthrough, errs.New(errs.KindConditionNotBool, "IF condition must be BOOL, got %v", cond.Kind())
	}
	if b.V {
		return e.ExecBlock(s.Then, env, depth)
	}
	for _, ei := range s.ElsIfs {
		cv, err := e.EvalExpr(ei.Cond, env)
		if err != nil {
			return ctrlFallthrough, err
		}
		cb, ok := cv.(values.Bool)
		if !ok {
			return ctrlFallthrough, errs.New(errs.KindConditionNotBool, "ELSIF condition must be BOOL, got %v", cv.Kind())
		}
		if cb.V {
			return e.ExecBlock(ei.Body, env, depth)
		}
	}
	return e.ExecBlock(s.Else, env, depth)
}

func (e *Evaluator) execCase(s ir.Case, env Env, depth int) (ctrl, error) {
	sel, err := e.EvalExpr(s.Selector, env)
	if err != nil {
		return ctrlFallthrough, err
	}
	n, err := asInt(sel)
	if err != nil {
		return ctrlFallthrough, errs.New(errs.KindCaseSelectorType, "CASE selector must be an integer or enum value, got %v", sel.Kind())
	}
	for _, arm := range s.Arms {
		for _, l := range arm.Labels {
			if n >= l.Lo && n <= l.Hi {
				return e.ExecBlock(arm.Body, env, depth)
			}
		}
	}
	return e.ExecBlock(s.Else, env, depth)
}

func (e *Evaluator) execFor(s ir.For, env Env, depth int) (ctrl, error) {
	startV, err := e.EvalExpr(s.Start, env)
	if err != nil {
		return ctrlFallthrough, err
	}
	start, err := asInt(startV)
	if err != nil {
		return ctrlFallthrough, err
	}
	endV, err := e.EvalExpr(s.End, env)
	if err != nil {
		return ctrlFallthrough, err
	}
	end, err := asInt(endV)
	if err != nil {
		return ctrlFallthrough, err
	}
	step := int64(1)
	if s.Step != nil {
		stepV, err := e.EvalExpr(s.Step, env)
		if err != nil {
			return ctrlFallthrough, err
		}
		step, err = asInt(stepV)
		if err != nil {
			return ctrlFallthrough, err
		}
	}
	if step == 0 {
		return ctrlFallthrough, errs.New(errs.KindForStepZero, "FOR step must not be zero")
	}
	if err := env.Assign(s.Var, values.SInt{Width: 32, V: start}); err != nil {
		return ctrlFallthrough, err
	}
	for i := start; (step > 0 && i <= end) || (step < 0 && i >= end); i += step {
		if err := env.Assign(s.Var, values.SInt{Width: 32, V: i}); err != nil {
			return ctrlFallthrough, err
		}
		c, err := e.ExecBlock(s.Body, env, depth+1)
		if err != nil {
			return ctrlFallthrough, err
		}
		switch c.kind {
		case ctrlExit:
			return ctrlFallthrough, nil
		case ctrlContinue:
			continue
		case ctrlReturn, ctrlJump:
			return c, nil
		}
	}
	return ctrlFallthrough, nil
}

func (e *Evaluator) execWhile(s ir.While, env Env, depth int) (ctrl, error) {
	for {
		cv, err := e.EvalExpr(s.Cond, env)
		if err != nil {
			return ctrlFallthrough, err
		}
		cb, ok := cv.(values.Bool)
		if !ok {
			return ctrlFallthrough, errs.New(errs.KindConditionNotBool, "WHILE condition must be BOOL, got %v", cv.Kind())
		}
		if !cb.V {
			return ctrlFallthrough, nil
		}
		c, err := e.ExecBlock(s.Body, env, depth+1)
		if err != nil {
			return ctrlFallthrough, err
		}
		switch c.kind {
		case ctrlExit:
			return ctrlFallthrough, nil
		case ctrlContinue:
			continue
		case ctrlReturn, ctrlJump:
			return c, nil
		}
	}
}

func (e *Evaluator) execRepeat(s ir.Repeat, env Env, depth int) (ctrl, error) {
	for {
		c, err := e.ExecBlock(s.Body, env, depth+1)
		if err != nil {
			return ctrlFallthrough, err
		}
		switch c.kind {
		case ctrlExit:
			return ctrlFallthrough, nil
		case ctrlReturn, ctrlJump:
			return c, nil
		}
		cv, err := e.EvalExpr(s.Cond, env)
		if err != nil {
			return ctrlFallthrough, err
		}
		cb, ok := cv.(values.Bool)
		if !ok {
			return ctrlFallthrough, errs.New(errs.KindConditionNotBool, "REPEAT UNTIL condition must be BOOL, got %v", cv.Kind())
		}
		if cb.V {
			return ctrlFallthrough, nil
		}
	}
}
