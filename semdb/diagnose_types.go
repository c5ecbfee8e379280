package semdb

import (
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/types"
)

// inferExprType computes expr's static type by walking it, resolving
// names through the unit's symbol table the same way §4.B step 4
// describes (unqualified walk, then USING), and combining operand types
// with combineBinaryType (which does not apply §4.F's "wider of the two
// kinds wins" rule), without evaluating anything. Returns types.IDUnknown,
// nil for shapes it can't pin down (an undeclared name, a call to a
// standard-library entry the symbol table has no declaration for) rather
// than an error; type_of is advisory for an IDE, not a compiler gate.
func inferExprType(u *Unit, info exprInfo) (types.ID, error) {
	reg := u.Table.Registry()
	switch n := info.expr.(type) {
	case ir.Literal:
		return n.Type, nil
	case ir.This:
		return info.ownerType, nil
	case ir.Super:
		if base, ok := u.Table.BaseOf(info.ownerType); ok {
			return base, nil
		}
		return types.IDUnknown, nil
	case ir.Sizeof:
		return types.IDUInt64, nil
	case ir.NameRef:
		sym, err := u.Table.Lookup(n.Name, info.scope)
		if err != nil {
			return types.IDUnknown, nil
		}
		return sym.DeclaredType, nil
	case ir.Call:
		sym, err := u.Table.Lookup(n.Callee, info.scope)
		if err != nil {
			return types.IDUnknown, nil // standard-library or otherwise undeclared callee
		}
		return sym.DeclaredType, nil
	case ir.Unary:
		return exprTypeOf(u, n.X)
	case ir.Binary:
		lt, _ := exprTypeOf(u, n.L)
		rt, _ := exprTypeOf(u, n.R)
		return combineBinaryType(n.Op, lt, rt), nil
	case ir.Index:
		xt, _ := exprTypeOf(u, n.X)
		if t, ok := reg.Get(xt); ok && t.Kind == types.KindArray {
			return t.ElemType, nil
		}
		return types.IDUnknown, nil
	case ir.Field:
		xt, _ := exprTypeOf(u, n.X)
		sym, err := u.Table.ResolveMember(xt, n.Name, info.ownerType)
		if err != nil {
			return types.IDUnknown, nil
		}
		return sym.DeclaredType, nil
	case ir.Deref:
		xt, _ := exprTypeOf(u, n.X)
		if t, ok := reg.Get(xt); ok && (t.Kind == types.KindReference || t.Kind == types.KindPointer) {
			return t.PointeeType, nil
		}
		return types.IDUnknown, nil
	case ir.AddressOf:
		xt, _ := exprTypeOf(u, n.X)
		return reg.RegisterReference(xt, false), nil
	case ir.AssignAttempt:
		return types.IDBool, nil
	case ir.Paren:
		return exprTypeOf(u, n.X)
	}
	return types.IDUnknown, nil
}

// exprTypeOf infers a sub-expression's type by looking up its already
// indexed exprInfo; every node walked into Unit.byID during NewUnit
// carries the scope/ownerType context inferExprType needs, so this never
// re-derives context from scratch.
func exprTypeOf(u *Unit, e ir.Expr) (types.ID, error) {
	if e == nil {
		return types.IDUnknown, nil
	}
	id := exprID(e)
	info, ok := u.byID[id]
	if !ok {
		return types.IDUnknown, nil
	}
	return inferExprType(u, info)
}

// combineBinaryType picks a static result type for op: BOOL for
// comparisons and logical operators, otherwise the known operand's type,
// and the left operand's type when both are known and differ.
func combineBinaryType(op ir.BinaryOp, l, r types.ID) types.ID {
	switch op {
	case ir.OpEq, ir.OpNe, ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe,
		ir.OpAnd, ir.OpOr, ir.OpXor:
		return types.IDBool
	}
	if l == types.IDUnknown {
		return r
	}
	if r == types.IDUnknown {
		return l
	}
	if l == r {
		return l
	}
	// Differing numeric kinds: report the left operand's type. The
	// evaluator's actual widening rule operates on runtime Values, not
	// static types, and disagreement here is exactly what the
	// expression-type-mismatch diagnostic below flags.
	return l
}

// diagnoseTypes implements §4.D's expression type-checking content: every
// indexed expression gets a static type, and binary operators / direct
// assignments whose operand types aren't assignment-compatible (by the
// same rule eval and the memory subsystem apply at runtime, §4.A
// IsAssignable) are reported before a single cycle runs.
func diagnoseTypes(id FileID, u *Unit) []Diagnostic {
	reg := u.Table.Registry()
	var diags []Diagnostic

	for _, info := range u.byID {
		bin, ok := info.expr.(ir.Binary)
		if !ok {
			continue
		}
		if bin.Op == ir.OpEq || bin.Op == ir.OpNe || bin.Op == ir.OpLt || bin.Op == ir.OpLe ||
			bin.Op == ir.OpGt || bin.Op == ir.OpGe || bin.Op == ir.OpAnd || bin.Op == ir.OpOr || bin.Op == ir.OpXor {
			continue
		}
		lt, _ := exprTypeOf(u, bin.L)
		rt, _ := exprTypeOf(u, bin.R)
		if lt == types.IDUnknown || rt == types.IDUnknown || lt == rt {
			continue
		}
		if !reg.IsAssignable(lt, rt) && !reg.IsAssignable(rt, lt) {
			loc := bin.Loc()
			diags = append(diags, Diagnostic{
				File: id, Code: "ExpressionTypeMismatch", Severity: SeverityWarning,
				Start: loc.Start, End: loc.End,
				Message: "binary operator combines incompatible operand types",
			})
		}
	}

	for _, prog := range u.Program.Programs {
		walkAssignStmts(prog.Body, func(a ir.Assign) {
			tt, _ := exprTypeOf(u, a.Target)
			vt, _ := exprTypeOf(u, a.Value)
			if tt == types.IDUnknown || vt == types.IDUnknown {
				return
			}
			if !reg.IsAssignable(tt, vt) {
				loc := a.Loc()
				diags = append(diags, Diagnostic{
					File: id, Code: "AssignmentTypeMismatch", Severity: SeverityError,
					Start: loc.Start, End: loc.End,
					Message: "value type is not assignable to target type",
				})
			}
		})
	}
	return diags
}

func walkAssignStmts(stmts []ir.Stmt, fn func(ir.Assign)) {
	for _, s := range stmts {
		switch n := s.(type) {
		case ir.Assign:
			fn(n)
		case ir.Labeled:
			walkAssignStmts([]ir.Stmt{n.Stmt}, fn)
		case ir.If:
			walkAssignStmts(n.Then, fn)
			for _, e := range n.ElsIfs {
				walkAssignStmts(e.Body, fn)
			}
			walkAssignStmts(n.Else, fn)
		case ir.Case:
			for _, arm := range n.Arms {
				walkAssignStmts(arm.Body, fn)
			}
			walkAssignStmts(n.Else, fn)
		case ir.For:
			walkAssignStmts(n.Body, fn)
		case ir.While:
			walkAssignStmts(n.Body, fn)
		case ir.Repeat:
			walkAssignStmts(n.Body, fn)
		}
	}
}
