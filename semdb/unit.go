package semdb

import (
	"sort"

	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/symbols"
	"github.com/stplatform/stcore/types"
)

// exprInfo is what a real Backend needs to answer type_of/expr_id_at_offset
// for one expression node without re-walking the program from scratch: the
// node itself, plus the scope and enclosing POU type it was lowered in,
// since NameRef/Field resolution and member visibility both need that
// context (§4.B step 4, §4.D type_of).
type exprInfo struct {
	expr      ir.Expr
	scope     symbols.ScopeID
	ownerType types.ID // IDUnknown outside a class/function-block method
}

// Unit is one compilation unit's already-lowered artifacts: the symbol
// table §4.B produces and the IR §4.E produces from it. Lexing, parsing
// and lowering themselves are out of scope (spec §1); a Unit is what an
// external pipeline hands this database once it has done that work, and
// UnitBackend (backend.go) is the Backend that serves semdb's queries
// directly from it instead of re-deriving anything from source text.
type Unit struct {
	Table   *symbols.Table
	Program *ir.Program

	byID   map[ir.ExprID]exprInfo
	byPos  []exprInfo // sorted by Start ascending, widest-first among equal starts
	nextID ir.ExprID
}

// NewUnit indexes program's expression tree once so later queries are a
// map lookup (by ExprID) or one scan of the position-sorted index (by
// offset) instead of repeated walks. tbl and program are expected to
// already carry consistent ExprIDs (assigned by whatever lowered them); if
// an expression's ID is zero because the lowering pass that produced it
// predates ExprID assignment, NewUnit assigns one itself in document order
// so every node still has a stable identity to key type_of off of.
func NewUnit(tbl *symbols.Table, program *ir.Program) *Unit {
	u := &Unit{Table: tbl, Program: program, byID: make(map[ir.ExprID]exprInfo)}
	root := symbols.ScopeID(0)
	for _, g := range program.Globals {
		u.walkExpr(g.Initializer, root, types.IDUnknown)
	}
	for _, fn := range program.Functions {
		u.walkFunc(fn.Params, fn.Body, root, types.IDUnknown)
	}
	for _, fb := range program.FBs {
		owner, _ := tbl.Lookup(fb.Name, root)
		ownerType := types.IDUnknown
		if owner != nil {
			ownerType = owner.DeclaredType
		}
		scope := root
		if owner != nil {
			if s, ok := tbl.ScopeOwnedBy(owner); ok {
				scope = s
			}
		}
		u.walkStmts(fb.Body, scope, ownerType)
		for _, m := range fb.Methods {
			u.walkFunc(m.Params, m.Body, scope, ownerType)
		}
	}
	for _, cls := range program.Classes {
		owner, _ := tbl.Lookup(cls.Name, root)
		ownerType := types.IDUnknown
		if owner != nil {
			ownerType = owner.DeclaredType
		}
		scope := root
		if owner != nil {
			if s, ok := tbl.ScopeOwnedBy(owner); ok {
				scope = s
			}
		}
		for _, m := range cls.Methods {
			u.walkFunc(m.Params, m.Body, scope, ownerType)
		}
	}
	for _, p := range program.Programs {
		u.walkStmts(p.Body, root, types.IDUnknown)
	}

	sort.Slice(u.byPos, func(i, j int) bool {
		a, b := u.byPos[i].expr.Loc(), u.byPos[j].expr.Loc()
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End > b.End // widest range first, so a narrower match overrides it on scan
	})
	return u
}

func (u *Unit) walkFunc(params []ir.Param, body []ir.Stmt, scope symbols.ScopeID, ownerType types.ID) {
	for _, p := range params {
		u.walkExpr(p.Default, scope, ownerType)
	}
	u.walkStmts(body, scope, ownerType)
}

func (u *Unit) walkStmts(stmts []ir.Stmt, scope symbols.ScopeID, ownerType types.ID) {
	for _, s := range stmts {
		u.walkStmt(s, scope, ownerType)
	}
}

func (u *Unit) walkStmt(s ir.Stmt, scope symbols.ScopeID, ownerType types.ID) {
	switch n := s.(type) {
	case ir.Assign:
		u.walkExpr(n.Target, scope, ownerType)
		u.walkExpr(n.Value, scope, ownerType)
	case ir.Labeled:
		u.walkStmt(n.Stmt, scope, ownerType)
	case ir.If:
		u.walkExpr(n.Cond, scope, ownerType)
		u.walkStmts(n.Then, scope, ownerType)
		for _, e := range n.ElsIfs {
			u.walkExpr(e.Cond, scope, ownerType)
			u.walkStmts(e.Body, scope, ownerType)
		}
		u.walkStmts(n.Else, scope, ownerType)
	case ir.Case:
		u.walkExpr(n.Selector, scope, ownerType)
		for _, arm := range n.Arms {
			u.walkStmts(arm.Body, scope, ownerType)
		}
		u.walkStmts(n.Else, scope, ownerType)
	case ir.For:
		u.walkExpr(n.Start, scope, ownerType)
		u.walkExpr(n.End, scope, ownerType)
		u.walkExpr(n.Step, scope, ownerType)
		u.walkStmts(n.Body, scope, ownerType)
	case ir.While:
		u.walkExpr(n.Cond, scope, ownerType)
		u.walkStmts(n.Body, scope, ownerType)
	case ir.Repeat:
		u.walkStmts(n.Body, scope, ownerType)
		u.walkExpr(n.Cond, scope, ownerType)
	case ir.ExprStmt:
		u.walkExpr(n.X, scope, ownerType)
	}
}

func (u *Unit) walkExpr(e ir.Expr, scope symbols.ScopeID, ownerType types.ID) {
	if e == nil {
		return
	}
	id := exprID(e)
	if id == 0 {
		u.nextID++
		id = u.nextID
	} else if id > u.nextID {
		u.nextID = id
	}
	info := exprInfo{expr: e, scope: scope, ownerType: ownerType}
	u.byID[id] = info
	u.byPos = append(u.byPos, info)

	switch n := e.(type) {
	case ir.Call:
		for _, a := range n.Args {
			u.walkExpr(a.Expr, scope, ownerType)
		}
	case ir.Unary:
		u.walkExpr(n.X, scope, ownerType)
	case ir.Binary:
		u.walkExpr(n.L, scope, ownerType)
		u.walkExpr(n.R, scope, ownerType)
	case ir.Index:
		u.walkExpr(n.X, scope, ownerType)
		for _, idx := range n.Indices {
			u.walkExpr(idx, scope, ownerType)
		}
	case ir.Field:
		u.walkExpr(n.X, scope, ownerType)
	case ir.Deref:
		u.walkExpr(n.X, scope, ownerType)
	case ir.AddressOf:
		u.walkExpr(n.X, scope, ownerType)
	case ir.AssignAttempt:
		u.walkExpr(n.Target, scope, ownerType)
		u.walkExpr(n.Source, scope, ownerType)
	case ir.Paren:
		u.walkExpr(n.X, scope, ownerType)
	}
}

// exprID extracts the ID field every concrete ir.Expr carries, without
// needing ir to export a common accessor for it.
func exprID(e ir.Expr) ir.ExprID {
	switch n := e.(type) {
	case ir.Literal:
		return n.ID
	case ir.This:
		return n.ID
	case ir.Super:
		return n.ID
	case ir.Sizeof:
		return n.ID
	case ir.NameRef:
		return n.ID
	case ir.Call:
		return n.ID
	case ir.Unary:
		return n.ID
	case ir.Binary:
		return n.ID
	case ir.Index:
		return n.ID
	case ir.Field:
		return n.ID
	case ir.Deref:
		return n.ID
	case ir.AddressOf:
		return n.ID
	case ir.AssignAttempt:
		return n.ID
	case ir.Paren:
		return n.ID
	}
	return 0
}

// exprAtOffset returns the smallest expression enclosing offset, mirroring
// §4.D's expr_id_at_offset contract (the enclosing node nearest the cursor,
// not the outermost one).
func (u *Unit) exprAtOffset(offset int) (ir.ExprID, bool) {
	var best exprInfo
	found := false
	for _, info := range u.byPos {
		loc := info.expr.Loc()
		if loc.Start > offset {
			break
		}
		if offset > loc.End {
			continue
		}
		if !found || (loc.End-loc.Start) < (best.expr.Loc().End-best.expr.Loc().Start) {
			best = info
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return exprID(best.expr), true
}
