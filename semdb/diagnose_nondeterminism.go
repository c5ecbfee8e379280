package semdb

import (
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/stdlib"
)

// diagnoseNondeterminism implements §4.D's nondeterminism-hints content.
// Standard edge-detection and timer function blocks (§4.H) carry their own
// call-to-call state (R_TRIG's last-seen input, TON's accumulated time);
// invoking one from inside a loop body runs it a data-dependent number of
// times per cycle, so the number of edges it detects (or the instant its
// timer fires) stops being a function of the program alone. This is a
// classic IEC 61131-3 footgun, not a type error, hence a hint rather than
// an error-severity diagnostic.
func diagnoseNondeterminism(id FileID, u *Unit) []Diagnostic {
	var diags []Diagnostic
	var inLoop bool

	var walkStmt func(ir.Stmt)
	var walkStmts func([]ir.Stmt)
	var walkExpr func(ir.Expr)

	walkExpr = func(e ir.Expr) {
		if e == nil {
			return
		}
		if call, ok := e.(ir.Call); ok {
			if inLoop {
				if _, ok := stdlib.StandardFB(call.Callee); ok {
					loc := call.Loc()
					diags = append(diags, Diagnostic{
						File: id, Code: "NondeterministicLoopFBCall", Severity: SeverityWarning,
						Start: loc.Start, End: loc.End,
						Message: call.Callee + " carries call-to-call state; invoking it inside a loop makes its " +
							"behavior depend on the loop's trip count",
					})
				}
			}
			for _, a := range call.Args {
				walkExpr(a.Expr)
			}
		}
	}

	walkStmts = func(body []ir.Stmt) {
		for _, s := range body {
			walkStmt(s)
		}
	}

	walkStmt = func(s ir.Stmt) {
		switch n := s.(type) {
		case ir.Assign:
			walkExpr(n.Target)
			walkExpr(n.Value)
		case ir.Labeled:
			walkStmt(n.Stmt)
		case ir.If:
			walkExpr(n.Cond)
			walkStmts(n.Then)
			for _, e := range n.ElsIfs {
				walkExpr(e.Cond)
				walkStmts(e.Body)
			}
			walkStmts(n.Else)
		case ir.Case:
			walkExpr(n.Selector)
			for _, arm := range n.Arms {
				walkStmts(arm.Body)
			}
			walkStmts(n.Else)
		case ir.For:
			was := inLoop
			inLoop = true
			walkStmts(n.Body)
			inLoop = was
		case ir.While:
			was := inLoop
			inLoop = true
			walkStmts(n.Body)
			inLoop = was
		case ir.Repeat:
			was := inLoop
			inLoop = true
			walkStmts(n.Body)
			inLoop = was
		case ir.ExprStmt:
			walkExpr(n.X)
		}
	}

	for _, fn := range u.Program.Functions {
		walkStmts(fn.Body)
	}
	for _, fb := range u.Program.FBs {
		walkStmts(fb.Body)
		for _, m := range fb.Methods {
			walkStmts(m.Body)
		}
	}
	for _, cls := range u.Program.Classes {
		for _, m := range cls.Methods {
			walkStmts(m.Body)
		}
	}
	for _, p := range u.Program.Programs {
		walkStmts(p.Body)
	}
	return diags
}
