package semdb

import (
	"sort"
	"strings"

	"github.com/stplatform/stcore/ir"
)

// diagnoseHazards implements §4.D's shared-global-task-hazard content: a
// global variable that more than one task's bound programs reference is
// read and written on independent cadences (§4.J: each cycle runs the
// ready tasks one after another in priority order, so tasks of different
// intervals interleave their accesses across cycles), so every such shared
// write is a hazard worth surfacing even though it cannot be resolved here.
func diagnoseHazards(id FileID, u *Unit) []Diagnostic {
	globalNames := make(map[string]bool, len(u.Program.Globals))
	for _, g := range u.Program.Globals {
		globalNames[strings.ToUpper(g.Name)] = true
	}
	if len(globalNames) == 0 {
		return nil
	}

	programBody := make(map[string][]ir.Stmt, len(u.Program.Programs))
	for _, p := range u.Program.Programs {
		programBody[p.Name] = p.Body
	}

	// global -> set of task names touching it
	touching := make(map[string]map[string]bool)
	for _, task := range u.Program.Tasks {
		for _, progName := range task.Programs {
			body, ok := programBody[progName]
			if !ok {
				continue
			}
			for name := range namesReferencedIn(body) {
				if !globalNames[name] {
					continue
				}
				if touching[name] == nil {
					touching[name] = make(map[string]bool)
				}
				touching[name][task.Name] = true
			}
		}
	}

	var diags []Diagnostic
	for name, tasks := range touching {
		if len(tasks) < 2 {
			continue
		}
		names := make([]string, 0, len(tasks))
		for t := range tasks {
			names = append(names, t)
		}
		sort.Strings(names)
		diags = append(diags, Diagnostic{
			File: id, Code: "SharedGlobalTaskHazard", Severity: SeverityWarning,
			Message: "global " + name + " is referenced from multiple tasks (" + strings.Join(names, ", ") + ") with no synchronization",
		})
	}
	return diags
}

func namesReferencedIn(body []ir.Stmt) map[string]bool {
	out := make(map[string]bool)
	var walkExpr func(ir.Expr)
	walkExpr = func(e ir.Expr) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case ir.NameRef:
			out[strings.ToUpper(n.Name)] = true
		case ir.Field:
			walkExpr(n.X)
		case ir.Unary:
			walkExpr(n.X)
		case ir.Binary:
			walkExpr(n.L)
			walkExpr(n.R)
		case ir.Index:
			walkExpr(n.X)
			for _, idx := range n.Indices {
				walkExpr(idx)
			}
		case ir.Deref:
			walkExpr(n.X)
		case ir.AddressOf:
			walkExpr(n.X)
		case ir.Paren:
			walkExpr(n.X)
		case ir.Call:
			for _, a := range n.Args {
				walkExpr(a.Expr)
			}
		}
	}
	var walkStmt func(ir.Stmt)
	walkStmt = func(s ir.Stmt) {
		switch n := s.(type) {
		case ir.Assign:
			walkExpr(n.Target)
			walkExpr(n.Value)
		case ir.Labeled:
			walkStmt(n.Stmt)
		case ir.If:
			walkExpr(n.Cond)
			for _, st := range n.Then {
				walkStmt(st)
			}
			for _, e := range n.ElsIfs {
				walkExpr(e.Cond)
				for _, st := range e.Body {
					walkStmt(st)
				}
			}
			for _, st := range n.Else {
				walkStmt(st)
			}
		case ir.Case:
			walkExpr(n.Selector)
			for _, arm := range n.Arms {
				for _, st := range arm.Body {
					walkStmt(st)
				}
			}
			for _, st := range n.Else {
				walkStmt(st)
			}
		case ir.For:
			walkExpr(n.Start)
			walkExpr(n.End)
			walkExpr(n.Step)
			for _, st := range n.Body {
				walkStmt(st)
			}
		case ir.While:
			walkExpr(n.Cond)
			for _, st := range n.Body {
				walkStmt(st)
			}
		case ir.Repeat:
			for _, st := range n.Body {
				walkStmt(st)
			}
			walkExpr(n.Cond)
		case ir.ExprStmt:
			walkExpr(n.X)
		}
	}
	for _, s := range body {
		walkStmt(s)
	}
	return out
}
