package semdb

import "github.com/stplatform/stcore/ir"

// diagnoseUnreachable implements §4.D's unreachable-statement content:
// every statement sequence that continues after an unconditional RETURN
// or EXIT is dead, since nothing after it in the same block can run.
func diagnoseUnreachable(id FileID, u *Unit) []Diagnostic {
	var diags []Diagnostic
	report := func(body []ir.Stmt) { unreachableIn(id, body, &diags) }

	for _, fn := range u.Program.Functions {
		report(fn.Body)
	}
	for _, fb := range u.Program.FBs {
		report(fb.Body)
		for _, m := range fb.Methods {
			report(m.Body)
		}
	}
	for _, cls := range u.Program.Classes {
		for _, m := range cls.Methods {
			report(m.Body)
		}
	}
	for _, p := range u.Program.Programs {
		report(p.Body)
	}
	return diags
}

func unreachableIn(id FileID, body []ir.Stmt, diags *[]Diagnostic) {
	terminated := false
	for _, s := range body {
		if terminated {
			loc := s.Loc()
			*diags = append(*diags, Diagnostic{
				File: id, Code: "UnreachableStatement", Severity: SeverityWarning,
				Start: loc.Start, End: loc.End,
				Message: "statement is unreachable: control never falls through to it",
			})
			continue
		}
		switch n := s.(type) {
		case ir.If:
			unreachableIn(id, n.Then, diags)
			for _, e := range n.ElsIfs {
				unreachableIn(id, e.Body, diags)
			}
			unreachableIn(id, n.Else, diags)
		case ir.Case:
			for _, arm := range n.Arms {
				unreachableIn(id, arm.Body, diags)
			}
			unreachableIn(id, n.Else, diags)
		case ir.For:
			unreachableIn(id, n.Body, diags)
		case ir.While:
			unreachableIn(id, n.Body, diags)
		case ir.Repeat:
			unreachableIn(id, n.Body, diags)
		case ir.Labeled:
			unreachableIn(id, []ir.Stmt{n.Stmt}, diags)
		case ir.Return, ir.Exit:
			terminated = true
		}
	}
}
