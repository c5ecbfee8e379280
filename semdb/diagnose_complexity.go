package semdb

import (
	"strconv"

	"github.com/stplatform/stcore/ir"
)

// complexityThreshold is the cyclomatic-complexity count above which a POU
// body gets flagged. McCabe's measure starts at 1 for a straight-line body
// and adds one per independent decision point.
const complexityThreshold = 10

// diagnoseComplexity implements §4.D's cyclomatic-complexity content: one
// count per function/method/program/function-block body, flagged once it
// crosses complexityThreshold.
func diagnoseComplexity(id FileID, u *Unit) []Diagnostic {
	var diags []Diagnostic
	report := func(name string, body []ir.Stmt, loc ir.SourceLocation) {
		c := 1 + countDecisions(body)
		if c <= complexityThreshold {
			return
		}
		diags = append(diags, Diagnostic{
			File: id, Code: "HighCyclomaticComplexity", Severity: SeverityWarning,
			Start: loc.Start, End: loc.End,
			Message: "cyclomatic complexity of " + name + " is " + strconv.Itoa(c) + ", exceeds threshold of " + strconv.Itoa(complexityThreshold),
		})
	}
	for _, fn := range u.Program.Functions {
		report(fn.Name, fn.Body, bodyLoc(fn.Body))
	}
	for _, fb := range u.Program.FBs {
		report(fb.Name, fb.Body, bodyLoc(fb.Body))
		for _, m := range fb.Methods {
			report(fb.Name+"."+m.Name, m.Body, bodyLoc(m.Body))
		}
	}
	for _, cls := range u.Program.Classes {
		for _, m := range cls.Methods {
			report(cls.Name+"."+m.Name, m.Body, bodyLoc(m.Body))
		}
	}
	for _, p := range u.Program.Programs {
		report(p.Name, p.Body, bodyLoc(p.Body))
	}
	return diags
}

func bodyLoc(body []ir.Stmt) ir.SourceLocation {
	if len(body) == 0 {
		return ir.SourceLocation{}
	}
	return body[0].Loc()
}

func countDecisions(stmts []ir.Stmt) int {
	n := 0
	for _, s := range stmts {
		switch st := s.(type) {
		case ir.If:
			n++ // the Then branch
			n += len(st.ElsIfs)
			n += countDecisions(st.Then)
			for _, e := range st.ElsIfs {
				n += countDecisions(e.Body)
			}
			n += countDecisions(st.Else)
		case ir.Case:
			n += len(st.Arms)
			for _, arm := range st.Arms {
				n += countDecisions(arm.Body)
			}
			n += countDecisions(st.Else)
		case ir.For:
			n++
			n += countDecisions(st.Body)
		case ir.While:
			n++
			n += countDecisions(st.Body)
		case ir.Repeat:
			n++
			n += countDecisions(st.Body)
		case ir.Labeled:
			n += countDecisions([]ir.Stmt{st.Stmt})
		}
	}
	return n
}
