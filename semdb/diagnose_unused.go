package semdb

import (
	"strings"

	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/symbols"
)

// diagnoseUnused implements §4.D's unused-symbol content: every variable
// declared in the table that no NameRef or Field anywhere in the unit's
// indexed expressions mentions. Functions, function blocks, classes and
// programs are exempt — a POU can be unused within one file and still be
// the file's whole public surface, so reporting it here would be noise.
func diagnoseUnused(id FileID, u *Unit) []Diagnostic {
	referenced := make(map[string]bool)
	for _, info := range u.byID {
		switch n := info.expr.(type) {
		case ir.NameRef:
			referenced[strings.ToUpper(n.Name)] = true
		case ir.Field:
			referenced[strings.ToUpper(n.Name)] = true
		}
	}

	var diags []Diagnostic
	for _, scope := range u.Table.AllScopes() {
		for _, sym := range u.Table.AllInScope(scope) {
			if sym.Kind != symbols.KindVariable && sym.Kind != symbols.KindParameter {
				continue
			}
			if sym.Modifiers.Has(symbols.ModExternal) {
				continue
			}
			if referenced[strings.ToUpper(sym.SimpleName)] {
				continue
			}
			diags = append(diags, Diagnostic{
				File: id, Code: "UnusedSymbol", Severity: SeverityInfo,
				Start: sym.Range.Start, End: sym.Range.End,
				Message: "declared but never referenced: " + sym.SimpleName,
			})
		}
	}
	return diags
}
