package semdb

import (
	"github.com/stplatform/stcore/symbols"
	"github.com/stplatform/stcore/types"
)

// diagnoseOOP implements §4.D's OOP-rules content: the inheritance and
// modifier checks spec §3.3/§4.B describe but leave to a later pass —
// extending a FINAL type, overriding a method the base chain never
// declared, and declaring an ABSTRACT method inside a concrete type.
func diagnoseOOP(id FileID, u *Unit) []Diagnostic {
	var diags []Diagnostic
	tbl := u.Table

	for _, scope := range tbl.AllScopes() {
		for _, owner := range tbl.AllInScope(scope) {
			if owner.Kind != symbols.KindClass && owner.Kind != symbols.KindFunctionBlock {
				continue
			}
			if base, ok := tbl.BaseOf(owner.DeclaredType); ok {
				if baseSym := findTypeSymbol(tbl, base); baseSym != nil && baseSym.Modifiers.Has(symbols.ModFinal) {
					diags = append(diags, Diagnostic{
						File: id, Code: "ExtendsFinalType", Severity: SeverityError,
						Start: owner.Range.Start, End: owner.Range.End,
						Message: owner.SimpleName + " extends " + baseSym.SimpleName + ", which is declared FINAL",
					})
				}
			}

			memberScope, ok := tbl.ScopeOwnedBy(owner)
			if !ok {
				continue
			}
			for _, member := range tbl.AllInScope(memberScope) {
				if member.Kind != symbols.KindMethod {
					continue
				}
				if member.Modifiers.Has(symbols.ModAbstract) && !owner.Modifiers.Has(symbols.ModAbstract) {
					diags = append(diags, Diagnostic{
						File: id, Code: "AbstractMethodInConcreteType", Severity: SeverityError,
						Start: member.Range.Start, End: member.Range.End,
						Message: member.SimpleName + " is ABSTRACT but " + owner.SimpleName + " is not",
					})
				}
				if !member.Modifiers.Has(symbols.ModOverride) {
					continue
				}
				base, ok := tbl.BaseOf(owner.DeclaredType)
				if !ok {
					diags = append(diags, Diagnostic{
						File: id, Code: "OverrideWithoutBase", Severity: SeverityError,
						Start: member.Range.Start, End: member.Range.End,
						Message: member.SimpleName + " is declared OVERRIDE but " + owner.SimpleName + " has no base type",
					})
					continue
				}
				if _, err := tbl.ResolveMember(base, member.SimpleName, owner.DeclaredType); err != nil {
					diags = append(diags, Diagnostic{
						File: id, Code: "OverrideWithoutBase", Severity: SeverityError,
						Start: member.Range.Start, End: member.Range.End,
						Message: member.SimpleName + " is declared OVERRIDE but no base member of that name was found",
					})
				}
			}
		}
	}
	return diags
}

// findTypeSymbol locates the class/function-block declaration symbol whose
// DeclaredType is want, so a base type id (from Table.BaseOf) can be
// traced back to the symbol carrying its modifiers.
func findTypeSymbol(tbl *symbols.Table, want types.ID) *symbols.Symbol {
	for _, scope := range tbl.AllScopes() {
		for _, sym := range tbl.AllInScope(scope) {
			if (sym.Kind == symbols.KindClass || sym.Kind == symbols.KindFunctionBlock) && sym.DeclaredType == want {
				return sym
			}
		}
	}
	return nil
}
