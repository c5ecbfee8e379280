package semdb

// diagnoseUsing implements §4.D's USING-resolution content: every USING
// directive recorded on any scope (§4.B step 3) naming a namespace that
// was never registered via RegisterNamespace.
func diagnoseUsing(id FileID, u *Unit) []Diagnostic {
	var diags []Diagnostic
	for _, scope := range u.Table.AllScopes() {
		for _, ns := range u.Table.UsingOf(scope) {
			if u.Table.NamespaceExists(ns) {
				continue
			}
			diags = append(diags, Diagnostic{
				File: id, Code: "UnresolvedUsing", Severity: SeverityError,
				Message: "USING " + ns + " does not name a known namespace",
			})
		}
	}
	return diags
}
