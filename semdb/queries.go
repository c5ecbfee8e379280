package semdb

import (
	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/symbols"
	"github.com/stplatform/stcore/types"
)

// FileSymbols returns file id's symbol table, computing it via the backend
// on a cache miss. The cached entry is reused only when its recorded
// revision is exactly equal to the database's current revision (§4.D
// "Revision monotonicity": strict equality, not "greater than or equal
// to") — an edit to a wholly unrelated file still invalidates this cache
// entry, by design (§4.D "Per-file isolation").
func (db *DB) FileSymbols(id FileID) (*symbols.Table, error) {
	db.mu.RLock()
	f, ok := db.files[id]
	if !ok || !f.exists {
		db.mu.RUnlock()
		return nil, errs.New(errs.KindUndefinedName, "semdb: no source text set for file %d", id)
	}
	rev := db.revision
	text := f.text
	if f.symbols != nil && f.symbols.rev == rev {
		tbl := f.symbols.val
		db.mu.RUnlock()
		return tbl, nil
	}
	db.mu.RUnlock()

	tbl, err := db.backend.BuildSymbols(id, text)
	if err != nil {
		return nil, errs.Wrap(errs.KindCompileError, err, "build symbols for file %d", id)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	f, ok = db.files[id]
	if ok && f.exists && db.revision == rev {
		f.symbols = &cachedSymbols{rev: rev, val: tbl}
	}
	return tbl, nil
}

// Analyze returns file id's symbols and sorted diagnostics (§4.D), caching
// under the same strict-revision-equality rule as FileSymbols.
func (db *DB) Analyze(id FileID) (*Analysis, error) {
	db.mu.RLock()
	f, ok := db.files[id]
	if !ok || !f.exists {
		db.mu.RUnlock()
		return nil, errs.New(errs.KindUndefinedName, "semdb: no source text set for file %d", id)
	}
	rev := db.revision
	text := f.text
	if f.analysis != nil && f.analysis.rev == rev {
		a := f.analysis.val
		db.mu.RUnlock()
		return a, nil
	}
	db.mu.RUnlock()

	tbl, err := db.FileSymbols(id)
	if err != nil {
		return nil, err
	}
	diags, err := db.backend.Diagnose(id, text, tbl, db)
	if err != nil {
		return nil, errs.Wrap(errs.KindCompileError, err, "analyze file %d", id)
	}
	diags = append([]Diagnostic(nil), diags...)
	sortDiagnostics(diags)
	a := &Analysis{Symbols: tbl, Diagnostics: diags}

	db.mu.Lock()
	defer db.mu.Unlock()
	f, ok = db.files[id]
	if ok && f.exists && db.revision == rev {
		f.analysis = &cachedAnalysis{rev: rev, val: a}
	}
	return a, nil
}

// TypeOf returns the type of the exprID-th expression node of file id
// (§4.D "type_of"), caching per (file, exprID) under the strict-equality
// revision rule.
func (db *DB) TypeOf(id FileID, exprID int) (types.ID, error) {
	db.mu.RLock()
	f, ok := db.files[id]
	if !ok || !f.exists {
		db.mu.RUnlock()
		return types.IDUnknown, errs.New(errs.KindUndefinedName, "semdb: no source text set for file %d", id)
	}
	rev := db.revision
	text := f.text
	if c, ok := f.typeOf[exprID]; ok && c.rev == rev {
		db.mu.RUnlock()
		return c.val, nil
	}
	db.mu.RUnlock()

	t, err := db.backend.TypeOf(id, text, exprID)
	if err != nil {
		return types.IDUnknown, errs.Wrap(errs.KindCompileError, err, "type_of file %d expr %d", id, exprID)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	f, ok = db.files[id]
	if ok && f.exists && db.revision == rev {
		if f.typeOf == nil {
			f.typeOf = make(map[int]cachedType)
		}
		f.typeOf[exprID] = cachedType{rev: rev, val: t}
	}
	return t, nil
}

// ExprIDAtOffset returns the stable expression index enclosing offset in
// file id (§4.D "expr_id_at_offset"). Uncached: it is a cheap structural
// lookup over whatever the backend already holds for the file, and every
// caller of it immediately calls TypeOf with the result, which is cached.
func (db *DB) ExprIDAtOffset(id FileID, offset int) (int, error) {
	db.mu.RLock()
	f, ok := db.files[id]
	if !ok || !f.exists {
		db.mu.RUnlock()
		return 0, errs.New(errs.KindUndefinedName, "semdb: no source text set for file %d", id)
	}
	text := f.text
	db.mu.RUnlock()

	return db.backend.ExprIDAtOffset(id, text, offset)
}
