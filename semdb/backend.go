package semdb

import (
	"sync"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/symbols"
	"github.com/stplatform/stcore/types"
)

// UnitBackend is the Backend (§4.D) this repo actually ships: it serves
// every query from a Unit an external pipeline registered for the file,
// rather than parsing the text argument itself. The concrete lexer,
// parser and CST are out of scope (spec §1); what's in scope, and what
// this backend exercises, is everything downstream of them — the symbol
// table (§4.B) and lowered IR (§4.E) already built elsewhere in this
// tree — driving the real diagnostic passes in diagnose_*.go.
//
// text is still part of the Backend interface and still passed through:
// a future backend fronted by a real parser would need it, and
// ExprIDAtOffset's contract is phrased in terms of byte offsets into it,
// which UnitBackend honors by offset into the Unit's recorded
// SourceLocations instead.
type UnitBackend struct {
	mu    sync.RWMutex
	units map[FileID]*Unit
}

// NewUnitBackend builds an empty backend with no units registered.
func NewUnitBackend() *UnitBackend {
	return &UnitBackend{units: make(map[FileID]*Unit)}
}

// RegisterUnit installs unit as file id's compiled artifacts, replacing
// whatever was registered before. Callers still have to call
// DB.SetSourceText separately so the database's own revision/cache
// machinery has something to invalidate on; RegisterUnit only updates what
// this backend serves once that happens.
func (b *UnitBackend) RegisterUnit(id FileID, unit *Unit) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.units[id] = unit
}

func (b *UnitBackend) unit(id FileID) (*Unit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.units[id]
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "semdb: no unit registered for file %d", id)
	}
	return u, nil
}

func (b *UnitBackend) BuildSymbols(id FileID, text string) (*symbols.Table, error) {
	u, err := b.unit(id)
	if err != nil {
		return nil, err
	}
	return u.Table, nil
}

func (b *UnitBackend) Diagnose(id FileID, text string, tbl *symbols.Table, db *DB) ([]Diagnostic, error) {
	u, err := b.unit(id)
	if err != nil {
		return nil, err
	}
	var diags []Diagnostic
	diags = append(diags, diagnoseComplexity(id, u)...)
	diags = append(diags, diagnoseUnreachable(id, u)...)
	diags = append(diags, diagnoseUnused(id, u)...)
	diags = append(diags, diagnoseOOP(id, u)...)
	diags = append(diags, diagnoseUsing(id, u)...)
	diags = append(diags, diagnoseHazards(id, u)...)
	diags = append(diags, diagnoseNondeterminism(id, u)...)
	diags = append(diags, diagnoseTypes(id, u)...)
	return diags, nil
}

func (b *UnitBackend) TypeOf(id FileID, text string, exprID int) (types.ID, error) {
	u, err := b.unit(id)
	if err != nil {
		return types.IDUnknown, err
	}
	info, ok := u.byID[ir.ExprID(exprID)]
	if !ok {
		return types.IDUnknown, errs.New(errs.KindUndefinedName, "semdb: no expression %d in file %d", exprID, id)
	}
	return inferExprType(u, info)
}

func (b *UnitBackend) ExprIDAtOffset(id FileID, text string, offset int) (int, error) {
	u, err := b.unit(id)
	if err != nil {
		return 0, err
	}
	eid, ok := u.exprAtOffset(offset)
	if !ok {
		return 0, errs.New(errs.KindUndefinedName, "semdb: no expression at offset %d in file %d", offset, id)
	}
	return int(eid), nil
}
