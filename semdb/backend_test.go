package semdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/symbols"
	"github.com/stplatform/stcore/types"
)

// newRealDB builds a DB fronted by a real UnitBackend rather than
// countingBackend, so these tests exercise actual diagnostic content
// instead of cache mechanics.
func newRealDB() (*DB, *UnitBackend) {
	backend := NewUnitBackend()
	return New(backend), backend
}

func hasCode(diags []Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestDiagnoseComplexityFlagsDeeplyNestedFunction(t *testing.T) {
	reg := types.New()
	tbl := symbols.NewTable(reg)

	var body []ir.Stmt
	for i := 0; i < complexityThreshold+1; i++ {
		body = append(body, ir.If{Cond: ir.Literal{ID: ir.ExprID(i + 1), Type: types.IDBool, Raw: true}})
	}
	prog := &ir.Program{Functions: []ir.FunctionDef{{Name: "Tangled", Body: body}}}

	db, backend := newRealDB()
	backend.RegisterUnit(1, NewUnit(tbl, prog))
	db.SetSourceText(1, "")

	a, err := db.Analyze(1)
	require.NoError(t, err)
	assert.True(t, hasCode(a.Diagnostics, "HighCyclomaticComplexity"))
}

func TestDiagnoseUnreachableAfterReturn(t *testing.T) {
	reg := types.New()
	tbl := symbols.NewTable(reg)

	body := []ir.Stmt{
		ir.Return{},
		ir.ExprStmt{X: ir.Literal{ID: 1, Type: types.IDBool, Raw: true}},
	}
	prog := &ir.Program{Functions: []ir.FunctionDef{{Name: "DeadTail", Body: body}}}

	db, backend := newRealDB()
	backend.RegisterUnit(1, NewUnit(tbl, prog))
	db.SetSourceText(1, "")

	a, err := db.Analyze(1)
	require.NoError(t, err)
	assert.True(t, hasCode(a.Diagnostics, "UnreachableStatement"))
}

func TestDiagnoseUnusedSymbolForNeverReferencedGlobal(t *testing.T) {
	reg := types.New()
	tbl := symbols.NewTable(reg)
	tbl.Declare(0, &symbols.Symbol{SimpleName: "SPARE", Kind: symbols.KindVariable, DeclaredType: types.IDSInt32})

	prog := &ir.Program{Globals: []ir.GlobalInit{{Name: "SPARE", Type: types.IDSInt32}}}

	db, backend := newRealDB()
	backend.RegisterUnit(1, NewUnit(tbl, prog))
	db.SetSourceText(1, "")

	a, err := db.Analyze(1)
	require.NoError(t, err)
	assert.True(t, hasCode(a.Diagnostics, "UnusedSymbol"))
}

func TestDiagnoseOOPFlagsExtendsFinalAndOverrideWithoutBase(t *testing.T) {
	reg := types.New()
	tbl := symbols.NewTable(reg)

	baseID, err := reg.RegisterType("BASE_FB", types.Type{Kind: types.KindStruct, Name: "BASE_FB"})
	require.NoError(t, err)
	derivedID, err := reg.RegisterType("DERIVED_FB", types.Type{Kind: types.KindStruct, Name: "DERIVED_FB"})
	require.NoError(t, err)

	tbl.Declare(0, &symbols.Symbol{
		SimpleName: "BASE_FB", Kind: symbols.KindFunctionBlock, DeclaredType: baseID, Modifiers: symbols.ModFinal,
	})
	derivedSym := tbl.Declare(0, &symbols.Symbol{
		SimpleName: "DERIVED_FB", Kind: symbols.KindFunctionBlock, DeclaredType: derivedID,
	})
	tbl.SetBase(derivedID, baseID)

	memberScope := tbl.NewScope(0, derivedSym)
	tbl.Declare(memberScope, &symbols.Symbol{
		SimpleName: "Step", Kind: symbols.KindMethod, Modifiers: symbols.ModOverride,
	})

	prog := &ir.Program{}

	db, backend := newRealDB()
	backend.RegisterUnit(1, NewUnit(tbl, prog))
	db.SetSourceText(1, "")

	a, err := db.Analyze(1)
	require.NoError(t, err)
	assert.True(t, hasCode(a.Diagnostics, "ExtendsFinalType"))
	assert.True(t, hasCode(a.Diagnostics, "OverrideWithoutBase"))
}

func TestDiagnoseUsingFlagsUnresolvedNamespace(t *testing.T) {
	reg := types.New()
	tbl := symbols.NewTable(reg)
	tbl.AddUsing(0, "Utility.Missing")

	prog := &ir.Program{}

	db, backend := newRealDB()
	backend.RegisterUnit(1, NewUnit(tbl, prog))
	db.SetSourceText(1, "")

	a, err := db.Analyze(1)
	require.NoError(t, err)
	assert.True(t, hasCode(a.Diagnostics, "UnresolvedUsing"))
}

func TestDiagnoseHazardsFlagsGlobalTouchedByTwoTasks(t *testing.T) {
	reg := types.New()
	tbl := symbols.NewTable(reg)

	ref := func(id ir.ExprID, name string) ir.Expr { return ir.NameRef{ID: id, Name: name} }
	prog := &ir.Program{
		Globals: []ir.GlobalInit{{Name: "SHARED", Type: types.IDSInt32}},
		Programs: []ir.ProgramDef{
			{Name: "Fast", Body: []ir.Stmt{ir.Assign{Target: ref(1, "SHARED"), Value: ir.Literal{ID: 2, Type: types.IDSInt32, Raw: int64(1)}}}},
			{Name: "Slow", Body: []ir.Stmt{ir.Assign{Target: ref(3, "SHARED"), Value: ir.Literal{ID: 4, Type: types.IDSInt32, Raw: int64(2)}}}},
		},
		Tasks: []ir.TaskConfig{
			{Name: "FastTask", Programs: []string{"Fast"}},
			{Name: "SlowTask", Programs: []string{"Slow"}},
		},
	}

	db, backend := newRealDB()
	backend.RegisterUnit(1, NewUnit(tbl, prog))
	db.SetSourceText(1, "")

	a, err := db.Analyze(1)
	require.NoError(t, err)
	assert.True(t, hasCode(a.Diagnostics, "SharedGlobalTaskHazard"))
}

func TestDiagnoseNondeterminismFlagsTimerFBInsideLoop(t *testing.T) {
	reg := types.New()
	tbl := symbols.NewTable(reg)

	loopBody := []ir.Stmt{
		ir.ExprStmt{X: ir.Call{ID: 1, Callee: "TON", Args: []ir.Arg{{Name: "IN", Expr: ir.Literal{ID: 2, Type: types.IDBool, Raw: true}}}}},
	}
	body := []ir.Stmt{
		ir.For{Var: "i", Start: ir.Literal{ID: 3, Type: types.IDSInt32, Raw: int64(0)}, End: ir.Literal{ID: 4, Type: types.IDSInt32, Raw: int64(10)}, Body: loopBody},
	}
	prog := &ir.Program{Functions: []ir.FunctionDef{{Name: "Loopy", Body: body}}}

	db, backend := newRealDB()
	backend.RegisterUnit(1, NewUnit(tbl, prog))
	db.SetSourceText(1, "")

	a, err := db.Analyze(1)
	require.NoError(t, err)
	assert.True(t, hasCode(a.Diagnostics, "NondeterministicLoopFBCall"))
}

func TestDiagnoseTypesFlagsIncompatibleBinaryOperands(t *testing.T) {
	reg := types.New()
	tbl := symbols.NewTable(reg)

	expr := ir.Binary{
		ID: 1, Op: ir.OpAdd,
		L: ir.Literal{ID: 2, Type: types.IDSInt32, Raw: int64(1)},
		R: ir.Literal{ID: 3, Type: types.IDString, Raw: "x"},
	}
	prog := &ir.Program{Functions: []ir.FunctionDef{{Name: "Mixer", Body: []ir.Stmt{ir.ExprStmt{X: expr}}}}}

	db, backend := newRealDB()
	backend.RegisterUnit(1, NewUnit(tbl, prog))
	db.SetSourceText(1, "")

	a, err := db.Analyze(1)
	require.NoError(t, err)
	assert.True(t, hasCode(a.Diagnostics, "ExpressionTypeMismatch"))
}

func TestTypeOfReturnsLiteralType(t *testing.T) {
	reg := types.New()
	tbl := symbols.NewTable(reg)
	prog := &ir.Program{Functions: []ir.FunctionDef{{
		Name: "One",
		Body: []ir.Stmt{ir.ExprStmt{X: ir.Literal{ID: 7, Type: types.IDSInt32, Raw: int64(5)}}},
	}}}

	db, backend := newRealDB()
	backend.RegisterUnit(1, NewUnit(tbl, prog))
	db.SetSourceText(1, "")

	ty, err := db.TypeOf(1, 7)
	require.NoError(t, err)
	assert.Equal(t, types.IDSInt32, ty)
}
