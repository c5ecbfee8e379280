package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/types"
)

func TestUnqualifiedLookupWalksScopeChain(t *testing.T) {
	reg := types.New()
	tbl := NewTable(reg)
	outer := tbl.NewScope(0, nil)
	inner := tbl.NewScope(outer, nil)

	tbl.Declare(outer, &Symbol{SimpleName: "X", Kind: KindVariable, DeclaredType: types.IDSInt32})

	sym, err := tbl.Lookup("x", inner)
	require.NoError(t, err)
	assert.Equal(t, "X", sym.SimpleName)
}

func TestLookupUndefined(t *testing.T) {
	tbl := NewTable(types.New())
	_, err := tbl.Lookup("MISSING", 0)
	assert.Error(t, err)
}

func TestUsingDirectiveResolution(t *testing.T) {
	reg := types.New()
	tbl := NewTable(reg)
	nsScope := tbl.NewScope(0, nil)
	tbl.RegisterNamespace("Lib", nsScope)
	tbl.Declare(nsScope, &Symbol{SimpleName: "Helper", Kind: KindFunction})

	userScope := tbl.NewScope(0, nil)
	tbl.AddUsing(userScope, "Lib")

	sym, err := tbl.Lookup("Helper", userScope)
	require.NoError(t, err)
	assert.Equal(t, "Helper", sym.SimpleName)
}

func TestQualifiedLookup(t *testing.T) {
	reg := types.New()
	tbl := NewTable(reg)
	nsScope := tbl.NewScope(0, nil)
	tbl.RegisterNamespace("Lib", nsScope)
	tbl.Declare(nsScope, &Symbol{SimpleName: "Helper", Kind: KindFunction})

	sym, err := tbl.Lookup("Lib.Helper", 0)
	require.NoError(t, err)
	assert.Equal(t, "Helper", sym.SimpleName)
}

func TestDuplicateDeclarationTieBreak(t *testing.T) {
	tbl := NewTable(types.New())
	scope := tbl.NewScope(0, nil)
	first := tbl.Declare(scope, &Symbol{SimpleName: "X", Kind: KindVariable, Range: SourceRange{Start: 10}})
	second := &Symbol{SimpleName: "X", Kind: KindVariable, Range: SourceRange{Start: 20}}
	tbl.Declare(scope, second)

	dups := tbl.DuplicatesOf(scope, first)
	require.Len(t, dups, 2)
	assert.Equal(t, 10, dups[0].Range.Start)
	assert.Equal(t, 20, dups[1].Range.Start)
}

func TestMemberVisibility(t *testing.T) {
	reg := types.New()
	baseID, err := reg.RegisterType("BASE_FB", types.Type{Kind: types.KindStruct})
	require.NoError(t, err)
	derivedID, err := reg.RegisterType("DERIVED_FB", types.Type{Kind: types.KindStruct})
	require.NoError(t, err)

	tbl := NewTable(reg)
	tbl.SetBase(derivedID, baseID)
	tbl.DeclareTypeMember(baseID, &Symbol{SimpleName: "secret", Kind: KindVariable, Visibility: VisibilityPrivate})
	tbl.DeclareTypeMember(baseID, &Symbol{SimpleName: "shared", Kind: KindVariable, Visibility: VisibilityProtected})

	_, err = tbl.ResolveMember(baseID, "secret", derivedID)
	assert.Error(t, err, "private member must not be visible from a derived type")

	sym, err := tbl.ResolveMember(baseID, "shared", derivedID)
	require.NoError(t, err)
	assert.Equal(t, "shared", sym.SimpleName)
}
