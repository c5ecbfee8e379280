package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/errs"
)

func lit(v int64) Expr { return Literal{Raw: v} }

func TestFoldConstIntLiteral(t *testing.T) {
	v, err := FoldConstInt(lit(42), "GLOBAL", MapConstEnv{})
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
}

func TestFoldConstIntArithmetic(t *testing.T) {
	expr := Binary{Op: OpAdd, L: lit(2), R: Binary{Op: OpMul, L: lit(3), R: lit(4)}}
	v, err := FoldConstInt(expr, "GLOBAL", MapConstEnv{})
	require.NoError(t, err)
	assert.EqualValues(t, 14, v)
}

func TestFoldConstIntDivisionByZero(t *testing.T) {
	expr := Binary{Op: OpDiv, L: lit(1), R: lit(0)}
	_, err := FoldConstInt(expr, "GLOBAL", MapConstEnv{})
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindDivisionByZero, kind)
}

func TestFoldConstIntReferencesEarlierConstant(t *testing.T) {
	env := MapConstEnv{}
	env.Set("GLOBAL", "BASE", 10)
	v, err := FoldConstInt(Binary{Op: OpAdd, L: NameRef{Name: "BASE"}, R: lit(5)}, "GLOBAL", env)
	require.NoError(t, err)
	assert.EqualValues(t, 15, v)
}

func TestFoldConstIntUndefinedName(t *testing.T) {
	_, err := FoldConstInt(NameRef{Name: "MISSING"}, "GLOBAL", MapConstEnv{})
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindUndefinedName, kind)
}

// TestFoldConstIntCyclicDependency exercises the visiting-set guard
// directly: a NameRef whose key is already marked in-progress must raise
// KindCyclicDependency rather than recurse into env.Lookup.
func TestFoldConstIntCyclicDependency(t *testing.T) {
	visiting := map[string]bool{"GLOBAL\x00CYCLE": true}
	_, err := foldGuarded(NameRef{Name: "CYCLE"}, "GLOBAL", MapConstEnv{}, visiting)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindCyclicDependency, kind)
}
